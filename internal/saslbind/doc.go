// Package saslbind processes multi-round SASL bind requests.
//
// An Orchestrator serves one mechanism for every connection. Each
// connection has at most one Session in the SessionCache, created by a bind
// with empty credentials and advanced by binds that carry the client's
// response:
//
//	orch, err := saslbind.NewOrchestrator(saslbind.Options{
//		Mechanism:  sasl.CRAMMD5,
//		Factory:    sasl.NewCRAMMD5,
//		Protocol:   "ldap",
//		ServerName: "ds.example.com",
//		Resolver:   saslbind.NewResolver(dir, "uid"),
//	})
//	outcome := orch.ProcessBind(conn, credentials)
//
// The Session answers the engine's callbacks. Authentication identifiers are
// read as follows:
//
//   - "dn:<dn>" names an entry by DN. A DN that does not parse fails the bind.
//   - "u:<id>" names the single entry whose user id attribute equals <id>.
//   - Anything else is looked up by DN when it parses as one and by user id
//     otherwise.
//
// Every failure is reported to the client as invalidCredentials with a
// diagnostic that does not reveal whether the identity exists. The cause is
// kept in Outcome.Failure as a BindError for logging.
//
// A session leaves the cache when its exchange finishes, fails, is restarted,
// or its connection is released. Run removes sessions left idle longer than
// the configured timeout.
package saslbind
