// Package sasl provides server-side SASL challenge engines.
//
// An Engine runs one exchange: the caller feeds each client response to
// Evaluate and sends back the returned challenge until Complete reports true.
// Engines never see directory data directly. They ask a CallbackHandler for
// what they need through a closed set of callbacks:
//
//   - NameCallback names the identity the client claims.
//   - PasswordCallback asks for that identity's cleartext secret.
//   - AuthorizeCallback asks whether the identity may act as the requested
//     authorization identity.
//
// Three mechanisms are provided. CRAM-MD5 (RFC 2195) is implemented here.
// PLAIN (RFC 4616) wraps github.com/emersion/go-sasl and LOGIN implements
// the go-sasl Server interface. All of them expect the exchange to start
// with an empty client response.
//
//	registry := sasl.DefaultRegistry()
//	engine, err := registry.New("CRAM-MD5", "ldap", "ds.example.com", handler)
//	challenge, err := engine.Evaluate(nil)
package sasl
