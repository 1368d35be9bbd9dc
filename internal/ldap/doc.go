// Package ldap implements the LDAP protocol messages the server speaks, as
// specified in RFC 4511, on top of github.com/go-asn1-ber/asn1-ber.
//
// # Message Structure
//
// All LDAP messages follow the LDAPMessage envelope structure:
//
//	LDAPMessage ::= SEQUENCE {
//	    messageID       MessageID,
//	    protocolOp      CHOICE { ... },
//	    controls        [0] Controls OPTIONAL
//	}
//
// Use ReadMessage to decode incoming messages:
//
//	msg, err := ldap.ReadMessage(conn)
//	if err != nil {
//	    // handle error
//	}
//	switch msg.OperationType() {
//	case ldap.ApplicationBindRequest:
//	    req, err := ldap.ParseBindRequest(msg.Operation)
//	    // handle bind request
//	case ldap.ApplicationExtendedRequest:
//	    req, err := ldap.ParseExtendedRequest(msg.Operation)
//	    // handle extended request
//	}
//
// # Supported Operations
//
//   - Bind (APPLICATION 0): simple and SASL authentication
//   - Unbind (APPLICATION 2): connection termination
//   - Extended (APPLICATION 23): "Who am I?" (RFC 4532)
//
// Every other request is answered with NewResponse and the response tag
// returned by ResponseTag.
//
// # Responses
//
// Responses are built as protocolOp packets and wrapped with NewMessage or
// written directly with WriteMessage:
//
//	resp := &ldap.BindResponse{
//	    LDAPResult:      ldap.LDAPResult{ResultCode: ldap.ResultSaslBindInProgress},
//	    ServerSASLCreds: challenge,
//	}
//	err := ldap.WriteMessage(conn, msg.MessageID, resp.Packet())
//
// serverSaslCreds is encoded with context tag [7] (0x87).
package ldap
