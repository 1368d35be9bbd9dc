package ldap

import (
	"errors"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Authentication method tags (context-specific)
const (
	// AuthSimple is the tag for simple authentication [0]
	AuthSimple = 0
	// AuthSASL is the tag for SASL authentication [3]
	AuthSASL = 3
)

// AuthMethod represents the authentication method used in a BindRequest
type AuthMethod int

const (
	// AuthMethodSimple indicates simple (password) authentication
	AuthMethodSimple AuthMethod = iota
	// AuthMethodSASL indicates SASL authentication
	AuthMethodSASL
)

// String returns the string representation of the authentication method
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimple:
		return "Simple"
	case AuthMethodSASL:
		return "SASL"
	default:
		return "Unknown"
	}
}

// SASLCredentials represents SASL authentication credentials
//
//	SaslCredentials ::= SEQUENCE {
//	    mechanism               LDAPString,
//	    credentials             OCTET STRING OPTIONAL
//	}
type SASLCredentials struct {
	// Mechanism is the SASL mechanism name (e.g., "CRAM-MD5", "PLAIN")
	Mechanism string
	// Credentials is the optional SASL credentials. Absent and empty
	// credentials are both represented as nil.
	Credentials []byte
}

// BindRequest represents an LDAP Bind Request
//
//	BindRequest ::= [APPLICATION 0] SEQUENCE {
//	    version                 INTEGER (1 .. 127),
//	    name                    LDAPDN,
//	    authentication          AuthenticationChoice
//	}
type BindRequest struct {
	// Version is the LDAP protocol version (typically 3)
	Version int
	// Name is the DN of the user binding
	Name string
	// AuthMethod indicates the authentication method used
	AuthMethod AuthMethod
	// SimplePassword contains the password for simple authentication
	SimplePassword []byte
	// SASLCredentials contains SASL credentials for SASL authentication
	SASLCredentials *SASLCredentials
}

// Errors for BindRequest parsing
var (
	// ErrInvalidBindVersion is returned when the bind version is out of range
	ErrInvalidBindVersion = errors.New("ldap: bind version must be between 1 and 127")
	// ErrUnknownAuthMethod is returned when the authentication method is unknown
	ErrUnknownAuthMethod = errors.New("ldap: unknown authentication method")
	// ErrInvalidSASLCredentials is returned when SASL credentials are malformed
	ErrInvalidSASLCredentials = errors.New("ldap: invalid SASL credentials")
)

// ParseBindRequest parses a BindRequest from its protocolOp packet.
func ParseBindRequest(op *ber.Packet) (*BindRequest, error) {
	if op.ClassType != ber.ClassApplication || op.Tag != ApplicationBindRequest {
		return nil, ErrUnexpectedOperation
	}
	if len(op.Children) != 3 {
		return nil, NewParseError("BindRequest", "expected version, name and authentication", nil)
	}

	version, ok := op.Children[0].Value.(int64)
	if !ok {
		return nil, NewParseError("version", "not an INTEGER", nil)
	}
	if version < 1 || version > 127 {
		return nil, ErrInvalidBindVersion
	}

	req := &BindRequest{
		Version: int(version),
		Name:    stringData(op.Children[1]),
	}

	auth := op.Children[2]
	if auth.ClassType != ber.ClassContext {
		return nil, NewParseError("authentication", "expected context-specific tag", ErrUnknownAuthMethod)
	}

	switch auth.Tag {
	case AuthSimple:
		req.AuthMethod = AuthMethodSimple
		req.SimplePassword = cloneData(auth)

	case AuthSASL:
		if auth.TagType != ber.TypeConstructed || len(auth.Children) == 0 || len(auth.Children) > 2 {
			return nil, NewParseError("authentication", "SASL credentials must be a SEQUENCE", ErrInvalidSASLCredentials)
		}
		creds := &SASLCredentials{Mechanism: stringData(auth.Children[0])}
		if creds.Mechanism == "" {
			return nil, NewParseError("mechanism", "must not be empty", ErrInvalidSASLCredentials)
		}
		if len(auth.Children) == 2 {
			if data := cloneData(auth.Children[1]); len(data) > 0 {
				creds.Credentials = data
			}
		}
		req.AuthMethod = AuthMethodSASL
		req.SASLCredentials = creds

	default:
		return nil, NewParseError("authentication", "unknown authentication method tag", ErrUnknownAuthMethod)
	}

	return req, nil
}

// Packet encodes the BindRequest as a protocolOp.
func (r *BindRequest) Packet() *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationBindRequest, nil, "Bind Request")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(r.Version), "Version"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, r.Name, "Name"))

	switch r.AuthMethod {
	case AuthMethodSASL:
		auth := ber.Encode(ber.ClassContext, ber.TypeConstructed, AuthSASL, nil, "SASL Credentials")
		auth.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, r.SASLCredentials.Mechanism, "Mechanism"))
		if r.SASLCredentials.Credentials != nil {
			auth.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(r.SASLCredentials.Credentials), "Credentials"))
		}
		op.AppendChild(auth)
	default:
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, AuthSimple, string(r.SimplePassword), "Password"))
	}
	return op
}

// IsAnonymous returns true if this is an anonymous bind request.
// An anonymous bind has an empty name and empty simple password.
func (r *BindRequest) IsAnonymous() bool {
	return r.Name == "" && r.AuthMethod == AuthMethodSimple && len(r.SimplePassword) == 0
}

// BindResponse represents an LDAP Bind response.
// Per RFC 4511 Section 4.2.2:
//
//	BindResponse ::= [APPLICATION 1] SEQUENCE {
//	    COMPONENTS OF LDAPResult,
//	    serverSaslCreds    [7] OCTET STRING OPTIONAL
//	}
type BindResponse struct {
	LDAPResult
	// ServerSASLCreds contains server SASL credentials. nil omits the field.
	ServerSASLCreds []byte
}

// Packet encodes the BindResponse as a protocolOp.
func (r *BindResponse) Packet() *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationBindResponse, nil, "Bind Response")
	r.LDAPResult.appendTo(op)
	if r.ServerSASLCreds != nil {
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, ContextTagServerSASLCreds, string(r.ServerSASLCreds), "serverSaslCreds"))
	}
	return op
}

// ParseBindResponse parses a BindResponse from its protocolOp packet.
func ParseBindResponse(op *ber.Packet) (*BindResponse, error) {
	if op.ClassType != ber.ClassApplication || op.Tag != ApplicationBindResponse {
		return nil, ErrUnexpectedOperation
	}
	result, err := parseResult(op)
	if err != nil {
		return nil, err
	}

	resp := &BindResponse{LDAPResult: result}
	for _, child := range op.Children[3:] {
		if child.ClassType == ber.ClassContext && child.Tag == ContextTagServerSASLCreds {
			resp.ServerSASLCreds = cloneData(child)
			if resp.ServerSASLCreds == nil {
				resp.ServerSASLCreds = []byte{}
			}
		}
	}
	return resp, nil
}
