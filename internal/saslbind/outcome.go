package saslbind

import "github.com/go-ldap/ldap/v3"

// OutcomeKind is the client-visible result of a bind round.
type OutcomeKind int

const (
	// Success means the connection is now authenticated.
	Success OutcomeKind = iota
	// InProgress means the exchange needs another round.
	InProgress
	// InvalidCredentials covers every authentication failure.
	InvalidCredentials
	// Other is a server-side failure unrelated to the credentials.
	Other
)

// String returns the string representation of the OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case InProgress:
		return "in_progress"
	case InvalidCredentials:
		return "invalid_credentials"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// ResultCode returns the LDAP result code for the kind.
func (k OutcomeKind) ResultCode() uint16 {
	switch k {
	case Success:
		return ldap.LDAPResultSuccess
	case InProgress:
		return ldap.LDAPResultSaslBindInProgress
	case InvalidCredentials:
		return ldap.LDAPResultInvalidCredentials
	default:
		return ldap.LDAPResultOther
	}
}

// Outcome is the result of one ProcessBind call.
type Outcome struct {
	Kind OutcomeKind
	// Diagnostic is the message for the client; empty means none.
	Diagnostic string
	// ServerCredentials is the challenge for the client; nil means none.
	ServerCredentials []byte
	// AuthorizationDN is the bound DN on Success.
	AuthorizationDN string
	// Failure is the classified cause of an unsuccessful outcome. It is
	// for logs only.
	Failure error
}
