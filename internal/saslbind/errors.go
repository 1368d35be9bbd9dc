package saslbind

import (
	"errors"
	"fmt"
)

// Resolution errors.
var (
	// ErrMalformedIdentifier is returned when a dn: identifier is not a valid DN.
	ErrMalformedIdentifier = errors.New("saslbind: malformed authentication identifier")
	// ErrEntryNotFound is returned when no entry matches the identifier.
	ErrEntryNotFound = errors.New("saslbind: no entry matches the authentication identifier")
	// ErrAmbiguousIdentifier is returned when more than one entry matches.
	ErrAmbiguousIdentifier = errors.New("saslbind: authentication identifier matches more than one entry")
	// ErrDirectoryUnavailable is returned when the directory lookup itself fails.
	ErrDirectoryUnavailable = errors.New("saslbind: directory lookup failed")
)

// Callback errors.
var (
	// ErrNoAuthenticationID is returned for an empty authentication identity.
	ErrNoAuthenticationID = errors.New("saslbind: empty authentication identity")
	// ErrAlreadyResolved is returned when a session's entry would be replaced.
	ErrAlreadyResolved = errors.New("saslbind: authentication identity already resolved")
	// ErrNotResolved is returned when a callback needs an entry that has not been resolved.
	ErrNotResolved = errors.New("saslbind: authentication identity not resolved")
	// ErrNoPassword is returned when the entry holds no usable cleartext password.
	ErrNoPassword = errors.New("saslbind: entry has no usable password")
	// ErrPasswordNotSupplied is returned when authorization is requested before the password.
	ErrPasswordNotSupplied = errors.New("saslbind: password not supplied")
	// ErrProxyAuthorizationDenied is returned when the requested authorization
	// identity is not the authenticated entry.
	ErrProxyAuthorizationDenied = errors.New("saslbind: authorization as another identity denied")
)

// Orchestrator errors.
var (
	// ErrNoSession is returned for credentials on a connection without a session.
	ErrNoSession = errors.New("saslbind: credentials provided with no SASL exchange in progress")
	// ErrNoAuthorizationID is returned when a completed engine reports no identity.
	ErrNoAuthorizationID = errors.New("saslbind: engine completed without an authorization identity")
)

// FailureKind classifies why a bind did not succeed.
type FailureKind int

const (
	// ProtocolViolation is a request the exchange state does not allow.
	ProtocolViolation FailureKind = iota + 1
	// ResolutionFailure is an identifier that does not name exactly one entry.
	ResolutionFailure
	// AuthenticationFailure is a proof or authorization the engine rejected.
	AuthenticationFailure
	// InfrastructureFailure is an engine that could not be created.
	InfrastructureFailure
	// PostSuccessFailure is an authenticated identity that could not be
	// applied to the connection.
	PostSuccessFailure
)

// String returns the string representation of the FailureKind.
func (k FailureKind) String() string {
	switch k {
	case ProtocolViolation:
		return "protocol_violation"
	case ResolutionFailure:
		return "resolution_failure"
	case AuthenticationFailure:
		return "authentication_failure"
	case InfrastructureFailure:
		return "infrastructure_failure"
	case PostSuccessFailure:
		return "post_success_failure"
	default:
		return "unknown"
	}
}

// BindError is a classified bind failure. It is kept for logs and tests and
// never sent to the client.
type BindError struct {
	Kind FailureKind
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func classify(kind FailureKind, err error) *BindError {
	return &BindError{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or zero if err is not a BindError.
func KindOf(err error) FailureKind {
	var be *BindError
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
