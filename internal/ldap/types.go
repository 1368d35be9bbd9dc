package ldap

import (
	"errors"
	"fmt"

	goldap "github.com/go-ldap/ldap/v3"
)

// LDAP protocol operation tags (APPLICATION class)
// Per RFC 4511 Section 4.2
const (
	ApplicationBindRequest      = goldap.ApplicationBindRequest      // [APPLICATION 0]
	ApplicationBindResponse     = goldap.ApplicationBindResponse     // [APPLICATION 1]
	ApplicationUnbindRequest    = goldap.ApplicationUnbindRequest    // [APPLICATION 2]
	ApplicationSearchRequest    = goldap.ApplicationSearchRequest    // [APPLICATION 3]
	ApplicationSearchResultDone = goldap.ApplicationSearchResultDone // [APPLICATION 5]
	ApplicationModifyRequest    = goldap.ApplicationModifyRequest    // [APPLICATION 6]
	ApplicationAddRequest       = goldap.ApplicationAddRequest       // [APPLICATION 8]
	ApplicationDelRequest       = goldap.ApplicationDelRequest       // [APPLICATION 10]
	ApplicationModifyDNRequest  = goldap.ApplicationModifyDNRequest  // [APPLICATION 12]
	ApplicationCompareRequest   = goldap.ApplicationCompareRequest   // [APPLICATION 14]
	ApplicationAbandonRequest   = goldap.ApplicationAbandonRequest   // [APPLICATION 16]
	ApplicationExtendedRequest  = goldap.ApplicationExtendedRequest  // [APPLICATION 23]
	ApplicationExtendedResponse = goldap.ApplicationExtendedResponse // [APPLICATION 24]
)

// OperationType represents the type of LDAP operation
type OperationType int

// String returns the string representation of the operation type
func (o OperationType) String() string {
	if name, ok := goldap.ApplicationMap[uint8(o)]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(o))
}

// Context-specific tags
const (
	// ContextTagControls is the tag for Controls in LDAPMessage [0]
	ContextTagControls = 0
	// ContextTagServerSASLCreds is the tag for serverSaslCreds in BindResponse [7]
	ContextTagServerSASLCreds = 7
	// ContextTagRequestName is the tag for requestName in ExtendedRequest [0]
	ContextTagRequestName = 0
	// ContextTagRequestValue is the tag for requestValue in ExtendedRequest [1]
	ContextTagRequestValue = 1
	// ContextTagResponseName is the tag for responseName in ExtendedResponse [10]
	ContextTagResponseName = 10
	// ContextTagResponseValue is the tag for responseValue in ExtendedResponse [11]
	ContextTagResponseValue = 11
)

// ResultCode is an LDAP result code per RFC 4511 Section 4.1.9.
type ResultCode uint16

// Result codes produced by the server.
const (
	ResultSuccess                     ResultCode = goldap.LDAPResultSuccess
	ResultOperationsError             ResultCode = goldap.LDAPResultOperationsError
	ResultProtocolError               ResultCode = goldap.LDAPResultProtocolError
	ResultAuthMethodNotSupported      ResultCode = goldap.LDAPResultAuthMethodNotSupported
	ResultSaslBindInProgress          ResultCode = goldap.LDAPResultSaslBindInProgress
	ResultInvalidDNSyntax             ResultCode = goldap.LDAPResultInvalidDNSyntax
	ResultInappropriateAuthentication ResultCode = goldap.LDAPResultInappropriateAuthentication
	ResultInvalidCredentials          ResultCode = goldap.LDAPResultInvalidCredentials
	ResultBusy                        ResultCode = goldap.LDAPResultBusy
	ResultUnwillingToPerform          ResultCode = goldap.LDAPResultUnwillingToPerform
	ResultOther                       ResultCode = goldap.LDAPResultOther
)

// String returns the RFC 4511 name of the result code.
func (r ResultCode) String() string {
	if name, ok := goldap.LDAPResultCodeMap[uint16(r)]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint16(r))
}

// MaxMessageID is the maximum valid message ID per RFC 4511
const MaxMessageID = 2147483647

// Errors for message parsing
var (
	// ErrInvalidEnvelope is returned when a packet is not an LDAPMessage SEQUENCE
	ErrInvalidEnvelope = errors.New("ldap: invalid LDAPMessage envelope")
	// ErrInvalidMessageID is returned when the message ID is out of range
	ErrInvalidMessageID = errors.New("ldap: message ID out of range")
	// ErrInvalidOperation is returned when the protocolOp is not an APPLICATION tag
	ErrInvalidOperation = errors.New("ldap: invalid protocol operation")
	// ErrMessageTooLarge is returned when an LDAPMessage exceeds MaxMessageSize
	ErrMessageTooLarge = errors.New("ldap: message exceeds maximum size")
	// ErrUnexpectedOperation is returned when a parser is given the wrong operation
	ErrUnexpectedOperation = errors.New("ldap: unexpected protocol operation")
)

// ParseError provides detailed information about a parsing failure
type ParseError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ldap: parse error in %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("ldap: parse error in %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
