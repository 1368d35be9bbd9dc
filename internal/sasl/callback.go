package sasl

import "errors"

// ErrUnsupportedCallback is returned by handlers for a callback kind they do
// not recognize.
var ErrUnsupportedCallback = errors.New("sasl: unsupported callback")

// Callback is a request from an engine to its handler. The set of callbacks
// is closed: NameCallback, PasswordCallback and AuthorizeCallback.
type Callback interface {
	callback()
}

// NameCallback carries the authentication identity sent by the client.
type NameCallback struct {
	Name string
}

// PasswordCallback asks the handler for the cleartext secret of the
// identity named in the preceding NameCallback.
type PasswordCallback struct {
	Password []byte
}

// AuthorizeCallback asks the handler whether AuthenticationID may act as
// AuthorizationID. The handler sets Authorized and, optionally, the
// canonical AuthorizedID.
type AuthorizeCallback struct {
	AuthenticationID string
	AuthorizationID  string

	Authorized   bool
	AuthorizedID string
}

func (*NameCallback) callback()      {}
func (*PasswordCallback) callback()  {}
func (*AuthorizeCallback) callback() {}

// CallbackHandler answers engine callbacks. Callbacks passed in one call
// belong to the same step of the exchange and are handled in order.
type CallbackHandler interface {
	Handle(callbacks ...Callback) error
}

// CallbackHandlerFunc adapts a function to CallbackHandler.
type CallbackHandlerFunc func(callbacks ...Callback) error

// Handle calls f.
func (f CallbackHandlerFunc) Handle(callbacks ...Callback) error {
	return f(callbacks...)
}
