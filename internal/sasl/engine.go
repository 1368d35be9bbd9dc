package sasl

import "errors"

// Engine errors.
var (
	// ErrUnknownMechanism is returned by Registry.New for an unregistered mechanism.
	ErrUnknownMechanism = errors.New("sasl: unknown mechanism")
	// ErrNoHandler is returned when an engine is created without a callback handler.
	ErrNoHandler = errors.New("sasl: no callback handler")
	// ErrUnexpectedResponse is returned for a response the engine is not expecting.
	ErrUnexpectedResponse = errors.New("sasl: unexpected client response")
	// ErrMalformedResponse is returned when a response cannot be parsed.
	ErrMalformedResponse = errors.New("sasl: malformed client response")
	// ErrAuthenticationFailed is returned when the client's proof does not verify.
	ErrAuthenticationFailed = errors.New("sasl: authentication failed")
	// ErrNotAuthorized is returned when the handler refuses authorization.
	ErrNotAuthorized = errors.New("sasl: authorization denied")
	// ErrExchangeComplete is returned when a finished exchange is evaluated again.
	ErrExchangeComplete = errors.New("sasl: exchange already finished")
	// ErrDisposed is returned when a disposed engine is used.
	ErrDisposed = errors.New("sasl: engine disposed")
)

// Engine performs the server side of one SASL exchange. An engine is used by
// a single goroutine at a time.
type Engine interface {
	// Mechanism returns the registered mechanism name.
	Mechanism() string

	// Evaluate processes one client response and returns the next server
	// challenge. A nil challenge with a nil error on a complete engine
	// means there is nothing further to send.
	Evaluate(response []byte) ([]byte, error)

	// Complete reports whether the exchange finished successfully.
	Complete() bool

	// AuthorizationID returns the identity the client is authorized as,
	// once the exchange is complete.
	AuthorizationID() (string, bool)

	// Dispose releases any state held by the engine. It is safe to call
	// more than once.
	Dispose() error
}

// Factory creates an engine for one exchange.
type Factory func(protocol, serverName string, handler CallbackHandler) (Engine, error)
