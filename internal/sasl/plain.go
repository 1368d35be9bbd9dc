package sasl

import gosasl "github.com/emersion/go-sasl"

// PLAIN is the mechanism name of RFC 4616 cleartext authentication.
const PLAIN = "PLAIN"

// NewPlain creates a PLAIN server engine backed by go-sasl.
func NewPlain(_, _ string, handler CallbackHandler) (Engine, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}
	e := &serverEngine{mech: PLAIN, handler: handler}
	e.server = gosasl.NewPlainServer(e.authenticate)
	return e, nil
}
