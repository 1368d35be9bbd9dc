package sasl

import (
	"crypto/subtle"
	"fmt"

	gosasl "github.com/emersion/go-sasl"
)

// serverEngine adapts a go-sasl server to Engine. Mechanisms built this way
// verify passwords through the same callbacks as CRAM-MD5.
type serverEngine struct {
	mech    string
	handler CallbackHandler
	server  gosasl.Server

	started  bool
	complete bool
	failed   bool
	disposed bool
	authzID  string
}

func (e *serverEngine) Mechanism() string { return e.mech }

func (e *serverEngine) Evaluate(response []byte) ([]byte, error) {
	if e.disposed {
		return nil, ErrDisposed
	}
	if e.complete || e.failed {
		return nil, ErrExchangeComplete
	}

	// go-sasl distinguishes "no initial response" (nil) from an empty one.
	if !e.started && len(response) == 0 {
		response = nil
	}
	e.started = true

	challenge, done, err := e.server.Next(response)
	if err != nil {
		e.failed = true
		return nil, err
	}
	if done {
		e.complete = true
	}
	return challenge, nil
}

func (e *serverEngine) Complete() bool { return e.complete }

func (e *serverEngine) AuthorizationID() (string, bool) {
	if !e.complete || e.disposed {
		return "", false
	}
	return e.authzID, true
}

func (e *serverEngine) Dispose() error {
	e.disposed = true
	return nil
}

// authenticate checks a cleartext password against the handler-supplied
// secret and asks the handler to authorize identity. An empty identity
// requests authorization as the authenticated user.
func (e *serverEngine) authenticate(identity, username, password string) error {
	name := &NameCallback{Name: username}
	secret := &PasswordCallback{}
	if err := e.handler.Handle(name, secret); err != nil {
		return fmt.Errorf("sasl: %s callback: %w", e.mech, err)
	}
	ok := subtle.ConstantTimeCompare(secret.Password, []byte(password)) == 1
	clear(secret.Password)
	if !ok {
		return ErrAuthenticationFailed
	}

	if identity == "" {
		identity = username
	}
	authz := &AuthorizeCallback{AuthenticationID: username, AuthorizationID: identity}
	if err := e.handler.Handle(authz); err != nil {
		return fmt.Errorf("sasl: %s callback: %w", e.mech, err)
	}
	if !authz.Authorized {
		return ErrNotAuthorized
	}

	e.authzID = authz.AuthorizedID
	if e.authzID == "" {
		e.authzID = authz.AuthorizationID
	}
	return nil
}
