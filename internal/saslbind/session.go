package saslbind

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KilimcininKorOglu/obamem/internal/directory"
	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/password"
	"github.com/KilimcininKorOglu/obamem/internal/sasl"
)

// Session is one connection's in-progress SASL exchange. It answers the
// engine's callbacks and remembers the entry they resolved.
//
// Only the bind call in flight for the owning connection touches the
// exchange state. The idle sweeper reads the atomic fields only.
type Session struct {
	key               ConnectionKey
	mechanism         string
	resolver          *Resolver
	passwordAttribute string
	logger            logging.Logger

	engine             sasl.Engine
	entry              *directory.Entry
	identifier         *Identifier
	credentialSupplied bool

	created  time.Time
	lastUsed atomic.Int64
	inFlight atomic.Bool
	disposed atomic.Bool
}

// Ensure Session implements sasl.CallbackHandler at compile time
var _ sasl.CallbackHandler = (*Session)(nil)

func newSession(key ConnectionKey, mechanism string, resolver *Resolver, passwordAttribute string, logger logging.Logger, now time.Time) *Session {
	if passwordAttribute == "" {
		passwordAttribute = password.Attribute
	}
	s := &Session{
		key:               key,
		mechanism:         mechanism,
		resolver:          resolver,
		passwordAttribute: passwordAttribute,
		logger:            logger,
		created:           now,
	}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// Key returns the owning connection's key.
func (s *Session) Key() ConnectionKey { return s.key }

// Mechanism returns the SASL mechanism name.
func (s *Session) Mechanism() string { return s.mechanism }

// Engine returns the challenge engine.
func (s *Session) Engine() sasl.Engine { return s.engine }

// Entry returns the resolved entry, or nil before the name callback.
func (s *Session) Entry() *directory.Entry { return s.entry }

// Identifier returns the parsed authentication identifier, or nil before
// the name callback.
func (s *Session) Identifier() *Identifier { return s.identifier }

// CredentialSupplied reports whether the password callback succeeded.
func (s *Session) CredentialSupplied() bool { return s.credentialSupplied }

// Created returns the session creation time.
func (s *Session) Created() time.Time { return s.created }

// LastUsed returns the time of the last bind round.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// InFlight reports whether a bind round is running against the session.
func (s *Session) InFlight() bool { return s.inFlight.Load() }

// Disposed reports whether Dispose has run.
func (s *Session) Disposed() bool { return s.disposed.Load() }

// touch marks a bind round as running. The cache calls it under its lock
// so the sweeper never sees a half-acquired session.
func (s *Session) touch(now time.Time) {
	s.inFlight.Store(true)
	s.lastUsed.Store(now.UnixNano())
}

func (s *Session) release(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
	s.inFlight.Store(false)
}

// Dispose releases the engine. Only the first call does anything; it
// reports whether this call was that one. Engine errors are logged.
func (s *Session) Dispose() bool {
	disposed, err := s.dispose()
	if err != nil {
		s.logger.Warn("failed to dispose SASL engine",
			"mechanism", s.mechanism,
			"connection", string(s.key),
			"error", err,
		)
	}
	return disposed
}

func (s *Session) dispose() (bool, error) {
	if !s.disposed.CompareAndSwap(false, true) {
		return false, nil
	}
	if s.engine == nil {
		return true, nil
	}
	return true, s.engine.Dispose()
}

// Handle implements sasl.CallbackHandler.
func (s *Session) Handle(callbacks ...sasl.Callback) error {
	for _, cb := range callbacks {
		var err error
		switch cb := cb.(type) {
		case *sasl.NameCallback:
			err = s.handleName(cb)
		case *sasl.PasswordCallback:
			err = s.handlePassword(cb)
		case *sasl.AuthorizeCallback:
			err = s.handleAuthorize(cb)
		default:
			err = classify(ProtocolViolation, sasl.ErrUnsupportedCallback)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handleName(cb *sasl.NameCallback) error {
	if cb.Name == "" {
		return classify(ResolutionFailure, ErrNoAuthenticationID)
	}
	if s.entry != nil {
		return classify(ProtocolViolation, ErrAlreadyResolved)
	}

	entry, id, err := s.resolver.Resolve(cb.Name)
	if err != nil {
		return classify(ResolutionFailure, err)
	}
	s.entry = entry
	s.identifier = id
	return nil
}

func (s *Session) handlePassword(cb *sasl.PasswordCallback) error {
	if s.entry == nil {
		return classify(ProtocolViolation, ErrNotResolved)
	}

	values := s.entry.AttributeValues(s.passwordAttribute)
	if len(values) == 0 {
		return classify(ResolutionFailure, ErrNoPassword)
	}

	var lastErr error
	for _, stored := range values {
		secret, err := password.Cleartext(stored)
		if err != nil {
			lastErr = err
			continue
		}
		cb.Password = []byte(secret)
		s.credentialSupplied = true
		return nil
	}
	return classify(ResolutionFailure, fmt.Errorf("%w: %v", ErrNoPassword, lastErr))
}

func (s *Session) handleAuthorize(cb *sasl.AuthorizeCallback) error {
	if s.entry == nil {
		return classify(ProtocolViolation, ErrNotResolved)
	}
	if !s.credentialSupplied {
		return classify(ProtocolViolation, ErrPasswordNotSupplied)
	}

	if cb.AuthorizationID != "" && cb.AuthorizationID != cb.AuthenticationID {
		target, _, err := s.resolver.Resolve(cb.AuthorizationID)
		if err != nil || !target.SameDN(s.entry) {
			cause := ErrProxyAuthorizationDenied
			if err != nil {
				cause = errors.Join(ErrProxyAuthorizationDenied, err)
			}
			return classify(AuthenticationFailure, cause)
		}
	}

	cb.Authorized = true
	cb.AuthorizedID = DNPrefix + s.entry.DN()
	return nil
}
