package saslbind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/metrics"
	"github.com/KilimcininKorOglu/obamem/internal/sasl"
)

// Diagnostic shared by every failed evaluation, whatever the cause, so that
// clients cannot tell an unknown identity from a wrong password.
const credentialsFailure = "Unable to process the provided SASL credentials"

// Conn is the connection state a bind updates.
type Conn interface {
	// Key identifies the connection.
	Key() ConnectionKey

	// SetAuthenticatedDN records dn as the connection's identity.
	SetAuthenticatedDN(dn *ldap.DN) error
}

// Options configures an Orchestrator.
type Options struct {
	// Mechanism is the SASL mechanism name, e.g. "CRAM-MD5".
	Mechanism string
	// Factory creates the challenge engine for each exchange.
	Factory sasl.Factory
	// Protocol and ServerName are passed to Factory.
	Protocol   string
	ServerName string

	Resolver          *Resolver
	PasswordAttribute string

	// IdleTimeout bounds how long an unfinished exchange stays cached.
	IdleTimeout time.Duration

	Logger  logging.Logger
	Metrics metrics.Recorder
}

// Orchestrator runs SASL bind exchanges for one mechanism. A single
// Orchestrator serves every connection; calls for different connections may
// run concurrently, calls for one connection must not.
type Orchestrator struct {
	mechanism         string
	factory           sasl.Factory
	protocol          string
	serverName        string
	resolver          *Resolver
	passwordAttribute string

	cache   *SessionCache
	logger  logging.Logger
	metrics metrics.Recorder
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Mechanism == "" {
		return nil, errors.New("saslbind: mechanism is required")
	}
	if opts.Factory == nil {
		return nil, errors.New("saslbind: engine factory is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("saslbind: resolver is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("saslbind").WithFields("mechanism", opts.Mechanism)

	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}

	return &Orchestrator{
		mechanism:         opts.Mechanism,
		factory:           opts.Factory,
		protocol:          opts.Protocol,
		serverName:        opts.ServerName,
		resolver:          opts.Resolver,
		passwordAttribute: opts.PasswordAttribute,
		cache:             NewSessionCache(opts.Mechanism, opts.IdleTimeout, logger, recorder),
		logger:            logger,
		metrics:           recorder,
	}, nil
}

// Mechanism returns the mechanism name.
func (o *Orchestrator) Mechanism() string { return o.mechanism }

// Cache returns the session cache.
func (o *Orchestrator) Cache() *SessionCache { return o.cache }

// ProcessBind handles one bind request carrying credentials for this
// mechanism on conn.
//
// Empty credentials always start a new exchange, discarding any exchange
// already in progress. Non-empty credentials continue the current exchange
// and are rejected when there is none. An exchange that completes, or whose
// evaluation fails, is removed from the cache and disposed.
func (o *Orchestrator) ProcessBind(conn Conn, credentials []byte) *Outcome {
	start := time.Now()
	key := conn.Key()

	var out *Outcome
	switch {
	case len(credentials) == 0:
		out = o.begin(conn)
	default:
		if s, ok := o.cache.checkout(key, start); ok {
			out = o.advance(conn, s, credentials)
		} else {
			out = &Outcome{
				Kind: InvalidCredentials,
				Diagnostic: fmt.Sprintf("%s bind request with credentials provided on a connection "+
					"for which no SASL server was available", o.mechanism),
				Failure: classify(ProtocolViolation, ErrNoSession),
			}
		}
	}

	o.report(key, out, time.Since(start))
	return out
}

// begin starts a fresh exchange for conn.
func (o *Orchestrator) begin(conn Conn) *Outcome {
	key := conn.Key()
	if old, ok := o.cache.Get(key); ok {
		o.cache.Discard(key, old, metrics.ReasonRestart)
	}

	now := time.Now()
	s := newSession(key, o.mechanism, o.resolver, o.passwordAttribute, o.logger, now)
	engine, err := o.factory(o.protocol, o.serverName, s)
	if err != nil {
		return &Outcome{
			Kind:       Other,
			Diagnostic: fmt.Sprintf("Unable to create a SASL server for handling the %s bind request: %v", o.mechanism, err),
			Failure:    classify(InfrastructureFailure, err),
		}
	}
	s.engine = engine
	s.touch(now)
	o.cache.Put(key, s)

	return o.advance(conn, s, nil)
}

// advance runs one engine round on s.
func (o *Orchestrator) advance(conn Conn, s *Session, credentials []byte) *Outcome {
	challenge, err := s.engine.Evaluate(credentials)
	if err != nil {
		o.cache.Discard(s.key, s, metrics.ReasonFailed)

		failure := err
		if KindOf(err) == 0 {
			failure = classify(engineFailureKind(err), err)
		}
		return &Outcome{
			Kind:       InvalidCredentials,
			Diagnostic: credentialsFailure,
			Failure:    failure,
		}
	}

	if !s.engine.Complete() {
		s.release(time.Now())
		return &Outcome{Kind: InProgress, ServerCredentials: challenge}
	}

	return o.finish(conn, s, challenge)
}

// finish decides a completed exchange. The session is removed and disposed
// on every path.
func (o *Orchestrator) finish(conn Conn, s *Session, challenge []byte) (out *Outcome) {
	defer func() {
		reason := metrics.ReasonFailed
		if out != nil && out.Kind == Success {
			reason = metrics.ReasonComplete
		}
		o.cache.Discard(s.key, s, reason)
	}()

	failed := func(kind FailureKind, err error, diagnostic string) *Outcome {
		return &Outcome{
			Kind:              InvalidCredentials,
			Diagnostic:        diagnostic,
			ServerCredentials: challenge,
			Failure:           classify(kind, err),
		}
	}
	generic := fmt.Sprintf("The SASL %s bind failed", o.mechanism)

	if authzID, ok := s.engine.AuthorizationID(); !ok || authzID == "" {
		return failed(AuthenticationFailure, ErrNoAuthorizationID, generic)
	}
	entry := s.Entry()
	if entry == nil {
		return failed(AuthenticationFailure, ErrNotResolved, generic)
	}

	dn, err := ldap.ParseDN(entry.DN())
	if err == nil {
		err = conn.SetAuthenticatedDN(dn)
	}
	if err != nil {
		return failed(PostSuccessFailure, err, "Unable to parse the resulting bind DN "+entry.DN())
	}

	return &Outcome{
		Kind:              Success,
		Diagnostic:        fmt.Sprintf("The SASL %s bind succeeded", o.mechanism),
		ServerCredentials: challenge,
		AuthorizationDN:   entry.DN(),
	}
}

// engineFailureKind classifies an evaluation error that did not come from
// a callback.
func engineFailureKind(err error) FailureKind {
	switch {
	case errors.Is(err, sasl.ErrMalformedResponse),
		errors.Is(err, sasl.ErrUnexpectedResponse),
		errors.Is(err, sasl.ErrExchangeComplete),
		errors.Is(err, sasl.ErrDisposed):
		return ProtocolViolation
	default:
		return AuthenticationFailure
	}
}

// Release disposes the exchange for key, if any. The server calls it when a
// connection ends or binds with another method.
func (o *Orchestrator) Release(key ConnectionKey) bool {
	return o.cache.Release(key)
}

// Run sweeps idle exchanges every interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	return o.cache.Run(ctx, interval)
}

// Close disposes every cached exchange.
func (o *Orchestrator) Close() error {
	return o.cache.Close()
}

func (o *Orchestrator) report(key ConnectionKey, out *Outcome, duration time.Duration) {
	o.metrics.RecordBind(o.mechanism, out.Kind.String(), duration)

	switch out.Kind {
	case InProgress:
		o.logger.Debug("SASL bind in progress",
			"connection", string(key),
		)
	case Success:
		o.logger.Info("SASL bind successful",
			"connection", string(key),
			"dn", out.AuthorizationDN,
			"duration_ms", duration.Milliseconds(),
		)
	default:
		o.logger.Warn("SASL bind failed",
			"connection", string(key),
			"result", out.Kind.String(),
			"failure", KindOf(out.Failure).String(),
			"error", out.Failure,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
