package saslbind

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obamem/internal/metrics"
	"github.com/KilimcininKorOglu/obamem/internal/sasl"
)

var challengePattern = regexp.MustCompile(`^<\d+\.\d+@ds\.example\.com>$`)

type testConn struct {
	key ConnectionKey
	err error

	mu sync.Mutex
	dn *ldap.DN
}

func newTestConn(key string) *testConn {
	return &testConn{key: ConnectionKey(key)}
}

func (c *testConn) Key() ConnectionKey { return c.key }

func (c *testConn) SetAuthenticatedDN(dn *ldap.DN) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dn = dn
	return nil
}

func (c *testConn) boundDN() *ldap.DN {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dn
}

func cramResponse(user, password string, challenge []byte) []byte {
	mac := hmac.New(md5.New, []byte(password))
	mac.Write(challenge)
	return []byte(user + " " + hex.EncodeToString(mac.Sum(nil)))
}

func newTestOrchestrator(t testing.TB, opts Options) (*Orchestrator, *metrics.Metrics) {
	t.Helper()

	m := newTestMetrics()
	if opts.Mechanism == "" {
		opts.Mechanism = sasl.CRAMMD5
	}
	if opts.Factory == nil {
		opts.Factory = sasl.NewCRAMMD5
	}
	if opts.Resolver == nil {
		opts.Resolver = NewResolver(newTestDirectory(t), "uid")
	}
	opts.Protocol = "ldap"
	opts.ServerName = "ds.example.com"
	opts.IdleTimeout = time.Minute
	opts.Metrics = m

	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	return o, m
}

// cramBind runs a full CRAM-MD5 exchange and returns the final outcome.
func cramBind(t *testing.T, o *Orchestrator, conn Conn, user, password string) *Outcome {
	t.Helper()

	first := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, first.Kind, "first round: %v", first.Failure)
	require.Regexp(t, challengePattern, string(first.ServerCredentials))

	return o.ProcessBind(conn, cramResponse(user, password, first.ServerCredentials))
}

func TestNewOrchestratorValidation(t *testing.T) {
	r := NewResolver(newTestDirectory(t), "")

	_, err := NewOrchestrator(Options{Factory: sasl.NewCRAMMD5, Resolver: r})
	assert.Error(t, err)
	_, err = NewOrchestrator(Options{Mechanism: sasl.CRAMMD5, Resolver: r})
	assert.Error(t, err)
	_, err = NewOrchestrator(Options{Mechanism: sasl.CRAMMD5, Factory: sasl.NewCRAMMD5})
	assert.Error(t, err)

	o, err := NewOrchestrator(Options{Mechanism: sasl.CRAMMD5, Factory: sasl.NewCRAMMD5, Resolver: r})
	require.NoError(t, err)
	assert.Equal(t, sasl.CRAMMD5, o.Mechanism())
	assert.NotNil(t, o.Cache())
}

func TestProcessBindSuccess(t *testing.T) {
	identities := []string{
		"dn:" + testUserDN,
		"u:test.user",
		testUserDN,
		"test.user",
	}

	for _, identity := range identities {
		t.Run(identity, func(t *testing.T) {
			o, m := newTestOrchestrator(t, Options{})
			conn := newTestConn("conn-1")

			out := cramBind(t, o, conn, identity, "password")

			require.Equal(t, Success, out.Kind, "failure: %v", out.Failure)
			assert.Equal(t, "The SASL CRAM-MD5 bind succeeded", out.Diagnostic)
			assert.Equal(t, testUserDN, out.AuthorizationDN)
			assert.Nil(t, out.ServerCredentials)
			assert.NoError(t, out.Failure)
			assert.Equal(t, uint16(ldap.LDAPResultSuccess), out.Kind.ResultCode())

			require.NotNil(t, conn.boundDN())
			assert.True(t, conn.boundDN().Equal(mustParseDN(t, testUserDN)))

			assert.Zero(t, o.Cache().Len())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.BindTotal.WithLabelValues(sasl.CRAMMD5, metrics.ResultInProgress)))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.BindTotal.WithLabelValues(sasl.CRAMMD5, metrics.ResultSuccess)))
			assert.Equal(t, 0.0, activeSessions(m))
			assert.Equal(t, 1.0, disposedSessions(m, metrics.ReasonComplete))
		})
	}
}

func mustParseDN(t *testing.T, dn string) *ldap.DN {
	t.Helper()
	parsed, err := ldap.ParseDN(dn)
	require.NoError(t, err)
	return parsed
}

func TestProcessBindWrongPassword(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	out := cramBind(t, o, conn, "u:test.user", "wrong")

	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.Equal(t, credentialsFailure, out.Diagnostic)
	assert.Equal(t, AuthenticationFailure, KindOf(out.Failure))
	assert.ErrorIs(t, out.Failure, sasl.ErrAuthenticationFailed)
	assert.Nil(t, conn.boundDN())
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 1.0, disposedSessions(m, metrics.ReasonFailed))
}

func TestProcessBindUnresolvableIdentity(t *testing.T) {
	tests := []struct {
		identity string
		wantErr  error
	}{
		{"dn:malformed", ErrMalformedIdentifier},
		{"dn:uid=missing,ou=users,dc=example,dc=com", ErrEntryNotFound},
		{"uid=missing,ou=users,dc=example,dc=com", ErrEntryNotFound},
		{"u:missing", ErrEntryNotFound},
		{"missing", ErrEntryNotFound},
		{"u:dup", ErrAmbiguousIdentifier},
		{"u:hashed.user", ErrNoPassword},
		{"u:nopass.user", ErrNoPassword},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			o, _ := newTestOrchestrator(t, Options{})
			conn := newTestConn("conn-1")

			out := cramBind(t, o, conn, tt.identity, "password")

			assert.Equal(t, InvalidCredentials, out.Kind)
			assert.Equal(t, credentialsFailure, out.Diagnostic)
			assert.Equal(t, ResolutionFailure, KindOf(out.Failure))
			assert.ErrorIs(t, out.Failure, tt.wantErr)
			assert.Zero(t, o.Cache().Len())
		})
	}
}

func TestProcessBindCredentialsWithoutSession(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	out := o.ProcessBind(conn, []byte("test.user 0123456789abcdef0123456789abcdef"))

	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.Equal(t, "CRAM-MD5 bind request with credentials provided on a connection "+
		"for which no SASL server was available", out.Diagnostic)
	assert.Equal(t, ProtocolViolation, KindOf(out.Failure))
	assert.ErrorIs(t, out.Failure, ErrNoSession)
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsStartedTotal.WithLabelValues(sasl.CRAMMD5)))
}

func TestProcessBindAfterCompletion(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	first := o.ProcessBind(conn, nil)
	response := cramResponse("test.user", "password", first.ServerCredentials)
	require.Equal(t, Success, o.ProcessBind(conn, response).Kind)

	replay := o.ProcessBind(conn, response)
	assert.Equal(t, InvalidCredentials, replay.Kind)
	assert.ErrorIs(t, replay.Failure, ErrNoSession)
}

func TestProcessBindMalformedResponse(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	require.Equal(t, InProgress, o.ProcessBind(conn, nil).Kind)

	out := o.ProcessBind(conn, []byte("garbage"))
	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.Equal(t, credentialsFailure, out.Diagnostic)
	assert.Equal(t, ProtocolViolation, KindOf(out.Failure))
	assert.ErrorIs(t, out.Failure, sasl.ErrMalformedResponse)
	assert.Zero(t, o.Cache().Len())
}

func TestProcessBindRestart(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
		count  int
	)
	record := func(event string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}

	factory := func(protocol, serverName string, h sasl.CallbackHandler) (sasl.Engine, error) {
		count++
		id := count
		record(fmt.Sprintf("create %d", id))
		engine, err := sasl.NewCRAMMD5(protocol, serverName, h)
		if err != nil {
			return nil, err
		}
		return &recordingEngine{Engine: engine, dispose: func() { record(fmt.Sprintf("dispose %d", id)) }}, nil
	}

	o, m := newTestOrchestrator(t, Options{Factory: factory})
	conn := newTestConn("conn-1")

	first := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, first.Kind)
	second := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, second.Kind)

	assert.Equal(t, []string{"create 1", "dispose 1", "create 2"}, events)
	assert.Equal(t, 1, o.Cache().Len())
	assert.Equal(t, 1.0, disposedSessions(m, metrics.ReasonRestart))

	out := o.ProcessBind(conn, cramResponse("test.user", "password", second.ServerCredentials))
	require.Equal(t, Success, out.Kind, "failure: %v", out.Failure)
	assert.Equal(t, []string{"create 1", "dispose 1", "create 2", "dispose 2"}, events)
}

type recordingEngine struct {
	sasl.Engine
	dispose func()
}

func (e *recordingEngine) Dispose() error {
	e.dispose()
	return e.Engine.Dispose()
}

func TestProcessBindFactoryFailure(t *testing.T) {
	calls := 0
	factory := func(protocol, serverName string, h sasl.CallbackHandler) (sasl.Engine, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("boom")
		}
		return sasl.NewCRAMMD5(protocol, serverName, h)
	}

	o, m := newTestOrchestrator(t, Options{Factory: factory})
	conn := newTestConn("conn-1")

	require.Equal(t, InProgress, o.ProcessBind(conn, nil).Kind)

	out := o.ProcessBind(conn, nil)
	assert.Equal(t, Other, out.Kind)
	assert.Equal(t, "Unable to create a SASL server for handling the CRAM-MD5 bind request: boom", out.Diagnostic)
	assert.Equal(t, InfrastructureFailure, KindOf(out.Failure))
	assert.Equal(t, uint16(ldap.LDAPResultOther), out.Kind.ResultCode())

	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 0.0, activeSessions(m))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStartedTotal.WithLabelValues(sasl.CRAMMD5)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BindTotal.WithLabelValues(sasl.CRAMMD5, metrics.ResultOther)))
}

func TestProcessBindSetAuthenticatedDNFailure(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")
	conn.err = errors.New("connection closed")

	out := cramBind(t, o, conn, "u:test.user", "password")

	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.Equal(t, "Unable to parse the resulting bind DN "+testUserDN, out.Diagnostic)
	assert.Equal(t, PostSuccessFailure, KindOf(out.Failure))
	assert.Empty(t, out.AuthorizationDN)
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 1.0, disposedSessions(m, metrics.ReasonFailed))
}

func TestProcessBindNoAuthorizationID(t *testing.T) {
	engine := &stubEngine{complete: true, challenge: []byte("done")}
	factory := func(string, string, sasl.CallbackHandler) (sasl.Engine, error) {
		return engine, nil
	}

	o, _ := newTestOrchestrator(t, Options{Factory: factory})
	out := o.ProcessBind(newTestConn("conn-1"), nil)

	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.Equal(t, "The SASL CRAM-MD5 bind failed", out.Diagnostic)
	assert.Equal(t, []byte("done"), out.ServerCredentials)
	assert.ErrorIs(t, out.Failure, ErrNoAuthorizationID)
	assert.Equal(t, AuthenticationFailure, KindOf(out.Failure))
	assert.Equal(t, 1, engine.disposed)
	assert.Zero(t, o.Cache().Len())
}

func TestProcessBindEngineErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"unexpected response", sasl.ErrUnexpectedResponse, ProtocolViolation},
		{"disposed", sasl.ErrDisposed, ProtocolViolation},
		{"not authorized", sasl.ErrNotAuthorized, AuthenticationFailure},
		{"classified callback", classify(ResolutionFailure, ErrEntryNotFound), ResolutionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(string, string, sasl.CallbackHandler) (sasl.Engine, error) {
				return &stubEngine{evalErr: tt.err}, nil
			}
			o, _ := newTestOrchestrator(t, Options{Factory: factory})

			out := o.ProcessBind(newTestConn("conn-1"), nil)
			assert.Equal(t, InvalidCredentials, out.Kind)
			assert.Equal(t, tt.want, KindOf(out.Failure))
			assert.Zero(t, o.Cache().Len())
		})
	}
}

func TestProcessBindRelease(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	first := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, first.Kind)

	assert.True(t, o.Release(conn.Key()))
	assert.False(t, o.Release(conn.Key()))
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 1.0, disposedSessions(m, metrics.ReasonReleased))

	out := o.ProcessBind(conn, cramResponse("test.user", "password", first.ServerCredentials))
	assert.ErrorIs(t, out.Failure, ErrNoSession)
}

func TestProcessBindExpiredSession(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})
	conn := newTestConn("conn-1")

	first := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, first.Kind)

	assert.Equal(t, 1, o.Cache().Sweep(time.Now().Add(time.Hour)))

	out := o.ProcessBind(conn, cramResponse("test.user", "password", first.ServerCredentials))
	assert.Equal(t, InvalidCredentials, out.Kind)
	assert.ErrorIs(t, out.Failure, ErrNoSession)
}

func TestProcessBindConcurrentConnections(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})

	const workers = 20
	results := make([]*Outcome, workers)
	conns := make([]*testConn, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		conns[i] = newTestConn(fmt.Sprintf("conn-%d", i))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first := o.ProcessBind(conns[i], nil)
			if first.Kind != InProgress {
				results[i] = first
				return
			}
			pw := "password"
			if i%2 == 1 {
				pw = "wrong"
			}
			results[i] = o.ProcessBind(conns[i], cramResponse("u:test.user", pw, first.ServerCredentials))
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		require.NotNil(t, out)
		if i%2 == 1 {
			assert.Equal(t, InvalidCredentials, out.Kind, "conn %d", i)
			assert.Nil(t, conns[i].boundDN())
		} else {
			assert.Equal(t, Success, out.Kind, "conn %d", i)
			assert.NotNil(t, conns[i].boundDN())
		}
	}
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 0.0, activeSessions(m))
}

func TestProcessBindInterleavedConnections(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})
	a, b := newTestConn("a"), newTestConn("b")

	firstA := o.ProcessBind(a, nil)
	firstB := o.ProcessBind(b, nil)
	require.Equal(t, 2, o.Cache().Len())
	require.NotEqual(t, firstA.ServerCredentials, firstB.ServerCredentials)

	// Each connection must answer its own challenge.
	outB := o.ProcessBind(b, cramResponse("test.user", "password", firstA.ServerCredentials))
	assert.Equal(t, InvalidCredentials, outB.Kind)

	outA := o.ProcessBind(a, cramResponse("test.user", "password", firstA.ServerCredentials))
	assert.Equal(t, Success, outA.Kind)
	assert.Zero(t, o.Cache().Len())
}

func TestProcessBindPlain(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{Mechanism: sasl.PLAIN, Factory: sasl.NewPlain})
	conn := newTestConn("conn-1")

	first := o.ProcessBind(conn, nil)
	require.Equal(t, InProgress, first.Kind)
	assert.Empty(t, first.ServerCredentials)

	out := o.ProcessBind(conn, []byte("\x00u:test.user\x00password"))
	require.Equal(t, Success, out.Kind, "failure: %v", out.Failure)
	assert.Equal(t, "The SASL PLAIN bind succeeded", out.Diagnostic)
	assert.Equal(t, testUserDN, out.AuthorizationDN)
}

func TestOrchestratorClose(t *testing.T) {
	o, m := newTestOrchestrator(t, Options{})

	for _, key := range []string{"a", "b", "c"} {
		require.Equal(t, InProgress, o.ProcessBind(newTestConn(key), nil).Kind)
	}
	require.Equal(t, 3, o.Cache().Len())

	require.NoError(t, o.Close())
	assert.Zero(t, o.Cache().Len())
	assert.Equal(t, 3.0, disposedSessions(m, metrics.ReasonShutdown))
}
