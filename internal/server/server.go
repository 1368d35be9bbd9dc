package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/obamem/internal/config"
	"github.com/KilimcininKorOglu/obamem/internal/directory"
	"github.com/KilimcininKorOglu/obamem/internal/ldap"
	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/metrics"
	"github.com/KilimcininKorOglu/obamem/internal/sasl"
	"github.com/KilimcininKorOglu/obamem/internal/saslbind"
)

// Server errors
var (
	// ErrNoConfig is returned when New is called without a configuration.
	ErrNoConfig = errors.New("server: configuration is required")
	// ErrNoDirectory is returned when New is called without a directory.
	ErrNoDirectory = errors.New("server: directory is required")
	// ErrServerRunning is returned when Serve is called twice.
	ErrServerRunning = errors.New("server: already serving")
)

// NoticeOfDisconnectionOID is the unsolicited notification sent before the
// server drops a connection (RFC 4511 section 4.4.1).
const NoticeOfDisconnectionOID = "1.3.6.1.4.1.1466.20036"

// rejectWriteTimeout bounds the notice written to a rejected client.
const rejectWriteTimeout = time.Second

// Options configures a Server.
type Options struct {
	Config    *config.Config
	Directory *directory.Directory
	// Registry supplies SASL engine factories. Defaults to
	// sasl.DefaultRegistry().
	Registry *sasl.Registry
	Logger   logging.Logger
	Metrics  metrics.Recorder
	// MetricsHandler is exposed on the configured metrics address when
	// metrics are enabled.
	MetricsHandler http.Handler
}

// Server is the LDAP listener. It owns one SASL orchestrator per
// configured mechanism.
type Server struct {
	config         *config.Config
	handler        *Handler
	orchestrators  []*saslbind.Orchestrator
	logger         logging.Logger
	metrics        metrics.Recorder
	metricsHandler http.Handler

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Connection]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a server from its configuration and directory.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, ErrNoConfig
	}
	if opts.Directory == nil {
		return nil, ErrNoDirectory
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	registry := opts.Registry
	if registry == nil {
		registry = sasl.DefaultRegistry()
	}

	cfg := opts.Config
	s := &Server{
		config:         cfg,
		logger:         logger.Named("server"),
		metrics:        recorder,
		metricsHandler: opts.MetricsHandler,
		conns:          make(map[*Connection]struct{}),
	}

	bindConfig := &BindConfig{
		Authenticator:  opts.Directory,
		AllowAnonymous: cfg.Server.AllowAnonymous,
		Orchestrators:  make(map[string]*saslbind.Orchestrator),
		Metrics:        recorder,
	}

	resolver := saslbind.NewResolver(opts.Directory, cfg.SASL.UserIDAttribute)

	var result *multierror.Error
	for _, mech := range cfg.SASL.Mechanisms {
		name := strings.ToUpper(strings.TrimSpace(mech))
		factory, err := registry.Factory(name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		o, err := saslbind.NewOrchestrator(saslbind.Options{
			Mechanism:         name,
			Factory:           factory,
			Protocol:          cfg.SASL.Protocol,
			ServerName:        cfg.Server.ServerName,
			Resolver:          resolver,
			PasswordAttribute: cfg.SASL.PasswordAttribute,
			IdleTimeout:       cfg.SASL.SessionIdleTimeout.Std(),
			Logger:            logger,
			Metrics:           recorder,
		})
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		s.orchestrators = append(s.orchestrators, o)
		bindConfig.Orchestrators[name] = o
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("server: configuring SASL mechanisms: %w", err)
	}

	s.handler = NewHandler()
	s.handler.SetBindHandler(NewBindHandler(bindConfig).Handle)
	s.handler.SetExtendedHandler(ldap.WhoAmIOID, WhoAmIHandler)

	return s, nil
}

// Mechanisms returns the SASL mechanisms the server accepts.
func (s *Server) Mechanisms() []string {
	names := make([]string, len(s.orchestrators))
	for i, o := range s.orchestrators {
		names[i] = o.Mechanism()
	}
	return names
}

// Orchestrator returns the orchestrator for mechanism.
func (s *Server) Orchestrator(mechanism string) (*saslbind.Orchestrator, bool) {
	for _, o := range s.orchestrators {
		if strings.EqualFold(o.Mechanism(), mechanism) {
			return o, true
		}
	}
	return nil, false
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open client connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Address)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.config.Server.Address, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener accepts connections on ln until ctx is cancelled. The
// session sweepers and, when enabled, the metrics endpoint run alongside
// the accept loop. On return the listener and every connection are closed
// and every cached SASL session has been disposed.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		ln.Close()
		return ErrServerRunning
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("LDAP server started",
		"address", ln.Addr().String(),
		"mechanisms", strings.Join(s.Mechanisms(), ","))

	g, gctx := errgroup.WithContext(ctx)

	for _, o := range s.orchestrators {
		o := o
		g.Go(func() error {
			return o.Run(gctx, s.config.SASL.SweepInterval.Std())
		})
	}

	if s.config.Metrics.Enabled && s.metricsHandler != nil {
		g.Go(func() error {
			s.logger.Info("metrics endpoint started",
				"address", s.config.Metrics.Address,
				"path", s.config.Metrics.Path)
			if err := metrics.Serve(gctx, s.config.Metrics.Address, s.config.Metrics.Path, s.metricsHandler); err != nil {
				return fmt.Errorf("server: metrics endpoint: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("LDAP server stopping")
		ln.Close()
		s.closeConnections()
		return nil
	})

	g.Go(func() error {
		return s.acceptConnections(gctx, ln)
	})

	err := g.Wait()
	s.wg.Wait()

	var result *multierror.Error
	for _, o := range s.orchestrators {
		if cerr := o.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
	}
	if cerr := result.ErrorOrNil(); cerr != nil {
		s.logger.Warn("error disposing SASL sessions", "error", cerr.Error())
	}

	s.logger.Info("LDAP server stopped")
	return err
}

// acceptConnections accepts clients until the listener is closed.
func (s *Server) acceptConnections(ctx context.Context, ln net.Listener) error {
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		conn := NewConnection(netConn, s)
		if !s.addConnection(conn) {
			s.reject(netConn)
			continue
		}

		s.metrics.RecordConnectionOpened()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.metrics.RecordConnectionClosed()
			defer s.removeConnection(conn)
			conn.Handle()
		}()
	}
}

// addConnection tracks conn unless the server is at capacity or stopping.
func (s *Server) addConnection(conn *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if limit := s.config.Server.MaxConnections; limit > 0 && len(s.conns) >= limit {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) removeConnection(conn *Connection) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// reject tells the client the server is busy and drops it.
func (s *Server) reject(netConn net.Conn) {
	s.metrics.RecordConnectionRejected()
	s.logger.Warn("connection rejected",
		"client", netConn.RemoteAddr().String(),
		"max_connections", s.config.Server.MaxConnections)

	notice := &ldap.ExtendedResponse{
		LDAPResult: ldap.LDAPResult{
			ResultCode:        ldap.ResultBusy,
			DiagnosticMessage: "too many connections",
		},
		Name: NoticeOfDisconnectionOID,
	}
	_ = netConn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
	_ = ldap.WriteMessage(netConn, 0, notice.Packet())
	netConn.Close()
}

// closeConnections closes every open connection and refuses new ones.
func (s *Server) closeConnections() {
	s.mu.Lock()
	s.closing = true
	conns := make([]*Connection, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (c *Connection) handler() *Handler {
	if c.server == nil || c.server.handler == nil {
		return NewHandler()
	}
	return c.server.handler
}
