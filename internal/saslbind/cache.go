package saslbind

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/metrics"
)

// ConnectionKey identifies a client connection. It is only compared, never
// interpreted.
type ConnectionKey string

// SessionCache holds at most one Session per connection. All methods are
// safe for concurrent use.
type SessionCache struct {
	mu       sync.Mutex
	sessions map[ConnectionKey]*Session

	mechanism   string
	idleTimeout time.Duration
	logger      logging.Logger
	metrics     metrics.Recorder
}

// NewSessionCache creates a cache for one mechanism. Sessions idle for
// longer than idleTimeout are removed by Sweep; zero disables sweeping.
func NewSessionCache(mechanism string, idleTimeout time.Duration, logger logging.Logger, recorder metrics.Recorder) *SessionCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &SessionCache{
		sessions:    make(map[ConnectionKey]*Session),
		mechanism:   mechanism,
		idleTimeout: idleTimeout,
		logger:      logger,
		metrics:     recorder,
	}
}

// Get returns the session for key.
func (c *SessionCache) Get(key ConnectionKey) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	return s, ok
}

// checkout returns the session for key marked as in flight.
func (c *SessionCache) checkout(key ConnectionKey, now time.Time) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if ok {
		s.touch(now)
	}
	return s, ok
}

// Put stores s under key. A different session already stored under key is
// removed and disposed.
func (c *SessionCache) Put(key ConnectionKey, s *Session) {
	c.mu.Lock()
	old, ok := c.sessions[key]
	c.sessions[key] = s
	c.mu.Unlock()

	if ok && old == s {
		return
	}
	c.metrics.RecordSessionStarted(c.mechanism)
	if ok {
		c.dispose(old, metrics.ReasonDisplaced)
	}
}

// Remove deletes and returns the session for key without disposing it.
func (c *SessionCache) Remove(key ConnectionKey) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		return nil
	}
	delete(c.sessions, key)
	return s
}

// RemoveIf deletes the session for key only if it is s.
func (c *SessionCache) RemoveIf(key ConnectionKey, s *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions[key]; ok && cur == s {
		delete(c.sessions, key)
		return true
	}
	return false
}

// Discard removes s from key if it is still stored there and disposes it.
func (c *SessionCache) Discard(key ConnectionKey, s *Session, reason string) {
	c.RemoveIf(key, s)
	c.dispose(s, reason)
}

// Release removes and disposes the session for key. It is the hook for
// connection teardown and reports whether there was a session.
func (c *SessionCache) Release(key ConnectionKey) bool {
	s := c.Remove(key)
	if s == nil {
		return false
	}
	c.dispose(s, metrics.ReasonReleased)
	return true
}

// Len returns the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Sweep removes and disposes sessions idle since before now minus the idle
// timeout. Sessions with a bind round in flight are kept. It returns the
// number of sessions removed.
func (c *SessionCache) Sweep(now time.Time) int {
	if c.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-c.idleTimeout)

	var expired []*Session
	c.mu.Lock()
	for key, s := range c.sessions {
		if s.InFlight() || !s.LastUsed().Before(cutoff) {
			continue
		}
		delete(c.sessions, key)
		expired = append(expired, s)
	}
	c.mu.Unlock()

	for _, s := range expired {
		c.dispose(s, metrics.ReasonExpired)
	}
	if len(expired) > 0 {
		c.logger.Debug("expired idle SASL sessions",
			"mechanism", c.mechanism,
			"count", len(expired),
		)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (c *SessionCache) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || c.idleTimeout <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Sweep(now)
		}
	}
}

// Close disposes every cached session and empties the cache. Engine dispose
// errors are collected and returned together.
func (c *SessionCache) Close() error {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[ConnectionKey]*Session)
	c.mu.Unlock()

	var result *multierror.Error
	for key, s := range sessions {
		disposed, err := s.dispose()
		if disposed {
			c.record(s, metrics.ReasonShutdown)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("connection %s: %w", key, err))
		}
	}
	return result.ErrorOrNil()
}

func (c *SessionCache) dispose(s *Session, reason string) {
	if s.Dispose() {
		c.record(s, reason)
	}
}

func (c *SessionCache) record(s *Session, reason string) {
	c.metrics.RecordSessionEnded(c.mechanism, reason, time.Since(s.created))
}
