package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
	goldap "github.com/go-ldap/ldap/v3"

	"github.com/KilimcininKorOglu/obamem/internal/ldap"
	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/saslbind"
)

// Connection errors
var (
	// ErrConnectionClosed is returned when the connection is closed
	ErrConnectionClosed = errors.New("server: connection closed")
)

// Connection represents an individual client connection to the LDAP server.
// It reads LDAP messages from the network, dispatches them to the server's
// handler, and sends responses back. It implements saslbind.Conn.
type Connection struct {
	// conn is the underlying network connection
	conn   net.Conn
	reader *bufio.Reader
	// server is the parent server instance
	server *Server
	// key identifies the connection to the SASL session caches
	key saslbind.ConnectionKey

	// mu protects the bind state and closed flag
	mu sync.Mutex
	// bindDN is the currently bound DN (nil for anonymous)
	bindDN *goldap.DN
	closed bool

	// writeMu serializes writes to conn
	writeMu sync.Mutex

	logger    logging.Logger
	requestID string
	startTime time.Time
}

// NewConnection creates a new Connection for the given network connection.
func NewConnection(conn net.Conn, server *Server) *Connection {
	requestID := logging.GenerateRequestID()

	var logger logging.Logger
	if server != nil && server.logger != nil {
		logger = server.logger.WithRequestID(requestID)
	} else {
		logger = logging.NewNop()
	}

	return &Connection{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		server:    server,
		key:       saslbind.ConnectionKey(requestID),
		logger:    logger,
		requestID: requestID,
		startTime: time.Now(),
	}
}

// Key returns the connection's session cache key.
func (c *Connection) Key() saslbind.ConnectionKey {
	return c.key
}

// SetAuthenticatedDN records dn as the connection's identity. A nil dn
// returns the connection to the anonymous state.
func (c *Connection) SetAuthenticatedDN(dn *goldap.DN) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	c.bindDN = dn
	return nil
}

// resetBind returns the connection to the anonymous state.
func (c *Connection) resetBind() {
	c.mu.Lock()
	c.bindDN = nil
	c.mu.Unlock()
}

// BindDN returns the currently bound DN, or "" for anonymous connections.
func (c *Connection) BindDN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindDN == nil {
		return ""
	}
	return c.bindDN.String()
}

// IsAuthenticated reports whether the connection is bound to an identity.
func (c *Connection) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindDN != nil && len(c.bindDN.RDNs) > 0
}

// RemoteAddr returns the client's address.
func (c *Connection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Handle is the main message loop for the connection.
// It reads LDAP messages, dispatches them to handlers, and sends responses.
// This method blocks until the connection is closed or an error occurs.
func (c *Connection) Handle() {
	c.logger.Info("connection established", "client", c.RemoteAddr())

	defer func() {
		c.releaseSessions()
		c.logger.Info("connection closed",
			"client", c.RemoteAddr(),
			"duration_ms", time.Since(c.startTime).Milliseconds())
		c.Close()
	}()

	for {
		if c.isClosed() {
			return
		}

		msg, err := c.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || c.isClosed() {
				return
			}
			c.logger.Warn("read error",
				"error", err.Error(),
				"client", c.RemoteAddr())
			return
		}

		switch msg.OperationType() {
		case ldap.ApplicationUnbindRequest:
			c.handleUnbind(msg)
			return
		case ldap.ApplicationAbandonRequest:
			// Abandon requests don't get a response
			c.logger.Debug("abandon request ignored", "message_id", msg.MessageID)
			continue
		}

		response := c.dispatchMessage(msg)
		if response == nil {
			continue
		}
		if err := c.WriteMessage(msg.MessageID, response); err != nil {
			c.logger.Warn("write error",
				"error", err.Error(),
				"client", c.RemoteAddr())
			return
		}
	}
}

// dispatchMessage dispatches a message to the appropriate handler and
// returns the response protocolOp, or nil when none is due.
func (c *Connection) dispatchMessage(msg *ldap.Message) *ber.Packet {
	switch msg.OperationType() {
	case ldap.ApplicationBindRequest:
		return c.handleBind(msg)
	case ldap.ApplicationExtendedRequest:
		return c.handleExtended(msg)
	}

	tag, ok := ldap.ResponseTag(msg.OperationType())
	if !ok {
		c.logger.Debug("unknown operation ignored",
			"operation", msg.OperationType().String(),
			"message_id", msg.MessageID)
		return nil
	}
	c.logger.Debug("unsupported operation",
		"operation", msg.OperationType().String(),
		"message_id", msg.MessageID)
	return ldap.NewResponse(tag, &ldap.LDAPResult{
		ResultCode:        ldap.ResultUnwillingToPerform,
		DiagnosticMessage: msg.OperationType().String() + " is not supported",
	})
}

// ReadMessage reads the next LDAP message, applying the read timeout.
func (c *Connection) ReadMessage() (*ldap.Message, error) {
	if timeout := c.readTimeout(); timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	return ldap.ReadMessage(c.reader)
}

// WriteMessage writes a response, applying the write timeout.
func (c *Connection) WriteMessage(msgID int64, op *ber.Packet) error {
	if c.isClosed() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout := c.writeTimeout(); timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return ldap.WriteMessage(c.conn, msgID, op)
}

// Close closes the connection. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.bindDN = nil
	c.mu.Unlock()

	return c.conn.Close()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// releaseSessions drops the connection's unfinished SASL exchanges.
func (c *Connection) releaseSessions() {
	if c.server == nil {
		return
	}
	for _, o := range c.server.orchestrators {
		if o.Release(c.key) {
			c.logger.Debug("released SASL session", "mechanism", o.Mechanism())
		}
	}
}

func (c *Connection) readTimeout() time.Duration {
	if c.server == nil {
		return 0
	}
	return c.server.config.Server.ReadTimeout.Std()
}

func (c *Connection) writeTimeout() time.Duration {
	if c.server == nil {
		return 0
	}
	return c.server.config.Server.WriteTimeout.Std()
}
