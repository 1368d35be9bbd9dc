package server

import (
	"errors"
	"strings"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
	goldap "github.com/go-ldap/ldap/v3"

	"github.com/KilimcininKorOglu/obamem/internal/directory"
	"github.com/KilimcininKorOglu/obamem/internal/ldap"
	"github.com/KilimcininKorOglu/obamem/internal/metrics"
	"github.com/KilimcininKorOglu/obamem/internal/saslbind"
)

// LDAPVersion3 is the required LDAP protocol version.
const LDAPVersion3 = 3

// simpleMechanism labels simple binds in metrics.
const simpleMechanism = "SIMPLE"

// Authenticator verifies simple bind passwords.
type Authenticator interface {
	Authenticate(dn *goldap.DN, plaintext string) error
}

// BindConfig holds configuration for the bind handler.
type BindConfig struct {
	// Authenticator checks simple bind passwords.
	Authenticator Authenticator
	// AllowAnonymous controls whether anonymous binds are allowed.
	AllowAnonymous bool
	// Orchestrators maps upper-case SASL mechanism names to the
	// orchestrator that runs their exchanges.
	Orchestrators map[string]*saslbind.Orchestrator
	// Metrics records simple bind outcomes.
	Metrics metrics.Recorder
}

// NewBindConfig creates a new BindConfig with default settings.
func NewBindConfig() *BindConfig {
	return &BindConfig{
		AllowAnonymous: true,
		Orchestrators:  make(map[string]*saslbind.Orchestrator),
		Metrics:        metrics.NewNoopMetrics(),
	}
}

// BindHandlerImpl implements the bind operation handler.
type BindHandlerImpl struct {
	config *BindConfig
}

// NewBindHandler creates a new bind handler with the given configuration.
func NewBindHandler(config *BindConfig) *BindHandlerImpl {
	if config == nil {
		config = NewBindConfig()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNoopMetrics()
	}
	return &BindHandlerImpl{config: config}
}

// Handle processes a bind request and returns the result.
// It implements the BindHandler function signature.
func (h *BindHandlerImpl) Handle(conn *Connection, req *ldap.BindRequest) *BindResult {
	// Any bind first returns the connection to the anonymous state.
	conn.resetBind()

	mechanism := ""
	if req.AuthMethod == ldap.AuthMethodSASL && req.SASLCredentials != nil {
		mechanism = strings.ToUpper(req.SASLCredentials.Mechanism)
	}
	h.abandonOtherExchanges(conn, mechanism)

	if req.Version != LDAPVersion3 {
		return bindResult(ldap.ResultProtocolError, "only LDAP version 3 is supported")
	}

	switch req.AuthMethod {
	case ldap.AuthMethodSimple:
		start := time.Now()
		result := h.handleSimpleBind(conn, req)
		h.config.Metrics.RecordBind(simpleMechanism, simpleResultLabel(result.ResultCode), time.Since(start))
		return result
	case ldap.AuthMethodSASL:
		return h.handleSASLBind(conn, req)
	default:
		return bindResult(ldap.ResultAuthMethodNotSupported, "unsupported authentication method")
	}
}

// abandonOtherExchanges drops SASL sessions the connection holds for any
// mechanism other than keep.
func (h *BindHandlerImpl) abandonOtherExchanges(conn *Connection, keep string) {
	for name, o := range h.config.Orchestrators {
		if name == keep {
			continue
		}
		if o.Release(conn.Key()) {
			conn.logger.Debug("abandoned SASL exchange", "mechanism", name)
		}
	}
}

// handleSimpleBind processes an anonymous or DN + password bind request.
func (h *BindHandlerImpl) handleSimpleBind(conn *Connection, req *ldap.BindRequest) *BindResult {
	if req.IsAnonymous() {
		if !h.config.AllowAnonymous {
			return bindResult(ldap.ResultInappropriateAuthentication, "anonymous bind is not allowed")
		}
		return bindResult(ldap.ResultSuccess, "")
	}

	// RFC 4513 section 5.1.2: unauthenticated binds are refused.
	if len(req.SimplePassword) == 0 {
		return bindResult(ldap.ResultUnwillingToPerform, "unauthenticated bind is not allowed")
	}
	if req.Name == "" {
		return bindResult(ldap.ResultInvalidCredentials, "invalid credentials")
	}

	dn, err := goldap.ParseDN(req.Name)
	if err != nil {
		return bindResult(ldap.ResultInvalidDNSyntax, "invalid DN syntax")
	}

	if h.config.Authenticator == nil {
		return bindResult(ldap.ResultOperationsError, "directory not configured")
	}

	if err := h.config.Authenticator.Authenticate(dn, string(req.SimplePassword)); err != nil {
		if isCredentialError(err) {
			return bindResult(ldap.ResultInvalidCredentials, "invalid credentials")
		}
		conn.logger.Error("simple bind lookup failed", "dn", req.Name, "error", err.Error())
		return bindResult(ldap.ResultOperationsError, "internal error during authentication")
	}

	if err := conn.SetAuthenticatedDN(dn); err != nil {
		return bindResult(ldap.ResultOther, "unable to update the connection")
	}
	return bindResult(ldap.ResultSuccess, "")
}

// handleSASLBind runs one round of a SASL exchange.
func (h *BindHandlerImpl) handleSASLBind(conn *Connection, req *ldap.BindRequest) *BindResult {
	creds := req.SASLCredentials
	o, ok := h.config.Orchestrators[strings.ToUpper(creds.Mechanism)]
	if !ok {
		return bindResult(ldap.ResultAuthMethodNotSupported, "unsupported SASL mechanism: "+creds.Mechanism)
	}

	out := o.ProcessBind(conn, creds.Credentials)
	return &BindResult{
		OperationResult: OperationResult{
			ResultCode:        ldap.ResultCode(out.Kind.ResultCode()),
			DiagnosticMessage: out.Diagnostic,
		},
		ServerSASLCreds: out.ServerCredentials,
	}
}

// handleBind parses a bind request, runs the bind handler and encodes the
// response.
func (c *Connection) handleBind(msg *ldap.Message) *ber.Packet {
	start := time.Now()

	req, err := ldap.ParseBindRequest(msg.Operation)
	if err != nil {
		c.logger.Warn("bind request parse error",
			"error", err.Error(),
			"message_id", msg.MessageID)
		c.resetBind()
		resp := &ldap.BindResponse{LDAPResult: ldap.LDAPResult{
			ResultCode:        ldap.ResultProtocolError,
			DiagnosticMessage: "invalid bind request",
		}}
		return resp.Packet()
	}

	mechanism := ""
	if req.SASLCredentials != nil {
		mechanism = req.SASLCredentials.Mechanism
	}
	c.logger.Debug("bind request",
		"dn", req.Name,
		"version", req.Version,
		"auth_method", req.AuthMethod.String(),
		"mechanism", mechanism,
		"message_id", msg.MessageID)

	result := c.handler().HandleBind(c, req)

	switch result.ResultCode {
	case ldap.ResultSuccess:
		c.logger.Info("bind successful",
			"dn", c.BindDN(),
			"auth_method", req.AuthMethod.String(),
			"duration_ms", time.Since(start).Milliseconds())
	case ldap.ResultSaslBindInProgress:
		c.logger.Debug("bind in progress",
			"mechanism", mechanism,
			"duration_ms", time.Since(start).Milliseconds())
	default:
		c.logger.Warn("bind failed",
			"dn", req.Name,
			"auth_method", req.AuthMethod.String(),
			"result_code", result.ResultCode.String(),
			"error", result.DiagnosticMessage,
			"duration_ms", time.Since(start).Milliseconds())
	}

	resp := &ldap.BindResponse{
		LDAPResult: ldap.LDAPResult{
			ResultCode:        result.ResultCode,
			MatchedDN:         result.MatchedDN,
			DiagnosticMessage: result.DiagnosticMessage,
		},
		ServerSASLCreds: result.ServerSASLCreds,
	}
	return resp.Packet()
}

func bindResult(code ldap.ResultCode, diagnostic string) *BindResult {
	return &BindResult{OperationResult: OperationResult{
		ResultCode:        code,
		DiagnosticMessage: diagnostic,
	}}
}

func isCredentialError(err error) bool {
	return errors.Is(err, directory.ErrInvalidCredentials) ||
		errors.Is(err, directory.ErrNoPassword) ||
		errors.Is(err, directory.ErrAccountDisabled) ||
		errors.Is(err, directory.ErrEntryNotFound)
}

func simpleResultLabel(code ldap.ResultCode) string {
	switch code {
	case ldap.ResultSuccess:
		return metrics.ResultSuccess
	case ldap.ResultInvalidCredentials:
		return metrics.ResultInvalidCredentials
	default:
		return metrics.ResultOther
	}
}
