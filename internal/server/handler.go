package server

import (
	"github.com/KilimcininKorOglu/obamem/internal/ldap"
)

// OperationResult represents the result of an LDAP operation.
type OperationResult struct {
	// ResultCode is the LDAP result code
	ResultCode ldap.ResultCode
	// MatchedDN is the matched DN (for certain error conditions)
	MatchedDN string
	// DiagnosticMessage is an optional diagnostic message
	DiagnosticMessage string
}

// BindResult is the result of a bind operation.
type BindResult struct {
	OperationResult
	// ServerSASLCreds is sent to the client when not nil.
	ServerSASLCreds []byte
}

// ExtendedResult is the result of an extended operation.
type ExtendedResult struct {
	OperationResult
	// Name is the optional response OID.
	Name string
	// Value is the optional response value.
	Value []byte
}

// BindHandler handles bind requests.
type BindHandler func(conn *Connection, req *ldap.BindRequest) *BindResult

// ExtendedHandler handles one extended operation.
type ExtendedHandler func(conn *Connection, req *ldap.ExtendedRequest) *ExtendedResult

// Handler manages operation handlers for the LDAP server.
type Handler struct {
	// bindHandler handles bind requests
	bindHandler BindHandler
	// extended maps request OIDs to their handlers
	extended map[string]ExtendedHandler
}

// NewHandler creates a new Handler with default handlers.
func NewHandler() *Handler {
	return &Handler{
		bindHandler: defaultBindHandler,
		extended:    make(map[string]ExtendedHandler),
	}
}

// SetBindHandler sets the bind handler.
func (h *Handler) SetBindHandler(handler BindHandler) {
	h.bindHandler = handler
}

// SetExtendedHandler registers the handler for an extended operation OID.
func (h *Handler) SetExtendedHandler(oid string, handler ExtendedHandler) {
	h.extended[oid] = handler
}

// HandleBind handles a bind request.
func (h *Handler) HandleBind(conn *Connection, req *ldap.BindRequest) *BindResult {
	if h.bindHandler == nil {
		return &BindResult{OperationResult: OperationResult{
			ResultCode:        ldap.ResultUnwillingToPerform,
			DiagnosticMessage: "bind handler not configured",
		}}
	}
	return h.bindHandler(conn, req)
}

// HandleExtended handles an extended request.
func (h *Handler) HandleExtended(conn *Connection, req *ldap.ExtendedRequest) *ExtendedResult {
	handler, ok := h.extended[req.Name]
	if !ok {
		// RFC 4511 section 4.12: unrecognized names yield protocolError.
		return &ExtendedResult{OperationResult: OperationResult{
			ResultCode:        ldap.ResultProtocolError,
			DiagnosticMessage: "unsupported extended operation: " + req.Name,
		}}
	}
	return handler(conn, req)
}

func defaultBindHandler(_ *Connection, req *ldap.BindRequest) *BindResult {
	// Allow anonymous binds by default
	if req.IsAnonymous() {
		return &BindResult{OperationResult: OperationResult{ResultCode: ldap.ResultSuccess}}
	}
	return &BindResult{OperationResult: OperationResult{
		ResultCode:        ldap.ResultInvalidCredentials,
		DiagnosticMessage: "authentication not configured",
	}}
}
