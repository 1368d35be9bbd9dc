package server

import (
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/KilimcininKorOglu/obamem/internal/ldap"
)

// WhoAmIHandler implements the Who Am I extended operation (RFC 4532).
// The response value is "dn:<bindDN>" for bound connections and empty for
// anonymous ones.
func WhoAmIHandler(conn *Connection, _ *ldap.ExtendedRequest) *ExtendedResult {
	authzID := ""
	if bindDN := conn.BindDN(); bindDN != "" {
		authzID = "dn:" + bindDN
	}
	return &ExtendedResult{
		OperationResult: OperationResult{ResultCode: ldap.ResultSuccess},
		Value:           []byte(authzID),
	}
}

// handleExtended parses an extended request and dispatches it by OID.
func (c *Connection) handleExtended(msg *ldap.Message) *ber.Packet {
	start := time.Now()

	req, err := ldap.ParseExtendedRequest(msg.Operation)
	if err != nil {
		c.logger.Warn("extended request parse error",
			"error", err.Error(),
			"message_id", msg.MessageID)
		resp := &ldap.ExtendedResponse{LDAPResult: ldap.LDAPResult{
			ResultCode:        ldap.ResultProtocolError,
			DiagnosticMessage: "invalid extended request",
		}}
		return resp.Packet()
	}

	result := c.handler().HandleExtended(c, req)

	c.logger.Debug("extended operation",
		"oid", req.Name,
		"result_code", result.ResultCode.String(),
		"duration_ms", time.Since(start).Milliseconds())

	resp := &ldap.ExtendedResponse{
		LDAPResult: ldap.LDAPResult{
			ResultCode:        result.ResultCode,
			MatchedDN:         result.MatchedDN,
			DiagnosticMessage: result.DiagnosticMessage,
		},
		Name:  result.Name,
		Value: result.Value,
	}
	return resp.Packet()
}
