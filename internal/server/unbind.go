package server

import (
	"github.com/KilimcininKorOglu/obamem/internal/ldap"
)

// handleUnbind processes an unbind request.
// Per RFC 4511 section 4.3, no response is sent. The caller closes the
// connection once this returns.
func (c *Connection) handleUnbind(msg *ldap.Message) {
	c.logger.Debug("unbind request received",
		"message_id", msg.MessageID)

	c.resetBind()
	c.releaseSessions()
}
