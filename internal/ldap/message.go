package ldap

import (
	"bytes"
	"io"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// MaxMessageSize is the maximum length of an LDAPMessage body (16 MB)
const MaxMessageSize = 16 * 1024 * 1024

// envelopeTag is the identifier octet of a universal constructed SEQUENCE.
const envelopeTag = byte(ber.ClassUniversal) | byte(ber.TypeConstructed) | byte(ber.TagSequence)

// Message is a decoded LDAPMessage envelope.
// Per RFC 4511 Section 4.1.1:
//
//	LDAPMessage ::= SEQUENCE {
//	    messageID       MessageID,
//	    protocolOp      CHOICE { ... },
//	    controls        [0] Controls OPTIONAL
//	}
type Message struct {
	// MessageID correlates requests and responses
	MessageID int64
	// Operation is the protocolOp packet, an APPLICATION-tagged element
	Operation *ber.Packet
	// Controls holds the request controls, if any
	Controls []*ber.Packet
}

// OperationType returns the APPLICATION tag of the protocol operation.
func (m *Message) OperationType() OperationType {
	return OperationType(m.Operation.Tag)
}

// ReadMessage reads and decodes one LDAPMessage from r. The envelope length
// is checked against MaxMessageSize before any of the body is read.
func ReadMessage(r io.Reader) (*Message, error) {
	header, length, err := readEnvelopeHeader(r)
	if err != nil {
		return nil, err
	}

	body := io.LimitReader(r, int64(length))
	packet, err := ber.ReadPacket(io.MultiReader(bytes.NewReader(header), body))
	if err != nil {
		return nil, err
	}
	return ParseMessage(packet)
}

// readEnvelopeHeader reads the identifier and length octets of an
// LDAPMessage and returns them with the decoded body length.
func readEnvelopeHeader(r io.Reader) ([]byte, int, error) {
	header := make([]byte, 2, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, 0, err
	}
	if header[0] != envelopeTag {
		return nil, 0, ErrInvalidEnvelope
	}

	// Short form
	if header[1] < 0x80 {
		return header, int(header[1]), nil
	}

	// Long form; RFC 4511 section 5.1 forbids the indefinite form.
	n := int(header[1] & 0x7f)
	if n == 0 {
		return nil, 0, ErrInvalidEnvelope
	}
	if n > 4 {
		return nil, 0, ErrMessageTooLarge
	}
	header = header[:2+n]
	if _, err := io.ReadFull(r, header[2:]); err != nil {
		return nil, 0, io.ErrUnexpectedEOF
	}

	length := 0
	for _, b := range header[2:] {
		length = length<<8 | int(b)
	}
	if length > MaxMessageSize {
		return nil, 0, ErrMessageTooLarge
	}
	return header, length, nil
}

// ParseMessage decodes an LDAPMessage envelope.
func ParseMessage(packet *ber.Packet) (*Message, error) {
	if packet == nil || packet.ClassType != ber.ClassUniversal ||
		packet.TagType != ber.TypeConstructed || packet.Tag != ber.TagSequence {
		return nil, ErrInvalidEnvelope
	}
	if len(packet.Children) < 2 {
		return nil, NewParseError("LDAPMessage", "expected messageID and protocolOp", ErrInvalidEnvelope)
	}

	msgID, ok := packet.Children[0].Value.(int64)
	if !ok || msgID < 0 || msgID > MaxMessageID {
		return nil, ErrInvalidMessageID
	}

	op := packet.Children[1]
	if op.ClassType != ber.ClassApplication {
		return nil, NewParseError("protocolOp", "must have APPLICATION tag class", ErrInvalidOperation)
	}

	msg := &Message{MessageID: msgID, Operation: op}
	if len(packet.Children) > 2 {
		ctrl := packet.Children[2]
		if ctrl.ClassType == ber.ClassContext && ctrl.Tag == ContextTagControls {
			msg.Controls = ctrl.Children
		}
	}
	return msg, nil
}

// NewMessage wraps op in an LDAPMessage envelope.
func NewMessage(msgID int64, op *ber.Packet) *ber.Packet {
	envelope := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, msgID, "Message ID"))
	envelope.AppendChild(op)
	return envelope
}

// WriteMessage encodes op in an envelope and writes it to w.
func WriteMessage(w io.Writer, msgID int64, op *ber.Packet) error {
	_, err := w.Write(NewMessage(msgID, op).Bytes())
	return err
}
