package ldap

import (
	"bytes"
	"io"
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip encodes op in an envelope, reads it back and returns the message.
func roundTrip(t *testing.T, msgID int64, op *ber.Packet) *Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msgID, op))

	msg, err := ReadMessage(&buf)
	require.NoError(t, err)
	return msg
}

func TestReadMessage(t *testing.T) {
	req := &BindRequest{Version: 3, Name: "cn=admin,dc=example,dc=com", SimplePassword: []byte("secret")}
	msg := roundTrip(t, 7, req.Packet())

	assert.Equal(t, int64(7), msg.MessageID)
	assert.Equal(t, OperationType(ApplicationBindRequest), msg.OperationType())
	assert.Equal(t, "Bind Request", msg.OperationType().String())
	assert.Empty(t, msg.Controls)
}

func TestReadMessageWithControls(t *testing.T) {
	envelope := NewMessage(1, (&ExtendedRequest{Name: WhoAmIOID}).Packet())
	controls := ber.Encode(ber.ClassContext, ber.TypeConstructed, ContextTagControls, nil, "Controls")
	control := ber.NewSequence("Control")
	control.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "1.2.840.113556.1.4.319", "Control Type"))
	controls.AppendChild(control)
	envelope.AppendChild(controls)

	msg, err := ReadMessage(bytes.NewReader(envelope.Bytes()))
	require.NoError(t, err)
	assert.Len(t, msg.Controls, 1)
}

func TestReadMessageSizeLimit(t *testing.T) {
	t.Run("oversized message", func(t *testing.T) {
		req := &BindRequest{
			Version:        3,
			Name:           "cn=admin,dc=example,dc=com",
			SimplePassword: bytes.Repeat([]byte("x"), 20*1024*1024),
		}
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, 1, req.Packet()))

		_, err := ReadMessage(&buf)
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("rejected from the header alone", func(t *testing.T) {
		// SEQUENCE with a four-octet length of 32 MB and no body.
		header := []byte{0x30, 0x84, 0x02, 0x00, 0x00, 0x00}
		_, err := ReadMessage(bytes.NewReader(header))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("too many length octets", func(t *testing.T) {
		header := []byte{0x30, 0x85, 0x00, 0x00, 0x00, 0x00, 0x01}
		_, err := ReadMessage(bytes.NewReader(header))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("at the limit", func(t *testing.T) {
		header := []byte{0x30, 0x84, 0x01, 0x00, 0x00, 0x00}
		_, err := ReadMessage(bytes.NewReader(header))
		assert.NotErrorIs(t, err, ErrMessageTooLarge)
		assert.Error(t, err)
	})
}

func TestReadMessageEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty stream", nil, io.EOF},
		{"truncated header", []byte{0x30}, io.ErrUnexpectedEOF},
		{"not a sequence", []byte{0x04, 0x01, 'x'}, ErrInvalidEnvelope},
		{"indefinite length", []byte{0x30, 0x80, 0x00, 0x00}, ErrInvalidEnvelope},
		{"truncated length", []byte{0x30, 0x82, 0x01}, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMessage(bytes.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseMessageErrors(t *testing.T) {
	t.Run("not a sequence", func(t *testing.T) {
		_, err := ParseMessage(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "x", ""))
		assert.ErrorIs(t, err, ErrInvalidEnvelope)
	})

	t.Run("missing operation", func(t *testing.T) {
		envelope := ber.NewSequence("LDAP Message")
		envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(1), "Message ID"))
		_, err := ParseMessage(envelope)
		assert.ErrorIs(t, err, ErrInvalidEnvelope)
	})

	t.Run("negative message id", func(t *testing.T) {
		_, err := ParseMessage(NewMessage(-1, (&BindRequest{Version: 3}).Packet()))
		assert.ErrorIs(t, err, ErrInvalidMessageID)
	})

	t.Run("universal operation", func(t *testing.T) {
		_, err := ParseMessage(NewMessage(1, ber.NewSequence("not an operation")))
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})
}

func TestParseBindRequestSimple(t *testing.T) {
	msg := roundTrip(t, 1, (&BindRequest{Version: 3, Name: "uid=alice,dc=example,dc=com", SimplePassword: []byte("pw")}).Packet())

	req, err := ParseBindRequest(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, 3, req.Version)
	assert.Equal(t, "uid=alice,dc=example,dc=com", req.Name)
	assert.Equal(t, AuthMethodSimple, req.AuthMethod)
	assert.Equal(t, []byte("pw"), req.SimplePassword)
	assert.False(t, req.IsAnonymous())
}

func TestParseBindRequestAnonymous(t *testing.T) {
	msg := roundTrip(t, 1, (&BindRequest{Version: 3}).Packet())

	req, err := ParseBindRequest(msg.Operation)
	require.NoError(t, err)
	assert.True(t, req.IsAnonymous())
	assert.Empty(t, req.SimplePassword)
}

func TestParseBindRequestSASL(t *testing.T) {
	tests := []struct {
		name        string
		credentials []byte
		want        []byte
	}{
		{"absent credentials", nil, nil},
		{"empty credentials", []byte{}, nil},
		{"credentials", []byte("test.user 0123456789abcdef0123456789abcdef"), []byte("test.user 0123456789abcdef0123456789abcdef")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := &BindRequest{
				Version:         3,
				AuthMethod:      AuthMethodSASL,
				SASLCredentials: &SASLCredentials{Mechanism: "CRAM-MD5", Credentials: tt.credentials},
			}
			msg := roundTrip(t, 2, sent.Packet())

			req, err := ParseBindRequest(msg.Operation)
			require.NoError(t, err)
			assert.Equal(t, AuthMethodSASL, req.AuthMethod)
			require.NotNil(t, req.SASLCredentials)
			assert.Equal(t, "CRAM-MD5", req.SASLCredentials.Mechanism)
			assert.Equal(t, tt.want, req.SASLCredentials.Credentials)
		})
	}
}

func TestParseBindRequestErrors(t *testing.T) {
	build := func(version int64, auth *ber.Packet) *ber.Packet {
		op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationBindRequest, nil, "Bind Request")
		op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, version, "Version"))
		op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Name"))
		op.AppendChild(auth)
		return roundTrip(t, 1, op).Operation
	}
	simple := func() *ber.Packet {
		return ber.NewString(ber.ClassContext, ber.TypePrimitive, AuthSimple, "", "Password")
	}

	t.Run("version", func(t *testing.T) {
		_, err := ParseBindRequest(build(0, simple()))
		assert.ErrorIs(t, err, ErrInvalidBindVersion)
		_, err = ParseBindRequest(build(128, simple()))
		assert.ErrorIs(t, err, ErrInvalidBindVersion)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := ParseBindRequest(build(3, ber.NewString(ber.ClassContext, ber.TypePrimitive, 1, "", "Kerberos")))
		assert.ErrorIs(t, err, ErrUnknownAuthMethod)
	})

	t.Run("primitive sasl", func(t *testing.T) {
		_, err := ParseBindRequest(build(3, ber.NewString(ber.ClassContext, ber.TypePrimitive, AuthSASL, "CRAM-MD5", "SASL")))
		assert.ErrorIs(t, err, ErrInvalidSASLCredentials)
	})

	t.Run("empty mechanism", func(t *testing.T) {
		auth := ber.Encode(ber.ClassContext, ber.TypeConstructed, AuthSASL, nil, "SASL")
		auth.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Mechanism"))
		_, err := ParseBindRequest(build(3, auth))
		assert.ErrorIs(t, err, ErrInvalidSASLCredentials)
	})

	t.Run("wrong operation", func(t *testing.T) {
		_, err := ParseBindRequest((&ExtendedRequest{Name: WhoAmIOID}).Packet())
		assert.ErrorIs(t, err, ErrUnexpectedOperation)
	})
}

func TestBindResponseEncoding(t *testing.T) {
	challenge := []byte("<1896.697170952@ds.example.com>")
	resp := &BindResponse{
		LDAPResult:      LDAPResult{ResultCode: ResultSaslBindInProgress},
		ServerSASLCreds: challenge,
	}
	packet := resp.Packet()

	// serverSaslCreds is the last element, context-specific primitive [7].
	encoded := packet.Bytes()
	tail := append([]byte{0x87, byte(len(challenge))}, challenge...)
	assert.True(t, bytes.HasSuffix(encoded, tail), "serverSaslCreds must be encoded as 0x87")

	msg := roundTrip(t, 3, packet)
	parsed, err := ParseBindResponse(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, ResultSaslBindInProgress, parsed.ResultCode)
	assert.Equal(t, challenge, parsed.ServerSASLCreds)
}

func TestBindResponseWithoutCredentials(t *testing.T) {
	resp := &BindResponse{LDAPResult: LDAPResult{
		ResultCode:        ResultInvalidCredentials,
		DiagnosticMessage: "Unable to process the provided SASL credentials",
	}}
	msg := roundTrip(t, 4, resp.Packet())

	parsed, err := ParseBindResponse(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, ResultInvalidCredentials, parsed.ResultCode)
	assert.Equal(t, "Unable to process the provided SASL credentials", parsed.DiagnosticMessage)
	assert.Empty(t, parsed.MatchedDN)
	assert.Nil(t, parsed.ServerSASLCreds)
}

func TestExtendedRoundTrip(t *testing.T) {
	msg := roundTrip(t, 5, (&ExtendedRequest{Name: WhoAmIOID}).Packet())
	req, err := ParseExtendedRequest(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, WhoAmIOID, req.Name)
	assert.Nil(t, req.Value)

	resp := &ExtendedResponse{
		LDAPResult: LDAPResult{ResultCode: ResultSuccess},
		Value:      []byte("dn:uid=alice,dc=example,dc=com"),
	}
	msg = roundTrip(t, 5, resp.Packet())
	parsed, err := ParseExtendedResponse(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, parsed.ResultCode)
	assert.Empty(t, parsed.Name)
	assert.Equal(t, []byte("dn:uid=alice,dc=example,dc=com"), parsed.Value)
}

func TestParseExtendedRequestMissingName(t *testing.T) {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationExtendedRequest, nil, "Extended Request")
	_, err := ParseExtendedRequest(op)
	assert.Error(t, err)
}

func TestNewResponse(t *testing.T) {
	tag, ok := ResponseTag(ApplicationSearchRequest)
	require.True(t, ok)
	assert.Equal(t, ApplicationSearchResultDone, tag)

	tag, ok = ResponseTag(ApplicationAddRequest)
	require.True(t, ok)
	assert.Equal(t, ApplicationAddRequest+1, tag)

	_, ok = ResponseTag(ApplicationUnbindRequest)
	assert.False(t, ok)
	_, ok = ResponseTag(ApplicationAbandonRequest)
	assert.False(t, ok)

	op := NewResponse(tag, &LDAPResult{ResultCode: ResultUnwillingToPerform, DiagnosticMessage: "not supported"})
	msg := roundTrip(t, 9, op)
	assert.Equal(t, OperationType(ApplicationAddRequest+1), msg.OperationType())

	result, err := parseResult(msg.Operation)
	require.NoError(t, err)
	assert.Equal(t, ResultUnwillingToPerform, result.ResultCode)
	assert.Equal(t, "not supported", result.DiagnosticMessage)
}

func TestResultCodeString(t *testing.T) {
	assert.Equal(t, "Success", ResultSuccess.String())
	assert.Equal(t, "Invalid Credentials", ResultInvalidCredentials.String())
	assert.Equal(t, "Unknown(999)", ResultCode(999).String())
}
