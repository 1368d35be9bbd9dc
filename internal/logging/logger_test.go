package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(99).String())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(""))
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Writer: &buf})

	l.WithRequestID("req-1").Info("bind successful", "dn", "uid=test.user,dc=example,dc=com")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bind successful", entry["@message"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "uid=test.user,dc=example,dc=com", entry["dn"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "text", Writer: &buf})

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "key=value")
}

func TestLoggerWithFieldsAndNamed(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Writer: &buf})

	l.Named("saslbind").WithFields("mechanism", "CRAM-MD5").Error("bind failed")

	out := buf.String()
	assert.True(t, strings.Contains(out, "obamem.saslbind"), out)
	assert.Contains(t, out, "mechanism=CRAM-MD5")
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("discarded")
	assert.NotNil(t, l.WithRequestID("x"))
	assert.NotNil(t, l.WithFields("a", 1))
	assert.NotNil(t, FromHCLog(nil))
}

func TestGenerateRequestID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateRequestID()
		require.NotEmpty(t, id)
		require.False(t, ids[id], "duplicate request id %s", id)
		ids[id] = true
	}
}
