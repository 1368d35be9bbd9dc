package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
		stored    string
		wantErr   error
	}{
		{"cleartext match", "secret123", "{CLEARTEXT}secret123", nil},
		{"cleartext mismatch", "wrongpassword", "{CLEARTEXT}secret123", ErrMismatch},
		{"empty stored password", "anypassword", "", ErrInvalidFormat},
		{"no scheme prefix match", "plaintext", "plaintext", nil},
		{"no scheme prefix mismatch", "wrong", "plaintext", ErrMismatch},
		{"unsupported scheme", "password", "{MD5}somebase64hash", ErrUnsupportedScheme},
		{"case insensitive scheme", "secret123", "{cleartext}secret123", nil},
		{"unterminated brace is cleartext", "{abc", "{abc", nil},
		{"bad base64", "password", "{SHA256}!!!", ErrInvalidFormat},
		{"short salted value", "password", "{SSHA256}AAAA", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, Verify(tt.plaintext, tt.stored))
		})
	}
}

func TestHashRoundTrip(t *testing.T) {
	schemes := []string{SchemeCleartext, SchemeSHA256, SchemeSSHA256, SchemeSHA512, SchemeSSHA512, SchemeBcrypt}

	for _, scheme := range schemes {
		t.Run(scheme, func(t *testing.T) {
			stored, err := Hash("testpassword", scheme)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(stored, scheme))

			assert.NoError(t, Verify("testpassword", stored))
			assert.ErrorIs(t, Verify("wrongpassword", stored), ErrMismatch)
		})
	}
}

func TestHashSaltedValuesDiffer(t *testing.T) {
	a, err := Hash("testpassword", SchemeSSHA512)
	require.NoError(t, err)
	b, err := Hash("testpassword", SchemeSSHA512)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashUnsupportedScheme(t *testing.T) {
	_, err := Hash("password", "{MD5}")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestCleartext(t *testing.T) {
	hashed, err := Hash("password", SchemeSSHA256)
	require.NoError(t, err)

	tests := []struct {
		name    string
		stored  string
		want    string
		wantErr error
	}{
		{"plain value", "password", "password", nil},
		{"cleartext scheme", "{CLEARTEXT}password", "password", nil},
		{"lower case scheme", "{cleartext}password", "password", nil},
		{"hashed", hashed, "", ErrHashed},
		{"bcrypt", "{BCRYPT}$2a$10$abcdefghijklmnopqrstuv", "", ErrHashed},
		{"unknown scheme", "{MD5}abc", "", ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cleartext(tt.stored)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
