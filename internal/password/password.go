package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password scheme prefixes as defined in RFC 3112 and common LDAP implementations.
const (
	// SchemeSHA256 is the plain SHA-256 scheme prefix.
	SchemeSHA256 = "{SHA256}"
	// SchemeSSHA256 is the salted SHA-256 scheme prefix.
	SchemeSSHA256 = "{SSHA256}"
	// SchemeSHA512 is the plain SHA-512 scheme prefix.
	SchemeSHA512 = "{SHA512}"
	// SchemeSSHA512 is the salted SHA-512 scheme prefix.
	SchemeSSHA512 = "{SSHA512}"
	// SchemeBcrypt is the bcrypt scheme prefix.
	SchemeBcrypt = "{BCRYPT}"
	// SchemeCleartext marks a value stored without hashing.
	SchemeCleartext = "{CLEARTEXT}"
)

// Attribute is the standard LDAP attribute name for user passwords.
const Attribute = "userPassword"

const saltLength = 16

// Password verification errors.
var (
	// ErrInvalidFormat is returned when the stored password format is invalid.
	ErrInvalidFormat = errors.New("password: invalid password format")
	// ErrUnsupportedScheme is returned when the password scheme is not supported.
	ErrUnsupportedScheme = errors.New("password: unsupported password scheme")
	// ErrMismatch is returned when the password does not match.
	ErrMismatch = errors.New("password: password mismatch")
	// ErrHashed is returned by Cleartext when the stored value is hashed.
	ErrHashed = errors.New("password: stored password is hashed")
)

// splitScheme separates a {SCHEME} prefix from the stored value. Values
// without a prefix report an empty scheme.
func splitScheme(stored string) (scheme, value string) {
	if !strings.HasPrefix(stored, "{") {
		return "", stored
	}
	end := strings.Index(stored, "}")
	if end == -1 {
		return "", stored
	}
	return strings.ToUpper(stored[:end+1]), stored[end+1:]
}

// Verify checks a plaintext password against a stored value of the form
// {SCHEME}encoded. A value without a scheme prefix is compared as cleartext.
func Verify(plaintext, stored string) error {
	if stored == "" {
		return ErrInvalidFormat
	}

	scheme, encoded := splitScheme(stored)
	switch scheme {
	case "", SchemeCleartext:
		return compare([]byte(plaintext), []byte(encoded))
	case SchemeSHA256:
		sum := sha256.Sum256([]byte(plaintext))
		return verifyDigest(sum[:], encoded)
	case SchemeSHA512:
		sum := sha512.Sum512([]byte(plaintext))
		return verifyDigest(sum[:], encoded)
	case SchemeSSHA256:
		return verifySalted(plaintext, encoded, sha256.Size, func(p, salt []byte) []byte {
			h := sha256.New()
			h.Write(p)
			h.Write(salt)
			return h.Sum(nil)
		})
	case SchemeSSHA512:
		return verifySalted(plaintext, encoded, sha512.Size, func(p, salt []byte) []byte {
			h := sha512.New()
			h.Write(p)
			h.Write(salt)
			return h.Sum(nil)
		})
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrMismatch
		default:
			return ErrInvalidFormat
		}
	default:
		return ErrUnsupportedScheme
	}
}

// Hash creates a stored password value using the given scheme.
func Hash(plaintext, scheme string) (string, error) {
	scheme = strings.ToUpper(scheme)

	switch scheme {
	case SchemeCleartext:
		return SchemeCleartext + plaintext, nil
	case SchemeSHA256:
		sum := sha256.Sum256([]byte(plaintext))
		return SchemeSHA256 + base64.StdEncoding.EncodeToString(sum[:]), nil
	case SchemeSHA512:
		sum := sha512.Sum512([]byte(plaintext))
		return SchemeSHA512 + base64.StdEncoding.EncodeToString(sum[:]), nil
	case SchemeSSHA256, SchemeSSHA512:
		salt := make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return "", err
		}
		var h []byte
		if scheme == SchemeSSHA256 {
			d := sha256.New()
			d.Write([]byte(plaintext))
			d.Write(salt)
			h = d.Sum(nil)
		} else {
			d := sha512.New()
			d.Write([]byte(plaintext))
			d.Write(salt)
			h = d.Sum(nil)
		}
		return scheme + base64.StdEncoding.EncodeToString(append(h, salt...)), nil
	case SchemeBcrypt:
		h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return SchemeBcrypt + string(h), nil
	default:
		return "", ErrUnsupportedScheme
	}
}

// Cleartext returns the recoverable password held in a stored value.
// Challenge-response mechanisms need the shared secret itself, so any
// hashed scheme yields ErrHashed.
func Cleartext(stored string) (string, error) {
	scheme, value := splitScheme(stored)
	switch scheme {
	case "", SchemeCleartext:
		return value, nil
	case SchemeSHA256, SchemeSSHA256, SchemeSHA512, SchemeSSHA512, SchemeBcrypt:
		return "", ErrHashed
	default:
		return "", ErrUnsupportedScheme
	}
}

func compare(a, b []byte) error {
	if subtle.ConstantTimeCompare(a, b) == 1 {
		return nil
	}
	return ErrMismatch
}

func verifyDigest(computed []byte, encoded string) error {
	stored, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(stored) != len(computed) {
		return ErrInvalidFormat
	}
	return compare(computed, stored)
}

func verifySalted(plaintext, encoded string, size int, digest func(p, salt []byte) []byte) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) <= size {
		return ErrInvalidFormat
	}
	return compare(digest([]byte(plaintext), data[size:]), data[:size])
}
