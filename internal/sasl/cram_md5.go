package sasl

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// CRAMMD5 is the mechanism name of RFC 2195 challenge-response authentication.
const CRAMMD5 = "CRAM-MD5"

type cramState int

const (
	cramInitial cramState = iota
	cramChallenged
	cramComplete
	cramFailed
)

type cramMD5Server struct {
	serverName string
	handler    CallbackHandler

	state     cramState
	challenge []byte
	authzID   string
	disposed  bool
}

// NewCRAMMD5 creates a CRAM-MD5 server engine. The client must start the
// exchange with an empty response; the engine answers with a challenge of
// the form <random.timestamp@serverName>.
func NewCRAMMD5(_, serverName string, handler CallbackHandler) (Engine, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}
	return &cramMD5Server{serverName: serverName, handler: handler}, nil
}

func (s *cramMD5Server) Mechanism() string { return CRAMMD5 }

func (s *cramMD5Server) Evaluate(response []byte) ([]byte, error) {
	if s.disposed {
		return nil, ErrDisposed
	}

	switch s.state {
	case cramInitial:
		if len(response) != 0 {
			s.state = cramFailed
			return nil, fmt.Errorf("%w: %s does not accept an initial response", ErrUnexpectedResponse, CRAMMD5)
		}
		challenge, err := s.newChallenge()
		if err != nil {
			s.state = cramFailed
			return nil, err
		}
		s.challenge = challenge
		s.state = cramChallenged
		out := make([]byte, len(challenge))
		copy(out, challenge)
		return out, nil

	case cramChallenged:
		// Whatever happens, this is the last round.
		s.state = cramFailed
		if err := s.verify(response); err != nil {
			return nil, err
		}
		s.state = cramComplete
		return nil, nil

	default:
		return nil, ErrExchangeComplete
	}
}

func (s *cramMD5Server) newChallenge() ([]byte, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("sasl: generate challenge: %w", err)
	}
	return fmt.Appendf(nil, "<%d.%d@%s>", binary.BigEndian.Uint64(buf[:]), time.Now().UnixNano(), s.serverName), nil
}

// verify checks "username SP digest" against the handler-supplied secret.
func (s *cramMD5Server) verify(response []byte) error {
	resp := string(response)
	sep := strings.LastIndexByte(resp, ' ')
	if sep <= 0 {
		return fmt.Errorf("%w: expected \"username digest\"", ErrMalformedResponse)
	}
	username, digest := resp[:sep], strings.ToLower(resp[sep+1:])
	if len(digest) != 2*md5.Size {
		return fmt.Errorf("%w: digest must be %d hex characters", ErrMalformedResponse, 2*md5.Size)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("%w: digest is not hexadecimal", ErrMalformedResponse)
	}

	name := &NameCallback{Name: username}
	secret := &PasswordCallback{}
	if err := s.handler.Handle(name, secret); err != nil {
		return fmt.Errorf("sasl: %s callback: %w", CRAMMD5, err)
	}
	defer clear(secret.Password)

	mac := hmac.New(md5.New, secret.Password)
	mac.Write(s.challenge)
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) != 1 {
		return ErrAuthenticationFailed
	}

	authz := &AuthorizeCallback{AuthenticationID: username, AuthorizationID: username}
	if err := s.handler.Handle(authz); err != nil {
		return fmt.Errorf("sasl: %s callback: %w", CRAMMD5, err)
	}
	if !authz.Authorized {
		return ErrNotAuthorized
	}

	s.authzID = authz.AuthorizedID
	if s.authzID == "" {
		s.authzID = authz.AuthorizationID
	}
	return nil
}

func (s *cramMD5Server) Complete() bool { return s.state == cramComplete }

func (s *cramMD5Server) AuthorizationID() (string, bool) {
	if s.state != cramComplete || s.disposed {
		return "", false
	}
	return s.authzID, true
}

func (s *cramMD5Server) Dispose() error {
	if s.disposed {
		return nil
	}
	s.disposed = true
	clear(s.challenge)
	s.challenge = nil
	return nil
}
