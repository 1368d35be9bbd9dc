package sasl

import gosasl "github.com/emersion/go-sasl"

// LOGIN is the name of the obsolete username/password prompt mechanism
// described in draft-murchison-sasl-login.
const LOGIN = "LOGIN"

type loginState int

const (
	loginNotStarted loginState = iota
	loginWaitingUsername
	loginWaitingPassword
	loginDone
)

// loginServer implements gosasl.Server for LOGIN, which go-sasl no longer
// ships.
type loginServer struct {
	state        loginState
	username     string
	authenticate func(username, password string) error
}

func (a *loginServer) Next(response []byte) (challenge []byte, done bool, err error) {
	switch a.state {
	case loginNotStarted:
		// RFC 4422 section 3: an initial response carries the username.
		if response == nil {
			challenge = []byte("Username:")
			break
		}
		a.state++
		fallthrough
	case loginWaitingUsername:
		a.username = string(response)
		challenge = []byte("Password:")
	case loginWaitingPassword:
		err = a.authenticate(a.username, string(response))
		done = true
	default:
		err = gosasl.ErrUnexpectedClientResponse
	}
	a.state++
	return
}

// NewLogin creates a LOGIN server engine. The client is prompted for the
// username and then the password, one round each.
func NewLogin(_, _ string, handler CallbackHandler) (Engine, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}
	e := &serverEngine{mech: LOGIN, handler: handler}
	e.server = &loginServer{authenticate: func(username, password string) error {
		return e.authenticate("", username, password)
	}}
	return e, nil
}
