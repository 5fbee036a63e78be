// Package session owns the client's belief about who is signed in: the
// in-memory Session, the state machine that moves it between LoggedOut,
// Validating and LoggedIn, and the durable validity record that lets a
// restarted client skip the remote validate call when its cache has lapsed.
package session

import "time"

// Identity is the signed-in user, derived from decoded token claims.
type Identity struct {
	ID   string
	Name string
}

// Session is the client's current identity plus its local cache horizon.
// User is nil when nobody is signed in. ValidUntil is set on login and
// signup only and is zero otherwise.
type Session struct {
	User       *Identity
	ValidUntil time.Time
}

// Authenticated reports whether the session carries a user.
func (s Session) Authenticated() bool {
	return s.User != nil
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// State is a state of the session manager.
type State int

const (
	// Validating is the startup state, before the cached validity has been checked.
	Validating State = iota
	// LoggedOut means no user is signed in.
	LoggedOut
	// LoggedIn means Session.User is set.
	LoggedIn
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case LoggedOut:
		return "logged_out"
	case LoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}
