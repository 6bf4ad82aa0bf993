package models

import "time"

// Tokens is the credential pair issued by /token/.
// A pair is only usable when both halves are present.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both tokens are present.
func (t Tokens) Complete() bool {
	return t.Access != "" && t.Refresh != ""
}

// SessionState is a phase of the client session lifecycle.
type SessionState int

const (
	// StateAnonymous: no access token.
	StateAnonymous SessionState = iota
	// StateAuthenticating: a login exchange is in flight from the anonymous state.
	StateAuthenticating
	// StateAuthenticated: tokens persisted, profile fetch not yet issued.
	StateAuthenticated
	// StateProfileLoading: profile fetch in flight.
	StateProfileLoading
	// StateReady: authenticated with a profile.
	StateReady
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateProfileLoading:
		return "profile_loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Authenticated reports whether the state implies a stored access token.
func (s SessionState) Authenticated() bool {
	return s == StateAuthenticated || s == StateProfileLoading || s == StateReady
}

// SessionSnapshot is an immutable view of the session handed to observers.
// User is nil whenever Authenticated is false.
type SessionSnapshot struct {
	State         SessionState
	Authenticated bool
	User          *Profile
	TokenExpiry   time.Time // zero when unknown
	LastError     error     // set when the last transition was caused by a failure
}
