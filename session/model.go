package session

import (
	"time"

	"github.com/jrsteele09/qa-console/users"
)

// SignOutReason records why a session was cleared. A manual sign-out suppresses the
// automatic session check on the next start; an auth failure does not.
type SignOutReason int

const (
	SignOutManual SignOutReason = iota
	SignOutAuthFailure
)

func (r SignOutReason) String() string {
	switch r {
	case SignOutManual:
		return "manual"
	case SignOutAuthFailure:
		return "auth_failure"
	}
	return "unknown"
}

// User is the authenticated-user projection held by the store
type User struct {
	UserID      string
	UserName    string
	RoleCode    users.RoleCode
	Authorities []string
}

// Held returns every authority the user holds, the role code included
func (u User) Held() []string {
	return users.MergeAuthorities(u.RoleCode, u.Authorities)
}

// State is a point-in-time copy of the session.
//
//	Unknown:       Initialized=false
//	Anonymous:     Initialized=true, SignedIn=false
//	Authenticated: Initialized=true, SignedIn=true
type State struct {
	SignedIn          bool
	Initialized       bool
	LoggedOutManually bool
	// ForcedOut is set when the last sign-out came from a request whose authorization could
	// not be recovered, until the next sign-in or backend check
	ForcedOut bool
	User      User
	// ChangedAt is when SignedIn or Initialized last flipped
	ChangedAt time.Time
}

// UserData is what the backend returns for an authenticated user: the sign-in and probe
// payloads and the userInfo cookie all share this shape.
type UserData struct {
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName,omitempty"`
	RoleCode    users.RoleCode `json:"userSeCd"`
	Authorities []string       `json:"authorities"`
	Token       string         `json:"accessToken,omitempty"`
}

func (d UserData) project() User {
	authorities := make([]string, len(d.Authorities))
	copy(authorities, d.Authorities)
	return User{
		UserID:      d.UserID,
		UserName:    d.UserName,
		RoleCode:    d.RoleCode,
		Authorities: authorities,
	}
}
