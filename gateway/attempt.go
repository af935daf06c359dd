package gateway

import (
	"fmt"
	"net/http"
)

// State is where a single request is in its authorization lifecycle
type State int

const (
	Sent State = iota
	Unauthorized
	Refreshing
	Retried
	Succeeded
	Failed
	// Expired is where a request starts when the cached token is already inside the refresh lead time
	Expired
)

func (s State) String() string {
	switch s {
	case Sent:
		return "sent"
	case Unauthorized:
		return "unauthorized"
	case Refreshing:
		return "refreshing"
	case Retried:
		return "retried"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Expired:
		return "expired"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Retried has no edge back to Refreshing, so a request is refreshed and retried at most once.
var transitions = map[State][]State{
	Sent:         {Unauthorized, Succeeded, Failed},
	Unauthorized: {Refreshing},
	Refreshing:   {Retried, Failed},
	Retried:      {Succeeded, Failed},
	Expired:      {Refreshing},
}

// CanTransition reports whether a request may move from one state to the next
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsAuthFailure reports whether status belongs to the authorization-failure class
func IsAuthFailure(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, 419, 440:
		return true
	}
	return false
}

type attempt struct {
	id    string
	state State
	trail []State
}

func newAttempt(id string, start State) *attempt {
	return &attempt{id: id, state: start, trail: []State{start}}
}

func (a *attempt) to(next State) {
	if !CanTransition(a.state, next) {
		panic(fmt.Sprintf("gateway: illegal transition %s -> %s", a.state, next))
	}
	a.state = next
	a.trail = append(a.trail, next)
}
