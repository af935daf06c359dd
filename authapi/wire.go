package authapi

import "github.com/jrsteele09/qa-console/session"

// Backend endpoints
const (
	PathSignIn  = "/auth/sign-in"
	PathSignUp  = "/auth/sign-up"
	PathSignOut = "/auth/sign-out"
	PathMe      = "/auth/me"
	PathRefresh = "/auth/refresh"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Envelope is the backend's reply shape
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type SignInRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleCode string `json:"userSeCd"`
}

// Result is what the sign-in and sign-up forms render. Business failures are reported
// here, never as errors.
type Result struct {
	Status  string
	Message string
	User    session.UserData
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func failed(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}
