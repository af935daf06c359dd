package backend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/qa-console/authapi"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/session"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

// SignInHandler checks the credentials and starts a session
func (b *Backend) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := authapi.SignInRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID == "" || req.Password == "" {
			writeFailure(w, http.StatusBadRequest, "User ID and password are required")
			return
		}

		// Don't reveal whether the user exists
		user, err := b.users.GetByID(req.UserID)
		if err != nil || !user.CheckPassword(req.Password) {
			writeFailure(w, http.StatusUnauthorized, "Invalid user ID or password")
			return
		}
		if user.Blocked {
			writeFailure(w, http.StatusForbidden, "Account is blocked. Contact your manager.")
			return
		}

		data, ok := b.startSession(w, user)
		if !ok {
			return
		}
		if err := b.users.SetLastLogin(user.ID); err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("failed to record last login")
		}
		writeSuccess(w, "Signed in", data)
	}
}

// SignUpHandler registers a new user. It does not start a session.
func (b *Backend) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := authapi.SignUpRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" || strings.TrimSpace(req.UserName) == "" {
			writeFailure(w, http.StatusBadRequest, "User ID and name are required")
			return
		}
		role := users.RoleCode(req.RoleCode)
		if role == "" {
			role = users.RoleTester
		}
		if !role.Valid() {
			writeFailure(w, http.StatusBadRequest, "Unknown role code")
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := b.users.GetByID(req.UserID); err == nil {
			writeFailure(w, http.StatusConflict, "User ID is already taken")
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			log.Err(err).Msg("failed to hash password")
			writeFailure(w, http.StatusInternalServerError, "Sign up failed")
			return
		}
		user := &users.User{
			ID:           req.UserID,
			Name:         strings.TrimSpace(req.UserName),
			Email:        strings.TrimSpace(req.Email),
			PasswordHash: hash,
			RoleCode:     role,
			Authorities:  []string{},
		}
		if err := b.users.Upsert(user); err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("failed to store user")
			writeFailure(w, http.StatusInternalServerError, "Sign up failed")
			return
		}

		log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user signed up")
		writeSuccess(w, "Account created. You can sign in now.", userData(user))
	}
}

// SignOutHandler revokes the refresh token and expires every auth cookie. It always succeeds.
func (b *Backend) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieRefreshToken); err == nil && c.Value != "" {
			b.refresh.Revoke(c.Value)
		}
		b.clearAuthCookies(w)
		writeSuccess[any](w, "Signed out", nil)
	}
}

// MeHandler reports the user the presented access token belongs to
func (b *Backend) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		user, err := b.users.GetByID(claims.UserID)
		if err != nil || user.Blocked {
			writeFailure(w, http.StatusUnauthorized, "No session")
			return
		}
		writeSuccess(w, "", userData(user))
	}
}

// RefreshHandler rotates the refresh cookie and issues a new access token
func (b *Backend) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieRefreshToken)
		if err != nil || c.Value == "" {
			writeFailure(w, http.StatusUnauthorized, "Missing refresh token")
			return
		}

		userID, next, err := b.refresh.Rotate(c.Value)
		if err != nil {
			log.Debug().Err(err).Msg("refresh rejected")
			b.clearAuthCookies(w)
			writeFailure(w, http.StatusUnauthorized, "Refresh token is invalid or expired")
			return
		}

		user, err := b.users.GetByID(userID)
		if err != nil || user.Blocked {
			b.refresh.Revoke(next)
			b.clearAuthCookies(w)
			writeFailure(w, http.StatusUnauthorized, "No session")
			return
		}

		data, ok := b.issue(w, user, next)
		if !ok {
			return
		}
		writeSuccess(w, "Token refreshed", data)
	}
}

func (b *Backend) startSession(w http.ResponseWriter, user *users.User) (session.UserData, bool) {
	refreshToken, err := b.refresh.Create(user.ID)
	if err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("failed to create refresh token")
		writeFailure(w, http.StatusInternalServerError, "Sign in failed")
		return session.UserData{}, false
	}
	return b.issue(w, user, refreshToken)
}

func (b *Backend) issue(w http.ResponseWriter, user *users.User, refreshToken string) (session.UserData, bool) {
	accessToken, exp, err := b.issuer.CreateAccessToken(user)
	if err != nil {
		log.Err(qaerrors.Wrapf(err, "[Backend issue] %s", user.ID)).Msg("failed to sign access token")
		writeFailure(w, http.StatusInternalServerError, "Sign in failed")
		return session.UserData{}, false
	}

	data := userData(user)
	data.Token = accessToken
	if err := b.setAuthCookies(w, data, exp, refreshToken); err != nil {
		log.Err(err).Msg("failed to encode user info cookie")
		writeFailure(w, http.StatusInternalServerError, "Sign in failed")
		return session.UserData{}, false
	}
	return data, true
}
