package backend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/session"
	"github.com/jrsteele09/qa-console/users"
)

const (
	CookieAccessToken  = "accessToken"
	CookieUserInfo     = "userInfo"
	CookieTokenExpiry  = "tokenExpiry"
	CookieRefreshToken = "refreshToken"
)

// setAuthCookies sets the readable token, user and expiry cookies plus the httpOnly refresh cookie
func (b *Backend) setAuthCookies(w http.ResponseWriter, data session.UserData, accessExpiry time.Time, refreshToken string) error {
	userInfo, err := session.EncodeUserInfo(data)
	if err != nil {
		return err
	}
	secure := b.config.GetSecureCookies()

	readable := func(name, value string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Expires:  accessExpiry,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		}
	}
	http.SetCookie(w, readable(CookieAccessToken, data.Token))
	http.SetCookie(w, readable(CookieUserInfo, userInfo))
	http.SetCookie(w, readable(CookieTokenExpiry, strconv.FormatInt(accessExpiry.UnixMilli(), 10)))

	http.SetCookie(w, &http.Cookie{
		Name:     CookieRefreshToken,
		Value:    refreshToken,
		Path:     "/auth",
		MaxAge:   int(b.config.GetRefreshTokenExpiry().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (b *Backend) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{CookieAccessToken, CookieUserInfo, CookieTokenExpiry} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	http.SetCookie(w, &http.Cookie{Name: CookieRefreshToken, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})
}

func userData(u *users.User) session.UserData {
	authorities := u.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return session.UserData{
		UserID:      u.ID,
		UserName:    u.Name,
		RoleCode:    u.RoleCode,
		Authorities: authorities,
	}
}

func writeJSON[T any](w http.ResponseWriter, status int, env authapi.Envelope[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess[T any](w http.ResponseWriter, message string, data T) {
	writeJSON(w, http.StatusOK, authapi.Envelope[T]{Status: authapi.StatusSuccess, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, authapi.Envelope[any]{Status: authapi.StatusFailed, Message: message})
}
