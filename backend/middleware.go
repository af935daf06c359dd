package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/qa-console/token"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified access token claims
const ContextKeyClaims ContextKey = "claims"

func claimsFrom(ctx context.Context) *token.AccessClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*token.AccessClaims)
	return claims
}

// RequireAuth validates a Bearer access token. With allowCookie set, the readable
// accessToken cookie is accepted when no Authorization header is sent.
func (b *Backend) RequireAuth(allowCookie bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
					writeFailure(w, http.StatusUnauthorized, "Invalid Authorization header format")
					return
				}
				raw = parts[1]
			} else if allowCookie {
				if c, err := r.Cookie(CookieAccessToken); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				writeFailure(w, http.StatusUnauthorized, "Missing access token")
				return
			}

			claims, err := b.issuer.Verify(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected access token")
				writeFailure(w, http.StatusUnauthorized, "Invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAuthority rejects callers holding none of the given authorities
func (b *Backend) RequireAuthority(authorities ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFrom(r.Context())
			if claims == nil {
				writeFailure(w, http.StatusUnauthorized, "Missing access token")
				return
			}

			held := users.MergeAuthorities(claims.RoleCode, claims.Authorities)
			for _, h := range held {
				for _, a := range authorities {
					if h == a {
						next(w, r)
						return
					}
				}
			}
			writeFailure(w, http.StatusForbidden, "Insufficient authority")
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (b *Backend) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("backend request")
	}
}
