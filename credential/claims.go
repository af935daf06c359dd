package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/internal/utils"
)

// Claims is the decoded, unverified content of an access token. It drives optimistic
// UI state only; the backend remains the authority on whether a token is valid.
type Claims struct {
	Subject     string    `json:"sub,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	UserName    string    `json:"userNm,omitempty"`
	RoleCode    string    `json:"userSeCd,omitempty"`
	Authorities []string  `json:"authorities,omitempty"`
	ExpiresAt   time.Time `json:"exp,omitempty"`
}

// HasExpiry reports whether the token carried an exp claim
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// DecodeClaims reads the claims of a JWT without verifying its signature
func DecodeClaims(raw string) (Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Claims{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[credential DecodeClaims] %v", err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[credential DecodeClaims] unexpected claims type %T", parsed.Claims)
	}

	claims := Claims{
		Subject:     utils.ClaimString(mc, "sub"),
		UserID:      utils.ClaimString(mc, "userId"),
		UserName:    utils.ClaimString(mc, "userNm"),
		RoleCode:    utils.ClaimString(mc, "userSeCd"),
		Authorities: utils.ClaimStrings(mc, "authorities"),
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[credential DecodeClaims] exp: %v", err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
