package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/internal/utils"
	"github.com/jrsteele09/qa-console/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// AccessClaims is the verified content of an access token
type AccessClaims struct {
	UserID      string
	UserName    string
	RoleCode    users.RoleCode
	Authorities []string
	ExpiresAt   time.Time
	ID          string
}

// Issuer creates and verifies access tokens
type Issuer struct {
	signer Signer
	issuer string
	expiry time.Duration
}

func NewIssuer(signer Signer, issuer string, expiry time.Duration) *Issuer {
	return &Issuer{
		signer: signer,
		issuer: issuer,
		expiry: expiry,
	}
}

// CreateAccessToken signs an access token for the user and returns it with its expiry
func (i *Issuer) CreateAccessToken(user *users.User) (string, time.Time, error) {
	now := NowTimeFunc()
	exp := now.Add(i.expiry)

	claims := jwt.MapClaims{
		"iss":         i.issuer,              // The issuer of the token
		"sub":         user.ID,               // The user the token was issued to
		"userId":      user.ID,               // Mirrors sub for clients that read userId
		"userNm":      user.Name,             // Display name
		"userSeCd":    string(user.RoleCode), // Role code
		"authorities": user.Authorities,      // Extra authority tags
		"iat":         now.Unix(),            // Issued At
		"exp":         exp.Unix(),            // Expiry
		"jti":         uuid.New().String(),   // Unique token ID
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Issuer CreateAccessToken] %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a raw access token
func (i *Issuer) Verify(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, qaerrors.ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.signer.Method().Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(NowTimeFunc),
	)

	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, i.signer.Keyfunc)
	if err != nil {
		if qaerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, qaerrors.Wrapf(qaerrors.ErrTokenExpired, "[Issuer Verify] %v", err)
		}
		return nil, qaerrors.Wrapf(qaerrors.ErrInvalidToken, "[Issuer Verify] %v", err)
	}
	if !token.Valid {
		return nil, qaerrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, qaerrors.ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, qaerrors.Wrapf(qaerrors.ErrInvalidToken, "[Issuer Verify] missing exp")
	}

	return &AccessClaims{
		UserID:      utils.ClaimString(claims, "sub"),
		UserName:    utils.ClaimString(claims, "userNm"),
		RoleCode:    users.RoleCode(utils.ClaimString(claims, "userSeCd")),
		Authorities: utils.ClaimStrings(claims, "authorities"),
		ExpiresAt:   exp.Time,
		ID:          utils.ClaimString(claims, "jti"),
	}, nil
}
