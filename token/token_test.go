package token_test

import (
	"testing"
	"time"

	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/token"
	"github.com/jrsteele09/qa-console/token/refresh"
	refreshrepofake "github.com/jrsteele09/qa-console/token/refresh/repofake"
	"github.com/jrsteele09/qa-console/users"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-0123456789"
	testIssuer = "qa-backend"
)

func testUser() *users.User {
	return &users.User{
		ID:          "u1",
		Name:        "Una Tester",
		RoleCode:    users.RoleTester,
		Authorities: []string{"REPORT"},
	}
}

func TestIssuer_CreateAndVerify(t *testing.T) {
	issuer := token.NewIssuer(token.NewHMACSigner(testSecret), testIssuer, 15*time.Minute)

	raw, exp, err := issuer.CreateAccessToken(testUser())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 2*time.Second)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "Una Tester", claims.UserName)
	require.Equal(t, users.RoleTester, claims.RoleCode)
	require.Equal(t, []string{"REPORT"}, claims.Authorities)
	require.NotEmpty(t, claims.ID)
}

func TestIssuer_VerifyRejects(t *testing.T) {
	issuer := token.NewIssuer(token.NewHMACSigner(testSecret), testIssuer, 15*time.Minute)

	t.Run("empty token", func(t *testing.T) {
		_, err := issuer.Verify("  ")
		require.ErrorIs(t, err, qaerrors.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := token.NewIssuer(token.NewHMACSigner("another-secret-xyz"), testIssuer, 15*time.Minute)
		raw, _, err := other.CreateAccessToken(testUser())
		require.NoError(t, err)

		_, err = issuer.Verify(raw)
		require.ErrorIs(t, err, qaerrors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token.NowTimeFunc = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, _, err := issuer.CreateAccessToken(testUser())
		token.NowTimeFunc = time.Now
		require.NoError(t, err)

		_, err = issuer.Verify(raw)
		require.ErrorIs(t, err, qaerrors.ErrTokenExpired)
	})
}

func TestRefreshManager_Rotate(t *testing.T) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, 32, time.Hour)

	first, err := m.Create("u1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	userID, second, err := m.Rotate(first)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.NotEqual(t, first, second)

	t.Run("rotated token cannot be reused", func(t *testing.T) {
		_, _, err := m.Rotate(first)
		require.ErrorIs(t, err, qaerrors.ErrInvalidRefreshToken)
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		m.Revoke(second)
		_, _, err := m.Rotate(second)
		require.ErrorIs(t, err, qaerrors.ErrInvalidRefreshToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		stale, err := m.Create("u2")
		require.NoError(t, err)

		refresh.NowTimeFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { refresh.NowTimeFunc = time.Now }()

		_, _, err = m.Rotate(stale)
		require.ErrorIs(t, err, qaerrors.ErrRefreshTokenExpired)
	})
}
