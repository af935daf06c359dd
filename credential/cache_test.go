package credential_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/qa-console/credential"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return raw
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	return signedToken(t, jwt.MapClaims{
		"sub":         "u1",
		"userNm":      "Una",
		"userSeCd":    "QA",
		"authorities": []string{"REPORT"},
		"exp":         exp.Unix(),
	})
}

func newCache(cookies credential.CookieReader, mirror credential.Mirror) *credential.Cache {
	return credential.NewCache(cookies, mirror, credential.Options{
		NowFunc: func() time.Time { return fixedNow },
	})
}

func TestCache_SetToken(t *testing.T) {
	t.Run("decodes claims and mirrors them", func(t *testing.T) {
		mirror := credential.NewMemoryMirror()
		c := newCache(nil, mirror)
		exp := fixedNow.Add(time.Hour)

		c.SetToken(tokenExpiringAt(t, exp))

		claims, ok := c.Claims()
		require.True(t, ok)
		require.Equal(t, "u1", claims.UserID)
		require.Equal(t, "QA", claims.RoleCode)
		require.Equal(t, []string{"REPORT"}, claims.Authorities)

		rec, ok, err := mirror.Load()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, exp.UnixMilli(), rec.ExpiryEpochMillis)
		require.Equal(t, "u1", rec.Claims.UserID)
	})

	t.Run("undecodable token keeps raw value only", func(t *testing.T) {
		mirror := credential.NewMemoryMirror()
		c := newCache(nil, mirror)

		require.NotPanics(t, func() { c.SetToken("abc") })

		token, ok := c.Token()
		require.True(t, ok)
		require.Equal(t, "abc", token)

		_, ok = c.Claims()
		require.False(t, ok)

		_, ok, err := mirror.Load()
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestCache_TokenFallbackOrder(t *testing.T) {
	t.Run("primary cookie wins", func(t *testing.T) {
		c := newCache(credential.StaticCookies{"accessToken": "primary", "access_token": "secondary"}, nil)
		token, ok := c.Token()
		require.True(t, ok)
		require.Equal(t, "primary", token)
	})

	t.Run("secondary cookie used when primary missing", func(t *testing.T) {
		c := newCache(credential.StaticCookies{"access_token": "secondary"}, nil)
		token, ok := c.Token()
		require.True(t, ok)
		require.Equal(t, "secondary", token)
	})

	t.Run("fallback read is cached into memory", func(t *testing.T) {
		cookies := credential.StaticCookies{"accessToken": "from-cookie"}
		c := newCache(cookies, nil)
		_, _ = c.Token()

		delete(cookies, "accessToken")
		token, ok := c.Token()
		require.True(t, ok)
		require.Equal(t, "from-cookie", token)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		c := newCache(nil, nil)
		_, ok := c.Token()
		require.False(t, ok)
	})

	t.Run("reads a real cookie jar", func(t *testing.T) {
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		u, _ := url.Parse("http://qa.example.com/")
		jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "jar-token"}})

		c := newCache(credential.JarCookies{Jar: jar, URL: u}, nil)
		token, ok := c.Token()
		require.True(t, ok)
		require.Equal(t, "jar-token", token)
	})
}

func TestCache_Clear(t *testing.T) {
	mirror := credential.NewMemoryMirror()
	c := newCache(nil, mirror)
	c.SetToken(tokenExpiringAt(t, fixedNow.Add(time.Hour)))

	c.Clear()

	_, ok := c.Token()
	require.False(t, ok)
	_, ok, err := mirror.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, c.IsExpired())
}

func TestCache_IsExpired(t *testing.T) {
	lead := credential.DefaultLeadTime

	cases := []struct {
		name    string
		exp     time.Time
		expired bool
	}{
		{"well before lead window", fixedNow.Add(lead + time.Minute), false},
		{"one second before lead window", fixedNow.Add(lead + time.Second), false},
		{"exactly at lead boundary", fixedNow.Add(lead), true},
		{"inside lead window", fixedNow.Add(lead - time.Second), true},
		{"already past exp", fixedNow.Add(-time.Minute), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCache(nil, nil)
			c.SetToken(tokenExpiringAt(t, tc.exp))
			require.Equal(t, tc.expired, c.IsExpired())
		})
	}

	t.Run("undecodable token fails closed", func(t *testing.T) {
		c := newCache(nil, nil)
		c.SetToken("not.a.jwt")
		require.True(t, c.IsExpired())
	})

	t.Run("token without exp fails closed", func(t *testing.T) {
		c := newCache(nil, nil)
		c.SetToken(signedToken(t, jwt.MapClaims{"sub": "u1"}))
		require.True(t, c.IsExpired())
	})

	t.Run("no token uses mirrored marker", func(t *testing.T) {
		mirror := credential.NewMemoryMirror()
		require.NoError(t, mirror.Save(credential.Record{ExpiryEpochMillis: fixedNow.Add(time.Minute).UnixMilli()}))
		c := newCache(nil, mirror)
		require.False(t, c.IsExpired())

		require.NoError(t, mirror.Save(credential.Record{ExpiryEpochMillis: fixedNow.UnixMilli()}))
		require.True(t, c.IsExpired())
	})

	t.Run("no token uses expiry cookie", func(t *testing.T) {
		future := strconv.FormatInt(fixedNow.Add(time.Minute).UnixMilli(), 10)
		c := newCache(credential.StaticCookies{"tokenExpiry": future}, nil)
		require.False(t, c.IsExpired())

		c = newCache(credential.StaticCookies{"tokenExpiry": "garbage"}, nil)
		require.True(t, c.IsExpired())
	})

	t.Run("no token and no marker", func(t *testing.T) {
		require.True(t, newCache(nil, nil).IsExpired())
	})
}

func TestCache_OAuth2Token(t *testing.T) {
	c := newCache(nil, nil)
	require.Nil(t, c.OAuth2Token())

	exp := fixedNow.Add(time.Hour)
	raw := tokenExpiringAt(t, exp)
	c.SetToken(raw)

	tok := c.OAuth2Token()
	require.NotNil(t, tok)
	require.Equal(t, raw, tok.AccessToken)
	require.Equal(t, exp.Unix(), tok.Expiry.Unix())

	req, _ := http.NewRequest(http.MethodGet, "http://qa.example.com/api/defects", nil)
	tok.SetAuthHeader(req)
	require.Equal(t, "Bearer "+raw, req.Header.Get("Authorization"))
}

func TestFileMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential.json")
	m := credential.NewFileMirror(path)

	_, ok, err := m.Load()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Save(credential.Record{ExpiryEpochMillis: 42, Claims: &credential.Claims{UserID: "u1"}}))

	rec, ok, err := credential.NewFileMirror(path).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(42), rec.ExpiryEpochMillis)
	require.Equal(t, "u1", rec.Claims.UserID)

	require.NoError(t, m.Remove())
	require.NoError(t, m.Remove())
	_, ok, err = m.Load()
	require.NoError(t, err)
	require.False(t, ok)
}
