package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/qa-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestParseRouteAuthorities(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		table, err := config.ParseRouteAuthorities([]byte(`
[authorities]
"/users" = ["MG"]
"/defects" = []
`))
		require.NoError(t, err)
		require.Equal(t, []string{"MG"}, table["/users"])
		require.Empty(t, table["/defects"])
	})

	t.Run("route without leading slash", func(t *testing.T) {
		_, err := config.ParseRouteAuthorities([]byte(`
[authorities]
"users" = ["MG"]
`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "must start with /")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := config.ParseRouteAuthorities([]byte(`[authorities`))
		require.Error(t, err)
	})
}

func TestLoadRouteAuthorities(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		table, err := config.LoadRouteAuthorities(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		require.Equal(t, config.DefaultRouteAuthorities(), table)
	})

	t.Run("file on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.toml")
		require.NoError(t, os.WriteFile(path, []byte("[authorities]\n\"/projects\" = [\"QA\"]\n"), 0o600))

		table, err := config.LoadRouteAuthorities(path)
		require.NoError(t, err)
		require.Equal(t, map[string][]string{"/projects": {"QA"}}, table)
	})
}

func TestSessionConfigFromEnv(t *testing.T) {
	t.Setenv("TOKEN_LEAD_SECONDS", "60")
	t.Setenv("SETTLE_DELAY_MS", "not-a-number")

	cfg := config.New()
	require.Equal(t, 60*time.Second, cfg.GetTokenLeadTime())
	require.Equal(t, 150*time.Millisecond, cfg.GetSettleDelay())
	require.Equal(t, []string{"accessToken", "access_token"}, cfg.GetAccessTokenCookies())
}

func TestSessionFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLDER", dir)

	cfg := config.New()
	require.Equal(t, filepath.Join(dir, "cookies.json"), cfg.GetCookieFile())
	require.Equal(t, filepath.Join(dir, "credential.json"), cfg.GetMirrorFile())

	t.Setenv("COOKIE_FILE", filepath.Join(dir, "other", "jar.json"))
	require.Equal(t, filepath.Join(dir, "other", "jar.json"), cfg.GetCookieFile())
}

func TestEnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BACKEND_URL", "http://qa.internal/")

	cfg := config.New()
	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "http://qa.internal", cfg.GetBackendURL())
}
