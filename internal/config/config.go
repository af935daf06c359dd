package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	RoutesConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBackendURL() string
	GetEnv() string
	GetLogLevel() string
}

type SessionConfig interface {
	GetAccessTokenCookies() []string
	GetUserInfoCookie() string
	GetTokenExpiryCookie() string
	GetTokenLeadTime() time.Duration
	GetSettleDelay() time.Duration
	GetMirrorFile() string
	GetCookieFile() string
}

type RoutesConfig interface {
	GetRoutesFile() string
	GetRedirectParam() string
}

// BackendConfig configures the reference backend started by `qaconsole backend`.
type BackendConfig interface {
	GetBackendPort() string
	GetBackendSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetSeedPassword() string
	GetSecureCookies() bool
}

type mainConfig struct {
	EnvVars
	Session
	Routes
}

func New() Config {
	return mainConfig{}
}

func NewBackend() BackendConfig {
	return Backend{}
}
