package config

import "time"

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendPort() string {
	return asListenAddr(GetEnv(backendPortVar, "8081"))
}

// GetBackendSecret is the HMAC secret used to sign access tokens
func (Backend) GetBackendSecret() string {
	return GetEnv(backendSecretVar, "dev-only-secret-change-me")
}

func (Backend) GetAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (Backend) GetRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (Backend) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetSeedPassword is the password given to the seeded demo users
func (Backend) GetSeedPassword() string {
	return GetEnv(seedPasswordVar, "Qa-console1")
}

// GetSecureCookies marks auth cookies Secure outside development
func (Backend) GetSecureCookies() bool {
	return EnvVars{}.GetEnv() == "PROD"
}
