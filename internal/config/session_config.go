package config

import "time"

const (
	tokenLeadVar   = "TOKEN_LEAD_SECONDS"
	settleDelayVar = "SETTLE_DELAY_MS"
	mirrorFileVar  = "MIRROR_FILE"
	cookieFileVar  = "COOKIE_FILE"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetAccessTokenCookies returns the client-readable access token cookie names in fallback order
func (Session) GetAccessTokenCookies() []string {
	return []string{"accessToken", "access_token"}
}

func (Session) GetUserInfoCookie() string {
	return "userInfo"
}

func (Session) GetTokenExpiryCookie() string {
	return "tokenExpiry"
}

// GetTokenLeadTime is how long before the exp claim a token is already treated as expired
func (Session) GetTokenLeadTime() time.Duration {
	return time.Duration(GetEnvInt(tokenLeadVar, 300)) * time.Second
}

func (Session) GetSettleDelay() time.Duration {
	return time.Duration(GetEnvInt(settleDelayVar, 150)) * time.Millisecond
}

// GetMirrorFile is where the credential expiry/claims mirror is kept between restarts.
// An empty value keeps the mirror in memory only.
func (Session) GetMirrorFile() string {
	return GetEnv(mirrorFileVar, dataPath("credential.json"))
}

// GetCookieFile is where the backend's cookies are kept so a restarted console can restore
// its session
func (Session) GetCookieFile() string {
	return GetEnv(cookieFileVar, dataPath("cookies.json"))
}
