package credential

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultLeadTime is how long before the exp claim a token already counts as expired,
// leaving room to refresh it.
const DefaultLeadTime = 300 * time.Second

type Options struct {
	// TokenCookies are the readable access token cookie names, in fallback order
	TokenCookies []string
	// ExpiryCookie holds an epoch-millis expiry marker set by the backend
	ExpiryCookie string
	LeadTime     time.Duration
	NowFunc      func() time.Time
}

// Cache owns the current access token. The token lives in memory; only its expiry and
// decoded claims are mirrored.
type Cache struct {
	mu     sync.RWMutex
	token  string
	claims *Claims

	cookies CookieReader
	mirror  Mirror
	opts    Options
}

func NewCache(cookies CookieReader, mirror Mirror, opts Options) *Cache {
	if cookies == nil {
		cookies = StaticCookies{}
	}
	if mirror == nil {
		mirror = NewMemoryMirror()
	}
	if len(opts.TokenCookies) == 0 {
		opts.TokenCookies = []string{"accessToken", "access_token"}
	}
	if opts.ExpiryCookie == "" {
		opts.ExpiryCookie = "tokenExpiry"
	}
	if opts.LeadTime == 0 {
		opts.LeadTime = DefaultLeadTime
	}
	if opts.NowFunc == nil {
		opts.NowFunc = time.Now
	}
	return &Cache{
		cookies: cookies,
		mirror:  mirror,
		opts:    opts,
	}
}

// SetToken stores token in memory and mirrors its claims. A token that cannot be decoded
// is still kept, but nothing is mirrored and the failure is only logged.
func (c *Cache) SetToken(token string) {
	if token == "" {
		c.Clear()
		return
	}

	claims, err := DecodeClaims(token)

	c.mu.Lock()
	c.token = token
	c.claims = nil
	if err == nil {
		c.claims = &claims
	}
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("access token could not be decoded, keeping raw token only")
		return
	}

	rec := Record{Claims: &claims}
	if claims.HasExpiry() {
		rec.ExpiryEpochMillis = claims.ExpiresAt.UnixMilli()
	}
	if err := c.mirror.Save(rec); err != nil {
		log.Err(err).Msg("failed to mirror credential metadata")
	}
}

// Token returns the in-memory token, falling back to the readable cookies in the
// configured order. A cookie hit is cached into memory.
func (c *Cache) Token() (string, bool) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		return token, true
	}

	for _, name := range c.opts.TokenCookies {
		if v, ok := c.cookies.Cookie(name); ok {
			c.SetToken(v)
			return v, true
		}
	}
	return "", false
}

// Claims returns the decoded claims of the current token, if it could be decoded
func (c *Cache) Claims() (Claims, bool) {
	if _, ok := c.Token(); !ok {
		return Claims{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return Claims{}, false
	}
	return *c.claims, true
}

// Clear drops the memory token and the mirror. Cookies the backend protects are left
// alone; removing those is the sign-out endpoint's job.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.token = ""
	c.claims = nil
	c.mu.Unlock()

	if err := c.mirror.Remove(); err != nil {
		log.Err(err).Msg("failed to remove credential mirror")
	}
}

// IsExpired fails closed: no token and no marker, an undecodable token, or a token
// without exp all count as expired.
func (c *Cache) IsExpired() bool {
	now := c.opts.NowFunc()

	token, _ := c.Token()
	c.mu.RLock()
	claims := c.claims
	c.mu.RUnlock()

	if token == "" {
		marker, ok := c.expiryMarker()
		if !ok {
			return true
		}
		return !now.Before(marker)
	}

	if claims == nil || !claims.HasExpiry() {
		return true
	}
	return !now.Before(claims.ExpiresAt.Add(-c.opts.LeadTime))
}

func (c *Cache) expiryMarker() (time.Time, bool) {
	rec, ok, err := c.mirror.Load()
	if err != nil {
		log.Err(err).Msg("failed to read credential mirror")
	}
	if ok && rec.ExpiryEpochMillis > 0 {
		return time.UnixMilli(rec.ExpiryEpochMillis), true
	}

	v, ok := c.cookies.Cookie(c.opts.ExpiryCookie)
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("cookie", c.opts.ExpiryCookie).Msg("expiry marker is not a number")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// OAuth2Token exposes the current token for callers that attach it with
// (*oauth2.Token).SetAuthHeader. It returns nil when there is no token.
func (c *Cache) OAuth2Token() *oauth2.Token {
	token, ok := c.Token()
	if !ok {
		return nil
	}

	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if claims, ok := c.Claims(); ok && claims.HasExpiry() {
		tok.Expiry = claims.ExpiresAt
	}
	return tok
}
