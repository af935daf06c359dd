package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/qa-console/credential"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/session"
	cookiejar "github.com/juju/persistent-cookiejar"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// Jar is the cookie jar shared by the console's backend clients. A jar opened on a file
// writes itself back after every change, so a restarted console still holds the backend's
// readable session cookies and the httpOnly refresh cookie.
type Jar struct {
	*cookiejar.Jar
	filename string
}

// NewJar opens the jar kept in filename; an empty filename keeps cookies in memory only
func NewJar(filename string) (*Jar, error) {
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o700); err != nil {
			return nil, fmt.Errorf("[authapi NewJar] %w", err)
		}
	}
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
		Filename:         filename,
		NoPersist:        filename == "",
	})
	if err != nil {
		return nil, fmt.Errorf("[authapi NewJar] %s: %w", filename, err)
	}
	return &Jar{Jar: jar, filename: filename}, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.Jar.SetCookies(u, cookies)
	if j.filename == "" {
		return
	}
	if err := j.Save(); err != nil {
		log.Warn().Err(err).Str("file", j.filename).Msg("failed to save cookie jar")
	}
}

var _ http.CookieJar = (*Jar)(nil)

// Prober asks the backend who owns the ambient cookies. It talks to the backend
// directly, so a failed probe can never trigger the gateway's sign-in redirect.
type Prober struct {
	http *http.Client
	base string
}

func NewProber(httpClient *http.Client, baseURL string) *Prober {
	return &Prober{http: httpClient, base: strings.TrimSuffix(baseURL, "/")}
}

func (p *Prober) Me(ctx context.Context) (session.UserData, error) {
	env, status, err := call[session.UserData](ctx, p.http, http.MethodGet, p.base+PathMe)
	if err != nil {
		return session.UserData{}, err
	}
	if status != http.StatusOK || env.Status != StatusSuccess || env.Data.UserID == "" {
		return session.UserData{}, qaerrors.Wrapf(qaerrors.ErrNoSession, "[Prober Me] status %d", status)
	}
	return env.Data, nil
}

var _ session.Prober = (*Prober)(nil)

// Refresher exchanges the httpOnly refresh cookie for a new access token. The token is
// taken from the reply body, or from the readable token cookie the backend sets with it.
type Refresher struct {
	http         *http.Client
	base         string
	cookies      credential.CookieReader
	tokenCookies []string
}

func NewRefresher(httpClient *http.Client, baseURL string, cookies credential.CookieReader, tokenCookies []string) *Refresher {
	if cookies == nil {
		cookies = credential.StaticCookies{}
	}
	if len(tokenCookies) == 0 {
		tokenCookies = []string{"accessToken", "access_token"}
	}
	return &Refresher{
		http:         httpClient,
		base:         strings.TrimSuffix(baseURL, "/"),
		cookies:      cookies,
		tokenCookies: tokenCookies,
	}
}

func (r *Refresher) Refresh(ctx context.Context) (session.UserData, error) {
	env, status, err := call[session.UserData](ctx, r.http, http.MethodPost, r.base+PathRefresh)
	if err != nil {
		return session.UserData{}, err
	}
	if status != http.StatusOK || env.Status != StatusSuccess {
		return session.UserData{}, qaerrors.Wrapf(qaerrors.ErrRefreshFailed, "[Refresher Refresh] status %d: %s", status, env.Message)
	}

	data := env.Data
	if data.Token == "" {
		for _, name := range r.tokenCookies {
			if v, ok := r.cookies.Cookie(name); ok {
				data.Token = v
				break
			}
		}
	}
	if data.Token == "" {
		return session.UserData{}, qaerrors.Wrapf(qaerrors.ErrRefreshFailed, "[Refresher Refresh] no token in reply")
	}
	return data, nil
}

func call[T any](ctx context.Context, client *http.Client, method, url string) (Envelope[T], int, error) {
	env := Envelope[T]{}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return env, 0, qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[authapi call] %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return env, 0, qaerrors.Wrapf(qaerrors.ErrTransport, "[authapi call] %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode == http.StatusOK {
		return env, resp.StatusCode, qaerrors.Wrapf(qaerrors.ErrDecode, "[authapi call] %s %s", method, url)
	}
	return env, resp.StatusCode, nil
}
