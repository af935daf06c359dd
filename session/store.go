package session

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/qa-console/credential"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Prober asks the backend who the ambient session belongs to
type Prober interface {
	Me(ctx context.Context) (UserData, error)
}

type Options struct {
	UserInfoCookie string
	Metrics        *metrics.Metrics
	NowFunc        func() time.Time
}

// Store holds the signed-in state of the console's single operator. All methods are
// safe for concurrent use; concurrent writers resolve last-write-wins.
type Store struct {
	mu      sync.RWMutex
	state   State
	changed chan struct{}

	creds   *credential.Cache
	cookies credential.CookieReader
	prober  Prober
	opts    Options
}

func NewStore(creds *credential.Cache, cookies credential.CookieReader, prober Prober, opts Options) *Store {
	if cookies == nil {
		cookies = credential.StaticCookies{}
	}
	if opts.UserInfoCookie == "" {
		opts.UserInfoCookie = "userInfo"
	}
	if opts.NowFunc == nil {
		opts.NowFunc = time.Now
	}
	return &Store{
		changed: make(chan struct{}),
		creds:   creds,
		cookies: cookies,
		prober:  prober,
		opts:    opts,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.User.Authorities = append([]string(nil), s.state.User.Authorities...)
	return st
}

// Changed returns a channel that is closed on the next state mutation
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// LoginSuccess marks the operator as signed in and forwards any token to the credential cache
func (s *Store) LoginSuccess(data UserData) {
	if data.Token != "" && s.creds != nil {
		s.creds.SetToken(data.Token)
	}

	s.update(func(st *State) {
		st.SignedIn = true
		st.Initialized = true
		st.LoggedOutManually = false
		st.ForcedOut = false
		st.User = data.project()
	})
	log.Info().Str("user_id", data.UserID).Str("role", string(data.RoleCode)).Msg("session established")
}

// Clear signs the operator out locally. Credentials are cleared by the caller.
func (s *Store) Clear(reason SignOutReason) {
	s.update(func(st *State) {
		st.SignedIn = false
		st.Initialized = true
		st.LoggedOutManually = reason == SignOutManual
		st.ForcedOut = reason == SignOutAuthFailure
		st.User = User{}
	})
	log.Info().Stringer("reason", reason).Msg("session cleared")
}

// CheckSession establishes a session from the readable userInfo and token cookies when
// both are present, and otherwise asks the backend once. The cookie path is an optimistic
// hint: requests made with a forged cookie are still rejected by the backend.
func (s *Store) CheckSession(ctx context.Context) bool {
	if data, ok := s.fromCookies(); ok {
		s.LoginSuccess(data)
		s.count("cookie", true)
		return true
	}
	return s.probe(ctx)
}

// ForceCheckSession always asks the backend, ignoring the cookie mirror. The console calls it
// when the session may have changed out of band, such as on the sign-in page after a forced
// sign-out.
func (s *Store) ForceCheckSession(ctx context.Context) bool {
	return s.probe(ctx)
}

func (s *Store) probe(ctx context.Context) bool {
	if s.prober == nil {
		s.markAnonymous()
		s.count("probe", false)
		return false
	}

	data, err := s.prober.Me(ctx)
	if err == nil && data.UserID == "" {
		err = qaerrors.ErrNoSession
	}
	if err != nil {
		log.Debug().Err(err).Msg("session probe found no session")
		s.markAnonymous()
		s.count("probe", false)
		return false
	}

	s.LoginSuccess(data)
	s.count("probe", true)
	return true
}

func (s *Store) fromCookies() (UserData, bool) {
	raw, ok := s.cookies.Cookie(s.opts.UserInfoCookie)
	if !ok {
		return UserData{}, false
	}
	if s.creds == nil {
		return UserData{}, false
	}
	token, ok := s.creds.Token()
	if !ok {
		return UserData{}, false
	}

	data, err := DecodeUserInfo(raw)
	if err != nil {
		log.Warn().Err(err).Str("cookie", s.opts.UserInfoCookie).Msg("ignoring unreadable user info cookie")
		return UserData{}, false
	}
	data.Token = token
	return data, true
}

func (s *Store) markAnonymous() {
	s.update(func(st *State) {
		st.SignedIn = false
		st.Initialized = true
		st.ForcedOut = false
		st.User = User{}
	})
}

func (s *Store) update(mutate func(st *State)) {
	s.mu.Lock()
	before := s.state
	mutate(&s.state)
	if before.SignedIn != s.state.SignedIn || before.Initialized != s.state.Initialized {
		s.state.ChangedAt = s.opts.NowFunc()
	}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *Store) count(source string, ok bool) {
	if s.opts.Metrics == nil {
		return
	}
	result := "none"
	if ok {
		result = "established"
	}
	s.opts.Metrics.SessionChecks.WithLabelValues(source, result).Inc()
}

// DecodeUserInfo parses the URL-encoded JSON userInfo cookie
func DecodeUserInfo(raw string) (UserData, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return UserData{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[session DecodeUserInfo] %v", err)
	}

	data := UserData{}
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return UserData{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[session DecodeUserInfo] %v", err)
	}
	if data.UserID == "" {
		return UserData{}, qaerrors.Wrapf(qaerrors.ErrDecode, "[session DecodeUserInfo] missing userId")
	}
	data.Token = ""
	return data, nil
}

// EncodeUserInfo is the inverse of DecodeUserInfo; the backend uses it to set the cookie
func EncodeUserInfo(data UserData) (string, error) {
	data.Token = ""
	if data.Authorities == nil {
		data.Authorities = []string{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}
