package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/qa-console/credential"
	"github.com/jrsteele09/qa-console/gateway"
	"github.com/jrsteele09/qa-console/session"
	"github.com/rs/zerolog/log"
)

const (
	msgUnreachable  = "The server could not be reached. Please try again."
	msgSignInFailed = "Sign in failed."
	msgSignUpFailed = "Sign up failed."
)

// Client drives the sign-in, sign-up and sign-out forms through the gateway
type Client struct {
	gw      *gateway.Client
	creds   *credential.Cache
	store   *session.Store
	cookies credential.CookieReader

	// UserInfoCookie is read when the sign-in reply carries no user
	UserInfoCookie string
}

func NewClient(gw *gateway.Client, creds *credential.Cache, store *session.Store, cookies credential.CookieReader) *Client {
	if cookies == nil {
		cookies = credential.StaticCookies{}
	}
	return &Client{gw: gw, creds: creds, store: store, cookies: cookies, UserInfoCookie: "userInfo"}
}

// SignIn posts the credentials and establishes the session on success
func (c *Client) SignIn(ctx context.Context, userID, password string) Result {
	env, res, ok := c.post(ctx, PathSignIn, SignInRequest{UserID: userID, Password: password}, msgSignInFailed)
	if !ok {
		return res
	}

	data := env.Data
	if data.UserID == "" {
		if raw, found := c.cookies.Cookie(c.UserInfoCookie); found {
			if fromCookie, err := session.DecodeUserInfo(raw); err == nil {
				data = fromCookie
			}
		}
	}
	if data.UserID == "" {
		return failed(msgSignInFailed)
	}
	if data.Token == "" {
		// the readable cookie set alongside the reply takes over from any stale memory token
		c.creds.Clear()
	}

	c.store.LoginSuccess(data)
	data.Token = ""
	return Result{Status: StatusSuccess, Message: env.Message, User: data}
}

// SignUp registers a new tracker user. It does not sign in.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) Result {
	env, res, ok := c.post(ctx, PathSignUp, req, msgSignUpFailed)
	if !ok {
		return res
	}
	env.Data.Token = ""
	return Result{Status: StatusSuccess, Message: env.Message, User: env.Data}
}

// SignOut asks the backend to end the session and clears local state whatever it answers
func (c *Client) SignOut(ctx context.Context) {
	_, _, ok := c.post(ctx, PathSignOut, nil, "")
	if !ok {
		log.Warn().Msg("backend sign-out failed, clearing local session anyway")
	}
	c.creds.Clear()
	c.store.Clear(session.SignOutManual)
}

func (c *Client) post(ctx context.Context, path string, in any, fallback string) (Envelope[session.UserData], Result, bool) {
	env := Envelope[session.UserData]{}

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			log.Err(err).Str("path", path).Msg("failed to encode request")
			return env, failed(fallback), false
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gw.URL(path), body)
	if err != nil {
		log.Err(err).Str("path", path).Msg("failed to build request")
		return env, failed(fallback), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		log.Err(err).Str("path", path).Msg("request failed")
		return env, failed(msgUnreachable), false
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Err(err).Str("path", path).Int("status", resp.StatusCode).Msg("unreadable reply")
		return env, failed(fallback), false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Status != StatusSuccess {
		msg := env.Message
		if msg == "" {
			msg = fallback
		}
		return env, failed(msg), false
	}
	return env, Result{}, true
}
