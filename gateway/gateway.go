package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/qa-console/credential"
	"github.com/jrsteele09/qa-console/guard"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/internal/metrics"
	"github.com/jrsteele09/qa-console/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const RequestIDHeader = "X-Request-ID"

// Refresher exchanges the ambient refresh cookie for a new access token. The returned
// UserData carries the token and, when the backend sends it, the user.
type Refresher interface {
	Refresh(ctx context.Context) (session.UserData, error)
}

// Navigator moves the operator to another console page
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

type Options struct {
	// SignInPath is the backend sign-in endpoint; its responses are passed through untouched
	SignInPath string
	Routes     guard.Routes
	Metrics    *metrics.Metrics
}

// Client sends backend requests with the current bearer token and recovers from an
// expired token by refreshing once and retrying once.
type Client struct {
	http      *http.Client
	base      *url.URL
	creds     *credential.Cache
	store     *session.Store
	refresher Refresher
	nav       Navigator
	opts      Options

	refreshes singleflight.Group
}

func New(httpClient *http.Client, baseURL string, creds *credential.Cache, store *session.Store, refresher Refresher, nav Navigator, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[gateway New] backend url %q: %v", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[gateway New] backend url %q is not absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.SignInPath == "" {
		opts.SignInPath = "/auth/sign-in"
	}
	if opts.Routes.SignIn == "" {
		opts.Routes = guard.DefaultRoutes()
	}
	return &Client{
		http:      httpClient,
		base:      base,
		creds:     creds,
		store:     store,
		refresher: refresher,
		nav:       nav,
		opts:      opts,
	}, nil
}

// URL resolves a backend path against the base URL
func (c *Client) URL(path string) string {
	return c.base.String() + "/" + strings.TrimPrefix(path, "/")
}

// Do sends req and walks it through Sent, Unauthorized, Refreshing, Retried and finally
// Succeeded or Failed. A request whose token is already inside the lead time starts in
// Expired and refreshes before the first send. A request that ends in Failed because
// authorization could not be recovered clears the session and returns ErrSessionExpired.
// A caller whose context ends during the refresh gets the context error and keeps the session.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	signIn := c.isSignIn(req)
	var (
		a    *attempt
		resp *http.Response
	)
	if !signIn && c.expiresSoon() {
		a = newAttempt(uuid.NewString(), Expired)
	} else {
		a = newAttempt(uuid.NewString(), Sent)
		resp, err = c.send(ctx, req, body, a.id, !signIn)
	}
	defer recordTrail(ctx, a)

	for {
		switch a.state {
		case Sent:
			if err != nil {
				a.to(Failed)
				c.outcome(a)
				return nil, qaerrors.Wrapf(qaerrors.ErrTransport, "[Client Do] %s %s: %v", req.Method, req.URL.Path, err)
			}
			if signIn || !IsAuthFailure(resp.StatusCode) {
				a.to(Succeeded)
				c.outcome(a)
				return resp, nil
			}
			a.to(Unauthorized)

		case Expired:
			log.Debug().Str("request_id", a.id).Str("path", req.URL.Path).Msg("token inside lead time, refreshing before send")
			a.to(Refreshing)

		case Unauthorized:
			log.Debug().Str("request_id", a.id).Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("request unauthorized, refreshing")
			drain(resp)
			a.to(Refreshing)

		case Refreshing:
			if rerr := c.refresh(ctx); rerr != nil {
				a.to(Failed)
				c.outcome(a)
				if ctx.Err() != nil {
					return nil, fmt.Errorf("[Client Do] %s %s abandoned during refresh: %w", req.Method, req.URL.Path, ctx.Err())
				}
				return nil, c.giveUp(ctx, rerr)
			}
			if c.opts.Metrics != nil {
				c.opts.Metrics.Retries.Inc()
			}
			resp, err = c.send(ctx, req, body, a.id, true)
			a.to(Retried)

		case Retried:
			if err != nil {
				a.to(Failed)
				c.outcome(a)
				return nil, qaerrors.Wrapf(qaerrors.ErrTransport, "[Client Do] retry %s %s: %v", req.Method, req.URL.Path, err)
			}
			if IsAuthFailure(resp.StatusCode) {
				drain(resp)
				a.to(Failed)
				c.outcome(a)
				return nil, c.giveUp(ctx, qaerrors.Wrapf(qaerrors.ErrUnauthorized, "retry answered %d", resp.StatusCode))
			}
			a.to(Succeeded)
			c.outcome(a)
			return resp, nil

		default:
			return nil, fmt.Errorf("[Client Do] request %s left in state %s", a.id, a.state)
		}
	}
}

// expiresSoon reports whether the cached token carries an expiry that is already inside the
// lead time. Tokens the console cannot decode are sent as they are and left to the backend.
func (c *Client) expiresSoon() bool {
	if c.creds == nil {
		return false
	}
	claims, ok := c.creds.Claims()
	if !ok || !claims.HasExpiry() {
		return false
	}
	return c.creds.IsExpired()
}

func (c *Client) send(ctx context.Context, orig *http.Request, body []byte, requestID string, withAuth bool) (*http.Response, error) {
	req := orig.Clone(ctx)
	c.resolve(req)
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	req.Header.Del("Authorization")
	if withAuth && c.creds != nil {
		if tok := c.creds.OAuth2Token(); tok != nil {
			tok.SetAuthHeader(req)
		}
	}
	req.Header.Set(RequestIDHeader, requestID)
	return c.http.Do(req)
}

// refresh runs one refresh for all requests that need one at the same time
func (c *Client) refresh(ctx context.Context) error {
	if c.refresher == nil {
		return qaerrors.Wrapf(qaerrors.ErrRefreshFailed, "[Client refresh] no refresher")
	}

	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		data, err := c.refresher.Refresh(context.WithoutCancel(ctx))
		if err == nil && data.Token == "" {
			err = qaerrors.ErrUnexpectedReply
		}
		if err != nil {
			c.countRefresh("failed")
			return nil, qaerrors.Wrapf(qaerrors.ErrRefreshFailed, "[Client refresh] %v", err)
		}

		if data.UserID != "" && c.store != nil {
			c.store.LoginSuccess(data)
		} else if c.creds != nil {
			c.creds.SetToken(data.Token)
		}
		c.countRefresh("ok")
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// giveUp abandons the session and sends the operator to sign in, unless they are already
// somewhere in the sign-in flow
func (c *Client) giveUp(ctx context.Context, cause error) error {
	log.Warn().Err(cause).Msg("authorization could not be recovered, signing out")

	if c.creds != nil {
		c.creds.Clear()
	}
	if c.store != nil {
		c.store.Clear(session.SignOutAuthFailure)
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.ForcedSignOuts.Inc()
	}

	current := CurrentPath(ctx)
	if c.nav != nil && !c.opts.Routes.IsAuthRoute(current) {
		c.nav.Navigate(ctx, c.opts.Routes.SignInRedirect(current))
	}
	return fmt.Errorf("[Client Do] %w: %w", qaerrors.ErrSessionExpired, cause)
}

func (c *Client) resolve(req *http.Request) {
	if req.URL.IsAbs() {
		return
	}
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(req.URL.Path, "/")
	u.RawQuery = req.URL.RawQuery
	req.URL = &u
	req.Host = u.Host
}

func (c *Client) isSignIn(req *http.Request) bool {
	signIn := strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(c.opts.SignInPath, "/")
	return req.URL.Path == signIn || req.URL.Path == c.opts.SignInPath
}

func (c *Client) outcome(a *attempt) {
	log.Debug().Str("request_id", a.id).Stringer("state", a.state).Int("steps", len(a.trail)).Msg("request finished")
	if c.opts.Metrics == nil {
		return
	}
	label := a.state.String()
	if a.state == Succeeded && len(a.trail) > 2 {
		label = "retried"
	}
	c.opts.Metrics.Requests.WithLabelValues(label).Inc()
}

func (c *Client) countRefresh(result string) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.Refreshes.WithLabelValues(result).Inc()
	}
}

// StatusError is returned by DoJSON for responses outside the 2xx range
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend answered %d", e.StatusCode)
	}
	return fmt.Sprintf("backend answered %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return qaerrors.ErrNotFound
	}
	return qaerrors.ErrUnexpectedReply
}

// DoJSON sends in as a JSON body (when not nil) and decodes a 2xx reply into out (when not nil)
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[Client DoJSON] %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[Client DoJSON] %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: replyMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return qaerrors.Wrapf(qaerrors.ErrDecode, "[Client DoJSON] %s %s", method, path)
	}
	return nil
}

func replyMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	reply := struct {
		Message string `json:"message"`
	}{}
	if json.Unmarshal(b, &reply) == nil && reply.Message != "" {
		return reply.Message
	}
	return strings.TrimSpace(string(b))
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[Client Do] reading body: %v", err)
	}
	return b, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
