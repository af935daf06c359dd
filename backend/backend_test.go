package backend_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/backend"
	"github.com/jrsteele09/qa-console/internal/config"
	"github.com/jrsteele09/qa-console/session"
	refreshrepofake "github.com/jrsteele09/qa-console/token/refresh/repofake"
	"github.com/jrsteele09/qa-console/tracker"
	"github.com/jrsteele09/qa-console/users"
	fakeuserrepo "github.com/jrsteele09/qa-console/users/repofake"
	"github.com/stretchr/testify/require"
)

type harness struct {
	server *httptest.Server
	client *http.Client
	url    *url.URL
	cfg    config.BackendConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, data backend.TrackerData) *harness {
	t.Helper()

	cfg := config.NewBackend()
	b := backend.New(cfg, fakeuserrepo.NewFakeUserRepo(), refreshrepofake.NewFakeRefreshTokenRepo(), data)
	require.NoError(t, b.Seed())

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	jar, err := authapi.NewJar("")
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &harness{server: srv, client: client, url: u, cfg: cfg}
}

func (h *harness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := h.client.Post(h.server.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) get(t *testing.T, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) signIn(t *testing.T, userID string) session.UserData {
	t.Helper()
	resp := h.post(t, authapi.PathSignIn, authapi.SignInRequest{UserID: userID, Password: h.cfg.GetSeedPassword()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decode[session.UserData](t, resp)
	require.Equal(t, authapi.StatusSuccess, env.Status)
	return env.Data
}

func decode[T any](t *testing.T, resp *http.Response) authapi.Envelope[T] {
	t.Helper()
	env := authapi.Envelope[T]{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignIn(t *testing.T) {
	t.Run("sets readable and protected cookies", func(t *testing.T) {
		h := newHarness(t)
		resp := h.post(t, authapi.PathSignIn, authapi.SignInRequest{UserID: backend.SeedTesterID, Password: h.cfg.GetSeedPassword()})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode[session.UserData](t, resp)
		require.Equal(t, backend.SeedTesterID, env.Data.UserID)
		require.Equal(t, users.RoleTester, env.Data.RoleCode)
		require.NotEmpty(t, env.Data.Token)

		cookies := resp.Cookies()
		access := cookieByName(cookies, backend.CookieAccessToken)
		require.NotNil(t, access)
		require.False(t, access.HttpOnly)
		require.Equal(t, env.Data.Token, access.Value)

		info := cookieByName(cookies, backend.CookieUserInfo)
		require.NotNil(t, info)
		data, err := session.DecodeUserInfo(info.Value)
		require.NoError(t, err)
		require.Equal(t, backend.SeedTesterID, data.UserID)

		require.NotNil(t, cookieByName(cookies, backend.CookieTokenExpiry))

		refreshCookie := cookieByName(cookies, backend.CookieRefreshToken)
		require.NotNil(t, refreshCookie)
		require.True(t, refreshCookie.HttpOnly)
	})

	t.Run("bad password", func(t *testing.T) {
		h := newHarness(t)
		resp := h.post(t, authapi.PathSignIn, authapi.SignInRequest{UserID: backend.SeedTesterID, Password: "Wrong-pass1"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		env := decode[any](t, resp)
		require.Equal(t, authapi.StatusFailed, env.Status)
		require.NotEmpty(t, env.Message)
		require.Empty(t, resp.Cookies())
	})

	t.Run("unknown user", func(t *testing.T) {
		h := newHarness(t)
		resp := h.post(t, authapi.PathSignIn, authapi.SignInRequest{UserID: "nobody", Password: "Whatever1"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, authapi.PathMe, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.signIn(t, backend.SeedManagerID)
	resp = h.get(t, authapi.PathMe, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "access token cookie is accepted")
	env := decode[session.UserData](t, resp)
	require.Equal(t, backend.SeedManagerID, env.Data.UserID)
	require.Equal(t, []string{"REPORT"}, env.Data.Authorities)
	require.Empty(t, env.Data.Token)
}

func TestRefreshRotation(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, backend.SeedTesterID)

	refreshURL := &url.URL{Scheme: h.url.Scheme, Host: h.url.Host, Path: "/auth/refresh"}
	var before string
	for _, c := range h.client.Jar.Cookies(refreshURL) {
		if c.Name == backend.CookieRefreshToken {
			before = c.Value
		}
	}
	require.NotEmpty(t, before)

	resp := h.post(t, authapi.PathRefresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decode[session.UserData](t, resp)
	require.NotEmpty(t, env.Data.Token)
	require.Equal(t, backend.SeedTesterID, env.Data.UserID)

	// the rotated-out token no longer works
	req, err := http.NewRequest(http.MethodPost, h.server.URL+authapi.PathRefresh, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: backend.CookieRefreshToken, Value: before})
	stale, err := (&http.Client{}).Do(req)
	require.NoError(t, err)
	defer stale.Body.Close()
	require.Equal(t, http.StatusUnauthorized, stale.StatusCode)
}

func TestSignOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, backend.SeedTesterID)

	resp := h.post(t, authapi.PathSignOut, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, h.client.Jar.Cookies(h.url), "readable cookies expired")

	resp = h.post(t, authapi.PathRefresh, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUp(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		req    authapi.SignUpRequest
		status int
	}{
		{name: "weak password", req: authapi.SignUpRequest{UserID: "newbie", UserName: "New", Password: "short"}, status: http.StatusBadRequest},
		{name: "unknown role", req: authapi.SignUpRequest{UserID: "newbie", UserName: "New", Password: "Str0ngPass", RoleCode: "XX"}, status: http.StatusBadRequest},
		{name: "taken", req: authapi.SignUpRequest{UserID: backend.SeedTesterID, UserName: "Dup", Password: "Str0ngPass"}, status: http.StatusConflict},
		{name: "created", req: authapi.SignUpRequest{UserID: "newbie", UserName: "New", Password: "Str0ngPass", RoleCode: "DV"}, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.post(t, authapi.PathSignUp, tt.req)
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := h.post(t, authapi.PathSignIn, authapi.SignInRequest{UserID: "newbie", Password: "Str0ngPass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLists(t *testing.T) {
	h := newHarness(t)
	tester := h.signIn(t, backend.SeedTesterID)

	t.Run("requires a bearer token", func(t *testing.T) {
		resp := h.get(t, tracker.PathDefects, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("defects filtered and paged", func(t *testing.T) {
		resp := h.get(t, tracker.PathDefects+"?severity=CRITICAL&size=1&page=2", tester.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode[tracker.Page[tracker.Defect]](t, resp)
		require.Equal(t, 2, env.Data.Total)
		require.Equal(t, 2, env.Data.Page)
		require.Len(t, env.Data.Items, 1)
		require.Equal(t, "CRITICAL", env.Data.Items[0].Severity)
	})

	t.Run("projects by keyword", func(t *testing.T) {
		resp := h.get(t, tracker.PathProjects+"?keyword=mobile", tester.Token)
		env := decode[tracker.Page[tracker.Project]](t, resp)
		require.Equal(t, 1, env.Data.Total)
		require.Equal(t, "P-200", env.Data.Items[0].ID)
	})

	t.Run("defect detail", func(t *testing.T) {
		resp := h.get(t, tracker.PathDefects+"/D-1002", tester.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode[tracker.Defect](t, resp)
		require.Equal(t, "Cart total rounds incorrectly", env.Data.Title)

		resp = h.get(t, tracker.PathDefects+"/D-9999", tester.Token)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("users need the manager authority", func(t *testing.T) {
		resp := h.get(t, tracker.PathUsers, tester.Token)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		manager := h.signIn(t, backend.SeedManagerID)
		resp = h.get(t, tracker.PathUsers+"?userSeCd=DV", manager.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode[tracker.Page[users.User]](t, resp)
		require.Equal(t, 1, env.Data.Total)
		require.Equal(t, backend.SeedDeveloperID, env.Data.Items[0].ID)
	})
}

// unreadableDefects fails every defect lookup with something other than not-found
type unreadableDefects struct {
	*backend.Catalog
}

func (unreadableDefects) Defect(id string) (tracker.Defect, error) {
	return tracker.Defect{}, errors.New("defect store offline")
}

func TestDefectLookupFailure(t *testing.T) {
	h := newHarnessWith(t, unreadableDefects{Catalog: backend.NewCatalog()})
	tester := h.signIn(t, backend.SeedTesterID)

	resp := h.get(t, tracker.PathDefects+"/D-1002", tester.Token)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	env := decode[tracker.Defect](t, resp)
	require.Equal(t, authapi.StatusFailed, env.Status)
	require.Empty(t, env.Data.ID)
}

func TestListsHugePage(t *testing.T) {
	h := newHarness(t)
	manager := h.signIn(t, backend.SeedManagerID)

	for _, path := range []string{tracker.PathUsers, tracker.PathDefects, tracker.PathProjects} {
		t.Run(path, func(t *testing.T) {
			resp := h.get(t, path+"?page=92233720368547760&size=100", manager.Token)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			env := decode[tracker.Page[json.RawMessage]](t, resp)
			require.Empty(t, env.Data.Items)
			require.Equal(t, tracker.MaxPage, env.Data.Page)
		})
	}
}
