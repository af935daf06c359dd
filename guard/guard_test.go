package guard_test

import (
	"testing"

	"github.com/jrsteele09/qa-console/guard"
	"github.com/jrsteele09/qa-console/session"
	"github.com/jrsteele09/qa-console/users"
	"github.com/stretchr/testify/require"
)

func TestRequireSignedIn(t *testing.T) {
	routes := guard.DefaultRoutes()

	t.Run("signed in is allowed", func(t *testing.T) {
		d := guard.RequireSignedIn(session.State{SignedIn: true, Initialized: true}, routes, "/defects")
		require.Equal(t, guard.Decision{Allow: true}, d)
	})

	t.Run("anonymous is sent to sign-in with return target", func(t *testing.T) {
		d := guard.RequireSignedIn(session.State{Initialized: true}, routes, "/defects?page=2")
		require.False(t, d.Allow)
		require.False(t, d.Pending)
		require.Equal(t, "/sign-in?redirectUrl=%2Fdefects%3Fpage%3D2", d.Redirect)
	})

	t.Run("unknown is pending", func(t *testing.T) {
		d := guard.RequireSignedIn(session.State{}, routes, "/defects")
		require.False(t, d.Allow)
		require.True(t, d.Pending)
		require.NotEmpty(t, d.Redirect)
	})
}

func TestRequireSignedOut(t *testing.T) {
	routes := guard.DefaultRoutes()

	d := guard.RequireSignedOut(session.State{SignedIn: true, Initialized: true}, routes)
	require.Equal(t, guard.Decision{Redirect: "/dashboard"}, d)

	d = guard.RequireSignedOut(session.State{Initialized: true}, routes)
	require.Equal(t, guard.Decision{Allow: true}, d)

	d = guard.RequireSignedOut(session.State{}, routes)
	require.True(t, d.Allow)
	require.True(t, d.Pending)
}

func TestRequireAuthority(t *testing.T) {
	routes := guard.DefaultRoutes()

	tests := []struct {
		name     string
		required any
		held     any
		allow    bool
	}{
		{name: "empty requirement", required: []string{}, held: []string{}, allow: true},
		{name: "nil requirement", required: nil, held: nil, allow: true},
		{name: "intersects", required: []string{"MG", "QA"}, held: []string{"QA"}, allow: true},
		{name: "single value both sides", required: "MG", held: "MG", allow: true},
		{name: "any list", required: []any{"DV"}, held: []any{"QA", "DV"}, allow: true},
		{name: "role code value", required: []string{"MG"}, held: users.RoleManager, allow: true},
		{name: "disjoint", required: []string{"MG"}, held: []string{"QA"}, allow: false},
		{name: "nothing held", required: []string{"MG"}, held: nil, allow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := guard.RequireAuthority(tt.required, tt.held, routes, "/users")
			require.Equal(t, tt.allow, d.Allow)
			if !tt.allow {
				require.Equal(t, "/access-denied?from=%2Fusers", d.Redirect)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, []string{}, guard.Normalize(nil))
	require.Equal(t, []string{"MG"}, guard.Normalize("MG"))
	require.Equal(t, []string{}, guard.Normalize(""))
	require.Equal(t, []string{"MG", "QA"}, guard.Normalize([]string{"MG", "", "QA"}))
	require.Equal(t, []string{"MG", "QA"}, guard.Normalize([]any{"MG", "QA"}))
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]string{
		"/defects?page=2":             "/defects?page=2",
		"http://evil.example":         "/dashboard",
		"//evil.example/path":         "/dashboard",
		"/\\evil.example":             "/dashboard",
		"":                            "/dashboard",
		"javascript:alert(1)":         "/dashboard",
		"/projects/p-1/defects?q=ui+": "/projects/p-1/defects?q=ui+",
	}
	for in, want := range tests {
		require.Equal(t, want, guard.SafeRedirect(in, "/dashboard"), in)
	}
}

func TestRoutes_IsAuthRoute(t *testing.T) {
	routes := guard.DefaultRoutes()

	require.True(t, routes.IsAuthRoute("/sign-in"))
	require.True(t, routes.IsAuthRoute("/sign-in?redirectUrl=%2Fdefects"))
	require.True(t, routes.IsAuthRoute("/sign-up"))
	require.True(t, routes.IsAuthRoute("/sign-out"))
	require.True(t, routes.IsAuthRoute("/auth/refresh"))
	require.False(t, routes.IsAuthRoute("/sign-inx"))
	require.False(t, routes.IsAuthRoute("/defects"))
	require.False(t, routes.IsAuthRoute("/"))
}

func TestRequirements_For(t *testing.T) {
	rq := guard.Requirements{
		"/dashboard":      {},
		"/projects":       {"MG", "QA", "DV"},
		"/projects/admin": {"MG"},
		"/users":          {"MG"},
	}

	require.Equal(t, []string{}, rq.For("/dashboard"))
	require.Equal(t, []string{"MG", "QA", "DV"}, rq.For("/projects"))
	require.Equal(t, []string{"MG", "QA", "DV"}, rq.For("/projects/p-1?tab=defects"))
	require.Equal(t, []string{"MG"}, rq.For("/projects/admin/settings"))
	require.Equal(t, []string{"MG"}, rq.For("/users"))
	require.Nil(t, rq.For("/usersx"))
	require.Nil(t, rq.For("/sign-in"))
}
