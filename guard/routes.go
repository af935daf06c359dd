package guard

import (
	"net/url"
	"sort"
	"strings"
)

// Routes names the console paths the guards redirect between
type Routes struct {
	SignIn               string
	SignUp               string
	SignOut              string
	AccessDenied         string
	AuthenticatedEntry   string
	UnauthenticatedEntry string
	// RedirectParam carries the post-login return target
	RedirectParam string
	// DiagnosticParam carries the denied path to the access-denied page
	DiagnosticParam string
	// AuthPrefixes mark every other path that belongs to the sign-in flow
	AuthPrefixes []string
}

func DefaultRoutes() Routes {
	return Routes{
		SignIn:               "/sign-in",
		SignUp:               "/sign-up",
		SignOut:              "/sign-out",
		AccessDenied:         "/access-denied",
		AuthenticatedEntry:   "/dashboard",
		UnauthenticatedEntry: "/sign-in",
		RedirectParam:        "redirectUrl",
		DiagnosticParam:      "from",
		AuthPrefixes:         []string{"/auth/"},
	}
}

// IsAuthRoute reports whether path is part of the sign-in flow, where forcing another
// sign-in redirect would loop
func (r Routes) IsAuthRoute(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, p := range []string{r.SignIn, r.SignUp, r.SignOut} {
		if p != "" && (path == p || strings.HasPrefix(path, p+"/")) {
			return true
		}
	}
	for _, prefix := range r.AuthPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// SignInRedirect builds the sign-in URL that returns to attempted after login
func (r Routes) SignInRedirect(attempted string) string {
	return withParam(r.UnauthenticatedEntry, r.RedirectParam, attempted)
}

// AccessDeniedRedirect builds the access-denied URL carrying the attempted path
func (r Routes) AccessDeniedRedirect(attempted string) string {
	return withParam(r.AccessDenied, r.DiagnosticParam, attempted)
}

func withParam(base, key, value string) string {
	if value == "" || key == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + key + "=" + url.QueryEscape(value)
}

// SafeRedirect returns value when it is a local path and fallback otherwise. Absolute and
// protocol-relative URLs are rejected.
func SafeRedirect(value, fallback string) string {
	if !strings.HasPrefix(value, "/") {
		return fallback
	}
	if strings.HasPrefix(value, "//") || strings.HasPrefix(value, "/\\") {
		return fallback
	}
	return value
}

// Requirements maps route prefixes to the authorities allowed to view them.
// An empty list marks a public route.
type Requirements map[string][]string

// For returns the requirement of the longest prefix matching path on a segment boundary,
// or nil when no entry matches
func (rq Requirements) For(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	prefixes := make([]string, 0, len(rq))
	for p := range rq {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})

	for _, p := range prefixes {
		if path == p || p == "/" || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return rq[p]
		}
	}
	return nil
}
