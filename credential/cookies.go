package credential

import (
	"net/http"
	"net/url"
)

// CookieReader exposes the client-readable cookies the backend has set.
// Server-protected (httpOnly) cookies are never read through it.
type CookieReader interface {
	Cookie(name string) (string, bool)
}

// JarCookies reads cookies a jar holds for the backend URL
type JarCookies struct {
	Jar http.CookieJar
	URL *url.URL
}

func (j JarCookies) Cookie(name string) (string, bool) {
	if j.Jar == nil || j.URL == nil {
		return "", false
	}
	for _, c := range j.Jar.Cookies(j.URL) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// StaticCookies is a fixed cookie set
type StaticCookies map[string]string

func (s StaticCookies) Cookie(name string) (string, bool) {
	v, ok := s[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
