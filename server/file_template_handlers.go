package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"date": func(t interface{ Format(string) string }) string {
		return t.Format("2006-01-02")
	},
}

// ParseTemplate parses a page template together with the shared layout
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "layout.html", "pager.html", name)
}

type pages struct {
	signIn       *template.Template
	signUp       *template.Template
	dashboard    *template.Template
	users        *template.Template
	projects     *template.Template
	defects      *template.Template
	defect       *template.Template
	accessDenied *template.Template
	errorPage    *template.Template
}

func parsePages() (*pages, error) {
	p := &pages{}
	for name, dst := range map[string]**template.Template{
		"sign_in.html":       &p.signIn,
		"sign_up.html":       &p.signUp,
		"dashboard.html":     &p.dashboard,
		"users.html":         &p.users,
		"projects.html":      &p.projects,
		"defects.html":       &p.defects,
		"defect.html":        &p.defect,
		"access_denied.html": &p.accessDenied,
		"error.html":         &p.errorPage,
	} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		*dst = tmpl
	}
	return p, nil
}

func renderTemplate(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}

// pageURL rebuilds path with the given query, replacing its page number
func pageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}
