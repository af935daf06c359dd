package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/qa-console/guard"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/session"
	"github.com/jrsteele09/qa-console/tracker"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PageData is the template model shared by every console page
type PageData struct {
	AppName  string
	Title    string
	SignedIn bool
	User     session.User
	Nav      []NavLink
	Error    string
	Message  string
	Data     any
}

type NavLink struct {
	Path  string
	Label string
}

var navLinks = []NavLink{
	{Path: RouteDashboard, Label: "Dashboard"},
	{Path: RouteProjects, Label: "Projects"},
	{Path: RouteDefects, Label: "Defects"},
	{Path: RouteUsers, Label: "Users"},
}

// listData backs the users, projects and defects tables
type listData[T any] struct {
	Query      tracker.ListQuery
	Page       tracker.Page[T]
	Options    []string
	Severities []string
	PrevURL    string
	NextURL    string
}

type dashboardData struct {
	ActiveProjects  int
	OpenDefects     int
	CriticalDefects int
}

func (s *Server) pageData(title string, data any) PageData {
	st := s.store.Snapshot()
	p := PageData{
		AppName:  s.config.GetAppName(),
		Title:    title,
		SignedIn: st.SignedIn,
		User:     st.User,
		Data:     data,
	}
	if st.SignedIn {
		p.Nav = s.visibleLinks(st.User)
	}
	return p
}

// visibleLinks hides the navigation entries the user's authorities would be turned away from
func (s *Server) visibleLinks(user session.User) []NavLink {
	links := make([]NavLink, 0, len(navLinks))
	for _, l := range navLinks {
		d := guard.RequireAuthority(s.requirements.For(l.Path), user.Held(), s.guardRoutes, l.Path)
		if d.Allow {
			links = append(links, l)
		}
	}
	return links
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := dashboardData{}
		g, ctx := errgroup.WithContext(r.Context())
		count := func(dst *int, fetch func(ctx context.Context) (int, error)) {
			g.Go(func() error {
				n, err := fetch(ctx)
				*dst = n
				return err
			})
		}

		count(&data.ActiveProjects, func(ctx context.Context) (int, error) {
			page, err := s.tracker.Projects(ctx, countQuery(map[string]string{"status": "ACTIVE"}))
			return page.Total, err
		})
		count(&data.OpenDefects, func(ctx context.Context) (int, error) {
			page, err := s.tracker.Defects(ctx, countQuery(map[string]string{"status": "OPEN"}))
			return page.Total, err
		})
		count(&data.CriticalDefects, func(ctx context.Context) (int, error) {
			page, err := s.tracker.Defects(ctx, countQuery(map[string]string{"status": "OPEN", "severity": "CRITICAL"}))
			return page.Total, err
		})

		if err := g.Wait(); err != nil {
			s.renderError(w, r, err)
			return
		}
		renderTemplate(w, s.pages.dashboard, http.StatusOK, s.pageData("Dashboard", data))
	}
}

func countQuery(filters map[string]string) tracker.ListQuery {
	return tracker.ListQuery{Filters: filters, Page: 1, Size: 1}
}

func (s *Server) UsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.UserFilters...)
		page, err := s.tracker.Users(r.Context(), q)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		roles := []string{string(users.RoleManager), string(users.RoleTester), string(users.RoleDeveloper)}
		renderTemplate(w, s.pages.users, http.StatusOK, s.pageData("Users", newListData(r, q, page, roles)))
	}
}

func (s *Server) ProjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.ProjectFilters...)
		page, err := s.tracker.Projects(r.Context(), q)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		renderTemplate(w, s.pages.projects, http.StatusOK, s.pageData("Projects", newListData(r, q, page, tracker.ProjectStatuses)))
	}
}

func (s *Server) DefectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.DefectFilters...)
		page, err := s.tracker.Defects(r.Context(), q)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		data := newListData(r, q, page, tracker.DefectStatuses)
		data.Severities = tracker.Severities
		renderTemplate(w, s.pages.defects, http.StatusOK, s.pageData("Defects", data))
	}
}

func (s *Server) DefectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defect, err := s.tracker.Defect(r.Context(), r.PathValue("id"))
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		renderTemplate(w, s.pages.defect, http.StatusOK, s.pageData(defect.ID, defect))
	}
}

func (s *Server) AccessDeniedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := guard.SafeRedirect(r.URL.Query().Get(s.guardRoutes.DiagnosticParam), "")
		renderTemplate(w, s.pages.accessDenied, http.StatusForbidden, s.pageData("Access denied", struct{ From string }{From: from}))
	}
}

func newListData[T any](r *http.Request, q tracker.ListQuery, page tracker.Page[T], options []string) listData[T] {
	data := listData[T]{Query: q, Page: page, Options: options}
	if page.HasPrev() {
		data.PrevURL = pageURL(r.URL.Path, q.Values(), page.Page-1)
	}
	if page.HasNext() {
		data.NextURL = pageURL(r.URL.Path, q.Values(), page.Page+1)
	}
	return data
}

// renderError turns a failed backend call into a response. A sign-in redirect requested by
// the gateway wins over everything else.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if target, ok := navigationTarget(r.Context()); ok {
		redirectSuccess(w, r, target)
		return
	}

	switch {
	case qaerrors.Is(err, qaerrors.ErrSessionExpired):
		redirectSuccess(w, r, s.guardRoutes.SignInRedirect(r.URL.RequestURI()))
	case qaerrors.Is(err, qaerrors.ErrNotFound):
		renderTemplate(w, s.pages.errorPage, http.StatusNotFound, s.pageData("Not found", nil))
	case qaerrors.Is(err, qaerrors.ErrInvalidRequest):
		renderTemplate(w, s.pages.errorPage, http.StatusBadRequest, s.pageData("Bad request", nil))
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("backend request failed")
		renderTemplate(w, s.pages.errorPage, http.StatusBadGateway, s.pageData("The defect tracker is unavailable", nil))
	}
}
