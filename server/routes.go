package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// SIGN IN / SIGN UP
	s.RegisterRouteFunc("GET "+RouteSignIn, ChainMiddleware(s.SignInPageHandler(), s.HTMLMiddleWare(s.guard.SignedOut)...))
	s.RegisterRouteFunc("POST "+RouteSignIn, ChainMiddleware(s.SignInSubmitHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteSignUp, ChainMiddleware(s.SignUpPageHandler(), s.HTMLMiddleWare(s.guard.SignedOut)...))
	s.RegisterRouteFunc("POST "+RouteSignUp, ChainMiddleware(s.SignUpSubmitHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteValidatePassword, ChainMiddleware(s.ValidatePasswordHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.HTMLMiddleWare()...))

	// Pages (require a session and the route's authorities)
	s.RegisterRouteFunc("GET "+RouteAccessDenied, ChainMiddleware(s.AccessDeniedHandler(), s.HTMLMiddleWare(s.guard.SignedIn)...))
	s.RegisterRouteFunc("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUsers, ChainMiddleware(s.UsersHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteProjects, ChainMiddleware(s.ProjectsHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteDefects, ChainMiddleware(s.DefectsHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteDefectDetail, ChainMiddleware(s.DefectHandler(), s.PageMiddleware()...))

	// Operational
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.OperationalMiddleware()...))
}

// IndexHandler sends the operator to the dashboard; the guards take it from there
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, RouteDashboard)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.store.Snapshot()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if !st.Initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
