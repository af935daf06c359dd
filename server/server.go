package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/guard"
	"github.com/jrsteele09/qa-console/internal/config"
	"github.com/jrsteele09/qa-console/internal/metrics"
	"github.com/jrsteele09/qa-console/session"
	"github.com/jrsteele09/qa-console/tracker"
	"github.com/rs/zerolog/log"
)

// Deps are the process-wide services the console pages run on
type Deps struct {
	Store        *session.Store
	Bootstrap    *session.Bootstrap
	Auth         *authapi.Client
	Tracker      *tracker.Client
	Metrics      *metrics.Metrics
	Requirements guard.Requirements
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config

	store        *session.Store
	bootstrap    *session.Bootstrap
	auth         *authapi.Client
	tracker      *tracker.Client
	metrics      *metrics.Metrics
	guard        *guard.Middleware
	guardRoutes  guard.Routes
	requirements guard.Requirements
	pages        *pages
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Bootstrap == nil || deps.Auth == nil || deps.Tracker == nil {
		return nil, fmt.Errorf("[Server New] store, bootstrap, auth and tracker are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	parsed, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	routes := GuardRoutes(config)
	s := &Server{
		env:          config.GetEnv(),
		mux:          http.NewServeMux(),
		config:       config,
		store:        deps.Store,
		bootstrap:    deps.Bootstrap,
		auth:         deps.Auth,
		tracker:      deps.Tracker,
		metrics:      deps.Metrics,
		guardRoutes:  routes,
		requirements: deps.Requirements,
		pages:        parsed,
	}
	s.guard = guard.NewMiddleware(deps.Store, deps.Bootstrap.Done(), routes, deps.Requirements, config.GetSettleDelay(), deps.Metrics)

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

// GuardRoutes maps the console's routes onto the guard's redirect targets
func GuardRoutes(config config.RoutesConfig) guard.Routes {
	routes := guard.DefaultRoutes()
	routes.SignIn = RouteSignIn
	routes.SignUp = RouteSignUp
	routes.SignOut = RouteSignOut
	routes.AccessDenied = RouteAccessDenied
	routes.AuthenticatedEntry = RouteDashboard
	routes.UnauthenticatedEntry = RouteSignIn
	routes.RedirectParam = config.GetRedirectParam()
	return routes
}

// Start launches the one-off session bootstrap without waiting for it
func (s *Server) Start(ctx context.Context) {
	s.bootstrap.Start(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
