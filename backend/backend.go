package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/internal/config"
	"github.com/jrsteele09/qa-console/internal/utils"
	"github.com/jrsteele09/qa-console/token"
	"github.com/jrsteele09/qa-console/token/refresh"
	"github.com/jrsteele09/qa-console/tracker"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

const tokenIssuer = "qa-backend"

// Backend is an in-memory implementation of the defect-tracker REST API the console talks to
type Backend struct {
	mux     *http.ServeMux
	routes  []string
	config  config.BackendConfig
	users   users.UserRepo
	issuer  *token.Issuer
	refresh *refresh.Manager
	catalog TrackerData
}

func New(cfg config.BackendConfig, userRepo users.UserRepo, refreshRepo refresh.Repo, catalog TrackerData) *Backend {
	if catalog == nil {
		catalog = NewCatalog()
	}
	b := &Backend{
		mux:     http.NewServeMux(),
		config:  cfg,
		users:   userRepo,
		issuer:  token.NewIssuer(token.NewHMACSigner(cfg.GetBackendSecret()), tokenIssuer, cfg.GetAccessTokenExpiry()),
		refresh: refresh.NewManager(refreshRepo, cfg.GetRefreshTokenLength(), cfg.GetRefreshTokenExpiry()),
		catalog: catalog,
	}
	b.initRoutes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	b.routes = append(b.routes, pattern)
	b.mux.HandleFunc(pattern, handler)
}

func (b *Backend) initRoutes() {
	b.RegisterRouteFunc("POST "+authapi.PathSignIn, utils.ChainMiddleware(b.SignInHandler(), b.LoggingMiddleware))
	b.RegisterRouteFunc("POST "+authapi.PathSignUp, utils.ChainMiddleware(b.SignUpHandler(), b.LoggingMiddleware))
	b.RegisterRouteFunc("POST "+authapi.PathSignOut, utils.ChainMiddleware(b.SignOutHandler(), b.LoggingMiddleware))
	b.RegisterRouteFunc("POST "+authapi.PathRefresh, utils.ChainMiddleware(b.RefreshHandler(), b.LoggingMiddleware))
	b.RegisterRouteFunc("GET "+authapi.PathMe, utils.ChainMiddleware(b.MeHandler(), b.LoggingMiddleware, b.RequireAuth(true)))

	b.RegisterRouteFunc("GET "+tracker.PathUsers, utils.ChainMiddleware(b.UsersListHandler(), b.APIMiddleware(string(users.RoleManager))...))
	b.RegisterRouteFunc("GET "+tracker.PathProjects, utils.ChainMiddleware(b.ProjectsListHandler(), b.APIMiddleware()...))
	b.RegisterRouteFunc("GET "+tracker.PathDefects, utils.ChainMiddleware(b.DefectsListHandler(), b.APIMiddleware()...))
	b.RegisterRouteFunc("GET "+tracker.PathDefects+"/{id}", utils.ChainMiddleware(b.DefectHandler(), b.APIMiddleware()...))
}

// APIMiddleware authenticates the bearer token and, when authorities are given, requires one of them
func (b *Backend) APIMiddleware(authorities ...string) []func(http.HandlerFunc) http.HandlerFunc {
	mw := []func(http.HandlerFunc) http.HandlerFunc{
		b.LoggingMiddleware,
		b.RequireAuth(false),
	}
	if len(authorities) > 0 {
		mw = append(mw, b.RequireAuthority(authorities...))
	}
	return mw
}

// LogRoutes prints the registered routes at debug level
func (b *Backend) LogRoutes() {
	for _, route := range b.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("backend route")
	}
}

func (b *Backend) String() string {
	return fmt.Sprintf("backend(%d routes)", len(b.routes))
}
