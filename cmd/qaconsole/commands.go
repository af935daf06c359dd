package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/backend"
	"github.com/jrsteele09/qa-console/credential"
	"github.com/jrsteele09/qa-console/gateway"
	"github.com/jrsteele09/qa-console/guard"
	"github.com/jrsteele09/qa-console/internal/config"
	"github.com/jrsteele09/qa-console/internal/metrics"
	"github.com/jrsteele09/qa-console/server"
	"github.com/jrsteele09/qa-console/session"
	refreshrepofake "github.com/jrsteele09/qa-console/token/refresh/repofake"
	"github.com/jrsteele09/qa-console/tracker"
	fakeuserrepo "github.com/jrsteele09/qa-console/users/repofake"
	"github.com/spf13/cobra"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "qaconsole",
		Short: "Operator console for the QA defect tracker",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.New()
			if logLevel == "" {
				logLevel = cfg.GetLogLevel()
			}
			setupLogging(cfg.GetEnv(), logLevel)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the console against the tracker backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			return runServer(cfg.GetPort(), cfg.GetAppName(), func(ctx context.Context) (http.Handler, error) {
				return newConsole(ctx, cfg)
			})
		},
	}

	backendCmd = &cobra.Command{
		Use:   "backend",
		Short: "Run the in-memory reference backend with seeded demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewBackend()
			return runServer(cfg.GetBackendPort(), "QA Backend", func(context.Context) (http.Handler, error) {
				b := backend.New(cfg, fakeuserrepo.NewFakeUserRepo(), refreshrepofake.NewFakeRefreshTokenRepo(), nil)
				if err := b.Seed(); err != nil {
					return nil, fmt.Errorf("seed backend: %w", err)
				}
				b.LogRoutes()
				return b, nil
			})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.AddCommand(serveCmd, backendCmd)
}

// newConsole wires the session and gateway stack and starts the session bootstrap
func newConsole(ctx context.Context, cfg config.Config) (*server.Server, error) {
	backendURL := cfg.GetBackendURL()
	base, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("backend url %q: %w", backendURL, err)
	}
	jar, err := authapi.NewJar(cfg.GetCookieFile())
	if err != nil {
		return nil, err
	}
	raw := &http.Client{Jar: jar, Timeout: 15 * time.Second}
	cookies := credential.JarCookies{Jar: jar, URL: base}

	var mirror credential.Mirror
	if path := cfg.GetMirrorFile(); path != "" {
		mirror = credential.NewFileMirror(path)
	}
	creds := credential.NewCache(cookies, mirror, credential.Options{
		TokenCookies: cfg.GetAccessTokenCookies(),
		ExpiryCookie: cfg.GetTokenExpiryCookie(),
		LeadTime:     cfg.GetTokenLeadTime(),
	})

	m := metrics.New()
	store := session.NewStore(creds, cookies, authapi.NewProber(raw, backendURL), session.Options{
		UserInfoCookie: cfg.GetUserInfoCookie(),
		Metrics:        m,
	})
	refresher := authapi.NewRefresher(raw, backendURL, cookies, cfg.GetAccessTokenCookies())
	gw, err := gateway.New(raw, backendURL, creds, store, refresher, server.NewNavigator(), gateway.Options{
		SignInPath: authapi.PathSignIn,
		Routes:     server.GuardRoutes(cfg),
		Metrics:    m,
	})
	if err != nil {
		return nil, err
	}

	auth := authapi.NewClient(gw, creds, store, cookies)
	auth.UserInfoCookie = cfg.GetUserInfoCookie()

	authorities, err := config.LoadRouteAuthorities(cfg.GetRoutesFile())
	if err != nil {
		return nil, err
	}

	srv, err := server.New(cfg, server.Deps{
		Store:        store,
		Bootstrap:    session.NewBootstrap(store),
		Auth:         auth,
		Tracker:      tracker.New(gw),
		Metrics:      m,
		Requirements: guard.Requirements(authorities),
	})
	if err != nil {
		return nil, err
	}
	srv.Start(ctx)
	return srv, nil
}
