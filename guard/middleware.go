package guard

import (
	"net/http"
	"time"

	"github.com/jrsteele09/qa-console/internal/metrics"
	"github.com/jrsteele09/qa-console/session"
	"github.com/rs/zerolog/log"
)

// Middleware applies the guards to console pages. Redirects are held back for a short
// settle delay while bootstrap is still running or right after the session flipped, so a
// state that is about to change does not bounce the operator around.
type Middleware struct {
	store        *session.Store
	ready        <-chan struct{}
	routes       Routes
	requirements Requirements
	settle       time.Duration
	metrics      *metrics.Metrics

	// NowFunc is replaceable for tests
	NowFunc func() time.Time
}

// NewMiddleware builds the guard middleware. ready is closed when bootstrap finishes and may be nil.
func NewMiddleware(store *session.Store, ready <-chan struct{}, routes Routes, requirements Requirements, settle time.Duration, m *metrics.Metrics) *Middleware {
	return &Middleware{
		store:        store,
		ready:        ready,
		routes:       routes,
		requirements: requirements,
		settle:       settle,
		metrics:      m,
		NowFunc:      time.Now,
	}
}

func (g *Middleware) Routes() Routes {
	return g.routes
}

// SignedIn only lets signed-in operators through
func (g *Middleware) SignedIn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempted := r.URL.RequestURI()
		d, ok := g.settled(r, func(st session.State) Decision {
			return RequireSignedIn(st, g.routes, attempted)
		})
		if !ok {
			return
		}
		if d.Allow {
			next(w, r)
			return
		}
		g.redirect(w, r, "signed_in", d.Redirect)
	}
}

// SignedOut keeps signed-in operators away from the sign-in and sign-up pages
func (g *Middleware) SignedOut(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := g.settled(r, func(st session.State) Decision {
			return RequireSignedOut(st, g.routes)
		})
		if !ok {
			return
		}
		if d.Allow {
			next(w, r)
			return
		}
		g.redirect(w, r, "signed_out", d.Redirect)
	}
}

// Authority checks the route's required authorities against the operator's held ones.
// It is chained after SignedIn.
func (g *Middleware) Authority(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		required := g.requirements.For(r.URL.Path)
		held := g.store.Snapshot().User.Held()

		d := RequireAuthority(required, held, g.routes, r.URL.RequestURI())
		if d.Allow {
			next(w, r)
			return
		}
		g.redirect(w, r, "authority", d.Redirect)
	}
}

// settled evaluates rule, waiting out the settle delay when a redirect is about to fire on
// a state that may still change. It reports false when the request ended while waiting.
func (g *Middleware) settled(r *http.Request, rule func(session.State) Decision) (Decision, bool) {
	changed := g.store.Changed()
	st := g.store.Snapshot()
	d := rule(st)
	if !d.Pending && d.Allow {
		return d, true
	}

	wait := g.settle
	var ready <-chan struct{}
	if d.Pending {
		ready = g.ready
	} else {
		wait -= g.NowFunc().Sub(st.ChangedAt)
		if st.ChangedAt.IsZero() || wait <= 0 {
			return d, true
		}
	}
	if wait <= 0 {
		return g.final(rule), true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-r.Context().Done():
		log.Debug().Str("path", r.URL.Path).Msg("request ended during guard settle delay")
		return Decision{}, false
	case <-timer.C:
	case <-changed:
	case <-ready:
	}
	return g.final(rule), true
}

// final re-evaluates rule once. A decision still pending is acted on as it stands.
func (g *Middleware) final(rule func(session.State) Decision) Decision {
	d := rule(g.store.Snapshot())
	d.Pending = false
	return d
}

func (g *Middleware) redirect(w http.ResponseWriter, r *http.Request, guard, target string) {
	if g.metrics != nil {
		g.metrics.GuardRedirects.WithLabelValues(guard).Inc()
	}
	log.Debug().Str("guard", guard).Str("from", r.URL.RequestURI()).Str("to", target).Msg("guard redirect")

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
