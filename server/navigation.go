package server

import (
	"context"
	"sync"

	"github.com/jrsteele09/qa-console/gateway"
	"github.com/rs/zerolog/log"
)

type navigationKey struct{}

// navigation holds the first target the gateway asked to navigate to during one request
type navigation struct {
	mu     sync.Mutex
	target string
}

func withNavigation(ctx context.Context) context.Context {
	return context.WithValue(ctx, navigationKey{}, &navigation{})
}

func navigationTarget(ctx context.Context) (string, bool) {
	nav, ok := ctx.Value(navigationKey{}).(*navigation)
	if !ok {
		return "", false
	}
	nav.mu.Lock()
	defer nav.mu.Unlock()
	return nav.target, nav.target != ""
}

// Navigator turns the gateway's navigation requests into redirects of the page request
// that triggered them
type Navigator struct{}

var _ gateway.Navigator = Navigator{}

func NewNavigator() Navigator {
	return Navigator{}
}

func (Navigator) Navigate(ctx context.Context, target string) {
	nav, ok := ctx.Value(navigationKey{}).(*navigation)
	if !ok {
		log.Warn().Str("target", target).Msg("navigation requested outside a page request")
		return
	}
	nav.mu.Lock()
	defer nav.mu.Unlock()
	if nav.target == "" {
		nav.target = target
	}
}
