package gateway

import "context"

type ctxKey int

const (
	currentPathKey ctxKey = iota
	trailKey
)

// WithCurrentPath records the console path the operator is on, used as the return target
// when the session has to be abandoned
func WithCurrentPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, currentPathKey, path)
}

func CurrentPath(ctx context.Context) string {
	path, _ := ctx.Value(currentPathKey).(string)
	return path
}

// WithTrail asks Do to record the states each request passes through into trail
func WithTrail(ctx context.Context, trail *[]State) context.Context {
	return context.WithValue(ctx, trailKey, trail)
}

func recordTrail(ctx context.Context, a *attempt) {
	if trail, ok := ctx.Value(trailKey).(*[]State); ok && trail != nil {
		*trail = append(*trail, a.trail...)
	}
}
