package cache

import "context"

type bypassContextKey struct{}

// WithBypass marks ctx so reads skip the cache lookup, load from the source
// and repopulate the entry. Invalidation is unaffected.
func WithBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

// BypassRequested reports whether ctx was marked with WithBypass.
func BypassRequested(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(bypassContextKey{}).(bool)
	return v
}
