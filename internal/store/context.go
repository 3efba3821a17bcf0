package store

import "context"

type contextKey struct{}

// WithBackend returns a context that routes store calls to the backend with
// the given id instead of the configured default.
func WithBackend(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// BackendFromContext returns the backend id chosen for this request, if any.
func BackendFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
