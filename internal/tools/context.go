package tools

import "context"

type ownerIDKey struct{}

// ContextWithOwnerID attaches the authenticated user's ID to a context.
// Tool handlers read the owner from here, never from model-supplied
// arguments, so a tool call can only ever touch the caller's own data.
func ContextWithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey{}, ownerID)
}

// OwnerIDFromContext returns the owner ID set by ContextWithOwnerID.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDKey{}).(string)
	return id, ok && id != ""
}
