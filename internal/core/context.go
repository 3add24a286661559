package core

import "context"

type contextKey string

const (
	ctxKeyOwnerID   contextKey = "owner_id"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithOwnerID attaches the collection owner to ctx.
func ContextWithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKeyOwnerID, ownerID)
}

// OwnerIDFromContext returns the owner attached by ContextWithOwnerID.
func OwnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOwnerID).(string); ok {
		return v
	}
	return ""
}

// ContextWithIPAddress adds the client IP to ctx for logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// IPAddressFromContext extracts the client IP from ctx.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
