package core

import "context"

type contextKey string

const (
	ctxKeyActionID contextKey = "action_id"
	ctxKeyClientIP contextKey = "client_ip"
)

// ContextWithActionID tags ctx with the dispatcher action ID. The backend
// client forwards it as X-Request-ID.
func ContextWithActionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyActionID, id)
}

// ActionIDFromContext extracts the action ID from context.
func ActionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActionID).(string); ok {
		return v
	}
	return ""
}

// ContextWithClientIP records the requesting client for action history.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ClientIPFromContext extracts the client IP from context.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}
