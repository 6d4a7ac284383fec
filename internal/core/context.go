package core

import "context"

type contextKey string

const (
	ctxKeyActor    contextKey = "import_actor"
	ctxKeyClientIP contextKey = "import_client_ip"
)

// ContextWithActor records who is running an import. Stamped onto
// ImportJob.CreatedBy and Record.EnteredBy.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor, or "" if none was set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}

// ContextWithClientIP adds the caller's IP for log fields.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ClientIPFromContext extracts the caller's IP.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}
