package httpx

import "context"

type ctxKey string

const (
	ctxKeyActorID ctxKey = "actor_id"
	ctxKeyRole    ctxKey = "actor_role"
	ctxKeyMeta    ctxKey = "request_meta"
)

// WithActor records the authenticated identity for the in-flight request.
func WithActor(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyActorID, userID)
	return context.WithValue(ctx, ctxKeyRole, role)
}

// ActorID returns the authenticated user's ID, or "" when the request is
// anonymous.
func ActorID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActorID).(string); ok {
		return v
	}
	return ""
}

// ActorRole returns the authenticated user's role name, or "".
func ActorRole(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRole).(string); ok {
		return v
	}
	return ""
}
