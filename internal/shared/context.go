package shared

import "context"

// The session rides the request context so middleware and handlers
// share one instance; mutations accumulate there and commit once.

type ctxKeySession struct{}

// ContextWithSession attaches the session to the context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, sess)
}

// SessionFromContext returns the request's session, or nil outside the
// session middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxKeySession{}).(*Session)
	return sess
}
