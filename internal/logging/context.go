package logging

import "context"

type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID stores the request id in ctx; every log call made with the
// returned context carries it as the "request_id" attribute.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(ctx context.Context, args []any) []any {
	id := RequestID(ctx)
	if id == "" {
		return args
	}
	return append([]any{string(requestIDKey), id}, args...)
}
