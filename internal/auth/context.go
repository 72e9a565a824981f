package auth

import (
	"context"

	"taskManager/internal/access"
)

type contextKey struct{}

func WithCaller(ctx context.Context, caller access.Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

func CallerFromContext(ctx context.Context) (access.Caller, bool) {
	caller, ok := ctx.Value(contextKey{}).(access.Caller)
	return caller, ok
}
