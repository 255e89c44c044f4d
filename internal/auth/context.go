package auth

import (
	"context"
)

// ContextKey is a type-safe key for context values
type ContextKey string

const (
	// UserContextKey is the key used to store the resolved UserInfo
	UserContextKey ContextKey = "auth:user"

	// MethodContextKey is the key used to store the authenticator name
	MethodContextKey ContextKey = "auth:method"
)

// UserFromContext extracts the resolved identity from the request context
func UserFromContext(ctx context.Context) *UserInfo {
	if user, ok := ctx.Value(UserContextKey).(*UserInfo); ok {
		return user
	}
	return nil
}

// ContextWithUser adds a resolved identity to a context
func ContextWithUser(ctx context.Context, user *UserInfo) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// MethodFromContext extracts the name of the authenticator that resolved the identity
func MethodFromContext(ctx context.Context) string {
	if method, ok := ctx.Value(MethodContextKey).(string); ok {
		return method
	}
	return ""
}

// ContextWithMethod adds the authenticator name to a context
func ContextWithMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodContextKey, method)
}
