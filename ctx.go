package starter

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var clientIPCtxKey = &contextKey{"client_ip"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClientIP stores the request's remote address so downstream
// activity records can attribute the action.
func WithClientIP(r context.Context, ip string) context.Context {
	return context.WithValue(r, clientIPCtxKey, ip)
}

// ClientIPFromContext returns the stored client IP, empty when the
// caller did not run through the HTTP layer.
func ClientIPFromContext(ctx context.Context) string {
	raw, ok := ctx.Value(clientIPCtxKey).(string)
	if !ok {
		return ""
	}
	return raw
}
