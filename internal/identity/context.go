package identity

import "context"

// contextKey is the type for identity context keys
type contextKey string

const tokenContextKey contextKey = "identity-token"

// NewContext returns a copy of ctx carrying the raw identity token.
func NewContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the raw identity token stored by NewContext.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok && token != ""
}
