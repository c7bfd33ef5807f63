package server

import (
	"context"
	"net/http"
	"time"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/codec"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
)

// InvalidIdentityMessage is returned when the identity header is missing or
// not base64.
const InvalidIdentityMessage = "Invalid x-rh-identity"

// TimeoutMiddleware enforces request timeouts.
// If a request exceeds the specified timeout, the context is cancelled.
// Note: This does not forcibly terminate the handler, it relies on the handler
// checking context.Done() for cooperative cancellation.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityMiddleware rejects requests whose x-rh-identity header is missing
// or not base64 with 401, before any handler runs. Accepted tokens are stored
// in the context for identity.TokenFromContext. The token is not decoded here.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(identity.HeaderName)
		if !identity.IsValidShape(token) {
			err := domain.ErrAuthentication(InvalidIdentityMessage).WithCode(domain.ErrorCodeInvalidIdentity)
			AddError(r.Context(), err)
			codec.WriteError(w, err)
			return
		}

		ctx := identity.NewContext(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
