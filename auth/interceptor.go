package auth

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"context"
	"net/http"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware rejects requests without a valid bearer credential and injects
// the verified identity into the request context for downstream handlers.
func Middleware(verifier contract.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, err := BearerFromRequest(r)
			if err != nil {
				http.Error(w, "authorization token is missing", http.StatusUnauthorized)
				return
			}
			identity, err := verifier.Verify(r.Context(), credential)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}
