package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapdetail-backend/internal/auth"
	"tapdetail-backend/internal/transport"
)

type providerIDKey struct{}

// ProviderAuth accepts a bearer token (or the tapdetail_access cookie) and
// stores the provider it names in the request context.
func ProviderAuth(manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "provider auth not configured", nil)
				return
			}

			token := bearerToken(r)
			if token == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			claims, err := manager.Parse(token)
			if err != nil || claims.Role != auth.RoleProvider {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			ctx := WithProviderID(r.Context(), claims.ProviderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SameProvider rejects requests whose URL provider differs from the authenticated one.
func SameProvider(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, param) != ProviderIDFromContext(r.Context()) {
				transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithProviderID(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, providerIDKey{}, providerID)
}

func ProviderIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(providerIDKey{}).(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return strings.TrimSpace(header[len("bearer "):])
		}
		return ""
	}
	if cookie, err := r.Cookie("tapdetail_access"); err == nil {
		return cookie.Value
	}
	return ""
}
