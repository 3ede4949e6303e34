package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/facturio/facturio/internal/platform/httpx"
	"github.com/facturio/facturio/internal/shared"
)

// Middleware authenticates requests by bearer API key and stores the resolved
// company in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireCompany rejects requests without a valid API key.
func (m Middleware) RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		rawKey, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || rawKey == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer api key")
			return
		}

		company, err := m.Service.ResolveKey(r.Context(), rawKey)
		if err != nil {
			if !errors.Is(err, ErrInvalidKey) {
				m.Logger.Error("resolve api key", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid api key")
			return
		}

		ctx := shared.ContextWithCompany(r.Context(), company)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
