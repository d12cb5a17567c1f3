package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/lead-rotation/pkg/composables"
	"github.com/iota-uz/lead-rotation/pkg/configuration"
	"github.com/iota-uz/lead-rotation/pkg/httpapi"
)

// WithTenant resolves the tenant from the configured header, falling back
// to DefaultTenantID. Requests without either are rejected.
func WithTenant(conf *configuration.Configuration) mux.MiddlewareFunc {
	fallback, _ := uuid.Parse(strings.TrimSpace(conf.DefaultTenantID))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := fallback
			if raw := strings.TrimSpace(r.Header.Get(conf.TenantHeader)); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid tenant id", nil)
					return
				}
				tenantID = parsed
			}
			if tenantID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant id is required", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithTenantID(r.Context(), tenantID)))
		})
	}
}

// ProvidePool makes the pool available to composables.InTx and the
// repositories.
func ProvidePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}
