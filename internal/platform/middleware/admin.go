package middleware

import (
	"log/slog"
	"net/http"
)

// RequireAdmin gates administrative endpoints. It must run after RequireAuth
// so the role claim is already on the context.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetRole(ctx) != "admin" {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"user_id", GetUserID(ctx),
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"success":false,"code":"forbidden","error":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
