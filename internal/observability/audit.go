package observability

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

// Audit logs an admin action taken over HTTP. The route pattern is logged
// instead of the raw path so per-user URLs group together.
func Audit(r *http.Request, actor domain.UserID, action string, attrs ...any) {
	ctx := r.Context()
	route := r.URL.Path
	if rc := chi.RouteContext(ctx); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			route = pattern
		}
	}
	fields := append([]any{
		"action", action,
		"actor_id", actor,
		"route", r.Method + " " + route,
		"request_id", chimiddleware.GetReqID(ctx),
	}, attrs...)
	slog.InfoContext(ctx, "admin action", fields...)
}
