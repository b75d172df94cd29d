package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/health"
	"github.com/sandeepkv93/attendance-session-service/internal/http/handler"
	"github.com/sandeepkv93/attendance-session-service/internal/http/middleware"
	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
	"github.com/sandeepkv93/attendance-session-service/internal/security"
)

const defaultBodyLimit = 1 << 20

type Dependencies struct {
	AttendanceHandler   *handler.AttendanceHandler
	LeaveHandler        *handler.LeaveHandler
	JWTManager          *security.JWTManager
	Readiness           *health.ProbeRunner
	Logger              *slog.Logger
	APIRateLimitRPM     int
	CheckInRateLimitRPM int
	EnableOTelHTTP      bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger(dep.Logger))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	apiLimiter := middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api", middleware.SubjectOrIPKey).Middleware()
	checkInLimiter := middleware.NewRateLimiter(dep.CheckInRateLimitRPM, time.Minute, "check_in", middleware.SubjectOrIPKey).Middleware()
	requireAdmin := middleware.RequireRole(domain.RoleAdmin)
	att := dep.AttendanceHandler
	leaves := dep.LeaveHandler

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(dep.JWTManager))
		r.Use(apiLimiter)

		r.Route("/attendance", func(r chi.Router) {
			r.With(checkInLimiter, middleware.BodyLimit(att.MaxRequestBytes())).Post("/check-in", att.CheckIn)
			r.Group(func(r chi.Router) {
				r.Use(middleware.BodyLimit(defaultBodyLimit))
				r.Post("/check-out", att.CheckOut)
				r.Get("/history", att.History)
				r.Get("/summary", att.Summary)
				r.Get("/calendar", att.Calendar)
				r.Get("/dashboard", att.Dashboard)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Use(middleware.BodyLimit(defaultBodyLimit))
				r.Get("/history", att.AdminHistory)
				r.Get("/summary", att.OrgSummary)
				r.Get("/analytics", att.Analytics)
				r.Get("/missing-checkouts", att.MissingCheckouts)
				r.Get("/export", att.Export)
				r.Post("/auto-checkout", att.TriggerAutoCheckout)
			})
		})

		r.Route("/leaves", func(r chi.Router) {
			r.Use(middleware.BodyLimit(defaultBodyLimit))
			r.Post("/", leaves.Create)
			r.Get("/me", leaves.ListMine)
			r.With(requireAdmin).Get("/admin", leaves.ListAll)
			r.With(requireAdmin).Put("/admin/{id}/status", leaves.SetStatus)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
