package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripforge/tripforge/internal/audit"
	"github.com/tripforge/tripforge/internal/config"
	"github.com/tripforge/tripforge/internal/database"
	mw "github.com/tripforge/tripforge/internal/middleware"
	"github.com/tripforge/tripforge/internal/security"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler

	// Audit-trail read access, gated on the view_audit_logs permission
	AuditPermission func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP surface. The middleware chain honors the
// merged security feature flags: disabled features contribute nothing to
// the chain instead of running in a no-op mode.
func NewRouter(sec *security.Service, rec *mw.Recorder, pool *pgxpool.Pool, cfg RouterConfig, h HandlerSet) http.Handler {
	secCfg := sec.Config()

	r := chi.NewRouter()

	// Global middleware. Recovery sits before the audit layers so a panic
	// is observed and recorded before it is turned into a 500.
	r.Use(mw.RequestID)
	if secCfg.Features.SecurityHeaders {
		r.Use(mw.SecurityHeaders(secCfg.Environment == config.EnvProduction))
	}
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	if secCfg.Features.CORS {
		r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))
	}
	r.Use(sec.RequireInitialized)
	r.Use(rec.WithSecurityAudit())

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — database plus the security subsystem report
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		report := sec.HealthCheck(r.Context())

		dbStatus := "healthy"
		status := http.StatusOK
		if pool == nil {
			dbStatus = "not configured"
		} else if err := database.HealthCheck(r.Context(), pool); err != nil {
			dbStatus = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		if report.Status == security.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, map[string]any{
			"status":   report.Status,
			"database": dbStatus,
			"security": report,
		})
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	auditHandler := NewAuditHandler(sec)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public) — optionally rate-limited
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			// The handlers emit their own fine-grained audit entries
			// (user_created, login, login_failed, account_locked).
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Audit trail (admin only). Reading the trail is itself recorded.
		r.Route("/audit", func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(rec.WithAuditLogging(audit.ActionAPICall))
			if h.AuditPermission != nil {
				r.Use(h.AuditPermission)
			}
			r.Get("/", auditHandler.List)
			r.Get("/{entryID}", auditHandler.Get)
		})
	})

	return r
}
