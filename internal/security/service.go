package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tripforge/tripforge/internal/audit"
	"github.com/tripforge/tripforge/internal/config"
)

// State of the initialization lifecycle. There is no failed terminal
// state: an Init error propagates to the caller and leaves the service
// uninitialized, and the caller is expected to fail process startup.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

const monitorInterval = 5 * time.Minute

// Deps are the external collaborators the Service wires into subsystems.
// Pool backs the persistent audit store (required in production when
// audit logging is enabled); Redis backs rate limiting and the login
// guard. ConsoleOut receives the lifecycle and audit console lines and
// defaults to stdout.
type Deps struct {
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	ConsoleOut io.Writer
}

// Service owns the process-wide security state: the merged configuration,
// the audit logger selection, RBAC bootstrap, the lazy rate limiter and
// the production monitoring loop. It replaces what the rest of the code
// would otherwise reach for as a global: construct one in the composition
// root and pass it down.
type Service struct {
	deps Deps

	mu     sync.Mutex
	state  State
	cfg    Config
	logger audit.Logger
	roles  map[Role][]Permission
	guard  *LoginGuard

	limiterMu sync.Mutex
	limiter   func(http.Handler) http.Handler

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

// NewService returns an uninitialized Service. Call Init before use.
func NewService(deps Deps) *Service {
	if deps.ConsoleOut == nil {
		deps.ConsoleOut = os.Stdout
	}
	return &Service{deps: deps}
}

// Init merges configuration for env and starts the enabled subsystems.
// Safe to call again: a re-initialization overwrites the configuration
// but does not reset already-emitted audit records. Any error leaves the
// service uninitialized.
func (s *Service) Init(ctx context.Context, env string, overrides Overrides) error {
	// Stop any monitor from a previous initialization before taking the
	// state lock; its health checks acquire the same lock.
	s.stopMonitor()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateInitializing
	fmt.Fprintln(s.deps.ConsoleOut, "🔒 Initializing security system...")

	cfg := MergeConfig(env, overrides)

	logger, err := s.buildAuditLogger(ctx, cfg)
	if err != nil {
		s.state = StateUninitialized
		return err
	}

	var roles map[Role][]Permission
	if cfg.Features.RBAC {
		roles = bootstrapRoles()
		fmt.Fprintln(s.deps.ConsoleOut, "🛡️ RBAC policies loaded")
	}

	var guard *LoginGuard
	if s.deps.Redis != nil {
		guard = NewLoginGuard(s.deps.Redis, cfg.Settings.MaxLoginAttempts, cfg.Settings.LockoutDuration)
	}

	// The rate limiter is armed here but constructed lazily on first use.
	s.limiterMu.Lock()
	s.limiter = nil
	s.limiterMu.Unlock()

	if cfg.Environment == config.EnvProduction {
		monitorCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.monitorCancel = cancel
		s.monitorDone = done
		go s.monitor(monitorCtx, done, monitorInterval)
		s.setupAlerting()
		fmt.Fprintln(s.deps.ConsoleOut, "📡 Security monitoring started")
	}

	s.cfg = cfg
	s.logger = logger
	s.roles = roles
	s.guard = guard
	s.state = StateInitialized
	fmt.Fprintf(s.deps.ConsoleOut, "✅ Security system initialized (environment: %s)\n", cfg.Environment)
	return nil
}

func (s *Service) buildAuditLogger(ctx context.Context, cfg Config) (audit.Logger, error) {
	if !cfg.Features.AuditLogging {
		return nil, nil
	}
	if cfg.Environment == config.EnvProduction {
		if s.deps.Pool == nil {
			return nil, fmt.Errorf("initializing audit logging: production requires a database-backed store")
		}
		if err := s.deps.Pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("initializing audit logging: %w", err)
		}
		fmt.Fprintln(s.deps.ConsoleOut, "📝 Audit logging enabled (persistent)")
		return audit.NewStoreLogger(audit.NewPostgresStore(s.deps.Pool)), nil
	}
	fmt.Fprintln(s.deps.ConsoleOut, "📝 Audit logging enabled (console)")
	return audit.NewConsoleLogger(s.deps.ConsoleOut), nil
}

// Shutdown stops the monitoring loop. Idempotent.
func (s *Service) Shutdown() {
	s.stopMonitor()
}

// stopMonitor cancels the monitor and waits for it to exit. The wait
// happens outside s.mu: the monitor's health checks take that lock, so
// waiting while holding it would deadlock.
func (s *Service) stopMonitor() {
	s.mu.Lock()
	cancel, done := s.monitorCancel, s.monitorDone
	s.monitorCancel, s.monitorDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// monitor periodically runs the health check and logs any degradation.
// It closes done on exit.
func (s *Service) monitor(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := s.HealthCheck(ctx)
			if report.Status != StatusHealthy {
				slog.Warn("security monitoring: degraded health",
					"status", report.Status, "issues", report.Issues)
			}
		}
	}
}

// setupAlerting is a stub for the production alerting integration.
func (s *Service) setupAlerting() {
	slog.Info("security alerting configured")
}

// Initialized reports whether Init has completed successfully.
func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateInitialized
}

// Config returns a copy of the merged configuration.
func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// AuditLogger returns the configured audit backend, or nil when audit
// logging is disabled or the service is not initialized.
func (s *Service) AuditLogger() audit.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return nil
	}
	return s.logger
}

// LoginGuard returns the failed-login tracker, or nil when redis is not
// wired.
func (s *Service) LoginGuard() *LoginGuard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard
}

// RateLimit returns the rate-limiting middleware for the current
// configuration. The limiter is built on first use; when the feature is
// off or redis is not wired, the returned middleware is a passthrough.
func (s *Service) RateLimit(maxReqs, windowSec int) func(http.Handler) http.Handler {
	cfg := s.Config()

	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	if s.limiter == nil {
		if cfg.Features.RateLimiting && s.deps.Redis != nil {
			s.limiter = newRateLimiter(s.deps.Redis, maxReqs, windowSec)
		} else {
			s.limiter = func(next http.Handler) http.Handler { return next }
		}
	}
	return s.limiter
}

// RequireInitialized short-circuits requests made before Init completes
// with a machine-readable 503, without invoking the wrapped handler.
func (s *Service) RequireInitialized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Initialized() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "Security system not initialized",
				"message": "Please wait for the security system to initialize",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
