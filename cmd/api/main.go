package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tripforge/tripforge/internal/api"
	"github.com/tripforge/tripforge/internal/auth"
	"github.com/tripforge/tripforge/internal/config"
	"github.com/tripforge/tripforge/internal/database"
	"github.com/tripforge/tripforge/internal/middleware"
	iredis "github.com/tripforge/tripforge/internal/redis"
	"github.com/tripforge/tripforge/internal/security"
	"github.com/tripforge/tripforge/internal/server"
	"github.com/tripforge/tripforge/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.App.MigrationsPath); err != nil {
		slog.Error("migrating database", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Security control plane. Subsystem selection and policy values come
	// from the environment preset; overrides stay empty here so the
	// preset is authoritative in every deployment.
	sec := security.NewService(security.Deps{Pool: pool, Redis: redisClient})
	if err := sec.Init(ctx, cfg.App.Environment, security.Overrides{}); err != nil {
		slog.Error("initializing security system", "error", err)
		os.Exit(1)
	}

	recorder := middleware.NewRecorder(sec, nil)

	// Auth
	tokens := auth.NewTokenManager(cfg.JWT.Secret)
	userRepo := users.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, tokens, sec, recorder)

	// Router
	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if sec.Config().Features.RateLimiting {
		routerCfg.AuthRateLimiter = sec.RateLimit(10, 60)
	}

	router := api.NewRouter(sec, recorder, pool, routerCfg, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,

		AuthMiddleware:  auth.Middleware(tokens),
		AuditPermission: auth.RequirePermission(sec, security.PermViewAuditLogs),
	})

	// Start server; the security monitor stops after the listener drains.
	srv := server.New(cfg.Server, router, sec.Shutdown)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
