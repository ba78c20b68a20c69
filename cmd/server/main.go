package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	specpkg "github.com/daap14/useradmin/api"
	"github.com/daap14/useradmin/internal/api"
	"github.com/daap14/useradmin/internal/api/handler"
	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/database"
	"github.com/daap14/useradmin/internal/inflight"
	"github.com/daap14/useradmin/internal/metrics"
	"github.com/daap14/useradmin/internal/notify"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/reconciler"
	"github.com/daap14/useradmin/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := initRedis(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if rdb == nil {
		slog.Info("REDIS_URL not set; in-flight guard and notifications are local to this instance")
	}

	hub := notify.NewHub()
	go hub.Run(ctx)

	var (
		guard       inflight.Guard = inflight.NewMemoryGuard()
		sink        notify.Sink    = hub
		redisPinger handler.Pinger
	)
	if rdb != nil {
		defer rdb.Close()
		guard = inflight.NewRedisGuard(rdb, cfg.InFlightTTL)
		// Every instance, this one included, delivers through its relay.
		sink = notify.NewRedisPublisher(rdb, cfg.NotifyChannel)
		relay := notify.NewRedisRelay(rdb, cfg.NotifyChannel, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("toast relay stopped", "error", err)
			}
		}()
		redisPinger = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	userRepo := auth.NewRepository(db.Pool())
	projectRepo := project.NewRepository(db.Pool())
	authService := auth.NewService(userRepo, cfg.BcryptCost)

	if _, err := authService.BootstrapOwner(ctx, cfg.OwnerEmail); err != nil {
		slog.Error("failed to bootstrap owner", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	userService := users.NewService(userRepo, projectRepo, guard, sink, m, cfg.Features())
	projector := users.NewProjector(userRepo, projectRepo)

	rec := reconciler.New(projectRepo, m, cfg.ReconcilerSchedule)
	go func() {
		if err := rec.Start(ctx); err != nil {
			slog.Error("reconciler stopped", "error", err)
		}
	}()

	router := api.NewRouter(api.RouterDeps{
		DBPinger:    db,
		RedisPinger: redisPinger,
		Version:     cfg.Version,
		OpenAPISpec: specpkg.OpenAPISpec,
		Features:    cfg.Features(),
		Metrics:     m,
		Auth:        authService,
		Users:       userService,
		Projector:   projector,
		Creator:     authService,
		Projects:    projectRepo,
		Hub:         hub,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting useradmin server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	stop()

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))
}

// initRedis returns nil without error when no URL is configured. A configured
// but unreachable redis is an error.
func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
