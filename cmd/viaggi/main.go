package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"viaggi/internal/backend"
	"viaggi/internal/cache"
	"viaggi/internal/cli"
	apphttp "viaggi/internal/http"
	"viaggi/internal/log"
	"viaggi/internal/metrics"
	"viaggi/internal/middleware/ratelimit"
	"viaggi/internal/middleware/trace"
	"viaggi/internal/services"
	"viaggi/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	engine := cli.InitEngine(logger, cfg)

	tracingShutdown, err := trace.Init(context.Background(), trace.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    true,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing", log.FieldError, err)
		os.Exit(1)
	}

	metricsShutdown := func(context.Context) error { return nil }
	if cfg.MetricsExportEnabled {
		if metricsShutdown, err = metrics.InitExport(context.Background(), cfg.OTLPEndpoint, true); err != nil {
			logger.Error("Failed to initialize metrics export", log.FieldError, err)
			os.Exit(1)
		}
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sessions := session.NewStore(engine, session.Config{TTL: cfg.SessionTTL, MaxSessions: cfg.SessionMax}, logger)
	m := metrics.New(sessions.Len)
	sessions.SetObserver(m)

	expenses := services.NewExpenseService(sessions, result.Backend, result.Publisher, logger)
	expenses.SetObserver(m)

	caches := cache.NewManager(logger)
	caches.Register(sessions)
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:  sessions,
		Expenses:  expenses,
		Trips:     services.NewTripService(result.Backend),
		Metrics:   m,
		Ready:     result.Ready,
		Logger:    logger,
		RateLimit: ratelimit.DefaultConfig(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
		if err := tracingShutdown(ctx); err != nil {
			logger.Error("Tracing shutdown error", log.FieldError, err)
		}
		if err := metricsShutdown(ctx); err != nil {
			logger.Error("Metrics export shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting viaggi server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
