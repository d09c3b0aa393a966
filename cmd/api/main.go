package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cadranhq/cadran-platform/cmd/mainconfig"
	"github.com/cadranhq/cadran-platform/internal/api/router"
	"github.com/cadranhq/cadran-platform/internal/app/bootstrap"
	appconfig "github.com/cadranhq/cadran-platform/internal/config"
	"github.com/cadranhq/cadran-platform/internal/http/handlers"
	httpmiddleware "github.com/cadranhq/cadran-platform/internal/http/middleware"
	"github.com/cadranhq/cadran-platform/internal/leads"
	"github.com/cadranhq/cadran-platform/internal/notify"
	"github.com/cadranhq/cadran-platform/internal/observability/metrics"
	"github.com/cadranhq/cadran-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cadran API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"email_provider", cfg.EmailProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize API", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildHandler wires every dependency of the API. cleanup releases pools and
// background workers and is safe to call once err is nil.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	metricsHandler, leadMetrics := setupMetrics()

	var ses notify.SESAPI
	if cfg.EmailProvider == notify.ProviderSES {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		ses = mainconfig.NewSESClient(awsCfg, cfg)
	}
	sender, err := bootstrap.BuildEmailSender(cfg, ses, leadMetrics, logger)
	if err != nil {
		return nil, nil, err
	}
	notifier := notify.NewLeadNotifier(sender, bootstrap.LeadEmailConfig(cfg), logger)

	repo, closeRepo, err := bootstrap.BuildLeadsRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	leadsHandler := leads.NewHandler(repo, logger).WithObserver(leadMetrics)
	if cfg.NotifyOnCapture {
		leadsHandler = leadsHandler.WithCreatedHook(notifier)
		logger.Info("lead capture dispatches notifications in-process")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	limiter := bootstrap.BuildCaptureLimiter(cfg, redisClient)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	if local, ok := limiter.(*httpmiddleware.RateLimiter); ok {
		go local.Run(workerCtx)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		LeadWebhook:        handlers.NewLeadWebhookHandler(notifier, cfg.LeadWebhookSecret, logger).WithObserver(leadMetrics),
		CaptureLimiter:     limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
	})

	cleanup := func() {
		cancelWorkers()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		closeRepo()
	}
	return r, cleanup, nil
}

func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}
