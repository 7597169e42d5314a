package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/ig-lead-funnel/cmd/mainconfig"
	"github.com/wolfman30/ig-lead-funnel/internal/api/router"
	"github.com/wolfman30/ig-lead-funnel/internal/app/bootstrap"
	"github.com/wolfman30/ig-lead-funnel/internal/channels/instagram"
	appconfig "github.com/wolfman30/ig-lead-funnel/internal/config"
	"github.com/wolfman30/ig-lead-funnel/internal/events"
	"github.com/wolfman30/ig-lead-funnel/internal/fanout"
	httpmiddleware "github.com/wolfman30/ig-lead-funnel/internal/http/middleware"
	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

const prunerInterval = time.Hour

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting ig-lead-funnel API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	metricsHandler, funnelMetrics := setupMetrics()

	pool, err := connectPostgresPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	var repo leads.Repository
	var processed *events.ProcessedStore
	if pool != nil {
		repo = leads.NewPostgresRepository(pool)
		processed = events.NewProcessedStore(pool)
	} else {
		logger.Warn("using in-memory lead store; leads are lost on restart")
		repo = leads.NewInMemoryRepository()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, cfg.DedupBackend == appconfig.DedupRedis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	var marker instagram.ProcessedMarker
	if processed != nil {
		marker = processed
		if cfg.DedupBackend == appconfig.DedupPostgres {
			go bootstrap.RunPruner(ctx, processed, prunerInterval, cfg.DedupTTL, logger)
		}
	}
	deduper := bootstrap.BuildDeduper(cfg, redisClient, marker, logger)

	clients, err := setupAWSClients(ctx, cfg, logger)
	if err != nil {
		return err
	}
	sinks := bootstrap.BuildSinks(cfg, clients, logger)
	dispatcher := fanout.NewDispatcher(cfg.SinkTimeout, logger, funnelMetrics, sinks...)
	logger.Info("lead fan-out ready", "sinks", dispatcher.Sinks())

	adapter := instagram.NewAdapter(instagram.AdapterConfig{
		AccessToken:      cfg.MetaAccessToken,
		AppSecret:        cfg.MetaAppSecret,
		VerifyToken:      cfg.MetaVerifyToken,
		GraphAPIBase:     cfg.MetaGraphAPIBase,
		PublicBaseURL:    cfg.PublicBaseURL,
		Campaign:         cfg.DMCampaign,
		DMTimeout:        cfg.DMTimeout,
		ProcessingBudget: cfg.WebhookProcessingBudget,
		MaxBodyBytes:     cfg.WebhookMaxBodyBytes,
		Deduper:          deduper,
		Metrics:          funnelMetrics,
		Logger:           logger,
	})

	leadsHandler := leads.NewHandler(leads.HandlerConfig{
		Repo:         repo,
		Notifier:     dispatcher,
		ThankYouPath: cfg.ThankYouPath,
		Metrics:      funnelMetrics,
		Logger:       logger,
	})

	limiter := httpmiddleware.NewRateLimiter(cfg.IntakeRatePerSec, cfg.IntakeRateBurst)
	go limiter.Run(ctx)

	handler := router.New(&router.Config{
		Logger:              logger,
		Instagram:           adapter,
		LeadsHandler:        leadsHandler,
		IntakeLimiter:       limiter,
		AdminToken:          cfg.AdminAccessToken,
		AdminAllowedOrigins: cfg.AdminAllowedOrigins,
		MetricsHandler:      metricsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      serverWriteTimeout(cfg),
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// setupMetrics registers the funnel collectors plus the Go runtime and
// process collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.FunnelMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewFunnelMetrics(reg)
}

// connectPostgresPool returns nil when the memory store is selected.
func connectPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg.UseMemoryStore || cfg.DatabaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// setupAWSClients only touches the AWS SDK when a sink needs it.
func setupAWSClients(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bootstrap.SinkClients, error) {
	needS3 := cfg.LeadsArchiveBucket != ""
	needSES := cfg.LeadNotifyEmail != "" && cfg.SendGridAPIKey == "" && cfg.SESFromEmail != ""
	if !needS3 && !needSES {
		return bootstrap.SinkClients{}, nil
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return bootstrap.SinkClients{}, fmt.Errorf("load aws config: %w", err)
	}

	var clients bootstrap.SinkClients
	if needS3 {
		clients.S3 = mainconfig.NewS3Client(awsCfg)
		logger.Info("lead archive enabled", "bucket", cfg.LeadsArchiveBucket)
	}
	if needSES {
		clients.SES = mainconfig.NewSESClient(awsCfg)
	}
	return clients, nil
}

// serverWriteTimeout leaves room for the webhook budget and the sink fan-out,
// which both run before the response is written.
func serverWriteTimeout(cfg *appconfig.Config) time.Duration {
	budget := cfg.WebhookProcessingBudget
	if cfg.SinkTimeout > budget {
		budget = cfg.SinkTimeout
	}
	return budget + 5*time.Second
}
