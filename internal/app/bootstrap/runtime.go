package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/cadranhq/cadran-platform/internal/config"
	httpmiddleware "github.com/cadranhq/cadran-platform/internal/http/middleware"
	"github.com/cadranhq/cadran-platform/internal/leads"
	"github.com/cadranhq/cadran-platform/internal/notify"
	"github.com/cadranhq/cadran-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCaptureLimiter picks the shared Redis limiter when Redis is up and the
// in-process token bucket otherwise. A non-positive rate disables limiting.
func BuildCaptureLimiter(cfg *appconfig.Config, redisClient *redis.Client) httpmiddleware.Limiter {
	if cfg == nil || cfg.LeadCaptureRatePerMinute <= 0 {
		return nil
	}
	if redisClient != nil {
		return httpmiddleware.NewRedisRateLimiter(redisClient, "ratelimit:leads", cfg.LeadCaptureRatePerMinute, time.Minute)
	}
	return httpmiddleware.NewPerMinuteRateLimiter(cfg.LeadCaptureRatePerMinute)
}

// BuildLeadsRepository returns a Postgres repository when DATABASE_URL is set
// and an in-memory one otherwise. The returned close func is never nil.
func BuildLeadsRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (leads.Repository, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; leads are kept in memory")
		return leads.NewInMemoryRepository(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	if cfg.DatabaseMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DatabaseMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping database: %w", err)
	}
	return leads.NewPostgresRepository(pool), pool.Close, nil
}

// LeadEmailConfig extracts the fixed notification envelope from config.
func LeadEmailConfig(cfg *appconfig.Config) notify.LeadEmailConfig {
	return notify.LeadEmailConfig{
		From:                cfg.LeadEmailFrom,
		To:                  cfg.LeadEmailTo,
		WhatsAppCountryCode: cfg.WhatsAppCountryCode,
	}
}

// BuildEmailSender selects the configured provider and instruments it. ses is
// only consulted for EMAIL_PROVIDER=ses.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, observer notify.SendObserver, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	sender, err := notify.NewSender(notify.SenderOptions{
		Provider:       cfg.EmailProvider,
		ResendAPIKey:   cfg.ResendAPIKey,
		ResendBaseURL:  cfg.ResendBaseURL,
		SendGridAPIKey: cfg.SendGridAPIKey,
		DefaultFrom:    cfg.LeadEmailFrom,
		SES:            ses,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: email sender: %w", err)
	}
	provider := cfg.EmailProvider
	if provider == "" {
		provider = notify.ProviderResend
	}
	if provider == notify.ProviderResend && strings.TrimSpace(cfg.ResendAPIKey) == "" {
		logger.Warn("RESEND_API_KEY not set; lead notifications will fail with a provider error")
	}
	logger.Info("email sender configured", "provider", provider)
	return notify.Instrument(sender, provider, observer), nil
}
