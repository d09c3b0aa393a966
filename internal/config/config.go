package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Email delivery
	EmailProvider       string
	ResendAPIKey        string
	ResendBaseURL       string
	SendGridAPIKey      string
	LeadEmailFrom       string
	LeadEmailTo         string
	WhatsAppCountryCode string

	// Lead webhook and capture
	LeadWebhookSecret        string
	NotifyOnCapture          bool
	CORSAllowedOrigins       []string
	LeadCaptureRatePerMinute int
	AdminJWTSecret           string
	DatabaseURL              string
	DatabaseMaxConns         int
	RedisAddr                string
	RedisPassword            string
	RedisTLS                 bool

	// AWS (SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables. A local .env file is
// applied first when present; real environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "resend"))),
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		ResendBaseURL:       getEnv("RESEND_BASE_URL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		LeadEmailFrom:       getEnv("LEAD_EMAIL_FROM", "Cadran <onboarding@resend.dev>"),
		LeadEmailTo:         getEnv("LEAD_EMAIL_TO", "contato@cadran.com.br"),
		WhatsAppCountryCode: getEnv("WHATSAPP_COUNTRY_CODE", "55"),

		LeadWebhookSecret:        getEnv("LEAD_WEBHOOK_SECRET", ""),
		NotifyOnCapture:          getEnvAsBool("NOTIFY_ON_CAPTURE", false),
		CORSAllowedOrigins:       getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		LeadCaptureRatePerMinute: getEnvAsInt("LEAD_CAPTURE_RATE_PER_MINUTE", 10),
		AdminJWTSecret:           getEnv("ADMIN_JWT_SECRET", ""),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:         getEnvAsInt("DATABASE_MAX_CONNS", 4),
		RedisAddr:                getEnv("REDIS_ADDR", ""),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                 getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
