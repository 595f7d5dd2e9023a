// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// WebhookConfig provides settings for the calendar webhook ingestor.
type WebhookConfig interface {
	GetCalendarWebhookSecret() string
}

// GatewayConfig provides settings for the payment gateway client.
type GatewayConfig interface {
	GetGatewayBaseURL() string
	GetGatewaySecretKey() string
	GetGatewayCallbackURL() string
	IsGatewayEnabled() bool
}

// BillingConfig provides pricing and invoicing defaults.
type BillingConfig interface {
	GetDefaultCurrency() string
	GetInvoiceDueDays() int
	GetProposalValidDays() int
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketInvoiceDocuments() string
	IsMinIOEnabled() bool
}

// PDFConfig provides settings for the Gotenberg HTML-to-PDF service.
type PDFConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration, loaded once at startup.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	CalendarWebhookSecret string

	GatewayBaseURL     string
	GatewaySecretKey   string
	GatewayCallbackURL string

	DefaultCurrency   string
	InvoiceDueDays    int
	ProposalValidDays int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinioBucketInvoiceDocuments string

	GotenbergURL      string
	GotenbergUsername string
	GotenbergPassword string
}

// Load reads configuration from the environment, falling back to a local
// .env file during development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "LivingRite Care"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		CalendarWebhookSecret: getEnv("CALENDAR_WEBHOOK_SECRET", ""),

		GatewayBaseURL:     getEnv("PAYMENT_GATEWAY_URL", "https://api.paystack.co"),
		GatewaySecretKey:   getEnv("PAYMENT_GATEWAY_SECRET_KEY", ""),
		GatewayCallbackURL: getEnv("PAYMENT_GATEWAY_CALLBACK_URL", ""),

		DefaultCurrency:   getEnv("DEFAULT_CURRENCY", "NGN"),
		InvoiceDueDays:    mustInt(getEnv("INVOICE_DUE_DAYS", "14")),
		ProposalValidDays: mustInt(getEnv("PROPOSAL_VALID_DAYS", "30")),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		MinIOEndpoint:               getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:              getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:              getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                 strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketInvoiceDocuments: getEnv("MINIO_BUCKET_INVOICE_DOCUMENTS", "invoice-documents"),

		GotenbergURL:      getEnv("GOTENBERG_URL", ""),
		GotenbergUsername: getEnv("GOTENBERG_USERNAME", ""),
		GotenbergPassword: getEnv("GOTENBERG_PASSWORD", ""),
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

func (c *Config) GetCalendarWebhookSecret() string { return c.CalendarWebhookSecret }

func (c *Config) GetGatewayBaseURL() string     { return c.GatewayBaseURL }
func (c *Config) GetGatewaySecretKey() string   { return c.GatewaySecretKey }
func (c *Config) GetGatewayCallbackURL() string { return c.GatewayCallbackURL }
func (c *Config) IsGatewayEnabled() bool        { return c.GatewaySecretKey != "" }

func (c *Config) GetDefaultCurrency() string { return c.DefaultCurrency }
func (c *Config) GetInvoiceDueDays() int     { return c.InvoiceDueDays }
func (c *Config) GetProposalValidDays() int  { return c.ProposalValidDays }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetMinIOEndpoint() string               { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string              { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string              { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                   { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketInvoiceDocuments() string { return c.MinioBucketInvoiceDocuments }
func (c *Config) IsMinIOEnabled() bool                   { return c.MinIOEndpoint != "" }

func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustInt(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
