package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dedup backends accepted by DEDUP_BACKEND.
const (
	DedupNone     = "none"
	DedupRedis    = "redis"
	DedupPostgres = "postgres"
)

// Config holds application configuration. It is built once at startup and
// passed by reference into each component.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Meta / Instagram
	MetaAppSecret           string
	MetaVerifyToken         string
	MetaAccessToken         string
	MetaGraphAPIBase        string
	DMCampaign              string
	DMTimeout               time.Duration
	WebhookProcessingBudget time.Duration
	WebhookMaxBodyBytes     int64

	// Lead store
	DatabaseURL    string
	UseMemoryStore bool

	// Intake + admin
	AdminAccessToken    string
	AdminAllowedOrigins []string
	ThankYouPath        string
	IntakeRatePerSec    float64
	IntakeRateBurst     int
	SinkTimeout         time.Duration

	// Google Sheets sink
	SheetsServiceAccountEmail string
	SheetsPrivateKey          string
	SheetsSpreadsheetID       string
	SheetsRange               string
	SheetsTokenURL            string

	// Brevo contact sink
	BrevoAPIKey  string
	BrevoListID  string
	BrevoBaseURL string

	// SendGrid contact + email
	SendGridAPIKey        string
	SendGridContactListID string
	SendGridFromEmail     string
	SendGridFromName      string

	// Lead notification + archive
	LeadNotifyEmail    string
	SESFromEmail       string
	LeadsArchiveBucket string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Comment dedup
	DedupBackend  string
	DedupTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding the real environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_APP_BASE_URL", ""), "/"),

		MetaAppSecret:           getEnv("META_APP_SECRET", ""),
		MetaVerifyToken:         getEnv("META_VERIFY_TOKEN", ""),
		MetaAccessToken:         getEnv("META_APP_ACCESS_TOKEN", ""),
		MetaGraphAPIBase:        getEnv("META_GRAPH_API_BASE", "https://graph.facebook.com/v22.0"),
		DMCampaign:              getEnv("DM_CAMPAIGN", "ig_comment_automation"),
		DMTimeout:               getEnvAsDuration("DM_TIMEOUT", 5*time.Second),
		WebhookProcessingBudget: getEnvAsDuration("WEBHOOK_PROCESSING_BUDGET", 10*time.Second),
		WebhookMaxBodyBytes:     int64(getEnvAsInt("WEBHOOK_MAX_BODY_BYTES", 1<<20)),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),

		AdminAccessToken:    getEnv("ADMIN_ACCESS_TOKEN", ""),
		AdminAllowedOrigins: getEnvAsList("ADMIN_ALLOWED_ORIGINS"),
		ThankYouPath:        getEnv("THANK_YOU_PATH", "/thank-you"),
		IntakeRatePerSec:    getEnvAsFloat("INTAKE_RATE_PER_SEC", 1),
		IntakeRateBurst:     getEnvAsInt("INTAKE_RATE_BURST", 5),
		SinkTimeout:         getEnvAsDuration("SINK_TIMEOUT", 8*time.Second),

		SheetsServiceAccountEmail: getEnv("GOOGLE_SHEETS_SERVICE_ACCOUNT_EMAIL", ""),
		// Keys pasted into env files usually carry literal \n sequences.
		SheetsPrivateKey:    strings.ReplaceAll(getEnv("GOOGLE_SHEETS_PRIVATE_KEY", ""), `\n`, "\n"),
		SheetsSpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:         getEnv("GOOGLE_SHEETS_RANGE", "Sheet1!A1"),
		SheetsTokenURL:      getEnv("GOOGLE_SHEETS_TOKEN_URL", ""),

		BrevoAPIKey:  getEnv("BREVO_API_KEY", ""),
		BrevoListID:  getEnv("BREVO_LIST_ID", ""),
		BrevoBaseURL: getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"),

		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridContactListID: getEnv("SENDGRID_CONTACT_LIST_ID", ""),
		SendGridFromEmail:     getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:      getEnv("SENDGRID_FROM_NAME", "Lead Funnel"),

		LeadNotifyEmail:    getEnv("LEAD_NOTIFY_EMAIL", ""),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),
		LeadsArchiveBucket: getEnv("LEADS_ARCHIVE_BUCKET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DedupBackend:  strings.ToLower(strings.TrimSpace(getEnv("DEDUP_BACKEND", DedupNone))),
		DedupTTL:      getEnvAsDuration("DEDUP_TTL", 24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// Validate checks the keys the server cannot run without. Every problem is
// reported at once so a misconfigured deploy fails on the first boot.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	require(c.MetaAppSecret, "META_APP_SECRET")
	require(c.MetaVerifyToken, "META_VERIFY_TOKEN")
	require(c.MetaAccessToken, "META_APP_ACCESS_TOKEN")
	require(c.AdminAccessToken, "ADMIN_ACCESS_TOKEN")
	require(c.PublicBaseURL, "PUBLIC_APP_BASE_URL")
	if c.PublicBaseURL != "" {
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_APP_BASE_URL must be an absolute URL"))
		}
	}
	if !c.UseMemoryStore {
		require(c.DatabaseURL, "DATABASE_URL")
	}
	if c.BrevoListID != "" {
		if _, err := strconv.ParseInt(c.BrevoListID, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("BREVO_LIST_ID must be numeric"))
		}
	}
	switch c.DedupBackend {
	case DedupNone, "":
	case DedupRedis:
		require(c.RedisAddr, "REDIS_ADDR")
	case DedupPostgres:
		if c.UseMemoryStore {
			errs = append(errs, fmt.Errorf("DEDUP_BACKEND=postgres needs DATABASE_URL and USE_MEMORY_STORE=false"))
		}
	default:
		errs = append(errs, fmt.Errorf("DEDUP_BACKEND %q is not one of none, redis, postgres", c.DedupBackend))
	}
	if c.DMTimeout <= 0 || c.SinkTimeout <= 0 || c.WebhookProcessingBudget <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}

	return errors.Join(errs...)
}

// SheetsEnabled reports whether the spreadsheet sink has everything it needs.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsServiceAccountEmail != "" && c.SheetsPrivateKey != "" && c.SheetsSpreadsheetID != ""
}

// BrevoEnabled reports whether the Brevo contact sink is configured.
func (c *Config) BrevoEnabled() bool {
	return c.BrevoAPIKey != "" && c.BrevoListID != ""
}

// BrevoListIDInt is the numeric list id, or 0 when unset or malformed.
func (c *Config) BrevoListIDInt() int {
	id, err := strconv.Atoi(c.BrevoListID)
	if err != nil {
		return 0
	}
	return id
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
