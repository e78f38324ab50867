package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Verification
	LinkSigningKey string
	LinkIssuer     string
	OTPTTL         time.Duration
	OTPMaxAttempts int
	CleanupEvery   time.Duration

	// Sessions
	AnonymousSessionTTL   time.Duration
	ActivityTouchInterval time.Duration
	DefaultRedirectPath   string
	CookieSecure          bool
	CookieDomain          string

	// App
	AppBaseURL string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// SMS gateway
	SMSAPIURL string
	SMSAPIKey string
	SMSSender string
	SMSDryRun bool

	// Rate limiting
	RateLimit RateLimitConfig

	// Hardening
	SecurityHeaders    SecurityHeadersConfig
	MaxRequestBodySize int64
}

// RateLimitConfig holds per-endpoint-class rate limits.
type RateLimitConfig struct {
	Enabled                  bool
	RequestCodePerWindow     int
	RequestCodeWindowMinutes int
	VerifyCodePerWindow      int
	VerifyCodeWindowMinutes  int
	VerifyLinkPerWindow      int
	VerifyLinkWindowMinutes  int
}

// SecurityHeadersConfig holds response-hardening header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "schoolbell"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LinkSigningKey: getEnv("LINK_SIGNING_KEY", ""),
		LinkIssuer:     getEnv("LINK_ISSUER", "schoolbell-auth"),
		OTPTTL:         getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		CleanupEvery:   getEnvDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),

		AnonymousSessionTTL:   getEnvDuration("ANONYMOUS_SESSION_TTL", 24*time.Hour),
		ActivityTouchInterval: getEnvDuration("ACTIVITY_TOUCH_INTERVAL", 5*time.Minute),
		DefaultRedirectPath:   getEnv("DEFAULT_REDIRECT_PATH", "/dashboard/"),
		CookieSecure:          getEnvBool("COOKIE_SECURE", false),
		CookieDomain:          getEnv("COOKIE_DOMAIN", ""),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Schoolbell"),

		SMSAPIURL: getEnv("SMS_API_URL", ""),
		SMSAPIKey: getEnv("SMS_API_KEY", ""),
		SMSSender: getEnv("SMS_SENDER", ""),
		SMSDryRun: getEnvBool("SMS_DRY_RUN", true),

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestCodePerWindow:     getEnvInt("RATE_LIMIT_REQUEST_CODE", 5),
			RequestCodeWindowMinutes: getEnvInt("RATE_LIMIT_REQUEST_CODE_WINDOW", 10),
			VerifyCodePerWindow:      getEnvInt("RATE_LIMIT_VERIFY_CODE", 15),
			VerifyCodeWindowMinutes:  getEnvInt("RATE_LIMIT_VERIFY_CODE_WINDOW", 10),
			VerifyLinkPerWindow:      getEnvInt("RATE_LIMIT_VERIFY_LINK", 10),
			VerifyLinkWindowMinutes:  getEnvInt("RATE_LIMIT_VERIFY_LINK_WINDOW", 10),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
	}

	if cfg.LinkSigningKey == "" {
		return nil, fmt.Errorf("LINK_SIGNING_KEY is required")
	}
	if len(cfg.LinkSigningKey) < 32 {
		return nil, fmt.Errorf("LINK_SIGNING_KEY must be at least 32 characters")
	}

	return cfg, nil
}

// HasSMTP returns true if the email channel is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasSMS returns true if the SMS channel is configured (dry-run counts).
func (c *Config) HasSMS() bool {
	return c.SMSAPIURL != "" || c.SMSDryRun
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
