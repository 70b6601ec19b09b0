package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration (partner service tokens)
	JWT JWTConfig

	// Reservation supplier configuration
	Supplier SupplierConfig

	// Confirmation polling policy
	Polling PollingConfig

	// Email configuration
	Email EmailConfig

	// SMS configuration
	SMS SMSConfig

	// Booking event publishing configuration
	Events EventsConfig

	// Pending booking reconciliation
	Reconciliation ReconciliationConfig

	// Finalize rate limiting
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret      string
	Issuer      string
	TokenExpiry time.Duration
}

// SupplierConfig holds reservation supplier configuration
type SupplierConfig struct {
	Mode           string // "sandbox" or "live"
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration // per call, must stay below Polling.Interval
	// SandboxConfirmAfter is the number of status checks the sandbox gateway
	// reports PROCESSING before it confirms.
	SandboxConfirmAfter int
}

// PollingConfig holds the confirmation polling policy
type PollingConfig struct {
	InitialDelay  time.Duration
	Interval      time.Duration
	MaxIterations int
}

// EmailConfig holds confirmation email configuration
type EmailConfig struct {
	Mode      string // "dev" logs messages, "production" sends through SendGrid
	APIKey    string
	FromEmail string
	FromName  string
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	Enabled  bool
	Mode     string // "dev" or "production"
	APIURL   string
	Username string
	Password string
	Mask     string
}

// EventsConfig holds SQS booking event configuration
type EventsConfig struct {
	Enabled   bool
	QueueURL  string
	AWSRegion string
}

// ReconciliationConfig holds the pending booking sweep configuration
type ReconciliationConfig struct {
	Enabled     bool
	Schedule    string // cron expression with seconds field
	GracePeriod time.Duration
	BatchSize   int
}

// RateLimitConfig holds finalize throttling configuration
type RateLimitConfig struct {
	Enabled            bool
	MaxPartnerRequests int
	PartnerWindow      time.Duration
	MaxIPRequests      int
	IPWindow           time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			Issuer:      getEnv("JWT_ISSUER", "booking-confirmation"),
			TokenExpiry: getEnvAsDuration("JWT_TOKEN_EXPIRY", 24*time.Hour),
		},
		Supplier: SupplierConfig{
			Mode:                getEnv("SUPPLIER_MODE", "sandbox"),
			BaseURL:             getEnv("SUPPLIER_BASE_URL", ""),
			APIKey:              getEnv("SUPPLIER_API_KEY", ""),
			RequestTimeout:      getEnvAsDuration("SUPPLIER_REQUEST_TIMEOUT", 4*time.Second),
			SandboxConfirmAfter: getEnvAsInt("SUPPLIER_SANDBOX_CONFIRM_AFTER", 2),
		},
		Polling: PollingConfig{
			InitialDelay:  getEnvAsDuration("POLL_INITIAL_DELAY", time.Second),
			Interval:      getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			MaxIterations: getEnvAsInt("POLL_MAX_ITERATIONS", 12),
		},
		Email: EmailConfig{
			Mode:      getEnv("EMAIL_MODE", "dev"),
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM_ADDRESS", "bookings@staybridge.example"),
			FromName:  getEnv("EMAIL_FROM_NAME", "StayBridge Bookings"),
		},
		SMS: SMSConfig{
			Enabled:  getEnvAsBool("SMS_ENABLED", false),
			Mode:     getEnv("SMS_MODE", "dev"),
			APIURL:   getEnv("SMS_API_URL", ""),
			Username: getEnv("SMS_USERNAME", ""),
			Password: getEnv("SMS_PASSWORD", ""),
			Mask:     getEnv("SMS_MASK", "StayBridge"),
		},
		Events: EventsConfig{
			Enabled:   getEnvAsBool("BOOKING_EVENTS_ENABLED", false),
			QueueURL:  getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
		Reconciliation: ReconciliationConfig{
			Enabled:     getEnvAsBool("RECONCILIATION_ENABLED", true),
			Schedule:    getEnv("RECONCILIATION_SCHEDULE", "0 */2 * * * *"),
			GracePeriod: getEnvAsDuration("RECONCILIATION_GRACE_PERIOD", 2*time.Minute),
			BatchSize:   getEnvAsInt("RECONCILIATION_BATCH_SIZE", 50),
		},
		RateLimit: RateLimitConfig{
			Enabled:            getEnvAsBool("FINALIZE_RATE_LIMIT_ENABLED", false),
			MaxPartnerRequests: getEnvAsInt("FINALIZE_MAX_PER_PARTNER", 600),
			PartnerWindow:      getEnvAsDuration("FINALIZE_PARTNER_WINDOW", time.Minute),
			MaxIPRequests:      getEnvAsInt("FINALIZE_MAX_PER_IP", 120),
			IPWindow:           getEnvAsDuration("FINALIZE_IP_WINDOW", time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Supplier.Mode {
	case "sandbox":
	case "live":
		if c.Supplier.BaseURL == "" {
			return fmt.Errorf("SUPPLIER_BASE_URL is required in live mode")
		}
		if c.Supplier.APIKey == "" {
			return fmt.Errorf("SUPPLIER_API_KEY is required in live mode")
		}
	default:
		return fmt.Errorf("invalid supplier mode: %s (must be 'sandbox' or 'live')", c.Supplier.Mode)
	}

	if c.Polling.MaxIterations < 1 {
		return fmt.Errorf("POLL_MAX_ITERATIONS must be at least 1")
	}

	// A single hung supplier call must never eat more than one poll slot.
	if c.Supplier.RequestTimeout <= 0 || c.Supplier.RequestTimeout >= c.Polling.Interval {
		return fmt.Errorf("SUPPLIER_REQUEST_TIMEOUT (%s) must be positive and shorter than POLL_INTERVAL (%s)",
			c.Supplier.RequestTimeout, c.Polling.Interval)
	}

	if c.Email.Mode == "production" && c.Email.APIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_MODE=production")
	}

	if c.SMS.Enabled && c.SMS.Mode == "production" {
		if c.SMS.APIURL == "" || c.SMS.Username == "" || c.SMS.Password == "" {
			return fmt.Errorf("SMS_API_URL, SMS_USERNAME and SMS_PASSWORD are required in production mode")
		}
	}

	if c.Events.Enabled && c.Events.QueueURL == "" {
		return fmt.Errorf("BOOKING_EVENTS_QUEUE_URL is required when booking events are enabled")
	}

	// The limiter counts audit rows
	if c.RateLimit.Enabled && !c.Security.EnableAuditLog {
		return fmt.Errorf("FINALIZE_RATE_LIMIT_ENABLED requires ENABLE_AUDIT_LOGGING")
	}

	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("5s", "2m") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
