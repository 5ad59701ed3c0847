package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Cache     CacheConfig
	Mail      MailConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	S3        S3Config
	Kafka     KafkaConfig
	Seed      SeedConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds token and account configuration.
type AuthConfig struct {
	JWTSecret           string
	TokenTTL            time.Duration
	AdminSecretCode     string
	RequireVerifiedMail bool
}

// CacheConfig selects the cache backend and per-resource TTLs.
type CacheConfig struct {
	Driver      string // "memory" or "redis"
	RedisURL    string
	ProductsTTL time.Duration
	CartsTTL    time.Duration
	OrdersTTL   time.Duration
	UsersTTL    time.Duration
}

// MailConfig holds outbound email configuration.
type MailConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
}

// OTPConfig holds one-time code settings.
type OTPConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	SweepInterval time.Duration
}

// RateLimitConfig holds per-client request budgets over Window.
type RateLimitConfig struct {
	Enabled     bool
	Window      time.Duration
	GeneralMax  int
	AuthMax     int
	ModerateMax int
}

// S3Config holds AWS S3 configuration for product images and catalog seeds.
type S3Config struct {
	Enabled       bool
	Bucket        string
	Region        string
	Prefix        string // Path prefix within bucket (e.g., "products/")
	PublicBaseURL string
	PresignTTL    time.Duration
}

// KafkaConfig holds order event publishing configuration.
type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	OrderTopic string
}

// SeedConfig points at an optional catalog seed file.
type SeedConfig struct {
	CatalogPath string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "eato"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			TokenTTL:            getEnvAsDuration("JWT_TTL", 28*24*time.Hour),
			AdminSecretCode:     getEnv("ADMIN_SECRET_CODE", ""),
			RequireVerifiedMail: getEnvAsBool("AUTH_REQUIRE_VERIFIED_EMAIL", false),
		},
		Cache: CacheConfig{
			Driver:      getEnv("CACHE_DRIVER", "memory"),
			RedisURL:    getEnv("REDIS_URL", ""),
			ProductsTTL: getEnvAsDuration("CACHE_TTL_PRODUCTS", 6*time.Hour),
			CartsTTL:    getEnvAsDuration("CACHE_TTL_CARTS", 15*time.Minute),
			OrdersTTL:   getEnvAsDuration("CACHE_TTL_ORDERS", time.Hour),
			UsersTTL:    getEnvAsDuration("CACHE_TTL_USERS", time.Hour),
		},
		Mail: MailConfig{
			Enabled:    getEnvAsBool("SMTP_ENABLED", false),
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USER", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("MAIL_FROM", "no-reply@eato.local"),
			SenderName: getEnv("MAIL_SENDER_NAME", "Eato Team"),
		},
		OTP: OTPConfig{
			TTL:           getEnvAsDuration("OTP_TTL", 10*time.Minute),
			MaxAttempts:   getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
			SweepInterval: getEnvAsDuration("OTP_SWEEP_INTERVAL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Window:      getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			GeneralMax:  getEnvAsInt("RATE_LIMIT_GENERAL_MAX", 100),
			AuthMax:     getEnvAsInt("RATE_LIMIT_AUTH_MAX", 20),
			ModerateMax: getEnvAsInt("RATE_LIMIT_MODERATE_MAX", 50),
		},
		S3: S3Config{
			Enabled:       getEnvAsBool("S3_ENABLED", false),
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Prefix:        getEnv("S3_PREFIX", "products/"),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
			PresignTTL:    getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:    getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:    getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		},
		Seed: SeedConfig{
			CatalogPath: getEnv("CATALOG_SEED_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required when cache driver is redis")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s (must be memory or redis)", c.Cache.Driver)
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			return fmt.Errorf("SMTP host is required when SMTP is enabled")
		}
		if c.Mail.Port < 1 || c.Mail.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Mail.Port)
		}
	}

	if c.OTP.MaxAttempts < 1 {
		return fmt.Errorf("OTP max attempts must be at least 1")
	}

	if c.OTP.TTL <= 0 || c.OTP.SweepInterval <= 0 {
		return fmt.Errorf("OTP TTL and sweep interval must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.GeneralMax < 1 || c.RateLimit.AuthMax < 1 || c.RateLimit.ModerateMax < 1 {
			return fmt.Errorf("rate limit maxima must be at least 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.OrderTopic == "" {
			return fmt.Errorf("kafka order topic is required when kafka is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the SMTP server address.
func (c *MailConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// ("15m", "6h") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable or returns a default value.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
