package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Internal  InternalConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	AutoMigrate     bool
}

// SessionConfig describes the session credential shared with the storefront.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
}

// RateLimitConfig holds HTTP rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	PollRPS           float64 // Stricter limit for polling endpoints
	PollBurst         int
}

// WebSocketConfig holds live channel configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	SendBufferSize  int
	InboundRPS      float64
	InboundBurst    int
}

// InternalConfig guards the ingestion endpoint used by order processing.
type InternalConfig struct {
	APIKey string
}

// KafkaConfig configures the order transition consumer
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

// RedisConfig configures the cross-instance event relay
type RedisConfig struct {
	Enabled bool
	URL     string
	Channel string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:     getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        getIntOrDefault("DB_MAX_CONNS", 25),
			MinConns:        getIntOrDefault("DB_MIN_CONNS", 2),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnvOrDefault("DB_MIGRATIONS_PATH", "file://migrations"),
			AutoMigrate:     getBoolOrDefault("DB_AUTO_MIGRATE", false),
		},
		Session: SessionConfig{
			Secret:     os.Getenv("SESSION_SECRET"),
			CookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "dk_session"),
			TTL:        getDurationOrDefault("SESSION_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			PollRPS:           getFloatOrDefault("RATE_LIMIT_POLL_RPS", 1),
			PollBurst:         getIntOrDefault("RATE_LIMIT_POLL_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:    getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
			WriteWait:       getDurationOrDefault("WS_WRITE_WAIT", 10*time.Second),
			MaxMessageSize:  int64(getIntOrDefault("WS_MAX_MESSAGE_SIZE", 1024)),
			SendBufferSize:  getIntOrDefault("WS_SEND_BUFFER_SIZE", 256),
			InboundRPS:      getFloatOrDefault("WS_INBOUND_RPS", 5),
			InboundBurst:    getIntOrDefault("WS_INBOUND_BURST", 10),
		},
		Internal: InternalConfig{
			APIKey: os.Getenv("INTERNAL_API_KEY"),
		},
		Kafka: KafkaConfig{
			Enabled: getBoolOrDefault("KAFKA_ENABLED", false),
			Brokers: getStringSliceOrDefault("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "order-transitions"),
			GroupID: getEnvOrDefault("KAFKA_GROUP_ID", "order-notify"),
		},
		Redis: RedisConfig{
			Enabled: getBoolOrDefault("REDIS_ENABLED", false),
			URL:     getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
			Channel: getEnvOrDefault("REDIS_CHANNEL", "order-notify:events"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "order-notify"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Session.Secret == "" {
		errs = append(errs, "SESSION_SECRET is required")
	}
	if c.Session.CookieName == "" {
		errs = append(errs, "SESSION_COOKIE_NAME must not be empty")
	}
	if c.Internal.APIKey == "" {
		errs = append(errs, "INTERNAL_API_KEY is required")
	}

	if c.App.Environment == "production" {
		if len(c.Session.Secret) < 32 {
			errs = append(errs, "SESSION_SECRET must be at least 32 characters in production")
		}
		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, "DB_MIN_CONNS cannot be greater than DB_MAX_CONNS")
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		errs = append(errs, "WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	}
	if c.WebSocket.SendBufferSize <= 0 {
		errs = append(errs, "WS_SEND_BUFFER_SIZE must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "KAFKA_BROKERS is required when KAFKA_ENABLED")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "KAFKA_TOPIC is required when KAFKA_ENABLED")
		}
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, "REDIS_URL is required when REDIS_ENABLED")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, Session: [REDACTED], Kafka: %v, Redis: %v, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.Kafka.Enabled,
		c.Redis.Enabled,
		c.App.Environment,
	)
}

// redactURL hides credentials in a connection URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
