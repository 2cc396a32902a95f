// Package config provides configuration for the companion service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// Config holds the service configuration.
type Config struct {
	AppEnv string

	// Server settings
	HTTPPort   int
	CORSOrigin string

	// Storage
	DatabaseURL string

	// Auth settings
	JWTSecret string
	JWTTTL    time.Duration

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Chat settings
	ChatMaxLength int
	ChatRate      float64
	ChatBurst     int

	// How often the in-memory trigger list is reloaded
	TriggerRefresh time.Duration

	// Economy
	DefaultMaxBalance decimal.Decimal

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables, preloading .env when
// present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		HTTPPort:          getEnvInt("HTTP_PORT", 3000),
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://localhost:5173"),
		DatabaseURL:       getEnv("DATABASE_URL", "companion.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            time.Duration(getEnvInt("JWT_TTL_HOURS", 168)) * time.Hour,
		PingInterval:      time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:      time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:       time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:    int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		ChatMaxLength:     getEnvInt("CHAT_MAX_LENGTH", 500),
		ChatRate:          getEnvFloat("CHAT_RATE_PER_SEC", 2),
		ChatBurst:         getEnvInt("CHAT_BURST", 5),
		TriggerRefresh:    time.Duration(getEnvInt("TRIGGER_REFRESH_MS", 5000)) * time.Millisecond,
		DefaultMaxBalance: getEnvDecimal("DEFAULT_MAX_BALANCE", decimal.NewFromInt(1000000000)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.DefaultMaxBalance.IsNegative() {
		return errors.New("DEFAULT_MAX_BALANCE must not be negative")
	}
	if err := domain.CheckAmount(c.DefaultMaxBalance); err != nil {
		return fmt.Errorf("DEFAULT_MAX_BALANCE: %w", err)
	}
	if c.TriggerRefresh <= 0 {
		c.TriggerRefresh = 5 * time.Second
	}
	if c.ChatMaxLength <= 0 {
		return errors.New("CHAT_MAX_LENGTH must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}
