package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Pricing  PricingConfig
	Snapshot SnapshotConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PricingConfig holds market data feed configuration.
//
// RefreshCutoffHour anchors the once-per-day refresh policy to a fixed
// wall-clock hour rather than a rolling 24h window: a refresh at 07:00 and
// another at 23:00 the same day both count as "already done for today".
type PricingConfig struct {
	FeedBaseURL       string
	APIKey            string // plaintext key from env; the encrypted DB setting wins if present
	SecretKey         string // fernet key used to encrypt the stored API credential
	RefreshCutoffHour int
	BaseCurrency      string
	ForeignCurrency   string
}

// SnapshotConfig holds the cron schedules for periodic snapshots.
type SnapshotConfig struct {
	MonthlySpec string
	YearlySpec  string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cutoffHour, err := strconv.Atoi(getEnv("PRICE_REFRESH_CUTOFF_HOUR", "6"))
	if err != nil || cutoffHour < 0 || cutoffHour > 23 {
		return nil, fmt.Errorf("invalid PRICE_REFRESH_CUTOFF_HOUR: %v", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/nido.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Pricing: PricingConfig{
			FeedBaseURL:       getEnv("PRICE_FEED_URL", "https://api.nido-prices.example.com"),
			APIKey:            getEnv("PRICE_FEED_API_KEY", ""),
			SecretKey:         getEnv("PRICE_FEED_SECRET_KEY", ""),
			RefreshCutoffHour: cutoffHour,
			BaseCurrency:      getEnv("BASE_CURRENCY", "COP"),
			ForeignCurrency:   getEnv("FOREIGN_CURRENCY", "USD"),
		},
		Snapshot: SnapshotConfig{
			MonthlySpec: getEnv("SNAPSHOT_MONTHLY_CRON", "0 7 1 * *"),
			YearlySpec:  getEnv("SNAPSHOT_YEARLY_CRON", "0 7 1 1 *"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
