package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Custody  CustodyConfig
	Scoring  ScoringConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret            string
	InitialMemberGrant   decimal.Decimal
	MaxRedemptionPerUser decimal.Decimal
	MaxDailyRedemptions  decimal.Decimal
}

// CustodyConfig holds settlement rail settings
type CustodyConfig struct {
	Network     string
	MintAddress string
	PrivateKey  string
}

// ScoringConfig holds proposal screening service settings. An empty
// endpoint falls back to the static engine.
type ScoringConfig struct {
	Endpoint string
	APIKey   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	initialGrant, err := decimal.NewFromString(getEnv("INITIAL_MEMBER_GRANT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_MEMBER_GRANT: %w", err)
	}
	perUserCap, err := decimal.NewFromString(getEnv("MAX_REDEMPTION_PER_USER", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_REDEMPTION_PER_USER: %w", err)
	}
	dailyCap, err := decimal.NewFromString(getEnv("MAX_DAILY_REDEMPTIONS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DAILY_REDEMPTIONS: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "coopfund"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			InitialMemberGrant:   initialGrant,
			MaxRedemptionPerUser: perUserCap,
			MaxDailyRedemptions:  dailyCap,
		},
		Custody: CustodyConfig{
			Network:     getEnv("CUSTODY_NETWORK", "devnet"),
			MintAddress: getEnv("CUSTODY_MINT_ADDRESS", ""),
			PrivateKey:  getEnv("CUSTODY_PRIVATE_KEY", ""),
		},
		Scoring: ScoringConfig{
			Endpoint: getEnv("SCORING_ENDPOINT", ""),
			APIKey:   getEnv("SCORING_API_KEY", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
