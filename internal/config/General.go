package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AdminAddress is the protocol admin for every component.
	AdminAddress string

	// TokenName and TokenSymbol label the standardized yield token series.
	TokenName   string
	TokenSymbol string

	// WebPort is the port the read-only HTTP API listens on.
	WebPort string

	// DBHost, DBPort, DBUser, DBPassword, DBName, DBSSLMode configure the
	// PostgreSQL audit store.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AdminAddress, err = getEnv("MARLIN_ADMIN_ADDRESS")
	if err != nil {
		return err
	}

	TokenName, err = getEnv("MARLIN_TOKEN_NAME")
	if err != nil {
		return err
	}

	TokenSymbol, err = getEnv("MARLIN_TOKEN_SYMBOL")
	if err != nil {
		return err
	}

	WebPort, err = getEnv("MARLIN_WEB_PORT")
	if err != nil {
		return err
	}

	DBHost, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}

	DBPort, err = getEnvAsInt("DB_PORT")
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode, err = getEnv("DB_SSLMODE")
	if err != nil {
		return err
	}

	log.Debug().
		Str("AdminAddress", AdminAddress).
		Str("TokenSymbol", TokenSymbol).
		Str("WebPort", WebPort).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
