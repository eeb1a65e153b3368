// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS price_history (
			price_id SERIAL PRIMARY KEY,
			price BIGINT NOT NULL,
			confidence INTEGER NOT NULL,
			updater VARCHAR(255) NOT NULL,
			price_timestamp BIGINT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_price_history_timestamp ON price_history(price_timestamp DESC);

		CREATE TABLE IF NOT EXISTS conversion_receipts (
			receipt_id UUID PRIMARY KEY,
			user_address VARCHAR(255) NOT NULL,
			caller_address VARCHAR(255) NOT NULL,
			yt_converted BIGINT NOT NULL,
			fee_paid BIGINT NOT NULL,
			pt_received BIGINT NOT NULL,
			oracle_price BIGINT NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversion_receipts_user ON conversion_receipts(user_address, executed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_conversion_receipts_timestamp ON conversion_receipts(executed_at DESC);
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := ensureConversionCounterTable(); err != nil {
		return err
	}

	log.Info().Msg("Database schema ensured")
	return nil
}

// TestDBConnection verifies the pool is usable.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
