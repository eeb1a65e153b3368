/*

This file manages the persistent global conversion counter. The counter is
stored in the database so the running total survives restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureConversionCounterTable creates the conversion_counter table if it doesn't exist
func ensureConversionCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS conversion_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			total_conversions INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO conversion_counter (id, total_conversions)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create conversion_counter table: %w", err)
	}

	log.Debug().Msg("Ensured conversion_counter table exists")
	return nil
}

// GetTotalConversions retrieves the persisted conversion total.
func GetTotalConversions() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureConversionCounterTable(); err != nil {
		return 0, err
	}

	query := `SELECT total_conversions FROM conversion_counter WHERE id = 1;`

	var total int
	row := DB.QueryRow(query)
	err := row.Scan(&total)

	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn().Msg("No conversion counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get total conversions: %w", err)
	}

	return total, nil
}

// IncrementConversionCounter increments the counter and returns the new value.
func IncrementConversionCounter() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureConversionCounterTable(); err != nil {
		return 0, err
	}

	updateSQL := `
		UPDATE conversion_counter
		SET total_conversions = total_conversions + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING total_conversions;
	`

	var newTotal int
	err := DB.QueryRow(updateSQL).Scan(&newTotal)
	if err != nil {
		return 0, fmt.Errorf("failed to increment conversion counter: %w", err)
	}

	log.Debug().Int("totalConversions", newTotal).Msg("Incremented conversion counter")
	return newTotal, nil
}
