package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tesserapt/marlin/internal/types"
)

// RecordPriceUpdate appends an accepted oracle update to the history table.
func RecordPriceUpdate(point types.PricePoint) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO price_history (price, confidence, updater, price_timestamp)
		VALUES ($1, $2, $3, $4)
	`
	_, err := DB.Exec(insertSQL, int64(point.Value), int(point.Confidence), string(point.Updater), int64(point.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to record price update: %w", err)
	}

	log.Debug().Uint64("price", point.Value).Msg("Price update recorded")
	return nil
}

// GetPriceHistory retrieves the most recent accepted price updates.
func GetPriceHistory(limit int) ([]types.PricePoint, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT price, confidence, updater, price_timestamp
		FROM price_history
		ORDER BY price_timestamp DESC
		LIMIT $1
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query price history")
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []types.PricePoint
	for rows.Next() {
		var (
			price      int64
			confidence int
			updater    string
			timestamp  int64
		)
		if err := rows.Scan(&price, &confidence, &updater, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		points = append(points, types.PricePoint{
			Value:      uint64(price),
			Confidence: uint16(confidence),
			Updater:    types.Address(updater),
			Timestamp:  uint64(timestamp),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return points, nil
}
