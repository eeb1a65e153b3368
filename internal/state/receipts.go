package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tesserapt/marlin/internal/types"
)

// SaveConversionReceipt persists an executed conversion for the audit trail.
func SaveConversionReceipt(receipt types.ConversionReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO conversion_receipts
			(receipt_id, user_address, caller_address, yt_converted, fee_paid, pt_received, oracle_price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := DB.Exec(insertSQL,
		receipt.ID,
		string(receipt.User),
		string(receipt.Caller),
		int64(receipt.YTConverted),
		int64(receipt.FeePaid),
		int64(receipt.PTReceived),
		int64(receipt.OraclePrice),
		receipt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion receipt: %w", err)
	}

	log.Debug().Str("receipt_id", receipt.ID).Msg("Conversion receipt saved")
	return nil
}

// GetRecentConversions retrieves recent conversion receipts, newest first.
func GetRecentConversions(limit int) ([]types.ConversionReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `
		SELECT receipt_id, user_address, caller_address, yt_converted, fee_paid, pt_received, oracle_price, executed_at
		FROM conversion_receipts
		ORDER BY executed_at DESC
		LIMIT $1
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent conversions")
		return nil, fmt.Errorf("failed to query recent conversions: %w", err)
	}
	defer rows.Close()

	var receipts []types.ConversionReceipt
	for rows.Next() {
		var r types.ConversionReceipt
		var user, caller string
		var ytConverted, feePaid, ptReceived, price int64
		if err := rows.Scan(&r.ID, &user, &caller, &ytConverted, &feePaid, &ptReceived, &price, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		r.User = types.Address(user)
		r.Caller = types.Address(caller)
		r.YTConverted = uint64(ytConverted)
		r.FeePaid = uint64(feePaid)
		r.PTReceived = uint64(ptReceived)
		r.OraclePrice = uint64(price)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt rows: %w", err)
	}
	return receipts, nil
}
