/*

Types for the YT auto-converter: the per-user policy record and the receipt the
host persists after each successful conversion.

*/

package types

import "time"

// ConversionConfig is one user's auto-conversion policy. Executed is a
// one-shot latch cleared only by reconfiguration.
type ConversionConfig struct {
	Enabled        bool   `json:"enabled"`
	ThresholdPrice uint64 `json:"threshold_price"`
	Maturity       uint64 `json:"maturity"`
	Executed       bool   `json:"executed"`
}

// ConverterBalances is a user's YT/PT holdings inside the converter, separate
// from the splitter's ledgers.
type ConverterBalances struct {
	YT uint64 `json:"yt"`
	PT uint64 `json:"pt"`
}

// ConversionInfo is converter-wide state.
type ConversionInfo struct {
	FeeBps           uint64 `json:"fee_bps"`
	TotalConversions uint64 `json:"total_conversions"`
	Paused           bool   `json:"paused"`
}

// ConversionReceipt is the audit record written after a successful execution.
type ConversionReceipt struct {
	ID          string    `json:"id"`
	User        Address   `json:"user"`
	Caller      Address   `json:"caller"`
	YTConverted uint64    `json:"yt_converted"`
	FeePaid     uint64    `json:"fee_paid"`
	PTReceived  uint64    `json:"pt_received"`
	OraclePrice uint64    `json:"oracle_price"`
	Timestamp   time.Time `json:"timestamp"`
}
