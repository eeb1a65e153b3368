/*

Types for the validated price oracle: the single stored price point per tracked
asset and the optional alert threshold attached to it.

*/

package types

// Address identifies an authenticated caller. The host environment guarantees
// the sender address carried with a mutating call is authentic; the engine
// treats it as an opaque key.
type Address string

// ZeroAddress is the absent-caller sentinel. No balance map ever carries it.
const ZeroAddress Address = ""

// PricePoint is the last validated price for the tracked asset. Value of zero
// means no price has been submitted yet.
type PricePoint struct {
	Value      uint64  `json:"value"`
	Timestamp  uint64  `json:"timestamp"`
	Confidence uint16  `json:"confidence"` // basis points, 0-10000
	Updater    Address `json:"updater"`
}

// Threshold is an alert level watched by the oracle, independent of the stored
// price point.
type Threshold struct {
	Price  uint64  `json:"price"`
	Active bool    `json:"active"`
	Setter Address `json:"setter"`
}

// OracleStatus summarizes the oracle's gate flags for external consumers.
type OracleStatus struct {
	Paused               bool   `json:"paused"`
	CircuitBreakerActive bool   `json:"circuit_breaker_active"`
	UpdaterCount         int    `json:"updater_count"`
	HasPrice             bool   `json:"has_price"`
	Stale                bool   `json:"stale"`
	ThresholdActive      bool   `json:"threshold_active"`
	ThresholdPrice       uint64 `json:"threshold_price"`
}
