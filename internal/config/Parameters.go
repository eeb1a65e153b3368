/*

This file contains the default economic parameters for the protocol.

These parameters gate price updates, fees, and reward accrual. Each value has
been chosen to balance responsiveness against manipulation resistance.

*/

package config

// DefaultParameters provides the baseline protocol parameters used at startup.
var DefaultParameters = Parameters{
	// --- Oracle Parameters ---
	MaxDeviationBps: 1000, // Reject updates moving the price more than 10%.
	// Rationale: A single honest update rarely moves a liquid market 10% in
	// five minutes. Larger jumps are more likely fat-fingered or manipulated
	// feeds, and the circuit breaker exists for genuine dislocations.

	MinUpdateInterval: 300, // Accept at most one update per 5 minutes.
	// Rationale: Rate limiting caps the damage a compromised updater key can
	// do before the admin reacts, at the cost of slower price tracking.

	StalenessThreshold: 3600, // Treat prices older than 1 hour as unusable.
	// Rationale: Conversions priced off an hour-old quote transfer value to
	// whoever noticed the market moved first. Consumers must fail closed.

	// --- AMM Parameters ---
	SwapFeeRate: 3, // 0.3% swap fee, denominated per 1000.
	// Rationale: The standard constant-product fee. High enough to pay
	// liquidity providers for inventory risk, low enough to keep routing
	// competitive.

	// --- Staking Parameters ---
	RewardAmount:   5,  // Reward numerator per accrual interval.
	RewardInterval: 10, // Accrual interval in seconds.
	// Rationale: Together with the 1e9 precision factor this pays
	// 5 units per 10 seconds per 1e9 staked, a deliberately modest
	// emission that the treasury can sustain indefinitely.

	// --- Wrapper Parameters ---
	YieldRateBps: 500, // 5% advertised yield rate in basis points.
	// Rationale: A conservative headline rate for the standardized wrapper;
	// purely informational until underlying yield accounting lands.

	// --- Converter Parameters ---
	ConversionFeeBps: 30, // 0.3% conversion fee in basis points.
	// Rationale: Covers keeper gas and protocol revenue without making
	// small conversions uneconomical.
}

// Parameters bundles the tunable protocol constants.
type Parameters struct {
	MaxDeviationBps    uint64
	MinUpdateInterval  uint64
	StalenessThreshold uint64
	SwapFeeRate        uint64
	RewardAmount       uint64
	RewardInterval     uint64
	YieldRateBps       uint64
	ConversionFeeBps   uint64
}
