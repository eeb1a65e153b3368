/*

Types for the standardized token wrapper.

*/

package types

// WrappedTokenConfig is one underlying token's wrapping terms. RatioBps is the
// SY issued per unit wrapped, in basis points of the deposited amount.
type WrappedTokenConfig struct {
	RatioBps uint64 `json:"ratio_bps"`
	Enabled  bool   `json:"enabled"`
}

// WrapperInfo is the wrapper-wide state.
type WrapperInfo struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	YieldRateBps uint64 `json:"yield_rate_bps"`
	TotalSupply  uint64 `json:"total_supply"`
	Paused       bool   `json:"paused"`
}

// UserWrapDeposits tracks how much of each underlying token an address has
// wrapped and not yet unwrapped.
type UserWrapDeposits struct {
	Token0 uint64 `json:"token0"`
	Token1 uint64 `json:"token1"`
}
