/*

Types for the constant-product market: pool-wide reserve state and the
per-provider liquidity view.

*/

package types

// PoolInfo is the pool-wide state of the PT/YT market.
type PoolInfo struct {
	ReserveA    uint64 `json:"reserve_a"`
	ReserveB    uint64 `json:"reserve_b"`
	TotalShares uint64 `json:"total_shares"`
	FeeRate     uint64 `json:"fee_rate"` // per-1000
	Paused      bool   `json:"paused"`
}

// UserLiquidity is a single provider's position in the pool. The deposit
// totals track gross contributions and decrement on withdrawal with underflow
// protection; they are informational, not share-bearing.
type UserLiquidity struct {
	Shares     uint64 `json:"shares"`
	DepositedA uint64 `json:"deposited_a"`
	DepositedB uint64 `json:"deposited_b"`
}
