package engine

import (
	"github.com/tesserapt/marlin/internal/amm"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
)

// PoolMarket adapts an AMM pool holding YT as asset A and PT as asset B into
// the converter's market interface. Swaps execute under the trader address,
// which holds the converter's escrow inventory on the pool side.
type PoolMarket struct {
	pool   *amm.Pool
	trader types.Address
}

// NewPoolMarket wraps a YT/PT pool for the converter.
func NewPoolMarket(pool *amm.Pool, trader types.Address) *PoolMarket {
	return &PoolMarket{pool: pool, trader: trader}
}

// QuotePTForYT prices a YT for PT swap against current reserves.
func (m *PoolMarket) QuotePTForYT(ytAmount uint64) (uint64, error) {
	reserveA, reserveB := m.pool.Reserves()
	return m.pool.GetAmountOut(ytAmount, reserveA, reserveB)
}

// SwapYTForPT checks the quote against minOut before touching reserves, so
// a slippage rejection leaves the pool unchanged.
func (m *PoolMarket) SwapYTForPT(ytAmount, minOut uint64) (uint64, error) {
	quoted, err := m.QuotePTForYT(ytAmount)
	if err != nil {
		return 0, err
	}
	if quoted < minOut {
		return 0, protocol.Statef("insufficient output: %d below minimum %d", quoted, minOut)
	}
	return m.pool.SwapAForB(m.trader, ytAmount)
}
