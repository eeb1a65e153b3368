package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserapt/marlin/internal/amm"
	"github.com/tesserapt/marlin/internal/converter"
	"github.com/tesserapt/marlin/internal/oracle"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/staking"
	"github.com/tesserapt/marlin/internal/state"
	"github.com/tesserapt/marlin/internal/tokenization"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/wrapper"
)

const (
	admin  = types.Address("admin")
	alice  = types.Address("alice")
	keeper = types.Address("keeper")
	escrow = types.Address("converter-escrow")
)

type harness struct {
	engine   *Engine
	pool     *amm.Pool
	now      uint64
	maturity uint64
}

// newHarness wires real components on a shared settable clock, the way the
// production entry point does, with a no-op store.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: 1_000_000}
	h.maturity = h.now + 86400
	clock := func() uint64 { return h.now }

	priceOracle, err := oracle.New(oracle.Config{Admin: admin, Now: clock})
	require.NoError(t, err)

	splitter, err := tokenization.New(tokenization.Config{
		Admin: admin, Name: "Standardized Yield", Symbol: "SY", Now: clock,
	})
	require.NoError(t, err)

	pool, err := amm.New(amm.Config{Admin: admin, FeeRate: amm.DefaultFeeRate, Now: clock})
	require.NoError(t, err)
	h.pool = pool

	syWrapper, err := wrapper.New(wrapper.Config{
		Admin: admin, Name: "Standardized Yield", Symbol: "SY",
		YieldRateBps: 500, SY: splitter,
	})
	require.NoError(t, err)

	stakingEngine, err := staking.New(staking.Config{Admin: admin, Now: clock})
	require.NoError(t, err)

	autoConverter, err := converter.New(converter.Config{
		Admin:      admin,
		Prices:     priceOracle,
		Market:     NewPoolMarket(pool, escrow),
		Maturities: splitter,
		Now:        clock,
	})
	require.NoError(t, err)

	eng, err := New(Config{
		Oracle:    priceOracle,
		Wrapper:   syWrapper,
		Splitter:  splitter,
		Pool:      pool,
		Staking:   stakingEngine,
		Converter: autoConverter,
		Store:     state.NewNoopStore(),
	})
	require.NoError(t, err)
	h.engine = eng
	return h
}

func TestNew_RejectsMissingComponents(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSplitFlow(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.CreateMaturity(admin, h.maturity))
	require.NoError(t, e.DepositSYTokens(alice, 1000))
	require.NoError(t, e.SplitTokens(alice, 1000, h.maturity))

	split, _, err := e.UserBalances(alice, h.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), split.SY)
	assert.Equal(t, uint64(1000), split.PT)
	assert.Equal(t, uint64(1000), split.YT)
	assert.Equal(t, []uint64{h.maturity}, e.Maturities())
}

// Full conversion path: oracle price trips the user threshold and the
// converter swaps escrowed YT for PT through the AMM pool.
// Underlying tokens enter through the wrapper and come out as splittable SY.
func TestWrapThenSplit(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.CreateMaturity(admin, h.maturity))

	// 2000 of each underlying at the default 50% ratios issues 2000 SY.
	wrapped, err := e.WrapTokens(alice, 2000, 2000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), wrapped)
	assert.Equal(t, uint64(2000), e.WrapperInfo().TotalSupply)

	require.NoError(t, e.SplitTokens(alice, 1500, h.maturity))
	split, _, err := e.UserBalances(alice, h.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), split.SY)
	assert.Equal(t, uint64(1500), split.PT)
	assert.Equal(t, uint64(1500), split.YT)

	// The remaining SY unwraps back into underlying deposits.
	require.NoError(t, e.UnwrapTokens(alice, 500))
	dep := e.UserWrapDeposits(alice)
	assert.Equal(t, uint64(1750), dep.Token0)
	assert.Equal(t, uint64(1750), dep.Token1)
}

func TestConversionThroughPool(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.CreateMaturity(admin, h.maturity))
	require.NoError(t, e.UpdatePrice(admin, 50_000, 100))

	// Seed the YT/PT pool so the market has depth.
	_, err := e.AddLiquidity(admin, 1_000_000, 1_000_000)
	require.NoError(t, err)

	require.NoError(t, e.ConfigureConversion(alice, true, 45_000, h.maturity))
	require.NoError(t, e.DepositYTTokens(alice, 1000))

	receipt, err := e.ExecuteConversion(keeper, alice, 1, h.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), receipt.YTConverted)
	assert.Equal(t, uint64(3), receipt.FeePaid)
	assert.Equal(t, uint64(50_000), receipt.OraclePrice)

	// 997 YT through a balanced pool at 0.3%: floor(997*997*1e6/(1e9+997*997)).
	assert.Equal(t, uint64(993), receipt.PTReceived)

	// The swap moved the pool reserves.
	reserveA, reserveB := h.pool.Reserves()
	assert.Equal(t, uint64(1_000_997), reserveA)
	assert.Equal(t, uint64(1_000_000-993), reserveB)

	_, escrowBal, err := e.UserBalances(alice, h.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), escrowBal.YT)
	assert.Equal(t, uint64(993), escrowBal.PT)
}

// A minPT above the pool quote rejects before any state moves.
func TestConversionSlippageLeavesPoolUntouched(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.CreateMaturity(admin, h.maturity))
	require.NoError(t, e.UpdatePrice(admin, 50_000, 100))
	_, err := e.AddLiquidity(admin, 1_000_000, 1_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfigureConversion(alice, true, 45_000, h.maturity))
	require.NoError(t, e.DepositYTTokens(alice, 1000))

	_, err = e.ExecuteConversion(keeper, alice, 994, h.maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	reserveA, reserveB := h.pool.Reserves()
	assert.Equal(t, uint64(1_000_000), reserveA)
	assert.Equal(t, uint64(1_000_000), reserveB)

	_, escrowBal, err := e.UserBalances(alice, h.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), escrowBal.YT)
}

func TestStakingFlow(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.Stake(alice, 1_000_000))
	h.now += 2_000_000

	claimed, err := e.ClaimRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), claimed)
	assert.Equal(t, uint64(1000), e.StakingInfo().TotalRewardsDistributed)

	require.NoError(t, e.Unstake(alice, 1_000_000))
	assert.Equal(t, uint64(0), e.StakingInfo().TotalStaked)
}

// A stale oracle price blocks conversion even when the threshold was met.
func TestConversionStalePriceBlocks(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.CreateMaturity(admin, h.maturity))
	require.NoError(t, e.UpdatePrice(admin, 50_000, 100))
	_, err := e.AddLiquidity(admin, 1_000_000, 1_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfigureConversion(alice, true, 45_000, h.maturity))
	require.NoError(t, e.DepositYTTokens(alice, 1000))

	h.now += oracle.DefaultStalenessThreshold + 1
	_, err = e.ExecuteConversion(keeper, alice, 1, h.maturity)
	assert.Equal(t, protocol.KindRate, protocol.KindOf(err))
}
