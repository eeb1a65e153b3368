/*

Constant-product market for a PT/YT claim pair. The swap fee is taken out of
the input before applying x*y=k, so the invariant product never decreases and
strictly grows whenever the fee is non-zero.

*/

package amm

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/utils"
)

const (
	// FeeDenominator is the AMM's per-1000 fee base (3 = 0.3%).
	FeeDenominator = 1000
	// DefaultFeeRate is the launch fee of 0.3%.
	DefaultFeeRate = 3
)

// Config fixes the pool parameters at construction. A zero FeeRate is a valid
// fee-free pool; deployments wanting the launch default pass DefaultFeeRate.
type Config struct {
	Admin   types.Address
	FeeRate uint64 // per-1000
	Now     func() uint64
}

// Pool holds two reserves and proportional liquidity shares.
type Pool struct {
	cfg    Config
	logger zerolog.Logger

	reserveA    uint64
	reserveB    uint64
	totalShares uint64
	feeRate     uint64

	shares     map[types.Address]uint64
	depositedA map[types.Address]uint64
	depositedB map[types.Address]uint64

	paused bool
}

// New constructs an empty pool.
func New(cfg Config) (*Pool, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.FeeRate >= FeeDenominator {
		return nil, protocol.Validationf("fee rate %d must be below %d", cfg.FeeRate, FeeDenominator)
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	p := &Pool{
		cfg:        cfg,
		logger:     logger.GetForComponent("amm_pool"),
		feeRate:    cfg.FeeRate,
		shares:     make(map[types.Address]uint64),
		depositedA: make(map[types.Address]uint64),
		depositedB: make(map[types.Address]uint64),
	}
	p.logger.Info().Uint64("feeRate", cfg.FeeRate).Msg("AMM pool initialized")
	return p, nil
}

func (p *Pool) requireAdmin(sender types.Address) error {
	if sender != p.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the pool admin", sender)
	}
	return nil
}

// AddLiquidity deposits both sides and mints shares. The first deposit accepts
// any ratio and mints sqrt(a*b) shares via the bounded Newton approximation,
// which overshoots for large products; share quantities are only meaningful
// relative to each other, so the overshoot is harmless as long as it is
// deterministic. Later deposits are trimmed to the pool ratio, using whichever
// side requires the smaller excess.
func (p *Pool) AddLiquidity(sender types.Address, amountA, amountB uint64) (uint64, error) {
	if p.paused {
		return 0, protocol.Policyf("pool is paused")
	}
	if amountA == 0 || amountB == 0 {
		return 0, protocol.Validationf("amounts must be positive")
	}

	var minted, usedA, usedB uint64
	if p.reserveA == 0 && p.reserveB == 0 {
		product := sdkmath.NewIntFromUint64(amountA).Mul(sdkmath.NewIntFromUint64(amountB))
		root, err := utils.BoundedSqrt(product)
		if err != nil {
			return 0, protocol.Validationf("invalid liquidity amounts: %v", err)
		}
		minted, err = utils.ToUint64(root)
		if err != nil {
			return 0, protocol.Statef("initial share amount out of range")
		}
		if minted == 0 {
			return 0, protocol.Statef("deposit too small to mint shares")
		}
		usedA, usedB = amountA, amountB
	} else {
		requiredB := mulDiv(amountA, p.reserveB, p.reserveA)
		if requiredB <= amountB {
			usedA, usedB = amountA, requiredB
			minted = mulDiv(amountA, p.totalShares, p.reserveA)
		} else {
			requiredA := mulDiv(amountB, p.reserveA, p.reserveB)
			usedA, usedB = requiredA, amountB
			minted = mulDiv(amountB, p.totalShares, p.reserveB)
		}
		if minted == 0 {
			return 0, protocol.Statef("deposit too small to mint shares")
		}
	}

	newReserveA, err := utils.AddChecked(p.reserveA, usedA)
	if err != nil {
		return 0, protocol.Statef("reserve A overflow")
	}
	newReserveB, err := utils.AddChecked(p.reserveB, usedB)
	if err != nil {
		return 0, protocol.Statef("reserve B overflow")
	}
	newTotal, err := utils.AddChecked(p.totalShares, minted)
	if err != nil {
		return 0, protocol.Statef("share supply overflow")
	}

	p.reserveA = newReserveA
	p.reserveB = newReserveB
	p.totalShares = newTotal
	p.shares[sender] += minted
	p.depositedA[sender] += usedA
	p.depositedB[sender] += usedB

	p.logger.Info().
		Str("provider", string(sender)).
		Uint64("amountA", usedA).
		Uint64("amountB", usedB).
		Uint64("shares", minted).
		Msg("Liquidity added")
	return minted, nil
}

// RemoveLiquidity burns shares and returns both reserves proportionally,
// floor-divided.
func (p *Pool) RemoveLiquidity(sender types.Address, shareAmount uint64) (uint64, uint64, error) {
	if p.paused {
		return 0, 0, protocol.Policyf("pool is paused")
	}
	if shareAmount == 0 {
		return 0, 0, protocol.Validationf("amount must be positive")
	}
	if p.shares[sender] < shareAmount {
		return 0, 0, protocol.Statef("insufficient share balance: have %d, need %d",
			p.shares[sender], shareAmount)
	}

	amountA := mulDiv(shareAmount, p.reserveA, p.totalShares)
	amountB := mulDiv(shareAmount, p.reserveB, p.totalShares)

	p.reserveA -= amountA
	p.reserveB -= amountB
	p.totalShares -= shareAmount
	if remaining := p.shares[sender] - shareAmount; remaining == 0 {
		delete(p.shares, sender)
	} else {
		p.shares[sender] = remaining
	}

	// Deposit totals only decrement while they cover the withdrawal.
	if p.depositedA[sender] >= amountA {
		p.depositedA[sender] -= amountA
	}
	if p.depositedB[sender] >= amountB {
		p.depositedB[sender] -= amountB
	}

	p.logger.Info().
		Str("provider", string(sender)).
		Uint64("shares", shareAmount).
		Uint64("amountA", amountA).
		Uint64("amountB", amountB).
		Msg("Liquidity removed")
	return amountA, amountB, nil
}

// SwapAForB trades side-A input for side-B output at the constant-product rate.
func (p *Pool) SwapAForB(sender types.Address, amountIn uint64) (uint64, error) {
	if p.paused {
		return 0, protocol.Policyf("pool is paused")
	}
	if amountIn == 0 {
		return 0, protocol.Validationf("amount must be positive")
	}
	amountOut, err := p.amountOut(amountIn, p.reserveA, p.reserveB)
	if err != nil {
		return 0, err
	}

	newReserveA, err := utils.AddChecked(p.reserveA, amountIn)
	if err != nil {
		return 0, protocol.Statef("reserve A overflow")
	}
	p.reserveA = newReserveA
	p.reserveB -= amountOut

	p.logger.Info().
		Str("trader", string(sender)).
		Uint64("amountIn", amountIn).
		Uint64("amountOut", amountOut).
		Msg("Swap A->B")
	return amountOut, nil
}

// SwapBForA trades side-B input for side-A output at the constant-product rate.
func (p *Pool) SwapBForA(sender types.Address, amountIn uint64) (uint64, error) {
	if p.paused {
		return 0, protocol.Policyf("pool is paused")
	}
	if amountIn == 0 {
		return 0, protocol.Validationf("amount must be positive")
	}
	amountOut, err := p.amountOut(amountIn, p.reserveB, p.reserveA)
	if err != nil {
		return 0, err
	}

	newReserveB, err := utils.AddChecked(p.reserveB, amountIn)
	if err != nil {
		return 0, protocol.Statef("reserve B overflow")
	}
	p.reserveB = newReserveB
	p.reserveA -= amountOut

	p.logger.Info().
		Str("trader", string(sender)).
		Uint64("amountIn", amountIn).
		Uint64("amountOut", amountOut).
		Msg("Swap B->A")
	return amountOut, nil
}

// GetAmountOut prices an input against explicit reserves without touching pool
// state.
func (p *Pool) GetAmountOut(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if amountIn == 0 {
		return 0, protocol.Validationf("amount must be positive")
	}
	return p.amountOut(amountIn, reserveIn, reserveOut)
}

// amountOut applies the fee-adjusted constant product identity:
// floor(amountIn*(D-fee)*reserveOut / (reserveIn*D + amountIn*(D-fee))).
func (p *Pool) amountOut(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, protocol.Statef("insufficient liquidity")
	}

	inWithFee := sdkmath.NewIntFromUint64(amountIn).MulRaw(int64(FeeDenominator - p.feeRate))
	numerator := inWithFee.Mul(sdkmath.NewIntFromUint64(reserveOut))
	denominator := sdkmath.NewIntFromUint64(reserveIn).MulRaw(FeeDenominator).Add(inWithFee)

	out, err := utils.ToUint64(numerator.Quo(denominator))
	if err != nil {
		return 0, protocol.Statef("swap output out of range")
	}
	if out == 0 {
		return 0, protocol.Statef("insufficient output amount")
	}
	if out >= reserveOut {
		return 0, protocol.Statef("insufficient liquidity")
	}
	return out, nil
}

// mulDiv is floor(a*b/c) through sdkmath so the product never wraps.
func mulDiv(a, b, c uint64) uint64 {
	result := sdkmath.NewIntFromUint64(a).
		Mul(sdkmath.NewIntFromUint64(b)).
		Quo(sdkmath.NewIntFromUint64(c))
	// proportional math never exceeds the larger operand, safe to truncate
	return result.Uint64()
}

// SetFeeRate updates the swap fee. Admin only; must stay below the
// denominator.
func (p *Pool) SetFeeRate(sender types.Address, newFee uint64) error {
	if err := p.requireAdmin(sender); err != nil {
		return err
	}
	if newFee >= FeeDenominator {
		return protocol.Validationf("fee rate %d must be below %d", newFee, FeeDenominator)
	}
	oldFee := p.feeRate
	p.feeRate = newFee
	p.logger.Info().Uint64("oldFee", oldFee).Uint64("newFee", newFee).Msg("Fee rate updated")
	return nil
}

// Pause blocks swaps and liquidity changes.
func (p *Pool) Pause(sender types.Address) error {
	if err := p.requireAdmin(sender); err != nil {
		return err
	}
	p.paused = true
	p.logger.Warn().Msg("Pool paused")
	return nil
}

// Unpause re-enables the pool.
func (p *Pool) Unpause(sender types.Address) error {
	if err := p.requireAdmin(sender); err != nil {
		return err
	}
	p.paused = false
	p.logger.Info().Msg("Pool unpaused")
	return nil
}

// Reserves returns both reserve balances.
func (p *Pool) Reserves() (uint64, uint64) {
	return p.reserveA, p.reserveB
}

// FeeRate returns the current per-1000 fee.
func (p *Pool) FeeRate() uint64 {
	return p.feeRate
}

// Info returns the pool-wide state.
func (p *Pool) Info() types.PoolInfo {
	return types.PoolInfo{
		ReserveA:    p.reserveA,
		ReserveB:    p.reserveB,
		TotalShares: p.totalShares,
		FeeRate:     p.feeRate,
		Paused:      p.paused,
	}
}

// UserLiquidity returns one provider's position.
func (p *Pool) UserLiquidity(addr types.Address) types.UserLiquidity {
	return types.UserLiquidity{
		Shares:     p.shares[addr],
		DepositedA: p.depositedA[addr],
		DepositedB: p.depositedB[addr],
	}
}

// TotalShares returns the outstanding share supply.
func (p *Pool) TotalShares() uint64 {
	return p.totalShares
}
