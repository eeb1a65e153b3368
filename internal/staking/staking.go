/*

Time-based staking accrual engine. Reward accrues in whole intervals and is
settled lazily into the position's reward balance on every balance-affecting
call; emergency withdrawal skips settlement and forfeits whatever is pending.

*/

package staking

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
	// DefaultRewardAmount is the per-interval reward numerator.
	DefaultRewardAmount = 5
	// DefaultRewardInterval is the accrual interval in seconds.
	DefaultRewardInterval = 10
	// DefaultPrecisionFactor scales the accrual quotient.
	DefaultPrecisionFactor = 1_000_000_000
)

// Config fixes the engine parameters at construction. Reward parameters stay
// admin-mutable afterwards.
type Config struct {
	Admin           types.Address
	RewardAmount    uint64
	RewardInterval  uint64
	PrecisionFactor uint64
	Now             func() uint64
}

// Engine accrues rewards on staked balances.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	rewardAmount    uint64
	rewardInterval  uint64
	precisionFactor uint64

	positions               map[types.Address]*types.StakePosition
	totalStaked             uint64
	totalRewardsDistributed uint64
	paused                  bool
}

// New constructs an empty staking engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.RewardAmount == 0 {
		cfg.RewardAmount = DefaultRewardAmount
	}
	if cfg.RewardInterval == 0 {
		cfg.RewardInterval = DefaultRewardInterval
	}
	if cfg.PrecisionFactor == 0 {
		cfg.PrecisionFactor = DefaultPrecisionFactor
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	e := &Engine{
		cfg:             cfg,
		logger:          logger.GetForComponent("staking"),
		rewardAmount:    cfg.RewardAmount,
		rewardInterval:  cfg.RewardInterval,
		precisionFactor: cfg.PrecisionFactor,
		positions:       make(map[types.Address]*types.StakePosition),
	}
	e.logger.Info().
		Uint64("rewardAmount", cfg.RewardAmount).
		Uint64("rewardInterval", cfg.RewardInterval).
		Uint64("precisionFactor", cfg.PrecisionFactor).
		Msg("Staking engine initialized")
	return e, nil
}

func (e *Engine) requireAdmin(sender types.Address) error {
	if sender != e.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the staking admin", sender)
	}
	return nil
}

// Stake adds to the sender's position, settling pending reward first.
func (e *Engine) Stake(sender types.Address, amount uint64) error {
	if e.paused {
		return protocol.Policyf("staking is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	newTotal, err := utils.AddChecked(e.totalStaked, amount)
	if err != nil {
		return protocol.Statef("total staked overflow")
	}

	pos := e.position(sender)
	e.settle(pos)
	pos.Staked += amount
	e.totalStaked = newTotal

	e.logger.Info().Str("user", string(sender)).Uint64("amount", amount).Msg("Tokens staked")
	return nil
}

// Unstake removes from the sender's position, settling pending reward first.
func (e *Engine) Unstake(sender types.Address, amount uint64) error {
	if e.paused {
		return protocol.Policyf("staking is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	pos, ok := e.positions[sender]
	if !ok || pos.Staked < amount {
		return protocol.Statef("insufficient staked amount")
	}

	e.settle(pos)
	pos.Staked -= amount
	e.totalStaked -= amount

	e.logger.Info().Str("user", string(sender)).Uint64("amount", amount).Msg("Tokens unstaked")
	return nil
}

// ClaimRewards settles and pays out the sender's reward balance.
func (e *Engine) ClaimRewards(sender types.Address) (uint64, error) {
	if e.paused {
		return 0, protocol.Policyf("staking is paused")
	}
	pos, ok := e.positions[sender]
	if !ok {
		return 0, protocol.Statef("no rewards to claim")
	}
	e.settle(pos)
	if pos.RewardBalance == 0 {
		return 0, protocol.Statef("no rewards to claim")
	}

	claimed := pos.RewardBalance
	pos.RewardBalance = 0
	e.totalRewardsDistributed += claimed

	e.logger.Info().Str("user", string(sender)).Uint64("amount", claimed).Msg("Rewards claimed")
	return claimed, nil
}

// CompoundRewards settles the sender's reward balance and restakes it.
func (e *Engine) CompoundRewards(sender types.Address) error {
	if e.paused {
		return protocol.Policyf("staking is paused")
	}
	pos, ok := e.positions[sender]
	if !ok {
		return protocol.Statef("no rewards to compound")
	}
	e.settle(pos)
	if pos.RewardBalance == 0 {
		return protocol.Statef("no rewards to compound")
	}

	compounded := pos.RewardBalance
	pos.RewardBalance = 0
	pos.Staked += compounded
	e.totalStaked += compounded

	e.logger.Info().Str("user", string(sender)).Uint64("amount", compounded).Msg("Rewards compounded")
	return nil
}

// EmergencyWithdraw zeroes the sender's stake without settling: accrued-but-
// unsettled reward is forfeited. The settled reward balance is untouched.
func (e *Engine) EmergencyWithdraw(sender types.Address) (uint64, error) {
	pos, ok := e.positions[sender]
	if !ok || pos.Staked == 0 {
		return 0, protocol.Statef("no tokens staked")
	}

	withdrawn := pos.Staked
	pos.Staked = 0
	e.totalStaked -= withdrawn

	e.logger.Warn().Str("user", string(sender)).Uint64("amount", withdrawn).Msg("Emergency withdrawal")
	return withdrawn, nil
}

// PendingRewards computes accrued-but-unsettled reward for an address.
func (e *Engine) PendingRewards(addr types.Address) uint64 {
	pos, ok := e.positions[addr]
	if !ok {
		return 0
	}
	return e.pending(pos)
}

// UserInfo returns an address's staking view.
func (e *Engine) UserInfo(addr types.Address) types.UserStakingInfo {
	pos, ok := e.positions[addr]
	if !ok {
		return types.UserStakingInfo{}
	}
	pending := e.pending(pos)
	return types.UserStakingInfo{
		Staked:        pos.Staked,
		RewardBalance: pos.RewardBalance,
		Pending:       pending,
		TotalRewards:  pos.RewardBalance + pending,
	}
}

// Info returns the pool-wide staking state.
func (e *Engine) Info() types.StakingInfo {
	return types.StakingInfo{
		TotalStaked:             e.totalStaked,
		TotalRewardsDistributed: e.totalRewardsDistributed,
		RewardAmount:            e.rewardAmount,
		RewardInterval:          e.rewardInterval,
		Paused:                  e.paused,
	}
}

// RewardRate returns rewards per second scaled by the precision factor.
func (e *Engine) RewardRate() uint64 {
	return sdkmath.NewIntFromUint64(e.rewardAmount).
		Mul(sdkmath.NewIntFromUint64(e.precisionFactor)).
		Quo(sdkmath.NewIntFromUint64(e.rewardInterval)).
		Uint64()
}

// UpdateRewardParameters changes the accrual rate. Pending positions are not
// force-settled; intervals accrued under the old rate are priced at the new
// rate when their position next settles.
func (e *Engine) UpdateRewardParameters(sender types.Address, rewardAmount, rewardInterval uint64) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	if rewardAmount == 0 {
		return protocol.Validationf("reward amount must be positive")
	}
	if rewardInterval == 0 {
		return protocol.Validationf("reward interval must be positive")
	}
	e.rewardAmount = rewardAmount
	e.rewardInterval = rewardInterval
	e.logger.Info().
		Uint64("rewardAmount", rewardAmount).
		Uint64("rewardInterval", rewardInterval).
		Msg("Reward parameters updated")
	return nil
}

// Pause blocks staking mutations except emergency withdrawal.
func (e *Engine) Pause(sender types.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.paused = true
	e.logger.Warn().Msg("Staking paused")
	return nil
}

// Unpause re-enables staking.
func (e *Engine) Unpause(sender types.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.paused = false
	e.logger.Info().Msg("Staking unpaused")
	return nil
}

// IsPaused reports the pause flag.
func (e *Engine) IsPaused() bool {
	return e.paused
}

func (e *Engine) position(addr types.Address) *types.StakePosition {
	pos, ok := e.positions[addr]
	if !ok {
		pos = &types.StakePosition{LastRewardTime: e.cfg.Now()}
		e.positions[addr] = pos
	}
	return pos
}

// settle folds pending reward into the balance and restarts the accrual window.
func (e *Engine) settle(pos *types.StakePosition) {
	if pending := e.pending(pos); pending > 0 {
		pos.RewardBalance += pending
	}
	pos.LastRewardTime = e.cfg.Now()
}

// pending is floor(intervals * rewardAmount * staked / precisionFactor) for
// whole elapsed intervals since the last settlement. An accrual that does
// not fit in uint64 settles as zero rather than a clamped payout; with the
// default parameters that needs staked * elapsed on the order of 2e27, so
// hitting it means the admin set a pathological reward rate.
func (e *Engine) pending(pos *types.StakePosition) uint64 {
	if pos.Staked == 0 {
		return 0
	}
	now := e.cfg.Now()
	if now <= pos.LastRewardTime {
		return 0
	}
	intervals := (now - pos.LastRewardTime) / e.rewardInterval
	if intervals == 0 {
		return 0
	}

	reward := sdkmath.NewIntFromUint64(intervals).
		Mul(sdkmath.NewIntFromUint64(e.rewardAmount)).
		Mul(sdkmath.NewIntFromUint64(pos.Staked)).
		Quo(sdkmath.NewIntFromUint64(e.precisionFactor))
	out, err := utils.ToUint64(reward)
	if err != nil {
		e.logger.Warn().
			Uint64("intervals", intervals).
			Uint64("staked", pos.Staked).
			Uint64("rewardAmount", e.rewardAmount).
			Msg("Pending reward overflows uint64, withholding settlement")
		return 0
	}
	return out
}
