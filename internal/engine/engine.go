/*

Engine is the protocol facade. It owns the oracle, wrapper, splitter, AMM
pool, staking engine, and auto-converter, serializes every operation behind one
mutex, and writes the audit trail through the injected store after each
commit. Hosts embed it; the web server reads through it.

*/

package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/amm"
	"github.com/tesserapt/marlin/internal/converter"
	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/oracle"
	"github.com/tesserapt/marlin/internal/staking"
	"github.com/tesserapt/marlin/internal/state"
	"github.com/tesserapt/marlin/internal/tokenization"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/wrapper"
)

// Config holds the components for creating a new Engine instance.
type Config struct {
	Oracle    *oracle.Oracle
	Wrapper   *wrapper.Wrapper
	Splitter  *tokenization.Splitter
	Pool      *amm.Pool
	Staking   *staking.Engine
	Converter *converter.Converter
	Store     state.Store
}

// Engine wires the protocol components behind a single lock.
type Engine struct {
	logger zerolog.Logger
	mu     sync.Mutex

	oracle    *oracle.Oracle
	wrapper   *wrapper.Wrapper
	splitter  *tokenization.Splitter
	pool      *amm.Pool
	staking   *staking.Engine
	converter *converter.Converter
	store     state.Store
}

// New creates an Engine instance with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:    logger.GetForComponent("engine"),
		oracle:    cfg.Oracle,
		wrapper:   cfg.Wrapper,
		splitter:  cfg.Splitter,
		pool:      cfg.Pool,
		staking:   cfg.Staking,
		converter: cfg.Converter,
		store:     cfg.Store,
	}
	e.logger.Info().Msg("Engine instance created successfully with dependency injection")
	return e, nil
}

func validateConfig(cfg Config) error {
	if cfg.Oracle == nil {
		return fmt.Errorf("oracle cannot be nil")
	}
	if cfg.Wrapper == nil {
		return fmt.Errorf("wrapper cannot be nil")
	}
	if cfg.Splitter == nil {
		return fmt.Errorf("splitter cannot be nil")
	}
	if cfg.Pool == nil {
		return fmt.Errorf("pool cannot be nil")
	}
	if cfg.Staking == nil {
		return fmt.Errorf("staking engine cannot be nil")
	}
	if cfg.Converter == nil {
		return fmt.Errorf("converter cannot be nil")
	}
	if cfg.Store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	return nil
}

// --- Oracle operations ---

// UpdatePrice applies an oracle update and records the accepted point.
func (e *Engine) UpdatePrice(sender types.Address, price uint64, confidence uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New().String()
	if err := e.oracle.UpdatePrice(sender, price, confidence); err != nil {
		e.logger.Debug().Str("op_id", opID).Err(err).Msg("Price update rejected")
		return err
	}

	// In-memory state is authoritative; history persistence is best effort.
	if err := e.store.RecordPriceUpdate(e.oracle.PriceInfo()); err != nil {
		e.logger.Error().Str("op_id", opID).Err(err).Msg("Failed to persist price update")
	}
	return nil
}

func (e *Engine) AddPriceUpdater(sender, updater types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.AddUpdater(sender, updater)
}

func (e *Engine) SetPriceThreshold(sender types.Address, price uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.SetThreshold(sender, price)
}

func (e *Engine) RemovePriceThreshold(sender types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.RemoveThreshold(sender)
}

func (e *Engine) ActivateCircuitBreaker(sender types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.ActivateCircuitBreaker(sender)
}

func (e *Engine) ResetCircuitBreaker(sender types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.ResetCircuitBreaker(sender)
}

// --- Wrapper operations ---

func (e *Engine) WrapTokens(sender types.Address, amount0, amount1 uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.WrapTokens(sender, amount0, amount1)
}

func (e *Engine) UnwrapTokens(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.UnwrapTokens(sender, amount)
}

func (e *Engine) ConfigureWrappedToken(sender types.Address, index int, ratioBps uint64, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.ConfigureToken(sender, index, ratioBps, enabled)
}

func (e *Engine) SetYieldRate(sender types.Address, rateBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.SetYieldRate(sender, rateBps)
}

// --- Tokenization operations ---

func (e *Engine) CreateMaturity(sender types.Address, maturity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.splitter.CreateMaturity(sender, maturity)
}

func (e *Engine) DepositSYTokens(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.splitter.DepositSYTokens(sender, amount)
}

func (e *Engine) SplitTokens(sender types.Address, amount, maturity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.splitter.SplitTokens(sender, amount, maturity)
}

func (e *Engine) RedeemTokens(sender types.Address, amount, maturity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.splitter.RedeemTokens(sender, amount, maturity)
}

// --- AMM operations ---

func (e *Engine) AddLiquidity(sender types.Address, amountA, amountB uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.AddLiquidity(sender, amountA, amountB)
}

func (e *Engine) RemoveLiquidity(sender types.Address, shares uint64) (uint64, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.RemoveLiquidity(sender, shares)
}

func (e *Engine) SwapAForB(sender types.Address, amountIn uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.SwapAForB(sender, amountIn)
}

func (e *Engine) SwapBForA(sender types.Address, amountIn uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.SwapBForA(sender, amountIn)
}

// --- Staking operations ---

func (e *Engine) Stake(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.Stake(sender, amount)
}

func (e *Engine) Unstake(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.Unstake(sender, amount)
}

func (e *Engine) ClaimRewards(sender types.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.ClaimRewards(sender)
}

func (e *Engine) CompoundRewards(sender types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.CompoundRewards(sender)
}

func (e *Engine) EmergencyWithdraw(sender types.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.EmergencyWithdraw(sender)
}

// --- Converter operations ---

func (e *Engine) ConfigureConversion(sender types.Address, enabled bool, thresholdPrice, maturity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converter.ConfigureConversion(sender, enabled, thresholdPrice, maturity)
}

func (e *Engine) DepositYTTokens(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converter.DepositYTTokens(sender, amount)
}

// ExecuteConversion runs a conversion and persists its receipt.
func (e *Engine) ExecuteConversion(caller, user types.Address, minPT, deadline uint64) (types.ConversionReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	receipt, err := e.converter.ExecuteConversion(caller, user, minPT, deadline)
	if err != nil {
		return receipt, err
	}

	if err := e.store.SaveConversionReceipt(receipt); err != nil {
		e.logger.Error().Str("receipt_id", receipt.ID).Err(err).Msg("Failed to persist conversion receipt")
	}
	if _, err := e.store.IncrementConversionCounter(); err != nil {
		e.logger.Error().Str("receipt_id", receipt.ID).Err(err).Msg("Failed to increment conversion counter")
	}
	return receipt, nil
}

func (e *Engine) EmergencyDisableConversion(sender, user types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converter.EmergencyDisableConversion(sender, user)
}

func (e *Engine) WithdrawPTTokens(sender types.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converter.WithdrawPTTokens(sender, amount)
}

// --- Read surface ---

func (e *Engine) PriceInfo() types.PricePoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.PriceInfo()
}

func (e *Engine) OracleStatus() types.OracleStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle.Status()
}

func (e *Engine) PoolInfo() types.PoolInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Info()
}

func (e *Engine) StakingInfo() types.StakingInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.Info()
}

func (e *Engine) ConversionInfo() types.ConversionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converter.Info()
}

func (e *Engine) WrapperInfo() types.WrapperInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.Info()
}

func (e *Engine) UserWrapDeposits(addr types.Address) types.UserWrapDeposits {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapper.UserDeposits(addr)
}

func (e *Engine) UserStaking(addr types.Address) types.UserStakingInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.UserInfo(addr)
}

func (e *Engine) UserLiquidity(addr types.Address) types.UserLiquidity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.UserLiquidity(addr)
}

// UserBalances aggregates a user's holdings across the splitter and converter.
func (e *Engine) UserBalances(addr types.Address, maturity uint64) (types.UserSplitBalances, types.ConverterBalances, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	split, err := e.splitter.UserBalances(addr, maturity)
	if err != nil {
		return types.UserSplitBalances{}, types.ConverterBalances{}, err
	}
	return split, e.converter.UserBalances(addr), nil
}

func (e *Engine) Maturities() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.splitter.Maturities()
}

func (e *Engine) PriceHistory(limit int) ([]types.PricePoint, error) {
	return e.store.GetPriceHistory(limit)
}

func (e *Engine) RecentConversions(limit int) ([]types.ConversionReceipt, error) {
	return e.store.GetRecentConversions(limit)
}
