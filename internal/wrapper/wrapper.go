/*

Standardized token wrapper. The entry point for users: wraps underlying
yield-bearing tokens into SY at admin-configured basis-point ratios and
unwraps SY back out. Issued SY lands in the splitter's balances, where it can
be split into PT and YT claims.

*/

package wrapper

import (
	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/utils"
)

const (
	// MaxRatioBps caps a token's wrap ratio at 100%.
	MaxRatioBps = 10000

	// DefaultRatioBps is each token's initial ratio: 50%.
	DefaultRatioBps = 5000

	// NumTokens is the number of supported underlying tokens.
	NumTokens = 2
)

// SYLedger is the balance book wrapped tokens are issued into.
type SYLedger interface {
	CreditSY(addr types.Address, amount uint64) error
	DebitSY(addr types.Address, amount uint64) error
	SYBalanceOf(addr types.Address) uint64
}

// Config fixes the wrapper parameters at construction.
type Config struct {
	Admin        types.Address
	Name         string
	Symbol       string
	YieldRateBps uint64
	SY           SYLedger
}

// Wrapper converts underlying token deposits into SY and back.
type Wrapper struct {
	cfg    Config
	logger zerolog.Logger

	tokens       [NumTokens]types.WrappedTokenConfig
	deposits     map[types.Address]*types.UserWrapDeposits
	yieldRateBps uint64
	totalSupply  uint64
	paused       bool
}

// New constructs a wrapper with both tokens enabled at the default 50% ratio.
func New(cfg Config) (*Wrapper, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.SY == nil {
		return nil, protocol.Validationf("SY ledger is required")
	}
	if cfg.YieldRateBps > MaxRatioBps {
		return nil, protocol.Validationf("yield rate %d exceeds %d bps", cfg.YieldRateBps, MaxRatioBps)
	}
	w := &Wrapper{
		cfg:          cfg,
		logger:       logger.GetForComponent("wrapper"),
		deposits:     make(map[types.Address]*types.UserWrapDeposits),
		yieldRateBps: cfg.YieldRateBps,
	}
	for i := range w.tokens {
		w.tokens[i] = types.WrappedTokenConfig{RatioBps: DefaultRatioBps, Enabled: true}
	}
	w.logger.Info().Str("symbol", cfg.Symbol).Msg("Wrapper initialized")
	return w, nil
}

func (w *Wrapper) requireAdmin(sender types.Address) error {
	if sender != w.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the wrapper admin", sender)
	}
	return nil
}

// ConfigureToken sets one underlying token's wrap ratio and enabled flag.
func (w *Wrapper) ConfigureToken(sender types.Address, index int, ratioBps uint64, enabled bool) error {
	if err := w.requireAdmin(sender); err != nil {
		return err
	}
	if index < 0 || index >= NumTokens {
		return protocol.Validationf("token index %d out of range", index)
	}
	if ratioBps > MaxRatioBps {
		return protocol.Validationf("ratio %d exceeds %d bps", ratioBps, MaxRatioBps)
	}

	w.tokens[index] = types.WrappedTokenConfig{RatioBps: ratioBps, Enabled: enabled}
	w.logger.Info().
		Int("token", index).
		Uint64("ratioBps", ratioBps).
		Bool("enabled", enabled).
		Msg("Token configured")
	return nil
}

// WrapTokens converts underlying deposits into SY at the configured ratios
// and credits the result to the sender's SY balance. At least one amount must
// be positive, and each nonzero amount requires its token to be enabled.
func (w *Wrapper) WrapTokens(sender types.Address, amount0, amount1 uint64) (uint64, error) {
	if w.paused {
		return 0, protocol.Policyf("wrapper is paused")
	}
	if amount0 == 0 && amount1 == 0 {
		return 0, protocol.Validationf("at least one amount must be positive")
	}
	amounts := [NumTokens]uint64{amount0, amount1}
	for i, amount := range amounts {
		if amount > 0 && !w.tokens[i].Enabled {
			return 0, protocol.Policyf("token %d is not enabled", i)
		}
	}

	var wrapped uint64
	for i, amount := range amounts {
		wrapped += utils.BpsOf(amount, w.tokens[i].RatioBps)
	}
	if wrapped == 0 {
		return 0, protocol.Statef("wrapped amount rounds to zero")
	}

	newSupply, err := utils.AddChecked(w.totalSupply, wrapped)
	if err != nil {
		return 0, protocol.Statef("SY supply overflow")
	}
	dep := w.userDeposits(sender)
	newToken0, err := utils.AddChecked(dep.Token0, amount0)
	if err != nil {
		return 0, protocol.Statef("deposit balance overflow")
	}
	newToken1, err := utils.AddChecked(dep.Token1, amount1)
	if err != nil {
		return 0, protocol.Statef("deposit balance overflow")
	}
	// The SY credit is the last fallible step; a rejection leaves no
	// partial write.
	if err := w.cfg.SY.CreditSY(sender, wrapped); err != nil {
		return 0, err
	}
	dep.Token0 = newToken0
	dep.Token1 = newToken1
	w.totalSupply = newSupply

	w.logger.Info().
		Str("user", string(sender)).
		Uint64("amount0", amount0).
		Uint64("amount1", amount1).
		Uint64("wrapped", wrapped).
		Msg("Tokens wrapped")
	return wrapped, nil
}

// UnwrapTokens retires SY from the sender and releases underlying deposits at
// the configured ratios. A deposit smaller than its computed release is left
// untouched rather than driven negative.
func (w *Wrapper) UnwrapTokens(sender types.Address, amount uint64) error {
	if w.paused {
		return protocol.Policyf("wrapper is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	// SY can also enter circulation through the splitter's bootstrap deposit;
	// the wrapper only retires what it issued.
	if amount > w.totalSupply {
		return protocol.Statef("amount %d exceeds wrapped supply %d", amount, w.totalSupply)
	}
	if err := w.cfg.SY.DebitSY(sender, amount); err != nil {
		return err
	}

	dep := w.userDeposits(sender)
	if release := utils.BpsOf(amount, w.enabledRatio(0)); release > 0 && dep.Token0 >= release {
		dep.Token0 -= release
	}
	if release := utils.BpsOf(amount, w.enabledRatio(1)); release > 0 && dep.Token1 >= release {
		dep.Token1 -= release
	}
	w.totalSupply -= amount

	w.logger.Info().Str("user", string(sender)).Uint64("amount", amount).Msg("Tokens unwrapped")
	return nil
}

// CalculateWrapAmount quotes the SY issued for the given deposits without
// touching state. Disabled tokens contribute nothing.
func (w *Wrapper) CalculateWrapAmount(amount0, amount1 uint64) uint64 {
	return utils.BpsOf(amount0, w.enabledRatio(0)) + utils.BpsOf(amount1, w.enabledRatio(1))
}

// enabledRatio is a token's ratio, or zero when the token is disabled.
func (w *Wrapper) enabledRatio(index int) uint64 {
	if !w.tokens[index].Enabled {
		return 0
	}
	return w.tokens[index].RatioBps
}

// SetYieldRate updates the advertised yield rate.
func (w *Wrapper) SetYieldRate(sender types.Address, rateBps uint64) error {
	if err := w.requireAdmin(sender); err != nil {
		return err
	}
	if rateBps > MaxRatioBps {
		return protocol.Validationf("yield rate %d exceeds %d bps", rateBps, MaxRatioBps)
	}
	old := w.yieldRateBps
	w.yieldRateBps = rateBps
	w.logger.Info().Uint64("old", old).Uint64("new", rateBps).Msg("Yield rate updated")
	return nil
}

// TokenConfig returns one underlying token's wrapping terms.
func (w *Wrapper) TokenConfig(index int) (types.WrappedTokenConfig, error) {
	if index < 0 || index >= NumTokens {
		return types.WrappedTokenConfig{}, protocol.Validationf("token index %d out of range", index)
	}
	return w.tokens[index], nil
}

// YieldRate returns the advertised yield rate in basis points.
func (w *Wrapper) YieldRate() uint64 {
	return w.yieldRateBps
}

// TotalSupply returns the SY issued through the wrapper and not yet unwrapped.
func (w *Wrapper) TotalSupply() uint64 {
	return w.totalSupply
}

// UserDeposits returns an address's outstanding underlying deposits.
func (w *Wrapper) UserDeposits(addr types.Address) types.UserWrapDeposits {
	if dep, ok := w.deposits[addr]; ok {
		return *dep
	}
	return types.UserWrapDeposits{}
}

// Info returns the wrapper-wide state.
func (w *Wrapper) Info() types.WrapperInfo {
	return types.WrapperInfo{
		Name:         w.cfg.Name,
		Symbol:       w.cfg.Symbol,
		YieldRateBps: w.yieldRateBps,
		TotalSupply:  w.totalSupply,
		Paused:       w.paused,
	}
}

// Pause blocks wrapping and unwrapping.
func (w *Wrapper) Pause(sender types.Address) error {
	if err := w.requireAdmin(sender); err != nil {
		return err
	}
	w.paused = true
	w.logger.Warn().Msg("Wrapper paused")
	return nil
}

// Unpause re-enables the wrapper.
func (w *Wrapper) Unpause(sender types.Address) error {
	if err := w.requireAdmin(sender); err != nil {
		return err
	}
	w.paused = false
	w.logger.Info().Msg("Wrapper unpaused")
	return nil
}

// IsPaused reports the pause flag.
func (w *Wrapper) IsPaused() bool {
	return w.paused
}

func (w *Wrapper) userDeposits(addr types.Address) *types.UserWrapDeposits {
	dep, ok := w.deposits[addr]
	if !ok {
		dep = &types.UserWrapDeposits{}
		w.deposits[addr] = dep
	}
	return dep
}
