/*

Threshold-triggered YT to PT auto-converter. Users escrow YT, register a
price threshold tied to a live maturity, and anyone may execute the
conversion once the oracle price reaches it. Each configuration fires at
most once and a protocol fee is taken from the converted YT.

*/

package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/utils"
)

const (
	// DefaultFeeBps is the launch conversion fee in basis points.
	DefaultFeeBps = 30
	// MaxFeeBps caps the admin-settable conversion fee.
	MaxFeeBps = 1000
)

// Config wires the converter's collaborators. All three interfaces are
// required.
type Config struct {
	Admin      types.Address
	Prices     PriceSource
	Market     Market
	Maturities MaturityRegistry
	FeeBps     uint64
	Now        func() uint64
}

// Converter escrows YT and executes threshold conversions.
type Converter struct {
	cfg    Config
	logger zerolog.Logger

	feeBps           uint64
	configs          map[types.Address]*types.ConversionConfig
	balances         map[types.Address]*types.ConverterBalances
	totalConversions uint64
	collectedFees    uint64
	paused           bool
}

// New validates the wiring and constructs a converter.
func New(cfg Config) (*Converter, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.Prices == nil {
		return nil, protocol.Validationf("price source is required")
	}
	if cfg.Market == nil {
		return nil, protocol.Validationf("market is required")
	}
	if cfg.Maturities == nil {
		return nil, protocol.Validationf("maturity registry is required")
	}
	if cfg.FeeBps == 0 {
		cfg.FeeBps = DefaultFeeBps
	}
	if cfg.FeeBps > MaxFeeBps {
		return nil, protocol.Validationf("fee %d exceeds maximum %d bps", cfg.FeeBps, MaxFeeBps)
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	c := &Converter{
		cfg:      cfg,
		logger:   logger.GetForComponent("converter"),
		feeBps:   cfg.FeeBps,
		configs:  make(map[types.Address]*types.ConversionConfig),
		balances: make(map[types.Address]*types.ConverterBalances),
	}
	c.logger.Info().Uint64("feeBps", cfg.FeeBps).Msg("Converter initialized")
	return c, nil
}

func (c *Converter) requireAdmin(sender types.Address) error {
	if sender != c.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the converter admin", sender)
	}
	return nil
}

// ConfigureConversion arms or re-arms the sender's conversion. Re-arming
// clears the executed latch so the configuration can fire again. A config
// written with enabled=false keeps its parameters but cannot execute until
// the user reconfigures with enabled=true.
func (c *Converter) ConfigureConversion(sender types.Address, enabled bool, thresholdPrice, maturity uint64) error {
	if c.paused {
		return protocol.Policyf("converter is paused")
	}
	if thresholdPrice == 0 {
		return protocol.Validationf("threshold price must be positive")
	}
	if maturity <= c.cfg.Now() {
		return protocol.Validationf("maturity must be in the future")
	}
	if !c.cfg.Maturities.HasMaturity(maturity) {
		return protocol.Statef("maturity %d not found", maturity)
	}

	c.configs[sender] = &types.ConversionConfig{
		Enabled:        enabled,
		ThresholdPrice: thresholdPrice,
		Maturity:       maturity,
	}
	c.logger.Info().
		Str("user", string(sender)).
		Bool("enabled", enabled).
		Uint64("thresholdPrice", thresholdPrice).
		Uint64("maturity", maturity).
		Msg("Conversion configured")
	return nil
}

// DepositYTTokens adds YT to the sender's escrow.
func (c *Converter) DepositYTTokens(sender types.Address, amount uint64) error {
	if c.paused {
		return protocol.Policyf("converter is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	bal := c.balance(sender)
	newYT, err := utils.AddChecked(bal.YT, amount)
	if err != nil {
		return protocol.Statef("escrow balance overflow")
	}
	bal.YT = newYT

	c.logger.Info().Str("user", string(sender)).Uint64("amount", amount).Msg("YT deposited")
	return nil
}

// ExecuteConversion converts the user's full YT escrow into PT. Any caller
// may trigger it once the oracle price reaches the user's threshold. The
// market swap is the last fallible step so a rejected execution leaves the
// escrow untouched.
func (c *Converter) ExecuteConversion(caller, user types.Address, minPT, deadline uint64) (types.ConversionReceipt, error) {
	var zero types.ConversionReceipt
	if c.paused {
		return zero, protocol.Policyf("converter is paused")
	}
	now := c.cfg.Now()
	if now > deadline {
		return zero, protocol.Validationf("deadline %d has passed", deadline)
	}
	cfg, ok := c.configs[user]
	if !ok || !cfg.Enabled {
		return zero, protocol.Policyf("conversion is not enabled for %s", user)
	}
	if cfg.Executed {
		return zero, protocol.Policyf("conversion already executed for %s", user)
	}
	price, err := c.cfg.Prices.GetPrice()
	if err != nil {
		return zero, err
	}
	if price < cfg.ThresholdPrice {
		return zero, protocol.Statef("price %d below threshold %d", price, cfg.ThresholdPrice)
	}
	bal, ok := c.balances[user]
	if !ok || bal.YT == 0 {
		return zero, protocol.Statef("no YT tokens to convert")
	}

	fee := utils.BpsOf(bal.YT, c.feeBps)
	toConvert := bal.YT - fee
	if toConvert == 0 {
		return zero, protocol.Statef("nothing left to convert after fee")
	}
	ptOut, err := c.cfg.Market.SwapYTForPT(toConvert, minPT)
	if err != nil {
		return zero, err
	}

	ytConverted := bal.YT
	bal.YT = 0
	bal.PT += ptOut
	cfg.Executed = true
	c.totalConversions++
	c.collectedFees += fee

	receipt := types.ConversionReceipt{
		ID:          uuid.New().String(),
		User:        user,
		Caller:      caller,
		YTConverted: ytConverted,
		FeePaid:     fee,
		PTReceived:  ptOut,
		OraclePrice: price,
		Timestamp:   time.Unix(int64(now), 0).UTC(),
	}
	c.logger.Info().
		Str("receipt_id", receipt.ID).
		Str("user", string(user)).
		Str("caller", string(caller)).
		Uint64("ytConverted", ytConverted).
		Uint64("fee", fee).
		Uint64("ptReceived", ptOut).
		Uint64("oraclePrice", price).
		Msg("Conversion executed")
	return receipt, nil
}

// EmergencyDisableConversion disarms a configuration. The user may disarm
// their own; the admin may disarm anyone's.
func (c *Converter) EmergencyDisableConversion(sender, user types.Address) error {
	if sender != user {
		if err := c.requireAdmin(sender); err != nil {
			return err
		}
	}
	cfg, ok := c.configs[user]
	if !ok {
		return protocol.Statef("no conversion configured for %s", user)
	}
	cfg.Enabled = false
	c.logger.Warn().Str("user", string(user)).Str("sender", string(sender)).Msg("Conversion disabled")
	return nil
}

// WithdrawPTTokens removes converted PT from the sender's escrow.
func (c *Converter) WithdrawPTTokens(sender types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	bal, ok := c.balances[sender]
	if !ok || bal.PT < amount {
		return protocol.Statef("insufficient PT balance")
	}
	bal.PT -= amount
	c.logger.Info().Str("user", string(sender)).Uint64("amount", amount).Msg("PT withdrawn")
	return nil
}

// CanExecute reports whether a conversion for the user would currently go
// through, with the blocking reason when it would not.
func (c *Converter) CanExecute(user types.Address) (bool, string) {
	if c.paused {
		return false, "converter is paused"
	}
	cfg, ok := c.configs[user]
	if !ok || !cfg.Enabled {
		return false, "conversion not enabled"
	}
	if cfg.Executed {
		return false, "conversion already executed"
	}
	price, err := c.cfg.Prices.GetPrice()
	if err != nil {
		return false, "no fresh price available"
	}
	if price < cfg.ThresholdPrice {
		return false, "price below threshold"
	}
	bal, ok := c.balances[user]
	if !ok || bal.YT == 0 {
		return false, "no YT tokens to convert"
	}
	return true, ""
}

// UserConfig returns a user's conversion configuration.
func (c *Converter) UserConfig(user types.Address) types.ConversionConfig {
	if cfg, ok := c.configs[user]; ok {
		return *cfg
	}
	return types.ConversionConfig{}
}

// UserBalances returns a user's escrowed YT and converted PT.
func (c *Converter) UserBalances(user types.Address) types.ConverterBalances {
	if bal, ok := c.balances[user]; ok {
		return *bal
	}
	return types.ConverterBalances{}
}

// Info returns the converter-wide state.
func (c *Converter) Info() types.ConversionInfo {
	return types.ConversionInfo{
		FeeBps:           c.feeBps,
		TotalConversions: c.totalConversions,
		Paused:           c.paused,
	}
}

// CollectedFees returns the cumulative YT retained as fees.
func (c *Converter) CollectedFees() uint64 {
	return c.collectedFees
}

// SetConversionFee updates the fee within the cap.
func (c *Converter) SetConversionFee(sender types.Address, feeBps uint64) error {
	if err := c.requireAdmin(sender); err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return protocol.Validationf("fee %d exceeds maximum %d bps", feeBps, MaxFeeBps)
	}
	c.feeBps = feeBps
	c.logger.Info().Uint64("feeBps", feeBps).Msg("Conversion fee updated")
	return nil
}

// Pause blocks configuration, deposits, and execution.
func (c *Converter) Pause(sender types.Address) error {
	if err := c.requireAdmin(sender); err != nil {
		return err
	}
	c.paused = true
	c.logger.Warn().Msg("Converter paused")
	return nil
}

// Unpause re-enables the converter.
func (c *Converter) Unpause(sender types.Address) error {
	if err := c.requireAdmin(sender); err != nil {
		return err
	}
	c.paused = false
	c.logger.Info().Msg("Converter unpaused")
	return nil
}

// IsPaused reports the pause flag.
func (c *Converter) IsPaused() bool {
	return c.paused
}

func (c *Converter) balance(addr types.Address) *types.ConverterBalances {
	bal, ok := c.balances[addr]
	if !ok {
		bal = &types.ConverterBalances{}
		c.balances[addr] = bal
	}
	return bal
}
