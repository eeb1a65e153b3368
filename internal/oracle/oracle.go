/*

Validated price oracle. Holds one price point for the tracked asset, gates
updates by interval and deviation, gates reads by staleness, and watches an
optional alert threshold. Admin holds a circuit breaker and a pause flag as
independent kill switches.

*/

package oracle

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
	// DefaultMaxDeviationBps rejects updates that move the price by more than 10%.
	DefaultMaxDeviationBps = 1000
	// DefaultMinUpdateInterval is the minimum seconds between accepted updates.
	DefaultMinUpdateInterval = 300
	// DefaultStalenessThreshold is the maximum price age in seconds before reads fail.
	DefaultStalenessThreshold = 3600

	maxConfidenceBps = 10000
)

// Config holds the immutable oracle parameters fixed at construction.
type Config struct {
	Admin              types.Address
	MaxDeviationBps    uint64
	MinUpdateInterval  uint64
	StalenessThreshold uint64
	// Now supplies the host timestamp; nil means wall clock.
	Now func() uint64
}

// Oracle is the validated price store. Not safe for concurrent use on its own;
// the engine serializes access.
type Oracle struct {
	cfg    Config
	logger zerolog.Logger

	price     types.PricePoint
	threshold types.Threshold
	updaters  map[types.Address]bool

	circuitBreakerActive bool
	paused               bool
}

// New constructs the oracle and registers the admin as the first updater.
func New(cfg Config) (*Oracle, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.MaxDeviationBps == 0 {
		cfg.MaxDeviationBps = DefaultMaxDeviationBps
	}
	if cfg.MinUpdateInterval == 0 {
		cfg.MinUpdateInterval = DefaultMinUpdateInterval
	}
	if cfg.StalenessThreshold == 0 {
		cfg.StalenessThreshold = DefaultStalenessThreshold
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	o := &Oracle{
		cfg:      cfg,
		logger:   logger.GetForComponent("price_oracle"),
		updaters: map[types.Address]bool{cfg.Admin: true},
	}
	o.logger.Info().
		Str("admin", string(cfg.Admin)).
		Uint64("maxDeviationBps", cfg.MaxDeviationBps).
		Uint64("minUpdateInterval", cfg.MinUpdateInterval).
		Uint64("stalenessThreshold", cfg.StalenessThreshold).
		Msg("Price oracle initialized")
	return o, nil
}

// requireAdmin is the single authorization predicate for admin-gated methods.
func (o *Oracle) requireAdmin(sender types.Address) error {
	if sender != o.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the oracle admin", sender)
	}
	return nil
}

func (o *Oracle) requireUpdater(sender types.Address) error {
	if !o.updaters[sender] {
		return protocol.Authorizationf("sender %s is not a registered price updater", sender)
	}
	return nil
}

// AddUpdater registers an address allowed to submit prices and thresholds.
func (o *Oracle) AddUpdater(sender, updater types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	if updater == types.ZeroAddress {
		return protocol.Validationf("updater address is required")
	}
	o.updaters[updater] = true
	o.logger.Info().Str("updater", string(updater)).Msg("Price updater added")
	return nil
}

// UpdatePrice validates and commits a new price point. The threshold is
// re-evaluated after a successful update.
func (o *Oracle) UpdatePrice(sender types.Address, newPrice uint64, confidence uint16) error {
	if o.paused {
		return protocol.Policyf("oracle is paused")
	}
	if o.circuitBreakerActive {
		return protocol.Policyf("circuit breaker active")
	}
	if newPrice == 0 {
		return protocol.Validationf("price must be positive")
	}
	if confidence > maxConfidenceBps {
		return protocol.Validationf("confidence %d exceeds %d bps", confidence, maxConfidenceBps)
	}
	if err := o.requireUpdater(sender); err != nil {
		return err
	}

	now := o.cfg.Now()
	if o.price.Value > 0 {
		if now < o.price.Timestamp+o.cfg.MinUpdateInterval {
			return protocol.Ratef("update too frequent: %ds elapsed, %ds required",
				now-o.price.Timestamp, o.cfg.MinUpdateInterval)
		}
		deviation := utils.DeviationBps(o.price.Value, newPrice)
		if deviation.GT(sdkmath.NewIntFromUint64(o.cfg.MaxDeviationBps)) {
			return protocol.Ratef("price deviation %s bps exceeds maximum %d bps",
				deviation.String(), o.cfg.MaxDeviationBps)
		}
	}

	oldPrice := o.price.Value
	o.price = types.PricePoint{
		Value:      newPrice,
		Timestamp:  now,
		Confidence: confidence,
		Updater:    sender,
	}

	o.logger.Info().
		Uint64("oldPrice", oldPrice).
		Uint64("newPrice", newPrice).
		Uint16("confidence", confidence).
		Str("updater", string(sender)).
		Msg("Price updated")

	if o.threshold.Active && newPrice >= o.threshold.Price {
		o.logger.Info().
			Uint64("price", newPrice).
			Uint64("threshold", o.threshold.Price).
			Msg("Price threshold reached")
	}
	return nil
}

// SetThreshold arms the alert threshold. Any registered updater may set it.
func (o *Oracle) SetThreshold(sender types.Address, price uint64) error {
	if price == 0 {
		return protocol.Validationf("threshold must be positive")
	}
	if err := o.requireUpdater(sender); err != nil {
		return err
	}
	o.threshold = types.Threshold{Price: price, Active: true, Setter: sender}
	o.logger.Info().Uint64("threshold", price).Str("setter", string(sender)).Msg("Threshold set")
	return nil
}

// RemoveThreshold disarms and clears the threshold.
func (o *Oracle) RemoveThreshold(sender types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	o.threshold = types.Threshold{}
	o.logger.Info().Msg("Threshold removed")
	return nil
}

// GetPrice returns the current price, hard-failing when no price exists or the
// stored point is older than the staleness threshold. Downstream consumers
// must treat a failed read as "no price", never "old price".
func (o *Oracle) GetPrice() (uint64, error) {
	if o.price.Value == 0 {
		return 0, protocol.Statef("no price available")
	}
	if o.cfg.Now() > o.price.Timestamp+o.cfg.StalenessThreshold {
		return 0, protocol.Ratef("price is stale")
	}
	return o.price.Value, nil
}

// PriceInfo returns the raw stored price point without staleness gating.
func (o *Oracle) PriceInfo() types.PricePoint {
	return o.price
}

// IsPriceStale reports whether reads would currently fail. A missing price
// counts as stale.
func (o *Oracle) IsPriceStale() bool {
	if o.price.Timestamp == 0 {
		return true
	}
	return o.cfg.Now() > o.price.Timestamp+o.cfg.StalenessThreshold
}

// ThresholdReached reports whether an active threshold is met by a fresh price.
func (o *Oracle) ThresholdReached() bool {
	if !o.threshold.Active || o.price.Value == 0 || o.IsPriceStale() {
		return false
	}
	return o.price.Value >= o.threshold.Price
}

// ThresholdInfo returns the stored threshold record.
func (o *Oracle) ThresholdInfo() types.Threshold {
	return o.threshold
}

// ActivateCircuitBreaker blocks price updates until reset, independent of the
// pause flag.
func (o *Oracle) ActivateCircuitBreaker(sender types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	o.circuitBreakerActive = true
	o.logger.Warn().Msg("Circuit breaker activated")
	return nil
}

// ResetCircuitBreaker re-enables price updates.
func (o *Oracle) ResetCircuitBreaker(sender types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	o.circuitBreakerActive = false
	o.logger.Info().Msg("Circuit breaker reset")
	return nil
}

// Pause blocks price updates.
func (o *Oracle) Pause(sender types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	o.paused = true
	o.logger.Warn().Msg("Oracle paused")
	return nil
}

// Unpause re-enables price updates.
func (o *Oracle) Unpause(sender types.Address) error {
	if err := o.requireAdmin(sender); err != nil {
		return err
	}
	o.paused = false
	o.logger.Info().Msg("Oracle unpaused")
	return nil
}

// Status summarizes the oracle gates for external consumers.
func (o *Oracle) Status() types.OracleStatus {
	return types.OracleStatus{
		Paused:               o.paused,
		CircuitBreakerActive: o.circuitBreakerActive,
		UpdaterCount:         len(o.updaters),
		HasPrice:             o.price.Value > 0,
		Stale:                o.IsPriceStale(),
		ThresholdActive:      o.threshold.Active,
		ThresholdPrice:       o.threshold.Price,
	}
}
