/*

Yield tokenization splitter. Wraps deposited SY balances and splits them 1:1:1
into PT and YT claims against an admin-curated maturity registry. PT redeems
for SY after maturity; YT never does.

*/

package tokenization

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/token"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/utils"
)

// MaxMaturityHorizon bounds how far ahead a maturity may be created: one year.
const MaxMaturityHorizon = 365 * 24 * 60 * 60

// Config fixes the splitter parameters at construction.
type Config struct {
	Admin  types.Address
	Name   string
	Symbol string
	Now    func() uint64
}

// Series is one maturity's claim pair. The splitter owns both ledgers; their
// maturities are tied 1:1 to the registry record.
type Series struct {
	Maturity  uint64
	CreatedAt uint64
	PT        *token.Ledger
	YT        *token.Ledger
}

// Splitter is the SY wrapping and claim-splitting component.
type Splitter struct {
	cfg    Config
	logger zerolog.Logger

	// ledgerOwner is the internal identity minting/burning on the series
	// ledgers; never a user-facing address.
	ledgerOwner types.Address

	syBalances map[types.Address]uint64
	series     map[uint64]*Series
	paused     bool
}

// New constructs an empty splitter with no maturities.
func New(cfg Config) (*Splitter, error) {
	if cfg.Admin == types.ZeroAddress {
		return nil, protocol.Validationf("admin address is required")
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	s := &Splitter{
		cfg:         cfg,
		logger:      logger.GetForComponent("splitter"),
		ledgerOwner: types.Address("splitter/" + cfg.Symbol),
		syBalances:  make(map[types.Address]uint64),
		series:      make(map[uint64]*Series),
	}
	s.logger.Info().Str("symbol", cfg.Symbol).Msg("Splitter initialized")
	return s, nil
}

func (s *Splitter) requireAdmin(sender types.Address) error {
	if sender != s.cfg.Admin {
		return protocol.Authorizationf("sender %s is not the splitter admin", sender)
	}
	return nil
}

// CreateMaturity registers a new maturity and constructs its PT/YT ledger
// pair. The timestamp must be in the future, within the one-year horizon, and
// not already registered.
func (s *Splitter) CreateMaturity(sender types.Address, maturity uint64) error {
	if err := s.requireAdmin(sender); err != nil {
		return err
	}
	if s.paused {
		return protocol.Policyf("splitter is paused")
	}
	now := s.cfg.Now()
	if maturity <= now {
		return protocol.Validationf("maturity must be in the future")
	}
	if maturity > now+MaxMaturityHorizon {
		return protocol.Validationf("maturity exceeds the one-year horizon")
	}
	if _, exists := s.series[maturity]; exists {
		return protocol.Validationf("maturity %d already exists", maturity)
	}

	pt, err := token.New(token.Config{
		Owner:    s.ledgerOwner,
		Name:     fmt.Sprintf("%s Principal %d", s.cfg.Name, maturity),
		Symbol:   "PT-" + s.cfg.Symbol,
		Maturity: maturity,
		Now:      s.cfg.Now,
	})
	if err != nil {
		return err
	}
	yt, err := token.New(token.Config{
		Owner:    s.ledgerOwner,
		Name:     fmt.Sprintf("%s Yield %d", s.cfg.Name, maturity),
		Symbol:   "YT-" + s.cfg.Symbol,
		Maturity: maturity,
		Now:      s.cfg.Now,
	})
	if err != nil {
		return err
	}

	s.series[maturity] = &Series{Maturity: maturity, CreatedAt: now, PT: pt, YT: yt}
	s.logger.Info().Uint64("maturity", maturity).Msg("Maturity created")
	return nil
}

// DepositSYTokens credits SY to the sender directly, bypassing the wrapper.
// Kept as the bootstrap entry point for deployments without underlying tokens.
func (s *Splitter) DepositSYTokens(sender types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	s.syBalances[sender] += amount
	s.logger.Debug().Str("user", string(sender)).Uint64("amount", amount).Msg("SY deposited")
	return nil
}

// CreditSY issues SY to an address. The wrapper calls this when underlying
// tokens are wrapped; pause gating is the caller's concern.
func (s *Splitter) CreditSY(addr types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	newBal, err := utils.AddChecked(s.syBalances[addr], amount)
	if err != nil {
		return protocol.Statef("SY balance overflow for %s", addr)
	}
	s.syBalances[addr] = newBal
	return nil
}

// DebitSY retires SY from an address, failing on insufficient balance. The
// wrapper calls this when SY is unwrapped back to underlying tokens.
func (s *Splitter) DebitSY(addr types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	if s.syBalances[addr] < amount {
		return protocol.Statef("insufficient SY balance: have %d, need %d", s.syBalances[addr], amount)
	}
	s.debitSY(addr, amount)
	return nil
}

// SplitTokens burns `amount` of the sender's SY and mints the same amount of
// PT and YT in the chosen series. The three writes commit together or not at
// all.
func (s *Splitter) SplitTokens(sender types.Address, amount, maturity uint64) error {
	if s.paused {
		return protocol.Policyf("splitter is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	series, ok := s.series[maturity]
	if !ok {
		return protocol.Statef("maturity %d not found", maturity)
	}
	if s.cfg.Now() >= maturity {
		return protocol.Validationf("maturity %d already expired", maturity)
	}
	if s.syBalances[sender] < amount {
		return protocol.Statef("insufficient SY balance: have %d, need %d", s.syBalances[sender], amount)
	}

	// Mint both claims before touching SY so a ledger rejection leaves no
	// partial write.
	if err := series.PT.Mint(s.ledgerOwner, sender, amount); err != nil {
		return err
	}
	if err := series.YT.Mint(s.ledgerOwner, sender, amount); err != nil {
		// PT minted but YT failed: roll the PT mint back to keep the split atomic.
		_ = series.PT.Burn(sender, amount)
		return err
	}
	s.debitSY(sender, amount)

	s.logger.Info().
		Str("user", string(sender)).
		Uint64("amount", amount).
		Uint64("maturity", maturity).
		Msg("Tokens split")
	return nil
}

// RedeemTokens burns PT at or after maturity and credits SY 1:1. YT is not
// redeemable here.
func (s *Splitter) RedeemTokens(sender types.Address, amount, maturity uint64) error {
	if s.paused {
		return protocol.Policyf("splitter is paused")
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	series, ok := s.series[maturity]
	if !ok {
		return protocol.Statef("maturity %d not found", maturity)
	}
	if s.cfg.Now() < maturity {
		return protocol.Statef("maturity not reached")
	}

	if err := series.PT.Burn(sender, amount); err != nil {
		return err
	}
	s.syBalances[sender] += amount

	s.logger.Info().
		Str("user", string(sender)).
		Uint64("amount", amount).
		Uint64("maturity", maturity).
		Msg("Tokens redeemed")
	return nil
}

func (s *Splitter) debitSY(addr types.Address, amount uint64) {
	remaining := s.syBalances[addr] - amount
	if remaining == 0 {
		delete(s.syBalances, addr)
	} else {
		s.syBalances[addr] = remaining
	}
}

// Pause blocks maturity creation, splitting, and redemption.
func (s *Splitter) Pause(sender types.Address) error {
	if err := s.requireAdmin(sender); err != nil {
		return err
	}
	s.paused = true
	s.logger.Warn().Msg("Splitter paused")
	return nil
}

// Unpause re-enables the splitter.
func (s *Splitter) Unpause(sender types.Address) error {
	if err := s.requireAdmin(sender); err != nil {
		return err
	}
	s.paused = false
	s.logger.Info().Msg("Splitter unpaused")
	return nil
}

// IsPaused reports the pause flag.
func (s *Splitter) IsPaused() bool {
	return s.paused
}

// HasMaturity reports whether a maturity is registered. Implements the
// converter's maturity registry lookup.
func (s *Splitter) HasMaturity(maturity uint64) bool {
	_, ok := s.series[maturity]
	return ok
}

// Maturities returns all registered maturities in ascending order.
func (s *Splitter) Maturities() []uint64 {
	out := make([]uint64, 0, len(s.series))
	for m := range s.series {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SYBalanceOf returns an address's unsplit SY balance.
func (s *Splitter) SYBalanceOf(addr types.Address) uint64 {
	return s.syBalances[addr]
}

// UserBalances returns an address's SY/PT/YT view for one maturity series.
func (s *Splitter) UserBalances(addr types.Address, maturity uint64) (types.UserSplitBalances, error) {
	series, ok := s.series[maturity]
	if !ok {
		return types.UserSplitBalances{}, protocol.Statef("maturity %d not found", maturity)
	}
	return types.UserSplitBalances{
		SY: s.syBalances[addr],
		PT: series.PT.BalanceOf(addr),
		YT: series.YT.BalanceOf(addr),
	}, nil
}

// PT returns the principal ledger for a maturity.
func (s *Splitter) PT(maturity uint64) (*token.Ledger, error) {
	series, ok := s.series[maturity]
	if !ok {
		return nil, protocol.Statef("maturity %d not found", maturity)
	}
	return series.PT, nil
}

// YT returns the yield ledger for a maturity.
func (s *Splitter) YT(maturity uint64) (*token.Ledger, error) {
	series, ok := s.series[maturity]
	if !ok {
		return nil, protocol.Statef("maturity %d not found", maturity)
	}
	return series.YT, nil
}
