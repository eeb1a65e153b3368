/*

Generic fungible-balance ledger shared by the PT and YT claims. Each ledger is
parameterized by an immutable maturity timestamp; PT and YT for one maturity
series are two independent instances with distinct storage.

*/

package token

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/utils"
)

// DefaultDecimals matches the claim tokens' display precision.
const DefaultDecimals = 8

// Config fixes the ledger parameters at construction. Maturity must be
// strictly in the future.
type Config struct {
	Owner    types.Address // only the owner may mint
	Name     string
	Symbol   string
	Maturity uint64
	Decimals uint8
	Now      func() uint64
}

// Ledger is a single claim's balance book. Invariant: the sum of all balances
// equals totalSupply at all times.
type Ledger struct {
	cfg    Config
	logger zerolog.Logger

	balances    map[types.Address]uint64
	allowances  map[types.Address]map[types.Address]uint64 // owner -> spender -> amount
	totalSupply uint64
}

// New constructs an empty ledger.
func New(cfg Config) (*Ledger, error) {
	if cfg.Owner == types.ZeroAddress {
		return nil, protocol.Validationf("owner address is required")
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	if cfg.Maturity <= cfg.Now() {
		return nil, protocol.Validationf("maturity must be in the future")
	}
	if cfg.Decimals == 0 {
		cfg.Decimals = DefaultDecimals
	}

	l := &Ledger{
		cfg:        cfg,
		logger:     logger.GetForComponent("token_ledger").With().Str("symbol", cfg.Symbol).Logger(),
		balances:   make(map[types.Address]uint64),
		allowances: make(map[types.Address]map[types.Address]uint64),
	}
	l.logger.Info().Uint64("maturity", cfg.Maturity).Msg("Token ledger initialized")
	return l, nil
}

// Mint credits freshly created claims to an address. Owner only.
func (l *Ledger) Mint(sender, to types.Address, amount uint64) error {
	if sender != l.cfg.Owner {
		return protocol.Authorizationf("sender %s is not the ledger owner", sender)
	}
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	if to == types.ZeroAddress {
		return protocol.Validationf("recipient address is required")
	}
	newSupply, err := utils.AddChecked(l.totalSupply, amount)
	if err != nil {
		return protocol.Statef("mint would overflow total supply")
	}

	l.totalSupply = newSupply
	l.balances[to] += amount
	l.logger.Debug().Str("to", string(to)).Uint64("amount", amount).Msg("Minted")
	return nil
}

// Burn destroys claims from the sender's balance.
func (l *Ledger) Burn(sender types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	if l.balances[sender] < amount {
		return protocol.Statef("insufficient balance: have %d, need %d", l.balances[sender], amount)
	}

	l.debit(sender, amount)
	l.totalSupply -= amount
	l.logger.Debug().Str("from", string(sender)).Uint64("amount", amount).Msg("Burned")
	return nil
}

// Transfer moves claims between addresses.
func (l *Ledger) Transfer(sender, to types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	if to == types.ZeroAddress {
		return protocol.Validationf("recipient address is required")
	}
	if l.balances[sender] < amount {
		return protocol.Statef("insufficient balance: have %d, need %d", l.balances[sender], amount)
	}

	l.debit(sender, amount)
	l.balances[to] += amount
	return nil
}

// Approve sets the spender's allowance over the owner's balance. Amount zero
// clears the approval.
func (l *Ledger) Approve(owner, spender types.Address, amount uint64) error {
	if spender == types.ZeroAddress {
		return protocol.Validationf("spender address is required")
	}
	row := l.allowances[owner]
	if row == nil {
		if amount == 0 {
			return nil
		}
		row = make(map[types.Address]uint64)
		l.allowances[owner] = row
	}
	if amount == 0 {
		delete(row, spender)
		if len(row) == 0 {
			delete(l.allowances, owner)
		}
		return nil
	}
	row[spender] = amount
	return nil
}

// TransferFrom moves claims out of `from` on the strength of an allowance
// granted to the calling spender.
func (l *Ledger) TransferFrom(spender, from, to types.Address, amount uint64) error {
	if amount == 0 {
		return protocol.Validationf("amount must be positive")
	}
	if to == types.ZeroAddress {
		return protocol.Validationf("recipient address is required")
	}
	allowance := l.Allowance(from, spender)
	if allowance < amount {
		return protocol.Statef("insufficient allowance: have %d, need %d", allowance, amount)
	}
	if l.balances[from] < amount {
		return protocol.Statef("insufficient balance: have %d, need %d", l.balances[from], amount)
	}

	l.allowances[from][spender] = allowance - amount
	l.debit(from, amount)
	l.balances[to] += amount
	return nil
}

// debit removes amount from addr, deleting exhausted entries so the balance
// map never accumulates zero rows.
func (l *Ledger) debit(addr types.Address, amount uint64) {
	remaining := l.balances[addr] - amount
	if remaining == 0 {
		delete(l.balances, addr)
	} else {
		l.balances[addr] = remaining
	}
}

// BalanceOf returns the balance of an address.
func (l *Ledger) BalanceOf(addr types.Address) uint64 {
	return l.balances[addr]
}

// Allowance returns the spender's remaining allowance over owner's balance.
func (l *Ledger) Allowance(owner, spender types.Address) uint64 {
	return l.allowances[owner][spender]
}

// TotalSupply returns the outstanding claim supply.
func (l *Ledger) TotalSupply() uint64 {
	return l.totalSupply
}

// Maturity returns the immutable maturity timestamp.
func (l *Ledger) Maturity() uint64 {
	return l.cfg.Maturity
}

// IsMature reports whether the maturity timestamp has been reached.
func (l *Ledger) IsMature() bool {
	return l.cfg.Now() >= l.cfg.Maturity
}

// UpdateOwner hands mint authority to a new owner.
func (l *Ledger) UpdateOwner(sender, newOwner types.Address) error {
	if sender != l.cfg.Owner {
		return protocol.Authorizationf("sender %s is not the ledger owner", sender)
	}
	if newOwner == types.ZeroAddress {
		return protocol.Validationf("new owner address is required")
	}
	l.cfg.Owner = newOwner
	l.logger.Info().Str("owner", string(newOwner)).Msg("Ledger owner updated")
	return nil
}

// Info returns the ledger's descriptive fields.
func (l *Ledger) Info() types.TokenInfo {
	return types.TokenInfo{
		Name:        l.cfg.Name,
		Symbol:      l.cfg.Symbol,
		Decimals:    l.cfg.Decimals,
		Maturity:    l.cfg.Maturity,
		TotalSupply: l.totalSupply,
	}
}
