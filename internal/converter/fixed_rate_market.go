package converter

import (
	sdkmath "cosmossdk.io/math"

	"github.com/tesserapt/marlin/internal/protocol"
)

const (
	fixedRateNumerator   = 9950
	fixedRateDenominator = 10000
)

// FixedRateMarket exchanges YT for PT at a flat near-par rate. It stands in
// for an external venue when no AMM pool holds the pair.
type FixedRateMarket struct{}

// NewFixedRateMarket returns a flat-rate market.
func NewFixedRateMarket() *FixedRateMarket {
	return &FixedRateMarket{}
}

// QuotePTForYT returns floor(ytAmount * 9950 / 10000).
func (m *FixedRateMarket) QuotePTForYT(ytAmount uint64) (uint64, error) {
	if ytAmount == 0 {
		return 0, protocol.Validationf("amount must be positive")
	}
	out := sdkmath.NewIntFromUint64(ytAmount).
		MulRaw(fixedRateNumerator).
		QuoRaw(fixedRateDenominator)
	return out.Uint64(), nil
}

// SwapYTForPT executes at the fixed rate, rejecting outputs below minOut.
func (m *FixedRateMarket) SwapYTForPT(ytAmount, minOut uint64) (uint64, error) {
	out, err := m.QuotePTForYT(ytAmount)
	if err != nil {
		return 0, err
	}
	if out < minOut {
		return 0, protocol.Statef("insufficient output: %d below minimum %d", out, minOut)
	}
	return out, nil
}
