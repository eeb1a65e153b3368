/*

Integer arithmetic helpers shared by the market and accrual components. All
protocol amounts are uint64; intermediates that can exceed 64 bits go through
sdkmath.Int and are floor-truncated back.

*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrOverflow       = errors.New("amount exceeds uint64 range")
)

// BpsDenominator is the protocol-wide basis point denominator. The AMM's fee
// uses a per-1000 denominator instead; see the amm package.
const BpsDenominator = 10000

// SqrtIterations bounds the Newton iteration in BoundedSqrt. The result is an
// approximation: the (x+1)/2 seed roughly halves each iteration, so the cap
// only allows exact convergence for small inputs (the first inexact value is
// 31328) and the estimate overshoots the true root by up to a factor of
// roughly sqrt(x)/2^11 for large x. Callers rely on the iteration bound and
// on the result being deterministic, not on exactness.
const SqrtIterations = 10

// BoundedSqrt computes an integer square root of x via Newton's method with a
// fixed iteration cap. x must be non-negative.
func BoundedSqrt(x sdkmath.Int) (sdkmath.Int, error) {
	if x.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if x.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if x.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	two := sdkmath.NewInt(2)
	z := x
	y := x.Add(sdkmath.OneInt()).Quo(two)
	for i := 0; i < SqrtIterations && y.LT(z); i++ {
		z = y
		y = x.Quo(y).Add(y).Quo(two)
	}
	return z, nil
}

// BpsOf returns floor(amount * bps / BpsDenominator) without intermediate
// overflow.
func BpsOf(amount, bps uint64) uint64 {
	result := sdkmath.NewIntFromUint64(amount).
		MulRaw(int64(bps)).
		QuoRaw(BpsDenominator)
	// amount * bps / 10000 <= amount, always representable
	return result.Uint64()
}

// DeviationBps returns |newValue-oldValue| scaled by BpsDenominator and
// floor-divided by oldValue, as an sdkmath.Int so extreme jumps do not clamp.
// oldValue of zero yields zero deviation.
func DeviationBps(oldValue, newValue uint64) sdkmath.Int {
	if oldValue == 0 {
		return sdkmath.ZeroInt()
	}
	var diff uint64
	if oldValue > newValue {
		diff = oldValue - newValue
	} else {
		diff = newValue - oldValue
	}
	return sdkmath.NewIntFromUint64(diff).
		MulRaw(BpsDenominator).
		Quo(sdkmath.NewIntFromUint64(oldValue))
}

// ToUint64 converts an sdkmath.Int back to a protocol amount, rejecting
// negatives and values outside the uint64 range.
func ToUint64(v sdkmath.Int) (uint64, error) {
	if v.IsNil() {
		return 0, ErrAmountNil
	}
	if v.IsNegative() {
		return 0, ErrAmountNegative
	}
	if !v.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, v.String())
	}
	return v.Uint64(), nil
}

// AddChecked returns a+b, failing on uint64 wraparound.
func AddChecked(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}
