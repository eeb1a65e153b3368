package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedSqrt_Exact(t *testing.T) {
	cases := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{4, 2},
		{10_000, 100},
		{40_000, 200},
	}
	for _, tc := range cases {
		got, err := BoundedSqrt(sdkmath.NewIntFromUint64(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Uint64(), "sqrt(%d)", tc.in)
	}
}

// Beyond the convergence range the capped iteration overshoots; the result is
// deterministic but larger than the true root.
func TestBoundedSqrt_LargeProductOvershoots(t *testing.T) {
	got, err := BoundedSqrt(sdkmath.NewInt(1_000_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(976_562_840), got.Uint64())
	assert.Greater(t, got.Uint64(), uint64(1_000_000))
}

func TestBoundedSqrt_Negative(t *testing.T) {
	_, err := BoundedSqrt(sdkmath.NewInt(-1))
	assert.ErrorIs(t, err, ErrAmountNegative)
}

func TestBpsOf(t *testing.T) {
	assert.Equal(t, uint64(3), BpsOf(1000, 30))
	assert.Equal(t, uint64(0), BpsOf(100, 30))
	assert.Equal(t, uint64(1000), BpsOf(1000, 10_000))
	// No intermediate overflow near the uint64 limit.
	assert.Equal(t, ^uint64(0)/2, BpsOf(^uint64(0)/2, 10_000))
}

func TestDeviationBps(t *testing.T) {
	assert.Equal(t, int64(0), DeviationBps(0, 500).Int64())
	assert.Equal(t, int64(0), DeviationBps(1000, 1000).Int64())
	assert.Equal(t, int64(1000), DeviationBps(10_000, 11_000).Int64())
	assert.Equal(t, int64(1000), DeviationBps(10_000, 9_000).Int64())
	// Floor division: 1101/11000 is 1000.9 bps, truncated.
	assert.Equal(t, int64(1000), DeviationBps(11_000, 9_899).Int64())
	// Extreme jumps stay representable instead of clamping.
	assert.Equal(t, int64(90_000), DeviationBps(100, 1000).Int64())
}

func TestToUint64(t *testing.T) {
	v, err := ToUint64(sdkmath.NewIntFromUint64(^uint64(0)))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	_, err = ToUint64(sdkmath.NewInt(-5))
	assert.ErrorIs(t, err, ErrAmountNegative)

	over := sdkmath.NewIntFromUint64(^uint64(0)).Add(sdkmath.OneInt())
	_, err = ToUint64(over)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAddChecked(t *testing.T) {
	sum, err := AddChecked(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = AddChecked(^uint64(0), 1)
	assert.ErrorIs(t, err, ErrOverflow)

	sum, err = AddChecked(^uint64(0), 0)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), sum)
}
