package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
)

const (
	admin  = types.Address("admin")
	alice  = types.Address("alice")
	keeper = types.Address("keeper")
)

// stubPrices returns a fixed price, or an error when price is zero.
type stubPrices struct {
	price uint64
}

func (s *stubPrices) GetPrice() (uint64, error) {
	if s.price == 0 {
		return 0, protocol.Statef("no price available")
	}
	return s.price, nil
}

// stubRegistry accepts a fixed set of maturities.
type stubRegistry struct {
	maturities map[uint64]bool
}

func (s *stubRegistry) HasMaturity(maturity uint64) bool {
	return s.maturities[maturity]
}

type fixture struct {
	converter *Converter
	prices    *stubPrices
	now       uint64
	maturity  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		prices:   &stubPrices{price: 50_000},
		now:      1_000_000,
		maturity: 1_000_000 + 86400,
	}
	c, err := New(Config{
		Admin:      admin,
		Prices:     f.prices,
		Market:     NewFixedRateMarket(),
		Maturities: &stubRegistry{maturities: map[uint64]bool{f.maturity: true}},
		Now:        func() uint64 { return f.now },
	})
	require.NoError(t, err)
	f.converter = c
	return f
}

// arm configures and funds alice's conversion.
func (f *fixture) arm(t *testing.T, threshold, ytAmount uint64) {
	t.Helper()
	require.NoError(t, f.converter.ConfigureConversion(alice, true, threshold, f.maturity))
	require.NoError(t, f.converter.DepositYTTokens(alice, ytAmount))
}

func TestNew_Validation(t *testing.T) {
	base := Config{
		Admin:      admin,
		Prices:     &stubPrices{},
		Market:     NewFixedRateMarket(),
		Maturities: &stubRegistry{},
	}

	cfg := base
	cfg.Admin = types.ZeroAddress
	_, err := New(cfg)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	cfg = base
	cfg.Prices = nil
	_, err = New(cfg)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	cfg = base
	cfg.FeeBps = MaxFeeBps + 1
	_, err = New(cfg)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))
}

func TestConfigureConversion(t *testing.T) {
	f := newFixture(t)

	err := f.converter.ConfigureConversion(alice, true, 0, f.maturity)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	err = f.converter.ConfigureConversion(alice, true, 60_000, f.now)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	err = f.converter.ConfigureConversion(alice, true, 60_000, f.maturity+1)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	require.NoError(t, f.converter.ConfigureConversion(alice, true, 60_000, f.maturity))
	cfg := f.converter.UserConfig(alice)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, uint64(60_000), cfg.ThresholdPrice)
	assert.Equal(t, f.maturity, cfg.Maturity)
	assert.False(t, cfg.Executed)
}

func TestConfigureConversion_Disabled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.converter.DepositYTTokens(alice, 1000))

	// A disabled config stores its parameters but refuses to execute.
	require.NoError(t, f.converter.ConfigureConversion(alice, false, 45_000, f.maturity))
	cfg := f.converter.UserConfig(alice)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, uint64(45_000), cfg.ThresholdPrice)

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	ok, reason := f.converter.CanExecute(alice)
	assert.False(t, ok)
	assert.Equal(t, "conversion not enabled", reason)

	// Re-enabling arms it.
	require.NoError(t, f.converter.ConfigureConversion(alice, true, 45_000, f.maturity))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)
}

func TestExecuteConversion_FeeAndOutput(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	// Fee is floor(1000*30/10000) = 3; the fixed-rate market pays
	// floor(997*9950/10000) = 992 for the remaining 997.
	receipt, err := f.converter.ExecuteConversion(keeper, alice, 965, f.maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), receipt.YTConverted)
	assert.Equal(t, uint64(3), receipt.FeePaid)
	assert.Equal(t, uint64(992), receipt.PTReceived)
	assert.Equal(t, uint64(50_000), receipt.OraclePrice)
	assert.Equal(t, alice, receipt.User)
	assert.Equal(t, keeper, receipt.Caller)
	assert.NotEmpty(t, receipt.ID)

	bal := f.converter.UserBalances(alice)
	assert.Equal(t, uint64(0), bal.YT)
	assert.Equal(t, uint64(992), bal.PT)
	assert.Equal(t, uint64(3), f.converter.CollectedFees())
	assert.Equal(t, uint64(1), f.converter.Info().TotalConversions)
}

func TestExecuteConversion_OneShotLatch(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)

	// A second execution is refused even with fresh YT in escrow.
	require.NoError(t, f.converter.DepositYTTokens(alice, 1000))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	// Re-arming clears the latch.
	require.NoError(t, f.converter.ConfigureConversion(alice, true, 45_000, f.maturity))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)
}

func TestExecuteConversion_ThresholdGate(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 55_000, 1000)

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	// Escrow is untouched by the rejection.
	assert.Equal(t, uint64(1000), f.converter.UserBalances(alice).YT)

	f.prices.price = 55_000
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)
}

func TestExecuteConversion_Deadline(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.now-1)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	// There is no unset sentinel; a zero deadline is just expired.
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, 0)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	// The rejections left the escrow and latch untouched.
	assert.Equal(t, uint64(1000), f.converter.UserBalances(alice).YT)
	assert.False(t, f.converter.UserConfig(alice).Executed)

	// Deadline equal to now is still live.
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.now)
	require.NoError(t, err)
}

func TestExecuteConversion_SlippageGuard(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	_, err := f.converter.ExecuteConversion(keeper, alice, 993, f.maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	// The failed swap left everything in place, including the latch.
	assert.Equal(t, uint64(1000), f.converter.UserBalances(alice).YT)
	assert.False(t, f.converter.UserConfig(alice).Executed)

	_, err = f.converter.ExecuteConversion(keeper, alice, 992, f.maturity)
	require.NoError(t, err)
}

func TestExecuteConversion_RequiresEscrowAndConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	require.NoError(t, f.converter.ConfigureConversion(alice, true, 45_000, f.maturity))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))
}

func TestExecuteConversion_NoFreshPrice(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)
	f.prices.price = 0

	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))
}

func TestEmergencyDisableConversion(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	err := f.converter.EmergencyDisableConversion(keeper, alice)
	assert.Equal(t, protocol.KindAuthorization, protocol.KindOf(err))

	require.NoError(t, f.converter.EmergencyDisableConversion(alice, alice))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	// Admin can disarm any user.
	require.NoError(t, f.converter.ConfigureConversion(alice, true, 45_000, f.maturity))
	require.NoError(t, f.converter.EmergencyDisableConversion(admin, alice))
	assert.False(t, f.converter.UserConfig(alice).Enabled)
}

func TestWithdrawPTTokens(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)
	_, err := f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)

	err = f.converter.WithdrawPTTokens(alice, 993)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	require.NoError(t, f.converter.WithdrawPTTokens(alice, 992))
	assert.Equal(t, uint64(0), f.converter.UserBalances(alice).PT)
}

func TestCanExecute(t *testing.T) {
	f := newFixture(t)

	ok, reason := f.converter.CanExecute(alice)
	assert.False(t, ok)
	assert.Equal(t, "conversion not enabled", reason)

	f.arm(t, 55_000, 1000)
	ok, reason = f.converter.CanExecute(alice)
	assert.False(t, ok)
	assert.Equal(t, "price below threshold", reason)

	f.prices.price = 55_000
	ok, reason = f.converter.CanExecute(alice)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestSetConversionFee(t *testing.T) {
	f := newFixture(t)

	err := f.converter.SetConversionFee(alice, 50)
	assert.Equal(t, protocol.KindAuthorization, protocol.KindOf(err))

	err = f.converter.SetConversionFee(admin, MaxFeeBps+1)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	require.NoError(t, f.converter.SetConversionFee(admin, 50))
	assert.Equal(t, uint64(50), f.converter.Info().FeeBps)
}

func TestPauseGates(t *testing.T) {
	f := newFixture(t)
	f.arm(t, 45_000, 1000)

	require.NoError(t, f.converter.Pause(admin))
	err := f.converter.DepositYTTokens(alice, 10)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	require.NoError(t, f.converter.Unpause(admin))
	_, err = f.converter.ExecuteConversion(keeper, alice, 0, f.maturity)
	require.NoError(t, err)
}

func TestFixedRateMarket(t *testing.T) {
	m := NewFixedRateMarket()

	_, err := m.QuotePTForYT(0)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	out, err := m.QuotePTForYT(10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(9950), out)

	_, err = m.SwapYTForPT(10_000, 9951)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	out, err = m.SwapYTForPT(10_000, 9950)
	require.NoError(t, err)
	assert.Equal(t, uint64(9950), out)
}
