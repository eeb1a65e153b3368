package tokenization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserapt/marlin/internal/protocol"
	"github.com/tesserapt/marlin/internal/types"
)

const (
	admin = types.Address("admin")
	alice = types.Address("alice")
	bob   = types.Address("bob")
)

func newTestSplitter(t *testing.T, now *uint64) *Splitter {
	t.Helper()
	s, err := New(Config{
		Admin:  admin,
		Name:   "Standardized Yield",
		Symbol: "SY",
		Now:    func() uint64 { return *now },
	})
	require.NoError(t, err)
	return s
}

func TestCreateMaturity(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400

	err := s.CreateMaturity(alice, maturity)
	assert.Equal(t, protocol.KindAuthorization, protocol.KindOf(err))

	err = s.CreateMaturity(admin, now)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	err = s.CreateMaturity(admin, now+MaxMaturityHorizon+1)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	require.NoError(t, s.CreateMaturity(admin, maturity))
	assert.True(t, s.HasMaturity(maturity))

	err = s.CreateMaturity(admin, maturity)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	// The series ledgers carry the registry maturity.
	pt, err := s.PT(maturity)
	require.NoError(t, err)
	assert.Equal(t, maturity, pt.Maturity())
	yt, err := s.YT(maturity)
	require.NoError(t, err)
	assert.Equal(t, maturity, yt.Maturity())
}

func TestCreditAndDebitSY(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)

	err := s.CreditSY(alice, 0)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

	require.NoError(t, s.CreditSY(alice, 500))
	assert.Equal(t, uint64(500), s.SYBalanceOf(alice))

	err = s.DebitSY(alice, 501)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	require.NoError(t, s.DebitSY(alice, 500))
	assert.Equal(t, uint64(0), s.SYBalanceOf(alice))

	// Credits saturating uint64 are refused rather than wrapped.
	require.NoError(t, s.CreditSY(bob, ^uint64(0)))
	err = s.CreditSY(bob, 1)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))
}

func TestSplitTokens(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400
	require.NoError(t, s.CreateMaturity(admin, maturity))
	require.NoError(t, s.DepositSYTokens(alice, 500))

	err := s.SplitTokens(alice, 100, maturity+1)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	err = s.SplitTokens(alice, 501, maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	require.NoError(t, s.SplitTokens(alice, 300, maturity))

	balances, err := s.UserBalances(alice, maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), balances.SY)
	assert.Equal(t, uint64(300), balances.PT)
	assert.Equal(t, uint64(300), balances.YT)
}

// Splitting conserves value: SY burned equals PT minted equals YT minted.
func TestSplitTokens_Conservation(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400
	require.NoError(t, s.CreateMaturity(admin, maturity))
	require.NoError(t, s.DepositSYTokens(alice, 700))
	require.NoError(t, s.DepositSYTokens(bob, 300))

	require.NoError(t, s.SplitTokens(alice, 400, maturity))
	require.NoError(t, s.SplitTokens(bob, 250, maturity))

	pt, err := s.PT(maturity)
	require.NoError(t, err)
	yt, err := s.YT(maturity)
	require.NoError(t, err)

	totalSY := s.SYBalanceOf(alice) + s.SYBalanceOf(bob)
	assert.Equal(t, uint64(650), pt.TotalSupply())
	assert.Equal(t, uint64(650), yt.TotalSupply())
	assert.Equal(t, uint64(1000), totalSY+pt.TotalSupply())
}

func TestSplitTokens_ExpiredMaturity(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400
	require.NoError(t, s.CreateMaturity(admin, maturity))
	require.NoError(t, s.DepositSYTokens(alice, 100))

	now = maturity
	err := s.SplitTokens(alice, 100, maturity)
	assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))
}

func TestRedeemTokens(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400
	require.NoError(t, s.CreateMaturity(admin, maturity))
	require.NoError(t, s.DepositSYTokens(alice, 100))
	require.NoError(t, s.SplitTokens(alice, 100, maturity))

	err := s.RedeemTokens(alice, 100, maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))

	// PT redeems 1:1 once the maturity timestamp is reached.
	now = maturity
	require.NoError(t, s.RedeemTokens(alice, 100, maturity))
	assert.Equal(t, uint64(100), s.SYBalanceOf(alice))

	pt, err := s.PT(maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pt.TotalSupply())

	// YT carries no redemption claim; its supply is untouched.
	yt, err := s.YT(maturity)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), yt.TotalSupply())

	err = s.RedeemTokens(alice, 1, maturity)
	assert.Equal(t, protocol.KindState, protocol.KindOf(err))
}

func TestPauseGates(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)
	maturity := now + 86400
	require.NoError(t, s.CreateMaturity(admin, maturity))
	require.NoError(t, s.DepositSYTokens(alice, 100))

	err := s.Pause(alice)
	assert.Equal(t, protocol.KindAuthorization, protocol.KindOf(err))
	require.NoError(t, s.Pause(admin))
	assert.True(t, s.IsPaused())

	err = s.SplitTokens(alice, 100, maturity)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))
	err = s.CreateMaturity(admin, maturity+100)
	assert.Equal(t, protocol.KindPolicy, protocol.KindOf(err))

	require.NoError(t, s.Unpause(admin))
	require.NoError(t, s.SplitTokens(alice, 100, maturity))
}

func TestMaturitiesSorted(t *testing.T) {
	now := uint64(1_000_000)
	s := newTestSplitter(t, &now)

	require.NoError(t, s.CreateMaturity(admin, now+300))
	require.NoError(t, s.CreateMaturity(admin, now+100))
	require.NoError(t, s.CreateMaturity(admin, now+200))

	assert.Equal(t, []uint64{now + 100, now + 200, now + 300}, s.Maturities())
}
