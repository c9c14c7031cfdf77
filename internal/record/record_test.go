package record

import (
	"context"
	"testing"
	"time"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/treasury"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = ledger.AddressFromLabel("admin")
	receiver = ledger.AddressFromLabel("receiver")
	stranger = ledger.AddressFromLabel("stranger")
)

const period = 100

type fixture struct {
	ledger   *ledger.Ledger
	clock    *ledger.ManualClock
	treasury ledger.Address
	record   ledger.Address
}

// setupFixture deploys a record administered directly by an account, backed
// by an unproxied treasury holding 20 units.
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := ledger.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := ledger.New(ledger.NewRegistry(treasury.New(), New()), ledger.WithClock(clock))
	f := &fixture{ledger: l, clock: clock}

	_, err := l.Mint(ctx, admin, ledger.Native(100))
	require.NoError(t, err)

	r, err := l.Deploy(ctx, admin, treasury.ProgramName, decimal.Zero)
	require.NoError(t, err)
	f.treasury = r.Created
	_, err = l.Transact(ctx, ledger.Tx{From: admin, To: f.treasury, Data: ledger.NewCall(treasury.SigInitialize)})
	require.NoError(t, err)
	_, err = l.Transact(ctx, ledger.Tx{From: admin, To: f.treasury, Value: ledger.Native(20)})
	require.NoError(t, err)

	r, err = l.Deploy(ctx, admin, ProgramName, decimal.Zero,
		f.treasury, "Title", "Description", ledger.Native(1), uint64(period), receiver)
	require.NoError(t, err)
	f.record = r.Created

	_, err = l.Transact(ctx, ledger.Tx{From: admin, To: f.treasury, Data: ledger.NewCall(treasury.SigAddRecord, f.record)})
	require.NoError(t, err)
	return f
}

func (f *fixture) call(from ledger.Address, data ledger.Calldata) (*ledger.Receipt, error) {
	return f.ledger.Transact(context.Background(), ledger.Tx{From: from, To: f.record, Data: data})
}

func (f *fixture) view(t *testing.T, sig string) any {
	t.Helper()
	ret, err := f.ledger.View(context.Background(), stranger, f.record, ledger.NewCall(sig))
	require.NoError(t, err)
	return ret[0]
}

func (f *fixture) amount(t *testing.T, sig string) decimal.Decimal {
	t.Helper()
	return f.view(t, sig).(decimal.Decimal)
}

func (f *fixture) claim(t *testing.T) decimal.Decimal {
	t.Helper()
	r, err := f.call(stranger, ledger.NewCall(SigClaim))
	require.NoError(t, err)
	return r.Return[0].(decimal.Decimal)
}

func TestConstructorStoresTerms(t *testing.T) {
	f := setupFixture(t)

	assert.Equal(t, "Title", f.view(t, SigTitle))
	assert.Equal(t, "Description", f.view(t, SigDescription))
	assert.True(t, f.amount(t, SigAmount).Equal(ledger.Native(1)))
	assert.Equal(t, uint64(period), f.view(t, SigPeriod))
	assert.Equal(t, receiver, f.view(t, SigReceiver))
	assert.Equal(t, admin, f.view(t, SigFactory))
	assert.Equal(t, f.treasury, f.view(t, SigTreasury))
	assert.Equal(t, uint64(f.clock.Now().Unix()), f.view(t, SigStartTime))
	assert.True(t, f.amount(t, SigClaimed).IsZero())
	assert.Equal(t, false, f.view(t, SigPaused))
}

func TestConstructorValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Deploy(ctx, admin, ProgramName, decimal.Zero, f.treasury, "t", "d", ledger.Native(1), uint64(0), receiver)
	require.ErrorIs(t, err, ledger.ErrInvalidPeriod)

	_, err = f.ledger.Deploy(ctx, admin, ProgramName, decimal.Zero, f.treasury, "t", "d", ledger.Native(1), uint64(10), ledger.ZeroAddress)
	require.ErrorIs(t, err, ledger.ErrZeroAddress)

	_, err = f.ledger.Deploy(ctx, admin, ProgramName, decimal.Zero, ledger.ZeroAddress, "t", "d", ledger.Native(1), uint64(10), receiver)
	require.ErrorIs(t, err, ledger.ErrZeroAddress)
}

func TestClaimFollowsLinearSchedule(t *testing.T) {
	f := setupFixture(t)
	total := decimal.Zero

	for _, step := range []time.Duration{10, 15, 25, 50, 30} {
		f.clock.Advance(step * time.Second)
		want := f.amount(t, SigClaimable)
		got := f.claim(t)
		assert.True(t, got.Equal(want), "claimed %s, claimable was %s", got, want)
		total = total.Add(got)

		claimed := f.amount(t, SigClaimed)
		assert.True(t, claimed.Equal(total))
		assert.True(t, claimed.LessThanOrEqual(ledger.Native(1)))
	}

	assert.True(t, total.Equal(ledger.Native(1)))
	assert.True(t, f.ledger.BalanceOf(receiver).Equal(ledger.Native(1)))
	assert.True(t, f.ledger.BalanceOf(f.treasury).Equal(ledger.Native(19)))
}

func TestClaimTwiceInSameInstant(t *testing.T) {
	f := setupFixture(t)
	f.clock.Advance(40 * time.Second)

	first := f.claim(t)
	assert.True(t, first.Equal(ledger.MustParseNative("0.4")))
	assert.True(t, f.claim(t).IsZero())
}

func TestClaimAfterExhaustionIsNoop(t *testing.T) {
	f := setupFixture(t)
	f.clock.Advance(2 * period * time.Second)

	assert.True(t, f.claim(t).Equal(ledger.Native(1)))
	f.clock.Advance(time.Hour)
	assert.True(t, f.claim(t).IsZero())
	assert.True(t, f.amount(t, SigClaimed).Equal(ledger.Native(1)))
}

func TestClaimWhilePaused(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(admin, ledger.NewCall(SigPause))
	require.NoError(t, err)
	f.clock.Advance(60 * time.Second)

	_, err = f.call(stranger, ledger.NewCall(SigClaim))
	require.ErrorIs(t, err, ledger.ErrPaused)
	assert.True(t, f.ledger.BalanceOf(receiver).IsZero())

	// accrual kept running while paused
	_, err = f.call(admin, ledger.NewCall(SigUnpause))
	require.NoError(t, err)
	assert.True(t, f.claim(t).Equal(ledger.MustParseNative("0.6")))
}

func TestPauseRequiresFactory(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(stranger, ledger.NewCall(SigPause))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	_, err = f.call(stranger, ledger.NewCall(SigUpdate, "x", "y", ledger.Native(2), uint64(10), stranger))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestUpdateKeepsProgress(t *testing.T) {
	f := setupFixture(t)
	f.clock.Advance(50 * time.Second)
	f.claim(t)
	start := f.view(t, SigStartTime)

	_, err := f.call(admin, ledger.NewCall(SigUpdate, "New", "Terms", ledger.Native(2), uint64(200), stranger))
	require.NoError(t, err)

	assert.Equal(t, "New", f.view(t, SigTitle))
	assert.Equal(t, stranger, f.view(t, SigReceiver))
	assert.Equal(t, start, f.view(t, SigStartTime))
	assert.True(t, f.amount(t, SigClaimed).Equal(ledger.MustParseNative("0.5")))

	// vested under the new terms is 2 * 50/200 = 0.5, all of it already paid
	assert.True(t, f.amount(t, SigClaimable).IsZero())

	f.clock.Advance(50 * time.Second)
	assert.True(t, f.claim(t).Equal(ledger.MustParseNative("0.5")))
	assert.True(t, f.ledger.BalanceOf(stranger).Equal(ledger.MustParseNative("0.5")))
}

func TestUpdateRejectsAmountBelowClaimed(t *testing.T) {
	f := setupFixture(t)
	f.clock.Advance(50 * time.Second)
	f.claim(t)

	_, err := f.call(admin, ledger.NewCall(SigUpdate, "t", "d", ledger.MustParseNative("0.4"), uint64(period), receiver))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.call(admin, ledger.NewCall(SigUpdate, "t", "d", ledger.Native(1), uint64(0), receiver))
	require.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}

func TestFailedTransferRollsBackClaimed(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Transact(ctx, ledger.Tx{From: admin, To: f.treasury, Data: ledger.NewCall(treasury.SigWithdraw, admin, ledger.Native(20))})
	require.NoError(t, err)
	f.clock.Advance(period * time.Second)

	_, err = f.call(stranger, ledger.NewCall(SigClaim))
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.True(t, f.amount(t, SigClaimed).IsZero())
	assert.True(t, f.amount(t, SigClaimable).Equal(ledger.Native(1)))
}

func TestClaimUnauthorizedRecord(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	r, err := f.ledger.Deploy(ctx, admin, ProgramName, decimal.Zero, f.treasury, "t", "d", ledger.Native(1), uint64(10), receiver)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	_, err = f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: r.Created, Data: ledger.NewCall(SigClaim)})
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
}
