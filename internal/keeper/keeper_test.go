package keeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	owner    = ledger.AddressFromLabel("owner")
	executor = ledger.AddressFromLabel("executor")
	alice    = ledger.AddressFromLabel("alice")
	bob      = ledger.AddressFromLabel("bob")
)

type fixture struct {
	svc   *api.Service
	clock *ledger.ManualClock
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := ledger.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := api.NewService(ledger.New(api.NewRegistry(), ledger.WithClock(clock)), nil)

	require.NoError(t, svc.Fund(ctx, owner, ledger.Native(100)))
	_, err := svc.DeployAll(ctx, owner, executor)
	require.NoError(t, err)
	require.NoError(t, svc.Deposit(ctx, owner, ledger.Native(20)))
	return &fixture{svc: svc, clock: clock}
}

func (f *fixture) createRecord(t *testing.T, receiver ledger.Address, amount int64, period uint64) ledger.Address {
	t.Helper()
	rec, err := f.svc.CreateRecord(context.Background(), executor, api.RecordTerms{
		Title:    "grant",
		Amount:   ledger.Native(amount),
		Period:   period,
		Receiver: receiver,
	})
	require.NoError(t, err)
	return rec
}

func TestSweepClaimsDueRecords(t *testing.T) {
	f := setupFixture(t)
	f.createRecord(t, alice, 1, 100)
	f.createRecord(t, bob, 2, 100)
	f.clock.Advance(100 * time.Second)

	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: time.Minute})
	result := k.Sweep(context.Background())

	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Claimed)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Total.Equal(ledger.Native(3)))
	assert.True(t, f.svc.Balance(alice).Equal(ledger.Native(1)))
	assert.True(t, f.svc.Balance(bob).Equal(ledger.Native(2)))
	assert.Equal(t, result, k.LastSweep())

	// nothing left to claim
	result = k.Sweep(context.Background())
	assert.Equal(t, 0, result.Claimed)
	assert.Equal(t, 2, result.Skipped)
}

func TestSweepSkipsPausedAndSmallRecords(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	paused := f.createRecord(t, alice, 1, 100)
	small := f.createRecord(t, bob, 1, 1000)
	require.NoError(t, f.svc.PauseRecord(ctx, owner, paused))
	f.clock.Advance(100 * time.Second)

	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: time.Minute, MinClaim: ledger.MustParseNative("0.5")})
	result := k.Sweep(ctx)

	assert.Equal(t, 0, result.Claimed)
	assert.Equal(t, 2, result.Skipped)
	assert.True(t, f.svc.Balance(alice).IsZero())

	info, err := f.svc.GetRecord(ctx, small)
	require.NoError(t, err)
	assert.True(t, info.Claimable.Equal(ledger.MustParseNative("0.1")))
}

func TestSweepSkipsWhenFactoryPaused(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.createRecord(t, alice, 1, 100)
	require.NoError(t, f.svc.PauseFactory(ctx, owner))
	f.clock.Advance(100 * time.Second)

	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: time.Minute})
	result := k.Sweep(ctx)

	assert.Equal(t, 0, result.Checked)
	assert.True(t, f.svc.Balance(alice).IsZero())
}

func TestSweepCountsFailedClaims(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.createRecord(t, alice, 1, 100)
	require.NoError(t, f.svc.Withdraw(ctx, owner, owner, ledger.Native(20)))
	f.clock.Advance(100 * time.Second)

	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: time.Minute})
	result := k.Sweep(ctx)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Claimed)
}

func TestStartStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := setupFixture(t)
	f.createRecord(t, alice, 1, 100)
	f.clock.Advance(100 * time.Second)

	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: 10 * time.Millisecond})
	require.NoError(t, k.Start(context.Background()))

	require.Eventually(t, func() bool {
		return f.svc.Balance(alice).Equal(ledger.Native(1))
	}, time.Second, 5*time.Millisecond)

	k.Stop()
}

func TestStopOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := setupFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	k := New(Config{Service: f.svc, Operator: owner, PollingInterval: time.Hour})
	require.NoError(t, k.Start(ctx))

	cancel()
	select {
	case <-k.doneChan:
	case <-time.After(time.Second):
		t.Fatal("keeper did not stop after cancel")
	}
}

type unhealthy struct{ RecordService }

func (unhealthy) HealthCheck(context.Context) error { return errors.New("down") }

func TestStartFailsHealthCheck(t *testing.T) {
	k := New(Config{Service: unhealthy{}, PollingInterval: time.Second})
	require.Error(t, k.Start(context.Background()))

	k = New(Config{Service: unhealthy{}, PollingInterval: 0})
	require.Error(t, k.Start(context.Background()))
}

// compile-time check that the facade satisfies the keeper's needs
var _ RecordService = (*api.Service)(nil)
