package treasury

import (
	"context"
	"testing"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/proxy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// payee stands in for a record: it reports a receiver and pulls funds.
type payee struct {
	methods *ledger.Methods
}

func newPayee() *payee {
	p := &payee{}
	p.methods = ledger.NewMethods(
		ledger.Method{Signature: "receiver()", Handler: p.receiver},
		ledger.Method{Signature: "pull(address,uint256)", Handler: p.pull},
	)
	return p
}

func (p *payee) Name() string { return "payee" }

func (p *payee) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	return p.methods.Run(c, call)
}

func (p *payee) Construct(c *ledger.Context, args ledger.Values) error {
	receiver, err := args.Address(0)
	if err != nil {
		return err
	}
	c.Storage().SetAddress("receiver", receiver)
	return nil
}

func (p *payee) receiver(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Address("receiver")}, nil
}

func (p *payee) pull(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	treasury, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	amount, err := args.Amount(1)
	if err != nil {
		return nil, err
	}
	return c.Call(treasury, decimal.Zero, ledger.NewCall(SigClaim, amount))
}

// greedy receives funds and tries to pull again from the paying record.
type greedy struct{}

func (greedy) Name() string { return "greedy" }

func (greedy) Construct(c *ledger.Context, args ledger.Values) error {
	record, err := args.Address(0)
	if err != nil {
		return err
	}
	treasury, err := args.Address(1)
	if err != nil {
		return err
	}
	c.Storage().SetAddress("record", record)
	c.Storage().SetAddress("treasury", treasury)
	return nil
}

func (greedy) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	if !call.IsEmpty() {
		return nil, ledger.ErrUnknownMethod
	}
	st := c.Storage()
	return c.Call(st.Address("record"), decimal.Zero, ledger.NewCall("pull(address,uint256)", st.Address("treasury"), c.Value()))
}

var (
	owner    = ledger.AddressFromLabel("owner")
	factory  = ledger.AddressFromLabel("factory")
	stranger = ledger.AddressFromLabel("stranger")
	receiver = ledger.AddressFromLabel("receiver")
)

type fixture struct {
	ledger   *ledger.Ledger
	logic    ledger.Address
	treasury ledger.Address
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	l := ledger.New(ledger.NewRegistry(proxy.New(), New(), newPayee(), greedy{}))

	for _, a := range []ledger.Address{owner, stranger} {
		_, err := l.Mint(ctx, a, ledger.Native(100))
		require.NoError(t, err)
	}

	f := &fixture{ledger: l}
	f.logic = f.deploy(t, ProgramName)
	f.treasury = f.deploy(t, proxy.ProgramName, f.logic)

	_, err := l.Transact(ctx, ledger.Tx{From: owner, To: f.treasury, Data: ledger.NewCall(
		proxy.SigInitialize, owner, f.logic, ledger.NewCall(SigInitialize),
	)})
	require.NoError(t, err)

	_, err = f.call(owner, ledger.NewCall(SigSetFactory, factory))
	require.NoError(t, err)

	// funded with a plain transfer, as a wallet would
	_, err = l.Transact(ctx, ledger.Tx{From: owner, To: f.treasury, Value: ledger.Native(20)})
	require.NoError(t, err)
	return f
}

func (f *fixture) deploy(t *testing.T, program string, args ...any) ledger.Address {
	t.Helper()
	r, err := f.ledger.Deploy(context.Background(), owner, program, decimal.Zero, args...)
	require.NoError(t, err)
	return r.Created
}

func (f *fixture) call(from ledger.Address, data ledger.Calldata) (*ledger.Receipt, error) {
	return f.ledger.Transact(context.Background(), ledger.Tx{From: from, To: f.treasury, Data: data})
}

func (f *fixture) balance() decimal.Decimal {
	return f.ledger.BalanceOf(f.treasury)
}

// authorizedPayee deploys a payee paying receiver and registers it.
func (f *fixture) authorizedPayee(t *testing.T, to ledger.Address) ledger.Address {
	t.Helper()
	p := f.deploy(t, "payee", to)
	_, err := f.call(factory, ledger.NewCall(SigAddRecord, p))
	require.NoError(t, err)
	return p
}

func TestInitializeSetsOwner(t *testing.T) {
	f := setupFixture(t)

	ret, err := f.ledger.View(context.Background(), stranger, f.treasury, ledger.NewCall(SigGetOwner))
	require.NoError(t, err)
	assert.Equal(t, owner, ret[0])

	_, err = f.call(stranger, ledger.NewCall(SigInitialize))
	require.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
}

func TestInitializeCannotBeTakenBeforeProxySetup(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	fresh := f.deploy(t, proxy.ProgramName, f.logic)

	_, err := f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: fresh, Data: ledger.NewCall(SigInitialize)})
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.ledger.Transact(ctx, ledger.Tx{From: owner, To: fresh, Data: ledger.NewCall(
		proxy.SigInitialize, owner, f.logic, ledger.NewCall(SigInitialize),
	)})
	require.NoError(t, err)

	ret, err := f.ledger.View(ctx, stranger, fresh, ledger.NewCall(SigGetOwner))
	require.NoError(t, err)
	assert.Equal(t, owner, ret[0])
}

func TestDepositIsAdditive(t *testing.T) {
	amounts := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(1), ledger.MustParseNative("0.5"), ledger.Native(3)}
	for _, v := range amounts {
		t.Run(v.String(), func(t *testing.T) {
			f := setupFixture(t)
			before := f.balance()

			r, err := f.ledger.Transact(context.Background(), ledger.Tx{From: stranger, To: f.treasury, Value: v, Data: ledger.NewCall(SigDeposit)})
			require.NoError(t, err)
			assert.True(t, f.balance().Equal(before.Add(v)))
			require.Len(t, r.EventsNamed("Deposit"), 1)
		})
	}
}

func TestWithdraw(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(owner, ledger.NewCall(SigWithdraw, owner, ledger.MustParseNative("0.5")))
	require.NoError(t, err)
	assert.True(t, f.balance().Equal(ledger.MustParseNative("19.5")))
	assert.True(t, f.ledger.BalanceOf(owner).Equal(ledger.MustParseNative("80.5")))
}

func TestWithdrawEverything(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(owner, ledger.NewCall(SigWithdraw, owner, ledger.Native(20)))
	require.NoError(t, err)
	assert.True(t, f.balance().IsZero())
}

func TestWithdrawFailures(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(stranger, ledger.NewCall(SigWithdraw, stranger, ledger.Native(1)))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.call(owner, ledger.NewCall(SigWithdraw, owner, ledger.Native(21)))
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = f.call(owner, ledger.NewCall(SigWithdraw, ledger.ZeroAddress, ledger.Native(1)))
	require.ErrorIs(t, err, ledger.ErrZeroAddress)

	assert.True(t, f.balance().Equal(ledger.Native(20)))
}

func TestSetFactoryOwnerOnly(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(stranger, ledger.NewCall(SigSetFactory, stranger))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// repeatable
	_, err = f.call(owner, ledger.NewCall(SigSetFactory, factory))
	require.NoError(t, err)
}

func TestAddRecordCallers(t *testing.T) {
	f := setupFixture(t)
	p := f.deploy(t, "payee", receiver)

	_, err := f.call(stranger, ledger.NewCall(SigAddRecord, p))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.call(owner, ledger.NewCall(SigAddRecord, p))
	require.NoError(t, err)

	ret, err := f.ledger.View(context.Background(), stranger, f.treasury, ledger.NewCall(SigIsRecord, p))
	require.NoError(t, err)
	assert.Equal(t, true, ret[0])
}

func TestClaimPaysReceiver(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	p := f.authorizedPayee(t, receiver)

	_, err := f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: p, Data: ledger.NewCall("pull(address,uint256)", f.treasury, ledger.Native(2))})
	require.NoError(t, err)
	assert.True(t, f.ledger.BalanceOf(receiver).Equal(ledger.Native(2)))
	assert.True(t, f.balance().Equal(ledger.Native(18)))

	ret, err := f.ledger.View(ctx, stranger, f.treasury, ledger.NewCall(SigDisbursed, p))
	require.NoError(t, err)
	assert.True(t, ret[0].(decimal.Decimal).Equal(ledger.Native(2)))
}

func TestClaimRequiresAuthorizedRecord(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	p := f.deploy(t, "payee", receiver)

	_, err := f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: p, Data: ledger.NewCall("pull(address,uint256)", f.treasury, ledger.Native(1))})
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.call(stranger, ledger.NewCall(SigClaim, ledger.Native(1)))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.True(t, f.balance().Equal(ledger.Native(20)))
}

func TestClaimBeyondBalance(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	p := f.authorizedPayee(t, receiver)

	_, err := f.call(owner, ledger.NewCall(SigWithdraw, owner, ledger.Native(20)))
	require.NoError(t, err)

	_, err = f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: p, Data: ledger.NewCall("pull(address,uint256)", f.treasury, ledger.Native(1))})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.True(t, f.ledger.BalanceOf(receiver).IsZero())
}

func TestClaimReentrancyBlocked(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)

	// the payee's receiver is a program that pulls again when paid
	p := f.deploy(t, "payee", stranger)
	hostile := f.deploy(t, "greedy", p, f.treasury)
	_, err := f.call(owner, ledger.NewCall(SigAddRecord, p))
	require.NoError(t, err)

	q := f.authorizedPayee(t, hostile)
	_, err = f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: q, Data: ledger.NewCall("pull(address,uint256)", f.treasury, ledger.Native(1))})
	require.ErrorIs(t, err, ledger.ErrReentrantCall)
	assert.True(t, f.balance().Equal(ledger.Native(20)))
	assert.True(t, f.ledger.BalanceOf(hostile).IsZero())
}

func TestMigrateConservesBalance(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)

	next := f.deploy(t, ProgramName)
	_, err := f.ledger.Transact(ctx, ledger.Tx{From: owner, To: next, Data: ledger.NewCall(SigInitialize)})
	require.NoError(t, err)

	before := f.balance()
	_, err = f.call(owner, ledger.NewCall(SigMigrate, next))
	require.NoError(t, err)
	assert.True(t, f.balance().IsZero())
	assert.True(t, f.ledger.BalanceOf(next).Equal(before))

	ret, err := f.ledger.View(ctx, stranger, next, ledger.NewCall(SigGetBalance))
	require.NoError(t, err)
	assert.True(t, ret[0].(decimal.Decimal).Equal(before))

	ret, err = f.ledger.View(ctx, stranger, f.treasury, ledger.NewCall(SigMigratedTo))
	require.NoError(t, err)
	assert.Equal(t, next, ret[0])
}

func TestMigrateLeavesRecordsOnOldTreasury(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	p := f.authorizedPayee(t, receiver)
	next := f.deploy(t, ProgramName)

	_, err := f.call(owner, ledger.NewCall(SigMigrate, next))
	require.NoError(t, err)

	_, err = f.ledger.Transact(ctx, ledger.Tx{From: stranger, To: p, Data: ledger.NewCall("pull(address,uint256)", f.treasury, ledger.Native(1))})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestMigrateOwnerOnly(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(stranger, ledger.NewCall(SigMigrate, stranger))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.call(owner, ledger.NewCall(SigMigrate, ledger.ZeroAddress))
	require.ErrorIs(t, err, ledger.ErrZeroAddress)
}

func TestTransferOwnership(t *testing.T) {
	f := setupFixture(t)

	_, err := f.call(owner, ledger.NewCall(SigTransferOwnership, stranger))
	require.NoError(t, err)

	_, err = f.call(owner, ledger.NewCall(SigWithdraw, owner, ledger.Native(1)))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.call(stranger, ledger.NewCall(SigWithdraw, stranger, ledger.Native(1)))
	require.NoError(t, err)
}

func TestValueRejectedOnNonPayable(t *testing.T) {
	f := setupFixture(t)

	_, err := f.ledger.Transact(context.Background(), ledger.Tx{From: owner, To: f.treasury, Value: ledger.Native(1), Data: ledger.NewCall(SigSetFactory, factory)})
	require.ErrorIs(t, err, ledger.ErrNotPayable)
	assert.True(t, f.balance().Equal(ledger.Native(20)))
}
