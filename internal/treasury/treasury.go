package treasury

import (
	"fmt"

	"record-vesting-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProgramName is the code name of the treasury logic.
const ProgramName = "treasury"

const (
	SigInitialize        = "initialize()"
	SigDeposit           = "deposit()"
	SigSetFactory        = "setFactory(address)"
	SigAddRecord         = "addRecord(address)"
	SigWithdraw          = "withdraw(address,uint256)"
	SigClaim             = "claim(uint256)"
	SigMigrate           = "migrate(address)"
	SigTransferOwnership = "transferOwnership(address)"
	SigGetBalance        = "getBalance()"
	SigGetOwner          = "getOwner()"
	SigOwner             = "owner()"
	SigFactory           = "factory()"
	SigIsRecord          = "isRecord(address)"
	SigDisbursed         = "disbursed(address)"
	SigMigratedTo        = "migratedTo()"
)

const (
	keyInitialized = "treasury.initialized"
	keyOwner       = "treasury.owner"
	keyFactory     = "treasury.factory"
	keyMigratedTo  = "treasury.migratedTo"
	prefixRecord   = "treasury.record."
	prefixPaid     = "treasury.disbursed."
)

// Treasury custodies pooled native funds. The balance is the account's
// ledger balance; only the owner and authorized records move it out.
type Treasury struct {
	methods *ledger.Methods
}

func New() *Treasury {
	t := &Treasury{}
	t.methods = ledger.NewMethods(
		ledger.Method{Signature: SigInitialize, Handler: t.initialize},
		ledger.Method{Signature: SigDeposit, Payable: true, Handler: t.deposit},
		ledger.Method{Signature: SigSetFactory, Handler: t.setFactory},
		ledger.Method{Signature: SigAddRecord, Handler: t.addRecord},
		ledger.Method{Signature: SigWithdraw, Handler: t.withdraw},
		ledger.Method{Signature: SigClaim, Handler: t.claim},
		ledger.Method{Signature: SigMigrate, Handler: t.migrate},
		ledger.Method{Signature: SigTransferOwnership, Handler: t.transferOwnership},
		ledger.Method{Signature: SigGetBalance, Handler: t.getBalance},
		ledger.Method{Signature: SigGetOwner, Handler: t.getOwner},
		ledger.Method{Signature: SigOwner, Handler: t.getOwner},
		ledger.Method{Signature: SigFactory, Handler: t.factory},
		ledger.Method{Signature: SigIsRecord, Handler: t.isRecord},
		ledger.Method{Signature: SigDisbursed, Handler: t.disbursed},
		ledger.Method{Signature: SigMigratedTo, Handler: t.migratedTo},
	)
	return t
}

func (t *Treasury) Name() string {
	return ProgramName
}

// Run dispatches a call. A plain value transfer is treated as a deposit.
func (t *Treasury) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	if call.IsEmpty() {
		return t.deposit(c, nil)
	}
	return t.methods.Run(c, call)
}

func (t *Treasury) initialize(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	st := c.Storage()
	if st.Bool(keyInitialized) {
		return nil, ledger.ErrAlreadyInitialized
	}
	st.SetBool(keyInitialized, true)
	st.SetAddress(keyOwner, c.Sender())
	c.Emit("OwnershipTransferred", ledger.ZeroAddress, c.Sender())
	return nil, nil
}

func (t *Treasury) deposit(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	c.Emit("Deposit", c.Sender(), c.Value())
	return nil, nil
}

func (t *Treasury) setFactory(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	factory, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if factory.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	c.Storage().SetAddress(keyFactory, factory)
	c.Emit("FactorySet", factory)
	return nil, nil
}

// addRecord authorizes a record to pull funds. The factory registers
// records as it creates them; the owner may register one directly.
func (t *Treasury) addRecord(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	st := c.Storage()
	sender := c.Sender()
	factory := st.Address(keyFactory)
	if sender != st.Address(keyOwner) && (factory.IsZero() || sender != factory) {
		return nil, ledger.ErrUnauthorized
	}
	record, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if record.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	st.SetBool(prefixRecord+record.String(), true)
	c.Emit("RecordAuthorized", record)
	return nil, nil
}

func (t *Treasury) withdraw(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	release, err := c.NonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	to, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	amount, err := args.Amount(1)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	if err := requireBalance(c, amount); err != nil {
		return nil, err
	}

	c.Emit("Withdrawal", to, amount)
	if err := c.Transfer(to, amount); err != nil {
		return nil, err
	}
	return nil, nil
}

// claim pays an authorized record's receiver. The destination is read from
// the calling record, never supplied by it.
func (t *Treasury) claim(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	st := c.Storage()
	record := c.Sender()
	if !st.Bool(prefixRecord + record.String()) {
		return nil, fmt.Errorf("%w: %s is not an authorized record", ledger.ErrUnauthorized, record)
	}
	release, err := c.NonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	amount, err := args.Amount(0)
	if err != nil {
		return nil, err
	}
	ret, err := c.View(record, ledger.NewCall("receiver()"))
	if err != nil {
		return nil, err
	}
	receiver, err := ret.Address(0)
	if err != nil {
		return nil, err
	}
	if receiver.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	if amount.IsZero() {
		return ledger.Values{receiver}, nil
	}
	if err := requireBalance(c, amount); err != nil {
		return nil, err
	}

	key := prefixPaid + record.String()
	st.SetAmount(key, st.Amount(key).Add(amount))
	c.Emit("Claimed", record, receiver, amount)

	if err := c.Transfer(receiver, amount); err != nil {
		return nil, err
	}

	zap.L().Debug("Treasury disbursed claim",
		zap.String("treasury", c.Self().String()),
		zap.String("record", record.String()),
		zap.String("receiver", receiver.String()),
		zap.String("amount", amount.String()))
	return ledger.Values{receiver}, nil
}

// migrate moves the entire balance to newTreasury. Factory and records keep
// their reference to this treasury.
func (t *Treasury) migrate(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	release, err := c.NonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	next, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if next.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	if next == c.Self() {
		return nil, fmt.Errorf("%w: cannot migrate to self", ledger.ErrBadArgument)
	}

	balance := c.SelfBalance()
	c.Storage().SetAddress(keyMigratedTo, next)
	c.Emit("Migrated", next, balance)

	if err := c.Transfer(next, balance); err != nil {
		return nil, err
	}
	return ledger.Values{balance}, nil
}

func (t *Treasury) transferOwnership(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	st := c.Storage()
	previous := st.Address(keyOwner)
	st.SetAddress(keyOwner, owner)
	c.Emit("OwnershipTransferred", previous, owner)
	return nil, nil
}

func (t *Treasury) getBalance(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.SelfBalance()}, nil
}

func (t *Treasury) getOwner(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Address(keyOwner)}, nil
}

func (t *Treasury) factory(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Address(keyFactory)}, nil
}

func (t *Treasury) isRecord(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	record, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return ledger.Values{c.Storage().Bool(prefixRecord + record.String())}, nil
}

func (t *Treasury) disbursed(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	record, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return ledger.Values{c.Storage().Amount(prefixPaid + record.String())}, nil
}

func (t *Treasury) migratedTo(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Address(keyMigratedTo)}, nil
}

func requireOwner(c *ledger.Context) error {
	owner := c.Storage().Address(keyOwner)
	if owner.IsZero() || c.Sender() != owner {
		return ledger.ErrUnauthorized
	}
	return nil
}

func requireBalance(c *ledger.Context, amount decimal.Decimal) error {
	balance := c.SelfBalance()
	if amount.GreaterThan(balance) {
		return fmt.Errorf("%w: treasury holds %s, requested %s", ledger.ErrInsufficientBalance, balance, amount)
	}
	return nil
}
