package factory

import (
	"fmt"
	"strconv"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/record"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProgramName is the code name of the factory logic.
const ProgramName = "factory"

const (
	SigInitialize           = "initialize(address,address)"
	SigChangeExecutor       = "changeExecutor(address)"
	SigPause                = "pause()"
	SigUnpause              = "unpause()"
	SigCreateRecord         = "createRecord(string,string,uint256,uint256,address)"
	SigUpdateRecord         = "updateRecord(address,string,string,uint256,uint256,address)"
	SigPauseRecord          = "pauseRecord(address)"
	SigUnpauseRecord        = "unpauseRecord(address)"
	SigClaimRewardForRecord = "claimRewardForRecord(address)"
	SigTransferOwnership    = "transferOwnership(address)"
	SigOwner                = "owner()"
	SigGetOwner             = "getOwner()"
	SigExecutor             = "executor()"
	SigTreasury             = "treasury()"
	SigPaused               = "paused()"
	SigRecordContracts      = "recordContracts(address)"
	SigRecordCount          = "recordCount()"
	SigRecordAt             = "recordAt(uint256)"
)

const (
	keyInitialized = "factory.initialized"
	keyOwner       = "factory.owner"
	keyExecutor    = "factory.executor"
	keyTreasury    = "factory.treasury"
	keyPaused      = "factory.paused"
	keyRecordCount = "factory.recordCount"
	prefixRecord   = "factory.record."
	prefixIndex    = "factory.recordAt."
)

// Factory creates and administers records. Its storage holds the record
// catalogue; records themselves are independent accounts.
type Factory struct {
	methods *ledger.Methods
}

func New() *Factory {
	f := &Factory{}
	f.methods = ledger.NewMethods(
		ledger.Method{Signature: SigInitialize, Handler: f.initialize},
		ledger.Method{Signature: SigChangeExecutor, Handler: f.changeExecutor},
		ledger.Method{Signature: SigPause, Handler: f.setPaused(true)},
		ledger.Method{Signature: SigUnpause, Handler: f.setPaused(false)},
		ledger.Method{Signature: SigCreateRecord, Handler: f.createRecord},
		ledger.Method{Signature: SigUpdateRecord, Handler: f.updateRecord},
		ledger.Method{Signature: SigPauseRecord, Handler: f.forwardToRecord(record.SigPause, "RecordPaused")},
		ledger.Method{Signature: SigUnpauseRecord, Handler: f.forwardToRecord(record.SigUnpause, "RecordUnpaused")},
		ledger.Method{Signature: SigClaimRewardForRecord, Handler: f.claimRewardForRecord},
		ledger.Method{Signature: SigTransferOwnership, Handler: f.transferOwnership},
		ledger.Method{Signature: SigOwner, Handler: f.addressView(keyOwner)},
		ledger.Method{Signature: SigGetOwner, Handler: f.addressView(keyOwner)},
		ledger.Method{Signature: SigExecutor, Handler: f.addressView(keyExecutor)},
		ledger.Method{Signature: SigTreasury, Handler: f.addressView(keyTreasury)},
		ledger.Method{Signature: SigPaused, Handler: f.paused},
		ledger.Method{Signature: SigRecordContracts, Handler: f.recordContracts},
		ledger.Method{Signature: SigRecordCount, Handler: f.recordCount},
		ledger.Method{Signature: SigRecordAt, Handler: f.recordAt},
	)
	return f
}

func (f *Factory) Name() string {
	return ProgramName
}

func (f *Factory) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	return f.methods.Run(c, call)
}

func (f *Factory) initialize(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	st := c.Storage()
	if st.Bool(keyInitialized) {
		return nil, ledger.ErrAlreadyInitialized
	}
	if err := args.Expect(2); err != nil {
		return nil, err
	}
	treasury, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	executor, err := args.Address(1)
	if err != nil {
		return nil, err
	}
	if treasury.IsZero() || executor.IsZero() {
		return nil, ledger.ErrZeroAddress
	}

	st.SetBool(keyInitialized, true)
	st.SetAddress(keyOwner, c.Sender())
	st.SetAddress(keyTreasury, treasury)
	st.SetAddress(keyExecutor, executor)
	st.SetBool(keyPaused, false)
	c.Emit("OwnershipTransferred", ledger.ZeroAddress, c.Sender())
	c.Emit("ExecutorChanged", ledger.ZeroAddress, executor)
	return nil, nil
}

func (f *Factory) changeExecutor(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	executor, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if executor.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	st := c.Storage()
	previous := st.Address(keyExecutor)
	st.SetAddress(keyExecutor, executor)
	c.Emit("ExecutorChanged", previous, executor)
	return nil, nil
}

func (f *Factory) setPaused(paused bool) ledger.Handler {
	event := "Unpaused"
	if paused {
		event = "Paused"
	}
	return func(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
		if err := requireOwner(c); err != nil {
			return nil, err
		}
		c.Storage().SetBool(keyPaused, paused)
		c.Emit(event, c.Sender())
		return nil, nil
	}
}

// createRecord deploys a record, adds it to the catalogue and authorizes it
// with the treasury. It returns the new record's address.
func (f *Factory) createRecord(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireExecutor(c); err != nil {
		return nil, err
	}
	if err := requireNotPaused(c); err != nil {
		return nil, err
	}
	if err := args.Expect(5); err != nil {
		return nil, err
	}
	if err := validateTerms(args); err != nil {
		return nil, err
	}

	st := c.Storage()
	treasury := st.Address(keyTreasury)
	ctorArgs := append([]any{treasury}, args...)
	addr, err := c.Deploy(record.ProgramName, decimal.Zero, ctorArgs...)
	if err != nil {
		return nil, err
	}

	n := st.Uint64(keyRecordCount)
	st.SetUint64(prefixRecord+addr.String(), n+1)
	st.SetAddress(prefixIndex+strconv.FormatUint(n, 10), addr)
	st.SetUint64(keyRecordCount, n+1)

	if _, err := c.Call(treasury, decimal.Zero, ledger.NewCall("addRecord(address)", addr)); err != nil {
		return nil, err
	}
	c.Emit("RecordCreated", addr)

	zap.L().Debug("Record created",
		zap.String("factory", c.Self().String()),
		zap.String("record", addr.String()),
		zap.Uint64("index", n))
	return ledger.Values{addr}, nil
}

func (f *Factory) updateRecord(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireExecutor(c); err != nil {
		return nil, err
	}
	if err := args.Expect(6); err != nil {
		return nil, err
	}
	addr, err := requireRecord(c, args)
	if err != nil {
		return nil, err
	}
	if err := validateTerms(args[1:]); err != nil {
		return nil, err
	}
	if _, err := c.Call(addr, decimal.Zero, ledger.NewCall(record.SigUpdate, args[1:]...)); err != nil {
		return nil, err
	}
	c.Emit("RecordUpdated", addr)
	return nil, nil
}

func (f *Factory) forwardToRecord(sig, event string) ledger.Handler {
	return func(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
		if err := requireOwner(c); err != nil {
			return nil, err
		}
		addr, err := requireRecord(c, args)
		if err != nil {
			return nil, err
		}
		if _, err := c.Call(addr, decimal.Zero, ledger.NewCall(sig)); err != nil {
			return nil, err
		}
		c.Emit(event, addr)
		return nil, nil
	}
}

// claimRewardForRecord triggers the record's claim and returns the amount
// paid to its receiver.
func (f *Factory) claimRewardForRecord(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireOwner(c); err != nil {
		return nil, err
	}
	if err := requireNotPaused(c); err != nil {
		return nil, err
	}
	addr, err := requireRecord(c, args)
	if err != nil {
		return nil, err
	}
	release, err := c.NonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	ret, err := c.Call(addr, decimal.Zero, ledger.NewCall(record.SigClaim))
	if err != nil {
		return nil, err
	}
	amount, err := ret.Amount(0)
	if err != nil {
		return nil, err
	}
	c.Emit("RewardClaimed", addr, amount)
	return ledger.Values{amount}, nil
}

func (f *Factory) transferOwnership(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
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

func (f *Factory) paused(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Bool(keyPaused)}, nil
}

func (f *Factory) recordContracts(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	addr, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return ledger.Values{c.Storage().Uint64(prefixRecord+addr.String()) > 0}, nil
}

func (f *Factory) recordCount(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Uint64(keyRecordCount)}, nil
}

func (f *Factory) recordAt(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	i, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	st := c.Storage()
	if i >= st.Uint64(keyRecordCount) {
		return nil, fmt.Errorf("%w: index %d out of range", ledger.ErrUnknownRecord, i)
	}
	return ledger.Values{st.Address(prefixIndex + strconv.FormatUint(i, 10))}, nil
}

func (f *Factory) addressView(key string) ledger.Handler {
	return func(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
		return ledger.Values{c.Storage().Address(key)}, nil
	}
}

func requireOwner(c *ledger.Context) error {
	owner := c.Storage().Address(keyOwner)
	if owner.IsZero() || c.Sender() != owner {
		return ledger.ErrUnauthorized
	}
	return nil
}

// requireExecutor admits the executor and the owner.
func requireExecutor(c *ledger.Context) error {
	st := c.Storage()
	sender := c.Sender()
	if sender.IsZero() {
		return ledger.ErrUnauthorized
	}
	if sender != st.Address(keyExecutor) && sender != st.Address(keyOwner) {
		return ledger.ErrUnauthorized
	}
	return nil
}

func requireNotPaused(c *ledger.Context) error {
	if c.Storage().Bool(keyPaused) {
		return ledger.ErrPaused
	}
	return nil
}

func requireRecord(c *ledger.Context, args ledger.Values) (ledger.Address, error) {
	addr, err := args.Address(0)
	if err != nil {
		return ledger.ZeroAddress, err
	}
	if c.Storage().Uint64(prefixRecord+addr.String()) == 0 {
		return ledger.ZeroAddress, fmt.Errorf("%w: %s", ledger.ErrUnknownRecord, addr)
	}
	return addr, nil
}

// validateTerms checks (title, description, amount, period, receiver)
// before anything is deployed or written.
func validateTerms(args ledger.Values) error {
	if _, err := args.String(0); err != nil {
		return err
	}
	if _, err := args.String(1); err != nil {
		return err
	}
	if _, err := args.Amount(2); err != nil {
		return err
	}
	period, err := args.Uint64(3)
	if err != nil {
		return err
	}
	if period == 0 {
		return ledger.ErrInvalidPeriod
	}
	receiver, err := args.Address(4)
	if err != nil {
		return err
	}
	if receiver.IsZero() {
		return ledger.ErrZeroAddress
	}
	return nil
}
