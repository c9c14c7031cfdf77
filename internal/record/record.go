package record

import (
	"fmt"
	"time"

	"record-vesting-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProgramName is the code name of record accounts.
const ProgramName = "record"

const (
	SigUpdate      = "update(string,string,uint256,uint256,address)"
	SigPause       = "pause()"
	SigUnpause     = "unpause()"
	SigClaim       = "claim()"
	SigTitle       = "title()"
	SigDescription = "description()"
	SigAmount      = "amount()"
	SigPeriod      = "period()"
	SigReceiver    = "receiver()"
	SigStartTime   = "startTime()"
	SigClaimed     = "claimed()"
	SigPaused      = "paused()"
	SigFactory     = "factory()"
	SigTreasury    = "treasury()"
	SigClaimable   = "claimable()"
	SigVested      = "vested()"
)

const (
	keyFactory     = "record.factory"
	keyTreasury    = "record.treasury"
	keyTitle       = "record.title"
	keyDescription = "record.description"
	keyAmount      = "record.amount"
	keyPeriod      = "record.period"
	keyReceiver    = "record.receiver"
	keyStartTime   = "record.startTime"
	keyClaimed     = "record.claimed"
	keyPaused      = "record.paused"
)

// Record is a single linear vesting schedule. Each record is its own
// account, created by a factory which stays its only administrator.
type Record struct {
	methods *ledger.Methods
}

func New() *Record {
	r := &Record{}
	r.methods = ledger.NewMethods(
		ledger.Method{Signature: SigUpdate, Handler: r.update},
		ledger.Method{Signature: SigPause, Handler: r.pause},
		ledger.Method{Signature: SigUnpause, Handler: r.unpause},
		ledger.Method{Signature: SigClaim, Handler: r.claim},
		ledger.Method{Signature: SigTitle, Handler: r.stringView(keyTitle)},
		ledger.Method{Signature: SigDescription, Handler: r.stringView(keyDescription)},
		ledger.Method{Signature: SigAmount, Handler: r.amountView(keyAmount)},
		ledger.Method{Signature: SigPeriod, Handler: r.period},
		ledger.Method{Signature: SigReceiver, Handler: r.addressView(keyReceiver)},
		ledger.Method{Signature: SigStartTime, Handler: r.startTime},
		ledger.Method{Signature: SigClaimed, Handler: r.amountView(keyClaimed)},
		ledger.Method{Signature: SigPaused, Handler: r.paused},
		ledger.Method{Signature: SigFactory, Handler: r.addressView(keyFactory)},
		ledger.Method{Signature: SigTreasury, Handler: r.addressView(keyTreasury)},
		ledger.Method{Signature: SigClaimable, Handler: r.claimable},
		ledger.Method{Signature: SigVested, Handler: r.vested},
	)
	return r
}

func (r *Record) Name() string {
	return ProgramName
}

func (r *Record) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	return r.methods.Run(c, call)
}

// Construct takes (treasury, title, description, amount, period, receiver).
// The deploying account becomes the record's factory and the start time is
// the deployment timestamp.
func (r *Record) Construct(c *ledger.Context, args ledger.Values) error {
	if err := args.Expect(6); err != nil {
		return err
	}
	treasury, err := args.Address(0)
	if err != nil {
		return err
	}
	if treasury.IsZero() {
		return ledger.ErrZeroAddress
	}
	t, err := parseTerms(args[1:])
	if err != nil {
		return err
	}

	st := c.Storage()
	st.SetAddress(keyFactory, c.Sender())
	st.SetAddress(keyTreasury, treasury)
	st.SetUint64(keyStartTime, uint64(c.Now().Unix()))
	t.store(st)
	return nil
}

type terms struct {
	title       string
	description string
	amount      decimal.Decimal
	period      uint64
	receiver    ledger.Address
}

func parseTerms(args ledger.Values) (terms, error) {
	var t terms
	var err error
	if err = args.Expect(5); err != nil {
		return t, err
	}
	if t.title, err = args.String(0); err != nil {
		return t, err
	}
	if t.description, err = args.String(1); err != nil {
		return t, err
	}
	if t.amount, err = args.Amount(2); err != nil {
		return t, err
	}
	if t.period, err = args.Uint64(3); err != nil {
		return t, err
	}
	if t.receiver, err = args.Address(4); err != nil {
		return t, err
	}
	if t.period == 0 {
		return t, ledger.ErrInvalidPeriod
	}
	if t.receiver.IsZero() {
		return t, ledger.ErrZeroAddress
	}
	return t, nil
}

func (t terms) store(st *ledger.Storage) {
	st.SetString(keyTitle, t.title)
	st.SetString(keyDescription, t.description)
	st.SetAmount(keyAmount, t.amount)
	st.SetUint64(keyPeriod, t.period)
	st.SetAddress(keyReceiver, t.receiver)
}

// update replaces the terms. Start time and claimed progress are kept, so the
// new amount may not fall below what was already paid out.
func (r *Record) update(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := requireFactory(c); err != nil {
		return nil, err
	}
	t, err := parseTerms(args)
	if err != nil {
		return nil, err
	}
	st := c.Storage()
	claimed := st.Amount(keyClaimed)
	if t.amount.LessThan(claimed) {
		return nil, fmt.Errorf("%w: amount %s is below claimed %s", ledger.ErrInvalidAmount, t.amount, claimed)
	}
	t.store(st)
	c.Emit("Updated", t.title, t.amount, t.period, t.receiver)
	return nil, nil
}

func (r *Record) pause(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	if err := requireFactory(c); err != nil {
		return nil, err
	}
	c.Storage().SetBool(keyPaused, true)
	c.Emit("Paused")
	return nil, nil
}

func (r *Record) unpause(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	if err := requireFactory(c); err != nil {
		return nil, err
	}
	c.Storage().SetBool(keyPaused, false)
	c.Emit("Unpaused")
	return nil, nil
}

// claim pays whatever has vested since the last claim to the receiver.
// Anyone may trigger it. claimed is advanced before the treasury is asked
// to transfer, and the whole call reverts if the transfer fails.
func (r *Record) claim(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	release, err := c.NonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	st := c.Storage()
	if st.Bool(keyPaused) {
		return nil, ledger.ErrPaused
	}
	if err := requireFactoryActive(c, st.Address(keyFactory)); err != nil {
		return nil, err
	}

	claimed := st.Amount(keyClaimed)
	amount := claimable(c, st)
	if amount.IsZero() {
		return ledger.Values{decimal.Zero}, nil
	}

	st.SetAmount(keyClaimed, claimed.Add(amount))
	if _, err := c.Call(st.Address(keyTreasury), decimal.Zero, ledger.NewCall("claim(uint256)", amount)); err != nil {
		return nil, err
	}
	c.Emit("Claimed", st.Address(keyReceiver), amount)

	zap.L().Debug("Record claimed",
		zap.String("record", c.Self().String()),
		zap.String("amount", amount.String()),
		zap.String("claimed", claimed.Add(amount).String()))
	return ledger.Values{amount}, nil
}

func (r *Record) claimable(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{claimable(c, c.Storage())}, nil
}

func (r *Record) vested(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	st := c.Storage()
	return ledger.Values{Vested(st.Amount(keyAmount), st.Uint64(keyPeriod), startOf(st), c.Now())}, nil
}

func (r *Record) period(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Uint64(keyPeriod)}, nil
}

func (r *Record) startTime(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Uint64(keyStartTime)}, nil
}

func (r *Record) paused(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	return ledger.Values{c.Storage().Bool(keyPaused)}, nil
}

func (r *Record) stringView(key string) ledger.Handler {
	return func(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
		return ledger.Values{c.Storage().String(key)}, nil
	}
}

func (r *Record) amountView(key string) ledger.Handler {
	return func(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
		return ledger.Values{c.Storage().Amount(key)}, nil
	}
}

func (r *Record) addressView(key string) ledger.Handler {
	return func(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
		return ledger.Values{c.Storage().Address(key)}, nil
	}
}

func claimable(c *ledger.Context, st *ledger.Storage) decimal.Decimal {
	return Claimable(st.Amount(keyAmount), st.Amount(keyClaimed), st.Uint64(keyPeriod), startOf(st), c.Now())
}

func startOf(st *ledger.Storage) time.Time {
	return time.Unix(int64(st.Uint64(keyStartTime)), 0).UTC()
}

// requireFactoryActive fails while the factory is globally paused. Records
// administered by a plain account have no global switch.
func requireFactoryActive(c *ledger.Context, factory ledger.Address) error {
	if !c.HasCode(factory) {
		return nil
	}
	ret, err := c.View(factory, ledger.NewCall("paused()"))
	if err != nil {
		return err
	}
	paused, err := ret.Bool(0)
	if err != nil {
		return err
	}
	if paused {
		return ledger.ErrPaused
	}
	return nil
}

func requireFactory(c *ledger.Context) error {
	if c.Sender() != c.Storage().Address(keyFactory) {
		return ledger.ErrUnauthorized
	}
	return nil
}
