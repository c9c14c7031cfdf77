/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxCallDepth bounds nested calls within one transaction.
const DefaultMaxCallDepth = 64

type account struct {
	address Address
	code    string
	nonce   uint64
	balance decimal.Decimal
	header  *Storage
	data    *Storage
}

// Tx is a signed call submitted by an externally owned account.
type Tx struct {
	From  Address
	To    Address
	Value decimal.Decimal
	Data  Calldata
}

// Ledger is the shared global state: accounts, balances, program storage
// and the clock. Transactions are serialized; each either commits every
// effect or none.
type Ledger struct {
	mu       sync.Mutex
	registry *Registry
	clock    Clock
	sink     CommitSink
	maxDepth int

	accounts map[Address]*account

	// per-transaction state, reset by begin
	journal   journal
	dirty     map[Address]struct{}
	now       time.Time
	events    []Event
	transfers []Transfer
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithClock(clock Clock) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithSink persists every commit through sink.
func WithSink(sink CommitSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

func WithMaxCallDepth(depth int) Option {
	return func(l *Ledger) {
		if depth > 0 {
			l.maxDepth = depth
		}
	}
}

func New(registry *Registry, opts ...Option) *Ledger {
	l := &Ledger{
		registry: registry,
		clock:    SystemClock{},
		maxDepth: DefaultMaxCallDepth,
		accounts: make(map[Address]*account),
		dirty:    make(map[Address]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore loads persisted accounts into an empty ledger.
func (l *Ledger) Restore(snapshots []AccountSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, snap := range snapshots {
		if snap.Code != "" {
			if _, err := l.registry.Lookup(snap.Code); err != nil {
				return fmt.Errorf("unable to restore %s: %w", snap.Address, err)
			}
		}
		acct := &account{
			address: snap.Address,
			code:    snap.Code,
			nonce:   snap.Nonce,
			balance: snap.Balance,
			header:  newStorage(l, snap.Address, HeaderRegion),
			data:    newStorage(l, snap.Address, DataRegion),
		}
		acct.header.load(snap.Header)
		acct.data.load(snap.Data)
		l.accounts[snap.Address] = acct
	}

	zap.L().Info("Ledger state restored", zap.Int("accounts", len(snapshots)))
	return nil
}

// Transact executes a call transaction.
func (l *Ledger) Transact(ctx context.Context, tx Tx) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value := nonNegative(tx.Value)
	r := l.begin(KindCall, tx.From, tx.To, value, tx.Data)
	ret, err := l.call(tx.From, tx.To, value, tx.Data, 0)
	return l.finish(ctx, r, ret, err)
}

// Deploy creates a program account owned by nobody; from pays value and its
// nonce determines the new address.
func (l *Ledger) Deploy(ctx context.Context, from Address, program string, value decimal.Decimal, args ...any) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value = nonNegative(value)
	r := l.begin(KindDeploy, from, ZeroAddress, value, NewCall("constructor", args...))
	addr, err := l.deploy(from, program, value, args, 0)
	if err == nil {
		r.Created = addr
		r.To = addr
	}
	return l.finish(ctx, r, Values{addr}, err)
}

// Mint credits amount to an account out of thin air. It stands in for the
// genesis allocation of a development chain.
func (l *Ledger) Mint(ctx context.Context, to Address, amount decimal.Decimal) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	amount = nonNegative(amount)
	r := l.begin(KindMint, ZeroAddress, to, amount, Calldata{})
	acct := l.getOrCreate(to)
	l.setBalance(acct, acct.balance.Add(amount))
	l.recordTransfer(Transfer{From: ZeroAddress, To: to, Amount: amount})
	return l.finish(ctx, r, nil, nil)
}

// View executes a call and discards every effect.
func (l *Ledger) View(ctx context.Context, from, to Address, data Calldata) (Values, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.begin(KindCall, from, to, decimal.Zero, data)
	ret, err := l.call(from, to, decimal.Zero, data, 0)
	l.journal.revertTo(0)
	return ret, err
}

func (l *Ledger) BalanceOf(addr Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.accounts[addr]; ok {
		return acct.balance
	}
	return decimal.Zero
}

// CodeOf returns the program name at addr, or "" for a plain account.
func (l *Ledger) CodeOf(addr Address) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.accounts[addr]; ok {
		return acct.code
	}
	return ""
}

// StorageOf returns a copy of one storage region of addr.
func (l *Ledger) StorageOf(addr Address, region string) map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[addr]
	if !ok {
		return map[string]string{}
	}
	if region == HeaderRegion {
		return acct.header.Snapshot()
	}
	return acct.data.Snapshot()
}

// Now returns the timestamp the next transaction would execute at.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().Truncate(time.Second)
}

func (l *Ledger) begin(kind string, from, to Address, value decimal.Decimal, data Calldata) *Receipt {
	l.journal.reset()
	l.dirty = make(map[Address]struct{})
	l.events = nil
	l.transfers = nil
	l.now = l.Now()

	return &Receipt{
		Id:        uuid.New().String(),
		Kind:      kind,
		From:      from,
		To:        to,
		Call:      data,
		Value:     value,
		Timestamp: l.now,
	}
}

func (l *Ledger) finish(ctx context.Context, r *Receipt, ret Values, err error) (*Receipt, error) {
	if err != nil {
		l.journal.revertTo(0)
		r.Status = StatusReverted
		r.Err = err
		r.Reason = ReasonCode(err)

		zap.L().Warn("Transaction reverted",
			zap.String("tx_id", r.Id),
			zap.String("from", r.From.String()),
			zap.String("to", r.To.String()),
			zap.String("call", r.Call.String()),
			zap.String("reason", r.Reason),
			zap.Error(err))

		if l.sink != nil {
			if sinkErr := l.sink.ApplyCommit(ctx, &Commit{Receipt: r}); sinkErr != nil {
				zap.L().Error("Failed to record reverted transaction", zap.String("tx_id", r.Id), zap.Error(sinkErr))
			}
		}
		return r, err
	}

	r.Status = StatusConfirmed
	r.Return = ret
	r.Events = l.events
	r.Transfers = l.transfers

	if l.sink != nil {
		commit := &Commit{Receipt: r, Accounts: l.snapshotDirty()}
		if sinkErr := l.sink.ApplyCommit(ctx, commit); sinkErr != nil {
			l.journal.revertTo(0)
			zap.L().Error("Failed to persist commit, transaction rolled back",
				zap.String("tx_id", r.Id),
				zap.Error(sinkErr))
			return nil, fmt.Errorf("failed to persist commit: %w", sinkErr)
		}
	}
	l.journal.reset()

	zap.L().Info("Transaction committed",
		zap.String("tx_id", r.Id),
		zap.String("kind", r.Kind),
		zap.String("from", r.From.String()),
		zap.String("to", r.To.String()),
		zap.String("call", r.Call.String()),
		zap.String("value", r.Value.String()),
		zap.Int("events", len(r.Events)),
		zap.Int("transfers", len(r.Transfers)))
	return r, nil
}

func (l *Ledger) call(from, to Address, value decimal.Decimal, data Calldata, depth int) (Values, error) {
	if depth > l.maxDepth {
		return nil, revert(to, data.Signature, ErrCallDepth)
	}

	zap.L().Debug("Executing call",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("call", data.String()),
		zap.Int("depth", depth))

	snap := l.journal.snapshot()
	if value.IsPositive() {
		if err := l.moveValue(from, to, value); err != nil {
			l.journal.revertTo(snap)
			return nil, revert(to, data.Signature, err)
		}
	}

	acct, ok := l.accounts[to]
	if !ok || acct.code == "" {
		if !data.IsEmpty() {
			l.journal.revertTo(snap)
			return nil, revert(to, data.Signature, ErrNotContract)
		}
		return nil, nil
	}

	prog, err := l.registry.Lookup(acct.code)
	if err != nil {
		l.journal.revertTo(snap)
		return nil, revert(to, data.Signature, err)
	}

	c := &Context{ledger: l, self: to, code: to, sender: from, value: value, depth: depth}
	ret, err := prog.Run(c, data)
	if err != nil {
		l.journal.revertTo(snap)
		return nil, revert(to, data.Signature, err)
	}
	return ret, nil
}

// delegate runs the code at impl against the storage of the calling frame,
// keeping its sender and value.
func (l *Ledger) delegate(parent *Context, impl Address, data Calldata) (Values, error) {
	depth := parent.depth + 1
	if depth > l.maxDepth {
		return nil, revert(parent.self, data.Signature, ErrCallDepth)
	}

	acct, ok := l.accounts[impl]
	if !ok || acct.code == "" {
		return nil, revert(parent.self, data.Signature, fmt.Errorf("%w: %s", ErrNotContract, impl))
	}
	prog, err := l.registry.Lookup(acct.code)
	if err != nil {
		return nil, revert(parent.self, data.Signature, err)
	}

	snap := l.journal.snapshot()
	c := &Context{
		ledger:    l,
		self:      parent.self,
		code:      impl,
		sender:    parent.sender,
		value:     parent.value,
		depth:     depth,
		delegated: true,
	}
	ret, err := prog.Run(c, data)
	if err != nil {
		l.journal.revertTo(snap)
		return nil, revert(parent.self, data.Signature, err)
	}
	return ret, nil
}

func (l *Ledger) deploy(creator Address, program string, value decimal.Decimal, args Values, depth int) (Address, error) {
	if depth > l.maxDepth {
		return ZeroAddress, revert(ZeroAddress, "constructor", ErrCallDepth)
	}
	prog, err := l.registry.Lookup(program)
	if err != nil {
		return ZeroAddress, revert(ZeroAddress, "constructor", err)
	}

	snap := l.journal.snapshot()
	creatorAcct := l.getOrCreate(creator)
	nonce := creatorAcct.nonce
	l.setNonce(creatorAcct, nonce+1)

	addr := contractAddress(creator, nonce)
	if existing, ok := l.accounts[addr]; ok && existing.code != "" {
		l.journal.revertTo(snap)
		return ZeroAddress, revert(addr, "constructor", fmt.Errorf("address collision at %s", addr))
	}

	acct := l.getOrCreate(addr)
	l.setCode(acct, program)

	if value.IsPositive() {
		if err := l.moveValue(creator, addr, value); err != nil {
			l.journal.revertTo(snap)
			return ZeroAddress, revert(addr, "constructor", err)
		}
	}

	if ctor, ok := prog.(Constructor); ok {
		c := &Context{ledger: l, self: addr, code: addr, sender: creator, value: value, depth: depth}
		if err := ctor.Construct(c, args); err != nil {
			l.journal.revertTo(snap)
			return ZeroAddress, revert(addr, "constructor", err)
		}
	}

	zap.L().Debug("Program deployed",
		zap.String("program", program),
		zap.String("address", addr.String()),
		zap.String("creator", creator.String()))
	return addr, nil
}

func (l *Ledger) moveValue(from, to Address, amount decimal.Decimal) error {
	src, ok := l.accounts[from]
	if !ok || src.balance.LessThan(amount) {
		have := decimal.Zero
		if ok {
			have = src.balance
		}
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, have, amount)
	}
	dst := l.getOrCreate(to)
	l.setBalance(src, src.balance.Sub(amount))
	l.setBalance(dst, dst.balance.Add(amount))
	l.recordTransfer(Transfer{From: from, To: to, Amount: amount})
	return nil
}

func (l *Ledger) getOrCreate(addr Address) *account {
	if acct, ok := l.accounts[addr]; ok {
		return acct
	}
	acct := &account{
		address: addr,
		balance: decimal.Zero,
		header:  newStorage(l, addr, HeaderRegion),
		data:    newStorage(l, addr, DataRegion),
	}
	l.accounts[addr] = acct
	l.journal.append(func() { delete(l.accounts, addr) })
	l.touch(addr)
	return acct
}

func (l *Ledger) setBalance(acct *account, balance decimal.Decimal) {
	prev := acct.balance
	l.journal.append(func() { acct.balance = prev })
	acct.balance = balance
	l.touch(acct.address)
}

func (l *Ledger) setNonce(acct *account, nonce uint64) {
	prev := acct.nonce
	l.journal.append(func() { acct.nonce = prev })
	acct.nonce = nonce
	l.touch(acct.address)
}

func (l *Ledger) setCode(acct *account, code string) {
	prev := acct.code
	l.journal.append(func() { acct.code = prev })
	acct.code = code
	l.touch(acct.address)
}

func (l *Ledger) recordTransfer(t Transfer) {
	n := len(l.transfers)
	l.journal.append(func() { l.transfers = l.transfers[:n] })
	l.transfers = append(l.transfers, t)
}

func (l *Ledger) emit(e Event) {
	n := len(l.events)
	l.journal.append(func() { l.events = l.events[:n] })
	l.events = append(l.events, e)
}

func (l *Ledger) touch(addr Address) {
	l.dirty[addr] = struct{}{}
}

func (l *Ledger) snapshotDirty() []AccountSnapshot {
	addrs := make([]Address, 0, len(l.dirty))
	for addr := range l.dirty {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	snaps := make([]AccountSnapshot, 0, len(addrs))
	for _, addr := range addrs {
		acct, ok := l.accounts[addr]
		if !ok {
			continue
		}
		snaps = append(snaps, AccountSnapshot{
			Address: addr,
			Code:    acct.code,
			Nonce:   acct.nonce,
			Balance: acct.balance,
			Header:  acct.header.Snapshot(),
			Data:    acct.data.Snapshot(),
		})
	}
	return snaps
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
