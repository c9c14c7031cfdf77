package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const reentrancySlot = "reentrancy.entered"

// Context is the execution frame handed to a running program.
type Context struct {
	ledger    *Ledger
	self      Address
	code      Address
	sender    Address
	value     decimal.Decimal
	depth     int
	delegated bool
}

// Self is the account whose storage and balance the frame operates on.
func (c *Context) Self() Address { return c.self }

// Sender is the immediate caller. Delegated frames keep the sender of the
// frame that delegated.
func (c *Context) Sender() Address { return c.sender }

func (c *Context) Value() decimal.Decimal { return c.value }

// CodeAddress is the account whose program is executing.
func (c *Context) CodeAddress() Address { return c.code }

func (c *Context) Delegated() bool { return c.delegated }

// Now is the transaction timestamp.
func (c *Context) Now() time.Time { return c.ledger.now }

// Storage returns the data region of Self.
func (c *Context) Storage() *Storage {
	return c.ledger.getOrCreate(c.self).data
}

// Header returns the header region of Self. Only the account's own code
// may use it.
func (c *Context) Header() (*Storage, error) {
	if c.delegated {
		return nil, ErrHeaderAccess
	}
	return c.ledger.getOrCreate(c.self).header, nil
}

func (c *Context) Balance(addr Address) decimal.Decimal {
	if acct, ok := c.ledger.accounts[addr]; ok {
		return acct.balance
	}
	return decimal.Zero
}

func (c *Context) SelfBalance() decimal.Decimal {
	return c.Balance(c.self)
}

func (c *Context) HasCode(addr Address) bool {
	acct, ok := c.ledger.accounts[addr]
	return ok && acct.code != ""
}

// Call invokes to with Self as the sender.
func (c *Context) Call(to Address, value decimal.Decimal, data Calldata) (Values, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: negative value", ErrInvalidAmount)
	}
	return c.ledger.call(c.self, to, value, data, c.depth+1)
}

// View invokes a read-only method on to. Its effects are discarded.
func (c *Context) View(to Address, data Calldata) (Values, error) {
	snap := c.ledger.journal.snapshot()
	ret, err := c.ledger.call(c.self, to, decimal.Zero, data, c.depth+1)
	c.ledger.journal.revertTo(snap)
	return ret, err
}

// DelegateCall runs the program at impl against Self's data region.
func (c *Context) DelegateCall(impl Address, data Calldata) (Values, error) {
	return c.ledger.delegate(c, impl, data)
}

// Transfer sends amount of native value from Self to to. Receivers with code
// run their receive handler.
func (c *Context) Transfer(to Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := c.ledger.call(c.self, to, amount, Calldata{}, c.depth+1)
	return err
}

// Deploy creates a new program account with Self as the creator.
func (c *Context) Deploy(program string, value decimal.Decimal, args ...any) (Address, error) {
	return c.ledger.deploy(c.self, program, value, args, c.depth+1)
}

func (c *Context) Emit(name string, data ...any) {
	c.ledger.emit(Event{Contract: c.self, Name: name, Data: data})
}

// NonReentrant marks Self as entered until release is called. A nested
// entry into any guarded method of the same account fails.
func (c *Context) NonReentrant() (release func(), err error) {
	st := c.Storage()
	if st.Bool(reentrancySlot) {
		return nil, ErrReentrantCall
	}
	st.SetBool(reentrancySlot, true)
	return func() { st.SetBool(reentrancySlot, false) }, nil
}
