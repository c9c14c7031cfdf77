package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt statuses, stored verbatim in transaction history.
const (
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
)

// Receipt kinds.
const (
	KindCall   = "call"
	KindDeploy = "deploy"
	KindMint   = "mint"
)

// Event is a log entry emitted by a program during a transaction.
type Event struct {
	Contract Address
	Name     string
	Data     Values
}

// Transfer is a movement of native value between two accounts. Mints use
// ZeroAddress as the source.
type Transfer struct {
	From   Address
	To     Address
	Amount decimal.Decimal
}

// Receipt describes the outcome of one transaction.
type Receipt struct {
	Id        string
	Kind      string
	From      Address
	To        Address
	Call      Calldata
	Value     decimal.Decimal
	Timestamp time.Time
	Status    string
	Reason    string
	Err       error
	Return    Values
	Created   Address
	Events    []Event
	Transfers []Transfer
}

func (r *Receipt) Succeeded() bool {
	return r.Status == StatusConfirmed
}

// EventsNamed returns the events with the given name, in emission order.
func (r *Receipt) EventsNamed(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// AccountSnapshot is the durable state of one account.
type AccountSnapshot struct {
	Address Address
	Code    string
	Nonce   uint64
	Balance decimal.Decimal
	Header  map[string]string
	Data    map[string]string
}

// Commit carries a finished transaction and the accounts it touched. Reverted
// transactions are committed too, with no accounts, so the attempt is auditable.
type Commit struct {
	Receipt  *Receipt
	Accounts []AccountSnapshot
}

// CommitSink persists commits. A sink error on a confirmed transaction rolls
// the transaction back in memory as well.
type CommitSink interface {
	ApplyCommit(ctx context.Context, commit *Commit) error
}
