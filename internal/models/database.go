package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents the persisted state of one ledger account (hot data)
type Account struct {
	Address   string          `db:"address"`
	Code      string          `db:"code"`
	Nonce     uint64          `db:"nonce"`
	Balance   decimal.Decimal `db:"balance"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction represents immutable transaction history (cold data)
type Transaction struct {
	Id          string          `db:"id"`
	Kind        string          `db:"kind"`
	FromAddress string          `db:"from_address"`
	ToAddress   string          `db:"to_address"`
	Method      string          `db:"method"`
	Args        string          `db:"args"`
	Value       decimal.Decimal `db:"value"`
	Status      string          `db:"status"`
	Reason      string          `db:"reason"`
	Initiator   string          `db:"initiator"`
	ExecutedAt  time.Time       `db:"executed_at"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Event represents a program log entry emitted by a confirmed transaction
type Event struct {
	Id            int64     `db:"id"`
	TransactionId string    `db:"transaction_id"`
	Contract      string    `db:"contract"`
	Name          string    `db:"name"`
	Data          string    `db:"data"`
	CreatedAt     time.Time `db:"created_at"`
}

// JournalEntry is one leg of a double-entry posting for a value transfer
type JournalEntry struct {
	Id            string          `db:"id"`
	TransactionId string          `db:"transaction_id"`
	Account       string          `db:"account"`
	EntryType     string          `db:"entry_type"` // "debit" or "credit"
	Amount        decimal.Decimal `db:"amount"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Deployment is a named address recorded by the deploy tool
type Deployment struct {
	Name      string    `db:"name"`
	Address   string    `db:"address"`
	Program   string    `db:"program"`
	CreatedAt time.Time `db:"created_at"`
}
