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

package database

import (
	"database/sql"
)

// Journal entry sides. A value transfer debits the receiving account and
// credits the sending one.
const (
	entryDebit  = "debit"
	entryCredit = "credit"
)

// SubledgerService records the audit trail: transactions, events and the
// double-entry journal of every native value movement.
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		args TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		initiator TEXT NOT NULL DEFAULT '',
		executed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_address);
	CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_address);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
	CREATE INDEX IF NOT EXISTS idx_transactions_executed_at ON transactions(executed_at);

	-- Program events emitted by confirmed transactions
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		seq INTEGER NOT NULL,
		contract TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_transaction_id ON events(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_events_contract_name ON events(contract, name);

	-- Journal Entries for Double-Entry Bookkeeping of value transfers
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		account TEXT NOT NULL,
		entry_type TEXT NOT NULL CHECK (entry_type IN ('debit', 'credit')),
		amount TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account);
	`

	_, err := s.db.Exec(schema)
	return err
}
