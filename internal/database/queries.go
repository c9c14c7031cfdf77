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

const (
	// Account queries
	queryUpsertAccount = `
		INSERT INTO accounts (address, code, nonce, balance, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			code = excluded.code,
			nonce = excluded.nonce,
			balance = excluded.balance,
			updated_at = excluded.updated_at`

	queryGetAccounts = `
		SELECT address, code, nonce, balance, updated_at
		FROM accounts
		ORDER BY address`

	queryGetAccountBalance = `
		SELECT balance FROM accounts WHERE address = ?`

	// Storage queries
	queryDeleteAccountSlots = `
		DELETE FROM storage_slots WHERE address = ?`

	queryInsertSlot = `
		INSERT INTO storage_slots (address, region, slot_key, slot_value)
		VALUES (?, ?, ?, ?)`

	queryGetSlots = `
		SELECT address, region, slot_key, slot_value
		FROM storage_slots
		ORDER BY address, region, slot_key`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE id = ? LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, kind, from_address, to_address, method, args, value,
			status, reason, initiator, executed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertEvent = `
		INSERT INTO events (transaction_id, seq, contract, name, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account, entry_type, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, kind, from_address, to_address, method, args, value,
		       status, reason, initiator, executed_at, created_at
		FROM transactions
		WHERE from_address = ? OR to_address = ?
		ORDER BY executed_at DESC, created_at DESC
		LIMIT ? OFFSET ?`

	queryGetEvents = `
		SELECT id, transaction_id, contract, name, data, created_at
		FROM events
		WHERE transaction_id = ?
		ORDER BY seq`

	queryGetJournalEntries = `
		SELECT id, transaction_id, account, entry_type, amount, created_at
		FROM journal_entries
		WHERE transaction_id = ?
		ORDER BY entry_type DESC, account`

	queryGetAccountJournal = `
		SELECT entry_type, amount
		FROM journal_entries
		WHERE account = ?`

	// Deployment queries
	queryUpsertDeployment = `
		INSERT INTO deployments (name, address, program, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			address = excluded.address,
			program = excluded.program,
			created_at = excluded.created_at`

	queryGetDeployment = `
		SELECT name, address, program, created_at
		FROM deployments
		WHERE name = ?`

	queryGetDeployments = `
		SELECT name, address, program, created_at
		FROM deployments
		ORDER BY name`
)
