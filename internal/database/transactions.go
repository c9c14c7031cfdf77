package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordReceipt writes a receipt with its events and journal entries inside tx
func (s *SubledgerService) RecordReceipt(ctx context.Context, tx *sql.Tx, r *ledger.Receipt, initiator string) error {
	var existingId string
	err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, r.Id).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate transaction Id detected, skipping", zap.String("tx_id", r.Id))
		return fmt.Errorf("%w: transaction %s already recorded", store.ErrDuplicateTransaction, r.Id)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		r.Id, r.Kind, r.From.String(), r.To.String(), r.Call.Signature, r.Call.Args.Format(), r.Value.String(),
		r.Status, r.Reason, initiator, r.Timestamp, now)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for i, event := range r.Events {
		_, err := tx.ExecContext(ctx, queryInsertEvent, r.Id, i, event.Contract.String(), event.Name, event.Data.Format(), now)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.Name, err)
		}
	}

	if err := s.addJournalEntries(ctx, tx, r.Id, r.Transfers, now); err != nil {
		return fmt.Errorf("failed to add journal entries: %w", err)
	}
	return nil
}

// addJournalEntries creates double-entry bookkeeping entries: the receiving
// account is debited, the sending account credited.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transactionId string, transfers []ledger.Transfer, now time.Time) error {
	for _, transfer := range transfers {
		entries := []struct {
			account   string
			entryType string
		}{
			{transfer.To.String(), entryDebit},
			{transfer.From.String(), entryCredit},
		}
		for _, entry := range entries {
			_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
				uuid.New().String(), transactionId, entry.account, entry.entryType, transfer.Amount.String(), now)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// GetTransactionHistory returns paginated transaction history for an address
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, address string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("address", address),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, address, address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var valueStr string
		err := rows.Scan(&tx.Id, &tx.Kind, &tx.FromAddress, &tx.ToAddress, &tx.Method, &tx.Args, &valueStr,
			&tx.Status, &tx.Reason, &tx.Initiator, &tx.ExecutedAt, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Value, err = decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse value '%s': %w", valueStr, err)
		}

		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// GetEvents returns the events of a transaction in emission order
func (s *SubledgerService) GetEvents(ctx context.Context, transactionId string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEvents, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.Id, &e.TransactionId, &e.Contract, &e.Name, &e.Data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// GetJournalEntries returns the journal legs of a transaction
func (s *SubledgerService) GetJournalEntries(ctx context.Context, transactionId string) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetJournalEntries, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var amountStr string
		if err := rows.Scan(&e.Id, &e.TransactionId, &e.Account, &e.EntryType, &amountStr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}

// JournalBalance sums debits minus credits for an account
func (s *SubledgerService) JournalBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAccountJournal, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get account journal: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var entryType, amountStr string
		if err := rows.Scan(&entryType, &amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if entryType == entryDebit {
			total = total.Add(amount)
		} else {
			total = total.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return total, nil
}
