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
	"context"
	"database/sql"
	"fmt"
	"time"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.init(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, err
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func (s *Service) init() error {
	if err := s.initSchema(); err != nil {
		return fmt.Errorf("unable to initialize schema: %w", err)
	}
	if err := s.subledger.InitSchema(); err != nil {
		return fmt.Errorf("unable to initialize subledger schema: %w", err)
	}
	return nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Accounts table (Hot Data): code, nonce and native balance
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		nonce INTEGER NOT NULL DEFAULT 0,
		balance TEXT NOT NULL DEFAULT '0',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_code ON accounts(code);

	-- Program storage, split into the proxy header and the data region
	CREATE TABLE IF NOT EXISTS storage_slots (
		address TEXT NOT NULL REFERENCES accounts(address) ON DELETE CASCADE,
		region TEXT NOT NULL CHECK (region IN ('header', 'data')),
		slot_key TEXT NOT NULL,
		slot_value TEXT NOT NULL,
		PRIMARY KEY (address, region, slot_key)
	);

	-- Named addresses written by the deploy tool
	CREATE TABLE IF NOT EXISTS deployments (
		name TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		program TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_address ON deployments(address);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ApplyCommit persists a finished transaction atomically: the receipt with its
// events and journal, then the touched accounts.
func (s *Service) ApplyCommit(ctx context.Context, commit *ledger.Commit) error {
	r := commit.Receipt
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.subledger.RecordReceipt(ctx, tx, r, models.InitiatorTool(ctx)); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, acct := range commit.Accounts {
		if err := saveAccount(ctx, tx, acct, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Debug("Commit persisted",
		zap.String("tx_id", r.Id),
		zap.String("status", r.Status),
		zap.Int("accounts", len(commit.Accounts)),
		zap.Int("events", len(r.Events)))
	return nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, address string, limit, offset int) ([]models.Transaction, error) {
	return s.subledger.GetTransactionHistory(ctx, address, limit, offset)
}

func (s *Service) GetEvents(ctx context.Context, transactionId string) ([]models.Event, error) {
	return s.subledger.GetEvents(ctx, transactionId)
}

func (s *Service) GetJournalEntries(ctx context.Context, transactionId string) ([]models.JournalEntry, error) {
	return s.subledger.GetJournalEntries(ctx, transactionId)
}

// ReconcileBalance verifies that the stored balance of an address equals its
// journal total.
func (s *Service) ReconcileBalance(ctx context.Context, address string) error {
	balance, err := s.GetBalance(ctx, address)
	if err != nil {
		return err
	}
	journal, err := s.subledger.JournalBalance(ctx, address)
	if err != nil {
		return err
	}

	if !balance.Equal(journal) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("address", address),
			zap.String("account_balance", balance.String()),
			zap.String("journal_balance", journal.String()))
		return fmt.Errorf("%w: %s has %s, journal says %s", store.ErrBalanceMismatch, address, balance, journal)
	}

	zap.L().Debug("Balance reconciled", zap.String("address", address), zap.String("balance", balance.String()))
	return nil
}

func (s *Service) SaveDeployment(ctx context.Context, name, address, program string) error {
	_, err := s.db.ExecContext(ctx, queryUpsertDeployment, name, address, program, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save deployment %s: %w", name, err)
	}
	zap.L().Info("Deployment recorded", zap.String("name", name), zap.String("address", address), zap.String("program", program))
	return nil
}

func (s *Service) GetDeployment(ctx context.Context, name string) (*models.Deployment, error) {
	var d models.Deployment
	err := s.db.QueryRowContext(ctx, queryGetDeployment, name).Scan(&d.Name, &d.Address, &d.Program, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrDeploymentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	return &d, nil
}

func (s *Service) GetDeployments(ctx context.Context) ([]models.Deployment, error) {
	rows, err := s.db.QueryContext(ctx, queryGetDeployments)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployments: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var deployments []models.Deployment
	for rows.Next() {
		var d models.Deployment
		if err := rows.Scan(&d.Name, &d.Address, &d.Program, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}
