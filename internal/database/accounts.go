package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"record-vesting-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// saveAccount replaces the stored state of one account inside tx
func saveAccount(ctx context.Context, tx *sql.Tx, acct ledger.AccountSnapshot, now time.Time) error {
	addr := acct.Address.String()
	_, err := tx.ExecContext(ctx, queryUpsertAccount, addr, acct.Code, int64(acct.Nonce), acct.Balance.String(), now)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", addr, err)
	}

	if _, err := tx.ExecContext(ctx, queryDeleteAccountSlots, addr); err != nil {
		return fmt.Errorf("failed to clear storage of %s: %w", addr, err)
	}

	regions := []struct {
		name  string
		slots map[string]string
	}{
		{ledger.HeaderRegion, acct.Header},
		{ledger.DataRegion, acct.Data},
	}
	for _, region := range regions {
		for key, value := range region.slots {
			if _, err := tx.ExecContext(ctx, queryInsertSlot, addr, region.name, key, value); err != nil {
				return fmt.Errorf("failed to write slot %s/%s of %s: %w", region.name, key, addr, err)
			}
		}
	}
	return nil
}

// LoadAccounts reads every persisted account with its storage
func (s *Service) LoadAccounts(ctx context.Context) ([]ledger.AccountSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []ledger.AccountSnapshot
	index := make(map[ledger.Address]int)
	for rows.Next() {
		var addrStr, code, balanceStr string
		var nonce int64
		var updatedAt time.Time
		if err := rows.Scan(&addrStr, &code, &nonce, &balanceStr, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		addr, err := ledger.HexToAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt account address: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}

		index[addr] = len(accounts)
		accounts = append(accounts, ledger.AccountSnapshot{
			Address: addr,
			Code:    code,
			Nonce:   uint64(nonce),
			Balance: balance,
			Header:  map[string]string{},
			Data:    map[string]string{},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	if err := s.loadSlots(ctx, accounts, index); err != nil {
		return nil, err
	}

	zap.L().Info("Loaded ledger accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

func (s *Service) loadSlots(ctx context.Context, accounts []ledger.AccountSnapshot, index map[ledger.Address]int) error {
	rows, err := s.db.QueryContext(ctx, queryGetSlots)
	if err != nil {
		return fmt.Errorf("failed to get storage slots: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var addrStr, region, key, value string
		if err := rows.Scan(&addrStr, &region, &key, &value); err != nil {
			return fmt.Errorf("failed to scan slot: %w", err)
		}
		addr, err := ledger.HexToAddress(addrStr)
		if err != nil {
			return fmt.Errorf("corrupt slot address: %w", err)
		}
		i, ok := index[addr]
		if !ok {
			zap.L().Warn("Storage slot without account", zap.String("address", addrStr), zap.String("slot", key))
			continue
		}
		if region == ledger.HeaderRegion {
			accounts[i].Header[key] = value
		} else {
			accounts[i].Data[key] = value
		}
	}
	return rows.Err()
}

// GetBalance returns the persisted native balance of an address
func (s *Service) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetAccountBalance, address).Scan(&balanceStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}
	return balance, nil
}
