package api

import (
	"context"
	"fmt"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/treasury"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit sends amount from the caller into the treasury.
func (s *Service) Deposit(ctx context.Context, from ledger.Address, amount decimal.Decimal) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("deposit amount must not be negative, got %s", amount)
	}

	_, err := s.ledger.Transact(ctx, ledger.Tx{
		From:  from,
		To:    s.treasury,
		Value: amount,
		Data:  ledger.NewCall(treasury.SigDeposit),
	})
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	zap.L().Info("Treasury deposit",
		zap.String("from", from.String()),
		zap.String("amount", ledger.FormatNative(amount)))
	return nil
}

// Withdraw moves amount from the treasury to recipient; owner only.
func (s *Service) Withdraw(ctx context.Context, caller, recipient ledger.Address, amount decimal.Decimal) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.transact(ctx, caller, s.treasury, ledger.NewCall(treasury.SigWithdraw, recipient, amount)); err != nil {
		zap.L().Error("Withdrawal failed",
			zap.String("recipient", recipient.String()),
			zap.String("amount", ledger.FormatNative(amount)),
			zap.Error(err))
		return fmt.Errorf("withdraw: %w", err)
	}

	zap.L().Info("Treasury withdrawal",
		zap.String("recipient", recipient.String()),
		zap.String("amount", ledger.FormatNative(amount)))
	return nil
}

// Migrate moves the whole treasury balance to newTreasury; owner only.
func (s *Service) Migrate(ctx context.Context, caller, newTreasury ledger.Address) (decimal.Decimal, error) {
	if err := s.requireDeployed(); err != nil {
		return decimal.Zero, err
	}
	r, err := s.transact(ctx, caller, s.treasury, ledger.NewCall(treasury.SigMigrate, newTreasury))
	if err != nil {
		return decimal.Zero, fmt.Errorf("migrate: %w", err)
	}
	moved, err := r.Return.Amount(0)
	if err != nil {
		return decimal.Zero, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("Treasury migrated",
		zap.String("from", s.treasury.String()),
		zap.String("to", newTreasury.String()),
		zap.String("amount", ledger.FormatNative(moved)))
	return moved, nil
}

func (s *Service) SetFactory(ctx context.Context, caller, factoryAddr ledger.Address) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.transact(ctx, caller, s.treasury, ledger.NewCall(treasury.SigSetFactory, factoryAddr)); err != nil {
		return fmt.Errorf("set factory: %w", err)
	}
	return nil
}

// AddRecord authorizes rec to claim from the treasury.
func (s *Service) AddRecord(ctx context.Context, caller, rec ledger.Address) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.transact(ctx, caller, s.treasury, ledger.NewCall(treasury.SigAddRecord, rec)); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	return nil
}

func (s *Service) TreasuryBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := s.requireDeployed(); err != nil {
		return decimal.Zero, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.treasury}
	balance := v.getAmount(treasury.SigGetBalance)
	return balance, v.err
}

func (s *Service) TreasuryInfo(ctx context.Context) (*models.TreasuryInfo, error) {
	if err := s.requireDeployed(); err != nil {
		return nil, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.treasury}
	info := &models.TreasuryInfo{
		Address: s.treasury.String(),
		Owner:   v.getAddress(treasury.SigGetOwner).String(),
		Factory: v.getAddress(treasury.SigFactory).String(),
		Balance: v.getAmount(treasury.SigGetBalance),
	}
	if migratedTo := v.getAddress(treasury.SigMigratedTo); !migratedTo.IsZero() {
		info.MigratedTo = migratedTo.String()
	}
	if v.err != nil {
		return nil, v.err
	}
	return info, nil
}

// Disbursed returns how much rec has been paid out by the treasury.
func (s *Service) Disbursed(ctx context.Context, rec ledger.Address) (decimal.Decimal, error) {
	if err := s.requireDeployed(); err != nil {
		return decimal.Zero, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.treasury}
	amount := v.getAmount(treasury.SigDisbursed, rec)
	return amount, v.err
}
