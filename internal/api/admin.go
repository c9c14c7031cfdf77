package api

import (
	"context"
	"fmt"

	"record-vesting-go/internal/factory"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/proxy"
	"record-vesting-go/internal/treasury"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PauseFactory stops record creation and claims platform-wide.
func (s *Service) PauseFactory(ctx context.Context, caller ledger.Address) error {
	return s.factoryAdmin(ctx, caller, ledger.NewCall(factory.SigPause))
}

func (s *Service) UnpauseFactory(ctx context.Context, caller ledger.Address) error {
	return s.factoryAdmin(ctx, caller, ledger.NewCall(factory.SigUnpause))
}

func (s *Service) ChangeExecutor(ctx context.Context, caller, executor ledger.Address) error {
	return s.factoryAdmin(ctx, caller, ledger.NewCall(factory.SigChangeExecutor, executor))
}

func (s *Service) factoryAdmin(ctx context.Context, caller ledger.Address, data ledger.Calldata) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.transact(ctx, caller, s.factory, data); err != nil {
		return fmt.Errorf("%s: %w", data.Method(), err)
	}
	zap.L().Info("Factory updated", zap.String("call", data.String()), zap.String("caller", caller.String()))
	return nil
}

// FactoryPaused reports the platform-wide pause flag.
func (s *Service) FactoryPaused(ctx context.Context) (bool, error) {
	if err := s.requireDeployed(); err != nil {
		return false, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.factory}
	paused := v.getBool(factory.SigPaused)
	return paused, v.err
}

func (s *Service) Executor(ctx context.Context) (ledger.Address, error) {
	if err := s.requireDeployed(); err != nil {
		return ledger.ZeroAddress, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.factory}
	executor := v.getAddress(factory.SigExecutor)
	return executor, v.err
}

// TransferOwnership hands the component behind target to newOwner. For a
// proxy, proxyLevel moves the upgrade right instead of the logic ownership.
func (s *Service) TransferOwnership(ctx context.Context, caller, target, newOwner ledger.Address, proxyLevel bool) error {
	sig := treasury.SigTransferOwnership
	if target == s.factory {
		sig = factory.SigTransferOwnership
	}
	if proxyLevel {
		sig = proxy.SigTransferOwner
	}
	if _, err := s.transact(ctx, caller, target, ledger.NewCall(sig, newOwner)); err != nil {
		return fmt.Errorf("transfer ownership of %s: %w", target.Short(), err)
	}
	return nil
}

// Fund mints native value to an account. Used for genesis funding.
func (s *Service) Fund(ctx context.Context, to ledger.Address, amount decimal.Decimal) error {
	if _, err := s.ledger.Mint(ctx, to, amount); err != nil {
		return fmt.Errorf("fund %s: %w", to.Short(), err)
	}
	return nil
}

func (s *Service) Balance(addr ledger.Address) decimal.Decimal {
	return s.ledger.BalanceOf(addr)
}

// GetTransactionHistory returns paginated persisted history for an address
func (s *Service) GetTransactionHistory(ctx context.Context, addr ledger.Address, limit, offset int) ([]models.Transaction, error) {
	if s.store == nil {
		return nil, fmt.Errorf("transaction history requires a store")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.GetTransactionHistory(ctx, addr.String(), limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("address", addr.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}
	return transactions, nil
}
