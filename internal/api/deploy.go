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

// DeployAll deploys both logic modules, puts each behind an initialized proxy
// owned by owner, and links the treasury to the factory. The facade is bound
// to the new proxies.
func (s *Service) DeployAll(ctx context.Context, owner, executor ledger.Address) (*models.Deployed, error) {
	treasuryLogic, err := s.DeployLogic(ctx, owner, treasury.ProgramName)
	if err != nil {
		return nil, err
	}
	factoryLogic, err := s.DeployLogic(ctx, owner, factory.ProgramName)
	if err != nil {
		return nil, err
	}

	treasuryProxy, err := s.deployProxy(ctx, owner, treasuryLogic, ledger.NewCall(treasury.SigInitialize))
	if err != nil {
		return nil, fmt.Errorf("treasury proxy: %w", err)
	}
	factoryProxy, err := s.deployProxy(ctx, owner, factoryLogic, ledger.NewCall(factory.SigInitialize, treasuryProxy, executor))
	if err != nil {
		return nil, fmt.Errorf("factory proxy: %w", err)
	}

	if _, err := s.transact(ctx, owner, treasuryProxy, ledger.NewCall(treasury.SigSetFactory, factoryProxy)); err != nil {
		return nil, fmt.Errorf("link treasury to factory: %w", err)
	}
	s.Bind(treasuryProxy, factoryProxy)

	deployed := &models.Deployed{
		TreasuryLogic: treasuryLogic.String(),
		FactoryLogic:  factoryLogic.String(),
		Treasury:      treasuryProxy.String(),
		Factory:       factoryProxy.String(),
	}
	if err := s.saveDeployments(ctx, deployed); err != nil {
		return nil, err
	}

	zap.L().Info("Platform deployed",
		zap.String("owner", owner.String()),
		zap.String("executor", executor.String()),
		zap.String("treasury", deployed.Treasury),
		zap.String("factory", deployed.Factory))
	return deployed, nil
}

// DeployLogic deploys a stateless logic module, e.g. a new treasury version
// for Upgrade.
func (s *Service) DeployLogic(ctx context.Context, from ledger.Address, program string) (ledger.Address, error) {
	r, err := s.ledger.Deploy(ctx, from, program, decimal.Zero)
	if err != nil {
		return ledger.ZeroAddress, fmt.Errorf("deploy %s logic: %w", program, err)
	}
	return r.Created, nil
}

func (s *Service) deployProxy(ctx context.Context, owner, logic ledger.Address, initData ledger.Calldata) (ledger.Address, error) {
	r, err := s.ledger.Deploy(ctx, owner, proxy.ProgramName, decimal.Zero)
	if err != nil {
		return ledger.ZeroAddress, err
	}
	if _, err := s.transact(ctx, owner, r.Created, ledger.NewCall(proxy.SigInitialize, owner, logic, initData)); err != nil {
		return ledger.ZeroAddress, err
	}
	return r.Created, nil
}

func (s *Service) saveDeployments(ctx context.Context, d *models.Deployed) error {
	if s.store == nil {
		return nil
	}
	entries := []struct {
		name    string
		address string
		program string
	}{
		{DeploymentTreasuryLogic, d.TreasuryLogic, treasury.ProgramName},
		{DeploymentFactoryLogic, d.FactoryLogic, factory.ProgramName},
		{DeploymentTreasury, d.Treasury, proxy.ProgramName},
		{DeploymentFactory, d.Factory, proxy.ProgramName},
	}
	for _, e := range entries {
		if err := s.store.SaveDeployment(ctx, e.name, e.address, e.program); err != nil {
			return err
		}
	}
	return nil
}

// Upgrade points proxyAddr at newLogic. Only the proxy owner may do this.
func (s *Service) Upgrade(ctx context.Context, caller, proxyAddr, newLogic ledger.Address) error {
	if _, err := s.transact(ctx, caller, proxyAddr, ledger.NewCall(proxy.SigUpgrade, newLogic)); err != nil {
		return fmt.Errorf("upgrade %s: %w", proxyAddr.Short(), err)
	}

	if s.store != nil {
		name := ""
		switch proxyAddr {
		case s.treasury:
			name = DeploymentTreasuryLogic
		case s.factory:
			name = DeploymentFactoryLogic
		}
		if name != "" {
			if err := s.store.SaveDeployment(ctx, name, newLogic.String(), s.ledger.CodeOf(newLogic)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Implementation returns the logic module a proxy currently forwards to.
func (s *Service) Implementation(ctx context.Context, proxyAddr ledger.Address) (ledger.Address, error) {
	ret, err := s.view(ctx, proxyAddr, ledger.NewCall(proxy.SigImplementation))
	if err != nil {
		return ledger.ZeroAddress, err
	}
	return ret.Address(0)
}
