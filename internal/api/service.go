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

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"record-vesting-go/internal/factory"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/proxy"
	"record-vesting-go/internal/record"
	"record-vesting-go/internal/store"
	"record-vesting-go/internal/treasury"

	"go.uber.org/zap"
)

// Deployment names written to the store.
const (
	DeploymentTreasuryLogic = "treasury-logic"
	DeploymentFactoryLogic  = "factory-logic"
	DeploymentTreasury      = "treasury"
	DeploymentFactory       = "factory"
)

// ErrNotDeployed is returned by operations that need a bound deployment.
var ErrNotDeployed = errors.New("treasury and factory are not deployed")

// NewRegistry returns the registry holding every program of the platform.
func NewRegistry() *ledger.Registry {
	return ledger.NewRegistry(proxy.New(), treasury.New(), factory.New(), record.New())
}

// Service is the typed facade over the ledger used by the CLIs and the keeper
type Service struct {
	ledger   *ledger.Ledger
	store    store.LedgerStore
	treasury ledger.Address
	factory  ledger.Address
}

// NewService wraps l. st may be nil, in which case deployments are not
// recorded and history is unavailable.
func NewService(l *ledger.Ledger, st store.LedgerStore) *Service {
	return &Service{
		ledger: l,
		store:  st,
	}
}

// Bind points the facade at an existing deployment.
func (s *Service) Bind(treasuryAddr, factoryAddr ledger.Address) {
	s.treasury = treasuryAddr
	s.factory = factoryAddr
}

// LoadDeployment binds the facade to the treasury and factory proxies recorded
// in the store.
func (s *Service) LoadDeployment(ctx context.Context) error {
	if s.store == nil {
		return ErrNotDeployed
	}
	addrs := make(map[string]ledger.Address)
	for _, name := range []string{DeploymentTreasury, DeploymentFactory} {
		d, err := s.store.GetDeployment(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrDeploymentNotFound) {
				return fmt.Errorf("%w: %s missing", ErrNotDeployed, name)
			}
			return err
		}
		addr, err := ledger.HexToAddress(d.Address)
		if err != nil {
			return fmt.Errorf("corrupt deployment %s: %w", name, err)
		}
		addrs[name] = addr
	}
	s.Bind(addrs[DeploymentTreasury], addrs[DeploymentFactory])

	zap.L().Info("Deployment loaded",
		zap.String("treasury", s.treasury.String()),
		zap.String("factory", s.factory.String()))
	return nil
}

func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

func (s *Service) Treasury() ledger.Address { return s.treasury }

func (s *Service) Factory() ledger.Address { return s.factory }

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.view(ctx, s.treasury, ledger.NewCall(treasury.SigGetOwner)); err != nil {
		return fmt.Errorf("treasury health check failed: %w", err)
	}
	if _, err := s.view(ctx, s.factory, ledger.NewCall(factory.SigOwner)); err != nil {
		return fmt.Errorf("factory health check failed: %w", err)
	}
	return nil
}

// ResolveAddress accepts a 0x-prefixed hex address or a label; labels map to
// the address derived from them.
func ResolveAddress(s string) (ledger.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ledger.ZeroAddress, fmt.Errorf("address cannot be empty")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return ledger.HexToAddress(s)
	}
	return ledger.AddressFromLabel(s), nil
}

func (s *Service) requireDeployed() error {
	if s.treasury.IsZero() || s.factory.IsZero() {
		return ErrNotDeployed
	}
	return nil
}

func (s *Service) transact(ctx context.Context, from, to ledger.Address, data ledger.Calldata) (*ledger.Receipt, error) {
	return s.ledger.Transact(ctx, ledger.Tx{From: from, To: to, Data: data})
}

func (s *Service) view(ctx context.Context, to ledger.Address, data ledger.Calldata) (ledger.Values, error) {
	return s.ledger.View(ctx, ledger.ZeroAddress, to, data)
}
