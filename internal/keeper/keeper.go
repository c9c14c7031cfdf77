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

package keeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordService is what the keeper needs from the platform facade.
type RecordService interface {
	HealthCheck(ctx context.Context) error
	FactoryPaused(ctx context.Context) (bool, error)
	ListRecords(ctx context.Context) ([]ledger.Address, error)
	GetRecord(ctx context.Context, rec ledger.Address) (*models.RecordInfo, error)
	ClaimRewardForRecord(ctx context.Context, caller, rec ledger.Address) (*models.ClaimResult, error)
}

// Config contains configuration for Keeper
type Config struct {
	Service         RecordService
	Operator        ledger.Address // factory owner the claims are sent from
	PollingInterval time.Duration
	MinClaim        decimal.Decimal
}

// SweepResult summarizes one pass over the records
type SweepResult struct {
	Checked int
	Claimed int
	Failed  int
	Skipped int
	Total   decimal.Decimal
}

// Keeper periodically claims every record with enough vested value on the
// operator's behalf.
type Keeper struct {
	service         RecordService
	operator        ledger.Address
	pollingInterval time.Duration
	minClaim        decimal.Decimal

	mutex     sync.Mutex
	lastSweep SweepResult

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(cfg Config) *Keeper {
	return &Keeper{
		service:         cfg.Service,
		operator:        cfg.Operator,
		pollingInterval: cfg.PollingInterval,
		minClaim:        cfg.MinClaim,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start checks the deployment and begins polling in the background
func (k *Keeper) Start(ctx context.Context) error {
	zap.L().Info("Starting keeper")

	if k.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %v", k.pollingInterval)
	}
	if err := k.service.HealthCheck(ctx); err != nil {
		return fmt.Errorf("keeper health check failed: %w", err)
	}

	go k.pollLoop(ctx)

	zap.L().Info("Keeper started successfully",
		zap.Duration("polling_interval", k.pollingInterval),
		zap.String("operator", k.operator.String()),
		zap.String("min_claim", ledger.FormatNative(k.minClaim)))
	return nil
}

// Stop gracefully stops the keeper
func (k *Keeper) Stop() {
	zap.L().Info("Stopping keeper")
	close(k.stopChan)
	<-k.doneChan
	zap.L().Info("Keeper stopped")
}

// LastSweep returns the result of the most recent sweep
func (k *Keeper) LastSweep() SweepResult {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return k.lastSweep
}

// pollLoop runs the main polling loop
func (k *Keeper) pollLoop(ctx context.Context) {
	defer close(k.doneChan)

	ticker := time.NewTicker(k.pollingInterval)
	defer ticker.Stop()

	k.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			k.Sweep(ctx)
		case <-k.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Sweep claims every due record once
func (k *Keeper) Sweep(ctx context.Context) SweepResult {
	result := SweepResult{Total: decimal.Zero}
	defer func() {
		k.mutex.Lock()
		k.lastSweep = result
		k.mutex.Unlock()
	}()

	paused, err := k.service.FactoryPaused(ctx)
	if err != nil {
		zap.L().Error("Failed to read factory pause flag", zap.Error(err))
		return result
	}
	if paused {
		fmt.Printf("%s[%s] Factory paused, skipping sweep%s\n", colorYellow, time.Now().Format("15:04:05"), colorReset)
		zap.L().Info("Factory paused, skipping sweep")
		return result
	}

	records, err := k.service.ListRecords(ctx)
	if err != nil {
		zap.L().Error("Failed to list records", zap.Error(err))
		return result
	}

	fmt.Printf("\n%s[%s] Checking %d records%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(records), colorReset)

	for _, rec := range records {
		result.Checked++
		claimed, err := k.processRecord(ctx, rec)
		switch {
		case err != nil:
			result.Failed++
			fmt.Printf("  %s✗ %s: %s%s\n", colorRed, rec.Short(), err, colorReset)
			zap.L().Error("Failed to claim record",
				zap.String("record", rec.String()),
				zap.Error(err))
		case claimed.IsZero():
			result.Skipped++
		default:
			result.Claimed++
			result.Total = result.Total.Add(claimed)
			fmt.Printf("  %s✓ %s claimed %s%s\n", colorGreen, rec.Short(), ledger.FormatNative(claimed), colorReset)
		}
	}

	if result.Claimed == 0 && result.Failed == 0 {
		fmt.Printf("  %s- nothing due%s\n", colorGray, colorReset)
	}
	zap.L().Info("Sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("claimed", result.Claimed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.String("total", ledger.FormatNative(result.Total)))
	return result
}

// processRecord claims rec if it is due and returns the amount paid
func (k *Keeper) processRecord(ctx context.Context, rec ledger.Address) (decimal.Decimal, error) {
	info, err := k.service.GetRecord(ctx, rec)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read record: %w", err)
	}

	if info.Paused {
		zap.L().Debug("Record paused, skipping", zap.String("record", rec.String()))
		return decimal.Zero, nil
	}
	if !info.Claimable.IsPositive() || info.Claimable.LessThan(k.minClaim) {
		zap.L().Debug("Record not due",
			zap.String("record", rec.String()),
			zap.String("claimable", info.Claimable.String()))
		return decimal.Zero, nil
	}

	result, err := k.service.ClaimRewardForRecord(ctx, k.operator, rec)
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Success {
		return decimal.Zero, fmt.Errorf("claim reverted: %s", result.Error)
	}
	return result.Amount, nil
}
