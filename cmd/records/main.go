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

package main

import (
	"context"
	"flag"
	"fmt"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/common"
	"record-vesting-go/internal/config"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type recordStats struct {
	total     int
	paused    int
	exhausted int
	committed decimal.Decimal
	claimed   decimal.Decimal
	claimable decimal.Decimal
}

func (s *recordStats) add(info *models.RecordInfo) {
	s.total++
	if info.Paused {
		s.paused++
	}
	if info.Claimed.Equal(info.Amount) {
		s.exhausted++
	}
	s.committed = s.committed.Add(info.Amount)
	s.claimed = s.claimed.Add(info.Claimed)
	s.claimable = s.claimable.Add(info.Claimable)
}

func printSummary(stats recordStats, treasury *models.TreasuryInfo) {
	common.PrintHeader("SUMMARY", common.DefaultWidth)
	fmt.Printf("Records:            %d (%d paused, %d exhausted)\n", stats.total, stats.paused, stats.exhausted)
	fmt.Printf("Committed:          %s\n", ledger.FormatNative(stats.committed))
	fmt.Printf("Claimed:            %s\n", ledger.FormatNative(stats.claimed))
	fmt.Printf("Claimable now:      %s\n", ledger.FormatNative(stats.claimable))
	outstanding := stats.committed.Sub(stats.claimed)
	fmt.Printf("Outstanding:        %s\n", ledger.FormatNative(outstanding))
	if treasury.Balance.LessThan(outstanding) {
		fmt.Printf("Treasury shortfall: %s\n", ledger.FormatNative(outstanding.Sub(treasury.Balance)))
	}
}

func printHistory(ctx context.Context, svc *api.Service, target string, limit int) error {
	addr, err := api.ResolveAddress(target)
	if err != nil {
		return err
	}
	history, err := svc.GetTransactionHistory(ctx, addr, limit, 0)
	if err != nil {
		return err
	}

	common.PrintHeader(fmt.Sprintf("HISTORY %s", addr), common.WideWidth)
	for i, tx := range history {
		call := tx.Method
		if call == "" {
			call = tx.Kind
		}
		fmt.Printf("%s%s  %-9s %-28s %s -> %s  %s  %s\n",
			common.BoxPrefix(i == len(history)-1),
			tx.ExecutedAt.Format("2006-01-02 15:04:05"),
			tx.Status,
			call,
			ledger.MustHexToAddress(tx.FromAddress).Short(),
			ledger.MustHexToAddress(tx.ToAddress).Short(),
			ledger.FormatNative(tx.Value),
			tx.Reason)
	}
	return nil
}

func main() {
	history := flag.String("history", "", "Print transaction history of an address or label instead of the report")
	limit := flag.Int("limit", 20, "History page size")
	reconcile := flag.Bool("reconcile", false, "Verify each record and the treasury against the journal")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	svc := services.Api
	if *history != "" {
		if err := printHistory(ctx, svc, *history, *limit); err != nil {
			zap.L().Fatal("Failed to print history", zap.Error(err))
		}
		return
	}

	if err := services.RequireDeployment(); err != nil {
		zap.L().Fatal("Nothing to report", zap.Error(err))
	}

	treasury, err := svc.TreasuryInfo(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read treasury", zap.Error(err))
	}
	common.PrintHeader("TREASURY", common.DefaultWidth)
	common.PrintTreasury(treasury)

	records, err := svc.ListRecords(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list records", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("RECORDS (%d)", len(records)), common.DefaultWidth)
	stats := recordStats{committed: decimal.Zero, claimed: decimal.Zero, claimable: decimal.Zero}
	for i, rec := range records {
		info, err := svc.GetRecord(ctx, rec)
		if err != nil {
			zap.L().Error("Failed to read record", zap.String("record", rec.String()), zap.Error(err))
			continue
		}
		common.PrintRecord(info, i == len(records)-1)
		stats.add(info)
	}

	if *reconcile {
		targets := append([]ledger.Address{svc.Treasury()}, records...)
		for _, addr := range targets {
			if err := services.DbService.ReconcileBalance(ctx, addr.String()); err != nil {
				fmt.Printf("✗ %s: %v\n", addr.Short(), err)
			}
		}
	}

	printSummary(stats, treasury)
}
