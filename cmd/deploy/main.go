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
	"errors"
	"flag"
	"fmt"
	"os"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/common"
	"record-vesting-go/internal/config"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	recordsFile := flag.String("records", "", "Path to a records YAML manifest (default: RECORDS_FILE)")
	deposit := flag.String("deposit", "0", "Amount the owner deposits into the treasury after deployment")
	seedOnly := flag.Bool("seed-only", false, "Skip deployment and only create the records of the manifest")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := models.WithInitiator(context.Background(), &models.Initiator{
		Tool:      "deploy",
		RequestId: uuid.New().String(),
	})

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	svc := services.Api
	common.PrintHeader("RECORD PLATFORM DEPLOYMENT", common.DefaultWidth)

	if !*seedOnly {
		if services.RequireDeployment() == nil {
			zap.L().Fatal("Platform already deployed; use -seed-only to add records",
				zap.String("treasury", svc.Treasury().String()),
				zap.String("factory", svc.Factory().String()))
		}

		for _, addr := range []ledger.Address{services.Owner, services.Executor} {
			if err := fundIfEmpty(ctx, svc, addr, cfg.Ledger.GenesisFunds.Shift(ledger.NativeDecimals)); err != nil {
				zap.L().Fatal("Failed to fund account", zap.String("address", addr.String()), zap.Error(err))
			}
		}

		deployed, err := svc.DeployAll(ctx, services.Owner, services.Executor)
		if err != nil {
			zap.L().Fatal("Deployment failed", zap.Error(err))
		}
		fmt.Printf("Treasury logic: %s\n", deployed.TreasuryLogic)
		fmt.Printf("Factory logic:  %s\n", deployed.FactoryLogic)
		fmt.Printf("Treasury:       %s\n", deployed.Treasury)
		fmt.Printf("Factory:        %s\n", deployed.Factory)

		amount, err := ledger.ParseNative(*deposit)
		if err != nil {
			zap.L().Fatal("Invalid deposit amount", zap.Error(err))
		}
		if amount.IsPositive() {
			if err := svc.Deposit(ctx, services.Owner, amount); err != nil {
				zap.L().Fatal("Treasury deposit failed", zap.Error(err))
			}
			fmt.Printf("Deposited %s into the treasury\n", ledger.FormatNative(amount))
		}
	} else if err := services.RequireDeployment(); err != nil {
		zap.L().Fatal("Cannot seed records", zap.Error(err))
	}

	file := *recordsFile
	if file == "" {
		file = cfg.Ledger.RecordsFile
	}
	created, err := seedRecords(ctx, svc, services.Executor, file, *recordsFile != "")
	if err != nil {
		zap.L().Fatal("Failed to seed records", zap.Error(err))
	}

	common.PrintFooter(fmt.Sprintf("Deployment complete: %d records created", created), common.DefaultWidth)
}

// fundIfEmpty mints the genesis amount to addr unless it already holds value
func fundIfEmpty(ctx context.Context, svc *api.Service, addr ledger.Address, genesis decimal.Decimal) error {
	if !genesis.IsPositive() || svc.Balance(addr).IsPositive() {
		return nil
	}
	if err := svc.Fund(ctx, addr, genesis); err != nil {
		return err
	}
	fmt.Printf("Funded %s with %s\n", addr, ledger.FormatNative(genesis))
	return nil
}

// seedRecords creates every record of the manifest. A missing default
// manifest is not an error; a missing explicit one is.
func seedRecords(ctx context.Context, svc *api.Service, executor ledger.Address, file string, explicit bool) (int, error) {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) && !explicit {
		zap.L().Info("No records manifest found, skipping seeding", zap.String("file", file))
		return 0, nil
	}

	manifest, err := common.LoadRecordManifest(file)
	if err != nil {
		return 0, err
	}

	for i, spec := range manifest.Records {
		terms, err := api.ParseRecordSpec(spec)
		if err != nil {
			return i, fmt.Errorf("record %d (%s): %w", i, spec.Title, err)
		}
		addr, err := svc.CreateRecord(ctx, executor, terms)
		if err != nil {
			return i, fmt.Errorf("record %d (%s): %w", i, spec.Title, err)
		}
		fmt.Printf("%s%s  %s -> %s\n", common.BoxPrefix(i == len(manifest.Records)-1), addr, spec.Title, spec.Receiver)
	}
	return len(manifest.Records), nil
}
