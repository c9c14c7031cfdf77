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
	"os"
	"os/signal"
	"syscall"
	"time"

	"record-vesting-go/internal/common"
	"record-vesting-go/internal/config"
	"record-vesting-go/internal/keeper"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(models.WithInitiator(context.Background(), &models.Initiator{
		Tool:      "keeper",
		RequestId: uuid.New().String(),
	}))
	defer cancel()

	zap.L().Info("Starting record keeper")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := services.RequireDeployment(); err != nil {
		zap.L().Fatal("Keeper needs a deployment", zap.Error(err))
	}

	k := keeper.New(keeper.Config{
		Service:         services.Api,
		Operator:        services.Owner,
		PollingInterval: cfg.Keeper.PollingInterval,
		MinClaim:        cfg.Keeper.MinClaim.Shift(ledger.NativeDecimals),
	})

	if *once {
		result := k.Sweep(ctx)
		fmt.Printf("Checked %d records, claimed %d (%s), failed %d\n",
			result.Checked, result.Claimed, ledger.FormatNative(result.Total), result.Failed)
		return
	}

	if err := k.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start keeper", zap.Error(err))
	}
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping keeper...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		k.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Keeper stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
