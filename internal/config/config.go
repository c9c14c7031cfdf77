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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"record-vesting-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	pollingInterval, err := getEnvDuration("KEEPER_POLLING_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	minClaim, err := getEnvDecimal("KEEPER_MIN_CLAIM", decimal.Zero)
	if err != nil {
		return nil, err
	}

	genesisFunds, err := getEnvDecimal("LEDGER_GENESIS_FUNDS", decimal.NewFromInt(1000))
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "records.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Ledger: models.LedgerConfig{
			Owner:        getEnvString("LEDGER_OWNER", "owner"),
			Executor:     getEnvString("LEDGER_EXECUTOR", "executor"),
			GenesisFunds: genesisFunds,
			MaxCallDepth: getEnvInt("LEDGER_MAX_CALL_DEPTH", 64),
			RecordsFile:  getEnvString("RECORDS_FILE", "records.yaml"),
		},
		Keeper: models.KeeperConfig{
			PollingInterval: pollingInterval,
			MinClaim:        minClaim,
		},
		Formance: models.FormanceConfig{
			Enabled:      getEnvBool("LEDGER_MIRROR", false),
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "records"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDecimal reads a whole-unit amount such as "1000" or "0.5".
func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount for %s: %q (%w)", key, value, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("invalid amount for %s: %q must not be negative", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}
