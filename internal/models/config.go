package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Keeper   KeeperConfig
	Formance FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LedgerConfig holds the accounts and limits used to bootstrap the ledger
type LedgerConfig struct {
	Owner        string          // label or 0x address of the deploying owner
	Executor     string          // label or 0x address of the record executor
	GenesisFunds decimal.Decimal // whole native units
	MaxCallDepth int
	RecordsFile  string
}

// KeeperConfig holds auto-claim loop settings
type KeeperConfig struct {
	PollingInterval time.Duration
	MinClaim        decimal.Decimal // whole native units
}

// FormanceConfig holds the optional transfer mirror settings
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
