package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/database"
	"record-vesting-go/internal/formance"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Mirror    *formance.Service
	Ledger    *ledger.Ledger
	Api       *api.Service
	Owner     ledger.Address
	Executor  ledger.Address
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the state store, restores the ledger from it and
// binds the facade to the recorded deployment, if there is one.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	owner, err := api.ResolveAddress(cfg.Ledger.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_OWNER: %w", err)
	}
	executor, err := api.ResolveAddress(cfg.Ledger.Executor)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_EXECUTOR: %w", err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var mirrors []ledger.CommitSink
	var mirror *formance.Service
	if cfg.Formance.Enabled {
		mirror, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			dbService.Close()
			return nil, fmt.Errorf("failed to initialize Formance mirror: %w", err)
		}
		mirrors = append(mirrors, mirror)
	}

	l := ledger.New(api.NewRegistry(),
		ledger.WithSink(store.NewTeeSink(dbService, mirrors...)),
		ledger.WithMaxCallDepth(cfg.Ledger.MaxCallDepth))

	accounts, err := dbService.LoadAccounts(ctx)
	if err != nil {
		dbService.Close()
		return nil, err
	}
	if err := l.Restore(accounts); err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}

	svc := api.NewService(l, dbService)
	if err := svc.LoadDeployment(ctx); err != nil {
		if !errors.Is(err, api.ErrNotDeployed) {
			dbService.Close()
			return nil, err
		}
		zap.L().Info("No deployment recorded yet", zap.Error(err))
	}

	zap.L().Info("Services initialized",
		zap.Int("accounts", len(accounts)),
		zap.String("owner", owner.String()),
		zap.String("executor", executor.String()),
		zap.Bool("formance_mirror", mirror != nil))

	return &Services{
		DbService: dbService,
		Mirror:    mirror,
		Ledger:    l,
		Api:       svc,
		Owner:     owner,
		Executor:  executor,
	}, nil
}

// RequireDeployment fails unless the facade is bound to a deployment
func (cs *Services) RequireDeployment() error {
	if cs.Api.Treasury().IsZero() {
		return fmt.Errorf("%w: run the deploy command first", api.ErrNotDeployed)
	}
	return nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
