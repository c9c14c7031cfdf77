package main

import (
	"context"
	"fmt"
	"os"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/common"
	"record-vesting-go/internal/config"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	asFlag  string
	cleanup []func()

	services *common.Services
	caller   ledger.Address

	rootCmd = &cobra.Command{
		Use:           "recordctl",
		Short:         "Administer the record treasury, factory and records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&asFlag, "as", "", "Caller label or address (default: LEDGER_OWNER)")

	ctx := models.WithInitiator(context.Background(), &models.Initiator{
		Tool:      "recordctl",
		RequestId: uuid.New().String(),
	})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		teardown()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	_, loggerCleanup := common.InitializeLogger()
	cleanup = append(cleanup, loggerCleanup)

	services, err = common.InitializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, services.Close)

	caller = services.Owner
	if asFlag != "" {
		if caller, err = api.ResolveAddress(asFlag); err != nil {
			return fmt.Errorf("invalid --as: %w", err)
		}
	}
	zap.L().Debug("recordctl caller", zap.String("caller", caller.String()))
	return nil
}

func teardown() {
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	cleanup = nil
}

// platform returns the facade once a deployment is known
func platform() (*api.Service, error) {
	if err := services.RequireDeployment(); err != nil {
		return nil, err
	}
	return services.Api, nil
}

func resolveArg(args []string, i int, what string) (ledger.Address, error) {
	addr, err := api.ResolveAddress(args[i])
	if err != nil {
		return addr, fmt.Errorf("invalid %s: %w", what, err)
	}
	return addr, nil
}
