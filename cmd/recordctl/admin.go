package main

import (
	"fmt"

	"record-vesting-go/internal/common"
	"record-vesting-go/internal/factory"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/treasury"

	"github.com/spf13/cobra"
)

func init() {
	for _, pause := range []bool{true, false} {
		use, short := "pause", "Pause record creation and claims on the factory"
		if !pause {
			use, short = "unpause", "Resume the factory"
		}
		rootCmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := platform()
				if err != nil {
					return err
				}
				if pause {
					return svc.PauseFactory(cmd.Context(), caller)
				}
				return svc.UnpauseFactory(cmd.Context(), caller)
			},
		})
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "change-executor ADDRESS",
		Short: "Set the account allowed to create and update records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			executor, err := resolveArg(args, 0, "executor")
			if err != nil {
				return err
			}
			return svc.ChangeExecutor(cmd.Context(), caller, executor)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Deposit whole native units into the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			amount, err := ledger.ParseNative(args[0])
			if err != nil {
				return err
			}
			if err := svc.Deposit(cmd.Context(), caller, amount); err != nil {
				return err
			}
			fmt.Printf("Deposited %s\n", ledger.FormatNative(amount))
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "withdraw RECIPIENT AMOUNT",
		Short: "Withdraw from the treasury (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			recipient, err := resolveArg(args, 0, "recipient")
			if err != nil {
				return err
			}
			amount, err := ledger.ParseNative(args[1])
			if err != nil {
				return err
			}
			if err := svc.Withdraw(cmd.Context(), caller, recipient, amount); err != nil {
				return err
			}
			fmt.Printf("Withdrew %s to %s\n", ledger.FormatNative(amount), recipient)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate NEW_TREASURY",
		Short: "Move the whole treasury balance to another treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			target, err := resolveArg(args, 0, "treasury")
			if err != nil {
				return err
			}
			moved, err := svc.Migrate(cmd.Context(), caller, target)
			if err != nil {
				return err
			}
			fmt.Printf("Migrated %s to %s\n", ledger.FormatNative(moved), target)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "add-record RECORD",
		Short: "Authorize a record to draw from the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			rec, err := resolveArg(args, 0, "record")
			if err != nil {
				return err
			}
			return svc.AddRecord(cmd.Context(), caller, rec)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "set-factory FACTORY",
		Short: "Point the treasury at a factory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			f, err := resolveArg(args, 0, "factory")
			if err != nil {
				return err
			}
			return svc.SetFactory(cmd.Context(), caller, f)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:       "upgrade treasury|factory",
		Short:     "Deploy a new logic module and point the proxy at it",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"treasury", "factory"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			program, target := treasury.ProgramName, svc.Treasury()
			if args[0] == "factory" {
				program, target = factory.ProgramName, svc.Factory()
			}
			logic, err := svc.DeployLogic(cmd.Context(), caller, program)
			if err != nil {
				return err
			}
			if err := svc.Upgrade(cmd.Context(), caller, target, logic); err != nil {
				return err
			}
			fmt.Printf("%s %s now runs %s\n", args[0], target, logic)
			return nil
		},
	})

	var proxyLevel bool
	ownershipCmd := &cobra.Command{
		Use:   "transfer-ownership TARGET NEW_OWNER",
		Short: "Hand the treasury or factory to a new owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			target, err := resolveArg(args, 0, "target")
			if err != nil {
				return err
			}
			newOwner, err := resolveArg(args, 1, "new owner")
			if err != nil {
				return err
			}
			return svc.TransferOwnership(cmd.Context(), caller, target, newOwner, proxyLevel)
		},
	}
	ownershipCmd.Flags().BoolVar(&proxyLevel, "proxy", false, "Transfer the proxy upgrade right instead")
	rootCmd.AddCommand(ownershipCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "treasury",
		Short: "Show the treasury state",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			info, err := svc.TreasuryInfo(cmd.Context())
			if err != nil {
				return err
			}
			common.PrintTreasury(info)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "fund ADDRESS AMOUNT",
		Short: "Mint whole native units to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := resolveArg(args, 0, "address")
			if err != nil {
				return err
			}
			amount, err := ledger.ParseNative(args[1])
			if err != nil {
				return err
			}
			if err := services.Api.Fund(cmd.Context(), to, amount); err != nil {
				return err
			}
			fmt.Printf("%s balance: %s\n", to, ledger.FormatNative(services.Api.Balance(to)))
			return nil
		},
	})

	var limit, offset int
	historyCmd := &cobra.Command{
		Use:   "history ADDRESS",
		Short: "Show transactions touching an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := resolveArg(args, 0, "address")
			if err != nil {
				return err
			}
			history, err := services.Api.GetTransactionHistory(cmd.Context(), addr, limit, offset)
			if err != nil {
				return err
			}
			for _, tx := range history {
				call := tx.Method
				if call == "" {
					call = tx.Kind
				}
				fmt.Printf("%s  %s  %-9s %-24s %s  %s\n", tx.Id, tx.ExecutedAt.Format("2006-01-02 15:04:05"),
					tx.Status, call, ledger.FormatNative(tx.Value), tx.Reason)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Page size")
	historyCmd.Flags().IntVarP(&offset, "offset", "o", 0, "Rows to skip")
	rootCmd.AddCommand(historyCmd)
}
