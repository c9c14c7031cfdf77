package main

import (
	"fmt"

	"record-vesting-go/internal/api"
	"record-vesting-go/internal/common"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"github.com/spf13/cobra"
)

func recordSpecFlags(cmd *cobra.Command, spec *models.RecordSpec) {
	cmd.Flags().StringVarP(&spec.Title, "title", "t", "", "Record title (required)")
	cmd.Flags().StringVarP(&spec.Description, "description", "d", "", "Record description")
	cmd.Flags().StringVarP(&spec.Amount, "amount", "a", "", "Total amount in whole units, e.g. 1.5 (required)")
	cmd.Flags().StringVarP(&spec.Period, "period", "p", "", "Vesting period, Go duration or seconds (required)")
	cmd.Flags().StringVarP(&spec.Receiver, "receiver", "r", "", "Receiver label or address (required)")
	for _, name := range []string{"title", "amount", "period", "receiver"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func init() {
	var createSpec models.RecordSpec
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record through the factory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			terms, err := api.ParseRecordSpec(createSpec)
			if err != nil {
				return err
			}
			addr, err := svc.CreateRecord(cmd.Context(), caller, terms)
			if err != nil {
				return err
			}
			fmt.Printf("Created record %s\n", addr)
			return nil
		},
	}
	recordSpecFlags(createCmd, &createSpec)
	rootCmd.AddCommand(createCmd)

	var updateSpec models.RecordSpec
	updateCmd := &cobra.Command{
		Use:   "update RECORD",
		Short: "Replace the terms of a record, keeping its start time and claimed total",
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
			terms, err := api.ParseRecordSpec(updateSpec)
			if err != nil {
				return err
			}
			if err := svc.UpdateRecord(cmd.Context(), caller, rec, terms); err != nil {
				return err
			}
			fmt.Printf("Updated record %s\n", rec)
			return nil
		},
	}
	recordSpecFlags(updateCmd, &updateSpec)
	rootCmd.AddCommand(updateCmd)

	for _, pause := range []bool{true, false} {
		use, short := "pause-record RECORD", "Pause claims on a record"
		if !pause {
			use, short = "unpause-record RECORD", "Resume claims on a record"
		}
		rootCmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
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
				if pause {
					return svc.PauseRecord(cmd.Context(), caller, rec)
				}
				return svc.UnpauseRecord(cmd.Context(), caller, rec)
			},
		})
	}

	var direct bool
	claimCmd := &cobra.Command{
		Use:   "claim RECORD",
		Short: "Pay out what a record has vested to its receiver",
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
			claim := svc.ClaimRewardForRecord
			if direct {
				claim = svc.ClaimRecord
			}
			result, err := claim(cmd.Context(), caller, rec)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("claim failed (tx %s): %s", result.TransactionId, result.Error)
			}
			fmt.Printf("Claimed %s for %s (tx %s)\n", ledger.FormatNative(result.Amount), result.Receiver, result.TransactionId)
			return nil
		},
	}
	claimCmd.Flags().BoolVar(&direct, "direct", false, "Call the record itself instead of going through the factory")
	rootCmd.AddCommand(claimCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "show RECORD",
		Short: "Show the terms and progress of a record",
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
			info, err := svc.GetRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}
			common.PrintRecord(info, true)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the records registered with the factory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := platform()
			if err != nil {
				return err
			}
			records, err := svc.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			for i, rec := range records {
				info, err := svc.GetRecord(cmd.Context(), rec)
				if err != nil {
					return err
				}
				fmt.Printf("%s%s  %-24s %s/%s\n", common.BoxPrefix(i == len(records)-1), rec, info.Title,
					ledger.FormatNative(info.Claimed), ledger.FormatNative(info.Amount))
			}
			return nil
		},
	})
}
