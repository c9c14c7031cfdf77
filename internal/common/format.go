package common

import (
	"fmt"
	"strings"
	"time"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintRecord prints one record as a tree item
func PrintRecord(info *models.RecordInfo, isLast bool) {
	status := "accruing"
	switch {
	case info.Paused:
		status = "paused"
	case info.Claimed.Equal(info.Amount):
		status = "exhausted"
	}

	detail := BoxDetailPrefix(isLast)
	fmt.Printf("%s%s  %s [%s]\n", BoxPrefix(isLast), info.Address, info.Title, status)
	if info.Description != "" {
		fmt.Printf("%s  %s\n", detail, info.Description)
	}
	fmt.Printf("%s  receiver:  %s\n", detail, info.Receiver)
	fmt.Printf("%s  amount:    %s over %s (from %s)\n", detail,
		ledger.FormatNative(info.Amount), FormatPeriod(info.Period), info.StartTime.Format(time.RFC3339))
	fmt.Printf("%s  vested:    %s  claimed: %s  claimable: %s\n", detail,
		ledger.FormatNative(info.Vested), ledger.FormatNative(info.Claimed), ledger.FormatNative(info.Claimable))
}

// PrintTreasury prints the treasury summary
func PrintTreasury(info *models.TreasuryInfo) {
	fmt.Printf("Treasury %s\n", info.Address)
	fmt.Printf("  owner:    %s\n", info.Owner)
	fmt.Printf("  factory:  %s\n", info.Factory)
	fmt.Printf("  balance:  %s\n", ledger.FormatNative(info.Balance))
	if info.MigratedTo != "" {
		fmt.Printf("  migrated: %s\n", info.MigratedTo)
	}
}

// FormatPeriod renders a period in seconds as a duration, e.g. "720h0m0s"
func FormatPeriod(seconds uint64) string {
	return (time.Duration(seconds) * time.Second).String()
}
