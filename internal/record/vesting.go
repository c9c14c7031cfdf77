package record

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Vested is the portion of amount released after linear vesting from start
// over period seconds, rounded down to a whole unit.
func Vested(amount decimal.Decimal, period uint64, start, now time.Time) decimal.Decimal {
	if period == 0 || !amount.IsPositive() {
		return decimal.Zero
	}
	elapsed := now.Unix() - start.Unix()
	if elapsed <= 0 {
		return decimal.Zero
	}
	if uint64(elapsed) >= period {
		return amount
	}

	total := decimal.NewFromBigInt(new(big.Int).SetUint64(period), 0)
	quotient, _ := amount.Mul(decimal.NewFromInt(elapsed)).QuoRem(total, 0)
	return quotient
}

// Claimable is what the receiver can collect now given what was already
// claimed. It is never negative, even when terms were reduced below the
// vested amount.
func Claimable(amount, claimed decimal.Decimal, period uint64, start, now time.Time) decimal.Decimal {
	remaining := Vested(amount, period, start, now).Sub(claimed)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
