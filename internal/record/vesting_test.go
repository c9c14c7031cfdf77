package record

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestVested(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	one := decimal.RequireFromString("1000000000000000000")

	tests := []struct {
		name    string
		amount  decimal.Decimal
		period  uint64
		elapsed time.Duration
		want    string
	}{
		{"before start", one, 100, -time.Second, "0"},
		{"at start", one, 100, 0, "0"},
		{"one second", one, 3, time.Second, "333333333333333333"},
		{"two seconds rounds down", one, 3, 2 * time.Second, "666666666666666666"},
		{"half way", one, 2592000, 1296000 * time.Second, "500000000000000000"},
		{"full period", one, 2592000, 2592000 * time.Second, "1000000000000000000"},
		{"past period is capped", one, 2592000, 10 * 2592000 * time.Second, "1000000000000000000"},
		{"tiny amount", decimal.NewFromInt(7), 10, 9 * time.Second, "6"},
		{"zero amount", decimal.Zero, 10, 5 * time.Second, "0"},
		{"zero period", one, 0, 5 * time.Second, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Vested(tt.amount, tt.period, start, start.Add(tt.elapsed))
			if got.String() != tt.want {
				t.Errorf("Vested() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClaimable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		claimed int64
		elapsed time.Duration
		want    int64
	}{
		{"nothing claimed", 0, 50 * time.Second, 500},
		{"partly claimed", 200, 50 * time.Second, 300},
		{"fully caught up", 500, 50 * time.Second, 0},
		{"claimed beyond vested after terms shrink", 700, 50 * time.Second, 0},
		{"exhausted", 1000, 200 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Claimable(amount, decimal.NewFromInt(tt.claimed), 100, start, start.Add(tt.elapsed))
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("Claimable() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestVestedIsMonotonic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("123456789012345678901")
	const period = 97

	prev := decimal.Zero
	for s := int64(0); s <= period+5; s++ {
		v := Vested(amount, period, start, start.Add(time.Duration(s)*time.Second))
		if v.LessThan(prev) {
			t.Fatalf("vested decreased at %ds: %s < %s", s, v, prev)
		}
		if v.GreaterThan(amount) {
			t.Fatalf("vested exceeds amount at %ds: %s", s, v)
		}
		if !v.IsInteger() {
			t.Fatalf("vested is fractional at %ds: %s", s, v)
		}
		prev = v
	}
	if !prev.Equal(amount) {
		t.Errorf("vested after period = %s, want %s", prev, amount)
	}
}
