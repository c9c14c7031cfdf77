package formance

import (
	"context"
	"fmt"
	"math/big"

	"record-vesting-go/internal/ledger"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceOf returns the mirrored native balance of addr in smallest units.
// An account Formance has never seen has a zero balance.
func (s *Service) BalanceOf(ctx context.Context, addr ledger.Address) (decimal.Decimal, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: accountPath(addr),
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if errorCode(err) == shared.V2ErrorsEnumNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get account volumes: %w", err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, nativeAsset)
	zap.L().Debug("Mirrored balance", zap.String("address", addr.String()), zap.Stringer("balance", bal))
	return bigIntToDecimal(bal), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a smallest-unit *big.Int to a decimal.
func bigIntToDecimal(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0)
}
