package formance

import (
	"context"
	"fmt"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Numscript templates. All metadata is set inside the script via
// set_tx_meta() so the Formance transaction is fully self-describing.

const numscriptMint = `vars {
  monetary $value
  account $destination
  string $tx_id
  string $initiator
}

send $value (
  source = @world
  destination = $destination
)

set_tx_meta("event_type", "mint")
set_tx_meta("tx_id", $tx_id)
set_tx_meta("initiator", $initiator)
`

const numscriptTransfer = `vars {
  monetary $value
  account $source
  account $destination
  string $tx_id
  string $method
  string $initiator
}

send $value (
  source = $source
  destination = $destination
)

set_tx_meta("event_type", "transfer")
set_tx_meta("tx_id", $tx_id)
set_tx_meta("method", $method)
set_tx_meta("initiator", $initiator)
`

// ApplyCommit posts every value transfer of a confirmed receipt. Each
// transfer carries its own reference so replays are idempotent.
func (s *Service) ApplyCommit(ctx context.Context, commit *ledger.Commit) error {
	r := commit.Receipt
	if !r.Succeeded() {
		return nil
	}

	initiator := models.InitiatorTool(ctx)
	for i, transfer := range r.Transfers {
		postTx := postTransaction(r, i, transfer, initiator)
		_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
			Ledger:            s.ledger,
			V2PostTransaction: postTx,
		})
		if err != nil {
			if errorCode(err) == shared.V2ErrorsEnumConflict {
				continue // already mirrored
			}
			return fmt.Errorf("error mirroring transfer %d of %s: %w", i, r.Id, err)
		}

		zap.L().Debug("Transfer mirrored in Formance",
			zap.String("tx_id", r.Id),
			zap.String("from", transfer.From.String()),
			zap.String("to", transfer.To.String()),
			zap.String("amount", ledger.FormatNative(transfer.Amount)))
	}
	return nil
}

// postTransaction builds the Numscript posting for one transfer of r.
func postTransaction(r *ledger.Receipt, i int, transfer ledger.Transfer, initiator string) shared.V2PostTransaction {
	value := fmt.Sprintf("%s %s", nativeAsset, transfer.Amount.BigInt().String())
	ts := r.Timestamp

	if transfer.From.IsZero() {
		return shared.V2PostTransaction{
			Reference: v3.Pointer(fmt.Sprintf("%s-%d", r.Id, i)),
			Timestamp: &ts,
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptMint,
				Vars: map[string]string{
					"value":       value,
					"destination": accountPath(transfer.To),
					"tx_id":       r.Id,
					"initiator":   initiator,
				},
			},
		}
	}

	return shared.V2PostTransaction{
		Reference: v3.Pointer(fmt.Sprintf("%s-%d", r.Id, i)),
		Timestamp: &ts,
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptTransfer,
			Vars: map[string]string{
				"value":       value,
				"source":      accountPath(transfer.From),
				"destination": accountPath(transfer.To),
				"tx_id":       r.Id,
				"method":      r.Call.Method(),
				"initiator":   initiator,
			},
		},
	}
}
