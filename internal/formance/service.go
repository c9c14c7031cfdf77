package formance

import (
	"context"
	"errors"
	"fmt"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

var _ ledger.CommitSink = (*Service)(nil)

const defaultLedgerName = "records"

// nativeAsset is the native currency in UMN notation, e.g. NATIVE/18.
var nativeAsset = fmt.Sprintf("NATIVE/%d", ledger.NativeDecimals)

// Service is a commit sink posting every native value transfer to a
// Formance ledger.
type Service struct {
	client *v3.Formance
	ledger string
}

func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("formance mirror needs FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET")
	}
	name := cfg.LedgerName
	if name == "" {
		name = defaultLedgerName
	}

	s := &Service{
		client: v3.New(
			v3.WithServerURL(cfg.StackURL),
			v3.WithSecurity(shared.Security{
				ClientID:     v3.Pointer(cfg.ClientID),
				ClientSecret: v3.Pointer(cfg.ClientSecret),
			}),
		),
		ledger: name,
	}
	if err := s.createLedger(ctx); err != nil {
		return nil, fmt.Errorf("formance ledger %s: %w", name, err)
	}
	return s, nil
}

// createLedger registers the mirror ledger; an existing one is reused.
func (s *Service) createLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"mirror_of": "record-vesting",
				"asset":     nativeAsset,
			},
		},
	})
	switch {
	case err == nil:
		zap.L().Info("Formance mirror ledger created", zap.String("ledger", s.ledger))
	case errorCode(err) == shared.V2ErrorsEnumLedgerAlreadyExists:
		zap.L().Info("Reusing Formance mirror ledger", zap.String("ledger", s.ledger))
	default:
		return err
	}
	return nil
}

// accountPath is the Formance account of addr. Mints come from the zero
// address, which is @world.
func accountPath(addr ledger.Address) string {
	if addr.IsZero() {
		return "world"
	}
	return "accounts:" + addr.String()
}

// errorCode extracts the Formance error code of err, or "" for other errors.
func errorCode(err error) shared.V2ErrorsEnum {
	var apiErr *sdkerrors.V2ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return ""
}
