package store

import (
	"context"
	"errors"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"

	"go.uber.org/zap"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrDeploymentNotFound   = errors.New("deployment not found")
	ErrBalanceMismatch      = errors.New("balance does not match journal")
)

// LedgerStore defines the contract for the durable state backend. Commits
// arrive through ApplyCommit; LoadAccounts returns what a fresh ledger needs
// to resume.
type LedgerStore interface {
	ledger.CommitSink

	// --- State ---
	LoadAccounts(ctx context.Context) ([]ledger.AccountSnapshot, error)

	// --- History ---
	GetTransactionHistory(ctx context.Context, address string, limit, offset int) ([]models.Transaction, error)
	GetEvents(ctx context.Context, transactionId string) ([]models.Event, error)
	GetJournalEntries(ctx context.Context, transactionId string) ([]models.JournalEntry, error)
	ReconcileBalance(ctx context.Context, address string) error

	// --- Deployments ---
	SaveDeployment(ctx context.Context, name, address, program string) error
	GetDeployment(ctx context.Context, name string) (*models.Deployment, error)
	GetDeployments(ctx context.Context) ([]models.Deployment, error)

	// --- Lifecycle ---
	Close()
}

// TeeSink forwards commits to a primary sink and then to any number of
// mirrors. Only the primary can fail a commit; mirror errors are logged.
type TeeSink struct {
	primary ledger.CommitSink
	mirrors []ledger.CommitSink
}

func NewTeeSink(primary ledger.CommitSink, mirrors ...ledger.CommitSink) *TeeSink {
	return &TeeSink{primary: primary, mirrors: mirrors}
}

func (t *TeeSink) ApplyCommit(ctx context.Context, commit *ledger.Commit) error {
	if t.primary != nil {
		if err := t.primary.ApplyCommit(ctx, commit); err != nil {
			return err
		}
	}

	for _, mirror := range t.mirrors {
		if err := mirror.ApplyCommit(ctx, commit); err != nil {
			zap.L().Error("Mirror failed to apply commit",
				zap.String("tx_id", commit.Receipt.Id),
				zap.Error(err))
		}
	}
	return nil
}
