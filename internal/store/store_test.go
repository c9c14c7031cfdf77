package store

import (
	"context"
	"errors"
	"testing"

	"record-vesting-go/internal/ledger"
)

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) ApplyCommit(ctx context.Context, commit *ledger.Commit) error {
	s.calls++
	return s.err
}

func testCommit() *ledger.Commit {
	return &ledger.Commit{Receipt: &ledger.Receipt{Id: "tx-1", Status: ledger.StatusConfirmed}}
}

func TestTeeSinkPrimaryFailureStopsMirrors(t *testing.T) {
	primary := &countingSink{err: errors.New("disk full")}
	mirror := &countingSink{}
	tee := NewTeeSink(primary, mirror)

	if err := tee.ApplyCommit(context.Background(), testCommit()); err == nil {
		t.Fatal("Expected primary error to propagate")
	}
	if mirror.calls != 0 {
		t.Errorf("Expected mirror not to be called, got %d calls", mirror.calls)
	}
}

func TestTeeSinkIgnoresMirrorFailure(t *testing.T) {
	primary := &countingSink{}
	failing := &countingSink{err: errors.New("mirror down")}
	healthy := &countingSink{}
	tee := NewTeeSink(primary, failing, healthy)

	if err := tee.ApplyCommit(context.Background(), testCommit()); err != nil {
		t.Fatalf("Expected mirror error to be swallowed, got %v", err)
	}
	if primary.calls != 1 || failing.calls != 1 || healthy.calls != 1 {
		t.Errorf("Expected every sink to be called once, got %d/%d/%d", primary.calls, failing.calls, healthy.calls)
	}
}

// Compile-time check that TeeSink satisfies the ledger sink contract.
var _ ledger.CommitSink = (*TeeSink)(nil)
