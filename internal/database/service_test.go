package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/store"
	"record-vesting-go/internal/treasury"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

var (
	alice = ledger.AddressFromLabel("alice")
	bob   = ledger.AddressFromLabel("bob")
)

func setupTestService(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// each :memory: connection is its own database
	db.SetMaxOpenConns(1)

	service := newService(db)
	if err := service.init(); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func setupTestLedger(service *Service) *ledger.Ledger {
	return ledger.New(ledger.NewRegistry(treasury.New()), ledger.WithSink(service))
}

func testContext() context.Context {
	return models.WithInitiator(context.Background(), &models.Initiator{Tool: "test"})
}

func TestApplyCommit_TransferUpdatesAccountsAndJournal(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()
	l := setupTestLedger(service)

	if _, err := l.Mint(ctx, alice, ledger.Native(10)); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	r, err := l.Transact(ctx, ledger.Tx{From: alice, To: bob, Value: ledger.Native(3)})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	aliceBalance, err := service.GetBalance(ctx, alice.String())
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !aliceBalance.Equal(ledger.Native(7)) {
		t.Errorf("Expected alice balance %s, got %s", ledger.Native(7), aliceBalance)
	}

	bobBalance, err := service.GetBalance(ctx, bob.String())
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !bobBalance.Equal(ledger.Native(3)) {
		t.Errorf("Expected bob balance %s, got %s", ledger.Native(3), bobBalance)
	}

	entries, err := service.GetJournalEntries(ctx, r.Id)
	if err != nil {
		t.Fatalf("GetJournalEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 journal entries, got %d", len(entries))
	}
	for _, e := range entries {
		switch e.EntryType {
		case entryDebit:
			if e.Account != bob.String() {
				t.Errorf("Expected debit on bob, got %s", e.Account)
			}
		case entryCredit:
			if e.Account != alice.String() {
				t.Errorf("Expected credit on alice, got %s", e.Account)
			}
		}
		if !e.Amount.Equal(ledger.Native(3)) {
			t.Errorf("Expected journal amount %s, got %s", ledger.Native(3), e.Amount)
		}
	}

	for _, addr := range []ledger.Address{alice, bob} {
		if err := service.ReconcileBalance(ctx, addr.String()); err != nil {
			t.Errorf("ReconcileBalance(%s) failed: %v", addr.Short(), err)
		}
	}
}

func TestApplyCommit_DuplicateTransaction(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()

	commit := &ledger.Commit{Receipt: &ledger.Receipt{
		Id:     "tx1",
		Kind:   ledger.KindCall,
		From:   alice,
		To:     bob,
		Value:  decimal.Zero,
		Status: ledger.StatusConfirmed,
	}}

	if err := service.ApplyCommit(ctx, commit); err != nil {
		t.Fatalf("First commit failed: %v", err)
	}
	err := service.ApplyCommit(ctx, commit)
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestApplyCommit_RevertedTransactionIsAudited(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()
	l := setupTestLedger(service)

	_, err := l.Transact(ctx, ledger.Tx{From: bob, To: alice, Value: ledger.Native(1)})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	history, err := service.GetTransactionHistory(ctx, bob.String(), 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(history))
	}
	tx := history[0]
	if tx.Status != ledger.StatusReverted {
		t.Errorf("Expected status %s, got %s", ledger.StatusReverted, tx.Status)
	}
	if tx.Reason != "InsufficientBalance" {
		t.Errorf("Expected reason InsufficientBalance, got %q", tx.Reason)
	}
	if tx.Initiator != "test" {
		t.Errorf("Expected initiator test, got %q", tx.Initiator)
	}

	if _, err := service.GetBalance(ctx, bob.String()); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	accounts, err := service.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected no persisted accounts after a revert, got %d", len(accounts))
	}
}

func TestLoadAccounts_RestoresProgramState(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()
	l := setupTestLedger(service)

	if _, err := l.Mint(ctx, alice, ledger.Native(10)); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	r, err := l.Deploy(ctx, alice, treasury.ProgramName, decimal.Zero)
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	vault := r.Created
	if _, err := l.Transact(ctx, ledger.Tx{From: alice, To: vault, Data: ledger.NewCall(treasury.SigInitialize)}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := l.Transact(ctx, ledger.Tx{From: alice, To: vault, Value: ledger.Native(4)}); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	accounts, err := service.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts failed: %v", err)
	}

	restored := ledger.New(ledger.NewRegistry(treasury.New()))
	if err := restored.Restore(accounts); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if !restored.BalanceOf(vault).Equal(ledger.Native(4)) {
		t.Errorf("Expected vault balance %s, got %s", ledger.Native(4), restored.BalanceOf(vault))
	}
	if !restored.BalanceOf(alice).Equal(ledger.Native(6)) {
		t.Errorf("Expected alice balance %s, got %s", ledger.Native(6), restored.BalanceOf(alice))
	}
	ret, err := restored.View(ctx, bob, vault, ledger.NewCall(treasury.SigGetOwner))
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if ret[0] != alice {
		t.Errorf("Expected owner %s, got %v", alice, ret[0])
	}

	// the next deploy must not collide with the first
	r, err = restored.Deploy(ctx, alice, treasury.ProgramName, decimal.Zero)
	if err != nil {
		t.Fatalf("Deploy after restore failed: %v", err)
	}
	if r.Created == vault {
		t.Errorf("Restored nonce reused address %s", vault)
	}
}

func TestGetEvents_EmissionOrder(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()

	commit := &ledger.Commit{Receipt: &ledger.Receipt{
		Id:     "tx-events",
		Kind:   ledger.KindCall,
		From:   alice,
		To:     bob,
		Value:  decimal.Zero,
		Status: ledger.StatusConfirmed,
		Events: []ledger.Event{
			{Contract: bob, Name: "First", Data: ledger.Values{alice}},
			{Contract: bob, Name: "Second", Data: ledger.Values{decimal.NewFromInt(5)}},
		},
	}}
	if err := service.ApplyCommit(ctx, commit); err != nil {
		t.Fatalf("ApplyCommit failed: %v", err)
	}

	events, err := service.GetEvents(ctx, "tx-events")
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Name != "First" || events[1].Name != "Second" {
		t.Errorf("Expected First, Second; got %s, %s", events[0].Name, events[1].Name)
	}
	if events[0].Contract != bob.String() {
		t.Errorf("Expected contract %s, got %s", bob, events[0].Contract)
	}
}

func TestReconcileBalance_Mismatch(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()
	l := setupTestLedger(service)

	if _, err := l.Mint(ctx, alice, ledger.Native(2)); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := service.db.Exec("UPDATE accounts SET balance = '1' WHERE address = ?", alice.String()); err != nil {
		t.Fatalf("Failed to tamper balance: %v", err)
	}

	err := service.ReconcileBalance(ctx, alice.String())
	if !errors.Is(err, store.ErrBalanceMismatch) {
		t.Fatalf("Expected ErrBalanceMismatch, got %v", err)
	}
}

func TestTransactionHistory_Pagination(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := testContext()
	l := setupTestLedger(service)

	if _, err := l.Mint(ctx, alice, ledger.Native(10)); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := l.Transact(ctx, ledger.Tx{From: alice, To: bob, Value: ledger.Native(1)}); err != nil {
			t.Fatalf("Transfer %d failed: %v", i, err)
		}
	}

	page, err := service.GetTransactionHistory(ctx, alice.String(), 3, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(page) != 3 {
		t.Errorf("Expected 3 transactions, got %d", len(page))
	}

	rest, err := service.GetTransactionHistory(ctx, alice.String(), 3, 3)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	// four transfers plus the mint
	if len(rest) != 2 {
		t.Errorf("Expected 2 transactions on the second page, got %d", len(rest))
	}
}

func TestDeployments(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if err := service.SaveDeployment(ctx, "treasury", alice.String(), "proxy"); err != nil {
		t.Fatalf("SaveDeployment failed: %v", err)
	}
	if err := service.SaveDeployment(ctx, "treasury", bob.String(), "proxy"); err != nil {
		t.Fatalf("SaveDeployment overwrite failed: %v", err)
	}
	if err := service.SaveDeployment(ctx, "factory", alice.String(), "proxy"); err != nil {
		t.Fatalf("SaveDeployment failed: %v", err)
	}

	d, err := service.GetDeployment(ctx, "treasury")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if d.Address != bob.String() {
		t.Errorf("Expected overwritten address %s, got %s", bob, d.Address)
	}

	_, err = service.GetDeployment(ctx, "missing")
	if !errors.Is(err, store.ErrDeploymentNotFound) {
		t.Errorf("Expected ErrDeploymentNotFound, got %v", err)
	}

	all, err := service.GetDeployments(ctx)
	if err != nil {
		t.Fatalf("GetDeployments failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "factory" {
		t.Errorf("Expected [factory treasury], got %+v", all)
	}
}
