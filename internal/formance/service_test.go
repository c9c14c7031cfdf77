package formance

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"record-vesting-go/internal/ledger"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
)

func TestAccountPath(t *testing.T) {
	addr := ledger.AddressFromLabel("alice")
	if got := accountPath(addr); got != "accounts:"+addr.String() {
		t.Errorf("accountPath(alice) = %q", got)
	}
	if got := accountPath(ledger.ZeroAddress); got != "world" {
		t.Errorf("accountPath(zero) = %q, want world", got)
	}
}

func TestNativeAsset(t *testing.T) {
	if nativeAsset != "NATIVE/18" {
		t.Errorf("nativeAsset = %q, want NATIVE/18", nativeAsset)
	}
}

func TestPostTransaction_Transfer(t *testing.T) {
	alice := ledger.AddressFromLabel("alice")
	bob := ledger.AddressFromLabel("bob")
	r := &ledger.Receipt{
		Id:        "tx1",
		Call:      ledger.NewCall("withdraw(address,uint256)"),
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}

	postTx := postTransaction(r, 1, ledger.Transfer{From: alice, To: bob, Amount: ledger.MustParseNative("1.5")}, "recordctl")

	if postTx.Reference == nil || *postTx.Reference != "tx1-1" {
		t.Fatalf("unexpected reference %v", postTx.Reference)
	}
	if postTx.Script.Plain != numscriptTransfer {
		t.Error("expected transfer script")
	}
	vars := postTx.Script.Vars
	if vars["value"] != "NATIVE/18 1500000000000000000" {
		t.Errorf("value = %q", vars["value"])
	}
	if vars["source"] != "accounts:"+alice.String() || vars["destination"] != "accounts:"+bob.String() {
		t.Errorf("unexpected accounts %q -> %q", vars["source"], vars["destination"])
	}
	if vars["method"] != "withdraw" {
		t.Errorf("method = %q, want withdraw", vars["method"])
	}
	if vars["initiator"] != "recordctl" {
		t.Errorf("initiator = %q", vars["initiator"])
	}
	if !postTx.Timestamp.Equal(r.Timestamp) {
		t.Errorf("timestamp = %v, want %v", postTx.Timestamp, r.Timestamp)
	}
}

func TestPostTransaction_Mint(t *testing.T) {
	alice := ledger.AddressFromLabel("alice")
	r := &ledger.Receipt{Id: "mint1", Kind: ledger.KindMint}

	postTx := postTransaction(r, 0, ledger.Transfer{From: ledger.ZeroAddress, To: alice, Amount: ledger.Native(2)}, "deploy")

	if postTx.Script.Plain != numscriptMint {
		t.Error("expected mint script")
	}
	if _, ok := postTx.Script.Vars["source"]; ok {
		t.Error("mint script takes no source variable")
	}
	if postTx.Script.Vars["destination"] != "accounts:"+alice.String() {
		t.Errorf("destination = %q", postTx.Script.Vars["destination"])
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		nativeAsset: {Input: big.NewInt(10), Output: big.NewInt(4)},
		"OTHER/2":   {Input: big.NewInt(1), Output: big.NewInt(0), Balance: big.NewInt(1)},
	}

	if got := volumeBalance(vols, nativeAsset); got.Cmp(big.NewInt(6)) != 0 {
		t.Errorf("expected 6, got %s", got)
	}
	if got := volumeBalance(vols, "OTHER/2"); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("expected 1, got %s", got)
	}
	if got := volumeBalance(vols, "MISSING/0"); got != nil {
		t.Errorf("expected nil, got %s", got)
	}
}

func TestBigIntToDecimal(t *testing.T) {
	if got := bigIntToDecimal(big.NewInt(42)); got.String() != "42" {
		t.Errorf("expected 42, got %s", got)
	}
	// nil should return zero
	if got := bigIntToDecimal(nil); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestErrorCode(t *testing.T) {
	conflict := fmt.Errorf("post: %w", &sdkerrors.V2ErrorResponse{ErrorCode: shared.V2ErrorsEnumConflict})
	if got := errorCode(conflict); got != shared.V2ErrorsEnumConflict {
		t.Errorf("errorCode(conflict) = %q", got)
	}
	if got := errorCode(errors.New("dial tcp: refused")); got != "" {
		t.Errorf("errorCode(plain) = %q, want empty", got)
	}
	if got := errorCode(nil); got != "" {
		t.Errorf("errorCode(nil) = %q, want empty", got)
	}
}
