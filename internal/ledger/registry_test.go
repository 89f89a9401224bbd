package ledger

import (
	"os"
	"testing"

	"github.com/zeebo/blake3"

	"CardSwap/internal/facts"
	"CardSwap/internal/storage"
)

// testAdmin is the administrator account used in tests.
var testAdmin = acct(0xAD)

// acct builds a test account from a single distinguishing byte.
func acct(b byte) Account {
	var a Account
	a[0] = b
	return a
}

// newTestLedger creates a ledger over temporary storage.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	dir, err := os.MkdirTemp("", "ledger_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.Open(dir + "/db")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	log, err := facts.Open(db)
	if err != nil {
		t.Fatalf("failed to open fact log: %v", err)
	}

	l, err := Open(db, log, testAdmin)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	return l
}

func TestCreateAssetSequentialIDs(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)

	id1, err := l.CreateAsset(alice, []byte("card one"))
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	id2, err := l.CreateAsset(alice, []byte("card two"))
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	if id1 != 1 || id2 != 2 {
		t.Errorf("expected ids 1, 2, got %d, %d", id1, id2)
	}

	holder, err := l.Holder(id1)
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder != alice {
		t.Error("creator is not the holder")
	}
}

func TestCreateAssetMetadata(t *testing.T) {
	l := newTestLedger(t)
	payload := []byte("rare holographic card")

	id, err := l.CreateAsset(acct(0x01), payload)
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	a, err := l.Asset(id)
	if err != nil {
		t.Fatalf("Asset failed: %v", err)
	}

	want := Hash(blake3.Sum256(payload))
	if a.MetadataRef != want {
		t.Error("metadata ref is not the blake3 of the payload")
	}

	got, err := l.Metadata(a.MetadataRef)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Metadata returned %q, want %q", got, payload)
	}
}

func TestHolderUnknownAsset(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.Holder(42); err != ErrUnknownAsset {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestSetOperator(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)

	id, err := l.CreateAsset(alice, []byte("card"))
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	// Only the holder may set an operator
	if err := l.SetOperator(id, bob, bob); err != ErrNotHolder {
		t.Errorf("expected ErrNotHolder, got %v", err)
	}

	if err := l.SetOperator(id, bob, alice); err != nil {
		t.Fatalf("SetOperator failed: %v", err)
	}

	op, err := l.Operator(id)
	if err != nil {
		t.Fatalf("Operator failed: %v", err)
	}
	if op != bob {
		t.Error("operator not recorded")
	}

	// Setting the zero account revokes
	if err := l.SetOperator(id, Account{}, alice); err != nil {
		t.Fatalf("SetOperator failed: %v", err)
	}

	op, _ = l.Operator(id)
	if !op.IsZero() {
		t.Error("operator not revoked")
	}
}

func TestSetOperatorUnknownAsset(t *testing.T) {
	l := newTestLedger(t)

	if err := l.SetOperator(9, acct(0x02), acct(0x01)); err != ErrUnknownAsset {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestTransferByHolder(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)

	id, _ := l.CreateAsset(alice, []byte("card"))

	if err := l.Transfer(id, alice, bob, alice); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	holder, _ := l.Holder(id)
	if holder != bob {
		t.Error("holder not updated")
	}
}

func TestTransferByOperator(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)
	carol := acct(0x03)

	id, _ := l.CreateAsset(alice, []byte("card"))

	if err := l.SetOperator(id, carol, alice); err != nil {
		t.Fatalf("SetOperator failed: %v", err)
	}

	if err := l.Transfer(id, alice, bob, carol); err != nil {
		t.Fatalf("Transfer by operator failed: %v", err)
	}

	holder, _ := l.Holder(id)
	if holder != bob {
		t.Error("holder not updated")
	}

	// Operator is cleared the instant the holder changes
	op, _ := l.Operator(id)
	if !op.IsZero() {
		t.Error("operator not cleared after transfer")
	}
}

func TestTransferNotHolder(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)

	id, _ := l.CreateAsset(alice, []byte("card"))

	// from does not match the current holder
	if err := l.Transfer(id, bob, alice, bob); err != ErrNotHolder {
		t.Errorf("expected ErrNotHolder, got %v", err)
	}
}

func TestTransferNotAuthorized(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)

	id, _ := l.CreateAsset(alice, []byte("card"))

	// caller is neither the holder nor an operator
	if err := l.Transfer(id, alice, bob, bob); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	holder, _ := l.Holder(id)
	if holder != alice {
		t.Error("failed transfer changed the holder")
	}
}

func TestTransferZeroCallerWithoutOperator(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)
	bob := acct(0x02)

	id, _ := l.CreateAsset(alice, []byte("card"))

	// No operator is set; the zero account must not match the unset
	// operator slot and move the asset
	if err := l.Transfer(id, alice, bob, Account{}); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	holder, _ := l.Holder(id)
	if holder != alice {
		t.Error("zero caller moved the asset")
	}
}

func TestCreateAssetZeroOwner(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.CreateAsset(Account{}, []byte("card")); err != ErrZeroAccount {
		t.Errorf("expected ErrZeroAccount, got %v", err)
	}
}

func TestTransferToZeroAccount(t *testing.T) {
	l := newTestLedger(t)
	alice := acct(0x01)

	id, _ := l.CreateAsset(alice, []byte("card"))

	if err := l.Transfer(id, alice, Account{}, alice); err != ErrZeroAccount {
		t.Errorf("expected ErrZeroAccount, got %v", err)
	}

	holder, _ := l.Holder(id)
	if holder != alice {
		t.Error("failed transfer changed the holder")
	}
}

func TestTransferUnknownAsset(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Transfer(7, acct(0x01), acct(0x02), acct(0x01)); err != ErrUnknownAsset {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestCreateAssetPaused(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Pause(testAdmin); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	if _, err := l.CreateAsset(acct(0x01), []byte("card")); err != ErrSystemPaused {
		t.Errorf("expected ErrSystemPaused, got %v", err)
	}

	if err := l.Unpause(testAdmin); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}

	if _, err := l.CreateAsset(acct(0x01), []byte("card")); err != nil {
		t.Errorf("CreateAsset after unpause failed: %v", err)
	}
}

func TestPauseNotAdmin(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Pause(acct(0x01)); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	if l.Paused() {
		t.Error("unauthorized pause took effect")
	}
}
