package ledger

import "testing"

// swapFixture is the standard two-party setup: alice holds asset 1,
// bob holds asset 2.
type swapFixture struct {
	l      *Ledger
	alice  Account
	bob    Account
	asset1 uint64
	asset2 uint64
}

func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()

	f := &swapFixture{
		l:     newTestLedger(t),
		alice: acct(0x01),
		bob:   acct(0x02),
	}

	var err error
	f.asset1, err = f.l.CreateAsset(f.alice, []byte("alice's card"))
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	f.asset2, err = f.l.CreateAsset(f.bob, []byte("bob's card"))
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	return f
}

// approve sets Custody as the asset's operator on behalf of holder.
func (f *swapFixture) approve(t *testing.T, assetID uint64, holder Account) {
	t.Helper()

	if err := f.l.SetOperator(assetID, Custody, holder); err != nil {
		t.Fatalf("SetOperator failed: %v", err)
	}
}

// propose runs the standard proposal: alice offers asset1 for bob's asset2.
func (f *swapFixture) propose(t *testing.T) uint64 {
	t.Helper()

	f.approve(t, f.asset1, f.alice)

	id, err := f.l.CreateSwap(f.asset1, f.bob, f.asset2, f.alice)
	if err != nil {
		t.Fatalf("CreateSwap failed: %v", err)
	}

	return id
}

func TestCreateSwapEscrowsAsset(t *testing.T) {
	f := newSwapFixture(t)

	id := f.propose(t)
	if id != 1 {
		t.Errorf("expected swap id 1, got %d", id)
	}

	holder, _ := f.l.Holder(f.asset1)
	if holder != Custody {
		t.Error("offered asset not in custody")
	}

	// The counterparty asset is untouched until acceptance
	holder, _ = f.l.Holder(f.asset2)
	if holder != f.bob {
		t.Error("counterparty asset moved at proposal")
	}

	sw, err := f.l.Swap(id)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if sw.State != SwapPending {
		t.Errorf("expected Pending, got %v", sw.State)
	}
	if sw.Proposer != f.alice || sw.Counterparty != f.bob {
		t.Error("swap parties not recorded")
	}
}

func TestCreateSwapIdenticalAssets(t *testing.T) {
	f := newSwapFixture(t)
	f.approve(t, f.asset1, f.alice)

	_, err := f.l.CreateSwap(f.asset1, f.bob, f.asset1, f.alice)
	if err != ErrIdenticalAssets {
		t.Errorf("expected ErrIdenticalAssets, got %v", err)
	}

	// No state change
	holder, _ := f.l.Holder(f.asset1)
	if holder != f.alice {
		t.Error("failed proposal moved the asset")
	}
	if _, err := f.l.Swap(1); err != ErrUnknownSwap {
		t.Error("failed proposal allocated a swap id")
	}
}

func TestCreateSwapNotOwner(t *testing.T) {
	f := newSwapFixture(t)

	_, err := f.l.CreateSwap(f.asset1, f.bob, f.asset2, f.bob)
	if err != ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestCreateSwapCounterpartyMismatch(t *testing.T) {
	f := newSwapFixture(t)
	carol := acct(0x03)
	f.approve(t, f.asset1, f.alice)

	// carol does not hold asset2
	_, err := f.l.CreateSwap(f.asset1, carol, f.asset2, f.alice)
	if err != ErrCounterpartyMismatch {
		t.Errorf("expected ErrCounterpartyMismatch, got %v", err)
	}
}

func TestCreateSwapNotApproved(t *testing.T) {
	f := newSwapFixture(t)

	// alice never authorized escrow
	_, err := f.l.CreateSwap(f.asset1, f.bob, f.asset2, f.alice)
	if err != ErrNotApproved {
		t.Errorf("expected ErrNotApproved, got %v", err)
	}
}

func TestCreateSwapUnknownAsset(t *testing.T) {
	f := newSwapFixture(t)

	_, err := f.l.CreateSwap(99, f.bob, f.asset2, f.alice)
	if err != ErrUnknownAsset {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestAcceptSwapSettles(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)

	f.approve(t, f.asset2, f.bob)

	if err := f.l.AcceptSwap(id, f.bob); err != nil {
		t.Fatalf("AcceptSwap failed: %v", err)
	}

	holder, _ := f.l.Holder(f.asset1)
	if holder != f.bob {
		t.Error("offered asset did not reach the counterparty")
	}

	holder, _ = f.l.Holder(f.asset2)
	if holder != f.alice {
		t.Error("counterparty asset did not reach the proposer")
	}

	sw, _ := f.l.Swap(id)
	if sw.State != SwapExecuted {
		t.Errorf("expected Executed, got %v", sw.State)
	}
}

func TestAcceptSwapTwice(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)
	f.approve(t, f.asset2, f.bob)

	if err := f.l.AcceptSwap(id, f.bob); err != nil {
		t.Fatalf("AcceptSwap failed: %v", err)
	}

	holder1, _ := f.l.Holder(f.asset1)
	holder2, _ := f.l.Holder(f.asset2)

	// A second accept must observe the terminal state
	if err := f.l.AcceptSwap(id, f.bob); err != ErrSwapNotPending {
		t.Errorf("expected ErrSwapNotPending, got %v", err)
	}

	// And a cancel on an executed swap as well
	if err := f.l.CancelSwap(id, f.alice); err != ErrSwapNotPending {
		t.Errorf("expected ErrSwapNotPending, got %v", err)
	}

	// Neither changed anything
	h1, _ := f.l.Holder(f.asset1)
	h2, _ := f.l.Holder(f.asset2)
	if h1 != holder1 || h2 != holder2 {
		t.Error("terminal-state call moved assets")
	}
}

func TestAcceptSwapNotCounterparty(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)
	carol := acct(0x03)

	if err := f.l.AcceptSwap(id, carol); err != ErrNotCounterparty {
		t.Errorf("expected ErrNotCounterparty, got %v", err)
	}
}

func TestAcceptSwapOwnershipChanged(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)
	carol := acct(0x03)

	// bob disposes of asset2 between proposal and acceptance
	if err := f.l.Transfer(f.asset2, f.bob, carol, f.bob); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if err := f.l.AcceptSwap(id, f.bob); err != ErrOwnershipChanged {
		t.Errorf("expected ErrOwnershipChanged, got %v", err)
	}

	// Escrow untouched
	holder, _ := f.l.Holder(f.asset1)
	if holder != Custody {
		t.Error("failed accept moved the escrowed asset")
	}
}

func TestAcceptSwapNotApproved(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)

	// bob never authorized escrow on asset2
	if err := f.l.AcceptSwap(id, f.bob); err != ErrNotApproved {
		t.Errorf("expected ErrNotApproved, got %v", err)
	}
}

func TestAcceptUnknownSwap(t *testing.T) {
	f := newSwapFixture(t)

	if err := f.l.AcceptSwap(42, f.bob); err != ErrUnknownSwap {
		t.Errorf("expected ErrUnknownSwap, got %v", err)
	}

	if err := f.l.AcceptSwap(0, f.bob); err != ErrUnknownSwap {
		t.Errorf("expected ErrUnknownSwap for id 0, got %v", err)
	}
}

func TestCancelSwapReturnsEscrow(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)

	if err := f.l.CancelSwap(id, f.alice); err != nil {
		t.Fatalf("CancelSwap failed: %v", err)
	}

	holder, _ := f.l.Holder(f.asset1)
	if holder != f.alice {
		t.Error("escrowed asset not returned to the proposer")
	}

	sw, _ := f.l.Swap(id)
	if sw.State != SwapCancelled {
		t.Errorf("expected Cancelled, got %v", sw.State)
	}

	// A later accept must fail
	f.approve(t, f.asset2, f.bob)
	if err := f.l.AcceptSwap(id, f.bob); err != ErrSwapNotPending {
		t.Errorf("expected ErrSwapNotPending, got %v", err)
	}
}

func TestCancelSwapNotProposer(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)

	// The counterparty has no standing to cancel
	if err := f.l.CancelSwap(id, f.bob); err != ErrNotProposer {
		t.Errorf("expected ErrNotProposer, got %v", err)
	}
}

func TestPauseBlocksLifecycle(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)
	f.approve(t, f.asset2, f.bob)

	if err := f.l.Pause(testAdmin); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	if _, err := f.l.CreateSwap(f.asset2, f.alice, f.asset1, f.bob); err != ErrSystemPaused {
		t.Errorf("expected ErrSystemPaused on create, got %v", err)
	}
	if err := f.l.AcceptSwap(id, f.bob); err != ErrSystemPaused {
		t.Errorf("expected ErrSystemPaused on accept, got %v", err)
	}
	// Cancellation is blocked while paused too; escrow stays pinned
	if err := f.l.CancelSwap(id, f.alice); err != ErrSystemPaused {
		t.Errorf("expected ErrSystemPaused on cancel, got %v", err)
	}

	if err := f.l.Unpause(testAdmin); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}

	// Unpausing restores normal operation
	if err := f.l.AcceptSwap(id, f.bob); err != nil {
		t.Errorf("AcceptSwap after unpause failed: %v", err)
	}
}

func TestSequentialSwapIDs(t *testing.T) {
	f := newSwapFixture(t)

	id1 := f.propose(t)
	if err := f.l.CancelSwap(id1, f.alice); err != nil {
		t.Fatalf("CancelSwap failed: %v", err)
	}

	// Ids are never reused, even after cancellation
	id2 := f.propose(t)
	if id2 != id1+1 {
		t.Errorf("expected swap id %d, got %d", id1+1, id2)
	}
}

func TestFactTrail(t *testing.T) {
	f := newSwapFixture(t)
	id := f.propose(t)
	f.approve(t, f.asset2, f.bob)

	if err := f.l.AcceptSwap(id, f.bob); err != nil {
		t.Fatalf("AcceptSwap failed: %v", err)
	}

	fs, err := f.l.log.Read(1, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// Two creations, the escrow move + swap creation, then the three
	// settlement moves + execution.
	kinds := make([]string, len(fs))
	for i, fa := range fs {
		kinds[i] = fa.Kind.String()
	}

	want := []string{
		"AssetCreated", "AssetCreated",
		"AssetTransferred", "SwapCreated",
		"AssetTransferred", "AssetTransferred", "AssetTransferred",
		"SwapExecuted",
	}

	if len(kinds) != len(want) {
		t.Fatalf("expected %d facts, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("fact %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}

	// Facts carry contiguous sequence numbers
	for i, fa := range fs {
		if fa.Seq != uint64(i+1) {
			t.Errorf("fact %d has sequence %d", i, fa.Seq)
		}
	}
}

func TestFailedOperationEmitsNoFacts(t *testing.T) {
	f := newSwapFixture(t)

	before := f.l.log.Next()

	if _, err := f.l.CreateSwap(f.asset1, f.bob, f.asset2, f.alice); err != ErrNotApproved {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}

	if f.l.log.Next() != before {
		t.Error("failed operation appended facts")
	}
}
