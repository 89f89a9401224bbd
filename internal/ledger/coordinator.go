package ledger

import (
	"CardSwap/internal/facts"
	"CardSwap/internal/logger"
	"CardSwap/internal/metrics"
	"CardSwap/internal/storage"
)

// Swap coordinator operations. State machine per swap id:
//
//	none -> Pending -> {Executed, Cancelled}
//
// No transition leaves a terminal state and none skips Pending. The swap
// record flips state in the same batch as the custody moves, so a second
// accept or cancel on the same id observes the terminal state and fails
// with ErrSwapNotPending instead of double-spending the escrow.

// CreateSwap proposes exchanging proposerAsset (held by caller) for
// counterpartyAsset (held by counterparty). The caller must have set
// Custody as the asset's operator beforehand; the offered asset moves into
// escrow atomically with record creation. Returns the swap id.
//
// Preconditions are checked in order, first failure wins.
func (l *Ledger) CreateSwap(proposerAsset uint64, counterparty Account, counterpartyAsset uint64, caller Account) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0, ErrSystemPaused
	}

	if proposerAsset == counterpartyAsset {
		return 0, ErrIdenticalAssets
	}

	offered, ok, err := l.assets.get(proposerAsset)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownAsset
	}
	if caller != offered.Holder {
		return 0, ErrNotOwner
	}

	wanted, ok, err := l.assets.get(counterpartyAsset)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownAsset
	}
	if counterparty != wanted.Holder {
		return 0, ErrCounterpartyMismatch
	}

	if offered.Operator != Custody {
		return 0, ErrNotApproved
	}

	sw := Swap{
		ID:                l.nextSwap,
		Proposer:          caller,
		ProposerAsset:     proposerAsset,
		Counterparty:      counterparty,
		CounterpartyAsset: counterpartyAsset,
		State:             SwapPending,
	}

	// Escrow the offered asset; the counterparty asset is untouched until
	// acceptance.
	escrowPair, escrowFact := applyTransfer(l.assets, &offered, Custody)

	pairs := []storage.KeyValue{
		l.swaps.pair(sw),
		escrowPair,
		{Key: nextSwapKey, Value: encodeU64(sw.ID + 1)},
	}

	fs := []facts.Fact{
		escrowFact,
		{
			Kind:              facts.KindSwapCreated,
			SwapID:            sw.ID,
			Proposer:          sw.Proposer,
			ProposerAsset:     sw.ProposerAsset,
			Counterparty:      sw.Counterparty,
			CounterpartyAsset: sw.CounterpartyAsset,
		},
	}

	if err := l.commit(pairs, fs); err != nil {
		return 0, err
	}

	l.nextSwap++
	metrics.SwapsCreated.Inc()
	metrics.Transfers.Inc()
	logger.Info("swap created", "id", sw.ID,
		"offered", proposerAsset, "wanted", counterpartyAsset)

	return sw.ID, nil
}

// AcceptSwap settles a pending swap. Only the recorded counterparty may
// accept, and only while still holding the counterparty asset with Custody
// authorized on it.
//
// The settlement is a single indivisible unit: the counterparty asset is
// pulled into custody first, then the escrowed asset goes to the caller,
// then the counterparty asset goes to the proposer. The record flips to
// Executed in the same batch.
func (l *Ledger) AcceptSwap(swapID uint64, caller Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return ErrSystemPaused
	}

	sw, ok, err := l.swaps.get(swapID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownSwap
	}
	if sw.State != SwapPending {
		return ErrSwapNotPending
	}

	if caller != sw.Counterparty {
		return ErrNotCounterparty
	}

	wanted, ok, err := l.assets.get(sw.CounterpartyAsset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}
	if wanted.Holder != caller {
		// The counterparty disposed of the asset between proposal and
		// acceptance; stale data must not settle.
		return ErrOwnershipChanged
	}
	if wanted.Operator != Custody {
		return ErrNotApproved
	}

	offered, ok, err := l.assets.get(sw.ProposerAsset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}

	sw.State = SwapExecuted

	// Pull the counterparty asset into custody first: if that pull could
	// not happen, nothing would have moved at all.
	pullPair, pullFact := applyTransfer(l.assets, &wanted, Custody)
	outPair, outFact := applyTransfer(l.assets, &offered, caller)
	settlePair, settleFact := applyTransfer(l.assets, &wanted, sw.Proposer)

	// settlePair supersedes pullPair for the same key; both facts remain
	// so observers see the full custody trail.
	pairs := []storage.KeyValue{
		l.swaps.pair(sw),
		pullPair,
		outPair,
		settlePair,
	}

	fs := []facts.Fact{
		pullFact,
		outFact,
		settleFact,
		{Kind: facts.KindSwapExecuted, SwapID: sw.ID},
	}

	if err := l.commit(pairs, fs); err != nil {
		return err
	}

	metrics.SwapsExecuted.Inc()
	metrics.Transfers.Add(3)
	logger.Info("swap executed", "id", sw.ID)

	return nil
}

// CancelSwap withdraws a pending swap, returning the escrowed asset to the
// proposer. Only the proposer may cancel; the counterparty declines by not
// accepting. The record is kept, marked Cancelled, for the audit trail.
func (l *Ledger) CancelSwap(swapID uint64, caller Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return ErrSystemPaused
	}

	sw, ok, err := l.swaps.get(swapID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownSwap
	}
	if sw.State != SwapPending {
		return ErrSwapNotPending
	}

	if caller != sw.Proposer {
		return ErrNotProposer
	}

	offered, ok, err := l.assets.get(sw.ProposerAsset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}

	sw.State = SwapCancelled

	returnPair, returnFact := applyTransfer(l.assets, &offered, sw.Proposer)

	pairs := []storage.KeyValue{
		l.swaps.pair(sw),
		returnPair,
	}

	fs := []facts.Fact{
		returnFact,
		{Kind: facts.KindSwapCancelled, SwapID: sw.ID},
	}

	if err := l.commit(pairs, fs); err != nil {
		return err
	}

	metrics.SwapsCancelled.Inc()
	metrics.Transfers.Inc()
	logger.Info("swap cancelled", "id", sw.ID)

	return nil
}
