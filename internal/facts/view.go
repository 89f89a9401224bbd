package facts

import "fmt"

// SwapInfo is the view's record of a pending swap.
type SwapInfo struct {
	ID                uint64
	Proposer          [32]byte
	ProposerAsset     uint64
	Counterparty      [32]byte
	CounterpartyAsset uint64
}

// View is a derived read model rebuilt by folding facts in total order.
// Clients use it for "my assets" and "my open swaps" without querying the
// ledger. Application is idempotent: facts at already-applied sequence
// numbers are ignored, so duplicate or replayed delivery is harmless.
type View struct {
	next     uint64               // next is the next expected sequence number
	holders  map[uint64][32]byte  // holders maps asset id to current holder
	metadata map[uint64][32]byte  // metadata maps asset id to metadata ref
	open     map[uint64]SwapInfo  // open holds pending swaps by id
}

// NewView creates an empty view expecting sequence 1.
func NewView() *View {
	return &View{
		next:     1,
		holders:  make(map[uint64][32]byte),
		metadata: make(map[uint64][32]byte),
		open:     make(map[uint64]SwapInfo),
	}
}

// Apply folds one fact into the view.
// Facts below the expected sequence are duplicates and are ignored.
// A gap (fact above the expected sequence) is an error: the caller must
// fetch the missing range first.
func (v *View) Apply(f Fact) error {
	if f.Seq < v.next {
		return nil // already applied
	}
	if f.Seq > v.next {
		return fmt.Errorf("fact gap: have %d, got %d", v.next, f.Seq)
	}

	switch f.Kind {
	case KindAssetCreated:
		v.holders[f.AssetID] = f.Holder
		v.metadata[f.AssetID] = f.MetadataRef
	case KindAssetTransferred:
		v.holders[f.AssetID] = f.To
	case KindSwapCreated:
		v.open[f.SwapID] = SwapInfo{
			ID:                f.SwapID,
			Proposer:          f.Proposer,
			ProposerAsset:     f.ProposerAsset,
			Counterparty:      f.Counterparty,
			CounterpartyAsset: f.CounterpartyAsset,
		}
	case KindSwapExecuted, KindSwapCancelled:
		delete(v.open, f.SwapID)
	default:
		return fmt.Errorf("unknown fact kind %d", f.Kind)
	}

	v.next = f.Seq + 1

	return nil
}

// ApplyAll folds a batch of facts in order.
func (v *View) ApplyAll(fs []Fact) error {
	for _, f := range fs {
		if err := v.Apply(f); err != nil {
			return err
		}
	}
	return nil
}

// Next returns the next expected sequence number.
func (v *View) Next() uint64 {
	return v.next
}

// Holder returns the current holder of an asset and whether it is known.
func (v *View) Holder(assetID uint64) ([32]byte, bool) {
	h, ok := v.holders[assetID]
	return h, ok
}

// MetadataRef returns the metadata reference of an asset.
func (v *View) MetadataRef(assetID uint64) ([32]byte, bool) {
	m, ok := v.metadata[assetID]
	return m, ok
}

// AssetsOf returns the ids of all assets currently held by the account.
func (v *View) AssetsOf(account [32]byte) []uint64 {
	var ids []uint64
	for id, holder := range v.holders {
		if holder == account {
			ids = append(ids, id)
		}
	}
	return ids
}

// OpenSwaps returns all pending swaps.
func (v *View) OpenSwaps() []SwapInfo {
	swaps := make([]SwapInfo, 0, len(v.open))
	for _, s := range v.open {
		swaps = append(swaps, s)
	}
	return swaps
}

// OpenSwapsOf returns pending swaps where the account is proposer or
// counterparty.
func (v *View) OpenSwapsOf(account [32]byte) []SwapInfo {
	var swaps []SwapInfo
	for _, s := range v.open {
		if s.Proposer == account || s.Counterparty == account {
			swaps = append(swaps, s)
		}
	}
	return swaps
}
