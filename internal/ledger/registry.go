package ledger

import (
	"github.com/zeebo/blake3"

	"CardSwap/internal/facts"
	"CardSwap/internal/logger"
	"CardSwap/internal/metrics"
	"CardSwap/internal/storage"
)

// Asset registry operations: the only code that mutates holder and
// operator relations.

// CreateAsset mints a new asset held by owner, with an immutable metadata
// payload. Returns the assigned id. Fails with ErrSystemPaused while the
// system is paused.
func (l *Ledger) CreateAsset(owner Account, metadata []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0, ErrSystemPaused
	}

	if owner.IsZero() {
		return 0, ErrZeroAccount
	}

	ref := Hash(blake3.Sum256(metadata))

	a := Asset{
		ID:          l.nextAsset,
		Holder:      owner,
		MetadataRef: ref,
	}

	pairs := []storage.KeyValue{
		l.assets.pair(a),
		l.assets.payloadPair(ref, metadata),
		{Key: nextAssetKey, Value: encodeU64(a.ID + 1)},
	}

	fs := []facts.Fact{{
		Kind:        facts.KindAssetCreated,
		AssetID:     a.ID,
		Holder:      owner,
		MetadataRef: ref,
	}}

	if err := l.commit(pairs, fs); err != nil {
		return 0, err
	}

	l.nextAsset++
	metrics.AssetsCreated.Inc()
	logger.Info("asset created", "id", a.ID)

	return a.ID, nil
}

// Holder returns the current holder of an asset.
func (l *Ledger) Holder(assetID uint64) (Account, error) {
	a, err := l.Asset(assetID)
	if err != nil {
		return Account{}, err
	}
	return a.Holder, nil
}

// Operator returns the authorized operator of an asset, or the zero
// account when none is set.
func (l *Ledger) Operator(assetID uint64) (Account, error) {
	a, err := l.Asset(assetID)
	if err != nil {
		return Account{}, err
	}
	return a.Operator, nil
}

// SetOperator authorizes operator to perform one future transfer of the
// asset on the holder's behalf. Only the current holder may set it.
// Setting the zero account revokes the authorization.
func (l *Ledger) SetOperator(assetID uint64, operator, caller Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok, err := l.assets.get(assetID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}

	if caller != a.Holder {
		return ErrNotHolder
	}

	a.Operator = operator

	if err := l.db.Set(l.assets.pair(a).Key, encodeAsset(a)); err != nil {
		return err
	}

	logger.Debug("operator set", "asset", assetID)

	return nil
}

// Transfer moves an asset from its holder to another account. The caller
// must be the holder or the authorized operator. This is the only mutator
// of holder; the operator is cleared on every holder change.
func (l *Ledger) Transfer(assetID uint64, from, to, caller Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok, err := l.assets.get(assetID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}

	if from != a.Holder {
		return ErrNotHolder
	}

	// An unset operator authorizes no one: the zero account must not match it.
	if caller != from && (a.Operator.IsZero() || caller != a.Operator) {
		return ErrNotAuthorized
	}

	if to.IsZero() {
		return ErrZeroAccount
	}

	pair, fact := applyTransfer(l.assets, &a, to)

	if err := l.commit([]storage.KeyValue{pair}, []facts.Fact{fact}); err != nil {
		return err
	}

	metrics.Transfers.Inc()
	logger.Debug("asset transferred", "id", assetID)

	return nil
}

// applyTransfer mutates the in-memory asset to its new holder, clears the
// operator, and returns the staged record pair and the transfer fact.
// Callers validate preconditions first and commit the pair themselves, so
// a multi-transfer operation lands in a single batch.
func applyTransfer(store *assetStore, a *Asset, to Account) (storage.KeyValue, facts.Fact) {
	fact := facts.Fact{
		Kind:    facts.KindAssetTransferred,
		AssetID: a.ID,
		From:    a.Holder,
		To:      to,
	}

	a.Holder = to
	a.Operator = Account{} // stale the instant the holder changes

	return store.pair(*a), fact
}
