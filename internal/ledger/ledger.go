package ledger

import (
	"fmt"
	"sync"

	"CardSwap/internal/facts"
	"CardSwap/internal/logger"
	"CardSwap/internal/storage"
)

// Ledger owns the asset registry, the swap coordinator, and the fact log.
// It is the explicit context object for all operations: no package-level
// mutable state.
//
// All mutating calls serialize on mu and commit their whole write set as
// one storage batch together with the facts describing it.
type Ledger struct {
	mu     sync.Mutex
	db     *storage.Store
	assets *assetStore
	swaps  *swapStore
	log    *facts.Log
	admin  Account

	nextAsset uint64
	nextSwap  uint64
	paused    bool
}

// Open opens the ledger over the given store and fact log, recovering
// counters and the pause flag. The admin account is the only one allowed
// to pause and unpause.
func Open(db *storage.Store, log *facts.Log, admin Account) (*Ledger, error) {
	l := &Ledger{
		db:     db,
		assets: &assetStore{db: db},
		swaps:  &swapStore{db: db},
		log:    log,
		admin:  admin,
	}

	data, err := db.Get(nextAssetKey)
	if err != nil {
		return nil, fmt.Errorf("read asset counter:\n%w", err)
	}
	l.nextAsset = decodeU64(data, 1)

	data, err = db.Get(nextSwapKey)
	if err != nil {
		return nil, fmt.Errorf("read swap counter:\n%w", err)
	}
	l.nextSwap = decodeU64(data, 1)

	data, err = db.Get(pausedKey)
	if err != nil {
		return nil, fmt.Errorf("read pause flag:\n%w", err)
	}
	l.paused = len(data) == 1 && data[0] == 1

	logger.Info("ledger opened",
		"nextAsset", l.nextAsset,
		"nextSwap", l.nextSwap,
		"paused", l.paused)

	return l, nil
}

// commit stages the facts, appends their pairs to the write set, and
// commits everything as one batch. Called with mu held.
func (l *Ledger) commit(pairs []storage.KeyValue, fs []facts.Fact) error {
	pairs = append(pairs, l.log.Stage(fs)...)

	if err := l.db.SetBatch(pairs); err != nil {
		return fmt.Errorf("commit batch:\n%w", err)
	}

	l.log.Confirm(len(fs))

	return nil
}

// Pause halts asset creation and all swap lifecycle operations.
// Only the admin account may pause. Cancellation is deliberately blocked
// too: an emergency freeze pins escrowed assets until unpause.
func (l *Ledger) Pause(caller Account) error {
	return l.setPaused(caller, true)
}

// Unpause restores normal operation. Terminal swaps are unaffected.
func (l *Ledger) Unpause(caller Account) error {
	return l.setPaused(caller, false)
}

// setPaused flips and persists the pause flag.
func (l *Ledger) setPaused(caller Account, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAuthorized
	}

	value := []byte{0}
	if paused {
		value[0] = 1
	}

	if err := l.db.Set(pausedKey, value); err != nil {
		return fmt.Errorf("persist pause flag:\n%w", err)
	}

	l.paused = paused
	logger.Warn("pause flag changed", "paused", paused)

	return nil
}

// Paused reports whether the system is paused.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Asset returns the asset record for the given id.
func (l *Ledger) Asset(id uint64) (Asset, error) {
	a, ok, err := l.assets.get(id)
	if err != nil {
		return Asset{}, err
	}
	if !ok {
		return Asset{}, ErrUnknownAsset
	}
	return a, nil
}

// Swap returns the swap record for the given id.
func (l *Ledger) Swap(id uint64) (Swap, error) {
	s, ok, err := l.swaps.get(id)
	if err != nil {
		return Swap{}, err
	}
	if !ok {
		return Swap{}, ErrUnknownSwap
	}
	return s, nil
}

// Metadata returns the opaque metadata payload for a reference.
// Returns nil if the reference is unknown.
func (l *Ledger) Metadata(ref Hash) ([]byte, error) {
	return l.assets.payload(ref)
}

// Stats reports counters for the status endpoint.
func (l *Ledger) Stats() (nextAsset, nextSwap uint64, paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextAsset, l.nextSwap, l.paused
}
