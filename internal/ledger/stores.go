package ledger

import (
	"encoding/binary"
	"fmt"

	"CardSwap/internal/storage"
)

// Storage key layout. The fact log owns "f:" and "m:nf".
var (
	assetKeyPrefix   = []byte("a:") // assetKeyPrefix + u64 BE id -> asset record
	swapKeyPrefix    = []byte("s:") // swapKeyPrefix + u64 BE id -> swap record
	payloadKeyPrefix = []byte("p:") // payloadKeyPrefix + ref[32] -> metadata payload
	nextAssetKey     = []byte("m:na")
	nextSwapKey      = []byte("m:ns")
	pausedKey        = []byte("m:pause")
)

// assetStore reads and stages asset records, read-through against Pebble.
type assetStore struct {
	db *storage.Store
}

// get retrieves an asset by id. Returns false if it was never created.
func (s *assetStore) get(id uint64) (Asset, bool, error) {
	data, err := s.db.Get(makeIDKey(assetKeyPrefix, id))
	if err != nil {
		return Asset{}, false, fmt.Errorf("read asset %d:\n%w", id, err)
	}
	if data == nil {
		return Asset{}, false, nil
	}

	a, err := decodeAsset(id, data)
	if err != nil {
		return Asset{}, false, err
	}

	return a, true, nil
}

// pair stages an asset record for a batch commit.
func (s *assetStore) pair(a Asset) storage.KeyValue {
	return storage.KeyValue{
		Key:   makeIDKey(assetKeyPrefix, a.ID),
		Value: encodeAsset(a),
	}
}

// payloadPair stages a metadata payload under its blake3 reference.
func (s *assetStore) payloadPair(ref Hash, payload []byte) storage.KeyValue {
	key := make([]byte, len(payloadKeyPrefix)+32)
	copy(key, payloadKeyPrefix)
	copy(key[len(payloadKeyPrefix):], ref[:])

	return storage.KeyValue{Key: key, Value: payload}
}

// payload retrieves a metadata payload by reference. Returns nil if unknown.
func (s *assetStore) payload(ref Hash) ([]byte, error) {
	key := make([]byte, len(payloadKeyPrefix)+32)
	copy(key, payloadKeyPrefix)
	copy(key[len(payloadKeyPrefix):], ref[:])

	return s.db.Get(key)
}

// swapStore reads and stages swap records, read-through against Pebble.
type swapStore struct {
	db *storage.Store
}

// get retrieves a swap by id. Returns false if it was never created.
func (s *swapStore) get(id uint64) (Swap, bool, error) {
	if id == 0 {
		return Swap{}, false, nil // 0 is reserved for "does not exist"
	}

	data, err := s.db.Get(makeIDKey(swapKeyPrefix, id))
	if err != nil {
		return Swap{}, false, fmt.Errorf("read swap %d:\n%w", id, err)
	}
	if data == nil {
		return Swap{}, false, nil
	}

	sw, err := decodeSwap(id, data)
	if err != nil {
		return Swap{}, false, err
	}

	return sw, true, nil
}

// pair stages a swap record for a batch commit.
func (s *swapStore) pair(sw Swap) storage.KeyValue {
	return storage.KeyValue{
		Key:   makeIDKey(swapKeyPrefix, sw.ID),
		Value: encodeSwap(sw),
	}
}

// makeIDKey builds a storage key from a prefix and a numeric id.
// Big-endian so lexicographic key order matches id order.
func makeIDKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}
