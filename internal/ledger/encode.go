package ledger

import (
	"encoding/binary"
	"fmt"
)

// Record encoding: fixed-layout little-endian binary. The record id lives
// in the storage key, not the value.

const (
	// assetRecordSize is holder[32] + operator[32] + metadataRef[32].
	assetRecordSize = 96

	// swapRecordSize is proposer[32] + proposerAsset u64 +
	// counterparty[32] + counterpartyAsset u64 + state u8.
	swapRecordSize = 81
)

// encodeAsset serializes an asset record.
func encodeAsset(a Asset) []byte {
	buf := make([]byte, assetRecordSize)
	copy(buf[0:32], a.Holder[:])
	copy(buf[32:64], a.Operator[:])
	copy(buf[64:96], a.MetadataRef[:])
	return buf
}

// decodeAsset parses an asset record. The id comes from the storage key.
func decodeAsset(id uint64, data []byte) (Asset, error) {
	if len(data) != assetRecordSize {
		return Asset{}, fmt.Errorf("asset %d: bad record length %d", id, len(data))
	}

	a := Asset{ID: id}
	copy(a.Holder[:], data[0:32])
	copy(a.Operator[:], data[32:64])
	copy(a.MetadataRef[:], data[64:96])

	return a, nil
}

// encodeSwap serializes a swap record.
func encodeSwap(s Swap) []byte {
	buf := make([]byte, swapRecordSize)
	copy(buf[0:32], s.Proposer[:])
	binary.LittleEndian.PutUint64(buf[32:40], s.ProposerAsset)
	copy(buf[40:72], s.Counterparty[:])
	binary.LittleEndian.PutUint64(buf[72:80], s.CounterpartyAsset)
	buf[80] = byte(s.State)
	return buf
}

// decodeSwap parses a swap record. The id comes from the storage key.
func decodeSwap(id uint64, data []byte) (Swap, error) {
	if len(data) != swapRecordSize {
		return Swap{}, fmt.Errorf("swap %d: bad record length %d", id, len(data))
	}

	s := Swap{ID: id}
	copy(s.Proposer[:], data[0:32])
	s.ProposerAsset = binary.LittleEndian.Uint64(data[32:40])
	copy(s.Counterparty[:], data[40:72])
	s.CounterpartyAsset = binary.LittleEndian.Uint64(data[72:80])
	s.State = SwapState(data[80])

	if s.State < SwapPending || s.State > SwapCancelled {
		return Swap{}, fmt.Errorf("swap %d: bad state %d", id, data[80])
	}

	return s, nil
}

// encodeU64 serializes a counter value.
func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// decodeU64 parses a counter value, returning fallback if absent.
func decodeU64(data []byte, fallback uint64) uint64 {
	if len(data) != 8 {
		return fallback
	}
	return binary.LittleEndian.Uint64(data)
}
