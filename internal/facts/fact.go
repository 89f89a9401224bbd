// Package facts implements the append-only fact log: an ordered, immutable
// record of every state change, replayable by external observers to
// reconstruct current state without querying the ledger.
package facts

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies the type of a fact.
type Kind uint8

const (
	KindAssetCreated Kind = iota + 1
	KindAssetTransferred
	KindSwapCreated
	KindSwapExecuted
	KindSwapCancelled
)

// String returns the fact kind name as it appears in API responses.
func (k Kind) String() string {
	switch k {
	case KindAssetCreated:
		return "AssetCreated"
	case KindAssetTransferred:
		return "AssetTransferred"
	case KindSwapCreated:
		return "SwapCreated"
	case KindSwapExecuted:
		return "SwapExecuted"
	case KindSwapCancelled:
		return "SwapCancelled"
	default:
		return "Unknown"
	}
}

// Fact is one immutable entry in the log. Only the fields relevant to the
// Kind are set; each fact carries enough to rebuild state without
// re-querying the ledger.
type Fact struct {
	Seq  uint64 // Seq is the position in the total order, assigned on append
	Kind Kind

	// Asset facts
	AssetID     uint64
	Holder      [32]byte // Holder is the initial holder (AssetCreated)
	From        [32]byte // From is the previous holder (AssetTransferred)
	To          [32]byte // To is the new holder (AssetTransferred)
	MetadataRef [32]byte // MetadataRef is the blake3 of the metadata payload

	// Swap facts
	SwapID            uint64
	Proposer          [32]byte
	ProposerAsset     uint64
	Counterparty      [32]byte
	CounterpartyAsset uint64
}

// Encode serializes a fact to its binary form. The sequence number is not
// part of the payload; it lives in the log key.
// Layout: kind u8, then kind-specific fields, integers little-endian.
func (f Fact) Encode() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(f.Kind))

	switch f.Kind {
	case KindAssetCreated:
		buf = appendU64(buf, f.AssetID)
		buf = append(buf, f.Holder[:]...)
		buf = append(buf, f.MetadataRef[:]...)
	case KindAssetTransferred:
		buf = appendU64(buf, f.AssetID)
		buf = append(buf, f.From[:]...)
		buf = append(buf, f.To[:]...)
	case KindSwapCreated:
		buf = appendU64(buf, f.SwapID)
		buf = append(buf, f.Proposer[:]...)
		buf = appendU64(buf, f.ProposerAsset)
		buf = append(buf, f.Counterparty[:]...)
		buf = appendU64(buf, f.CounterpartyAsset)
	case KindSwapExecuted, KindSwapCancelled:
		buf = appendU64(buf, f.SwapID)
	}

	return buf
}

// Decode parses a fact from its binary form.
func Decode(data []byte) (Fact, error) {
	if len(data) < 1 {
		return Fact{}, fmt.Errorf("empty fact data")
	}

	f := Fact{Kind: Kind(data[0])}
	body := data[1:]

	switch f.Kind {
	case KindAssetCreated:
		if len(body) != 8+32+32 {
			return Fact{}, fmt.Errorf("AssetCreated: bad length %d", len(body))
		}
		f.AssetID = binary.LittleEndian.Uint64(body[0:8])
		copy(f.Holder[:], body[8:40])
		copy(f.MetadataRef[:], body[40:72])

	case KindAssetTransferred:
		if len(body) != 8+32+32 {
			return Fact{}, fmt.Errorf("AssetTransferred: bad length %d", len(body))
		}
		f.AssetID = binary.LittleEndian.Uint64(body[0:8])
		copy(f.From[:], body[8:40])
		copy(f.To[:], body[40:72])

	case KindSwapCreated:
		if len(body) != 8+32+8+32+8 {
			return Fact{}, fmt.Errorf("SwapCreated: bad length %d", len(body))
		}
		f.SwapID = binary.LittleEndian.Uint64(body[0:8])
		copy(f.Proposer[:], body[8:40])
		f.ProposerAsset = binary.LittleEndian.Uint64(body[40:48])
		copy(f.Counterparty[:], body[48:80])
		f.CounterpartyAsset = binary.LittleEndian.Uint64(body[80:88])

	case KindSwapExecuted, KindSwapCancelled:
		if len(body) != 8 {
			return Fact{}, fmt.Errorf("%s: bad length %d", f.Kind, len(body))
		}
		f.SwapID = binary.LittleEndian.Uint64(body[0:8])

	default:
		return Fact{}, fmt.Errorf("unknown fact kind %d", data[0])
	}

	return f, nil
}

// appendU64 appends a little-endian uint64.
func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
