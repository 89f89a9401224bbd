// Package ops defines the signed operation envelope submitted to the HTTP
// API. The caller identity is the envelope's sender key: the ledger never
// trusts a self-declared account.
package ops

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// Op kinds.
const (
	OpCreateAsset byte = iota + 1
	OpSetOperator
	OpTransfer
	OpCreateSwap
	OpAcceptSwap
	OpCancelSwap
	OpPause
	OpUnpause
)

const (
	senderSize    = 32
	hashSize      = 32
	signatureSize = 64
	headerSize    = senderSize + hashSize + signatureSize

	// maxMetadataSize caps the metadata payload of OpCreateAsset.
	maxMetadataSize = 64 << 10 // 64 KB
)

// Envelope is a parsed, signature-verified operation.
// Exactly one argument group is meaningful per kind.
type Envelope struct {
	Kind   byte
	Sender [32]byte // Sender is the verified ed25519 public key
	Hash   [32]byte // Hash is blake3 of the unsigned bytes
	Nonce  uint64   // Nonce distinguishes otherwise identical submissions

	AssetID  uint64
	Target   [32]byte // Target is the operator (OpSetOperator) or recipient (OpTransfer)
	Metadata []byte   // Metadata is the payload for OpCreateAsset

	SwapID            uint64
	Counterparty      [32]byte
	CounterpartyAsset uint64
}

// Encode builds the raw envelope: sender, hash, signature, unsigned bytes.
// The hash is blake3 of the unsigned bytes and the signature is over the
// hash, matching Verify.
func (e *Envelope) Encode(priv ed25519.PrivateKey, nonce uint64) ([]byte, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || len(pub) != senderSize {
		return nil, fmt.Errorf("invalid private key")
	}

	e.Nonce = nonce
	copy(e.Sender[:], pub)

	unsigned := e.encodeUnsigned()
	e.Hash = blake3.Sum256(unsigned)
	sig := ed25519.Sign(priv, e.Hash[:])

	buf := make([]byte, 0, headerSize+len(unsigned))
	buf = append(buf, e.Sender[:]...)
	buf = append(buf, e.Hash[:]...)
	buf = append(buf, sig...)
	buf = append(buf, unsigned...)

	return buf, nil
}

// encodeUnsigned serializes the kind, nonce, and kind-specific arguments.
func (e *Envelope) encodeUnsigned() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, e.Kind)
	buf = appendU64(buf, e.Nonce)

	switch e.Kind {
	case OpCreateAsset:
		buf = appendU32(buf, uint32(len(e.Metadata)))
		buf = append(buf, e.Metadata...)
	case OpSetOperator, OpTransfer:
		buf = appendU64(buf, e.AssetID)
		buf = append(buf, e.Target[:]...)
	case OpCreateSwap:
		buf = appendU64(buf, e.AssetID)
		buf = append(buf, e.Counterparty[:]...)
		buf = appendU64(buf, e.CounterpartyAsset)
	case OpAcceptSwap, OpCancelSwap:
		buf = appendU64(buf, e.SwapID)
	case OpPause, OpUnpause:
		// no arguments
	}

	return buf
}

// Decode parses and verifies a raw envelope.
// Checks structural integrity, hash correctness, and the ed25519 signature.
func Decode(data []byte) (*Envelope, error) {
	if len(data) < headerSize+9 {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(data))
	}

	e := &Envelope{}
	copy(e.Sender[:], data[0:senderSize])
	copy(e.Hash[:], data[senderSize:senderSize+hashSize])
	sig := data[senderSize+hashSize : headerSize]
	unsigned := data[headerSize:]

	// Hash must match the unsigned bytes
	if blake3.Sum256(unsigned) != e.Hash {
		return nil, fmt.Errorf("hash mismatch")
	}

	// Signature over the hash
	if !ed25519.Verify(e.Sender[:], e.Hash[:], sig) {
		return nil, fmt.Errorf("invalid signature")
	}

	if err := e.decodeUnsigned(unsigned); err != nil {
		return nil, err
	}

	return e, nil
}

// decodeUnsigned parses the kind, nonce, and kind-specific arguments.
func (e *Envelope) decodeUnsigned(buf []byte) error {
	e.Kind = buf[0]
	e.Nonce = binary.LittleEndian.Uint64(buf[1:9])
	args := buf[9:]

	switch e.Kind {
	case OpCreateAsset:
		if len(args) < 4 {
			return fmt.Errorf("create asset: missing length")
		}
		size := binary.LittleEndian.Uint32(args[0:4])
		if size > maxMetadataSize {
			return fmt.Errorf("metadata too large: %d bytes", size)
		}
		if uint32(len(args)) != 4+size {
			return fmt.Errorf("create asset: bad args length %d", len(args))
		}
		e.Metadata = make([]byte, size)
		copy(e.Metadata, args[4:])

	case OpSetOperator, OpTransfer:
		if len(args) != 8+32 {
			return fmt.Errorf("op %d: bad args length %d", e.Kind, len(args))
		}
		e.AssetID = binary.LittleEndian.Uint64(args[0:8])
		copy(e.Target[:], args[8:40])

	case OpCreateSwap:
		if len(args) != 8+32+8 {
			return fmt.Errorf("create swap: bad args length %d", len(args))
		}
		e.AssetID = binary.LittleEndian.Uint64(args[0:8])
		copy(e.Counterparty[:], args[8:40])
		e.CounterpartyAsset = binary.LittleEndian.Uint64(args[40:48])

	case OpAcceptSwap, OpCancelSwap:
		if len(args) != 8 {
			return fmt.Errorf("op %d: bad args length %d", e.Kind, len(args))
		}
		e.SwapID = binary.LittleEndian.Uint64(args[0:8])

	case OpPause, OpUnpause:
		if len(args) != 0 {
			return fmt.Errorf("op %d: unexpected args", e.Kind)
		}

	default:
		return fmt.Errorf("unknown op kind %d", e.Kind)
	}

	return nil
}

// appendU64 appends a little-endian uint64.
func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// appendU32 appends a little-endian uint32.
func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
