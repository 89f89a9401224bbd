// Package ledger implements the core of the swap protocol: the asset
// registry (who holds what, who may move it) and the swap coordinator
// (escrow-based exchange of two assets between two accounts).
//
// Execution is strictly serial: a single mutex admits one mutating call at
// a time, and each call commits its whole write set as one storage batch.
// Every precondition is checked before any write, so a failed call changes
// nothing and emits no facts.
package ledger

import "github.com/zeebo/blake3"

// Account identifies a participant: an opaque 32-byte identifier, in
// practice an ed25519 public key supplied by the calling environment.
type Account [32]byte

// IsZero reports whether the account is the zero value.
func (a Account) IsZero() bool {
	return a == Account{}
}

// Hash is a 32-byte blake3 digest.
type Hash [32]byte

// Custody is the escrow account holding assets between proposal and
// settlement. Derived from a domain tag, so no private key exists for it
// and escrowed assets can only move through coordinator code paths.
// Holders authorize escrow by setting Custody as their asset's operator.
var Custody = Account(blake3.Sum256([]byte("cardswap/escrow-custody/v1")))

// Asset is a uniquely identified, singly-held item tracked by the registry.
type Asset struct {
	ID          uint64  // ID is sequential from 1, never reused; 0 means "does not exist"
	Holder      Account // Holder is the account entitled to use/transfer the asset
	Operator    Account // Operator may perform one transfer on the holder's behalf; zero when unset
	MetadataRef Hash    // MetadataRef is the blake3 of the immutable metadata payload
}

// SwapState is the lifecycle state of a swap.
type SwapState uint8

const (
	SwapPending SwapState = iota + 1
	SwapExecuted
	SwapCancelled
)

// String returns the state name.
func (s SwapState) String() string {
	switch s {
	case SwapPending:
		return "Pending"
	case SwapExecuted:
		return "Executed"
	case SwapCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s SwapState) Terminal() bool {
	return s == SwapExecuted || s == SwapCancelled
}

// Swap records a proposed or settled exchange of two assets.
// The counterparty is recorded explicitly at creation, not re-derived, so a
// later holder change of the counterparty asset invalidates acceptance.
type Swap struct {
	ID                uint64  // ID is sequential from 1; 0 means "does not exist"
	Proposer          Account // Proposer created the swap and held ProposerAsset at creation
	ProposerAsset     uint64  // ProposerAsset is escrowed while the swap is pending
	Counterparty      Account // Counterparty must hold CounterpartyAsset to accept
	CounterpartyAsset uint64
	State             SwapState
}
