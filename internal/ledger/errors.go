package ledger

import "errors"

// Precondition violations. All are caller-recoverable: a failed call changes
// no state and emits no facts.
var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrUnknownSwap  = errors.New("unknown swap")

	ErrNotHolder       = errors.New("caller is not the asset holder")
	ErrNotOwner        = errors.New("caller does not own the offered asset")
	ErrNotProposer     = errors.New("caller is not the swap proposer")
	ErrNotCounterparty = errors.New("caller is not the swap counterparty")
	ErrNotAuthorized   = errors.New("caller lacks transfer authorization")
	ErrNotApproved     = errors.New("escrow authorization missing")

	ErrIdenticalAssets      = errors.New("cannot swap an asset for itself")
	ErrCounterpartyMismatch = errors.New("counterparty does not hold the requested asset")
	ErrOwnershipChanged     = errors.New("asset changed hands since proposal")

	ErrSwapNotPending = errors.New("swap is not pending")
	ErrSystemPaused   = errors.New("system is paused")

	ErrZeroAccount = errors.New("zero account cannot hold assets")
)

// Kind returns the stable name of a ledger error for API responses, or ""
// for errors outside the taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAsset):
		return "UnknownAsset"
	case errors.Is(err, ErrUnknownSwap):
		return "UnknownSwap"
	case errors.Is(err, ErrNotHolder):
		return "NotHolder"
	case errors.Is(err, ErrNotOwner):
		return "NotOwner"
	case errors.Is(err, ErrNotProposer):
		return "NotProposer"
	case errors.Is(err, ErrNotCounterparty):
		return "NotCounterparty"
	case errors.Is(err, ErrNotAuthorized):
		return "NotAuthorized"
	case errors.Is(err, ErrNotApproved):
		return "NotApproved"
	case errors.Is(err, ErrIdenticalAssets):
		return "IdenticalAssets"
	case errors.Is(err, ErrCounterpartyMismatch):
		return "CounterpartyMismatch"
	case errors.Is(err, ErrOwnershipChanged):
		return "OwnershipChanged"
	case errors.Is(err, ErrSwapNotPending):
		return "SwapNotPending"
	case errors.Is(err, ErrSystemPaused):
		return "SystemPaused"
	case errors.Is(err, ErrZeroAccount):
		return "ZeroAccount"
	default:
		return ""
	}
}
