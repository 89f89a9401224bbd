package client

import (
	"fmt"

	"CardSwap/internal/ledger"
	"CardSwap/internal/ops"
)

// AssetInfo holds parsed asset data from the API.
type AssetInfo struct {
	ID          uint64 `json:"id"`
	Holder      string `json:"holder"`
	Operator    string `json:"operator"`
	MetadataRef string `json:"metadataRef"`
}

// SwapDetail holds parsed swap data from the API.
type SwapDetail struct {
	ID                uint64 `json:"id"`
	Proposer          string `json:"proposer"`
	ProposerAsset     uint64 `json:"proposerAsset"`
	Counterparty      string `json:"counterparty"`
	CounterpartyAsset uint64 `json:"counterpartyAsset"`
	State             string `json:"state"`
}

// NodeStatus holds the node's /status response.
type NodeStatus struct {
	Assets uint64 `json:"assets"`
	Swaps  uint64 `json:"swaps"`
	Facts  uint64 `json:"facts"`
	Paused bool   `json:"paused"`
}

// send signs an envelope with the wallet key and submits it.
func (c *Client) send(w *Wallet, env *ops.Envelope) (opResult, error) {
	raw, err := env.Encode(w.privKey, w.nextNonce())
	if err != nil {
		return opResult{}, fmt.Errorf("encode op:\n%w", err)
	}

	return submitOp(c.nodeAddr, raw)
}

// CreateAsset registers a new asset held by the wallet and returns its id.
func (c *Client) CreateAsset(w *Wallet, metadata []byte) (uint64, error) {
	result, err := c.send(w, &ops.Envelope{Kind: ops.OpCreateAsset, Metadata: metadata})
	if err != nil {
		return 0, err
	}
	return result.ID, nil
}

// SetOperator grants an account one-shot transfer rights over an asset the
// wallet holds. A zero operator revokes.
func (c *Client) SetOperator(w *Wallet, assetID uint64, operator ledger.Account) error {
	env := &ops.Envelope{Kind: ops.OpSetOperator, AssetID: assetID}
	env.Target = operator
	_, err := c.send(w, env)
	return err
}

// ApproveCustody authorizes the custody account over an asset, the
// prerequisite for offering it in a swap or accepting one that wants it.
func (c *Client) ApproveCustody(w *Wallet, assetID uint64) error {
	return c.SetOperator(w, assetID, ledger.Custody)
}

// Transfer moves an asset the wallet holds to another account.
func (c *Client) Transfer(w *Wallet, assetID uint64, to ledger.Account) error {
	env := &ops.Envelope{Kind: ops.OpTransfer, AssetID: assetID}
	env.Target = to
	_, err := c.send(w, env)
	return err
}

// ProposeSwap offers one of the wallet's assets for a counterparty's asset
// and returns the swap id. The offered asset moves to custody immediately.
func (c *Client) ProposeSwap(w *Wallet, offeredAsset uint64, counterparty ledger.Account, wantedAsset uint64) (uint64, error) {
	env := &ops.Envelope{
		Kind:              ops.OpCreateSwap,
		AssetID:           offeredAsset,
		Counterparty:      counterparty,
		CounterpartyAsset: wantedAsset,
	}

	result, err := c.send(w, env)
	if err != nil {
		return 0, err
	}
	return result.ID, nil
}

// AcceptSwap settles a pending swap addressed to the wallet.
func (c *Client) AcceptSwap(w *Wallet, swapID uint64) error {
	_, err := c.send(w, &ops.Envelope{Kind: ops.OpAcceptSwap, SwapID: swapID})
	return err
}

// CancelSwap withdraws a pending swap the wallet proposed and reclaims the
// escrowed asset.
func (c *Client) CancelSwap(w *Wallet, swapID uint64) error {
	_, err := c.send(w, &ops.Envelope{Kind: ops.OpCancelSwap, SwapID: swapID})
	return err
}

// Pause freezes all mutating operations. Admin only.
func (c *Client) Pause(w *Wallet) error {
	_, err := c.send(w, &ops.Envelope{Kind: ops.OpPause})
	return err
}

// Unpause lifts the freeze. Admin only.
func (c *Client) Unpause(w *Wallet) error {
	_, err := c.send(w, &ops.Envelope{Kind: ops.OpUnpause})
	return err
}

// Asset fetches an asset record by id.
func (c *Client) Asset(id uint64) (AssetInfo, error) {
	var info AssetInfo
	err := httpGet(fmt.Sprintf("http://%s/assets/%d", c.nodeAddr, id), &info)
	return info, err
}

// Swap fetches a swap record by id.
func (c *Client) Swap(id uint64) (SwapDetail, error) {
	var detail SwapDetail
	err := httpGet(fmt.Sprintf("http://%s/swaps/%d", c.nodeAddr, id), &detail)
	return detail, err
}

// Status fetches the node's counters and pause state.
func (c *Client) Status() (NodeStatus, error) {
	var status NodeStatus
	err := httpGet("http://"+c.nodeAddr+"/status", &status)
	return status, err
}
