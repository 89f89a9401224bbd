// Package client connects to a CardSwap node: signed operation submission
// over HTTP and state reconstruction by replaying the fact feed.
package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"CardSwap/internal/facts"
	"CardSwap/internal/feed"
	"CardSwap/internal/ledger"
)

// Client connects to a CardSwap node.
type Client struct {
	nodeAddr string      // nodeAddr is the HTTP API address (e.g. "127.0.0.1:8080")
	feedAddr string      // feedAddr is the QUIC fact feed address; empty disables syncing
	view     *facts.View // view is the state rebuilt from replayed facts
}

// Wallet holds an ed25519 keypair and a submission nonce.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	pubKey  ed25519.PublicKey  // pubKey is the Ed25519 public key
	nonce   atomic.Uint64      // nonce distinguishes repeated submissions
}

// NewWallet generates a fresh keypair.
func NewWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	w := &Wallet{privKey: priv, pubKey: pub}
	w.seedNonce()
	return w, nil
}

// LoadWallet wraps an existing private key.
func LoadWallet(priv ed25519.PrivateKey) (*Wallet, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || len(pub) != 32 {
		return nil, fmt.Errorf("invalid private key")
	}

	w := &Wallet{privKey: priv, pubKey: pub}
	w.seedNonce()
	return w, nil
}

// seedNonce starts the nonce at the current time. Envelope hashes cover the
// nonce, so a reloaded wallet repeating an operation must not reuse nonces
// from a previous process or the node's replay window rejects it.
func (w *Wallet) seedNonce() {
	w.nonce.Store(uint64(time.Now().UnixNano()))
}

// Account returns the wallet's ledger account.
func (w *Wallet) Account() ledger.Account {
	var a ledger.Account
	copy(a[:], w.pubKey)
	return a
}

// nextNonce returns a nonce not used by this wallet before.
func (w *Wallet) nextNonce() uint64 {
	return w.nonce.Add(1)
}

// NewClient creates a client for a node. feedAddr may be empty when only
// the HTTP API is needed.
func NewClient(nodeAddr, feedAddr string) *Client {
	return &Client{
		nodeAddr: nodeAddr,
		feedAddr: feedAddr,
		view:     facts.NewView(),
	}
}

// Sync replays the node's fact feed into the local view, catching up to
// the node's current sequence.
func (c *Client) Sync(ctx context.Context) error {
	if c.feedAddr == "" {
		return fmt.Errorf("no feed address configured")
	}

	conn, err := feed.Dial(ctx, c.feedAddr)
	if err != nil {
		return fmt.Errorf("dial feed:\n%w", err)
	}
	defer conn.Close()

	return conn.Sync(ctx, c.view)
}

// View returns the locally rebuilt state.
func (c *Client) View() *facts.View {
	return c.view
}

// AssetsOf returns the asset ids an account holds, per the synced view.
func (c *Client) AssetsOf(account ledger.Account) []uint64 {
	return c.view.AssetsOf(account)
}

// OpenSwapsOf returns the pending swaps an account participates in, per
// the synced view.
func (c *Client) OpenSwapsOf(account ledger.Account) []facts.SwapInfo {
	return c.view.OpenSwapsOf(account)
}
