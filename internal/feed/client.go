package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"CardSwap/internal/facts"
)

// Client is an observer connection to a node's fact feed.
type Client struct {
	conn *quic.Conn
}

// Dial connects to a feed server. The server certificate is self-signed,
// so chain verification is skipped; the feed carries only public facts.
func Dial(ctx context.Context, addr string) (*Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}

	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "closed")
}

// request performs one request/response exchange on a fresh stream.
func (c *Client) request(ctx context.Context, data []byte) ([]byte, error) {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(streamTimeout)
	}
	stream.SetDeadline(deadline)

	if err := writeMessage(stream, data); err != nil {
		return nil, fmt.Errorf("write request:\n%w", err)
	}

	response, err := readMessage(stream)
	if err != nil {
		return nil, fmt.Errorf("read response:\n%w", err)
	}

	return response, nil
}

// Facts fetches up to limit facts starting at sequence from.
func (c *Client) Facts(ctx context.Context, from uint64, limit uint32) ([]facts.Fact, error) {
	response, err := c.request(ctx, encodeFactsRequest(from, limit))
	if err != nil {
		return nil, err
	}

	body, err := parseResponse(response, msgFactsResponse)
	if err != nil {
		return nil, err
	}

	return decodeFactsResponse(body)
}

// Snapshot downloads and parses a full snapshot of the fact log.
func (c *Client) Snapshot(ctx context.Context) ([]facts.Fact, error) {
	response, err := c.request(ctx, []byte{msgSnapshotRequest})
	if err != nil {
		return nil, err
	}

	body, err := parseResponse(response, msgSnapshotResponse)
	if err != nil {
		return nil, err
	}

	return facts.Import(body)
}

// Sync fetches facts in batches until the view is caught up with the
// server's log. Already-applied facts are skipped by the view's
// idempotent fold.
func (c *Client) Sync(ctx context.Context, view *facts.View) error {
	for {
		fs, err := c.Facts(ctx, view.Next(), 0)
		if err != nil {
			return err
		}

		if len(fs) == 0 {
			return nil // caught up
		}

		if err := view.ApplyAll(fs); err != nil {
			return err
		}
	}
}
