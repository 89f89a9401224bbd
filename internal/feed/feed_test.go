package feed

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"testing"
	"time"

	"CardSwap/internal/facts"
	"CardSwap/internal/storage"
)

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer

	payload := []byte("hello feed")
	if err := writeMessage(&buf, payload); err != nil {
		t.Fatalf("writeMessage failed: %v", err)
	}

	got, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("readMessage failed: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("readMessage returned %q, want %q", got, payload)
	}
}

func TestMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer

	if err := writeMessage(&buf, make([]byte, maxMessageSize+1)); err == nil {
		t.Error("expected error for oversized message")
	}
}

func TestFactsRequestRoundtrip(t *testing.T) {
	data := encodeFactsRequest(42, 100)

	if data[0] != msgFactsRequest {
		t.Fatalf("wrong tag %d", data[0])
	}

	from, limit, err := decodeFactsRequest(data[1:])
	if err != nil {
		t.Fatalf("decodeFactsRequest failed: %v", err)
	}

	if from != 42 || limit != 100 {
		t.Errorf("got from=%d limit=%d, want 42, 100", from, limit)
	}
}

func TestFactsResponseRoundtrip(t *testing.T) {
	fs := []facts.Fact{
		{Seq: 1, Kind: facts.KindAssetCreated, AssetID: 1},
		{Seq: 2, Kind: facts.KindSwapExecuted, SwapID: 7},
	}

	body, err := parseResponse(encodeFactsResponse(fs), msgFactsResponse)
	if err != nil {
		t.Fatalf("parseResponse failed: %v", err)
	}

	got, err := decodeFactsResponse(body)
	if err != nil {
		t.Fatalf("decodeFactsResponse failed: %v", err)
	}

	if len(got) != 2 || got[0] != fs[0] || got[1] != fs[1] {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestParseResponseError(t *testing.T) {
	if _, err := parseResponse(encodeError("boom"), msgFactsResponse); err == nil {
		t.Error("expected remote error to surface")
	}
}

// newTestFeed starts a server over a populated fact log.
func newTestFeed(t *testing.T, count int) *Server {
	t.Helper()

	dir, err := os.MkdirTemp("", "feed_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := storage.Open(dir + "/db")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log, err := facts.Open(db)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}

	fs := make([]facts.Fact, count)
	for i := range fs {
		fs[i] = facts.Fact{Kind: facts.KindAssetCreated, AssetID: uint64(i + 1)}
	}
	pairs := log.Stage(fs)
	if err := db.SetBatch(pairs); err != nil {
		t.Fatalf("SetBatch failed: %v", err)
	}
	log.Confirm(count)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	srv, err := NewServer("127.0.0.1:0", log, priv)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return srv
}

func TestFeedServesFacts(t *testing.T) {
	srv := newTestFeed(t, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Dial(ctx, srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	fs, err := c.Facts(ctx, 3, 0)
	if err != nil {
		t.Fatalf("Facts failed: %v", err)
	}

	if len(fs) != 3 || fs[0].Seq != 3 {
		t.Errorf("got %d facts starting at %d, want 3 from 3", len(fs), fs[0].Seq)
	}
}

func TestFeedSnapshot(t *testing.T) {
	srv := newTestFeed(t, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Dial(ctx, srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	fs, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(fs) != 4 {
		t.Errorf("snapshot has %d facts, want 4", len(fs))
	}
}

func TestFeedSync(t *testing.T) {
	srv := newTestFeed(t, 7)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Dial(ctx, srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	view := facts.NewView()
	if err := c.Sync(ctx, view); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if view.Next() != 8 {
		t.Errorf("view next is %d, want 8", view.Next())
	}
}
