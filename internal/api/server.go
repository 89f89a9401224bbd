// Package api exposes the ledger over HTTP: signed operation submission,
// state queries, the fact log, and Prometheus metrics.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CardSwap/internal/facts"
	"CardSwap/internal/ledger"
	"CardSwap/internal/logger"
	"CardSwap/internal/metrics"
	"CardSwap/internal/ops"
)

const (
	// maxOpSize is the maximum operation envelope size in bytes.
	maxOpSize = 1 << 20 // 1 MB

	// maxFactBatch caps the number of facts returned per request.
	maxFactBatch = 1000

	// defaultFactBatch is the fact count when the limit parameter is absent.
	defaultFactBatch = 100
)

// errUnknownOp marks an envelope kind with no ledger operation.
var errUnknownOp = errors.New("unknown operation kind")

// Executor applies verified operations and serves state queries.
type Executor interface {
	CreateAsset(owner ledger.Account, metadata []byte) (uint64, error)
	SetOperator(assetID uint64, operator, caller ledger.Account) error
	Transfer(assetID uint64, from, to, caller ledger.Account) error
	CreateSwap(proposerAsset uint64, counterparty ledger.Account, counterpartyAsset uint64, caller ledger.Account) (uint64, error)
	AcceptSwap(swapID uint64, caller ledger.Account) error
	CancelSwap(swapID uint64, caller ledger.Account) error
	Pause(caller ledger.Account) error
	Unpause(caller ledger.Account) error

	Asset(id uint64) (ledger.Asset, error)
	Swap(id uint64) (ledger.Swap, error)
	Metadata(ref ledger.Hash) ([]byte, error)
	Stats() (nextAsset, nextSwap uint64, paused bool)
}

// FactReader serves the committed fact stream.
type FactReader interface {
	Read(from uint64, limit int) ([]facts.Fact, error)
	Next() uint64
}

// Server is the HTTP API server.
type Server struct {
	addr     string       // addr is the HTTP listen address
	executor Executor     // executor applies operations to the ledger
	log      FactReader   // log serves the fact stream
	dedup    *Dedup       // dedup rejects replayed envelopes
	server   *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, executor Executor, log FactReader) *Server {
	return &Server{
		addr:     addr,
		executor: executor,
		log:      log,
		dedup:    NewDedup(),
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ops", s.handleSubmitOp)
	mux.HandleFunc("GET /assets/{id}", s.handleGetAsset)
	mux.HandleFunc("GET /assets/{id}/metadata", s.handleGetMetadata)
	mux.HandleFunc("GET /swaps/{id}", s.handleGetSwap)
	mux.HandleFunc("GET /facts", s.handleGetFacts)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.dedup.Close()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleSubmitOp handles POST /ops requests. The body is a raw signed
// envelope; the sender key inside it is the caller identity for every
// dispatched operation.
func (s *Server) handleSubmitOp(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxOpSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty operation")
		return
	}

	env, err := ops.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operation: "+err.Error())
		return
	}

	if s.dedup.Seen(env.Hash) {
		writeError(w, http.StatusConflict, "DuplicateOperation")
		return
	}

	id, err := s.dispatch(env)
	if err != nil {
		if errors.Is(err, errUnknownOp) {
			writeError(w, http.StatusBadRequest, "unknown operation")
			return
		}
		writeLedgerError(w, err)
		return
	}

	// Recorded only on success: a failed precondition stays retryable and
	// surfaces its real error kind on resubmission.
	s.dedup.Record(env.Hash)

	logger.Debug("op applied", "kind", env.Kind, "hash", hex.EncodeToString(env.Hash[:8]))

	resp := map[string]any{"hash": hex.EncodeToString(env.Hash[:])}
	if id != 0 {
		resp["id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

// dispatch applies a verified envelope to the ledger. The returned id is
// the created asset or swap id, or 0 for operations that create nothing.
func (s *Server) dispatch(env *ops.Envelope) (uint64, error) {
	sender := ledger.Account(env.Sender)

	switch env.Kind {
	case ops.OpCreateAsset:
		return s.executor.CreateAsset(sender, env.Metadata)
	case ops.OpSetOperator:
		return 0, s.executor.SetOperator(env.AssetID, ledger.Account(env.Target), sender)
	case ops.OpTransfer:
		return 0, s.executor.Transfer(env.AssetID, sender, ledger.Account(env.Target), sender)
	case ops.OpCreateSwap:
		return s.executor.CreateSwap(env.AssetID, ledger.Account(env.Counterparty), env.CounterpartyAsset, sender)
	case ops.OpAcceptSwap:
		return 0, s.executor.AcceptSwap(env.SwapID, sender)
	case ops.OpCancelSwap:
		return 0, s.executor.CancelSwap(env.SwapID, sender)
	case ops.OpPause:
		return 0, s.executor.Pause(sender)
	case ops.OpUnpause:
		return 0, s.executor.Unpause(sender)
	default:
		return 0, errUnknownOp
	}
}

// handleGetAsset handles GET /assets/{id} requests.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := s.executor.Asset(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renderAsset(asset))
}

// handleGetMetadata handles GET /assets/{id}/metadata requests. Returns the
// raw metadata payload, not JSON.
func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := s.executor.Asset(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	payload, err := s.executor.Metadata(asset.MetadataRef)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// handleGetSwap handles GET /swaps/{id} requests.
func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sw, err := s.executor.Swap(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renderSwap(sw))
}

// handleGetFacts handles GET /facts?from=&limit= requests.
func (s *Server) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		from = parsed
	}

	limit := defaultFactBatch
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = min(parsed, maxFactBatch)
	}

	fs, err := s.log.Read(from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read facts")
		return
	}

	rendered := make([]map[string]any, len(fs))
	for i, f := range fs {
		rendered[i] = renderFact(f)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"facts": rendered,
		"next":  s.log.Next(),
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	nextAsset, nextSwap, paused := s.executor.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"assets": nextAsset - 1,
		"swaps":  nextSwap - 1,
		"facts":  s.log.Next() - 1,
		"paused": paused,
	})
}

// parseID extracts the {id} path value. Writes a 400 response and returns
// false when the value is not a positive integer.
func parseID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// renderAsset converts an asset to its JSON form.
func renderAsset(a ledger.Asset) map[string]any {
	m := map[string]any{
		"id":          a.ID,
		"holder":      hex.EncodeToString(a.Holder[:]),
		"metadataRef": hex.EncodeToString(a.MetadataRef[:]),
	}
	if !a.Operator.IsZero() {
		m["operator"] = hex.EncodeToString(a.Operator[:])
	}
	return m
}

// renderSwap converts a swap to its JSON form.
func renderSwap(sw ledger.Swap) map[string]any {
	return map[string]any{
		"id":                sw.ID,
		"proposer":          hex.EncodeToString(sw.Proposer[:]),
		"proposerAsset":     sw.ProposerAsset,
		"counterparty":      hex.EncodeToString(sw.Counterparty[:]),
		"counterpartyAsset": sw.CounterpartyAsset,
		"state":             sw.State.String(),
	}
}

// renderFact converts a fact to its JSON form, keeping only the fields
// relevant to its kind.
func renderFact(f facts.Fact) map[string]any {
	m := map[string]any{
		"seq":  f.Seq,
		"kind": f.Kind.String(),
	}

	switch f.Kind {
	case facts.KindAssetCreated:
		m["asset"] = f.AssetID
		m["holder"] = hex.EncodeToString(f.Holder[:])
		m["metadataRef"] = hex.EncodeToString(f.MetadataRef[:])
	case facts.KindAssetTransferred:
		m["asset"] = f.AssetID
		m["from"] = hex.EncodeToString(f.From[:])
		m["to"] = hex.EncodeToString(f.To[:])
	case facts.KindSwapCreated:
		m["swap"] = f.SwapID
		m["proposer"] = hex.EncodeToString(f.Proposer[:])
		m["proposerAsset"] = f.ProposerAsset
		m["counterparty"] = hex.EncodeToString(f.Counterparty[:])
		m["counterpartyAsset"] = f.CounterpartyAsset
	case facts.KindSwapExecuted, facts.KindSwapCancelled:
		m["swap"] = f.SwapID
	}

	return m
}

// writeLedgerError maps a ledger error to an HTTP status and writes the
// stable kind name as the error body.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := ledger.Kind(err)

	var status int
	switch kind {
	case "UnknownAsset", "UnknownSwap":
		status = http.StatusNotFound
	case "NotHolder", "NotOwner", "NotProposer", "NotCounterparty", "NotAuthorized", "NotApproved":
		status = http.StatusForbidden
	case "IdenticalAssets", "CounterpartyMismatch", "OwnershipChanged", "SwapNotPending":
		status = http.StatusConflict
	case "ZeroAccount":
		status = http.StatusBadRequest
	case "SystemPaused":
		status = http.StatusServiceUnavailable
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeError(w, status, kind)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
