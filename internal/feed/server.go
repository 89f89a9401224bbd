package feed

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"CardSwap/internal/facts"
	"CardSwap/internal/logger"
)

const (
	// defaultBatchLimit caps a facts response when the request asks for
	// no limit.
	defaultBatchLimit = 1024

	// streamTimeout bounds a single request/response exchange.
	streamTimeout = 30 * time.Second
)

// Server streams the fact log to observers over QUIC.
type Server struct {
	addr       string
	log        *facts.Log
	tlsConfig  *tls.Config
	quicConfig *quic.Config

	listener *quic.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a feed server for the given fact log, using the node's
// ed25519 key for its TLS certificate.
func NewServer(addr string, log *facts.Log, privateKey ed25519.PrivateKey) (*Server, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	cert, err := generateCertificate(privateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:       addr,
		log:        log,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins listening and accepting observer connections.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.addr, s.tlsConfig, s.quicConfig)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info("fact feed started", "addr", s.addr)

	return nil
}

// Addr returns the actual listen address (useful with ":0" in tests).
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight streams.
func (s *Server) Stop() error {
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.wg.Wait()

	return err
}

// acceptLoop accepts incoming observer connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return // Listener closed
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn accepts request streams from one observer.
func (s *Server) handleConn(conn *quic.Conn) {
	defer s.wg.Done()

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			return // Connection closed
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleStream(stream)
		}()
	}
}

// handleStream serves one request/response exchange.
func (s *Server) handleStream(stream *quic.Stream) {
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(streamTimeout))

	request, err := readMessage(stream)
	if err != nil {
		return
	}

	response := s.dispatch(request)

	if err := writeMessage(stream, response); err != nil {
		logger.Debug("feed write failed", "error", err)
	}
}

// dispatch routes a request to its handler and builds the response.
func (s *Server) dispatch(request []byte) []byte {
	if len(request) < 1 {
		return encodeError("empty request")
	}

	switch request[0] {
	case msgFactsRequest:
		return s.handleFacts(request[1:])
	case msgSnapshotRequest:
		return s.handleSnapshot()
	default:
		return encodeError(fmt.Sprintf("unknown request kind %d", request[0]))
	}
}

// handleFacts serves a batch of facts from the requested offset.
func (s *Server) handleFacts(body []byte) []byte {
	from, limit, err := decodeFactsRequest(body)
	if err != nil {
		return encodeError(err.Error())
	}

	if limit == 0 || limit > defaultBatchLimit {
		limit = defaultBatchLimit
	}

	fs, err := s.log.Read(from, int(limit))
	if err != nil {
		logger.Error("feed read failed", "error", err)
		return encodeError("read failed")
	}

	return encodeFactsResponse(fs)
}

// handleSnapshot serves a compressed snapshot of the whole log.
func (s *Server) handleSnapshot() []byte {
	data, err := facts.Export(s.log)
	if err != nil {
		logger.Error("snapshot export failed", "error", err)
		return encodeError("snapshot failed")
	}

	out := make([]byte, 0, 1+len(data))
	out = append(out, msgSnapshotResponse)
	return append(out, data...)
}
