package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CardSwap/internal/api"
	"CardSwap/internal/facts"
	"CardSwap/internal/feed"
	"CardSwap/internal/ledger"
	"CardSwap/internal/logger"
	"CardSwap/internal/storage"
)

// Node represents a running CardSwap node.
type Node struct {
	cfg     *Config
	storage *storage.Store
	log     *facts.Log
	ledger  *ledger.Ledger
	feed    *feed.Server
	api     *api.Server
}

// NewNode creates and initializes a new node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.initLedger(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.initFeed(); err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initStorage initializes the Pebble storage.
func (n *Node) initStorage() error {
	dbPath := n.cfg.DataPath + "/db"

	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	return nil
}

// initLedger opens the fact log and ledger over storage, recovering
// counters and pause state from the last committed batch.
func (n *Node) initLedger() error {
	log, err := facts.Open(n.storage)
	if err != nil {
		return fmt.Errorf("open fact log:\n%w", err)
	}

	l, err := ledger.Open(n.storage, log, n.cfg.Admin)
	if err != nil {
		return fmt.Errorf("open ledger:\n%w", err)
	}

	n.log = log
	n.ledger = l

	logger.Info("fact log recovered", "facts", log.Next()-1)

	return nil
}

// initFeed initializes the QUIC fact feed server.
func (n *Node) initFeed() error {
	if n.cfg.FeedAddress == "" {
		return nil
	}

	srv, err := feed.NewServer(n.cfg.FeedAddress, n.log, n.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("init feed:\n%w", err)
	}

	n.feed = srv

	return nil
}

// Run starts the node and blocks until shutdown signal.
func (n *Node) Run() error {
	if n.feed != nil {
		if err := n.feed.Start(); err != nil {
			return fmt.Errorf("start feed:\n%w", err)
		}
	}

	n.api = api.New(n.cfg.HTTPAddress, n.ledger, n.log)
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.feed != nil {
		n.feed.Stop()
	}

	if n.storage != nil {
		n.storage.Close()
	}

	return nil
}
