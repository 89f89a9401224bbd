package facts

import (
	"encoding/binary"
	"fmt"
	"sync"

	"CardSwap/internal/metrics"
	"CardSwap/internal/storage"
)

// Storage key layout.
var (
	factKeyPrefix = []byte("f:") // factKeyPrefix + u64 BE sequence -> fact bytes
	nextSeqKey    = []byte("m:nf")
)

// Log is the persistent append-only fact log, totally ordered by sequence
// number starting at 1. Entries are immutable once written.
//
// The log does not commit its own writes: the ledger stages fact pairs into
// the same batch as the state records they describe, then confirms the
// append after the batch commits. A fact is therefore never observable
// without its state change, and vice versa.
type Log struct {
	db   *storage.Store
	mu   sync.Mutex
	next uint64 // next is the sequence number of the next fact
}

// Open opens the fact log, recovering the next sequence number.
func Open(db *storage.Store) (*Log, error) {
	l := &Log{db: db, next: 1}

	data, err := db.Get(nextSeqKey)
	if err != nil {
		return nil, fmt.Errorf("read fact sequence:\n%w", err)
	}
	if len(data) == 8 {
		l.next = binary.LittleEndian.Uint64(data)
	}

	return l, nil
}

// Next returns the sequence number the next appended fact will receive.
func (l *Log) Next() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Stage assigns sequence numbers to the given facts and returns the
// key-value pairs to commit, including the advanced sequence counter.
// The caller must commit the pairs atomically with its own writes and then
// call Confirm(len(fs)) on success. The ledger lock serializes callers.
func (l *Log) Stage(fs []Fact) []storage.KeyValue {
	l.mu.Lock()
	defer l.mu.Unlock()

	pairs := make([]storage.KeyValue, 0, len(fs)+1)

	seq := l.next
	for i := range fs {
		fs[i].Seq = seq
		pairs = append(pairs, storage.KeyValue{
			Key:   makeFactKey(seq),
			Value: fs[i].Encode(),
		})
		seq++
	}

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], seq)
	pairs = append(pairs, storage.KeyValue{Key: nextSeqKey, Value: seqBuf[:]})

	return pairs
}

// Confirm advances the in-memory sequence after a successful commit of
// staged facts.
func (l *Log) Confirm(n int) {
	l.mu.Lock()
	l.next += uint64(n)
	l.mu.Unlock()

	metrics.FactsAppended.Add(float64(n))
}

// Read returns up to limit facts starting at sequence from (inclusive),
// in total order. A limit of 0 means no limit.
func (l *Log) Read(from uint64, limit int) ([]Fact, error) {
	if from == 0 {
		from = 1
	}

	var facts []Fact

	err := l.db.IterateRange(makeFactKey(from), factUpperBound(), func(key, value []byte) error {
		f, err := Decode(value)
		if err != nil {
			return fmt.Errorf("fact %x:\n%w", key, err)
		}

		f.Seq = seqFromKey(key)
		facts = append(facts, f)

		if limit > 0 && len(facts) >= limit {
			return errStopIteration
		}

		return nil
	})
	if err != nil && err != errStopIteration {
		return nil, err
	}

	return facts, nil
}

// errStopIteration terminates a bounded Read early.
var errStopIteration = fmt.Errorf("stop iteration")

// makeFactKey builds the storage key for a sequence number.
// Big-endian so lexicographic key order matches sequence order.
func makeFactKey(seq uint64) []byte {
	key := make([]byte, len(factKeyPrefix)+8)
	copy(key, factKeyPrefix)
	binary.BigEndian.PutUint64(key[len(factKeyPrefix):], seq)
	return key
}

// seqFromKey extracts the sequence number from a fact key.
func seqFromKey(key []byte) uint64 {
	if len(key) != len(factKeyPrefix)+8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(factKeyPrefix):])
}

// factUpperBound is the exclusive upper bound for fact key scans.
func factUpperBound() []byte {
	upper := make([]byte, len(factKeyPrefix))
	copy(upper, factKeyPrefix)
	upper[len(upper)-1]++ // "f;" bounds all "f:..." keys
	return upper
}
