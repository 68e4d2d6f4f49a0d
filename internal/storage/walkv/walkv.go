// Package walkv provides an ordered key-value store durably backed by a
// write-ahead log. Every mutation is appended to the WAL and the full key
// space is replayed into a sorted in-memory index at open time.
package walkv

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	walPrefix        = "ledger_"
	segmentThreshold = 10000
	// The ledger is the system of record, so segments are never allowed to
	// rotate out of existence.
	maxSegments = 1000000

	putKeyPrefix = "put:"
	delKeyPrefix = "del:"
)

// Op is a single key mutation. A batch of ops applied together is atomic with
// respect to readers: no reader observes a partially applied batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Store is an ordered key-value store. All access is serialized through one
// RWMutex, which models the single-writer-per-ledger actor.
type Store struct {
	mu   sync.RWMutex
	wal  *gowal.Wal
	keys []string
	vals map[string][]byte
}

// Open initializes the store at dir, replaying any existing log.
func Open(dir string) (*Store, error) {
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           walPrefix,
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	s := &Store{wal: wal, vals: make(map[string][]byte)}
	for m := range wal.Iterator() {
		switch {
		case strings.HasPrefix(m.Key, putKeyPrefix):
			s.apply(Op{Key: strings.TrimPrefix(m.Key, putKeyPrefix), Value: m.Value})
		case strings.HasPrefix(m.Key, delKeyPrefix):
			s.apply(Op{Key: strings.TrimPrefix(m.Key, delKeyPrefix), Delete: true})
		}
	}
	return s, nil
}

// Get returns the value stored at key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vals[key]
	return v, ok
}

// Put stores a single key.
func (s *Store) Put(key string, value []byte) error {
	return s.Apply(Op{Key: key, Value: value})
}

// Delete removes a single key.
func (s *Store) Delete(key string) error {
	return s.Apply(Op{Key: key, Delete: true})
}

// Apply appends every op to the WAL and then applies them in memory, all under
// one critical section.
func (s *Store) Apply(ops ...Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		walKey := putKeyPrefix + op.Key
		if op.Delete {
			walKey = delKeyPrefix + op.Key
		}
		if err := s.wal.Write(s.wal.CurrentIndex()+1, walKey, op.Value); err != nil {
			return errors.Wrapf(err, "append %s", walKey)
		}
	}
	for _, op := range ops {
		s.apply(op)
	}
	return nil
}

// apply mutates the in-memory index. Caller holds the write lock (or is the
// single-threaded replay at open time).
func (s *Store) apply(op Op) {
	i := sort.SearchStrings(s.keys, op.Key)
	present := i < len(s.keys) && s.keys[i] == op.Key

	if op.Delete {
		if present {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			delete(s.vals, op.Key)
		}
		return
	}
	if !present {
		s.keys = append(s.keys, "")
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = op.Key
	}
	s.vals[op.Key] = op.Value
}

// Ascend walks keys with the given prefix in ascending order until fn returns
// false.
func (s *Store) Ascend(prefix string, fn func(key string, value []byte) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := sort.SearchStrings(s.keys, prefix); i < len(s.keys); i++ {
		if !strings.HasPrefix(s.keys[i], prefix) {
			return
		}
		if !fn(s.keys[i], s.vals[s.keys[i]]) {
			return
		}
	}
}

// Descend walks keys with the given prefix in descending order until fn
// returns false. When fromExclusive is non-empty iteration starts strictly
// below it.
func (s *Store) Descend(prefix, fromExclusive string, fn func(key string, value []byte) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.SearchStrings(s.keys, upperBound(prefix))
	if fromExclusive != "" {
		start = sort.SearchStrings(s.keys, fromExclusive)
	}
	for i := start - 1; i >= 0; i-- {
		if !strings.HasPrefix(s.keys[i], prefix) {
			return
		}
		if !fn(s.keys[i], s.vals[s.keys[i]]) {
			return
		}
	}
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.keys)
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// upperBound is a key strictly greater than every key sharing the prefix.
// Keys are ASCII, so a single 0xff byte is enough.
func upperBound(prefix string) string {
	return prefix + "\xff"
}
