// Package ledger persists trades in an ordered key-value store with derived
// secondary indexes by asset and by tax year.
//
// Key layout:
//
//	trade:<id>                                -> trade record
//	by-asset:<asset>:<padded-ts>:<id>         -> marker
//	by-taxyear:<label>:<padded-ts>:<id>       -> marker
//
// The timestamp is zero-padded so lexicographic order equals chronological
// order.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
	"taxfolio/internal/storage/walkv"
)

const (
	tradePrefix   = "trade:"
	assetPrefix   = "by-asset:"
	taxYearPrefix = "by-taxyear:"

	defaultPageSize = 50
	maxPageSize     = 500
)

// Filter restricts a List scan. Zero values mean unbounded.
type Filter struct {
	Asset      domain.Asset
	Side       domain.Side
	FromMillis int64
	ToMillis   int64
}

func (f Filter) matches(t *domain.Trade) bool {
	if f.Asset != "" && t.Asset != f.Asset {
		return false
	}
	if f.Side != "" && t.Side != f.Side {
		return false
	}
	if f.FromMillis > 0 && t.Timestamp < f.FromMillis {
		return false
	}
	if f.ToMillis > 0 && t.Timestamp > f.ToMillis {
		return false
	}
	return true
}

// Store is the trade ledger for one user's data set. Mutations are serialized
// through one mutex so each read-modify-write, including its index
// maintenance, is a single atomic unit.
type Store struct {
	mu sync.Mutex
	kv *walkv.Store
}

// Open initializes a ledger at dir.
func Open(dir string) (*Store, error) {
	kv, err := walkv.Open(dir)
	if err != nil {
		return nil, err
	}
	return New(kv), nil
}

// New wraps an already-open key-value store.
func New(kv *walkv.Store) *Store {
	return &Store{kv: kv}
}

// Close releases the underlying store.
func (s *Store) Close() error { return s.kv.Close() }

func tradeKey(id string) string { return tradePrefix + id }

func padMillis(ms int64) string { return fmt.Sprintf("%013d", ms) }

func assetKey(t *domain.Trade) string {
	return fmt.Sprintf("%s%s:%s:%s", assetPrefix, t.Asset, padMillis(t.Timestamp), t.ID)
}

func taxYearKey(t *domain.Trade) string {
	return fmt.Sprintf("%s%s:%s:%s", taxYearPrefix, t.TaxYear().Label(), padMillis(t.Timestamp), t.ID)
}

// Put creates or replaces a trade and (re)writes both secondary index entries.
func (s *Store) Put(t *domain.Trade) error {
	if t.ID == "" {
		return errs.Validation("trade id is required")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(t.ID, t)
}

// Update replaces the trade stored under id. The replacement may carry a new
// id, in which case the prior record and its index entries are removed first.
func (s *Store) Update(id string, t *domain.Trade) error {
	if t.ID == "" {
		return errs.Validation("trade id is required")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok, err := s.getRaw(id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("trade %s not found", id)
	}
	if prev.Locked {
		return errs.Conflict("trade %s is locked", id)
	}
	return s.write(id, t)
}

// write persists t, cleaning up the record previously stored under prevID.
// Caller holds s.mu.
func (s *Store) write(prevID string, t *domain.Trade) error {
	ops := make([]walkv.Op, 0, 6)

	prev, ok, err := s.getRaw(prevID)
	if err != nil {
		return err
	}
	if ok {
		if prevID != t.ID {
			ops = append(ops, walkv.Op{Key: tradeKey(prevID), Delete: true})
		}
		ops = append(ops,
			walkv.Op{Key: assetKey(prev), Delete: true},
			walkv.Op{Key: taxYearKey(prev), Delete: true},
		)
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return errors.Wrapf(err, "marshal trade %s", t.ID)
	}
	ops = append(ops,
		walkv.Op{Key: tradeKey(t.ID), Value: payload},
		walkv.Op{Key: assetKey(t)},
		walkv.Op{Key: taxYearKey(t)},
	)
	return s.kv.Apply(ops...)
}

// Get returns the trade stored under id.
func (s *Store) Get(id string) (*domain.Trade, error) {
	t, ok, err := s.getRaw(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("trade %s not found", id)
	}
	return t, nil
}

func (s *Store) getRaw(id string) (*domain.Trade, bool, error) {
	payload, ok := s.kv.Get(tradeKey(id))
	if !ok {
		return nil, false, nil
	}
	var t domain.Trade
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, false, errors.Wrapf(err, "decode trade %s", id)
	}
	return &t, true, nil
}

// Delete removes the trade and both index entries. Locked trades are refused.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok, err := s.getRaw(id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("trade %s not found", id)
	}
	if t.Locked {
		return errs.Conflict("trade %s is locked", id)
	}
	return s.kv.Apply(
		walkv.Op{Key: tradeKey(id), Delete: true},
		walkv.Op{Key: assetKey(t), Delete: true},
		walkv.Op{Key: taxYearKey(t), Delete: true},
	)
}

// Lock marks each existing trade as locked, silently skipping absent ids.
// Returns the ids actually locked.
func (s *Store) Lock(ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked := make([]string, 0, len(ids))
	for _, id := range ids {
		t, ok, err := s.getRaw(id)
		if err != nil {
			return locked, err
		}
		if !ok {
			continue
		}
		if !t.Locked {
			t.Locked = true
			payload, err := json.Marshal(t)
			if err != nil {
				return locked, errors.Wrapf(err, "marshal trade %s", id)
			}
			// Asset, timestamp and tax year are unchanged, so the index
			// entries stay as they are.
			if err := s.kv.Put(tradeKey(id), payload); err != nil {
				return locked, err
			}
		}
		locked = append(locked, id)
	}
	return locked, nil
}

// List scans trades in reverse chronological order, resuming strictly after
// cursor (a previously returned trade id). Filters are applied in memory. The
// returned cursor is non-empty only when exactly limit rows were returned;
// its absence means the store is exhausted, not that filters excluded rows.
func (s *Store) List(f Filter, limit int, cursor string) ([]domain.Trade, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	start := ""
	if cursor != "" {
		start = tradeKey(cursor)
	}

	out := make([]domain.Trade, 0, limit)
	var scanErr error
	s.kv.Descend(tradePrefix, start, func(key string, value []byte) bool {
		var t domain.Trade
		if err := json.Unmarshal(value, &t); err != nil {
			scanErr = errors.Wrapf(err, "decode %s", key)
			return false
		}
		if !f.matches(&t) {
			return true
		}
		out = append(out, t)
		return len(out) < limit
	})
	if scanErr != nil {
		return nil, "", scanErr
	}

	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

// LoadAll returns every trade inside the inclusive millisecond window (zero
// bounds mean unbounded) in strict chronological order, for matching replay.
func (s *Store) LoadAll(fromMillis, toMillis int64) ([]domain.Trade, error) {
	var out []domain.Trade
	var scanErr error
	s.kv.Ascend(tradePrefix, func(key string, value []byte) bool {
		var t domain.Trade
		if err := json.Unmarshal(value, &t); err != nil {
			scanErr = errors.Wrapf(err, "decode %s", key)
			return false
		}
		if fromMillis > 0 && t.Timestamp < fromMillis {
			return true
		}
		if toMillis > 0 && t.Timestamp > toMillis {
			return true
		}
		out = append(out, t)
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}

	// Ids encode creation time, but an update may have moved the timestamp,
	// so key order alone is not trusted.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
