package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"DealRadar/internal/ports"
)

// Pebble is the local durable RecordStore.
type Pebble struct {
	db *pebble.DB
}

var _ ports.RecordStore = (*Pebble)(nil)

// NewPebble opens (or creates) a Pebble database at dir.
func NewPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Pebble{db: db}, nil
}

// Put writes the record; the WAL covers durability, so NoSync is enough.
func (p *Pebble) Put(ctx context.Context, key string, record []byte) error {
	if err := p.db.Set([]byte(key), record, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

// Get returns the record and whether it exists.
func (p *Pebble) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %s: %w", key, err)
	}
	record := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebble close value: %w", err)
	}
	return record, true, nil
}

// Scan iterates keys with the given prefix in order.
func (p *Pebble) Scan(ctx context.Context, prefix string, fn func(key string, record []byte) error) error {
	lower := []byte(prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key := string(iter.Key())
		record := append([]byte(nil), iter.Value()...)
		if err := fn(key, record); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Delete removes a key; absent keys are fine.
func (p *Pebble) Delete(ctx context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.NoSync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", key, err)
	}
	return nil
}

// Close releases the database.
func (p *Pebble) Close() error { return p.db.Close() }

// prefixUpperBound returns the smallest key greater than every key with the
// prefix, or nil when the prefix is all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
