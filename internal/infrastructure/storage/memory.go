// Package storage provides RecordStore backends. Records are opaque bytes
// keyed by string; the pipeline layers its own JSON encoding on top.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"DealRadar/internal/ports"
)

// Key prefixes shared by all backends.
const (
	KeyOfferPrefix = "offer:"
	KeyPricePrefix = "price:"
	KeyJobPrefix   = "job:"
)

// OfferKey builds the index-record key for a fingerprint.
func OfferKey(fingerprint string) string { return KeyOfferPrefix + fingerprint }

// PriceKey builds a price-point key; the timestamp component keeps scans
// chronological within a fingerprint.
func PriceKey(fingerprint, observedAt string) string {
	return KeyPricePrefix + fingerprint + ":" + observedAt
}

// JobKey builds the job-stats key for a job name.
func JobKey(name string) string { return KeyJobPrefix + name }

// Memory is the default, process-lifetime RecordStore.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ ports.RecordStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

// Put stores a copy of the record under key.
func (m *Memory) Put(ctx context.Context, key string, record []byte) error {
	cp := make([]byte, len(record))
	copy(cp, record)

	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

// Get returns the record and whether it exists.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	record, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(record))
	copy(cp, record)
	return cp, true, nil
}

// Scan visits every record whose key starts with prefix, in key order.
func (m *Memory) Scan(ctx context.Context, prefix string, fn func(key string, record []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		record, ok, err := m.Get(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(k, record); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a key; deleting an absent key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }
