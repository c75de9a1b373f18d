// Package pricehistory keeps append-only per-fingerprint price series and
// derives the statistics the scorer consumes.
package pricehistory

import (
	"sort"
	"sync"
	"time"

	"DealRadar/internal/domain"
)

// Store is the in-process price history. Appends are serialized; readers
// always see a chronologically ordered, monotonically growing series.
type Store struct {
	mu        sync.RWMutex
	series    map[string][]domain.PricePoint
	tolerance float64 // all-time-low multiplier, default 1.02
	events    []domain.SaleEvent
}

// New builds a Store. tolerance <= 1 falls back to 1.02.
func New(tolerance float64, events []domain.SaleEvent) *Store {
	if tolerance < 1 {
		tolerance = 1.02
	}
	return &Store{
		series:    map[string][]domain.PricePoint{},
		tolerance: tolerance,
		events:    events,
	}
}

// Append records an observed price. Points arriving out of order are
// inserted at their chronological position.
func (s *Store) Append(point domain.PricePoint) {
	if point.Fingerprint == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.series[point.Fingerprint]
	n := len(series)
	if n == 0 || !point.ObservedAt.Before(series[n-1].ObservedAt) {
		s.series[point.Fingerprint] = append(series, point)
		return
	}

	at := sort.Search(n, func(i int) bool {
		return series[i].ObservedAt.After(point.ObservedAt)
	})
	series = append(series, domain.PricePoint{})
	copy(series[at+1:], series[at:])
	series[at] = point
	s.series[point.Fingerprint] = series
}

// SeriesFor returns the chronological points for a fingerprint observed at
// or after since. A zero since returns the full series.
func (s *Store) SeriesFor(fingerprint string, since time.Time) []domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[fingerprint]
	out := make([]domain.PricePoint, 0, len(series))
	for _, p := range series {
		if since.IsZero() || !p.ObservedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out
}

// Fingerprints lists every fingerprint with at least one point, sorted.
func (s *Store) Fingerprints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.series))
	for fp := range s.series {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

// Prune drops points observed before the horizon and returns how many were
// removed. Fingerprints whose series empties are forgotten entirely.
func (s *Store) Prune(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fp, series := range s.series {
		keep := series[:0]
		for _, p := range series {
			if p.ObservedAt.Before(olderThan) {
				removed++
				continue
			}
			keep = append(keep, p)
		}
		if len(keep) == 0 {
			delete(s.series, fp)
			continue
		}
		s.series[fp] = keep
	}
	return removed
}

func (s *Store) snapshot(fingerprint string) []domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.series[fingerprint]
	out := make([]domain.PricePoint, len(series))
	copy(out, series)
	return out
}
