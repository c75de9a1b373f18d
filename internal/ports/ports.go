package ports

import (
	"context"
	"time"

	"DealRadar/internal/domain"
)

// SourceAdapter pulls raw offers from one upstream. Implementations never
// return a Go error for upstream failures; classification lives in the
// FetchResult so the scheduler can decide retry policy.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context) domain.FetchResult
	Search(ctx context.Context, query, category string) domain.FetchResult
	// MinInterval is the rate-limit floor between outbound requests.
	MinInterval() time.Duration
	// PollPeriod is how often the scheduler should invoke the adapter.
	PollPeriod() time.Duration
}

// RecordStore persists opaque records under string keys. Encodings are an
// implementation detail; nothing in the core depends on them.
type RecordStore interface {
	Put(ctx context.Context, key string, record []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Scan(ctx context.Context, prefix string, fn func(key string, record []byte) error) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PriceHistory owns per-fingerprint price series and derived statistics.
type PriceHistory interface {
	Append(point domain.PricePoint)
	SeriesFor(fingerprint string, since time.Time) []domain.PricePoint
	StatsFor(fingerprint string, currentPrice float64) domain.PriceStats
	Predict(fingerprint string, now time.Time) domain.PricePrediction
	Prune(olderThan time.Time) int
	Fingerprints() []string
}

// OfferIndex is the scored catalog keyed by fingerprint.
type OfferIndex interface {
	Upsert(offer domain.ScoredOffer)
	Search(query, category string) []domain.ScoredOffer
	TopN(n int) []domain.ScoredOffer
	ByCategory(prefix string) []domain.ScoredOffer
	ByFingerprint(fp string) (domain.ScoredOffer, bool)
	All() []domain.ScoredOffer
	Len() int
}

// Scheduler drives recurring jobs and exposes their run statistics.
type Scheduler interface {
	Register(name string, interval time.Duration, handler func(context.Context) error)
	Start(ctx context.Context)
	Stop()
	Trigger(name string) bool
	Jobs() []domain.JobSnapshot
}
