// Package submit implements the user-submission intake source. Submissions
// land in a bounded queue; the adapter drains whatever accumulated since the
// last tick.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"DealRadar/internal/domain"
	"DealRadar/internal/ports"
)

// ErrQueueFull is returned to submitters when intake is saturated; there
// are no unbounded queues anywhere in the pipeline.
var ErrQueueFull = errors.New("submission queue is full")

// Submission is what an end user provides; only the essentials are required
// and everything else is best effort.
type Submission struct {
	Title         string
	URL           string
	CurrentPrice  float64
	OriginalPrice float64
	Currency      string
	Merchant      string
	Category      string
	Condition     domain.Condition
}

// Queue is the intake adapter. Producers call Submit; the scheduler drains
// through Fetch.
type Queue struct {
	name  string
	ch    chan domain.RawOffer
	clock func() time.Time
}

var _ ports.SourceAdapter = (*Queue)(nil)

// NewQueue builds an intake queue holding at most capacity submissions.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{
		name:  name,
		ch:    make(chan domain.RawOffer, capacity),
		clock: time.Now,
	}
}

// Submit enqueues one user submission, assigning it a uuid external id.
func (q *Queue) Submit(sub Submission) (string, error) {
	id := uuid.NewString()

	currency := sub.Currency
	if currency == "" {
		currency = "USD"
	}
	condition := sub.Condition
	if condition == "" {
		condition = domain.ConditionNew
	}

	offer := domain.RawOffer{
		ExternalID:    id,
		Title:         sub.Title,
		URL:           sub.URL,
		CurrentPrice:  sub.CurrentPrice,
		OriginalPrice: sub.OriginalPrice,
		Currency:      currency,
		Merchant:      sub.Merchant,
		Category:      sub.Category,
		Condition:     condition,
		Stock:         domain.StockInStock,
		Source:        q.name,
		FetchedAt:     q.clock().UTC(),
	}

	select {
	case q.ch <- offer:
		return id, nil
	default:
		return "", ErrQueueFull
	}
}

// Name identifies the adapter inside the registry.
func (q *Queue) Name() string { return q.name }

// MinInterval: draining a local queue needs no request spacing.
func (q *Queue) MinInterval() time.Duration { return 0 }

// PollPeriod is how often the scheduler drains pending submissions.
func (q *Queue) PollPeriod() time.Duration { return 5 * time.Minute }

// Fetch drains everything queued so far without blocking.
func (q *Queue) Fetch(ctx context.Context) domain.FetchResult {
	var offers []domain.RawOffer
	for {
		if err := ctx.Err(); err != nil {
			return domain.FetchResult{Err: domain.Transient("drain cancelled: %v", err)}
		}
		select {
		case offer := <-q.ch:
			offers = append(offers, offer)
		default:
			return domain.FetchResult{Offers: offers}
		}
	}
}

// Search filters pending submissions without consuming unrelated entries;
// intake is not a searchable catalog, so this only matches the drained batch.
func (q *Queue) Search(ctx context.Context, query, category string) domain.FetchResult {
	return q.Fetch(ctx)
}
