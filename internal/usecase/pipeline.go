// Package usecase orchestrates the aggregation pipeline: sources fan out,
// results normalize, duplicates collapse, survivors get scored and land in
// the index and the record store.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"DealRadar/internal/dedup"
	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/storage"
	"DealRadar/internal/metrics"
	"DealRadar/internal/normalizer"
	"DealRadar/internal/ports"
	"DealRadar/internal/scoring"
)

// PipelineDeps wires all collaborators into the orchestration pipeline.
type PipelineDeps struct {
	Normalizer *normalizer.Normalizer
	Deduper    *dedup.Deduper
	Scorer     *scoring.Scorer
	History    ports.PriceHistory
	Index      ports.OfferIndex
	Store      ports.RecordStore
	Metrics    *metrics.Registry
	Logger     *slog.Logger
}

// Pipeline implements the offer-ingestion workflow. One Run handles one
// scheduled tick of one source group.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	deduper    *dedup.Deduper
	scorer     *scoring.Scorer
	history    ports.PriceHistory
	index      ports.OfferIndex
	store      ports.RecordStore
	metrics    *metrics.Registry
	logger     *slog.Logger

	mu         sync.Mutex
	lastRun    map[string][]domain.SourceRunStats // keyed by group
	malformed  int64
	duplicates int64
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		normalizer: deps.Normalizer,
		deduper:    deps.Deduper,
		scorer:     deps.Scorer,
		history:    deps.History,
		index:      deps.Index,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		lastRun:    map[string][]domain.SourceRunStats{},
	}
}

// RunReport summarizes one pipeline run for the caller and for operators.
type RunReport struct {
	Group      string
	Sources    []domain.SourceRunStats
	Fetched    int
	Malformed  int
	Duplicates int
	Indexed    int
}

// Run fans out to every adapter in the group, waits for all results with no
// fail-fast, and pushes the combined batch through the pipeline stages in
// order. A run succeeds when at least one source produced data; per-source
// failures are recorded either way. Nothing is committed once ctx is done.
func (p *Pipeline) Run(ctx context.Context, group string, adapters []ports.SourceAdapter) (RunReport, error) {
	report := RunReport{Group: group}
	if len(adapters) == 0 {
		return report, nil
	}

	sources, raw := p.fanOut(ctx, adapters)
	report.Sources = sources
	report.Fetched = len(raw)
	p.rememberRun(group, sources)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}

	succeeded := 0
	for _, stats := range sources {
		if stats.Err != nil {
			p.countFailure(stats)
			continue
		}
		succeeded++
		p.countFetched(stats)
	}

	if succeeded == 0 {
		return report, fmt.Errorf("all %d sources failed in group %s", len(adapters), group)
	}

	canonical := make([]domain.CanonicalOffer, 0, len(raw))
	for _, r := range raw {
		offer, err := p.normalizer.Normalize(r)
		if err != nil {
			report.Malformed++
			p.countMalformed()
			continue
		}
		canonical = append(canonical, offer)
	}

	representatives := p.deduper.Collapse(canonical)
	report.Duplicates = len(canonical) - len(representatives)
	p.countDuplicates(report.Duplicates)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled before commit: %w", err)
	}

	now := time.Now().UTC()
	var storeErr error
	for _, offer := range representatives {
		point := domain.PricePoint{
			Fingerprint: offer.Fingerprint,
			Price:       offer.Raw.CurrentPrice,
			ObservedAt:  offer.Raw.FetchedAt.UTC(),
			Source:      offer.Raw.Source,
		}
		// Stats are taken before the append so the current observation
		// never counts as its own history.
		stats := p.history.StatsFor(offer.Fingerprint, offer.Raw.CurrentPrice)
		p.history.Append(point)
		scored := p.scorer.Score(offer, &stats, now)

		p.index.Upsert(scored)
		report.Indexed++
		p.countIndexed()

		if err := p.persist(ctx, scored, point); err != nil {
			storeErr = err
		}
	}

	p.updateIndexGauge()
	p.debug("pipeline run complete",
		"group", group,
		"fetched", report.Fetched,
		"malformed", report.Malformed,
		"duplicates", report.Duplicates,
		"indexed", report.Indexed,
	)

	if storeErr != nil {
		return report, fmt.Errorf("store writes failed (index still updated): %w", storeErr)
	}
	return report, nil
}

// fanOut invokes every adapter concurrently and waits for all of them.
// Adapter errors are data, not control flow, so the group never cancels
// siblings; every goroutine returns nil and failures travel in the stats.
func (p *Pipeline) fanOut(ctx context.Context, adapters []ports.SourceAdapter) ([]domain.SourceRunStats, []domain.RawOffer) {
	results := make([]domain.SourceRunStats, len(adapters))
	batches := make([][]domain.RawOffer, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			start := time.Now()
			res := adapter.Fetch(gctx)
			results[i] = domain.SourceRunStats{
				Source:   adapter.Name(),
				Offers:   len(res.Offers),
				Err:      res.Err,
				Duration: time.Since(start),
			}
			if res.Ok() {
				batches[i] = res.Offers
			}
			return nil
		})
	}
	_ = g.Wait()

	var raw []domain.RawOffer
	for _, batch := range batches {
		raw = append(raw, batch...)
	}
	return results, raw
}

func (p *Pipeline) persist(ctx context.Context, scored domain.ScoredOffer, point domain.PricePoint) error {
	offerBytes, err := json.Marshal(scored)
	if err != nil {
		return fmt.Errorf("encode offer %s: %w", scored.Offer.Fingerprint, err)
	}
	if err := p.store.Put(ctx, storage.OfferKey(scored.Offer.Fingerprint), offerBytes); err != nil {
		p.countStoreError()
		return fmt.Errorf("persist offer %s: %w", scored.Offer.Fingerprint, err)
	}

	pointBytes, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("encode price point: %w", err)
	}
	key := storage.PriceKey(point.Fingerprint, point.ObservedAt.Format(time.RFC3339Nano))
	if err := p.store.Put(ctx, key, pointBytes); err != nil {
		p.countStoreError()
		return fmt.Errorf("persist price point %s: %w", key, err)
	}
	return nil
}

// LastRun returns the per-source statistics of the most recent run of a
// group, for the operator API.
func (p *Pipeline) LastRun(group string) []domain.SourceRunStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.lastRun[group]
	out := make([]domain.SourceRunStats, len(stats))
	copy(out, stats)
	return out
}

func (p *Pipeline) rememberRun(group string, stats []domain.SourceRunStats) {
	p.mu.Lock()
	p.lastRun[group] = stats
	p.mu.Unlock()
}

// Counters tolerate a nil metrics registry so tests can run bare.

func (p *Pipeline) countFetched(stats domain.SourceRunStats) {
	if p.metrics != nil {
		p.metrics.OffersFetched.WithLabelValues(stats.Source).Add(float64(stats.Offers))
	}
}

func (p *Pipeline) countFailure(stats domain.SourceRunStats) {
	p.debug("source failed", "source", stats.Source, "kind", stats.Err.Kind, "error", stats.Err.Message)
	if p.metrics != nil {
		p.metrics.SourceFailures.WithLabelValues(stats.Source, string(stats.Err.Kind)).Inc()
	}
}

func (p *Pipeline) countMalformed() {
	if p.metrics != nil {
		p.metrics.MalformedDropped.Inc()
	}
}

func (p *Pipeline) countDuplicates(n int) {
	if p.metrics != nil && n > 0 {
		p.metrics.DuplicatesCollapsed.Add(float64(n))
	}
}

func (p *Pipeline) countIndexed() {
	if p.metrics != nil {
		p.metrics.OffersIndexed.Inc()
	}
}

func (p *Pipeline) countStoreError() {
	if p.metrics != nil {
		p.metrics.StoreWriteErrors.Inc()
	}
}

func (p *Pipeline) observeJobDuration(job string, elapsed time.Duration) {
	if p.metrics != nil {
		p.metrics.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	}
}

func (p *Pipeline) updateIndexGauge() {
	if p.metrics != nil {
		p.metrics.IndexSize.Set(float64(p.index.Len()))
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
