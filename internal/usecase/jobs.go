package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/rss"
	"DealRadar/internal/infrastructure/storage"
	"DealRadar/internal/ports"
)

// SourceGroupJob builds a scheduler handler that runs the pipeline over a
// fixed adapter group. Handlers never leak goroutines: Run waits for every
// adapter before returning.
func (p *Pipeline) SourceGroupJob(group string, adapters []ports.SourceAdapter) func(context.Context) error {
	return p.timed(group, func(ctx context.Context) error {
		_, err := p.Run(ctx, group, adapters)
		return err
	})
}

// SaveJobStats persists a job's run statistics under its job key so
// operators keep counters across restarts. Called from the scheduler's
// run-completion hook on the job's goroutine, hence the bounded context.
func (p *Pipeline) SaveJobStats(snap domain.JobSnapshot) {
	record, err := json.Marshal(snap)
	if err != nil {
		p.debug("encode job stats", "job", snap.Name, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.Put(ctx, storage.JobKey(snap.Name), record); err != nil {
		p.countStoreError()
		p.debug("persist job stats", "job", snap.Name, "error", err)
	}
}

// timed records a handler's wall time under its job label.
func (p *Pipeline) timed(job string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		err := fn(ctx)
		p.observeJobDuration(job, time.Since(start))
		return err
	}
}

// PriceVerificationJob rescores every indexed offer against its current
// price statistics so verdicts follow history growth between source polls.
func (p *Pipeline) PriceVerificationJob() func(context.Context) error {
	return p.timed("price-verification", func(ctx context.Context) error {
		now := time.Now().UTC()
		rescored := 0
		for _, scored := range p.index.All() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("verification cancelled: %w", err)
			}
			stats := p.history.StatsFor(scored.Offer.Fingerprint, scored.Offer.Raw.CurrentPrice)
			fresh := p.scorer.Score(scored.Offer, &stats, now)
			p.index.Upsert(fresh)
			rescored++
		}
		p.debug("price verification complete", "rescored", rescored)
		return nil
	})
}

// MaintenanceJob prunes price history beyond the archival horizon, removes
// the corresponding persisted points, and compacts feed seen-sets.
func (p *Pipeline) MaintenanceJob(archiveDays int, feeds []*rss.Adapter) func(context.Context) error {
	if archiveDays <= 0 {
		archiveDays = 180
	}
	return p.timed("maintenance", func(ctx context.Context) error {
		horizon := time.Now().UTC().AddDate(0, 0, -archiveDays)
		pruned := p.history.Prune(horizon)

		var stale []string
		err := p.store.Scan(ctx, storage.KeyPricePrefix, func(key string, record []byte) error {
			// Key layout: price:<fingerprint>:<rfc3339nano>. Fingerprints never
			// contain colons, the timestamp does.
			rest := strings.TrimPrefix(key, storage.KeyPricePrefix)
			sep := strings.Index(rest, ":")
			if sep < 0 {
				return nil
			}
			ts, parseErr := time.Parse(time.RFC3339Nano, rest[sep+1:])
			if parseErr == nil && ts.Before(horizon) {
				stale = append(stale, key)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan price records: %w", err)
		}
		for _, key := range stale {
			if err := p.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		for _, feed := range feeds {
			feed.CompactSeen(10000)
		}

		p.updateIndexGauge()
		p.debug("maintenance complete", "pruned_points", pruned, "deleted_records", len(stale))
		return nil
	})
}
