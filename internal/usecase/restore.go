package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/storage"
)

// Restore loads previously persisted scored offers and price points back
// into the index and the history store, so a restart does not present an
// empty catalog. Records that fail to decode are skipped, not fatal.
func (p *Pipeline) Restore(ctx context.Context) (offers, points int, err error) {
	err = p.store.Scan(ctx, storage.KeyOfferPrefix, func(key string, record []byte) error {
		var scored domain.ScoredOffer
		if decodeErr := json.Unmarshal(record, &scored); decodeErr != nil {
			p.debug("skip undecodable offer record", "key", key, "error", decodeErr)
			return nil
		}
		p.index.Upsert(scored)
		offers++
		return nil
	})
	if err != nil {
		return offers, points, fmt.Errorf("restore offers: %w", err)
	}

	err = p.store.Scan(ctx, storage.KeyPricePrefix, func(key string, record []byte) error {
		var point domain.PricePoint
		if decodeErr := json.Unmarshal(record, &point); decodeErr != nil {
			p.debug("skip undecodable price record", "key", key, "error", decodeErr)
			return nil
		}
		p.history.Append(point)
		points++
		return nil
	})
	if err != nil {
		return offers, points, fmt.Errorf("restore price history: %w", err)
	}

	p.updateIndexGauge()
	return offers, points, nil
}
