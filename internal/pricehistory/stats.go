package pricehistory

import (
	"time"

	"DealRadar/internal/domain"
)

// StatsFor derives the deterministic statistics view for a fingerprint
// against the given current price. With no history at all the current price
// stands in for every aggregate and the offer counts as an all-time low.
func (s *Store) StatsFor(fingerprint string, currentPrice float64) domain.PriceStats {
	return s.statsAt(fingerprint, currentPrice, time.Now().UTC())
}

func (s *Store) statsAt(fingerprint string, currentPrice float64, now time.Time) domain.PriceStats {
	series := s.snapshot(fingerprint)

	stats := domain.PriceStats{
		Current:     currentPrice,
		SampleCount: len(series),
		Confidence:  confidence(len(series)),
	}

	if len(series) == 0 {
		stats.Average7d = currentPrice
		stats.Average30d = currentPrice
		stats.Average90d = currentPrice
		stats.Lowest = currentPrice
		stats.Highest = currentPrice
		stats.IsAtAllTimeLow = true
		return stats
	}

	stats.Lowest = series[0].Price
	stats.LowestAt = series[0].ObservedAt
	stats.Highest = series[0].Price
	stats.HighestAt = series[0].ObservedAt
	for _, p := range series {
		if p.Price < stats.Lowest {
			stats.Lowest = p.Price
			stats.LowestAt = p.ObservedAt
		}
		if p.Price > stats.Highest {
			stats.Highest = p.Price
			stats.HighestAt = p.ObservedAt
		}
	}

	stats.Average7d = windowAverage(series, now.AddDate(0, 0, -7), currentPrice)
	stats.Average30d = windowAverage(series, now.AddDate(0, 0, -30), currentPrice)
	stats.Average90d = windowAverage(series, now.AddDate(0, 0, -90), currentPrice)

	stats.Change7dPct = windowChange(series, now.AddDate(0, 0, -7), currentPrice)
	stats.Change30dPct = windowChange(series, now.AddDate(0, 0, -30), currentPrice)

	stats.IsAtAllTimeLow = currentPrice <= stats.Lowest*s.tolerance
	return stats
}

func confidence(samples int) int {
	c := 20 + 5*samples
	if c > 100 {
		c = 100
	}
	return c
}

// windowAverage is the arithmetic mean of points inside the window; an
// empty window answers with the current price.
func windowAverage(series []domain.PricePoint, cutoff time.Time, currentPrice float64) float64 {
	sum := 0.0
	count := 0
	for _, p := range series {
		if p.ObservedAt.Before(cutoff) {
			continue
		}
		sum += p.Price
		count++
	}
	if count == 0 {
		return currentPrice
	}
	return sum / float64(count)
}

// windowChange measures percent change against the oldest point inside the
// window, not the point closest to the cutoff.
func windowChange(series []domain.PricePoint, cutoff time.Time, currentPrice float64) float64 {
	for _, p := range series {
		if p.ObservedAt.Before(cutoff) {
			continue
		}
		if p.Price == 0 {
			return 0
		}
		return (currentPrice - p.Price) / p.Price * 100
	}
	return 0
}
