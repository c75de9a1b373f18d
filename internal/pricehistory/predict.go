package pricehistory

import (
	"time"

	"DealRadar/internal/domain"
)

const minPredictionSamples = 7

// Predict classifies where a fingerprint's price is heading. A sale event
// inside its lead-up window forces a falling forecast; otherwise the 7- and
// 30-day trend slopes decide, and thin series always read as stable.
func (s *Store) Predict(fingerprint string, now time.Time) domain.PricePrediction {
	if event, daysUntil, ok := s.upcomingEvent(now); ok {
		return domain.PricePrediction{
			Direction:         domain.TrendFalling,
			ExpectedChangePct: float64(event.ExpectedDiscount),
			Confidence:        70,
			SuggestedWaitDays: daysUntil,
			Event:             event.Name,
		}
	}

	series := s.snapshot(fingerprint)
	if len(series) < minPredictionSamples {
		return domain.PricePrediction{Direction: domain.TrendStable, Confidence: 10}
	}

	current := series[len(series)-1].Price
	slope7 := windowChange(series, now.AddDate(0, 0, -7), current) / 7
	slope30 := windowChange(series, now.AddDate(0, 0, -30), current) / 30

	pred := domain.PricePrediction{
		Direction:  domain.TrendStable,
		Confidence: confidence(len(series)),
	}
	if pred.Confidence > 80 {
		pred.Confidence = 80
	}

	switch {
	case slope7 < -2 && slope30 < -1:
		pred.Direction = domain.TrendFalling
		pred.ExpectedChangePct = slope7 * 7
		pred.SuggestedWaitDays = 7
	case slope7 > 2 && slope30 > 1:
		pred.Direction = domain.TrendRising
		pred.ExpectedChangePct = slope7 * 7
	}
	return pred
}

// upcomingEvent reports the nearest configured sale event whose lead-up
// window covers today. Event months are 0-indexed.
func (s *Store) upcomingEvent(now time.Time) (domain.SaleEvent, int, bool) {
	best := domain.SaleEvent{}
	bestDays := 0
	found := false

	for _, ev := range s.events {
		for _, year := range []int{now.Year(), now.Year() + 1} {
			date := time.Date(year, time.Month(ev.Month+1), ev.Day, 0, 0, 0, 0, time.UTC)
			days := int(date.Sub(now.Truncate(24*time.Hour)).Hours() / 24)
			if days < 0 || days > ev.WindowDays {
				continue
			}
			if !found || days < bestDays {
				best = ev
				bestDays = days
				found = true
			}
		}
	}
	return best, bestDays, found
}
