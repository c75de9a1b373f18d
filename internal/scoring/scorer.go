// Package scoring turns canonical offers and price statistics into 0-100
// deal scores. Every function here is total and deterministic: the same
// offer and stats always produce byte-identical results.
package scoring

import (
	"math"
	"strings"
	"time"

	"DealRadar/internal/config"
	"DealRadar/internal/domain"
)

// Scorer evaluates offers against the configured weights, verdict
// thresholds and curated trust/threshold tables.
type Scorer struct {
	weights    config.WeightsConfig
	verdicts   config.VerdictThresholdsConfig
	trust      map[string]int
	thresholds map[string]config.ThresholdPair
}

// New builds a Scorer from configuration.
func New(cfg config.ScoringConfig, tables config.TablesConfig) *Scorer {
	s := &Scorer{
		weights:    cfg.Weights,
		verdicts:   cfg.VerdictThresholds,
		trust:      map[string]int{},
		thresholds: map[string]config.ThresholdPair{},
	}
	for k, v := range tables.RetailerTrust {
		s.trust[strings.ToLower(k)] = v
		s.trust[squashKey(k)] = v
	}
	for k, v := range tables.CategoryThresholds {
		s.thresholds[strings.ToLower(k)] = v
	}
	return s
}

// Score rates an offer. stats may be nil when no history exists yet; the
// price-history component then scores a neutral 50.
func (s *Scorer) Score(offer domain.CanonicalOffer, stats *domain.PriceStats, now time.Time) domain.ScoredOffer {
	breakdown := domain.ScoreBreakdown{
		PriceHistory: priceHistoryScore(offer, stats),
		Discount:     s.discountScore(offer),
		Quality:      qualityScore(offer.Raw),
		Freshness:    freshnessScore(offer.Raw, now),
		Trust:        s.trustScore(offer),
		Engagement:   engagementScore(offer.Raw),
	}

	total := breakdown.PriceHistory*s.weights.PriceHistory +
		breakdown.Discount*s.weights.Discount +
		breakdown.Quality*s.weights.Quality +
		breakdown.Freshness*s.weights.Freshness +
		breakdown.Trust*s.weights.Trust +
		breakdown.Engagement*s.weights.Engagement

	score := int(math.Round(float64(total) / 100))
	score = clamp(score)

	scored := domain.ScoredOffer{
		Offer:          offer,
		Breakdown:      breakdown,
		Score:          score,
		Verdict:        s.verdict(score),
		Recommendation: recommendation(score, stats),
		Insights:       insights(offer, breakdown, stats),
		ScoredAt:       now,
	}
	return scored
}

func (s *Scorer) verdict(score int) domain.Verdict {
	switch {
	case score >= s.verdicts.Incredible:
		return domain.VerdictIncredible
	case score >= s.verdicts.Great:
		return domain.VerdictGreat
	case score >= s.verdicts.Good:
		return domain.VerdictGood
	case score >= s.verdicts.Fair:
		return domain.VerdictFair
	default:
		return domain.VerdictPoor
	}
}

// recommendation applies the all-time-low override before the score bands.
func recommendation(score int, stats *domain.PriceStats) domain.Recommendation {
	if stats != nil && stats.IsAtAllTimeLow {
		return domain.RecommendBuyNow
	}
	switch {
	case score >= 75:
		return domain.RecommendBuyNow
	case score >= 50:
		return domain.RecommendWait
	default:
		return domain.RecommendSkip
	}
}

// priceHistoryScore compares the current price against the fingerprint's
// historical profile. No history scores a flat 50.
func priceHistoryScore(offer domain.CanonicalOffer, stats *domain.PriceStats) int {
	if stats == nil || stats.SampleCount == 0 {
		return 50
	}

	current := offer.Raw.CurrentPrice
	score := 50

	switch {
	case current <= stats.Lowest*1.02:
		score += 35
	case current <= stats.Lowest*1.05:
		score += 25
	case stats.Average30d > 0 && current <= 0.9*stats.Average30d:
		score += 15
	}

	if stats.Average30d > 0 && current > stats.Average30d {
		penalty := int((current/stats.Average30d - 1) * 100)
		if penalty > 30 {
			penalty = 30
		}
		score -= penalty
	}

	if stats.Highest > 0 && current >= 0.95*stats.Highest {
		score -= 20
	}

	return clamp(score)
}

// discountScore measures the discount against category-specific cutoffs.
func (s *Scorer) discountScore(offer domain.CanonicalOffer) int {
	if !offer.HasDiscount || offer.DiscountPercent <= 0 {
		return 20
	}

	pair := s.categoryThresholds(offer.Category)
	discount := float64(offer.DiscountPercent)
	great := float64(pair.Great)
	good := float64(pair.Good)

	switch {
	case discount >= 1.5*great:
		return 100
	case discount >= great:
		return 85
	case discount >= good:
		return 70
	case discount >= good/2:
		return 50
	default:
		return 35
	}
}

// categoryThresholds walks the hierarchy from its most specific segment
// outward, so "laptops" beats "electronics" for
// "Electronics > Computers > Laptops". Plural variants of each segment are
// tolerated.
func (s *Scorer) categoryThresholds(category string) config.ThresholdPair {
	segments := strings.Split(strings.ToLower(category), ">")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		if seg == "" || seg == "default" {
			continue
		}
		for _, candidate := range []string{seg, seg + "s", strings.TrimSuffix(seg, "s")} {
			if candidate == "" {
				continue
			}
			if pair, ok := s.thresholds[candidate]; ok {
				return pair
			}
		}
	}
	if pair, ok := s.thresholds["default"]; ok {
		return pair
	}
	return config.ThresholdPair{Great: 30, Good: 15}
}

func qualityScore(raw domain.RawOffer) int {
	score := 50

	if raw.Rating > 0 {
		switch {
		case raw.Rating >= 4.5:
			score += 30
		case raw.Rating >= 4.0:
			score += 20
		case raw.Rating >= 3.5:
			score += 5
		case raw.Rating < 3.0:
			score -= 20
		}
	}

	if raw.ReviewCount > 0 {
		switch {
		case raw.ReviewCount >= 1000:
			score += 15
		case raw.ReviewCount >= 500:
			score += 10
		case raw.ReviewCount >= 100:
			score += 5
		case raw.ReviewCount < 10:
			score -= 10
		}
	}

	return clamp(score)
}

func freshnessScore(raw domain.RawOffer, now time.Time) int {
	score := 50

	if !raw.FetchedAt.IsZero() {
		days := now.Sub(raw.FetchedAt).Hours() / 24
		switch {
		case days <= 1:
			score += 30
		case days <= 3:
			score += 20
		case days <= 7:
			score += 10
		case days > 30:
			score -= 15
		}
	}

	switch raw.Stock {
	case domain.StockLowStock:
		score += 10
	case domain.StockOutOfStock:
		score -= 40
	}

	return clamp(score)
}

// squashKey lowercases and drops everything but letters and digits so that
// "Best Buy" and "B&H Photo" hit the "bestbuy"/"bhphoto" trust keys.
func squashKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Scorer) trustScore(offer domain.CanonicalOffer) int {
	score, ok := s.trust[strings.ToLower(offer.Marketplace)]
	if !ok {
		score, ok = s.trust[squashKey(offer.Marketplace)]
	}
	if !ok {
		score, ok = s.trust[squashKey(offer.Raw.Merchant)]
	}
	if !ok {
		if d, has := s.trust["default"]; has {
			score = d
		} else {
			score = 60
		}
	}

	if offer.Raw.SellerRating >= 4.5 {
		score += 5
	} else if offer.Raw.SellerRating > 0 && offer.Raw.SellerRating < 3.5 {
		score -= 15
	}

	return clamp(score)
}

func engagementScore(raw domain.RawOffer) int {
	score := 50

	switch {
	case raw.Views >= 1000:
		score += 20
	case raw.Views >= 500:
		score += 10
	}

	switch {
	case raw.Saves >= 100:
		score += 25
	case raw.Saves >= 50:
		score += 15
	case raw.Saves >= 20:
		score += 5
	}

	return clamp(score)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
