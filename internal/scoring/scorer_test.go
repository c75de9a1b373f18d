package scoring

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"DealRadar/internal/config"
	"DealRadar/internal/domain"
)

var scoreNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	cfg := config.Default()
	return New(cfg.Scoring, cfg.Tables)
}

func laptopOffer() domain.CanonicalOffer {
	return domain.CanonicalOffer{
		Title:           "Apple Macbook Pro 14",
		Brand:           "Apple",
		Category:        "Electronics > Computers > Laptops",
		Marketplace:     "Best Buy",
		Fingerprint:     "apple|512gb|apple|macbook|pro",
		HasDiscount:     true,
		DiscountPercent: 25,
		Raw: domain.RawOffer{
			Source:       "bestbuy",
			Merchant:     "bestbuy.com",
			CurrentPrice: 1749,
			Currency:     "USD",
			Rating:       4.7,
			ReviewCount:  1200,
			FetchedAt:    scoreNow.Add(-2 * time.Hour),
			Stock:        domain.StockInStock,
		},
	}
}

func TestScoreNoHistoryIsNeutral(t *testing.T) {
	t.Parallel()

	s := newTestScorer()
	scored := s.Score(laptopOffer(), nil, scoreNow)

	if scored.Breakdown.PriceHistory != 50 {
		t.Fatalf("price history subscore = %d, want 50 with no stats", scored.Breakdown.PriceHistory)
	}
	if scored.Score < 0 || scored.Score > 100 {
		t.Fatalf("score %d out of range", scored.Score)
	}
}

func TestScoreWeightedTotal(t *testing.T) {
	t.Parallel()

	s := newTestScorer()
	scored := s.Score(laptopOffer(), nil, scoreNow)

	b := scored.Breakdown
	want := (b.PriceHistory*30 + b.Discount*20 + b.Quality*20 + b.Freshness*15 + b.Trust*10 + b.Engagement*5 + 50) / 100
	// Round-half-up for non-negative totals.
	if scored.Score != want {
		t.Fatalf("score = %d, want %d from breakdown %+v", scored.Score, want, b)
	}
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	s := newTestScorer()
	offer := laptopOffer()
	stats := &domain.PriceStats{
		Current: 1749, Lowest: 1749, Highest: 1999,
		Average30d: 1850, SampleCount: 12, IsAtAllTimeLow: true, Confidence: 80,
	}

	first := s.Score(offer, stats, scoreNow)
	second := s.Score(offer, stats, scoreNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scoring not deterministic:\n  first=%+v\n  second=%+v", first, second)
	}
}

func TestAllTimeLowForcesBuyNow(t *testing.T) {
	t.Parallel()

	stats := &domain.PriceStats{IsAtAllTimeLow: true, SampleCount: 3}
	if got := recommendation(10, stats); got != domain.RecommendBuyNow {
		t.Fatalf("recommendation = %q, want buy_now at all-time low regardless of score", got)
	}
}

func TestRecommendationBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  domain.Recommendation
	}{
		{80, domain.RecommendBuyNow},
		{75, domain.RecommendBuyNow},
		{74, domain.RecommendWait},
		{50, domain.RecommendWait},
		{49, domain.RecommendSkip},
		{0, domain.RecommendSkip},
	}
	for _, tc := range cases {
		if got := recommendation(tc.score, nil); got != tc.want {
			t.Errorf("recommendation(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestVerdictThresholds(t *testing.T) {
	t.Parallel()

	s := newTestScorer()
	cases := []struct {
		score int
		want  domain.Verdict
	}{
		{100, domain.VerdictIncredible},
		{85, domain.VerdictIncredible},
		{84, domain.VerdictGreat},
		{70, domain.VerdictGreat},
		{69, domain.VerdictGood},
		{55, domain.VerdictGood},
		{54, domain.VerdictFair},
		{40, domain.VerdictFair},
		{39, domain.VerdictPoor},
		{0, domain.VerdictPoor},
	}
	for _, tc := range cases {
		if got := s.verdict(tc.score); got != tc.want {
			t.Errorf("verdict(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestPriceHistoryScore(t *testing.T) {
	t.Parallel()

	offerAt := func(price float64) domain.CanonicalOffer {
		o := laptopOffer()
		o.Raw.CurrentPrice = price
		return o
	}
	stats := &domain.PriceStats{
		Lowest: 1000, Highest: 2000, Average30d: 1500, SampleCount: 10,
	}

	cases := []struct {
		price float64
		want  int
	}{
		{1000, 85}, // at the all-time low
		{1020, 85}, // within 2% of the low
		{1040, 75}, // within 5% of the low
		{1300, 65}, // well under the 30-day average
		{1500, 50}, // exactly average
		{1650, 40}, // 10% above average
		{1999, 0},  // above average, close to the high
	}
	for _, tc := range cases {
		if got := priceHistoryScore(offerAt(tc.price), stats); got != tc.want {
			t.Errorf("priceHistoryScore(price=%v) = %d, want %d", tc.price, got, tc.want)
		}
	}
}

func TestDiscountScoreCategoryThresholds(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	offerWith := func(category string, discount int) domain.CanonicalOffer {
		o := laptopOffer()
		o.Category = category
		o.DiscountPercent = discount
		o.HasDiscount = discount > 0
		return o
	}

	// Laptops: great=25, good=12.
	cases := []struct {
		discount int
		want     int
	}{
		{40, 100},
		{25, 85},
		{12, 70},
		{6, 50},
		{3, 35},
		{0, 20},
	}
	for _, tc := range cases {
		got := s.discountScore(offerWith("Electronics > Computers > Laptops", tc.discount))
		if got != tc.want {
			t.Errorf("discountScore(laptops, %d%%) = %d, want %d", tc.discount, got, tc.want)
		}
	}

	// Clothing cuts are judged against deeper thresholds: 25% is merely good.
	if got := s.discountScore(offerWith("Clothing", 25)); got != 50 {
		t.Errorf("discountScore(clothing, 25%%) = %d, want 50", got)
	}

	// Unknown categories fall back to default thresholds (great=30, good=15).
	if got := s.discountScore(offerWith("Collectibles", 30)); got != 85 {
		t.Errorf("discountScore(default, 30%%) = %d, want 85", got)
	}
}

func TestTrustScoreLookup(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	trustFor := func(marketplace, merchant string, sellerRating float64) int {
		o := laptopOffer()
		o.Marketplace = marketplace
		o.Raw.Merchant = merchant
		o.Raw.SellerRating = sellerRating
		return s.trustScore(o)
	}

	if got := trustFor("Best Buy", "", 0); got != 88 {
		t.Errorf("Best Buy trust = %d, want 88", got)
	}
	if got := trustFor("B&H Photo", "", 0); got != 90 {
		t.Errorf("B&H Photo trust = %d, want 90", got)
	}
	if got := trustFor("", "costco", 0); got != 92 {
		t.Errorf("costco merchant trust = %d, want 92", got)
	}
	if got := trustFor("Some Shop", "someshop.example", 0); got != 60 {
		t.Errorf("unknown retailer trust = %d, want default 60", got)
	}
	if got := trustFor("eBay", "", 4.9); got != 70 {
		t.Errorf("eBay with strong seller = %d, want 65+5", got)
	}
	if got := trustFor("eBay", "", 2.5); got != 50 {
		t.Errorf("eBay with weak seller = %d, want 65-15", got)
	}
}

func TestFreshnessScore(t *testing.T) {
	t.Parallel()

	raw := domain.RawOffer{FetchedAt: scoreNow.Add(-time.Hour), Stock: domain.StockInStock}
	if got := freshnessScore(raw, scoreNow); got != 80 {
		t.Errorf("fresh in-stock = %d, want 80", got)
	}

	raw.Stock = domain.StockOutOfStock
	if got := freshnessScore(raw, scoreNow); got != 40 {
		t.Errorf("fresh out-of-stock = %d, want 40", got)
	}

	raw = domain.RawOffer{FetchedAt: scoreNow.AddDate(0, 0, -40), Stock: domain.StockLowStock}
	if got := freshnessScore(raw, scoreNow); got != 45 {
		t.Errorf("stale low-stock = %d, want 45", got)
	}
}

func TestInsightsOrderAndCap(t *testing.T) {
	t.Parallel()

	offer := laptopOffer()
	offer.Raw.Stock = domain.StockLowStock
	stats := &domain.PriceStats{IsAtAllTimeLow: true, Change30dPct: -15, SampleCount: 8}
	b := domain.ScoreBreakdown{PriceHistory: 85, Discount: 85, Trust: 40}

	out := insights(offer, b, stats)
	if len(out) > 4 {
		t.Fatalf("got %d insights, want at most 4", len(out))
	}
	if len(out) == 0 || !strings.Contains(out[0], "lowest price we've ever tracked") {
		t.Fatalf("first insight = %v, want all-time-low callout first", out)
	}

	again := insights(offer, b, stats)
	if !reflect.DeepEqual(out, again) {
		t.Fatalf("insights not deterministic: %v vs %v", out, again)
	}
}

func TestSubscoresStayInRange(t *testing.T) {
	t.Parallel()

	s := newTestScorer()
	offers := []domain.CanonicalOffer{
		laptopOffer(),
		{Title: "Bare", Raw: domain.RawOffer{CurrentPrice: 1}},
		{Title: "Maxed", HasDiscount: true, DiscountPercent: 90, Category: "Electronics",
			Raw: domain.RawOffer{CurrentPrice: 5, Rating: 5, ReviewCount: 5000, Views: 5000, Saves: 500, FetchedAt: scoreNow}},
	}
	for _, offer := range offers {
		scored := s.Score(offer, nil, scoreNow)
		for name, v := range map[string]int{
			"priceHistory": scored.Breakdown.PriceHistory,
			"discount":     scored.Breakdown.Discount,
			"quality":      scored.Breakdown.Quality,
			"freshness":    scored.Breakdown.Freshness,
			"trust":        scored.Breakdown.Trust,
			"engagement":   scored.Breakdown.Engagement,
			"total":        scored.Score,
		} {
			if v < 0 || v > 100 {
				t.Errorf("%s (%s) = %d out of [0,100]", name, offer.Title, v)
			}
		}
	}
}
