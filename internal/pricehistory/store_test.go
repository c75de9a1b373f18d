package pricehistory

import (
	"math"
	"testing"
	"time"

	"DealRadar/internal/domain"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func point(fp string, price float64, daysAgo int) domain.PricePoint {
	return domain.PricePoint{
		Fingerprint: fp,
		Price:       price,
		Source:      "amazon",
		ObservedAt:  testNow.AddDate(0, 0, -daysAgo),
	}
}

func TestAppendKeepsChronologicalOrder(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("fp", 100, 1))
	s.Append(point("fp", 90, 5))
	s.Append(point("fp", 95, 3))

	series := s.SeriesFor("fp", time.Time{})
	if len(series) != 3 {
		t.Fatalf("got %d points, want 3", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i].ObservedAt.Before(series[i-1].ObservedAt) {
			t.Fatalf("series out of order at %d: %v before %v", i, series[i].ObservedAt, series[i-1].ObservedAt)
		}
	}
	if series[0].Price != 90 || series[2].Price != 100 {
		t.Fatalf("unexpected ordering: %v", series)
	}
}

func TestAppendIgnoresEmptyFingerprint(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(domain.PricePoint{Price: 10, ObservedAt: testNow})
	if got := len(s.Fingerprints()); got != 0 {
		t.Fatalf("got %d fingerprints, want 0", got)
	}
}

func TestSeriesForSince(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("fp", 100, 20))
	s.Append(point("fp", 95, 10))
	s.Append(point("fp", 90, 1))

	got := s.SeriesFor("fp", testNow.AddDate(0, 0, -15))
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].Price != 95 {
		t.Fatalf("first point price = %v, want 95", got[0].Price)
	}
}

func TestStatsNoHistory(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	stats := s.statsAt("missing", 49.99, testNow)

	if stats.Lowest != 49.99 || stats.Highest != 49.99 || stats.Average30d != 49.99 {
		t.Fatalf("aggregates should equal current price: %+v", stats)
	}
	if !stats.IsAtAllTimeLow {
		t.Fatal("first observation must count as all-time low")
	}
	if stats.Confidence != 20 {
		t.Fatalf("confidence = %d, want 20", stats.Confidence)
	}
	if stats.SampleCount != 0 {
		t.Fatalf("sample count = %d, want 0", stats.SampleCount)
	}
}

func TestStatsSteadyDecline(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("mbp", 1299, 60))
	s.Append(point("mbp", 1249, 40))
	s.Append(point("mbp", 1199, 20))
	s.Append(point("mbp", 1149, 10))

	stats := s.statsAt("mbp", 1099, testNow)

	if stats.Lowest != 1149 {
		t.Fatalf("lowest = %v, want 1149", stats.Lowest)
	}
	if stats.Highest != 1299 {
		t.Fatalf("highest = %v, want 1299", stats.Highest)
	}
	if !stats.IsAtAllTimeLow {
		t.Fatal("1099 is below the historical low, must read as all-time low")
	}
	if want := (1199.0 + 1149.0) / 2; math.Abs(stats.Average30d-want) > 1e-9 {
		t.Fatalf("average30d = %v, want %v", stats.Average30d, want)
	}
	if stats.Change30dPct >= 0 {
		t.Fatalf("change30d = %v, want negative", stats.Change30dPct)
	}
	if stats.Confidence != 40 {
		t.Fatalf("confidence = %d, want 40", stats.Confidence)
	}
}

func TestStatsAllTimeLowTolerance(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("fp", 100, 10))

	// Within 2% of the historical low still counts.
	if !s.statsAt("fp", 101.5, testNow).IsAtAllTimeLow {
		t.Fatal("101.5 vs low 100 should be within tolerance")
	}
	if s.statsAt("fp", 102.5, testNow).IsAtAllTimeLow {
		t.Fatal("102.5 vs low 100 should be outside tolerance")
	}
}

func TestConfidenceScalesWithSamples(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	for i := 0; i < 30; i++ {
		s.Append(point("fp", 100, i))
	}
	stats := s.statsAt("fp", 100, testNow)
	if stats.Confidence != 100 {
		t.Fatalf("confidence = %d, want capped at 100", stats.Confidence)
	}
}

func TestPruneDropsOldPoints(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("a", 100, 200))
	s.Append(point("a", 95, 5))
	s.Append(point("b", 50, 400))

	removed := s.Prune(testNow.AddDate(0, 0, -180))
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if got := s.Fingerprints(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("fingerprints = %v, want [a]", got)
	}
	if got := s.SeriesFor("a", time.Time{}); len(got) != 1 || got[0].Price != 95 {
		t.Fatalf("surviving series = %v", got)
	}
}

func TestPredictSaleEventWindow(t *testing.T) {
	t.Parallel()

	s := New(1.02, []domain.SaleEvent{
		{Name: "Black Friday", Month: 10, Day: 25, WindowDays: 10, ExpectedDiscount: 25},
		{Name: "Cyber Monday", Month: 10, Day: 28, WindowDays: 12, ExpectedDiscount: 22},
	})

	now := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	pred := s.Predict("anything", now)

	if pred.Direction != domain.TrendFalling {
		t.Fatalf("direction = %q, want %q", pred.Direction, domain.TrendFalling)
	}
	if pred.Direction != "down" {
		t.Fatalf("falling trend must serialize as %q, got %q", "down", pred.Direction)
	}
	if pred.ExpectedChangePct != 25 {
		t.Fatalf("expected change = %v, want 25", pred.ExpectedChangePct)
	}
	if pred.Confidence != 70 {
		t.Fatalf("confidence = %d, want 70", pred.Confidence)
	}
	if pred.SuggestedWaitDays != 10 {
		t.Fatalf("wait days = %d, want 10", pred.SuggestedWaitDays)
	}
	if pred.Event != "Black Friday" {
		t.Fatalf("event = %q, want Black Friday", pred.Event)
	}
}

func TestPredictThinSeriesIsStable(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("fp", 100, 3))
	s.Append(point("fp", 98, 2))
	s.Append(point("fp", 96, 1))

	pred := s.Predict("fp", testNow)
	if pred.Direction != domain.TrendStable {
		t.Fatalf("direction = %q, want stable", pred.Direction)
	}
	if pred.Confidence != 10 {
		t.Fatalf("confidence = %d, want 10", pred.Confidence)
	}
}

func TestPredictFallingTrend(t *testing.T) {
	t.Parallel()

	s := New(1.02, nil)
	s.Append(point("fp", 450, 30))
	s.Append(point("fp", 430, 25))
	prices := []float64{400, 385, 370, 355, 340, 325, 310, 300}
	for i, price := range prices {
		s.Append(point("fp", price, 7-i))
	}

	pred := s.Predict("fp", testNow)
	if pred.Direction != domain.TrendFalling {
		t.Fatalf("direction = %q, want falling", pred.Direction)
	}
	if pred.ExpectedChangePct >= 0 {
		t.Fatalf("expected change = %v, want negative", pred.ExpectedChangePct)
	}
	if pred.SuggestedWaitDays != 7 {
		t.Fatalf("wait days = %d, want 7", pred.SuggestedWaitDays)
	}
	if pred.Confidence > 80 {
		t.Fatalf("confidence = %d, want <= 80", pred.Confidence)
	}
}

func TestPredictNoEventOutsideWindow(t *testing.T) {
	t.Parallel()

	s := New(1.02, []domain.SaleEvent{
		{Name: "Black Friday", Month: 10, Day: 25, WindowDays: 10, ExpectedDiscount: 25},
	})

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pred := s.Predict("fp", now)
	if pred.Event != "" {
		t.Fatalf("event = %q, want none", pred.Event)
	}
	if pred.Direction != domain.TrendStable {
		t.Fatalf("direction = %q, want stable for empty series", pred.Direction)
	}
}
