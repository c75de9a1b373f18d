package scoring

import (
	"fmt"

	"DealRadar/internal/domain"
)

const maxInsights = 4

// insights derives up to four human-readable findings from the breakdown.
// Order is fixed so repeated scoring yields identical output.
func insights(offer domain.CanonicalOffer, b domain.ScoreBreakdown, stats *domain.PriceStats) []string {
	var out []string

	add := func(s string) {
		if len(out) < maxInsights {
			out = append(out, s)
		}
	}

	if stats != nil && stats.IsAtAllTimeLow {
		add("This is the lowest price we've ever tracked for this product.")
	}

	if b.PriceHistory <= 30 {
		add("Price is above the historical average; consider waiting.")
	}

	if offer.HasDiscount && b.Discount >= 85 {
		add(fmt.Sprintf("%d%% off is an unusually deep discount for %s.", offer.DiscountPercent, offer.Category))
	}

	if offer.Raw.Rating >= 4.5 && offer.Raw.ReviewCount >= 500 {
		add(fmt.Sprintf("Highly rated: %.1f stars across %d reviews.", offer.Raw.Rating, offer.Raw.ReviewCount))
	}

	if offer.Raw.Stock == domain.StockLowStock {
		add("Stock is running low at " + offer.Marketplace + ".")
	}

	if b.Trust <= 45 {
		add("Seller trust is below average; inspect before buying.")
	}

	if stats != nil && stats.Change30dPct <= -10 {
		add(fmt.Sprintf("Price dropped %.0f%% over the last 30 days.", -stats.Change30dPct))
	}

	return out
}
