// Package dedup collapses canonical offers that describe the same product.
// Exact duplicates share a fingerprint; near-duplicates share a brand and a
// high Jaccard similarity over title tokens.
package dedup

import (
	"sort"
	"strings"

	"DealRadar/internal/domain"
)

// Deduper holds the fuzzy-match cutoff. The default 0.85 collapses format
// variants while keeping results reproducible.
type Deduper struct {
	similarityThreshold float64
}

// New builds a Deduper; threshold <= 0 falls back to 0.85.
func New(threshold float64) *Deduper {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Deduper{similarityThreshold: threshold}
}

// Collapse reduces a batch to its winning representatives. The output never
// contains two offers with the same fingerprint, and no two offers of the
// same brand whose titles exceed the similarity cutoff.
func (d *Deduper) Collapse(offers []domain.CanonicalOffer) []domain.CanonicalOffer {
	if len(offers) <= 1 {
		return offers
	}

	// Hash prefilter: exact fingerprint matches collapse in one pass.
	byFingerprint := map[string]domain.CanonicalOffer{}
	var order []string
	for _, offer := range offers {
		current, ok := byFingerprint[offer.Fingerprint]
		if !ok {
			byFingerprint[offer.Fingerprint] = offer
			order = append(order, offer.Fingerprint)
			continue
		}
		byFingerprint[offer.Fingerprint] = pickWinner(current, offer)
	}

	candidates := make([]domain.CanonicalOffer, 0, len(order))
	for _, fp := range order {
		candidates = append(candidates, byFingerprint[fp])
	}

	// Quadratic title-similarity pass over the survivors.
	removed := make([]bool, len(candidates))
	for i := 0; i < len(candidates); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if removed[j] {
				continue
			}
			if !d.sameProduct(candidates[i], candidates[j]) {
				continue
			}
			winner := pickWinner(candidates[i], candidates[j])
			if winner.Fingerprint == candidates[i].Fingerprint && winner.Raw.Source == candidates[i].Raw.Source && winner.Raw.ExternalID == candidates[i].Raw.ExternalID {
				removed[j] = true
			} else {
				candidates[i] = winner
				removed[j] = true
			}
		}
	}

	result := make([]domain.CanonicalOffer, 0, len(candidates))
	for i, offer := range candidates {
		if !removed[i] {
			result = append(result, offer)
		}
	}
	return result
}

func (d *Deduper) sameProduct(a, b domain.CanonicalOffer) bool {
	if a.Fingerprint == b.Fingerprint {
		return true
	}
	if a.Brand != b.Brand {
		return false
	}
	return Jaccard(a.Title, b.Title) > d.similarityThreshold
}

// Jaccard computes set similarity over whitespace-split, lowercased tokens.
// No stemming and no stopwords: the result must be reproducible.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

// pickWinner applies the lexicographic duplicate-selection priority: lower
// price, then presence of rating, then presence of review count, then the
// earlier fetch; alphabetical source name is the final deterministic tie-break.
func pickWinner(a, b domain.CanonicalOffer) domain.CanonicalOffer {
	switch {
	case a.Raw.CurrentPrice < b.Raw.CurrentPrice:
		return a
	case b.Raw.CurrentPrice < a.Raw.CurrentPrice:
		return b
	}

	if (a.Raw.Rating > 0) != (b.Raw.Rating > 0) {
		if a.Raw.Rating > 0 {
			return a
		}
		return b
	}

	if (a.Raw.ReviewCount > 0) != (b.Raw.ReviewCount > 0) {
		if a.Raw.ReviewCount > 0 {
			return a
		}
		return b
	}

	switch {
	case a.Raw.FetchedAt.Before(b.Raw.FetchedAt):
		return a
	case b.Raw.FetchedAt.Before(a.Raw.FetchedAt):
		return b
	}

	if sort.StringsAreSorted([]string{a.Raw.Source, b.Raw.Source}) {
		return a
	}
	return b
}
