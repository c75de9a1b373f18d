// Package index holds the scored catalog keyed by fingerprint and answers
// the read-only query surface. Writes are last-writer-wins per fingerprint;
// readers always see complete records.
package index

import (
	"sort"
	"strings"
	"sync"

	"DealRadar/internal/domain"
)

// Index is safe for concurrent readers with exclusive writers.
type Index struct {
	mu     sync.RWMutex
	offers map[string]domain.ScoredOffer
}

// New returns an empty index.
func New() *Index {
	return &Index{offers: map[string]domain.ScoredOffer{}}
}

// Upsert stores the offer under its fingerprint, replacing any prior record.
func (ix *Index) Upsert(offer domain.ScoredOffer) {
	if offer.Offer.Fingerprint == "" {
		return
	}
	ix.mu.Lock()
	ix.offers[offer.Offer.Fingerprint] = offer
	ix.mu.Unlock()
}

// Remove drops a fingerprint from the catalog.
func (ix *Index) Remove(fingerprint string) {
	ix.mu.Lock()
	delete(ix.offers, fingerprint)
	ix.mu.Unlock()
}

// Len reports the number of indexed offers.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.offers)
}

// ByFingerprint answers a point query.
func (ix *Index) ByFingerprint(fp string) (domain.ScoredOffer, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	offer, ok := ix.offers[fp]
	return offer, ok
}

// Search matches query tokens case-insensitively against title, brand and
// category, optionally filtered to a category prefix. Results come back
// sorted by score descending.
func (ix *Index) Search(query, category string) []domain.ScoredOffer {
	tokens := strings.Fields(strings.ToLower(query))
	catPrefix := strings.ToLower(strings.TrimSpace(category))

	var out []domain.ScoredOffer
	ix.mu.RLock()
	for _, offer := range ix.offers {
		if catPrefix != "" && !strings.HasPrefix(strings.ToLower(offer.Offer.Category), catPrefix) {
			continue
		}
		if matchesTokens(offer, tokens) {
			out = append(out, offer)
		}
	}
	ix.mu.RUnlock()

	sortByScore(out)
	return out
}

// TopN returns the n highest-scoring offers across all categories.
func (ix *Index) TopN(n int) []domain.ScoredOffer {
	all := ix.All()
	if n < 0 {
		n = 0
	}
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// ByCategory returns offers whose canonical category begins with prefix.
func (ix *Index) ByCategory(prefix string) []domain.ScoredOffer {
	needle := strings.ToLower(strings.TrimSpace(prefix))

	var out []domain.ScoredOffer
	ix.mu.RLock()
	for _, offer := range ix.offers {
		if strings.HasPrefix(strings.ToLower(offer.Offer.Category), needle) {
			out = append(out, offer)
		}
	}
	ix.mu.RUnlock()

	sortByScore(out)
	return out
}

// All returns every indexed offer sorted by score descending.
func (ix *Index) All() []domain.ScoredOffer {
	ix.mu.RLock()
	out := make([]domain.ScoredOffer, 0, len(ix.offers))
	for _, offer := range ix.offers {
		out = append(out, offer)
	}
	ix.mu.RUnlock()

	sortByScore(out)
	return out
}

func matchesTokens(offer domain.ScoredOffer, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack := strings.ToLower(offer.Offer.Title + " " + offer.Offer.Brand + " " + offer.Offer.Category)
	for _, tok := range tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

// sortByScore orders by score descending with fingerprint as a stable
// tie-break so query results are reproducible.
func sortByScore(offers []domain.ScoredOffer) {
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].Score != offers[j].Score {
			return offers[i].Score > offers[j].Score
		}
		return offers[i].Offer.Fingerprint < offers[j].Offer.Fingerprint
	})
}
