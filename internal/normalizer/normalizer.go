package normalizer

import (
	"math"
	"sort"
	"strings"

	"DealRadar/internal/config"
	"DealRadar/internal/domain"
)

const fingerprintTokenCap = 5

// Normalizer maps raw offers onto the canonical schema using the curated
// lookup tables loaded at startup. Normalize is pure: same input, same output.
type Normalizer struct {
	brands       brandIndex
	categories   map[string]string
	categoryKeys []string
	marketplaces map[string]string
	marketKeys   []string
}

// New builds a Normalizer from configuration tables.
func New(tables config.TablesConfig) *Normalizer {
	n := &Normalizer{
		brands:       newBrandIndex(tables.BrandAliases),
		categories:   map[string]string{},
		marketplaces: map[string]string{},
	}
	for k, v := range tables.Categories {
		n.categories[strings.ToLower(k)] = v
	}
	for k, v := range tables.Marketplaces {
		n.marketplaces[strings.ToLower(k)] = v
	}
	// Sorted key slices keep substring matching deterministic.
	for k := range n.categories {
		n.categoryKeys = append(n.categoryKeys, k)
	}
	sort.Strings(n.categoryKeys)
	for k := range n.marketplaces {
		n.marketKeys = append(n.marketKeys, k)
	}
	sort.Strings(n.marketKeys)
	return n
}

// Normalize converts a RawOffer into canonical form, or reports it malformed.
func (n *Normalizer) Normalize(raw domain.RawOffer) (domain.CanonicalOffer, error) {
	title := CleanTitle(raw.Title)
	if title == "" {
		return domain.CanonicalOffer{}, domain.Malformed("empty title after cleaning")
	}

	if raw.CurrentPrice < 0 || math.IsNaN(raw.CurrentPrice) || math.IsInf(raw.CurrentPrice, 0) {
		return domain.CanonicalOffer{}, domain.Malformed("unusable price %v", raw.CurrentPrice)
	}

	currency, ok := canonicalCurrency(raw.Currency)
	if !ok {
		return domain.CanonicalOffer{}, domain.Malformed("unparseable currency %q", raw.Currency)
	}
	raw.Currency = currency

	offer := domain.CanonicalOffer{
		Raw:         raw,
		Title:       title,
		Brand:       n.brands.resolve(raw.Brand, title),
		Model:       ExtractModel(title),
		Category:    n.canonicalCategory(raw.Category),
		Marketplace: n.canonicalMarketplace(raw.Merchant),
	}

	if raw.OriginalPrice > raw.CurrentPrice && raw.OriginalPrice > 0 {
		pct := int(math.Round(100 * (raw.OriginalPrice - raw.CurrentPrice) / raw.OriginalPrice))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		offer.DiscountPercent = pct
		offer.HasDiscount = true
	}

	offer.Fingerprint = Fingerprint(offer.Brand, offer.Model, title)
	return offer, nil
}

// Fingerprint derives the deterministic product-identity key from canonical
// brand, model token and the significant title tokens.
func Fingerprint(brand, model, title string) string {
	parts := []string{strings.ToLower(brand), strings.ToLower(model)}
	parts = append(parts, significantTokens(title, fingerprintTokenCap)...)
	return strings.Join(parts, "|")
}

func (n *Normalizer) canonicalCategory(raw string) string {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return "Uncategorized"
	}
	for _, key := range n.categoryKeys {
		if strings.Contains(needle, key) {
			return n.categories[key]
		}
	}
	return titlecaseFallback(needle)
}

func (n *Normalizer) canonicalMarketplace(merchant string) string {
	needle := strings.ToLower(strings.TrimSpace(merchant))
	if needle == "" {
		return "Unknown"
	}
	for _, key := range n.marketKeys {
		if strings.Contains(needle, key) {
			return n.marketplaces[key]
		}
	}
	return strings.TrimSpace(merchant)
}

func titlecaseFallback(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titlecaseWord(w)
	}
	return strings.Join(words, " ")
}

func canonicalCurrency(raw string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if len(c) != 3 {
		return "", false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return c, true
}
