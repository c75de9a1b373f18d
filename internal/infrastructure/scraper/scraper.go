// Package scraper implements the HTML source adapter. Extraction is driven
// by a site-specific selector profile; no browser automation is involved.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/source"
	"DealRadar/internal/ports"
)

const requestTimeout = 30 * time.Second

var (
	priceExpr      = regexp.MustCompile(`(\d{1,5}(?:,\d{3})*(?:\.\d{2})?)`)
	outOfStockExpr = regexp.MustCompile(`(?i)out of stock|sold out|unavailable`)
	lowStockExpr   = regexp.MustCompile(`(?i)only\s+\d+\s+left|low stock`)
)

// Profile maps the extraction points of one site to CSS selectors.
type Profile struct {
	Container     string
	Title         string
	Price         string
	OriginalPrice string
	Image         string
	Link          string
	InStock       string
}

// ProfileFromMap builds a Profile from the config selector map.
func ProfileFromMap(m map[string]string) Profile {
	return Profile{
		Container:     m["container"],
		Title:         m["title"],
		Price:         m["price"],
		OriginalPrice: m["originalPrice"],
		Image:         m["image"],
		Link:          m["link"],
		InStock:       m["inStock"],
	}
}

// Adapter scrapes one deal site with a rotating user agent.
type Adapter struct {
	name       string
	pageURL    string
	category   string
	profile    Profile
	client     *http.Client
	throttle   *source.Throttle
	agents     *source.UserAgentPool
	pollPeriod time.Duration
	logger     *slog.Logger
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// Options configures an Adapter beyond its name, URL and profile.
type Options struct {
	Category    string
	MinInterval time.Duration
	PollPeriod  time.Duration
	Client      *http.Client
	Logger      *slog.Logger
}

// New builds a scraper adapter.
func New(name, pageURL string, profile Profile, opts Options) *Adapter {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	poll := opts.PollPeriod
	if poll <= 0 {
		poll = 30 * time.Minute
	}
	return &Adapter{
		name:       name,
		pageURL:    pageURL,
		category:   opts.Category,
		profile:    profile,
		client:     client,
		throttle:   source.NewThrottle(opts.MinInterval),
		agents:     &source.UserAgentPool{},
		pollPeriod: poll,
		logger:     opts.Logger,
	}
}

// Name identifies the adapter inside the registry.
func (a *Adapter) Name() string { return a.name }

// MinInterval is the rate-limit floor between page requests.
func (a *Adapter) MinInterval() time.Duration { return a.throttle.MinInterval() }

// PollPeriod is how often the scheduler should scrape this site.
func (a *Adapter) PollPeriod() time.Duration { return a.pollPeriod }

// Fetch downloads the page and extracts offers with the selector profile.
// Zero selector matches is a valid empty batch, not a failure.
func (a *Adapter) Fetch(ctx context.Context) domain.FetchResult {
	return a.scrape(ctx, a.pageURL)
}

// Search appends the query to the page URL; sites without a search endpoint
// simply return the landing page filtered client-side.
func (a *Adapter) Search(ctx context.Context, query, category string) domain.FetchResult {
	result := a.scrape(ctx, a.pageURL)
	if !result.Ok() || query == "" {
		return result
	}

	needle := strings.ToLower(query)
	filtered := result.Offers[:0]
	for _, offer := range result.Offers {
		if strings.Contains(strings.ToLower(offer.Title), needle) {
			filtered = append(filtered, offer)
		}
	}
	return domain.FetchResult{Offers: filtered}
}

func (a *Adapter) scrape(ctx context.Context, pageURL string) domain.FetchResult {
	if err := a.throttle.Wait(ctx); err != nil {
		return domain.FetchResult{Err: domain.Transient("rate wait: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.FetchResult{Err: domain.Permanent("build request: %v", err)}
	}
	req.Header.Set("User-Agent", a.agents.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.FetchResult{Err: domain.Transient("fetch page: %v", err)}
	}
	defer resp.Body.Close()

	if upstreamErr := source.ClassifyStatus(resp.StatusCode); upstreamErr != nil {
		return domain.FetchResult{Err: upstreamErr}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.FetchResult{Err: domain.ParseFailure("parse page %s: %v", a.name, err)}
	}

	pageStock := detectStock(doc.Text())
	now := time.Now().UTC()

	var offers []domain.RawOffer
	doc.Find(a.profile.Container).Each(func(i int, sel *goquery.Selection) {
		offer, ok := a.extract(sel, pageStock, now)
		if ok {
			offers = append(offers, offer)
		}
	})

	a.debug("page scraped", "url", pageURL, "offers", len(offers))
	return domain.FetchResult{Offers: offers}
}

func (a *Adapter) extract(sel *goquery.Selection, pageStock domain.StockStatus, now time.Time) (domain.RawOffer, bool) {
	title := strings.TrimSpace(sel.Find(a.profile.Title).First().Text())
	if title == "" {
		return domain.RawOffer{}, false
	}

	price, ok := parsePrice(sel.Find(a.profile.Price).First().Text())
	if !ok {
		return domain.RawOffer{}, false
	}

	offer := domain.RawOffer{
		Title:        title,
		CurrentPrice: price,
		Currency:     "USD",
		Category:     a.category,
		Condition:    domain.ConditionNew,
		Stock:        pageStock,
		Source:       a.name,
		FetchedAt:    now,
	}

	if a.profile.OriginalPrice != "" {
		if orig, ok := parsePrice(sel.Find(a.profile.OriginalPrice).First().Text()); ok {
			offer.OriginalPrice = orig
		}
	}
	if a.profile.Image != "" {
		offer.ImageURL, _ = sel.Find(a.profile.Image).First().Attr("src")
	}
	if a.profile.Link != "" {
		if href, exists := sel.Find(a.profile.Link).First().Attr("href"); exists {
			offer.URL = href
			offer.ExternalID = href
		}
	}
	if offer.ExternalID == "" {
		offer.ExternalID = title
	}
	if a.profile.InStock != "" {
		offer.Stock = detectStock(sel.Find(a.profile.InStock).First().Text())
	}

	return offer, true
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

// detectStock classifies availability text; absence of any marker means
// in stock.
func detectStock(text string) domain.StockStatus {
	switch {
	case outOfStockExpr.MatchString(text):
		return domain.StockOutOfStock
	case lowStockExpr.MatchString(text):
		return domain.StockLowStock
	default:
		return domain.StockInStock
	}
}

func parsePrice(text string) (float64, bool) {
	m := priceExpr.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}
