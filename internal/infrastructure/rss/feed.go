// Package rss implements the feed source adapter. Response bodies are
// decoded as lenient XML: unknown elements are ignored, CDATA sections and
// HTML entities are decoded, malformed documents surface as parse errors.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/source"
	"DealRadar/internal/ports"
)

const (
	defaultUserAgent = "DealRadar/1.0 (+https://dealradar.example)"
	acceptHeader     = "application/rss+xml, application/xml, text/xml"
	requestTimeout   = 30 * time.Second
)

var priceExpr = regexp.MustCompile(`\$(\d{1,5}(?:,\d{3})*(?:\.\d{2})?)`)

type feedDocument struct {
	Channel struct {
		Items []feedItem `xml:"item"`
	} `xml:"channel"`
}

type feedItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

// Adapter polls one curated feed URL. The seen-link set persists across
// ticks of the same adapter so repeated items are skipped before they ever
// reach the global deduper.
type Adapter struct {
	name       string
	feedURL    string
	category   string
	userAgent  string
	client     *http.Client
	throttle   *source.Throttle
	pollPeriod time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// Options configures an Adapter beyond its name and URL.
type Options struct {
	Category    string
	UserAgent   string
	MinInterval time.Duration
	PollPeriod  time.Duration
	Client      *http.Client
	Logger      *slog.Logger
}

// New builds a feed adapter.
func New(name, feedURL string, opts Options) *Adapter {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	poll := opts.PollPeriod
	if poll <= 0 {
		poll = 10 * time.Minute
	}
	return &Adapter{
		name:       name,
		feedURL:    feedURL,
		category:   opts.Category,
		userAgent:  ua,
		client:     client,
		throttle:   source.NewThrottle(opts.MinInterval),
		pollPeriod: poll,
		logger:     opts.Logger,
		seen:       map[string]struct{}{},
	}
}

// Name identifies the adapter inside the registry.
func (a *Adapter) Name() string { return a.name }

// MinInterval is the rate-limit floor between feed requests.
func (a *Adapter) MinInterval() time.Duration { return a.throttle.MinInterval() }

// PollPeriod is how often the scheduler should pull this feed.
func (a *Adapter) PollPeriod() time.Duration { return a.pollPeriod }

// Fetch pulls the feed and converts unseen items into raw offers.
func (a *Adapter) Fetch(ctx context.Context) domain.FetchResult {
	items, fetchErr := a.pull(ctx)
	if fetchErr != nil {
		return domain.FetchResult{Err: fetchErr}
	}

	now := time.Now().UTC()
	offers := make([]domain.RawOffer, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if !a.markSeen(link) {
			continue
		}
		offers = append(offers, a.toRawOffer(item, now))
	}

	a.debug("feed fetched", "items", len(items), "new", len(offers))
	return domain.FetchResult{Offers: offers}
}

// Search filters the current feed contents by a case-insensitive query.
// The seen set is left untouched so a search never hides items from the
// next scheduled fetch.
func (a *Adapter) Search(ctx context.Context, query, category string) domain.FetchResult {
	items, fetchErr := a.pull(ctx)
	if fetchErr != nil {
		return domain.FetchResult{Err: fetchErr}
	}

	now := time.Now().UTC()
	needle := strings.ToLower(query)
	offers := make([]domain.RawOffer, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		offer := a.toRawOffer(item, now)
		if needle != "" && !strings.Contains(strings.ToLower(offer.Title), needle) {
			continue
		}
		if category != "" && !strings.EqualFold(offer.Category, category) {
			continue
		}
		offers = append(offers, offer)
	}
	return domain.FetchResult{Offers: offers}
}

// pull performs one throttled feed request and returns the parsed items.
func (a *Adapter) pull(ctx context.Context) ([]feedItem, *domain.UpstreamError) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, domain.Transient("rate wait: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL, nil)
	if err != nil {
		return nil, domain.Permanent("build request: %v", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, domain.Transient("fetch feed: %v", err)
	}
	defer resp.Body.Close()

	if upstreamErr := source.ClassifyStatus(resp.StatusCode); upstreamErr != nil {
		return nil, upstreamErr
	}

	items, err := parseFeed(resp.Body)
	if err != nil {
		return nil, domain.ParseFailure("parse feed %s: %v", a.name, err)
	}
	return items, nil
}

// CompactSeen truncates the seen set when it grows beyond limit; the
// maintenance job calls this so long-running processes keep bounded state.
func (a *Adapter) CompactSeen(limit int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.seen) > limit {
		a.seen = map[string]struct{}{}
	}
}

// markSeen records the link and reports whether it was new.
func (a *Adapter) markSeen(link string) bool {
	key := a.name + "|" + link
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.seen[key]; dup {
		return false
	}
	a.seen[key] = struct{}{}
	return true
}

func (a *Adapter) toRawOffer(item feedItem, now time.Time) domain.RawOffer {
	category := a.category
	if category == "" && len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	fetched := now
	if item.PubDate != "" {
		if t, err := parsePubDate(item.PubDate); err == nil {
			fetched = t
		}
	}

	price, hasPrice := extractPrice(item.Title)
	if !hasPrice {
		price, _ = extractPrice(item.Description)
	}

	return domain.RawOffer{
		ExternalID:   item.Link,
		Title:        strings.TrimSpace(item.Title),
		Description:  strings.TrimSpace(item.Description),
		URL:          item.Link,
		CurrentPrice: price,
		Currency:     "USD",
		Category:     category,
		Condition:    domain.ConditionNew,
		Stock:        domain.StockInStock,
		Source:       a.name,
		FetchedAt:    fetched,
	}
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

// parseFeed decodes RSS leniently: HTML entities resolve via the standard
// entity table and unknown elements fall away.
func parseFeed(r io.Reader) ([]feedItem, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc feedDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}
	return doc.Channel.Items, nil
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate %q", s)
}

// extractPrice pulls the first dollar amount out of free text.
func extractPrice(text string) (float64, bool) {
	m := priceExpr.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}
