// Package affiliate implements the affiliate-network source adapter. One
// Adapter instance serves one network; networks differ only in endpoint and
// authentication style, so a configuration struct replaces any hierarchy.
package affiliate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/source"
	"DealRadar/internal/ports"
)

const requestTimeout = 30 * time.Second

// AuthStyle selects how a network authenticates requests.
type AuthStyle string

const (
	AuthAPIKey  AuthStyle = "apikey"  // bearer key header
	AuthPartner AuthStyle = "partner" // key + partner id query params
	AuthHMAC    AuthStyle = "hmac"    // HMAC-SHA256 signed request
)

// Network describes one affiliate upstream.
type Network struct {
	Name      string
	BaseURL   string
	Style     AuthStyle
	APIKey    string
	PartnerID string
	Secret    string
}

// wireOffer is the neutral shape each network response is translated into.
type wireOffer struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	URL         string  `json:"url"`
	Price       float64 `json:"price"`
	ListPrice   float64 `json:"list_price"`
	Currency    string  `json:"currency"`
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category"`
	Condition   string  `json:"condition"`
	InStock     bool    `json:"in_stock"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"review_count"`
}

type wireResponse struct {
	Offers []wireOffer `json:"offers"`
}

// Adapter is the affiliate-network source adapter.
type Adapter struct {
	network    Network
	client     *http.Client
	throttle   *source.Throttle
	pollPeriod time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// Options configures an Adapter beyond its network.
type Options struct {
	MinInterval time.Duration
	PollPeriod  time.Duration
	Client      *http.Client
	Logger      *slog.Logger
}

// New builds an affiliate adapter for one network.
func New(network Network, opts Options) *Adapter {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	poll := opts.PollPeriod
	if poll <= 0 {
		poll = 15 * time.Minute
	}
	return &Adapter{
		network:    network,
		client:     client,
		throttle:   source.NewThrottle(opts.MinInterval),
		pollPeriod: poll,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Name identifies the adapter inside the registry.
func (a *Adapter) Name() string { return a.network.Name }

// MinInterval is the rate-limit floor between API requests.
func (a *Adapter) MinInterval() time.Duration { return a.throttle.MinInterval() }

// PollPeriod is how often the scheduler should poll this network.
func (a *Adapter) PollPeriod() time.Duration { return a.pollPeriod }

// Fetch pulls the network's current deals endpoint.
func (a *Adapter) Fetch(ctx context.Context) domain.FetchResult {
	return a.call(ctx, "/v1/deals", url.Values{})
}

// Search queries the network's product search endpoint.
func (a *Adapter) Search(ctx context.Context, query, category string) domain.FetchResult {
	params := url.Values{}
	params.Set("q", query)
	if category != "" {
		params.Set("category", category)
	}
	return a.call(ctx, "/v1/search", params)
}

func (a *Adapter) call(ctx context.Context, path string, params url.Values) domain.FetchResult {
	if err := a.throttle.Wait(ctx); err != nil {
		return domain.FetchResult{Err: domain.Transient("rate wait: %v", err)}
	}

	endpoint := strings.TrimSuffix(a.network.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.FetchResult{Err: domain.Permanent("build request: %v", err)}
	}
	a.authenticate(req, path, params)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.FetchResult{Err: domain.Transient("call %s: %v", a.network.Name, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.FetchResult{Err: domain.Permanent("auth rejected by %s (%d)", a.network.Name, resp.StatusCode)}
	}
	if upstreamErr := source.ClassifyStatus(resp.StatusCode); upstreamErr != nil {
		return domain.FetchResult{Err: upstreamErr}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return domain.FetchResult{Err: domain.Transient("read response: %v", err)}
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.FetchResult{Err: domain.Permanent("schema mismatch from %s: %v", a.network.Name, err)}
	}

	now := a.now().UTC()
	offers := make([]domain.RawOffer, 0, len(wire.Offers))
	for _, w := range wire.Offers {
		offers = append(offers, a.toRawOffer(w, now))
	}

	a.debug("network responded", "network", a.network.Name, "offers", len(offers))
	return domain.FetchResult{Offers: offers}
}

// authenticate applies the network's auth style and attaches query params.
func (a *Adapter) authenticate(req *http.Request, path string, params url.Values) {
	switch a.network.Style {
	case AuthPartner:
		params.Set("api_key", a.network.APIKey)
		params.Set("partner_id", a.network.PartnerID)
	case AuthHMAC:
		ts := strconv.FormatInt(a.now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(a.network.Secret))
		fmt.Fprintf(mac, "%s\n%s\n%s", req.Method, path, ts)
		req.Header.Set("X-Partner-Id", a.network.PartnerID)
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	default:
		req.Header.Set("Authorization", "Bearer "+a.network.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = params.Encode()
}

func (a *Adapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Adapter) toRawOffer(w wireOffer, now time.Time) domain.RawOffer {
	stock := domain.StockInStock
	if !w.InStock {
		stock = domain.StockOutOfStock
	}

	merchant := w.Merchant
	if merchant == "" {
		merchant = a.network.Name
	}
	currency := w.Currency
	if currency == "" {
		currency = "USD"
	}

	return domain.RawOffer{
		ExternalID:    w.ID,
		Title:         w.Title,
		Brand:         w.Brand,
		Description:   w.Description,
		ImageURL:      w.ImageURL,
		URL:           w.URL,
		CurrentPrice:  w.Price,
		OriginalPrice: w.ListPrice,
		Currency:      currency,
		Merchant:      merchant,
		Category:      w.Category,
		Condition:     parseCondition(w.Condition),
		Stock:         stock,
		Rating:        w.Rating,
		ReviewCount:   w.Reviews,
		Source:        a.network.Name,
		FetchedAt:     now,
	}
}

func parseCondition(s string) domain.Condition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "used":
		return domain.ConditionUsed
	case "refurbished", "renewed":
		return domain.ConditionRefurbished
	case "like-new", "like new", "open-box", "open box":
		return domain.ConditionLikeNew
	default:
		return domain.ConditionNew
	}
}
