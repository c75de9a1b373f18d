package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"DealRadar/internal/domain"
)

const samplePage = `<!DOCTYPE html>
<html><body>
<div class="deals">
  <div class="deal-card">
    <h3 class="deal-title">Sony WH-1000XM5 Headphones</h3>
    <span class="price">$278.00</span>
    <span class="was">$399.99</span>
    <a class="deal-link" href="/deal/sony-xm5">View</a>
    <span class="availability">In stock</span>
  </div>
  <div class="deal-card">
    <h3 class="deal-title">LG C3 65 OLED TV</h3>
    <span class="price">$1,299.99</span>
    <a class="deal-link" href="/deal/lg-c3">View</a>
    <span class="availability">Only 3 left!</span>
  </div>
  <div class="deal-card">
    <h3 class="deal-title">Missing price card</h3>
  </div>
</div>
</body></html>`

func testProfile() Profile {
	return ProfileFromMap(map[string]string{
		"container":     "div.deal-card",
		"title":         "h3.deal-title",
		"price":         "span.price",
		"originalPrice": "span.was",
		"link":          "a.deal-link",
		"inStock":       "span.availability",
	})
}

func pageServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("scrape request sent without a User-Agent")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsOffers(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, samplePage, http.StatusOK)
	a := New("techbargains", srv.URL, testProfile(), Options{Category: "electronics", MinInterval: time.Millisecond})

	result := a.Fetch(context.Background())
	if !result.Ok() {
		t.Fatalf("fetch: %v", result.Err)
	}
	if len(result.Offers) != 2 {
		t.Fatalf("got %d offers, want 2 (card without price dropped)", len(result.Offers))
	}

	sony := result.Offers[0]
	if sony.Title != "Sony WH-1000XM5 Headphones" {
		t.Fatalf("title = %q", sony.Title)
	}
	if sony.CurrentPrice != 278 || sony.OriginalPrice != 399.99 {
		t.Fatalf("prices = %v/%v", sony.CurrentPrice, sony.OriginalPrice)
	}
	if sony.URL != "/deal/sony-xm5" || sony.ExternalID != "/deal/sony-xm5" {
		t.Fatalf("link = %q/%q", sony.URL, sony.ExternalID)
	}
	if sony.Stock != domain.StockInStock {
		t.Fatalf("sony stock = %q, want in_stock", sony.Stock)
	}
	if sony.Source != "techbargains" || sony.Category != "electronics" {
		t.Fatalf("source/category = %q/%q", sony.Source, sony.Category)
	}

	lg := result.Offers[1]
	if lg.CurrentPrice != 1299.99 {
		t.Fatalf("lg price = %v", lg.CurrentPrice)
	}
	if lg.Stock != domain.StockLowStock {
		t.Fatalf("lg stock = %q, want low_stock", lg.Stock)
	}
}

func TestFetchZeroMatchesIsEmptyBatch(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, "<html><body><p>nothing here</p></body></html>", http.StatusOK)
	a := New("site", srv.URL, testProfile(), Options{MinInterval: time.Millisecond})

	result := a.Fetch(context.Background())
	if !result.Ok() {
		t.Fatalf("fetch: %v", result.Err)
	}
	if len(result.Offers) != 0 {
		t.Fatalf("got %d offers, want 0", len(result.Offers))
	}
}

func TestFetchClassifiesStatus(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, "", http.StatusServiceUnavailable)
	a := New("site", srv.URL, testProfile(), Options{MinInterval: time.Millisecond})

	result := a.Fetch(context.Background())
	if result.Ok() {
		t.Fatal("fetch succeeded on 503")
	}
	if result.Err.Kind != domain.ErrTransientUpstream || !result.Err.Retryable {
		t.Fatalf("err = %+v, want retryable transient", result.Err)
	}
}

func TestSearchFiltersByTitle(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, samplePage, http.StatusOK)
	a := New("site", srv.URL, testProfile(), Options{MinInterval: time.Millisecond})

	result := a.Search(context.Background(), "oled", "")
	if !result.Ok() {
		t.Fatalf("search: %v", result.Err)
	}
	if len(result.Offers) != 1 || result.Offers[0].Title != "LG C3 65 OLED TV" {
		t.Fatalf("got %v, want only the TV", result.Offers)
	}
}

func TestDetectStock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want domain.StockStatus
	}{
		{"In stock, ships today", domain.StockInStock},
		{"Currently OUT OF STOCK", domain.StockOutOfStock},
		{"Sold out", domain.StockOutOfStock},
		{"Only 2 left in stock", domain.StockLowStock},
		{"low stock warning", domain.StockLowStock},
		{"", domain.StockInStock},
	}
	for _, tc := range cases {
		if got := detectStock(tc.in); got != tc.want {
			t.Errorf("detectStock(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$278.00", 278, true},
		{"1,299.99", 1299.99, true},
		{"  $45 ", 45, true},
		{"call for price", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePrice(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parsePrice(%q) = %v/%v, want %v/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
