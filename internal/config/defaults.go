package config

import "DealRadar/internal/domain"

// Default returns the compiled-in configuration: all curated tables plus
// conservative engine settings. File configuration is merged over this.
func Default() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		API:       APIConfig{Addr: ":8080"},
		Storage:   StorageConfig{Backend: "memory"},
		Scheduler: SchedulerConfig{TickIntervalSeconds: 60},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{
				PriceHistory: 30,
				Discount:     20,
				Quality:      20,
				Freshness:    15,
				Trust:        10,
				Engagement:   5,
			},
			VerdictThresholds: VerdictThresholdsConfig{Incredible: 85, Great: 70, Good: 55, Fair: 40},
		},
		Dedup:        DedupConfig{SimilarityThreshold: 0.85},
		PriceHistory: PriceHistoryConfig{AllTimeLowTolerance: 1.02, ArchiveDays: 180},
		Sources: []SourceConfig{
			{Kind: "affiliate", Name: "amazon", Enabled: true, IntervalMinutes: 15, RateLimitPerMinute: 60},
			{Kind: "affiliate", Name: "ebay", Enabled: true, IntervalMinutes: 15, RateLimitPerMinute: 60},
			{Kind: "rss", Name: "slickdeals-frontpage", Enabled: true, IntervalMinutes: 10, RateLimitPerMinute: 30,
				URL: "https://slickdeals.net/newsearch.php?mode=frontpage&rss=1", Category: "electronics"},
			{Kind: "submission", Name: "user-submissions", Enabled: true, IntervalMinutes: 5, RateLimitPerMinute: 600},
		},
		Tables: TablesConfig{
			RetailerTrust:      defaultRetailerTrust(),
			CategoryThresholds: defaultCategoryThresholds(),
			BrandAliases:       defaultBrandAliases(),
			Marketplaces:       defaultMarketplaces(),
			Categories:         defaultCategories(),
			SaleEvents:         defaultSaleEvents(),
		},
	}
}

func defaultRetailerTrust() map[string]int {
	return map[string]int{
		"amazon":               85,
		"bestbuy":              88,
		"walmart":              82,
		"target":               84,
		"costco":               92,
		"newegg":               80,
		"bhphoto":              90,
		"apple":                95,
		"samsung":              88,
		"dell":                 85,
		"hp":                   83,
		"ebay":                 65,
		"facebook marketplace": 40,
		"craigslist":           35,
		"offerup":              45,
		"swappa":               75,
		"woot":                 78,
		"default":              60,
	}
}

func defaultCategoryThresholds() map[string]ThresholdPair {
	return map[string]ThresholdPair{
		"electronics": {Great: 30, Good: 15},
		"laptops":     {Great: 25, Good: 12},
		"smartphones": {Great: 20, Good: 10},
		"audio":       {Great: 35, Good: 20},
		"appliances":  {Great: 30, Good: 15},
		"gaming":      {Great: 25, Good: 12},
		"tvs":         {Great: 35, Good: 20},
		"clothing":    {Great: 50, Good: 30},
		"shoes":       {Great: 40, Good: 25},
		"default":     {Great: 30, Good: 15},
	}
}

// defaultBrandAliases maps the 16 curated canonical tech brands to the
// variants seen in upstream feeds.
func defaultBrandAliases() map[string][]string {
	return map[string][]string{
		"Apple":     {"apple", "apple inc", "apple inc.", "apple computer"},
		"Samsung":   {"samsung", "samsung electronics"},
		"Sony":      {"sony", "sony corporation", "sony electronics"},
		"LG":        {"lg", "lg electronics"},
		"Dell":      {"dell", "dell technologies", "dell inc"},
		"HP":        {"hp", "hewlett-packard", "hewlett packard"},
		"Lenovo":    {"lenovo"},
		"Asus":      {"asus", "asustek"},
		"Acer":      {"acer"},
		"Microsoft": {"microsoft", "msft"},
		"Google":    {"google", "google llc"},
		"Bose":      {"bose"},
		"JBL":       {"jbl", "jbl by harman"},
		"Nintendo":  {"nintendo"},
		"Logitech":  {"logitech", "logi"},
		"Anker":     {"anker", "anker innovations"},
	}
}

func defaultMarketplaces() map[string]string {
	return map[string]string{
		"amazon":     "Amazon",
		"bestbuy":    "Best Buy",
		"best buy":   "Best Buy",
		"walmart":    "Walmart",
		"target":     "Target",
		"costco":     "Costco",
		"newegg":     "Newegg",
		"bhphoto":    "B&H Photo",
		"b&h":        "B&H Photo",
		"ebay":       "eBay",
		"woot":       "Woot",
		"swappa":     "Swappa",
		"offerup":    "OfferUp",
		"craigslist": "Craigslist",
		"facebook":   "Facebook Marketplace",
	}
}

// defaultCategories maps lowercase source category substrings to the
// standardized hierarchy.
func defaultCategories() map[string]string {
	return map[string]string{
		"laptop":     "Electronics > Computers > Laptops",
		"notebook":   "Electronics > Computers > Laptops",
		"desktop":    "Electronics > Computers > Desktops",
		"computer":   "Electronics > Computers",
		"phone":      "Electronics > Mobile > Smartphones",
		"smartphone": "Electronics > Mobile > Smartphones",
		"tablet":     "Electronics > Mobile > Tablets",
		"headphone":  "Electronics > Audio > Headphones",
		"earbud":     "Electronics > Audio > Earbuds",
		"speaker":    "Electronics > Audio > Speakers",
		"audio":      "Electronics > Audio",
		"tv":         "Electronics > TVs",
		"television": "Electronics > TVs",
		"monitor":    "Electronics > Displays > Monitors",
		"camera":     "Electronics > Cameras",
		"gaming":     "Electronics > Gaming",
		"console":    "Electronics > Gaming > Consoles",
		"smartwatch": "Electronics > Wearables > Smartwatches",
		"wearable":   "Electronics > Wearables",
		"appliance":  "Home > Appliances",
		"electronic": "Electronics",
	}
}

// defaultSaleEvents uses 0-indexed months (10 = November).
func defaultSaleEvents() []domain.SaleEvent {
	return []domain.SaleEvent{
		{Name: "Black Friday", Month: 10, Day: 25, WindowDays: 10, ExpectedDiscount: 25},
		{Name: "Cyber Monday", Month: 10, Day: 28, WindowDays: 12, ExpectedDiscount: 22},
		{Name: "Prime Day", Month: 6, Day: 12, WindowDays: 7, ExpectedDiscount: 20},
		{Name: "Memorial Day", Month: 4, Day: 27, WindowDays: 7, ExpectedDiscount: 15},
		{Name: "Labor Day", Month: 8, Day: 1, WindowDays: 7, ExpectedDiscount: 15},
	}
}
