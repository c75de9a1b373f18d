package domain

import "time"

// Condition enumerates the physical state of an offered product.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
	ConditionLikeNew     Condition = "like-new"
)

// StockStatus enumerates availability as reported or detected upstream.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// RawOffer is what a source adapter emits before any normalization.
type RawOffer struct {
	ExternalID    string
	Title         string
	Brand         string
	Description   string
	ImageURL      string
	URL           string
	CurrentPrice  float64
	OriginalPrice float64 // 0 means absent
	Currency      string
	Merchant      string
	Category      string
	Condition     Condition
	Stock         StockStatus
	Rating        float64 // 0 means absent
	ReviewCount   int     // 0 means absent
	SellerRating  float64 // 0 means absent
	Views         int
	Saves         int
	Source        string
	FetchedAt     time.Time
}

// CanonicalOffer is the normalized form the rest of the pipeline consumes.
type CanonicalOffer struct {
	Raw             RawOffer
	Title           string // cleaned and titlecased
	Brand           string
	Model           string // empty when no model token matched
	Category        string // canonical hierarchy, e.g. "Electronics > Computers > Laptops"
	Marketplace     string
	DiscountPercent int  // valid only when HasDiscount
	HasDiscount     bool // absent when original <= current
	Fingerprint     string
}

// ScoreBreakdown holds the six weighted subscores, each in [0,100].
type ScoreBreakdown struct {
	PriceHistory int `json:"priceHistory"`
	Discount     int `json:"discount"`
	Quality      int `json:"quality"`
	Freshness    int `json:"freshness"`
	Trust        int `json:"trust"`
	Engagement   int `json:"engagement"`
}

// Verdict buckets a total score into a human label.
type Verdict string

const (
	VerdictIncredible Verdict = "incredible"
	VerdictGreat      Verdict = "great"
	VerdictGood       Verdict = "good"
	VerdictFair       Verdict = "fair"
	VerdictPoor       Verdict = "poor"
)

// Recommendation tells the consumer what to do with a deal.
type Recommendation string

const (
	RecommendBuyNow Recommendation = "buy_now"
	RecommendWait   Recommendation = "wait"
	RecommendSkip   Recommendation = "skip"
)

// ScoredOffer is the indexed end product of a pipeline run.
type ScoredOffer struct {
	Offer          CanonicalOffer
	Breakdown      ScoreBreakdown
	Score          int // total, [0,100]
	Verdict        Verdict
	Recommendation Recommendation
	Insights       []string // at most 4
	ScoredAt       time.Time
}
