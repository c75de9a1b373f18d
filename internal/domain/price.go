package domain

import "time"

// PricePoint is a single observed price for a fingerprint. Immutable once stored.
type PricePoint struct {
	Fingerprint string    `json:"fingerprint"`
	Price       float64   `json:"price"`
	ObservedAt  time.Time `json:"observedAt"`
	Source      string    `json:"source"`
}

// PriceStats is the derived view over a fingerprint's history.
type PriceStats struct {
	Current        float64
	Average7d      float64
	Average30d     float64
	Average90d     float64
	Lowest         float64
	LowestAt       time.Time
	Highest        float64
	HighestAt      time.Time
	Change7dPct    float64
	Change30dPct   float64
	IsAtAllTimeLow bool
	Confidence     int // [0,100], grows with sample count
	SampleCount    int
}

// TrendDirection labels where a price series is heading.
type TrendDirection string

const (
	TrendRising  TrendDirection = "up"
	TrendFalling TrendDirection = "down"
	TrendStable  TrendDirection = "stable"
)

// PricePrediction is the secondary forecast view over a series.
type PricePrediction struct {
	Direction         TrendDirection
	ExpectedChangePct float64
	Confidence        int
	SuggestedWaitDays int
	Event             string // sale event name when calendar-driven, else empty
}

// SaleEvent is one entry of the curated sale calendar. Month is 0-indexed
// (10 = November), matching the configuration format.
type SaleEvent struct {
	Name             string `yaml:"name"`
	Month            int    `yaml:"month"`
	Day              int    `yaml:"day"`
	WindowDays       int    `yaml:"windowDays"`
	ExpectedDiscount int    `yaml:"expectedDiscountPercent"`
}
