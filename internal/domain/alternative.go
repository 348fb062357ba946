package domain

// PriceCandidate is one cheaper-price row returned by an alternative
// search source, before ranking.
type PriceCandidate struct {
	StoreName string  `json:"store_name"`
	ItemName  string  `json:"item_name"`
	Price     float64 `json:"price"`
}

// AlternativeMatch is a cheaper instance of the same standardized item
// found at a different store. Savings is always strictly positive; a
// non-positive savings is reported as no match instead.
type AlternativeMatch struct {
	StoreName         string  `json:"store_name"`
	Price             float64 `json:"price"`
	ItemName          string  `json:"item_name"`
	Savings           float64 `json:"savings"`
	SavingsPercentage float64 `json:"percentage_savings"`
}

// ComparisonType tags which comparison produced a best-price win.
type ComparisonType string

const (
	ComparisonTemporal    ComparisonType = "temporal"
	ComparisonStore       ComparisonType = "store"
	ComparisonAlternative ComparisonType = "alternative"
)
