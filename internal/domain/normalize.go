package domain

// DetailedItem is the stage-1 normalization output: a brand-qualified,
// display-ready name plus a category drawn from an open vocabulary.
type DetailedItem struct {
	OriginalName string `json:"original_name"`
	DetailedName string `json:"detailed_name"`
	Category     string `json:"category"`
}

// GenericItem is the stage-2 normalization output: the brand-free,
// cross-store-comparable name plus at least one LIKE pattern believed to
// match textual variants of the same product.
type GenericItem struct {
	DetailedItem
	GenericName string    `json:"generic_name"`
	Patterns    []Pattern `json:"patterns"`
}

// StandardizationPattern is one persisted pattern → canonical name mapping.
// Pattern is the unique key; the first mapping recorded for a pattern wins
// and later inserts of the same pattern are silently dropped.
type StandardizationPattern struct {
	Pattern          Pattern `json:"pattern"`
	StandardizedName string  `json:"standardized_name"`
	Category         string  `json:"category"`
}
