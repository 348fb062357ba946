package usecase

import "strings"

// storeSubBrands maps lowercase sub-brand prefixes to the parent chain
// label. Applied to the alternative's display label only, never to the
// matching key.
var storeSubBrands = []struct {
	prefix string
	parent string
}{
	{"365 by whole foods", "Whole Foods"},
	{"365 whole foods", "Whole Foods"},
	{"whole foods market", "Whole Foods"},
	{"jewel-osco", "Jewel Osco"},
	{"jewelosco", "Jewel Osco"},
	{"trader joes", "Trader Joe's"},
	{"trader joe's", "Trader Joe's"},
	{"wal-mart", "Walmart"},
	{"walmart supercenter", "Walmart"},
	{"walmart neighborhood market", "Walmart"},
	{"marianos", "Mariano's"},
	{"mariano's", "Mariano's"},
}

// NormalizeStoreLabel collapses sub-brand store strings to the familiar
// chain name for display. Unknown stores pass through trimmed.
func NormalizeStoreLabel(name string) string {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)

	for _, sb := range storeSubBrands {
		if strings.HasPrefix(lower, sb.prefix) {
			return sb.parent
		}
	}
	return trimmed
}
