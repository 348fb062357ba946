package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
)

// Package-level compiled regex patterns for performance
var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// NormalizerConfig holds configuration for the two-stage normalizer
type NormalizerConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// Normalizer turns batches of raw, inconsistent receipt strings into
// detailed display names (stage 1) and brand-free generic names with
// LIKE match patterns (stage 2). Each stage is a single call to the
// external text-generation collaborator with a strict output schema.
//
// The two stages are deliberately separate: stage 1 answers "what is
// this item, precisely" with all available detail including brand, and
// stage 2 answers "what bucket does it belong to for price comparison"
// with brand and size stripped. Brand-qualified names never match
// across stores, so conflating the stages degrades comparison accuracy.
type Normalizer struct {
	completer domain.TextCompleter
	patterns  domain.PatternRepository
	cache     domain.CacheRepository
	cacheTTL  time.Duration
	debug     bool
}

// NewNormalizer creates a normalizer with the given collaborators.
func NewNormalizer(
	completer domain.TextCompleter,
	patterns domain.PatternRepository,
	cache domain.CacheRepository,
	config NormalizerConfig,
) *Normalizer {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 720 * time.Hour // 30 days
	}

	return &Normalizer{
		completer: completer,
		patterns:  patterns,
		cache:     cache,
		cacheTTL:  cacheTTL,
		debug:     config.EnableDebugLogging,
	}
}

// NormalizedItem is the per-name outcome of the chained normalization.
type NormalizedItem struct {
	domain.GenericItem

	// FromPattern is true when an already-persisted pattern resolved the
	// name without an AI call.
	FromPattern bool

	// RawFallback is true when stage 1 failed and the item carries its
	// lowercased, whitespace-normalized original name instead.
	RawFallback bool
}

// stage 1 output schema

type detailedResponse struct {
	Items []struct {
		OriginalName string `json:"original_name"`
		DetailedName string `json:"detailed_name"`
		Category     string `json:"category"`
	} `json:"items"`
}

// stage 2 output schema

type genericResponse struct {
	Items []struct {
		DetailedName string   `json:"detailed_name"`
		GenericName  string   `json:"generic_name"`
		Patterns     []string `json:"patterns"`
	} `json:"items"`
}

// NormalizeDetailed runs stage 1 for one batch: every raw name becomes a
// DetailedItem with the brand spelled out and Title-Case applied. The
// stage fails as a whole; there are no partial results.
func (n *Normalizer) NormalizeDetailed(ctx context.Context, rawNames []string, knownCategories []string) ([]domain.DetailedItem, error) {
	if len(rawNames) == 0 {
		return nil, domain.ErrValidation
	}

	content, err := n.completer.Complete(ctx, buildDetailedPrompt(rawNames, knownCategories))
	if err != nil {
		return nil, fmt.Errorf("%w: stage 1: %v", domain.ErrNormalization, err)
	}

	var resp detailedResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: stage 1 returned malformed JSON: %v", domain.ErrNormalization, err)
	}
	if len(resp.Items) != len(rawNames) {
		return nil, fmt.Errorf("%w: stage 1 returned %d items for %d names", domain.ErrNormalization, len(resp.Items), len(rawNames))
	}

	detailed := make([]domain.DetailedItem, len(rawNames))
	for i, item := range resp.Items {
		detailed[i] = domain.DetailedItem{
			OriginalName: rawNames[i],
			DetailedName: strings.TrimSpace(item.DetailedName),
			Category:     strings.TrimSpace(item.Category),
		}
		if detailed[i].DetailedName == "" {
			return nil, fmt.Errorf("%w: stage 1 returned an empty detailed name", domain.ErrNormalization)
		}
	}

	if n.debug {
		log.Printf("[NORMALIZE] stage 1: %d names -> detailed", len(rawNames))
	}

	return detailed, nil
}

// NormalizeGeneric runs stage 2 for one batch: each detailed item gets a
// brand-free generic name and at least one lowercase LIKE pattern.
// Failure here never destroys stage 1 output; callers fall back to the
// detailed name with a single exact-match pattern.
func (n *Normalizer) NormalizeGeneric(ctx context.Context, detailed []domain.DetailedItem) ([]domain.GenericItem, error) {
	if len(detailed) == 0 {
		return nil, domain.ErrValidation
	}

	content, err := n.completer.Complete(ctx, buildGenericPrompt(detailed))
	if err != nil {
		return nil, fmt.Errorf("%w: stage 2: %v", domain.ErrNormalization, err)
	}

	var resp genericResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: stage 2 returned malformed JSON: %v", domain.ErrNormalization, err)
	}
	if len(resp.Items) != len(detailed) {
		return nil, fmt.Errorf("%w: stage 2 returned %d items for %d names", domain.ErrNormalization, len(resp.Items), len(detailed))
	}

	generic := make([]domain.GenericItem, len(detailed))
	for i, item := range resp.Items {
		name := strings.TrimSpace(item.GenericName)
		if name == "" {
			name = detailed[i].DetailedName
		}

		var patterns []domain.Pattern
		for _, raw := range item.Patterns {
			p := domain.NewPattern(raw)
			if !p.IsZero() {
				patterns = append(patterns, p)
			}
		}
		// Every generic item carries at least one pattern.
		if len(patterns) == 0 {
			patterns = append(patterns, domain.ExactPattern(name))
		}

		generic[i] = domain.GenericItem{
			DetailedItem: detailed[i],
			GenericName:  n.pinGenericName(ctx, detailed[i].DetailedName, name),
			Patterns:     patterns,
		}
	}

	if n.debug {
		log.Printf("[NORMALIZE] stage 2: %d detailed -> generic", len(detailed))
	}

	return generic, nil
}

// pinGenericName keeps the generic name chosen for a detailed name stable
// across batches: the first name seen wins for the cache TTL, so a
// non-deterministic collaborator cannot split one product across two
// comparison buckets.
func (n *Normalizer) pinGenericName(ctx context.Context, detailedName, genericName string) string {
	key := "generic:" + FallbackName(detailedName)

	if pinned, err := n.cache.Get(ctx, key); err == nil && pinned != "" {
		if n.debug && pinned != genericName {
			log.Printf("[NORMALIZE] pinned %q -> %q (proposed %q)", detailedName, pinned, genericName)
		}
		return pinned
	}

	if err := n.cache.Set(ctx, key, genericName, n.cacheTTL); err != nil {
		log.Printf("[NORMALIZE] pin cache set failed: %v", err)
	}
	return genericName
}

// Normalize is the chained entry point for one batch. It never fails:
// each stage degrades one step at a time (raw -> detailed -> generic),
// and names already covered by a persisted pattern skip the AI entirely.
func (n *Normalizer) Normalize(ctx context.Context, rawNames []string) []NormalizedItem {
	results := make([]NormalizedItem, len(rawNames))

	// Resolve what we can from the pattern store first.
	var pendingIdx []int
	for i, name := range rawNames {
		matches, err := n.patterns.FindMatching(ctx, name)
		if err != nil {
			log.Printf("[NORMALIZE] pattern lookup failed for %q: %v", name, err)
		}
		best, ok := domain.MostSpecific(name, matches)
		if !ok {
			pendingIdx = append(pendingIdx, i)
			continue
		}

		results[i] = NormalizedItem{
			GenericItem: domain.GenericItem{
				DetailedItem: domain.DetailedItem{
					OriginalName: name,
					DetailedName: best.StandardizedName,
					Category:     best.Category,
				},
				GenericName: best.StandardizedName,
				Patterns:    []domain.Pattern{best.Pattern},
			},
			FromPattern: true,
		}
	}

	if len(pendingIdx) == 0 {
		return results
	}

	pending := make([]string, len(pendingIdx))
	for i, idx := range pendingIdx {
		pending[i] = rawNames[idx]
	}

	categories, err := n.patterns.KnownCategories(ctx)
	if err != nil {
		log.Printf("[NORMALIZE] category lookup failed: %v", err)
	}

	detailed, err := n.NormalizeDetailed(ctx, pending, categories)
	if err != nil {
		// Stage 1 failed for the whole batch; everything falls through
		// with its raw name.
		log.Printf("[NORMALIZE] stage 1 failed, falling back to raw names: %v", err)
		for _, idx := range pendingIdx {
			results[idx] = rawFallbackItem(rawNames[idx])
		}
		return results
	}

	generic, err := n.NormalizeGeneric(ctx, detailed)
	if err != nil {
		// Stage 2 failed; stage 1 output survives as the generic name.
		log.Printf("[NORMALIZE] stage 2 failed, falling back to detailed names: %v", err)
		for i, idx := range pendingIdx {
			results[idx] = NormalizedItem{
				GenericItem: domain.GenericItem{
					DetailedItem: detailed[i],
					GenericName:  detailed[i].DetailedName,
					Patterns:     []domain.Pattern{domain.ExactPattern(detailed[i].DetailedName)},
				},
			}
		}
		return results
	}

	for i, idx := range pendingIdx {
		results[idx] = NormalizedItem{GenericItem: generic[i]}
	}

	return results
}

// rawFallbackItem builds the lowest normalization rung for a name whose
// batch failed stage 1.
func rawFallbackItem(name string) NormalizedItem {
	fallback := FallbackName(name)
	return NormalizedItem{
		GenericItem: domain.GenericItem{
			DetailedItem: domain.DetailedItem{
				OriginalName: name,
				DetailedName: fallback,
			},
			GenericName: fallback,
			Patterns:    []domain.Pattern{domain.ExactPattern(fallback)},
		},
		RawFallback: true,
	}
}

// FallbackName lowercases and whitespace-normalizes a raw name for use as
// a best-effort standardized name.
func FallbackName(name string) string {
	return strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(strings.ToLower(name), " "))
}

// IsNormalizationFailure reports whether err is a normalization failure,
// which callers treat as recoverable.
func IsNormalizationFailure(err error) bool {
	return errors.Is(err, domain.ErrNormalization)
}

func buildDetailedPrompt(rawNames []string, knownCategories []string) string {
	var b strings.Builder
	b.WriteString("You are standardizing grocery receipt line items.\n")
	b.WriteString("For each raw item below, produce a detailed, human-readable product name:\n")
	b.WriteString("- Spell out abbreviated brand names in full (e.g. \"TRPNCA\" -> \"Tropicana\").\n")
	b.WriteString("- Use Title Case.\n")
	b.WriteString("- Keep brand, variety, fat content, form, and size when present.\n")
	b.WriteString("- Assign a category, preferring one of the known categories when it fits.\n")

	if len(knownCategories) > 0 {
		b.WriteString("Known categories: ")
		b.WriteString(strings.Join(knownCategories, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nRaw items:\n")
	for i, name := range rawNames {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}

	b.WriteString("\nRespond with JSON only, one entry per raw item, in the same order:\n")
	b.WriteString(`{"items": [{"original_name": string, "detailed_name": string, "category": string}]}`)
	return b.String()
}

func buildGenericPrompt(detailed []domain.DetailedItem) string {
	var b strings.Builder
	b.WriteString("You are producing cross-store comparison names for grocery items.\n")
	b.WriteString("For each detailed item below, produce a generic product name:\n")
	b.WriteString("- Strip brand names, sizes, and package quantities.\n")
	b.WriteString("- Keep flavor, variety, fat content, and form when they change what the product is ")
	b.WriteString("(\"2 Percent Milk\" is not \"Milk\"; \"Shredded Cheese\" is not \"Block Cheese\").\n")
	b.WriteString("- Provide one or more SQL LIKE match patterns (using % wildcards) that would match ")
	b.WriteString("receipt text variants of the same product, including the original abbreviated form.\n")

	b.WriteString("\nDetailed items:\n")
	for i, item := range detailed {
		fmt.Fprintf(&b, "%d. %s (from receipt text: %s)\n", i+1, item.DetailedName, item.OriginalName)
	}

	b.WriteString("\nRespond with JSON only, one entry per item, in the same order:\n")
	b.WriteString(`{"items": [{"detailed_name": string, "generic_name": string, "patterns": [string]}]}`)
	return b.String()
}
