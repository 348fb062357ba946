package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"golang.org/x/sync/errgroup"
)

// HistorySource answers source-A queries: cheaper rows from the
// historical per-transaction item log. Satisfied by domain.ReceiptRepository.
type HistorySource interface {
	CheaperHistory(ctx context.Context, name string, patterns []domain.Pattern, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error)
}

// SnapshotSource answers source-B queries: cheaper rows from the
// per-store current-price snapshot table. Satisfied by domain.StorePriceRepository.
type SnapshotSource interface {
	CheaperAt(ctx context.Context, standardizedName string, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error)
}

// FinderConfig holds configuration for the alternative finder
type FinderConfig struct {
	CandidateLimit     int
	EnableDebugLogging bool
}

// AlternativeFinder searches the two historical data sources for a
// cheaper equivalent of a generically-named item and computes savings.
type AlternativeFinder struct {
	history        HistorySource
	snapshot       SnapshotSource
	candidateLimit int
	debug          bool
}

// NewAlternativeFinder creates a finder over the two price sources.
func NewAlternativeFinder(history HistorySource, snapshot SnapshotSource, config FinderConfig) *AlternativeFinder {
	limit := config.CandidateLimit
	if limit <= 0 {
		limit = 5
	}

	return &AlternativeFinder{
		history:        history,
		snapshot:       snapshot,
		candidateLimit: limit,
		debug:          config.EnableDebugLogging,
	}
}

// FindCheapest returns the best cheaper alternative for the item, or nil
// when none exists. Source A (verified past purchases) takes priority
// over source B (snapshot table) whenever it has any result at all, even
// a more expensive one: transaction evidence reflects an actual purchase.
// Both sources are queried concurrently.
func (f *AlternativeFinder) FindCheapest(ctx context.Context, genericName string, patterns []domain.Pattern, currentPrice float64, currentStore string) (*domain.AlternativeMatch, error) {
	// A zero or missing price would divide by zero in the percentage;
	// no alternative is reported.
	if genericName == "" || currentPrice <= 0 {
		return nil, nil
	}

	var historical, snapshot []domain.PriceCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		historical, err = f.history.CheaperHistory(gctx, genericName, patterns, currentPrice, currentStore, f.candidateLimit)
		if err != nil {
			return fmt.Errorf("source A: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snapshot, err = f.snapshot.CheaperAt(gctx, genericName, currentPrice, currentStore, f.candidateLimit)
		if err != nil {
			return fmt.Errorf("source B: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMatching, err)
	}

	candidates := historical
	if len(candidates) == 0 {
		candidates = snapshot
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Ascending by price; equal lowest prices break alphabetically by
	// store so the winner does not depend on sort stability.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price < candidates[j].Price
		}
		return candidates[i].StoreName < candidates[j].StoreName
	})

	best := candidates[0]
	savings := currentPrice - best.Price
	if savings <= 0 {
		return nil, nil
	}

	if f.debug {
		log.Printf("[MATCH] %q at %q $%.2f -> %q $%.2f (%d historical, %d snapshot)",
			genericName, currentStore, currentPrice, best.StoreName, best.Price,
			len(historical), len(snapshot))
	}

	return &domain.AlternativeMatch{
		StoreName:         NormalizeStoreLabel(best.StoreName),
		Price:             best.Price,
		ItemName:          best.ItemName,
		Savings:           savings,
		SavingsPercentage: savings / currentPrice * 100,
	}, nil
}
