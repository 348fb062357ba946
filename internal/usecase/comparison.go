package usecase

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/google/uuid"
)

// ObservationSource answers historical price-point queries. Satisfied by
// domain.ReceiptRepository.
type ObservationSource interface {
	Observations(ctx context.Context, since time.Time) ([]domain.PriceObservation, error)
	ItemsForReceipt(ctx context.Context, receiptID uuid.UUID) ([]domain.ReceiptItem, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (*domain.Receipt, error)
}

// ComparisonConfig holds configuration for the comparison services
type ComparisonConfig struct {
	LookbackDays       int
	EnableDebugLogging bool
}

// ComparisonService derives the read-only price comparisons from
// persisted history. It never writes, and it never surfaces an error to
// the caller: any internal failure yields an empty result set so the
// response shape stays stable for consumers.
type ComparisonService struct {
	observations ObservationSource
	snapshot     SnapshotSource
	lookbackDays int
	debug        bool
}

// NewComparisonService creates the comparison services.
func NewComparisonService(observations ObservationSource, snapshot SnapshotSource, config ComparisonConfig) *ComparisonService {
	lookback := config.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	return &ComparisonService{
		observations: observations,
		snapshot:     snapshot,
		lookbackDays: lookback,
		debug:        config.EnableDebugLogging,
	}
}

// StorePriceEntry is one store's lowest observed price for an item.
type StorePriceEntry struct {
	StoreName string  `json:"store_name"`
	Price     float64 `json:"price"`
}

// StoreComparison is the store-to-store spread for one standardized item.
type StoreComparison struct {
	StandardizedName     string            `json:"standardized_name"`
	Stores               []StorePriceEntry `json:"stores"`
	PriceDifference      float64           `json:"price_difference"`
	PercentageDifference float64           `json:"percentage_difference"`
}

// CompareStores groups history by standardized name, keeps items seen at
// two or more stores, and ranks them by percentage spread descending.
func (s *ComparisonService) CompareStores(ctx context.Context) []StoreComparison {
	obs, err := s.observations.Observations(ctx, time.Time{})
	if err != nil {
		log.Printf("[COMPARE] store comparison query failed: %v", err)
		return []StoreComparison{}
	}

	// standardizedName -> store -> lowest observed price
	lowest := make(map[string]map[string]float64)
	for _, o := range obs {
		if o.StandardizedName == "" || o.Price <= 0 {
			continue
		}
		stores, ok := lowest[o.StandardizedName]
		if !ok {
			stores = make(map[string]float64)
			lowest[o.StandardizedName] = stores
		}
		if price, seen := stores[o.StoreName]; !seen || o.Price < price {
			stores[o.StoreName] = o.Price
		}
	}

	results := make([]StoreComparison, 0, len(lowest))
	for name, stores := range lowest {
		if len(stores) < 2 {
			continue
		}

		entries := make([]StorePriceEntry, 0, len(stores))
		for store, price := range stores {
			entries = append(entries, StorePriceEntry{StoreName: store, Price: price})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Price != entries[j].Price {
				return entries[i].Price < entries[j].Price
			}
			return entries[i].StoreName < entries[j].StoreName
		})

		min := entries[0].Price
		max := entries[len(entries)-1].Price
		results = append(results, StoreComparison{
			StandardizedName:     name,
			Stores:               entries,
			PriceDifference:      max - min,
			PercentageDifference: (max - min) / min * 100,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].PercentageDifference != results[j].PercentageDifference {
			return results[i].PercentageDifference > results[j].PercentageDifference
		}
		return results[i].StandardizedName < results[j].StandardizedName
	})

	return results
}

// PricePoint is one dated price observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// TemporalComparison is the price drift of one item at one store.
type TemporalComparison struct {
	StoreName        string       `json:"store_name"`
	StandardizedName string       `json:"standardized_name"`
	Points           []PricePoint `json:"points"`
	MinPrice         float64      `json:"min_price"`
	MaxPrice         float64      `json:"max_price"`
	PercentChange    float64      `json:"percent_change"`
}

// CompareOverTime groups history by (store, standardized name), keeps
// series with two or more observations, and ranks them by percent change
// descending.
func (s *ComparisonService) CompareOverTime(ctx context.Context) []TemporalComparison {
	obs, err := s.observations.Observations(ctx, time.Time{})
	if err != nil {
		log.Printf("[COMPARE] temporal comparison query failed: %v", err)
		return []TemporalComparison{}
	}

	type seriesKey struct{ store, name string }
	series := make(map[seriesKey][]PricePoint)
	for _, o := range obs {
		if o.StandardizedName == "" || o.Price <= 0 {
			continue
		}
		key := seriesKey{store: o.StoreName, name: o.StandardizedName}
		series[key] = append(series[key], PricePoint{Date: o.PurchaseDate, Price: o.Price})
	}

	results := make([]TemporalComparison, 0, len(series))
	for key, points := range series {
		if len(points) < 2 {
			continue
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		min, max := points[0].Price, points[0].Price
		for _, p := range points[1:] {
			if p.Price < min {
				min = p.Price
			}
			if p.Price > max {
				max = p.Price
			}
		}

		results = append(results, TemporalComparison{
			StoreName:        key.store,
			StandardizedName: key.name,
			Points:           points,
			MinPrice:         min,
			MaxPrice:         max,
			PercentChange:    (max - min) / min * 100,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].PercentChange != results[j].PercentChange {
			return results[i].PercentChange > results[j].PercentChange
		}
		if results[i].StandardizedName != results[j].StandardizedName {
			return results[i].StandardizedName < results[j].StandardizedName
		}
		return results[i].StoreName < results[j].StoreName
	})

	return results
}

// BestPrice is one item's best known price from any source.
type BestPrice struct {
	ItemName         string                `json:"item_name"`
	StandardizedName string                `json:"standardized_name"`
	CurrentPrice     float64               `json:"current_price"`
	BestPrice        float64               `json:"best_price"`
	StoreName        string                `json:"store_name"`
	Savings          float64               `json:"savings"`
	ComparisonType   domain.ComparisonType `json:"comparison_type"`
}

// BestPrices computes, for each item of one receipt, the best known
// price within the lookback window from any source: temporal history at
// the same store, history at a different store, or the snapshot table.
// Only items with a strictly better price are reported, tagged with the
// comparison type that produced the win; ties prefer temporal over
// store over alternative.
func (s *ComparisonService) BestPrices(ctx context.Context, receiptID uuid.UUID, lookbackDays int) []BestPrice {
	if lookbackDays <= 0 {
		lookbackDays = s.lookbackDays
	}

	receipt, err := s.observations.GetReceipt(ctx, receiptID)
	if err != nil {
		log.Printf("[COMPARE] best prices: receipt %s: %v", receiptID, err)
		return []BestPrice{}
	}

	items, err := s.observations.ItemsForReceipt(ctx, receiptID)
	if err != nil {
		log.Printf("[COMPARE] best prices: items for %s: %v", receiptID, err)
		return []BestPrice{}
	}

	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	obs, err := s.observations.Observations(ctx, since)
	if err != nil {
		log.Printf("[COMPARE] best prices: observations: %v", err)
		return []BestPrice{}
	}

	results := []BestPrice{}
	for _, item := range items {
		if item.StandardizedName == "" || item.UnitPrice <= 0 {
			continue
		}

		best := BestPrice{
			ItemName:         item.OriginalName,
			StandardizedName: item.StandardizedName,
			CurrentPrice:     item.UnitPrice,
			BestPrice:        item.UnitPrice,
		}

		// Snapshot table first so history can override it on ties.
		if candidates, err := s.snapshot.CheaperAt(ctx, item.StandardizedName, best.BestPrice, receipt.StoreName, 1); err != nil {
			log.Printf("[COMPARE] best prices: snapshot for %q: %v", item.StandardizedName, err)
		} else if len(candidates) > 0 && candidates[0].Price < best.BestPrice {
			best.BestPrice = candidates[0].Price
			best.StoreName = NormalizeStoreLabel(candidates[0].StoreName)
			best.ComparisonType = domain.ComparisonAlternative
		}

		for _, o := range obs {
			if o.StandardizedName != item.StandardizedName || o.Price <= 0 {
				continue
			}
			if o.Price < best.BestPrice ||
				(o.Price == best.BestPrice && best.ComparisonType == domain.ComparisonAlternative) ||
				(o.Price == best.BestPrice && best.ComparisonType == domain.ComparisonStore && o.StoreName == receipt.StoreName) {
				if o.Price >= item.UnitPrice {
					continue
				}
				best.BestPrice = o.Price
				best.StoreName = NormalizeStoreLabel(o.StoreName)
				if o.StoreName == receipt.StoreName {
					best.ComparisonType = domain.ComparisonTemporal
				} else {
					best.ComparisonType = domain.ComparisonStore
				}
			}
		}

		if best.BestPrice < item.UnitPrice {
			best.Savings = item.UnitPrice - best.BestPrice
			results = append(results, best)
		}
	}

	return results
}
