package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IngestionConfig holds configuration for the ingestion coordinator
type IngestionConfig struct {
	// AlternativeWorkers bounds the per-item alternative search fan-out.
	AlternativeWorkers int
	EnableDebugLogging bool
}

// IngestionService orchestrates one receipt upload end to end:
// image storage -> extraction -> normalization -> alternative search ->
// persistence -> response assembly.
type IngestionService struct {
	extractor  domain.ReceiptExtractor
	images     domain.ImageStore
	normalizer *Normalizer
	finder     *AlternativeFinder
	receipts   domain.ReceiptRepository
	patterns   domain.PatternRepository
	prices     domain.StorePriceRepository
	workers    int
	debug      bool
}

// NewIngestionService creates the coordinator with its collaborators.
func NewIngestionService(
	extractor domain.ReceiptExtractor,
	images domain.ImageStore,
	normalizer *Normalizer,
	finder *AlternativeFinder,
	receipts domain.ReceiptRepository,
	patterns domain.PatternRepository,
	prices domain.StorePriceRepository,
	config IngestionConfig,
) *IngestionService {
	workers := config.AlternativeWorkers
	if workers <= 0 {
		workers = 2
	}

	return &IngestionService{
		extractor:  extractor,
		images:     images,
		normalizer: normalizer,
		finder:     finder,
		receipts:   receipts,
		patterns:   patterns,
		prices:     prices,
		workers:    workers,
		debug:      config.EnableDebugLogging,
	}
}

// IngestRequest is one uploaded receipt image.
type IngestRequest struct {
	Image       []byte
	ContentType string
}

// IngestedItem is one line item of the ingestion response.
type IngestedItem struct {
	Name               string                   `json:"name"`
	Price              float64                  `json:"price"`
	Quantity           int                      `json:"quantity"`
	StandardizedName   string                   `json:"standardized_name"`
	Category           string                   `json:"category,omitempty"`
	CheaperAlternative *domain.AlternativeMatch `json:"cheaper_alternative,omitempty"`
}

// IngestResult is the assembled ingestion response.
type IngestResult struct {
	Success               bool           `json:"success"`
	ReceiptID             uuid.UUID      `json:"receipt_id"`
	StoreName             string         `json:"store_name"`
	Items                 []IngestedItem `json:"items"`
	ItemsWithAlternatives int            `json:"items_with_alternatives"`
}

// Ingest processes one uploaded receipt. Image storage and extraction
// failures are fatal: without an image reference or line item data there
// is nothing to ingest. Normalization and alternative-search failures
// degrade per item instead.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: no image provided", domain.ErrValidation)
	}

	receiptID := uuid.New()

	imagePath, err := s.images.Save(ctx, receiptID, req.Image, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageStore, err)
	}

	extracted, err := s.extractor.ExtractReceipt(ctx, req.Image, req.ContentType)
	if err != nil {
		return nil, err
	}

	receipt := &domain.Receipt{
		ID:           receiptID,
		StoreName:    extracted.StoreName,
		PurchaseDate: parsePurchaseDate(extracted.Date),
		ImagePath:    imagePath,
		Subtotal:     extracted.Subtotal,
		Tax:          extracted.Tax,
		Total:        extracted.Total,
	}
	if err := s.receipts.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("persist receipt: %w", err)
	}

	return s.runPipeline(ctx, receipt, extracted.Items)
}

// Reprocess deletes a receipt's items and re-runs normalization and
// alternative search from the stored original names. This is the
// explicit delete-then-reinsert path; plain ingestion never reuses a
// receipt id.
func (s *IngestionService) Reprocess(ctx context.Context, receiptID uuid.UUID) (*IngestResult, error) {
	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	existing, err := s.receipts.ItemsForReceipt(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("%w: receipt has no items to reprocess", domain.ErrValidation)
	}

	raw := make([]domain.RawItem, len(existing))
	for i, item := range existing {
		raw[i] = domain.RawItem{
			Name:     item.OriginalName,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		}
	}

	if err := s.receipts.DeleteItems(ctx, receiptID); err != nil {
		return nil, fmt.Errorf("delete items: %w", err)
	}

	return s.runPipeline(ctx, receipt, raw)
}

// runPipeline is the shared Normalized -> AlternativesSearched ->
// Persisted -> Responded tail of ingestion and reprocessing.
func (s *IngestionService) runPipeline(ctx context.Context, receipt *domain.Receipt, raw []domain.RawItem) (*IngestResult, error) {
	rawNames := make([]string, len(raw))
	for i, item := range raw {
		rawNames[i] = item.Name
	}

	normalized := s.normalizer.Normalize(ctx, rawNames)

	// Alternative search per item, independently: one item's failure
	// never blocks its siblings.
	alternatives := make([]*domain.AlternativeMatch, len(raw))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range raw {
		g.Go(func() error {
			match, err := s.finder.FindCheapest(gctx, normalized[i].GenericName, normalized[i].Patterns, raw[i].Price, receipt.StoreName)
			if err != nil {
				log.Printf("[INGEST] alternative search failed for %q: %v", raw[i].Name, err)
				return nil
			}
			mu.Lock()
			alternatives[i] = match
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	items := make([]domain.ReceiptItem, len(raw))
	for i := range raw {
		quantity := raw[i].Quantity
		if quantity < 1 {
			quantity = 1
		}
		items[i] = domain.ReceiptItem{
			ReceiptID:        receipt.ID,
			OriginalName:     raw[i].Name,
			DetailedName:     normalized[i].DetailedName,
			StandardizedName: normalized[i].GenericName,
			Category:         normalized[i].Category,
			UnitPrice:        raw[i].Price,
			Quantity:         quantity,
			FinalPrice:       raw[i].Price * float64(quantity),
		}
	}
	if err := s.receipts.CreateItems(ctx, items); err != nil {
		return nil, fmt.Errorf("persist items: %w", err)
	}

	s.persistPatterns(ctx, normalized)
	s.refreshSnapshot(ctx, receipt.StoreName, items, normalized)

	result := &IngestResult{
		Success:   true,
		ReceiptID: receipt.ID,
		StoreName: receipt.StoreName,
		Items:     make([]IngestedItem, len(raw)),
	}
	for i := range raw {
		result.Items[i] = IngestedItem{
			Name:               raw[i].Name,
			Price:              raw[i].Price,
			Quantity:           items[i].Quantity,
			StandardizedName:   normalized[i].GenericName,
			Category:           normalized[i].Category,
			CheaperAlternative: alternatives[i],
		}
		if alternatives[i] != nil {
			result.ItemsWithAlternatives++
		}
	}

	if s.debug {
		log.Printf("[INGEST] receipt %s: %d items, %d with alternatives",
			receipt.ID, len(result.Items), result.ItemsWithAlternatives)
	}

	return result, nil
}

// persistPatterns records newly discovered patterns. Names resolved from
// an existing pattern have nothing new to record, and raw fallbacks
// would only map noise to itself. Duplicate patterns are silently
// ignored by the store; a failure here never fails the ingestion.
func (s *IngestionService) persistPatterns(ctx context.Context, normalized []NormalizedItem) {
	var patterns []domain.StandardizationPattern
	for _, item := range normalized {
		if item.FromPattern || item.RawFallback {
			continue
		}
		for _, p := range item.Patterns {
			patterns = append(patterns, domain.StandardizationPattern{
				Pattern:          p,
				StandardizedName: item.GenericName,
				Category:         item.Category,
			})
		}
	}
	if len(patterns) == 0 {
		return
	}

	inserted, err := s.patterns.UpsertIgnore(ctx, patterns)
	if err != nil {
		log.Printf("[INGEST] pattern persistence failed: %v", err)
		return
	}
	if s.debug {
		log.Printf("[INGEST] recorded %d new patterns (%d proposed)", inserted, len(patterns))
	}
}

// refreshSnapshot records each standardized item's unit price as this
// store's current price, keeping the per-store snapshot table in step
// with what receipts actually show. Raw fallback names stay out of the
// snapshot. Failures are logged only.
func (s *IngestionService) refreshSnapshot(ctx context.Context, storeName string, items []domain.ReceiptItem, normalized []NormalizedItem) {
	var prices []domain.StorePrice
	for i, item := range items {
		if normalized[i].RawFallback || item.StandardizedName == "" || item.UnitPrice <= 0 {
			continue
		}
		prices = append(prices, domain.StorePrice{
			StoreName:        storeName,
			ItemName:         item.OriginalName,
			StandardizedName: item.StandardizedName,
			Price:            item.UnitPrice,
		})
	}
	if len(prices) == 0 {
		return
	}

	if err := s.prices.Upsert(ctx, prices); err != nil {
		log.Printf("[INGEST] store price snapshot update failed: %v", err)
	}
}

// parsePurchaseDate parses the extractor's date string, falling back to
// today when it is missing or unreadable.
func parsePurchaseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}
