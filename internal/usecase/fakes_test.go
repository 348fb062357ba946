package usecase

import (
	"context"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/google/uuid"
)

// fakeCompleter replays canned completions in order.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", domain.ErrAIService
}

// fakePatternRepo is an in-memory pattern store with first-writer-wins
// upsert semantics.
type fakePatternRepo struct {
	stored  map[string]domain.StandardizationPattern
	findErr error
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{stored: make(map[string]domain.StandardizationPattern)}
}

func (f *fakePatternRepo) UpsertIgnore(ctx context.Context, patterns []domain.StandardizationPattern) (int, error) {
	inserted := 0
	for _, p := range patterns {
		if p.Pattern.IsZero() {
			continue
		}
		if _, exists := f.stored[p.Pattern.String()]; exists {
			continue
		}
		f.stored[p.Pattern.String()] = p
		inserted++
	}
	return inserted, nil
}

func (f *fakePatternRepo) FindMatching(ctx context.Context, name string) ([]domain.StandardizationPattern, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var matches []domain.StandardizationPattern
	for _, p := range f.stored {
		if p.Pattern.Matches(name) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (f *fakePatternRepo) KnownCategories(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var categories []string
	for _, p := range f.stored {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	return categories, nil
}

// fakeCache is a map-backed cache without expiry.
type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", domain.ErrCacheMiss
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

// fakeHistory emulates source A, applying the repository's filter
// contract to a fixed candidate list.
type fakeHistory struct {
	name       string
	candidates []domain.PriceCandidate
	err        error
	calls      int
}

func (f *fakeHistory) CheaperHistory(ctx context.Context, name string, patterns []domain.Pattern, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.name != "" && f.name != name {
		return nil, nil
	}
	return filterCandidates(f.candidates, maxPrice, excludeStore, limit), nil
}

// fakeSnapshot emulates source B the same way, and records Upsert
// batches so tests can observe snapshot refreshes.
type fakeSnapshot struct {
	name       string
	candidates []domain.PriceCandidate
	upserted   []domain.StorePrice
	err        error
	calls      int
}

func (f *fakeSnapshot) Upsert(ctx context.Context, prices []domain.StorePrice) error {
	f.upserted = append(f.upserted, prices...)
	return nil
}

func (f *fakeSnapshot) CheaperAt(ctx context.Context, standardizedName string, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.name != "" && f.name != standardizedName {
		return nil, nil
	}
	return filterCandidates(f.candidates, maxPrice, excludeStore, limit), nil
}

func filterCandidates(candidates []domain.PriceCandidate, maxPrice float64, excludeStore string, limit int) []domain.PriceCandidate {
	var out []domain.PriceCandidate
	for _, c := range candidates {
		if c.Price >= maxPrice || c.Price <= 0 || c.StoreName == excludeStore {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// fakeReceiptRepo is an in-memory receipt store.
type fakeReceiptRepo struct {
	receipts     map[uuid.UUID]*domain.Receipt
	items        map[uuid.UUID][]domain.ReceiptItem
	observations []domain.PriceObservation
	obsErr       error
	createErr    error
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{
		receipts: make(map[uuid.UUID]*domain.Receipt),
		items:    make(map[uuid.UUID][]domain.ReceiptItem),
	}
}

func (f *fakeReceiptRepo) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.receipts[receipt.ID] = receipt
	return nil
}

func (f *fakeReceiptRepo) GetReceipt(ctx context.Context, id uuid.UUID) (*domain.Receipt, error) {
	if r, ok := f.receipts[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeReceiptRepo) CreateItems(ctx context.Context, items []domain.ReceiptItem) error {
	for _, item := range items {
		f.items[item.ReceiptID] = append(f.items[item.ReceiptID], item)
	}
	return nil
}

func (f *fakeReceiptRepo) ItemsForReceipt(ctx context.Context, receiptID uuid.UUID) ([]domain.ReceiptItem, error) {
	return f.items[receiptID], nil
}

func (f *fakeReceiptRepo) DeleteItems(ctx context.Context, receiptID uuid.UUID) error {
	delete(f.items, receiptID)
	return nil
}

func (f *fakeReceiptRepo) CheaperHistory(ctx context.Context, name string, patterns []domain.Pattern, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error) {
	var out []domain.PriceCandidate
	for id, items := range f.items {
		store := ""
		if r, ok := f.receipts[id]; ok {
			store = r.StoreName
		}
		for _, item := range items {
			if item.StandardizedName != name || item.UnitPrice >= maxPrice || item.UnitPrice <= 0 || store == excludeStore {
				continue
			}
			out = append(out, domain.PriceCandidate{StoreName: store, ItemName: item.OriginalName, Price: item.UnitPrice})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReceiptRepo) Observations(ctx context.Context, since time.Time) ([]domain.PriceObservation, error) {
	if f.obsErr != nil {
		return nil, f.obsErr
	}
	var out []domain.PriceObservation
	for _, o := range f.observations {
		if o.StandardizedName == "" || o.PurchaseDate.Before(since) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// fakeExtractor returns a canned extraction result.
type fakeExtractor struct {
	result *domain.ExtractedReceipt
	err    error
}

func (f *fakeExtractor) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*domain.ExtractedReceipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeImageStore records saves.
type fakeImageStore struct {
	saved int
	err   error
}

func (f *fakeImageStore) Save(ctx context.Context, receiptID uuid.UUID, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved++
	return receiptID.String() + ".jpg", nil
}
