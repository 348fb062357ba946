package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PatternRepository is the persisted pattern store. Upserts use
// insert-ignore semantics so the first writer wins and concurrent
// ingestion of the same pattern is safe.
type PatternRepository interface {
	UpsertIgnore(ctx context.Context, patterns []StandardizationPattern) (inserted int, err error)
	FindMatching(ctx context.Context, name string) ([]StandardizationPattern, error)
	KnownCategories(ctx context.Context) ([]string, error)
}

// ReceiptRepository persists receipts and their items and answers the
// historical price queries behind the alternative search and the
// comparison services.
type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error)
	CreateItems(ctx context.Context, items []ReceiptItem) error
	ItemsForReceipt(ctx context.Context, receiptID uuid.UUID) ([]ReceiptItem, error)
	DeleteItems(ctx context.Context, receiptID uuid.UUID) error

	// CheaperHistory returns historical receipt items whose standardized
	// name equals name or matches one of the given patterns, priced
	// strictly below maxPrice, at stores other than excludeStore,
	// ascending by price, at most limit rows (source A).
	CheaperHistory(ctx context.Context, name string, patterns []Pattern, maxPrice float64, excludeStore string, limit int) ([]PriceCandidate, error)

	// Observations returns all historical price points with a non-empty
	// standardized name, purchased at or after since.
	Observations(ctx context.Context, since time.Time) ([]PriceObservation, error)
}

// StorePriceRepository is the per-store current-price snapshot table
// (source B of the alternative search).
type StorePriceRepository interface {
	Upsert(ctx context.Context, prices []StorePrice) error
	CheaperAt(ctx context.Context, standardizedName string, maxPrice float64, excludeStore string, limit int) ([]PriceCandidate, error)
}

// CacheRepository is a TTL cache keyed by string. Used to pin the generic
// name chosen for a detailed name so repeated batches compare stably.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ImageStore persists uploaded receipt images and returns a stable
// reference path.
type ImageStore interface {
	Save(ctx context.Context, receiptID uuid.UUID, data []byte, contentType string) (string, error)
}

// ReceiptExtractor is the external vision collaborator: image in,
// structured receipt out.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*ExtractedReceipt, error)
}

// TextCompleter is the external text-generation collaborator: prompt in,
// JSON document out. The returned string is already stripped of any
// markdown or prose wrapper around the JSON payload.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
