package domain

import (
	"time"

	"github.com/google/uuid"
)

// Receipt is one ingested store receipt. It owns its items; deleting a
// receipt cascades to them at the storage layer.
type Receipt struct {
	ID           uuid.UUID `json:"id"`
	StoreName    string    `json:"store_name"`
	PurchaseDate time.Time `json:"purchase_date"`
	ImagePath    string    `json:"image_path"`
	Subtotal     float64   `json:"subtotal"`
	Tax          float64   `json:"tax"`
	Total        float64   `json:"total"`
	CreatedAt    time.Time `json:"created_at"`
}

// RawItem is a line item exactly as extracted from a receipt image,
// before any name standardization.
type RawItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ReceiptItem is a persisted line item. Created once per ingested line;
// never mutated afterwards.
type ReceiptItem struct {
	ID               int64     `json:"id"`
	ReceiptID        uuid.UUID `json:"receipt_id"`
	OriginalName     string    `json:"original_name"`
	DetailedName     string    `json:"detailed_name"`
	StandardizedName string    `json:"standardized_name"`
	Category         string    `json:"category"`
	UnitPrice        float64   `json:"unit_price"`
	Quantity         int       `json:"quantity"`
	FinalPrice       float64   `json:"final_price"`
	RegularPrice     *float64  `json:"regular_price,omitempty"`
}

// ExtractedReceipt is the structured output of the vision collaborator
// for one receipt image.
type ExtractedReceipt struct {
	StoreName string    `json:"store_name"`
	Date      string    `json:"date"`
	Items     []RawItem `json:"items"`
	Subtotal  float64   `json:"subtotal"`
	Tax       float64   `json:"tax"`
	Total     float64   `json:"total"`
}

// StorePrice is one row of the per-store current-price snapshot table
// (source B of the alternative search).
type StorePrice struct {
	StoreName        string  `json:"store_name"`
	ItemName         string  `json:"item_name"`
	StandardizedName string  `json:"standardized_name"`
	Price            float64 `json:"price"`
}

// PriceObservation is a historical price point joined from a receipt item
// and its parent receipt, used by the comparison query services.
type PriceObservation struct {
	StandardizedName string    `json:"standardized_name"`
	StoreName        string    `json:"store_name"`
	ItemName         string    `json:"item_name"`
	Price            float64   `json:"price"`
	PurchaseDate     time.Time `json:"purchase_date"`
}
