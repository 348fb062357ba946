package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/google/uuid"
)

// ReceiptStore persists receipts and items and answers the historical
// price queries behind the alternative search and comparison services.
type ReceiptStore struct {
	db *sql.DB
}

// NewReceiptStore creates a receipt store over the given database.
func NewReceiptStore(db *sql.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

func (s *ReceiptStore) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO receipts (id, store_name, purchase_date, image_path, subtotal, tax, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID.String(), receipt.StoreName, receipt.PurchaseDate,
		receipt.ImagePath, receipt.Subtotal, receipt.Tax, receipt.Total, receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *ReceiptStore) GetReceipt(ctx context.Context, id uuid.UUID) (*domain.Receipt, error) {
	var r domain.Receipt
	var rawID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, store_name, purchase_date, image_path, subtotal, tax, total, created_at
		 FROM receipts WHERE id = ?`, id.String(),
	).Scan(&rawID, &r.StoreName, &r.PurchaseDate, &r.ImagePath, &r.Subtotal, &r.Tax, &r.Total, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select receipt: %w", err)
	}
	r.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse receipt id: %w", err)
	}
	return &r, nil
}

func (s *ReceiptStore) CreateItems(ctx context.Context, items []domain.ReceiptItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO receipt_items
		 (receipt_id, original_name, detailed_name, standardized_name, category, unit_price, quantity, final_price, regular_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		// Empty standardized names persist as NULL so comparison
		// queries can exclude them cleanly.
		var standardized any
		if item.StandardizedName != "" {
			standardized = item.StandardizedName
		}
		if _, err := stmt.ExecContext(ctx,
			item.ReceiptID.String(), item.OriginalName, item.DetailedName, standardized,
			item.Category, item.UnitPrice, item.Quantity, item.FinalPrice, item.RegularPrice,
		); err != nil {
			return fmt.Errorf("insert item %q: %w", item.OriginalName, err)
		}
	}

	return tx.Commit()
}

func (s *ReceiptStore) ItemsForReceipt(ctx context.Context, receiptID uuid.UUID) ([]domain.ReceiptItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receipt_id, original_name, detailed_name, COALESCE(standardized_name, ''), category,
		        unit_price, quantity, final_price, regular_price
		 FROM receipt_items WHERE receipt_id = ? ORDER BY id`,
		receiptID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReceiptItem
	for rows.Next() {
		var item domain.ReceiptItem
		var rawID string
		if err := rows.Scan(&item.ID, &rawID, &item.OriginalName, &item.DetailedName,
			&item.StandardizedName, &item.Category, &item.UnitPrice, &item.Quantity,
			&item.FinalPrice, &item.RegularPrice); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.ReceiptID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse receipt id: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (s *ReceiptStore) DeleteItems(ctx context.Context, receiptID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM receipt_items WHERE receipt_id = ?`, receiptID.String(),
	); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// CheaperHistory returns historical items matching the standardized name
// (by equality or any of the given LIKE patterns), strictly cheaper than
// maxPrice, at stores other than excludeStore, ascending by price.
func (s *ReceiptStore) CheaperHistory(ctx context.Context, name string, patterns []domain.Pattern, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error) {
	conds := []string{"lower(ri.standardized_name) = lower(?)"}
	args := []any{name}
	for _, p := range patterns {
		if p.IsZero() {
			continue
		}
		conds = append(conds, "lower(ri.standardized_name) LIKE ?")
		args = append(args, p.String())
	}

	query := fmt.Sprintf(
		`SELECT r.store_name, ri.original_name, ri.unit_price
		 FROM receipt_items ri
		 JOIN receipts r ON r.id = ri.receipt_id
		 WHERE ri.standardized_name IS NOT NULL
		   AND (%s)
		   AND ri.unit_price < ?
		   AND ri.unit_price > 0
		   AND r.store_name != ?
		 ORDER BY ri.unit_price ASC, r.store_name ASC
		 LIMIT ?`,
		strings.Join(conds, " OR "),
	)
	args = append(args, maxPrice, excludeStore, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cheaper history: %w", err)
	}
	defer rows.Close()

	var candidates []domain.PriceCandidate
	for rows.Next() {
		var c domain.PriceCandidate
		if err := rows.Scan(&c.StoreName, &c.ItemName, &c.Price); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// Observations returns all historical price points with a standardized
// name, purchased at or after since.
func (s *ReceiptStore) Observations(ctx context.Context, since time.Time) ([]domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ri.standardized_name, r.store_name, ri.original_name, ri.unit_price, r.purchase_date
		 FROM receipt_items ri
		 JOIN receipts r ON r.id = ri.receipt_id
		 WHERE ri.standardized_name IS NOT NULL
		   AND ri.standardized_name != ''
		   AND r.purchase_date >= ?
		 ORDER BY r.purchase_date ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var obs []domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		if err := rows.Scan(&o.StandardizedName, &o.StoreName, &o.ItemName, &o.Price, &o.PurchaseDate); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, o)
	}

	return obs, rows.Err()
}
