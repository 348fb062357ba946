package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
)

// StorePriceStore is the SQLite-backed per-store current-price snapshot
// table (source B of the alternative search).
type StorePriceStore struct {
	db *sql.DB
}

// NewStorePriceStore creates a store-price store over the given database.
func NewStorePriceStore(db *sql.DB) *StorePriceStore {
	return &StorePriceStore{db: db}
}

// Upsert writes current prices, replacing an existing snapshot row for
// the same (store, standardized name).
func (s *StorePriceStore) Upsert(ctx context.Context, prices []domain.StorePrice) error {
	for _, p := range prices {
		if p.StoreName == "" || p.StandardizedName == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO store_prices (store_name, item_name, standardized_name, price, updated_at)
			 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(store_name, standardized_name) DO UPDATE SET
			   item_name = excluded.item_name,
			   price = excluded.price,
			   updated_at = CURRENT_TIMESTAMP`,
			p.StoreName, p.ItemName, p.StandardizedName, p.Price,
		)
		if err != nil {
			return fmt.Errorf("upsert store price %q@%q: %w", p.StandardizedName, p.StoreName, err)
		}
	}
	return nil
}

// CheaperAt returns snapshot rows for the standardized name priced
// strictly below maxPrice at stores other than excludeStore, ascending.
func (s *StorePriceStore) CheaperAt(ctx context.Context, standardizedName string, maxPrice float64, excludeStore string, limit int) ([]domain.PriceCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT store_name, item_name, price
		 FROM store_prices
		 WHERE lower(standardized_name) = lower(?)
		   AND price < ?
		   AND price > 0
		   AND store_name != ?
		 ORDER BY price ASC, store_name ASC
		 LIMIT ?`,
		standardizedName, maxPrice, excludeStore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query store prices: %w", err)
	}
	defer rows.Close()

	var candidates []domain.PriceCandidate
	for rows.Next() {
		var c domain.PriceCandidate
		if err := rows.Scan(&c.StoreName, &c.ItemName, &c.Price); err != nil {
			return nil, fmt.Errorf("scan store price: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
