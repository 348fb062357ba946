package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
)

// PatternStore is the SQLite-backed standardization pattern store.
// Pattern uniqueness is enforced by the primary key; inserts ignore
// conflicts so the first mapping recorded for a pattern wins.
type PatternStore struct {
	db *sql.DB
}

// NewPatternStore creates a pattern store over the given database.
func NewPatternStore(db *sql.DB) *PatternStore {
	return &PatternStore{db: db}
}

// UpsertIgnore inserts the given patterns, silently dropping any whose
// pattern string is already mapped. Returns the number actually inserted.
func (s *PatternStore) UpsertIgnore(ctx context.Context, patterns []domain.StandardizationPattern) (int, error) {
	if len(patterns) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, p := range patterns {
		if p.Pattern.IsZero() {
			continue
		}
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO standardization_patterns (pattern, standardized_name, category)
			 VALUES (?, ?, ?)
			 ON CONFLICT(pattern) DO NOTHING`,
			p.Pattern.String(), p.StandardizedName, p.Category,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert pattern %q: %w", p.Pattern.String(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// FindMatching returns all stored patterns that the given raw name
// matches, case-insensitively. Callers pick the most specific one.
func (s *PatternStore) FindMatching(ctx context.Context, name string) ([]domain.StandardizationPattern, error) {
	// Patterns are stored lowercased; lowering the probe keeps LIKE
	// case-insensitive beyond ASCII.
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern, standardized_name, category
		 FROM standardization_patterns
		 WHERE ? LIKE pattern`,
		strings.ToLower(name),
	)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var matches []domain.StandardizationPattern
	for rows.Next() {
		var raw string
		var m domain.StandardizationPattern
		if err := rows.Scan(&raw, &m.StandardizedName, &m.Category); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		m.Pattern = domain.NewPattern(raw)
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// KnownCategories returns the distinct categories observed so far, used as
// a soft vocabulary hint for the normalizer.
func (s *PatternStore) KnownCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM standardization_patterns
		 WHERE category != '' ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}
