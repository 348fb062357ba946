package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/google/uuid"
)

// LocalStore saves receipt images on the local filesystem, one file per
// receipt, named by receipt id.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the image and returns its path relative to the storage root.
func (s *LocalStore) Save(ctx context.Context, receiptID uuid.UUID, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrValidation
	}

	name := receiptID.String() + extensionFor(contentType)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrImageStore, err)
	}

	return name, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}
