package domain

import "errors"

var (
	// ErrValidation is returned when required request input is missing or malformed
	ErrValidation = errors.New("invalid request input")

	// ErrExtraction is returned when the vision collaborator produces no parseable receipt
	ErrExtraction = errors.New("receipt extraction failed")

	// ErrNormalization is returned when a normalization stage fails as a whole
	ErrNormalization = errors.New("name normalization failed")

	// ErrMatching is returned when an alternative-search data source query fails
	ErrMatching = errors.New("alternative search failed")

	// ErrAIService is returned when the external AI service request fails
	ErrAIService = errors.New("AI service request failed")

	// ErrNotFound is returned when a receipt or item cannot be found
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrImageStore is returned when the receipt image cannot be stored
	ErrImageStore = errors.New("image store failed")
)
