package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/usecase"
)

// maxUploadBytes caps receipt image uploads at 10 MB.
const maxUploadBytes = 10 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ingestion   *usecase.IngestionService
	comparisons *usecase.ComparisonService
	receipts    domain.ReceiptRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(ingestion *usecase.IngestionService, comparisons *usecase.ComparisonService, receipts domain.ReceiptRepository) *Handler {
	return &Handler{
		ingestion:   ingestion,
		comparisons: comparisons,
		receipts:    receipts,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "receipt-analysis",
		"version": "1.0.0",
	})
}

// UploadReceipt handles a receipt image upload and runs the full
// ingestion pipeline on it.
func (h *Handler) UploadReceipt(c *gin.Context) {
	if h.ingestion == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Receipt ingestion not configured",
		})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 10MB upload limit"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image upload"})
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), usecase.IngestRequest{
		Image:       data,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReprocessReceipt re-runs normalization and alternative search on an
// already ingested receipt using its stored line items.
func (h *Handler) ReprocessReceipt(c *gin.Context) {
	if h.ingestion == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Receipt ingestion not configured",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
		return
	}

	result, err := h.ingestion.Reprocess(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReceipt returns one stored receipt with its line items.
func (h *Handler) GetReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
		return
	}

	receipt, err := h.receipts.GetReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.receipts.ItemsForReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"items":   items,
	})
}

// CompareStores returns the store-to-store price spread of every item
// seen at two or more stores.
func (h *Handler) CompareStores(c *gin.Context) {
	comparisons := h.comparisons.CompareStores(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"comparisons": comparisons,
		"count":       len(comparisons),
	})
}

// CompareOverTime returns the price drift of every item observed more
// than once at the same store.
func (h *Handler) CompareOverTime(c *gin.Context) {
	comparisons := h.comparisons.CompareOverTime(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"comparisons": comparisons,
		"count":       len(comparisons),
	})
}

// BestPrices returns, per item of one receipt, the best known price
// from any source within the lookback window.
func (h *Handler) BestPrices(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
		return
	}

	lookbackDays := 0
	if raw := c.Query("lookback_days"); raw != "" {
		lookbackDays, err = strconv.Atoi(raw)
		if err != nil || lookbackDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lookback_days must be a positive integer"})
			return
		}
	}

	prices := h.comparisons.BestPrices(c.Request.Context(), id, lookbackDays)
	c.JSON(http.StatusOK, gin.H{
		"best_prices": prices,
		"count":       len(prices),
	})
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
	case errors.Is(err, domain.ErrExtraction):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not read a receipt from the uploaded image"})
	case errors.Is(err, domain.ErrAIService):
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
