package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Mekaelwr/receipt-analysis-sub000/config"
	httpDelivery "github.com/Mekaelwr/receipt-analysis-sub000/internal/delivery/http"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/infrastructure/ai"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/infrastructure/cache"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/infrastructure/sqlite"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/infrastructure/storage"
	"github.com/Mekaelwr/receipt-analysis-sub000/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Receipt Analysis Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Database: %s", cfg.Database.Path)

	// Initialize infrastructure dependencies
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	receiptStore := sqlite.NewReceiptStore(db)
	patternStore := sqlite.NewPatternStore(db)
	storePrices := sqlite.NewStorePriceStore(db)

	imageStore, err := storage.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to prepare image storage: %v", err)
	}
	log.Printf("Image storage: %s", cfg.Storage.Dir)

	pinCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	aiClient := ai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.VisionModel, cfg.RateLimit.AI)

	// Enable debug mode in development environment
	debug := cfg.Server.Environment == "development"
	if debug {
		aiClient.SetDebug(true)
		log.Printf("AI client debug mode enabled")
	}
	log.Printf("AI service: %s (model: %s, vision: %s)", cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.VisionModel)

	// Initialize usecase layer
	normalizer := usecase.NewNormalizer(
		aiClient,
		patternStore,
		pinCache,
		usecase.NormalizerConfig{
			CacheTTL:           cfg.Cache.TTL,
			EnableDebugLogging: debug,
		},
	)

	finder := usecase.NewAlternativeFinder(
		receiptStore,
		storePrices,
		usecase.FinderConfig{
			CandidateLimit:     cfg.Matching.CandidateLimit,
			EnableDebugLogging: debug,
		},
	)

	ingestion := usecase.NewIngestionService(
		aiClient,
		imageStore,
		normalizer,
		finder,
		receiptStore,
		patternStore,
		storePrices,
		usecase.IngestionConfig{
			AlternativeWorkers: cfg.Matching.AlternativeWorkers,
			EnableDebugLogging: debug,
		},
	)

	comparisons := usecase.NewComparisonService(
		receiptStore,
		storePrices,
		usecase.ComparisonConfig{
			LookbackDays:       cfg.Matching.LookbackDays,
			EnableDebugLogging: debug,
		},
	)

	log.Printf("Matching: candidates=%d, workers=%d, lookback=%dd",
		cfg.Matching.CandidateLimit,
		cfg.Matching.AlternativeWorkers,
		cfg.Matching.LookbackDays)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(ingestion, comparisons, receiptStore)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
