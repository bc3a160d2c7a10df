package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/database/mariadb"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
	"github.com/kozaktomas/photo-moments/internal/features"
	"github.com/kozaktomas/photo-moments/internal/library"
)

// buildSource resolves the photo source. Returns a cleanup function that
// releases any underlying connection.
func buildSource(cfg *config.Config, sourceKind, dir string) (library.Source, func(), error) {
	switch sourceKind {
	case "dir":
		if dir == "" {
			return nil, nil, errors.New("--dir is required for the dir source")
		}
		src, err := library.NewDirSource(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening photo directory: %w", err)
		}
		return src, func() {}, nil

	case "photoprism":
		if cfg.PhotoPrism.DatabaseURL == "" {
			return nil, nil, errors.New("PHOTOPRISM_DATABASE_URL environment variable is required")
		}
		if cfg.PhotoPrism.OriginalsDir == "" {
			return nil, nil, errors.New("PHOTOPRISM_ORIGINALS_DIR environment variable is required")
		}
		pool, err := mariadb.NewPool(cfg.PhotoPrism.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PhotoPrism database: %w", err)
		}
		src, err := library.NewPhotoPrismSource(pool, cfg.PhotoPrism.OriginalsDir)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return src, func() { pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown source: %s (supported: dir, photoprism)", sourceKind)
	}
}

// buildAnalyzer creates the AI quality analyzer, or nil for "none".
func buildAnalyzer(ctx context.Context, cfg *config.Config, name string) (ai.Analyzer, error) {
	switch name {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		pricing := cfg.GetModelPricing("gpt-4.1-mini")
		return ai.NewOpenAIAnalyzer(cfg.OpenAI.Token,
			ai.RequestPricing{Input: pricing.Standard.Input, Output: pricing.Standard.Output}), nil

	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		pricing := cfg.GetModelPricing("gemini-2.5-flash")
		analyzer, err := ai.NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey,
			ai.RequestPricing{Input: pricing.Standard.Input, Output: pricing.Standard.Output})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini analyzer: %w", err)
		}
		return analyzer, nil

	case "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown analyzer: %s (supported: openai, gemini, none)", name)
	}
}

// buildProvider assembles the feature provider from the configured
// collaborators. The embedding server is used when EMBEDDING_URL is set;
// otherwise fingerprints fall back to the local perceptual hash.
func buildProvider(cfg *config.Config, source library.Source, analyzer ai.Analyzer,
	cache features.FingerprintCache, logger *slog.Logger) (*features.Provider, error) {

	opts := []features.ProviderOption{features.WithLogger(logger)}
	if cfg.Embedding.URL != "" {
		opts = append(opts, features.WithEmbeddingClient(features.NewEmbeddingClient(cfg.Embedding.URL)))
	}
	if analyzer != nil {
		opts = append(opts, features.WithQualityAnalyzer(analyzer))
	}
	if cache != nil {
		opts = append(opts, features.WithFingerprintCache(cache))
	}
	return features.NewProvider(source, opts...)
}

// openPostgres opens the PostgreSQL pool and runs migrations. Requires
// DATABASE_URL to be configured.
func openPostgres(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}
