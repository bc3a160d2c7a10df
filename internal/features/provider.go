package features

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/photo-moments/internal/library"
	"github.com/kozaktomas/photo-moments/internal/moments"
)

// QualityAnalyzer produces the quality bundle for a photo. Implemented
// by the AI analyzers; nil means clustering runs without quality data
// and ranking degrades to neutral factors.
type QualityAnalyzer interface {
	AnalyzeQuality(ctx context.Context, imageData []byte) (*moments.QualityScores, error)
}

// FingerprintCache stores computed fingerprints between runs so the
// embedding server is only hit once per photo.
type FingerprintCache interface {
	Get(ctx context.Context, photoID string) ([]float32, bool, error)
	Put(ctx context.Context, photoID string, fingerprint []float32) error
}

// Provider implements the engine's feature lookup by composing a photo
// source with the embedding client, the AI quality analyzer and an
// optional fingerprint cache. Everything except the source is optional;
// missing collaborators just leave the corresponding feature empty.
type Provider struct {
	source   library.Source
	embed    *EmbeddingClient
	analyzer QualityAnalyzer
	cache    FingerprintCache
	logger   *slog.Logger
}

// NewProvider builds a provider over the given source.
func NewProvider(source library.Source, opts ...ProviderOption) (*Provider, error) {
	if source == nil {
		return nil, fmt.Errorf("photo source is required")
	}
	p := &Provider{
		source: source,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProviderOption configures optional collaborators.
type ProviderOption func(*Provider)

// WithEmbeddingClient routes fingerprints and face counts through the
// embedding server instead of the local perceptual hash.
func WithEmbeddingClient(c *EmbeddingClient) ProviderOption {
	return func(p *Provider) { p.embed = c }
}

// WithQualityAnalyzer enables AI quality analysis.
func WithQualityAnalyzer(a QualityAnalyzer) ProviderOption {
	return func(p *Provider) { p.analyzer = a }
}

// WithFingerprintCache enables fingerprint caching.
func WithFingerprintCache(c FingerprintCache) ProviderOption {
	return func(p *Provider) { p.cache = c }
}

// WithLogger sets the diagnostic sink.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// Features computes the feature bundle for one photo. A cached
// fingerprint skips the image fetch entirely when no analyzer is
// configured. Errors propagate so the engine can retry; the engine
// degrades permissively once retries are exhausted.
func (p *Provider) Features(ctx context.Context, photoID string) (*moments.PhotoFeatures, error) {
	feats := &moments.PhotoFeatures{}

	if p.cache != nil {
		fp, ok, err := p.cache.Get(ctx, photoID)
		if err != nil {
			p.logger.Warn("fingerprint cache lookup failed", "photo_id", photoID, "error", err)
		} else if ok {
			feats.Fingerprint = fp
			if p.analyzer == nil && p.embed == nil {
				return feats, nil
			}
		}
	}

	data, err := p.source.Open(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("loading photo %s: %w", photoID, err)
	}

	if feats.Fingerprint == nil {
		fp, err := p.fingerprint(ctx, photoID, data)
		if err != nil {
			return nil, err
		}
		feats.Fingerprint = fp

		if p.cache != nil {
			if err := p.cache.Put(ctx, photoID, fp); err != nil {
				p.logger.Warn("fingerprint cache write failed", "photo_id", photoID, "error", err)
			}
		}
	}

	if p.embed != nil {
		count, err := p.embed.CountFaces(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("counting faces for %s: %w", photoID, err)
		}
		feats.FaceCount = &count
	}

	if p.analyzer != nil {
		quality, err := p.analyzer.AnalyzeQuality(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("analyzing quality of %s: %w", photoID, err)
		}
		feats.Quality = quality
	}

	return feats, nil
}

// fingerprint prefers the embedding server and falls back to the local
// perceptual hash when none is configured.
func (p *Provider) fingerprint(ctx context.Context, photoID string, data []byte) ([]float32, error) {
	if p.embed != nil {
		fp, err := p.embed.Fingerprint(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("embedding photo %s: %w", photoID, err)
		}
		return fp, nil
	}

	fp, err := LocalFingerprint(data)
	if err != nil {
		return nil, fmt.Errorf("hashing photo %s: %w", photoID, err)
	}
	p.logger.Debug("using local perceptual fingerprint", "photo_id", photoID)
	return fp, nil
}
