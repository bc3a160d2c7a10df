package features

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

type fakeSource struct {
	images map[string][]byte
	opens  int
}

func (s *fakeSource) List(ctx context.Context) ([]*moments.Photo, error) {
	return nil, nil
}

func (s *fakeSource) Open(ctx context.Context, photoID string) ([]byte, error) {
	s.opens++
	data, ok := s.images[photoID]
	if !ok {
		return nil, errors.New("photo not found")
	}
	return data, nil
}

type memoryCache struct {
	entries map[string][]float32
	puts    int
}

func (c *memoryCache) Get(_ context.Context, photoID string) ([]float32, bool, error) {
	fp, ok := c.entries[photoID]
	return fp, ok, nil
}

func (c *memoryCache) Put(_ context.Context, photoID string, fp []float32) error {
	c.puts++
	c.entries[photoID] = fp
	return nil
}

type fakeAnalyzer struct {
	quality *moments.QualityScores
	err     error
}

func (a *fakeAnalyzer) AnalyzeQuality(context.Context, []byte) (*moments.QualityScores, error) {
	return a.quality, a.err
}

func TestProviderLocalFallback(t *testing.T) {
	source := &fakeSource{images: map[string][]byte{
		"p1": gradientImage(t, 64, true),
	}}

	p, err := NewProvider(source)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	feats, err := p.Features(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	if len(feats.Fingerprint) != localFPLength {
		t.Errorf("fingerprint length = %d, want local hash length %d", len(feats.Fingerprint), localFPLength)
	}
	if feats.FaceCount != nil {
		t.Error("face count should be absent without an embedding client")
	}
	if feats.Quality != nil {
		t.Error("quality should be absent without an analyzer")
	}
}

func TestProviderCacheHitSkipsImageLoad(t *testing.T) {
	source := &fakeSource{images: map[string][]byte{}}
	cache := &memoryCache{entries: map[string][]float32{
		"p1": {0.1, 0.2, 0.3},
	}}

	p, err := NewProvider(source, WithFingerprintCache(cache))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	feats, err := p.Features(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	if len(feats.Fingerprint) != 3 {
		t.Errorf("expected cached fingerprint, got %v", feats.Fingerprint)
	}
	if source.opens != 0 {
		t.Errorf("cache hit should not load the image, got %d opens", source.opens)
	}
}

func TestProviderCachePopulatedOnMiss(t *testing.T) {
	source := &fakeSource{images: map[string][]byte{
		"p1": gradientImage(t, 64, true),
	}}
	cache := &memoryCache{entries: map[string][]float32{}}

	p, err := NewProvider(source, WithFingerprintCache(cache))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if _, err := p.Features(context.Background(), "p1"); err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	if cache.puts != 1 {
		t.Errorf("expected 1 cache write, got %d", cache.puts)
	}

	// Second call hits the cache.
	if _, err := p.Features(context.Background(), "p1"); err != nil {
		t.Fatalf("second Features failed: %v", err)
	}
	if source.opens != 1 {
		t.Errorf("expected 1 image load total, got %d", source.opens)
	}
}

func TestProviderAnalyzerErrorPropagates(t *testing.T) {
	source := &fakeSource{images: map[string][]byte{
		"p1": gradientImage(t, 64, true),
	}}
	analyzer := &fakeAnalyzer{err: errors.New("quota exceeded")}

	p, err := NewProvider(source, WithQualityAnalyzer(analyzer))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if _, err := p.Features(context.Background(), "p1"); err == nil {
		t.Error("expected analyzer error to propagate for engine retry")
	}
}

func TestProviderWithAnalyzer(t *testing.T) {
	source := &fakeSource{images: map[string][]byte{
		"p1": gradientImage(t, 64, true),
	}}
	analyzer := &fakeAnalyzer{quality: &moments.QualityScores{Technical: 0.8, IsUtility: true}}

	p, err := NewProvider(source, WithQualityAnalyzer(analyzer))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	feats, err := p.Features(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}
	if feats.Quality == nil || !feats.Quality.IsUtility {
		t.Errorf("expected analyzer quality bundle, got %+v", feats.Quality)
	}
}

func TestProviderWithEmbeddingServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed/image":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"dim":       4,
				"embedding": []float32{0.5, 0.5, 0.5, 0.5},
				"model":     "clip",
			})
		case "/embed/face":
			_ = json.NewEncoder(w).Encode(map[string]any{"faces_count": 2})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := &fakeSource{images: map[string][]byte{
		"p1": gradientImage(t, 64, true),
	}}

	p, err := NewProvider(source, WithEmbeddingClient(NewEmbeddingClient(server.URL)))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	feats, err := p.Features(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	if len(feats.Fingerprint) != 4 {
		t.Errorf("fingerprint length = %d, want 4 from server", len(feats.Fingerprint))
	}
	if feats.FaceCount == nil || *feats.FaceCount != 2 {
		t.Errorf("face count = %v, want 2", feats.FaceCount)
	}
}

func TestNewProviderRequiresSource(t *testing.T) {
	if _, err := NewProvider(nil); err == nil {
		t.Error("expected error for nil source")
	}
}
