package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

type stubSource struct {
	photos []*moments.Photo
	err    error
}

func (s *stubSource) List(ctx context.Context) ([]*moments.Photo, error) {
	return s.photos, s.err
}

func (s *stubSource) Open(ctx context.Context, photoID string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type stubProvider struct{}

func (p *stubProvider) Features(ctx context.Context, photoID string) (*moments.PhotoFeatures, error) {
	return &moments.PhotoFeatures{Fingerprint: []float32{1, 0, 0}}, nil
}

type memoryStore struct {
	created    map[string]int
	saved      map[string][]*moments.Cluster
	finished   map[string]string
	warnings   map[string][]string
	saveErr    error
	createErr  error
	finishErrs map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		created:  make(map[string]int),
		saved:    make(map[string][]*moments.Cluster),
		finished: make(map[string]string),
		warnings: make(map[string][]string),
	}
}

func (s *memoryStore) CreateRun(ctx context.Context, runID string, photoCount int) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created[runID] = photoCount
	return nil
}

func (s *memoryStore) SaveClusters(ctx context.Context, runID string, clusters []*moments.Cluster) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[runID] = clusters
	return nil
}

func (s *memoryStore) FinishRun(ctx context.Context, runID, status string, warnings []string, errMsg string) error {
	s.finished[runID] = status
	s.warnings[runID] = warnings
	return nil
}

func testPhotos(n int) []*moments.Photo {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	photos := make([]*moments.Photo, n)
	for i := range photos {
		photos[i] = &moments.Photo{
			ID:      string(rune('a' + i)),
			TakenAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	return photos
}

func TestRunPersistsOutcome(t *testing.T) {
	store := newMemoryStore()
	runner, err := New(&stubSource{photos: testPhotos(3)}, &stubProvider{}, moments.DefaultCriteria(), store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := runner.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.PhotoCount != 3 {
		t.Errorf("expected 3 photos, got %d", res.PhotoCount)
	}
	if len(res.Clusters) == 0 {
		t.Error("expected at least one cluster")
	}

	if store.created[res.RunID] != 3 {
		t.Errorf("expected run record with 3 photos, got %d", store.created[res.RunID])
	}
	if len(store.saved[res.RunID]) != len(res.Clusters) {
		t.Errorf("expected %d persisted clusters, got %d", len(res.Clusters), len(store.saved[res.RunID]))
	}
	if store.finished[res.RunID] != "completed" {
		t.Errorf("expected run marked completed, got %q", store.finished[res.RunID])
	}
}

func TestRunWithoutStore(t *testing.T) {
	runner, err := New(&stubSource{photos: testPhotos(2)}, &stubProvider{}, moments.DefaultCriteria(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := runner.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RunID == "" {
		t.Error("expected a run ID even without persistence")
	}
}

func TestRunSourceError(t *testing.T) {
	store := newMemoryStore()
	runner, err := New(&stubSource{err: errors.New("boom")}, &stubProvider{}, moments.DefaultCriteria(), store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := runner.Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected error from source")
	}
	if len(store.created) != 0 {
		t.Error("expected no run record when listing fails")
	}
}

func TestRunCancelledMarksRun(t *testing.T) {
	store := newMemoryStore()
	runner, err := New(&stubSource{photos: testPhotos(3)}, &stubProvider{}, moments.DefaultCriteria(), store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, RunOptions{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}

	for runID, status := range store.finished {
		if status != "cancelled" {
			t.Errorf("expected run %s marked cancelled, got %q", runID, status)
		}
	}
}

func TestRunProgressPhases(t *testing.T) {
	runner, err := New(&stubSource{photos: testPhotos(4)}, &stubProvider{}, moments.DefaultCriteria(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var phases []string
	var last ProgressInfo
	_, err = runner.Run(context.Background(), RunOptions{
		OnProgress: func(info ProgressInfo) {
			phases = append(phases, info.Phase)
			last = info
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(phases) == 0 || phases[0] != "listing" {
		t.Errorf("expected first phase 'listing', got %v", phases)
	}
	if last.Phase != "clustering" || last.Current != 4 || last.Total != 4 {
		t.Errorf("expected final progress clustering 4/4, got %+v", last)
	}
}

func TestNewValidatesInputs(t *testing.T) {
	if _, err := New(nil, &stubProvider{}, moments.DefaultCriteria(), nil, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := New(&stubSource{}, nil, moments.DefaultCriteria(), nil, nil); err == nil {
		t.Error("expected error for nil provider")
	}

	crit := moments.DefaultCriteria()
	crit.MaxClusterSize = 0
	if _, err := New(&stubSource{}, &stubProvider{}, crit, nil, nil); err == nil {
		t.Error("expected error for invalid criteria")
	}
}
