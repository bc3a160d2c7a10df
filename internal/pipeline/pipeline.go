package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-moments/internal/library"
	"github.com/kozaktomas/photo-moments/internal/moments"
)

// Store persists run results. Satisfied by the postgres cluster
// repository; nil disables persistence.
type Store interface {
	CreateRun(ctx context.Context, runID string, photoCount int) error
	SaveClusters(ctx context.Context, runID string, clusters []*moments.Cluster) error
	FinishRun(ctx context.Context, runID, status string, warnings []string, errMsg string) error
}

// ProgressInfo contains progress information for callbacks
type ProgressInfo struct {
	Phase   string // "listing", "clustering"
	Current int
	Total   int
}

// RunOptions configures a single clustering run.
type RunOptions struct {
	// RunID identifies the run; a fresh UUID is generated when empty.
	RunID       string
	SubClusters bool
	OnProgress  func(ProgressInfo) // Optional progress callback for CLI/web
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID      string
	PhotoCount int
	Clusters   []*moments.Cluster
	Warnings   []string
	Duration   time.Duration
}

// Runner drives a complete clustering run: list photos from the source,
// stream them through the engine, persist the outcome.
type Runner struct {
	source   library.Source
	provider moments.FeatureProvider
	criteria moments.Criteria
	store    Store
	logger   *slog.Logger
}

// New creates a runner. The store may be nil to skip persistence.
func New(source library.Source, provider moments.FeatureProvider, criteria moments.Criteria, store Store, logger *slog.Logger) (*Runner, error) {
	if source == nil {
		return nil, errors.New("photo source is required")
	}
	if provider == nil {
		return nil, errors.New("feature provider is required")
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		source:   source,
		provider: provider,
		criteria: criteria,
		store:    store,
		logger:   logger,
	}, nil
}

// Run executes one clustering run end to end. A cancelled context aborts
// the run and, when persistence is on, marks the stored run cancelled.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	started := time.Now()
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if opts.OnProgress != nil {
		opts.OnProgress(ProgressInfo{Phase: "listing"})
	}

	photos, err := r.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	r.logger.Info("starting clustering run", "run_id", runID, "photos", len(photos))

	if r.store != nil {
		if err := r.store.CreateRun(ctx, runID, len(photos)); err != nil {
			return nil, fmt.Errorf("create run record: %w", err)
		}
	}

	engine, err := moments.New(r.provider, r.criteria, moments.Options{
		Logger:      r.logger,
		SubClusters: opts.SubClusters,
		OnProgress: func(completed, total int) {
			if opts.OnProgress != nil {
				opts.OnProgress(ProgressInfo{Phase: "clustering", Current: completed, Total: total})
			}
		},
	})
	if err != nil {
		return nil, err
	}

	result, err := engine.Cluster(ctx, photos)
	if err != nil {
		r.finishRun(ctx, runID, err)
		return nil, err
	}

	if r.store != nil {
		if err := r.store.SaveClusters(ctx, runID, result.Clusters); err != nil {
			r.finishRun(ctx, runID, err)
			return nil, fmt.Errorf("persist clusters: %w", err)
		}
		if err := r.store.FinishRun(ctx, runID, "completed", result.Warnings, ""); err != nil {
			return nil, fmt.Errorf("finish run record: %w", err)
		}
	}

	res := &RunResult{
		RunID:      runID,
		PhotoCount: len(photos),
		Clusters:   result.Clusters,
		Warnings:   result.Warnings,
		Duration:   time.Since(started),
	}
	r.logger.Info("clustering run finished",
		"run_id", runID, "clusters", len(res.Clusters),
		"warnings", len(res.Warnings), "duration", res.Duration)
	return res, nil
}

// finishRun records a terminal failure state. The original context may
// already be cancelled, so the update runs detached from it.
func (r *Runner) finishRun(ctx context.Context, runID string, cause error) {
	if r.store == nil {
		return
	}

	status := "failed"
	if errors.Is(cause, context.Canceled) {
		status = "cancelled"
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.store.FinishRun(detached, runID, status, nil, cause.Error()); err != nil {
		r.logger.Warn("failed to record run outcome", "run_id", runID, "error", err)
	}
}
