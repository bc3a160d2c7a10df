package moments

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PhotoFeatures is what a feature provider computes for one photo.
type PhotoFeatures struct {
	Fingerprint []float32
	FaceCount   *int
	Quality     *QualityScores
}

// FeatureProvider supplies fingerprints and quality bundles. The engine
// calls it serially, one photo at a time: issuing many concurrent analysis
// calls against the same ML runtime exhausts it, so higher wall-clock
// latency is accepted for stability.
type FeatureProvider interface {
	Features(ctx context.Context, photoID string) (*PhotoFeatures, error)
}

// Options tune a clustering run without changing the criteria.
type Options struct {
	// BatchSize bounds peak memory by processing photos in small batches
	// and releasing transient buffers in between. Default 5.
	BatchSize int

	// FeatureRetries is the number of retries after a failed feature
	// fetch. Zero means the default of 2; set a negative value to
	// disable retries.
	FeatureRetries int

	// RetryBackoff is the pause between feature retries. Default 500ms.
	RetryBackoff time.Duration

	// OnProgress, when set, is invoked with (completed, total) after each
	// photo is assigned.
	OnProgress func(completed, total int)

	// Logger receives structured diagnostic events keyed by photo and
	// cluster id, so callers and tests can see why a photo was admitted
	// or split. Nil discards diagnostics.
	Logger *slog.Logger

	// SubClusters enables the near-duplicate post-pass. Off by default:
	// it is quadratic in cluster size and strictly cosmetic.
	SubClusters bool
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	switch {
	case o.FeatureRetries == 0:
		o.FeatureRetries = 2
	case o.FeatureRetries < 0:
		o.FeatureRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Engine groups photos into moment clusters and ranks each cluster's
// members. A single Engine may run multiple times; each run owns its
// cluster list exclusively, so runs are deterministic for the same input
// and provider output.
type Engine struct {
	provider FeatureProvider
	criteria Criteria
	opts     Options
}

// Result is the outcome of one clustering run.
type Result struct {
	Clusters []*Cluster
	// Warnings records per-photo analysis failures that were absorbed
	// rather than propagated. The photos still clustered permissively.
	Warnings []string
}

// New validates the criteria and builds an engine.
func New(provider FeatureProvider, criteria Criteria, opts Options) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("feature provider is required")
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid clustering criteria: %w", err)
	}
	return &Engine{
		provider: provider,
		criteria: criteria,
		opts:     opts.withDefaults(),
	}, nil
}

// Cluster runs the full pipeline: sort by timestamp, stream photos through
// the compatibility evaluator, then rank and annotate every cluster.
// Per-photo analysis failures degrade to permissive defaults; only context
// cancellation aborts the run.
func (e *Engine) Cluster(ctx context.Context, photos []*Photo) (*Result, error) {
	result := &Result{}
	if len(photos) == 0 {
		return result, nil
	}

	log := e.opts.Logger

	// Ascending capture time; stable so same-timestamp photos keep their
	// input order and re-runs produce identical clusters.
	ordered := make([]*Photo, len(photos))
	copy(ordered, photos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TakenAt.Before(ordered[j].TakenAt)
	})

	var clusters []*Cluster
	completed := 0

	for start := 0; start < len(ordered); start += e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("clustering cancelled: %w", err)
		}

		end := min(start+e.opts.BatchSize, len(ordered))
		for _, p := range ordered[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("clustering cancelled: %w", err)
			}

			if warn := e.ensureFeatures(ctx, p); warn != "" {
				result.Warnings = append(result.Warnings, warn)
			}

			e.assign(p, &clusters, log)

			completed++
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(completed, len(ordered))
			}
		}
	}

	// Membership is final only once the whole stream has been consumed;
	// ranking and quality metrics run per finished cluster.
	for _, c := range clusters {
		rankCluster(c)
		c.Quality = computeQualityMetrics(c)
		if e.opts.SubClusters {
			c.SubClusters = subCluster(c, e.criteria.SubClusterSimilarity)
		}
	}

	result.Clusters = clusters
	return result, nil
}

// ensureFeatures populates fingerprint/quality for a photo through the
// provider, with bounded retries. On persistent failure the photo keeps
// nil features and clusters via the remaining predicates.
func (e *Engine) ensureFeatures(ctx context.Context, p *Photo) string {
	if p.Fingerprint != nil && p.Quality != nil {
		return ""
	}

	var lastErr error
	for attempt := 0; attempt <= e.opts.FeatureRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ""
			case <-time.After(e.opts.RetryBackoff):
			}
		}

		feats, err := e.provider.Features(ctx, p.ID)
		if err != nil {
			lastErr = err
			e.opts.Logger.Warn("feature fetch failed",
				"photo_id", p.ID, "attempt", attempt+1, "error", err)
			continue
		}

		if p.Fingerprint == nil {
			p.Fingerprint = feats.Fingerprint
		}
		if p.FaceCount == nil {
			p.FaceCount = feats.FaceCount
		}
		if p.Quality == nil {
			p.Quality = feats.Quality
		}
		return ""
	}

	return fmt.Sprintf("photo %s: analysis unavailable after %d attempts: %v",
		p.ID, e.opts.FeatureRetries+1, lastErr)
}

// assign appends p to the first compatible cluster in creation order, or
// starts a new singleton cluster. Greedy and order-dependent, not a global
// optimum; the accepted approximation keeps the run streaming.
func (e *Engine) assign(p *Photo, clusters *[]*Cluster, log *slog.Logger) {
	for _, c := range *clusters {
		ok, reason := isCompatible(p, c, e.criteria)
		if !ok {
			log.Debug("cluster rejected",
				"photo_id", p.ID, "cluster_id", c.ID, "reason", string(reason))
			continue
		}
		if len(c.Members) >= e.criteria.MaxClusterSize {
			// Full clusters stop growing; compatible photos fall
			// through and start a new cluster instead.
			log.Debug("cluster full",
				"photo_id", p.ID, "cluster_id", c.ID, "size", len(c.Members))
			continue
		}
		c.add(p)
		log.Info("photo assigned",
			"photo_id", p.ID, "cluster_id", c.ID, "reason", string(reason),
			"size", len(c.Members))
		return
	}

	c := &Cluster{
		ID:                        uuid.NewString(),
		StartTime:                 p.TakenAt,
		EndTime:                   p.TakenAt,
		RepresentativeFingerprint: p.Fingerprint,
	}
	c.add(p)
	*clusters = append(*clusters, c)
	log.Info("cluster created", "photo_id", p.ID, "cluster_id", c.ID)
}
