package moments

import (
	"errors"
	"fmt"
	"time"
)

// Location is a WGS84 coordinate attached to a photo.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SalientRegion is a visually important sub-area of a photo,
// reported by the analyzer as a relative [x, y, w, h] box.
type SalientRegion struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score float64 `json:"score"`
}

// QualityScores bundles the precomputed quality signals for a photo.
// All values except Aesthetic are normalized to [0,1]; Aesthetic keeps
// the analyzer's native [-1,1] range.
type QualityScores struct {
	Technical    float64         `json:"technical"`
	FaceQuality  float64         `json:"face_quality"`
	Aesthetic    float64         `json:"aesthetic"`
	HasAesthetic bool            `json:"has_aesthetic"`
	Composition  float64         `json:"composition"`
	IsUtility    bool            `json:"is_utility"`
	Salient      []SalientRegion `json:"salient,omitempty"`
}

// Photo is the engine's view of a single photograph. Identity and capture
// metadata are immutable; Fingerprint, FaceCount and Quality start out nil
// and are populated once by the feature provider, then treated as final.
type Photo struct {
	ID       string
	TakenAt  time.Time
	Location *Location

	Fingerprint []float32
	FaceCount   *int
	Quality     *QualityScores
}

// faceCount returns the face count and whether it is known.
func (p *Photo) faceCount() (int, bool) {
	if p.FaceCount == nil {
		return 0, false
	}
	return *p.FaceCount, true
}

// Cluster is a group of photos judged to belong to the same moment.
// Members keeps arrival order; ranking fields are populated after the
// photo stream has been fully consumed.
type Cluster struct {
	ID      string   `json:"id"`
	Members []*Photo `json:"-"`

	// Fingerprint of the first member, fixed at creation. New members are
	// compared against this, not against a recomputed centroid.
	RepresentativeFingerprint []float32 `json:"-"`

	CenterLocation *Location `json:"center_location,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`

	RankedMembers     []PhotoScore           `json:"ranked_members,omitempty"`
	Representative    *Photo                 `json:"-"`
	RankingConfidence float64                `json:"ranking_confidence"`
	Quality           *ClusterQualityMetrics `json:"quality,omitempty"`
	SubClusters       []SubCluster           `json:"sub_clusters,omitempty"`

	// Running sum of member locations, for the centroid.
	locSum   Location
	locCount int
}

// lastMember returns the most recently added member. The temporal
// predicate is a rolling window against this photo, not the cluster start.
func (c *Cluster) lastMember() *Photo {
	if len(c.Members) == 0 {
		return nil
	}
	return c.Members[len(c.Members)-1]
}

// add appends a photo and updates the time range and location centroid.
func (c *Cluster) add(p *Photo) {
	c.Members = append(c.Members, p)

	if p.TakenAt.Before(c.StartTime) || c.StartTime.IsZero() {
		c.StartTime = p.TakenAt
	}
	if p.TakenAt.After(c.EndTime) {
		c.EndTime = p.TakenAt
	}

	if p.Location != nil {
		c.locSum.Lat += p.Location.Lat
		c.locSum.Lng += p.Location.Lng
		c.locCount++
		c.CenterLocation = &Location{
			Lat: c.locSum.Lat / float64(c.locCount),
			Lng: c.locSum.Lng / float64(c.locCount),
		}
	}
}

// averageFaceCount returns the mean face count over members with known
// counts, and whether any member had one.
func (c *Cluster) averageFaceCount() (float64, bool) {
	var sum, n int
	for _, m := range c.Members {
		if cnt, ok := m.faceCount(); ok {
			sum += cnt
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// PhotoScore holds the per-factor and combined ranking scores for one
// cluster member. All factors are in [0,1].
type PhotoScore struct {
	Photo              *Photo  `json:"-"`
	PhotoID            string  `json:"photo_id"`
	QualityScore       float64 `json:"quality_score"`
	ClusterRelevance   float64 `json:"cluster_relevance"`
	UniquenessScore    float64 `json:"uniqueness_score"`
	TemporalOptimality float64 `json:"temporal_optimality"`
	SaliencyScore      float64 `json:"saliency_score"`
	AestheticScore     float64 `json:"aesthetic_score"`
	Combined           float64 `json:"combined"`
	Rank               int     `json:"rank"`
}

// ClusterQualityMetrics are descriptive aggregates for a ranked cluster.
// They never influence membership or ranking; consumers use them to filter
// or explain low-confidence clusters.
type ClusterQualityMetrics struct {
	Diversity            float64 `json:"diversity"`
	Representativeness   float64 `json:"representativeness"`
	TemporalCoherence    float64 `json:"temporal_coherence"`
	VisualCoherence      float64 `json:"visual_coherence"`
	AestheticConsistency float64 `json:"aesthetic_consistency"`
	SaliencyAlignment    float64 `json:"saliency_alignment"`
}

// SubCluster is a tighter grouping inside a cluster, produced by the
// optional sub-clustering post-pass.
type SubCluster struct {
	Kind     string   `json:"kind"` // "near-duplicate"
	PhotoIDs []string `json:"photo_ids"`
	photos   []*Photo
}

// Criteria configures the clustering decision. Values are fixed for the
// duration of a run.
type Criteria struct {
	VisualSimilarityThreshold float64
	TimeGapThreshold          time.Duration
	LocationRadiusMeters      float64
	MaxClusterSize            int
	BurstWindow               time.Duration

	// SubClusterSimilarity is the stricter threshold used by the optional
	// sub-clustering pass.
	SubClusterSimilarity float64
}

// DefaultCriteria returns the tuned defaults.
func DefaultCriteria() Criteria {
	return Criteria{
		VisualSimilarityThreshold: 0.50,
		TimeGapThreshold:          30 * time.Second,
		LocationRadiusMeters:      50,
		MaxClusterSize:            20,
		BurstWindow:               10 * time.Second,
		SubClusterSimilarity:      0.85,
	}
}

// Validate rejects configurations that would make clustering meaningless.
// Configuration errors are fatal to the run; they are the only errors the
// engine propagates to its caller.
func (c Criteria) Validate() error {
	if c.VisualSimilarityThreshold < 0 || c.VisualSimilarityThreshold > 1 {
		return fmt.Errorf("visual similarity threshold %.2f out of range [0,1]", c.VisualSimilarityThreshold)
	}
	if c.TimeGapThreshold <= 0 {
		return errors.New("time gap threshold must be positive")
	}
	if c.LocationRadiusMeters <= 0 {
		return errors.New("location radius must be positive")
	}
	if c.MaxClusterSize <= 0 {
		return errors.New("max cluster size must be positive")
	}
	if c.BurstWindow <= 0 {
		return errors.New("burst window must be positive")
	}
	if c.SubClusterSimilarity < 0 || c.SubClusterSimilarity > 1 {
		return fmt.Errorf("sub-cluster similarity %.2f out of range [0,1]", c.SubClusterSimilarity)
	}
	return nil
}
