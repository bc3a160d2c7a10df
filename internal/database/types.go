package database

import "time"

// StoredFingerprint is a cached visual fingerprint for one photo.
type StoredFingerprint struct {
	PhotoUID    string
	Fingerprint []float32
	Dim         int
	CreatedAt   time.Time
}

// StoredRun is one persisted clustering run.
type StoredRun struct {
	ID         string
	Status     string // "running", "completed", "failed", "cancelled"
	PhotoCount int
	Warnings   []string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StoredCluster is one persisted moment cluster.
type StoredCluster struct {
	ID                string
	RunID             string
	StartTime         time.Time
	EndTime           time.Time
	CenterLat         *float64
	CenterLng         *float64
	RepresentativeID  string
	RankingConfidence float64

	Diversity            float64
	Representativeness   float64
	TemporalCoherence    float64
	VisualCoherence      float64
	AestheticConsistency float64
	SaliencyAlignment    float64

	Members []StoredMember
}

// StoredMember is one ranked member of a persisted cluster.
type StoredMember struct {
	ClusterID          string
	PhotoUID           string
	Rank               int
	QualityScore       float64
	ClusterRelevance   float64
	UniquenessScore    float64
	TemporalOptimality float64
	SaliencyScore      float64
	AestheticScore     float64
	Combined           float64
}
