package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/moments"
)

// ErrNotFound is returned when a requested run or cluster does not exist.
var ErrNotFound = errors.New("not found")

// ClusterRepository persists clustering runs and their results so the
// web API can serve past runs without re-clustering.
type ClusterRepository struct {
	pool *Pool
}

// NewClusterRepository creates a cluster repository.
func NewClusterRepository(pool *Pool) *ClusterRepository {
	return &ClusterRepository{pool: pool}
}

// CreateRun records a new run in "running" state.
func (r *ClusterRepository) CreateRun(ctx context.Context, runID string, photoCount int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs (id, status, photo_count)
		VALUES ($1, 'running', $2)
	`, runID, photoCount)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal and records warnings and an optional
// error message.
func (r *ClusterRepository) FinishRun(ctx context.Context, runID, status string, warnings []string, errMsg string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE runs
		SET status = $2, warnings = $3, error = $4, finished_at = NOW()
		WHERE id = $1
	`, runID, status, pq.Array(warnings), errMsg)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun returns one run.
func (r *ClusterRepository) GetRun(ctx context.Context, runID string) (*database.StoredRun, error) {
	var run database.StoredRun
	var finished sql.NullTime
	err := r.pool.QueryRow(ctx, `
		SELECT id, status, photo_count, warnings, error, started_at, finished_at
		FROM runs WHERE id = $1
	`, runID).Scan(&run.ID, &run.Status, &run.PhotoCount,
		pq.Array(&run.Warnings), &run.Error, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (r *ClusterRepository) ListRuns(ctx context.Context) ([]database.StoredRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, photo_count, warnings, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []database.StoredRun
	for rows.Next() {
		var run database.StoredRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &run.PhotoCount,
			pq.Array(&run.Warnings), &run.Error, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// SaveClusters writes a run's clusters and ranked members in a single
// transaction.
func (r *ClusterRepository) SaveClusters(ctx context.Context, runID string, clusters []*moments.Cluster) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range clusters {
		var lat, lng *float64
		if c.CenterLocation != nil {
			lat = &c.CenterLocation.Lat
			lng = &c.CenterLocation.Lng
		}
		var repUID string
		if c.Representative != nil {
			repUID = c.Representative.ID
		}
		q := c.Quality
		if q == nil {
			q = &moments.ClusterQualityMetrics{}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clusters (
				id, run_id, start_time, end_time, center_lat, center_lng,
				representative_uid, ranking_confidence,
				diversity, representativeness, temporal_coherence,
				visual_coherence, aesthetic_consistency, saliency_alignment
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, c.ID, runID, c.StartTime, c.EndTime, lat, lng,
			repUID, c.RankingConfidence,
			q.Diversity, q.Representativeness, q.TemporalCoherence,
			q.VisualCoherence, q.AestheticConsistency, q.SaliencyAlignment); err != nil {
			return fmt.Errorf("insert cluster %s: %w", c.ID, err)
		}

		for _, s := range c.RankedMembers {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cluster_members (
					cluster_id, photo_uid, rank,
					quality_score, cluster_relevance, uniqueness_score,
					temporal_optimality, saliency_score, aesthetic_score, combined
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, c.ID, s.PhotoID, s.Rank,
				s.QualityScore, s.ClusterRelevance, s.UniquenessScore,
				s.TemporalOptimality, s.SaliencyScore, s.AestheticScore, s.Combined); err != nil {
				return fmt.Errorf("insert member %s of cluster %s: %w", s.PhotoID, c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clusters for run %s: %w", runID, err)
	}
	return nil
}

// ListClusters returns a run's clusters ordered by start time, members
// included.
func (r *ClusterRepository) ListClusters(ctx context.Context, runID string) ([]database.StoredCluster, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, start_time, end_time, center_lat, center_lng,
			representative_uid, ranking_confidence,
			diversity, representativeness, temporal_coherence,
			visual_coherence, aesthetic_consistency, saliency_alignment
		FROM clusters WHERE run_id = $1 ORDER BY start_time
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var clusters []database.StoredCluster
	for rows.Next() {
		c, err := scanCluster(rows.Scan)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}

	for i := range clusters {
		members, err := r.clusterMembers(ctx, clusters[i].ID)
		if err != nil {
			return nil, err
		}
		clusters[i].Members = members
	}

	return clusters, nil
}

// GetCluster returns one cluster with its ranked members.
func (r *ClusterRepository) GetCluster(ctx context.Context, clusterID string) (*database.StoredCluster, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, run_id, start_time, end_time, center_lat, center_lng,
			representative_uid, ranking_confidence,
			diversity, representativeness, temporal_coherence,
			visual_coherence, aesthetic_consistency, saliency_alignment
		FROM clusters WHERE id = $1
	`, clusterID)

	c, err := scanCluster(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cluster %s: %w", clusterID, ErrNotFound)
		}
		return nil, err
	}

	members, err := r.clusterMembers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

func scanCluster(scan func(...any) error) (*database.StoredCluster, error) {
	var c database.StoredCluster
	var lat, lng sql.NullFloat64
	err := scan(&c.ID, &c.RunID, &c.StartTime, &c.EndTime, &lat, &lng,
		&c.RepresentativeID, &c.RankingConfidence,
		&c.Diversity, &c.Representativeness, &c.TemporalCoherence,
		&c.VisualCoherence, &c.AestheticConsistency, &c.SaliencyAlignment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan cluster row: %w", err)
	}
	if lat.Valid {
		c.CenterLat = &lat.Float64
	}
	if lng.Valid {
		c.CenterLng = &lng.Float64
	}
	return &c, nil
}

func (r *ClusterRepository) clusterMembers(ctx context.Context, clusterID string) ([]database.StoredMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cluster_id, photo_uid, rank,
			quality_score, cluster_relevance, uniqueness_score,
			temporal_optimality, saliency_score, aesthetic_score, combined
		FROM cluster_members WHERE cluster_id = $1 ORDER BY rank
	`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()

	var members []database.StoredMember
	for rows.Next() {
		var m database.StoredMember
		if err := rows.Scan(&m.ClusterID, &m.PhotoUID, &m.Rank,
			&m.QualityScore, &m.ClusterRelevance, &m.UniquenessScore,
			&m.TemporalOptimality, &m.SaliencyScore, &m.AestheticScore, &m.Combined); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}
