package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-moments/internal/database"
)

// FingerprintRepository caches visual fingerprints in PostgreSQL/pgvector
// so the embedding server is only hit once per photo across runs. It
// satisfies the feature provider's cache interface.
type FingerprintRepository struct {
	pool *Pool
}

// NewFingerprintRepository creates a fingerprint repository.
func NewFingerprintRepository(pool *Pool) *FingerprintRepository {
	return &FingerprintRepository{pool: pool}
}

// Get returns the cached fingerprint for a photo, with ok=false on a miss.
func (r *FingerprintRepository) Get(ctx context.Context, photoUID string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx,
		"SELECT fingerprint FROM fingerprints WHERE photo_uid = $1", photoUID).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query fingerprint: %w", err)
	}
	return vec.Slice(), true, nil
}

// Put stores a fingerprint, replacing any previous one for the photo.
func (r *FingerprintRepository) Put(ctx context.Context, photoUID string, fingerprint []float32) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fingerprints (photo_uid, fingerprint, dim)
		VALUES ($1, $2, $3)
		ON CONFLICT (photo_uid) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint, dim = EXCLUDED.dim, created_at = NOW()
	`, photoUID, pgvector.NewVector(fingerprint), len(fingerprint))
	if err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}
	return nil
}

// Has checks if a fingerprint exists for the given photo UID.
func (r *FingerprintRepository) Has(ctx context.Context, photoUID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM fingerprints WHERE photo_uid = $1)", photoUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check fingerprint exists: %w", err)
	}
	return exists, nil
}

// Count returns the total number of cached fingerprints.
func (r *FingerprintRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

// FindSimilar returns the photos most similar to the given fingerprint
// using pgvector cosine distance, closest first.
func (r *FingerprintRepository) FindSimilar(ctx context.Context, fingerprint []float32, limit int) ([]database.StoredFingerprint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT photo_uid, fingerprint, dim, created_at
		FROM fingerprints
		ORDER BY fingerprint <=> $1
		LIMIT $2
	`, pgvector.NewVector(fingerprint), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar fingerprints: %w", err)
	}
	defer rows.Close()

	var results []database.StoredFingerprint
	for rows.Next() {
		var sf database.StoredFingerprint
		var vec pgvector.Vector
		if err := rows.Scan(&sf.PhotoUID, &vec, &sf.Dim, &sf.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fingerprint row: %w", err)
		}
		sf.Fingerprint = vec.Slice()
		results = append(results, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprint rows: %w", err)
	}

	return results, nil
}
