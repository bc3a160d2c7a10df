package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PhotoRecord is one library photo as stored by PhotoPrism, reduced to
// the fields clustering needs.
type PhotoRecord struct {
	UID       string
	TakenAt   time.Time
	Lat       float64
	Lng       float64
	HasCoords bool
	FaceCount int
	FileName  string
}

// ListPhotos returns all non-deleted photos with their primary file and
// face-marker count. Face counts come from PhotoPrism's own detection
// markers, so they are available without re-analyzing the image.
func (p *Pool) ListPhotos(ctx context.Context) ([]PhotoRecord, error) {
	query := `
		SELECT
			ph.photo_uid,
			ph.taken_at,
			ph.photo_lat,
			ph.photo_lng,
			f.file_name,
			COUNT(m.marker_uid) AS face_count
		FROM photos ph
		JOIN files f ON f.photo_id = ph.id AND f.file_primary = 1 AND f.deleted_at IS NULL
		LEFT JOIN markers m ON m.file_uid = f.file_uid AND m.marker_type = 'face'
		WHERE ph.deleted_at IS NULL
		GROUP BY ph.photo_uid, ph.taken_at, ph.photo_lat, ph.photo_lng, f.file_name
		ORDER BY ph.taken_at
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []PhotoRecord
	for rows.Next() {
		var rec PhotoRecord
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&rec.UID, &rec.TakenAt, &lat, &lng, &rec.FileName, &rec.FaceCount); err != nil {
			return nil, fmt.Errorf("scan photo row: %w", err)
		}
		// PhotoPrism stores 0/0 for photos without GPS data.
		if lat.Valid && lng.Valid && (lat.Float64 != 0 || lng.Float64 != 0) {
			rec.Lat = lat.Float64
			rec.Lng = lng.Float64
			rec.HasCoords = true
		}
		photos = append(photos, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo rows: %w", err)
	}

	return photos, nil
}

// PhotoFileName returns the primary file name for a single photo.
func (p *Pool) PhotoFileName(ctx context.Context, photoUID string) (string, error) {
	query := `
		SELECT f.file_name
		FROM photos ph
		JOIN files f ON f.photo_id = ph.id AND f.file_primary = 1 AND f.deleted_at IS NULL
		WHERE ph.photo_uid = ? AND ph.deleted_at IS NULL
	`

	var name string
	if err := p.db.QueryRowContext(ctx, query, photoUID).Scan(&name); err != nil {
		return "", fmt.Errorf("photo %s: %w", photoUID, err)
	}
	return name, nil
}
