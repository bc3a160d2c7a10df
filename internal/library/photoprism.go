package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-moments/internal/database/mariadb"
	"github.com/kozaktomas/photo-moments/internal/moments"
)

// PhotoPrismSource reads photo metadata from a PhotoPrism MariaDB
// database and image bytes from its originals directory. Face counts
// come from PhotoPrism's face markers, so the feature provider does not
// need to re-detect faces for these photos.
type PhotoPrismSource struct {
	pool      *mariadb.Pool
	originals string
}

// NewPhotoPrismSource wires a MariaDB pool to the originals directory.
func NewPhotoPrismSource(pool *mariadb.Pool, originalsDir string) (*PhotoPrismSource, error) {
	info, err := os.Stat(originalsDir)
	if err != nil {
		return nil, fmt.Errorf("originals directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("originals path %s is not a directory", originalsDir)
	}
	return &PhotoPrismSource{pool: pool, originals: originalsDir}, nil
}

// List maps PhotoPrism records to engine photos. Photos without GPS data
// get a nil location; the spatial predicate treats that permissively.
func (s *PhotoPrismSource) List(ctx context.Context) ([]*moments.Photo, error) {
	records, err := s.pool.ListPhotos(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing library photos: %w", err)
	}

	photos := make([]*moments.Photo, 0, len(records))
	for _, rec := range records {
		faces := rec.FaceCount
		p := &moments.Photo{
			ID:        rec.UID,
			TakenAt:   rec.TakenAt,
			FaceCount: &faces,
		}
		if rec.HasCoords {
			p.Location = &moments.Location{Lat: rec.Lat, Lng: rec.Lng}
		}
		photos = append(photos, p)
	}

	return photos, nil
}

// Open resolves the photo's primary file inside the originals directory.
func (s *PhotoPrismSource) Open(ctx context.Context, photoID string) ([]byte, error) {
	name, err := s.pool.PhotoFileName(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("resolving photo %s: %w", photoID, err)
	}

	data, err := os.ReadFile(filepath.Join(s.originals, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("reading photo %s: %w", photoID, err)
	}
	return data, nil
}
