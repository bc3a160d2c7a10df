package library

import (
	"context"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

// Source is a photo catalog the engine can cluster. List returns photo
// metadata in no particular order; the engine sorts by capture time
// itself. Open returns the original image bytes for feature extraction.
type Source interface {
	List(ctx context.Context) ([]*moments.Photo, error)
	Open(ctx context.Context, photoID string) ([]byte, error)
}
