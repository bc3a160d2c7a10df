package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// DirSource serves photos from a plain directory tree. Photo IDs are
// slash-separated paths relative to the root; capture time falls back to
// the file's modification time since plain files carry no EXIF-level
// metadata here.
type DirSource struct {
	root string
}

// NewDirSource validates the directory and returns a source over it.
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("photo directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("photo directory %s is not a directory", root)
	}
	return &DirSource{root: root}, nil
}

// List walks the tree and returns one photo per image file.
func (s *DirSource) List(ctx context.Context) ([]*moments.Photo, error) {
	var photos []*moments.Photo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		photos = append(photos, &moments.Photo{
			ID:      filepath.ToSlash(rel),
			TakenAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking photo directory: %w", err)
	}

	return photos, nil
}

// Open reads the original image bytes. IDs that escape the root are
// rejected.
func (s *DirSource) Open(_ context.Context, photoID string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(photoID))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("photo id %q escapes the library root", photoID)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return nil, fmt.Errorf("reading photo %s: %w", photoID, err)
	}
	return data, nil
}
