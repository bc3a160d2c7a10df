package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestNewDirSourceRejectsMissingDir(t *testing.T) {
	if _, err := NewDirSource("/nonexistent/photos"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestNewDirSourceRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.jpg")
	writeFile(t, path, []byte("x"))

	if _, err := NewDirSource(path); err == nil {
		t.Error("expected error for non-directory path")
	}
}

func TestDirSourceList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("a"))
	writeFile(t, filepath.Join(root, "sub", "b.PNG"), []byte("b"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("skip"))
	writeFile(t, filepath.Join(root, "movie.mp4"), []byte("skip"))

	src, err := NewDirSource(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	photos, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(photos))
	}

	ids := map[string]bool{}
	for _, p := range photos {
		ids[p.ID] = true
		if p.TakenAt.IsZero() {
			t.Errorf("photo %s has no timestamp", p.ID)
		}
	}
	if !ids["a.jpg"] || !ids["sub/b.PNG"] {
		t.Errorf("unexpected photo IDs: %v", ids)
	}
}

func TestDirSourceListCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("a"))

	src, err := NewDirSource(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.List(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestDirSourceOpen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "b.jpg"), []byte("image-bytes"))

	src, err := NewDirSource(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := src.Open(context.Background(), "sub/b.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDirSourceOpenRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	src, err := NewDirSource(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"../secret.jpg", "../../etc/passwd", "/etc/passwd"} {
		if _, err := src.Open(context.Background(), id); err == nil {
			t.Errorf("expected error for photo id %q", id)
		}
	}
}

func TestDirSourceOpenMissing(t *testing.T) {
	src, err := NewDirSource(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := src.Open(context.Background(), "nope.jpg"); err == nil {
		t.Error("expected error for missing photo")
	}
}
