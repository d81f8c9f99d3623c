package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStorageImplementations(t *testing.T) {
	fs, err := NewFileStorage(StorageConfig{DataDir: filepath.Join(t.TempDir(), "data")})
	if err != nil {
		t.Fatalf("Failed to create file storage: %v", err)
	}

	for name, s := range map[string]Storage{"memory": NewMemoryStorage(), "file": fs} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var missing record
			if err := s.Load(ctx, "missing", &missing); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
			if ok, err := s.Exists(ctx, "missing"); err != nil || ok {
				t.Errorf("Expected missing key to not exist, got %v (err %v)", ok, err)
			}

			if err := s.Save(ctx, "state", record{Name: "a", Count: 2}); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}
			if err := s.Save(ctx, "state", record{Name: "b", Count: 3}); err != nil {
				t.Fatalf("Failed to overwrite: %v", err)
			}

			var got record
			if err := s.Load(ctx, "state", &got); err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			if got != (record{Name: "b", Count: 3}) {
				t.Errorf("Expected overwritten record, got %+v", got)
			}

			if err := s.Delete(ctx, "state"); err != nil {
				t.Fatalf("Failed to delete: %v", err)
			}
			if ok, _ := s.Exists(ctx, "state"); ok {
				t.Error("Expected key to be gone after delete")
			}
			if err := s.Delete(ctx, "state"); err != nil {
				t.Errorf("Expected deleting a missing key to succeed, got %v", err)
			}
		})
	}
}

func TestFileStorage_RejectsUnsafeKeys(t *testing.T) {
	fs, err := NewFileStorage(StorageConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create file storage: %v", err)
	}

	for _, key := range []string{"", "../escape", "a/b"} {
		if err := fs.Save(context.Background(), key, 1); err == nil {
			t.Errorf("Expected key %q to be rejected", key)
		}
	}
}

func TestFileStorage_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(StorageConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("Failed to create file storage: %v", err)
	}
	if err := fs.Save(context.Background(), "state", []string{"x"}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Errorf("Expected only state.json, got %v", entries)
	}
}

func TestNewFileStorage_RequiresDir(t *testing.T) {
	if _, err := NewFileStorage(StorageConfig{}); err == nil {
		t.Error("Expected an error for an empty data directory")
	}
}
