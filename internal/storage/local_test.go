package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "q5.txt")
	content := []byte("n_name|revenue\nINDIA|1900.00\n")
	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	ctx := context.Background()

	objectPath := "results/2024/q5.txt"
	if err := storage.Upload(ctx, srcPath, objectPath); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	exists, err := storage.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected object to exist")
	}

	dstPath := filepath.Join(srcDir, "nested", "downloaded.txt")
	if err := storage.Download(ctx, objectPath, dstPath); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	downloaded, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(downloaded) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", downloaded, content)
	}
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	err = storage.Download(context.Background(), "tables/region.tbl", filepath.Join(t.TempDir(), "region.tbl"))
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}

	exists, err := storage.Exists(context.Background(), "tables/region.tbl")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected object to not exist")
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := storage.Upload(ctx, "unused", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload: expected context.Canceled, got %v", err)
	}
	if _, err := storage.Exists(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Exists: expected context.Canceled, got %v", err)
	}
}

func TestLocalStorage_RejectsPathsOutsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	storage, err := NewLocalStorage(root)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	src := filepath.Join(t.TempDir(), "result.tbl")
	if err := os.WriteFile(src, []byte("n_name|revenue\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	for _, objectPath := range []string{"../escape.tbl", "results/../../escape.tbl", "", "/"} {
		if err := storage.Upload(context.Background(), src, objectPath); !errors.Is(err, ErrUploadFailed) {
			t.Errorf("Upload(%q): expected ErrUploadFailed, got %v", objectPath, err)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.tbl")); !os.IsNotExist(err) {
		t.Error("expected no file outside the storage root")
	}
}

func TestLocalStorage_UploadReplaces(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	src := filepath.Join(t.TempDir(), "result.tbl")
	ctx := context.Background()
	for _, content := range []string{"n_name|revenue\nINDIA|1900.00\n", "n_name|revenue\n"} {
		if err := os.WriteFile(src, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
		if err := storage.Upload(ctx, src, "results/q5.tbl"); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(storage.Root(), "results", "q5.tbl"))
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
	}
	if string(data) != "n_name|revenue\n" {
		t.Errorf("expected replaced content, got %q", data)
	}

	entries, err := os.ReadDir(filepath.Join(storage.Root(), "results"))
	if err != nil {
		t.Fatalf("failed to list results: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the object in results, got %d entries", len(entries))
	}
}
