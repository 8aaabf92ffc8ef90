package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLocalStorage_UploadDownloadRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx := context.Background()

	src := writeTempFile(t, "parquet bytes")
	obj := "eurostat/une_rt_m/latest/processed/data.parquet"
	if err := store.Upload(ctx, src, obj); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	ok, err := store.Exists(ctx, obj)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !ok {
		t.Fatal("uploaded object not found")
	}

	dest := filepath.Join(t.TempDir(), "restored", "data.parquet")
	if err := store.Download(ctx, obj, dest); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read download: %v", err)
	}
	if string(got) != "parquet bytes" {
		t.Errorf("downloaded content = %q", got)
	}
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	err = store.Download(context.Background(), "nope/object", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_Delete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx := context.Background()

	src := writeTempFile(t, "x")
	if err := store.Upload(ctx, src, "a/b"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if err := store.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ok, err := store.Exists(ctx, "a/b")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if ok {
		t.Error("object still exists after delete")
	}

	// Deleting a missing object is not an error.
	if err := store.Delete(ctx, "a/b"); err != nil {
		t.Errorf("delete of missing object failed: %v", err)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx := context.Background()

	src := writeTempFile(t, "x")
	objects := []string{
		"gss/cross-2022/latest/processed/data.parquet",
		"gss/cross-2022/latest/meta/ingestion_manifest.json",
		"wvs/wave7/latest/processed/data.parquet",
	}
	for _, obj := range objects {
		if err := store.Upload(ctx, src, obj); err != nil {
			t.Fatalf("upload %s failed: %v", obj, err)
		}
	}

	got, err := store.ListObjects(ctx, "gss/")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	sort.Strings(got)
	want := []string{
		"gss/cross-2022/latest/meta/ingestion_manifest.json",
		"gss/cross-2022/latest/processed/data.parquet",
	}
	if len(got) != len(want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// An unknown prefix lists nothing.
	none, err := store.ListObjects(ctx, "soep/")
	if err != nil {
		t.Fatalf("list of unknown prefix failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unexpected objects: %v", none)
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Upload(ctx, writeTempFile(t, "x"), "a/b"); !errors.Is(err, context.Canceled) {
		t.Errorf("upload with cancelled context: %v", err)
	}
	if _, err := store.Exists(ctx, "a/b"); !errors.Is(err, context.Canceled) {
		t.Errorf("exists with cancelled context: %v", err)
	}
}
