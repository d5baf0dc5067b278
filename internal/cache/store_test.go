package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	locator := "https://example.com/mod.ts"

	payload := []byte(`import "./dep.ts";`)
	meta := Metadata{URL: locator, Headers: map[string]string{"content-type": "application/typescript"}}
	entry, err := store.Put(context.Background(), locator, payload, meta)
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if entry.MetaPath != entry.FilePath+MetadataSuffix {
		t.Fatalf("meta path mismatch: %s", entry.MetaPath)
	}

	result, err := store.Get(context.Background(), locator)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatalf("read cached body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("cached payload mismatch: %s", string(body))
	}
	if result.Entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", result.Entry.SizeBytes)
	}
}

func TestStoreWritesPrettyMetadata(t *testing.T) {
	store := newTestStore(t)
	locator := "https://example.com/mod.ts"

	entry, err := store.Put(context.Background(), locator, []byte("x"), Metadata{
		URL:     locator,
		Headers: map[string]string{"link": "<https://example.com/>; rel=canonical"},
	})
	if err != nil {
		t.Fatalf("put error: %v", err)
	}

	raw, err := os.ReadFile(entry.MetaPath)
	if err != nil {
		t.Fatalf("read metadata error: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"url\": \"https://example.com/mod.ts\"") {
		t.Fatalf("metadata should be indented with two spaces: %s", raw)
	}
	if !strings.Contains(string(raw), "<https://example.com/>") {
		t.Fatalf("metadata should not escape html characters: %s", raw)
	}

	var decoded Metadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("metadata is not valid json: %v", err)
	}
	if decoded.URL != locator {
		t.Fatalf("url mismatch: %s", decoded.URL)
	}

	meta, err := store.Metadata(context.Background(), locator)
	if err != nil {
		t.Fatalf("metadata error: %v", err)
	}
	if meta.Headers["link"] == "" {
		t.Fatalf("headers not round-tripped: %+v", meta.Headers)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "https://example.com/missing.ts")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Metadata(context.Background(), "https://example.com/missing.ts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for metadata, got %v", err)
	}
}

func TestStoreStatIgnoresMissingMetadata(t *testing.T) {
	store := newTestStore(t)
	locator := "https://example.com/body-only.ts"

	filePath, err := store.Deriver().Path(locator)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	writeRawBody(t, filePath, "export {};")

	if _, err := store.Stat(context.Background(), locator); err != nil {
		t.Fatalf("body without metadata should still count as cached: %v", err)
	}
	if _, err := store.Metadata(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected metadata ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	locator := "https://example.com/remove.ts"
	entry, err := store.Put(context.Background(), locator, []byte("data"), Metadata{URL: locator})
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Remove(context.Background(), locator); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := store.Get(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if _, err := os.Stat(entry.MetaPath); !os.IsNotExist(err) {
		t.Fatalf("metadata should be removed, stat err=%v", err)
	}
	if err := store.Remove(context.Background(), locator); err != nil {
		t.Fatalf("removing a missing entry should succeed: %v", err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	locator := "https://example.com/dir"

	filePath, err := store.Deriver().Path(locator)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Get(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreRejectsNonRemoteLocator(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Put(context.Background(), "./local.ts", []byte("x"), Metadata{}); !errors.Is(err, ErrNotRemote) {
		t.Fatalf("expected ErrNotRemote, got %v", err)
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
