package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriverLayout(t *testing.T) {
	d := NewDeriver("/cache")
	got, err := d.Path("https://deno.land/std/path/mod.ts?v=1#frag")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	sum := sha256.Sum256([]byte("/std/path/mod.ts"))
	want := filepath.Join("/cache", "deps", "https", "deno.land", hex.EncodeToString(sum[:]))
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDeriverIsDeterministic(t *testing.T) {
	d := NewDeriver(t.TempDir())
	a, err := d.Path("https://example.com/a.ts")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	b, err := d.Path("https://example.com/a.ts")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if a != b {
		t.Fatalf("same locator must map to the same path: %s vs %s", a, b)
	}

	others := []string{
		"https://example.com/b.ts",
		"https://example.com/a.ts/",
		"https://example.com/A.ts",
		"http://example.com/a.ts",
		"https://example.org/a.ts",
		"https://example.com:8443/a.ts",
	}
	for _, other := range others {
		p, err := d.Path(other)
		if err != nil {
			t.Fatalf("path error for %s: %v", other, err)
		}
		if p == a {
			t.Fatalf("%s must not collide with https://example.com/a.ts", other)
		}
	}
}

func TestDeriverEmptyPathHashesRoot(t *testing.T) {
	d := NewDeriver("/cache")
	bare, err := d.Path("https://example.com")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	slash, err := d.Path("https://example.com/")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if bare != slash {
		t.Fatalf("empty path should hash as \"/\": %s vs %s", bare, slash)
	}
}

func TestDeriverPortDirectory(t *testing.T) {
	d := NewDeriver("/cache")
	got, err := d.Path("http://localhost:8080/mod.ts")
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != "localhost_PORT8080" {
		t.Fatalf("unexpected host directory in %s", got)
	}
}

func TestDeriverRejectsNonRemote(t *testing.T) {
	d := NewDeriver("/cache")
	for _, id := range []string{"./local/file.ts", "not-a-url", "file:///tmp/x.ts", "npm:react"} {
		if _, err := d.Path(id); !errors.Is(err, ErrNotRemote) {
			t.Fatalf("expected ErrNotRemote for %s, got %v", id, err)
		}
	}
}

func TestResolvePassThrough(t *testing.T) {
	d := NewDeriver("/cache")
	for _, id := range []string{"./local/file.ts", "not-a-url", "/abs/file.ts"} {
		if got := d.Resolve(id); got != id {
			t.Fatalf("expected %s to pass through, got %s", id, got)
		}
	}

	remote := "https://example.com/mod.ts"
	want, _ := d.Path(remote)
	if got := d.Resolve(remote); got != want {
		t.Fatalf("expected cache path %s, got %s", want, got)
	}
}

func TestIsRemote(t *testing.T) {
	testCases := map[string]bool{
		"https://example.com/mod.ts": true,
		"http://localhost:8000/x.js": true,
		"file:///tmp/x.ts":           false,
		"./x.ts":                     false,
		"react":                      false,
		"https:///no-host":           false,
	}
	for id, want := range testCases {
		if got := IsRemote(id); got != want {
			t.Fatalf("IsRemote(%q) = %v, want %v", id, got, want)
		}
	}
}

func writeRawBody(t *testing.T, filePath, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
}
