package resource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"impuls.dev/impuls/impulserr"
)

func TestCacheResourcesFetchesAndSkipsUnmodified(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(srcPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	workspace := filepath.Join(dir, "workspace")
	resources := map[string]Resource{"feed": NewLocalResource("feed", srcPath)}

	cached, changed, err := CacheResources(context.Background(), resources, workspace)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected changed on first fetch")
	}
	text, err := cached["feed"].Text()
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello" {
		t.Fatalf("got %q", text)
	}

	_, _, err = CacheResources(context.Background(), resources, workspace)
	if !errors.Is(err, impulserr.ErrInputNotModified) {
		t.Fatalf("expected ErrInputNotModified on second fetch, got %v", err)
	}
}

func TestEnsureResourcesCachedMissing(t *testing.T) {
	dir := t.TempDir()
	resources := map[string]Resource{"feed": NewLocalResource("feed", filepath.Join(dir, "missing.txt"))}

	_, err := EnsureResourcesCached(resources, dir)
	if err == nil {
		t.Fatal("expected error for uncached resource")
	}
}

func TestPrepareResourcesFromCache(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(srcPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	workspace := filepath.Join(dir, "workspace")
	resources := map[string]Resource{"feed": NewLocalResource("feed", srcPath)}

	if _, _, err := CacheResources(context.Background(), resources, workspace); err != nil {
		t.Fatal(err)
	}

	cached, proceed, err := PrepareResources(context.Background(), resources, workspace, true)
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("expected proceed=true for from_cache")
	}
	if _, ok := cached["feed"]; !ok {
		t.Fatal("expected feed resource present")
	}
}
