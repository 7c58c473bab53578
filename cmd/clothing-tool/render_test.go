package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverItems(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Pair in the root, pair in a subdirectory, and a .ytd without a model.
	touch(t, filepath.Join(root, "jbib_diff_000_a_uni.ytd"))
	touch(t, filepath.Join(root, "jbib_diff_000_a_uni.ydd"))
	touch(t, filepath.Join(root, "dlc_sub", "lowr_001.ytd"))
	touch(t, filepath.Join(root, "dlc_sub", "lowr_001.ydd"))
	touch(t, filepath.Join(root, "orphan.ytd"))

	items, err := discoverItems(root, "/out")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}

	keys := []string{items[0].Key, items[1].Key}
	sort.Strings(keys)
	if keys[0] != "dlc_sub_lowr_001" || keys[1] != "jbib_diff_000_a_uni" {
		t.Errorf("keys: got %v", keys)
	}
}

func TestDiscoverItemsDistinguishesSubdirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Same stem in two directories must not collide on key or preview.
	touch(t, filepath.Join(root, "male", "jbib_000.ytd"))
	touch(t, filepath.Join(root, "male", "jbib_000.ydd"))
	touch(t, filepath.Join(root, "female", "jbib_000.ytd"))
	touch(t, filepath.Join(root, "female", "jbib_000.ydd"))

	items, err := discoverItems(root, "/out")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Key == items[1].Key {
		t.Errorf("keys collide: %q", items[0].Key)
	}
	if items[0].OutputPath == items[1].OutputPath {
		t.Errorf("preview paths collide: %q", items[0].OutputPath)
	}
}
