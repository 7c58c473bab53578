// Package catalog assembles the catalog.json consumed by the shop UI.
package catalog

import (
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"
)

// Entry describes one previewed asset.
type Entry struct {
	Key     string `json:"key"`
	Name    string `json:"name,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Format  string `json:"format,omitempty"`
	Preview string `json:"preview"`
	Error   string `json:"error,omitempty"`
}

// Catalog is the serialized document.
type Catalog struct {
	Entries []Entry `json:"entries"`
}

// Write serializes entries to path, ordered by key so successive runs
// produce stable diffs.
func Write(path string, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	data, err := json.MarshalIndent(Catalog{Entries: sorted}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a catalog document back.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
