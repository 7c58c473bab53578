package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FjamZoo/clothing-tool/internal/catalog"
)

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPreviewServerHealthz(t *testing.T) {
	t.Parallel()

	e := newPreviewServer(t.TempDir())
	rec := doGet(t, e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: got %d", rec.Code)
	}
}

func TestPreviewServerCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := newPreviewServer(dir)

	// No catalog written yet.
	if rec := doGet(t, e, "/api/catalog"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing catalog status: got %d", rec.Code)
	}

	entries := []catalog.Entry{{Key: "jbib_000", Preview: "previews/jbib_000.png"}}
	if err := catalog.Write(filepath.Join(dir, "catalog.json"), entries); err != nil {
		t.Fatal(err)
	}

	rec := doGet(t, e, "/api/catalog")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"jbib_000"`) {
		t.Errorf("catalog body missing entry: %s", rec.Body.String())
	}
}

func TestPreviewServerPreviews(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	previewDir := filepath.Join(dir, "previews")
	if err := os.MkdirAll(previewDir, 0o755); err != nil {
		t.Fatal(err)
	}
	blob := []byte("\x89PNG fake")
	if err := os.WriteFile(filepath.Join(previewDir, "jbib_000.png"), blob, 0o644); err != nil {
		t.Fatal(err)
	}

	e := newPreviewServer(dir)

	rec := doGet(t, e, "/previews/jbib_000.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status: got %d", rec.Code)
	}
	if rec.Body.String() != string(blob) {
		t.Errorf("preview body mismatch")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type: got %q", ct)
	}

	if rec := doGet(t, e, "/previews/nope.png"); rec.Code != http.StatusNotFound {
		t.Errorf("missing preview status: got %d", rec.Code)
	}
}
