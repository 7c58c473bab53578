package renderpool

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

// fixtureTex describes one texture for writeYTDFixture.
type fixtureTex struct {
	name string
	size uint16 // square, A8R8G8B8
	data []byte // nil means uniform opaque pixels
}

// writeYTDFixture assembles a real RSC7-wrapped texture dictionary on
// disk, the same layout the decoder expects from game files.
func writeYTDFixture(t *testing.T, path string, texs []fixtureTex) {
	t.Helper()

	const (
		virtualBase  = 0x50000000
		physicalBase = 0x60000000
		dictHeader   = 64
		texStruct    = 144
		formatARGB   = 21
	)

	n := len(texs)
	arrOff := dictHeader
	structBase := arrOff + n*8
	nameBase := structBase + n*texStruct

	vlen := nameBase
	for _, tx := range texs {
		vlen += len(tx.name) + 1
	}
	virtual := make([]byte, vlen)
	var physical []byte

	le := binary.LittleEndian
	le.PutUint64(virtual[0x30:], virtualBase+uint64(arrOff))
	le.PutUint16(virtual[0x38:], uint16(n))
	le.PutUint16(virtual[0x3A:], uint16(n))

	nameOff := nameBase
	for i, tx := range texs {
		off := structBase + i*texStruct
		le.PutUint64(virtual[arrOff+i*8:], virtualBase+uint64(off))

		copy(virtual[nameOff:], tx.name)
		le.PutUint64(virtual[off+0x28:], virtualBase+uint64(nameOff))
		nameOff += len(tx.name) + 1

		le.PutUint16(virtual[off+0x50:], tx.size)
		le.PutUint16(virtual[off+0x52:], tx.size)
		le.PutUint32(virtual[off+0x58:], formatARGB)
		virtual[off+0x5D] = 1

		data := tx.data
		if data == nil {
			data = bytes.Repeat([]byte{0x80, 0x80, 0x80, 0xFF}, int(tx.size)*int(tx.size))
		}
		le.PutUint64(virtual[off+0x70:], physicalBase+uint64(len(physical)))
		physical = append(physical, data...)
	}

	pad := func(b []byte) []byte {
		pages := (len(b) + 0x1FF) / 0x200
		if pages == 0 {
			pages = 1
		}
		return append(b, make([]byte, pages*0x200-len(b))...)
	}
	virtual = pad(virtual)
	physical = pad(physical)

	pageFlags := func(b []byte) uint32 {
		pages := len(b) / 0x200
		var f uint32
		f |= uint32(pages&1) << 27
		f |= uint32(pages>>1&1) << 26
		f |= uint32(pages>>2&1) << 25
		f |= uint32(pages>>3&1) << 24
		return f
	}

	var out bytes.Buffer
	var hdr [16]byte
	le.PutUint32(hdr[0:4], 0x37435352)
	le.PutUint32(hdr[4:8], 13)
	le.PutUint32(hdr[8:12], pageFlags(virtual))
	le.PutUint32(hdr[12:16], pageFlags(physical))
	out.Write(hdr[:])

	fw, err := flate.NewWriter(&out, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := fw.Write(virtual); err != nil {
		t.Fatalf("compress virtual: %v", err)
	}
	if _, err := fw.Write(physical); err != nil {
		t.Fatalf("compress physical: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close flate: %v", err)
	}

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

// noise fills an A8R8G8B8 buffer with enough distinct pixels to defeat
// the placeholder check.
func noise(size int) []byte {
	data := make([]byte, size*size*4)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestVariantYTDs(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"jbib_diff_001_a_uni.ytd",
		"jbib_diff_001_b_uni.ytd",
		"jbib_diff_001_c_whi.ytd",
		"jbib_diff_002_a_uni.ytd",
		"lowr_002_a.ytd",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := VariantYTDs(filepath.Join(dir, "jbib_diff_001_a_uni.ytd"))
	sort.Strings(got)
	want := []string{
		filepath.Join(dir, "jbib_diff_001_a_uni.ytd"),
		filepath.Join(dir, "jbib_diff_001_b_uni.ytd"),
		filepath.Join(dir, "jbib_diff_001_c_whi.ytd"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variant %d: got %q, want %q", i, got[i], want[i])
		}
	}

	// A name without the variant pattern resolves to itself.
	self := filepath.Join(dir, "lowr_002_a.ytd")
	if got := VariantYTDs(self); len(got) != 1 || got[0] != self {
		t.Errorf("non-variant name: got %v", got)
	}
}

func TestExtractTextures(t *testing.T) {
	dir := t.TempDir()
	ytdPath := filepath.Join(dir, "jbib_diff_001_a_uni.ytd")
	writeYTDFixture(t, ytdPath, []fixtureTex{
		{name: "jbib_diff_001_a_uni", size: 32, data: noise(32)},
		{name: "jbib_normal_n", size: 16, data: noise(16)},
	})

	outDir := filepath.Join(dir, "out")
	paths, err := ExtractTextures(ytdPath, outDir, logger.Discard())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d files, want 2", len(paths))
	}
	for _, p := range paths {
		blob, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(blob, []byte("DDS ")) {
			t.Errorf("%s does not start with the DDS magic", p)
		}
	}
}

func TestExtractTexturesDedupesVariants(t *testing.T) {
	dir := t.TempDir()
	// Both variants carry the same texture name; it must be written once.
	a := filepath.Join(dir, "jbib_diff_003_a_uni.ytd")
	b := filepath.Join(dir, "jbib_diff_003_b_uni.ytd")
	writeYTDFixture(t, a, []fixtureTex{{name: "shared_diff", size: 16, data: noise(16)}})
	writeYTDFixture(t, b, []fixtureTex{
		{name: "Shared_Diff", size: 16, data: noise(16)},
		{name: "extra_diff", size: 16, data: noise(16)},
	})

	paths, err := ExtractTextures(a, filepath.Join(dir, "out"), logger.Discard())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d files, want 2 (shared written once): %v", len(paths), paths)
	}
}

func TestRenderBatchPlaceholderResolvedEarly(t *testing.T) {
	dir := t.TempDir()
	ytdPath := filepath.Join(dir, "jbib_diff_000_a_uni.ytd")
	// Uniform pixels in a small texture: the placeholder short-circuit
	// must resolve this without any worker involvement.
	writeYTDFixture(t, ytdPath, []fixtureTex{{name: "jbib_diff_000_a_uni", size: 16}})

	outPath := filepath.Join(dir, "previews", "jbib_000.png")
	cfg := DefaultConfig()
	cfg.OutputSize = 64
	cfg.Command = []string{"/nonexistent/worker"} // must never be launched

	results := RenderBatch([]BatchItem{{
		Key:         "jbib_000",
		TexturePath: ytdPath,
		ModelPath:   filepath.Join(dir, "jbib_000_u.ydd"),
		OutputPath:  outPath,
	}}, cfg, logger.Discard())

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Success {
		t.Fatalf("placeholder item should succeed: %s", results[0].Err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("blank preview not written: %v", err)
	}

	// The diffuse metadata travels with the result for the catalog.
	info := results[0].Texture
	if info.Name != "jbib_diff_000_a_uni" {
		t.Errorf("texture name: got %q", info.Name)
	}
	if info.Width != 16 || info.Height != 16 {
		t.Errorf("texture size: got %dx%d, want 16x16", info.Width, info.Height)
	}
	if info.Format != "A8R8G8B8" {
		t.Errorf("texture format: got %q", info.Format)
	}
}

func TestRenderBatchBadContainer(t *testing.T) {
	dir := t.TempDir()
	ytdPath := filepath.Join(dir, "broken.ytd")
	if err := os.WriteFile(ytdPath, []byte("not a container"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Command = []string{"/nonexistent/worker"}

	results := RenderBatch([]BatchItem{{
		Key:         "broken",
		TexturePath: ytdPath,
		OutputPath:  filepath.Join(dir, "broken.png"),
	}}, cfg, logger.Discard())

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Success {
		t.Fatal("broken container should fail")
	}
	if !strings.Contains(results[0].Err, "container parse") {
		t.Errorf("failure reason should mention container parsing: %q", results[0].Err)
	}
}
