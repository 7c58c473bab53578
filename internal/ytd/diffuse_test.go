package ytd

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func tex(name string, w, h uint16) Texture {
	return Texture{Name: name, Width: w, Height: h}
}

func TestSelectDiffuse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		textures []Texture
		want     string // "" means nil expected
	}{
		{"empty", nil, ""},
		{"single wins regardless of suffix", []Texture{tex("thing_n", 64, 64)}, "thing_n"},
		{
			"suffixes excluded",
			[]Texture{
				tex("jbib_diff_000_a_uni", 128, 128),
				tex("jbib_normal_n", 256, 256),
				tex("jbib_spec_s", 256, 256),
			},
			"jbib_diff_000_a_uni",
		},
		{
			"largest remaining wins",
			[]Texture{
				tex("small", 64, 64),
				tex("large", 256, 256),
				tex("medium", 128, 128),
			},
			"large",
		},
		{
			"suffix match is case insensitive",
			[]Texture{
				tex("COAT_DIFF", 64, 64),
				tex("COAT_N", 512, 512),
			},
			"COAT_DIFF",
		},
		{
			"all excluded yields nil",
			[]Texture{
				tex("a_n", 64, 64),
				tex("a_s", 64, 64),
				tex("a_m", 64, 64),
			},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectDiffuse(tc.textures)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %q", got.Name)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %q, got nil", tc.want)
			}
			if got.Name != tc.want {
				t.Errorf("got %q, want %q", got.Name, tc.want)
			}
		})
	}
}

// uniformDXT1 builds a texture whose blocks all repeat the same 8 bytes.
func uniformDXT1(w, h uint16) *Texture {
	f := LookupFormat(0x31545844)
	n := MipSize(int(w), int(h), f)
	return &Texture{
		Name:    "placeholder",
		Width:   w,
		Height:  h,
		Format:  f,
		RawData: bytes.Repeat([]byte{0x1F, 0x00, 0xE0, 0x07, 0x55, 0x55, 0x55, 0x55}, n/8),
	}
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	if !IsPlaceholder(uniformDXT1(64, 64)) {
		t.Error("uniform 64x64 DXT1 should be a placeholder")
	}

	// Same content but above the size ceiling.
	if IsPlaceholder(uniformDXT1(256, 256)) {
		t.Error("256x256 texture should never be a placeholder")
	}

	// Varied block content exceeds the distinct-unit ceiling.
	varied := uniformDXT1(64, 64)
	for i := 0; i+8 <= len(varied.RawData); i += 8 {
		binary.LittleEndian.PutUint64(varied.RawData[i:], uint64(i))
	}
	if IsPlaceholder(varied) {
		t.Error("varied block data should not be a placeholder")
	}

	// Uncompressed path: two alternating pixel values stay under the ceiling.
	rgba := LookupFormat(21)
	flat := &Texture{Width: 16, Height: 16, Format: rgba,
		RawData: bytes.Repeat([]byte{0xFF, 0x00, 0xFF, 0xFF, 0x00, 0xFF, 0x00, 0xFF}, 16*16/2)}
	if !IsPlaceholder(flat) {
		t.Error("two-color uncompressed texture should be a placeholder")
	}

	if IsPlaceholder(nil) {
		t.Error("nil texture should not be a placeholder")
	}
	if IsPlaceholder(&Texture{Width: 4, Height: 4, Format: rgba}) {
		t.Error("texture without data should not be a placeholder")
	}
}
