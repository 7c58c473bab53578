package ytd

import "strings"

// nonDiffuseSuffixes mark normal (_n), specular (_s) and mask (_m)
// channel textures.
var nonDiffuseSuffixes = []string{"_n", "_s", "_m"}

// SelectDiffuse picks the diffuse texture from a decoded dictionary.
//
// A single texture wins regardless of name. Otherwise textures carrying a
// non-color channel suffix are excluded and the highest-resolution
// remainder wins. If the suffix filter excludes everything, there is no
// diffuse and nil is returned.
func SelectDiffuse(textures []Texture) *Texture {
	if len(textures) == 0 {
		return nil
	}
	if len(textures) == 1 {
		return &textures[0]
	}

	var best *Texture
	for i := range textures {
		t := &textures[i]
		name := strings.ToLower(t.Name)
		excluded := false
		for _, sfx := range nonDiffuseSuffixes {
			if strings.HasSuffix(name, sfx) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if best == nil || int(t.Width)*int(t.Height) > int(best.Width)*int(best.Height) {
			best = t
		}
	}
	return best
}

const (
	// Placeholder checkerboards are at most 128px per side.
	placeholderMaxSize = 128
	// Real textures at that size carry hundreds of distinct pixel/block
	// values; placeholders stay well under 50 even with DXT artifacts.
	placeholderMaxUnits = 50
)

// IsPlaceholder reports whether a texture looks like one of the small
// checkerboard placeholders used for invisible clothing variants. The
// check counts distinct units of raw data (compression blocks for block
// formats, pixels otherwise) so no pixel decoding is needed.
func IsPlaceholder(t *Texture) bool {
	if t == nil || len(t.RawData) == 0 {
		return false
	}
	if int(t.Width) > placeholderMaxSize || int(t.Height) > placeholderMaxSize {
		return false
	}

	unit := BlockSize(t.Format.Name)
	if unit == 0 {
		unit = t.Format.BitsPerPixel / 8
	}
	if unit <= 0 {
		return false
	}

	// Only the first mip level matters; smaller mips repeat its content.
	n := MipSize(int(t.Width), int(t.Height), t.Format)
	if n > len(t.RawData) {
		n = len(t.RawData)
	}

	distinct := make(map[string]struct{}, placeholderMaxUnits+1)
	for off := 0; off+unit <= n; off += unit {
		distinct[string(t.RawData[off:off+unit])] = struct{}{}
		if len(distinct) > placeholderMaxUnits {
			return false
		}
	}
	return true
}
