package ytd

import "fmt"

// Format describes one of the pixel formats a texture dictionary can carry.
type Format struct {
	Name string
	// BitsPerPixel is 0 for unknown formats; size calculations are skipped.
	BitsPerPixel int
}

// formats maps the 32-bit format codes stored in texture structs. D3D9
// formats use small integers, block-compressed formats use their FourCC.
var formats = map[uint32]Format{
	21:         {"A8R8G8B8", 32},
	22:         {"X8R8G8B8", 32},
	25:         {"A1R5G5B5", 16},
	28:         {"A8", 8},
	32:         {"A8B8G8R8", 32},
	50:         {"L8", 8},
	0x31545844: {"DXT1", 4},
	0x33545844: {"DXT3", 8},
	0x35545844: {"DXT5", 8},
	0x31495441: {"ATI1", 4},
	0x32495441: {"ATI2", 8},
	0x20374342: {"BC7", 8},
}

// BlockSize returns the byte size of one 4x4 block for block-compressed
// formats, or 0 for uncompressed/unknown formats.
func BlockSize(name string) int {
	switch name {
	case "DXT1", "ATI1":
		return 8
	case "DXT3", "DXT5", "ATI2", "BC7":
		return 16
	}
	return 0
}

// LookupFormat resolves a raw format code. Unknown codes are retained with
// a labeled name and zero bits per pixel rather than rejected.
func LookupFormat(code uint32) Format {
	if f, ok := formats[code]; ok {
		return f
	}
	return Format{Name: fmt.Sprintf("UNKNOWN(0x%X)", code)}
}

// MipSize returns the byte size of a single mip level. Block-compressed
// formats round each axis up to whole 4x4 blocks with a floor of one block.
func MipSize(width, height int, f Format) int {
	if bs := BlockSize(f.Name); bs > 0 {
		bx := (width + 3) / 4
		if bx < 1 {
			bx = 1
		}
		by := (height + 3) / 4
		if by < 1 {
			by = 1
		}
		return bx * by * bs
	}
	return width * height * (f.BitsPerPixel / 8)
}

// ChainSize sums mip level sizes across the whole chain, halving each axis
// per level with a floor of one pixel.
func ChainSize(width, height, mipLevels int, f Format) int {
	if mipLevels < 1 {
		mipLevels = 1
	}
	total := 0
	w, h := width, height
	for range mipLevels {
		total += MipSize(w, h, f)
		w = max(1, w/2)
		h = max(1, h/2)
	}
	return total
}
