// Package ytd decodes texture dictionaries from decompressed RSC7
// segments.
//
// Struct data in the virtual segment references other locations through
// 64-bit values whose low 32 bits are offsets biased by one of two base
// constants, selecting either the virtual segment (struct data) or the
// physical segment (pixel data). Resolution is explicit and checked; a
// value outside both ranges is a distinct pointer error, not a generic
// format error.
package ytd

import (
	"errors"
	"fmt"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

const (
	virtualBase  = 0x50000000
	physicalBase = 0x60000000

	// dictHeaderSize is the fixed TextureDictionary header length.
	dictHeaderSize = 64

	// textureStructSize is the fixed per-texture struct length.
	textureStructSize = 144

	maxNameLen = 256
)

var (
	ErrFormat  = errors.New("invalid texture dictionary")
	ErrPointer = errors.New("pointer outside known address spaces")
)

// Segment identifies which address space a resolved pointer targets.
type Segment int

const (
	SegNull Segment = iota
	SegVirtual
	SegPhysical
)

func (s Segment) String() string {
	switch s {
	case SegNull:
		return "null"
	case SegVirtual:
		return "virtual"
	case SegPhysical:
		return "physical"
	default:
		return fmt.Sprintf("segment(%d)", int(s))
	}
}

// ResolvePointer maps a stored pointer value to a segment and offset.
// Only the low 32 bits are significant; zero is the null pointer.
func ResolvePointer(ptr uint64) (Segment, int, error) {
	p := uint32(ptr)
	switch {
	case p == 0:
		return SegNull, 0, nil
	case p >= physicalBase:
		return SegPhysical, int(p - physicalBase), nil
	case p >= virtualBase:
		return SegVirtual, int(p - virtualBase), nil
	default:
		return SegNull, 0, fmt.Errorf("%w: 0x%08X", ErrPointer, p)
	}
}

// Texture is one decoded entry of a texture dictionary. It is constructed
// once per decode pass and never mutated afterwards. RawData is clamped to
// the bytes actually present in the physical segment.
type Texture struct {
	Name       string
	Width      uint16
	Height     uint16
	FormatCode uint32
	Format     Format
	MipLevels  uint8
	Stride     uint16
	RawData    []byte
}

// Parse walks the TextureDictionary structure in the virtual segment and
// returns one Texture per entry, in record-array order. Callers rely on
// positional correspondence with the on-disk record array.
//
// Individual records with pointers landing in an unexpected segment are
// skipped (or left with empty RawData) with a warning; only structural
// failures of the dictionary itself abort the decode.
func Parse(virtual, physical []byte, log logger.Logger) ([]Texture, error) {
	if log == nil {
		log = logger.Default()
	}
	vbuf := buffer{virtual}
	pbuf := buffer{physical}

	if vbuf.len() < dictHeaderSize {
		return nil, fmt.Errorf("%w: virtual segment too small for dictionary header (%d bytes)",
			ErrFormat, vbuf.len())
	}

	arrPtr, err := vbuf.u64(0x30)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	count, _ := vbuf.u16(0x38)
	capacity, _ := vbuf.u16(0x3A)

	log.Debug("texture dictionary header",
		"textures_ptr", fmt.Sprintf("0x%08X", uint32(arrPtr)),
		"count", count, "capacity", capacity)

	if count == 0 {
		log.Warn("texture dictionary has 0 textures")
		return []Texture{}, nil
	}

	seg, arrOff, err := ResolvePointer(arrPtr)
	if err != nil {
		return nil, err
	}
	if seg != SegVirtual {
		return nil, fmt.Errorf("%w: texture array pointer resolves to %s segment",
			ErrPointer, seg)
	}

	textures := make([]Texture, 0, count)
	for i := range int(count) {
		rawPtr, err := vbuf.u64(arrOff + i*8)
		if err != nil {
			return nil, fmt.Errorf("%w: texture array entry %d: %v", ErrFormat, i, err)
		}

		seg, texOff, err := ResolvePointer(rawPtr)
		if err != nil {
			return nil, fmt.Errorf("texture #%d: %w", i, err)
		}
		if seg != SegVirtual {
			log.Warn("texture pointer resolves outside virtual segment, skipping",
				"index", i, "segment", seg.String())
			continue
		}
		if texOff+textureStructSize > vbuf.len() {
			log.Warn("texture struct overflows virtual segment, skipping",
				"index", i, "offset", texOff, "virtual_len", vbuf.len())
			continue
		}

		tex, err := parseTexture(vbuf, pbuf, texOff, i, log)
		if err != nil {
			return nil, err
		}
		textures = append(textures, tex)
	}

	return textures, nil
}

func parseTexture(vbuf, pbuf buffer, off, idx int, log logger.Logger) (Texture, error) {
	// Offsets within the 144-byte texture struct. The struct itself was
	// range-checked by the caller, so plain reads cannot fail here.
	namePtr, _ := vbuf.u64(off + 0x28)
	width, _ := vbuf.u16(off + 0x50)
	height, _ := vbuf.u16(off + 0x52)
	stride, _ := vbuf.u16(off + 0x56)
	formatCode, _ := vbuf.u32(off + 0x58)
	mipLevels, _ := vbuf.u8(off + 0x5D)
	dataPtr, _ := vbuf.u64(off + 0x70)

	var name string
	if uint32(namePtr) != 0 {
		seg, nameOff, err := ResolvePointer(namePtr)
		switch {
		case err != nil:
			log.Warn("texture name pointer unresolvable", "index", idx, "err", err)
		case seg == SegVirtual:
			if s, err := vbuf.cstring(nameOff, maxNameLen); err == nil {
				name = s
			}
		default:
			log.Debug("texture name pointer in unexpected segment",
				"index", idx, "segment", seg.String())
		}
	}

	format := LookupFormat(formatCode)
	if format.BitsPerPixel == 0 {
		log.Warn("unknown texture format code",
			"index", idx, "name", name, "code", fmt.Sprintf("0x%X", formatCode))
	}

	var rawData []byte
	if uint32(dataPtr) != 0 && format.BitsPerPixel > 0 {
		seg, dataOff, err := ResolvePointer(dataPtr)
		switch {
		case err != nil:
			log.Warn("texture data pointer unresolvable", "index", idx, "err", err)
		case seg == SegPhysical:
			size := ChainSize(int(width), int(height), max(1, int(mipLevels)), format)
			if avail := pbuf.len() - dataOff; avail < size {
				log.Debug("texture data truncated to available bytes",
					"index", idx, "name", name, "expected", size, "available", avail)
				size = max(0, avail)
			}
			if data, err := pbuf.bytes(dataOff, size); err == nil {
				rawData = append([]byte(nil), data...)
			}
		default:
			log.Debug("texture data pointer in unexpected segment",
				"index", idx, "name", name, "segment", seg.String())
		}
	}

	log.Debug("decoded texture",
		"index", idx, "name", name,
		"size", fmt.Sprintf("%dx%d", width, height),
		"format", format.Name, "mips", mipLevels,
		"stride", stride, "data_bytes", len(rawData))

	return Texture{
		Name:       name,
		Width:      width,
		Height:     height,
		FormatCode: formatCode,
		Format:     format,
		MipLevels:  mipLevels,
		Stride:     stride,
		RawData:    rawData,
	}, nil
}
