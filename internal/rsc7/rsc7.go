// Package rsc7 reads RSC7 resource containers, the compressed wrapper
// around GTA V streaming assets such as .ytd texture dictionaries.
//
// An RSC7 file is a 16-byte little-endian header followed by a raw
// (headerless) deflate stream. The inflated payload splits into two
// segments: a "virtual" segment holding struct data and a "physical"
// segment holding raw pixel bytes. The segment sizes are encoded in the
// two flag words of the header.
package rsc7

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

const (
	// Magic is the RSC7 file magic ("RSC7" little-endian).
	Magic uint32 = 0x37435352

	// HeaderSize is the fixed header length preceding the deflate payload.
	HeaderSize = 16

	// MinFileSize is the smallest byte count a parseable container can have.
	MinFileSize = 32

	// ExpectedVersion is the PC/legacy resource version. Other versions are
	// parsed anyway with a warning.
	ExpectedVersion = 13
)

var (
	ErrFormat     = errors.New("invalid RSC7 container")
	ErrDecompress = errors.New("RSC7 payload decompression failed")
)

// Resource is a decompressed RSC7 container split into its two segments.
// Both slices are owned by the Resource and never mutated after Parse.
type Resource struct {
	Version uint32

	// Virtual holds struct data (texture dictionary, texture headers).
	Virtual []byte

	// Physical holds raw pixel data.
	Physical []byte
}

// SizeFromFlags decodes one of the two header flag words into a segment
// byte length. Each flag packs nine page counts at doubling size multiples
// of a base page size selected by the low 4 bits.
//
// Ported from the CodeWalker RpfFile flag layout.
func SizeFromFlags(flags uint32) int {
	s0 := (flags >> 27) & 0x1
	s1 := ((flags >> 26) & 0x1) << 1
	s2 := ((flags >> 25) & 0x1) << 2
	s3 := ((flags >> 24) & 0x1) << 3
	s4 := ((flags >> 17) & 0x7F) << 4
	s5 := ((flags >> 11) & 0x3F) << 5
	s6 := ((flags >> 7) & 0xF) << 6
	s7 := ((flags >> 5) & 0x3) << 7
	s8 := ((flags >> 4) & 0x1) << 8
	ss := flags & 0xF

	baseSize := 0x200 << ss
	pages := s0 + s1 + s2 + s3 + s4 + s5 + s6 + s7 + s8
	return baseSize * int(pages)
}

// ParseFile reads and parses the RSC7 container at path.
func ParseFile(path string, log logger.Logger) (*Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, log)
}

// Parse parses an in-memory RSC7 container.
//
// It validates the magic and minimum size, decodes the segment sizes from
// the flag words, inflates the payload and slices it into the virtual and
// physical segments. Unexpected versions are tolerated with a warning.
func Parse(raw []byte, log logger.Logger) (*Resource, error) {
	if log == nil {
		log = logger.Default()
	}

	if len(raw) < MinFileSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes, minimum %d)",
			ErrFormat, len(raw), MinFileSize)
	}

	magic := binary.LittleEndian.Uint32(raw[0:4])
	version := binary.LittleEndian.Uint32(raw[4:8])
	systemFlags := binary.LittleEndian.Uint32(raw[8:12])
	graphicsFlags := binary.LittleEndian.Uint32(raw[12:16])

	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X (expected 0x%08X)",
			ErrFormat, magic, Magic)
	}
	if version != ExpectedVersion {
		log.Warn("unexpected RSC7 version, attempting anyway",
			"version", version, "expected", ExpectedVersion)
	}

	virtualSize := SizeFromFlags(systemFlags)
	physicalSize := SizeFromFlags(graphicsFlags)

	log.Debug("parsed RSC7 header",
		"version", version,
		"system_flags", fmt.Sprintf("0x%08X", systemFlags),
		"graphics_flags", fmt.Sprintf("0x%08X", graphicsFlags),
		"virtual_size", virtualSize,
		"physical_size", physicalSize)

	fr := flate.NewReader(bytes.NewReader(raw[HeaderSize:]))
	defer func() { _ = fr.Close() }()

	inflated, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	if total := virtualSize + physicalSize; total > len(inflated) {
		return nil, fmt.Errorf(
			"%w: segment sizes (%d + %d = %d) exceed decompressed length %d",
			ErrFormat, virtualSize, physicalSize, total, len(inflated))
	}

	return &Resource{
		Version:  version,
		Virtual:  inflated[:virtualSize],
		Physical: inflated[virtualSize : virtualSize+physicalSize],
	}, nil
}
