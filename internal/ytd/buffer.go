package ytd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned by buffer reads that would leave the segment.
var ErrOutOfBounds = errors.New("read outside segment bounds")

// buffer is a checked-offset accessor over one decompressed segment.
// Every read validates its range so malformed pointers surface as errors
// instead of slice panics.
type buffer struct {
	data []byte
}

func (b buffer) len() int { return len(b.data) }

func (b buffer) bytes(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, fmt.Errorf("%w: [%d:%d) of %d", ErrOutOfBounds, off, off+n, len(b.data))
	}
	return b.data[off : off+n], nil
}

func (b buffer) u8(off int) (uint8, error) {
	s, err := b.bytes(off, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (b buffer) u16(off int) (uint16, error) {
	s, err := b.bytes(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (b buffer) u32(off int) (uint32, error) {
	s, err := b.bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (b buffer) u64(off int) (uint64, error) {
	s, err := b.bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

// cstring reads a null-terminated ASCII string capped at maxLen bytes.
// Bytes outside printable ASCII are replaced rather than rejected; texture
// names in the wild occasionally carry garbage.
func (b buffer) cstring(off, maxLen int) (string, error) {
	if off < 0 || off >= len(b.data) {
		return "", fmt.Errorf("%w: string at %d of %d", ErrOutOfBounds, off, len(b.data))
	}
	end := off + maxLen
	if end > len(b.data) {
		end = len(b.data)
	}
	raw := b.data[off:end]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	out := make([]byte, len(raw))
	for i, c := range raw {
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		out[i] = c
	}
	return string(out), nil
}
