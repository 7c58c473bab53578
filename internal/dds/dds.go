// Package dds synthesizes minimal DDS files around raw texture bytes so
// standard image decoders (and Blender) can open textures extracted from a
// texture dictionary.
//
// The output is the classic layout: 4-byte magic, 124-byte DDS_HEADER with
// an embedded 32-byte DDS_PIXELFORMAT, then the raw pixel data. BC7 is the
// one format needing the 20-byte DDS_HEADER_DXT10 extension.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/FjamZoo/clothing-tool/internal/ytd"
)

// Magic is the DDS file magic ("DDS ").
var Magic = []byte{'D', 'D', 'S', ' '}

const (
	headerSize     = 124
	pixelFmtSize   = 32
	dx10HeaderSize = 20

	// DDSD_CAPS | HEIGHT | WIDTH | PIXELFORMAT | MIPMAPCOUNT | LINEARSIZE
	headerFlags = 0x000A1007

	// DDSCAPS_COMPLEX | DDSCAPS_TEXTURE | DDSCAPS_MIPMAP
	headerCaps = 0x00401008

	ddpfAlphaPixels = 0x1
	ddpfFourCC      = 0x4
	ddpfRGB         = 0x40
	ddpfLuminance   = 0x20000

	fourccDXT1 = 0x31545844
	fourccDXT3 = 0x33545844
	fourccDXT5 = 0x35545844
	fourccATI1 = 0x31495441
	fourccATI2 = 0x32495441
	fourccDX10 = 0x30315844

	// DXGI_FORMAT_BC7_UNORM
	dxgiBC7UNorm = 98
	// D3D10_RESOURCE_DIMENSION_TEXTURE2D
	dimTexture2D = 3
)

// ErrUnsupportedFormat is returned for texture formats Build cannot
// describe in a DDS pixel format block.
var ErrUnsupportedFormat = errors.New("unsupported DDS pixel format")

// Build constructs a complete DDS file from one decoded texture.
// The result is byte-for-byte acceptable to conforming DDS decoders.
func Build(tex *ytd.Texture) ([]byte, error) {
	pixfmt, err := pixelFormat(tex.Format.Name)
	if err != nil {
		return nil, err
	}

	linearSize := ytd.MipSize(int(tex.Width), int(tex.Height), tex.Format)
	mips := max(1, int(tex.MipLevels))

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], headerSize)
	binary.LittleEndian.PutUint32(hdr[4:8], headerFlags)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(tex.Height))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(tex.Width))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(linearSize))
	binary.LittleEndian.PutUint32(hdr[20:24], 0) // depth
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(mips))
	// hdr[28:72] dwReserved1[11] stays zero
	copy(hdr[72:104], pixfmt[:])
	binary.LittleEndian.PutUint32(hdr[104:108], headerCaps)
	// hdr[108:124] dwCaps2..dwReserved2 stays zero

	out := make([]byte, 0, 4+headerSize+dx10HeaderSize+len(tex.RawData))
	out = append(out, Magic...)
	out = append(out, hdr[:]...)

	if tex.Format.Name == "BC7" {
		var ext [dx10HeaderSize]byte
		binary.LittleEndian.PutUint32(ext[0:4], dxgiBC7UNorm)
		binary.LittleEndian.PutUint32(ext[4:8], dimTexture2D)
		binary.LittleEndian.PutUint32(ext[8:12], 0)  // miscFlag
		binary.LittleEndian.PutUint32(ext[12:16], 1) // arraySize
		binary.LittleEndian.PutUint32(ext[16:20], 0) // miscFlags2
		out = append(out, ext[:]...)
	}

	return append(out, tex.RawData...), nil
}

// pixelFormat builds the 32-byte DDS_PIXELFORMAT block for a format name.
func pixelFormat(name string) ([pixelFmtSize]byte, error) {
	switch name {
	case "DXT1":
		return fourCCFormat(fourccDXT1), nil
	case "DXT3":
		return fourCCFormat(fourccDXT3), nil
	case "DXT5":
		return fourCCFormat(fourccDXT5), nil
	case "ATI1":
		return fourCCFormat(fourccATI1), nil
	case "ATI2":
		return fourCCFormat(fourccATI2), nil
	case "BC7":
		// BC7 always goes through the DX10 extension header.
		return fourCCFormat(fourccDX10), nil
	case "A8R8G8B8", "X8R8G8B8", "A8B8G8R8":
		return maskFormat(ddpfRGB|ddpfAlphaPixels, 32,
			0x00FF0000, 0x0000FF00, 0x000000FF, 0xFF000000), nil
	case "A1R5G5B5":
		return maskFormat(ddpfRGB|ddpfAlphaPixels, 16,
			0x7C00, 0x03E0, 0x001F, 0x8000), nil
	case "L8":
		return maskFormat(ddpfLuminance, 8, 0xFF, 0, 0, 0), nil
	case "A8":
		// Most DDS decoders reject the pure-alpha pixel format flag, and
		// A8 shares L8's one-byte-per-pixel layout, so A8 is deliberately
		// emitted as 8-bit luminance.
		return maskFormat(ddpfLuminance, 8, 0xFF, 0, 0, 0), nil
	}
	return [pixelFmtSize]byte{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

func fourCCFormat(fourcc uint32) [pixelFmtSize]byte {
	var pf [pixelFmtSize]byte
	binary.LittleEndian.PutUint32(pf[0:4], pixelFmtSize)
	binary.LittleEndian.PutUint32(pf[4:8], ddpfFourCC)
	binary.LittleEndian.PutUint32(pf[8:12], fourcc)
	return pf
}

func maskFormat(flags, bitCount, rMask, gMask, bMask, aMask uint32) [pixelFmtSize]byte {
	var pf [pixelFmtSize]byte
	binary.LittleEndian.PutUint32(pf[0:4], pixelFmtSize)
	binary.LittleEndian.PutUint32(pf[4:8], flags)
	// pf[8:12] dwFourCC unused for mask formats
	binary.LittleEndian.PutUint32(pf[12:16], bitCount)
	binary.LittleEndian.PutUint32(pf[16:20], rMask)
	binary.LittleEndian.PutUint32(pf[20:24], gMask)
	binary.LittleEndian.PutUint32(pf[24:28], bMask)
	binary.LittleEndian.PutUint32(pf[28:32], aMask)
	return pf
}
