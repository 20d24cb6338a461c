// Package tile converts fixed-size image tiles between pixel formats
// and produces box-filtered reductions for image pyramid assembly.
//
// All operations work on exactly one 256x256-pixel tile of interleaved
// 8-bit channel data held in a buffer.Buffer. Tiles are the atomic unit
// of pyramid storage: a tile is always Length x Length pixels at 3 or 4
// bytes per pixel, with no support for partial or irregular tiles.
//
// Every kernel has a word-at-a-time fast path and a scalar reference
// implementation; the two agree byte-for-byte on all inputs, and the
// scalar path doubles as the remainder loop for pixels the fast path's
// lane width does not cover.
package tile

import "errors"

// Tile geometry. These values are fixed bit-for-bit for any data
// exchanged with collaborating systems.
const (
	// Length is the tile edge length in pixels.
	Length = 256
	// Area is the number of pixels in a tile.
	Area = Length * Length
	// BytesRGB is the byte size of a 3-channel tile.
	BytesRGB = Area * 3
	// BytesRGBA is the byte size of a 4-channel tile.
	BytesRGBA = Area * 4
)

var (
	// ErrUndefinedFormat reports a conversion request naming an
	// undefined or unknown pixel format. This is a contract violation,
	// not a transient failure.
	ErrUndefinedFormat = errors.New("tile: undefined pixel format")
	// ErrUnsupportedChannels reports a channel count other than 3 or 4.
	ErrUnsupportedChannels = errors.New("tile: unsupported channel count (want 3 or 4)")
	// ErrShortSource reports a source buffer smaller than one tile.
	ErrShortSource = errors.New("tile: source buffer smaller than one tile")
	// ErrShortDestination reports a destination buffer whose capacity
	// cannot hold one tile.
	ErrShortDestination = errors.New("tile: destination capacity smaller than one tile")
	// ErrSubTileRange reports a sub-tile coordinate outside the valid
	// range for the downsample factor.
	ErrSubTileRange = errors.New("tile: sub-tile coordinate out of range")
	// ErrNilBuffer reports a nil source buffer.
	ErrNilBuffer = errors.New("tile: nil buffer")
	// ErrSharpNotImplemented reports use of the sharpened downsample
	// extension point, which has no implementation.
	ErrSharpNotImplemented = errors.New("tile: sharpened downsample not implemented")
)

// Format identifies the channel count and byte order of a tile's
// interleaved pixel data, little-endian within each pixel. The numeric
// values are stable wire-level identifiers. Buffers do not carry a
// Format; callers track it alongside the buffer.
type Format uint8

const (
	// FormatUndefined indicates no format was selected.
	FormatUndefined Format = 0
	// FormatBGR is 8-bit blue, green, red, no alpha.
	FormatBGR Format = 1
	// FormatRGB is 8-bit red, green, blue, no alpha.
	FormatRGB Format = 2
	// FormatBGRA is 8-bit blue, green, red, alpha.
	FormatBGRA Format = 3
	// FormatRGBA is 8-bit red, green, blue, alpha.
	FormatRGBA Format = 4
)

// BytesPerPixel returns the pixel stride in bytes, or 0 for undefined
// or unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatBGR, FormatRGB:
		return 3
	case FormatBGRA, FormatRGBA:
		return 4
	}
	return 0
}

// HasAlpha reports whether the format carries a trailing alpha byte.
func (f Format) HasAlpha() bool {
	return f == FormatBGRA || f == FormatRGBA
}

// blueLeading reports whether the blue channel is byte 0 of each pixel.
// The B-leading and R-leading variants of each channel count are mirror
// images via a swap of bytes 0 and 2.
func (f Format) blueLeading() bool {
	return f == FormatBGR || f == FormatBGRA
}

// TileBytes returns the byte size of one full tile in this format, or
// 0 for undefined formats.
func (f Format) TileBytes() int {
	return Area * f.BytesPerPixel()
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatBGR:
		return "B8G8R8"
	case FormatRGB:
		return "R8G8B8"
	case FormatBGRA:
		return "B8G8R8A8"
	case FormatRGBA:
		return "R8G8B8A8"
	}
	return "unknown"
}
