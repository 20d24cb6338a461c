package tile

import "encoding/binary"

// Word-at-a-time kernels. Each processes a fixed number of byte lanes
// per 64-bit (or 32-bit) word using shift-and-mask arithmetic, with the
// scalar kernels from kernels.go covering the remainder pixels. Loads
// and stores go through encoding/binary little-endian accessors, which
// compile to single moves on amd64 and arm64 and stay correct on
// big-endian targets.

// expandBlockPixels is the pixel count per iteration of the alpha
// expand/strip fast paths: 8 pixels span exactly three source words and
// four destination words.
const expandBlockPixels = 8

const alphaLanes = 0xFF000000_FF000000 // opaque alpha in both 32-bit pixel lanes

// expandAlphaFast converts n pixels from 3 to 4 bytes each, alpha set
// to opaque. Blocks are processed from last to first, and all three
// source words of a block are loaded before its destination words are
// stored, so the pass is safe when src and dst share memory.
func expandAlphaFast(src, dst []byte, n int) {
	blocks := n / expandBlockPixels
	expandAlphaRange(src, dst, blocks*expandBlockPixels, n)
	for b := blocks - 1; b >= 0; b-- {
		si := b * expandBlockPixels * 3
		di := b * expandBlockPixels * 4
		s0 := binary.LittleEndian.Uint64(src[si:])
		s1 := binary.LittleEndian.Uint64(src[si+8:])
		s2 := binary.LittleEndian.Uint64(src[si+16:])

		// Two 24-bit pixels per destination word, alpha in byte 3 of
		// each 32-bit lane.
		d0 := s0&0xFFFFFF | (s0>>24&0xFFFFFF)<<32 | alphaLanes
		d1 := (s0>>48|(s1&0xFF)<<16)&0xFFFFFF | (s1>>8&0xFFFFFF)<<32 | alphaLanes
		d2 := s1>>32&0xFFFFFF | (s1>>56|(s2&0xFFFF)<<8)<<32 | alphaLanes
		d3 := s2>>16&0xFFFFFF | (s2>>40&0xFFFFFF)<<32 | alphaLanes

		binary.LittleEndian.PutUint64(dst[di:], d0)
		binary.LittleEndian.PutUint64(dst[di+8:], d1)
		binary.LittleEndian.PutUint64(dst[di+16:], d2)
		binary.LittleEndian.PutUint64(dst[di+24:], d3)
	}
}

// stripAlphaFast converts n pixels from 4 to 3 bytes each, discarding
// alpha. Blocks run first to last; all four source words are loaded
// before any destination word is stored, keeping aliased buffers safe.
func stripAlphaFast(src, dst []byte, n int) {
	blocks := n / expandBlockPixels
	for b := 0; b < blocks; b++ {
		si := b * expandBlockPixels * 4
		di := b * expandBlockPixels * 3
		s0 := binary.LittleEndian.Uint64(src[si:])
		s1 := binary.LittleEndian.Uint64(src[si+8:])
		s2 := binary.LittleEndian.Uint64(src[si+16:])
		s3 := binary.LittleEndian.Uint64(src[si+24:])

		p0, p1 := s0&0xFFFFFF, s0>>32&0xFFFFFF
		p2, p3 := s1&0xFFFFFF, s1>>32&0xFFFFFF
		p4, p5 := s2&0xFFFFFF, s2>>32&0xFFFFFF
		p6, p7 := s3&0xFFFFFF, s3>>32&0xFFFFFF

		binary.LittleEndian.PutUint64(dst[di:], p0|p1<<24|(p2&0xFFFF)<<48)
		binary.LittleEndian.PutUint64(dst[di+8:], p2>>16|p3<<8|p4<<32|(p5&0xFF)<<56)
		binary.LittleEndian.PutUint64(dst[di+16:], p5>>8|p6<<16|p7<<40)
	}
	stripAlphaRange(src, dst, blocks*expandBlockPixels, n)
}

// swap4Fast exchanges bytes 0 and 2 of n 4-byte pixels in place, two
// pixels per 64-bit word.
func swap4Fast(p []byte, n int) {
	const keep = 0xFF00FF00_FF00FF00 // bytes 1 and 3 of each pixel lane
	const low = 0x000000FF_000000FF  // byte 0 of each pixel lane
	pairs := n / 2
	for i := 0; i < pairs; i++ {
		v := binary.LittleEndian.Uint64(p[i*8:])
		w := v&keep | (v&low)<<16 | v>>16&low
		binary.LittleEndian.PutUint64(p[i*8:], w)
	}
	swapRange(p, 4, pairs*2, n)
}

// swap3Fast exchanges bytes 0 and 2 of n 3-byte pixels in place, one
// pixel per 32-bit word. Each store also rewrites the following pixel's
// first byte with its unchanged value, so the last pixel falls to the
// scalar kernel to avoid running past the slice.
func swap3Fast(p []byte, n int) {
	if n == 0 {
		return
	}
	for i := 0; i < n-1; i++ {
		v := binary.LittleEndian.Uint32(p[i*3:])
		w := v&0xFF00FF00 | (v&0xFF)<<16 | v>>16&0xFF
		binary.LittleEndian.PutUint32(p[i*3:], w)
	}
	swapRange(p, 3, n-1, n)
}

// widen4 spreads four bytes into the four 16-bit lanes of a 64-bit
// word, the accumulator layout for the box-filter sums.
func widen4(v uint32) uint64 {
	return uint64(v)&0xFF |
		uint64(v)&0xFF00<<8 |
		uint64(v)&0xFF0000<<16 |
		uint64(v)&0xFF000000<<24
}

// narrow4 packs the low byte of each 16-bit lane back into four
// contiguous bytes.
func narrow4(v uint64) uint32 {
	return uint32(v&0xFF) |
		uint32(v>>16&0xFF)<<8 |
		uint32(v>>32&0xFF)<<16 |
		uint32(v>>48&0xFF)<<24
}

// downsample2xFast writes the 2x box-filtered reduction of src into the
// (subY,subX) half-tile of dst. One output pixel per iteration: four
// 32-bit loads widened to 16-bit lanes, summed, rounded and narrowed.
// Lane sums peak at 4*255+2, well inside 16 bits. The last output
// column of each row falls to the scalar kernel, since the 32-bit loads
// and stores touch one byte past a 3-channel pixel.
func downsample2xFast(src, dst []byte, subY, subX, channels int) {
	const round = 0x0002000200020002
	const laneMask = 0x00FF00FF_00FF00FF

	out := Length / 2
	stride := Length * channels
	oy := subY * out
	ox := subX * out

	for y := 0; y < out; y++ {
		r0 := src[(2*y)*stride:]
		r1 := src[(2*y+1)*stride:]
		orow := dst[(y+oy)*stride+ox*channels:]
		for x := 0; x < out-1; x++ {
			si := 2 * x * channels
			sum := widen4(binary.LittleEndian.Uint32(r0[si:])) +
				widen4(binary.LittleEndian.Uint32(r0[si+channels:])) +
				widen4(binary.LittleEndian.Uint32(r1[si:])) +
				widen4(binary.LittleEndian.Uint32(r1[si+channels:]))
			avg := (sum + round) >> 2 & laneMask
			binary.LittleEndian.PutUint32(orow[x*channels:], narrow4(avg))
		}
	}
	downsampleRange(src, dst, 2, subY, subX, channels, out-1, out)
}

// downsample4xFast writes the 4x box-filtered reduction of src into the
// (subY,subX) quarter-tile of dst. Sixteen samples per channel are
// accumulated in 16-bit lanes (peak 16*255+8) before rounding.
func downsample4xFast(src, dst []byte, subY, subX, channels int) {
	const round = 0x0008000800080008
	const laneMask = 0x00FF00FF_00FF00FF

	out := Length / 4
	stride := Length * channels
	oy := subY * out
	ox := subX * out

	for y := 0; y < out; y++ {
		r0 := src[(4*y)*stride:]
		r1 := src[(4*y+1)*stride:]
		r2 := src[(4*y+2)*stride:]
		r3 := src[(4*y+3)*stride:]
		orow := dst[(y+oy)*stride+ox*channels:]
		for x := 0; x < out-1; x++ {
			si := 4 * x * channels
			var sum uint64
			for _, row := range [4][]byte{r0, r1, r2, r3} {
				sum += widen4(binary.LittleEndian.Uint32(row[si:])) +
					widen4(binary.LittleEndian.Uint32(row[si+channels:])) +
					widen4(binary.LittleEndian.Uint32(row[si+2*channels:])) +
					widen4(binary.LittleEndian.Uint32(row[si+3*channels:]))
			}
			avg := (sum + round) >> 4 & laneMask
			binary.LittleEndian.PutUint32(orow[x*channels:], narrow4(avg))
		}
	}
	downsampleRange(src, dst, 4, subY, subX, channels, out-1, out)
}
