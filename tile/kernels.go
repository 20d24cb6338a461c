package tile

// Scalar reference kernels. These are the correctness oracles for the
// word-at-a-time paths in kernels_fast.go and also serve as the
// remainder loops for pixels the fast paths do not cover. Each kernel
// operates on pixel index ranges so the fast paths can delegate tails
// with identical semantics.

// expandAlphaRange converts pixels [lo,hi) from 3 to 4 bytes each,
// setting the new alpha byte to fully opaque. Pixels are processed from
// last to first: each output pixel is wider than its input, so a
// forward scan over aliased buffers would overwrite not-yet-read input.
func expandAlphaRange(src, dst []byte, lo, hi int) {
	for i := hi - 1; i >= lo; i-- {
		b0, b1, b2 := src[i*3], src[i*3+1], src[i*3+2]
		dst[i*4] = b0
		dst[i*4+1] = b1
		dst[i*4+2] = b2
		dst[i*4+3] = 0xFF
	}
}

// stripAlphaRange converts pixels [lo,hi) from 4 to 3 bytes each,
// discarding the alpha byte. Pixels are processed first to last: each
// output pixel is narrower than its input, so a forward scan never
// overwrites unread input when the buffers alias.
func stripAlphaRange(src, dst []byte, lo, hi int) {
	for i := lo; i < hi; i++ {
		b0, b1, b2 := src[i*4], src[i*4+1], src[i*4+2]
		dst[i*3] = b0
		dst[i*3+1] = b1
		dst[i*3+2] = b2
	}
}

// swapRange exchanges bytes 0 and 2 of each pixel in [lo,hi) in place.
// Safe in any order: the pass only reorders bytes within a pixel.
func swapRange(p []byte, bpp, lo, hi int) {
	for i := lo; i < hi; i++ {
		p[i*bpp], p[i*bpp+2] = p[i*bpp+2], p[i*bpp]
	}
}

// downsampleRange reduces output pixel columns [lo,hi) of every output
// row by the given factor, writing into the (subY,subX) sub-tile of
// dst. Each output channel is the rounded mean of the factor x factor
// source block: (sum + half) >> shift, accumulated in 16 bits.
func downsampleRange(src, dst []byte, factor, subY, subX, channels, lo, hi int) {
	out := Length / factor
	stride := Length * channels
	block := factor * factor
	half := uint16(block / 2)
	shift := uint(2) // log2(block)
	if factor == 4 {
		shift = 4
	}

	oy := subY * out
	ox := subX * out
	for y := 0; y < out; y++ {
		orow := dst[(y+oy)*stride+ox*channels:]
		for x := lo; x < hi; x++ {
			for c := 0; c < channels; c++ {
				var sum uint16
				for dy := 0; dy < factor; dy++ {
					row := src[(y*factor+dy)*stride:]
					for dx := 0; dx < factor; dx++ {
						sum += uint16(row[(x*factor+dx)*channels+c])
					}
				}
				orow[x*channels+c] = byte((sum + half) >> shift)
			}
		}
	}
}
