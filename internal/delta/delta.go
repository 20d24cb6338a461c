// Package delta implements byte-wise horizontal differencing for tile
// payloads.
//
// Neighboring pixels in a tile are strongly correlated, so replacing
// absolute channel values with differences from their predecessor
// concentrates the byte distribution around zero and improves the
// ratio of the entropy coder that follows.
package delta

// Encode replaces each byte, in place, with its difference from the
// previous byte. The first byte is kept as is.
func Encode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	// Walk backwards so each source byte is still unmodified when it
	// serves as the predecessor. Unrolled by 8.
	i := n - 1
	for ; i >= 8; i -= 8 {
		data[i] = data[i] - data[i-1]
		data[i-1] = data[i-1] - data[i-2]
		data[i-2] = data[i-2] - data[i-3]
		data[i-3] = data[i-3] - data[i-4]
		data[i-4] = data[i-4] - data[i-5]
		data[i-5] = data[i-5] - data[i-6]
		data[i-6] = data[i-6] - data[i-7]
		data[i-7] = data[i-7] - data[i-8]
	}
	for ; i >= 1; i-- {
		data[i] = data[i] - data[i-1]
	}
}

// Decode reverses Encode in place, restoring absolute values by
// running summation.
func Decode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	i := 1
	for ; i+7 < n; i += 8 {
		data[i] = data[i] + data[i-1]
		data[i+1] = data[i+1] + data[i]
		data[i+2] = data[i+2] + data[i+1]
		data[i+3] = data[i+3] + data[i+2]
		data[i+4] = data[i+4] + data[i+3]
		data[i+5] = data[i+5] + data[i+4]
		data[i+6] = data[i+6] + data[i+5]
		data[i+7] = data[i+7] + data[i+6]
	}
	for ; i < n; i++ {
		data[i] = data[i] + data[i-1]
	}
}
