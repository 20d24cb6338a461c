// Package planar reorders interleaved tile pixels into channel planes.
//
// Tile payloads store pixels interleaved (BGR BGR ... or BGRA BGRA
// ...). Grouping all bytes of one channel together puts similar values
// side by side, which compresses better:
//
//	Input:  [B0,G0,R0, B1,G1,R1]  (2 interleaved pixels)
//	Output: [B0,B1, G0,G1, R0,R1] (3 channel planes)
package planar

// Split reorders interleaved pixel data into channel planes. The data
// is treated as an array of stride-byte pixels; all bytes at the same
// channel offset are grouped into one plane. Trailing bytes that do
// not form a whole pixel are copied through unchanged.
//
// If out is nil a new slice is allocated; otherwise it must be the
// same length as data. The result is returned either way.
func Split(data []byte, stride int, out []byte) []byte {
	if len(data) == 0 || stride <= 1 {
		if out == nil {
			out = make([]byte, len(data))
		}
		copy(out, data)
		return out
	}

	pixels := len(data) / stride
	if out == nil {
		out = make([]byte, len(data))
	}

	for ch := 0; ch < stride; ch++ {
		plane := out[ch*pixels:]
		for px := 0; px < pixels; px++ {
			plane[px] = data[px*stride+ch]
		}
	}
	copy(out[stride*pixels:], data[stride*pixels:])
	return out
}

// Merge reverses Split, restoring the interleaved pixel order from
// channel planes.
func Merge(data []byte, stride int, out []byte) []byte {
	if len(data) == 0 || stride <= 1 {
		if out == nil {
			out = make([]byte, len(data))
		}
		copy(out, data)
		return out
	}

	pixels := len(data) / stride
	if out == nil {
		out = make([]byte, len(data))
	}

	for ch := 0; ch < stride; ch++ {
		plane := data[ch*pixels:]
		for px := 0; px < pixels; px++ {
			out[px*stride+ch] = plane[px]
		}
	}
	copy(out[stride*pixels:], data[stride*pixels:])
	return out
}

// SplitInPlace splits data in place through a temporary buffer.
func SplitInPlace(data []byte, stride int) {
	if len(data) == 0 || stride <= 1 {
		return
	}
	tmp := make([]byte, len(data))
	Split(data, stride, tmp)
	copy(data, tmp)
}

// MergeInPlace merges data in place through a temporary buffer.
func MergeInPlace(data []byte, stride int) {
	if len(data) == 0 || stride <= 1 {
		return
	}
	tmp := make([]byte, len(data))
	Merge(data, stride, tmp)
	copy(data, tmp)
}
