// Package wire provides bounds-checked little-endian encoding and
// decoding for tile container headers.
//
// All multi-byte values in serialized tile frames are little-endian.
package wire

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrShortBuffer is returned when a read or write cannot complete
	// within the buffer bounds.
	ErrShortBuffer = errors.New("wire: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("wire: negative size")
)

// ByteOrder is the byte order used on the wire.
var ByteOrder = binary.LittleEndian

// Reader reads little-endian values from a byte slice with bounds
// checking on every operation.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int { return r.pos }

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a little-endian 16-bit value.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian 32-bit value.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadBytesInto fills dst from the buffer.
func (r *Reader) ReadBytesInto(dst []byte) error {
	if r.pos+len(dst) > len(r.data) {
		return ErrShortBuffer
	}
	copy(dst, r.data[r.pos:])
	r.pos += len(dst)
	return nil
}

// Rest returns the unread remainder of the buffer without copying.
func (r *Reader) Rest() []byte {
	rest := r.data[r.pos:]
	r.pos = len(r.data)
	return rest
}

// Writer writes little-endian values into a preallocated byte slice
// with bounds checking on every operation.
type Writer struct {
	data []byte
	pos  int
}

// NewWriter creates a Writer over data.
func NewWriter(data []byte) *Writer {
	return &Writer{data: data}
}

// Pos returns the current write position.
func (w *Writer) Pos() int { return w.pos }

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) error {
	if w.pos >= len(w.data) {
		return ErrShortBuffer
	}
	w.data[w.pos] = v
	w.pos++
	return nil
}

// WriteUint16 writes a little-endian 16-bit value.
func (w *Writer) WriteUint16(v uint16) error {
	if w.pos+2 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint16(w.data[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteUint32 writes a little-endian 32-bit value.
func (w *Writer) WriteUint32(v uint32) error {
	if w.pos+4 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint32(w.data[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteBytes copies src into the buffer.
func (w *Writer) WriteBytes(src []byte) error {
	if w.pos+len(src) > len(w.data) {
		return ErrShortBuffer
	}
	copy(w.data[w.pos:], src)
	w.pos += len(src)
	return nil
}
