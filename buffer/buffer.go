// Package buffer provides the ownership-tagged byte container used to
// exchange tile pixel data between the transcoding and downsampling
// engines and their callers.
//
// A Buffer is either owning or borrowed. An owning buffer controls its
// backing storage and may grow it on demand. A borrowed buffer wraps
// caller-supplied memory: it never reallocates, and any write that would
// exceed its fixed capacity fails without touching memory outside the
// original allocation. Lifetime of owning storage is managed by the
// garbage collector; the Strength tag preserves the mutation contract
// for wrapped external memory.
//
// A Buffer performs no internal locking. Concurrent mutation of the
// same Buffer from multiple goroutines is not supported; distinct
// Buffers may be used freely in parallel.
package buffer

import "errors"

// Strength describes a buffer's relationship to its backing storage.
// The numeric values are stable identifiers shared with collaborating
// systems.
type Strength uint8

const (
	// Borrowed wraps access to external data. The buffer has no
	// ownership and no ability to resize the underlying storage.
	Borrowed Strength = 0
	// Owning has full ownership of the backing storage and may
	// reallocate it to grow or shrink capacity.
	Owning Strength = 1
)

// String returns the name of the strength value.
func (s Strength) String() string {
	switch s {
	case Borrowed:
		return "borrowed"
	case Owning:
		return "owning"
	}
	return "unknown"
}

var (
	// ErrBorrowedResize is returned when an operation would need to
	// reallocate a borrowed buffer. Resizing borrowed storage could
	// invalidate the caller's pointer and is forbidden.
	ErrBorrowedResize = errors.New("buffer: cannot resize a borrowed buffer")
	// ErrSizeExceedsCapacity is returned by SetSize when the requested
	// size does not fit the current capacity.
	ErrSizeExceedsCapacity = errors.New("buffer: size exceeds capacity")
)

// OverflowError reports a write that would exceed a borrowed buffer's
// fixed capacity. The buffer contents are left untouched.
type OverflowError struct {
	Requested int // bytes the caller tried to write
	Capacity  int // fixed capacity of the borrowed buffer
}

func (e *OverflowError) Error() string {
	return "buffer: write exceeds borrowed capacity"
}

// Buffer is a byte container with explicit size and capacity and an
// ownership tag. The zero value is an empty borrowed buffer; use the
// constructors instead.
type Buffer struct {
	data     []byte // backing storage, len(data) == capacity
	size     int    // bytes currently valid
	strength Strength
}

// New returns an empty owning buffer with no storage.
func New() *Buffer {
	return &Buffer{strength: Owning}
}

// NewSized returns an owning buffer with the given capacity and size 0.
func NewSized(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity), strength: Owning}
}

// CopyOf returns an owning buffer holding a copy of p. The source may
// be modified or released as soon as CopyOf returns.
func CopyOf(p []byte) *Buffer {
	d := make([]byte, len(p))
	copy(d, p)
	return &Buffer{data: d, size: len(p), strength: Owning}
}

// Adopt returns an owning buffer that takes ownership of p without
// copying. The caller must not use p afterwards.
func Adopt(p []byte) *Buffer {
	return &Buffer{data: p, size: len(p), strength: Owning}
}

// Wrap returns a borrowed buffer referencing p directly, with size and
// capacity both len(p). The caller guarantees p remains valid for the
// life of the buffer.
func Wrap(p []byte) *Buffer {
	return &Buffer{data: p, size: len(p), strength: Borrowed}
}

// Strength returns the buffer's ownership tag.
func (b *Buffer) Strength() Strength {
	return b.strength
}

// SetStrength changes the ownership tag at runtime.
//
// Flipping Owning to Borrowed hands responsibility for the backing
// storage to the caller; it is an explicit escape hatch for interop
// with manually managed memory, not a safe default path.
func (b *Buffer) SetStrength(s Strength) {
	b.strength = s
}

// Data returns the valid region of the buffer, data[0:size]. The slice
// aliases the backing storage and is invalidated by any reallocation.
func (b *Buffer) Data() []byte {
	return b.data[:b.size]
}

// Storage returns the full capacity region, data[0:capacity]. Bytes
// beyond Size are uninitialized unless previously written.
func (b *Buffer) Storage() []byte {
	return b.data
}

// Size returns the number of valid bytes.
func (b *Buffer) Size() int {
	return b.size
}

// Capacity returns the number of allocated (or wrapped) bytes.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Available returns the writable bytes remaining before the buffer
// would need to grow.
func (b *Buffer) Available() int {
	return len(b.data) - b.size
}

// SetSize sets the valid byte count directly. The bytes in
// data[0:n] are assumed to have been written by the caller.
func (b *Buffer) SetSize(n int) error {
	if n < 0 || n > len(b.data) {
		return ErrSizeExceedsCapacity
	}
	b.size = n
	return nil
}

// Append reserves n additional bytes after the current size and returns
// the reserved region, growing capacity first if needed. The caller is
// expected to fill the region immediately. Borrowed buffers cannot
// grow: if the reservation does not fit, an *OverflowError is returned
// and the buffer is unchanged.
func (b *Buffer) Append(n int) ([]byte, error) {
	old := b.size
	if b.Available() < n {
		if b.strength == Borrowed {
			return nil, &OverflowError{Requested: n, Capacity: len(b.data)}
		}
		if err := b.ChangeCapacity(b.size + n); err != nil {
			return nil, err
		}
	}
	b.size += n
	return b.data[old : old+n], nil
}

// AppendBytes appends a copy of p after the current size, growing
// capacity if needed.
func (b *Buffer) AppendBytes(p []byte) error {
	dst, err := b.Append(len(p))
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

// ChangeCapacity reallocates the backing storage to exactly capacity
// bytes. Owning buffers only. Shrinking below the current size clamps
// size down and truncates held data; slices previously returned by
// Data, Storage or Append must not be used after this call.
func (b *Buffer) ChangeCapacity(capacity int) error {
	if capacity == len(b.data) {
		return nil
	}
	if b.strength == Borrowed {
		return ErrBorrowedResize
	}
	d := make([]byte, capacity)
	if b.size > capacity {
		b.size = capacity
	}
	copy(d, b.data[:b.size])
	b.data = d
	return nil
}

// ShrinkToFit reduces capacity to the current size.
func (b *Buffer) ShrinkToFit() error {
	return b.ChangeCapacity(b.size)
}

// WriteRegion returns a writable region of n bytes. For a borrowed
// buffer this is a capacity-checked view of the wrapped memory starting
// at offset 0; for an owning buffer it is a capacity-expanding append.
func (b *Buffer) WriteRegion(n int) ([]byte, error) {
	if b.strength == Borrowed {
		if n > len(b.data) {
			return nil, &OverflowError{Requested: n, Capacity: len(b.data)}
		}
		return b.data[:n], nil
	}
	return b.Append(n)
}
