package tile

import (
	"fmt"

	"github.com/wsilib/go-slidetile/buffer"
)

// Conversion task bits. A requested conversion decomposes into an
// ordered set of independent passes: at most one channel-count change
// plus an optional leading/third channel swap.
type convTask uint32

const (
	taskExpandAlpha convTask = 1 << 0 // 3ch -> 4ch, alpha = 0xFF
	taskStripAlpha  convTask = 1 << 1 // 4ch -> 3ch, alpha discarded
	taskSwap02      convTask = 1 << 4 // exchange pixel bytes 0 and 2
)

// classify maps a format pair to its task bits. Expand and strip are
// mutually exclusive by construction: a channel-count conversion goes
// exactly one direction.
func classify(srcFmt, dstFmt Format) convTask {
	var tasks convTask
	switch {
	case !srcFmt.HasAlpha() && dstFmt.HasAlpha():
		tasks |= taskExpandAlpha
	case srcFmt.HasAlpha() && !dstFmt.HasAlpha():
		tasks |= taskStripAlpha
	}
	if srcFmt.blueLeading() != dstFmt.blueLeading() {
		tasks |= taskSwap02
	}
	return tasks
}

// Convert transcodes one full tile from srcFmt to dstFmt.
//
// When the formats match, no pixel work is done: if dst is nil or its
// capacity cannot hold the source bytes, src itself is returned
// (aliased, not copied); otherwise dst receives a byte-for-byte copy.
//
// Otherwise the conversion runs as up to two passes over the pixels: a
// channel-count change (alpha expand or strip) followed by a
// leading/third channel swap. If dst is nil or undersized, a new owning
// buffer of exactly one destination tile is allocated. Passing src as
// dst converts in place: the expand pass scans last to first and the
// strip pass first to last, so aliased buffers are never corrupted.
//
// Undefined or unknown formats are rejected before any buffer is
// touched; such errors indicate incorrect calling code rather than a
// recoverable condition.
func Convert(src *buffer.Buffer, srcFmt, dstFmt Format, dst *buffer.Buffer) (*buffer.Buffer, error) {
	if src == nil {
		return nil, ErrNilBuffer
	}
	sbpp := srcFmt.BytesPerPixel()
	if sbpp == 0 {
		return nil, fmt.Errorf("%w: source %s", ErrUndefinedFormat, srcFmt)
	}
	dbpp := dstFmt.BytesPerPixel()
	if dbpp == 0 {
		return nil, fmt.Errorf("%w: destination %s", ErrUndefinedFormat, dstFmt)
	}

	if srcFmt == dstFmt {
		if dst == nil || dst.Capacity() < src.Size() {
			return src, nil
		}
		copy(dst.Storage(), src.Data())
		if err := dst.SetSize(src.Size()); err != nil {
			return nil, err
		}
		return dst, nil
	}

	if src.Size() < Area*sbpp {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortSource, src.Size(), Area*sbpp)
	}
	if dst == nil || dst.Capacity() < Area*dbpp {
		dst = buffer.NewSized(Area * dbpp)
	}

	tasks := classify(srcFmt, dstFmt)
	s := src.Storage()
	d := dst.Storage()
	inPlace := &s[0] == &d[0]

	switch {
	case tasks&taskExpandAlpha != 0:
		expandAlphaFast(s, d, Area)
	case tasks&taskStripAlpha != 0:
		stripAlphaFast(s, d, Area)
	default:
		if !inPlace {
			copy(d[:Area*dbpp], s)
		}
	}

	if tasks&taskSwap02 != 0 {
		switch dbpp {
		case 3:
			swap3Fast(d, Area)
		case 4:
			swap4Fast(d, Area)
		}
	}

	if err := dst.SetSize(Area * dbpp); err != nil {
		return nil, err
	}
	return dst, nil
}
