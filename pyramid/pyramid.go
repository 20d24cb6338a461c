// Package pyramid assembles image pyramid levels tile by tile.
//
// A pyramid level is a grid of 256x256 tiles. The next (lower
// resolution) level is built by box-filter reducing each group of
// factor x factor child tiles into the sub-tile positions of a single
// parent tile, so a whole level can be assembled incrementally from
// whichever child tiles are available.
package pyramid

import (
	"errors"
	"fmt"

	"github.com/wsilib/go-slidetile/buffer"
	"github.com/wsilib/go-slidetile/tile"
)

var (
	// ErrBadFactor reports a downsample factor other than 2 or 4.
	ErrBadFactor = errors.New("pyramid: downsample factor must be 2 or 4")
	// ErrBadGrid reports a child grid whose shape does not match the
	// downsample factor.
	ErrBadGrid = errors.New("pyramid: child grid shape does not match factor")
	// ErrEmptyExtent reports a zero-sized base image.
	ErrEmptyExtent = errors.New("pyramid: base extent is empty")
)

// LayerExtent describes one pyramid layer as a tile grid.
type LayerExtent struct {
	// XTiles and YTiles count the 256-pixel tiles in each dimension.
	XTiles uint32
	YTiles uint32
	// Scale is the magnification of this layer relative to the lowest
	// resolution layer.
	Scale float32
	// Downsample is the reduction of this layer relative to the base
	// (highest resolution) layer, the reciprocal convention used by
	// OpenSlide-style consumers.
	Downsample float32
}

// Extent describes a whole pyramid. Width and Height are the pixel
// dimensions of the lowest resolution layer; Layers is ordered from
// lowest resolution (index 0) to the full resolution base.
type Extent struct {
	Width  uint32
	Height uint32
	Layers []LayerExtent
}

// tilesFor returns the tile count covering n pixels.
func tilesFor(n uint32) uint32 {
	return (n + tile.Length - 1) / tile.Length
}

// ComputeExtent derives the layer stack for a base image of the given
// pixel dimensions, reducing by factor per layer until a layer fits in
// a single tile.
func ComputeExtent(baseWidth, baseHeight uint32, factor int) (Extent, error) {
	if factor != 2 && factor != 4 {
		return Extent{}, fmt.Errorf("%w: got %d", ErrBadFactor, factor)
	}
	if baseWidth == 0 || baseHeight == 0 {
		return Extent{}, ErrEmptyExtent
	}

	// Walk up from the base until one tile covers the layer.
	type dims struct{ w, h uint32 }
	stack := []dims{{baseWidth, baseHeight}}
	for {
		top := stack[len(stack)-1]
		if tilesFor(top.w) <= 1 && tilesFor(top.h) <= 1 {
			break
		}
		f := uint32(factor)
		stack = append(stack, dims{(top.w + f - 1) / f, (top.h + f - 1) / f})
	}

	ext := Extent{
		Width:  stack[len(stack)-1].w,
		Height: stack[len(stack)-1].h,
	}

	// Layers are emitted lowest resolution first. stack[0] is the
	// base, so layer j corresponds to stack[len(stack)-1-j].
	layers := make([]LayerExtent, len(stack))
	for j := range layers {
		d := stack[len(stack)-1-j]
		layers[j] = LayerExtent{
			XTiles:     tilesFor(d.w),
			YTiles:     tilesFor(d.h),
			Scale:      pow(float32(factor), j),
			Downsample: pow(float32(factor), len(stack)-1-j),
		}
	}
	ext.Layers = layers
	return ext, nil
}

// pow returns f raised to a small non-negative integer power.
func pow(f float32, n int) float32 {
	v := float32(1)
	for i := 0; i < n; i++ {
		v *= f
	}
	return v
}

// downsampleInto dispatches to the factor-specific reduction.
func downsampleInto(src, dst *buffer.Buffer, subY, subX, factor, channels int) error {
	switch factor {
	case 2:
		return tile.Downsample2xAvg(src, dst, subY, subX, channels)
	case 4:
		return tile.Downsample4xAvg(src, dst, subY, subX, channels)
	}
	return fmt.Errorf("%w: got %d", ErrBadFactor, factor)
}

// ComposeParent reduces a factor x factor grid of child tiles into the
// corresponding sub-tile positions of parent. Nil children, which occur
// along a level's ragged right and bottom edges, are skipped and their
// sub-tile regions left untouched.
func ComposeParent(children [][]*buffer.Buffer, parent *buffer.Buffer, factor, channels int) error {
	if factor != 2 && factor != 4 {
		return fmt.Errorf("%w: got %d", ErrBadFactor, factor)
	}
	if len(children) != factor {
		return fmt.Errorf("%w: %d rows for factor %d", ErrBadGrid, len(children), factor)
	}
	for subY, row := range children {
		if len(row) != factor {
			return fmt.Errorf("%w: row %d has %d tiles for factor %d", ErrBadGrid, subY, len(row), factor)
		}
		for subX, child := range row {
			if child == nil {
				continue
			}
			if err := downsampleInto(child, parent, subY, subX, factor, channels); err != nil {
				return fmt.Errorf("pyramid: sub-tile (%d,%d): %w", subY, subX, err)
			}
		}
	}
	return nil
}

// BuildLevel reduces a full grid of tiles to the grid one level down,
// returning the parent grid. Parent tiles come from pool when one is
// supplied and are zero-filled first, so regions with no contributing
// child read as transparent black.
func BuildLevel(tiles [][]*buffer.Buffer, factor, channels int, pool *buffer.Pool) ([][]*buffer.Buffer, error) {
	if factor != 2 && factor != 4 {
		return nil, fmt.Errorf("%w: got %d", ErrBadFactor, factor)
	}
	if channels != 3 && channels != 4 {
		return nil, tile.ErrUnsupportedChannels
	}
	rows := len(tiles)
	if rows == 0 {
		return nil, ErrEmptyExtent
	}
	cols := len(tiles[0])
	if cols == 0 {
		return nil, ErrEmptyExtent
	}

	need := tile.Area * channels
	parentRows := (rows + factor - 1) / factor
	parentCols := (cols + factor - 1) / factor
	parents := make([][]*buffer.Buffer, parentRows)
	for py := range parents {
		parents[py] = make([]*buffer.Buffer, parentCols)
		for px := range parents[py] {
			parent, err := allocParent(pool, need)
			if err != nil {
				return nil, err
			}
			children := make([][]*buffer.Buffer, factor)
			for subY := range children {
				children[subY] = make([]*buffer.Buffer, factor)
				ty := py*factor + subY
				if ty >= rows {
					continue
				}
				for subX := range children[subY] {
					tx := px*factor + subX
					if tx >= len(tiles[ty]) {
						continue
					}
					children[subY][subX] = tiles[ty][tx]
				}
			}
			if err := ComposeParent(children, parent, factor, channels); err != nil {
				return nil, err
			}
			parents[py][px] = parent
		}
	}
	return parents, nil
}

// allocParent returns a zero-filled owning tile buffer with its size
// already covering one tile.
func allocParent(pool *buffer.Pool, need int) (*buffer.Buffer, error) {
	var parent *buffer.Buffer
	if pool != nil {
		b, err := pool.Get(need)
		if err != nil {
			return nil, err
		}
		parent = b
		s := parent.Storage()
		for i := range s {
			s[i] = 0
		}
	} else {
		parent = buffer.NewSized(need)
	}
	if err := parent.SetSize(need); err != nil {
		return nil, err
	}
	return parent, nil
}
