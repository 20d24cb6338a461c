package tile

import (
	"fmt"

	"github.com/wsilib/go-slidetile/buffer"
)

// checkDownsample validates the shared preconditions of the downsample
// operations and returns the tile byte size for the channel count.
func checkDownsample(src, dst *buffer.Buffer, subY, subX, channels, factor int) (int, error) {
	if src == nil || dst == nil {
		return 0, ErrNilBuffer
	}
	if channels != 3 && channels != 4 {
		return 0, fmt.Errorf("%w: got %d", ErrUnsupportedChannels, channels)
	}
	need := Area * channels
	if src.Size() < need {
		return 0, fmt.Errorf("%w: have %d bytes, need %d", ErrShortSource, src.Size(), need)
	}
	if dst.Capacity() < need {
		return 0, fmt.Errorf("%w: have %d bytes, need %d", ErrShortDestination, dst.Capacity(), need)
	}
	if subY < 0 || subY >= factor || subX < 0 || subX >= factor {
		return 0, fmt.Errorf("%w: (%d,%d) with factor %d", ErrSubTileRange, subY, subX, factor)
	}
	return need, nil
}

// Downsample2xAvg reduces one full tile by 2x with a rounded box filter
// and writes the 128x128 result into the (subY,subX) quadrant of dst,
// subY and subX in {0,1}. Each output channel value is the rounded mean
// of the corresponding 2x2 source block, (a+b+c+d+2)>>2, computed per
// channel; an alpha channel, if present, is averaged the same way as
// color. Four source tiles downsampled into the four quadrants of a
// shared destination assemble one tile of the next pyramid level.
//
// The destination's size is raised to cover the written tile if it was
// smaller; bytes outside the target quadrant are never modified.
func Downsample2xAvg(src, dst *buffer.Buffer, subY, subX, channels int) error {
	need, err := checkDownsample(src, dst, subY, subX, channels, 2)
	if err != nil {
		return err
	}
	downsample2xFast(src.Storage(), dst.Storage(), subY, subX, channels)
	if dst.Size() < need {
		return dst.SetSize(need)
	}
	return nil
}

// Downsample4xAvg reduces one full tile by 4x with a rounded box filter
// and writes the 64x64 result into the (subY,subX) sixteenth of dst,
// subY and subX in {0..3}. Each output channel value is the rounded
// mean of the corresponding 4x4 source block, (sum+8)>>4. Sixteen
// source tiles fill one destination tile two pyramid levels down.
func Downsample4xAvg(src, dst *buffer.Buffer, subY, subX, channels int) error {
	need, err := checkDownsample(src, dst, subY, subX, channels, 4)
	if err != nil {
		return err
	}
	downsample4xFast(src.Storage(), dst.Storage(), subY, subX, channels)
	if dst.Size() < need {
		return dst.SetSize(need)
	}
	return nil
}

// Downsample2xSharp is a declared extension point for an unsharp-mask
// 2x reduction. It has no implementation.
func Downsample2xSharp(src, dst *buffer.Buffer, subY, subX, channels int) error {
	return ErrSharpNotImplemented
}

// Downsample4xSharp is a declared extension point for an unsharp-mask
// 4x reduction. It has no implementation.
func Downsample4xSharp(src, dst *buffer.Buffer, subY, subX, channels int) error {
	return ErrSharpNotImplemented
}
