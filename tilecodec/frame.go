package tilecodec

import (
	"errors"
	"fmt"

	"github.com/wsilib/go-slidetile/buffer"
	"github.com/wsilib/go-slidetile/internal/delta"
	"github.com/wsilib/go-slidetile/internal/planar"
	"github.com/wsilib/go-slidetile/internal/wire"
	"github.com/wsilib/go-slidetile/tile"
)

// ErrBadFrame reports a serialized frame with an invalid header.
var ErrBadFrame = errors.New("tilecodec: bad frame header")

// Frame layout, all multi-byte fields little-endian:
//
//	offset 0  uint32  magic "TLF1"
//	offset 4  uint8   codec
//	offset 5  uint8   pixel format
//	offset 6  uint32  raw payload size in bytes
//	offset 10 []byte  codec-encoded payload
const (
	frameMagic      = 0x31464C54 // "TLF1"
	frameHeaderSize = 10
)

// EncodeFrame serializes a tile payload into a self-describing frame.
// Compressed codecs precondition the pixels first: channel bytes are
// regrouped into planes and delta-filtered, which roughly halves the
// deflate output on photographic tiles. The source buffer is not
// modified.
func EncodeFrame(src *buffer.Buffer, format tile.Format, codec Codec) (*buffer.Buffer, error) {
	if src == nil {
		return nil, errors.New("tilecodec: nil source buffer")
	}
	if !codec.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}
	stride := format.BytesPerPixel()
	if stride == 0 {
		return nil, tile.ErrUndefinedFormat
	}

	var payload []byte
	switch codec {
	case None:
		payload = src.Data()
	case Deflate:
		work := append([]byte(nil), src.Data()...)
		planar.SplitInPlace(work, stride)
		delta.Encode(work)
		var err error
		payload, err = deflateCompress(work)
		if err != nil {
			return nil, err
		}
	case Zstd:
		if src.Size() > 0 {
			work := append([]byte(nil), src.Data()...)
			planar.SplitInPlace(work, stride)
			delta.Encode(work)
			enc, _ := zstdCoders()
			payload = enc.EncodeAll(work, make([]byte, 0, len(work)/2))
		}
	}

	out := buffer.NewSized(frameHeaderSize + len(payload))
	w := wire.NewWriter(out.Storage())
	if err := w.WriteUint32(frameMagic); err != nil {
		return nil, err
	}
	if err := w.WriteUint8(uint8(codec)); err != nil {
		return nil, err
	}
	if err := w.WriteUint8(uint8(format)); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(src.Size())); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(payload); err != nil {
		return nil, err
	}
	if err := out.SetSize(w.Pos()); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeFrame parses a frame produced by EncodeFrame and returns the
// restored tile payload along with the pixel format recorded in the
// header.
func DecodeFrame(src *buffer.Buffer) (*buffer.Buffer, tile.Format, error) {
	if src == nil {
		return nil, tile.FormatUndefined, errors.New("tilecodec: nil source buffer")
	}
	r := wire.NewReader(src.Data())

	magic, err := r.ReadUint32()
	if err != nil || magic != frameMagic {
		return nil, tile.FormatUndefined, ErrBadFrame
	}
	codecByte, err := r.ReadUint8()
	if err != nil {
		return nil, tile.FormatUndefined, ErrBadFrame
	}
	codec := Codec(codecByte)
	if !codec.Valid() {
		return nil, tile.FormatUndefined, fmt.Errorf("%w: codec %d", ErrBadFrame, codecByte)
	}
	formatByte, err := r.ReadUint8()
	if err != nil {
		return nil, tile.FormatUndefined, ErrBadFrame
	}
	format := tile.Format(formatByte)
	stride := format.BytesPerPixel()
	if stride == 0 {
		return nil, tile.FormatUndefined, fmt.Errorf("%w: format %d", ErrBadFrame, formatByte)
	}
	rawSize, err := r.ReadUint32()
	if err != nil {
		return nil, tile.FormatUndefined, ErrBadFrame
	}
	payload := r.Rest()

	var out []byte
	switch codec {
	case None:
		if len(payload) != int(rawSize) {
			return nil, tile.FormatUndefined, fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, len(payload), rawSize)
		}
		out = append([]byte(nil), payload...)
	case Deflate:
		out = make([]byte, rawSize)
		if err := deflateDecompressTo(out, payload); err != nil {
			return nil, tile.FormatUndefined, err
		}
		delta.Decode(out)
		planar.MergeInPlace(out, stride)
	case Zstd:
		if len(payload) == 0 && rawSize == 0 {
			break
		}
		_, dec := zstdCoders()
		out, err = dec.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, tile.FormatUndefined, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		if len(out) != int(rawSize) {
			return nil, tile.FormatUndefined, fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, len(out), rawSize)
		}
		delta.Decode(out)
		planar.MergeInPlace(out, stride)
	}
	return buffer.Adopt(out), format, nil
}
