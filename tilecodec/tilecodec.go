// Package tilecodec compresses and decompresses tile payloads.
//
// Raw tile pixels compress well after format conversion because the
// channel bytes are highly correlated; deflate and zstandard both give
// useful ratios at tile granularity. The codec operates on whole tile
// buffers and always round-trips exactly.
package tilecodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/wsilib/go-slidetile/buffer"
)

var (
	// ErrUnknownCodec reports a codec value outside the defined set.
	ErrUnknownCodec = errors.New("tilecodec: unknown codec")
	// ErrCorrupted reports compressed data that cannot be decoded.
	ErrCorrupted = errors.New("tilecodec: corrupted data")
	// ErrSizeMismatch reports a decompressed payload whose length does
	// not match the expected tile size.
	ErrSizeMismatch = errors.New("tilecodec: decompressed size mismatch")
)

// Codec identifies a tile compression scheme.
type Codec uint8

const (
	// None stores tile bytes uncompressed.
	None Codec = iota
	// Deflate compresses with zlib-wrapped deflate.
	Deflate
	// Zstd compresses with zstandard.
	Zstd
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

// Valid reports whether c names a defined codec.
func (c Codec) Valid() bool {
	return c <= Zstd
}

// Pooled zlib writers; each item carries the writer and its output
// buffer so both are reused together.
type zlibWriterItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriters = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterItem{writer: w, buf: buf}
	},
}

type zlibReaderItem struct {
	reader io.ReadCloser
	srcBuf *bytes.Reader
}

var zlibReaders = sync.Pool{
	New: func() any {
		return &zlibReaderItem{srcBuf: bytes.NewReader(nil)}
	},
}

// Shared zstandard coders. EncodeAll and DecodeAll are safe for
// concurrent use on a single encoder/decoder, so one of each serves
// the whole process.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdOnce    sync.Once
)

func zstdCoders() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1))
		zstdDecoder, _ = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1))
	})
	return zstdEncoder, zstdDecoder
}

// Compress encodes src's payload with the given codec and returns a new
// owning buffer holding the compressed bytes. With codec None the
// payload is copied unmodified.
func Compress(src *buffer.Buffer, codec Codec) (*buffer.Buffer, error) {
	if src == nil {
		return nil, errors.New("tilecodec: nil source buffer")
	}
	switch codec {
	case None:
		return buffer.CopyOf(src.Data()), nil
	case Deflate:
		out, err := deflateCompress(src.Data())
		if err != nil {
			return nil, err
		}
		return buffer.Adopt(out), nil
	case Zstd:
		if src.Size() == 0 {
			return buffer.Adopt(nil), nil
		}
		enc, _ := zstdCoders()
		out := enc.EncodeAll(src.Data(), make([]byte, 0, len(src.Data())/2))
		return buffer.Adopt(out), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
}

// Decompress decodes src's payload with the given codec. expectedSize
// is the known decompressed tile size; a payload that decodes to any
// other length is rejected.
func Decompress(src *buffer.Buffer, codec Codec, expectedSize int) (*buffer.Buffer, error) {
	if src == nil {
		return nil, errors.New("tilecodec: nil source buffer")
	}
	if expectedSize < 0 {
		return nil, fmt.Errorf("%w: negative expected size", ErrSizeMismatch)
	}
	switch codec {
	case None:
		if src.Size() != expectedSize {
			return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, src.Size(), expectedSize)
		}
		return buffer.CopyOf(src.Data()), nil
	case Deflate:
		out := make([]byte, expectedSize)
		if err := deflateDecompressTo(out, src.Data()); err != nil {
			return nil, err
		}
		return buffer.Adopt(out), nil
	case Zstd:
		if src.Size() == 0 {
			if expectedSize != 0 {
				return nil, fmt.Errorf("%w: have 0 bytes, want %d", ErrSizeMismatch, expectedSize)
			}
			return buffer.Adopt(nil), nil
		}
		_, dec := zstdCoders()
		out, err := dec.DecodeAll(src.Data(), make([]byte, 0, expectedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		if len(out) != expectedSize {
			return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, len(out), expectedSize)
		}
		return buffer.Adopt(out), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
}

func deflateCompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	item := zlibWriters.Get().(*zlibWriterItem)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	if _, err := item.writer.Write(src); err != nil {
		item.writer.Close()
		zlibWriters.Put(item)
		return nil, err
	}
	if err := item.writer.Close(); err != nil {
		zlibWriters.Put(item)
		return nil, err
	}

	out := make([]byte, item.buf.Len())
	copy(out, item.buf.Bytes())
	zlibWriters.Put(item)
	return out, nil
}

func deflateDecompressTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrCorrupted
		}
		return nil
	}

	item := zlibReaders.Get().(*zlibReaderItem)
	item.srcBuf.Reset(src)

	var err error
	if item.reader == nil {
		item.reader, err = zlib.NewReader(item.srcBuf)
	} else if resetter, ok := item.reader.(zlib.Resetter); ok {
		if err = resetter.Reset(item.srcBuf, nil); err != nil {
			item.reader.Close()
			item.reader, err = zlib.NewReader(item.srcBuf)
		}
	} else {
		item.reader.Close()
		item.reader, err = zlib.NewReader(item.srcBuf)
	}
	if err != nil {
		item.reader = nil
		zlibReaders.Put(item)
		return ErrCorrupted
	}

	n, err := io.ReadFull(item.reader, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		zlibReaders.Put(item)
		return ErrCorrupted
	}

	// The stream must end exactly at the expected size. Reading the end
	// is also what verifies the adler32 checksum, so anything other
	// than a clean EOF here means the payload was corrupted.
	var one [1]byte
	m, err := item.reader.Read(one[:])
	if m != 0 {
		zlibReaders.Put(item)
		return fmt.Errorf("%w: trailing data past expected size", ErrSizeMismatch)
	}
	if err != io.EOF {
		zlibReaders.Put(item)
		return ErrCorrupted
	}
	zlibReaders.Put(item)

	if n != len(dst) {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, n, len(dst))
	}
	return nil
}
