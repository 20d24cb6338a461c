package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf)
	if err := w.WriteUint8(0xAB); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBytes([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if w.Pos() != 10 {
		t.Errorf("Pos = %d, want 10", w.Pos())
	}

	r := NewReader(buf)
	if v, _ := r.ReadUint8(); v != 0xAB {
		t.Errorf("ReadUint8 = %#x", v)
	}
	if v, _ := r.ReadUint16(); v != 0x1234 {
		t.Errorf("ReadUint16 = %#x", v)
	}
	if v, _ := r.ReadUint32(); v != 0xDEADBEEF {
		t.Errorf("ReadUint32 = %#x", v)
	}
	got := make([]byte, 3)
	if err := r.ReadBytesInto(got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBytesInto = %v", got)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf)
	if err := w.WriteUint32(0x01020304); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{4, 3, 2, 1}) {
		t.Errorf("layout = %v, want little-endian", buf)
	}
}

func TestBoundsChecks(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadUint32(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short ReadUint32: err = %v", err)
	}
	if err := r.Skip(3); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("long Skip: err = %v", err)
	}
	if err := r.Skip(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("negative Skip: err = %v", err)
	}

	w := NewWriter(make([]byte, 2))
	if err := w.WriteUint32(1); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short WriteUint32: err = %v", err)
	}
}

func TestRest(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	if err := r.Skip(1); err != nil {
		t.Fatal(err)
	}
	rest := r.Rest()
	if !bytes.Equal(rest, []byte{2, 3, 4}) {
		t.Errorf("Rest = %v", rest)
	}
	if r.Len() != 0 {
		t.Errorf("Len after Rest = %d", r.Len())
	}
}
