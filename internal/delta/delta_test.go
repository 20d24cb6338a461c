package delta

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(50))
	for _, n := range []int{0, 1, 2, 7, 8, 9, 16, 255, 4096, 196608} {
		data := make([]byte, n)
		rng.Read(data)
		orig := append([]byte(nil), data...)

		Encode(data)
		Decode(data)
		if !bytes.Equal(data, orig) {
			t.Errorf("n=%d: round trip does not restore data", n)
		}
	}
}

func TestEncodeKnownValues(t *testing.T) {
	data := []byte{10, 12, 11, 11, 255, 0}
	Encode(data)
	want := []byte{10, 2, 255, 0, 244, 1}
	if !bytes.Equal(data, want) {
		t.Errorf("Encode = %v, want %v", data, want)
	}
}

func TestEncodeRamp(t *testing.T) {
	// A linear ramp must difference to a constant.
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(3 * i)
	}
	Encode(data)
	for i := 1; i < len(data); i++ {
		if data[i] != 3 {
			t.Fatalf("data[%d] = %d, want 3", i, data[i])
		}
	}
}
