package protocol

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestVarIntEncoding(t *testing.T) {
	tests := map[string]struct {
		value   int32
		encoded []byte
	}{
		"zero":      {0, []byte{0x00}},
		"one":       {1, []byte{0x01}},
		"127":       {127, []byte{0x7f}},
		"128":       {128, []byte{0x80, 0x01}},
		"255":       {255, []byte{0xff, 0x01}},
		"25565":     {25565, []byte{0xdd, 0xc7, 0x01}},
		"2097151":   {2097151, []byte{0xff, 0xff, 0x7f}},
		"max int32": {2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		"minus one": {-1, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		"min int32": {-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x08}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "encoded", appendVarInt(nil, tt.value), tt.encoded)

			got, err := NewReader(tt.encoded).VarInt()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "decoded", got, tt.value)

			v, n, err := readVarInt(tt.encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "peeked", v, tt.value)
			testutil.AssertEqual(t, "peeked length", n, len(tt.encoded))
		})
	}
}

func TestVarIntTooLong(t *testing.T) {
	oversized := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}

	_, err := NewReader(oversized).VarInt()
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}

	_, _, err = readVarInt(oversized)
	if !IsMalformed(err) {
		t.Errorf("expected malformed error from readVarInt, got %v", err)
	}
}

func TestVarIntIncomplete(t *testing.T) {
	// All continuation bits set, stream ends mid-value.
	_, _, err := readVarInt([]byte{0x80, 0x80})
	testutil.AssertEqual(t, "error", err, ErrNeedMoreData)
}

func TestVarLongRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 255, 1 << 40, -(1 << 40), 9223372036854775807, -9223372036854775808}
	for _, v := range values {
		var w Writer
		w.VarLong(v)
		got, err := NewReader(w.Bytes()).VarLong()
		if err != nil {
			t.Fatalf("decoding %d: %v", v, err)
		}
		testutil.AssertEqual(t, "value", got, v)
	}
}

func TestStringBounds(t *testing.T) {
	var w Writer
	w.String("Alice")

	got, err := NewReader(w.Bytes()).String(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "value", got, "Alice")

	// Same bytes read under a tighter bound must be rejected.
	_, err = NewReader(w.Bytes()).String(1)
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestStringTruncated(t *testing.T) {
	// Declares 10 bytes but carries 3.
	data := append([]byte{0x0a}, []byte("abc")...)
	_, err := NewReader(data).String(16)
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	tests := map[string]Position{
		"origin":       {0, 0, 0},
		"positive":     {100, 64, 200},
		"negative":     {-100, -32, -200},
		"extremes":     {33554431, 2047, -33554432},
		"mixed signs":  {-1, 2047, 1},
		"bottom world": {12, -64, -7},
	}

	for name, pos := range tests {
		t.Run(name, func(t *testing.T) {
			var w Writer
			w.Position(pos)
			got, err := NewReader(w.Bytes()).Position()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "position", got, pos)
		})
	}
}

func TestByteArrayBound(t *testing.T) {
	var w Writer
	w.ByteArray(make([]byte, 32))

	_, err := NewReader(w.Bytes()).ByteArray(16)
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}
