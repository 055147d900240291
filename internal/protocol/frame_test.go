package protocol

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestDecoderSplitsFrames(t *testing.T) {
	body1 := []byte{0x01, 0xaa, 0xbb}
	body2 := []byte{0x02, 0xcc}

	d := NewDecoder()
	d.Push(EncodeFrame(body1, -1))
	d.Push(EncodeFrame(body2, -1))

	got1, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "first frame", got1, body1)

	got2, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "second frame", got2, body2)

	_, err = d.Next()
	testutil.AssertEqual(t, "drained decoder", err, ErrNeedMoreData)
}

// Every proper prefix of a valid frame must yield NeedMoreData, never a
// malformed error.
func TestDecoderPartialFramesNeedMoreData(t *testing.T) {
	frame := EncodeFrame([]byte{0x10, 0x01, 0x02, 0x03, 0x04}, -1)

	for i := 0; i < len(frame); i++ {
		d := NewDecoder()
		d.Push(frame[:i])
		_, err := d.Next()
		if !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("prefix of %d bytes: expected ErrNeedMoreData, got %v", i, err)
		}
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	body := []byte{0x16, 0xde, 0xad, 0xbe, 0xef}
	frame := EncodeFrame(body, -1)

	d := NewDecoder()
	for i, b := range frame {
		d.Push([]byte{b})
		got, err := d.Next()
		if i < len(frame)-1 {
			if !errors.Is(err, ErrNeedMoreData) {
				t.Fatalf("byte %d: expected ErrNeedMoreData, got %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("final byte: unexpected error: %v", err)
		}
		testutil.AssertEqual(t, "frame", got, body)
	}
}

func TestDecoderRejectsOversizedFrame(t *testing.T) {
	d := NewDecoder()
	d.Push(appendVarInt(nil, MaxFrameSize+1))

	_, err := d.Next()
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestDecoderRejectsZeroLengthFrame(t *testing.T) {
	d := NewDecoder()
	d.Push([]byte{0x00, 0x01})

	_, err := d.Next()
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestCompressedFrameRoundTrip(t *testing.T) {
	tests := map[string]struct {
		body      []byte
		threshold int
	}{
		"below threshold stays uncompressed": {[]byte{0x01, 0x02, 0x03}, 64},
		"above threshold is deflated":        {make([]byte, 512), 64},
		"threshold zero compresses all":      {[]byte{0x2a, 0xff, 0x00, 0x10}, 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d := NewDecoder()
			d.EnableCompression(tt.threshold)
			d.Push(EncodeFrame(tt.body, tt.threshold))

			got, err := d.Next()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "body", got, tt.body)
		})
	}
}

func TestCompressedFrameBadHeader(t *testing.T) {
	// Declares a compressed body but carries garbage instead of zlib data.
	inner := appendVarInt(nil, 100)
	inner = append(inner, 0xde, 0xad, 0xbe, 0xef)
	frame := appendVarInt(nil, int32(len(inner)))
	frame = append(frame, inner...)

	d := NewDecoder()
	d.EnableCompression(0)
	d.Push(frame)

	_, err := d.Next()
	if !IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}
