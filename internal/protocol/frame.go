package protocol

import (
	"bytes"
	"compress/zlib"
	"io"
)

// MaxFrameSize bounds a single packet frame. Anything larger is hostile or
// corrupt and closes the connection.
const MaxFrameSize = 2 * 1024 * 1024

// Decoder buffers raw connection bytes and splits them into frames. It holds
// no packet-level knowledge; a frame is the VarInt-length-prefixed unit,
// optionally zlib-compressed once compression has been negotiated.
type Decoder struct {
	buf       []byte
	threshold int
}

func NewDecoder() *Decoder {
	return &Decoder{threshold: -1}
}

// EnableCompression switches the decoder to the compressed frame layout.
// Applies to frames pushed after the call, matching the wire handoff that
// follows a SetCompression packet.
func (d *Decoder) EnableCompression(threshold int) {
	d.threshold = threshold
}

// Push appends bytes read from the connection.
func (d *Decoder) Push(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the body (packet id + fields) of the next complete frame.
// It returns ErrNeedMoreData until a full frame has been pushed, and a
// MalformedError for frames that can never become valid.
func (d *Decoder) Next() ([]byte, error) {
	length, n, err := readVarInt(d.buf)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, malformedf("frame length %d", length)
	}
	if length > MaxFrameSize {
		return nil, malformedf("frame length %d exceeds maximum %d", length, MaxFrameSize)
	}
	if len(d.buf)-n < int(length) {
		return nil, ErrNeedMoreData
	}

	frame := make([]byte, length)
	copy(frame, d.buf[n:n+int(length)])
	d.buf = d.buf[n+int(length):]

	if d.threshold < 0 {
		return frame, nil
	}
	return inflateFrame(frame)
}

// inflateFrame unwraps the compressed frame layout: a VarInt uncompressed
// size (zero means the body follows unchanged) and then the body.
func inflateFrame(frame []byte) ([]byte, error) {
	dataLen, n, err := readVarInt(frame)
	if err != nil {
		return nil, malformedf("compressed frame header: %v", err)
	}
	if dataLen == 0 {
		return frame[n:], nil
	}
	if dataLen < 0 || dataLen > MaxFrameSize {
		return nil, malformedf("uncompressed length %d out of range", dataLen)
	}

	zr, err := zlib.NewReader(bytes.NewReader(frame[n:]))
	if err != nil {
		return nil, malformedf("zlib header: %v", err)
	}
	defer zr.Close()

	body := make([]byte, dataLen)
	if _, err := io.ReadFull(zr, body); err != nil {
		return nil, malformedf("inflating frame: %v", err)
	}
	// A conforming frame is fully consumed by dataLen bytes.
	if extra, _ := io.Copy(io.Discard, zr); extra > 0 {
		return nil, malformedf("inflated frame larger than declared %d", dataLen)
	}
	return body, nil
}

// EncodeFrame wraps an encoded packet body in the wire framing. A negative
// threshold writes the plain layout; otherwise the compressed layout is used
// and bodies meeting the threshold are deflated.
func EncodeFrame(body []byte, threshold int) []byte {
	if threshold < 0 {
		out := appendVarInt(nil, int32(len(body)))
		return append(out, body...)
	}

	if len(body) < threshold {
		inner := appendVarInt(nil, 0)
		inner = append(inner, body...)
		out := appendVarInt(nil, int32(len(inner)))
		return append(out, inner...)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write(body)
	_ = zw.Close()

	inner := appendVarInt(nil, int32(len(body)))
	inner = append(inner, compressed.Bytes()...)
	out := appendVarInt(nil, int32(len(inner)))
	return append(out, inner...)
}
