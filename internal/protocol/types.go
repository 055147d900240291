package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	segmentBits = 0x7f
	continueBit = 0x80

	maxVarIntBytes  = 5
	maxVarLongBytes = 10

	// MaxStringChars is the protocol-wide bound on string fields unless a
	// packet declares a tighter one.
	MaxStringChars = 32767
)

// Position is a block coordinate packed into a single 64-bit field on the
// wire: 26 bits x, 26 bits z, 12 bits y, all two's complement.
type Position struct {
	X int32
	Y int32
	Z int32
}

func (p Position) pack() uint64 {
	return (uint64(p.X)&0x3ffffff)<<38 | (uint64(p.Z)&0x3ffffff)<<12 | (uint64(p.Y) & 0xfff)
}

func unpackPosition(v uint64) Position {
	x := int32(v >> 38)
	z := int32(v >> 12 & 0x3ffffff)
	y := int32(v & 0xfff)
	if x >= 1<<25 {
		x -= 1 << 26
	}
	if z >= 1<<25 {
		z -= 1 << 26
	}
	if y >= 1<<11 {
		y -= 1 << 12
	}
	return Position{X: x, Y: y, Z: z}
}

// Reader decodes protocol primitives from a single decoded frame. Every
// truncated or out-of-bound field is reported as a MalformedError: once a
// full frame is in hand there is no more data to wait for.
type Reader struct {
	r *bytes.Reader
}

func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Len returns the number of unconsumed bytes.
func (r *Reader) Len() int {
	return r.r.Len()
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, malformedf("field truncated")
	}
	return b, nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) bytes(n int) ([]byte, error) {
	if r.r.Len() < n {
		return nil, malformedf("field truncated: want %d bytes, have %d", n, r.r.Len())
	}
	buf := make([]byte, n)
	_, _ = r.r.Read(buf)
	return buf, nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Int32() (int32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) Int64() (int64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) Float32() (float32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) Float64() (float64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) VarInt() (int32, error) {
	var value int32
	var pos uint
	for i := 0; i < maxVarIntBytes; i++ {
		b, err := r.Byte()
		if err != nil {
			return 0, err
		}
		value |= int32(b&segmentBits) << pos
		if b&continueBit == 0 {
			return value, nil
		}
		pos += 7
	}
	return 0, malformedf("varint exceeds %d bytes", maxVarIntBytes)
}

func (r *Reader) VarLong() (int64, error) {
	var value int64
	var pos uint
	for i := 0; i < maxVarLongBytes; i++ {
		b, err := r.Byte()
		if err != nil {
			return 0, err
		}
		value |= int64(b&segmentBits) << pos
		if b&continueBit == 0 {
			return value, nil
		}
		pos += 7
	}
	return 0, malformedf("varlong exceeds %d bytes", maxVarLongBytes)
}

// String reads a VarInt-prefixed UTF-8 string of at most max characters.
func (r *Reader) String(max int) (string, error) {
	n, err := r.VarInt()
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > max*4+3 {
		return "", malformedf("string length %d exceeds bound %d", n, max)
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	if utf8.RuneCount(b) > max {
		return "", malformedf("string exceeds %d characters", max)
	}
	return string(b), nil
}

func (r *Reader) UUID() (uuid.UUID, error) {
	b, err := r.bytes(16)
	if err != nil {
		return uuid.Nil, err
	}
	var u uuid.UUID
	copy(u[:], b)
	return u, nil
}

func (r *Reader) Position() (Position, error) {
	b, err := r.bytes(8)
	if err != nil {
		return Position{}, err
	}
	return unpackPosition(binary.BigEndian.Uint64(b)), nil
}

// ByteArray reads a VarInt-prefixed byte slice of at most max bytes.
func (r *Reader) ByteArray(max int) ([]byte, error) {
	n, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) > max {
		return nil, malformedf("byte array length %d exceeds bound %d", n, max)
	}
	return r.bytes(int(n))
}

// Writer encodes protocol primitives into a packet body. Writes cannot fail;
// encoding a well-formed packet never errors.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Int32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *Writer) Int64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *Writer) Float32(v float32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf.Write(b[:])
}

func (w *Writer) Float64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

func (w *Writer) VarInt(v int32) {
	w.buf.Write(appendVarInt(nil, v))
}

func (w *Writer) VarLong(v int64) {
	x := uint64(v)
	for {
		b := byte(x & segmentBits)
		x >>= 7
		if x != 0 {
			b |= continueBit
		}
		w.buf.WriteByte(b)
		if x == 0 {
			return
		}
	}
}

func (w *Writer) String(s string) {
	w.VarInt(int32(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) UUID(u uuid.UUID) {
	w.buf.Write(u[:])
}

func (w *Writer) Position(p Position) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], p.pack())
	w.buf.Write(b[:])
}

func (w *Writer) ByteArray(b []byte) {
	w.VarInt(int32(len(b)))
	w.buf.Write(b)
}

// readVarInt decodes a VarInt from the front of buf without consuming it,
// returning the value and encoded length. It returns ErrNeedMoreData when
// buf ends mid-encoding.
func readVarInt(buf []byte) (int32, int, error) {
	var value int32
	var pos uint
	for i := 0; i < maxVarIntBytes; i++ {
		if i >= len(buf) {
			return 0, 0, ErrNeedMoreData
		}
		b := buf[i]
		value |= int32(b&segmentBits) << pos
		if b&continueBit == 0 {
			return value, i + 1, nil
		}
		pos += 7
	}
	return 0, 0, malformedf("varint exceeds %d bytes", maxVarIntBytes)
}

func appendVarInt(dst []byte, v int32) []byte {
	x := uint32(v)
	for {
		b := byte(x & segmentBits)
		x >>= 7
		if x != 0 {
			b |= continueBit
		}
		dst = append(dst, b)
		if x == 0 {
			return dst
		}
	}
}
