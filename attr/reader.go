package attr

import (
	"encoding/binary"
	"math"

	"github.com/monolens/monolens/errors"
)

// maxSerString bounds a single SerString body. The 4-byte prefix form
// can declare up to 2^29-1 bytes; a hostile blob must not make us
// allocate that before the bound check catches it.
const maxSerString = 1 << 20

// reader is a bounded little-endian cursor over an attribute blob.
//
// Reads past the bound return zero values but still advance the cursor
// by the declared width, so one short field does not misalign every
// field after it. The first overrun latches its offset; once latched,
// every later read also reports truncation.
type reader struct {
	data      []byte
	off       int
	truncated bool
	failAt    int
	failWant  int
}

func newReader(blob []byte, size uint32) *reader {
	n := int(size)
	if n > len(blob) {
		n = len(blob)
	}
	return &reader{data: blob[:n]}
}

func (r *reader) remaining() int { return len(r.data) - r.off }

// mark latches the first overrun: where it happened and how many bytes
// the failing read wanted.
func (r *reader) mark(at, want int) {
	if !r.truncated {
		r.truncated = true
		r.failAt = at
		r.failWant = want
	}
}

// bytes returns exactly n bytes starting at the cursor, zero-filled
// where the blob ran out, and advances the cursor by n regardless.
func (r *reader) bytes(n int) []byte {
	start := r.off
	r.off += n
	if start >= len(r.data) {
		r.mark(start, n)
		return make([]byte, n)
	}
	if avail := len(r.data) - start; avail < n {
		r.mark(start, n)
		out := make([]byte, n)
		copy(out, r.data[start:])
		return out
	}
	return r.data[start : start+n]
}

// err reports the latched truncation as an error, or nil.
func (r *reader) err() error {
	if !r.truncated {
		return nil
	}
	have := len(r.data) - r.failAt
	if have < 0 {
		have = 0
	}
	return errors.Truncated(r.failAt, r.failWant, have)
}

func (r *reader) u8() uint8   { return r.bytes(1)[0] }
func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }
func (r *reader) u64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }

func (r *reader) i8() int8   { return int8(r.u8()) }
func (r *reader) i16() int16 { return int16(r.u16()) }
func (r *reader) i32() int32 { return int32(r.u32()) }
func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }
func (r *reader) f64() float64 { return math.Float64frombits(r.u64()) }

// serString decodes one packed-length string (ECMA-335 II.23.3).
//
// The top bits of the first byte select the prefix width:
//
//	0xxxxxxx            1-byte length, 0..127
//	10xxxxxx Y          2-byte big-endian length, 14 bits
//	110xxxxx Y Z W      4-byte big-endian length, 29 bits
//	11111111            null string
//
// Any other leading pattern is malformed. The body is UTF-8 taken
// verbatim.
func (r *reader) serString() (s string, isNull bool, err error) {
	at := r.off
	b0 := r.u8()
	if r.truncated {
		return "", false, r.err()
	}
	if b0 == 0xFF {
		return "", true, nil
	}

	var length int
	switch {
	case b0&0x80 == 0:
		length = int(b0)
	case b0&0xC0 == 0x80:
		b1 := r.u8()
		length = int(b0&0x3F)<<8 | int(b1)
	case b0&0xE0 == 0xC0:
		rest := r.bytes(3)
		length = int(b0&0x1F)<<24 | int(rest[0])<<16 | int(rest[1])<<8 | int(rest[2])
	default:
		return "", false, errors.Malformed(at, "invalid string length prefix 0x%02X", b0)
	}
	if r.truncated {
		return "", false, r.err()
	}
	if length > maxSerString || length > r.remaining() {
		r.mark(r.off, length)
		return "", false, r.err()
	}
	return string(r.bytes(length)), false, nil
}
