package formats

import (
	"encoding/binary"
	"math"

	"github.com/Faultbox/midgard3mf/pkg/encoding"
)

// binaryReader reads little-endian values from a byte slice. The first short
// read sets err to the format's truncation error; every later read returns
// zero values, so callers check err once per logical block.
type binaryReader struct {
	data      []byte
	pos       int
	err       error
	truncated error
}

func newBinaryReader(data []byte, truncated error) *binaryReader {
	return &binaryReader{data: data, truncated: truncated}
}

func (r *binaryReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = r.truncated
		r.pos = len(r.data)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *binaryReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *binaryReader) skip(n int) {
	r.take(n)
}

func (r *binaryReader) uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *binaryReader) uint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *binaryReader) int32() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *binaryReader) uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *binaryReader) float32() float32 {
	if b := r.take(4); b != nil {
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *binaryReader) float32s(dst []float32) {
	for i := range dst {
		dst[i] = r.float32()
	}
}

func (r *binaryReader) uint16s(dst []uint16) {
	for i := range dst {
		dst[i] = r.uint16()
	}
}

func (r *binaryReader) bytes(dst []byte) {
	copy(dst, r.take(len(dst)))
}

// name reads a fixed-size, NUL padded EUC-KR string.
func (r *binaryReader) name(size int) string {
	return encoding.FixedStringToUTF8(r.take(size))
}

// count reads an element count and checks it against max.
func (r *binaryReader) count(max int) (int, error) {
	n := r.int32()
	if r.err != nil {
		return 0, r.err
	}
	if n < 0 || int(n) > max {
		return 0, ErrInvalidElementCount
	}
	return int(n), nil
}
