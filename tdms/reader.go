package tdms

import (
	"encoding/binary"
	"io"
	"math"
)

// reader provides positioned binary reads over a TDMS file. The byte
// order is fixed per segment (little-endian unless the segment's ToC
// says otherwise), so each segment works on its own reader.
type reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	pos   int64
}

func newReader(r io.ReaderAt, order binary.ByteOrder) *reader {
	return &reader{r: r, order: order, pos: 0}
}

// at returns a new reader positioned at offset. The new reader shares
// the underlying io.ReaderAt but has independent position.
func (r *reader) at(offset int64) *reader {
	return &reader{r: r.r, order: r.order, pos: offset}
}

// withOrder returns a new reader at the same position using the given
// byte order.
func (r *reader) withOrder(order binary.ByteOrder) *reader {
	return &reader{r: r.r, order: order, pos: r.pos}
}

func (r *reader) big() bool {
	return r.order == binary.ByteOrder(binary.BigEndian)
}

// bytes reads exactly n bytes from the current position.
func (r *reader) bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

func (r *reader) uint8() (uint8, error) {
	buf, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *reader) uint16() (uint16, error) {
	buf, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

func (r *reader) uint32() (uint32, error) {
	buf, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

func (r *reader) uint64() (uint64, error) {
	buf, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

func (r *reader) float32() (float32, error) {
	v, err := r.uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *reader) float64() (float64, error) {
	v, err := r.uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// lengthString reads a TDMS string: uint32 byte length followed by
// UTF-8 bytes.
func (r *reader) lengthString() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	buf, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
