package tdms

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// buffer accumulates one channel's values across segments and chunks.
type buffer interface {
	// read appends obj.numValues values decoded from r.
	read(r *reader, obj *segObject) error
	// result returns everything accumulated so far as a typed slice.
	result() interface{}
	count() int
}

// newBuffer returns the accumulator for a channel data type.
func newBuffer(t DataType) (buffer, error) {
	switch t {
	case TypeInt8:
		return newFixedBuffer(1, func(b []byte, _ binary.ByteOrder) int8 { return int8(b[0]) }), nil
	case TypeInt16:
		return newFixedBuffer(2, func(b []byte, o binary.ByteOrder) int16 { return int16(o.Uint16(b)) }), nil
	case TypeInt32:
		return newFixedBuffer(4, func(b []byte, o binary.ByteOrder) int32 { return int32(o.Uint32(b)) }), nil
	case TypeInt64:
		return newFixedBuffer(8, func(b []byte, o binary.ByteOrder) int64 { return int64(o.Uint64(b)) }), nil
	case TypeUint8:
		return newFixedBuffer(1, func(b []byte, _ binary.ByteOrder) uint8 { return b[0] }), nil
	case TypeUint16:
		return newFixedBuffer(2, func(b []byte, o binary.ByteOrder) uint16 { return o.Uint16(b) }), nil
	case TypeUint32:
		return newFixedBuffer(4, func(b []byte, o binary.ByteOrder) uint32 { return o.Uint32(b) }), nil
	case TypeUint64:
		return newFixedBuffer(8, func(b []byte, o binary.ByteOrder) uint64 { return o.Uint64(b) }), nil
	case TypeSingleFloat, TypeSingleFloatWithUnit:
		return newFixedBuffer(4, func(b []byte, o binary.ByteOrder) float32 {
			return math.Float32frombits(o.Uint32(b))
		}), nil
	case TypeDoubleFloat, TypeDoubleFloatWithUnit:
		return newFixedBuffer(8, func(b []byte, o binary.ByteOrder) float64 {
			return math.Float64frombits(o.Uint64(b))
		}), nil
	case TypeBoolean:
		return newFixedBuffer(1, func(b []byte, _ binary.ByteOrder) bool { return b[0] != 0 }), nil
	case TypeString:
		return &stringBuffer{}, nil
	case TypeTimeStamp:
		return &timeBuffer{}, nil
	default:
		return nil, fmt.Errorf("%w: channel data of type %s", ErrUnsupported, t)
	}
}

// fixedBuffer decodes fixed-size values with a per-type decode function.
type fixedBuffer[T any] struct {
	size int
	dec  func([]byte, binary.ByteOrder) T
	vals []T
}

func newFixedBuffer[T any](size int, dec func([]byte, binary.ByteOrder) T) *fixedBuffer[T] {
	return &fixedBuffer[T]{size: size, dec: dec}
}

func (b *fixedBuffer[T]) read(r *reader, obj *segObject) error {
	n := int(obj.numValues)
	raw, err := r.bytes(n * b.size)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		b.vals = append(b.vals, b.dec(raw[i*b.size:(i+1)*b.size], r.order))
	}
	return nil
}

func (b *fixedBuffer[T]) result() interface{} { return b.vals }

func (b *fixedBuffer[T]) count() int { return len(b.vals) }

// stringBuffer decodes a string channel chunk: numValues uint32 end
// offsets, then the concatenated string bytes. The declared chunk size
// covers both.
type stringBuffer struct {
	vals []string
}

func (b *stringBuffer) read(r *reader, obj *segObject) error {
	n := int(obj.numValues)
	ends := make([]uint32, n)
	for i := range ends {
		v, err := r.uint32()
		if err != nil {
			return err
		}
		ends[i] = v
	}
	dataLen := int64(obj.byteSize) - int64(4*n)
	if dataLen < 0 {
		return fmt.Errorf("%w: string channel %q: declared size %d shorter than its offset table",
			ErrInvalidSegment, obj.path, obj.byteSize)
	}
	raw, err := r.bytes(int(dataLen))
	if err != nil {
		return err
	}
	prev := uint32(0)
	for _, end := range ends {
		if end < prev || int64(end) > dataLen {
			return fmt.Errorf("%w: string channel %q: offsets not monotonic", ErrInvalidSegment, obj.path)
		}
		b.vals = append(b.vals, string(raw[prev:end]))
		prev = end
	}
	return nil
}

func (b *stringBuffer) result() interface{} { return b.vals }

func (b *stringBuffer) count() int { return len(b.vals) }

// timeBuffer decodes 128-bit timestamps into UTC times.
type timeBuffer struct {
	vals []time.Time
}

func (b *timeBuffer) read(r *reader, obj *segObject) error {
	for i := uint64(0); i < obj.numValues; i++ {
		t, err := readTimestamp(r)
		if err != nil {
			return err
		}
		b.vals = append(b.vals, t)
	}
	return nil
}

func (b *timeBuffer) result() interface{} { return b.vals }

func (b *timeBuffer) count() int { return len(b.vals) }
