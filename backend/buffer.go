package backend

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/shape"
)

// Buffer is an immutable run of primitive values, kept in machine byte
// order. Placeholder buffers (shape-only regime) carry nil bytes and touch
// hooks instead.
type Buffer struct {
	dt      dtype.DType
	raw     []byte
	length  shape.Length
	onData  func()
	onShape func()
}

// Element is any Go type a Buffer can hold.
type Element interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~float32 | ~float64
}

// Of builds a known-data buffer from a Go slice.
func Of[T Element](vals []T) *Buffer {
	var zero T
	dt := dtypeOf(zero)
	raw := make([]byte, len(vals)*dt.Size())
	for i, v := range vals {
		putElement(raw[i*dt.Size():], dt, v)
	}
	return &Buffer{dt: dt, raw: raw, length: shape.Of(int64(len(vals)))}
}

func dtypeOf(v any) dtype.DType {
	switch v.(type) {
	case bool:
		return dtype.Bool
	case int8:
		return dtype.Int8
	case uint8:
		return dtype.UInt8
	case int16:
		return dtype.Int16
	case uint16:
		return dtype.UInt16
	case int32:
		return dtype.Int32
	case uint32:
		return dtype.UInt32
	case int64:
		return dtype.Int64
	case uint64:
		return dtype.UInt64
	case float32:
		return dtype.Float32
	case float64:
		return dtype.Float64
	default:
		panic(fmt.Sprintf("backend: %T is not a buffer element", v))
	}
}

func putElement[T Element](raw []byte, dt dtype.DType, v T) {
	ne := binary.NativeEndian
	switch dt {
	case dtype.Bool:
		if any(v).(bool) {
			raw[0] = 1
		} else {
			raw[0] = 0
		}
	case dtype.Int8:
		raw[0] = byte(any(v).(int8))
	case dtype.UInt8:
		raw[0] = any(v).(uint8)
	case dtype.Int16:
		ne.PutUint16(raw, uint16(any(v).(int16)))
	case dtype.UInt16:
		ne.PutUint16(raw, any(v).(uint16))
	case dtype.Int32:
		ne.PutUint32(raw, uint32(any(v).(int32)))
	case dtype.UInt32:
		ne.PutUint32(raw, any(v).(uint32))
	case dtype.Int64:
		ne.PutUint64(raw, uint64(any(v).(int64)))
	case dtype.UInt64:
		ne.PutUint64(raw, any(v).(uint64))
	case dtype.Float32:
		ne.PutUint32(raw, math.Float32bits(any(v).(float32)))
	case dtype.Float64:
		ne.PutUint64(raw, math.Float64bits(any(v).(float64)))
	}
}

// Wrap takes ownership of raw, which must hold exactly count elements of dt
// in machine order.
func Wrap(dt dtype.DType, raw []byte, count int64) (*Buffer, error) {
	if int64(len(raw)) != count*int64(dt.Size()) {
		return nil, fmt.Errorf("buffer bytes %d do not hold %d %s elements", len(raw), count, dt)
	}
	return &Buffer{dt: dt, raw: raw, length: shape.Of(count)}, nil
}

// Placeholder is a data-free buffer for the shape-only regime. Either hook
// may be nil.
func Placeholder(dt dtype.DType, length shape.Length, onData, onShape func()) *Buffer {
	return &Buffer{dt: dt, length: length, onData: onData, onShape: onShape}
}

func (b *Buffer) DType() dtype.DType { return b.dt }
func (b *Buffer) Len() shape.Length  { return b.length }
func (b *Buffer) KnownData() bool    { return b.raw != nil }

// Raw exposes the backing bytes without copying; callers must not mutate.
// Nil for placeholders.
func (b *Buffer) Raw() []byte { return b.raw }

// TouchData fires the shape-only regime's data hook, if any.
func (b *Buffer) TouchData() {
	if b.onData != nil {
		b.onData()
	}
}

// TouchShape fires the shape-only regime's shape hook, if any.
func (b *Buffer) TouchShape() {
	if b.onShape != nil {
		b.onShape()
	}
}

// Slice returns an aliasing view of elements [i, j).
func (b *Buffer) Slice(i, j int64) *Buffer {
	out := &Buffer{dt: b.dt, length: shape.Of(j - i), onData: b.onData, onShape: b.onShape}
	if b.raw != nil {
		sz := int64(b.dt.Size())
		out.raw = b.raw[i*sz : j*sz : j*sz]
	}
	return out
}

func (b *Buffer) placeholderLike(length shape.Length) *Buffer {
	return &Buffer{dt: b.dt, length: length, onData: b.onData, onShape: b.onShape}
}

// Bool reads element i of a bool buffer.
func (b *Buffer) Bool(i int64) bool { return b.raw[i] != 0 }

// Int reads element i of any integer or bool buffer, widened to int64.
func (b *Buffer) Int(i int64) int64 {
	ne := binary.NativeEndian
	switch b.dt {
	case dtype.Bool:
		if b.raw[i] != 0 {
			return 1
		}
		return 0
	case dtype.Int8:
		return int64(int8(b.raw[i]))
	case dtype.UInt8:
		return int64(b.raw[i])
	case dtype.Int16:
		return int64(int16(ne.Uint16(b.raw[2*i:])))
	case dtype.UInt16:
		return int64(ne.Uint16(b.raw[2*i:]))
	case dtype.Int32:
		return int64(int32(ne.Uint32(b.raw[4*i:])))
	case dtype.UInt32:
		return int64(ne.Uint32(b.raw[4*i:]))
	case dtype.Int64:
		return int64(ne.Uint64(b.raw[8*i:]))
	case dtype.UInt64:
		return int64(ne.Uint64(b.raw[8*i:]))
	default:
		panic(fmt.Sprintf("backend: Int on %s buffer", b.dt))
	}
}

// Float reads element i of any numeric buffer as float64.
func (b *Buffer) Float(i int64) float64 {
	ne := binary.NativeEndian
	switch b.dt {
	case dtype.Float32:
		return float64(math.Float32frombits(ne.Uint32(b.raw[4*i:])))
	case dtype.Float64:
		return math.Float64frombits(ne.Uint64(b.raw[8*i:]))
	case dtype.UInt64:
		return float64(ne.Uint64(b.raw[8*i:]))
	default:
		return float64(b.Int(i))
	}
}

// Value reads element i as the Go scalar matching the buffer's dtype.
func (b *Buffer) Value(i int64) any {
	ne := binary.NativeEndian
	switch b.dt {
	case dtype.Bool:
		return b.raw[i] != 0
	case dtype.Int8:
		return int8(b.raw[i])
	case dtype.UInt8:
		return b.raw[i]
	case dtype.Int16:
		return int16(ne.Uint16(b.raw[2*i:]))
	case dtype.UInt16:
		return ne.Uint16(b.raw[2*i:])
	case dtype.Int32:
		return int32(ne.Uint32(b.raw[4*i:]))
	case dtype.UInt32:
		return ne.Uint32(b.raw[4*i:])
	case dtype.Int64:
		return int64(ne.Uint64(b.raw[8*i:]))
	case dtype.UInt64:
		return ne.Uint64(b.raw[8*i:])
	case dtype.Float32:
		return math.Float32frombits(ne.Uint32(b.raw[4*i:]))
	case dtype.Float64:
		return math.Float64frombits(ne.Uint64(b.raw[8*i:]))
	default:
		panic(fmt.Sprintf("backend: bad dtype %d", b.dt))
	}
}

func (b *Buffer) String() string {
	if !b.KnownData() {
		return fmt.Sprintf("%s[%s]{?}", b.dt, b.length)
	}
	return fmt.Sprintf("%s[%d]", b.dt, b.length.MustKnown())
}
