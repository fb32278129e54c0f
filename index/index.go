// Package index holds the fixed-width integer buffers that structural nodes
// own: offsets, starts/stops, indirection indexes, union tags.
//
// Values are kept as int64 in memory regardless of wire width; Kind records
// the width used when a buffer crosses a serialization boundary. Ownership
// is explicit at every constructor: Wrap takes ownership of its slice,
// CopyOf and Clone copy. Nothing here copies silently.
package index

import (
	"errors"
	"fmt"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/shape"
)

type Kind int

const (
	I8 Kind = iota
	U8
	I32
	U32
	I64
)

var ErrBadKind = errors.New("bad index kind")

func ParseKind(v string) (Kind, error) {
	k, ok := map[string]Kind{
		"i8":  I8,
		"u8":  U8,
		"i32": I32,
		"u32": U32,
		"i64": I64,
	}[v]
	if ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadKind, v)
}

func (k Kind) String() string {
	switch k {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	default:
		return fmt.Sprintf("<err: %d is not an index kind>", int(k))
	}
}

func (k Kind) Size() int {
	switch k {
	case I8, U8:
		return 1
	case I32, U32:
		return 4
	default:
		return 8
	}
}

func (k Kind) Signed() bool { return k == I8 || k == I32 || k == I64 }

// Index is an immutable integer buffer. In the shape-only regime it is a
// placeholder: nil data, possibly-unknown length, and touch hooks that
// fire whenever an operation would have needed the values or the length.
type Index struct {
	kind    Kind
	data    []int64
	length  shape.Length
	onTouch func()
	onShape func()
}

// Wrap takes ownership of data; the caller must not mutate it afterwards.
func Wrap(k Kind, data []int64) *Index {
	return &Index{kind: k, data: data, length: shape.Of(int64(len(data)))}
}

// CopyOf copies data, leaving the argument to its caller.
func CopyOf(k Kind, data []int64) *Index {
	return Wrap(k, append([]int64(nil), data...))
}

// Placeholder is an Index with no values, for the shape-only regime.
// onTouch may be nil.
func Placeholder(k Kind, length shape.Length, onTouch func()) *Index {
	return &Index{kind: k, length: length, onTouch: onTouch}
}

// PlaceholderHooks is Placeholder with separate data and shape hooks.
func PlaceholderHooks(k Kind, length shape.Length, onTouch, onShape func()) *Index {
	return &Index{kind: k, length: length, onTouch: onTouch, onShape: onShape}
}

// Arange returns [0, 1, ..., n-1] as a 64-bit index.
func Arange(n int64) *Index {
	data := make([]int64, n)
	for i := range data {
		data[i] = int64(i)
	}
	return Wrap(I64, data)
}

func Zeros(n int64) *Index { return Wrap(I64, make([]int64, n)) }

func Full(n, v int64) *Index {
	data := make([]int64, n)
	for i := range data {
		data[i] = v
	}
	return Wrap(I64, data)
}

func (x *Index) Kind() Kind        { return x.kind }
func (x *Index) Len() shape.Length { return x.length }
func (x *Index) KnownData() bool   { return x.data != nil }

// Data exposes the backing slice without copying. Callers must treat it as
// read-only; it is nil for placeholders.
func (x *Index) Data() []int64 { return x.data }

func (x *Index) At(i int64) int64 { return x.data[i] }

// Slice returns an aliasing view of [i, j).
func (x *Index) Slice(i, j int64) *Index {
	if !x.KnownData() {
		return &Index{kind: x.kind, length: shape.Of(j - i), onTouch: x.onTouch, onShape: x.onShape}
	}
	return &Index{kind: x.kind, data: x.data[i:j:j], length: shape.Of(j - i)}
}

func (x *Index) Clone() *Index {
	if !x.KnownData() {
		return &Index{kind: x.kind, length: x.length, onTouch: x.onTouch, onShape: x.onShape}
	}
	return CopyOf(x.kind, x.data)
}

// WithKind returns the same values tagged with a different wire width.
func (x *Index) WithKind(k Kind) *Index {
	y := *x
	y.kind = k
	return &y
}

// Max reports the largest value, or false when the index is empty.
func (x *Index) Max() (int64, bool) {
	if len(x.data) == 0 {
		return 0, false
	}
	m := x.data[0]
	for _, v := range x.data[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// TouchData fires the shape-only regime's touch hook, if any.
func (x *Index) TouchData() {
	if x.onTouch != nil {
		x.onTouch()
	}
}

// TouchShape fires the shape-only regime's shape hook, if any.
func (x *Index) TouchShape() {
	if x.onShape != nil {
		x.onShape()
	}
}

func (x *Index) String() string {
	if !x.KnownData() {
		return fmt.Sprintf("%s[%s]{?}", x.kind, x.length)
	}
	return fmt.Sprintf("%s%v", x.kind, x.data)
}

// FromBytes decodes count values of wire width k from raw, byte-swapping
// when order differs from the machine's.
func FromBytes(k Kind, raw []byte, count int64, order dtype.ByteOrder) (*Index, error) {
	need := count * int64(k.Size())
	if int64(len(raw)) < need {
		return nil, fmt.Errorf("index buffer too small: need %d bytes, have %d", need, len(raw))
	}
	bo := order.Binary()
	data := make([]int64, count)
	switch k {
	case I8:
		for i := range data {
			data[i] = int64(int8(raw[i]))
		}
	case U8:
		for i := range data {
			data[i] = int64(raw[i])
		}
	case I32:
		for i := range data {
			data[i] = int64(int32(bo.Uint32(raw[4*i:])))
		}
	case U32:
		for i := range data {
			data[i] = int64(bo.Uint32(raw[4*i:]))
		}
	case I64:
		for i := range data {
			data[i] = int64(bo.Uint64(raw[8*i:]))
		}
	}
	return Wrap(k, data), nil
}

// ToBytes encodes the values at wire width k in the given order. Values
// outside the width's range are an error, never truncated.
func (x *Index) ToBytes(order dtype.ByteOrder) ([]byte, error) {
	bo := order.Binary()
	raw := make([]byte, int64(len(x.data))*int64(x.kind.Size()))
	for i, v := range x.data {
		switch x.kind {
		case I8:
			if v < -128 || v > 127 {
				return nil, fmt.Errorf("value %d overflows i8", v)
			}
			raw[i] = byte(int8(v))
		case U8:
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("value %d overflows u8", v)
			}
			raw[i] = byte(v)
		case I32:
			if v < -1<<31 || v > 1<<31-1 {
				return nil, fmt.Errorf("value %d overflows i32", v)
			}
			bo.PutUint32(raw[4*i:], uint32(int32(v)))
		case U32:
			if v < 0 || v > 1<<32-1 {
				return nil, fmt.Errorf("value %d overflows u32", v)
			}
			bo.PutUint32(raw[4*i:], uint32(v))
		case I64:
			bo.PutUint64(raw[8*i:], uint64(v))
		}
	}
	return raw, nil
}
