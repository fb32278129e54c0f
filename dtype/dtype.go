// Package dtype names the primitive value types that leaf buffers carry.
package dtype

import (
	"errors"
	"fmt"
)

type DType int

const (
	Bool DType = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
)

var ErrBadDType = errors.New("bad dtype")

func ParseDType(v string) (DType, error) {
	d, ok := map[string]DType{
		"bool":    Bool,
		"int8":    Int8,
		"uint8":   UInt8,
		"int16":   Int16,
		"uint16":  UInt16,
		"int32":   Int32,
		"uint32":  UInt32,
		"int64":   Int64,
		"uint64":  UInt64,
		"float32": Float32,
		"float64": Float64,
	}[v]
	if ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadDType, v)
}

func (d DType) String() string {
	b, err := d.MarshalText()
	if err != nil {
		return err.Error()
	}
	return string(b)
}

func (d DType) MarshalText() ([]byte, error) {
	switch d {
	case Bool:
		return []byte("bool"), nil
	case Int8:
		return []byte("int8"), nil
	case UInt8:
		return []byte("uint8"), nil
	case Int16:
		return []byte("int16"), nil
	case UInt16:
		return []byte("uint16"), nil
	case Int32:
		return []byte("int32"), nil
	case UInt32:
		return []byte("uint32"), nil
	case Int64:
		return []byte("int64"), nil
	case UInt64:
		return []byte("uint64"), nil
	case Float32:
		return []byte("float32"), nil
	case Float64:
		return []byte("float64"), nil
	default:
		return nil, fmt.Errorf("<err: %d is not a dtype>", d)
	}
}

func (d *DType) UnmarshalText(b []byte) error {
	pd, err := ParseDType(string(b))
	if err != nil {
		return err
	}
	*d = pd
	return nil
}

// Size returns the width of one element in bytes.
func (d DType) Size() int {
	switch d {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

func (d DType) IsBool() bool  { return d == Bool }
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

func (d DType) IsSigned() bool {
	switch d {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (d DType) IsUnsigned() bool {
	switch d {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	}
	return false
}

func (d DType) IsInteger() bool { return d.IsSigned() || d.IsUnsigned() }
