package dtype

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder states how multi-byte elements are laid out in a raw buffer.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

var nativeOrder = func() ByteOrder {
	b := [2]byte{}
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}()

// NativeOrder reports the byte order of the machine this process runs on.
func NativeOrder() ByteOrder { return nativeOrder }

// ParseByteOrder accepts "<", ">", "=" as well as spelled-out names.
func ParseByteOrder(v string) (ByteOrder, error) {
	switch v {
	case "<", "little":
		return LittleEndian, nil
	case ">", "big":
		return BigEndian, nil
	case "=", "native":
		return nativeOrder, nil
	}
	return 0, fmt.Errorf("%w: byte order %q", ErrBadDType, v)
}

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

// Binary returns the encoding/binary implementation of this order.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
