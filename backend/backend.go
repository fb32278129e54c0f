package backend

import (
	"errors"
	"fmt"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

type ReduceOp int

const (
	ReduceCount ReduceOp = iota
	ReduceSum
	ReduceMin
	ReduceMax
	ReduceAny
	ReduceAll
)

func (op ReduceOp) String() string {
	switch op {
	case ReduceCount:
		return "count"
	case ReduceSum:
		return "sum"
	case ReduceMin:
		return "min"
	case ReduceMax:
		return "max"
	case ReduceAny:
		return "any"
	case ReduceAll:
		return "all"
	default:
		return fmt.Sprintf("<err: %d is not a reduce op>", int(op))
	}
}

var ErrMixedRegimes = errors.New("mixed execution regimes")

// Backend is the only route from structural code to primitive buffers.
type Backend interface {
	Name() string

	// KnownData distinguishes the two regimes. Structural code branches on
	// it wherever control flow depends on buffer values.
	KnownData() bool

	// FromBytes adopts count elements of dt from raw, byte-swapping into
	// machine order when order differs.
	FromBytes(dt dtype.DType, raw []byte, count int64, order dtype.ByteOrder) (*Buffer, error)

	// ToBytes serializes a buffer into the given order.
	ToBytes(b *Buffer, order dtype.ByteOrder) ([]byte, error)

	// Empty returns an all-zero buffer of the given length.
	Empty(dt dtype.DType, length shape.Length) *Buffer

	// Gather returns b[idx[0]], b[idx[1]], ...; every position must be in
	// [0, len(b)).
	Gather(b *Buffer, idx *index.Index) (*Buffer, error)

	// Astype converts element-wise. Floats truncate toward zero when
	// narrowed to integers; bools become 0 or 1.
	Astype(b *Buffer, dt dtype.DType) (*Buffer, error)

	// Concat joins same-dtype buffers in order.
	Concat(bs ...*Buffer) (*Buffer, error)

	// Nonzero returns the positions of true values in a bool buffer.
	Nonzero(b *Buffer) (*index.Index, error)

	// ArgSortRanges returns a global permutation sorting each
	// [offsets[i], offsets[i+1]) run independently.
	ArgSortRanges(b *Buffer, offsets *index.Index, ascending, stable bool) (*index.Index, error)

	// ReduceRanges reduces each [offsets[i], offsets[i+1]) run to one
	// value; empty runs yield the operation's identity (zero for min/max,
	// which callers mask).
	ReduceRanges(op ReduceOp, b *Buffer, offsets *index.Index) (*Buffer, error)
}

// Common returns the backend shared by both arguments, or an error when a
// concrete tree and a shape-only tree meet.
func Common(a, b Backend) (Backend, error) {
	if a == nil {
		return b, nil
	}
	if b == nil || a == b {
		return a, nil
	}
	if a.KnownData() != b.KnownData() {
		return nil, fmt.Errorf("%w: %s and %s", ErrMixedRegimes, a.Name(), b.Name())
	}
	return a, nil
}

// reduceDType is the dtype a reduction produces.
func reduceDType(op ReduceOp, in dtype.DType) dtype.DType {
	switch op {
	case ReduceCount:
		return dtype.Int64
	case ReduceAny, ReduceAll:
		return dtype.Bool
	case ReduceSum:
		switch {
		case in.IsFloat():
			return in
		case in.IsUnsigned():
			return dtype.UInt64
		default:
			return dtype.Int64
		}
	default:
		return in
	}
}
