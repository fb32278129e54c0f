package backend

import (
	"errors"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

var ErrShapeOnly = errors.New("operation needs concrete data in shape-only regime")

type tracer struct {
	rep *Report
}

// TypeTracer is the shape-only regime. rep may be nil when the caller does
// not need touch accounting.
func TypeTracer(rep *Report) Backend { return &tracer{rep: rep} }

func (t *tracer) Report() *Report { return t.rep }

func (*tracer) Name() string    { return "typetracer" }
func (*tracer) KnownData() bool { return false }

func (t *tracer) FromBytes(dt dtype.DType, raw []byte, count int64, order dtype.ByteOrder) (*Buffer, error) {
	return Placeholder(dt, shape.Of(count), nil, nil), nil
}

func (t *tracer) ToBytes(b *Buffer, order dtype.ByteOrder) ([]byte, error) {
	b.TouchData()
	return nil, ErrShapeOnly
}

func (t *tracer) Empty(dt dtype.DType, length shape.Length) *Buffer {
	return Placeholder(dt, length, nil, nil)
}

func (t *tracer) Gather(b *Buffer, idx *index.Index) (*Buffer, error) {
	b.TouchData()
	idx.TouchData()
	return b.placeholderLike(idx.Len()), nil
}

func (t *tracer) Astype(b *Buffer, dt dtype.DType) (*Buffer, error) {
	if b.dt == dt {
		return b, nil
	}
	b.TouchData()
	return Placeholder(dt, b.length, b.onData, b.onShape), nil
}

func (t *tracer) Concat(bs ...*Buffer) (*Buffer, error) {
	if len(bs) == 0 {
		return nil, errors.New("concat of no buffers")
	}
	dt := bs[0].dt
	total := shape.Of(0)
	for _, b := range bs {
		if b.dt != dt {
			return nil, errors.New("concat of mixed-dtype buffers")
		}
		b.TouchData()
		total = total.Add(b.length)
	}
	return Placeholder(dt, total, bs[0].onData, bs[0].onShape), nil
}

func (t *tracer) Nonzero(b *Buffer) (*index.Index, error) {
	if b.dt != dtype.Bool {
		return nil, errors.New("nonzero over non-bool buffer")
	}
	b.TouchData()
	return index.Placeholder(index.I64, shape.Unknown(), nil), nil
}

func (t *tracer) ArgSortRanges(b *Buffer, offsets *index.Index, ascending, stable bool) (*index.Index, error) {
	b.TouchData()
	offsets.TouchData()
	return index.Placeholder(index.I64, b.Len(), nil), nil
}

func (t *tracer) ReduceRanges(op ReduceOp, b *Buffer, offsets *index.Index) (*Buffer, error) {
	b.TouchData()
	offsets.TouchData()
	outLen := shape.Unknown()
	if n, ok := offsets.Len().Known(); ok && n > 0 {
		outLen = shape.Of(n - 1)
	}
	return Placeholder(reduceDType(op, b.dt), outLen, b.onData, b.onShape), nil
}
