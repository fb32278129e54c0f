package backend

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

type cpu struct{}

var theCPU = &cpu{}

// CPU is the concrete-data regime.
func CPU() Backend { return theCPU }

func (*cpu) Name() string    { return "cpu" }
func (*cpu) KnownData() bool { return true }

func (*cpu) FromBytes(dt dtype.DType, raw []byte, count int64, order dtype.ByteOrder) (*Buffer, error) {
	sz := int64(dt.Size())
	if int64(len(raw)) < count*sz {
		return nil, fmt.Errorf("raw buffer holds %d bytes, %d %s elements need %d",
			len(raw), count, dt, count*sz)
	}
	raw = raw[:count*sz]
	if order == dtype.NativeOrder() || sz == 1 {
		return Wrap(dt, append([]byte(nil), raw...), count)
	}
	swapped := make([]byte, len(raw))
	for i := int64(0); i < count; i++ {
		for j := int64(0); j < sz; j++ {
			swapped[i*sz+j] = raw[i*sz+(sz-1-j)]
		}
	}
	return Wrap(dt, swapped, count)
}

func (*cpu) ToBytes(b *Buffer, order dtype.ByteOrder) ([]byte, error) {
	sz := int64(b.dt.Size())
	out := append([]byte(nil), b.raw...)
	if order == dtype.NativeOrder() || sz == 1 {
		return out, nil
	}
	n := b.length.MustKnown()
	for i := int64(0); i < n; i++ {
		for j, k := i*sz, (i+1)*sz-1; j < k; j, k = j+1, k-1 {
			out[j], out[k] = out[k], out[j]
		}
	}
	return out, nil
}

func (*cpu) Empty(dt dtype.DType, length shape.Length) *Buffer {
	n := length.MustKnown()
	return &Buffer{dt: dt, raw: make([]byte, n*int64(dt.Size())), length: length}
}

func (*cpu) Gather(b *Buffer, idx *index.Index) (*Buffer, error) {
	n := b.length.MustKnown()
	sz := int64(b.dt.Size())
	pos := idx.Data()
	out := make([]byte, int64(len(pos))*sz)
	for i, p := range pos {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("gather position %d out of range [0, %d)", p, n)
		}
		copy(out[int64(i)*sz:], b.raw[p*sz:(p+1)*sz])
	}
	return Wrap(b.dt, out, int64(len(pos)))
}

func (*cpu) Astype(b *Buffer, dt dtype.DType) (*Buffer, error) {
	if b.dt == dt {
		return b, nil
	}
	n := b.length.MustKnown()
	sz := int64(dt.Size())
	out := make([]byte, n*sz)
	for i := int64(0); i < n; i++ {
		dst := out[i*sz:]
		switch {
		case dt == dtype.Bool:
			var nz bool
			if b.dt.IsFloat() {
				nz = b.Float(i) != 0
			} else {
				nz = b.Int(i) != 0
			}
			if nz {
				dst[0] = 1
			}
		case dt.IsFloat():
			f := b.Float(i)
			if dt == dtype.Float32 {
				putElement(dst, dt, float32(f))
			} else {
				putElement(dst, dt, f)
			}
		default:
			var v int64
			if b.dt.IsFloat() {
				v = int64(b.Float(i))
			} else {
				v = b.Int(i)
			}
			putInt(dst, dt, v)
		}
	}
	return Wrap(dt, out, n)
}

func putInt(raw []byte, dt dtype.DType, v int64) {
	ne := binary.NativeEndian
	switch dt {
	case dtype.Int8, dtype.UInt8:
		raw[0] = byte(v)
	case dtype.Int16, dtype.UInt16:
		ne.PutUint16(raw, uint16(v))
	case dtype.Int32, dtype.UInt32:
		ne.PutUint32(raw, uint32(v))
	case dtype.Int64, dtype.UInt64:
		ne.PutUint64(raw, uint64(v))
	}
}

func (*cpu) Concat(bs ...*Buffer) (*Buffer, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("concat of no buffers")
	}
	dt := bs[0].dt
	var total int64
	for _, b := range bs {
		if b.dt != dt {
			return nil, fmt.Errorf("concat of %s buffer with %s", dt, b.dt)
		}
		total += b.length.MustKnown()
	}
	out := make([]byte, 0, total*int64(dt.Size()))
	for _, b := range bs {
		out = append(out, b.raw...)
	}
	return Wrap(dt, out, total)
}

func (*cpu) Nonzero(b *Buffer) (*index.Index, error) {
	if b.dt != dtype.Bool {
		return nil, fmt.Errorf("nonzero over %s buffer, want bool", b.dt)
	}
	var pos []int64
	for i, v := range b.raw {
		if v != 0 {
			pos = append(pos, int64(i))
		}
	}
	return index.Wrap(index.I64, pos), nil
}

func (*cpu) ArgSortRanges(b *Buffer, offsets *index.Index, ascending, stable bool) (*index.Index, error) {
	offs := offsets.Data()
	if len(offs) == 0 {
		return nil, fmt.Errorf("argsort with empty offsets")
	}
	out := make([]int64, 0, offs[len(offs)-1]-offs[0])
	for r := 0; r+1 < len(offs); r++ {
		start, stop := offs[r], offs[r+1]
		run := make([]int64, stop-start)
		for i := range run {
			run[i] = start + int64(i)
		}
		less := func(i, j int) bool {
			if ascending {
				return b.lessAt(run[i], run[j])
			}
			return b.lessAt(run[j], run[i])
		}
		if stable {
			sort.SliceStable(run, less)
		} else {
			sort.Slice(run, less)
		}
		out = append(out, run...)
	}
	return index.Wrap(index.I64, out), nil
}

func (b *Buffer) lessAt(i, j int64) bool {
	switch {
	case b.dt == dtype.Bool:
		return !b.Bool(i) && b.Bool(j)
	case b.dt == dtype.UInt64:
		ne := binary.NativeEndian
		return ne.Uint64(b.raw[8*i:]) < ne.Uint64(b.raw[8*j:])
	case b.dt.IsInteger():
		return b.Int(i) < b.Int(j)
	default:
		return b.Float(i) < b.Float(j)
	}
}

func (c *cpu) ReduceRanges(op ReduceOp, b *Buffer, offsets *index.Index) (*Buffer, error) {
	offs := offsets.Data()
	if len(offs) == 0 {
		return nil, fmt.Errorf("reduce with empty offsets")
	}
	outDT := reduceDType(op, b.dt)
	nOut := int64(len(offs) - 1)
	out := c.Empty(outDT, shape.Of(nOut))
	for r := int64(0); r < nOut; r++ {
		start, stop := offs[r], offs[r+1]
		reduceRun(op, b, out, r, start, stop)
	}
	return out, nil
}

func reduceRun(op ReduceOp, b, out *Buffer, at, start, stop int64) {
	sz := int64(out.dt.Size())
	dst := out.raw[at*sz:]
	ne := binary.NativeEndian
	switch op {
	case ReduceCount:
		ne.PutUint64(dst, uint64(stop-start))
	case ReduceAny, ReduceAll:
		acc := op == ReduceAll
		for i := start; i < stop; i++ {
			truthy := b.Float(i) != 0
			if op == ReduceAny {
				acc = acc || truthy
			} else {
				acc = acc && truthy
			}
		}
		if acc {
			dst[0] = 1
		}
	case ReduceSum:
		switch out.dt {
		case dtype.UInt64:
			var acc uint64
			for i := start; i < stop; i++ {
				if b.dt == dtype.UInt64 {
					acc += ne.Uint64(b.raw[8*i:])
				} else {
					acc += uint64(b.Int(i))
				}
			}
			ne.PutUint64(dst, acc)
		case dtype.Int64:
			var acc int64
			for i := start; i < stop; i++ {
				acc += b.Int(i)
			}
			ne.PutUint64(dst, uint64(acc))
		case dtype.Float32:
			var acc float32
			for i := start; i < stop; i++ {
				acc += math.Float32frombits(ne.Uint32(b.raw[4*i:]))
			}
			ne.PutUint32(dst, math.Float32bits(acc))
		default:
			var acc float64
			for i := start; i < stop; i++ {
				acc += b.Float(i)
			}
			ne.PutUint64(dst, math.Float64bits(acc))
		}
	case ReduceMin, ReduceMax:
		if start >= stop {
			return
		}
		best := start
		for i := start + 1; i < stop; i++ {
			better := b.lessAt(i, best)
			if op == ReduceMax {
				better = b.lessAt(best, i)
			}
			if better {
				best = i
			}
		}
		copy(dst[:sz], b.raw[best*sz:(best+1)*sz])
	}
}
