package layout

import (
	"fmt"
	"slices"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Primitive is the leaf kind: a contiguous buffer of one numeric or bool
// dtype. A non-empty inner shape makes every row a rectangular block of
// stride product(inner) elements.
type Primitive struct {
	bk     backend.Backend
	data   *backend.Buffer
	inner  []int64
	length shape.Length
	params Parameters
}

// NewPrimitive takes ownership of data. Inner dimensions must be
// positive and the buffer must divide evenly into rows.
func NewPrimitive(bk backend.Backend, data *backend.Buffer, inner []int64, params Parameters) (*Primitive, error) {
	stride := int64(1)
	for _, d := range inner {
		if d <= 0 {
			return nil, fmt.Errorf("%w: inner dimension %d in NumpyArray", ErrInvalid, d)
		}
		stride *= d
	}
	if 1+len(inner) > MaxDepth {
		return nil, fmt.Errorf("%w: NumpyArray with %d dimensions", ErrDepthLimit, 1+len(inner))
	}
	length := shape.Unknown()
	if n, ok := data.Len().Known(); ok {
		if n%stride != 0 {
			return nil, fmt.Errorf("%w: buffer of %d elements does not divide into rows of %d", ErrInvalid, n, stride)
		}
		length = shape.Of(n / stride)
	}
	return &Primitive{
		bk:     bk,
		data:   data,
		inner:  slices.Clone(inner),
		length: length,
		params: params,
	}, nil
}

func (*Primitive) contentNode() {}

func (p *Primitive) Backend() backend.Backend { return p.bk }
func (p *Primitive) Length() shape.Length     { return p.length }
func (p *Primitive) Parameters() Parameters   { return p.params }
func (p *Primitive) Fields() []string         { return nil }

func (p *Primitive) DType() dtype.DType    { return p.data.DType() }
func (p *Primitive) Data() *backend.Buffer { return p.data }

// InnerShape is the fixed shape of each row. Callers must not mutate it.
func (p *Primitive) InnerShape() []int64 { return p.inner }

func (p *Primitive) innerStride() int64 {
	s := int64(1)
	for _, d := range p.inner {
		s *= d
	}
	return s
}

func (p *Primitive) WithParameters(params Parameters) Content {
	out := *p
	out.params = params
	return &out
}

func (p *Primitive) Form() form.Form {
	return &form.PrimitiveForm{Primitive: p.DType(), InnerShape: p.inner, Params: p.params}
}

func (p *Primitive) minmaxDepth() (int, int) {
	d := 1 + len(p.inner)
	return d, d
}

// toRegular rewrites the inner shape as nested RegularArray nodes over a
// one-dimensional leaf.
func (p *Primitive) toRegular() (Content, error) {
	if len(p.inner) == 0 {
		return p, nil
	}
	var out Content
	flat, err := NewPrimitive(p.bk, p.data, nil, nil)
	if err != nil {
		return nil, err
	}
	out = flat
	for i := len(p.inner) - 1; i >= 0; i-- {
		var params Parameters
		if i == 0 {
			params = p.params
		}
		out, err = NewRegular(out, p.inner[i], 0, params)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Primitive) GetItemAt(at int64) (any, error) {
	if n, known := p.length.Known(); known {
		var err error
		if at, err = normAt(at, n, "NumpyArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if len(p.inner) > 0 {
		stride := p.innerStride()
		return NewPrimitive(p.bk, p.data.Slice(at*stride, (at+1)*stride), p.inner[1:], nil)
	}
	if !p.data.KnownData() {
		p.data.TouchData()
		return UnknownValue{Type: p.DType().String()}, nil
	}
	return p.data.Value(at), nil
}

func (p *Primitive) GetItemRange(start, stop int64) (Content, error) {
	n, known := p.length.Known()
	if !known {
		p.TouchShape(false)
		return p, nil
	}
	start, stop = clampRange(start, stop, n)
	stride := p.innerStride()
	return NewPrimitive(p.bk, p.data.Slice(start*stride, stop*stride), p.inner, p.params)
}

func (p *Primitive) GetItemField(name string) (Content, error) {
	return nil, fmt.Errorf("%w: cannot slice NumpyArray by field name %q", ErrStructuralType, name)
}

func (p *Primitive) GetItemFields(names []string) (Content, error) {
	return nil, fmt.Errorf("%w: cannot slice NumpyArray by field names", ErrStructuralType)
}

func (p *Primitive) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, p.length, "NumpyArray")
	if err != nil {
		return nil, err
	}
	if stride := p.innerStride(); stride > 1 {
		var flat *index.Index
		if idx2.KnownData() {
			pos := idx2.Data()
			out := make([]int64, int64(len(pos))*stride)
			for i, v := range pos {
				for k := int64(0); k < stride; k++ {
					out[int64(i)*stride+k] = v*stride + k
				}
			}
			flat = index.Wrap(index.I64, out)
		} else {
			idx2.TouchData()
			flat = index.Placeholder(index.I64, idx2.Len().Mul(shape.Of(stride)), nil)
		}
		buf, err := p.bk.Gather(p.data, flat)
		if err != nil {
			return nil, err
		}
		return NewPrimitive(p.bk, buf, p.inner, p.params)
	}
	buf, err := p.bk.Gather(p.data, idx2)
	if err != nil {
		return nil, err
	}
	return NewPrimitive(p.bk, buf, nil, p.params)
}

func (p *Primitive) Mergeable(other Content, mergebool bool) bool {
	if handled, ok := mergeableGeneric(p, other, mergebool); handled {
		return ok
	}
	o, isP := other.(*Primitive)
	if !isP {
		return false
	}
	if !typeParamsEqual(p.params, o.params) {
		return false
	}
	if !slices.Equal(p.inner, o.inner) {
		return false
	}
	if (p.DType() == dtype.Bool) != (o.DType() == dtype.Bool) {
		return mergebool
	}
	return true
}

func (p *Primitive) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return p, nil
	}
	head, tail, err := mergingStrategy(p, others)
	if err != nil {
		return nil, err
	}
	dt := p.DType()
	params := p.params
	bufs := []*backend.Buffer{p.data}
	for _, c := range head[1:] {
		switch o := c.(type) {
		case *Empty:
			continue
		case *Primitive:
			if !slices.Equal(p.inner, o.inner) {
				return nil, fmt.Errorf("%w: NumpyArray inner shapes %v and %v", ErrMergeIncompatibility, p.inner, o.inner)
			}
			var ok bool
			if dt, ok = dtype.Promote(dt, o.DType()); !ok {
				return nil, fmt.Errorf("%w: cannot unify %s with %s", ErrMergeIncompatibility, p.DType(), o.DType())
			}
			params = paramsIntersect(params, o.params)
			bufs = append(bufs, o.data)
		default:
			return nil, fmt.Errorf("%w: cannot merge NumpyArray with %s", ErrMergeIncompatibility, ClassOf(c))
		}
	}
	for i, b := range bufs {
		conv, err := p.bk.Astype(b, dt)
		if err != nil {
			return nil, err
		}
		bufs[i] = conv
	}
	buf, err := p.bk.Concat(bufs...)
	if err != nil {
		return nil, err
	}
	merged, err := NewPrimitive(p.bk, buf, p.inner, params)
	if err != nil {
		return nil, err
	}
	return mergeTail(merged, tail)
}

func (p *Primitive) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return p, nil
	case SliceField:
		return nil, fmt.Errorf("%w: cannot slice NumpyArray by field name %q", ErrStructuralType, string(h))
	case SliceFields:
		return nil, fmt.Errorf("%w: cannot slice NumpyArray by field names", ErrStructuralType)
	case SliceNewAxis:
		return nextNewAxis(p, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(p, tail, advanced)
	default:
		if len(p.inner) > 0 {
			reg, err := p.toRegular()
			if err != nil {
				return nil, err
			}
			return reg.getItemNext(head, tail, advanced)
		}
		return nil, fmt.Errorf("%w: too many dimensions in slice", ErrStructuralType)
	}
}

func (p *Primitive) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
	}
	return nil, fmt.Errorf("%w: too many jagged dimensions in slice", ErrStructuralType)
}

func (p *Primitive) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(p)
	}
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.localIndex(axis, depth)
	}
	return nil, errAxisDepth(axis, depth)
}

func (p *Primitive) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(p, n, replacement, fields, params)
	}
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.combinations(n, replacement, fields, params, axis, depth)
	}
	return nil, errAxisDepth(axis, depth)
}

func (p *Primitive) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(p, target, clip)
	}
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.padNone(target, axis, depth, clip)
	}
	return nil, errAxisDepth(axis, depth)
}

func (p *Primitive) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	if axis == depth-1 {
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	}
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, nil, err
		}
		return reg.offsetsAndFlattened(axis, depth)
	}
	return nil, nil, errAxisDepth(axis, depth)
}

func (p *Primitive) removeStructure() ([]Content, error) {
	if len(p.inner) == 0 {
		return []Content{p}, nil
	}
	flat, err := NewPrimitive(p.bk, p.data, nil, p.params)
	if err != nil {
		return nil, err
	}
	return []Content{flat}, nil
}

func (p *Primitive) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.sortNext(axis, depth, ascending, stable)
	}
	if axis != depth-1 {
		return nil, errAxisDepth(axis, depth)
	}
	return sortRuns(p.bk, p, p.wholeRun(), ascending, stable)
}

func (p *Primitive) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.argsortNext(axis, depth, ascending, stable)
	}
	if axis != depth-1 {
		return nil, errAxisDepth(axis, depth)
	}
	return argsortRuns(p.bk, p, p.wholeRun(), ascending, stable)
}

func (p *Primitive) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	if len(p.inner) > 0 {
		reg, err := p.toRegular()
		if err != nil {
			return nil, err
		}
		return reg.reduceNext(op, axis, depth)
	}
	if axis != depth-1 {
		return nil, errAxisDepth(axis, depth)
	}
	return reduceRuns(p.bk, op, p, p.wholeRun())
}

// wholeRun treats the entire buffer as one sort or reduce window.
func (p *Primitive) wholeRun() *index.Index {
	if n, ok := p.length.Known(); ok {
		return index.Wrap(index.I64, []int64{0, n})
	}
	return index.Placeholder(index.I64, shape.Of(2), nil)
}

func (p *Primitive) ToPacked() (Content, error) { return p, nil }

func (p *Primitive) ToList() (any, error) { return toListGeneric(p) }

func (p *Primitive) Validity() error { return validityWalk(p, "layout") }

func (p *Primitive) TouchData(recursive bool)  { p.data.TouchData() }
func (p *Primitive) TouchShape(recursive bool) { p.data.TouchShape() }
