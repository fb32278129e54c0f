package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Empty is a zero-length array whose element type is not yet known. It
// merges with everything and disappears from concatenations.
type Empty struct {
	bk     backend.Backend
	params Parameters
}

func NewEmpty(bk backend.Backend, params Parameters) *Empty {
	return &Empty{bk: bk, params: params}
}

func (*Empty) contentNode() {}

func (e *Empty) Backend() backend.Backend { return e.bk }
func (e *Empty) Length() shape.Length     { return shape.Of(0) }
func (e *Empty) Parameters() Parameters   { return e.params }
func (e *Empty) Fields() []string         { return nil }

func (e *Empty) WithParameters(p Parameters) Content {
	out := *e
	out.params = p
	return &out
}

func (e *Empty) Form() form.Form {
	return &form.EmptyForm{Params: e.params}
}

func (e *Empty) minmaxDepth() (int, int) { return 1, 1 }

func (e *Empty) GetItemAt(at int64) (any, error) {
	return nil, fmt.Errorf("%w: position %d in EmptyArray of length 0", ErrIndexBounds, at)
}

func (e *Empty) GetItemRange(start, stop int64) (Content, error) { return e, nil }

func (e *Empty) GetItemField(name string) (Content, error) {
	return nil, fmt.Errorf("%w: cannot slice EmptyArray by field name %q", ErrStructuralType, name)
}

func (e *Empty) GetItemFields(names []string) (Content, error) {
	return nil, fmt.Errorf("%w: cannot slice EmptyArray by field names", ErrStructuralType)
}

func (e *Empty) Carry(idx *index.Index, lazy bool) (Content, error) {
	if !idx.KnownData() || idx.Len().Or(0) == 0 {
		return e, nil
	}
	return nil, fmt.Errorf("%w: carry positions into EmptyArray of length 0", ErrIndexBounds)
}

func (e *Empty) Mergeable(other Content, mergebool bool) bool { return true }

func (e *Empty) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return e, nil
	}
	return others[0].mergeMany(others[1:])
}

func (e *Empty) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return e, nil
	case SliceField:
		return nextField(e, string(h), tail, advanced)
	case SliceFields:
		return nextFields(e, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(e, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(e, tail, advanced)
	default:
		return nil, fmt.Errorf("%w: array is empty", ErrIndexBounds)
	}
}

func (e *Empty) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	return nil, fmt.Errorf("%w: array is empty", ErrIndexBounds)
}

func (e *Empty) localIndex(axis, depth int) (Content, error) {
	return NewPrimitive(e.bk, e.bk.Empty(dtype.Int64, shape.Of(0)), nil, nil)
}

func (e *Empty) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(e, n, replacement, fields, params)
	}
	return NewEmpty(e.bk, nil), nil
}

func (e *Empty) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	p, err := e.toFloat64()
	if err != nil {
		return nil, err
	}
	return p.padNone(target, axis, depth, clip)
}

func (e *Empty) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	if axis == depth-1 {
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	}
	return nil, NewEmpty(e.bk, nil), nil
}

func (e *Empty) removeStructure() ([]Content, error) { return nil, nil }

func (e *Empty) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	return e, nil
}

func (e *Empty) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	return NewPrimitive(e.bk, e.bk.Empty(dtype.Int64, shape.Of(0)), nil, nil)
}

func (e *Empty) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	p, err := e.toFloat64()
	if err != nil {
		return nil, err
	}
	return p.reduceNext(op, axis, depth)
}

// toFloat64 is the conventional concrete stand-in for operations that
// need a dtype.
func (e *Empty) toFloat64() (*Primitive, error) {
	return NewPrimitive(e.bk, e.bk.Empty(dtype.Float64, shape.Of(0)), nil, e.params)
}

func (e *Empty) ToPacked() (Content, error) { return e, nil }

func (e *Empty) ToList() (any, error) { return []any{}, nil }

func (e *Empty) Validity() error { return nil }

func (e *Empty) TouchData(recursive bool)  {}
func (e *Empty) TouchShape(recursive bool) {}
