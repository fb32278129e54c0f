package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// ListOffset is the packed ragged kind: row i spans content positions
// [offsets[i], offsets[i+1]). One index of length+1 monotonic offsets
// holds every row boundary.
type ListOffset struct {
	bk      backend.Backend
	offsets *index.Index
	content Content
	params  Parameters
	mn, mx  int
}

// NewListOffset takes ownership of offsets, which needs at least one
// entry.
func NewListOffset(offsets *index.Index, content Content, params Parameters) (*ListOffset, error) {
	if n, ok := offsets.Len().Known(); ok && n < 1 {
		return nil, fmt.Errorf("%w: ListOffsetArray needs at least one offset", ErrInvalid)
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &ListOffset{
		bk:      content.Backend(),
		offsets: offsets,
		content: content,
		params:  params,
		mn:      mn + 1,
		mx:      mx + 1,
	}, nil
}

func (*ListOffset) contentNode() {}

func (lo *ListOffset) Backend() backend.Backend { return lo.bk }

func (lo *ListOffset) Length() shape.Length {
	if n, ok := lo.offsets.Len().Known(); ok {
		return shape.Of(n - 1)
	}
	return shape.Unknown()
}

func (lo *ListOffset) Parameters() Parameters { return lo.params }
func (lo *ListOffset) Fields() []string       { return lo.content.Fields() }

func (lo *ListOffset) Offsets() *index.Index { return lo.offsets }
func (lo *ListOffset) Content() Content      { return lo.content }

func (lo *ListOffset) WithParameters(params Parameters) Content {
	out := *lo
	out.params = params
	return &out
}

func (lo *ListOffset) Form() form.Form {
	return &form.ListOffsetForm{
		Offsets: lo.offsets.Kind(),
		Content: lo.content.Form(),
		Params:  lo.params,
	}
}

func (lo *ListOffset) minmaxDepth() (int, int) { return lo.mn, lo.mx }

// asList views the same rows through starts and stops.
func (lo *ListOffset) asList() (*List, error) {
	var starts, stops *index.Index
	if n, ok := lo.Length().Known(); ok && lo.offsets.KnownData() {
		starts = lo.offsets.Slice(0, n)
		stops = lo.offsets.Slice(1, n+1)
	} else {
		lo.offsets.TouchData()
		starts = index.Placeholder(index.I64, lo.Length(), nil)
		stops = index.Placeholder(index.I64, lo.Length(), nil)
	}
	return NewList(starts, stops, lo.content, lo.params)
}

// toListOffset64 shifts the offsets to start at zero when asked,
// trimming the content to the rows the offsets reach.
func (lo *ListOffset) toListOffset64(startAtZero bool) (*ListOffset, error) {
	if !startAtZero {
		return lo, nil
	}
	if !lo.offsets.KnownData() {
		lo.offsets.TouchData()
		offsets := index.Placeholder(index.I64, lo.offsets.Len(), nil)
		carried, err := lo.content.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
		if err != nil {
			return nil, err
		}
		return NewListOffset(offsets, carried, lo.params)
	}
	n := mustLen(lo)
	base := lo.offsets.At(0)
	if base == 0 {
		return lo, nil
	}
	data := make([]int64, n+1)
	for i := int64(0); i <= n; i++ {
		data[i] = lo.offsets.At(i) - base
	}
	sub, err := lo.content.GetItemRange(base, lo.offsets.At(n))
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, data), sub, lo.params)
}

func (lo *ListOffset) GetItemAt(at int64) (any, error) {
	if n, known := lo.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "ListOffsetArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !lo.offsets.KnownData() {
		lo.offsets.TouchData()
		return lo.content, nil
	}
	start, stop := lo.offsets.At(at), lo.offsets.At(at+1)
	if stop < start {
		return nil, fmt.Errorf("%w: offsets[%d] > offsets[%d] in ListOffsetArray", ErrInvalid, at, at+1)
	}
	return lo.content.GetItemRange(start, stop)
}

func (lo *ListOffset) GetItemRange(start, stop int64) (Content, error) {
	n, known := lo.Length().Known()
	if !known {
		lo.TouchShape(false)
		return lo, nil
	}
	start, stop = clampRange(start, stop, n)
	return NewListOffset(lo.offsets.Slice(start, stop+1), lo.content, lo.params)
}

func (lo *ListOffset) GetItemField(name string) (Content, error) {
	sub, err := lo.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewListOffset(lo.offsets, sub, nil)
}

func (lo *ListOffset) GetItemFields(names []string) (Content, error) {
	sub, err := lo.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewListOffset(lo.offsets, sub, nil)
}

func (lo *ListOffset) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, lo.Length(), "ListOffsetArray")
	if err != nil {
		return nil, err
	}
	var ns, np *index.Index
	if idx2.KnownData() && lo.offsets.KnownData() {
		pos := idx2.Data()
		s := make([]int64, len(pos))
		p := make([]int64, len(pos))
		for i, v := range pos {
			s[i] = lo.offsets.At(v)
			p[i] = lo.offsets.At(v + 1)
		}
		ns = index.Wrap(index.I64, s)
		np = index.Wrap(index.I64, p)
	} else {
		idx2.TouchData()
		lo.offsets.TouchData()
		ns = index.Placeholder(index.I64, idx2.Len(), nil)
		np = index.Placeholder(index.I64, idx2.Len(), nil)
	}
	return NewList(ns, np, lo.content, lo.params)
}

func (lo *ListOffset) Mergeable(other Content, mergebool bool) bool {
	if handled, ok := mergeableGeneric(lo, other, mergebool); handled {
		return ok
	}
	if !typeParamsEqual(lo.params, other.Parameters()) {
		return false
	}
	switch o := other.(type) {
	case *Regular:
		return lo.content.Mergeable(o.content, mergebool)
	case *List:
		return lo.content.Mergeable(o.content, mergebool)
	case *ListOffset:
		return lo.content.Mergeable(o.content, mergebool)
	}
	return false
}

func (lo *ListOffset) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return lo, nil
	}
	ll, err := lo.asList()
	if err != nil {
		return nil, err
	}
	return ll.mergeMany(others)
}

func (lo *ListOffset) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return lo, nil
	case SliceField:
		return nextField(lo, string(h), tail, advanced)
	case SliceFields:
		return nextFields(lo, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(lo, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(lo, tail, advanced)
	default:
		ll, err := lo.asList()
		if err != nil {
			return nil, err
		}
		return ll.getItemNext(head, tail, advanced)
	}
}

func (lo *ListOffset) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	ll, err := lo.asList()
	if err != nil {
		return nil, err
	}
	return ll.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (lo *ListOffset) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(lo)
	}
	if axis == depth {
		if !lo.offsets.KnownData() {
			lo.offsets.TouchData()
			prim, err := NewPrimitive(lo.bk, lo.bk.Empty(dtype.Int64, shape.Unknown()), nil, nil)
			if err != nil {
				return nil, err
			}
			return NewListOffset(index.Placeholder(index.I64, lo.offsets.Len(), nil), prim, nil)
		}
		n := mustLen(lo)
		base := lo.offsets.At(0)
		total := lo.offsets.At(n) - base
		vals := make([]int64, total)
		offs := make([]int64, n+1)
		k := 0
		for i := int64(0); i < n; i++ {
			cnt := lo.offsets.At(i+1) - lo.offsets.At(i)
			for j := int64(0); j < cnt; j++ {
				vals[k] = j
				k++
			}
			offs[i+1] = offs[i] + cnt
		}
		prim, err := NewPrimitive(lo.bk, backend.Of(vals), nil, nil)
		if err != nil {
			return nil, err
		}
		return NewListOffset(index.Wrap(index.I64, offs), prim, nil)
	}
	sub, err := lo.content.localIndex(axis, depth+1)
	if err != nil {
		return nil, err
	}
	return NewListOffset(lo.offsets, sub, nil)
}

func (lo *ListOffset) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(lo, n, replacement, fields, params)
	}
	if axis == depth {
		if !lo.offsets.KnownData() {
			lo.offsets.TouchData()
			contents := make([]Content, n)
			for k := range contents {
				carried, err := lo.content.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
				if err != nil {
					return nil, err
				}
				contents[k] = carried
			}
			rec, err := NewRecord(contents, fields, shape.Unknown(), params)
			if err != nil {
				return nil, err
			}
			return NewListOffset(index.Placeholder(index.I64, lo.offsets.Len(), nil), rec, lo.params)
		}
		rows := mustLen(lo)
		offs2 := make([]int64, rows+1)
		for i := int64(0); i < rows; i++ {
			cnt := lo.offsets.At(i+1) - lo.offsets.At(i)
			offs2[i+1] = offs2[i] + combinationCount(cnt, n, replacement)
		}
		total := offs2[rows]
		carries := make([][]int64, n)
		for k := range carries {
			carries[k] = make([]int64, 0, total)
		}
		for i := int64(0); i < rows; i++ {
			start := lo.offsets.At(i)
			cnt := lo.offsets.At(i+1) - start
			emitCombinations(start, cnt, n, replacement, func(tuple []int64) {
				for k, v := range tuple {
					carries[k] = append(carries[k], v)
				}
			})
		}
		contents := make([]Content, n)
		for k := range contents {
			carried, err := lo.content.Carry(index.Wrap(index.I64, carries[k]), true)
			if err != nil {
				return nil, err
			}
			contents[k] = carried
		}
		rec, err := NewRecord(contents, fields, shape.Of(total), params)
		if err != nil {
			return nil, err
		}
		return NewListOffset(index.Wrap(index.I64, offs2), rec, lo.params)
	}
	sub, err := lo.content.combinations(n, replacement, fields, params, axis, depth+1)
	if err != nil {
		return nil, err
	}
	return NewListOffset(lo.offsets, sub, lo.params)
}

func (lo *ListOffset) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(lo, target, clip)
	}
	if axis == depth {
		if !lo.offsets.KnownData() {
			lo.offsets.TouchData()
			n := lo.Length()
			if clip {
				opt, err := SimplifiedIndexedOption(
					index.Placeholder(index.I64, n.Mul(shape.Of(target)), nil), lo.content, nil)
				if err != nil {
					return nil, err
				}
				return NewRegular(opt, target, n.Or(0), lo.params)
			}
			opt, err := SimplifiedIndexedOption(
				index.Placeholder(index.I64, shape.Unknown(), nil), lo.content, nil)
			if err != nil {
				return nil, err
			}
			return NewListOffset(index.Placeholder(index.I64, lo.offsets.Len(), nil), opt, lo.params)
		}
		n := mustLen(lo)
		if clip {
			outindex := make([]int64, n*target)
			for i := int64(0); i < n; i++ {
				cnt := lo.offsets.At(i+1) - lo.offsets.At(i)
				for j := int64(0); j < target; j++ {
					if j < cnt {
						outindex[i*target+j] = lo.offsets.At(i) + j
					} else {
						outindex[i*target+j] = -1
					}
				}
			}
			opt, err := SimplifiedIndexedOption(index.Wrap(index.I64, outindex), lo.content, nil)
			if err != nil {
				return nil, err
			}
			return NewRegular(opt, target, n, lo.params)
		}
		offs2 := make([]int64, n+1)
		var outindex []int64
		for i := int64(0); i < n; i++ {
			cnt := lo.offsets.At(i+1) - lo.offsets.At(i)
			width := cnt
			if target > width {
				width = target
			}
			for j := int64(0); j < cnt; j++ {
				outindex = append(outindex, lo.offsets.At(i)+j)
			}
			for j := cnt; j < target; j++ {
				outindex = append(outindex, -1)
			}
			offs2[i+1] = offs2[i] + width
		}
		opt, err := SimplifiedIndexedOption(index.Wrap(index.I64, outindex), lo.content, nil)
		if err != nil {
			return nil, err
		}
		return NewListOffset(index.Wrap(index.I64, offs2), opt, lo.params)
	}
	sub, err := lo.content.padNone(target, axis, depth+1, clip)
	if err != nil {
		return nil, err
	}
	return NewListOffset(lo.offsets, sub, lo.params)
}

func (lo *ListOffset) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	switch {
	case axis == depth-1:
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	case axis == depth:
		l64, err := lo.toListOffset64(true)
		if err != nil {
			return nil, nil, err
		}
		flat, err := trimmed(l64.content, l64.innerLength())
		if err != nil {
			return nil, nil, err
		}
		return l64.offsets, flat, nil
	default:
		inner, flat, err := lo.content.offsetsAndFlattened(axis, depth+1)
		if err != nil {
			return nil, nil, err
		}
		if inner == nil {
			out, err := NewListOffset(lo.offsets, flat, lo.params)
			return nil, out, err
		}
		var tooffsets *index.Index
		if lo.offsets.KnownData() && inner.KnownData() {
			n := mustLen(lo)
			data := make([]int64, n+1)
			for i := int64(0); i <= n; i++ {
				data[i] = inner.At(lo.offsets.At(i))
			}
			tooffsets = index.Wrap(index.I64, data)
		} else {
			lo.offsets.TouchData()
			inner.TouchData()
			tooffsets = index.Placeholder(index.I64, lo.offsets.Len(), nil)
		}
		out, err := NewListOffset(tooffsets, flat, nil)
		return nil, out, err
	}
}

// innerLength is the content row count the offsets reach.
func (lo *ListOffset) innerLength() shape.Length {
	if n, ok := lo.Length().Known(); ok && lo.offsets.KnownData() {
		return shape.Of(lo.offsets.At(n))
	}
	return shape.Unknown()
}

func (lo *ListOffset) removeStructure() ([]Content, error) {
	l64, err := lo.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	sub, err := trimmed(l64.content, l64.innerLength())
	if err != nil {
		return nil, err
	}
	return sub.removeStructure()
}

func (lo *ListOffset) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	switch {
	case axis == depth-1:
		return nil, fmt.Errorf("%w: cannot sort whole lists", ErrUnsupported)
	case axis == depth:
		l64, err := lo.toListOffset64(true)
		if err != nil {
			return nil, err
		}
		flat, err := trimmed(l64.content, l64.innerLength())
		if err != nil {
			return nil, err
		}
		out, err := sortListTarget(l64.bk, l64.offsets, flat, ascending, stable)
		if err != nil {
			return nil, err
		}
		return NewListOffset(l64.offsets, out, lo.params)
	default:
		sub, err := lo.content.sortNext(axis, depth+1, ascending, stable)
		if err != nil {
			return nil, err
		}
		return NewListOffset(lo.offsets, sub, lo.params)
	}
}

func (lo *ListOffset) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	switch {
	case axis == depth-1:
		return nil, fmt.Errorf("%w: cannot argsort whole lists", ErrUnsupported)
	case axis == depth:
		l64, err := lo.toListOffset64(true)
		if err != nil {
			return nil, err
		}
		flat, err := trimmed(l64.content, l64.innerLength())
		if err != nil {
			return nil, err
		}
		out, err := argsortListTarget(l64.bk, l64.offsets, flat, ascending, stable)
		if err != nil {
			return nil, err
		}
		return NewListOffset(l64.offsets, out, nil)
	default:
		sub, err := lo.content.argsortNext(axis, depth+1, ascending, stable)
		if err != nil {
			return nil, err
		}
		return NewListOffset(lo.offsets, sub, nil)
	}
}

func (lo *ListOffset) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	switch {
	case axis == depth-1:
		return nil, fmt.Errorf("%w: cannot reduce whole lists", ErrUnsupported)
	case axis == depth:
		l64, err := lo.toListOffset64(true)
		if err != nil {
			return nil, err
		}
		flat, err := trimmed(l64.content, l64.innerLength())
		if err != nil {
			return nil, err
		}
		return reduceListTarget(l64.bk, op, l64.offsets, flat)
	default:
		sub, err := lo.content.reduceNext(op, axis, depth+1)
		if err != nil {
			return nil, err
		}
		return NewListOffset(lo.offsets, sub, lo.params)
	}
}

func (lo *ListOffset) ToPacked() (Content, error) {
	l64, err := lo.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	sub, err := trimmed(l64.content, l64.innerLength())
	if err != nil {
		return nil, err
	}
	packed, err := sub.ToPacked()
	if err != nil {
		return nil, err
	}
	return NewListOffset(l64.offsets, packed, lo.params)
}

func (lo *ListOffset) ToList() (any, error) { return toListGeneric(lo) }

func (lo *ListOffset) Validity() error { return validityWalk(lo, "layout") }

func (lo *ListOffset) TouchData(recursive bool) {
	lo.offsets.TouchData()
	if recursive {
		lo.content.TouchData(true)
	}
}

func (lo *ListOffset) TouchShape(recursive bool) {
	lo.offsets.TouchShape()
	if recursive {
		lo.content.TouchShape(true)
	}
}
