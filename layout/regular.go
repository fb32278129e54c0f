package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Regular is a list kind whose rows all have the same width. Row i spans
// content positions [i*size, (i+1)*size).
type Regular struct {
	bk      backend.Backend
	content Content
	size    int64
	length  shape.Length
	params  Parameters
	mn, mx  int
}

// NewRegular takes the row width and, for width zero, the row count that
// the content cannot determine on its own.
func NewRegular(content Content, size, zerosLength int64, params Parameters) (*Regular, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: RegularArray size %d", ErrInvalid, size)
	}
	if zerosLength < 0 {
		return nil, fmt.Errorf("%w: RegularArray length %d", ErrInvalid, zerosLength)
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	length := shape.Of(zerosLength)
	if size > 0 {
		length = shape.Unknown()
		if n, ok := content.Length().Known(); ok {
			length = shape.Of(n / size)
		}
	}
	return &Regular{
		bk:      content.Backend(),
		content: content,
		size:    size,
		length:  length,
		params:  params,
		mn:      mn + 1,
		mx:      mx + 1,
	}, nil
}

func (*Regular) contentNode() {}

func (r *Regular) Backend() backend.Backend { return r.bk }
func (r *Regular) Length() shape.Length     { return r.length }
func (r *Regular) Parameters() Parameters   { return r.params }
func (r *Regular) Fields() []string         { return r.content.Fields() }

func (r *Regular) Size() int64      { return r.size }
func (r *Regular) Content() Content { return r.content }

func (r *Regular) WithParameters(params Parameters) Content {
	out := *r
	out.params = params
	return &out
}

func (r *Regular) Form() form.Form {
	return &form.RegularForm{Content: r.content.Form(), Size: r.size, Params: r.params}
}

func (r *Regular) minmaxDepth() (int, int) { return r.mn, r.mx }

func (r *Regular) GetItemAt(at int64) (any, error) {
	if n, known := r.length.Known(); known {
		var err error
		if at, err = normAt(at, n, "RegularArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	return r.content.GetItemRange(at*r.size, (at+1)*r.size)
}

func (r *Regular) GetItemRange(start, stop int64) (Content, error) {
	n, known := r.length.Known()
	if !known {
		r.TouchShape(false)
		return r, nil
	}
	start, stop = clampRange(start, stop, n)
	sub, err := r.content.GetItemRange(start*r.size, stop*r.size)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, stop-start, r.params)
}

func (r *Regular) GetItemField(name string) (Content, error) {
	sub, err := r.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, r.length.Or(0), nil)
}

func (r *Regular) GetItemFields(names []string) (Content, error) {
	sub, err := r.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, r.length.Or(0), nil)
}

func (r *Regular) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, r.length, "RegularArray")
	if err != nil {
		return nil, err
	}
	var next *index.Index
	if idx2.KnownData() {
		pos := idx2.Data()
		out := make([]int64, int64(len(pos))*r.size)
		for i, v := range pos {
			for j := int64(0); j < r.size; j++ {
				out[int64(i)*r.size+j] = v*r.size + j
			}
		}
		next = index.Wrap(index.I64, out)
	} else {
		idx2.TouchData()
		next = index.Placeholder(index.I64, idx2.Len().Mul(shape.Of(r.size)), nil)
	}
	sub, err := r.content.Carry(next, lazy)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, idx2.Len().Or(0), r.params)
}

// toListOffset64 spells the uniform row width out as explicit offsets.
func (r *Regular) toListOffset64(startAtZero bool) (*ListOffset, error) {
	var offsets *index.Index
	if n, ok := r.length.Known(); ok {
		data := make([]int64, n+1)
		for i := int64(0); i <= n; i++ {
			data[i] = i * r.size
		}
		offsets = index.Wrap(index.I64, data)
	} else {
		offsets = index.Placeholder(index.I64, r.length.Add(shape.Of(1)), nil)
	}
	sub, err := trimmed(r.content, r.length.Mul(shape.Of(r.size)))
	if err != nil {
		return nil, err
	}
	return NewListOffset(offsets, sub, r.params)
}

func (r *Regular) Mergeable(other Content, mergebool bool) bool {
	if handled, ok := mergeableGeneric(r, other, mergebool); handled {
		return ok
	}
	if !typeParamsEqual(r.params, other.Parameters()) {
		return false
	}
	switch o := other.(type) {
	case *Regular:
		return r.content.Mergeable(o.content, mergebool)
	case *List:
		return r.content.Mergeable(o.content, mergebool)
	case *ListOffset:
		return r.content.Mergeable(o.content, mergebool)
	}
	return false
}

func (r *Regular) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return r, nil
	}
	head, tail, err := mergingStrategy(r, others)
	if err != nil {
		return nil, err
	}
	allRegular := true
	for _, c := range head[1:] {
		switch o := c.(type) {
		case *Empty:
		case *Regular:
			if o.size != r.size {
				allRegular = false
			}
		default:
			allRegular = false
		}
	}
	if !allRegular {
		lo, err := r.toListOffset64(true)
		if err != nil {
			return nil, err
		}
		out, err := lo.mergeMany(head[1:])
		if err != nil {
			return nil, err
		}
		return mergeTail(out, tail)
	}
	params := r.params
	total := shape.Of(0)
	var contents []Content
	for i, c := range head {
		o, isReg := c.(*Regular)
		if !isReg {
			continue
		}
		if i > 0 {
			params = paramsIntersect(params, o.params)
		}
		sub, err := trimmed(o.content, o.length.Mul(shape.Of(o.size)))
		if err != nil {
			return nil, err
		}
		contents = append(contents, sub)
		total = total.Add(o.length)
	}
	merged, err := mergeManyNorm(contents)
	if err != nil {
		return nil, err
	}
	out, err := NewRegular(merged, r.size, total.Or(0), params)
	if err != nil {
		return nil, err
	}
	return mergeTail(out, tail)
}

func (r *Regular) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return r, nil
	case SliceField:
		return nextField(r, string(h), tail, advanced)
	case SliceFields:
		return nextFields(r, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(r, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(r, tail, advanced)
	case SliceAt:
		return r.nextAt(int64(h), tail, advanced)
	case SliceRange:
		return r.nextRange(h, tail, advanced)
	case SliceArray:
		return r.nextArray(h, tail, advanced)
	case SliceContent:
		switch inner := h.Content.(type) {
		case *ListOffset:
			return r.nextJaggedHead(inner, tail, advanced)
		case *IndexedOption:
			return nextMissing(r, inner, tail, advanced)
		default:
			return nil, fmt.Errorf("%w: slice content must be offset lists or missing positions, not %s", ErrStructuralType, ClassOf(h.Content))
		}
	}
	return nil, fmt.Errorf("%w: unrecognized slice item %T", ErrStructuralType, head)
}

func (r *Regular) nextAt(at int64, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	pos := at
	if pos < 0 {
		pos += r.size
	}
	if pos < 0 || pos >= r.size {
		return nil, fmt.Errorf("%w: position %d in RegularArray of size %d", ErrIndexBounds, at, r.size)
	}
	var next *index.Index
	if n, ok := r.length.Known(); ok {
		data := make([]int64, n)
		for i := range data {
			data[i] = int64(i)*r.size + pos
		}
		next = index.Wrap(index.I64, data)
	} else {
		next = index.Placeholder(index.I64, r.length, nil)
	}
	carried, err := r.content.Carry(next, true)
	if err != nil {
		return nil, err
	}
	return carried.getItemNext(head2, rest, advanced)
}

func (r *Regular) nextRange(h SliceRange, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	start, _, step, nextsize, err := h.regularize(r.size)
	if err != nil {
		return nil, err
	}
	nextLen := r.length.Mul(shape.Of(nextsize))
	var next *index.Index
	if n, ok := r.length.Known(); ok {
		data := make([]int64, n*nextsize)
		for i := int64(0); i < n; i++ {
			for j := int64(0); j < nextsize; j++ {
				data[i*nextsize+j] = i*r.size + start + j*step
			}
		}
		next = index.Wrap(index.I64, data)
	} else {
		next = index.Placeholder(index.I64, nextLen, nil)
	}
	carried, err := r.content.Carry(next, true)
	if err != nil {
		return nil, err
	}
	if advanced == nil {
		out, err := carried.getItemNext(head2, rest, nil)
		if err != nil {
			return nil, err
		}
		return NewRegular(out, nextsize, r.length.Or(0), r.params)
	}
	var nextadv *index.Index
	if n, ok := r.length.Known(); ok && advanced.KnownData() {
		adv := advanced.Data()
		data := make([]int64, n*nextsize)
		for i := int64(0); i < n; i++ {
			for j := int64(0); j < nextsize; j++ {
				data[i*nextsize+j] = adv[i]
			}
		}
		nextadv = index.Wrap(index.I64, data)
	} else {
		advanced.TouchData()
		nextadv = index.Placeholder(index.I64, nextLen, nil)
	}
	out, err := carried.getItemNext(head2, rest, nextadv)
	if err != nil {
		return nil, err
	}
	return NewRegular(out, nextsize, r.length.Or(0), r.params)
}

func (r *Regular) nextArray(h SliceArray, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	flat := h.Values
	n, lengthKnown := r.length.Known()
	known := lengthKnown && flat.KnownData()
	if advanced == nil {
		var next, nextadv *index.Index
		var m int64
		if known {
			vals := flat.Data()
			m = int64(len(vals))
			data := make([]int64, n*m)
			adv := make([]int64, n*m)
			for i := int64(0); i < n; i++ {
				for j, v := range vals {
					pos := v
					if pos < 0 {
						pos += r.size
					}
					if pos < 0 || pos >= r.size {
						return nil, fmt.Errorf("%w: position %d in RegularArray of size %d", ErrIndexBounds, v, r.size)
					}
					data[i*m+int64(j)] = i*r.size + pos
					adv[i*m+int64(j)] = int64(j)
				}
			}
			next = index.Wrap(index.I64, data)
			nextadv = index.Wrap(index.I64, adv)
		} else {
			flat.TouchData()
			m = flat.Len().Or(1)
			total := r.length.Mul(flat.Len())
			next = index.Placeholder(index.I64, total, nil)
			nextadv = index.Placeholder(index.I64, total, nil)
		}
		carried, err := r.content.Carry(next, true)
		if err != nil {
			return nil, err
		}
		out, err := carried.getItemNext(head2, rest, nextadv)
		if err != nil {
			return nil, err
		}
		shp := h.Shape
		if shp == nil {
			shp = []int64{m}
		}
		return getItemNextArrayWrap(out, shp, r.length.Or(1))
	}
	var next, nextadv *index.Index
	if known && advanced.KnownData() {
		vals := flat.Data()
		adv := advanced.Data()
		data := make([]int64, n)
		nadv := make([]int64, n)
		for i := int64(0); i < n; i++ {
			pos := vals[adv[i]]
			if pos < 0 {
				pos += r.size
			}
			if pos < 0 || pos >= r.size {
				return nil, fmt.Errorf("%w: position %d in RegularArray of size %d", ErrIndexBounds, vals[adv[i]], r.size)
			}
			data[i] = i*r.size + pos
			nadv[i] = i
		}
		next = index.Wrap(index.I64, data)
		nextadv = index.Wrap(index.I64, nadv)
	} else {
		flat.TouchData()
		advanced.TouchData()
		next = index.Placeholder(index.I64, r.length, nil)
		nextadv = index.Placeholder(index.I64, r.length, nil)
	}
	carried, err := r.content.Carry(next, true)
	if err != nil {
		return nil, err
	}
	return carried.getItemNext(head2, rest, nextadv)
}

func (r *Regular) nextJaggedHead(jagged *ListOffset, tail []SliceItem, advanced *index.Index) (Content, error) {
	if advanced != nil {
		return nil, fmt.Errorf("%w: cannot mix jagged slice with NumPy-style advanced indexing", ErrIncompatibleMode)
	}
	hn := jagged.Length()
	var multistarts, multistops *index.Index
	if n, ok := r.length.Known(); ok && jagged.offsets.KnownData() {
		hl := hn.MustKnown()
		offs := jagged.offsets.Data()
		ms := make([]int64, n*hl)
		mp := make([]int64, n*hl)
		for i := int64(0); i < n; i++ {
			for j := int64(0); j < hl; j++ {
				ms[i*hl+j] = offs[j]
				mp[i*hl+j] = offs[j+1]
			}
		}
		multistarts = index.Wrap(index.I64, ms)
		multistops = index.Wrap(index.I64, mp)
	} else {
		jagged.offsets.TouchData()
		total := hn.Mul(r.length)
		multistarts = index.Placeholder(index.I64, total, nil)
		multistops = index.Placeholder(index.I64, total, nil)
	}
	down, err := r.content.getItemNextJagged(multistarts, multistops, jagged.content, tail)
	if err != nil {
		return nil, err
	}
	return NewRegular(down, hn.Or(1), 1, r.params)
}

func (r *Regular) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	lo, err := r.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (r *Regular) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(r)
	}
	if axis == depth {
		var buf *backend.Buffer
		if n, ok := r.length.Known(); ok && r.bk.KnownData() {
			vals := make([]int64, n*r.size)
			for i := int64(0); i < n; i++ {
				for j := int64(0); j < r.size; j++ {
					vals[i*r.size+j] = j
				}
			}
			buf = backend.Of(vals)
		} else {
			buf = r.bk.Empty(dtype.Int64, r.length.Mul(shape.Of(r.size)))
		}
		prim, err := NewPrimitive(r.bk, buf, nil, nil)
		if err != nil {
			return nil, err
		}
		return NewRegular(prim, r.size, r.length.Or(0), nil)
	}
	sub, err := r.content.localIndex(axis, depth+1)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, r.length.Or(0), nil)
}

func (r *Regular) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(r, n, replacement, fields, params)
	}
	if axis == depth {
		lo, err := r.toListOffset64(true)
		if err != nil {
			return nil, err
		}
		out, err := lo.combinations(n, replacement, fields, params, axis, depth)
		if err != nil {
			return nil, err
		}
		if l2, isLo := out.(*ListOffset); isLo {
			size := combinationCount(r.size, n, replacement)
			return NewRegular(l2.content, size, r.length.Or(0), r.params)
		}
		return out, nil
	}
	sub, err := r.content.combinations(n, replacement, fields, params, axis, depth+1)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, r.length.Or(0), r.params)
}

func (r *Regular) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(r, target, clip)
	}
	if axis == depth {
		if !clip && target < r.size {
			return r, nil
		}
		var idx *index.Index
		if n, ok := r.length.Known(); ok && r.bk.KnownData() {
			data := make([]int64, n*target)
			for i := int64(0); i < n; i++ {
				for j := int64(0); j < target; j++ {
					if j < r.size {
						data[i*target+j] = i*r.size + j
					} else {
						data[i*target+j] = -1
					}
				}
			}
			idx = index.Wrap(index.I64, data)
		} else {
			idx = index.Placeholder(index.I64, r.length.Mul(shape.Of(target)), nil)
		}
		opt, err := SimplifiedIndexedOption(idx, r.content, nil)
		if err != nil {
			return nil, err
		}
		return NewRegular(opt, target, r.length.Or(0), r.params)
	}
	sub, err := r.content.padNone(target, axis, depth+1, clip)
	if err != nil {
		return nil, err
	}
	return NewRegular(sub, r.size, r.length.Or(0), r.params)
}

func (r *Regular) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	if axis == depth-1 {
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	}
	lo, err := r.toListOffset64(true)
	if err != nil {
		return nil, nil, err
	}
	return lo.offsetsAndFlattened(axis, depth)
}

func (r *Regular) removeStructure() ([]Content, error) {
	sub, err := trimmed(r.content, r.length.Mul(shape.Of(r.size)))
	if err != nil {
		return nil, err
	}
	return sub.removeStructure()
}

func (r *Regular) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	lo, err := r.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	out, err := lo.sortNext(axis, depth, ascending, stable)
	if err != nil {
		return nil, err
	}
	if l2, isLo := out.(*ListOffset); isLo {
		return NewRegular(l2.content, r.size, r.length.Or(0), r.params)
	}
	return out, nil
}

func (r *Regular) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	lo, err := r.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	out, err := lo.argsortNext(axis, depth, ascending, stable)
	if err != nil {
		return nil, err
	}
	if l2, isLo := out.(*ListOffset); isLo {
		return NewRegular(l2.content, r.size, r.length.Or(0), r.params)
	}
	return out, nil
}

func (r *Regular) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	lo, err := r.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	out, err := lo.reduceNext(op, axis, depth)
	if err != nil {
		return nil, err
	}
	if l2, isLo := out.(*ListOffset); isLo {
		return NewRegular(l2.content, r.size, r.length.Or(0), r.params)
	}
	return out, nil
}

func (r *Regular) ToPacked() (Content, error) {
	sub, err := trimmed(r.content, r.length.Mul(shape.Of(r.size)))
	if err != nil {
		return nil, err
	}
	packed, err := sub.ToPacked()
	if err != nil {
		return nil, err
	}
	return NewRegular(packed, r.size, r.length.Or(0), r.params)
}

func (r *Regular) ToList() (any, error) { return toListGeneric(r) }

func (r *Regular) Validity() error { return validityWalk(r, "layout") }

func (r *Regular) TouchData(recursive bool) {
	if recursive {
		r.content.TouchData(true)
	}
}

func (r *Regular) TouchShape(recursive bool) {
	if recursive {
		r.content.TouchShape(true)
	}
}
