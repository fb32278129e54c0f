package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// IndexedOption is Indexed with missing rows: idx[i] < 0 marks row i as
// missing, any other value selects a content row. The content may not
// itself be an indexed or option kind.
type IndexedOption struct {
	bk      backend.Backend
	idx     *index.Index
	content Content
	params  Parameters
	mn, mx  int
}

func NewIndexedOption(idx *index.Index, content Content, params Parameters) (*IndexedOption, error) {
	switch content.(type) {
	case *Indexed, *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return nil, fmt.Errorf("%w: IndexedOptionArray cannot hold %s directly", ErrInvalid, ClassOf(content))
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &IndexedOption{
		bk:      content.Backend(),
		idx:     idx,
		content: content,
		params:  params,
		mn:      mn,
		mx:      mx,
	}, nil
}

func (*IndexedOption) contentNode() {}

func (o *IndexedOption) Backend() backend.Backend { return o.bk }
func (o *IndexedOption) Length() shape.Length     { return o.idx.Len() }
func (o *IndexedOption) Parameters() Parameters   { return o.params }
func (o *IndexedOption) Fields() []string         { return o.content.Fields() }

func (o *IndexedOption) Index() *index.Index { return o.idx }
func (o *IndexedOption) Content() Content    { return o.content }

func (o *IndexedOption) WithParameters(params Parameters) Content {
	out := *o
	out.params = params
	return &out
}

func (o *IndexedOption) Form() form.Form {
	return &form.IndexedOptionForm{Index: o.idx.Kind(), Content: o.content.Form(), Params: o.params}
}

func (o *IndexedOption) minmaxDepth() (int, int) { return o.mn, o.mx }

// nextcarryOutindex splits the index into a carry of the valid content
// positions and a canonical outindex that is -1 where this array is
// missing and counts 0,1,2,... where it is not.
func (o *IndexedOption) nextcarryOutindex() (shape.Length, *index.Index, *index.Index) {
	if o.idx.KnownData() {
		vals := o.idx.Data()
		out := make([]int64, len(vals))
		carry := make([]int64, 0, len(vals))
		k := int64(0)
		for i, v := range vals {
			if v < 0 {
				out[i] = -1
			} else {
				carry = append(carry, v)
				out[i] = k
				k++
			}
		}
		numnull := int64(len(vals)) - k
		return shape.Of(numnull), index.Wrap(index.I64, carry), index.Wrap(index.I64, out)
	}
	o.idx.TouchData()
	return shape.Unknown(),
		index.Placeholder(index.I64, shape.Unknown(), nil),
		index.Placeholder(index.I64, o.idx.Len(), nil)
}

// project drops the missing rows.
func (o *IndexedOption) project() (Content, error) {
	_, nextcarry, _ := o.nextcarryOutindex()
	return o.content.Carry(nextcarry, false)
}

func (o *IndexedOption) GetItemAt(at int64) (any, error) {
	if n, known := o.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "IndexedOptionArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !o.idx.KnownData() {
		o.idx.TouchData()
		return o.content.GetItemAt(0)
	}
	v := o.idx.At(at)
	if v < 0 {
		return nil, nil
	}
	return o.content.GetItemAt(v)
}

func (o *IndexedOption) GetItemRange(start, stop int64) (Content, error) {
	n, known := o.Length().Known()
	if !known {
		o.TouchShape(false)
		return o, nil
	}
	start, stop = clampRange(start, stop, n)
	return NewIndexedOption(o.idx.Slice(start, stop), o.content, o.params)
}

func (o *IndexedOption) GetItemField(name string) (Content, error) {
	sub, err := o.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(o.idx, sub, nil)
}

func (o *IndexedOption) GetItemFields(names []string) (Content, error) {
	sub, err := o.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(o.idx, sub, nil)
}

func (o *IndexedOption) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, o.Length(), "IndexedOptionArray")
	if err != nil {
		return nil, err
	}
	var next *index.Index
	if idx2.KnownData() && o.idx.KnownData() {
		pos := idx2.Data()
		out := make([]int64, len(pos))
		for k, v := range pos {
			out[k] = o.idx.At(v)
		}
		next = index.Wrap(index.I64, out)
	} else {
		idx2.TouchData()
		o.idx.TouchData()
		next = index.Placeholder(index.I64, idx2.Len(), nil)
	}
	return NewIndexedOption(next, o.content, o.params)
}

func (o *IndexedOption) Mergeable(other Content, mergebool bool) bool {
	return o.content.Mergeable(other, mergebool)
}

func (o *IndexedOption) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return o, nil
	}
	head, tail, err := mergingStrategy(o, others)
	if err != nil {
		return nil, err
	}
	params := o.params
	var contents []Content
	if o.bk.KnownData() {
		var nextindex []int64
		shift := int64(0)
		for i, c := range head {
			if i > 0 {
				if _, isEmpty := c.(*Empty); !isEmpty {
					params = paramsIntersect(params, c.Parameters())
				}
			}
			switch x := c.(type) {
			case *Empty:
			case *IndexedOption:
				for _, v := range x.idx.Data() {
					if v < 0 {
						nextindex = append(nextindex, -1)
					} else {
						nextindex = append(nextindex, v+shift)
					}
				}
				contents = append(contents, x.content)
				shift += mustLen(x.content)
			default:
				n := mustLen(x)
				for j := int64(0); j < n; j++ {
					nextindex = append(nextindex, j+shift)
				}
				contents = append(contents, x)
				shift += n
			}
		}
		merged, err := mergeManyNorm(contents)
		if err != nil {
			return nil, err
		}
		out, err := SimplifiedIndexedOption(index.Wrap(index.I64, nextindex), merged, params)
		if err != nil {
			return nil, err
		}
		return mergeTail(out, tail)
	}
	total := shape.Of(0)
	for i, c := range head {
		if i > 0 {
			if _, isEmpty := c.(*Empty); !isEmpty {
				params = paramsIntersect(params, c.Parameters())
			}
		}
		switch x := c.(type) {
		case *Empty:
		case *IndexedOption:
			contents = append(contents, x.content)
		default:
			contents = append(contents, x)
		}
		total = total.Add(c.Length())
	}
	merged, err := mergeManyNorm(contents)
	if err != nil {
		return nil, err
	}
	out, err := SimplifiedIndexedOption(index.Placeholder(index.I64, total, nil), merged, params)
	if err != nil {
		return nil, err
	}
	return mergeTail(out, tail)
}

// reverseMerge prepends other, which has already absorbed everything in
// front of it, to this array.
func (o *IndexedOption) reverseMerge(other Content) (Content, error) {
	if _, isEmpty := other.(*Empty); isEmpty {
		return o, nil
	}
	merged, err := other.mergeMany([]Content{o.content})
	if err != nil {
		return nil, err
	}
	params := paramsIntersect(o.params, other.Parameters())
	if other.Backend().KnownData() && o.idx.KnownData() {
		theirs := mustLen(other)
		mine := o.idx.Data()
		out := make([]int64, theirs+int64(len(mine)))
		for i := int64(0); i < theirs; i++ {
			out[i] = i
		}
		for i, v := range mine {
			if v < 0 {
				out[theirs+int64(i)] = -1
			} else {
				out[theirs+int64(i)] = v + theirs
			}
		}
		return SimplifiedIndexedOption(index.Wrap(index.I64, out), merged, params)
	}
	total := other.Length().Add(o.Length())
	return SimplifiedIndexedOption(index.Placeholder(index.I64, total, nil), merged, params)
}

func (o *IndexedOption) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return o, nil
	case SliceField:
		return nextField(o, string(h), tail, advanced)
	case SliceFields:
		return nextFields(o, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(o, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(o, tail, advanced)
	default:
		_, nextcarry, outindex := o.nextcarryOutindex()
		next, err := o.content.Carry(nextcarry, false)
		if err != nil {
			return nil, err
		}
		out, err := next.getItemNext(head, tail, advanced)
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexedOption(outindex, out, o.params)
	}
}

func (o *IndexedOption) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	var rstarts, rstops *index.Index
	if o.idx.KnownData() && slicestarts.KnownData() && slicestops.KnownData() {
		vals := o.idx.Data()
		var ss, pp []int64
		for i, v := range vals {
			if v >= 0 {
				ss = append(ss, slicestarts.At(int64(i)))
				pp = append(pp, slicestops.At(int64(i)))
			}
		}
		rstarts = index.Wrap(index.I64, ss)
		rstops = index.Wrap(index.I64, pp)
	} else {
		o.idx.TouchData()
		slicestarts.TouchData()
		slicestops.TouchData()
		rstarts = index.Placeholder(index.I64, shape.Unknown(), nil)
		rstops = index.Placeholder(index.I64, shape.Unknown(), nil)
	}
	out, err := next.getItemNextJagged(rstarts, rstops, slicecontent, tail)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

func (o *IndexedOption) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(o)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.localIndex(axis, depth)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

func (o *IndexedOption) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(o, n, replacement, fields, params)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.combinations(n, replacement, fields, params, axis, depth)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

func (o *IndexedOption) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(o, target, clip)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.padNone(target, axis, depth, clip)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

// offsetsAndFlattened turns missing rows into empty lists when the
// target dimension sits directly underneath.
func (o *IndexedOption) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	if axis == depth-1 {
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	}
	if o.idx.KnownData() {
		numnull, nextcarry, outindex := o.nextcarryOutindex()
		next, err := o.content.Carry(nextcarry, false)
		if err != nil {
			return nil, nil, err
		}
		inner, flat, err := next.offsetsAndFlattened(axis, depth)
		if err != nil {
			return nil, nil, err
		}
		if inner == nil {
			return nil, flat, nil
		}
		nn, _ := numnull.Known()
		if nn == 0 {
			return inner, flat, nil
		}
		outVals := outindex.Data()
		out := make([]int64, len(outVals)+1)
		for i, v := range outVals {
			if v < 0 {
				out[i+1] = out[i]
			} else {
				out[i+1] = out[i] + (inner.At(v+1) - inner.At(v))
			}
		}
		return index.Wrap(index.I64, out), flat, nil
	}
	o.idx.TouchData()
	_, nextcarry, _ := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, nil, err
	}
	inner, flat, err := next.offsetsAndFlattened(axis, depth)
	if err != nil {
		return nil, nil, err
	}
	if inner == nil {
		return nil, flat, nil
	}
	return index.Placeholder(index.I64, o.Length().Add(shape.Of(1)), nil), flat, nil
}

func (o *IndexedOption) removeStructure() ([]Content, error) {
	p, err := o.project()
	if err != nil {
		return nil, err
	}
	return p.removeStructure()
}

func (o *IndexedOption) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	if axis == depth-1 {
		return nil, fmt.Errorf("%w: cannot sort missing values", ErrUnsupported)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.sortNext(axis, depth, ascending, stable)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

func (o *IndexedOption) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	if axis == depth-1 {
		return nil, fmt.Errorf("%w: cannot argsort missing values", ErrUnsupported)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.argsortNext(axis, depth, ascending, stable)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, nil)
}

func (o *IndexedOption) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return nil, fmt.Errorf("%w: cannot reduce missing values at this axis", ErrUnsupported)
	}
	_, nextcarry, outindex := o.nextcarryOutindex()
	next, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	out, err := next.reduceNext(op, axis, depth)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexedOption(outindex, out, o.params)
}

func (o *IndexedOption) ToPacked() (Content, error) {
	_, nextcarry, outindex := o.nextcarryOutindex()
	proj, err := o.content.Carry(nextcarry, false)
	if err != nil {
		return nil, err
	}
	packed, err := proj.ToPacked()
	if err != nil {
		return nil, err
	}
	return NewIndexedOption(outindex, packed, o.params)
}

func (o *IndexedOption) ToList() (any, error) { return toListGeneric(o) }

func (o *IndexedOption) Validity() error { return validityWalk(o, "layout") }

func (o *IndexedOption) TouchData(recursive bool) {
	o.idx.TouchData()
	if recursive {
		o.content.TouchData(true)
	}
}

func (o *IndexedOption) TouchShape(recursive bool) {
	o.idx.TouchShape()
	if recursive {
		o.content.TouchShape(true)
	}
}
