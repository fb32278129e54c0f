package layout

import (
	"fmt"
	"slices"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Union holds rows of several unrelated types side by side: row i is row
// idx[i] of contents[tags[i]]. Tags are one byte, so a union carries at
// most 128 contents, and none of them may be a union itself.
type Union struct {
	bk       backend.Backend
	tags     *index.Index
	idx      *index.Index
	contents []Content
	params   Parameters
	mn, mx   int
}

func NewUnion(tags, idx *index.Index, contents []Content, params Parameters) (*Union, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: UnionArray needs at least one content", ErrInvalid)
	}
	if len(contents) > 128 {
		return nil, fmt.Errorf("%w: UnionArray holds %d contents, more than a tag byte can address", ErrInvalid, len(contents))
	}
	if tags.Kind() != index.I8 {
		return nil, fmt.Errorf("%w: UnionArray tags must be int8, not %s", ErrInvalid, tags.Kind())
	}
	for _, c := range contents {
		if _, isUnion := c.(*Union); isUnion {
			return nil, fmt.Errorf("%w: UnionArray cannot hold another UnionArray directly", ErrInvalid)
		}
	}
	if tn, tagsKnown := tags.Len().Known(); tagsKnown {
		if in, idxKnown := idx.Len().Known(); idxKnown && in < tn {
			return nil, fmt.Errorf("%w: UnionArray index shorter than tags (%d < %d)", ErrInvalid, in, tn)
		}
	}
	mn, mx := MaxDepth, 1
	for _, c := range contents {
		cmn, cmx, err := childDepth(c)
		if err != nil {
			return nil, err
		}
		if cmn < mn {
			mn = cmn
		}
		if cmx > mx {
			mx = cmx
		}
	}
	return &Union{
		bk:       contents[0].Backend(),
		tags:     tags,
		idx:      idx,
		contents: contents,
		params:   params,
		mn:       mn,
		mx:       mx,
	}, nil
}

func (*Union) contentNode() {}

func (u *Union) Backend() backend.Backend { return u.bk }
func (u *Union) Length() shape.Length     { return u.tags.Len() }
func (u *Union) Parameters() Parameters   { return u.params }

func (u *Union) Tags() *index.Index      { return u.tags }
func (u *Union) Index() *index.Index     { return u.idx }
func (u *Union) Contents() []Content     { return u.contents }
func (u *Union) Content(tag int) Content { return u.contents[tag] }

func (u *Union) Fields() []string {
	lists := make([][]string, len(u.contents))
	for i, c := range u.contents {
		lists[i] = c.Fields()
	}
	return commonFields(lists)
}

func (u *Union) WithParameters(params Parameters) Content {
	out := *u
	out.params = params
	return &out
}

func (u *Union) Form() form.Form {
	contents := make([]form.Form, len(u.contents))
	for i, c := range u.contents {
		contents[i] = c.Form()
	}
	return &form.UnionForm{
		Tags:     u.tags.Kind(),
		Index:    u.idx.Kind(),
		Contents: contents,
		Params:   u.params,
	}
}

func (u *Union) minmaxDepth() (int, int) { return u.mn, u.mx }

func (u *Union) simplify() (Content, error) {
	return SimplifiedUnion(u.tags, u.idx, u.contents, u.params)
}

// project gathers the rows carrying one tag, in row order.
func (u *Union) project(tag int) (Content, error) {
	if tag < 0 || tag >= len(u.contents) {
		return nil, fmt.Errorf("%w: tag %d in UnionArray of %d contents", ErrIndexBounds, tag, len(u.contents))
	}
	if u.tags.KnownData() && u.idx.KnownData() {
		tags := u.tags.Data()
		var carry []int64
		for i, t := range tags {
			if int(t) == tag {
				carry = append(carry, u.idx.At(int64(i)))
			}
		}
		return u.contents[tag].Carry(index.Wrap(index.I64, carry), false)
	}
	u.tags.TouchData()
	u.idx.TouchData()
	return u.contents[tag].Carry(index.Placeholder(index.I64, shape.Unknown(), nil), false)
}

// regularIndex replaces the index with per-tag counters, the canonical
// arrangement after projecting every content.
func (u *Union) regularIndex() (*index.Index, error) {
	if u.tags.KnownData() {
		tags := u.tags.Data()
		counts := make([]int64, len(u.contents))
		out := make([]int64, len(tags))
		for i, t := range tags {
			if t < 0 || int(t) >= len(u.contents) {
				return nil, fmt.Errorf("%w: tag %d in UnionArray of %d contents", ErrIndexBounds, t, len(u.contents))
			}
			out[i] = counts[t]
			counts[t]++
		}
		return index.Wrap(index.I64, out), nil
	}
	u.tags.TouchData()
	return index.Placeholder(index.I64, u.tags.Len(), nil), nil
}

func (u *Union) GetItemAt(at int64) (any, error) {
	if n, known := u.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "UnionArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !u.tags.KnownData() || !u.idx.KnownData() {
		u.tags.TouchData()
		u.idx.TouchData()
		return u.contents[0].GetItemAt(0)
	}
	t := u.tags.At(at)
	if t < 0 || int(t) >= len(u.contents) {
		return nil, fmt.Errorf("%w: tag %d in UnionArray of %d contents", ErrIndexBounds, t, len(u.contents))
	}
	return u.contents[t].GetItemAt(u.idx.At(at))
}

func (u *Union) GetItemRange(start, stop int64) (Content, error) {
	n, known := u.Length().Known()
	if !known {
		u.TouchShape(false)
		return u, nil
	}
	start, stop = clampRange(start, stop, n)
	return NewUnion(u.tags.Slice(start, stop), u.idx.Slice(start, stop), u.contents, u.params)
}

func (u *Union) GetItemField(name string) (Content, error) {
	outs := make([]Content, len(u.contents))
	for i, c := range u.contents {
		sub, err := c.GetItemField(name)
		if err != nil {
			return nil, err
		}
		outs[i] = sub
	}
	return SimplifiedUnion(u.tags, u.idx, outs, nil)
}

func (u *Union) GetItemFields(names []string) (Content, error) {
	outs := make([]Content, len(u.contents))
	for i, c := range u.contents {
		sub, err := c.GetItemFields(names)
		if err != nil {
			return nil, err
		}
		outs[i] = sub
	}
	return SimplifiedUnion(u.tags, u.idx, outs, nil)
}

func (u *Union) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, u.Length(), "UnionArray")
	if err != nil {
		return nil, err
	}
	var ntags, nidx *index.Index
	if idx2.KnownData() && u.tags.KnownData() && u.idx.KnownData() {
		pos := idx2.Data()
		tagsOut := make([]int64, len(pos))
		idxOut := make([]int64, len(pos))
		for k, v := range pos {
			tagsOut[k] = u.tags.At(v)
			idxOut[k] = u.idx.At(v)
		}
		ntags = index.Wrap(index.I8, tagsOut)
		nidx = index.Wrap(index.I64, idxOut)
	} else {
		idx2.TouchData()
		u.tags.TouchData()
		u.idx.TouchData()
		ntags = index.Placeholder(index.I8, idx2.Len(), nil)
		nidx = index.Placeholder(index.I64, idx2.Len(), nil)
	}
	return NewUnion(ntags, nidx, u.contents, u.params)
}

func (u *Union) Mergeable(other Content, mergebool bool) bool { return true }

func (u *Union) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return u, nil
	}
	head, tail, err := mergingStrategy(u, others)
	if err != nil {
		return nil, err
	}
	params := u.params
	var contents []Content
	if u.bk.KnownData() {
		var tagsOut, idxOut []int64
		for i, c := range head {
			if i > 0 {
				if _, isEmpty := c.(*Empty); !isEmpty {
					params = paramsIntersect(params, c.Parameters())
				}
			}
			switch x := c.(type) {
			case *Empty:
			case *Union:
				shift := int64(len(contents))
				tags := x.tags.Data()
				for j, t := range tags {
					tagsOut = append(tagsOut, t+shift)
					idxOut = append(idxOut, x.idx.At(int64(j)))
				}
				contents = append(contents, x.contents...)
			default:
				t := int64(len(contents))
				n := mustLen(x)
				for j := int64(0); j < n; j++ {
					tagsOut = append(tagsOut, t)
					idxOut = append(idxOut, j)
				}
				contents = append(contents, x)
			}
		}
		if len(contents) > 128 {
			return nil, fmt.Errorf("%w: concatenation needs %d union contents, more than a tag byte can address",
				ErrMergeIncompatibility, len(contents))
		}
		out, err := SimplifiedUnion(index.Wrap(index.I8, tagsOut), index.Wrap(index.I64, idxOut), contents, params)
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
		case *Union:
			contents = append(contents, x.contents...)
		default:
			contents = append(contents, x)
		}
		total = total.Add(c.Length())
	}
	if len(contents) > 128 {
		return nil, fmt.Errorf("%w: concatenation needs %d union contents, more than a tag byte can address",
			ErrMergeIncompatibility, len(contents))
	}
	out, err := SimplifiedUnion(
		index.Placeholder(index.I8, total, nil),
		index.Placeholder(index.I64, total, nil),
		contents, params)
	if err != nil {
		return nil, err
	}
	return mergeTail(out, tail)
}

// reverseMerge prepends other as a fresh first content.
func (u *Union) reverseMerge(other Content) (Content, error) {
	if _, isEmpty := other.(*Empty); isEmpty {
		return u, nil
	}
	contents := append([]Content{other}, u.contents...)
	if len(contents) > 128 {
		return nil, fmt.Errorf("%w: concatenation needs %d union contents, more than a tag byte can address",
			ErrMergeIncompatibility, len(contents))
	}
	params := paramsIntersect(u.params, other.Parameters())
	if u.bk.KnownData() && other.Backend().KnownData() {
		theirs := mustLen(other)
		mine := mustLen(u)
		tagsOut := make([]int64, theirs+mine)
		idxOut := make([]int64, theirs+mine)
		for i := int64(0); i < theirs; i++ {
			idxOut[i] = i
		}
		for i := int64(0); i < mine; i++ {
			tagsOut[theirs+i] = u.tags.At(i) + 1
			idxOut[theirs+i] = u.idx.At(i)
		}
		return SimplifiedUnion(index.Wrap(index.I8, tagsOut), index.Wrap(index.I64, idxOut), contents, params)
	}
	total := other.Length().Add(u.Length())
	return SimplifiedUnion(
		index.Placeholder(index.I8, total, nil),
		index.Placeholder(index.I64, total, nil),
		contents, params)
}

func (u *Union) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return u, nil
	case SliceField:
		return nextField(u, string(h), tail, advanced)
	case SliceFields:
		return nextFields(u, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(u, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(u, tail, advanced)
	default:
		outs := make([]Content, len(u.contents))
		for tag := range u.contents {
			proj, err := u.project(tag)
			if err != nil {
				return nil, err
			}
			if outs[tag], err = proj.getItemNext(head, tail, advanced); err != nil {
				return nil, err
			}
		}
		outindex, err := u.regularIndex()
		if err != nil {
			return nil, err
		}
		return SimplifiedUnion(u.tags, outindex, outs, u.params)
	}
}

func (u *Union) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	s, err := u.simplify()
	if err != nil {
		return nil, err
	}
	if _, still := s.(*Union); still {
		return nil, fmt.Errorf("%w: jagged slice on an irreducible union", ErrUnsupported)
	}
	return s.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (u *Union) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(u)
	}
	outs := make([]Content, len(u.contents))
	for i, c := range u.contents {
		out, err := c.localIndex(axis, depth)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return NewUnion(u.tags, u.idx, outs, u.params)
}

func (u *Union) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(u, n, replacement, fields, params)
	}
	outs := make([]Content, len(u.contents))
	for i, c := range u.contents {
		out, err := c.combinations(n, replacement, fields, params, axis, depth)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return NewUnion(u.tags, u.idx, outs, u.params)
}

func (u *Union) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(u, target, clip)
	}
	outs := make([]Content, len(u.contents))
	for i, c := range u.contents {
		out, err := c.padNone(target, axis, depth, clip)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return SimplifiedUnion(u.tags, u.idx, outs, u.params)
}

func (u *Union) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	s, err := u.simplify()
	if err != nil {
		return nil, nil, err
	}
	if _, still := s.(*Union); still {
		return nil, nil, fmt.Errorf("%w: cannot flatten an irreducible union", ErrUnsupported)
	}
	return s.offsetsAndFlattened(axis, depth)
}

func (u *Union) removeStructure() ([]Content, error) {
	var out []Content
	for tag := range u.contents {
		proj, err := u.project(tag)
		if err != nil {
			return nil, err
		}
		flat, err := proj.removeStructure()
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func (u *Union) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	s, err := u.simplify()
	if err != nil {
		return nil, err
	}
	if _, still := s.(*Union); still {
		return nil, fmt.Errorf("%w: cannot sort an irreducible union", ErrUnsupported)
	}
	return s.sortNext(axis, depth, ascending, stable)
}

func (u *Union) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	s, err := u.simplify()
	if err != nil {
		return nil, err
	}
	if _, still := s.(*Union); still {
		return nil, fmt.Errorf("%w: cannot argsort an irreducible union", ErrUnsupported)
	}
	return s.argsortNext(axis, depth, ascending, stable)
}

func (u *Union) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	s, err := u.simplify()
	if err != nil {
		return nil, err
	}
	if _, still := s.(*Union); still {
		return nil, fmt.Errorf("%w: cannot reduce an irreducible union", ErrUnsupported)
	}
	return s.reduceNext(op, axis, depth)
}

func (u *Union) ToPacked() (Content, error) {
	if u.tags.KnownData() && u.idx.KnownData() {
		tags := u.tags.Data()
		nidx := make([]int64, len(tags))
		for i := range tags {
			nidx[i] = u.idx.At(int64(i))
		}
		contents := slices.Clone(u.contents)
		for tag := range contents {
			var count int64
			for _, t := range tags {
				if int(t) == tag {
					count++
				}
			}
			if cn, known := contents[tag].Length().Known(); known && cn > count {
				proj, err := u.project(tag)
				if err != nil {
					return nil, err
				}
				contents[tag] = proj
				k := int64(0)
				for i, t := range tags {
					if int(t) == tag {
						nidx[i] = k
						k++
					}
				}
			}
			packed, err := contents[tag].ToPacked()
			if err != nil {
				return nil, err
			}
			contents[tag] = packed
		}
		return NewUnion(u.tags, index.Wrap(index.I64, nidx), contents, u.params)
	}
	contents := make([]Content, len(u.contents))
	for i, c := range u.contents {
		packed, err := c.ToPacked()
		if err != nil {
			return nil, err
		}
		contents[i] = packed
	}
	return NewUnion(u.tags, u.idx, contents, u.params)
}

func (u *Union) ToList() (any, error) { return toListGeneric(u) }

func (u *Union) Validity() error { return validityWalk(u, "layout") }

func (u *Union) TouchData(recursive bool) {
	u.tags.TouchData()
	u.idx.TouchData()
	if recursive {
		for _, c := range u.contents {
			c.TouchData(true)
		}
	}
}

func (u *Union) TouchShape(recursive bool) {
	u.tags.TouchShape()
	u.idx.TouchShape()
	if recursive {
		for _, c := range u.contents {
			c.TouchShape(true)
		}
	}
}
