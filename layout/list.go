package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// List is the general ragged kind: row i spans content positions
// [starts[i], stops[i]). Rows may overlap, leave gaps, or appear out of
// order.
type List struct {
	bk      backend.Backend
	starts  *index.Index
	stops   *index.Index
	content Content
	params  Parameters
	mn, mx  int
}

// NewList takes ownership of both indexes. Stops may be longer than
// starts; the extra entries are ignored.
func NewList(starts, stops *index.Index, content Content, params Parameters) (*List, error) {
	if sn, ok := starts.Len().Known(); ok {
		if pn, ok2 := stops.Len().Known(); ok2 && pn < sn {
			return nil, fmt.Errorf("%w: ListArray stops shorter than starts (%d < %d)", ErrInvalid, pn, sn)
		}
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &List{
		bk:      content.Backend(),
		starts:  starts,
		stops:   stops,
		content: content,
		params:  params,
		mn:      mn + 1,
		mx:      mx + 1,
	}, nil
}

func (*List) contentNode() {}

func (l *List) Backend() backend.Backend { return l.bk }
func (l *List) Length() shape.Length     { return l.starts.Len() }
func (l *List) Parameters() Parameters   { return l.params }
func (l *List) Fields() []string         { return l.content.Fields() }

func (l *List) Starts() *index.Index { return l.starts }
func (l *List) Stops() *index.Index  { return l.stops }
func (l *List) Content() Content     { return l.content }

func (l *List) WithParameters(params Parameters) Content {
	out := *l
	out.params = params
	return &out
}

func (l *List) Form() form.Form {
	return &form.ListForm{
		Starts:  l.starts.Kind(),
		Stops:   l.stops.Kind(),
		Content: l.content.Form(),
		Params:  l.params,
	}
}

func (l *List) minmaxDepth() (int, int) { return l.mn, l.mx }

func (l *List) GetItemAt(at int64) (any, error) {
	if n, known := l.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "ListArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !l.starts.KnownData() || !l.stops.KnownData() {
		l.starts.TouchData()
		l.stops.TouchData()
		return l.content, nil
	}
	start, stop := l.starts.At(at), l.stops.At(at)
	if stop < start {
		return nil, fmt.Errorf("%w: stops[%d] < starts[%d] in ListArray", ErrInvalid, at, at)
	}
	return l.content.GetItemRange(start, stop)
}

func (l *List) GetItemRange(start, stop int64) (Content, error) {
	n, known := l.Length().Known()
	if !known {
		l.TouchShape(false)
		return l, nil
	}
	start, stop = clampRange(start, stop, n)
	return NewList(l.starts.Slice(start, stop), l.stops.Slice(start, stop), l.content, l.params)
}

func (l *List) GetItemField(name string) (Content, error) {
	sub, err := l.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewList(l.starts, l.stops, sub, nil)
}

func (l *List) GetItemFields(names []string) (Content, error) {
	sub, err := l.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewList(l.starts, l.stops, sub, nil)
}

func (l *List) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, l.Length(), "ListArray")
	if err != nil {
		return nil, err
	}
	var ns, np *index.Index
	if idx2.KnownData() && l.starts.KnownData() && l.stops.KnownData() {
		pos := idx2.Data()
		s := make([]int64, len(pos))
		p := make([]int64, len(pos))
		for i, v := range pos {
			s[i] = l.starts.At(v)
			p[i] = l.stops.At(v)
		}
		ns = index.Wrap(index.I64, s)
		np = index.Wrap(index.I64, p)
	} else {
		idx2.TouchData()
		l.starts.TouchData()
		l.stops.TouchData()
		ns = index.Placeholder(index.I64, idx2.Len(), nil)
		np = index.Placeholder(index.I64, idx2.Len(), nil)
	}
	return NewList(ns, np, l.content, l.params)
}

// toListOffset64 rewrites rows as contiguous offsets, carrying the
// content into row order when the windows are not already contiguous.
func (l *List) toListOffset64(startAtZero bool) (*ListOffset, error) {
	if !l.starts.KnownData() || !l.stops.KnownData() {
		l.starts.TouchData()
		l.stops.TouchData()
		offsets := index.Placeholder(index.I64, l.Length().Add(shape.Of(1)), nil)
		carried, err := l.content.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
		if err != nil {
			return nil, err
		}
		return NewListOffset(offsets, carried, l.params)
	}
	n := mustLen(l)
	contiguous := true
	for i := int64(0); i < n; i++ {
		start, stop := l.starts.At(i), l.stops.At(i)
		if stop < start {
			return nil, fmt.Errorf("%w: stops[%d] < starts[%d] in ListArray", ErrInvalid, i, i)
		}
		if i+1 < n && stop != l.starts.At(i+1) {
			contiguous = false
		}
	}
	if contiguous && (n == 0 || !startAtZero || l.starts.At(0) == 0) {
		offs := make([]int64, n+1)
		for i := int64(0); i < n; i++ {
			offs[i] = l.starts.At(i)
		}
		if n > 0 {
			offs[n] = l.stops.At(n - 1)
		}
		return NewListOffset(index.Wrap(index.I64, offs), l.content, l.params)
	}
	offs := make([]int64, n+1)
	total := int64(0)
	for i := int64(0); i < n; i++ {
		total += l.stops.At(i) - l.starts.At(i)
		offs[i+1] = total
	}
	carry := make([]int64, 0, total)
	for i := int64(0); i < n; i++ {
		for j := l.starts.At(i); j < l.stops.At(i); j++ {
			carry = append(carry, j)
		}
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, carry), true)
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, offs), carried, l.params)
}

func (l *List) Mergeable(other Content, mergebool bool) bool {
	if handled, ok := mergeableGeneric(l, other, mergebool); handled {
		return ok
	}
	if !typeParamsEqual(l.params, other.Parameters()) {
		return false
	}
	switch o := other.(type) {
	case *Regular:
		return l.content.Mergeable(o.content, mergebool)
	case *List:
		return l.content.Mergeable(o.content, mergebool)
	case *ListOffset:
		return l.content.Mergeable(o.content, mergebool)
	}
	return false
}

func (l *List) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return l, nil
	}
	head, tail, err := mergingStrategy(l, others)
	if err != nil {
		return nil, err
	}
	params := l.params
	known := true
	for _, c := range head {
		if !c.Backend().KnownData() {
			known = false
		}
	}
	var contents []Content
	total := shape.Of(0)
	if known {
		var ns, np []int64
		shift := int64(0)
		appendPart := func(starts, stops func(i int64) int64, rows int64, content Content) {
			for i := int64(0); i < rows; i++ {
				ns = append(ns, starts(i)+shift)
				np = append(np, stops(i)+shift)
			}
			shift += mustLen(content)
			contents = append(contents, content)
		}
		for i, c := range head {
			if i > 0 {
				if _, isE := c.(*Empty); !isE {
					params = paramsIntersect(params, c.Parameters())
				}
			}
			switch o := c.(type) {
			case *Empty:
				continue
			case *List:
				appendPart(o.starts.At, o.stops.At, mustLen(o), o.content)
			case *ListOffset:
				appendPart(
					func(i int64) int64 { return o.offsets.At(i) },
					func(i int64) int64 { return o.offsets.At(i + 1) },
					mustLen(o), o.content)
			case *Regular:
				lo, err := o.toListOffset64(true)
				if err != nil {
					return nil, err
				}
				appendPart(
					func(i int64) int64 { return lo.offsets.At(i) },
					func(i int64) int64 { return lo.offsets.At(i + 1) },
					mustLen(lo), lo.content)
			default:
				return nil, fmt.Errorf("%w: cannot merge ListArray with %s", ErrMergeIncompatibility, ClassOf(c))
			}
			total = total.Add(c.Length())
		}
		merged, err := mergeManyNorm(contents)
		if err != nil {
			return nil, err
		}
		out, err := NewList(index.Wrap(index.I64, ns), index.Wrap(index.I64, np), merged, params)
		if err != nil {
			return nil, err
		}
		return mergeTail(out, tail)
	}
	for i, c := range head {
		if i > 0 {
			if _, isE := c.(*Empty); !isE {
				params = paramsIntersect(params, c.Parameters())
			}
		}
		switch o := c.(type) {
		case *Empty:
			continue
		case *List:
			contents = append(contents, o.content)
		case *ListOffset:
			contents = append(contents, o.content)
		case *Regular:
			lo, err := o.toListOffset64(true)
			if err != nil {
				return nil, err
			}
			contents = append(contents, lo.content)
		default:
			return nil, fmt.Errorf("%w: cannot merge ListArray with %s", ErrMergeIncompatibility, ClassOf(c))
		}
		c.TouchData(false)
		total = total.Add(c.Length())
	}
	merged, err := mergeManyNorm(contents)
	if err != nil {
		return nil, err
	}
	out, err := NewList(
		index.Placeholder(index.I64, total, nil),
		index.Placeholder(index.I64, total, nil),
		merged, params)
	if err != nil {
		return nil, err
	}
	return mergeTail(out, tail)
}

func (l *List) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return l, nil
	case SliceField:
		return nextField(l, string(h), tail, advanced)
	case SliceFields:
		return nextFields(l, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(l, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(l, tail, advanced)
	case SliceAt:
		return l.nextAt(int64(h), tail, advanced)
	case SliceRange:
		return l.nextRange(h, tail, advanced)
	case SliceArray:
		return l.nextArray(h, tail, advanced)
	case SliceContent:
		switch inner := h.Content.(type) {
		case *ListOffset:
			return l.nextJaggedHead(inner, tail, advanced)
		case *IndexedOption:
			return nextMissing(l, inner, tail, advanced)
		default:
			return nil, fmt.Errorf("%w: slice content must be offset lists or missing positions, not %s", ErrStructuralType, ClassOf(h.Content))
		}
	}
	return nil, fmt.Errorf("%w: unrecognized slice item %T", ErrStructuralType, head)
}

func (l *List) nextAt(at int64, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	if !l.starts.KnownData() || !l.stops.KnownData() {
		l.starts.TouchData()
		l.stops.TouchData()
		carried, err := l.content.Carry(index.Placeholder(index.I64, l.Length(), nil), true)
		if err != nil {
			return nil, err
		}
		return carried.getItemNext(head2, rest, advanced)
	}
	n := mustLen(l)
	data := make([]int64, n)
	for i := int64(0); i < n; i++ {
		length := l.stops.At(i) - l.starts.At(i)
		pos := at
		if pos < 0 {
			pos += length
		}
		if pos < 0 || pos >= length {
			return nil, fmt.Errorf("%w: position %d in sublist of length %d", ErrIndexBounds, at, length)
		}
		data[i] = l.starts.At(i) + pos
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, data), true)
	if err != nil {
		return nil, err
	}
	return carried.getItemNext(head2, rest, advanced)
}

func (l *List) nextRange(h SliceRange, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	if !l.starts.KnownData() || !l.stops.KnownData() {
		l.starts.TouchData()
		l.stops.TouchData()
		nextoffsets := index.Placeholder(index.I64, l.Length().Add(shape.Of(1)), nil)
		carried, err := l.content.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
		if err != nil {
			return nil, err
		}
		var adv *index.Index
		if advanced != nil {
			advanced.TouchData()
			adv = index.Placeholder(index.I64, shape.Unknown(), nil)
		}
		out, err := carried.getItemNext(head2, rest, adv)
		if err != nil {
			return nil, err
		}
		return NewListOffset(nextoffsets, out, l.params)
	}
	n := mustLen(l)
	offs := make([]int64, n+1)
	var carry []int64
	for i := int64(0); i < n; i++ {
		length := l.stops.At(i) - l.starts.At(i)
		if length < 0 {
			return nil, fmt.Errorf("%w: stops[%d] < starts[%d] in ListArray", ErrInvalid, i, i)
		}
		start, _, step, cnt, err := h.regularize(length)
		if err != nil {
			return nil, err
		}
		offs[i+1] = offs[i] + cnt
		pos := start
		for j := int64(0); j < cnt; j++ {
			carry = append(carry, l.starts.At(i)+pos)
			pos += step
		}
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, carry), true)
	if err != nil {
		return nil, err
	}
	if advanced == nil || advanced.Len().Or(0) == 0 {
		out, err := carried.getItemNext(head2, rest, advanced)
		if err != nil {
			return nil, err
		}
		return NewListOffset(index.Wrap(index.I64, offs), out, l.params)
	}
	adv := advanced.Data()
	spread := make([]int64, len(carry))
	for i := int64(0); i < n; i++ {
		for j := offs[i]; j < offs[i+1]; j++ {
			spread[j] = adv[i]
		}
	}
	out, err := carried.getItemNext(head2, rest, index.Wrap(index.I64, spread))
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, offs), out, l.params)
}

func (l *List) nextArray(h SliceArray, tail []SliceItem, advanced *index.Index) (Content, error) {
	head2, rest := headTail(tail)
	flat := h.Values
	known := l.starts.KnownData() && l.stops.KnownData() && flat.KnownData()
	if !known {
		l.starts.TouchData()
		l.stops.TouchData()
		flat.TouchData()
		if advanced == nil {
			total := l.Length().Mul(flat.Len())
			carried, err := l.content.Carry(index.Placeholder(index.I64, total, nil), true)
			if err != nil {
				return nil, err
			}
			out, err := carried.getItemNext(head2, rest, index.Placeholder(index.I64, total, nil))
			if err != nil {
				return nil, err
			}
			shp := h.Shape
			if shp == nil {
				shp = []int64{flat.Len().Or(1)}
			}
			return getItemNextArrayWrap(out, shp, l.Length().Or(1))
		}
		advanced.TouchData()
		carried, err := l.content.Carry(index.Placeholder(index.I64, l.Length(), nil), true)
		if err != nil {
			return nil, err
		}
		return carried.getItemNext(head2, rest, index.Placeholder(index.I64, l.Length(), nil))
	}
	n := mustLen(l)
	vals := flat.Data()
	m := int64(len(vals))
	if advanced == nil || advanced.Len().Or(0) == 0 {
		data := make([]int64, n*m)
		adv := make([]int64, n*m)
		for i := int64(0); i < n; i++ {
			length := l.stops.At(i) - l.starts.At(i)
			for j, v := range vals {
				pos := v
				if pos < 0 {
					pos += length
				}
				if pos < 0 || pos >= length {
					return nil, fmt.Errorf("%w: position %d in sublist of length %d", ErrIndexBounds, v, length)
				}
				data[i*m+int64(j)] = l.starts.At(i) + pos
				adv[i*m+int64(j)] = int64(j)
			}
		}
		carried, err := l.content.Carry(index.Wrap(index.I64, data), true)
		if err != nil {
			return nil, err
		}
		out, err := carried.getItemNext(head2, rest, index.Wrap(index.I64, adv))
		if err != nil {
			return nil, err
		}
		shp := h.Shape
		if shp == nil {
			shp = []int64{m}
		}
		return getItemNextArrayWrap(out, shp, n)
	}
	advD := advanced.Data()
	data := make([]int64, n)
	nadv := make([]int64, n)
	for i := int64(0); i < n; i++ {
		length := l.stops.At(i) - l.starts.At(i)
		pos := vals[advD[i]]
		if pos < 0 {
			pos += length
		}
		if pos < 0 || pos >= length {
			return nil, fmt.Errorf("%w: position %d in sublist of length %d", ErrIndexBounds, vals[advD[i]], length)
		}
		data[i] = l.starts.At(i) + pos
		nadv[i] = i
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, data), true)
	if err != nil {
		return nil, err
	}
	return carried.getItemNext(head2, rest, index.Wrap(index.I64, nadv))
}

func (l *List) nextJaggedHead(jagged *ListOffset, tail []SliceItem, advanced *index.Index) (Content, error) {
	if advanced != nil {
		return nil, fmt.Errorf("%w: cannot mix jagged slice with NumPy-style advanced indexing", ErrIncompatibleMode)
	}
	hn := jagged.Length()
	known := l.starts.KnownData() && l.stops.KnownData() && jagged.offsets.KnownData()
	if !known {
		l.starts.TouchData()
		l.stops.TouchData()
		jagged.offsets.TouchData()
		total := hn.Mul(l.Length())
		carried, err := l.content.Carry(index.Placeholder(index.I64, total, nil), true)
		if err != nil {
			return nil, err
		}
		down, err := carried.getItemNextJagged(
			index.Placeholder(index.I64, total, nil),
			index.Placeholder(index.I64, total, nil),
			jagged.content, tail)
		if err != nil {
			return nil, err
		}
		return NewRegular(down, hn.Or(1), 1, l.params)
	}
	n := mustLen(l)
	hl := hn.MustKnown()
	offs := jagged.offsets.Data()
	ms := make([]int64, n*hl)
	mp := make([]int64, n*hl)
	carry := make([]int64, n*hl)
	for i := int64(0); i < n; i++ {
		start, stop := l.starts.At(i), l.stops.At(i)
		if stop < start {
			return nil, fmt.Errorf("%w: stops[%d] < starts[%d] in ListArray", ErrInvalid, i, i)
		}
		if stop-start != hl {
			return nil, fmt.Errorf("%w: cannot fit jagged slice of length %d into sublist of length %d", ErrIndexBounds, hl, stop-start)
		}
		for j := int64(0); j < hl; j++ {
			ms[i*hl+j] = offs[j]
			mp[i*hl+j] = offs[j+1]
			carry[i*hl+j] = start + j
		}
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, carry), true)
	if err != nil {
		return nil, err
	}
	down, err := carried.getItemNextJagged(index.Wrap(index.I64, ms), index.Wrap(index.I64, mp), jagged.content, tail)
	if err != nil {
		return nil, err
	}
	return NewRegular(down, hl, 1, l.params)
}

func (l *List) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	if sn, ok := slicestarts.Len().Known(); ok {
		if ln, ok2 := l.Length().Known(); ok2 && sn != ln {
			return nil, fmt.Errorf("%w: cannot fit jagged slice with length %d into ListArray of size %d", ErrIndexBounds, sn, ln)
		}
	}
	switch sc := slicecontent.(type) {
	case *ListOffset:
		return l.jaggedDescend(slicestarts, slicestops, sc, tail)
	case *Primitive:
		return l.jaggedApply(slicestarts, slicestops, sc, tail)
	case *IndexedOption:
		return l.jaggedMissing(slicestarts, slicestops, sc, tail)
	default:
		return nil, fmt.Errorf("%w: jagged slice content must be lists, positions, or missing positions, not %s", ErrStructuralType, ClassOf(slicecontent))
	}
}

// jaggedDescend pairs one more jagged slice dimension with one more list
// dimension. Counts must agree row for row.
func (l *List) jaggedDescend(slicestarts, slicestops *index.Index, sc *ListOffset, tail []SliceItem) (Content, error) {
	known := l.starts.KnownData() && l.stops.KnownData() &&
		slicestarts.KnownData() && slicestops.KnownData()
	if !known {
		l.starts.TouchData()
		l.stops.TouchData()
		slicestarts.TouchData()
		slicestops.TouchData()
		outoffsets := index.Placeholder(index.I64, l.Length().Add(shape.Of(1)), nil)
		lo, err := l.toListOffset64(false)
		if err != nil {
			return nil, err
		}
		m := sc.Length()
		out, err := lo.content.getItemNextJagged(
			index.Placeholder(index.I64, m, nil),
			index.Placeholder(index.I64, m, nil),
			sc.content, tail)
		if err != nil {
			return nil, err
		}
		return NewListOffset(outoffsets, out, nil)
	}
	n := mustLen(l)
	outoffsets := make([]int64, n+1)
	for i := int64(0); i < n; i++ {
		cnt := slicestops.At(i) - slicestarts.At(i)
		rowLen := l.stops.At(i) - l.starts.At(i)
		if cnt != rowLen {
			return nil, fmt.Errorf("%w: jagged slice length %d differs from sublist length %d in row %d", ErrIndexBounds, cnt, rowLen, i)
		}
		outoffsets[i+1] = outoffsets[i] + cnt
	}
	lo, err := l.toListOffset64(false)
	if err != nil {
		return nil, err
	}
	base := lo.offsets.At(0)
	next, err := lo.content.GetItemRange(base, mustLen(lo.content))
	if err != nil {
		return nil, err
	}
	mn := mustLen(sc)
	innerStarts := sc.offsets.Slice(0, mn)
	innerStops := sc.offsets.Slice(1, mn+1)
	out, err := next.getItemNextJagged(innerStarts, innerStops, sc.content, tail)
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, outoffsets), out, nil)
}

// jaggedApply picks positions within each row: slice window i of the
// payload selects within row i.
func (l *List) jaggedApply(slicestarts, slicestops *index.Index, sc *Primitive, tail []SliceItem) (Content, error) {
	sidx, err := sliceIndexOf(sc)
	if err != nil {
		return nil, err
	}
	head2, rest := headTail(tail)
	known := l.starts.KnownData() && l.stops.KnownData() &&
		slicestarts.KnownData() && slicestops.KnownData() && sidx.KnownData()
	if !known {
		l.starts.TouchData()
		l.stops.TouchData()
		slicestarts.TouchData()
		slicestops.TouchData()
		sidx.TouchData()
		outoffsets := index.Placeholder(index.I64, l.Length().Add(shape.Of(1)), nil)
		carried, err := l.content.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
		if err != nil {
			return nil, err
		}
		out, err := carried.getItemNext(head2, rest, nil)
		if err != nil {
			return nil, err
		}
		return NewListOffset(outoffsets, out, nil)
	}
	n := mustLen(l)
	sv := sidx.Data()
	outoffsets := make([]int64, n+1)
	var carry []int64
	for i := int64(0); i < n; i++ {
		ws, we := slicestarts.At(i), slicestops.At(i)
		outoffsets[i+1] = outoffsets[i]
		if ws == we {
			continue
		}
		if ws > we || we > int64(len(sv)) {
			return nil, fmt.Errorf("%w: jagged slice window [%d, %d) exceeds %d positions", ErrIndexBounds, ws, we, len(sv))
		}
		start, stop := l.starts.At(i), l.stops.At(i)
		if stop < start {
			return nil, fmt.Errorf("%w: stops[%d] < starts[%d] in ListArray", ErrInvalid, i, i)
		}
		length := stop - start
		for j := ws; j < we; j++ {
			pos := sv[j]
			if pos < 0 {
				pos += length
			}
			if pos < 0 || pos >= length {
				return nil, fmt.Errorf("%w: position %d in sublist of length %d", ErrIndexBounds, sv[j], length)
			}
			carry = append(carry, start+pos)
			outoffsets[i+1]++
		}
	}
	carried, err := l.content.Carry(index.Wrap(index.I64, carry), true)
	if err != nil {
		return nil, err
	}
	out, err := carried.getItemNext(head2, rest, nil)
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, outoffsets), out, nil)
}

// jaggedMissing runs the jagged slice over the non-missing positions and
// re-threads the missing slots into each output row.
func (l *List) jaggedMissing(slicestarts, slicestops *index.Index, sc *IndexedOption, tail []SliceItem) (Content, error) {
	payload, okP := sc.content.(*Primitive)
	if !okP {
		if _, isLo := sc.content.(*ListOffset); isLo {
			return nil, fmt.Errorf("%w: missing sublists in a jagged slice", ErrUnsupported)
		}
		return nil, fmt.Errorf("%w: expected integer positions under missing entries in a jagged slice, not %s", ErrStructuralType, ClassOf(sc.content))
	}
	known := l.starts.KnownData() && l.stops.KnownData() &&
		slicestarts.KnownData() && slicestops.KnownData() && sc.idx.KnownData()
	if !known {
		l.starts.TouchData()
		l.stops.TouchData()
		slicestarts.TouchData()
		slicestops.TouchData()
		sc.idx.TouchData()
		n := l.Length()
		inner, err := l.jaggedApply(
			index.Placeholder(index.I64, n, nil),
			index.Placeholder(index.I64, n, nil),
			payload, tail)
		if err != nil {
			return nil, err
		}
		lo, okL := inner.(*ListOffset)
		if !okL {
			return nil, fmt.Errorf("%w: jagged slice produced %s", ErrStructuralType, ClassOf(inner))
		}
		opt, err := SimplifiedIndexedOption(index.Placeholder(index.I64, shape.Unknown(), nil), lo.content, nil)
		if err != nil {
			return nil, err
		}
		return NewListOffset(index.Placeholder(index.I64, n.Add(shape.Of(1)), nil), opt, nil)
	}
	n := mustLen(l)
	missing := sc.idx.Data()
	smallstarts := make([]int64, n)
	smallstops := make([]int64, n)
	largeoffsets := make([]int64, n+1)
	for i := int64(0); i < n; i++ {
		ws, we := slicestarts.At(i), slicestops.At(i)
		if ws > we || we > int64(len(missing)) {
			return nil, fmt.Errorf("%w: jagged slice window [%d, %d) exceeds %d positions", ErrIndexBounds, ws, we, len(missing))
		}
		first := int64(-1)
		cnt := int64(0)
		for j := ws; j < we; j++ {
			if missing[j] >= 0 {
				if first < 0 {
					first = missing[j]
				}
				cnt++
			}
		}
		if first < 0 {
			first = 0
		}
		// valid payload rows are consecutive per window in canonical form
		smallstarts[i] = first
		smallstops[i] = first + cnt
		largeoffsets[i+1] = largeoffsets[i] + (we - ws)
	}
	inner, err := l.getItemNextJagged(index.Wrap(index.I64, smallstarts), index.Wrap(index.I64, smallstops), payload, tail)
	if err != nil {
		return nil, err
	}
	lo, okL := inner.(*ListOffset)
	if !okL {
		return nil, fmt.Errorf("%w: jagged slice produced %s", ErrStructuralType, ClassOf(inner))
	}
	outindex := make([]int64, largeoffsets[n])
	t, k := int64(0), int64(0)
	for i := int64(0); i < n; i++ {
		for j := slicestarts.At(i); j < slicestops.At(i); j++ {
			if missing[j] < 0 {
				outindex[t] = -1
			} else {
				outindex[t] = k
				k++
			}
			t++
		}
	}
	opt, err := SimplifiedIndexedOption(index.Wrap(index.I64, outindex), lo.content, nil)
	if err != nil {
		return nil, err
	}
	return NewListOffset(index.Wrap(index.I64, largeoffsets), opt, nil)
}

func (l *List) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(l)
	}
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.localIndex(axis, depth)
}

func (l *List) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(l, n, replacement, fields, params)
	}
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.combinations(n, replacement, fields, params, axis, depth)
}

func (l *List) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(l, target, clip)
	}
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.padNone(target, axis, depth, clip)
}

func (l *List) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	if axis == depth-1 {
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	}
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, nil, err
	}
	return lo.offsetsAndFlattened(axis, depth)
}

func (l *List) removeStructure() ([]Content, error) {
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.removeStructure()
}

func (l *List) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.sortNext(axis, depth, ascending, stable)
}

func (l *List) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.argsortNext(axis, depth, ascending, stable)
}

func (l *List) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.reduceNext(op, axis, depth)
}

func (l *List) ToPacked() (Content, error) {
	lo, err := l.toListOffset64(true)
	if err != nil {
		return nil, err
	}
	return lo.ToPacked()
}

func (l *List) ToList() (any, error) { return toListGeneric(l) }

func (l *List) Validity() error { return validityWalk(l, "layout") }

func (l *List) TouchData(recursive bool) {
	l.starts.TouchData()
	l.stops.TouchData()
	if recursive {
		l.content.TouchData(true)
	}
}

func (l *List) TouchShape(recursive bool) {
	l.starts.TouchShape()
	l.stops.TouchShape()
	if recursive {
		l.content.TouchShape(true)
	}
}
