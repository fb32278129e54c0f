package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Parameters is re-exported so trees and forms share one metadata type.
type Parameters = form.Parameters

// MaxDepth bounds tree nesting; constructors reject anything deeper.
const MaxDepth = form.MaxDepth

// UnknownValue is what GetItemAt yields in the shape-only regime where a
// concrete tree would have yielded a scalar.
type UnknownValue struct {
	Type string
}

func (u UnknownValue) String() string { return "??" + u.Type }

// Content is one node of a layout tree. The interface is sealed: the
// twelve kinds in this package are the only implementations, so every
// operation is total over node kinds by construction. Kinds without
// meaningful semantics for an operation decline it with ErrUnsupported.
//
// Package-level functions (GetItem, Concatenate, Flatten, Sort, ...) are
// the entry points for the recursive operations; the unexported methods
// they dispatch through are not callable from outside.
type Content interface {
	contentNode()

	Backend() backend.Backend
	Length() shape.Length
	Parameters() Parameters
	// WithParameters returns the same node with replaced parameters.
	WithParameters(Parameters) Content
	// Form describes the node without its data. Form keys are left empty;
	// the buffer codec assigns them.
	Form() form.Form
	// Fields names the record fields reachable through wrapper nodes, nil
	// when there are none.
	Fields() []string

	// GetItemAt resolves one row: a scalar for leaves, a Content for
	// nested rows, *RecordRow for records, nil for a missing value.
	// Negative positions count from the end.
	GetItemAt(at int64) (any, error)
	// GetItemRange narrows to [start, stop) with Python clamping
	// semantics. Views alias the receiver's buffers; nothing is copied.
	GetItemRange(start, stop int64) (Content, error)
	GetItemField(name string) (Content, error)
	GetItemFields(names []string) (Content, error)

	// Carry gathers rows by position. When lazy is true a kind may wrap
	// itself in indirection instead of materializing the gather.
	Carry(idx *index.Index, lazy bool) (Content, error)

	// Mergeable reports whether Concatenate of the two can succeed
	// without a union; mergebool additionally lets bool unify with
	// numeric types.
	Mergeable(other Content, mergebool bool) bool

	// ToPacked drops unreachable slack and redundant indirection.
	// Applying it twice equals applying it once.
	ToPacked() (Content, error)
	// ToList materializes the nested value; shape-only trees refuse.
	ToList() (any, error)
	// Validity deep-checks the structural invariants that constructors
	// defer on, cross-buffer bounds mostly, with node-path context.
	Validity() error

	TouchData(recursive bool)
	TouchShape(recursive bool)

	minmaxDepth() (int, int)
	getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error)
	getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error)
	mergeMany(others []Content) (Content, error)
	localIndex(axis, depth int) (Content, error)
	combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error)
	padNone(target int64, axis, depth int, clip bool) (Content, error)
	offsetsAndFlattened(axis, depth int) (*index.Index, Content, error)
	removeStructure() ([]Content, error)
	sortNext(axis, depth int, ascending, stable bool) (Content, error)
	argsortNext(axis, depth int, ascending, stable bool) (Content, error)
	reduceNext(op backend.ReduceOp, axis, depth int) (Content, error)
}

// headTail splits the next slice item off; head is nil when exhausted.
func headTail(items []SliceItem) (SliceItem, []SliceItem) {
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], items[1:]
}

func childDepth(c Content) (int, int, error) {
	mn, mx := c.minmaxDepth()
	if mx+1 > MaxDepth {
		return 0, 0, fmt.Errorf("%w: deeper than %d", ErrDepthLimit, MaxDepth)
	}
	return mn, mx, nil
}

// resolveAxis turns a possibly-negative axis into a non-negative one.
// Negative axes need an unambiguous tree depth.
func resolveAxis(c Content, axis int) (int, error) {
	mn, mx := c.minmaxDepth()
	if axis >= 0 {
		return axis, nil
	}
	if mn != mx {
		return 0, fmt.Errorf("%w: negative axis %d on a tree of depths %d..%d",
			ErrStructuralType, axis, mn, mx)
	}
	resolved := mx + axis
	if resolved < 0 {
		return 0, fmt.Errorf("%w: axis %d exceeds the depth of this array (%d)", ErrStructuralType, axis, mx)
	}
	return resolved, nil
}

func errAxisDepth(axis, depth int) error {
	return fmt.Errorf("%w: axis %d exceeds the depth of this array (%d)", ErrStructuralType, axis, depth)
}

// normAt wraps one negative position and bounds-checks it against a known
// length.
func normAt(at, length int64, kind string) (int64, error) {
	orig := at
	if at < 0 {
		at += length
	}
	if at < 0 || at >= length {
		return 0, fmt.Errorf("%w: position %d in %s of length %d", ErrIndexBounds, orig, kind, length)
	}
	return at, nil
}

// clampRange applies Python slice semantics for a unit-step [start, stop).
func clampRange(start, stop, length int64) (int64, int64) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	if stop < start {
		stop = start
	}
	if stop > length {
		stop = length
	}
	return start, stop
}

// paramsIntersect keeps key/value pairs present and equal on both sides.
func paramsIntersect(a, b Parameters) Parameters {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out Parameters
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		if (Parameters{k: av}).Equal(Parameters{k: bv}) {
			if out == nil {
				out = Parameters{}
			}
			out[k] = av
		}
	}
	return out
}

// paramsUnion overlays over onto under; over wins on conflicts.
func paramsUnion(under, over Parameters) Parameters {
	if len(over) == 0 {
		return under
	}
	if len(under) == 0 {
		return over
	}
	out := under.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// typeParamsEqual compares only the parameters that affect a node's type
// identity for merging purposes.
func typeParamsEqual(a, b Parameters) bool {
	for _, key := range []string{"__array__", "__record__"} {
		av, aok := a[key]
		bv, bok := b[key]
		if aok != bok {
			return false
		}
		if aok && !(Parameters{key: av}).Equal(Parameters{key: bv}) {
			return false
		}
	}
	return true
}

// mergeableGeneric handles the pairings every kind treats alike: empties
// and unions always merge; indirection and option layers on the other side
// defer to their content.
func mergeableGeneric(self, other Content, mergebool bool) (handled, ok bool) {
	switch o := other.(type) {
	case *Empty:
		return true, true
	case *Union:
		return true, true
	case *Indexed:
		return true, self.Mergeable(o.content, mergebool)
	case *IndexedOption:
		return true, self.Mergeable(o.content, mergebool)
	case *ByteMasked:
		return true, self.Mergeable(o.content, mergebool)
	case *BitMasked:
		return true, self.Mergeable(o.content, mergebool)
	case *Unmasked:
		return true, self.Mergeable(o.content, mergebool)
	}
	return false, false
}

// commonFields intersects field lists preserving the first list's order;
// nil when any side has none.
func commonFields(lists [][]string) []string {
	if len(lists) == 0 {
		return nil
	}
	out := lists[0]
	for _, l := range lists[1:] {
		if out == nil || l == nil {
			return nil
		}
		have := make(map[string]bool, len(l))
		for _, f := range l {
			have[f] = true
		}
		kept := make([]string, 0, len(out))
		for _, f := range out {
			if have[f] {
				kept = append(kept, f)
			}
		}
		out = kept
	}
	return out
}

// nextField continues descent after selecting one field.
func nextField(c Content, name string, tail []SliceItem, advanced *index.Index) (Content, error) {
	sel, err := c.GetItemField(name)
	if err != nil {
		return nil, err
	}
	head, rest := headTail(tail)
	return sel.getItemNext(head, rest, advanced)
}

// nextFields continues descent after restricting to several fields.
func nextFields(c Content, names []string, tail []SliceItem, advanced *index.Index) (Content, error) {
	sel, err := c.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	head, rest := headTail(tail)
	return sel.getItemNext(head, rest, advanced)
}

// nextNewAxis inserts a length-1 regular dimension around whatever the
// rest of the expression produces.
func nextNewAxis(c Content, tail []SliceItem, advanced *index.Index) (Content, error) {
	head, rest := headTail(tail)
	out, err := c.getItemNext(head, rest, advanced)
	if err != nil {
		return nil, err
	}
	return NewRegular(out, 1, 0, nil)
}

// nextEllipsis expands an ellipsis to as many full ranges as the remaining
// structural items leave unclaimed.
func nextEllipsis(c Content, tail []SliceItem, advanced *index.Index) (Content, error) {
	mn, mx := c.minmaxDepth()
	dims := 0
	for _, item := range tail {
		switch item.(type) {
		case SliceAt, SliceRange, SliceArray:
			dims++
		}
	}
	switch {
	case len(tail) == 0 || (mn-1 == dims && mx-1 == dims):
		head, rest := headTail(tail)
		return c.getItemNext(head, rest, advanced)
	case mn-1 == dims || mx-1 == dims:
		return nil, fmt.Errorf("%w: ellipsis cannot be used on a data structure of different depths (%d..%d)",
			ErrStructuralType, mn, mx)
	default:
		full := SliceRange{Start: SliceNone, Stop: SliceNone, Step: 1}
		rest := append([]SliceItem{SliceEllipsis{}}, tail...)
		return c.getItemNext(full, rest, advanced)
	}
}

// nextMissing applies a sentinel-bearing index head: the gather runs on the
// non-missing positions and the result is rewrapped so sentinels stay
// missing, positionally.
func nextMissing(c Content, head *IndexedOption, tail []SliceItem, advanced *index.Index) (Content, error) {
	if advanced != nil {
		return nil, fmt.Errorf("%w: cannot mix missing values in slice with NumPy-style slicing", ErrIncompatibleMode)
	}
	switch inner := head.content.(type) {
	case *ListOffset:
		return nextMissingJagged(c, head, inner, tail)
	case *Primitive:
		headIdx, err := sliceIndexOf(inner)
		if err != nil {
			return nil, err
		}
		out, err := c.getItemNext(SliceArray{Values: headIdx}, tail, advanced)
		if err != nil {
			return nil, err
		}
		switch o := out.(type) {
		case *Regular:
			opt, err := SimplifiedIndexedOption(head.idx, o.content, nil)
			if err != nil {
				return nil, err
			}
			return NewRegular(opt, head.idx.Len().Or(1), 1, nil)
		case *Record:
			contents := make([]Content, len(o.contents))
			for i, field := range o.contents {
				if reg, okReg := field.(*Regular); okReg {
					opt, err := SimplifiedIndexedOption(head.idx, reg.content, nil)
					if err != nil {
						return nil, err
					}
					contents[i], err = NewRegular(opt, head.idx.Len().Or(1), 1, nil)
					if err != nil {
						return nil, err
					}
				} else {
					opt, err := SimplifiedIndexedOption(head.idx, field, nil)
					if err != nil {
						return nil, err
					}
					contents[i] = opt
				}
			}
			return NewRecord(contents, o.fields, o.Length(), nil)
		default:
			return SimplifiedIndexedOption(head.idx, out, nil)
		}
	default:
		return nil, fmt.Errorf("%w: expected integer positions under a missing-value slice, not %T",
			ErrStructuralType, head.content)
	}
}

// nextMissingJagged handles a jagged slice whose outer rows may be
// missing: missing rows select nothing and surface as missing rows.
func nextMissingJagged(c Content, head *IndexedOption, jagged *ListOffset, tail []SliceItem) (Content, error) {
	if n, known := c.Length().Known(); known && n != 1 {
		return nil, fmt.Errorf("%w: optional jagged slice on a node of length %d", ErrUnsupported, n)
	}
	row, err := c.GetItemAt(0)
	if err != nil {
		return nil, err
	}
	content, okC := row.(Content)
	if !okC {
		return nil, fmt.Errorf("%w: optional jagged slice into a leaf", ErrStructuralType)
	}
	bk := c.Backend()
	hn := head.idx.Len()

	var starts, stops, outindex *index.Index
	if bk.KnownData() {
		n := hn.MustKnown()
		if cn, known := content.Length().Known(); known && cn < n {
			return nil, fmt.Errorf("%w: jagged slice length %d exceeds array length %d", ErrIndexBounds, n, cn)
		}
		sData := make([]int64, n)
		pData := make([]int64, n)
		oData := make([]int64, n)
		for i := int64(0); i < n; i++ {
			j := head.idx.At(i)
			if j < 0 {
				sData[i], pData[i], oData[i] = 0, 0, -1
			} else {
				sData[i] = jagged.offsets.At(j)
				pData[i] = jagged.offsets.At(j + 1)
				oData[i] = i
			}
		}
		starts, stops, outindex = index.Wrap(index.I64, sData), index.Wrap(index.I64, pData), index.Wrap(index.I64, oData)
	} else {
		head.idx.TouchData()
		jagged.offsets.TouchData()
		starts = index.Placeholder(index.I64, hn, nil)
		stops = index.Placeholder(index.I64, hn, nil)
		outindex = index.Placeholder(index.I64, hn, nil)
	}

	next, err := content.getItemNextJagged(starts, stops, jagged.content, tail)
	if err != nil {
		return nil, err
	}
	opt, err := SimplifiedIndexedOption(outindex, next, nil)
	if err != nil {
		return nil, err
	}
	return NewRegular(opt, hn.Or(1), 1, nil)
}

// sliceIndexOf reads a flat int64 slice leaf as an Index, deferring to a
// placeholder in the shape-only regime.
func sliceIndexOf(p *Primitive) (*index.Index, error) {
	if !p.data.KnownData() {
		p.data.TouchData()
		return index.Placeholder(index.I64, p.data.Len(), nil), nil
	}
	n := p.data.Len().MustKnown()
	vals := make([]int64, n)
	for i := int64(0); i < n; i++ {
		vals[i] = p.data.Int(i)
	}
	return index.Wrap(index.I64, vals), nil
}

// regularizeCarry wraps negative carry positions and bounds-checks against
// a known length; placeholders pass through untouched.
func regularizeCarry(idx *index.Index, length shape.Length, kind string) (*index.Index, error) {
	if !idx.KnownData() {
		return idx, nil
	}
	n, known := length.Known()
	if !known {
		return idx, nil
	}
	data := idx.Data()
	needsCopy := false
	for _, v := range data {
		if v < 0 {
			needsCopy = true
		}
		if v < -n || v >= n {
			return nil, fmt.Errorf("%w: position %d in %s of length %d", ErrIndexBounds, v, kind, n)
		}
	}
	if !needsCopy {
		return idx, nil
	}
	out := make([]int64, len(data))
	for i, v := range data {
		if v < 0 {
			v += n
		}
		out[i] = v
	}
	return index.Wrap(index.I64, out), nil
}

// trimmed is a bounds-safe prefix view.
func trimmed(c Content, n shape.Length) (Content, error) {
	k, known := n.Known()
	if !known {
		return c, nil
	}
	return c.GetItemRange(0, k)
}

func getItemNothing(c Content) (Content, error) { return c.GetItemRange(0, 0) }

// mustLen is for paths already behind a KnownData guard.
func mustLen(c Content) int64 { return c.Length().MustKnown() }

// ClassOf names a node's kind the way Forms and error messages spell it.
func ClassOf(c Content) string {
	switch c.(type) {
	case *Empty:
		return "EmptyArray"
	case *Primitive:
		return "NumpyArray"
	case *Regular:
		return "RegularArray"
	case *List:
		return "ListArray"
	case *ListOffset:
		return "ListOffsetArray"
	case *Indexed:
		return "IndexedArray"
	case *IndexedOption:
		return "IndexedOptionArray"
	case *ByteMasked:
		return "ByteMaskedArray"
	case *BitMasked:
		return "BitMaskedArray"
	case *Unmasked:
		return "UnmaskedArray"
	case *Record:
		return "RecordArray"
	case *Union:
		return "UnionArray"
	}
	return fmt.Sprintf("%T", c)
}
