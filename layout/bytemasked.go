package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// ByteMasked marks missing rows with one mask byte per row. A row is
// valid when (mask[i] != 0) == validWhen; the content is aligned by
// position, so valid row i is content row i.
type ByteMasked struct {
	bk        backend.Backend
	mask      *index.Index
	content   Content
	validWhen bool
	params    Parameters
	mn, mx    int
}

func NewByteMasked(mask *index.Index, content Content, validWhen bool, params Parameters) (*ByteMasked, error) {
	switch content.(type) {
	case *Indexed, *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return nil, fmt.Errorf("%w: ByteMaskedArray cannot hold %s directly", ErrInvalid, ClassOf(content))
	}
	if mn, maskKnown := mask.Len().Known(); maskKnown {
		if cn, contentKnown := content.Length().Known(); contentKnown && cn < mn {
			return nil, fmt.Errorf("%w: ByteMaskedArray mask length %d exceeds content length %d", ErrInvalid, mn, cn)
		}
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &ByteMasked{
		bk:        content.Backend(),
		mask:      mask,
		content:   content,
		validWhen: validWhen,
		params:    params,
		mn:        mn,
		mx:        mx,
	}, nil
}

func (*ByteMasked) contentNode() {}

func (m *ByteMasked) Backend() backend.Backend { return m.bk }
func (m *ByteMasked) Length() shape.Length     { return m.mask.Len() }
func (m *ByteMasked) Parameters() Parameters   { return m.params }
func (m *ByteMasked) Fields() []string         { return m.content.Fields() }

func (m *ByteMasked) Mask() *index.Index { return m.mask }
func (m *ByteMasked) Content() Content   { return m.content }
func (m *ByteMasked) ValidWhen() bool    { return m.validWhen }

func (m *ByteMasked) WithParameters(params Parameters) Content {
	out := *m
	out.params = params
	return &out
}

func (m *ByteMasked) Form() form.Form {
	return &form.ByteMaskedForm{
		Mask:      m.mask.Kind(),
		Content:   m.content.Form(),
		ValidWhen: m.validWhen,
		Params:    m.params,
	}
}

func (m *ByteMasked) minmaxDepth() (int, int) { return m.mn, m.mx }

func (m *ByteMasked) validAt(at int64) bool {
	return (m.mask.At(at) != 0) == m.validWhen
}

// ToIndexedOption rewrites the mask as an index that keeps valid rows
// at their own positions and sets -1 elsewhere.
func (m *ByteMasked) ToIndexedOption() (*IndexedOption, error) {
	if m.mask.KnownData() {
		vals := m.mask.Data()
		out := make([]int64, len(vals))
		for i, v := range vals {
			if (v != 0) == m.validWhen {
				out[i] = int64(i)
			} else {
				out[i] = -1
			}
		}
		return NewIndexedOption(index.Wrap(index.I64, out), m.content, m.params)
	}
	m.mask.TouchData()
	return NewIndexedOption(index.Placeholder(index.I64, m.mask.Len(), nil), m.content, m.params)
}

func (m *ByteMasked) GetItemAt(at int64) (any, error) {
	if n, known := m.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "ByteMaskedArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !m.mask.KnownData() {
		m.mask.TouchData()
		return m.content.GetItemAt(0)
	}
	if !m.validAt(at) {
		return nil, nil
	}
	return m.content.GetItemAt(at)
}

func (m *ByteMasked) GetItemRange(start, stop int64) (Content, error) {
	n, known := m.Length().Known()
	if !known {
		m.TouchShape(false)
		return m, nil
	}
	start, stop = clampRange(start, stop, n)
	sub, err := m.content.GetItemRange(start, stop)
	if err != nil {
		return nil, err
	}
	return NewByteMasked(m.mask.Slice(start, stop), sub, m.validWhen, m.params)
}

func (m *ByteMasked) GetItemField(name string) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.GetItemField(name)
}

func (m *ByteMasked) GetItemFields(names []string) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.GetItemFields(names)
}

func (m *ByteMasked) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, m.Length(), "ByteMaskedArray")
	if err != nil {
		return nil, err
	}
	var nextmask *index.Index
	if idx2.KnownData() && m.mask.KnownData() {
		pos := idx2.Data()
		out := make([]int64, len(pos))
		for k, v := range pos {
			out[k] = m.mask.At(v)
		}
		nextmask = index.Wrap(index.I8, out)
	} else {
		idx2.TouchData()
		m.mask.TouchData()
		nextmask = index.Placeholder(index.I8, idx2.Len(), nil)
	}
	sub, err := m.content.Carry(idx2, lazy)
	if err != nil {
		return nil, err
	}
	return NewByteMasked(nextmask, sub, m.validWhen, m.params)
}

func (m *ByteMasked) Mergeable(other Content, mergebool bool) bool {
	return m.content.Mergeable(other, mergebool)
}

func (m *ByteMasked) mergeMany(others []Content) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.mergeMany(others)
}

func (m *ByteMasked) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return m, nil
	case SliceField:
		return nextField(m, string(h), tail, advanced)
	case SliceFields:
		return nextFields(m, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(m, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(m, tail, advanced)
	default:
		io, err := m.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return io.getItemNext(head, tail, advanced)
	}
}

func (m *ByteMasked) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (m *ByteMasked) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(m)
	}
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.localIndex(axis, depth)
}

func (m *ByteMasked) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(m, n, replacement, fields, params)
	}
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.combinations(n, replacement, fields, params, axis, depth)
}

func (m *ByteMasked) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(m, target, clip)
	}
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.padNone(target, axis, depth, clip)
}

func (m *ByteMasked) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, nil, err
	}
	return io.offsetsAndFlattened(axis, depth)
}

func (m *ByteMasked) removeStructure() ([]Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.removeStructure()
}

func (m *ByteMasked) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.sortNext(axis, depth, ascending, stable)
}

func (m *ByteMasked) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.argsortNext(axis, depth, ascending, stable)
}

func (m *ByteMasked) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.reduceNext(op, axis, depth)
}

func (m *ByteMasked) ToPacked() (Content, error) {
	sub, err := trimmed(m.content, m.Length())
	if err != nil {
		return nil, err
	}
	packed, err := sub.ToPacked()
	if err != nil {
		return nil, err
	}
	return NewByteMasked(m.mask, packed, m.validWhen, m.params)
}

func (m *ByteMasked) ToList() (any, error) { return toListGeneric(m) }

func (m *ByteMasked) Validity() error { return validityWalk(m, "layout") }

func (m *ByteMasked) TouchData(recursive bool) {
	m.mask.TouchData()
	if recursive {
		m.content.TouchData(true)
	}
}

func (m *ByteMasked) TouchShape(recursive bool) {
	m.mask.TouchShape()
	if recursive {
		m.content.TouchShape(true)
	}
}
