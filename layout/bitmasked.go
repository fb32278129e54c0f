package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// BitMasked is ByteMasked with the mask packed eight rows to a byte.
// lsbOrder selects whether row i lives in bit i%8 counted from the
// least or the most significant end of byte i/8. The row count cannot
// be recovered from the mask, so it is stored explicitly.
type BitMasked struct {
	bk        backend.Backend
	mask      *index.Index
	content   Content
	validWhen bool
	lsbOrder  bool
	length    shape.Length
	params    Parameters
	mn, mx    int
}

func NewBitMasked(mask *index.Index, content Content, validWhen, lsbOrder bool, length shape.Length, params Parameters) (*BitMasked, error) {
	switch content.(type) {
	case *Indexed, *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return nil, fmt.Errorf("%w: BitMaskedArray cannot hold %s directly", ErrInvalid, ClassOf(content))
	}
	if n, known := length.Known(); known {
		if nb, bytesKnown := mask.Len().Known(); bytesKnown && n > nb*8 {
			return nil, fmt.Errorf("%w: BitMaskedArray length %d exceeds %d mask bits", ErrInvalid, n, nb*8)
		}
		if cn, contentKnown := content.Length().Known(); contentKnown && cn < n {
			return nil, fmt.Errorf("%w: BitMaskedArray length %d exceeds content length %d", ErrInvalid, n, cn)
		}
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &BitMasked{
		bk:        content.Backend(),
		mask:      mask,
		content:   content,
		validWhen: validWhen,
		lsbOrder:  lsbOrder,
		length:    length,
		params:    params,
		mn:        mn,
		mx:        mx,
	}, nil
}

func (*BitMasked) contentNode() {}

func (m *BitMasked) Backend() backend.Backend { return m.bk }
func (m *BitMasked) Length() shape.Length     { return m.length }
func (m *BitMasked) Parameters() Parameters   { return m.params }
func (m *BitMasked) Fields() []string         { return m.content.Fields() }

func (m *BitMasked) Mask() *index.Index { return m.mask }
func (m *BitMasked) Content() Content   { return m.content }
func (m *BitMasked) ValidWhen() bool    { return m.validWhen }
func (m *BitMasked) LSBOrder() bool     { return m.lsbOrder }

func (m *BitMasked) WithParameters(params Parameters) Content {
	out := *m
	out.params = params
	return &out
}

func (m *BitMasked) Form() form.Form {
	return &form.BitMaskedForm{
		Mask:      m.mask.Kind(),
		Content:   m.content.Form(),
		ValidWhen: m.validWhen,
		LSBOrder:  m.lsbOrder,
		Params:    m.params,
	}
}

func (m *BitMasked) minmaxDepth() (int, int) { return m.mn, m.mx }

// toByteMasked unpacks the bits; every other operation goes through it.
func (m *BitMasked) toByteMasked() (*ByteMasked, error) {
	if m.mask.KnownData() {
		n, known := m.length.Known()
		if !known {
			return nil, fmt.Errorf("%w: BitMaskedArray with unknown length but known mask", ErrInvalid)
		}
		out := make([]int64, n)
		for i := int64(0); i < n; i++ {
			b := m.mask.At(i / 8)
			var bit int64
			if m.lsbOrder {
				bit = (b >> (i % 8)) & 1
			} else {
				bit = (b >> (7 - i%8)) & 1
			}
			out[i] = bit
		}
		return NewByteMasked(index.Wrap(index.I8, out), m.content, m.validWhen, m.params)
	}
	m.mask.TouchData()
	return NewByteMasked(index.Placeholder(index.I8, m.length, nil), m.content, m.validWhen, m.params)
}

func (m *BitMasked) ToIndexedOption() (*IndexedOption, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.ToIndexedOption()
}

func (m *BitMasked) GetItemAt(at int64) (any, error) {
	if n, known := m.length.Known(); known {
		var err error
		if at, err = normAt(at, n, "BitMaskedArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !m.mask.KnownData() {
		m.mask.TouchData()
		return m.content.GetItemAt(0)
	}
	b := m.mask.At(at / 8)
	var bit int64
	if m.lsbOrder {
		bit = (b >> (at % 8)) & 1
	} else {
		bit = (b >> (7 - at%8)) & 1
	}
	if (bit != 0) != m.validWhen {
		return nil, nil
	}
	return m.content.GetItemAt(at)
}

func (m *BitMasked) GetItemRange(start, stop int64) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.GetItemRange(start, stop)
}

func (m *BitMasked) GetItemField(name string) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.GetItemField(name)
}

func (m *BitMasked) GetItemFields(names []string) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.GetItemFields(names)
}

func (m *BitMasked) Carry(idx *index.Index, lazy bool) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.Carry(idx, lazy)
}

func (m *BitMasked) Mergeable(other Content, mergebool bool) bool {
	return m.content.Mergeable(other, mergebool)
}

func (m *BitMasked) mergeMany(others []Content) (Content, error) {
	io, err := m.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.mergeMany(others)
}

func (m *BitMasked) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
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
		bm, err := m.toByteMasked()
		if err != nil {
			return nil, err
		}
		return bm.getItemNext(head, tail, advanced)
	}
}

func (m *BitMasked) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (m *BitMasked) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(m)
	}
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.localIndex(axis, depth)
}

func (m *BitMasked) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(m, n, replacement, fields, params)
	}
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.combinations(n, replacement, fields, params, axis, depth)
}

func (m *BitMasked) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(m, target, clip)
	}
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.padNone(target, axis, depth, clip)
}

func (m *BitMasked) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, nil, err
	}
	return bm.offsetsAndFlattened(axis, depth)
}

func (m *BitMasked) removeStructure() ([]Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.removeStructure()
}

func (m *BitMasked) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.sortNext(axis, depth, ascending, stable)
}

func (m *BitMasked) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.argsortNext(axis, depth, ascending, stable)
}

func (m *BitMasked) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	bm, err := m.toByteMasked()
	if err != nil {
		return nil, err
	}
	return bm.reduceNext(op, axis, depth)
}

func (m *BitMasked) ToPacked() (Content, error) {
	sub, err := trimmed(m.content, m.length)
	if err != nil {
		return nil, err
	}
	packed, err := sub.ToPacked()
	if err != nil {
		return nil, err
	}
	mask := m.mask
	if n, known := m.length.Known(); known {
		if nb, bytesKnown := mask.Len().Known(); bytesKnown && nb > (n+7)/8 {
			mask = mask.Slice(0, (n+7)/8)
		}
	}
	return NewBitMasked(mask, packed, m.validWhen, m.lsbOrder, m.length, m.params)
}

func (m *BitMasked) ToList() (any, error) { return toListGeneric(m) }

func (m *BitMasked) Validity() error { return validityWalk(m, "layout") }

func (m *BitMasked) TouchData(recursive bool) {
	m.mask.TouchData()
	if recursive {
		m.content.TouchData(true)
	}
}

func (m *BitMasked) TouchShape(recursive bool) {
	m.mask.TouchShape()
	if recursive {
		m.content.TouchShape(true)
	}
}
