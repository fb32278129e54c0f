package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Indexed reorders or duplicates rows of its content without copying
// them: row i of the array is row idx[i] of the content. The content
// may not itself be an indexed or option kind.
type Indexed struct {
	bk      backend.Backend
	idx     *index.Index
	content Content
	params  Parameters
	mn, mx  int
}

func NewIndexed(idx *index.Index, content Content, params Parameters) (*Indexed, error) {
	switch content.(type) {
	case *Indexed, *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return nil, fmt.Errorf("%w: IndexedArray cannot hold %s directly", ErrInvalid, ClassOf(content))
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &Indexed{
		bk:      content.Backend(),
		idx:     idx,
		content: content,
		params:  params,
		mn:      mn,
		mx:      mx,
	}, nil
}

func (*Indexed) contentNode() {}

func (i *Indexed) Backend() backend.Backend { return i.bk }
func (i *Indexed) Length() shape.Length     { return i.idx.Len() }
func (i *Indexed) Parameters() Parameters   { return i.params }
func (i *Indexed) Fields() []string         { return i.content.Fields() }

func (i *Indexed) Index() *index.Index { return i.idx }
func (i *Indexed) Content() Content    { return i.content }

func (i *Indexed) WithParameters(params Parameters) Content {
	out := *i
	out.params = params
	return &out
}

func (i *Indexed) Form() form.Form {
	return &form.IndexedForm{Index: i.idx.Kind(), Content: i.content.Form(), Params: i.params}
}

func (i *Indexed) minmaxDepth() (int, int) { return i.mn, i.mx }

// project materializes the reordering.
func (i *Indexed) project() (Content, error) {
	out, err := i.content.Carry(i.idx, false)
	if err != nil {
		return nil, err
	}
	if len(i.params) == 0 {
		return out, nil
	}
	return out.WithParameters(paramsUnion(out.Parameters(), i.params)), nil
}

func (i *Indexed) GetItemAt(at int64) (any, error) {
	if n, known := i.Length().Known(); known {
		var err error
		if at, err = normAt(at, n, "IndexedArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	if !i.idx.KnownData() {
		i.idx.TouchData()
		return i.content.GetItemAt(0)
	}
	return i.content.GetItemAt(i.idx.At(at))
}

func (i *Indexed) GetItemRange(start, stop int64) (Content, error) {
	n, known := i.Length().Known()
	if !known {
		i.TouchShape(false)
		return i, nil
	}
	start, stop = clampRange(start, stop, n)
	return NewIndexed(i.idx.Slice(start, stop), i.content, i.params)
}

func (i *Indexed) GetItemField(name string) (Content, error) {
	sub, err := i.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexed(i.idx, sub, nil)
}

func (i *Indexed) GetItemFields(names []string) (Content, error) {
	sub, err := i.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return SimplifiedIndexed(i.idx, sub, nil)
}

func (i *Indexed) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, i.Length(), "IndexedArray")
	if err != nil {
		return nil, err
	}
	var next *index.Index
	if idx2.KnownData() && i.idx.KnownData() {
		pos := idx2.Data()
		out := make([]int64, len(pos))
		for k, v := range pos {
			out[k] = i.idx.At(v)
		}
		next = index.Wrap(index.I64, out)
	} else {
		idx2.TouchData()
		i.idx.TouchData()
		next = index.Placeholder(index.I64, idx2.Len(), nil)
	}
	return NewIndexed(next, i.content, i.params)
}

func (i *Indexed) Mergeable(other Content, mergebool bool) bool {
	return i.content.Mergeable(other, mergebool)
}

func (i *Indexed) mergeMany(others []Content) (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.mergeMany(others)
}

func (i *Indexed) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return i, nil
	case SliceField:
		return nextField(i, string(h), tail, advanced)
	case SliceFields:
		return nextFields(i, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(i, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(i, tail, advanced)
	default:
		p, err := i.project()
		if err != nil {
			return nil, err
		}
		return p.getItemNext(head, tail, advanced)
	}
}

func (i *Indexed) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
}

func (i *Indexed) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(i)
	}
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.localIndex(axis, depth)
}

func (i *Indexed) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(i, n, replacement, fields, params)
	}
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.combinations(n, replacement, fields, params, axis, depth)
}

func (i *Indexed) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(i, target, clip)
	}
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.padNone(target, axis, depth, clip)
}

func (i *Indexed) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, nil, err
	}
	return p.offsetsAndFlattened(axis, depth)
}

func (i *Indexed) removeStructure() ([]Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.removeStructure()
}

func (i *Indexed) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.sortNext(axis, depth, ascending, stable)
}

func (i *Indexed) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.argsortNext(axis, depth, ascending, stable)
}

func (i *Indexed) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.reduceNext(op, axis, depth)
}

func (i *Indexed) ToPacked() (Content, error) {
	p, err := i.project()
	if err != nil {
		return nil, err
	}
	return p.ToPacked()
}

func (i *Indexed) ToList() (any, error) { return toListGeneric(i) }

func (i *Indexed) Validity() error { return validityWalk(i, "layout") }

func (i *Indexed) TouchData(recursive bool) {
	i.idx.TouchData()
	if recursive {
		i.content.TouchData(true)
	}
}

func (i *Indexed) TouchShape(recursive bool) {
	i.idx.TouchShape()
	if recursive {
		i.content.TouchShape(true)
	}
}
