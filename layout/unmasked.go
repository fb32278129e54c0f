package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Unmasked declares its content option-type without storing a mask:
// every row is valid. It keeps types stable across operations that may
// or may not introduce missing rows.
type Unmasked struct {
	bk      backend.Backend
	content Content
	params  Parameters
	mn, mx  int
}

func NewUnmasked(content Content, params Parameters) (*Unmasked, error) {
	switch content.(type) {
	case *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return nil, fmt.Errorf("%w: UnmaskedArray cannot hold %s directly", ErrInvalid, ClassOf(content))
	}
	mn, mx, err := childDepth(content)
	if err != nil {
		return nil, err
	}
	return &Unmasked{bk: content.Backend(), content: content, params: params, mn: mn, mx: mx}, nil
}

// SimplifiedUnmasked wraps c unless it is already an option kind.
func SimplifiedUnmasked(c Content, params Parameters) (Content, error) {
	switch c.(type) {
	case *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return c, nil
	}
	return NewUnmasked(c, params)
}

func (*Unmasked) contentNode() {}

func (u *Unmasked) Backend() backend.Backend { return u.bk }
func (u *Unmasked) Length() shape.Length     { return u.content.Length() }
func (u *Unmasked) Parameters() Parameters   { return u.params }
func (u *Unmasked) Fields() []string         { return u.content.Fields() }

func (u *Unmasked) Content() Content { return u.content }

func (u *Unmasked) WithParameters(params Parameters) Content {
	out := *u
	out.params = params
	return &out
}

func (u *Unmasked) Form() form.Form {
	return &form.UnmaskedForm{Content: u.content.Form(), Params: u.params}
}

func (u *Unmasked) minmaxDepth() (int, int) { return u.mn, u.mx }

func (u *Unmasked) ToIndexedOption() (*IndexedOption, error) {
	if n, known := u.Length().Known(); known {
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(i)
		}
		return NewIndexedOption(index.Wrap(index.I64, out), u.content, u.params)
	}
	return NewIndexedOption(index.Placeholder(index.I64, u.Length(), nil), u.content, u.params)
}

func (u *Unmasked) GetItemAt(at int64) (any, error) {
	return u.content.GetItemAt(at)
}

func (u *Unmasked) GetItemRange(start, stop int64) (Content, error) {
	sub, err := u.content.GetItemRange(start, stop)
	if err != nil {
		return nil, err
	}
	return NewUnmasked(sub, u.params)
}

func (u *Unmasked) GetItemField(name string) (Content, error) {
	sub, err := u.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(sub, nil)
}

func (u *Unmasked) GetItemFields(names []string) (Content, error) {
	sub, err := u.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(sub, nil)
}

func (u *Unmasked) Carry(idx *index.Index, lazy bool) (Content, error) {
	sub, err := u.content.Carry(idx, lazy)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(sub, u.params)
}

func (u *Unmasked) Mergeable(other Content, mergebool bool) bool {
	return u.content.Mergeable(other, mergebool)
}

func (u *Unmasked) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return u, nil
	}
	allUnmasked := true
	for _, c := range others {
		if _, ok := c.(*Unmasked); !ok {
			allUnmasked = false
			break
		}
	}
	if allUnmasked {
		params := u.params
		inner := make([]Content, len(others))
		for i, c := range others {
			um := c.(*Unmasked)
			params = paramsIntersect(params, um.params)
			inner[i] = um.content
		}
		merged, err := u.content.mergeMany(inner)
		if err != nil {
			return nil, err
		}
		return SimplifiedUnmasked(merged, params)
	}
	io, err := u.ToIndexedOption()
	if err != nil {
		return nil, err
	}
	return io.mergeMany(others)
}

func (u *Unmasked) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
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
		out, err := u.content.getItemNext(head, tail, advanced)
		if err != nil {
			return nil, err
		}
		return SimplifiedUnmasked(out, u.params)
	}
}

func (u *Unmasked) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	out, err := u.content.getItemNextJagged(slicestarts, slicestops, slicecontent, tail)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(out, u.params)
}

func (u *Unmasked) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(u)
	}
	out, err := u.content.localIndex(axis, depth)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(out, u.params)
}

func (u *Unmasked) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(u, n, replacement, fields, params)
	}
	out, err := u.content.combinations(n, replacement, fields, params, axis, depth)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(out, u.params)
}

func (u *Unmasked) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(u, target, clip)
	}
	out, err := u.content.padNone(target, axis, depth, clip)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(out, u.params)
}

func (u *Unmasked) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	return u.content.offsetsAndFlattened(axis, depth)
}

func (u *Unmasked) removeStructure() ([]Content, error) {
	return u.content.removeStructure()
}

func (u *Unmasked) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	out, err := u.content.sortNext(axis, depth, ascending, stable)
	if err != nil {
		return nil, err
	}
	return SimplifiedUnmasked(out, u.params)
}

func (u *Unmasked) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	return u.content.argsortNext(axis, depth, ascending, stable)
}

func (u *Unmasked) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	return u.content.reduceNext(op, axis, depth)
}

func (u *Unmasked) ToPacked() (Content, error) {
	packed, err := u.content.ToPacked()
	if err != nil {
		return nil, err
	}
	return NewUnmasked(packed, u.params)
}

func (u *Unmasked) ToList() (any, error) { return u.content.ToList() }

func (u *Unmasked) Validity() error { return validityWalk(u, "layout") }

func (u *Unmasked) TouchData(recursive bool) {
	if recursive {
		u.content.TouchData(true)
	}
}

func (u *Unmasked) TouchShape(recursive bool) {
	if recursive {
		u.content.TouchShape(true)
	}
}
