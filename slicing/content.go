package slicing

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/shape"
)

// normalizeContent resolves a layout tree used as an index. Flat integer
// leaves become index arrays, boolean leaves become the positions where
// true, list nesting becomes a jagged item, and option layers become
// missing positions.
func normalizeContent(c layout.Content) ([]layout.SliceItem, error) {
	c, err := stripIndirection(c)
	if err != nil {
		return nil, err
	}
	if opt, ok, err := maskToOption(c); err != nil {
		return nil, err
	} else if ok {
		item, err := normalizeMissing(opt)
		if err != nil {
			return nil, err
		}
		return []layout.SliceItem{item}, nil
	}
	switch v := c.(type) {
	case *layout.Empty:
		return []layout.SliceItem{layout.SliceArray{Values: index.Wrap(index.I64, []int64{})}}, nil
	case *layout.Primitive:
		return normalizeFlat(v)
	case *layout.Regular:
		return normalizeRegular(v)
	case *layout.ListOffset:
		canon, err := normalizeJagged(v)
		if err != nil {
			return nil, err
		}
		return []layout.SliceItem{layout.SliceContent{Content: canon}}, nil
	case *layout.List:
		lo, err := asOffsets(v)
		if err != nil {
			return nil, err
		}
		canon, err := normalizeJagged(lo)
		if err != nil {
			return nil, err
		}
		return []layout.SliceItem{layout.SliceContent{Content: canon}}, nil
	default:
		return nil, fmt.Errorf("%w: cannot index with %s", layout.ErrStructuralType, layout.ClassOf(c))
	}
}

// stripIndirection projects Indexed layers and unwraps Unmasked ones;
// neither carries information an index needs.
func stripIndirection(c layout.Content) (layout.Content, error) {
	for {
		switch v := c.(type) {
		case *layout.Indexed:
			proj, err := v.Content().Carry(v.Index(), false)
			if err != nil {
				return nil, err
			}
			c = proj
		case *layout.Unmasked:
			c = v.Content()
		default:
			return c, nil
		}
	}
}

// maskToOption views any missing-value layer as an IndexedOption.
func maskToOption(c layout.Content) (*layout.IndexedOption, bool, error) {
	switch v := c.(type) {
	case *layout.IndexedOption:
		return v, true, nil
	case *layout.ByteMasked:
		io, err := v.ToIndexedOption()
		return io, err == nil, err
	case *layout.BitMasked:
		io, err := v.ToIndexedOption()
		return io, err == nil, err
	}
	return nil, false, nil
}

// normalizeFlat resolves a leaf array: integers index directly, booleans
// select the positions where true. A multi-dimensional boolean leaf yields
// one coordinate array per dimension.
func normalizeFlat(p *layout.Primitive) ([]layout.SliceItem, error) {
	switch {
	case p.DType().IsInteger():
		vals, err := intIndexOf(p)
		if err != nil {
			return nil, err
		}
		if len(p.InnerShape()) == 0 {
			return []layout.SliceItem{layout.SliceArray{Values: vals}}, nil
		}
		n, known := p.Length().Known()
		if !known {
			return []layout.SliceItem{layout.SliceArray{Values: vals}}, nil
		}
		dims := append([]int64{n}, p.InnerShape()...)
		return []layout.SliceItem{layout.SliceArray{Values: vals, Shape: dims}}, nil
	case p.DType().IsBool():
		if len(p.InnerShape()) == 0 {
			nz, err := p.Backend().Nonzero(p.Data())
			if err != nil {
				return nil, err
			}
			return []layout.SliceItem{layout.SliceArray{Values: nz}}, nil
		}
		return boolCoordinates(p)
	default:
		return nil, fmt.Errorf("%w: cannot index with a %s array", layout.ErrStructuralType, p.DType())
	}
}

// intIndexOf reads an integer leaf into a 64-bit index, deferring to a
// placeholder in the shape-only regime.
func intIndexOf(p *layout.Primitive) (*index.Index, error) {
	buf := p.Data()
	if !buf.KnownData() {
		buf.TouchData()
		return index.Placeholder(index.I64, buf.Len(), nil), nil
	}
	n := buf.Len().MustKnown()
	vals := make([]int64, n)
	for i := int64(0); i < n; i++ {
		vals[i] = buf.Int(i)
	}
	return index.Wrap(index.I64, vals), nil
}

// boolCoordinates unravels a rectangular boolean leaf into one coordinate
// array per dimension, row-major.
func boolCoordinates(p *layout.Primitive) ([]layout.SliceItem, error) {
	rank := len(p.InnerShape()) + 1
	buf := p.Data()
	if !buf.KnownData() {
		buf.TouchData()
		out := make([]layout.SliceItem, rank)
		for d := range out {
			out[d] = layout.SliceArray{Values: index.Placeholder(index.I64, shape.Unknown(), nil)}
		}
		return out, nil
	}
	nz, err := p.Backend().Nonzero(buf)
	if err != nil {
		return nil, err
	}
	dims := append([]int64{p.Length().MustKnown()}, p.InnerShape()...)
	pos := nz.Data()
	coords := make([][]int64, rank)
	for d := range coords {
		coords[d] = make([]int64, len(pos))
	}
	for i, f := range pos {
		rem := f
		for d := rank - 1; d >= 0; d-- {
			coords[d][i] = rem % dims[d]
			rem /= dims[d]
		}
	}
	out := make([]layout.SliceItem, rank)
	for d := range out {
		out[d] = layout.SliceArray{Values: index.Wrap(index.I64, coords[d])}
	}
	return out, nil
}

// normalizeRegular turns a rectangular integer array into one shaped index
// array; any other regular layout is handled through its offsets view.
func normalizeRegular(r *layout.Regular) ([]layout.SliceItem, error) {
	packed, err := r.ToPacked()
	if err != nil {
		return nil, err
	}
	if reg, ok := packed.(*layout.Regular); ok {
		if dims, leaf, rect := rectangularInts(reg); rect {
			vals, err := intIndexOf(leaf)
			if err != nil {
				return nil, err
			}
			return []layout.SliceItem{layout.SliceArray{Values: vals, Shape: dims}}, nil
		}
		r = reg
	}
	lo, err := asOffsets(r)
	if err != nil {
		return nil, err
	}
	return normalizeContent(lo)
}

// rectangularInts walks a chain of regular dimensions down to an integer
// leaf, collecting the full shape. Any other structure reports false.
func rectangularInts(r *layout.Regular) ([]int64, *layout.Primitive, bool) {
	n, known := r.Length().Known()
	if !known {
		return nil, nil, false
	}
	dims := []int64{n, r.Size()}
	cur := r.Content()
	for {
		reg, ok := cur.(*layout.Regular)
		if !ok {
			break
		}
		dims = append(dims, reg.Size())
		cur = reg.Content()
	}
	p, ok := cur.(*layout.Primitive)
	if !ok || !p.DType().IsInteger() {
		return nil, nil, false
	}
	dims = append(dims, p.InnerShape()...)
	return dims, p, true
}

// asOffsets views any list kind through a single offsets array.
func asOffsets(c layout.Content) (*layout.ListOffset, error) {
	switch v := c.(type) {
	case *layout.ListOffset:
		return v, nil
	case *layout.List:
		packed, err := v.ToPacked()
		if err != nil {
			return nil, err
		}
		lo, ok := packed.(*layout.ListOffset)
		if !ok {
			return nil, fmt.Errorf("%w: packing a ListArray produced %s", layout.ErrStructuralType, layout.ClassOf(packed))
		}
		return lo, nil
	case *layout.Regular:
		n, known := v.Length().Known()
		if !known {
			offs := index.Placeholder(index.I64, shape.Unknown(), nil)
			return layout.NewListOffset(offs, v.Content(), nil)
		}
		offs := make([]int64, n+1)
		for i := range offs {
			offs[i] = int64(i) * v.Size()
		}
		sub, err := v.Content().GetItemRange(0, n*v.Size())
		if err != nil {
			return nil, err
		}
		return layout.NewListOffset(index.Wrap(index.I64, offs), sub, nil)
	default:
		return nil, fmt.Errorf("%w: %s has no offsets view", layout.ErrStructuralType, layout.ClassOf(c))
	}
}

// normalizeJagged rewrites one list level of an index into canonical form:
// offsets over a deeper canonical list, integer positions, or compacted
// missing positions whose valid entries point at consecutive payload rows.
func normalizeJagged(lo *layout.ListOffset) (*layout.ListOffset, error) {
	content, err := stripIndirection(lo.Content())
	if err != nil {
		return nil, err
	}
	if opt, ok, err := maskToOption(content); err != nil {
		return nil, err
	} else if ok {
		inner, err := stripIndirection(opt.Content())
		if err != nil {
			return nil, err
		}
		switch leaf := inner.(type) {
		case *layout.Primitive:
			switch {
			case leaf.DType().IsBool():
				return boolRaggedToInt(lo.Offsets(), opt.Index(), leaf)
			case leaf.DType().IsInteger():
				compact, err := compactOption(opt.Index(), leaf)
				if err != nil {
					return nil, err
				}
				return layout.NewListOffset(lo.Offsets(), compact, nil)
			}
		case *layout.ListOffset, *layout.List, *layout.Regular:
			jag, err := asOffsets(inner)
			if err != nil {
				return nil, err
			}
			canon, err := normalizeJagged(jag)
			if err != nil {
				return nil, err
			}
			opt2, err := layout.NewIndexedOption(opt.Index(), canon, nil)
			if err != nil {
				return nil, err
			}
			return layout.NewListOffset(lo.Offsets(), opt2, nil)
		}
		return nil, fmt.Errorf("%w: cannot index with missing %s values", layout.ErrStructuralType, layout.ClassOf(inner))
	}
	switch v := content.(type) {
	case *layout.Primitive:
		switch {
		case v.DType().IsBool():
			return boolRaggedToInt(lo.Offsets(), nil, v)
		case v.DType().IsInteger():
			if len(v.InnerShape()) > 0 {
				return nil, fmt.Errorf("%w: fixed-shape integer leaves inside a jagged index", layout.ErrStructuralType)
			}
			if layout.Content(v) == lo.Content() {
				return lo, nil
			}
			return layout.NewListOffset(lo.Offsets(), v, nil)
		default:
			return nil, fmt.Errorf("%w: cannot index with a %s array", layout.ErrStructuralType, v.DType())
		}
	case *layout.ListOffset:
		canon, err := normalizeJagged(v)
		if err != nil {
			return nil, err
		}
		if canon == v {
			return lo, nil
		}
		return layout.NewListOffset(lo.Offsets(), canon, nil)
	case *layout.List, *layout.Regular:
		jag, err := asOffsets(content)
		if err != nil {
			return nil, err
		}
		canon, err := normalizeJagged(jag)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffset(lo.Offsets(), canon, nil)
	default:
		return nil, fmt.Errorf("%w: cannot index with %s inside lists", layout.ErrStructuralType, layout.ClassOf(content))
	}
}

// boolRaggedToInt converts one boolean list level to local integer
// positions: true keeps its local position, false drops, and a missing
// entry stays missing at its slot. Sublist boundaries are recomputed from
// the kept counts. optIdx is nil when the leaf carries no missingness.
func boolRaggedToInt(offsets, optIdx *index.Index, leaf *layout.Primitive) (*layout.ListOffset, error) {
	buf := leaf.Data()
	known := offsets.KnownData() && buf.KnownData() && (optIdx == nil || optIdx.KnownData())
	if !known {
		offsets.TouchData()
		buf.TouchData()
		if optIdx != nil {
			optIdx.TouchData()
		}
		newOffs := index.Placeholder(index.I64, offsets.Len(), nil)
		prim, err := placeholderPositions(leaf.Backend())
		if err != nil {
			return nil, err
		}
		if optIdx == nil {
			return layout.NewListOffset(newOffs, prim, nil)
		}
		oi := index.Placeholder(index.I64, shape.Unknown(), nil)
		opt, err := layout.NewIndexedOption(oi, prim, nil)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffset(newOffs, opt, nil)
	}
	n := offsets.Len().MustKnown() - 1
	newOffs := make([]int64, n+1)
	positions := []int64{}
	outIdx := []int64{}
	for i := int64(0); i < n; i++ {
		cnt := int64(0)
		for j := offsets.At(i); j < offsets.At(i+1); j++ {
			p := j - offsets.At(i)
			if optIdx != nil && optIdx.At(j) < 0 {
				outIdx = append(outIdx, -1)
				cnt++
				continue
			}
			at := j
			if optIdx != nil {
				at = optIdx.At(j)
			}
			if !buf.Bool(at) {
				continue
			}
			if optIdx != nil {
				outIdx = append(outIdx, int64(len(positions)))
			}
			positions = append(positions, p)
			cnt++
		}
		newOffs[i+1] = newOffs[i] + cnt
	}
	prim, err := layout.NewPrimitive(leaf.Backend(), backend.Of(positions), nil, nil)
	if err != nil {
		return nil, err
	}
	if optIdx == nil {
		return layout.NewListOffset(index.Wrap(index.I64, newOffs), prim, nil)
	}
	opt, err := layout.NewIndexedOption(index.Wrap(index.I64, outIdx), prim, nil)
	if err != nil {
		return nil, err
	}
	return layout.NewListOffset(index.Wrap(index.I64, newOffs), opt, nil)
}

// compactOption rewrites an option layer over integers so that valid
// entries point at consecutive rows of a dense payload.
func compactOption(optIdx *index.Index, leaf *layout.Primitive) (*layout.IndexedOption, error) {
	buf := leaf.Data()
	if !optIdx.KnownData() || !buf.KnownData() {
		optIdx.TouchData()
		buf.TouchData()
		prim, err := placeholderPositions(leaf.Backend())
		if err != nil {
			return nil, err
		}
		oi := index.Placeholder(index.I64, optIdx.Len(), nil)
		return layout.NewIndexedOption(oi, prim, nil)
	}
	n := optIdx.Len().MustKnown()
	outIdx := make([]int64, n)
	payload := []int64{}
	for j := int64(0); j < n; j++ {
		v := optIdx.At(j)
		if v < 0 {
			outIdx[j] = -1
			continue
		}
		outIdx[j] = int64(len(payload))
		payload = append(payload, buf.Int(v))
	}
	prim, err := layout.NewPrimitive(leaf.Backend(), backend.Of(payload), nil, nil)
	if err != nil {
		return nil, err
	}
	return layout.NewIndexedOption(index.Wrap(index.I64, outIdx), prim, nil)
}

// normalizeMissing resolves a flat option layer used as an index: integer
// entries select, missing entries stay missing, and boolean entries keep
// their own position when true.
func normalizeMissing(opt *layout.IndexedOption) (layout.SliceItem, error) {
	inner, err := stripIndirection(opt.Content())
	if err != nil {
		return nil, err
	}
	switch leaf := inner.(type) {
	case *layout.Primitive:
		switch {
		case leaf.DType().IsInteger():
			compact, err := compactOption(opt.Index(), leaf)
			if err != nil {
				return nil, err
			}
			return layout.SliceContent{Content: compact}, nil
		case leaf.DType().IsBool():
			compact, err := missingBoolPositions(opt.Index(), leaf)
			if err != nil {
				return nil, err
			}
			return layout.SliceContent{Content: compact}, nil
		}
	case *layout.ListOffset, *layout.List, *layout.Regular:
		jag, err := asOffsets(inner)
		if err != nil {
			return nil, err
		}
		canon, err := normalizeJagged(jag)
		if err != nil {
			return nil, err
		}
		withJagged, err := layout.NewIndexedOption(opt.Index(), canon, nil)
		if err != nil {
			return nil, err
		}
		return layout.SliceContent{Content: withJagged}, nil
	}
	return nil, fmt.Errorf("%w: cannot index with missing %s values", layout.ErrStructuralType, layout.ClassOf(inner))
}

// missingBoolPositions converts a flat option-of-boolean index: true keeps
// its own position, false drops, missing stays missing.
func missingBoolPositions(optIdx *index.Index, leaf *layout.Primitive) (*layout.IndexedOption, error) {
	buf := leaf.Data()
	if !optIdx.KnownData() || !buf.KnownData() {
		optIdx.TouchData()
		buf.TouchData()
		prim, err := placeholderPositions(leaf.Backend())
		if err != nil {
			return nil, err
		}
		oi := index.Placeholder(index.I64, shape.Unknown(), nil)
		return layout.NewIndexedOption(oi, prim, nil)
	}
	n := optIdx.Len().MustKnown()
	outIdx := []int64{}
	payload := []int64{}
	for i := int64(0); i < n; i++ {
		v := optIdx.At(i)
		if v < 0 {
			outIdx = append(outIdx, -1)
			continue
		}
		if !buf.Bool(v) {
			continue
		}
		outIdx = append(outIdx, int64(len(payload)))
		payload = append(payload, i)
	}
	prim, err := layout.NewPrimitive(leaf.Backend(), backend.Of(payload), nil, nil)
	if err != nil {
		return nil, err
	}
	return layout.NewIndexedOption(index.Wrap(index.I64, outIdx), prim, nil)
}

// placeholderPositions is a shape-only stand-in for a computed positions
// leaf.
func placeholderPositions(bk backend.Backend) (*layout.Primitive, error) {
	data := backend.Placeholder(dtype.Int64, shape.Unknown(), nil, nil)
	return layout.NewPrimitive(bk, data, nil, nil)
}
