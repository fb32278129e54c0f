package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Flatten removes one list dimension at axis. axis=0 instead removes
// missing rows (and nothing else), since the outermost dimension is not a
// list that could be dissolved.
func Flatten(c Content, axis int) (Content, error) {
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	if ax == 0 {
		return flattenAxis0(c)
	}
	_, flat, err := c.offsetsAndFlattened(ax, 1)
	if err != nil {
		return nil, err
	}
	return flat, nil
}

// Ravel flattens all dimensions and drops missing values, leaving flat
// leaves. Record fields are raveled side by side.
func Ravel(c Content) (Content, error) {
	parts, err := c.removeStructure()
	if err != nil {
		return nil, err
	}
	switch len(parts) {
	case 0:
		return NewEmpty(c.Backend(), nil), nil
	case 1:
		return parts[0], nil
	}
	return Concatenate(parts)
}

// RemoveStructure returns the flat leaves of the tree in field order,
// without concatenating them.
func RemoveStructure(c Content) ([]Content, error) {
	return c.removeStructure()
}

// LocalIndex enumerates positions within each window of the dimension at
// axis: 0, 1, 2, ... restarting at every row.
func LocalIndex(c Content, axis int) (Content, error) {
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.localIndex(ax, 1)
}

// Combinations forms all n-tuples of distinct elements (or with
// replacement) drawn from each window of the dimension at axis, as a list
// of records. fields, when non-nil, names the record slots and must have
// exactly n entries.
func Combinations(c Content, n int64, replacement bool, fields []string, params Parameters, axis int) (Content, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: combinations need n >= 1, got %d", ErrInvalid, n)
	}
	if fields != nil && int64(len(fields)) != n {
		return nil, fmt.Errorf("%w: combinations of %d need %d field names, got %d",
			ErrInvalid, n, n, len(fields))
	}
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.combinations(n, replacement, fields, params, ax, 1)
}

// PadNone lengthens each window of the dimension at axis to at least
// target elements by appending missing values. With clip, every window is
// cut or padded to exactly target.
func PadNone(c Content, target int64, axis int, clip bool) (Content, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: pad target must be non-negative, got %d", ErrInvalid, target)
	}
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.padNone(target, ax, 1, clip)
}

// Sort orders the values inside each window of the innermost dimension,
// which must be the one at axis.
func Sort(c Content, axis int, ascending, stable bool) (Content, error) {
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.sortNext(ax, 1, ascending, stable)
}

// ArgSort is Sort but yields the within-window positions that would order
// the values.
func ArgSort(c Content, axis int, ascending, stable bool) (Content, error) {
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.argsortNext(ax, 1, ascending, stable)
}

// Reduce collapses the innermost dimension, which must be the one at
// axis, to one value per window. Min and Max mark empty windows missing;
// Count, Sum, Any and All use their identities.
func Reduce(c Content, op backend.ReduceOp, axis int) (Content, error) {
	ax, err := resolveAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return c.reduceNext(op, ax, 1)
}

// flattenAxis0 drops missing rows at the top level. Wrappers that carry
// no missing values dissolve along the way.
func flattenAxis0(c Content) (Content, error) {
	for {
		switch x := c.(type) {
		case *Indexed:
			p, err := x.project()
			if err != nil {
				return nil, err
			}
			c = p
		case *IndexedOption:
			p, err := x.project()
			if err != nil {
				return nil, err
			}
			c = p
		case *ByteMasked:
			io, err := x.ToIndexedOption()
			if err != nil {
				return nil, err
			}
			c = io
		case *BitMasked:
			io, err := x.ToIndexedOption()
			if err != nil {
				return nil, err
			}
			c = io
		case *Unmasked:
			c = x.content
		case *Union:
			return flattenUnionAxis0(x)
		default:
			return c, nil
		}
	}
}

// flattenUnionAxis0 keeps the union but filters out rows whose selected
// content is missing. Order is preserved.
func flattenUnionAxis0(u *Union) (Content, error) {
	anyOption := false
	probes := make([]*index.Index, len(u.contents))
	for t, cc := range u.contents {
		switch oc := cc.(type) {
		case *IndexedOption:
			probes[t] = oc.idx
			anyOption = true
		case *ByteMasked:
			io, err := oc.ToIndexedOption()
			if err != nil {
				return nil, err
			}
			probes[t] = io.idx
			anyOption = true
		case *BitMasked:
			io, err := oc.ToIndexedOption()
			if err != nil {
				return nil, err
			}
			probes[t] = io.idx
			anyOption = true
		}
	}
	if !anyOption {
		return u, nil
	}
	if u.bk.KnownData() {
		n := mustLen(u)
		keep := make([]int64, 0, n)
		for i := int64(0); i < n; i++ {
			t := u.tags.At(i)
			if pr := probes[t]; pr != nil && pr.At(u.idx.At(i)) < 0 {
				continue
			}
			keep = append(keep, i)
		}
		return u.Carry(index.Wrap(index.I64, keep), false)
	}
	u.TouchData(false)
	return u.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), false)
}

// localIndexAxis0 enumerates this level's rows as a flat int64 leaf.
func localIndexAxis0(c Content) (Content, error) {
	bk := c.Backend()
	if bk.KnownData() {
		n := mustLen(c)
		vals := make([]int64, n)
		for i := range vals {
			vals[i] = int64(i)
		}
		return NewPrimitive(bk, backend.Of(vals), nil, nil)
	}
	c.TouchShape(false)
	return NewPrimitive(bk, bk.Empty(dtype.Int64, c.Length()), nil, nil)
}

// combinationsAxis0 draws n-tuples from the whole array: one record of n
// parallel carries per combination.
func combinationsAxis0(c Content, n int64, replacement bool, fields []string, params Parameters) (Content, error) {
	bk := c.Backend()
	if !bk.KnownData() {
		c.TouchShape(false)
		contents := make([]Content, n)
		for k := range contents {
			carried, err := c.Carry(index.Placeholder(index.I64, shape.Unknown(), nil), true)
			if err != nil {
				return nil, err
			}
			contents[k] = carried
		}
		return NewRecordIn(bk, contents, fields, shape.Unknown(), params)
	}
	length := mustLen(c)
	total := combinationCount(length, n, replacement)
	carries := make([][]int64, n)
	for k := range carries {
		carries[k] = make([]int64, 0, total)
	}
	emitCombinations(0, length, n, replacement, func(tuple []int64) {
		for k, v := range tuple {
			carries[k] = append(carries[k], v)
		}
	})
	contents := make([]Content, n)
	for k := range contents {
		carried, err := c.Carry(index.Wrap(index.I64, carries[k]), true)
		if err != nil {
			return nil, err
		}
		contents[k] = carried
	}
	return NewRecordIn(bk, contents, fields, shape.Of(total), params)
}

// combinationCount is binomial(count, n), or binomial(count+n-1, n) with
// replacement.
func combinationCount(count, n int64, replacement bool) int64 {
	if replacement {
		count += n - 1
	}
	if n < 0 || n > count {
		return 0
	}
	// The running product is exact: after multiplying i+1 consecutive
	// values it is divisible by (i+1)!.
	total := int64(1)
	for i := int64(0); i < n; i++ {
		total = total * (count - i) / (i + 1)
	}
	return total
}

// emitCombinations calls emit once per ascending n-tuple of positions in
// [start, start+count). The tuple slice is reused between calls.
func emitCombinations(start, count, n int64, replacement bool, emit func([]int64)) {
	tuple := make([]int64, n)
	var walk func(k int64, from int64)
	walk = func(k, from int64) {
		if k == n {
			emit(tuple)
			return
		}
		for v := from; v < start+count; v++ {
			tuple[k] = v
			if replacement {
				walk(k+1, v)
			} else {
				walk(k+1, v+1)
			}
		}
	}
	walk(0, start)
}

// padAxis0 pads this level's rows with missing slots. The result is
// option-typed even when nothing was added.
func padAxis0(c Content, target int64, clip bool) (Content, error) {
	bk := c.Backend()
	if bk.KnownData() {
		length := mustLen(c)
		size := target
		if !clip && length > target {
			size = length
		}
		vals := make([]int64, size)
		for i := range vals {
			if int64(i) < length {
				vals[i] = int64(i)
			} else {
				vals[i] = -1
			}
		}
		return SimplifiedIndexedOption(index.Wrap(index.I64, vals), c, nil)
	}
	c.TouchShape(false)
	ln := shape.Of(target)
	if !clip {
		if n, known := c.Length().Known(); known {
			if n > target {
				ln = shape.Of(n)
			}
		} else {
			ln = shape.Unknown()
		}
	}
	return SimplifiedIndexedOption(index.Placeholder(index.I64, ln, nil), c, nil)
}

// sortRuns sorts a flat leaf within each [runs[i], runs[i+1]) window.
func sortRuns(bk backend.Backend, p *Primitive, runs *index.Index, ascending, stable bool) (Content, error) {
	perm, err := bk.ArgSortRanges(p.data, runs, ascending, stable)
	if err != nil {
		return nil, err
	}
	buf, err := bk.Gather(p.data, perm)
	if err != nil {
		return nil, err
	}
	return NewPrimitive(bk, buf, nil, p.params)
}

// argsortRuns yields, per window, the local positions that would sort it.
func argsortRuns(bk backend.Backend, p *Primitive, runs *index.Index, ascending, stable bool) (Content, error) {
	perm, err := bk.ArgSortRanges(p.data, runs, ascending, stable)
	if err != nil {
		return nil, err
	}
	if !perm.KnownData() || !runs.KnownData() {
		return NewPrimitive(bk, bk.Empty(dtype.Int64, perm.Len()), nil, nil)
	}
	// The backend permutation is in global positions; rebase each window
	// to its own start.
	out := make([]int64, 0, perm.Len().Or(0))
	nruns := runs.Len().MustKnown()
	k := int64(0)
	for r := int64(0); r+1 < nruns; r++ {
		lo, hi := runs.At(r), runs.At(r+1)
		for j := lo; j < hi; j++ {
			out = append(out, perm.At(k)-lo)
			k++
		}
	}
	return NewPrimitive(bk, backend.Of(out), nil, nil)
}

// reduceRuns collapses each window to one value. Min and Max cannot
// invent an identity, so empty windows come back masked.
func reduceRuns(bk backend.Backend, op backend.ReduceOp, p *Primitive, runs *index.Index) (Content, error) {
	buf, err := bk.ReduceRanges(op, p.data, runs)
	if err != nil {
		return nil, err
	}
	out, err := NewPrimitive(bk, buf, nil, nil)
	if err != nil {
		return nil, err
	}
	if op != backend.ReduceMin && op != backend.ReduceMax {
		return out, nil
	}
	if !runs.KnownData() {
		return NewByteMasked(index.Placeholder(index.I8, out.Length(), nil), out, true, nil)
	}
	nruns := runs.Len().MustKnown()
	mask := make([]int64, nruns-1)
	for r := int64(0); r+1 < nruns; r++ {
		if runs.At(r+1) > runs.At(r) {
			mask[r] = 1
		}
	}
	return NewByteMasked(index.Wrap(index.I8, mask), out, true, nil)
}

// sortListTarget sorts the flat content of a list dimension within each
// offsets window. Record fields sort independently over the same windows.
func sortListTarget(bk backend.Backend, offsets *index.Index, content Content, ascending, stable bool) (Content, error) {
	switch x := content.(type) {
	case *Primitive:
		if len(x.inner) > 0 {
			return nil, fmt.Errorf("%w: cannot sort fixed-size rows at this axis", ErrUnsupported)
		}
		return sortRuns(bk, x, offsets, ascending, stable)
	case *Empty:
		return x, nil
	case *Indexed:
		sub, err := x.project()
		if err != nil {
			return nil, err
		}
		return sortListTarget(bk, offsets, sub, ascending, stable)
	case *Unmasked:
		out, err := sortListTarget(bk, offsets, x.content, ascending, stable)
		if err != nil {
			return nil, err
		}
		return NewUnmasked(out, x.params)
	case *Record:
		if len(x.contents) == 0 {
			return nil, fmt.Errorf("%w: cannot sort a record with no fields", ErrUnsupported)
		}
		outs := make([]Content, len(x.contents))
		for i, cc := range x.contents {
			sub, err := trimmed(cc, x.length)
			if err != nil {
				return nil, err
			}
			out, err := sortListTarget(bk, offsets, sub, ascending, stable)
			if err != nil {
				return nil, err
			}
			outs[i] = out
		}
		return NewRecordIn(x.bk, outs, x.fields, x.length, x.params)
	case *IndexedOption, *ByteMasked, *BitMasked:
		return nil, fmt.Errorf("%w: cannot sort missing values", ErrUnsupported)
	case *Union:
		return nil, fmt.Errorf("%w: cannot sort an irreducible union", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: cannot sort %s values within lists", ErrUnsupported, ClassOf(content))
	}
}

// argsortListTarget is sortListTarget for positions instead of values.
func argsortListTarget(bk backend.Backend, offsets *index.Index, content Content, ascending, stable bool) (Content, error) {
	switch x := content.(type) {
	case *Primitive:
		if len(x.inner) > 0 {
			return nil, fmt.Errorf("%w: cannot argsort fixed-size rows at this axis", ErrUnsupported)
		}
		return argsortRuns(bk, x, offsets, ascending, stable)
	case *Empty:
		return NewPrimitive(bk, bk.Empty(dtype.Int64, shape.Of(0)), nil, nil)
	case *Indexed:
		sub, err := x.project()
		if err != nil {
			return nil, err
		}
		return argsortListTarget(bk, offsets, sub, ascending, stable)
	case *Unmasked:
		return argsortListTarget(bk, offsets, x.content, ascending, stable)
	case *Record:
		return nil, fmt.Errorf("%w: cannot argsort records", ErrUnsupported)
	case *IndexedOption, *ByteMasked, *BitMasked:
		return nil, fmt.Errorf("%w: cannot argsort missing values", ErrUnsupported)
	case *Union:
		return nil, fmt.Errorf("%w: cannot argsort an irreducible union", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: cannot argsort %s values within lists", ErrUnsupported, ClassOf(content))
	}
}

// reduceListTarget reduces the flat content of a list dimension to one
// value per offsets window, removing that dimension.
func reduceListTarget(bk backend.Backend, op backend.ReduceOp, offsets *index.Index, content Content) (Content, error) {
	switch x := content.(type) {
	case *Primitive:
		if len(x.inner) > 0 {
			return nil, fmt.Errorf("%w: cannot reduce fixed-size rows at this axis", ErrUnsupported)
		}
		return reduceRuns(bk, op, x, offsets)
	case *Empty:
		flat, err := x.toFloat64()
		if err != nil {
			return nil, err
		}
		return reduceRuns(bk, op, flat, offsets)
	case *Indexed:
		sub, err := x.project()
		if err != nil {
			return nil, err
		}
		return reduceListTarget(bk, op, offsets, sub)
	case *Unmasked:
		return reduceListTarget(bk, op, offsets, x.content)
	case *Record:
		return nil, fmt.Errorf("%w: cannot reduce records", ErrUnsupported)
	case *IndexedOption, *ByteMasked, *BitMasked:
		return nil, fmt.Errorf("%w: cannot reduce missing values at this axis", ErrUnsupported)
	case *Union:
		return nil, fmt.Errorf("%w: cannot reduce an irreducible union", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: cannot reduce %s values within lists", ErrUnsupported, ClassOf(content))
	}
}
