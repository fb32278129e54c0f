package slicing

import (
	"errors"
	"fmt"
	"math"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/debug"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

// ErrIncompatibleIndexingMode: one expression asked for both jagged or
// missing indexing and flat advanced indexing.
var ErrIncompatibleIndexingMode = errors.New("incompatible indexing modes")

// Range is a half-open [Start, Stop) selection with a step. A nil bound is
// open; a nil step means 1. The zero Range keeps everything.
type Range struct {
	Start *int64
	Stop  *int64
	Step  *int64
}

// Span returns the Range [start, stop) with step 1.
func Span(start, stop int64) Range {
	return Range{Start: &start, Stop: &stop}
}

// By returns a copy of r with the given step.
func (r Range) By(step int64) Range {
	r.Step = &step
	return r
}

func (r Range) item() layout.SliceRange {
	out := layout.SliceRange{Start: layout.SliceNone, Stop: layout.SliceNone, Step: layout.SliceNone}
	if r.Start != nil {
		out.Start = *r.Start
	}
	if r.Stop != nil {
		out.Stop = *r.Stop
	}
	if r.Step != nil {
		out.Step = *r.Step
	}
	return out
}

// NewAxis inserts a length-1 regular dimension.
type NewAxis struct{}

// Ellipsis stands for as many full ranges as the expression leaves open.
type Ellipsis struct{}

// Normalize resolves a user index expression into canonical slice items.
// Raw Go slices are materialized through b; layout trees used as indexes
// keep their own backend. One input item can yield several canonical items:
// a multi-dimensional boolean array becomes one coordinate array per
// dimension.
func Normalize(b backend.Backend, items []any) ([]layout.SliceItem, error) {
	out := make([]layout.SliceItem, 0, len(items))
	for _, item := range items {
		its, err := normalizeOne(b, item)
		if err != nil {
			return nil, err
		}
		out = append(out, its...)
	}
	if err := checkModes(out); err != nil {
		return nil, err
	}
	return broadcastArrays(out)
}

// Slice applies a whole user index expression to c. Scalar results come
// back as Go values, structured ones as a Content.
func Slice(c layout.Content, items ...any) (any, error) {
	norm, err := Normalize(c.Backend(), items)
	if err != nil {
		return nil, err
	}
	if debug.Slice() {
		debug.Logf("slice: %d items, %d canonical\n", len(items), len(norm))
	}
	return layout.GetItem(c, norm...)
}

func normalizeOne(b backend.Backend, item any) ([]layout.SliceItem, error) {
	if it, ok := item.(layout.SliceItem); ok {
		return []layout.SliceItem{it}, nil
	}
	if at, ok, err := asInt(item); err != nil {
		return nil, err
	} else if ok {
		return []layout.SliceItem{layout.SliceAt(at)}, nil
	}
	switch v := item.(type) {
	case Range:
		return []layout.SliceItem{v.item()}, nil
	case NewAxis:
		return []layout.SliceItem{layout.SliceNewAxis{}}, nil
	case Ellipsis:
		return []layout.SliceItem{layout.SliceEllipsis{}}, nil
	case string:
		return []layout.SliceItem{layout.SliceField(v)}, nil
	case []string:
		return []layout.SliceItem{layout.SliceFields(v)}, nil
	case []int64:
		return []layout.SliceItem{layout.SliceArray{Values: index.CopyOf(index.I64, v)}}, nil
	case []int:
		vals := make([]int64, len(v))
		for i, x := range v {
			vals[i] = int64(x)
		}
		return []layout.SliceItem{layout.SliceArray{Values: index.Wrap(index.I64, vals)}}, nil
	case []bool:
		nz, err := b.Nonzero(backend.Of(v))
		if err != nil {
			return nil, err
		}
		return []layout.SliceItem{layout.SliceArray{Values: nz}}, nil
	case layout.Content:
		return normalizeContent(v)
	case nil:
		return nil, fmt.Errorf("%w: cannot index with nil", layout.ErrStructuralType)
	default:
		return nil, fmt.Errorf("%w: cannot index with %T", layout.ErrStructuralType, item)
	}
}

func asInt(item any) (int64, bool, error) {
	switch v := item.(type) {
	case int:
		return int64(v), true, nil
	case int8:
		return int64(v), true, nil
	case int16:
		return int64(v), true, nil
	case int32:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case uint:
		return int64(v), true, nil
	case uint8:
		return int64(v), true, nil
	case uint16:
		return int64(v), true, nil
	case uint32:
		return int64(v), true, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, false, fmt.Errorf("%w: index %d overflows", layout.ErrIndexBounds, v)
		}
		return int64(v), true, nil
	}
	return 0, false, nil
}

// checkModes rejects expressions whose items cannot run in one descent:
// at most one jagged or missing index, never next to flat index arrays,
// and flat index arrays must form one contiguous group.
func checkModes(items []layout.SliceItem) error {
	structured, arrays := 0, 0
	for _, it := range items {
		switch it.(type) {
		case layout.SliceContent:
			structured++
		case layout.SliceArray:
			arrays++
		}
	}
	if structured > 1 {
		return fmt.Errorf("%w: only one jagged or missing index per expression", ErrIncompatibleIndexingMode)
	}
	if structured == 1 && arrays > 0 {
		return fmt.Errorf("%w: cannot mix a jagged or missing index with flat index arrays", ErrIncompatibleIndexingMode)
	}
	seen, split := false, false
	for _, it := range items {
		switch it.(type) {
		case layout.SliceArray, layout.SliceContent:
			if split {
				return fmt.Errorf("%w: index arrays separated by a range, ellipsis, or new axis", layout.ErrStructuralType)
			}
			seen = true
		case layout.SliceRange, layout.SliceNewAxis, layout.SliceEllipsis:
			if seen {
				split = true
			}
		}
	}
	return nil
}
