package slicing

import (
	"fmt"

	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

// broadcastArrays stretches every flat index array in the expression to
// one common shape, trailing dimensions aligned, size-1 dimensions
// repeating. Arrays without concrete data are left alone; their lengths
// stay unknown.
func broadcastArrays(items []layout.SliceItem) ([]layout.SliceItem, error) {
	var at []int
	for i, it := range items {
		if _, ok := it.(layout.SliceArray); ok {
			at = append(at, i)
		}
	}
	if len(at) < 2 {
		return items, nil
	}
	shapes := make([][]int64, len(at))
	for k, i := range at {
		sa := items[i].(layout.SliceArray)
		if !sa.Values.KnownData() {
			return items, nil
		}
		shapes[k] = effectiveShape(sa)
	}
	common, err := commonShape(shapes)
	if err != nil {
		return nil, err
	}
	for k, i := range at {
		if shapeEq(shapes[k], common) {
			continue
		}
		sa := items[i].(layout.SliceArray)
		vals := expandTo(sa.Values.Data(), shapes[k], common)
		items[i] = layout.SliceArray{Values: index.Wrap(index.I64, vals), Shape: common}
	}
	return items, nil
}

func effectiveShape(sa layout.SliceArray) []int64 {
	if sa.Shape != nil {
		return sa.Shape
	}
	return []int64{sa.Values.Len().MustKnown()}
}

// commonShape folds shapes under the trailing-dimension rule: dimensions
// agree, or one of them is 1.
func commonShape(shapes [][]int64) ([]int64, error) {
	rank := 0
	for _, s := range shapes {
		if len(s) > rank {
			rank = len(s)
		}
	}
	out := make([]int64, rank)
	for i := range out {
		out[i] = 1
	}
	for _, s := range shapes {
		off := rank - len(s)
		for j, d := range s {
			switch {
			case out[off+j] == 1:
				out[off+j] = d
			case d == 1 || d == out[off+j]:
			default:
				return nil, fmt.Errorf("%w: cannot broadcast index array dimension %d against %d",
					layout.ErrIndexBounds, d, out[off+j])
			}
		}
	}
	return out, nil
}

// expandTo repeats vals of shape from into shape to, row-major. from must
// already broadcast against to.
func expandTo(vals []int64, from, to []int64) []int64 {
	total := int64(1)
	for _, d := range to {
		total *= d
	}
	out := make([]int64, total)
	off := len(to) - len(from)
	strides := make([]int64, len(from))
	st := int64(1)
	for j := len(from) - 1; j >= 0; j-- {
		strides[j] = st
		st *= from[j]
	}
	pos := make([]int64, len(to))
	for i := int64(0); i < total; i++ {
		src := int64(0)
		for j := range from {
			d := pos[off+j]
			if from[j] == 1 {
				d = 0
			}
			src += d * strides[j]
		}
		out[i] = vals[src]
		for j := len(to) - 1; j >= 0; j-- {
			pos[j]++
			if pos[j] < to[j] {
				break
			}
			pos[j] = 0
		}
	}
	return out
}

func shapeEq(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
