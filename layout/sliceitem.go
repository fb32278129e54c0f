package layout

import (
	"fmt"
	"math"

	"github.com/ragged-format/go-ragged/index"
)

// SliceNone marks an omitted bound in a SliceRange.
const SliceNone = math.MinInt64

// SliceItem is one element of a slice expression. The set is closed:
// SliceAt, SliceRange, SliceField, SliceFields, SliceNewAxis,
// SliceEllipsis, SliceArray, and SliceContent.
type SliceItem interface {
	sliceItem()
}

// SliceAt picks one position, negative counting from the end. It removes
// a dimension.
type SliceAt int64

// SliceRange keeps [Start, Stop) with the given step, SliceNone leaving a
// bound open. Step must not be zero.
type SliceRange struct {
	Start int64
	Stop  int64
	Step  int64
}

// SliceField projects a record field and removes no dimension.
type SliceField string

// SliceFields restricts a record to the named fields, keeping order.
type SliceFields []string

// SliceNewAxis inserts a length-1 regular dimension.
type SliceNewAxis struct{}

// SliceEllipsis expands to as many full ranges as needed to line the
// remaining items up with the deepest axis.
type SliceEllipsis struct{}

// SliceArray is an integer-array item: Values holds the flattened
// positions and Shape their rectangular arrangement. All array items in
// one expression broadcast together.
type SliceArray struct {
	Values *index.Index
	Shape  []int64
}

// SliceContent is a ragged item: a list-of-int64 layout whose lists pick
// positions per sublist, with missing entries passing missing through.
type SliceContent struct {
	Content Content
}

func (SliceAt) sliceItem()       {}
func (SliceRange) sliceItem()    {}
func (SliceField) sliceItem()    {}
func (SliceFields) sliceItem()   {}
func (SliceNewAxis) sliceItem()  {}
func (SliceEllipsis) sliceItem() {}
func (SliceArray) sliceItem()    {}
func (SliceContent) sliceItem()  {}

// NumValues reports how many positions the item's flattened Values hold.
func (s SliceArray) NumValues() int64 {
	n := int64(1)
	for _, d := range s.Shape {
		n *= d
	}
	return n
}

// regularize resolves a SliceRange against a known length, returning the
// concrete start, stop, step, and the number of kept positions.
func (s SliceRange) regularize(length int64) (start, stop, step, count int64, err error) {
	step = s.Step
	if step == SliceNone {
		step = 1
	}
	if step == 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: slice step cannot be zero", ErrInvalid)
	}
	start, stop = s.Start, s.Stop
	if step > 0 {
		if start == SliceNone {
			start = 0
		} else if start < 0 {
			start += length
		}
		if stop == SliceNone {
			stop = length
		} else if stop < 0 {
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
		count = (stop - start + step - 1) / step
		return start, stop, step, count, nil
	}
	if start == SliceNone {
		start = length - 1
	} else if start < 0 {
		start += length
	}
	if stop == SliceNone {
		stop = -1
	} else if stop < 0 {
		stop += length
		if stop < 0 {
			stop = -1
		}
	}
	if start >= length {
		start = length - 1
	}
	if stop > start {
		stop = start
	}
	if start < -1 {
		start = -1
	}
	if stop < -1 {
		stop = -1
	}
	count = (stop - start + step + 1) / step
	if count < 0 {
		count = 0
	}
	return start, stop, step, count, nil
}
