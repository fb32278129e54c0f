package layout

import (
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// GetItem applies a whole slice expression to c. A scalar result comes
// back as a Go value, anything with remaining structure as a Content.
// Items must already be in canonical form; x[a][b] and x[a, b] agree
// whenever both are defined.
func GetItem(c Content, items ...SliceItem) (any, error) {
	if len(items) == 0 {
		return c, nil
	}
	if len(items) == 1 {
		switch h := items[0].(type) {
		case SliceAt:
			return c.GetItemAt(int64(h))
		case SliceRange:
			if h.Step == SliceNone || h.Step == 1 {
				if n, known := c.Length().Known(); known {
					start, _, _, count, err := h.regularize(n)
					if err != nil {
						return nil, err
					}
					return c.GetItemRange(start, start+count)
				}
			}
		case SliceField:
			return c.GetItemField(string(h))
		case SliceFields:
			return c.GetItemFields([]string(h))
		}
	}
	head, tail := headTail(items)
	wrapped, err := wrapForSlice(c)
	if err != nil {
		return nil, err
	}
	out, err := wrapped.getItemNext(head, tail, nil)
	if err != nil {
		return nil, err
	}
	if n, known := out.Length().Known(); known && n == 0 {
		if reg, ok := out.(*Regular); ok {
			return reg.content.GetItemRange(0, 0)
		}
		return getItemNothing(out)
	}
	return out.GetItemAt(0)
}

// wrapForSlice puts one artificial row around the whole array so that
// slice items always index within a window. With an unknown length the
// window bounds are data, so a placeholder offset list stands in for the
// fixed-size row.
func wrapForSlice(c Content) (Content, error) {
	if n, known := c.Length().Known(); known {
		return NewRegular(c, n, 1, nil)
	}
	c.TouchShape(false)
	return NewListOffset(index.Placeholder(index.I64, shape.Of(2), nil), c, nil)
}

// getItemNextArrayWrap folds an advanced-index result back into the
// regular dimensions of the index array's shape, innermost first.
func getItemNextArrayWrap(out Content, shp []int64, outerLength int64) (Content, error) {
	for i := len(shp) - 1; i >= 0; i-- {
		length := outerLength
		if i > 0 {
			length = shp[i-1]
		}
		var err error
		out, err = NewRegular(out, shp[i], length, nil)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
