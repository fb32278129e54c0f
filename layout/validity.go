package layout

import "fmt"

// validityWalk re-checks the structural invariants of a finished tree:
// offsets that run forward, indexes and tags that stay in range, masks
// and fields that are long enough. Checks that would read buffer data
// are skipped where the data is unknown.
func validityWalk(c Content, path string) error {
	switch x := c.(type) {
	case *Empty:
		return nil

	case *Primitive:
		stride := int64(1)
		for _, d := range x.inner {
			stride *= d
		}
		n, known := x.length.Known()
		bn, bknown := x.data.Len().Known()
		if known && bknown && bn < n*stride {
			return fmt.Errorf("%w: at %s: buffer holds %d elements but the shape needs %d",
				ErrInvalid, path, bn, n*stride)
		}
		return nil

	case *Regular:
		if n, ok := x.length.Known(); ok {
			if cn, ok := x.content.Length().Known(); ok && cn < n*x.size {
				return fmt.Errorf("%w: at %s: content of length %d cannot fill %d rows of size %d",
					ErrInvalid, path, cn, n, x.size)
			}
		}
		return validityWalk(x.content, path+".content")

	case *ListOffset:
		if x.offsets.KnownData() {
			n := x.offsets.Len().MustKnown()
			if n < 1 {
				return fmt.Errorf("%w: at %s: offsets need at least one entry", ErrInvalid, path)
			}
			if x.offsets.At(0) < 0 {
				return fmt.Errorf("%w: at %s: offsets[0] is negative", ErrInvalid, path)
			}
			for i := int64(0); i+1 < n; i++ {
				if x.offsets.At(i+1) < x.offsets.At(i) {
					return fmt.Errorf("%w: at %s: offsets[%d] runs backward", ErrInvalid, path, i+1)
				}
			}
			if cn, ok := x.content.Length().Known(); ok && x.offsets.At(n-1) > cn {
				return fmt.Errorf("%w: at %s: offsets reach %d past content of length %d",
					ErrInvalid, path, x.offsets.At(n-1), cn)
			}
		}
		return validityWalk(x.content, path+".content")

	case *List:
		if x.starts.KnownData() && x.stops.KnownData() {
			n, _ := x.Length().Known()
			cn, cknown := x.content.Length().Known()
			for i := int64(0); i < n; i++ {
				s, t := x.starts.At(i), x.stops.At(i)
				if s > t {
					return fmt.Errorf("%w: at %s: starts[%d] > stops[%d]", ErrInvalid, path, i, i)
				}
				if s < 0 {
					return fmt.Errorf("%w: at %s: starts[%d] is negative", ErrInvalid, path, i)
				}
				if s != t && cknown && t > cn {
					return fmt.Errorf("%w: at %s: stops[%d] is %d past content of length %d",
						ErrInvalid, path, i, t, cn)
				}
			}
		}
		return validityWalk(x.content, path+".content")

	case *Indexed:
		if x.idx.KnownData() {
			n := x.idx.Len().MustKnown()
			cn, cknown := x.content.Length().Known()
			for i := int64(0); i < n; i++ {
				v := x.idx.At(i)
				if v < 0 {
					return fmt.Errorf("%w: at %s: index[%d] is negative", ErrInvalid, path, i)
				}
				if cknown && v >= cn {
					return fmt.Errorf("%w: at %s: index[%d] is %d for content of length %d",
						ErrInvalid, path, i, v, cn)
				}
			}
		}
		return validityWalk(x.content, path+".content")

	case *IndexedOption:
		if x.idx.KnownData() {
			n := x.idx.Len().MustKnown()
			cn, cknown := x.content.Length().Known()
			for i := int64(0); i < n; i++ {
				v := x.idx.At(i)
				if v < -1 {
					return fmt.Errorf("%w: at %s: index[%d] is %d, below the missing marker", ErrInvalid, path, i, v)
				}
				if cknown && v >= cn {
					return fmt.Errorf("%w: at %s: index[%d] is %d for content of length %d",
						ErrInvalid, path, i, v, cn)
				}
			}
		}
		return validityWalk(x.content, path+".content")

	case *ByteMasked:
		if n, ok := x.Length().Known(); ok {
			if mn, ok := x.mask.Len().Known(); ok && mn < n {
				return fmt.Errorf("%w: at %s: mask of length %d is shorter than the array (%d)",
					ErrInvalid, path, mn, n)
			}
		}
		return validityWalk(x.content, path+".content")

	case *BitMasked:
		if n, ok := x.length.Known(); ok {
			if mb, ok := x.mask.Len().Known(); ok && 8*mb < n {
				return fmt.Errorf("%w: at %s: %d mask bytes cover fewer than %d rows",
					ErrInvalid, path, mb, n)
			}
			if cn, ok := x.content.Length().Known(); ok && cn < n {
				return fmt.Errorf("%w: at %s: content of length %d is shorter than the array (%d)",
					ErrInvalid, path, cn, n)
			}
		}
		return validityWalk(x.content, path+".content")

	case *Unmasked:
		return validityWalk(x.content, path+".content")

	case *Record:
		if x.fields != nil && len(x.fields) != len(x.contents) {
			return fmt.Errorf("%w: at %s: %d field names for %d contents",
				ErrInvalid, path, len(x.fields), len(x.contents))
		}
		n, known := x.length.Known()
		for i, cc := range x.contents {
			if known {
				if cn, ok := cc.Length().Known(); ok && cn < n {
					return fmt.Errorf("%w: at %s: field %q of length %d is shorter than the record (%d)",
						ErrInvalid, path, fieldNameOf(x.fields, i), cn, n)
				}
			}
			if err := validityWalk(cc, fmt.Sprintf("%s.contents[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case *Union:
		if x.tags.KnownData() && x.idx.KnownData() {
			n := x.tags.Len().MustKnown()
			for i := int64(0); i < n; i++ {
				t := x.tags.At(i)
				if t < 0 || t >= int64(len(x.contents)) {
					return fmt.Errorf("%w: at %s: tags[%d] is %d for %d contents",
						ErrInvalid, path, i, t, len(x.contents))
				}
				v := x.idx.At(i)
				if v < 0 {
					return fmt.Errorf("%w: at %s: index[%d] is negative", ErrInvalid, path, i)
				}
				if cn, ok := x.contents[t].Length().Known(); ok && v >= cn {
					return fmt.Errorf("%w: at %s: index[%d] is %d for content %d of length %d",
						ErrInvalid, path, i, v, t, cn)
				}
			}
		}
		for i, cc := range x.contents {
			if err := validityWalk(cc, fmt.Sprintf("%s.contents[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: at %s: unrecognized node %T", ErrInvalid, path, c)
}

// toListGeneric materializes an array row by row. It refuses shape-only
// arrays, which have nothing to materialize.
func toListGeneric(c Content) (any, error) {
	if !c.Backend().KnownData() {
		return nil, fmt.Errorf("%w: cannot materialize an array without data", ErrIncompatibleMode)
	}
	n, known := c.Length().Known()
	if !known {
		return nil, fmt.Errorf("%w: cannot materialize an array of unknown length", ErrIncompatibleMode)
	}
	out := make([]any, n)
	for i := int64(0); i < n; i++ {
		v, err := c.GetItemAt(i)
		if err != nil {
			return nil, err
		}
		cell, err := cellToList(v)
		if err != nil {
			return nil, err
		}
		out[i] = cell
	}
	return out, nil
}

// cellToList flattens one row value: nested structure materializes, plain
// scalars and nil pass through.
func cellToList(v any) (any, error) {
	switch x := v.(type) {
	case Content:
		return x.ToList()
	case *RecordRow:
		return x.ToList()
	default:
		return v, nil
	}
}
