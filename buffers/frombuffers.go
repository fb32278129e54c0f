package buffers

import (
	"fmt"

	"github.com/ragged-format/go-ragged/debug"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/shape"
)

// FromBuffers reconstitutes the tree a form describes from named
// buffers. Length is the row count of the root; every child length is
// derived from the buffers above it, so the container may hold more
// bytes than a node reaches but never fewer.
func FromBuffers(f form.Form, length int64, c Container, opts ...Option) (layout.Content, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil form", form.ErrBadForm)
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", layout.ErrInvalid, length)
	}
	if debug.Buffers() {
		debug.Logf("from-buffers %s len=%d\n", f.Class(), length)
	}
	cfg := newConfig(opts)
	return reconstitute(f, length, c, cfg, 1)
}

func reconstitute(f form.Form, length int64, c Container, cfg *config, depth int) (layout.Content, error) {
	if depth > form.MaxDepth {
		return nil, fmt.Errorf("%w: form nests beyond %d levels", form.ErrDepth, form.MaxDepth)
	}
	switch n := f.(type) {
	case *form.EmptyForm:
		if length != 0 {
			return nil, fmt.Errorf("%w: EmptyArray node with length %d", layout.ErrInvalid, length)
		}
		return layout.NewEmpty(cfg.bk, n.Params), nil

	case *form.PrimitiveForm:
		count := length
		for _, d := range n.InnerShape {
			count *= d
		}
		raw, err := readRaw(c, cfg, n, "data", count*int64(n.Primitive.Size()))
		if err != nil {
			return nil, err
		}
		buf, err := cfg.bk.FromBytes(n.Primitive, raw, count, cfg.order)
		if err != nil {
			return nil, err
		}
		return layout.NewPrimitive(cfg.bk, buf, n.InnerShape, n.Params)

	case *form.RegularForm:
		content, err := reconstitute(n.Content, length*n.Size, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewRegular(content, n.Size, length, n.Params)

	case *form.ListOffsetForm:
		offsets, err := readIndex(c, cfg, n, "offsets", n.Offsets, length+1)
		if err != nil {
			return nil, err
		}
		next := int64(0)
		if length > 0 {
			next = offsets.At(length)
		}
		content, err := reconstitute(n.Content, next, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffset(offsets, content, n.Params)

	case *form.ListForm:
		starts, err := readIndex(c, cfg, n, "starts", n.Starts, length)
		if err != nil {
			return nil, err
		}
		stops, err := readIndex(c, cfg, n, "stops", n.Stops, length)
		if err != nil {
			return nil, err
		}
		// The reachable content ends at the largest stop of a non-empty
		// row; empty rows may hold stale bounds.
		next := int64(0)
		for i := int64(0); i < length; i++ {
			if starts.At(i) != stops.At(i) && stops.At(i) > next {
				next = stops.At(i)
			}
		}
		content, err := reconstitute(n.Content, next, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewList(starts, stops, content, n.Params)

	case *form.IndexedForm:
		idx, err := readIndex(c, cfg, n, "index", n.Index, length)
		if err != nil {
			return nil, err
		}
		content, err := reconstitute(n.Content, pastMax(idx), c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		if cfg.simplify {
			return layout.SimplifiedIndexed(idx, content, n.Params)
		}
		return layout.NewIndexed(idx, content, n.Params)

	case *form.IndexedOptionForm:
		idx, err := readIndex(c, cfg, n, "index", n.Index, length)
		if err != nil {
			return nil, err
		}
		content, err := reconstitute(n.Content, pastMax(idx), c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		if cfg.simplify {
			return layout.SimplifiedIndexedOption(idx, content, n.Params)
		}
		return layout.NewIndexedOption(idx, content, n.Params)

	case *form.ByteMaskedForm:
		mask, err := readIndex(c, cfg, n, "mask", n.Mask, length)
		if err != nil {
			return nil, err
		}
		content, err := reconstitute(n.Content, length, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		if cfg.simplify && collapsible(content) {
			return collapseMask(length, content, n.Params, func(i int64) bool {
				return (mask.At(i) != 0) == n.ValidWhen
			})
		}
		return layout.NewByteMasked(mask, content, n.ValidWhen, n.Params)

	case *form.BitMaskedForm:
		mask, err := readIndex(c, cfg, n, "mask", n.Mask, (length+7)/8)
		if err != nil {
			return nil, err
		}
		content, err := reconstitute(n.Content, length, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		if cfg.simplify && collapsible(content) {
			return collapseMask(length, content, n.Params, func(i int64) bool {
				b := mask.At(i / 8)
				var bit int64
				if n.LSBOrder {
					bit = (b >> (i % 8)) & 1
				} else {
					bit = (b >> (7 - i%8)) & 1
				}
				return (bit != 0) == n.ValidWhen
			})
		}
		return layout.NewBitMasked(mask, content, n.ValidWhen, n.LSBOrder, shape.Of(length), n.Params)

	case *form.UnmaskedForm:
		content, err := reconstitute(n.Content, length, c, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		if cfg.simplify {
			return layout.SimplifiedUnmasked(content, n.Params)
		}
		return layout.NewUnmasked(content, n.Params)

	case *form.RecordForm:
		contents := make([]layout.Content, len(n.Contents))
		for i, cf := range n.Contents {
			sub, err := reconstitute(cf, length, c, cfg, depth+1)
			if err != nil {
				return nil, err
			}
			contents[i] = sub
		}
		return layout.NewRecordIn(cfg.bk, contents, n.Fields, shape.Of(length), n.Params)

	case *form.UnionForm:
		tags, err := readIndex(c, cfg, n, "tags", n.Tags, length)
		if err != nil {
			return nil, err
		}
		idx, err := readIndex(c, cfg, n, "index", n.Index, length)
		if err != nil {
			return nil, err
		}
		lens := make([]int64, len(n.Contents))
		for i := int64(0); i < length; i++ {
			t := tags.At(i)
			if t < 0 || t >= int64(len(n.Contents)) {
				return nil, fmt.Errorf("%w: union tag %d with %d contents", layout.ErrIndexBounds, t, len(n.Contents))
			}
			if v := idx.At(i) + 1; v > lens[t] {
				lens[t] = v
			}
		}
		contents := make([]layout.Content, len(n.Contents))
		for i, cf := range n.Contents {
			sub, err := reconstitute(cf, lens[i], c, cfg, depth+1)
			if err != nil {
				return nil, err
			}
			contents[i] = sub
		}
		if cfg.simplify {
			return layout.SimplifiedUnion(tags, idx, contents, n.Params)
		}
		return layout.NewUnion(tags, idx, contents, n.Params)

	default:
		return nil, fmt.Errorf("%w: unrecognized form node %T", layout.ErrStructuralType, f)
	}
}

// readRaw fetches one buffer and checks it holds at least need bytes.
func readRaw(c Container, cfg *config, f form.Form, attribute string, need int64) ([]byte, error) {
	key := cfg.key(f, attribute)
	raw, err := c.Get(key)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", key, err)
	}
	if int64(len(raw)) < need {
		return nil, fmt.Errorf("%w: buffer %q holds %d bytes, form needs %d", ErrBufferSize, key, len(raw), need)
	}
	return raw, nil
}

func readIndex(c Container, cfg *config, f form.Form, attribute string, k index.Kind, count int64) (*index.Index, error) {
	raw, err := readRaw(c, cfg, f, attribute, count*int64(k.Size()))
	if err != nil {
		return nil, err
	}
	idx, err := index.FromBytes(k, raw, count, cfg.order)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", cfg.key(f, attribute), err)
	}
	return idx, nil
}

// pastMax is one more than the largest position an index reaches, the
// child length an indexed layer needs.
func pastMax(idx *index.Index) int64 {
	m, ok := idx.Max()
	if !ok || m < 0 {
		return 0
	}
	return m + 1
}

func collapsible(c layout.Content) bool {
	switch c.(type) {
	case *layout.Indexed, *layout.IndexedOption, *layout.ByteMasked,
		*layout.BitMasked, *layout.Unmasked, *layout.Union:
		return true
	}
	return false
}

// collapseMask rewrites a mask over indirect content as a sentinel index
// and lets the option layers compose into one.
func collapseMask(n int64, content layout.Content, params form.Parameters, valid func(int64) bool) (layout.Content, error) {
	data := make([]int64, n)
	for i := int64(0); i < n; i++ {
		if valid(i) {
			data[i] = i
		} else {
			data[i] = -1
		}
	}
	return layout.SimplifiedIndexedOption(index.Wrap(index.I64, data), content, params)
}
