package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// The Simplified constructors enforce the composition rules of the node
// set: indexes compose through indexes, option layers collapse into one,
// and unions absorb indirection into their own tags and index. Code that
// wraps an arbitrary result uses these instead of the plain constructors.

func isOptionKind(c Content) bool {
	switch c.(type) {
	case *IndexedOption, *ByteMasked, *BitMasked, *Unmasked:
		return true
	}
	return false
}

// composeIndexes gathers inner through outer. Sentinels in outer pass
// through when optional; sentinels in inner always do.
func composeIndexes(outer, inner *index.Index, optional bool) (*index.Index, error) {
	if outer.KnownData() && inner.KnownData() {
		pos := outer.Data()
		n := inner.Len().MustKnown()
		out := make([]int64, len(pos))
		for i, v := range pos {
			if v < 0 {
				if !optional {
					return nil, fmt.Errorf("%w: negative position %d in IndexedArray", ErrIndexBounds, v)
				}
				out[i] = -1
				continue
			}
			if v >= n {
				return nil, fmt.Errorf("%w: position %d in an index of length %d", ErrIndexBounds, v, n)
			}
			out[i] = inner.At(v)
		}
		return index.Wrap(index.I64, out), nil
	}
	outer.TouchData()
	inner.TouchData()
	return index.Placeholder(index.I64, outer.Len(), nil), nil
}

// SimplifiedIndexed builds the node an IndexedArray wrapper reduces to:
// unions take the carry themselves, indexes compose, and option content
// turns the result into an option.
func SimplifiedIndexed(idx *index.Index, content Content, params Parameters) (Content, error) {
	switch c := content.(type) {
	case *Union:
		out, err := c.Carry(idx, false)
		if err != nil {
			return nil, err
		}
		if len(params) == 0 {
			return out, nil
		}
		return out.WithParameters(paramsUnion(out.Parameters(), params)), nil
	case *Indexed:
		composed, err := composeIndexes(idx, c.idx, false)
		if err != nil {
			return nil, err
		}
		return NewIndexed(composed, c.content, params)
	case *IndexedOption:
		composed, err := composeIndexes(idx, c.idx, true)
		if err != nil {
			return nil, err
		}
		return NewIndexedOption(composed, c.content, params)
	case *ByteMasked:
		io, err := c.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexed(idx, io, params)
	case *BitMasked:
		io, err := c.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexed(idx, io, params)
	case *Unmasked:
		io, err := c.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexed(idx, io, params)
	default:
		return NewIndexed(idx, content, params)
	}
}

// SimplifiedIndexedOption builds the node an IndexedOptionArray wrapper
// reduces to. Sentinels survive every composition.
func SimplifiedIndexedOption(idx *index.Index, content Content, params Parameters) (Content, error) {
	switch c := content.(type) {
	case *Union:
		return unionOfOptions(idx, c, params)
	case *Indexed:
		composed, err := composeIndexes(idx, c.idx, true)
		if err != nil {
			return nil, err
		}
		return NewIndexedOption(composed, c.content, params)
	case *IndexedOption:
		composed, err := composeIndexes(idx, c.idx, true)
		if err != nil {
			return nil, err
		}
		return NewIndexedOption(composed, c.content, params)
	case *ByteMasked:
		io, err := c.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexedOption(idx, io, params)
	case *BitMasked:
		io, err := c.ToIndexedOption()
		if err != nil {
			return nil, err
		}
		return SimplifiedIndexedOption(idx, io, params)
	case *Unmasked:
		return SimplifiedIndexedOption(idx, c.content, params)
	default:
		return NewIndexedOption(idx, content, params)
	}
}

// unionOfOptions pushes an option layer through a union: every content
// gains an option wrapper, and missing rows are routed to an extra
// sentinel slot appended to one designated content.
func unionOfOptions(outer *index.Index, u *Union, params Parameters) (Content, error) {
	tagForMissing := 0
	for i, c := range u.contents {
		if isOptionKind(c) {
			tagForMissing = i
			break
		}
	}
	outParams := paramsUnion(u.params, params)
	known := outer.KnownData() && u.tags.KnownData() && u.idx.KnownData()
	for _, c := range u.contents {
		if !c.Backend().KnownData() {
			known = false
		}
	}
	contents := make([]Content, len(u.contents))
	if known {
		for tag, c := range u.contents {
			n := mustLen(c)
			size := n
			if tag == tagForMissing {
				size = n + 1
			}
			arange := make([]int64, size)
			for j := int64(0); j < n; j++ {
				arange[j] = j
			}
			if tag == tagForMissing {
				arange[n] = -1
			}
			wrapped, err := SimplifiedIndexedOption(index.Wrap(index.I64, arange), c, nil)
			if err != nil {
				return nil, err
			}
			contents[tag] = wrapped
		}
		pos := outer.Data()
		ntags := make([]int64, len(pos))
		nidx := make([]int64, len(pos))
		missSlot := mustLen(u.contents[tagForMissing])
		for i, v := range pos {
			if v < 0 {
				ntags[i] = int64(tagForMissing)
				nidx[i] = missSlot
			} else {
				ntags[i] = u.tags.At(v)
				nidx[i] = u.idx.At(v)
			}
		}
		return SimplifiedUnion(index.Wrap(index.I8, ntags), index.Wrap(index.I64, nidx), contents, outParams)
	}
	outer.TouchData()
	u.tags.TouchData()
	u.idx.TouchData()
	for tag, c := range u.contents {
		size := c.Length()
		if tag == tagForMissing {
			size = size.Add(shape.Of(1))
		}
		wrapped, err := SimplifiedIndexedOption(index.Placeholder(index.I64, size, nil), c, nil)
		if err != nil {
			return nil, err
		}
		contents[tag] = wrapped
	}
	return SimplifiedUnion(
		index.Placeholder(index.I8, outer.Len(), nil),
		index.Placeholder(index.I64, outer.Len(), nil),
		contents, outParams)
}

// SimplifiedUnion flattens nested unions and merges duplicate content
// types, dropping the union entirely when one content remains.
func SimplifiedUnion(tags, idx *index.Index, contents []Content, params Parameters) (Content, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: UnionArray needs at least one content", ErrInvalid)
	}
	known := tags.KnownData() && idx.KnownData()
	for _, c := range contents {
		if !c.Backend().KnownData() {
			known = false
		}
	}
	if !known {
		tags.TouchData()
		idx.TouchData()
		var outContents []Content
		for _, c := range contents {
			if uc, isU := c.(*Union); isU {
				outContents = append(outContents, uc.contents...)
			} else {
				outContents = append(outContents, c)
			}
		}
		if len(outContents) == 1 {
			out, err := outContents[0].Carry(index.Placeholder(index.I64, tags.Len(), nil), false)
			if err != nil {
				return nil, err
			}
			if len(params) == 0 {
				return out, nil
			}
			return out.WithParameters(paramsUnion(out.Parameters(), params)), nil
		}
		return NewUnion(
			index.Placeholder(index.I8, tags.Len(), nil),
			index.Placeholder(index.I64, tags.Len(), nil),
			outContents, params)
	}
	tagsIn := tags.Data()
	n := len(tagsIn)
	ntags := make([]int64, n)
	nidx := make([]int64, n)
	var pool []Content
	for tag, content := range contents {
		if uc, isU := content.(*Union); isU {
			for innerTag, innerContent := range uc.contents {
				k, shift, err := poolPlace(&pool, innerContent)
				if err != nil {
					return nil, err
				}
				for i := 0; i < n; i++ {
					if tagsIn[i] != int64(tag) {
						continue
					}
					pos := idx.At(int64(i))
					if uc.tags.At(pos) == int64(innerTag) {
						ntags[i] = int64(k)
						nidx[i] = uc.idx.At(pos) + shift
					}
				}
			}
			continue
		}
		k, shift, err := poolPlace(&pool, content)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if tagsIn[i] == int64(tag) {
				ntags[i] = int64(k)
				nidx[i] = idx.At(int64(i)) + shift
			}
		}
	}
	if len(pool) > 128 {
		return nil, fmt.Errorf("%w: simplification needs %d union contents, more than a tag byte can address",
			ErrMergeIncompatibility, len(pool))
	}
	if len(pool) == 1 {
		out, err := pool[0].Carry(index.Wrap(index.I64, nidx), false)
		if err != nil {
			return nil, err
		}
		if len(params) == 0 {
			return out, nil
		}
		return out.WithParameters(paramsUnion(out.Parameters(), params)), nil
	}
	return NewUnion(index.Wrap(index.I8, ntags), index.Wrap(index.I64, nidx), pool, params)
}

// poolPlace finds a home for content among the union contents built so
// far: either an existing mergeable member, whose length before the
// merge becomes the row shift, or a fresh slot.
func poolPlace(pool *[]Content, content Content) (int, int64, error) {
	for k, existing := range *pool {
		if existing.Mergeable(content, false) {
			shift := mustLen(existing)
			merged, err := existing.mergeMany([]Content{content})
			if err != nil {
				return 0, 0, err
			}
			(*pool)[k] = merged
			return k, shift, nil
		}
	}
	*pool = append(*pool, content)
	return len(*pool) - 1, 0, nil
}
