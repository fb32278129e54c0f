package layout

import (
	"fmt"

	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// MergeOption adjusts Concatenate.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	unionFallback bool
	mergebool     bool
}

// WithUnionFallback controls whether arrays of incompatible types may
// concatenate into a union. On by default; when off, such inputs fail
// with ErrMergeIncompatibility.
func WithUnionFallback(v bool) MergeOption {
	return func(c *mergeConfig) { c.unionFallback = v }
}

// WithMergeBool controls whether booleans count as numbers for
// mergeability. On by default.
func WithMergeBool(v bool) MergeOption {
	return func(c *mergeConfig) { c.mergebool = v }
}

// Concatenate stacks the arrays end to end. Runs of mutually mergeable
// arrays merge directly; if more than one run remains, the runs become
// the contents of a union, one tag per run.
func Concatenate(cs []Content, opts ...MergeOption) (Content, error) {
	cfg := mergeConfig{unionFallback: true, mergebool: true}
	for _, o := range opts {
		o(&cfg)
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: need at least one array to concatenate", ErrInvalid)
	}
	if len(cs) == 1 {
		return cs[0], nil
	}
	batches := [][]Content{{cs[0]}}
	for _, c := range cs[1:] {
		last := batches[len(batches)-1]
		if last[len(last)-1].Mergeable(c, cfg.mergebool) {
			batches[len(batches)-1] = append(last, c)
		} else {
			batches = append(batches, []Content{c})
		}
	}
	merged := make([]Content, len(batches))
	for i, b := range batches {
		m, err := b[0].mergeMany(b[1:])
		if err != nil {
			return nil, err
		}
		merged[i] = m
	}
	if len(merged) == 1 {
		return merged[0], nil
	}
	if !cfg.unionFallback {
		return nil, fmt.Errorf("%w: %d incompatible runs and the union fallback is disabled",
			ErrMergeIncompatibility, len(merged))
	}
	return unionConcat(merged)
}

// unionConcat stacks pairwise-incompatible arrays as union rows, one tag
// per array.
func unionConcat(cs []Content) (Content, error) {
	known := true
	total := shape.Of(0)
	for _, c := range cs {
		if !c.Backend().KnownData() {
			known = false
		}
		total = total.Add(c.Length())
	}
	if known {
		var tags, idx []int64
		for i, c := range cs {
			n := mustLen(c)
			for j := int64(0); j < n; j++ {
				tags = append(tags, int64(i))
				idx = append(idx, j)
			}
		}
		return SimplifiedUnion(index.Wrap(index.I8, tags), index.Wrap(index.I64, idx), cs, nil)
	}
	return SimplifiedUnion(
		index.Placeholder(index.I8, total, nil),
		index.Placeholder(index.I64, total, nil),
		cs, nil)
}

// mergingStrategy splits others at the first option or union kind. The
// prefix, with self at its front, merges forward; the rest resumes in
// reverse from the option side via mergeTail. Plain indexed nodes in the
// prefix project away, adding nothing to the merged type.
func mergingStrategy(self Content, others []Content) (head, tail []Content, err error) {
	head = append(head, self)
	i := 0
loop:
	for ; i < len(others); i++ {
		switch o := others[i].(type) {
		case *IndexedOption, *ByteMasked, *BitMasked, *Unmasked, *Union:
			break loop
		case *Indexed:
			p, perr := o.project()
			if perr != nil {
				return nil, nil, perr
			}
			head = append(head, p)
		default:
			head = append(head, others[i])
		}
	}
	return head, others[i:], nil
}

// mergeTail resumes a merge interrupted at an option or union: that
// element absorbs everything merged so far from the left, then carries
// on with whatever follows.
func mergeTail(merged Content, tail []Content) (Content, error) {
	if len(tail) == 0 {
		return merged, nil
	}
	var rev Content
	var err error
	switch o := tail[0].(type) {
	case *IndexedOption:
		rev, err = o.reverseMerge(merged)
	case *Union:
		rev, err = o.reverseMerge(merged)
	case *ByteMasked:
		var io *IndexedOption
		if io, err = o.ToIndexedOption(); err == nil {
			rev, err = io.reverseMerge(merged)
		}
	case *BitMasked:
		var io *IndexedOption
		if io, err = o.ToIndexedOption(); err == nil {
			rev, err = io.reverseMerge(merged)
		}
	case *Unmasked:
		var io *IndexedOption
		if io, err = o.ToIndexedOption(); err == nil {
			rev, err = io.reverseMerge(merged)
		}
	default:
		return nil, fmt.Errorf("%w: cannot resume a merge at %s", ErrMergeIncompatibility, ClassOf(tail[0]))
	}
	if err != nil {
		return nil, err
	}
	if len(tail) == 1 {
		return rev, nil
	}
	return rev.mergeMany(tail[1:])
}

// mergeManyNorm merges a non-empty set collected by a per-kind merger.
func mergeManyNorm(cs []Content) (Content, error) {
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: nothing to merge", ErrInvalid)
	}
	return cs[0].mergeMany(cs[1:])
}
