// Package slicing turns user index expressions into the canonical slice
// items that layout trees consume.
//
// An expression is a sequence of heterogeneous items: Go integers, Range,
// field names, NewAxis, Ellipsis, flat Go slices, or layout trees acting
// as indexes. Normalize resolves each to one of the closed layout.SliceItem
// forms, converts boolean indexes to integer positions, broadcasts flat
// index arrays to a common shape, and rejects expressions that mix jagged
// or missing indexing with flat advanced indexing.
//
// Shape-only trees normalize like concrete ones: conversions that would
// need values touch their source buffers and carry placeholders forward.
package slicing
