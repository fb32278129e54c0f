// Package ragged assembles the top-level operations on layout trees:
// slicing, concatenation, buffer round trips, and row selection.
package ragged

import (
	"github.com/ragged-format/go-ragged/buffers"
	"github.com/ragged-format/go-ragged/eval"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/slicing"
)

// Slice applies one index expression to c: integers, slicing.Range,
// field names, boolean or integer arrays. Scalar results come back as
// Go values, array results as layout.Content.
func Slice(c layout.Content, items ...any) (any, error) {
	return slicing.Slice(c, items...)
}

// Concatenate joins arrays end to end, falling back to a union of types
// where the inputs cannot merge.
func Concatenate(cs ...layout.Content) (layout.Content, error) {
	return layout.Concatenate(cs)
}

// ToBuffers decomposes a tree into named flat buffers plus the form and
// length that rebuild it.
func ToBuffers(c layout.Content, opts ...buffers.Option) (form.Form, int64, buffers.MapContainer, error) {
	return buffers.ToBuffers(c, opts...)
}

// FromBuffers rebuilds the tree a form describes from named buffers.
func FromBuffers(f form.Form, length int64, c buffers.Container, opts ...buffers.Option) (layout.Content, error) {
	return buffers.FromBuffers(f, length, c, opts...)
}

// Where keeps the rows of c on which the compiled expression is true.
// Missing rows are dropped.
func Where(c layout.Content, src string) (layout.Content, error) {
	return eval.Where(c, src)
}
