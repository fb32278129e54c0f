// Package buffers moves layout trees in and out of named-buffer storage.
//
// A tree decomposes into a Form, a length, and a flat set of byte buffers
// keyed by strings; FromBuffers reverses the split, deriving every child
// length from the buffers above it. TypeTracer builds the same tree
// shape-only, with placeholder buffers that record which form keys a
// computation touched.
package buffers
