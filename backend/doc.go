// Package backend is the capability surface between structural code and
// the primitive buffers it computes on.
//
// # Regimes
//
// Two implementations exist. CPU owns concrete bytes and executes every
// operation. TypeTracer owns no bytes at all: operations return placeholder
// buffers whose lengths are derived structurally where possible and Unknown
// where not, and every access that would have needed values instead records
// a touch in a Report. A tree never mixes regimes.
//
// # Buffers
//
// A Buffer is one contiguous run of same-typed values in machine byte
// order. Buffers are immutable once handed to a node; operations produce
// new buffers.
package backend
