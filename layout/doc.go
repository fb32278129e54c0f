// Package layout implements trees of immutable array nodes: nested lists,
// records, tagged unions, and possibly-missing values over primitive leaf
// buffers.
//
// # Node kinds
//
// Exactly twelve kinds exist and the Content interface is sealed to them:
// EmptyArray, PrimitiveArray, RegularArray, ListArray, ListOffsetArray,
// IndexedArray, IndexedOptionArray, ByteMaskedArray, BitMaskedArray,
// UnmaskedArray, RecordArray, UnionArray. Every operation is defined on
// every kind; a kind whose structure cannot express an operation declines
// it with ErrUnsupported rather than omitting it.
//
// # Immutability
//
// Operations return new nodes and structurally share anything untouched.
// Constructors state whether they take ownership of buffers; nothing here
// mutates or copies silently.
//
// # Regimes
//
// A tree either owns concrete data (cpu backend) or only its shape
// (typetracer backend). Shape-only trees run the same structural code;
// wherever control flow would need buffer values, the operation records a
// touch and carries placeholders forward. GetItemAt on a shape-only tree
// yields UnknownValue where a concrete tree would yield a scalar or row.
package layout
