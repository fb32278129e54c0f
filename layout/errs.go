package layout

import (
	"errors"

	"github.com/ragged-format/go-ragged/form"
)

var (
	// ErrStructuralType: an operation was applied to a node kind whose
	// structure cannot express it (slicing a leaf with a field name,
	// mismatched slice depth, malformed slice items).
	ErrStructuralType = errors.New("structural type error")

	// ErrIndexBounds: a position fell outside a node's valid range.
	ErrIndexBounds = errors.New("index out of bounds")

	// ErrMergeIncompatibility: two nodes cannot concatenate and the union
	// fallback was disallowed or does not apply.
	ErrMergeIncompatibility = errors.New("merge incompatibility")

	// ErrUnsupported: the node kind declines the operation.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrIncompatibleMode: a concrete-data operation reached a shape-only
	// node, or the two regimes were mixed in one call.
	ErrIncompatibleMode = errors.New("incompatible regime")

	// ErrDepthLimit: a tree exceeded the nesting bound.
	ErrDepthLimit = form.ErrDepth

	// ErrInvalid: a constructor rejected buffers that violate a node
	// invariant.
	ErrInvalid = errors.New("invalid layout")
)
