package buffers

import (
	"fmt"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/shape"
)

// TypeTracer builds the shape-only tree a form describes, touching no
// container. Every buffer is a placeholder whose hooks record the node's
// form key in the returned report, so running a computation over the
// tree reveals which buffers it would have read.
func TypeTracer(f form.Form) (layout.Content, *backend.Report, error) {
	if f == nil {
		return nil, nil, fmt.Errorf("%w: nil form", form.ErrBadForm)
	}
	rep := backend.NewReport()
	bk := backend.TypeTracer(rep)
	c, err := tracerNode(f, bk, rep, 1)
	if err != nil {
		return nil, nil, err
	}
	return c, rep, nil
}

func tracerNode(f form.Form, bk backend.Backend, rep *backend.Report, depth int) (layout.Content, error) {
	if depth > form.MaxDepth {
		return nil, fmt.Errorf("%w: form nests beyond %d levels", form.ErrDepth, form.MaxDepth)
	}
	switch n := f.(type) {
	case *form.EmptyForm:
		return layout.NewEmpty(bk, n.Params), nil

	case *form.PrimitiveForm:
		onData, onShape, err := touchHooks(f, rep)
		if err != nil {
			return nil, err
		}
		data := backend.Placeholder(n.Primitive, shape.Unknown(), onData, onShape)
		return layout.NewPrimitive(bk, data, n.InnerShape, n.Params)

	case *form.RegularForm:
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewRegular(content, n.Size, 0, n.Params)

	case *form.ListOffsetForm:
		offsets, err := tracerIndex(f, n.Offsets, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewListOffset(offsets, content, n.Params)

	case *form.ListForm:
		starts, err := tracerIndex(f, n.Starts, rep)
		if err != nil {
			return nil, err
		}
		stops, err := tracerIndex(f, n.Stops, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewList(starts, stops, content, n.Params)

	case *form.IndexedForm:
		idx, err := tracerIndex(f, n.Index, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewIndexed(idx, content, n.Params)

	case *form.IndexedOptionForm:
		idx, err := tracerIndex(f, n.Index, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewIndexedOption(idx, content, n.Params)

	case *form.ByteMaskedForm:
		mask, err := tracerIndex(f, n.Mask, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewByteMasked(mask, content, n.ValidWhen, n.Params)

	case *form.BitMaskedForm:
		mask, err := tracerIndex(f, n.Mask, rep)
		if err != nil {
			return nil, err
		}
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewBitMasked(mask, content, n.ValidWhen, n.LSBOrder, shape.Unknown(), n.Params)

	case *form.UnmaskedForm:
		content, err := tracerNode(n.Content, bk, rep, depth+1)
		if err != nil {
			return nil, err
		}
		return layout.NewUnmasked(content, n.Params)

	case *form.RecordForm:
		contents := make([]layout.Content, len(n.Contents))
		for i, cf := range n.Contents {
			sub, err := tracerNode(cf, bk, rep, depth+1)
			if err != nil {
				return nil, err
			}
			contents[i] = sub
		}
		return layout.NewRecordIn(bk, contents, n.Fields, shape.Unknown(), n.Params)

	case *form.UnionForm:
		tags, err := tracerIndex(f, n.Tags, rep)
		if err != nil {
			return nil, err
		}
		idx, err := tracerIndex(f, n.Index, rep)
		if err != nil {
			return nil, err
		}
		contents := make([]layout.Content, len(n.Contents))
		for i, cf := range n.Contents {
			sub, err := tracerNode(cf, bk, rep, depth+1)
			if err != nil {
				return nil, err
			}
			contents[i] = sub
		}
		return layout.NewUnion(tags, idx, contents, n.Params)

	default:
		return nil, fmt.Errorf("%w: unrecognized form node %T", layout.ErrStructuralType, f)
	}
}

// touchHooks binds a node's form key into report callbacks. Nodes whose
// buffers would be anonymous are rejected.
func touchHooks(f form.Form, rep *backend.Report) (onData, onShape func(), err error) {
	key := f.FormKey()
	if key == "" {
		return nil, nil, fmt.Errorf("%w: %s node needs a form key for tracing", form.ErrBadForm, f.Class())
	}
	return func() { rep.TouchData(key) }, func() { rep.TouchShape(key) }, nil
}

func tracerIndex(f form.Form, k index.Kind, rep *backend.Report) (*index.Index, error) {
	onData, onShape, err := touchHooks(f, rep)
	if err != nil {
		return nil, err
	}
	return index.PlaceholderHooks(k, shape.Unknown(), onData, onShape), nil
}
