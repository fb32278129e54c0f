package buffers

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

// ToBuffers decomposes a concrete tree into a keyed form, its length,
// and one buffer per structural attribute, FromBuffers' inverse. Form
// keys are assigned node0, node1, ... in depth-first order. The buffers
// are written as-is: unreachable slack survives and rebuilding trims it,
// so the round trip preserves the value, not the byte layout.
func ToBuffers(c layout.Content, opts ...Option) (form.Form, int64, MapContainer, error) {
	if !c.Backend().KnownData() {
		return nil, 0, nil, fmt.Errorf("%w: cannot serialize a shape-only tree", layout.ErrIncompatibleMode)
	}
	n, ok := c.Length().Known()
	if !ok {
		return nil, 0, nil, fmt.Errorf("%w: cannot serialize a tree of unknown length", layout.ErrIncompatibleMode)
	}
	d := &decomposer{cfg: newConfig(opts), out: MapContainer{}}
	f, err := d.walk(c)
	if err != nil {
		return nil, 0, nil, err
	}
	return f, n, d.out, nil
}

type decomposer struct {
	cfg  *config
	out  MapContainer
	next int
}

func (d *decomposer) formKey() string {
	k := "node" + strconv.Itoa(d.next)
	d.next++
	return k
}

func (d *decomposer) putIndex(f form.Form, attribute string, idx *index.Index) error {
	raw, err := idx.ToBytes(d.cfg.order)
	if err != nil {
		return fmt.Errorf("%s of %q: %w", attribute, f.FormKey(), err)
	}
	d.out[d.cfg.key(f, attribute)] = raw
	return nil
}

func (d *decomposer) walk(c layout.Content) (form.Form, error) {
	key := d.formKey()
	switch n := c.(type) {
	case *layout.Empty:
		return &form.EmptyForm{Params: n.Parameters(), Key: key}, nil

	case *layout.Primitive:
		f := &form.PrimitiveForm{
			Primitive:  n.DType(),
			InnerShape: slices.Clone(n.InnerShape()),
			Params:     n.Parameters(),
			Key:        key,
		}
		raw, err := n.Backend().ToBytes(n.Data(), d.cfg.order)
		if err != nil {
			return nil, fmt.Errorf("data of %q: %w", key, err)
		}
		d.out[d.cfg.key(f, "data")] = raw
		return f, nil

	case *layout.Regular:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		return &form.RegularForm{Content: content, Size: n.Size(), Params: n.Parameters(), Key: key}, nil

	case *layout.ListOffset:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.ListOffsetForm{Offsets: n.Offsets().Kind(), Content: content, Params: n.Parameters(), Key: key}
		if err := d.putIndex(f, "offsets", n.Offsets()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.List:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.ListForm{
			Starts:  n.Starts().Kind(),
			Stops:   n.Stops().Kind(),
			Content: content,
			Params:  n.Parameters(),
			Key:     key,
		}
		if err := d.putIndex(f, "starts", n.Starts()); err != nil {
			return nil, err
		}
		if err := d.putIndex(f, "stops", n.Stops()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.Indexed:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.IndexedForm{Index: n.Index().Kind(), Content: content, Params: n.Parameters(), Key: key}
		if err := d.putIndex(f, "index", n.Index()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.IndexedOption:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.IndexedOptionForm{Index: n.Index().Kind(), Content: content, Params: n.Parameters(), Key: key}
		if err := d.putIndex(f, "index", n.Index()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.ByteMasked:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.ByteMaskedForm{
			Mask:      n.Mask().Kind(),
			ValidWhen: n.ValidWhen(),
			Content:   content,
			Params:    n.Parameters(),
			Key:       key,
		}
		if err := d.putIndex(f, "mask", n.Mask()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.BitMasked:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		f := &form.BitMaskedForm{
			Mask:      n.Mask().Kind(),
			ValidWhen: n.ValidWhen(),
			LSBOrder:  n.LSBOrder(),
			Content:   content,
			Params:    n.Parameters(),
			Key:       key,
		}
		if err := d.putIndex(f, "mask", n.Mask()); err != nil {
			return nil, err
		}
		return f, nil

	case *layout.Unmasked:
		content, err := d.walk(n.Content())
		if err != nil {
			return nil, err
		}
		return &form.UnmaskedForm{Content: content, Params: n.Parameters(), Key: key}, nil

	case *layout.Record:
		contents := make([]form.Form, n.NumFields())
		for i, sub := range n.Contents() {
			cf, err := d.walk(sub)
			if err != nil {
				return nil, err
			}
			contents[i] = cf
		}
		var fields []string
		if !n.IsTuple() {
			fields = slices.Clone(n.Fields())
		}
		return &form.RecordForm{Fields: fields, Contents: contents, Params: n.Parameters(), Key: key}, nil

	case *layout.Union:
		contents := make([]form.Form, len(n.Contents()))
		for i, sub := range n.Contents() {
			cf, err := d.walk(sub)
			if err != nil {
				return nil, err
			}
			contents[i] = cf
		}
		f := &form.UnionForm{
			Tags:     n.Tags().Kind(),
			Index:    n.Index().Kind(),
			Contents: contents,
			Params:   n.Parameters(),
			Key:      key,
		}
		if err := d.putIndex(f, "tags", n.Tags()); err != nil {
			return nil, err
		}
		if err := d.putIndex(f, "index", n.Index()); err != nil {
			return nil, err
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized node %s", layout.ErrStructuralType, layout.ClassOf(c))
	}
}
