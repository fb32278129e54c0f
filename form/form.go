// Package form describes the shape and type of a layout tree without its
// data. Forms drive the buffer codec and travel as JSON or YAML.
package form

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
)

// MaxDepth bounds nesting for forms and the trees built from them.
const MaxDepth = 48

var (
	ErrBadForm = errors.New("bad form")
	ErrDepth   = errors.New("nesting depth limit exceeded")
)

// Parameters is opaque node metadata. Key order never matters.
type Parameters map[string]any

// Equal compares parameter maps by their canonical JSON.
func (p Parameters) Equal(q Parameters) bool {
	if len(p) == 0 && len(q) == 0 {
		return true
	}
	return reflect.DeepEqual(normalizeParams(p), normalizeParams(q))
}

func normalizeParams(p Parameters) Parameters {
	b, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out Parameters
	if json.Unmarshal(b, &out) != nil {
		return p
	}
	return out
}

// Clone returns an independent copy, nil in for nil out.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Form is one of exactly twelve node descriptions, mirroring the layout
// variants.
type Form interface {
	formNode()

	Class() string
	FormKey() string
	Parameters() Parameters

	// Children returns nested forms in layout order, nil for leaves.
	Children() []Form
}

type EmptyForm struct {
	Params Parameters
	Key    string
}

type PrimitiveForm struct {
	Primitive  dtype.DType
	InnerShape []int64
	Params     Parameters
	Key        string
}

type RegularForm struct {
	Content Form
	Size    int64
	Params  Parameters
	Key     string
}

type ListForm struct {
	Starts  index.Kind
	Stops   index.Kind
	Content Form
	Params  Parameters
	Key     string
}

type ListOffsetForm struct {
	Offsets index.Kind
	Content Form
	Params  Parameters
	Key     string
}

type IndexedForm struct {
	Index   index.Kind
	Content Form
	Params  Parameters
	Key     string
}

type IndexedOptionForm struct {
	Index   index.Kind
	Content Form
	Params  Parameters
	Key     string
}

type ByteMaskedForm struct {
	Mask      index.Kind
	ValidWhen bool
	Content   Form
	Params    Parameters
	Key       string
}

type BitMaskedForm struct {
	Mask      index.Kind
	ValidWhen bool
	LSBOrder  bool
	Content   Form
	Params    Parameters
	Key       string
}

type UnmaskedForm struct {
	Content Form
	Params  Parameters
	Key     string
}

type RecordForm struct {
	// Fields is nil for a tuple.
	Fields   []string
	Contents []Form
	Params   Parameters
	Key      string
}

type UnionForm struct {
	Tags     index.Kind
	Index    index.Kind
	Contents []Form
	Params   Parameters
	Key      string
}

func (*EmptyForm) formNode()         {}
func (*PrimitiveForm) formNode()     {}
func (*RegularForm) formNode()       {}
func (*ListForm) formNode()          {}
func (*ListOffsetForm) formNode()    {}
func (*IndexedForm) formNode()       {}
func (*IndexedOptionForm) formNode() {}
func (*ByteMaskedForm) formNode()    {}
func (*BitMaskedForm) formNode()     {}
func (*UnmaskedForm) formNode()      {}
func (*RecordForm) formNode()        {}
func (*UnionForm) formNode()         {}

func (*EmptyForm) Class() string         { return "EmptyArray" }
func (*PrimitiveForm) Class() string     { return "NumpyArray" }
func (*RegularForm) Class() string       { return "RegularArray" }
func (*ListForm) Class() string          { return "ListArray" }
func (*ListOffsetForm) Class() string    { return "ListOffsetArray" }
func (*IndexedForm) Class() string       { return "IndexedArray" }
func (*IndexedOptionForm) Class() string { return "IndexedOptionArray" }
func (*ByteMaskedForm) Class() string    { return "ByteMaskedArray" }
func (*BitMaskedForm) Class() string     { return "BitMaskedArray" }
func (*UnmaskedForm) Class() string      { return "UnmaskedArray" }
func (*RecordForm) Class() string        { return "RecordArray" }
func (*UnionForm) Class() string         { return "UnionArray" }

func (f *EmptyForm) FormKey() string         { return f.Key }
func (f *PrimitiveForm) FormKey() string     { return f.Key }
func (f *RegularForm) FormKey() string       { return f.Key }
func (f *ListForm) FormKey() string          { return f.Key }
func (f *ListOffsetForm) FormKey() string    { return f.Key }
func (f *IndexedForm) FormKey() string       { return f.Key }
func (f *IndexedOptionForm) FormKey() string { return f.Key }
func (f *ByteMaskedForm) FormKey() string    { return f.Key }
func (f *BitMaskedForm) FormKey() string     { return f.Key }
func (f *UnmaskedForm) FormKey() string      { return f.Key }
func (f *RecordForm) FormKey() string        { return f.Key }
func (f *UnionForm) FormKey() string         { return f.Key }

func (f *EmptyForm) Parameters() Parameters         { return f.Params }
func (f *PrimitiveForm) Parameters() Parameters     { return f.Params }
func (f *RegularForm) Parameters() Parameters       { return f.Params }
func (f *ListForm) Parameters() Parameters          { return f.Params }
func (f *ListOffsetForm) Parameters() Parameters    { return f.Params }
func (f *IndexedForm) Parameters() Parameters       { return f.Params }
func (f *IndexedOptionForm) Parameters() Parameters { return f.Params }
func (f *ByteMaskedForm) Parameters() Parameters    { return f.Params }
func (f *BitMaskedForm) Parameters() Parameters     { return f.Params }
func (f *UnmaskedForm) Parameters() Parameters      { return f.Params }
func (f *RecordForm) Parameters() Parameters        { return f.Params }
func (f *UnionForm) Parameters() Parameters         { return f.Params }

func (f *EmptyForm) Children() []Form         { return nil }
func (f *PrimitiveForm) Children() []Form     { return nil }
func (f *RegularForm) Children() []Form       { return []Form{f.Content} }
func (f *ListForm) Children() []Form          { return []Form{f.Content} }
func (f *ListOffsetForm) Children() []Form    { return []Form{f.Content} }
func (f *IndexedForm) Children() []Form       { return []Form{f.Content} }
func (f *IndexedOptionForm) Children() []Form { return []Form{f.Content} }
func (f *ByteMaskedForm) Children() []Form    { return []Form{f.Content} }
func (f *BitMaskedForm) Children() []Form     { return []Form{f.Content} }
func (f *UnmaskedForm) Children() []Form      { return []Form{f.Content} }
func (f *RecordForm) Children() []Form        { return f.Contents }
func (f *UnionForm) Children() []Form         { return f.Contents }

// IsTuple reports whether the record has positional fields only.
func (f *RecordForm) IsTuple() bool { return f.Fields == nil }

// FieldNames returns declared names, or "0", "1", ... for a tuple.
func (f *RecordForm) FieldNames() []string {
	if f.Fields != nil {
		return append([]string(nil), f.Fields...)
	}
	names := make([]string, len(f.Contents))
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Equal compares two forms structurally. Form keys are ignored; parameters
// are compared by canonical JSON.
func Equal(a, b Form) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Class() != b.Class() || !a.Parameters().Equal(b.Parameters()) {
		return false
	}
	switch x := a.(type) {
	case *PrimitiveForm:
		y := b.(*PrimitiveForm)
		if x.Primitive != y.Primitive || len(x.InnerShape) != len(y.InnerShape) {
			return false
		}
		for i := range x.InnerShape {
			if x.InnerShape[i] != y.InnerShape[i] {
				return false
			}
		}
		return true
	case *RegularForm:
		y := b.(*RegularForm)
		return x.Size == y.Size && Equal(x.Content, y.Content)
	case *ListForm:
		y := b.(*ListForm)
		return x.Starts == y.Starts && x.Stops == y.Stops && Equal(x.Content, y.Content)
	case *ListOffsetForm:
		y := b.(*ListOffsetForm)
		return x.Offsets == y.Offsets && Equal(x.Content, y.Content)
	case *IndexedForm:
		y := b.(*IndexedForm)
		return x.Index == y.Index && Equal(x.Content, y.Content)
	case *IndexedOptionForm:
		y := b.(*IndexedOptionForm)
		return x.Index == y.Index && Equal(x.Content, y.Content)
	case *ByteMaskedForm:
		y := b.(*ByteMaskedForm)
		return x.Mask == y.Mask && x.ValidWhen == y.ValidWhen && Equal(x.Content, y.Content)
	case *BitMaskedForm:
		y := b.(*BitMaskedForm)
		return x.Mask == y.Mask && x.ValidWhen == y.ValidWhen &&
			x.LSBOrder == y.LSBOrder && Equal(x.Content, y.Content)
	case *RecordForm:
		y := b.(*RecordForm)
		if x.IsTuple() != y.IsTuple() || len(x.Contents) != len(y.Contents) {
			return false
		}
		for i := range x.Contents {
			if !x.IsTuple() && x.Fields[i] != y.Fields[i] {
				return false
			}
			if !Equal(x.Contents[i], y.Contents[i]) {
				return false
			}
		}
		return true
	case *UnionForm:
		y := b.(*UnionForm)
		if x.Tags != y.Tags || x.Index != y.Index || len(x.Contents) != len(y.Contents) {
			return false
		}
		for i := range x.Contents {
			if !Equal(x.Contents[i], y.Contents[i]) {
				return false
			}
		}
		return true
	default:
		// Empty, Unmasked: class and parameters already matched.
		ac, bc := a.Children(), b.Children()
		if len(ac) != len(bc) {
			return false
		}
		for i := range ac {
			if !Equal(ac[i], bc[i]) {
				return false
			}
		}
		return true
	}
}
