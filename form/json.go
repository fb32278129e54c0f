package form

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
)

// ToJSON renders a form as class-tagged JSON.
func ToJSON(f Form) ([]byte, error) {
	raw, err := encodeForm(f)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ToJSONIndent is ToJSON with two-space indentation.
func ToJSONIndent(f Form) ([]byte, error) {
	raw, err := encodeForm(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromJSON parses a class-tagged form. A bare JSON string such as
// "float64" is shorthand for a primitive leaf.
func FromJSON(data []byte) (Form, error) {
	return decodeForm(data, 0)
}

type jsonCommon struct {
	Parameters Parameters `json:"parameters,omitempty"`
	FormKey    *string    `json:"form_key"`
}

func common(params Parameters, key string) jsonCommon {
	c := jsonCommon{Parameters: params}
	if key != "" {
		c.FormKey = &key
	}
	return c
}

func encodeForm(f Form) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil form", ErrBadForm)
	}
	switch x := f.(type) {
	case *EmptyForm:
		return json.Marshal(struct {
			Class string `json:"class"`
			jsonCommon
		}{x.Class(), common(x.Params, x.Key)})
	case *PrimitiveForm:
		inner := x.InnerShape
		if inner == nil {
			inner = []int64{}
		}
		return json.Marshal(struct {
			Class      string  `json:"class"`
			Primitive  string  `json:"primitive"`
			InnerShape []int64 `json:"inner_shape"`
			jsonCommon
		}{x.Class(), x.Primitive.String(), inner, common(x.Params, x.Key)})
	case *RegularForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Size    int64           `json:"size"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Size, content, common(x.Params, x.Key)})
	case *ListForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Starts  string          `json:"starts"`
			Stops   string          `json:"stops"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Starts.String(), x.Stops.String(), content, common(x.Params, x.Key)})
	case *ListOffsetForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Offsets string          `json:"offsets"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Offsets.String(), content, common(x.Params, x.Key)})
	case *IndexedForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Index   string          `json:"index"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Index.String(), content, common(x.Params, x.Key)})
	case *IndexedOptionForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Index   string          `json:"index"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Index.String(), content, common(x.Params, x.Key)})
	case *ByteMaskedForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class     string          `json:"class"`
			Mask      string          `json:"mask"`
			ValidWhen bool            `json:"valid_when"`
			Content   json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Mask.String(), x.ValidWhen, content, common(x.Params, x.Key)})
	case *BitMaskedForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class     string          `json:"class"`
			Mask      string          `json:"mask"`
			ValidWhen bool            `json:"valid_when"`
			LSBOrder  bool            `json:"lsb_order"`
			Content   json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), x.Mask.String(), x.ValidWhen, x.LSBOrder, content, common(x.Params, x.Key)})
	case *UnmaskedForm:
		content, err := encodeForm(x.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Class   string          `json:"class"`
			Content json.RawMessage `json:"content"`
			jsonCommon
		}{x.Class(), content, common(x.Params, x.Key)})
	case *RecordForm:
		contents := make([]json.RawMessage, len(x.Contents))
		for i, c := range x.Contents {
			raw, err := encodeForm(c)
			if err != nil {
				return nil, err
			}
			contents[i] = raw
		}
		return json.Marshal(struct {
			Class    string            `json:"class"`
			Fields   []string          `json:"fields"`
			Contents []json.RawMessage `json:"contents"`
			jsonCommon
		}{x.Class(), x.Fields, contents, common(x.Params, x.Key)})
	case *UnionForm:
		contents := make([]json.RawMessage, len(x.Contents))
		for i, c := range x.Contents {
			raw, err := encodeForm(c)
			if err != nil {
				return nil, err
			}
			contents[i] = raw
		}
		return json.Marshal(struct {
			Class    string            `json:"class"`
			Tags     string            `json:"tags"`
			Index    string            `json:"index"`
			Contents []json.RawMessage `json:"contents"`
			jsonCommon
		}{x.Class(), x.Tags.String(), x.Index.String(), contents, common(x.Params, x.Key)})
	default:
		return nil, fmt.Errorf("%w: unknown form %T", ErrBadForm, f)
	}
}

func decodeForm(data []byte, depth int) (Form, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: form deeper than %d", ErrDepth, MaxDepth)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var prim string
		if err := json.Unmarshal(data, &prim); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
		}
		dt, err := dtype.ParseDType(prim)
		if err != nil {
			return nil, fmt.Errorf("%w: shorthand %q", ErrBadForm, prim)
		}
		return &PrimitiveForm{Primitive: dt}, nil
	}
	var obj struct {
		Class      string            `json:"class"`
		Primitive  string            `json:"primitive"`
		InnerShape []int64           `json:"inner_shape"`
		Size       int64             `json:"size"`
		Starts     string            `json:"starts"`
		Stops      string            `json:"stops"`
		Offsets    string            `json:"offsets"`
		Index      string            `json:"index"`
		Mask       string            `json:"mask"`
		Tags       string            `json:"tags"`
		ValidWhen  bool              `json:"valid_when"`
		LSBOrder   bool              `json:"lsb_order"`
		Fields     []string          `json:"fields"`
		Content    json.RawMessage   `json:"content"`
		Contents   []json.RawMessage `json:"contents"`
		Parameters Parameters        `json:"parameters"`
		FormKey    *string           `json:"form_key"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	key := ""
	if obj.FormKey != nil {
		key = *obj.FormKey
	}
	child := func() (Form, error) {
		if obj.Content == nil {
			return nil, fmt.Errorf("%w: %s missing content", ErrBadForm, obj.Class)
		}
		return decodeForm(obj.Content, depth+1)
	}
	children := func() ([]Form, error) {
		out := make([]Form, len(obj.Contents))
		for i, raw := range obj.Contents {
			c, err := decodeForm(raw, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	kind := func(s, what string) (index.Kind, error) {
		k, err := index.ParseKind(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %s: %v", ErrBadForm, obj.Class, what, err)
		}
		return k, nil
	}

	switch obj.Class {
	case "EmptyArray":
		return &EmptyForm{Params: obj.Parameters, Key: key}, nil
	case "NumpyArray":
		dt, err := dtype.ParseDType(obj.Primitive)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
		}
		return &PrimitiveForm{Primitive: dt, InnerShape: obj.InnerShape, Params: obj.Parameters, Key: key}, nil
	case "RegularArray":
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &RegularForm{Content: c, Size: obj.Size, Params: obj.Parameters, Key: key}, nil
	case "ListArray":
		starts, err := kind(obj.Starts, "starts")
		if err != nil {
			return nil, err
		}
		stops, err := kind(obj.Stops, "stops")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &ListForm{Starts: starts, Stops: stops, Content: c, Params: obj.Parameters, Key: key}, nil
	case "ListOffsetArray":
		offsets, err := kind(obj.Offsets, "offsets")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &ListOffsetForm{Offsets: offsets, Content: c, Params: obj.Parameters, Key: key}, nil
	case "IndexedArray":
		idx, err := kind(obj.Index, "index")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &IndexedForm{Index: idx, Content: c, Params: obj.Parameters, Key: key}, nil
	case "IndexedOptionArray":
		idx, err := kind(obj.Index, "index")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &IndexedOptionForm{Index: idx, Content: c, Params: obj.Parameters, Key: key}, nil
	case "ByteMaskedArray":
		mask, err := kind(obj.Mask, "mask")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &ByteMaskedForm{Mask: mask, ValidWhen: obj.ValidWhen, Content: c, Params: obj.Parameters, Key: key}, nil
	case "BitMaskedArray":
		mask, err := kind(obj.Mask, "mask")
		if err != nil {
			return nil, err
		}
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &BitMaskedForm{Mask: mask, ValidWhen: obj.ValidWhen, LSBOrder: obj.LSBOrder,
			Content: c, Params: obj.Parameters, Key: key}, nil
	case "UnmaskedArray":
		c, err := child()
		if err != nil {
			return nil, err
		}
		return &UnmaskedForm{Content: c, Params: obj.Parameters, Key: key}, nil
	case "RecordArray":
		cs, err := children()
		if err != nil {
			return nil, err
		}
		if obj.Fields != nil && len(obj.Fields) != len(cs) {
			return nil, fmt.Errorf("%w: record has %d fields, %d contents",
				ErrBadForm, len(obj.Fields), len(cs))
		}
		return &RecordForm{Fields: obj.Fields, Contents: cs, Params: obj.Parameters, Key: key}, nil
	case "UnionArray":
		tags, err := kind(obj.Tags, "tags")
		if err != nil {
			return nil, err
		}
		idx, err := kind(obj.Index, "index")
		if err != nil {
			return nil, err
		}
		cs, err := children()
		if err != nil {
			return nil, err
		}
		return &UnionForm{Tags: tags, Index: idx, Contents: cs, Params: obj.Parameters, Key: key}, nil
	case "":
		return nil, fmt.Errorf("%w: missing class", ErrBadForm)
	default:
		return nil, fmt.Errorf("%w: unknown class %q", ErrBadForm, obj.Class)
	}
}
