package form

import (
	"errors"
	"strings"
	"testing"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
)

func sampleForm() Form {
	return &ListOffsetForm{
		Offsets: index.I64,
		Content: &RecordForm{
			Fields: []string{"x", "y"},
			Contents: []Form{
				&PrimitiveForm{Primitive: dtype.Float64, Key: "node2"},
				&IndexedOptionForm{
					Index:   index.I64,
					Content: &PrimitiveForm{Primitive: dtype.Int32, Key: "node4"},
					Key:     "node3",
				},
			},
			Key: "node1",
		},
		Params: Parameters{"__array__": "sorted_map"},
		Key:    "node0",
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := sampleForm()
	data, err := ToJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v\n%s", err, data)
	}
	if !Equal(f, back) {
		t.Errorf("round trip changed form:\n%s", data)
	}
	if back.FormKey() != "node0" {
		t.Errorf("form key = %q", back.FormKey())
	}
	rec, ok := back.Children()[0].(*RecordForm)
	if !ok || rec.IsTuple() {
		t.Fatalf("child = %#v", back.Children()[0])
	}
	if got := rec.FieldNames(); got[0] != "x" || got[1] != "y" {
		t.Errorf("fields = %v", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	f := sampleForm()
	data, err := ToYAML(f)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromYAML(data)
	if err != nil {
		t.Fatalf("FromYAML: %v\n%s", err, data)
	}
	if !Equal(f, back) {
		t.Errorf("yaml round trip changed form:\n%s", data)
	}
}

func TestPrimitiveShorthand(t *testing.T) {
	f, err := FromJSON([]byte(`"float64"`))
	if err != nil {
		t.Fatal(err)
	}
	p, ok := f.(*PrimitiveForm)
	if !ok || p.Primitive != dtype.Float64 {
		t.Errorf("shorthand = %#v", f)
	}
}

func TestFromJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no class", `{"primitive": "float64"}`},
		{"unknown class", `{"class": "GrowableBuffer"}`},
		{"bad primitive", `{"class": "NumpyArray", "primitive": "decimal"}`},
		{"missing content", `{"class": "ListOffsetArray", "offsets": "i64"}`},
		{"bad offsets width", `{"class": "ListOffsetArray", "offsets": "i16", "content": "float64"}`},
		{"field arity", `{"class": "RecordArray", "fields": ["x"], "contents": []}`},
		{"bad shorthand", `"decimal"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromJSON([]byte(tt.in)); !errors.Is(err, ErrBadForm) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestDepthGuard(t *testing.T) {
	var b strings.Builder
	for range MaxDepth + 2 {
		b.WriteString(`{"class": "ListOffsetArray", "offsets": "i64", "content": `)
	}
	b.WriteString(`"float64"`)
	for range MaxDepth + 2 {
		b.WriteString(`}`)
	}
	if _, err := FromJSON([]byte(b.String())); !errors.Is(err, ErrDepth) {
		t.Errorf("err = %v", err)
	}
}

func TestEqual(t *testing.T) {
	base := sampleForm()
	same, err := FromJSON(mustJSON(t, base))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(base, same) {
		t.Error("reparsed form not equal")
	}
	keyless := sampleForm()
	keyless.(*ListOffsetForm).Key = ""
	if !Equal(base, keyless) {
		t.Error("form keys leaked into equality")
	}
	diff := sampleForm()
	diff.(*ListOffsetForm).Content.(*RecordForm).Fields[1] = "z"
	if Equal(base, diff) {
		t.Error("renamed field compared equal")
	}
	noParams := sampleForm()
	noParams.(*ListOffsetForm).Params = nil
	if Equal(base, noParams) {
		t.Error("dropped parameters compared equal")
	}
}

func TestApplyPatch(t *testing.T) {
	f := sampleForm()
	patch := []byte(`[{"op": "replace", "path": "/content/fields/1", "value": "energy"}]`)
	out, err := ApplyPatch(f, patch)
	if err != nil {
		t.Fatal(err)
	}
	rec := out.(*ListOffsetForm).Content.(*RecordForm)
	if rec.Fields[1] != "energy" {
		t.Errorf("fields = %v", rec.Fields)
	}
	if _, err := ApplyPatch(f, []byte(`[{"op": "bogus"}]`)); err == nil {
		t.Error("bogus patch accepted")
	}
	// A patch that breaks the schema fails on reparse.
	bad := []byte(`[{"op": "replace", "path": "/offsets", "value": "i16"}]`)
	if _, err := ApplyPatch(f, bad); !errors.Is(err, ErrBadForm) {
		t.Errorf("err = %v", err)
	}
}

func mustJSON(t *testing.T, f Form) []byte {
	t.Helper()
	data, err := ToJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
