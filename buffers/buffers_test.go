package buffers

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/shape"
)

func ints(t *testing.T, vals ...int64) *layout.Primitive {
	t.Helper()
	p, err := layout.NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func floats(t *testing.T, vals ...float64) *layout.Primitive {
	t.Helper()
	p, err := layout.NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func listOf(t *testing.T, offs []int64, c layout.Content) *layout.ListOffset {
	t.Helper()
	lo, err := layout.NewListOffset(index.Wrap(index.I64, offs), c, nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	return lo
}

func record(t *testing.T, fields []string, contents ...layout.Content) *layout.Record {
	t.Helper()
	r, err := layout.NewRecord(contents, fields, shape.Unknown(), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return r
}

func wantList(t *testing.T, c layout.Content, want []any) {
	t.Helper()
	got, err := c.ToList()
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

// roundTrip decomposes and rebuilds with the same options.
func roundTrip(t *testing.T, c layout.Content, opts ...Option) layout.Content {
	t.Helper()
	f, n, cont, err := ToBuffers(c, opts...)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	out, err := FromBuffers(f, n, cont, opts...)
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	return out
}

// indexBytes encodes values at an index width in machine order, for
// hand-built containers.
func indexBytes(t *testing.T, k index.Kind, vals ...int64) []byte {
	t.Helper()
	raw, err := index.Wrap(k, vals).ToBytes(dtype.NativeOrder())
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	return raw
}

func dataBytes[T backend.Element](t *testing.T, vals ...T) []byte {
	t.Helper()
	raw, err := backend.CPU().ToBytes(backend.Of(vals), dtype.NativeOrder())
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	return raw
}

func TestRoundTripListOffset(t *testing.T) {
	x := listOf(t, []int64{0, 3, 3, 5}, ints(t, 1, 2, 3, 4, 5))
	f, n, cont, err := ToBuffers(x)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	if n != 3 {
		t.Errorf("length = %d, want 3", n)
	}
	lf, ok := f.(*form.ListOffsetForm)
	if !ok {
		t.Fatalf("form is %T, want ListOffsetForm", f)
	}
	if lf.Key != "node0" || lf.Content.FormKey() != "node1" {
		t.Errorf("form keys = %q, %q, want node0, node1", lf.Key, lf.Content.FormKey())
	}
	keys := make([]string, 0, len(cont))
	for k := range cont {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if diff := cmp.Diff([]string{"node0-offsets", "node1-data"}, keys); diff != "" {
		t.Errorf("container keys (-want +got):\n%s", diff)
	}
	out, err := FromBuffers(f, n, cont)
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	wantList(t, out, []any{
		[]any{int64(1), int64(2), int64(3)},
		[]any{},
		[]any{int64(4), int64(5)},
	})
}

func TestRoundTripDeepNesting(t *testing.T) {
	rec := record(t, []string{"x", "y"},
		floats(t, 1.5, 2.5, 3.5),
		listOf(t, []int64{0, 1, 1, 3}, ints(t, 10, 20, 30)))
	opt, err := layout.NewIndexedOption(index.Wrap(index.I64, []int64{0, -1, 2, 1}), rec, nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	x := listOf(t, []int64{0, 2, 2, 4}, opt)
	wantList(t, roundTrip(t, x), []any{
		[]any{map[string]any{"x": 1.5, "y": []any{int64(10)}}, nil},
		[]any{},
		[]any{
			map[string]any{"x": 3.5, "y": []any{int64(20), int64(30)}},
			map[string]any{"x": 2.5, "y": []any{}},
		},
	})
}

func TestFormKeysNumberDepthFirst(t *testing.T) {
	x := record(t, []string{"a", "b"},
		ints(t, 1, 2),
		listOf(t, []int64{0, 1, 3}, floats(t, 0.5, 1.5, 2.5)))
	f, _, cont, err := ToBuffers(x)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	rf := f.(*form.RecordForm)
	got := []string{rf.Key, rf.Contents[0].FormKey(), rf.Contents[1].FormKey(), rf.Contents[1].Children()[0].FormKey()}
	if diff := cmp.Diff([]string{"node0", "node1", "node2", "node3"}, got); diff != "" {
		t.Errorf("form keys (-want +got):\n%s", diff)
	}
	for _, key := range []string{"node1-data", "node2-offsets", "node3-data"} {
		if _, err := cont.Get(key); err != nil {
			t.Errorf("container missing %q: %v", key, err)
		}
	}
}

func TestTupleSurvivesRoundTrip(t *testing.T) {
	x := record(t, nil, ints(t, 1, 2), floats(t, 0.5, 1.5))
	out := roundTrip(t, x)
	r, ok := out.(*layout.Record)
	if !ok {
		t.Fatalf("rebuilt as %T, want Record", out)
	}
	if !r.IsTuple() {
		t.Error("tuple came back named")
	}
	wantList(t, out, []any{
		[]any{int64(1), 0.5},
		[]any{int64(2), 1.5},
	})
}

func TestListChildLength(t *testing.T) {
	f := &form.ListForm{
		Starts: index.I64, Stops: index.I64,
		Content: &form.PrimitiveForm{Primitive: dtype.Int64, Key: "d"},
		Key:     "l",
	}
	t.Run("largest stop wins", func(t *testing.T) {
		cont := MapContainer{
			"l-starts": indexBytes(t, index.I64, 0, 3),
			"l-stops":  indexBytes(t, index.I64, 3, 3),
			"d-data":   dataBytes(t, int64(7), int64(8), int64(9)),
		}
		out, err := FromBuffers(f, 2, cont)
		if err != nil {
			t.Fatalf("FromBuffers: %v", err)
		}
		wantList(t, out, []any{[]any{int64(7), int64(8), int64(9)}, []any{}})
	})
	t.Run("all rows empty", func(t *testing.T) {
		// Stale bounds on empty rows must not reach the content.
		cont := MapContainer{
			"l-starts": indexBytes(t, index.I64, 5, 5),
			"l-stops":  indexBytes(t, index.I64, 5, 5),
			"d-data":   []byte{},
		}
		out, err := FromBuffers(f, 2, cont)
		if err != nil {
			t.Fatalf("FromBuffers: %v", err)
		}
		wantList(t, out, []any{[]any{}, []any{}})
	})
}

func TestUnionChildLengths(t *testing.T) {
	f := &form.UnionForm{
		Tags: index.I8, Index: index.I64,
		Contents: []form.Form{
			&form.PrimitiveForm{Primitive: dtype.Int64, Key: "a"},
			&form.PrimitiveForm{Primitive: dtype.Float64, Key: "b"},
		},
		Key: "u",
	}
	cont := MapContainer{
		"u-tags":  indexBytes(t, index.I8, 0, 1, 0, 1),
		"u-index": indexBytes(t, index.I64, 0, 0, 1, 1),
		// Both data buffers hold slack past the reachable rows.
		"a-data": dataBytes(t, int64(1), int64(2), int64(99)),
		"b-data": dataBytes(t, 0.5, 1.5, 2.5, 3.5),
	}
	out, err := FromBuffers(f, 4, cont)
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	u, ok := out.(*layout.Union)
	if !ok {
		t.Fatalf("rebuilt as %T, want Union", out)
	}
	if n := u.Content(0).Length().MustKnown(); n != 2 {
		t.Errorf("tag 0 length = %d, want 2", n)
	}
	if n := u.Content(1).Length().MustKnown(); n != 2 {
		t.Errorf("tag 1 length = %d, want 2", n)
	}
	wantList(t, out, []any{int64(1), 0.5, int64(2), 1.5})
}

func TestZeroLengthListOffset(t *testing.T) {
	x := listOf(t, []int64{0}, ints(t))
	out := roundTrip(t, x)
	wantList(t, out, []any{})
	if n := out.Length().MustKnown(); n != 0 {
		t.Errorf("length = %d, want 0", n)
	}
}

func TestBitMaskedRoundTrip(t *testing.T) {
	m, err := layout.NewBitMasked(
		index.Wrap(index.U8, []int64{0b00000101}),
		ints(t, 7, 8, 9), true, true, shape.Of(3), nil)
	if err != nil {
		t.Fatalf("NewBitMasked: %v", err)
	}
	out := roundTrip(t, m)
	wantList(t, out, []any{int64(7), nil, int64(9)})
}

func TestByteOrder(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		x := listOf(t, []int64{0, 2}, ints(t, 256, -2))
		out := roundTrip(t, x, WithByteOrder(dtype.BigEndian))
		wantList(t, out, []any{[]any{int64(256), int64(-2)}})
	})
	t.Run("fixed big-endian bytes", func(t *testing.T) {
		f := &form.PrimitiveForm{Primitive: dtype.Int64, Key: "p"}
		cont := MapContainer{"p-data": {0, 0, 0, 0, 0, 0, 1, 0}}
		out, err := FromBuffers(f, 1, cont, WithByteOrder(dtype.BigEndian))
		if err != nil {
			t.Fatalf("FromBuffers: %v", err)
		}
		wantList(t, out, []any{int64(256)})
	})
}

func TestCustomKeyFunc(t *testing.T) {
	perAttr := func(f form.Form, attribute string) string {
		return attribute + "@" + f.FormKey()
	}
	x := listOf(t, []int64{0, 1}, ints(t, 42))
	f, n, cont, err := ToBuffers(x, WithKeyFunc(perAttr))
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	if _, err := cont.Get("offsets@node0"); err != nil {
		t.Fatalf("renamed key absent: %v", err)
	}
	out, err := FromBuffers(f, n, cont, WithKeyFunc(perAttr))
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	wantList(t, out, []any{[]any{int64(42)}})
}

func TestSimplifyRebuild(t *testing.T) {
	f := &form.IndexedForm{
		Index: index.I64,
		Content: &form.IndexedForm{
			Index:   index.I64,
			Content: &form.PrimitiveForm{Primitive: dtype.Float64, Key: "d"},
			Key:     "inner",
		},
		Key: "outer",
	}
	cont := MapContainer{
		"outer-index": indexBytes(t, index.I64, 2, 0),
		"inner-index": indexBytes(t, index.I64, 1, 0, 2),
		"d-data":      dataBytes(t, 10.5, 11.5, 12.5),
	}
	if _, err := FromBuffers(f, 2, cont); !errors.Is(err, layout.ErrInvalid) {
		t.Fatalf("plain rebuild err = %v, want ErrInvalid", err)
	}
	out, err := FromBuffers(f, 2, cont, WithSimplify(true))
	if err != nil {
		t.Fatalf("simplified rebuild: %v", err)
	}
	if _, ok := out.(*layout.Indexed); !ok {
		t.Errorf("simplified to %T, want a single Indexed", out)
	}
	wantList(t, out, []any{12.5, 11.5})
}

func TestSimplifyMaskOverOption(t *testing.T) {
	f := &form.ByteMaskedForm{
		Mask: index.I8, ValidWhen: true,
		Content: &form.IndexedOptionForm{
			Index:   index.I64,
			Content: &form.PrimitiveForm{Primitive: dtype.Int64, Key: "d"},
			Key:     "opt",
		},
		Key: "m",
	}
	cont := MapContainer{
		"m-mask":    indexBytes(t, index.I8, 1, 0, 1),
		"opt-index": indexBytes(t, index.I64, 1, 0, -1),
		"d-data":    dataBytes(t, int64(10), int64(20)),
	}
	if _, err := FromBuffers(f, 3, cont); !errors.Is(err, layout.ErrInvalid) {
		t.Fatalf("plain rebuild err = %v, want ErrInvalid", err)
	}
	out, err := FromBuffers(f, 3, cont, WithSimplify(true))
	if err != nil {
		t.Fatalf("simplified rebuild: %v", err)
	}
	// Row 1 is masked away, row 2 was already missing underneath.
	wantList(t, out, []any{int64(20), nil, nil})
}

func TestSimplifyUnmasked(t *testing.T) {
	f := &form.UnmaskedForm{
		Content: &form.IndexedOptionForm{
			Index:   index.I64,
			Content: &form.PrimitiveForm{Primitive: dtype.Int64, Key: "d"},
			Key:     "opt",
		},
	}
	cont := MapContainer{
		"opt-index": indexBytes(t, index.I64, 0, -1),
		"d-data":    dataBytes(t, int64(5)),
	}
	out, err := FromBuffers(f, 2, cont, WithSimplify(true))
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	if _, ok := out.(*layout.IndexedOption); !ok {
		t.Errorf("simplified to %T, want the inner IndexedOption", out)
	}
	wantList(t, out, []any{int64(5), nil})
}

func TestFromBuffersErrors(t *testing.T) {
	prim := &form.PrimitiveForm{Primitive: dtype.Int64, Key: "p"}
	for _, tc := range []struct {
		name   string
		f      form.Form
		length int64
		cont   MapContainer
		want   error
	}{
		{
			name: "short buffer", f: prim, length: 2,
			cont: MapContainer{"p-data": dataBytes(t, int64(1))},
			want: ErrBufferSize,
		},
		{
			name: "missing buffer", f: prim, length: 1,
			cont: MapContainer{},
			want: ErrMissingBuffer,
		},
		{
			name: "empty form with rows", f: &form.EmptyForm{}, length: 2,
			cont: MapContainer{},
			want: layout.ErrInvalid,
		},
		{
			name: "negative length", f: prim, length: -1,
			cont: MapContainer{},
			want: layout.ErrInvalid,
		},
		{
			name: "tag out of range", length: 1,
			f: &form.UnionForm{
				Tags: index.I8, Index: index.I64,
				Contents: []form.Form{&form.PrimitiveForm{Primitive: dtype.Int64, Key: "a"}},
				Key:      "u",
			},
			cont: MapContainer{
				"u-tags":  indexBytes(t, index.I8, 1),
				"u-index": indexBytes(t, index.I64, 0),
			},
			want: layout.ErrIndexBounds,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromBuffers(tc.f, tc.length, tc.cont); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestToBuffersRejectsShapeOnly(t *testing.T) {
	x := listOf(t, []int64{0, 2}, ints(t, 1, 2))
	f, _, _, err := ToBuffers(x)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	traced, _, err := TypeTracer(f)
	if err != nil {
		t.Fatalf("TypeTracer: %v", err)
	}
	if _, _, _, err := ToBuffers(traced); !errors.Is(err, layout.ErrIncompatibleMode) {
		t.Errorf("err = %v, want ErrIncompatibleMode", err)
	}
}

func TestRoundTripPreservesParameters(t *testing.T) {
	lo, err := layout.NewListOffset(
		index.Wrap(index.I64, []int64{0, 2}),
		ints(t, 3, 4),
		form.Parameters{"__array__": "sorted"})
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	out := roundTrip(t, lo)
	if got := out.Parameters()["__array__"]; got != "sorted" {
		t.Errorf("parameters = %v, want __array__=sorted", out.Parameters())
	}
}
