package buffers

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

func TestTypeTracerTouchReport(t *testing.T) {
	x := listOf(t, []int64{0, 2, 3}, floats(t, 1.5, 2.5, 3.5))
	f, _, _, err := ToBuffers(x)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	traced, rep, err := TypeTracer(f)
	if err != nil {
		t.Fatalf("TypeTracer: %v", err)
	}
	if traced.Backend().KnownData() {
		t.Error("traced tree claims concrete data")
	}
	if _, known := traced.Length().Known(); known {
		t.Error("traced tree claims a known length")
	}
	if got := rep.DataTouched(); len(got) != 0 {
		t.Fatalf("report dirty before any access: %v", got)
	}

	row, err := traced.GetItemAt(0)
	if err != nil {
		t.Fatalf("GetItemAt(0): %v", err)
	}
	inner, ok := row.(layout.Content)
	if !ok {
		t.Fatalf("row is %T, want a Content", row)
	}
	v, err := inner.GetItemAt(0)
	if err != nil {
		t.Fatalf("inner GetItemAt(0): %v", err)
	}
	if _, ok := v.(layout.UnknownValue); !ok {
		t.Errorf("leaf value is %T, want UnknownValue", v)
	}

	if diff := cmp.Diff([]string{"node0", "node1"}, rep.DataTouched()); diff != "" {
		t.Errorf("data touches (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"node0", "node1"}, rep.ShapeTouched()); diff != "" {
		t.Errorf("shape touches (-want +got):\n%s", diff)
	}
}

func TestTypeTracerFieldProjection(t *testing.T) {
	x := record(t, []string{"pt", "eta"},
		floats(t, 10.0, 20.0),
		floats(t, 0.1, 0.2))
	f, _, _, err := ToBuffers(x)
	if err != nil {
		t.Fatalf("ToBuffers: %v", err)
	}
	traced, rep, err := TypeTracer(f)
	if err != nil {
		t.Fatalf("TypeTracer: %v", err)
	}
	col, err := traced.GetItemField("pt")
	if err != nil {
		t.Fatalf("GetItemField: %v", err)
	}
	if _, err := col.GetItemAt(0); err != nil {
		t.Fatalf("GetItemAt: %v", err)
	}
	// Only the projected column's buffer shows up.
	if diff := cmp.Diff([]string{"node1"}, rep.DataTouched()); diff != "" {
		t.Errorf("data touches (-want +got):\n%s", diff)
	}
}

func TestTypeTracerNeedsKeys(t *testing.T) {
	f := &form.ListOffsetForm{
		Offsets: index.I64,
		Content: &form.PrimitiveForm{Primitive: dtype.Float64, Key: "d"},
	}
	if _, _, err := TypeTracer(f); !errors.Is(err, form.ErrBadForm) {
		t.Errorf("err = %v, want ErrBadForm", err)
	}
}

func TestTypeTracerBufferlessKeysOptional(t *testing.T) {
	f := &form.RegularForm{
		Size:    3,
		Content: &form.PrimitiveForm{Primitive: dtype.Int64, Key: "node1"},
	}
	traced, rep, err := TypeTracer(f)
	if err != nil {
		t.Fatalf("TypeTracer: %v", err)
	}
	traced.TouchData(true)
	if diff := cmp.Diff([]string{"node1"}, rep.DataTouched()); diff != "" {
		t.Errorf("data touches (-want +got):\n%s", diff)
	}
}

func TestTypeTracerNilForm(t *testing.T) {
	if _, _, err := TypeTracer(nil); !errors.Is(err, form.ErrBadForm) {
		t.Errorf("err = %v, want ErrBadForm", err)
	}
}
