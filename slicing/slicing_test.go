package slicing

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
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

func bools(t *testing.T, vals ...bool) *layout.Primitive {
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

// ragged is [[1, 2, 3], [], [4, 5]].
func ragged(t *testing.T) *layout.ListOffset {
	t.Helper()
	return listOf(t, []int64{0, 3, 3, 5}, ints(t, 1, 2, 3, 4, 5))
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

func sliced(t *testing.T, c layout.Content, items ...any) layout.Content {
	t.Helper()
	out, err := Slice(c, items...)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	sc, ok := out.(layout.Content)
	if !ok {
		t.Fatalf("Slice returned %T, want a Content", out)
	}
	return sc
}

func normalized(t *testing.T, items ...any) []layout.SliceItem {
	t.Helper()
	out, err := Normalize(backend.CPU(), items)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return out
}

func arrayValues(t *testing.T, it layout.SliceItem) []int64 {
	t.Helper()
	sa, ok := it.(layout.SliceArray)
	if !ok {
		t.Fatalf("item is %T, want SliceArray", it)
	}
	return sa.Values.Data()
}

func TestNormalizeScalars(t *testing.T) {
	items := normalized(t, 3, Span(1, 4), Range{}, Span(4, 0).By(-1), "x", []string{"a", "b"}, NewAxis{}, Ellipsis{})
	if got := items[0].(layout.SliceAt); got != 3 {
		t.Errorf("at = %d, want 3", got)
	}
	if got, want := items[1].(layout.SliceRange), (layout.SliceRange{Start: 1, Stop: 4, Step: layout.SliceNone}); got != want {
		t.Errorf("span = %+v, want %+v", got, want)
	}
	if got, want := items[2].(layout.SliceRange), (layout.SliceRange{Start: layout.SliceNone, Stop: layout.SliceNone, Step: layout.SliceNone}); got != want {
		t.Errorf("open range = %+v, want %+v", got, want)
	}
	if got, want := items[3].(layout.SliceRange), (layout.SliceRange{Start: 4, Stop: 0, Step: -1}); got != want {
		t.Errorf("stepped = %+v, want %+v", got, want)
	}
	if got := items[4].(layout.SliceField); got != "x" {
		t.Errorf("field = %q, want x", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, []string(items[5].(layout.SliceFields))); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if _, ok := items[6].(layout.SliceNewAxis); !ok {
		t.Errorf("item 6 is %T, want SliceNewAxis", items[6])
	}
	if _, ok := items[7].(layout.SliceEllipsis); !ok {
		t.Errorf("item 7 is %T, want SliceEllipsis", items[7])
	}
}

func TestNormalizeIntWidths(t *testing.T) {
	items := normalized(t, int8(-1), uint16(7), int64(-3), uint64(2))
	want := []int64{-1, 7, -3, 2}
	for i, it := range items {
		if got := int64(it.(layout.SliceAt)); got != want[i] {
			t.Errorf("item %d = %d, want %d", i, got, want[i])
		}
	}
	if _, err := Normalize(backend.CPU(), []any{uint64(math.MaxUint64)}); !errors.Is(err, layout.ErrIndexBounds) {
		t.Errorf("overflow err = %v, want ErrIndexBounds", err)
	}
}

func TestNormalizeGoSlices(t *testing.T) {
	items := normalized(t, []int64{0, 2}, []int{1}, []bool{true, false, true})
	if diff := cmp.Diff([]int64{0, 2}, arrayValues(t, items[0])); diff != "" {
		t.Errorf("int64 slice mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1}, arrayValues(t, items[1])); diff != "" {
		t.Errorf("int slice mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{0, 2}, arrayValues(t, items[2])); diff != "" {
		t.Errorf("bool slice mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, tt := range []struct {
		name string
		item func(t *testing.T) any
	}{
		{"nil", func(*testing.T) any { return nil }},
		{"struct", func(*testing.T) any { return struct{}{} }},
		{"float slice", func(*testing.T) any { return []float64{1.5} }},
		{"float content", func(t *testing.T) any { return floats(t, 1.5) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(backend.CPU(), []any{tt.item(t)})
			if !errors.Is(err, layout.ErrStructuralType) {
				t.Errorf("err = %v, want ErrStructuralType", err)
			}
		})
	}
}

func TestNormalizeModeExclusion(t *testing.T) {
	jag := listOf(t, []int64{0, 1, 1, 2}, ints(t, 0, 0))
	if _, err := Normalize(backend.CPU(), []any{jag, jag}); !errors.Is(err, ErrIncompatibleIndexingMode) {
		t.Errorf("two jagged: err = %v, want ErrIncompatibleIndexingMode", err)
	}
	if _, err := Normalize(backend.CPU(), []any{jag, []int64{0}}); !errors.Is(err, ErrIncompatibleIndexingMode) {
		t.Errorf("jagged with array: err = %v, want ErrIncompatibleIndexingMode", err)
	}
	if _, err := Normalize(backend.CPU(), []any{jag, 0}); err != nil {
		t.Errorf("jagged with integer: %v", err)
	}
	if _, err := Normalize(backend.CPU(), []any{jag, Range{}}); err != nil {
		t.Errorf("jagged with range: %v", err)
	}
}

func TestNormalizeArrayGroups(t *testing.T) {
	if _, err := Normalize(backend.CPU(), []any{[]int64{0}, Range{}, []int64{0}}); !errors.Is(err, layout.ErrStructuralType) {
		t.Errorf("split by range: err = %v, want ErrStructuralType", err)
	}
	if _, err := Normalize(backend.CPU(), []any{[]int64{0}, NewAxis{}, []int64{0}}); !errors.Is(err, layout.ErrStructuralType) {
		t.Errorf("split by new axis: err = %v, want ErrStructuralType", err)
	}
	if _, err := Normalize(backend.CPU(), []any{[]int64{0}, 1, []int64{0}}); err != nil {
		t.Errorf("integer keeps the group: %v", err)
	}
	if _, err := Normalize(backend.CPU(), []any{Range{}, []int64{0}, []int64{0}}); err != nil {
		t.Errorf("leading range: %v", err)
	}
}

func TestNormalizeBroadcast(t *testing.T) {
	items := normalized(t, []int64{0, 1}, []int64{5})
	if diff := cmp.Diff([]int64{5, 5}, arrayValues(t, items[1])); diff != "" {
		t.Errorf("stretched values mismatch (-want +got):\n%s", diff)
	}
	sa := items[1].(layout.SliceArray)
	if diff := cmp.Diff([]int64{2}, sa.Shape); diff != "" {
		t.Errorf("stretched shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{0, 1}, arrayValues(t, items[0])); diff != "" {
		t.Errorf("left values mismatch (-want +got):\n%s", diff)
	}

	reg, err := layout.NewRegular(ints(t, 0, 1, 1, 0), 2, 2, nil)
	if err != nil {
		t.Fatalf("NewRegular: %v", err)
	}
	items = normalized(t, reg, []int64{1})
	sa = items[1].(layout.SliceArray)
	if diff := cmp.Diff([]int64{2, 2}, sa.Shape); diff != "" {
		t.Errorf("broadcast shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1, 1, 1, 1}, sa.Values.Data()); diff != "" {
		t.Errorf("broadcast values mismatch (-want +got):\n%s", diff)
	}

	if _, err := Normalize(backend.CPU(), []any{[]int64{0, 1}, []int64{0, 1, 2}}); !errors.Is(err, layout.ErrIndexBounds) {
		t.Errorf("mismatch err = %v, want ErrIndexBounds", err)
	}
}

func TestSliceScalarsAndRanges(t *testing.T) {
	x := ragged(t)
	out, err := Slice(x, 0, 1)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got, ok := out.(int64); !ok || got != 2 {
		t.Errorf("x[0, 1] = %v, want 2", out)
	}
	wantList(t, sliced(t, x, Span(0, 2)), []any{
		[]any{int64(1), int64(2), int64(3)},
		[]any{},
	})
	wantList(t, sliced(t, x, Ellipsis{}, 0), []any{int64(1), int64(4)})
}

func TestSliceBoolMask(t *testing.T) {
	x := ragged(t)
	wantList(t, sliced(t, x, []bool{true, false, true}), []any{
		[]any{int64(1), int64(2), int64(3)},
		[]any{int64(4), int64(5)},
	})
}

func TestSliceAdvancedPairs(t *testing.T) {
	x := listOf(t, []int64{0, 2, 4}, ints(t, 1, 2, 3, 4))
	wantList(t, sliced(t, x, []int64{0, 1}, []int64{1, 0}), []any{int64(2), int64(3)})
	wantList(t, sliced(t, x, []int64{0, 1}, []int64{1}), []any{int64(2), int64(4)})
}

func TestSliceJaggedBools(t *testing.T) {
	x := ragged(t)
	picks := listOf(t, []int64{0, 3, 3, 5}, bools(t, true, false, true, false, true))
	wantList(t, sliced(t, x, picks), []any{
		[]any{int64(1), int64(3)},
		[]any{},
		[]any{int64(5)},
	})
}

func TestSliceMissingPositions(t *testing.T) {
	y := ints(t, 1, 2, 3, 4, 5)
	opt, err := layout.NewIndexedOption(index.Wrap(index.I64, []int64{0, -1, 2}), ints(t, 0, 9, 2), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	wantList(t, sliced(t, y, opt), []any{int64(1), nil, int64(3)})
}

func TestSliceEmptyExpression(t *testing.T) {
	x := ragged(t)
	out, err := Slice(x)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if out != any(x) {
		t.Errorf("empty expression returned %T, want the input", out)
	}
}
