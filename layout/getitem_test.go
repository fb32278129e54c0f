package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

func full() SliceRange { return SliceRange{Start: SliceNone, Stop: SliceNone, Step: SliceNone} }

func rng(start, stop int64) SliceRange {
	return SliceRange{Start: start, Stop: stop, Step: SliceNone}
}

func rngStep(start, stop, step int64) SliceRange {
	return SliceRange{Start: start, Stop: stop, Step: step}
}

func posArray(vals ...int64) SliceArray {
	return SliceArray{Values: index.Wrap(index.I64, vals), Shape: []int64{int64(len(vals))}}
}

// getList runs a slice expression expected to produce a node, not a scalar.
func getList(t *testing.T, c Content, items ...SliceItem) any {
	t.Helper()
	out, err := GetItem(c, items...)
	if err != nil {
		t.Fatalf("GetItem(%v): %v", items, err)
	}
	node, isNode := out.(Content)
	if !isNode {
		t.Fatalf("GetItem(%v) = %T, want a node", items, out)
	}
	lst, err := node.ToList()
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	return lst
}

// pairs is the recurring [[1,2],[3,4]] example.
func pairs(t *testing.T) *ListOffset {
	t.Helper()
	return listOf(t, []int64{0, 2, 4}, ints(t, 1, 2, 3, 4))
}

func TestGetItemChainEqualsTuple(t *testing.T) {
	x := pairs(t)
	row0, err := GetItem(x, SliceAt(0))
	if err != nil {
		t.Fatalf("GetItem(0): %v", err)
	}
	chained, err := GetItem(row0.(Content), SliceAt(1))
	if err != nil {
		t.Fatalf("GetItem(0)(1): %v", err)
	}
	tupled, err := GetItem(x, SliceAt(0), SliceAt(1))
	if err != nil {
		t.Fatalf("GetItem(0,1): %v", err)
	}
	if chained != int64(2) || tupled != int64(2) {
		t.Errorf("chained = %v, tupled = %v, want 2 twice", chained, tupled)
	}

	chainRange := getList(t, row0.(Content), rng(1, 2))
	tupleRange := getList(t, x, SliceAt(0), rng(1, 2))
	if diff := cmp.Diff(chainRange, tupleRange); diff != "" {
		t.Errorf("x[0][1:2] vs x[0, 1:2] (-chain +tuple):\n%s", diff)
	}
}

func TestGetItemRangeSteps(t *testing.T) {
	p := ints(t, 0, 1, 2, 3, 4, 5)
	tests := []struct {
		name string
		r    SliceRange
		want any
	}{
		{"plain", rng(1, 4), row(int64(1), int64(2), int64(3))},
		{"stride", rngStep(SliceNone, SliceNone, 2), row(int64(0), int64(2), int64(4))},
		{"reversed", rngStep(SliceNone, SliceNone, -1), row(int64(5), int64(4), int64(3), int64(2), int64(1), int64(0))},
		{"downhill", rngStep(4, 0, -2), row(int64(4), int64(2))},
		{"past end", rng(4, 99), row(int64(4), int64(5))},
		{"empty", rng(3, 1), row()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getList(t, p, tt.r)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("slice mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if _, err := GetItem(p, rngStep(0, 4, 0)); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero step err = %v", err)
	}
}

func TestGetItemInnerDimension(t *testing.T) {
	x := pairs(t)
	got := getList(t, x, full(), SliceAt(1))
	if diff := cmp.Diff(row(int64(2), int64(4)), got); diff != "" {
		t.Errorf("x[:, 1] mismatch (-want +got):\n%s", diff)
	}
	got = getList(t, x, full(), rng(1, 2))
	want := row(row(int64(2)), row(int64(4)))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("x[:, 1:2] mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemEllipsis(t *testing.T) {
	x := pairs(t)
	got := getList(t, x, SliceEllipsis{}, SliceAt(0))
	if diff := cmp.Diff(row(int64(1), int64(3)), got); diff != "" {
		t.Errorf("x[..., 0] mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemNewAxis(t *testing.T) {
	x := ragged(t)
	got := getList(t, x, SliceNewAxis{})
	want := row(row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
	))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("x[newaxis] mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemAdvanced(t *testing.T) {
	x := ragged(t)
	got := getList(t, x, posArray(0, 2))
	want := row(
		row(int64(1), int64(2), int64(3)),
		row(int64(4), int64(5)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("x[[0,2]] mismatch (-want +got):\n%s", diff)
	}
	got = getList(t, x, posArray(-1, -3))
	want = row(
		row(int64(4), int64(5)),
		row(int64(1), int64(2), int64(3)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("x[[-1,-3]] mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemBroadcastPairs(t *testing.T) {
	x := ragged(t)
	got := getList(t, x, posArray(0, 2), posArray(1, 0))
	if diff := cmp.Diff(row(int64(2), int64(4)), got); diff != "" {
		t.Errorf("x[[0,2],[1,0]] mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemJaggedPositions(t *testing.T) {
	x := ragged(t)
	jagged := listOf(t, []int64{0, 2, 2, 3}, ints(t, 0, 2, 1))
	got := getList(t, x, SliceContent{Content: jagged})
	want := row(
		row(int64(1), int64(3)),
		row(),
		row(int64(5)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("jagged pick mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemJaggedLengthMismatch(t *testing.T) {
	x := ragged(t)
	jagged := listOf(t, []int64{0, 1, 2}, ints(t, 0, 0))
	if _, err := GetItem(x, SliceContent{Content: jagged}); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("short jagged err = %v", err)
	}
}

func TestGetItemMissingPositions(t *testing.T) {
	x := ragged(t)
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{0, -1, 1}), ints(t, 0, 2), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	got := getList(t, x, SliceContent{Content: opt})
	want := row(
		row(int64(1), int64(2), int64(3)),
		nil,
		row(int64(4), int64(5)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("missing pick mismatch (-want +got):\n%s", diff)
	}
}

func TestGetItemMissingRejectsAdvanced(t *testing.T) {
	x := ragged(t)
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{0, -1}), ints(t, 0), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	if _, err := GetItem(x, posArray(0, 1), SliceContent{Content: opt}); !errors.Is(err, ErrIncompatibleMode) {
		t.Errorf("mixed modes err = %v", err)
	}
}

func TestGetItemFieldForms(t *testing.T) {
	rec, err := NewRecord(
		[]Content{ints(t, 1, 2, 3), floats(t, 1.5, 2.5, 3.5)},
		[]string{"x", "y"},
		shape.Of(3),
		nil,
	)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	got := getList(t, rec, SliceField("y"))
	if diff := cmp.Diff(row(1.5, 2.5, 3.5), got); diff != "" {
		t.Errorf("field pick mismatch (-want +got):\n%s", diff)
	}
	sub, err := GetItem(rec, SliceFields{"y", "x"})
	if err != nil {
		t.Fatalf("GetItem fields: %v", err)
	}
	fields := sub.(Content).Fields()
	if diff := cmp.Diff([]string{"y", "x"}, fields); diff != "" {
		t.Errorf("kept fields mismatch (-want +got):\n%s", diff)
	}
	v, err := GetItem(rec, SliceAt(1), SliceField("x"))
	if err != nil {
		t.Fatalf("GetItem(1, x): %v", err)
	}
	if v != int64(2) {
		t.Errorf("rec[1].x = %v, want 2", v)
	}
}

func TestGetItemBounds(t *testing.T) {
	x := ragged(t)
	if _, err := GetItem(x, SliceAt(3)); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("outer overflow err = %v", err)
	}
	if _, err := GetItem(x, SliceAt(0), SliceAt(7)); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("inner overflow err = %v", err)
	}
	if _, err := GetItem(x, posArray(0, 5)); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("advanced overflow err = %v", err)
	}
}

func TestGetItemAtEveryLength(t *testing.T) {
	vals := []int64{10, 11, 12, 13}
	for length := 0; length <= len(vals); length++ {
		p := ints(t, vals[:length]...)
		for _, at := range []int64{int64(length), int64(-length - 1), 99, -99} {
			if _, err := GetItem(p, SliceAt(at)); !errors.Is(err, ErrIndexBounds) {
				t.Errorf("len %d at %d err = %v, want ErrIndexBounds", length, at, err)
			}
		}
		if length == 0 {
			continue
		}
		first, err := GetItem(p, SliceAt(int64(-length)))
		if err != nil {
			t.Fatalf("len %d at %d: %v", length, -length, err)
		}
		last, err := GetItem(p, SliceAt(int64(length-1)))
		if err != nil {
			t.Fatalf("len %d at %d: %v", length, length-1, err)
		}
		if first != vals[0] || last != vals[length-1] {
			t.Errorf("len %d edges = %v, %v", length, first, last)
		}
	}
}

func TestGetItemEmptyExpression(t *testing.T) {
	x := ragged(t)
	out, err := GetItem(x)
	if err != nil {
		t.Fatalf("GetItem(): %v", err)
	}
	if out != Content(x) {
		t.Error("empty expression did not return the node itself")
	}
}
