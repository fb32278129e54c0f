package layout

import (
	"errors"
	"testing"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

func TestFlattenInLists(t *testing.T) {
	out, err := Flatten(ragged(t), 1)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	wantList(t, out, row(int64(1), int64(2), int64(3), int64(4), int64(5)))
}

func TestFlattenDeep(t *testing.T) {
	inner := listOf(t, []int64{0, 2, 3, 4}, ints(t, 1, 2, 3, 4))
	outer := listOf(t, []int64{0, 2, 3}, inner)
	out, err := Flatten(outer, 2)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(int64(4)),
	))
}

func TestFlattenOuterDropsMissing(t *testing.T) {
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{2, -1, 0}), ints(t, 10, 20, 30), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	out, err := Flatten(opt, 0)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	wantList(t, out, row(int64(30), int64(10)))

	x := ragged(t)
	same, err := Flatten(x, 0)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if same != Content(x) {
		t.Error("flatten of a list outer dimension should be a no-op")
	}
}

func TestFlattenOuterUnion(t *testing.T) {
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{0, -1}), ints(t, 7), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	u := concat(t, []Content{opt, listOf(t, []int64{0, 1}, ints(t, 9))})
	if _, isUnion := u.(*Union); !isUnion {
		t.Fatalf("setup kind = %s, want union", ClassOf(u))
	}
	out, err := Flatten(u, 0)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	wantList(t, out, row(int64(7), row(int64(9))))
}

func TestFlattenAxisTooDeep(t *testing.T) {
	if _, err := Flatten(ints(t, 1, 2), 1); !errors.Is(err, ErrStructuralType) {
		t.Errorf("flat flatten err = %v", err)
	}
}

func TestRavel(t *testing.T) {
	out, err := Ravel(ragged(t))
	if err != nil {
		t.Fatalf("Ravel: %v", err)
	}
	wantList(t, out, row(int64(1), int64(2), int64(3), int64(4), int64(5)))
}

func TestRemoveStructureRecords(t *testing.T) {
	rec, err := NewRecordIn(backend.CPU(),
		[]Content{ints(t, 1, 2), listOf(t, []int64{0, 1, 3}, ints(t, 3, 4, 5))},
		[]string{"a", "b"},
		shape.Of(2),
		nil,
	)
	if err != nil {
		t.Fatalf("NewRecordIn: %v", err)
	}
	parts, err := RemoveStructure(rec)
	if err != nil {
		t.Fatalf("RemoveStructure: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	wantList(t, parts[0], row(int64(1), int64(2)))
	wantList(t, parts[1], row(int64(3), int64(4), int64(5)))
}

func TestLocalIndex(t *testing.T) {
	x := ragged(t)
	out, err := LocalIndex(x, 0)
	if err != nil {
		t.Fatalf("LocalIndex(0): %v", err)
	}
	wantList(t, out, row(int64(0), int64(1), int64(2)))

	out, err = LocalIndex(x, 1)
	if err != nil {
		t.Fatalf("LocalIndex(1): %v", err)
	}
	want := row(
		row(int64(0), int64(1), int64(2)),
		row(),
		row(int64(0), int64(1)),
	)
	wantList(t, out, want)

	neg, err := LocalIndex(x, -1)
	if err != nil {
		t.Fatalf("LocalIndex(-1): %v", err)
	}
	wantList(t, neg, want)
}

func TestCombinationsFlat(t *testing.T) {
	out, err := Combinations(ints(t, 1, 2, 3), 2, false, nil, nil, 0)
	if err != nil {
		t.Fatalf("Combinations: %v", err)
	}
	want := row(
		row(int64(1), int64(2)),
		row(int64(1), int64(3)),
		row(int64(2), int64(3)),
	)
	wantList(t, out, want)
}

func TestCombinationsNamed(t *testing.T) {
	out, err := Combinations(ints(t, 1, 2), 2, false, []string{"a", "b"}, nil, 0)
	if err != nil {
		t.Fatalf("Combinations: %v", err)
	}
	wantList(t, out, row(map[string]any{"a": int64(1), "b": int64(2)}))
}

func TestCombinationsWithReplacement(t *testing.T) {
	out, err := Combinations(ints(t, 1, 2), 2, true, nil, nil, 0)
	if err != nil {
		t.Fatalf("Combinations: %v", err)
	}
	want := row(
		row(int64(1), int64(1)),
		row(int64(1), int64(2)),
		row(int64(2), int64(2)),
	)
	wantList(t, out, want)
}

func TestCombinationsInLists(t *testing.T) {
	out, err := Combinations(ragged(t), 2, false, nil, nil, 1)
	if err != nil {
		t.Fatalf("Combinations: %v", err)
	}
	want := row(
		row(
			row(int64(1), int64(2)),
			row(int64(1), int64(3)),
			row(int64(2), int64(3)),
		),
		row(),
		row(row(int64(4), int64(5))),
	)
	wantList(t, out, want)
}

func TestCombinationsArity(t *testing.T) {
	if _, err := Combinations(ints(t, 1), 0, false, nil, nil, 0); !errors.Is(err, ErrInvalid) {
		t.Errorf("n=0 err = %v", err)
	}
	if _, err := Combinations(ints(t, 1), 2, false, []string{"a"}, nil, 0); !errors.Is(err, ErrInvalid) {
		t.Errorf("short fields err = %v", err)
	}
}

func TestPadNoneInLists(t *testing.T) {
	x := ragged(t)
	out, err := PadNone(x, 2, 1, false)
	if err != nil {
		t.Fatalf("PadNone: %v", err)
	}
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(nil, nil),
		row(int64(4), int64(5)),
	))

	clipped, err := PadNone(x, 2, 1, true)
	if err != nil {
		t.Fatalf("PadNone clip: %v", err)
	}
	if _, isReg := clipped.(*Regular); !isReg {
		t.Errorf("clipped kind = %s, want regular", ClassOf(clipped))
	}
	wantList(t, clipped, row(
		row(int64(1), int64(2)),
		row(nil, nil),
		row(int64(4), int64(5)),
	))
}

func TestPadNoneOuter(t *testing.T) {
	x := ragged(t)
	out, err := PadNone(x, 5, 0, false)
	if err != nil {
		t.Fatalf("PadNone: %v", err)
	}
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
		nil,
		nil,
	))

	clipped, err := PadNone(x, 2, 0, true)
	if err != nil {
		t.Fatalf("PadNone clip: %v", err)
	}
	wantList(t, clipped, row(
		row(int64(1), int64(2), int64(3)),
		row(),
	))
}

func TestSortInLists(t *testing.T) {
	x := listOf(t, []int64{0, 3, 3, 5}, ints(t, 3, 1, 2, 5, 4))
	out, err := Sort(x, 1, true, true)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
	))

	desc, err := Sort(x, 1, false, true)
	if err != nil {
		t.Fatalf("Sort desc: %v", err)
	}
	wantList(t, desc, row(
		row(int64(3), int64(2), int64(1)),
		row(),
		row(int64(5), int64(4)),
	))
}

func TestSortFlat(t *testing.T) {
	out, err := Sort(floats(t, 3.5, 1.5, 2.5), 0, true, true)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	wantList(t, out, row(1.5, 2.5, 3.5))
}

func TestSortRecordField(t *testing.T) {
	rec, err := NewRecord([]Content{ints(t, 3, 1, 2)}, []string{"x"}, shape.Of(3), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	x, err := NewListOffset(index.Wrap(index.I64, []int64{0, 3}), rec, nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	out, err := Sort(x, 1, true, true)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	wantList(t, out, row(row(
		map[string]any{"x": int64(1)},
		map[string]any{"x": int64(2)},
		map[string]any{"x": int64(3)},
	)))
}

func TestSortWholeListsRefused(t *testing.T) {
	if _, err := Sort(ragged(t), 0, true, true); !errors.Is(err, ErrUnsupported) {
		t.Errorf("sort whole lists err = %v", err)
	}
	if _, err := Sort(ragged(t), 5, true, true); !errors.Is(err, ErrStructuralType) {
		t.Errorf("sort too deep err = %v", err)
	}
}

func TestArgSort(t *testing.T) {
	x := listOf(t, []int64{0, 3, 3, 5}, ints(t, 3, 1, 2, 5, 4))
	out, err := ArgSort(x, 1, true, true)
	if err != nil {
		t.Fatalf("ArgSort: %v", err)
	}
	wantList(t, out, row(
		row(int64(1), int64(2), int64(0)),
		row(),
		row(int64(1), int64(0)),
	))

	flat, err := ArgSort(ints(t, 3, 1, 2), 0, true, true)
	if err != nil {
		t.Fatalf("ArgSort flat: %v", err)
	}
	wantList(t, flat, row(int64(1), int64(2), int64(0)))
}

func TestArgSortTies(t *testing.T) {
	out, err := ArgSort(ints(t, 2, 2, 1), 0, true, true)
	if err != nil {
		t.Fatalf("ArgSort: %v", err)
	}
	wantList(t, out, row(int64(2), int64(0), int64(1)))
}

func TestReduceSum(t *testing.T) {
	x := listOf(t, []int64{0, 2, 2, 3}, ints(t, 1, 2, 3))
	out, err := Reduce(x, backend.ReduceSum, 1)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	wantList(t, out, row(int64(3), int64(0), int64(3)))

	flat, err := Reduce(ints(t, 1, 2, 3), backend.ReduceSum, 0)
	if err != nil {
		t.Fatalf("Reduce flat: %v", err)
	}
	wantList(t, flat, row(int64(6)))
}

func TestReduceSumUnsigned(t *testing.T) {
	p, err := NewPrimitive(backend.CPU(), backend.Of([]uint8{250, 10}), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	out, err := Reduce(p, backend.ReduceSum, 0)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	wantList(t, out, row(uint64(260)))
}

func TestReduceCount(t *testing.T) {
	x := listOf(t, []int64{0, 2, 2, 3}, ints(t, 1, 2, 3))
	out, err := Reduce(x, backend.ReduceCount, 1)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	wantList(t, out, row(int64(2), int64(0), int64(1)))
}

func TestReduceMinMax(t *testing.T) {
	x := listOf(t, []int64{0, 2, 2, 3}, ints(t, 1, 2, 3))
	mins, err := Reduce(x, backend.ReduceMin, 1)
	if err != nil {
		t.Fatalf("Reduce min: %v", err)
	}
	wantList(t, mins, row(int64(1), nil, int64(3)))

	maxs, err := Reduce(x, backend.ReduceMax, 1)
	if err != nil {
		t.Fatalf("Reduce max: %v", err)
	}
	wantList(t, maxs, row(int64(2), nil, int64(3)))
}

func TestReduceAnyAll(t *testing.T) {
	x := listOf(t, []int64{0, 2, 2, 3}, bools(t, true, false, true))
	any2, err := Reduce(x, backend.ReduceAny, 1)
	if err != nil {
		t.Fatalf("Reduce any: %v", err)
	}
	wantList(t, any2, row(true, false, true))

	all2, err := Reduce(x, backend.ReduceAll, 1)
	if err != nil {
		t.Fatalf("Reduce all: %v", err)
	}
	wantList(t, all2, row(false, true, true))
}

func TestReduceDeep(t *testing.T) {
	inner := listOf(t, []int64{0, 2, 3, 4}, ints(t, 1, 2, 3, 4))
	outer := listOf(t, []int64{0, 2, 3}, inner)
	out, err := Reduce(outer, backend.ReduceSum, 2)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	wantList(t, out, row(
		row(int64(3), int64(3)),
		row(int64(4)),
	))
}

func TestReduceRefusals(t *testing.T) {
	if _, err := Reduce(ragged(t), backend.ReduceSum, 0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("reduce whole lists err = %v", err)
	}
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{0, -1}), ints(t, 1), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	x, err := NewListOffset(index.Wrap(index.I64, []int64{0, 2}), opt, nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	if _, err := Reduce(x, backend.ReduceSum, 1); !errors.Is(err, ErrUnsupported) {
		t.Errorf("reduce missing err = %v", err)
	}
}

func TestOpsNegativeAxisNeedsUniformDepth(t *testing.T) {
	u := concat(t, []Content{ints(t, 1), listOf(t, []int64{0, 1}, ints(t, 2))})
	if _, err := LocalIndex(u, -1); err == nil {
		t.Error("negative axis on mixed depths should fail")
	}
	got, err := LocalIndex(ints(t, 8, 9), -1)
	if err != nil {
		t.Fatalf("LocalIndex: %v", err)
	}
	wantList(t, got, row(int64(0), int64(1)))
}
