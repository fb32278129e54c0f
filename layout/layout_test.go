package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

func ints(t *testing.T, vals ...int64) *Primitive {
	t.Helper()
	p, err := NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func floats(t *testing.T, vals ...float64) *Primitive {
	t.Helper()
	p, err := NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func bools(t *testing.T, vals ...bool) *Primitive {
	t.Helper()
	p, err := NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func listOf(t *testing.T, offs []int64, c Content) *ListOffset {
	t.Helper()
	lo, err := NewListOffset(index.Wrap(index.I64, offs), c, nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	return lo
}

// ragged is the recurring [[1,2,3],[],[4,5]] example.
func ragged(t *testing.T) *ListOffset {
	t.Helper()
	return listOf(t, []int64{0, 3, 3, 5}, ints(t, 1, 2, 3, 4, 5))
}

func wantList(t *testing.T, c Content, want any) {
	t.Helper()
	got, err := c.ToList()
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToList mismatch (-want +got):\n%s", diff)
	}
}

func row(vals ...any) []any { return vals }

func TestPrimitiveAt(t *testing.T) {
	p := ints(t, 10, 20, 30)
	if v, err := p.GetItemAt(1); err != nil || v != int64(20) {
		t.Errorf("GetItemAt(1) = %v, %v", v, err)
	}
	if v, err := p.GetItemAt(-1); err != nil || v != int64(30) {
		t.Errorf("GetItemAt(-1) = %v, %v", v, err)
	}
	if _, err := p.GetItemAt(3); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("GetItemAt(3) err = %v", err)
	}
	if _, err := p.GetItemAt(-4); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("GetItemAt(-4) err = %v", err)
	}
}

func TestPrimitiveRangeClamps(t *testing.T) {
	p := ints(t, 1, 2, 3, 4)
	out, err := p.GetItemRange(1, 99)
	if err != nil {
		t.Fatalf("GetItemRange: %v", err)
	}
	wantList(t, out, row(int64(2), int64(3), int64(4)))
	out, err = p.GetItemRange(-2, 4)
	if err != nil {
		t.Fatalf("GetItemRange: %v", err)
	}
	wantList(t, out, row(int64(3), int64(4)))
}

func TestPrimitiveInnerShape(t *testing.T) {
	p, err := NewPrimitive(backend.CPU(), backend.Of([]int64{1, 2, 3, 4, 5, 6}), []int64{2}, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	if n := mustLen(p); n != 3 {
		t.Fatalf("length = %d, want 3", n)
	}
	wantList(t, p, row(
		row(int64(1), int64(2)),
		row(int64(3), int64(4)),
		row(int64(5), int64(6)),
	))
	if _, err := NewPrimitive(backend.CPU(), backend.Of([]int64{1, 2, 3}), []int64{2}, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("odd buffer err = %v", err)
	}
}

func TestListOffsetRows(t *testing.T) {
	x := ragged(t)
	wantList(t, x, row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
	))
	first, err := x.GetItemAt(0)
	if err != nil {
		t.Fatalf("GetItemAt(0): %v", err)
	}
	wantList(t, first.(Content), row(int64(1), int64(2), int64(3)))
	last, err := x.GetItemAt(-1)
	if err != nil {
		t.Fatalf("GetItemAt(-1): %v", err)
	}
	wantList(t, last.(Content), row(int64(4), int64(5)))
	mid, err := x.GetItemRange(1, 3)
	if err != nil {
		t.Fatalf("GetItemRange: %v", err)
	}
	wantList(t, mid, row(row(), row(int64(4), int64(5))))
}

func TestRegularRows(t *testing.T) {
	r, err := NewRegular(ints(t, 1, 2, 3, 4, 5, 6), 2, 0, nil)
	if err != nil {
		t.Fatalf("NewRegular: %v", err)
	}
	if n := mustLen(r); n != 3 {
		t.Fatalf("length = %d, want 3", n)
	}
	wantList(t, r, row(
		row(int64(1), int64(2)),
		row(int64(3), int64(4)),
		row(int64(5), int64(6)),
	))
	if _, err := NewRegular(ints(t, 1), -1, 0, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("negative size err = %v", err)
	}
}

func TestListGapsAndOrder(t *testing.T) {
	content := ints(t, 0, 1, 2, 3, 4, 5, 6)
	l, err := NewList(index.Wrap(index.I64, []int64{4, 0}), index.Wrap(index.I64, []int64{6, 3}), content, nil)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	wantList(t, l, row(
		row(int64(4), int64(5)),
		row(int64(0), int64(1), int64(2)),
	))
	packed, err := l.ToPacked()
	if err != nil {
		t.Fatalf("ToPacked: %v", err)
	}
	wantList(t, packed, row(
		row(int64(4), int64(5)),
		row(int64(0), int64(1), int64(2)),
	))
	again, err := packed.ToPacked()
	if err != nil {
		t.Fatalf("ToPacked twice: %v", err)
	}
	wantList(t, again, row(
		row(int64(4), int64(5)),
		row(int64(0), int64(1), int64(2)),
	))
}

func TestToPackedTrimsSlack(t *testing.T) {
	x := listOf(t, []int64{2, 4, 4}, ints(t, 9, 9, 1, 2, 9, 9))
	packed, err := x.ToPacked()
	if err != nil {
		t.Fatalf("ToPacked: %v", err)
	}
	lo, isLo := packed.(*ListOffset)
	if !isLo {
		t.Fatalf("packed is %s", ClassOf(packed))
	}
	if n := mustLen(lo.content); n != 2 {
		t.Errorf("packed content length = %d, want 2", n)
	}
	wantList(t, packed, row(row(int64(1), int64(2)), row()))
}

func TestEmptyBehaves(t *testing.T) {
	e := NewEmpty(backend.CPU(), nil)
	wantList(t, e, row())
	if _, err := e.GetItemAt(0); !errors.Is(err, ErrIndexBounds) {
		t.Errorf("GetItemAt on empty err = %v", err)
	}
	out, err := e.GetItemRange(0, 5)
	if err != nil {
		t.Fatalf("GetItemRange: %v", err)
	}
	wantList(t, out, row())
}

func TestValidityCatchesBackwardOffsets(t *testing.T) {
	bad, err := NewListOffset(index.Wrap(index.I64, []int64{0, 3, 2}), ints(t, 1, 2, 3), nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	if err := bad.Validity(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validity = %v, want backward offsets caught", err)
	}
}

func TestValidityCatchesWildIndex(t *testing.T) {
	idx, err := NewIndexed(index.Wrap(index.I64, []int64{0, 7}), ints(t, 1, 2), nil)
	if err != nil {
		t.Fatalf("NewIndexed: %v", err)
	}
	if err := idx.Validity(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validity = %v, want out-of-range index caught", err)
	}
	ok := ragged(t)
	if err := ok.Validity(); err != nil {
		t.Errorf("Validity on sound tree: %v", err)
	}
}

func TestWithParameters(t *testing.T) {
	x := ragged(t)
	y := x.WithParameters(Parameters{"__array__": "mylist"})
	if got := y.Parameters()["__array__"]; got != "mylist" {
		t.Errorf("parameters not replaced: %v", got)
	}
	if x.Parameters() != nil {
		t.Error("WithParameters mutated the receiver")
	}
	if n := mustLen(y); n != 3 {
		t.Errorf("length changed: %d", n)
	}
}

func TestDepthLimit(t *testing.T) {
	var c Content = ints(t, 1)
	var err error
	for i := 0; i < MaxDepth-1; i++ {
		c, err = NewRegular(c, 1, 0, nil)
		if err != nil {
			t.Fatalf("depth %d: %v", i, err)
		}
	}
	if _, err = NewRegular(c, 1, 0, nil); !errors.Is(err, ErrDepthLimit) {
		t.Errorf("over-depth err = %v", err)
	}
}

func TestLengthsAcrossKinds(t *testing.T) {
	x := ragged(t)
	tests := []struct {
		name string
		c    Content
		want int64
	}{
		{"listoffset", x, 3},
		{"empty", NewEmpty(backend.CPU(), nil), 0},
		{"primitive", ints(t, 1, 2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, known := tt.c.Length().Known()
			if !known || n != tt.want {
				t.Errorf("Length = %v (known %v), want %d", n, known, tt.want)
			}
		})
	}
	if _, known := shape.Unknown().Known(); known {
		t.Error("Unknown length reports known")
	}
}
