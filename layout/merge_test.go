package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

func concat(t *testing.T, cs []Content, opts ...MergeOption) Content {
	t.Helper()
	out, err := Concatenate(cs, opts...)
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	return out
}

func TestConcatenatePromotes(t *testing.T) {
	out := concat(t, []Content{ints(t, 1, 2), floats(t, 0.5)})
	p, isPrim := out.(*Primitive)
	if !isPrim {
		t.Fatalf("merged kind = %s", ClassOf(out))
	}
	if p.DType() != dtype.Float64 {
		t.Errorf("merged dtype = %v, want float64", p.DType())
	}
	wantList(t, out, row(1.0, 2.0, 0.5))
}

func TestConcatenateBool(t *testing.T) {
	in := []Content{bools(t, true, false), ints(t, 5)}
	out := concat(t, in)
	wantList(t, out, row(int64(1), int64(0), int64(5)))

	out = concat(t, in, WithMergeBool(false))
	if _, isUnion := out.(*Union); !isUnion {
		t.Errorf("strict bool merge kind = %s, want union", ClassOf(out))
	}

	_, err := Concatenate(in, WithMergeBool(false), WithUnionFallback(false))
	if !errors.Is(err, ErrMergeIncompatibility) {
		t.Errorf("strict bool merge err = %v", err)
	}
}

func TestConcatenateLists(t *testing.T) {
	out := concat(t, []Content{ragged(t), listOf(t, []int64{0, 1}, ints(t, 6))})
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
		row(int64(6)),
	))
}

func TestConcatenateListKinds(t *testing.T) {
	l, err := NewList(
		index.Wrap(index.I64, []int64{2, 0}),
		index.Wrap(index.I64, []int64{3, 2}),
		ints(t, 7, 8, 9),
		nil,
	)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	reg, err := NewRegular(ints(t, 10, 11), 2, 0, nil)
	if err != nil {
		t.Fatalf("NewRegular: %v", err)
	}
	out := concat(t, []Content{ragged(t), l, reg})
	wantList(t, out, row(
		row(int64(1), int64(2), int64(3)),
		row(),
		row(int64(4), int64(5)),
		row(int64(9)),
		row(int64(7), int64(8)),
		row(int64(10), int64(11)),
	))
}

func TestConcatenateRecordsByName(t *testing.T) {
	a, err := NewRecord(
		[]Content{ints(t, 1, 2), floats(t, 1.5, 2.5)},
		[]string{"x", "y"},
		shape.Of(2),
		nil,
	)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	b, err := NewRecord(
		[]Content{floats(t, 9.5), ints(t, 10)},
		[]string{"y", "x"},
		shape.Of(1),
		nil,
	)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	out := concat(t, []Content{a, b})
	want := row(
		map[string]any{"x": int64(1), "y": 1.5},
		map[string]any{"x": int64(2), "y": 2.5},
		map[string]any{"x": int64(10), "y": 9.5},
	)
	wantList(t, out, want)
}

func TestConcatenateRecordTupleMismatch(t *testing.T) {
	named, err := NewRecord([]Content{ints(t, 1)}, []string{"x"}, shape.Of(1), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	tup, err := NewRecord([]Content{ints(t, 2)}, nil, shape.Of(1), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	out := concat(t, []Content{named, tup})
	if _, isUnion := out.(*Union); !isUnion {
		t.Errorf("record+tuple kind = %s, want union", ClassOf(out))
	}
	_, err = Concatenate([]Content{named, tup}, WithUnionFallback(false))
	if !errors.Is(err, ErrMergeIncompatibility) {
		t.Errorf("record+tuple strict err = %v", err)
	}
}

func TestConcatenateUnionFallback(t *testing.T) {
	out := concat(t, []Content{ints(t, 1, 2), listOf(t, []int64{0, 1}, ints(t, 9))})
	if _, isUnion := out.(*Union); !isUnion {
		t.Fatalf("mixed kinds = %s, want union", ClassOf(out))
	}
	wantList(t, out, row(int64(1), int64(2), row(int64(9))))
}

func TestConcatenateOptionAbsorbs(t *testing.T) {
	opt, err := NewIndexedOption(index.Wrap(index.I64, []int64{0, -1}), ints(t, 7), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	out := concat(t, []Content{opt, ints(t, 8)})
	wantList(t, out, row(int64(7), nil, int64(8)))

	out = concat(t, []Content{ints(t, 8), opt})
	wantList(t, out, row(int64(8), int64(7), nil))
}

func TestConcatenateByteMasked(t *testing.T) {
	bm, err := NewByteMasked(index.Wrap(index.I8, []int64{1, 0}), ints(t, 1, 2), true, nil)
	if err != nil {
		t.Fatalf("NewByteMasked: %v", err)
	}
	out := concat(t, []Content{bm, ints(t, 3)})
	wantList(t, out, row(int64(1), nil, int64(3)))
}

func TestConcatenateUnmasked(t *testing.T) {
	a, err := NewUnmasked(ints(t, 1), nil)
	if err != nil {
		t.Fatalf("NewUnmasked: %v", err)
	}
	b, err := NewUnmasked(ints(t, 2), nil)
	if err != nil {
		t.Fatalf("NewUnmasked: %v", err)
	}
	out := concat(t, []Content{a, b})
	if _, isUn := out.(*Unmasked); !isUn {
		t.Errorf("unmasked pair kind = %s, want unmasked", ClassOf(out))
	}
	wantList(t, out, row(int64(1), int64(2)))
}

func TestConcatenateEmptyVanishes(t *testing.T) {
	out := concat(t, []Content{NewEmpty(backend.CPU(), nil), ints(t, 1, 2)})
	wantList(t, out, row(int64(1), int64(2)))
	out = concat(t, []Content{ints(t, 1), NewEmpty(backend.CPU(), nil), ints(t, 2)})
	wantList(t, out, row(int64(1), int64(2)))
}

func TestConcatenateEdgeArities(t *testing.T) {
	if _, err := Concatenate(nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("no input err = %v", err)
	}
	x := ragged(t)
	out := concat(t, []Content{x})
	if out != Content(x) {
		t.Error("single input did not pass through")
	}
}

func TestConcatenateParamsIntersect(t *testing.T) {
	a := ints(t, 1).WithParameters(Parameters{"k": "v", "only": "a"})
	b := ints(t, 2).WithParameters(Parameters{"k": "v"})
	out := concat(t, []Content{a, b})
	got := out.Parameters()
	if diff := cmp.Diff(Parameters{"k": "v"}, got); diff != "" {
		t.Errorf("merged parameters (-want +got):\n%s", diff)
	}
}
