package eval

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/shape"
)

func floats(t *testing.T, vals ...float64) *layout.Primitive {
	t.Helper()
	p, err := layout.NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func ints(t *testing.T, vals ...int64) *layout.Primitive {
	t.Helper()
	p, err := layout.NewPrimitive(backend.CPU(), backend.Of(vals), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	return p
}

func particles(t *testing.T) layout.Content {
	t.Helper()
	r, err := layout.NewRecord(
		[]layout.Content{floats(t, 10.0, 40.0, 25.0), floats(t, 0.5, 2.5, -0.3)},
		[]string{"pt", "eta"}, shape.Unknown(), nil)
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

func TestWhereFields(t *testing.T) {
	out, err := Where(particles(t), "pt > 20.0 && eta > 0.0")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantList(t, out, []any{map[string]any{"pt": 40.0, "eta": 2.5}})
}

func TestWhereUnderscore(t *testing.T) {
	out, err := Where(ints(t, 1, 2, 3, 4, 5, 6), "_ % 2 == 0")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantList(t, out, []any{int64(2), int64(4), int64(6)})
}

func TestWhereListRows(t *testing.T) {
	lo, err := layout.NewListOffset(
		index.Wrap(index.I64, []int64{0, 3, 3, 5}),
		ints(t, 1, 2, 3, 4, 5), nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	out, err := Where(lo, "len(_) > 2")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantList(t, out, []any{[]any{int64(1), int64(2), int64(3)}})
}

func TestWhereMissingRows(t *testing.T) {
	opt, err := layout.NewIndexedOption(
		index.Wrap(index.I64, []int64{0, -1, 1, -1, 2}),
		particles(t), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	t.Run("dropped by default", func(t *testing.T) {
		out, err := Where(opt, "pt > 5.0")
		if err != nil {
			t.Fatalf("Where: %v", err)
		}
		wantList(t, out, []any{
			map[string]any{"pt": 10.0, "eta": 0.5},
			map[string]any{"pt": 40.0, "eta": 2.5},
			map[string]any{"pt": 25.0, "eta": -0.3},
		})
	})
	t.Run("kept when asked for", func(t *testing.T) {
		out, err := Where(opt, "_ == nil")
		if err != nil {
			t.Fatalf("Where: %v", err)
		}
		wantList(t, out, []any{nil, nil})
	})
}

func TestWhereTupleRows(t *testing.T) {
	r, err := layout.NewRecord(
		[]layout.Content{ints(t, 1, 7, 3), ints(t, 2, 2, 9)},
		nil, shape.Unknown(), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	out, err := Where(r, "_[0] > _[1]")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantList(t, out, []any{[]any{int64(7), int64(2)}})
}

func TestWhereNotBool(t *testing.T) {
	if _, err := Where(particles(t), "pt"); !errors.Is(err, ErrNotBool) {
		t.Errorf("err = %v, want ErrNotBool", err)
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("pt >"); err == nil {
		t.Error("malformed expression compiled")
	}
}

func TestProgramReuse(t *testing.T) {
	p, err := Compile("pt >= 25.0")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for i := 0; i < 2; i++ {
		out, err := p.Where(particles(t))
		if err != nil {
			t.Fatalf("Where pass %d: %v", i, err)
		}
		wantList(t, out, []any{
			map[string]any{"pt": 40.0, "eta": 2.5},
			map[string]any{"pt": 25.0, "eta": -0.3},
		})
	}
}
