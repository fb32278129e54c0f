package dump

import (
	"strings"
	"testing"

	"github.com/ragged-format/go-ragged/backend"
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

func TestSprintTree(t *testing.T) {
	x := listOf(t, []int64{0, 3, 3, 5}, ints(t, 1, 2, 3, 4, 5))
	got := Sprint(x)
	want := strings.Join([]string{
		"ListOffsetArray len=3",
		"    offsets: i64[0 3 3 5]",
		"    content: NumpyArray len=5 dtype=int64",
		"        data: [1 2 3 4 5]",
		"",
	}, "\n")
	if got != want {
		t.Errorf("tree mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSprintTruncates(t *testing.T) {
	vals := make([]int64, 40)
	for i := range vals {
		vals[i] = int64(i)
	}
	got := Sprint(ints(t, vals...), WithMaxValues(4))
	if !strings.Contains(got, "(40 total)") {
		t.Errorf("long buffer not truncated:\n%s", got)
	}
	if strings.Contains(got, " 5 ") {
		t.Errorf("values past the cut still shown:\n%s", got)
	}
}

func TestSprintRecordFields(t *testing.T) {
	r, err := layout.NewRecord(
		[]layout.Content{floats(t, 1.5), ints(t, 7)},
		[]string{"x", "y"}, shape.Unknown(), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	got := Sprint(r)
	for _, want := range []string{"RecordArray len=1", "x: NumpyArray", "y: NumpyArray"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestSprintNoANSIWhenPlain(t *testing.T) {
	if got := Sprint(ints(t, 1)); strings.Contains(got, "\x1b[") {
		t.Errorf("plain output has escape codes:\n%q", got)
	}
}

func TestTypeString(t *testing.T) {
	opt, err := layout.NewIndexedOption(
		index.Wrap(index.I64, []int64{0, -1, 1}),
		floats(t, 1.5, 2.5), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	rec, err := layout.NewRecord(
		[]layout.Content{floats(t, 1, 2), listOf(t, []int64{0, 1, 3}, ints(t, 4, 5, 6))},
		[]string{"pt", "hits"}, shape.Unknown(), nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	optList, err := layout.NewIndexedOption(
		index.Wrap(index.I64, []int64{-1, 0}),
		listOf(t, []int64{0, 2}, ints(t, 8, 9)), nil)
	if err != nil {
		t.Fatalf("NewIndexedOption: %v", err)
	}
	for _, tc := range []struct {
		name string
		c    layout.Content
		want string
	}{
		{"ragged", listOf(t, []int64{0, 3, 3, 5}, ints(t, 1, 2, 3, 4, 5)), "3 * var * int64"},
		{"option leaf", opt, "3 * ?float64"},
		{"option list", optList, "2 * option[var * int64]"},
		{"record", rec, "2 * {pt: float64, hits: var * int64}"},
		{"empty", layout.NewEmpty(backend.CPU(), nil), "0 * unknown"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := TypeString(tc.c); got != tc.want {
				t.Errorf("TypeString = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTypeStringRegularAndInner(t *testing.T) {
	p, err := layout.NewPrimitive(backend.CPU(),
		backend.Of([]float64{1, 2, 3, 4, 5, 6}), []int64{3}, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	if got := TypeString(p); got != "2 * 3 * float64" {
		t.Errorf("TypeString = %q, want 2 * 3 * float64", got)
	}
	r, err := layout.NewRegular(ints(t, 1, 2, 3, 4), 2, 0, nil)
	if err != nil {
		t.Fatalf("NewRegular: %v", err)
	}
	if got := TypeString(r); got != "2 * 2 * int64" {
		t.Errorf("TypeString = %q, want 2 * 2 * int64", got)
	}
}
