package backend

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

func TestFromBytesSwap(t *testing.T) {
	b := CPU()
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	little, err := b.FromBytes(dtype.UInt16, raw, 2, dtype.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	big, err := b.FromBytes(dtype.UInt16, raw, 2, dtype.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if got := little.Value(0).(uint16) + big.Value(0).(uint16); got != 0x0201+0x0102 {
		t.Errorf("values = %#x, %#x", little.Value(0), big.Value(0))
	}
	roundTrip, err := b.ToBytes(big, dtype.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(roundTrip, raw) {
		t.Errorf("big round trip = %v", roundTrip)
	}
	if _, err := b.FromBytes(dtype.UInt16, raw[:3], 2, dtype.LittleEndian); err == nil {
		t.Error("short raw accepted")
	}
}

func TestGather(t *testing.T) {
	b := CPU()
	buf := Of([]float64{10, 11, 12, 13})
	out, err := b.Gather(buf, index.Wrap(index.I64, []int64{3, 0, 0, 2}))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{13, 10, 10, 12}
	for i, w := range want {
		if out.Float(int64(i)) != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Float(int64(i)), w)
		}
	}
	if _, err := b.Gather(buf, index.Wrap(index.I64, []int64{4})); err == nil {
		t.Error("out of range gather accepted")
	}
	if _, err := b.Gather(buf, index.Wrap(index.I64, []int64{-1})); err == nil {
		t.Error("negative gather accepted")
	}
}

func TestNonzero(t *testing.T) {
	b := CPU()
	got, err := b.Nonzero(Of([]bool{true, false, true, true, false}))
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(got.Data(), []int64{0, 2, 3}) {
		t.Errorf("nonzero = %v", got.Data())
	}
	if _, err := b.Nonzero(Of([]int32{1})); err == nil {
		t.Error("nonzero over int buffer accepted")
	}
}

func TestArgSortRanges(t *testing.T) {
	b := CPU()
	buf := Of([]int32{3, 1, 2, 9, 5, 5, 4})
	offsets := index.Wrap(index.I64, []int64{0, 3, 3, 7})
	got, err := b.ArgSortRanges(buf, offsets, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{1, 2, 0, 4, 5, 6, 3}; !cmp.Equal(got.Data(), want) {
		t.Errorf("argsort = %v, want %v", got.Data(), want)
	}
	desc, err := b.ArgSortRanges(buf, index.Wrap(index.I64, []int64{0, 3}), false, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{0, 2, 1}; !cmp.Equal(desc.Data(), want) {
		t.Errorf("descending argsort = %v, want %v", desc.Data(), want)
	}
}

func TestReduceRanges(t *testing.T) {
	b := CPU()
	offsets := index.Wrap(index.I64, []int64{0, 3, 3, 5})
	sum, err := b.ReduceRanges(ReduceSum, Of([]int8{1, 2, 3, -5, 10}), offsets)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DType() != dtype.Int64 {
		t.Errorf("sum dtype = %v", sum.DType())
	}
	if got := []int64{sum.Int(0), sum.Int(1), sum.Int(2)}; !cmp.Equal(got, []int64{6, 0, 5}) {
		t.Errorf("sum = %v", got)
	}
	mn, err := b.ReduceRanges(ReduceMin, Of([]float64{2, -1, 7, 4, 3}), offsets)
	if err != nil {
		t.Fatal(err)
	}
	if mn.Float(0) != -1 || mn.Float(2) != 3 {
		t.Errorf("min = %v, %v", mn.Float(0), mn.Float(2))
	}
	anyOut, err := b.ReduceRanges(ReduceAny, Of([]bool{false, true, false, false, false}), offsets)
	if err != nil {
		t.Fatal(err)
	}
	allOut, err := b.ReduceRanges(ReduceAll, Of([]bool{true, true, true, true, false}), offsets)
	if err != nil {
		t.Fatal(err)
	}
	if !anyOut.Bool(0) || anyOut.Bool(1) || anyOut.Bool(2) {
		t.Errorf("any = %v %v %v", anyOut.Bool(0), anyOut.Bool(1), anyOut.Bool(2))
	}
	if !allOut.Bool(0) || !allOut.Bool(1) || allOut.Bool(2) {
		t.Errorf("all = %v %v %v", allOut.Bool(0), allOut.Bool(1), allOut.Bool(2))
	}
	cnt, err := b.ReduceRanges(ReduceCount, Of([]int8{1, 2, 3, -5, 10}), offsets)
	if err != nil {
		t.Fatal(err)
	}
	if cnt.DType() != dtype.Int64 {
		t.Errorf("count dtype = %v", cnt.DType())
	}
	if got := []int64{cnt.Int(0), cnt.Int(1), cnt.Int(2)}; !cmp.Equal(got, []int64{3, 0, 2}) {
		t.Errorf("count = %v", got)
	}
}

func TestTracerPlaceholders(t *testing.T) {
	rep := NewReport()
	tr := TypeTracer(rep)
	if tr.KnownData() {
		t.Fatal("tracer reports known data")
	}
	touched := 0
	buf := Placeholder(dtype.Float64, shape.Of(4), func() { touched++; rep.TouchData("node0-data") }, nil)
	out, err := tr.Gather(buf, index.Placeholder(index.I64, shape.Of(2), nil))
	if err != nil {
		t.Fatal(err)
	}
	if out.KnownData() {
		t.Error("tracer gather produced data")
	}
	if n, ok := out.Len().Known(); !ok || n != 2 {
		t.Errorf("tracer gather len = %v", out.Len())
	}
	if touched != 1 {
		t.Errorf("touch hook fired %d times", touched)
	}
	if !cmp.Equal(rep.DataTouched(), []string{"node0-data"}) {
		t.Errorf("report = %v", rep.DataTouched())
	}
	nz, err := tr.Nonzero(Placeholder(dtype.Bool, shape.Of(3), nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if nz.Len().IsKnown() {
		t.Error("tracer nonzero length is known")
	}
	if _, err := tr.ToBytes(buf, dtype.LittleEndian); !errors.Is(err, ErrShapeOnly) {
		t.Errorf("tracer ToBytes err = %v", err)
	}
	red, err := tr.ReduceRanges(ReduceSum, buf, index.Placeholder(index.I64, shape.Of(3), nil))
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := red.Len().Known(); !ok || n != 2 {
		t.Errorf("tracer reduce len = %v", red.Len())
	}
}

func TestCommon(t *testing.T) {
	if _, err := Common(CPU(), TypeTracer(nil)); !errors.Is(err, ErrMixedRegimes) {
		t.Errorf("cpu×tracer err = %v", err)
	}
	got, err := Common(CPU(), CPU())
	if err != nil || got != CPU() {
		t.Errorf("cpu×cpu = %v, %v", got, err)
	}
	if b, err := Common(nil, CPU()); err != nil || b != CPU() {
		t.Errorf("nil×cpu = %v, %v", b, err)
	}
}

func TestReportDedup(t *testing.T) {
	rep := NewReport()
	rep.TouchShape("a")
	rep.TouchData("b")
	rep.TouchData("b")
	rep.TouchShape("b")
	if !cmp.Equal(rep.DataTouched(), []string{"b"}) {
		t.Errorf("data = %v", rep.DataTouched())
	}
	if !cmp.Equal(rep.ShapeTouched(), []string{"a", "b"}) {
		t.Errorf("shape = %v", rep.ShapeTouched())
	}
}
