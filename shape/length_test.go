package shape

import "testing"

func TestLengthBasics(t *testing.T) {
	if _, ok := Unknown().Known(); ok {
		t.Error("Unknown reports known")
	}
	if n, ok := Of(7).Known(); !ok || n != 7 {
		t.Errorf("Of(7).Known() = %d, %v", n, ok)
	}
	if got := Unknown().Or(3); got != 3 {
		t.Errorf("Unknown().Or(3) = %d", got)
	}
	if got := Of(2).Add(Of(3)); got.MustKnown() != 5 {
		t.Errorf("2+3 = %v", got)
	}
	if got := Of(2).Mul(Unknown()); got.IsKnown() {
		t.Errorf("2*?? = %v", got)
	}
	if Of(0).String() != "0" || Unknown().String() != "??" {
		t.Error("String rendering")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustKnown on Unknown did not panic")
		}
	}()
	Unknown().MustKnown()
}

func TestMinFold(t *testing.T) {
	u := Unknown()
	tests := []struct {
		name string
		in   []Length
		want Length
	}{
		{"empty", nil, u},
		{"all known", []Length{Of(5), Of(3), Of(4)}, Of(3)},
		{"single unknown", []Length{u}, u},
		{"unknown absorbs", []Length{Of(3), u, Of(5)}, u},
		{"later smaller wins", []Length{Of(5), u, Of(3)}, Of(3)},
		{"equal does not win", []Length{Of(3), u, Of(3)}, u},
		{"unknown first then known", []Length{u, Of(4)}, Of(4)},
		{"degrade then absorb again", []Length{Of(5), u, Of(3), u, Of(4)}, u},
		{"degrade twice", []Length{Of(5), u, Of(3), u, Of(2)}, Of(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinFold(tt.in); got != tt.want {
				t.Errorf("MinFold = %v, want %v", got, tt.want)
			}
		})
	}
}
