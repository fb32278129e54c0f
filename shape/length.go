// Package shape models array lengths that may be unknown.
//
// In the shape-only execution regime a node can exist before any data does,
// so a length is either a concrete non-negative count or Unknown. The two
// states are carried by one value type; an ordinary int64 never stands in
// for both.
package shape

import "fmt"

type Length struct {
	n     int64
	known bool
}

// Of returns a known length. Negative counts are invalid everywhere, so Of
// panics on them rather than letting one circulate.
func Of(n int64) Length {
	if n < 0 {
		panic(fmt.Sprintf("shape: negative length %d", n))
	}
	return Length{n: n, known: true}
}

func Unknown() Length { return Length{} }

func (l Length) IsKnown() bool { return l.known }

func (l Length) Known() (int64, bool) { return l.n, l.known }

// MustKnown is for call sites already behind a known-data guard.
func (l Length) MustKnown() int64 {
	if !l.known {
		panic("shape: length is unknown")
	}
	return l.n
}

// Or returns the concrete count, or fallback when unknown.
func (l Length) Or(fallback int64) int64 {
	if l.known {
		return l.n
	}
	return fallback
}

func (l Length) String() string {
	if !l.known {
		return "??"
	}
	return fmt.Sprintf("%d", l.n)
}

func (l Length) Add(m Length) Length {
	if l.known && m.known {
		return Of(l.n + m.n)
	}
	return Unknown()
}

func (l Length) Mul(m Length) Length {
	if l.known && m.known {
		return Of(l.n * m.n)
	}
	return Unknown()
}

// Min of two lengths; Unknown absorbs.
func Min(a, b Length) Length {
	if a.known && b.known {
		if a.n <= b.n {
			return a
		}
		return b
	}
	return Unknown()
}

// MinFold folds lengths left to right. Known lengths take the running
// minimum. An Unknown makes the running value Unknown; a later known length
// strictly smaller than every known length seen before that Unknown degrades
// the running value back to that known minimum (vacuously so when no known
// length preceded it).
func MinFold(ls []Length) Length {
	var (
		agg        Length
		haveAgg    bool
		minBefore  int64
		haveBefore bool
	)
	for _, l := range ls {
		n, known := l.Known()
		switch {
		case !haveAgg:
			agg, haveAgg = l, true
		case !known:
			if k, ok := agg.Known(); ok {
				minBefore, haveBefore = k, true
			}
			agg = Unknown()
		case agg.IsKnown():
			agg = Min(agg, l)
		case !haveBefore || n < minBefore:
			agg = Of(n)
		}
	}
	if !haveAgg {
		return Unknown()
	}
	return agg
}
