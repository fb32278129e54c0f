package dtype

// Promote returns the narrowest type that both operands convert to without
// loss of order, and false when no such type exists (only possible when one
// side is bool and the caller disallows bool/number mixing upstream).
//
// Mixed signed/unsigned pairs widen to the next signed type that can hold
// both ranges; when none exists the pair promotes to Float64.
func Promote(a, b DType) (DType, bool) {
	if a == b {
		return a, true
	}
	if a == Bool {
		return b, true
	}
	if b == Bool {
		return a, true
	}
	if a.IsFloat() || b.IsFloat() {
		return promoteFloat(a, b), true
	}
	switch {
	case a.IsSigned() == b.IsSigned():
		if a.Size() >= b.Size() {
			return a, true
		}
		return b, true
	case a.IsSigned():
		return promoteMixed(a, b), true
	default:
		return promoteMixed(b, a), true
	}
}

func promoteFloat(a, b DType) DType {
	need := func(d DType) DType {
		if d.IsFloat() {
			return d
		}
		if d.Size() <= 2 {
			return Float32
		}
		return Float64
	}
	if need(a) == Float64 || need(b) == Float64 {
		return Float64
	}
	return Float32
}

// promoteMixed takes a signed and an unsigned operand.
func promoteMixed(signed, unsigned DType) DType {
	if signed.Size() > unsigned.Size() {
		return signed
	}
	switch unsigned.Size() {
	case 1:
		return Int16
	case 2:
		return Int32
	case 4:
		return Int64
	default:
		return Float64
	}
}
