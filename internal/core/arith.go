package core

import "math/bits"

// MulU64 multiplies a and b, failing instead of wrapping.
func MulU64(op string, a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, Arithmeticf(op, "overflow multiplying %d by %d", a, b)
	}
	return lo, nil
}

// AddU64 adds a and b, failing instead of wrapping.
func AddU64(op string, a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, Arithmeticf(op, "overflow adding %d to %d", a, b)
	}
	return sum, nil
}

// SumU64 adds all values, failing on the first overflow.
func SumU64(op string, values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var err error
		if total, err = AddU64(op, total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// WeightedSum returns sum(values[i] * weights[i]) with overflow checks.
// values and weights must have the same length.
func WeightedSum(op string, values, weights []uint64) (uint64, error) {
	if len(values) != len(weights) {
		return 0, Arithmeticf(op, "weighted sum over %d values and %d weights", len(values), len(weights))
	}
	var total uint64
	for i := range values {
		term, err := MulU64(op, values[i], weights[i])
		if err != nil {
			return 0, err
		}
		if total, err = AddU64(op, total, term); err != nil {
			return 0, err
		}
	}
	return total, nil
}
