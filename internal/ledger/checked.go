package ledger

import (
	"math"

	"github.com/roach88/keel/internal/fault"
)

// checkedAdd returns a+b, or OVERFLOW/UNDERFLOW if the sum leaves the
// int64 range. Callers mutate nothing when an error is returned.
func checkedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fault.New(fault.CodeOverflow, "%d + %d exceeds int64", a, b)
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, fault.New(fault.CodeUnderflow, "%d + %d below int64", a, b)
	}
	return a + b, nil
}

// checkedSub returns a-b with the same discipline as checkedAdd.
func checkedSub(a, b int64) (int64, error) {
	if b > 0 && a < math.MinInt64+b {
		return 0, fault.New(fault.CodeUnderflow, "%d - %d below int64", a, b)
	}
	if b < 0 && a > math.MaxInt64+b {
		return 0, fault.New(fault.CodeOverflow, "%d - %d exceeds int64", a, b)
	}
	return a - b, nil
}
