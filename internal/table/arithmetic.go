package table

import (
	"math"

	errorsmod "cosmossdk.io/errors"
)

// Checked helpers for chip arithmetic. Chip counts are non-negative
// cents, so only the positive overflow direction matters.
func addInt64Checked(a, b int64, field string) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, errorsmod.Wrapf(ErrInvalidAmount, "%s overflows", field)
	}
	return a + b, nil
}

func mulInt64Checked(a, b int64, field string) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, errorsmod.Wrapf(ErrInvalidAmount, "%s overflows", field)
	}
	return a * b, nil
}
