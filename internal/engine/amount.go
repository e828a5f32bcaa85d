package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAmount parses user input as an integer amount strictly greater than
// zero. Non-numeric input, fractions, zero, negatives, and values outside
// int64 all yield ErrInvalidAmount.
func ValidateAmount(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	// Exponent notation is not an amount, even though the decimal parser
	// would take it.
	if strings.ContainsAny(trimmed, "eE") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if !d.IsInteger() || d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return d.IntPart(), nil
}
