package common

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// Default separator widths
	DefaultWidth = 60
)

// FormatRupiah renders an integer amount as "Rp1,234,567" with thousands
// grouping. Amounts are minor-unit-free integers; there are no fractions.
func FormatRupiah(amount int64) string {
	return "Rp" + groupDigits(strconv.FormatInt(amount, 10))
}

func groupDigits(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(w io.Writer, char string, width int) {
	fmt.Fprintln(w, strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(w io.Writer, title string, width int) {
	fmt.Fprintln(w)
	PrintSeparator(w, "=", width)
	fmt.Fprintln(w, title)
	PrintSeparator(w, "=", width)
}

// PrintBoxTitle prints the opening line of a box-drawing section
func PrintBoxTitle(w io.Writer, title string) {
	fmt.Fprintf(w, "┌─ %s\n", title)
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
