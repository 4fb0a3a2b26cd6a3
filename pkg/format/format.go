// Package format renders quote values the way the dashboard displays them.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats v as US dollars with exactly two decimals, e.g. "$1,234.50".
func Currency(v float64) string {
	s := printer.Sprint(number.Decimal(math.Abs(v), number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if v < 0 {
		return "-$" + s
	}
	return "$" + s
}

// Number abbreviates large values with a K/M/B/T suffix and two decimals.
// Smaller values use en-US grouping with at most three fraction digits.
func Number(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// Percent formats v with two decimals and a leading "+" when non-negative.
func Percent(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}
