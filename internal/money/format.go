// Package money formats rupee amounts the way Indian users read them.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Format renders d with locale digit grouping. Whole amounts have no
// fraction, anything else is shown with two decimals.
func Format(d decimal.Decimal) string {
	d = d.Round(2)
	if d.Equal(d.Truncate(0)) {
		return printer.Sprintf("%d", d.IntPart())
	}
	return printer.Sprintf("%.2f", d.InexactFloat64())
}

// Rupees is Format prefixed with the rupee sign.
func Rupees(d decimal.Decimal) string {
	return "₹" + Format(d)
}
