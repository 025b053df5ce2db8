// Package currency renders Colombian peso amounts the way local checkout UIs expect,
// e.g. "$ 16.900": symbol prefix, dot thousands separators, no decimals.
package currency

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("es-CO"))

// RoundPesos rounds the amount to whole pesos using half-up rounding.
func RoundPesos(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// FormatCOP renders the amount as a display price in Colombian pesos.
func FormatCOP(amount decimal.Decimal) string {
	pesos := RoundPesos(amount).IntPart()
	return printer.Sprintf("$ %d", pesos)
}
