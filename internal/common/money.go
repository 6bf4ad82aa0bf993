package common

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders a monetary value the way B3 quotes are shown, e.g. "R$ 29,50".
func FormatBRL(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return brPrinter.Sprint(currency.Symbol(currency.BRL.Amount(f)))
}

// FormatPercent renders a ratio (0.125) as a pt-BR percentage ("12,5%").
func FormatPercent(ratio decimal.Decimal) string {
	f, _ := ratio.Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return brPrinter.Sprintf("%.1f%%", f)
}
