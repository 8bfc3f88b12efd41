package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Stripe's zero-decimal currencies.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// Three-decimal currencies must be charged in multiples of ten minor units.
var threeDecimalCurrencies = map[string]bool{
	"BHD": true, "JOD": true, "KWD": true, "OMR": true, "TND": true,
}

// MinorUnits converts amount to the smallest unit the provider charges in for currency.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	code := strings.ToUpper(currency)
	switch {
	case zeroDecimalCurrencies[code]:
		return amount.Round(0).IntPart()
	case threeDecimalCurrencies[code]:
		return amount.Shift(2).Round(0).Shift(1).IntPart()
	default:
		return amount.Shift(2).Round(0).IntPart()
	}
}
