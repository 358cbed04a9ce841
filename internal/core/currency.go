package core

import "github.com/shopspring/decimal"

// ReportingCurrency is the common currency all monetary reporting uses.
const ReportingCurrency = "INR"

// RateTable maps a currency code to its multiplier into the reporting
// currency.
type RateTable map[string]float64

// Convert returns the amount in the reporting currency. Codes with no rate
// on file fall back to multiplier 1: a missing rate must not block
// reporting, it just means the amount is treated as already converted.
func (t RateTable) Convert(amount float64, code string) float64 {
	if code == "" || code == ReportingCurrency {
		return amount
	}
	rate, ok := t[code]
	if !ok {
		return amount
	}
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).InexactFloat64()
}
