package domain

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places allowed for currency amounts (cents).
const MoneyPrecision int32 = 2

// IsCentPrecise reports whether d has no digits beyond MoneyPrecision.
func IsCentPrecise(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPrecision))
}

// Cost returns tokens * price. Exact for cent-precise prices.
func Cost(tokens int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(tokens))
}

// FormatMoney renders an amount with exactly MoneyPrecision decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPrecision)
}
