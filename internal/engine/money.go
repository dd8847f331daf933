package engine

import "github.com/shopspring/decimal"

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// toFloat keeps full precision; amounts are rounded only when displayed.
func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// percent rounds a ratio already scaled to 100 to two places.
func percent(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
