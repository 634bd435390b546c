package pricing

import "github.com/shopspring/decimal"

const (
	DirectionAbove = "above"
	DirectionBelow = "below"
	DirectionNone  = "none"
)

const deviationPlaces int32 = 4

// DefaultDeviationThreshold flags prices more than 20% away from the category average.
var DefaultDeviationThreshold = decimal.RequireFromString("0.20")

// DeviationResult reports how far a product price sits from its category average.
type DeviationResult struct {
	Deviation decimal.Decimal
	Threshold decimal.Decimal
	IsFlagged bool
	Direction string
}

// CheckPriceDeviation computes |price-avg|/avg rounded to 4 places. A non-positive
// average yields a zero deviation that is never flagged.
func CheckPriceDeviation(productPrice, categoryAvgPrice, threshold decimal.Decimal) DeviationResult {
	result := DeviationResult{
		Deviation: decimal.Zero,
		Threshold: threshold,
		Direction: DirectionNone,
	}
	if !categoryAvgPrice.IsPositive() {
		return result
	}
	diff := productPrice.Sub(categoryAvgPrice)
	result.Deviation = diff.Abs().Div(categoryAvgPrice).Round(deviationPlaces)
	result.IsFlagged = result.Deviation.GreaterThan(threshold)
	switch diff.Sign() {
	case 1:
		result.Direction = DirectionAbove
	case -1:
		result.Direction = DirectionBelow
	}
	return result
}
