package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// LineAmount returns quantity × unit using decimal arithmetic so that totals
// such as 3 × 999.99 come out as 2999.97 rather than a binary approximation.
func LineAmount(quantity int, unit float64) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}

// DivideAmount returns total / quantity rounded to cents.
func DivideAmount(total float64, quantity int) float64 {
	return decimal.NewFromFloat(total).Div(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// RoundCents rounds a monetary value to two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SumAmounts adds monetary values exactly and rounds the result to cents.
func SumAmounts(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// SuggestedUnitCost is the default purchase cost offered for an item: 70% of its sale price.
func SuggestedUnitCost(price float64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(0.7)).Round(2).InexactFloat64()
}

// ValidateTransactionInput checks the quantity and unit amount of a sale or purchase.
func ValidateTransactionInput(quantity int, unit float64) error {
	if quantity <= 0 {
		return ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if quantity > MaxQuantity {
		return ValidationError{Field: "quantity", Reason: fmt.Sprintf("cannot exceed %d", MaxQuantity)}
	}
	if math.IsNaN(unit) || unit <= 0 {
		return ValidationError{Field: "unit amount", Reason: "must be greater than zero"}
	}
	if unit > MaxPrice {
		return ValidationError{Field: "unit amount", Reason: fmt.Sprintf("cannot exceed %.0f", MaxPrice)}
	}
	return nil
}
