package utils

import "github.com/shopspring/decimal"

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func NewFloat(f float64) *float64 {
	return &f
}

func NewInt(i int) *int {
	return &i
}

func DereferencePtr[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}

// DecimalSum sums a slice of decimals without intermediate allocations growing.
func DecimalSum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
