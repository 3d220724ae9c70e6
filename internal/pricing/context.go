package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one line of the cart snapshot fed into evaluation. Price is
// the line's default-tier unit price when known; it is distinct from
// whatever price is currently stored on the persisted line.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
	Price     *decimal.Decimal
}

// Customer carries the customer attributes usable by conditions. An empty
// Type means the signal is not available yet.
type Customer struct {
	Type string
}

// EvaluationContext is the ephemeral input of one tier evaluation. It is
// built fresh per call and never persisted.
type EvaluationContext struct {
	TotalPrice    decimal.Decimal
	TotalQuantity int
	Lines         []CartLine
	Customer      Customer
}

// Subtotal sums quantity times known line price. Lines without a price
// contribute nothing; the second return reports whether every line had one.
func Subtotal(lines []CartLine) (decimal.Decimal, bool) {
	total := decimal.Zero
	complete := true
	for _, line := range lines {
		if line.Price == nil {
			complete = false
			continue
		}
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, complete
}

// TotalQuantity sums line quantities, ignoring non-positive entries.
func TotalQuantity(lines []CartLine) int {
	var total int
	for _, line := range lines {
		if line.Quantity > 0 {
			total += line.Quantity
		}
	}
	return total
}
