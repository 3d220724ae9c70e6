package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status marks whether a price list or condition participates in evaluation.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ConditionType discriminates the condition payload.
type ConditionType string

const (
	ConditionAmount       ConditionType = "amount"
	ConditionQuantity     ConditionType = "quantity"
	ConditionDateRange    ConditionType = "date_range"
	ConditionCustomerType ConditionType = "customer_type"
)

// Operator is the comparison applied by a condition.
type Operator string

const (
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_or_equal"
	OpEquals         Operator = "equals"
	OpBetween        Operator = "between"
	OpAfter          Operator = "after"
	OpBefore         Operator = "before"
)

// AmountWindow bounds a cart total. Nil bounds fall back to the package
// defaults: zero minimum, unbounded maximum.
type AmountWindow struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// QuantityWindow bounds a cart item count. Nil bounds default the same way
// as AmountWindow.
type QuantityWindow struct {
	Min *int
	Max *int
}

// DateWindow is the customer-facing window of a date_range condition. It is
// distinct from the condition's own ValidFrom/ValidTo lifecycle gate.
type DateWindow struct {
	From *time.Time
	To   *time.Time
}

// Condition gates a non-default price list. Exactly one payload field is
// set, matching Type.
type Condition struct {
	ID        uuid.UUID
	Type      ConditionType
	Operator  Operator
	Status    Status
	ValidFrom *time.Time
	ValidTo   *time.Time

	Amount       *AmountWindow
	Quantity     *QuantityWindow
	DateRange    *DateWindow
	CustomerType *string
}

// IsActive reports whether the condition participates in evaluation.
func (c Condition) IsActive() bool {
	return c.Status == StatusActive
}

// PriceList is a named, conditionally applicable set of product prices.
// Exactly one active list per organization is the default; it carries no
// gating conditions.
type PriceList struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	Name       string
	IsDefault  bool
	Status     Status
	Conditions []Condition
}

// ActiveConditions filters the list's conditions down to the ones that
// participate in evaluation.
func (pl PriceList) ActiveConditions() []Condition {
	out := make([]Condition, 0, len(pl.Conditions))
	for _, c := range pl.Conditions {
		if c.IsActive() {
			out = append(out, c)
		}
	}
	return out
}

// ProductPrice is one row of the external price catalog: the amount of a
// product under a specific price list.
type ProductPrice struct {
	ProductID   uuid.UUID
	PriceListID uuid.UUID
	Amount      decimal.Decimal
	ValidFrom   *time.Time
	ValidTo     *time.Time
}
