package pricing

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
)

// defaultMinAmount and defaultMinQuantity are the lower bounds applied when
// a condition omits them. Upper bounds are unbounded when omitted.
var (
	defaultMinAmount   = decimal.Zero
	defaultMinQuantity = 0
)

// Evaluator decides whether a single condition holds for an evaluation
// context. Malformed conditions evaluate to false with a warning; the
// evaluator never returns an error so one bad condition cannot block
// pricing.
type Evaluator struct {
	Logger zerolog.Logger
	Now    func() time.Time
}

func (e Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Evaluate reports whether the condition is met. The condition's own
// validity window is checked first and gates every type.
func (e Evaluator) Evaluate(cond catalog.Condition, ec EvaluationContext) bool {
	now := e.now()
	if cond.ValidFrom != nil && now.Before(*cond.ValidFrom) {
		return false
	}
	if cond.ValidTo != nil && now.After(*cond.ValidTo) {
		return false
	}

	switch cond.Type {
	case catalog.ConditionAmount:
		min, max := amountBounds(cond.Amount)
		return e.compareWindow(cond, ec.TotalPrice, min, max)
	case catalog.ConditionQuantity:
		min, max := quantityBounds(cond.Quantity)
		return e.compareWindow(cond, decimal.NewFromInt(int64(ec.TotalQuantity)), min, max)
	case catalog.ConditionDateRange:
		return e.evaluateDateRange(cond, now)
	case catalog.ConditionCustomerType:
		return e.evaluateCustomerType(cond, ec)
	default:
		e.Logger.Warn().
			Str("condition_id", cond.ID.String()).
			Str("condition_type", string(cond.Type)).
			Msg("unknown condition type, evaluating to false")
		return false
	}
}

// compareWindow applies the numeric operator set against a [min, max]
// window. Between is inclusive on both bounds; a nil max means unbounded.
func (e Evaluator) compareWindow(cond catalog.Condition, value, min decimal.Decimal, max *decimal.Decimal) bool {
	switch cond.Operator {
	case catalog.OpGreaterThan:
		return value.GreaterThan(min)
	case catalog.OpGreaterOrEqual:
		return value.GreaterThanOrEqual(min)
	case catalog.OpLessThan:
		return max == nil || value.LessThan(*max)
	case catalog.OpLessOrEqual:
		return max == nil || value.LessThanOrEqual(*max)
	case catalog.OpEquals:
		return value.Equal(min)
	case catalog.OpBetween:
		if value.LessThan(min) {
			return false
		}
		return max == nil || value.LessThanOrEqual(*max)
	default:
		e.warnOperator(cond)
		return false
	}
}

func (e Evaluator) evaluateDateRange(cond catalog.Condition, now time.Time) bool {
	window := cond.DateRange
	if window == nil {
		window = &catalog.DateWindow{}
	}
	switch cond.Operator {
	case catalog.OpBetween:
		if window.From != nil && now.Before(*window.From) {
			return false
		}
		if window.To != nil && now.After(*window.To) {
			return false
		}
		return window.From != nil || window.To != nil
	case catalog.OpAfter:
		return window.From != nil && now.After(*window.From)
	case catalog.OpBefore:
		return window.To != nil && now.Before(*window.To)
	default:
		e.warnOperator(cond)
		return false
	}
}

func (e Evaluator) evaluateCustomerType(cond catalog.Condition, ec EvaluationContext) bool {
	if cond.Operator != catalog.OpEquals {
		e.warnOperator(cond)
		return false
	}
	if cond.CustomerType == nil || strings.TrimSpace(*cond.CustomerType) == "" {
		e.Logger.Warn().
			Str("condition_id", cond.ID.String()).
			Msg("customer_type condition without a target type, evaluating to false")
		return false
	}
	// Missing signal means not met, never a guess.
	if strings.TrimSpace(ec.Customer.Type) == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(ec.Customer.Type), strings.TrimSpace(*cond.CustomerType))
}

func (e Evaluator) warnOperator(cond catalog.Condition) {
	e.Logger.Warn().
		Str("condition_id", cond.ID.String()).
		Str("condition_type", string(cond.Type)).
		Str("operator", string(cond.Operator)).
		Msg("unknown operator for condition type, evaluating to false")
}

func amountBounds(w *catalog.AmountWindow) (decimal.Decimal, *decimal.Decimal) {
	min := defaultMinAmount
	var max *decimal.Decimal
	if w != nil {
		if w.Min != nil {
			min = *w.Min
		}
		max = w.Max
	}
	return min, max
}

func quantityBounds(w *catalog.QuantityWindow) (decimal.Decimal, *decimal.Decimal) {
	min := decimal.NewFromInt(int64(defaultMinQuantity))
	var max *decimal.Decimal
	if w != nil {
		if w.Min != nil {
			min = decimal.NewFromInt(int64(*w.Min))
		}
		if w.Max != nil {
			m := decimal.NewFromInt(int64(*w.Max))
			max = &m
		}
	}
	return min, max
}

// MinAmount returns the smallest configured minimum amount across the
// list's active amount conditions. The second return is false when the list
// has no active amount condition and thus never enters priority selection.
func MinAmount(pl catalog.PriceList) (decimal.Decimal, bool) {
	var (
		found bool
		min   decimal.Decimal
	)
	for _, cond := range pl.ActiveConditions() {
		if cond.Type != catalog.ConditionAmount {
			continue
		}
		candidate, _ := amountBounds(cond.Amount)
		if !found || candidate.LessThan(min) {
			min = candidate
			found = true
		}
	}
	return min, found
}
