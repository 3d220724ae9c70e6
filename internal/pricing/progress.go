package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
)

// ConditionProgress describes how close the cart is to satisfying one
// condition of a not-yet-unlocked price list.
type ConditionProgress struct {
	ConditionID uuid.UUID             `json:"conditionId"`
	Type        catalog.ConditionType `json:"type"`
	IsMet       bool                  `json:"isMet"`
	Progress    float64               `json:"progress"`
	Current     decimal.Decimal       `json:"currentValue"`
	Target      decimal.Decimal       `json:"targetValue"`
	Remaining   decimal.Decimal       `json:"remaining"`
	Unit        string                `json:"unit"`
	Message     string                `json:"message"`
}

// ListProgress groups condition progress per price list, with an optional
// savings projection for reaching it.
type ListProgress struct {
	PriceListID      uuid.UUID           `json:"priceListId"`
	PriceListName    string              `json:"priceListName"`
	Conditions       []ConditionProgress `json:"conditions"`
	PotentialSavings *decimal.Decimal    `json:"potentialSavings,omitempty"`
}

// ProgressCalculator computes, for every non-default price list the
// customer has not unlocked yet, how far each active condition is from
// being met and how much the customer would save by reaching the list.
type ProgressCalculator struct {
	Lists  catalog.PriceListCatalog
	Prices catalog.ProductPriceCatalog
	Eval   Evaluator
	Logger zerolog.Logger
}

// Compute returns progress for unmet lists in their natural order. Lists
// whose active conditions are all met are excluded: they are unlocked, not
// in progress.
func (p *ProgressCalculator) Compute(ctx context.Context, ec EvaluationContext, orgID uuid.UUID) ([]ListProgress, error) {
	lists, err := p.Lists.ActivePriceLists(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("fetch price lists: %w", err)
	}
	def, hasDefault := defaultList(lists)

	matrix, defaultTotal, savingsReady := p.loadSavingsMatrix(ctx, ec, orgID, def, hasDefault)

	out := make([]ListProgress, 0, len(lists))
	for _, pl := range lists {
		if pl.IsDefault || pl.Status != catalog.StatusActive {
			continue
		}
		active := pl.ActiveConditions()
		if len(active) == 0 {
			continue
		}

		allMet := true
		conditions := make([]ConditionProgress, 0, len(active))
		for _, cond := range active {
			record := p.conditionProgress(cond, ec, pl)
			if !record.IsMet {
				allMet = false
			}
			conditions = append(conditions, record)
		}
		if allMet {
			continue
		}

		entry := ListProgress{PriceListID: pl.ID, PriceListName: pl.Name, Conditions: conditions}
		if savingsReady {
			if savings, ok := p.projectSavings(matrix, defaultTotal, ec.Lines, pl); ok {
				entry.PotentialSavings = &savings
				enrichMessages(entry.Conditions, savings)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// loadSavingsMatrix pre-loads the price matrix for all cart products in a
// single batch and computes the default-tier subtotal. Any missing default
// price marks the subtotal unknown, which suppresses every savings
// projection for this call.
func (p *ProgressCalculator) loadSavingsMatrix(ctx context.Context, ec EvaluationContext, orgID uuid.UUID, def catalog.PriceList, hasDefault bool) (catalog.PriceMatrix, decimal.Decimal, bool) {
	if !hasDefault || len(ec.Lines) == 0 {
		return nil, decimal.Zero, false
	}
	ids := make([]uuid.UUID, 0, len(ec.Lines))
	seen := make(map[uuid.UUID]struct{}, len(ec.Lines))
	for _, line := range ec.Lines {
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}
	rows, err := p.Prices.PricesForProducts(ctx, ids, orgID)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("price matrix fetch failed, skipping savings projections")
		return nil, decimal.Zero, false
	}
	matrix := catalog.BuildMatrix(rows)

	total := decimal.Zero
	for _, line := range ec.Lines {
		price, ok := matrix.Lookup(line.ProductID, def.ID)
		if !ok {
			if line.Price == nil {
				p.Logger.Warn().
					Str("product_id", line.ProductID.String()).
					Msg("product lacks a default-tier price, skipping savings projections")
				return nil, decimal.Zero, false
			}
			price = *line.Price
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return matrix, total, true
}

func (p *ProgressCalculator) projectSavings(matrix catalog.PriceMatrix, defaultTotal decimal.Decimal, lines []CartLine, pl catalog.PriceList) (decimal.Decimal, bool) {
	projected := decimal.Zero
	for _, line := range lines {
		price, ok := matrix.Lookup(line.ProductID, pl.ID)
		if !ok {
			// Missing candidate price suppresses savings for this list only.
			return decimal.Zero, false
		}
		projected = projected.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	savings := defaultTotal.Sub(projected)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	return savings, true
}

func (p *ProgressCalculator) conditionProgress(cond catalog.Condition, ec EvaluationContext, pl catalog.PriceList) ConditionProgress {
	record := ConditionProgress{
		ConditionID: cond.ID,
		Type:        cond.Type,
		IsMet:       p.Eval.Evaluate(cond, ec),
	}

	switch cond.Type {
	case catalog.ConditionAmount:
		target, _ := amountBounds(cond.Amount)
		record.Current = ec.TotalPrice
		record.Target = target
		record.Unit = "currency"
	case catalog.ConditionQuantity:
		target, _ := quantityBounds(cond.Quantity)
		record.Current = decimal.NewFromInt(int64(ec.TotalQuantity))
		record.Target = target
		record.Unit = "items"
	default:
		// Date and customer-type conditions are binary; there is no
		// numeric distance to report.
		if record.IsMet {
			record.Progress = 100
		}
		record.Message = binaryMessage(cond, pl, record.IsMet)
		return record
	}

	record.Progress = progressPercent(record.Current, record.Target)
	record.Remaining = record.Target.Sub(record.Current)
	if record.Remaining.IsNegative() {
		record.Remaining = decimal.Zero
	}
	record.Message = numericMessage(cond.Type, pl, record)
	return record
}

// progressPercent clamps current/target into [0, 100]. A zero target is
// trivially met for any non-negative current value.
func progressPercent(current, target decimal.Decimal) float64 {
	if target.IsZero() {
		if current.IsNegative() {
			return 0
		}
		return 100
	}
	ratio, _ := current.Div(target).Mul(decimal.NewFromInt(100)).Float64()
	if ratio < 0 {
		return 0
	}
	if ratio > 100 {
		return 100
	}
	return ratio
}

func numericMessage(condType catalog.ConditionType, pl catalog.PriceList, record ConditionProgress) string {
	if record.IsMet {
		return fmt.Sprintf("%s requirement met", pl.Name)
	}
	switch condType {
	case catalog.ConditionAmount:
		return fmt.Sprintf("Add %s more to unlock %s pricing", record.Remaining.StringFixed(2), pl.Name)
	default:
		return fmt.Sprintf("Add %s more items to unlock %s pricing", record.Remaining.StringFixed(0), pl.Name)
	}
}

func binaryMessage(cond catalog.Condition, pl catalog.PriceList, met bool) string {
	if met {
		return fmt.Sprintf("%s requirement met", pl.Name)
	}
	switch cond.Type {
	case catalog.ConditionDateRange:
		return fmt.Sprintf("%s pricing is not available at this time", pl.Name)
	case catalog.ConditionCustomerType:
		target := ""
		if cond.CustomerType != nil {
			target = *cond.CustomerType
		}
		return fmt.Sprintf("%s pricing requires a %s account", pl.Name, target)
	default:
		return fmt.Sprintf("%s pricing has an unmet requirement", pl.Name)
	}
}

func enrichMessages(conditions []ConditionProgress, savings decimal.Decimal) {
	if !savings.IsPositive() {
		return
	}
	for i := range conditions {
		if conditions[i].IsMet {
			continue
		}
		conditions[i].Message = fmt.Sprintf("%s and save %s", conditions[i].Message, savings.StringFixed(2))
	}
}
