package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
)

// AppliedPriceList identifies the price list a savings report refers to.
type AppliedPriceList struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
}

// SavingsReport describes the tier applied to an existing cart and the
// money saved against default pricing. All fields are nil when there is
// nothing to report.
type SavingsReport struct {
	Applied      *AppliedPriceList `json:"appliedPriceList,omitempty"`
	Savings      *decimal.Decimal  `json:"savings,omitempty"`
	DefaultTotal *decimal.Decimal  `json:"defaultPriceListTotal,omitempty"`
}

// SavingsCalculator is the read-only twin of the processor's selection
// step: it reports tier and savings for an existing cart without re-pricing
// anything. Every degraded path yields an empty report, never an error,
// since this is a display-only computation.
type SavingsCalculator struct {
	Lists    catalog.PriceListCatalog
	Prices   catalog.ProductPriceCatalog
	Selector Selector
	Logger   zerolog.Logger
}

// Compute builds the savings report for the given cart lines.
func (s *SavingsCalculator) Compute(ctx context.Context, lines []CartLine, customer Customer, orgID uuid.UUID) (SavingsReport, error) {
	if len(lines) == 0 {
		return SavingsReport{}, nil
	}
	lists, err := s.Lists.ActivePriceLists(ctx, orgID)
	if err != nil {
		return SavingsReport{}, fmt.Errorf("fetch price lists: %w", err)
	}
	def, ok := defaultList(lists)
	if !ok {
		s.Logger.Warn().Str("org_id", orgID.String()).Msg("no default price list, skipping savings report")
		return SavingsReport{}, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ProductID]; !dup {
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}
	rows, err := s.Prices.PricesForProducts(ctx, ids, orgID)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("price fetch failed, skipping savings report")
		return SavingsReport{}, nil
	}
	matrix := catalog.BuildMatrix(rows)

	defaultTotal := decimal.Zero
	totalQuantity := 0
	for _, line := range lines {
		price, ok := matrix.Lookup(line.ProductID, def.ID)
		if !ok {
			s.Logger.Warn().
				Str("product_id", line.ProductID.String()).
				Msg("product lacks a default-tier price, skipping savings report")
			return SavingsReport{}, nil
		}
		defaultTotal = defaultTotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalQuantity += line.Quantity
	}

	winner := s.Selector.Apply(EvaluationContext{
		TotalPrice:    defaultTotal,
		TotalQuantity: totalQuantity,
		Lines:         lines,
		Customer:      customer,
	}, lists)
	if winner.ID == def.ID {
		return SavingsReport{}, nil
	}

	winnerTotal := decimal.Zero
	for _, line := range lines {
		price, ok := matrix.Lookup(line.ProductID, winner.ID)
		if !ok {
			// Same fallback as processing: the line keeps default pricing.
			price, _ = matrix.Lookup(line.ProductID, def.ID)
			s.Logger.Warn().
				Str("product_id", line.ProductID.String()).
				Str("price_list", winner.Name).
				Msg("no price in applied list, using default price for savings")
		}
		winnerTotal = winnerTotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	savings := defaultTotal.Sub(winnerTotal)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	return SavingsReport{
		Applied:      &AppliedPriceList{ID: winner.ID, Name: winner.Name, IsDefault: winner.IsDefault},
		Savings:      &savings,
		DefaultTotal: &defaultTotal,
	}, nil
}
