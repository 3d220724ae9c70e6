package pricing_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
)

// stubCatalog implements both catalog ports from in-memory fixtures.
type stubCatalog struct {
	lists    []catalog.PriceList
	rows     []catalog.ProductPrice
	listErr  error
	priceErr error

	batchCalls int
}

func (s *stubCatalog) ActivePriceLists(_ context.Context, _ uuid.UUID) ([]catalog.PriceList, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.lists, nil
}

func (s *stubCatalog) Price(_ context.Context, productID, priceListID, _ uuid.UUID) (decimal.Decimal, error) {
	if s.priceErr != nil {
		return decimal.Decimal{}, s.priceErr
	}
	for _, row := range s.rows {
		if row.ProductID == productID && row.PriceListID == priceListID {
			return row.Amount, nil
		}
	}
	return decimal.Decimal{}, catalog.ErrPriceNotFound
}

func (s *stubCatalog) PricesForProducts(_ context.Context, productIDs []uuid.UUID, _ uuid.UUID) ([]catalog.ProductPrice, error) {
	s.batchCalls++
	if s.priceErr != nil {
		return nil, s.priceErr
	}
	wanted := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	var out []catalog.ProductPrice
	for _, row := range s.rows {
		if _, ok := wanted[row.ProductID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func price(productID, listID uuid.UUID, amount string) catalog.ProductPrice {
	return catalog.ProductPrice{
		ProductID:   productID,
		PriceListID: listID,
		Amount:      dec(amount),
	}
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func defaultPriceList(id uuid.UUID) catalog.PriceList {
	return catalog.PriceList{
		ID:        id,
		Name:      "Retail",
		IsDefault: true,
		Status:    catalog.StatusActive,
	}
}

func amountCondition(op catalog.Operator, min string) catalog.Condition {
	return catalog.Condition{
		ID:       uuid.New(),
		Type:     catalog.ConditionAmount,
		Operator: op,
		Status:   catalog.StatusActive,
		Amount:   &catalog.AmountWindow{Min: decPtr(min)},
	}
}

func quantityCondition(op catalog.Operator, min int) catalog.Condition {
	return catalog.Condition{
		ID:       uuid.New(),
		Type:     catalog.ConditionQuantity,
		Operator: op,
		Status:   catalog.StatusActive,
		Quantity: &catalog.QuantityWindow{Min: &min},
	}
}

func customerCondition(customerType string) catalog.Condition {
	return catalog.Condition{
		ID:           uuid.New(),
		Type:         catalog.ConditionCustomerType,
		Operator:     catalog.OpEquals,
		Status:       catalog.StatusActive,
		CustomerType: &customerType,
	}
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func timeAt(t time.Time) *time.Time {
	return &t
}
