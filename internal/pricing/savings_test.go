package pricing_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-api/internal/catalog"
	"github.com/noah-isme/pricing-api/internal/pricing"
)

func newSavings(stub *stubCatalog) *pricing.SavingsCalculator {
	return &pricing.SavingsCalculator{
		Lists:    stub,
		Prices:   stub,
		Selector: pricing.Selector{Eval: newEvaluator()},
	}
}

func TestSavingsEmptyCart(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{}
	report, err := newSavings(stub).Compute(context.Background(), nil, pricing.Customer{}, uuid.New())
	require.NoError(t, err)
	require.Equal(t, pricing.SavingsReport{}, report)
}

func TestSavingsReportsAppliedTier(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	productID := uuid.New()
	def := defaultPriceList(uuid.New())
	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "250")},
	}
	stub := &stubCatalog{
		lists: []catalog.PriceList{def, tier},
		rows: []catalog.ProductPrice{
			price(productID, def.ID, "100"),
			price(productID, tier.ID, "80"),
		},
	}

	lines := []pricing.CartLine{{ProductID: productID, Quantity: 3}}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, orgID)
	require.NoError(t, err)

	require.NotNil(t, report.Applied)
	require.Equal(t, tier.ID, report.Applied.ID)
	require.Equal(t, "Wholesale", report.Applied.Name)
	require.False(t, report.Applied.IsDefault)

	require.NotNil(t, report.Savings)
	require.True(t, report.Savings.Equal(dec("60")))
	require.NotNil(t, report.DefaultTotal)
	require.True(t, report.DefaultTotal.Equal(dec("300")))
	require.Equal(t, 1, stub.batchCalls)
}

func TestSavingsEmptyWhenDefaultApplies(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	productID := uuid.New()
	def := defaultPriceList(uuid.New())
	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "500")},
	}
	stub := &stubCatalog{
		lists: []catalog.PriceList{def, tier},
		rows: []catalog.ProductPrice{
			price(productID, def.ID, "100"),
			price(productID, tier.ID, "80"),
		},
	}

	lines := []pricing.CartLine{{ProductID: productID, Quantity: 3}}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, orgID)
	require.NoError(t, err)
	require.Equal(t, pricing.SavingsReport{}, report)
}

func TestSavingsEmptyWithoutDefaultList(t *testing.T) {
	t.Parallel()

	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "1")},
	}
	stub := &stubCatalog{lists: []catalog.PriceList{tier}}

	lines := []pricing.CartLine{{ProductID: uuid.New(), Quantity: 1}}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, uuid.New())
	require.NoError(t, err)
	require.Equal(t, pricing.SavingsReport{}, report)
}

func TestSavingsEmptyWhenDefaultPriceMissing(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	productID := uuid.New()
	def := defaultPriceList(uuid.New())
	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "1")},
	}
	stub := &stubCatalog{
		lists: []catalog.PriceList{def, tier},
		rows:  []catalog.ProductPrice{price(productID, tier.ID, "80")},
	}

	lines := []pricing.CartLine{{ProductID: productID, Quantity: 1}}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, orgID)
	require.NoError(t, err)
	require.Equal(t, pricing.SavingsReport{}, report)
}

func TestSavingsNeverNegative(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	productID := uuid.New()
	def := defaultPriceList(uuid.New())
	// Tier priced above default: applied anyway, savings floored at zero.
	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Premium", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "100")},
	}
	stub := &stubCatalog{
		lists: []catalog.PriceList{def, tier},
		rows: []catalog.ProductPrice{
			price(productID, def.ID, "100"),
			price(productID, tier.ID, "120"),
		},
	}

	lines := []pricing.CartLine{{ProductID: productID, Quantity: 2}}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, orgID)
	require.NoError(t, err)
	require.NotNil(t, report.Savings)
	require.True(t, report.Savings.IsZero())
}

func TestSavingsFallsBackToDefaultPricePerLine(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	pricedID := uuid.New()
	orphanID := uuid.New()
	def := defaultPriceList(uuid.New())
	tier := catalog.PriceList{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
		Conditions: []catalog.Condition{amountCondition(catalog.OpGreaterOrEqual, "100")},
	}
	stub := &stubCatalog{
		lists: []catalog.PriceList{def, tier},
		rows: []catalog.ProductPrice{
			price(pricedID, def.ID, "100"),
			price(pricedID, tier.ID, "70"),
			price(orphanID, def.ID, "50"),
		},
	}

	lines := []pricing.CartLine{
		{ProductID: pricedID, Quantity: 2},
		{ProductID: orphanID, Quantity: 1},
	}
	report, err := newSavings(stub).Compute(context.Background(), lines, pricing.Customer{}, orgID)
	require.NoError(t, err)

	// Default total 250, tier total 140+50 with the orphan kept at default.
	require.NotNil(t, report.Savings)
	require.True(t, report.Savings.Equal(dec("60")))
	require.NotNil(t, report.DefaultTotal)
	require.True(t, report.DefaultTotal.Equal(dec("250")))
}
