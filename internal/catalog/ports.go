package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrPriceNotFound indicates no price row exists for the requested product
// and price list.
var ErrPriceNotFound = errors.New("product price not found")

// PriceListCatalog provides read access to an organization's price lists.
type PriceListCatalog interface {
	// ActivePriceLists returns every active price list of the organization,
	// each carrying its conditions (active and inactive).
	ActivePriceLists(ctx context.Context, orgID uuid.UUID) ([]PriceList, error)
}

// ProductPriceCatalog provides read access to per-list product prices.
type ProductPriceCatalog interface {
	// Price returns the amount of one product under one price list, or
	// ErrPriceNotFound.
	Price(ctx context.Context, productID, priceListID, orgID uuid.UUID) (decimal.Decimal, error)

	// PricesForProducts returns every price row for the given products
	// across all of the organization's price lists in one round trip.
	PricesForProducts(ctx context.Context, productIDs []uuid.UUID, orgID uuid.UUID) ([]ProductPrice, error)
}

// PriceMatrix indexes batched price rows by product and price list for
// in-memory lookups after a single catalog fetch.
type PriceMatrix map[uuid.UUID]map[uuid.UUID]decimal.Decimal

// BuildMatrix folds price rows into a lookup matrix. Later rows win on
// duplicate (product, list) pairs.
func BuildMatrix(rows []ProductPrice) PriceMatrix {
	m := make(PriceMatrix, len(rows))
	for _, row := range rows {
		byList, ok := m[row.ProductID]
		if !ok {
			byList = make(map[uuid.UUID]decimal.Decimal)
			m[row.ProductID] = byList
		}
		byList[row.PriceListID] = row.Amount
	}
	return m
}

// Lookup returns the amount for (productID, priceListID) if present.
func (m PriceMatrix) Lookup(productID, priceListID uuid.UUID) (decimal.Decimal, bool) {
	byList, ok := m[productID]
	if !ok {
		return decimal.Decimal{}, false
	}
	amount, ok := byList[priceListID]
	return amount, ok
}
