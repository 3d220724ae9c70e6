package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
	"github.com/noah-isme/pricing-api/internal/obs"
)

// ErrDefaultPriceListNotFound indicates the organization has no active
// default price list. Pricing has no baseline without it.
var ErrDefaultPriceListNotFound = errors.New("default price list not found")

// ErrDefaultPriceNotFound indicates a new item's product has no price in
// the default list. Such an item has no canonical price and cannot be
// priced at all.
var ErrDefaultPriceNotFound = errors.New("default price not found for product")

// NewItem is a cart line about to be added, not yet priced.
type NewItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// ProcessedItem is a new item priced under the winning price list.
type ProcessedItem struct {
	ProductID   uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
	PriceListID uuid.UUID
}

// ProcessResult is the outcome of one pricing pass.
type ProcessResult struct {
	Items       []ProcessedItem
	AppliedList catalog.PriceList
	// UpdateAllItems tells the caller that lines already on the cart were
	// priced under a different list and must be re-priced too.
	UpdateAllItems bool
}

// Processor prices new cart items: it aggregates the cart's default-tier
// totals, selects the applicable price list, and re-prices the items under
// it with per-item fallback to the default price. It performs a single
// batched price fetch and computes everything else in memory. It never
// writes to storage.
type Processor struct {
	Lists    catalog.PriceListCatalog
	Prices   catalog.ProductPriceCatalog
	Selector Selector
	Logger   zerolog.Logger
}

// Process prices newItems given the existing cart snapshot.
func (p *Processor) Process(ctx context.Context, orgID uuid.UUID, newItems []NewItem, existing []CartLine, customer Customer) (ProcessResult, error) {
	lists, err := p.Lists.ActivePriceLists(ctx, orgID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("fetch price lists: %w", err)
	}
	def, ok := defaultList(lists)
	if !ok {
		return ProcessResult{}, fmt.Errorf("organization %s: %w", orgID, ErrDefaultPriceListNotFound)
	}

	matrix, err := p.loadMatrix(ctx, orgID, newItems, existing)
	if err != nil {
		return ProcessResult{}, err
	}

	// Default-tier pricing for the new items is the baseline; a product
	// without a default price is fatal.
	items := make([]ProcessedItem, 0, len(newItems))
	totalPrice := decimal.Zero
	totalQuantity := 0
	for _, item := range newItems {
		price, ok := matrix.Lookup(item.ProductID, def.ID)
		if !ok {
			return ProcessResult{}, fmt.Errorf("product %s: %w", item.ProductID, ErrDefaultPriceNotFound)
		}
		items = append(items, ProcessedItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			PriceListID: def.ID,
		})
		totalPrice = totalPrice.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		totalQuantity += item.Quantity
	}

	// Existing lines contribute to the aggregate with a re-fetched
	// default price, falling back to the stored line price.
	for _, line := range existing {
		price, ok := matrix.Lookup(line.ProductID, def.ID)
		if !ok {
			if line.Price == nil {
				p.Logger.Warn().
					Str("product_id", line.ProductID.String()).
					Msg("existing line has neither default nor stored price, excluded from totals")
				continue
			}
			p.Logger.Warn().
				Str("product_id", line.ProductID.String()).
				Msg("default price lookup failed for existing line, using stored price")
			price = *line.Price
		}
		totalPrice = totalPrice.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalQuantity += line.Quantity
	}

	ec := EvaluationContext{
		TotalPrice:    totalPrice,
		TotalQuantity: totalQuantity,
		Lines:         existing,
		Customer:      customer,
	}
	winner := p.Selector.Apply(ec, lists)
	observeApplied(winner)

	if winner.ID != def.ID {
		for i := range items {
			price, ok := matrix.Lookup(items[i].ProductID, winner.ID)
			if !ok {
				p.Logger.Warn().
					Str("product_id", items[i].ProductID.String()).
					Str("price_list", winner.Name).
					Msg("no price in winning list, keeping default price")
				if obs.PriceFallbackTotal != nil {
					obs.PriceFallbackTotal.Inc()
				}
				continue
			}
			items[i].UnitPrice = price
			items[i].PriceListID = winner.ID
		}
	}

	return ProcessResult{
		Items:          items,
		AppliedList:    winner,
		UpdateAllItems: winner.ID != def.ID && len(existing) > 0,
	}, nil
}

func (p *Processor) loadMatrix(ctx context.Context, orgID uuid.UUID, newItems []NewItem, existing []CartLine) (catalog.PriceMatrix, error) {
	seen := make(map[uuid.UUID]struct{}, len(newItems)+len(existing))
	ids := make([]uuid.UUID, 0, len(newItems)+len(existing))
	for _, item := range newItems {
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	for _, line := range existing {
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}
	rows, err := p.Prices.PricesForProducts(ctx, ids, orgID)
	if err != nil {
		return nil, fmt.Errorf("fetch product prices: %w", err)
	}
	return catalog.BuildMatrix(rows), nil
}

func defaultList(lists []catalog.PriceList) (catalog.PriceList, bool) {
	for _, pl := range lists {
		if pl.IsDefault && pl.Status == catalog.StatusActive {
			return pl, true
		}
	}
	return catalog.PriceList{}, false
}

func observeApplied(winner catalog.PriceList) {
	if obs.TierAppliedTotal == nil {
		return
	}
	kind := "tier"
	if winner.IsDefault {
		kind = "default"
	}
	obs.TierAppliedTotal.WithLabelValues(kind).Inc()
}
