package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const listQuery = `
SELECT id, org_id, name, is_default, status
FROM price_lists
WHERE org_id = $1 AND status = 'active'
ORDER BY created_at, id`

const conditionQuery = `
SELECT id, price_list_id, condition_type, operator, status,
       valid_from, valid_to,
       min_amount, max_amount, min_quantity, max_quantity,
       from_date, to_date, customer_type
FROM price_list_conditions
WHERE price_list_id = ANY($1)
ORDER BY created_at, id`

const priceQuery = `
SELECT amount
FROM product_prices
WHERE product_id = $1 AND price_list_id = $2 AND org_id = $3
  AND (valid_from IS NULL OR valid_from <= now())
  AND (valid_to IS NULL OR valid_to >= now())
ORDER BY valid_from DESC NULLS LAST
LIMIT 1`

const batchPriceQuery = `
SELECT pp.product_id, pp.price_list_id, pp.amount, pp.valid_from, pp.valid_to
FROM product_prices pp
JOIN price_lists pl ON pl.id = pp.price_list_id
WHERE pp.product_id = ANY($1) AND pp.org_id = $2 AND pl.status = 'active'
  AND (pp.valid_from IS NULL OR pp.valid_from <= now())
  AND (pp.valid_to IS NULL OR pp.valid_to >= now())`

// Store reads price lists and product prices from Postgres. It implements
// PriceListCatalog and ProductPriceCatalog, with an optional cache in front
// of the price list fetch.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

// ActivePriceLists loads the organization's active price lists together
// with their conditions.
func (s *Store) ActivePriceLists(ctx context.Context, orgID uuid.UUID) ([]PriceList, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	if cached, ok := s.Cache.GetLists(ctx, orgID); ok {
		return cached, nil
	}

	rows, err := s.Pool.Query(ctx, listQuery, orgID)
	if err != nil {
		return nil, fmt.Errorf("query price lists: %w", err)
	}
	lists, err := scanPriceLists(rows)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []PriceList{}, nil
	}

	ids := make([]uuid.UUID, 0, len(lists))
	index := make(map[uuid.UUID]int, len(lists))
	for i, pl := range lists {
		ids = append(ids, pl.ID)
		index[pl.ID] = i
	}
	condRows, err := s.Pool.Query(ctx, conditionQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("query price list conditions: %w", err)
	}
	if err := scanConditions(condRows, lists, index); err != nil {
		return nil, err
	}

	s.Cache.SetLists(ctx, orgID, lists)
	return lists, nil
}

// Price returns one product's amount under one price list.
func (s *Store) Price(ctx context.Context, productID, priceListID, orgID uuid.UUID) (decimal.Decimal, error) {
	if s == nil || s.Pool == nil {
		return decimal.Decimal{}, errors.New("catalog store not configured")
	}
	var amount pgtype.Numeric
	err := s.Pool.QueryRow(ctx, priceQuery, productID, priceListID, orgID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, ErrPriceNotFound
		}
		return decimal.Decimal{}, fmt.Errorf("query product price: %w", err)
	}
	return numericToDecimal(amount)
}

// PricesForProducts fetches every current price row for the given products
// in a single round trip.
func (s *Store) PricesForProducts(ctx context.Context, productIDs []uuid.UUID, orgID uuid.UUID) ([]ProductPrice, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	if len(productIDs) == 0 {
		return []ProductPrice{}, nil
	}
	rows, err := s.Pool.Query(ctx, batchPriceQuery, productIDs, orgID)
	if err != nil {
		return nil, fmt.Errorf("query product prices: %w", err)
	}
	defer rows.Close()

	out := make([]ProductPrice, 0, len(productIDs))
	for rows.Next() {
		var (
			row    ProductPrice
			amount pgtype.Numeric
			from   pgtype.Timestamptz
			to     pgtype.Timestamptz
		)
		if err := rows.Scan(&row.ProductID, &row.PriceListID, &amount, &from, &to); err != nil {
			return nil, fmt.Errorf("scan product price: %w", err)
		}
		row.Amount, err = numericToDecimal(amount)
		if err != nil {
			return nil, err
		}
		row.ValidFrom = timePtr(from)
		row.ValidTo = timePtr(to)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product prices: %w", err)
	}
	return out, nil
}

func scanPriceLists(rows pgx.Rows) ([]PriceList, error) {
	defer rows.Close()
	var lists []PriceList
	for rows.Next() {
		var pl PriceList
		var status string
		if err := rows.Scan(&pl.ID, &pl.OrgID, &pl.Name, &pl.IsDefault, &status); err != nil {
			return nil, fmt.Errorf("scan price list: %w", err)
		}
		pl.Status = Status(status)
		lists = append(lists, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price lists: %w", err)
	}
	return lists, nil
}

func scanConditions(rows pgx.Rows, lists []PriceList, index map[uuid.UUID]int) error {
	defer rows.Close()
	for rows.Next() {
		var (
			cond         Condition
			listID       uuid.UUID
			condType     string
			operator     string
			status       string
			validFrom    pgtype.Timestamptz
			validTo      pgtype.Timestamptz
			minAmount    pgtype.Numeric
			maxAmount    pgtype.Numeric
			minQuantity  pgtype.Int4
			maxQuantity  pgtype.Int4
			fromDate     pgtype.Timestamptz
			toDate       pgtype.Timestamptz
			customerType pgtype.Text
		)
		if err := rows.Scan(&cond.ID, &listID, &condType, &operator, &status,
			&validFrom, &validTo, &minAmount, &maxAmount, &minQuantity, &maxQuantity,
			&fromDate, &toDate, &customerType); err != nil {
			return fmt.Errorf("scan price list condition: %w", err)
		}
		cond.Type = ConditionType(condType)
		cond.Operator = Operator(operator)
		cond.Status = Status(status)
		cond.ValidFrom = timePtr(validFrom)
		cond.ValidTo = timePtr(validTo)

		switch cond.Type {
		case ConditionAmount:
			window := &AmountWindow{}
			if amt, ok := optionalDecimal(minAmount); ok {
				window.Min = amt
			}
			if amt, ok := optionalDecimal(maxAmount); ok {
				window.Max = amt
			}
			cond.Amount = window
		case ConditionQuantity:
			window := &QuantityWindow{}
			if minQuantity.Valid {
				v := int(minQuantity.Int32)
				window.Min = &v
			}
			if maxQuantity.Valid {
				v := int(maxQuantity.Int32)
				window.Max = &v
			}
			cond.Quantity = window
		case ConditionDateRange:
			cond.DateRange = &DateWindow{From: timePtr(fromDate), To: timePtr(toDate)}
		case ConditionCustomerType:
			if customerType.Valid {
				v := customerType.String
				cond.CustomerType = &v
			}
		}

		if i, ok := index[listID]; ok {
			lists[i].Conditions = append(lists[i].Conditions, cond)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate price list conditions: %w", err)
	}
	return nil
}

func optionalDecimal(n pgtype.Numeric) (*decimal.Decimal, bool) {
	if !n.Valid {
		return nil, false
	}
	d, err := numericToDecimal(n)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, errors.New("null amount")
	}
	value, err := n.Value()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read numeric: %w", err)
	}
	s, ok := value.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected numeric driver value %T", value)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount: %w", err)
	}
	return d, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
