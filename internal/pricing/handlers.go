package pricing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
	"github.com/noah-isme/pricing-api/internal/common"
	"github.com/noah-isme/pricing-api/internal/obs"
)

// Handler wires the pricing engine to HTTP.
type Handler struct {
	Processor *Processor
	Progress  *ProgressCalculator
	Savings   *SavingsCalculator
	Prices    catalog.ProductPriceCatalog
	Logger    zerolog.Logger
}

type itemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type linePayload struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type cartPayload struct {
	Items        []linePayload `json:"items"`
	CustomerType string        `json:"customerType"`
}

// Evaluate prices new items against the existing cart snapshot.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if h.Processor == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing processor not configured", nil)
		return
	}
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Items []itemPayload `json:"items"`
		Cart  cartPayload   `json:"cart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteAppError(w, common.BadRequest("invalid json payload", err))
		return
	}
	newItems, err := parseItems(payload.Items)
	if err != nil {
		common.WriteAppError(w, common.BadRequest(err.Error(), err))
		return
	}
	lines, err := parseLines(payload.Cart.Items)
	if err != nil {
		common.WriteAppError(w, common.BadRequest(err.Error(), err))
		return
	}

	start := time.Now()
	result, err := h.Processor.Process(r.Context(), orgID, newItems, lines, Customer{Type: payload.Cart.CustomerType})
	observeOperation("evaluate", start, err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, map[string]any{
			"productId":   item.ProductID,
			"quantity":    item.Quantity,
			"price":       item.UnitPrice,
			"priceListId": item.PriceListID,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items": items,
			"appliedPriceList": AppliedPriceList{
				ID:        result.AppliedList.ID,
				Name:      result.AppliedList.Name,
				IsDefault: result.AppliedList.IsDefault,
			},
			"shouldUpdateAllItems": result.UpdateAllItems,
		},
	})
}

// ProgressReport returns per-list condition progress for the cart.
func (h *Handler) ProgressReport(w http.ResponseWriter, r *http.Request) {
	if h.Progress == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "progress calculator not configured", nil)
		return
	}
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Cart cartPayload `json:"cart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteAppError(w, common.BadRequest("invalid json payload", err))
		return
	}
	lines, err := parseLines(payload.Cart.Items)
	if err != nil {
		common.WriteAppError(w, common.BadRequest(err.Error(), err))
		return
	}
	subtotal, complete := Subtotal(lines)
	if !complete {
		h.Logger.Warn().
			Int("line_count", len(lines)).
			Msg("cart lines without prices excluded from subtotal, amount progress may undercount")
	}
	ec := EvaluationContext{
		TotalPrice:    subtotal,
		TotalQuantity: TotalQuantity(lines),
		Lines:         lines,
		Customer:      Customer{Type: payload.Cart.CustomerType},
	}

	start := time.Now()
	progress, err := h.Progress.Compute(r.Context(), ec, orgID)
	observeOperation("progress", start, err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": progress})
}

// SavingsReport returns applied-tier savings info for an existing cart.
func (h *Handler) SavingsReport(w http.ResponseWriter, r *http.Request) {
	if h.Savings == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "savings calculator not configured", nil)
		return
	}
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Items        []linePayload `json:"items"`
		CustomerType string        `json:"customerType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteAppError(w, common.BadRequest("invalid json payload", err))
		return
	}
	lines, err := parseLines(payload.Items)
	if err != nil {
		common.WriteAppError(w, common.BadRequest(err.Error(), err))
		return
	}

	start := time.Now()
	report, err := h.Savings.Compute(r.Context(), lines, Customer{Type: payload.CustomerType}, orgID)
	observeOperation("savings", start, err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": report})
}

// Price returns one product's price under one price list. Cart services use
// it to re-price stored lines when an evaluation signals shouldUpdateAllItems.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	if h.Prices == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "price catalog not configured", nil)
		return
	}
	orgID, ok := orgIDParam(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("productId")))
	if err != nil {
		common.WriteAppError(w, common.BadRequest("invalid productId", err))
		return
	}
	priceListID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("priceListId")))
	if err != nil {
		common.WriteAppError(w, common.BadRequest("invalid priceListId", err))
		return
	}
	amount, err := h.Prices.Price(r.Context(), productID, priceListID, orgID)
	if err != nil {
		if errors.Is(err, catalog.ErrPriceNotFound) {
			common.WriteAppError(w, common.NotFound("price not found", err))
			return
		}
		common.WriteAppError(w, common.NewAppError("INTERNAL", "unable to load price", http.StatusInternalServerError, err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"productId":   productID,
			"priceListId": priceListID,
			"amount":      amount,
		},
	})
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDefaultPriceListNotFound):
		common.WriteAppError(w, common.NotFound("organization has no default price list", err))
	case errors.Is(err, ErrDefaultPriceNotFound):
		common.WriteAppError(w, common.NewAppError("NO_DEFAULT_PRICE", "a product has no default-tier price", http.StatusUnprocessableEntity, err))
	default:
		common.WriteAppError(w, err)
	}
}

func orgIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		common.WriteAppError(w, common.BadRequest("invalid organization id", err))
		return uuid.UUID{}, false
	}
	return orgID, true
}

func parseItems(payload []itemPayload) ([]NewItem, error) {
	items := make([]NewItem, 0, len(payload))
	for _, it := range payload {
		id, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			return nil, errors.New("invalid product id")
		}
		if it.Quantity <= 0 {
			return nil, errors.New("quantity must be positive")
		}
		items = append(items, NewItem{ProductID: id, Quantity: it.Quantity})
	}
	return items, nil
}

func parseLines(payload []linePayload) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(payload))
	for _, ln := range payload {
		id, err := uuid.Parse(strings.TrimSpace(ln.ProductID))
		if err != nil {
			return nil, errors.New("invalid product id")
		}
		if ln.Quantity <= 0 {
			return nil, errors.New("quantity must be positive")
		}
		lines = append(lines, CartLine{ProductID: id, Quantity: ln.Quantity, Price: ln.Price})
	}
	return lines, nil
}

func observeOperation(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	if obs.TierEvaluationsTotal != nil {
		obs.TierEvaluationsTotal.WithLabelValues(operation, result).Inc()
	}
	if obs.EvaluationDuration != nil {
		obs.EvaluationDuration.WithLabelValues(operation).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	}
}
