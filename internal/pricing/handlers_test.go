package pricing_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-api/internal/catalog"
	"github.com/noah-isme/pricing-api/internal/pricing"
)

func newRouter(stub *stubCatalog) *chi.Mux {
	eval := newEvaluator()
	selector := pricing.Selector{Eval: eval}
	h := &pricing.Handler{
		Processor: &pricing.Processor{Lists: stub, Prices: stub, Selector: selector},
		Progress:  &pricing.ProgressCalculator{Lists: stub, Prices: stub, Eval: eval},
		Savings:   &pricing.SavingsCalculator{Lists: stub, Prices: stub, Selector: selector},
		Prices:    stub,
	}

	r := chi.NewRouter()
	r.Route("/api/v1/orgs/{orgID}/pricing", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)
		r.Post("/progress", h.ProgressReport)
		r.Post("/savings", h.SavingsReport)
		r.Get("/price", h.Price)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateEndpoint(t *testing.T) {
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

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":3}],"cart":{"items":[]}}`, productID)
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+orgID.String()+"/pricing/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Items []struct {
				ProductID   uuid.UUID `json:"productId"`
				Quantity    int       `json:"quantity"`
				Price       string    `json:"price"`
				PriceListID uuid.UUID `json:"priceListId"`
			} `json:"items"`
			AppliedPriceList     pricing.AppliedPriceList `json:"appliedPriceList"`
			ShouldUpdateAllItems bool                     `json:"shouldUpdateAllItems"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 1)
	require.Equal(t, productID, envelope.Data.Items[0].ProductID)
	require.Equal(t, "80", envelope.Data.Items[0].Price)
	require.Equal(t, tier.ID, envelope.Data.Items[0].PriceListID)
	require.Equal(t, "Wholesale", envelope.Data.AppliedPriceList.Name)
	require.False(t, envelope.Data.ShouldUpdateAllItems)
}

func TestEvaluateEndpointRejectsBadOrgID(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newRouter(&stubCatalog{}), http.MethodPost,
		"/api/v1/orgs/not-a-uuid/pricing/evaluate", `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestEvaluateEndpointMissingDefaultList(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{lists: []catalog.PriceList{{
		ID: uuid.New(), Name: "Wholesale", Status: catalog.StatusActive,
	}}}
	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, uuid.New())
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+uuid.New().String()+"/pricing/evaluate", body)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestEvaluateEndpointMissingDefaultPrice(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{lists: []catalog.PriceList{defaultPriceList(uuid.New())}}
	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, uuid.New())
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+uuid.New().String()+"/pricing/evaluate", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "NO_DEFAULT_PRICE")
}

func TestEvaluateEndpointRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":0}]}`, uuid.New())
	rec := doJSON(t, newRouter(&stubCatalog{}), http.MethodPost,
		"/api/v1/orgs/"+uuid.New().String()+"/pricing/evaluate", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "quantity must be positive")
}

func TestEvaluateEndpointInternalError(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{listErr: errors.New("connection refused")}
	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, uuid.New())
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+uuid.New().String()+"/pricing/evaluate", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL")
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestProgressEndpointWarnsOnPricelessLines(t *testing.T) {
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
		rows:  []catalog.ProductPrice{price(productID, def.ID, "100")},
	}

	var logBuf bytes.Buffer
	h := &pricing.Handler{
		Progress: &pricing.ProgressCalculator{Lists: stub, Prices: stub, Eval: newEvaluator()},
		Logger:   zerolog.New(&logBuf),
	}
	r := chi.NewRouter()
	r.Post("/api/v1/orgs/{orgID}/pricing/progress", h.ProgressReport)

	body := fmt.Sprintf(`{"cart":{"items":[{"productId":%q,"quantity":3}]}}`, productID)
	rec := doJSON(t, r, http.MethodPost,
		"/api/v1/orgs/"+orgID.String()+"/pricing/progress", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, logBuf.String(), "without prices")
}

func TestProgressEndpoint(t *testing.T) {
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

	body := fmt.Sprintf(`{"cart":{"items":[{"productId":%q,"quantity":3,"price":"100"}]}}`, productID)
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+orgID.String()+"/pricing/progress", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []pricing.ListProgress `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "Wholesale", envelope.Data[0].PriceListName)
	require.Len(t, envelope.Data[0].Conditions, 1)
	require.InDelta(t, 60, envelope.Data[0].Conditions[0].Progress, 0.01)
	require.NotNil(t, envelope.Data[0].PotentialSavings)
}

func TestSavingsEndpoint(t *testing.T) {
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

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":3}]}`, productID)
	rec := doJSON(t, newRouter(stub), http.MethodPost,
		"/api/v1/orgs/"+orgID.String()+"/pricing/savings", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data pricing.SavingsReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Applied)
	require.Equal(t, "Wholesale", envelope.Data.Applied.Name)
	require.True(t, envelope.Data.Savings.Equal(dec("60")))
}

func TestPriceEndpoint(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	productID := uuid.New()
	listID := uuid.New()
	stub := &stubCatalog{rows: []catalog.ProductPrice{price(productID, listID, "42.50")}}

	path := fmt.Sprintf("/api/v1/orgs/%s/pricing/price?productId=%s&priceListId=%s",
		orgID, productID, listID)
	rec := doJSON(t, newRouter(stub), http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "42.5")

	missing := fmt.Sprintf("/api/v1/orgs/%s/pricing/price?productId=%s&priceListId=%s",
		orgID, uuid.New(), listID)
	rec = doJSON(t, newRouter(stub), http.MethodGet, missing, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}
