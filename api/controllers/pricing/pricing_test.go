package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalpricing "github.com/arooba/marketplace-backend/internal/pricing"
)

type envelope[T any] struct {
	Data  T `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newQuoter(t *testing.T, category uuid.UUID) Quoter {
	t.Helper()
	rates := internalpricing.StaticRateTable{
		category: {CategoryID: category, Min: d("0.10"), Default: d("0.20"), Max: d("0.30")},
	}
	svc, err := internalpricing.NewService(internalpricing.NewCalculator(internalpricing.DefaultPolicy()), rates)
	require.NoError(t, err)
	return svc
}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestQuoteReturnsBreakdownAsStrings(t *testing.T) {
	category := uuid.New()
	body := `{"vendor_base_price":"500","category_id":"` + category.String() + `","parent_uplift":{"type":"fixed","value":"30"}}`

	rec := post(Quote(newQuoter(t, category), nil), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp envelope[QuoteResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "689.60", resp.Data.FinalPrice)
	require.Equal(t, "500.00", resp.Data.VendorBasePrice)
	require.Equal(t, "30.00", resp.Data.ParentUplift)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	category := uuid.New()
	handler := Quote(newQuoter(t, category), nil)

	cases := []struct {
		name string
		body string
		code int
	}{
		{name: "missing category", body: `{"vendor_base_price":"10"}`, code: http.StatusBadRequest},
		{name: "three decimals", body: `{"vendor_base_price":"10.005","category_id":"` + category.String() + `"}`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"vendor_base_price":"10","category_id":"` + category.String() + `","extra":1}`, code: http.StatusBadRequest},
		{name: "bad uplift type", body: `{"vendor_base_price":"10","category_id":"` + category.String() + `","parent_uplift":{"type":"weird","value":"1"}}`, code: http.StatusBadRequest},
		{name: "unknown category", body: `{"vendor_base_price":"10","category_id":"` + uuid.NewString() + `"}`, code: http.StatusNotFound},
		{name: "custom rate outside range", body: `{"vendor_base_price":"10","category_id":"` + category.String() + `","custom_category_rate":"0.5"}`, code: http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(handler, tc.body)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestQuoteWithoutServiceIsInternal(t *testing.T) {
	rec := post(Quote(nil, nil), `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeviationUsesDefaultAndOverrideThreshold(t *testing.T) {
	handler := Deviation(internalpricing.DefaultDeviationThreshold, nil)

	rec := post(handler, `{"product_price":"900","category_avg_price":"800"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp envelope[deviationResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "0.1250", resp.Data.Deviation)
	require.False(t, resp.Data.IsFlagged)
	require.Equal(t, internalpricing.DirectionAbove, resp.Data.Direction)

	rec = post(handler, `{"product_price":"900","category_avg_price":"800","threshold":"0.1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = envelope[deviationResponse]{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Data.IsFlagged)
	require.Equal(t, "0.1", resp.Data.Threshold)
}
