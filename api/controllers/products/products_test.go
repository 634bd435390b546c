package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalpricing "github.com/arooba/marketplace-backend/internal/pricing"
	product "github.com/arooba/marketplace-backend/internal/products"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

type stubProductService struct {
	get     func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	reprice func(ctx context.Context, id uuid.UUID) (*product.RepriceResult, error)
}

func (s stubProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.get(ctx, id)
}

func (s stubProductService) Reprice(ctx context.Context, id uuid.UUID) (*product.RepriceResult, error) {
	return s.reprice(ctx, id)
}

func serve(svc product.Service, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/products/{productId}", Get(svc, nil))
	r.Post("/products/{productId}/reprice", Reprice(svc, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRepriceReturnsProductAndBreakdown(t *testing.T) {
	id := uuid.New()
	priced := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := stubProductService{
		reprice: func(_ context.Context, got uuid.UUID) (*product.RepriceResult, error) {
			require.Equal(t, id, got)
			return &product.RepriceResult{
				Product: &models.Product{ID: id, Name: "Khayamiya cushion", FinalPrice: decimal.RequireFromString("689.6"), PricedAt: &priced},
				Pricing: internalpricing.PricingResult{FinalPrice: decimal.RequireFromString("689.6")},
			}, nil
		},
	}

	rec := serve(svc, http.MethodPost, "/products/"+id.String()+"/reprice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data repriceResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "689.60", resp.Data.Product.FinalPrice)
	require.Equal(t, "689.60", resp.Data.Pricing.FinalPrice)
	require.NotNil(t, resp.Data.Product.PricedAt)
}

func TestProductErrors(t *testing.T) {
	svc := stubProductService{
		get: func(context.Context, uuid.UUID) (*models.Product, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		},
	}

	rec := serve(svc, http.MethodGet, "/products/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc, http.MethodGet, "/products/"+uuid.NewString())
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(nil, http.MethodPost, "/products/"+uuid.NewString()+"/reprice")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
