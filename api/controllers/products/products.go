package products

import (
	"net/http"
	"time"

	"github.com/arooba/marketplace-backend/api/controllers/pricing"
	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	product "github.com/arooba/marketplace-backend/internal/products"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/money"
)

type productResponse struct {
	ID                string     `json:"id"`
	VendorID          string     `json:"vendor_id"`
	CategoryID        string     `json:"category_id"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	StockMode         string     `json:"stock_mode"`
	IsLocalOnly       bool       `json:"is_local_only"`
	QuantityAvailable int        `json:"quantity_available"`
	CostPrice         string     `json:"cost_price"`
	FinalPrice        string     `json:"final_price"`
	BucketA           string     `json:"bucket_a"`
	BucketB           string     `json:"bucket_b"`
	BucketC           string     `json:"bucket_c"`
	BucketD           string     `json:"bucket_d"`
	PricedAt          *time.Time `json:"priced_at,omitempty"`
}

type repriceResponse struct {
	Product productResponse       `json:"product"`
	Pricing pricing.QuoteResponse `json:"pricing"`
}

// Get returns a product with its cached price breakdown.
func Get(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		found, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(found))
	}
}

// Reprice reruns the pricing calculator for a product and stores the new snapshot.
func Reprice(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Reprice(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, repriceResponse{
			Product: newProductResponse(result.Product),
			Pricing: pricing.NewQuoteResponse(result.Pricing),
		})
	}
}

func newProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:                p.ID.String(),
		VendorID:          p.VendorID.String(),
		CategoryID:        p.CategoryID.String(),
		Name:              p.Name,
		Status:            string(p.Status),
		StockMode:         string(p.StockMode),
		IsLocalOnly:       p.IsLocalOnly,
		QuantityAvailable: p.QuantityAvailable,
		CostPrice:         money.String(p.CostPrice),
		FinalPrice:        money.String(p.FinalPrice),
		BucketA:           money.String(p.BucketA),
		BucketB:           money.String(p.BucketB),
		BucketC:           money.String(p.BucketC),
		BucketD:           money.String(p.BucketD),
		PricedAt:          p.PricedAt,
	}
}
