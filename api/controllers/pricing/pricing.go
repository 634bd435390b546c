package pricing

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	internalpricing "github.com/arooba/marketplace-backend/internal/pricing"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// Quoter prices one product; satisfied by *internalpricing.Service.
type Quoter interface {
	Quote(ctx context.Context, input internalpricing.PricingInput) (internalpricing.PricingResult, error)
}

type upliftRequest struct {
	Type  string `json:"type" validate:"required,oneof=fixed percentage"`
	Value string `json:"value" validate:"required"`
}

type quoteRequest struct {
	VendorBasePrice      string         `json:"vendor_base_price" validate:"required"`
	CategoryID           string         `json:"category_id" validate:"required,uuid"`
	IsVATRegistered      bool           `json:"is_vat_registered"`
	IsLegalized          bool           `json:"is_legalized"`
	ParentUplift         *upliftRequest `json:"parent_uplift,omitempty"`
	CustomUpliftOverride *string        `json:"custom_uplift_override,omitempty"`
	CustomCategoryRate   *string        `json:"custom_category_rate,omitempty"`
}

type deviationRequest struct {
	ProductPrice     string  `json:"product_price" validate:"required"`
	CategoryAvgPrice string  `json:"category_avg_price" validate:"required"`
	Threshold        *string `json:"threshold,omitempty"`
}

// QuoteResponse is the full price breakdown with every amount as a two-place string.
type QuoteResponse struct {
	VendorBasePrice    string `json:"vendor_base_price"`
	CategoryRate       string `json:"category_rate"`
	CooperativeFee     string `json:"cooperative_fee"`
	ParentUplift       string `json:"parent_uplift"`
	PriceAfterCoop     string `json:"price_after_coop"`
	MarketplaceUplift  string `json:"marketplace_uplift"`
	LogisticsSurcharge string `json:"logistics_surcharge"`
	VendorVAT          string `json:"vendor_vat"`
	PlatformVAT        string `json:"platform_vat"`
	BucketA            string `json:"bucket_a"`
	BucketB            string `json:"bucket_b"`
	BucketC            string `json:"bucket_c"`
	BucketD            string `json:"bucket_d"`
	FinalPrice         string `json:"final_price"`
	GrossMargin        string `json:"gross_margin"`
	MarginPercent      string `json:"margin_percent"`
}

type deviationResponse struct {
	Deviation string `json:"deviation"`
	Threshold string `json:"threshold"`
	IsFlagged bool   `json:"is_flagged"`
	Direction string `json:"direction"`
}

// Quote runs the pricing calculator for an ad-hoc product.
func Quote(svc Quoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewQuoteResponse(result))
	}
}

// Deviation compares a price with its category average. The configured threshold
// applies unless the request overrides it.
func Deviation(defaultThreshold decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deviationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := validators.ParseMoney("product_price", payload.ProductPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		avg, err := validators.ParseDecimal("category_avg_price", payload.CategoryAvgPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threshold := defaultThreshold
		if override, err := validators.ParseOptionalDecimal("threshold", payload.Threshold); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if override != nil {
			threshold = *override
		}

		result := internalpricing.CheckPriceDeviation(price, avg, threshold)
		responses.WriteSuccess(w, deviationResponse{
			Deviation: result.Deviation.StringFixed(4),
			Threshold: result.Threshold.String(),
			IsFlagged: result.IsFlagged,
			Direction: result.Direction,
		})
	}
}

func (p quoteRequest) toInput() (internalpricing.PricingInput, error) {
	base, err := validators.ParseMoney("vendor_base_price", p.VendorBasePrice)
	if err != nil {
		return internalpricing.PricingInput{}, err
	}
	categoryID, err := validators.ParseUUID("category_id", p.CategoryID)
	if err != nil {
		return internalpricing.PricingInput{}, err
	}
	input := internalpricing.PricingInput{
		VendorBasePrice: base,
		CategoryID:      categoryID,
		IsVATRegistered: p.IsVATRegistered,
		IsLegalized:     p.IsLegalized,
	}
	if p.ParentUplift != nil {
		value, err := validators.ParseDecimal("parent_uplift.value", p.ParentUplift.Value)
		if err != nil {
			return internalpricing.PricingInput{}, err
		}
		input.ParentUplift = &internalpricing.UpliftRule{Type: enums.UpliftType(p.ParentUplift.Type), Value: value}
	}
	if input.CustomUpliftOverride, err = validators.ParseOptionalDecimal("custom_uplift_override", p.CustomUpliftOverride); err != nil {
		return internalpricing.PricingInput{}, err
	}
	if input.CustomCategoryRate, err = validators.ParseOptionalDecimal("custom_category_rate", p.CustomCategoryRate); err != nil {
		return internalpricing.PricingInput{}, err
	}
	return input, nil
}

// NewQuoteResponse serializes a pricing breakdown.
func NewQuoteResponse(result internalpricing.PricingResult) QuoteResponse {
	return QuoteResponse{
		VendorBasePrice:    money.String(result.VendorBasePrice),
		CategoryRate:       result.CategoryRate.String(),
		CooperativeFee:     money.String(result.CooperativeFee),
		ParentUplift:       money.String(result.ParentUplift),
		PriceAfterCoop:     money.String(result.PriceAfterCoop),
		MarketplaceUplift:  money.String(result.MarketplaceUplift),
		LogisticsSurcharge: money.String(result.LogisticsSurcharge),
		VendorVAT:          money.String(result.VendorVAT),
		PlatformVAT:        money.String(result.PlatformVAT),
		BucketA:            money.String(result.BucketA),
		BucketB:            money.String(result.BucketB),
		BucketC:            money.String(result.BucketC),
		BucketD:            money.String(result.BucketD),
		FinalPrice:         money.String(result.FinalPrice),
		GrossMargin:        money.String(result.GrossMargin),
		MarginPercent:      money.String(result.MarginPercent),
	}
}
