package shipping

import (
	"context"
	"net/http"

	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	internalshipping "github.com/arooba/marketplace-backend/internal/shipping"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// Quoter prices one box; satisfied by *internalshipping.Service.
type Quoter interface {
	Quote(ctx context.Context, input internalshipping.FeeInput) (internalshipping.ShippingFeeResult, error)
}

type quoteRequest struct {
	FromZoneID     string `json:"from_zone_id" validate:"required,uuid"`
	ToZoneID       string `json:"to_zone_id" validate:"required,uuid"`
	ActualWeightKg string `json:"actual_weight_kg" validate:"required"`
	LengthCm       string `json:"length_cm" validate:"required"`
	WidthCm        string `json:"width_cm" validate:"required"`
	HeightCm       string `json:"height_cm" validate:"required"`
}

type quoteResponse struct {
	FromZoneID       string `json:"from_zone_id"`
	ToZoneID         string `json:"to_zone_id"`
	ActualWeight     string `json:"actual_weight_kg"`
	VolumetricWeight string `json:"volumetric_weight_kg"`
	ChargeableWeight string `json:"chargeable_weight_kg"`
	BaseFee          string `json:"base_fee"`
	ExcessWeightFee  string `json:"excess_weight_fee"`
	TotalFee         string `json:"total_fee"`
	SubsidizedFee    string `json:"subsidized_fee"`
	SubsidyAmount    string `json:"subsidy_amount"`
}

// Quote prices a single box between two zones with the active rate card.
func Quote(svc Quoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
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
		responses.WriteSuccess(w, quoteResponse{
			FromZoneID:       result.FromZoneID.String(),
			ToZoneID:         result.ToZoneID.String(),
			ActualWeight:     result.ActualWeight.String(),
			VolumetricWeight: result.VolumetricWeight.String(),
			ChargeableWeight: result.ChargeableWeight.String(),
			BaseFee:          money.String(result.BaseFee),
			ExcessWeightFee:  money.String(result.ExcessWeightFee),
			TotalFee:         money.String(result.TotalFee),
			SubsidizedFee:    money.String(result.SubsidizedFee),
			SubsidyAmount:    money.String(result.SubsidyAmount),
		})
	}
}

func (p quoteRequest) toInput() (internalshipping.FeeInput, error) {
	var (
		input internalshipping.FeeInput
		err   error
	)
	if input.FromZoneID, err = validators.ParseUUID("from_zone_id", p.FromZoneID); err != nil {
		return input, err
	}
	if input.ToZoneID, err = validators.ParseUUID("to_zone_id", p.ToZoneID); err != nil {
		return input, err
	}
	if input.ActualWeightKg, err = validators.ParseDecimal("actual_weight_kg", p.ActualWeightKg); err != nil {
		return input, err
	}
	if input.LengthCm, err = validators.ParseDecimal("length_cm", p.LengthCm); err != nil {
		return input, err
	}
	if input.WidthCm, err = validators.ParseDecimal("width_cm", p.WidthCm); err != nil {
		return input, err
	}
	if input.HeightCm, err = validators.ParseDecimal("height_cm", p.HeightCm); err != nil {
		return input, err
	}
	return input, nil
}
