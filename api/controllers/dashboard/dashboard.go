package dashboard

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	internaldashboard "github.com/arooba/marketplace-backend/internal/dashboard"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// Reader serves projected counters; satisfied by *internaldashboard.Projector.
type Reader interface {
	Vendor(ctx context.Context, vendorID uuid.UUID) (internaldashboard.VendorSnapshot, error)
	Platform(ctx context.Context) (internaldashboard.PlatformSnapshot, error)
}

type vendorResponse struct {
	VendorID         string `json:"vendor_id"`
	Orders           int64  `json:"orders"`
	Sales            string `json:"sales"`
	Released         string `json:"released"`
	Reversed         string `json:"reversed"`
	Payouts          string `json:"payouts"`
	MaturedShipments int64  `json:"matured_shipments"`
}

type platformResponse struct {
	Orders       int64  `json:"orders"`
	GMV          string `json:"gmv"`
	DeliveryFees string `json:"delivery_fees"`
}

func Vendor(reader Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard unavailable"))
			return
		}
		vendorID, err := validators.ParseUUIDParam(r, "vendorId", "vendor id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := reader.Vendor(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read vendor dashboard"))
			return
		}
		responses.WriteSuccess(w, vendorResponse{
			VendorID:         snap.VendorID.String(),
			Orders:           snap.Orders,
			Sales:            money.String(snap.Sales),
			Released:         money.String(snap.Released),
			Reversed:         money.String(snap.Reversed),
			Payouts:          money.String(snap.Payouts),
			MaturedShipments: snap.MaturedShipments,
		})
	}
}

func Platform(reader Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard unavailable"))
			return
		}
		snap, err := reader.Platform(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read platform dashboard"))
			return
		}
		responses.WriteSuccess(w, platformResponse{
			Orders:       snap.Orders,
			GMV:          money.String(snap.GMV),
			DeliveryFees: money.String(snap.DeliveryFees),
		})
	}
}
