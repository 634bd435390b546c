package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	internalorders "github.com/arooba/marketplace-backend/internal/orders"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
)

const (
	maxAddressLength = 512
	maxReasonLength  = 256
)

type createOrderRequest struct {
	CustomerID      string             `json:"customer_id" validate:"required,uuid"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
	DeliveryZoneID  string             `json:"delivery_zone_id" validate:"required,uuid"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

// Create places an order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(result.Order, result.Items, result.Shipments, result.Splits))
	}
}

// Detail returns an order with its items, shipments and splits.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, order.Items, order.Shipments, order.Splits))
	}
}

// UpdateStatus moves every shipment of an order to the requested status.
func UpdateStatus(svc internalorders.StatusService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order status service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, reason, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateOrderStatus(r.Context(), orderID, next, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStatusResponse(result))
	}
}

// UpdateShipmentStatus moves one shipment and recomputes its order's status.
func UpdateShipmentStatus(svc internalorders.StatusService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order status service unavailable"))
			return
		}
		shipmentID, err := validators.ParseUUIDParam(r, "shipmentId", "shipment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, reason, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateShipmentStatus(r.Context(), shipmentID, next, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStatusResponse(result))
	}
}

func decodeStatus(r *http.Request) (enums.OrderStatus, string, error) {
	var payload statusRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return "", "", err
	}
	next, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"status": payload.Status})
	}
	return next, validators.SanitizeString(payload.Reason, maxReasonLength), nil
}

func (p createOrderRequest) toInput() (internalorders.CreateOrderInput, error) {
	customerID, err := validators.ParseUUID("customer_id", p.CustomerID)
	if err != nil {
		return internalorders.CreateOrderInput{}, err
	}
	zoneID, err := validators.ParseUUID("delivery_zone_id", p.DeliveryZoneID)
	if err != nil {
		return internalorders.CreateOrderInput{}, err
	}
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(p.PaymentMethod))
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"payment_method": p.PaymentMethod})
	}
	input := internalorders.CreateOrderInput{
		CustomerID:      customerID,
		DeliveryAddress: validators.SanitizeString(p.DeliveryAddress, maxAddressLength),
		DeliveryZoneID:  zoneID,
		PaymentMethod:   method,
		Items:           make([]internalorders.ItemInput, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		productID, err := validators.ParseUUID("product_id", item.ProductID)
		if err != nil {
			return internalorders.CreateOrderInput{}, err
		}
		input.Items = append(input.Items, internalorders.ItemInput{ProductID: productID, Quantity: item.Quantity})
	}
	return input, nil
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
