package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalorders "github.com/arooba/marketplace-backend/internal/orders"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

type stubOrdersService struct {
	create func(ctx context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderResult, error)
	get    func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderResult, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.get(ctx, orderID)
}

type stubStatusService struct {
	order    func(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, reason string) (*internalorders.StatusUpdateResult, error)
	shipment func(ctx context.Context, shipmentID uuid.UUID, next enums.OrderStatus, reason string) (*internalorders.StatusUpdateResult, error)
}

func (s *stubStatusService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, reason string) (*internalorders.StatusUpdateResult, error) {
	return s.order(ctx, orderID, next, reason)
}

func (s *stubStatusService) UpdateShipmentStatus(ctx context.Context, shipmentID uuid.UUID, next enums.OrderStatus, reason string) (*internalorders.StatusUpdateResult, error) {
	return s.shipment(ctx, shipmentID, next, reason)
}

func router(svc internalorders.Service, status internalorders.StatusService) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", Create(svc, nil))
	r.Get("/orders/{orderId}", Detail(svc, nil))
	r.Post("/orders/{orderId}/status", UpdateStatus(status, nil))
	r.Post("/shipments/{shipmentId}/status", UpdateShipmentStatus(status, nil))
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCreateOrderMapsRequestAndReturnsCreated(t *testing.T) {
	customer, zone, product := uuid.New(), uuid.New(), uuid.New()
	svc := &stubOrdersService{
		create: func(_ context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderResult, error) {
			require.Equal(t, customer, input.CustomerID)
			require.Equal(t, zone, input.DeliveryZoneID)
			require.Equal(t, enums.PaymentMethodCashOnDelivery, input.PaymentMethod)
			require.Equal(t, "12 Tahrir St, Cairo", input.DeliveryAddress)
			require.Equal(t, []internalorders.ItemInput{{ProductID: product, Quantity: 2}}, input.Items)

			order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-20260301-ABCDEF12", Status: enums.OrderStatusPending, Subtotal: d("1379.2"), DeliveryFee: d("45"), Total: d("1424.2"), Currency: enums.CurrencyEGP}
			shipmentID := uuid.New()
			return &internalorders.OrderResult{
				Order:     order,
				Items:     []models.OrderItem{{ID: uuid.New(), ShipmentID: &shipmentID, ProductID: product, Quantity: 2, UnitPrice: d("689.6"), TotalPrice: d("1379.2")}},
				Shipments: []models.Shipment{{ID: shipmentID, Status: enums.OrderStatusPending, DeliveryFee: d("45"), CODAmountDue: d("1424.2")}},
				Splits:    []models.TransactionSplit{{BucketA: d("1000"), BucketE: d("45"), Total: d("1424.2")}},
			}, nil
		},
	}
	body := `{"customer_id":"` + customer.String() + `","delivery_address":"  12 Tahrir St, Cairo ","delivery_zone_id":"` + zone.String() +
		`","payment_method":"cash_on_delivery","items":[{"product_id":"` + product.String() + `","quantity":2}]}`

	rec := do(router(svc, nil), http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data orderResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "1424.20", resp.Data.Total)
	require.Equal(t, "EGP", resp.Data.Currency)
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, "689.60", resp.Data.Items[0].UnitPrice)
	require.Equal(t, "1424.20", resp.Data.Shipments[0].CODAmountDue)
	require.Equal(t, "45.00", resp.Data.Splits[0].BucketE)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateOrderInput) (*internalorders.OrderResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	base := `"customer_id":"` + uuid.NewString() + `","delivery_address":"x","delivery_zone_id":"` + uuid.NewString() + `"`

	cases := map[string]string{
		"no items":       `{` + base + `,"payment_method":"card","items":[]}`,
		"zero quantity":  `{` + base + `,"payment_method":"card","items":[{"product_id":"` + uuid.NewString() + `","quantity":0}]}`,
		"bad payment":    `{` + base + `,"payment_method":"barter","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`,
		"bad product id": `{` + base + `,"payment_method":"card","items":[{"product_id":"nope","quantity":1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(router(svc, nil), http.MethodPost, "/orders", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateOrderPassesThroughConflict(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateOrderInput) (*internalorders.OrderResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"requested": 3, "available": 1})
		},
	}
	body := `{"customer_id":"` + uuid.NewString() + `","delivery_address":"x","delivery_zone_id":"` + uuid.NewString() +
		`","payment_method":"card","items":[{"product_id":"` + uuid.NewString() + `","quantity":3}]}`

	rec := do(router(svc, nil), http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "CONFLICT", resp.Error.Code)
	require.Equal(t, "insufficient stock", resp.Error.Message)
	require.EqualValues(t, 1, resp.Error.Details["available"])
}

func TestDetailReturnsPreloadedOrder(t *testing.T) {
	id := uuid.New()
	svc := &stubOrdersService{
		get: func(_ context.Context, got uuid.UUID) (*models.Order, error) {
			if got != id {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return &models.Order{ID: id, Total: d("10"), Shipments: []models.Shipment{{ID: uuid.New()}}}, nil
		},
	}
	h := router(svc, nil)

	rec := do(h, http.MethodGet, "/orders/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data orderResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "10.00", resp.Data.Total)
	require.Len(t, resp.Data.Shipments, 1)
	require.Empty(t, resp.Data.Items)

	require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/orders/"+uuid.NewString(), "").Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/orders/123", "").Code)
}

func TestStatusEndpoints(t *testing.T) {
	orderID, shipmentID, vendorID := uuid.New(), uuid.New(), uuid.New()
	status := &stubStatusService{
		order: func(_ context.Context, id uuid.UUID, next enums.OrderStatus, reason string) (*internalorders.StatusUpdateResult, error) {
			require.Equal(t, orderID, id)
			require.Equal(t, "customer changed mind", reason)
			if next != enums.OrderStatusCancelled {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition")
			}
			return &internalorders.StatusUpdateResult{OrderID: id, PreviousStatus: enums.OrderStatusPending, NewStatus: next, OrderStatus: next}, nil
		},
		shipment: func(_ context.Context, id uuid.UUID, next enums.OrderStatus, _ string) (*internalorders.StatusUpdateResult, error) {
			return &internalorders.StatusUpdateResult{
				OrderID:        orderID,
				ShipmentID:     &id,
				PreviousStatus: enums.OrderStatusInTransit,
				NewStatus:      next,
				OrderStatus:    next,
				LedgerEntries: []models.LedgerEntry{{
					ID:              uuid.New(),
					VendorID:        vendorID,
					ShipmentID:      &id,
					TransactionType: enums.LedgerTransactionEscrowRelease,
					BalanceStatus:   enums.BalanceStatusAvailable,
					VendorAmount:    d("1000"),
				}},
			}, nil
		},
	}
	h := router(nil, status)

	rec := do(h, http.MethodPost, "/orders/"+orderID.String()+"/status", `{"status":"cancelled","reason":"customer changed mind"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(h, http.MethodPost, "/orders/"+orderID.String()+"/status", `{"status":"delivered","reason":"customer changed mind"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(h, http.MethodPost, "/orders/"+orderID.String()+"/status", `{"status":"lost"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/shipments/"+shipmentID.String()+"/status", `{"status":"delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data statusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, shipmentID.String(), *resp.Data.ShipmentID)
	require.Equal(t, "delivered", resp.Data.NewStatus)
	require.Len(t, resp.Data.LedgerEntries, 1)
	require.Equal(t, "1000.00", resp.Data.LedgerEntries[0].VendorAmount)
	require.Equal(t, "escrow_release", resp.Data.LedgerEntries[0].TransactionType)
}
