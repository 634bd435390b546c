package orders

import (
	"time"

	internalorders "github.com/arooba/marketplace-backend/internal/orders"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/money"
)

type orderResponse struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	CustomerID      string             `json:"customer_id"`
	Status          string             `json:"status"`
	PaymentMethod   string             `json:"payment_method"`
	DeliveryAddress string             `json:"delivery_address"`
	DeliveryZoneID  string             `json:"delivery_zone_id"`
	Subtotal        string             `json:"subtotal"`
	DeliveryFee     string             `json:"delivery_fee"`
	SubsidyTotal    string             `json:"subsidy_total"`
	Total           string             `json:"total"`
	Currency        string             `json:"currency"`
	CreatedAt       time.Time          `json:"created_at"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	ReturnedAt      *time.Time         `json:"returned_at,omitempty"`
	Items           []itemResponse     `json:"items"`
	Shipments       []shipmentResponse `json:"shipments"`
	Splits          []splitResponse    `json:"splits"`
}

type itemResponse struct {
	ID          string  `json:"id"`
	ShipmentID  *string `json:"shipment_id,omitempty"`
	ProductID   string  `json:"product_id"`
	VendorID    string  `json:"vendor_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	TotalPrice  string  `json:"total_price"`
	StockMode   string  `json:"stock_mode"`
}

type shipmentResponse struct {
	ID                 string     `json:"id"`
	PickupLocationID   string     `json:"pickup_location_id"`
	FromZoneID         string     `json:"from_zone_id"`
	ToZoneID           string     `json:"to_zone_id"`
	TrackingNumber     string     `json:"tracking_number"`
	Status             string     `json:"status"`
	ItemCount          int        `json:"item_count"`
	TotalWeightKg      string     `json:"total_weight_kg"`
	VolumetricWeightKg string     `json:"volumetric_weight_kg"`
	ChargeableWeightKg string     `json:"chargeable_weight_kg"`
	ShippingFee        string     `json:"shipping_fee"`
	SubsidyAmount      string     `json:"subsidy_amount"`
	DeliveryFee        string     `json:"delivery_fee"`
	CODAmountDue       string     `json:"cod_amount_due"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
}

type splitResponse struct {
	OrderItemID string `json:"order_item_id"`
	ShipmentID  string `json:"shipment_id"`
	VendorID    string `json:"vendor_id"`
	BucketA     string `json:"bucket_a"`
	BucketB     string `json:"bucket_b"`
	BucketC     string `json:"bucket_c"`
	BucketD     string `json:"bucket_d"`
	BucketE     string `json:"bucket_e"`
	Total       string `json:"total"`
}

type ledgerEntryResponse struct {
	ID              string  `json:"id"`
	VendorID        string  `json:"vendor_id"`
	ShipmentID      *string `json:"shipment_id,omitempty"`
	TransactionType string  `json:"transaction_type"`
	BalanceStatus   string  `json:"balance_status"`
	VendorAmount    string  `json:"vendor_amount"`
}

type statusResponse struct {
	OrderID        string                `json:"order_id"`
	ShipmentID     *string               `json:"shipment_id,omitempty"`
	PreviousStatus string                `json:"previous_status"`
	NewStatus      string                `json:"new_status"`
	OrderStatus    string                `json:"order_status"`
	LedgerEntries  []ledgerEntryResponse `json:"ledger_entries"`
}

func newOrderResponse(order *models.Order, items []models.OrderItem, shipments []models.Shipment, splits []models.TransactionSplit) orderResponse {
	resp := orderResponse{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID.String(),
		Status:          string(order.Status),
		PaymentMethod:   string(order.PaymentMethod),
		DeliveryAddress: order.DeliveryAddress,
		DeliveryZoneID:  order.DeliveryZoneID.String(),
		Subtotal:        money.String(order.Subtotal),
		DeliveryFee:     money.String(order.DeliveryFee),
		SubsidyTotal:    money.String(order.SubsidyTotal),
		Total:           money.String(order.Total),
		Currency:        string(order.Currency),
		CreatedAt:       order.CreatedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		ReturnedAt:      order.ReturnedAt,
		Items:           make([]itemResponse, 0, len(items)),
		Shipments:       make([]shipmentResponse, 0, len(shipments)),
		Splits:          make([]splitResponse, 0, len(splits)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          item.ID.String(),
			ShipmentID:  optionalID(item.ShipmentID),
			ProductID:   item.ProductID.String(),
			VendorID:    item.VendorID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money.String(item.UnitPrice),
			TotalPrice:  money.String(item.TotalPrice),
			StockMode:   string(item.StockMode),
		})
	}
	for _, shipment := range shipments {
		resp.Shipments = append(resp.Shipments, shipmentResponse{
			ID:                 shipment.ID.String(),
			PickupLocationID:   shipment.PickupLocationID.String(),
			FromZoneID:         shipment.FromZoneID.String(),
			ToZoneID:           shipment.ToZoneID.String(),
			TrackingNumber:     shipment.TrackingNumber,
			Status:             string(shipment.Status),
			ItemCount:          shipment.ItemCount,
			TotalWeightKg:      shipment.TotalWeightKg.String(),
			VolumetricWeightKg: shipment.VolumetricWeightKg.String(),
			ChargeableWeightKg: shipment.ChargeableWeightKg.String(),
			ShippingFee:        money.String(shipment.ShippingFee),
			SubsidyAmount:      money.String(shipment.SubsidyAmount),
			DeliveryFee:        money.String(shipment.DeliveryFee),
			CODAmountDue:       money.String(shipment.CODAmountDue),
			DeliveredAt:        shipment.DeliveredAt,
		})
	}
	for _, split := range splits {
		resp.Splits = append(resp.Splits, splitResponse{
			OrderItemID: split.OrderItemID.String(),
			ShipmentID:  split.ShipmentID.String(),
			VendorID:    split.VendorID.String(),
			BucketA:     money.String(split.BucketA),
			BucketB:     money.String(split.BucketB),
			BucketC:     money.String(split.BucketC),
			BucketD:     money.String(split.BucketD),
			BucketE:     money.String(split.BucketE),
			Total:       money.String(split.Total),
		})
	}
	return resp
}

func newStatusResponse(result *internalorders.StatusUpdateResult) statusResponse {
	resp := statusResponse{
		OrderID:        result.OrderID.String(),
		ShipmentID:     optionalID(result.ShipmentID),
		PreviousStatus: string(result.PreviousStatus),
		NewStatus:      string(result.NewStatus),
		OrderStatus:    string(result.OrderStatus),
		LedgerEntries:  make([]ledgerEntryResponse, 0, len(result.LedgerEntries)),
	}
	for _, entry := range result.LedgerEntries {
		resp.LedgerEntries = append(resp.LedgerEntries, ledgerEntryResponse{
			ID:              entry.ID.String(),
			VendorID:        entry.VendorID.String(),
			ShipmentID:      optionalID(entry.ShipmentID),
			TransactionType: string(entry.TransactionType),
			BalanceStatus:   string(entry.BalanceStatus),
			VendorAmount:    money.String(entry.VendorAmount),
		})
	}
	return resp
}
