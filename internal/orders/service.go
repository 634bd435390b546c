package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/arooba/marketplace-backend/internal/products"
	"github.com/arooba/marketplace-backend/internal/shipping"
	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

// Service assembles orders from product snapshots.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// ServiceParams wires the order assembler.
type ServiceParams struct {
	Repo     Repository
	DB       txRunner
	Catalog  Catalog
	Shipping FeeQuoter
	Wallets  Wallets
	Outbox   outbox.Emitter
	Metrics  *metrics.MarketplaceMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	catalog  Catalog
	shipping FeeQuoter
	wallets  Wallets
	outbox   outbox.Emitter
	metrics  *metrics.MarketplaceMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order assembler with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		catalog:  params.Catalog,
		shipping: params.Shipping,
		wallets:  params.Wallets,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (p ServiceParams) validate() error {
	switch {
	case p.Repo == nil:
		return fmt.Errorf("orders repository required")
	case p.DB == nil:
		return fmt.Errorf("transaction runner required")
	case p.Catalog == nil:
		return fmt.Errorf("product catalog required")
	case p.Shipping == nil:
		return fmt.Errorf("shipping quoter required")
	case p.Wallets == nil:
		return fmt.Errorf("wallet service required")
	case p.Outbox == nil:
		return fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return fmt.Errorf("logger required")
	}
	return nil
}

// plannedShipment is a shipment priced before the write transaction opens.
type plannedShipment struct {
	group      ShipmentGroup
	fromZoneID uuid.UUID
	fee        shipping.ShippingFeeResult
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	lines, err := normalizeCreateInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.checkCustomerAndZone(ctx, input.CustomerID, input.DeliveryZoneID); err != nil {
		return nil, err
	}
	catalog, err := s.loadProducts(ctx, lines, input.DeliveryZoneID)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, snapshotItem(catalog[line.ProductID], line.Quantity))
	}
	plans, err := s.planShipments(ctx, GroupItemsByPickupLocation(items), catalog, input.DeliveryZoneID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := buildOrder(input, plans, now)

	err = s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		result.LedgerEntries = nil
		return s.persistOrder(ctx, tx, result)
	})
	if err != nil {
		return nil, asTyped(err, "create order")
	}

	s.metrics.IncOrderCreated(string(result.Order.PaymentMethod))
	logCtx := s.logg.WithOrderID(ctx, result.Order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number":   result.Order.OrderNumber,
		"shipment_count": len(result.Shipments),
		"total":          money.String(result.Order.Total),
	})
	s.logg.Info(logCtx, "order.created")
	return result, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound(orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// normalizeCreateInput validates the request and merges repeated products, keeping first-seen order.
func normalizeCreateInput(input CreateOrderInput) ([]ItemInput, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.DeliveryZoneID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery zone id required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	index := make(map[uuid.UUID]int, len(input.Items))
	lines := make([]ItemInput, 0, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: product id required", i)
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: quantity must be greater than zero", i).
				WithDetails(map[string]any{"product_id": item.ProductID.String(), "quantity": item.Quantity})
		}
		if pos, ok := index[item.ProductID]; ok {
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}
	return lines, nil
}

func (s *service) checkCustomerAndZone(ctx context.Context, customerID, zoneID uuid.UUID) error {
	ok, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
			WithDetails(map[string]any{"customer_id": customerID.String()})
	}
	if _, err := s.repo.FindZone(ctx, zoneID); err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery zone not found").
				WithDetails(map[string]any{"zone_id": zoneID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zone")
	}
	return nil
}

// loadProducts checks every precondition a product imposes on the order.
func (s *service) loadProducts(ctx context.Context, lines []ItemInput, deliveryZoneID uuid.UUID) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.catalog.FindForOrder(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, line := range lines {
		p, ok := catalog[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		details := map[string]any{"product_id": p.ID.String()}
		if p.Status != enums.ProductStatusActive {
			details["status"] = string(p.Status)
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not active").WithDetails(details)
		}
		if !p.FinalPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "product has not been priced").WithDetails(details)
		}
		if p.PickupLocation == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "product pickup location missing").WithDetails(details)
		}
		if p.StockMode.TracksStock() && p.QuantityAvailable < line.Quantity {
			details["requested"] = line.Quantity
			details["available"] = p.QuantityAvailable
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(details)
		}
		if p.IsLocalOnly && p.PickupLocation.ZoneID != deliveryZoneID {
			details["pickup_zone_id"] = p.PickupLocation.ZoneID.String()
			details["delivery_zone_id"] = deliveryZoneID.String()
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "local-only product cannot ship outside its zone").WithDetails(details)
		}
	}
	return catalog, nil
}

// snapshotItem copies the product's cached pricing; nothing is recomputed here.
func snapshotItem(p models.Product, qty int) models.OrderItem {
	item := models.OrderItem{
		ID:               uuid.New(),
		ProductID:        p.ID,
		VendorID:         p.VendorID,
		PickupLocationID: p.PickupLocationID,
		ProductName:      p.Name,
		Quantity:         qty,
		UnitPrice:        p.FinalPrice,
		TotalPrice:       money.Times(p.FinalPrice, qty),
		UnitWeightKg:     p.WeightKg,
		UnitVolumeCm3:    p.LengthCm.Mul(p.WidthCm).Mul(p.HeightCm),
		UnitBucketA:      p.BucketA,
		UnitBucketB:      p.BucketB,
		UnitBucketC:      p.BucketC,
		UnitBucketD:      p.BucketD,
		StockMode:        p.StockMode,
	}
	if p.Vendor != nil {
		item.ParentVendorID = p.Vendor.ParentVendorID
	}
	return item
}

func (s *service) planShipments(ctx context.Context, groups []ShipmentGroup, catalog map[uuid.UUID]models.Product, deliveryZoneID uuid.UUID) ([]plannedShipment, error) {
	plans := make([]plannedShipment, 0, len(groups))
	for _, group := range groups {
		fromZoneID := catalog[group.Items[0].ProductID].PickupLocation.ZoneID
		fee, err := s.shipping.QuoteParcel(ctx, fromZoneID, deliveryZoneID, group.Parcel())
		if err != nil {
			return nil, err
		}
		plans = append(plans, plannedShipment{group: group, fromZoneID: fromZoneID, fee: fee})
	}
	return plans, nil
}

// buildOrder lays out every row the order writes. Ids are assigned up front so the
// rows can reference one another before insert.
func buildOrder(input CreateOrderInput, plans []plannedShipment, now time.Time) *OrderResult {
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(now),
		CustomerID:      input.CustomerID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		DeliveryZoneID:  input.DeliveryZoneID,
		Currency:        enums.CurrencyEGP,
	}
	result := &OrderResult{Order: order}

	var subtotals, deliveryFees, subsidies []decimal.Decimal
	for _, plan := range plans {
		shipment := models.Shipment{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			PickupLocationID:   plan.group.PickupLocationID,
			FromZoneID:         plan.fromZoneID,
			ToZoneID:           input.DeliveryZoneID,
			TrackingNumber:     newTrackingNumber(now),
			Status:             enums.OrderStatusPending,
			ItemCount:          plan.group.ItemCount(),
			TotalWeightKg:      plan.fee.ActualWeight,
			VolumetricWeightKg: plan.fee.VolumetricWeight,
			ChargeableWeightKg: plan.fee.ChargeableWeight,
			ShippingFee:        plan.fee.TotalFee,
			SubsidyAmount:      plan.fee.SubsidyAmount,
			DeliveryFee:        plan.fee.SubsidizedFee,
		}
		groupSubtotal := plan.group.Subtotal()
		shipment.CODAmountDue = money.Round(groupSubtotal.Add(shipment.DeliveryFee))

		shares := AllocateDeliveryFee(shipment.DeliveryFee, plan.group.Items)
		for i, item := range plan.group.Items {
			item.OrderID = order.ID
			item.ShipmentID = &shipment.ID
			result.Items = append(result.Items, item)
			result.Splits = append(result.Splits, splitFor(item, shipment.ID, shares[i]))
		}

		result.Shipments = append(result.Shipments, shipment)
		subtotals = append(subtotals, groupSubtotal)
		deliveryFees = append(deliveryFees, shipment.DeliveryFee)
		subsidies = append(subsidies, shipment.SubsidyAmount)
	}

	order.Subtotal = money.Sum(subtotals...)
	order.DeliveryFee = money.Sum(deliveryFees...)
	order.SubsidyTotal = money.Sum(subsidies...)
	order.Total = money.Round(order.Subtotal.Add(order.DeliveryFee))
	return result
}

func splitFor(item models.OrderItem, shipmentID uuid.UUID, bucketE decimal.Decimal) models.TransactionSplit {
	split := models.TransactionSplit{
		OrderID:     item.OrderID,
		OrderItemID: item.ID,
		ShipmentID:  shipmentID,
		VendorID:    item.VendorID,
		BucketA:     money.Times(item.UnitBucketA, item.Quantity),
		BucketB:     money.Times(item.UnitBucketB, item.Quantity),
		BucketC:     money.Times(item.UnitBucketC, item.Quantity),
		BucketD:     money.Times(item.UnitBucketD, item.Quantity),
		BucketE:     bucketE,
	}
	split.Total = money.Sum(split.BucketA, split.BucketB, split.BucketC, split.BucketD, split.BucketE)
	return split
}

func (s *service) persistOrder(ctx context.Context, tx *gorm.DB, result *OrderResult) error {
	repo := s.repo.WithTx(tx)
	if err := repo.CreateOrder(ctx, result.Order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}
	if err := repo.CreateShipments(ctx, result.Shipments); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert shipments")
	}

	for _, item := range result.Items {
		if !item.StockMode.TracksStock() {
			continue
		}
		if err := s.catalog.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, product.ErrInsufficientStock) {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": item.ProductID.String(),
						"requested":  item.Quantity,
					})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
	}

	if err := repo.CreateItems(ctx, result.Items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
	}
	if err := repo.CreateSplits(ctx, result.Splits); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transaction splits")
	}

	payouts := make(map[uuid.UUID]decimal.Decimal)
	var vendorOrder []uuid.UUID
	for _, credit := range saleCredits(result) {
		entry, err := s.wallets.CreditPending(ctx, tx, credit)
		if err != nil {
			return err
		}
		result.LedgerEntries = append(result.LedgerEntries, *entry)
		if _, ok := payouts[credit.VendorID]; !ok {
			vendorOrder = append(vendorOrder, credit.VendorID)
		}
		payouts[credit.VendorID] = payouts[credit.VendorID].Add(credit.VendorAmount)
	}

	event := payloads.OrderPlacedEvent{
		OrderID:       result.Order.ID,
		OrderNumber:   result.Order.OrderNumber,
		CustomerID:    result.Order.CustomerID,
		PaymentMethod: result.Order.PaymentMethod,
		Subtotal:      result.Order.Subtotal,
		DeliveryFee:   result.Order.DeliveryFee,
		Total:         result.Order.Total,
	}
	for _, shipment := range result.Shipments {
		event.ShipmentIDs = append(event.ShipmentIDs, shipment.ID)
	}
	for _, vendorID := range vendorOrder {
		event.VendorPayouts = append(event.VendorPayouts, payloads.VendorAmount{VendorID: vendorID, Amount: payouts[vendorID]})
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   result.Order.ID,
		Data:          event,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed event")
	}
	return nil
}

// saleCredits groups item earnings per (vendor, shipment) in first-seen order.
func saleCredits(result *OrderResult) []wallet.SaleCredit {
	type key struct{ vendor, shipment uuid.UUID }
	index := make(map[key]int)
	var credits []wallet.SaleCredit
	for _, item := range result.Items {
		k := key{vendor: item.VendorID, shipment: *item.ShipmentID}
		pos, ok := index[k]
		if !ok {
			pos = len(credits)
			index[k] = pos
			credits = append(credits, wallet.SaleCredit{
				VendorID:         item.VendorID,
				OrderID:          result.Order.ID,
				ShipmentID:       *item.ShipmentID,
				OrderNumber:      result.Order.OrderNumber,
				GrossAmount:      decimal.Zero,
				VendorAmount:     decimal.Zero,
				CommissionAmount: decimal.Zero,
				VATAmount:        decimal.Zero,
			})
		}
		c := &credits[pos]
		c.GrossAmount = c.GrossAmount.Add(item.TotalPrice)
		c.VendorAmount = c.VendorAmount.Add(money.Times(item.UnitBucketA.Add(item.UnitBucketB), item.Quantity))
		c.CommissionAmount = c.CommissionAmount.Add(money.Times(item.UnitBucketC, item.Quantity))
		c.VATAmount = c.VATAmount.Add(money.Times(item.UnitBucketD, item.Quantity))
	}
	return credits
}

func orderNotFound(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID.String()})
}

// asTyped keeps typed errors raised inside a transaction and wraps anything else.
func asTyped(err error, msg string) error {
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
