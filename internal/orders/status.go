package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

const (
	scopeOrder    = "order"
	scopeShipment = "shipment"
)

// StatusService drives order and shipment transitions and their wallet and stock side effects.
type StatusService interface {
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, reason string) (*StatusUpdateResult, error)
	UpdateShipmentStatus(ctx context.Context, shipmentID uuid.UUID, next enums.OrderStatus, reason string) (*StatusUpdateResult, error)
}

// StatusServiceParams wires the status state machine.
type StatusServiceParams struct {
	Repo    Repository
	DB      txRunner
	Catalog Catalog
	Wallets Wallets
	Outbox  outbox.Emitter
	Metrics *metrics.MarketplaceMetrics
	Logger  *logger.Logger
}

type statusService struct {
	repo    Repository
	tx      txRunner
	catalog Catalog
	wallets Wallets
	outbox  outbox.Emitter
	metrics *metrics.MarketplaceMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewStatusService(params StatusServiceParams) (StatusService, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("product catalog required")
	case params.Wallets == nil:
		return nil, fmt.Errorf("wallet service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &statusService{
		repo:    params.Repo,
		tx:      params.DB,
		catalog: params.Catalog,
		wallets: params.Wallets,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func validateTarget(next enums.OrderStatus) error {
	if !next.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", next)
	}
	if next == enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeValidation, "pending is an initial status only")
	}
	return nil
}

// UpdateOrderStatus moves the order and every shipment not already at next. If any
// shipment cannot legally reach next the whole update is rejected.
func (s *statusService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, reason string) (*StatusUpdateResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateTarget(next); err != nil {
		return nil, err
	}

	var result *StatusUpdateResult
	var moved []models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			if isNotFound(err) {
				return orderNotFound(orderID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if !CanTransition(order.Status, next) {
			return illegalTransition(scopeOrder, order.Status, next)
		}

		shipments, err := repo.ListShipments(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock shipments")
		}
		moved = moved[:0]
		for _, shipment := range shipments {
			if shipment.Status == next {
				continue
			}
			if !CanTransition(shipment.Status, next) {
				return illegalTransition(scopeShipment, shipment.Status, next).
					WithDetails(map[string]any{
						"scope":       scopeShipment,
						"shipment_id": shipment.ID.String(),
						"from":        string(shipment.Status),
						"to":          string(next),
					})
			}
			moved = append(moved, shipment)
		}

		result = &StatusUpdateResult{
			OrderID:        order.ID,
			PreviousStatus: order.Status,
			NewStatus:      next,
			OrderStatus:    next,
		}
		for _, shipment := range moved {
			entries, err := s.moveShipment(ctx, tx, repo, shipment, next, reason, next, now)
			if err != nil {
				return err
			}
			result.LedgerEntries = append(result.LedgerEntries, entries...)
		}

		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates(next, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return s.emitOrderChanged(ctx, tx, order.ID, order.Status, next, reason)
	})
	if err != nil {
		return nil, asTyped(err, "update order status")
	}

	s.metrics.IncStatusTransition(string(next), scopeOrder)
	for range moved {
		s.metrics.IncStatusTransition(string(next), scopeShipment)
	}
	s.logTransition(ctx, result, len(moved))
	return result, nil
}

// UpdateShipmentStatus moves one shipment and re-derives the order status from all of
// its shipments. Cancellation only applies to whole orders.
func (s *statusService) UpdateShipmentStatus(ctx context.Context, shipmentID uuid.UUID, next enums.OrderStatus, reason string) (*StatusUpdateResult, error) {
	if shipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if err := validateTarget(next); err != nil {
		return nil, err
	}
	if next == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation applies to the whole order").
			WithDetails(map[string]any{"scope": scopeShipment, "shipment_id": shipmentID.String()})
	}

	var result *StatusUpdateResult
	orderChanged := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		target, err := s.findShipment(ctx, repo, shipmentID)
		if err != nil {
			return err
		}
		// order row before shipment rows, the same order UpdateOrderStatus locks in
		order, err := repo.LockOrder(ctx, target.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		shipment, err := repo.LockShipment(ctx, shipmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock shipment")
		}
		if !CanTransition(shipment.Status, next) {
			return illegalTransition(scopeShipment, shipment.Status, next)
		}

		shipments, err := repo.ListShipments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock shipments")
		}
		derived := deriveOrderStatus(order.Status, shipments, shipment.ID, next)

		entries, err := s.moveShipment(ctx, tx, repo, *shipment, next, reason, derived, now)
		if err != nil {
			return err
		}
		result = &StatusUpdateResult{
			OrderID:        order.ID,
			ShipmentID:     &shipment.ID,
			PreviousStatus: shipment.Status,
			NewStatus:      next,
			OrderStatus:    derived,
			LedgerEntries:  entries,
		}

		if derived == order.Status {
			return nil
		}
		orderChanged = true
		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates(derived, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return s.emitOrderChanged(ctx, tx, order.ID, order.Status, derived, reason)
	})
	if err != nil {
		return nil, asTyped(err, "update shipment status")
	}

	s.metrics.IncStatusTransition(string(next), scopeShipment)
	if orderChanged {
		s.metrics.IncStatusTransition(string(result.OrderStatus), scopeOrder)
	}
	s.logTransition(ctx, result, 1)
	return result, nil
}

func (s *statusService) findShipment(ctx context.Context, repo Repository, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.FindShipment(ctx, shipmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found").
				WithDetails(map[string]any{"shipment_id": shipmentID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

// deriveOrderStatus returns the order status implied by its shipments after the move.
// Shipments sharing one status hand it to the order. Once every shipment is settled with
// mixed outcomes the order is delivered while any shipment stays delivered, returned when
// only returns and rejections remain, and rejected otherwise.
func deriveOrderStatus(current enums.OrderStatus, shipments []models.Shipment, movedID uuid.UUID, next enums.OrderStatus) enums.OrderStatus {
	seen := make(map[enums.OrderStatus]bool, len(shipments))
	for _, shipment := range shipments {
		status := shipment.Status
		if shipment.ID == movedID {
			status = next
		}
		seen[status] = true
	}
	if len(seen) == 1 {
		for status := range seen {
			return status
		}
	}
	for status := range seen {
		if !IsTerminal(status) {
			return current
		}
	}
	switch {
	case seen[enums.OrderStatusDelivered]:
		return enums.OrderStatusDelivered
	case seen[enums.OrderStatusReturned]:
		return enums.OrderStatusReturned
	case seen[enums.OrderStatusRejectedShipping]:
		return enums.OrderStatusRejectedShipping
	}
	return current
}

// moveShipment applies the status change and its side effects for one shipment.
func (s *statusService) moveShipment(ctx context.Context, tx *gorm.DB, repo Repository, shipment models.Shipment, next enums.OrderStatus, reason string, orderStatus enums.OrderStatus, now time.Time) ([]models.LedgerEntry, error) {
	updates := map[string]any{"status": next}
	if next == enums.OrderStatusDelivered {
		updates["delivered_at"] = now
	}
	if err := repo.UpdateShipment(ctx, shipment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
	}

	var entries []models.LedgerEntry
	if next == enums.OrderStatusDelivered || reversesFunds(next) {
		items, err := repo.ShipmentItems(ctx, shipment.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment items")
		}
		for _, vendorID := range vendorsOf(items) {
			var entry *models.LedgerEntry
			if next == enums.OrderStatusDelivered {
				entry, err = s.wallets.Release(ctx, tx, vendorID, shipment.OrderID, shipment.ID)
			} else {
				entry, err = s.wallets.Reverse(ctx, tx, vendorID, shipment.OrderID, shipment.ID, next)
			}
			if err != nil {
				return nil, err
			}
			if entry != nil {
				entries = append(entries, *entry)
			}
		}
		if reversesFunds(next) {
			if err := s.restoreStock(ctx, tx, items); err != nil {
				return nil, err
			}
		}
	}

	shipmentID := shipment.ID
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventShipmentStatusChanged,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipment.ID,
		Data: payloads.StatusChangedEvent{
			OrderID:        shipment.OrderID,
			ShipmentID:     &shipmentID,
			PreviousStatus: shipment.Status,
			NewStatus:      next,
			OrderStatus:    orderStatus,
			Reason:         reason,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit shipment status event")
	}
	return entries, nil
}

func (s *statusService) restoreStock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		if !item.StockMode.TracksStock() {
			continue
		}
		if err := s.catalog.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if isNotFound(err) {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID.String()), "order.restock_product_missing")
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}
	return nil
}

func (s *statusService) emitOrderChanged(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, previous, next enums.OrderStatus, reason string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data: payloads.StatusChangedEvent{
			OrderID:        orderID,
			PreviousStatus: previous,
			NewStatus:      next,
			OrderStatus:    next,
			Reason:         reason,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
	}
	return nil
}

func (s *statusService) logTransition(ctx context.Context, result *StatusUpdateResult, shipments int) {
	logCtx := s.logg.WithOrderID(ctx, result.OrderID.String())
	if result.ShipmentID != nil {
		logCtx = s.logg.WithShipmentID(logCtx, result.ShipmentID.String())
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"previous_status": string(result.PreviousStatus),
		"new_status":      string(result.NewStatus),
		"order_status":    string(result.OrderStatus),
		"shipments_moved": shipments,
		"ledger_entries":  len(result.LedgerEntries),
	})
	s.logg.Info(logCtx, "order.status_changed")
}

func orderUpdates(status enums.OrderStatus, now time.Time) map[string]any {
	updates := map[string]any{"status": status}
	switch status {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	case enums.OrderStatusReturned:
		updates["returned_at"] = now
	}
	return updates
}

func vendorsOf(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	var vendors []uuid.UUID
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		vendors = append(vendors, item.VendorID)
	}
	return vendors
}
