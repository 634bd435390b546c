package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

// EscrowEntry reports when a delivered shipment's funds become releasable.
type EscrowEntry struct {
	ShipmentID   uuid.UUID
	OrderID      uuid.UUID
	VendorAmount decimal.Decimal
	DeliveredAt  time.Time
	ReleaseDate  time.Time
	IsReleasable bool
	MaturedAt    *time.Time
}

// EscrowFor derives the hold window of a delivered shipment.
func (s *Service) EscrowFor(shipment models.Shipment, now time.Time) (EscrowEntry, error) {
	if shipment.DeliveredAt == nil {
		return EscrowEntry{}, pkgerrors.New(pkgerrors.CodeStateConflict, "shipment has not been delivered").
			WithDetails(map[string]any{"shipment_id": shipment.ID.String(), "status": string(shipment.Status)})
	}
	release := shipment.DeliveredAt.Add(s.holdPeriod)
	return EscrowEntry{
		ShipmentID:   shipment.ID,
		OrderID:      shipment.OrderID,
		VendorAmount: money.Zero,
		DeliveredAt:  *shipment.DeliveredAt,
		ReleaseDate:  release,
		IsReleasable: !now.Before(release),
		MaturedAt:    shipment.EscrowMaturedAt,
	}, nil
}

// ListEscrow lists the vendor's delivered shipments with the vendor's share of each.
func (s *Service) ListEscrow(ctx context.Context, vendorID uuid.UUID, now time.Time) ([]EscrowEntry, error) {
	if err := s.requireVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	shipments, err := s.repo.DeliveredShipmentsForVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivered shipments")
	}
	ids := make([]uuid.UUID, 0, len(shipments))
	for _, shipment := range shipments {
		ids = append(ids, shipment.ID)
	}
	items, err := s.repo.VendorItems(ctx, vendorID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor items")
	}
	amounts := make(map[uuid.UUID]decimal.Decimal, len(shipments))
	for _, item := range items {
		if item.ShipmentID == nil {
			continue
		}
		share := money.Times(item.UnitBucketA.Add(item.UnitBucketB), item.Quantity)
		amounts[*item.ShipmentID] = amounts[*item.ShipmentID].Add(share)
	}

	entries := make([]EscrowEntry, 0, len(shipments))
	for _, shipment := range shipments {
		entry, err := s.EscrowFor(shipment, now)
		if err != nil {
			return nil, err
		}
		entry.VendorAmount = money.Round(amounts[shipment.ID])
		entries = append(entries, entry)
	}
	return entries, nil
}

// SweepResult summarizes one escrow maturity pass.
type SweepResult struct {
	Matured int
	Failed  int
}

// SweepMatured marks delivered shipments whose hold period ended and emits escrow_matured,
// one transaction per shipment. Balances are not touched; release already happened on delivery.
func (s *Service) SweepMatured(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	now = now.UTC()
	candidates, err := s.repo.ListMaturedShipments(ctx, now.Add(-s.holdPeriod), limit)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matured shipments")
	}

	var (
		result SweepResult
		errs   error
	)
	for _, candidate := range candidates {
		matured := false
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			shipment, err := repo.LockUnmaturedShipment(ctx, candidate.ID)
			if err != nil || shipment == nil {
				return err
			}
			if err := s.matureShipment(ctx, tx, repo, *shipment, now); err != nil {
				return err
			}
			matured = true
			return nil
		})
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("shipment %s: %w", candidate.ID, err))
			continue
		}
		if matured {
			result.Matured++
		}
	}
	return result, errs
}

func (s *Service) matureShipment(ctx context.Context, tx *gorm.DB, repo *Repository, shipment models.Shipment, now time.Time) error {
	vendorIDs, err := repo.ShipmentVendorIDs(ctx, shipment.ID)
	if err != nil {
		return err
	}
	if err := repo.MarkEscrowMatured(ctx, shipment.ID, now); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEscrowMatured,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipment.ID,
		Data: payloads.EscrowMaturedEvent{
			ShipmentID:  shipment.ID,
			OrderID:     shipment.OrderID,
			VendorIDs:   vendorIDs,
			DeliveredAt: *shipment.DeliveredAt,
			ReleaseDate: shipment.DeliveredAt.Add(s.holdPeriod),
		},
	})
}
