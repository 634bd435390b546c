package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
)

// Inventory exposes product reads and stock mutations to callers that own the transaction.
type Inventory struct {
	repo *Repository
}

func NewInventory(repo *Repository) *Inventory {
	return &Inventory{repo: repo}
}

func (i *Inventory) FindForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return i.repo.FindForOrder(ctx, ids)
}

// DecrementStock reserves qty units inside tx. ErrInsufficientStock means the row no longer has enough.
func (i *Inventory) DecrementStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return i.repo.WithTx(tx).DecrementStock(ctx, productID, qty)
}

func (i *Inventory) RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return i.repo.WithTx(tx).RestoreStock(ctx, productID, qty)
}
