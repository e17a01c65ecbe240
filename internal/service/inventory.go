package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
	"github.com/iliyamo/smart-zaiko/internal/repository"
)

// InventoryStore combines the stock transaction with the stock read views.
type InventoryStore interface {
	StockStore
	ListInventory(ctx context.Context, userID string) ([]model.InventoryRow, error)
	ListMovements(ctx context.Context, userID, productID string) ([]model.InventoryMovement, error)
}

// InventoryService changes stock outside of sales: counts and restocks.
type InventoryService struct {
	store InventoryStore
	log   *zap.Logger
	now   func() time.Time
}

func NewInventoryService(store InventoryStore, log *zap.Logger) *InventoryService {
	return &InventoryService{store: store, log: log, now: time.Now}
}

// List returns one stock row per product based on its first variant.
func (s *InventoryService) List(ctx context.Context, userID string) ([]model.InventoryRow, error) {
	return s.store.ListInventory(ctx, userID)
}

// Movements returns the stock history of one product.
func (s *InventoryService) Movements(ctx context.Context, userID, productID string) ([]model.InventoryMovement, error) {
	out, err := s.store.ListMovements(ctx, userID, productID)
	if err != nil {
		return nil, storeError(err, "product")
	}
	return out, nil
}

// setMovement records a stock count moving from before to after outside of
// a sale.
func setMovement(userID, productID, variantID string, before, after int, at time.Time) model.InventoryMovement {
	return model.InventoryMovement{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProductID:      productID,
		VariantID:      variantID,
		MovementType:   model.MovementSet,
		QuantityChange: after - before,
		QuantityBefore: before,
		QuantityAfter:  after,
		CreatedAt:      at,
	}
}

// Set overwrites a variant's stock with an absolute count.
func (s *InventoryService) Set(ctx context.Context, userID, productID, variantID string, qty int) (*model.Variant, error) {
	if strings.TrimSpace(productID) == "" || qty < 0 {
		return nil, newError(ErrInvalidInput, "invalid product id or inventory")
	}
	return s.change(ctx, userID, productID, variantID, func(tx repository.StockTx, p *model.Product, v *model.Variant) (int, string, error) {
		if err := tx.SetInventory(ctx, v.ID, qty); err != nil {
			return 0, "", err
		}
		return qty, model.MovementSet, nil
	})
}

// Adjust adds a signed delta to a variant's stock, e.g. a delivery or a
// write-off.  The result must not go below zero.
func (s *InventoryService) Adjust(ctx context.Context, userID, productID, variantID string, delta int) (*model.Variant, error) {
	if strings.TrimSpace(productID) == "" || delta == 0 {
		return nil, newError(ErrInvalidInput, "invalid product id or delta")
	}
	return s.change(ctx, userID, productID, variantID, func(tx repository.StockTx, p *model.Product, v *model.Variant) (int, string, error) {
		if v.Inventory == nil {
			return 0, "", newError(ErrInvalidState, "inventory not defined for %s", p.Name)
		}
		before := *v.Inventory
		if before+delta < 0 {
			return 0, "", &StockError{Product: p.Name, Available: before}
		}
		if err := tx.AdjustInventory(ctx, v.ID, delta); err != nil {
			if errors.Is(err, repository.ErrStockConflict) {
				return 0, "", &StockError{Product: p.Name, Available: before}
			}
			return 0, "", err
		}
		return before + delta, model.MovementAdjust, nil
	})
}

type stockChange func(tx repository.StockTx, p *model.Product, v *model.Variant) (after int, kind string, err error)

// change locks the product, applies fn to the selected variant and records
// the movement in the same transaction.
func (s *InventoryService) change(ctx context.Context, userID, productID, variantID string, fn stockChange) (*model.Variant, error) {
	var out model.Variant
	err := s.store.InTx(ctx, func(tx repository.StockTx) error {
		p, err := tx.LockProduct(ctx, userID, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "product not found")
		}
		if err != nil {
			return err
		}
		v, ok := p.Variant(variantID)
		if !ok {
			if variantID != "" {
				return newError(ErrNotFound, "variant not found")
			}
			return newError(ErrInvalidState, "product %s has no variants", p.Name)
		}

		before := 0
		if v.Inventory != nil {
			before = *v.Inventory
		}
		after, kind, err := fn(tx, p, v)
		if err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, &model.InventoryMovement{
			ID:             uuid.NewString(),
			UserID:         userID,
			ProductID:      p.ID,
			VariantID:      v.ID,
			MovementType:   kind,
			QuantityChange: after - before,
			QuantityBefore: before,
			QuantityAfter:  after,
			CreatedAt:      s.now().UTC(),
		}); err != nil {
			return err
		}

		out = *v
		out.Inventory = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("inventory changed",
		zap.String("user_id", userID), zap.String("product_id", productID),
		zap.String("variant_id", out.ID), zap.Int("inventory", *out.Inventory))
	return &out, nil
}
