package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
	"github.com/iliyamo/smart-zaiko/internal/queue"
	"github.com/iliyamo/smart-zaiko/internal/repository"
)

// StockStore runs stock-changing statements in one transaction.
type StockStore interface {
	InTx(ctx context.Context, fn func(repository.StockTx) error) error
}

// SaleStore reads and deletes recorded sales.
type SaleStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.Sale, error)
	GetByID(ctx context.Context, userID, id string) (*model.Sale, error)
	Delete(ctx context.Context, userID, id string) error
}

// EventPublisher delivers sale events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SaleEvent) error
}

// SaleInput is one line of a sale request.  VariantID selects the variant
// to sell; empty means the product's first variant.  Tax applies only when
// the variant has no tax rate of its own.
type SaleInput struct {
	ProductID string           `json:"productId"`
	VariantID string           `json:"variantId,omitempty"`
	Quantity  int              `json:"quantity"`
	Tax       *decimal.Decimal `json:"tax,omitempty"`
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Largest values the sales and product_variants columns hold.
var (
	MaxPrice = decimal.RequireFromString("999999999999.99")   // DECIMAL(14,2)
	MaxTax   = decimal.RequireFromString("9999.99")           // DECIMAL(6,2)
	maxTotal = decimal.RequireFromString("99999999999999.99") // DECIMAL(16,2)
)

const publishTimeout = 2 * time.Second

type SaleService struct {
	stock  StockStore
	sales  SaleStore
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewSaleService(stock StockStore, sales SaleStore, events EventPublisher, log *zap.Logger) *SaleService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &SaleService{stock: stock, sales: sales, events: events, log: log, now: time.Now}
}

// RecordSale records a single line.
func (s *SaleService) RecordSale(ctx context.Context, userID string, in SaleInput) (*model.Sale, error) {
	sales, err := s.RecordSales(ctx, userID, []SaleInput{in})
	if err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// RecordSales records every line in one transaction.  Lines are applied in
// order, so a product listed twice sees the stock left by the earlier line.
// Any failing line aborts the whole batch.
func (s *SaleService) RecordSales(ctx context.Context, userID string, items []SaleInput) ([]model.Sale, error) {
	if len(items) == 0 {
		return nil, newError(ErrInvalidInput, "invalid or empty sales list")
	}
	for i, it := range items {
		if err := validateSaleInput(it); err != nil {
			if len(items) > 1 {
				return nil, newError(ErrInvalidInput, "item %d: %s", i+1, err.Error())
			}
			return nil, err
		}
	}

	var (
		created []model.Sale
		events  []queue.SaleEvent
	)
	err := s.stock.InTx(ctx, func(tx repository.StockTx) error {
		// The closure may be replayed after a deadlock.
		created, events = created[:0], events[:0]

		// Reserving ids first takes the per-user sequence lock before any
		// product lock, so concurrent batches of one user never deadlock.
		first, err := tx.ReserveSaleIDs(ctx, userID, len(items))
		if err != nil {
			return err
		}
		now := s.now().UTC()

		for i, it := range items {
			sale, remaining, err := s.recordLine(ctx, tx, userID, it, first+int64(i), now)
			if err != nil {
				return err
			}
			created = append(created, *sale)
			events = append(events, saleEvent(queue.EventSaleRecorded, sale, &remaining, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return created, nil
}

func validateSaleInput(it SaleInput) error {
	if strings.TrimSpace(it.ProductID) == "" {
		return newError(ErrInvalidInput, "productId is required")
	}
	if it.Quantity <= 0 {
		return newError(ErrInvalidInput, "quantity must be a positive integer")
	}
	if it.Tax != nil && (it.Tax.IsNegative() || it.Tax.GreaterThan(MaxTax)) {
		return newError(ErrInvalidInput, "tax must be between 0 and %s", MaxTax)
	}
	return nil
}

// recordLine validates stock, prices the line, inserts the sale and takes
// the quantity off the variant.  It returns the stock left afterwards.
func (s *SaleService) recordLine(ctx context.Context, tx repository.StockTx, userID string, it SaleInput, saleID int64, now time.Time) (*model.Sale, int, error) {
	p, err := tx.LockProduct(ctx, userID, it.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, newError(ErrNotFound, "product not found: %s", it.ProductID)
	}
	if err != nil {
		return nil, 0, err
	}

	v, ok := p.Variant(it.VariantID)
	if !ok {
		if it.VariantID != "" {
			return nil, 0, newError(ErrNotFound, "variant %s not found for %s", it.VariantID, p.Name)
		}
		return nil, 0, newError(ErrInvalidState, "inventory not defined for %s", p.Name)
	}
	if v.Inventory == nil {
		return nil, 0, newError(ErrInvalidState, "inventory not defined for %s", p.Name)
	}
	available := *v.Inventory
	if available < it.Quantity {
		return nil, 0, &StockError{Product: p.Name, Available: available}
	}

	sale := priceSale(p, v, it)
	if sale.TotalPrice.GreaterThan(maxTotal) {
		return nil, 0, newError(ErrInvalidInput, "total price for %s is too large", p.Name)
	}
	sale.ID = uuid.NewString()
	sale.UserID = userID
	sale.SaleID = saleID
	sale.CreatedAt = now

	if err := tx.InsertSale(ctx, sale); err != nil {
		return nil, 0, err
	}
	if err := tx.AdjustInventory(ctx, v.ID, -it.Quantity); err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			return nil, 0, &StockError{Product: p.Name, Available: available}
		}
		return nil, 0, err
	}

	remaining := available - it.Quantity
	ref := sale.ID
	if err := tx.InsertMovement(ctx, &model.InventoryMovement{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProductID:      p.ID,
		VariantID:      v.ID,
		MovementType:   model.MovementSale,
		QuantityChange: -it.Quantity,
		QuantityBefore: available,
		QuantityAfter:  remaining,
		ReferenceID:    &ref,
		CreatedAt:      now,
	}); err != nil {
		return nil, 0, err
	}
	return sale, remaining, nil
}

// priceSale snapshots the variant onto a new sale and computes
// totalPrice = price × quantity × (1 + tax/100), rounded to cents.
func priceSale(p *model.Product, v *model.Variant, it SaleInput) *model.Sale {
	soldAs := strings.TrimSpace(v.SoldAs)
	if soldAs == "" {
		soldAs = model.SoldAsUnit
	}

	tax := decimal.Zero
	switch {
	case v.Tax.Valid:
		tax = v.Tax.Decimal
	case it.Tax != nil:
		tax = *it.Tax
	}

	qty := decimal.NewFromInt(int64(it.Quantity))
	total := v.Price.Mul(qty).Mul(one.Add(tax.Div(hundred))).Round(2)

	return &model.Sale{
		ProductID:   p.ID,
		VariantID:   v.ID,
		ProductName: p.Name,
		Price:       v.Price,
		BuyingPrice: decimal.NewNullDecimal(v.BuyingPrice),
		SoldAs:      soldAs,
		Quantity:    it.Quantity,
		Tax:         tax,
		TotalPrice:  total,
	}
}

// ListSales returns the user's sales, newest first.
func (s *SaleService) ListSales(ctx context.Context, userID string) ([]model.Sale, error) {
	sales, err := s.sales.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		if sales[i].Image == "" {
			sales[i].Image = model.DefaultImage
		}
	}
	return sales, nil
}

func (s *SaleService) GetSale(ctx context.Context, userID, id string) (*model.Sale, error) {
	sale, err := s.sales.GetByID(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "sale not found")
	}
	if err != nil {
		return nil, err
	}
	if sale.Image == "" {
		sale.Image = model.DefaultImage
	}
	return sale, nil
}

// DeleteSale removes a sale.  The sold quantity is not returned to stock.
func (s *SaleService) DeleteSale(ctx context.Context, userID, id string) error {
	sale, err := s.GetSale(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.sales.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "sale not found")
		}
		return err
	}
	s.publish(ctx, saleEvent(queue.EventSaleDeleted, sale, nil, s.now().UTC()))
	return nil
}

func saleEvent(kind string, sale *model.Sale, remaining *int, at time.Time) queue.SaleEvent {
	return queue.SaleEvent{
		Type:        kind,
		ID:          sale.ID,
		SaleID:      sale.SaleID,
		UserID:      sale.UserID,
		ProductID:   sale.ProductID,
		ProductName: sale.ProductName,
		VariantID:   sale.VariantID,
		Quantity:    sale.Quantity,
		TotalPrice:  sale.TotalPrice,
		Remaining:   remaining,
		OccurredAt:  at,
	}
}

// publish is best effort: the sale is committed whatever the broker says.
func (s *SaleService) publish(ctx context.Context, events ...queue.SaleEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range events {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("publish sale event failed",
				zap.String("type", ev.Type), zap.String("sale", ev.ID), zap.Error(err))
		}
	}
}
