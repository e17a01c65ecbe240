package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/smart-zaiko/internal/database"
	"github.com/iliyamo/smart-zaiko/internal/model"
)

// StockTx is the set of statements that run inside one stock-changing
// transaction: saving products, recording sales and setting or adjusting
// inventory.
type StockTx interface {
	// LockProduct loads the product and its variants with row locks held
	// until the transaction ends.
	LockProduct(ctx context.Context, userID, productID string) (*model.Product, error)
	InsertProduct(ctx context.Context, p *model.Product) error
	// ReplaceProduct rewrites the product row and its whole variant list.
	ReplaceProduct(ctx context.Context, p *model.Product) error
	// ReserveSaleIDs advances the user's sale sequence by n and returns the
	// first reserved value.
	ReserveSaleIDs(ctx context.Context, userID string, n int) (int64, error)
	InsertSale(ctx context.Context, s *model.Sale) error
	// AdjustInventory adds delta to the variant's stock.  It returns
	// ErrStockConflict when the variant has no inventory or the result
	// would be negative.
	AdjustInventory(ctx context.Context, variantID string, delta int) error
	SetInventory(ctx context.Context, variantID string, qty int) error
	InsertMovement(ctx context.Context, m *model.InventoryMovement) error
}

type StockRepo struct {
	DB   *sqlx.DB
	Opts database.TxOptions
}

func NewStockRepo(db *sqlx.DB) *StockRepo {
	return &StockRepo{DB: db, Opts: database.DefaultTxOptions()}
}

// InTx runs fn in a transaction that is replayed on deadlock or lock wait
// timeout.
func (r *StockRepo) InTx(ctx context.Context, fn func(StockTx) error) error {
	return database.WithRetry(ctx, r.DB, r.Opts, func(tx *sqlx.Tx) error {
		return fn(&stockTx{tx: tx})
	})
}

// ListInventory returns the stock view of every product: the first
// variant's price and inventory with the category name.
func (r *StockRepo) ListInventory(ctx context.Context, userID string) ([]model.InventoryRow, error) {
	out := []model.InventoryRow{}
	err := r.DB.SelectContext(ctx, &out, `
SELECT p.id, p.name, COALESCE(c.name, '-') AS category,
       COALESCE(v.id, '') AS variant_id,
       COALESCE(v.price, 0) AS price,
       COALESCE(v.inventory, 0) AS inventory,
       p.image
  FROM products p
  LEFT JOIN categories c ON c.id = p.category_id
  LEFT JOIN product_variants v ON v.product_id = p.id AND v.position = 0
 WHERE p.user_id = ?
 ORDER BY p.name`, userID)
	return out, err
}

// ListMovements returns the product's stock history, newest first.  It
// returns ErrNotFound when the user has no such product.
func (r *StockRepo) ListMovements(ctx context.Context, userID, productID string) ([]model.InventoryMovement, error) {
	var owned bool
	if err := r.DB.GetContext(ctx, &owned,
		"SELECT EXISTS (SELECT 1 FROM products WHERE id = ? AND user_id = ?)", productID, userID); err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrNotFound
	}

	out := []model.InventoryMovement{}
	err := r.DB.SelectContext(ctx, &out, `
SELECT id, user_id, product_id, variant_id, movement_type, quantity_change,
       quantity_before, quantity_after, reference_id, created_at
  FROM inventory_movements
 WHERE user_id = ? AND product_id = ?
 ORDER BY created_at DESC, id`, userID, productID)
	return out, err
}

type stockTx struct{ tx *sqlx.Tx }

func (s *stockTx) LockProduct(ctx context.Context, userID, productID string) (*model.Product, error) {
	var p model.Product
	err := s.tx.GetContext(ctx, &p, `
SELECT id, user_id, name, description, image, category_id, created_at, updated_at
  FROM products WHERE id = ? AND user_id = ? FOR UPDATE`, productID, userID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.tx.SelectContext(ctx, &p.Variants,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = ? ORDER BY position FOR UPDATE",
		productID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *stockTx) InsertProduct(ctx context.Context, p *model.Product) error {
	_, err := s.tx.NamedExecContext(ctx, `
INSERT INTO products (id, user_id, name, description, image, category_id, created_at, updated_at)
VALUES (:id, :user_id, :name, :description, :image, :category_id, :created_at, :updated_at)`, p)
	if err != nil {
		return translate(err)
	}
	return insertVariants(ctx, s.tx, p)
}

func (s *stockTx) ReplaceProduct(ctx context.Context, p *model.Product) error {
	res, err := s.tx.NamedExecContext(ctx, `
UPDATE products SET name = :name, description = :description, image = :image,
       category_id = :category_id, updated_at = :updated_at
 WHERE id = :id AND user_id = :user_id`, p)
	if err := affectedOne(res, err); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "DELETE FROM product_variants WHERE product_id = ?", p.ID); err != nil {
		return err
	}
	return insertVariants(ctx, s.tx, p)
}

func (s *stockTx) ReserveSaleIDs(ctx context.Context, userID string, n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("reserve sale ids: n must be positive, got %d", n)
	}
	// One statement takes the counter row's exclusive lock straight away.  A
	// missing row is seeded from the user's existing sales.
	if _, err := s.tx.ExecContext(ctx, `
INSERT INTO sale_sequences (user_id, last_sale_id)
SELECT ?, COALESCE(MAX(sale_id), 0) + ? FROM sales WHERE user_id = ?
ON DUPLICATE KEY UPDATE last_sale_id = last_sale_id + ?`, userID, n, userID, n); err != nil {
		return 0, fmt.Errorf("advance sale sequence: %w", err)
	}

	var last int64
	if err := s.tx.GetContext(ctx, &last,
		"SELECT last_sale_id FROM sale_sequences WHERE user_id = ?", userID); err != nil {
		return 0, fmt.Errorf("read sale sequence: %w", err)
	}
	return last - int64(n) + 1, nil
}

func (s *stockTx) InsertSale(ctx context.Context, sale *model.Sale) error {
	_, err := s.tx.NamedExecContext(ctx, `
INSERT INTO sales (id, user_id, sale_id, product_id, variant_id, product_name, price,
                   buying_price, sold_as, quantity, tax, total_price, created_at)
VALUES (:id, :user_id, :sale_id, :product_id, :variant_id, :product_name, :price,
        :buying_price, :sold_as, :quantity, :tax, :total_price, :created_at)`, sale)
	return translate(err)
}

func (s *stockTx) AdjustInventory(ctx context.Context, variantID string, delta int) error {
	res, err := s.tx.ExecContext(ctx, `
UPDATE product_variants SET inventory = inventory + ?
 WHERE id = ? AND inventory IS NOT NULL AND inventory + ? >= 0`, delta, variantID, delta)
	if err := affectedOne(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrStockConflict
		}
		return err
	}
	return nil
}

func (s *stockTx) SetInventory(ctx context.Context, variantID string, qty int) error {
	res, err := s.tx.ExecContext(ctx, "UPDATE product_variants SET inventory = ? WHERE id = ?", qty, variantID)
	return affectedOne(res, err)
}

func (s *stockTx) InsertMovement(ctx context.Context, m *model.InventoryMovement) error {
	_, err := s.tx.NamedExecContext(ctx, `
INSERT INTO inventory_movements (id, user_id, product_id, variant_id, movement_type, quantity_change,
                                 quantity_before, quantity_after, reference_id, created_at)
VALUES (:id, :user_id, :product_id, :variant_id, :movement_type, :quantity_change,
        :quantity_before, :quantity_after, :reference_id, :created_at)`, m)
	return err
}

var _ StockTx = (*stockTx)(nil)
