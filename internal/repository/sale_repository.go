package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

type SaleRepo struct{ DB *sqlx.DB }

func NewSaleRepo(db *sqlx.DB) *SaleRepo { return &SaleRepo{DB: db} }

const saleSelect = `SELECT s.id, s.user_id, s.sale_id, s.product_id, s.variant_id, s.product_name,
       s.price, s.buying_price, s.sold_as, s.quantity, s.tax, s.total_price, s.created_at,
       COALESCE(p.image, '') AS image
  FROM sales s
  LEFT JOIN products p ON p.id = s.product_id`

// ListByUser returns every sale of the user, newest first, with the current
// product image when the product still exists.
func (r *SaleRepo) ListByUser(ctx context.Context, userID string) ([]model.Sale, error) {
	out := []model.Sale{}
	err := r.DB.SelectContext(ctx, &out, saleSelect+" WHERE s.user_id = ? ORDER BY s.created_at DESC, s.sale_id DESC", userID)
	return out, err
}

// ListBetween returns the user's sales with from <= created_at <= to, newest first.
func (r *SaleRepo) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Sale, error) {
	out := []model.Sale{}
	err := r.DB.SelectContext(ctx, &out,
		saleSelect+" WHERE s.user_id = ? AND s.created_at BETWEEN ? AND ? ORDER BY s.created_at DESC, s.sale_id DESC",
		userID, from.UTC(), to.UTC())
	return out, err
}

func (r *SaleRepo) GetByID(ctx context.Context, userID, id string) (*model.Sale, error) {
	var s model.Sale
	if err := r.DB.GetContext(ctx, &s, saleSelect+" WHERE s.id = ? AND s.user_id = ?", id, userID); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Delete removes the sale row only.  Stock is not given back.
func (r *SaleRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sales WHERE id = ? AND user_id = ?", id, userID)
	return affectedOne(res, err)
}
