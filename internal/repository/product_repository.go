package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

type ProductRepo struct{ DB *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productSelect = `SELECT p.id, p.user_id, p.name, p.description, p.image, p.category_id,
       c.name AS category_name, p.created_at, p.updated_at
  FROM products p
  LEFT JOIN categories c ON c.id = p.category_id`

const variantColumns = `id, product_id, position, attribute_name, value, sold_as,
       price, buying_price, inventory, tax`

// ProductFilter narrows List.  Page is 1-based; PageSize 0 returns everything.
type ProductFilter struct {
	UserID   string
	Query    string
	Page     int
	PageSize int
}

// likeEscaper makes LIKE wildcards in user input match literally.  MySQL
// escapes with a backslash by default.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// insertVariants writes p.Variants in order.  Variants without an id get a
// new one.
func insertVariants(ctx context.Context, tx *sqlx.Tx, p *model.Product) error {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.ProductID = p.ID
		v.Position = i
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO product_variants (id, product_id, position, attribute_name, value, sold_as,
			        price, buying_price, inventory, tax)
			 VALUES (:id, :product_id, :position, :attribute_name, :value, :sold_as,
			        :price, :buying_price, :inventory, :tax)`, v)
		if err != nil {
			return fmt.Errorf("insert variant %d: %w", i, translate(err))
		}
	}
	return nil
}

// GetByID loads one product with its variants.
func (r *ProductRepo) GetByID(ctx context.Context, userID, id string) (*model.Product, error) {
	var p model.Product
	if err := r.DB.GetContext(ctx, &p, productSelect+" WHERE p.id = ? AND p.user_id = ?", id, userID); err != nil {
		return nil, translate(err)
	}
	byProduct, err := r.variantsFor(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Variants = byProduct[p.ID]
	return &p, nil
}

// List returns one page of products, newest first, and the total count.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	where := " WHERE p.user_id = ?"
	args := []any{f.UserID}
	if f.Query != "" {
		where += " AND p.name LIKE ?"
		args = append(args, "%"+escapeLike(f.Query)+"%")
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM products p"+where, args...); err != nil {
		return nil, 0, err
	}

	query := productSelect + where + " ORDER BY p.created_at DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	items := []model.Product{}
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	byProduct, err := r.variantsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Variants = byProduct[items[i].ID]
	}
	return items, total, nil
}

// Delete removes the product; variants go with it.  Sales keep their snapshots.
func (r *ProductRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = ? AND user_id = ?", id, userID)
	return affectedOne(res, err)
}

// VariantsByProduct bulk-loads the variants of the user's products.
// Products owned by someone else are left out of the map.
func (r *ProductRepo) VariantsByProduct(ctx context.Context, userID string, productIDs []string) (map[string][]model.Variant, error) {
	if len(productIDs) == 0 {
		return map[string][]model.Variant{}, nil
	}
	query, args, err := sqlx.In(`SELECT id FROM products WHERE user_id = ? AND id IN (?)`, userID, productIDs)
	if err != nil {
		return nil, err
	}
	var owned []string
	if err := r.DB.SelectContext(ctx, &owned, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return r.variantsFor(ctx, owned)
}

func (r *ProductRepo) variantsFor(ctx context.Context, productIDs []string) (map[string][]model.Variant, error) {
	out := make(map[string][]model.Variant, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id IN (?) ORDER BY product_id, position",
		productIDs)
	if err != nil {
		return nil, err
	}
	var rows []model.Variant
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, v := range rows {
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, nil
}
