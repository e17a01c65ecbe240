package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

type CategoryRepo struct{ DB *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Create inserts a category and fills its id and timestamps.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	now := time.Now().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), now, now
	_, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at, updated_at)
		 VALUES (:id, :user_id, :name, :created_at, :updated_at)`, c)
	return translate(err)
}

func (r *CategoryRepo) ListByUser(ctx context.Context, userID string) ([]model.Category, error) {
	out := []model.Category{}
	err := r.DB.SelectContext(ctx, &out,
		"SELECT id, user_id, name, created_at, updated_at FROM categories WHERE user_id = ? ORDER BY name", userID)
	return out, err
}

func (r *CategoryRepo) GetByID(ctx context.Context, userID, id string) (*model.Category, error) {
	var c model.Category
	err := r.DB.GetContext(ctx, &c,
		"SELECT id, user_id, name, created_at, updated_at FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// Rename returns ErrNotFound when the category is missing and ErrDuplicate
// when the new name is taken.
func (r *CategoryRepo) Rename(ctx context.Context, userID, id, name string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		name, time.Now().UTC(), id, userID)
	return affectedOne(res, err)
}

// Delete removes the category; products keep existing with no category.
func (r *CategoryRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	return affectedOne(res, err)
}
