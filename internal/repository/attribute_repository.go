package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

type AttributeRepo struct{ DB *sqlx.DB }

func NewAttributeRepo(db *sqlx.DB) *AttributeRepo { return &AttributeRepo{DB: db} }

const attributeColumns = "id, user_id, name, metrics, created_at, updated_at"

func (r *AttributeRepo) Create(ctx context.Context, a *model.Attribute) error {
	now := time.Now().UTC()
	a.ID, a.CreatedAt, a.UpdatedAt = uuid.NewString(), now, now
	_, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO attributes (id, user_id, name, metrics, created_at, updated_at)
		 VALUES (:id, :user_id, :name, :metrics, :created_at, :updated_at)`, a)
	return translate(err)
}

func (r *AttributeRepo) ListByUser(ctx context.Context, userID string) ([]model.Attribute, error) {
	out := []model.Attribute{}
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+attributeColumns+" FROM attributes WHERE user_id = ? ORDER BY created_at DESC", userID)
	return out, err
}

func (r *AttributeRepo) GetByID(ctx context.Context, userID, id string) (*model.Attribute, error) {
	var a model.Attribute
	err := r.DB.GetContext(ctx, &a,
		"SELECT "+attributeColumns+" FROM attributes WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// Update replaces name and metrics.
func (r *AttributeRepo) Update(ctx context.Context, a *model.Attribute) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.DB.NamedExecContext(ctx,
		`UPDATE attributes SET name = :name, metrics = :metrics, updated_at = :updated_at
		 WHERE id = :id AND user_id = :user_id`, a)
	return affectedOne(res, err)
}

func (r *AttributeRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM attributes WHERE id = ? AND user_id = ?", id, userID)
	return affectedOne(res, err)
}
