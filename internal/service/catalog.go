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
	"github.com/iliyamo/smart-zaiko/internal/repository"
)

type CategoryStore interface {
	Create(ctx context.Context, c *model.Category) error
	ListByUser(ctx context.Context, userID string) ([]model.Category, error)
	GetByID(ctx context.Context, userID, id string) (*model.Category, error)
	Rename(ctx context.Context, userID, id, name string) error
	Delete(ctx context.Context, userID, id string) error
}

type AttributeStore interface {
	Create(ctx context.Context, a *model.Attribute) error
	ListByUser(ctx context.Context, userID string) ([]model.Attribute, error)
	GetByID(ctx context.Context, userID, id string) (*model.Attribute, error)
	Update(ctx context.Context, a *model.Attribute) error
	Delete(ctx context.Context, userID, id string) error
}

// ProductStore reads and deletes products.  Products are written through
// StockStore, since saving one can change stock.
type ProductStore interface {
	GetByID(ctx context.Context, userID, id string) (*model.Product, error)
	List(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error)
	Delete(ctx context.Context, userID, id string) error
}

// VariantInput describes one variant of a product being created or
// updated.  On update, an ID naming an existing variant of the same product
// keeps that variant and its current inventory; Inventory is then ignored,
// because stock of existing variants only changes through sales and the
// inventory operations.
type VariantInput struct {
	ID          string           `json:"id,omitempty"`
	Attribute   string           `json:"attribute"`
	Value       string           `json:"value"`
	SoldAs      string           `json:"soldAs"`
	Price       decimal.Decimal  `json:"price"`
	BuyingPrice decimal.Decimal  `json:"buyingPrice"`
	Inventory   *int             `json:"inventory"`
	Tax         *decimal.Decimal `json:"tax"`
}

type ProductInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	CategoryID  *string        `json:"categoryId"`
	Variants    []VariantInput `json:"attributes"`
}

// CatalogService manages categories, attribute types and products.
type CatalogService struct {
	categories CategoryStore
	attributes AttributeStore
	products   ProductStore
	stock      StockStore
	log        *zap.Logger
	now        func() time.Time
}

func NewCatalogService(categories CategoryStore, attributes AttributeStore, products ProductStore, stock StockStore, log *zap.Logger) *CatalogService {
	return &CatalogService{
		categories: categories,
		attributes: attributes,
		products:   products,
		stock:      stock,
		log:        log,
		now:        time.Now,
	}
}

// storeError turns repository sentinels into service errors for one kind
// of record.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrConflict, "%s already exists", what)
	}
	return err
}

// ---- categories ----

func (s *CatalogService) CreateCategory(ctx context.Context, userID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "category name is required")
	}
	c := &model.Category{UserID: userID, Name: name}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, storeError(err, "category")
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	return s.categories.ListByUser(ctx, userID)
}

func (s *CatalogService) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	c, err := s.categories.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "category")
	}
	return c, nil
}

func (s *CatalogService) RenameCategory(ctx context.Context, userID, id, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "category name is required")
	}
	if err := s.categories.Rename(ctx, userID, id, name); err != nil {
		return nil, storeError(err, "category")
	}
	return s.GetCategory(ctx, userID, id)
}

// DeleteCategory leaves the category's products uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.categories.Delete(ctx, userID, id); err != nil {
		return storeError(err, "category")
	}
	return nil
}

// ---- attributes ----

// NormalizeMetrics trims every value and drops empty ones.
func NormalizeMetrics(in []string) model.Metrics {
	out := make(model.Metrics, 0, len(in))
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func validateAttribute(name string, metrics model.Metrics) error {
	if name == "" {
		return newError(ErrInvalidInput, "attribute name is required")
	}
	if len(metrics) == 0 {
		return newError(ErrInvalidInput, "at least one metric is required")
	}
	return nil
}

func (s *CatalogService) CreateAttribute(ctx context.Context, userID, name string, metrics []string) (*model.Attribute, error) {
	a := &model.Attribute{UserID: userID, Name: strings.TrimSpace(name), Metrics: NormalizeMetrics(metrics)}
	if err := validateAttribute(a.Name, a.Metrics); err != nil {
		return nil, err
	}
	if err := s.attributes.Create(ctx, a); err != nil {
		return nil, storeError(err, "attribute")
	}
	return a, nil
}

func (s *CatalogService) ListAttributes(ctx context.Context, userID string) ([]model.Attribute, error) {
	return s.attributes.ListByUser(ctx, userID)
}

func (s *CatalogService) GetAttribute(ctx context.Context, userID, id string) (*model.Attribute, error) {
	a, err := s.attributes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "attribute")
	}
	return a, nil
}

func (s *CatalogService) UpdateAttribute(ctx context.Context, userID, id, name string, metrics []string) (*model.Attribute, error) {
	a, err := s.GetAttribute(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	a.Name, a.Metrics = strings.TrimSpace(name), NormalizeMetrics(metrics)
	if err := validateAttribute(a.Name, a.Metrics); err != nil {
		return nil, err
	}
	if err := s.attributes.Update(ctx, a); err != nil {
		return nil, storeError(err, "attribute")
	}
	return a, nil
}

func (s *CatalogService) DeleteAttribute(ctx context.Context, userID, id string) error {
	if err := s.attributes.Delete(ctx, userID, id); err != nil {
		return storeError(err, "attribute")
	}
	return nil
}

// ---- products ----

// NormalizeSoldAs maps a unit case-insensitively onto its canonical
// spelling.  Empty means Unit.
func NormalizeSoldAs(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.SoldAsUnit, true
	}
	for _, u := range []string{model.SoldAsPiece, model.SoldAsPack, model.SoldAsKg, model.SoldAsUnit} {
		if strings.EqualFold(s, u) {
			return u, true
		}
	}
	return "", false
}

// buildVariants validates the input variants.  The result has no ids; see
// reconcileVariants.
func buildVariants(in []VariantInput) ([]model.Variant, error) {
	if len(in) == 0 {
		return nil, newError(ErrInvalidInput, "at least one variant is required")
	}
	out := make([]model.Variant, 0, len(in))
	for i, vi := range in {
		n := i + 1
		soldAs, ok := NormalizeSoldAs(vi.SoldAs)
		if !ok {
			return nil, newError(ErrInvalidInput, "variant %d: soldAs must be one of Piece, Pack, Kg, Unit", n)
		}
		if vi.Price.IsNegative() || vi.BuyingPrice.IsNegative() {
			return nil, newError(ErrInvalidInput, "variant %d: prices must not be negative", n)
		}
		if vi.Price.GreaterThan(MaxPrice) || vi.BuyingPrice.GreaterThan(MaxPrice) {
			return nil, newError(ErrInvalidInput, "variant %d: prices must not exceed %s", n, MaxPrice)
		}
		if vi.Inventory != nil && *vi.Inventory < 0 {
			return nil, newError(ErrInvalidInput, "variant %d: inventory must not be negative", n)
		}
		v := model.Variant{
			AttributeName: strings.TrimSpace(vi.Attribute),
			Value:         strings.TrimSpace(vi.Value),
			SoldAs:        soldAs,
			Price:         vi.Price,
			BuyingPrice:   vi.BuyingPrice,
			Inventory:     vi.Inventory,
		}
		if vi.Tax != nil {
			if vi.Tax.IsNegative() || vi.Tax.GreaterThan(MaxTax) {
				return nil, newError(ErrInvalidInput, "variant %d: tax must be between 0 and %s", n, MaxTax)
			}
			v.Tax = decimal.NewNullDecimal(*vi.Tax)
		}
		out = append(out, v)
	}
	return out, nil
}

// buildProduct validates the input and checks the category belongs to the user.
func (s *CatalogService) buildProduct(ctx context.Context, userID string, in ProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "product name is required")
	}
	variants, err := buildVariants(in.Variants)
	if err != nil {
		return nil, err
	}
	p := &model.Product{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		Variants:    variants,
	}
	if p.Image == "" {
		p.Image = model.DefaultImage
	}
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != "" {
		id := strings.TrimSpace(*in.CategoryID)
		c, err := s.categories.GetByID(ctx, userID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrInvalidInput, "category not found: %s", id)
		}
		if err != nil {
			return nil, err
		}
		p.CategoryID, p.CategoryName = &c.ID, &c.Name
	}
	return p, nil
}

// reconcileVariants matches the built variants against the product's
// current ones.  built[i] must come from in[i].  A variant whose input id
// names a current variant keeps that id and its stock; any other variant
// is new and gets a fresh id.  It returns the final list and the SET
// movements for new stock and for stock dropped with removed variants.
func reconcileVariants(userID, productID string, current []model.Variant, in []VariantInput, built []model.Variant, at time.Time) ([]model.Variant, []model.InventoryMovement) {
	existing := make(map[string]model.Variant, len(current))
	for _, v := range current {
		existing[v.ID] = v
	}

	out := make([]model.Variant, len(built))
	var moves []model.InventoryMovement
	for i, v := range built {
		if old, ok := existing[in[i].ID]; ok {
			delete(existing, old.ID) // an id is reused once
			v.ID, v.Inventory = old.ID, old.Inventory
		} else {
			v.ID = uuid.NewString()
			if v.Inventory != nil && *v.Inventory != 0 {
				moves = append(moves, setMovement(userID, productID, v.ID, 0, *v.Inventory, at))
			}
		}
		out[i] = v
	}
	for _, old := range current {
		if _, removed := existing[old.ID]; removed && old.Inventory != nil && *old.Inventory != 0 {
			moves = append(moves, setMovement(userID, productID, old.ID, *old.Inventory, 0, at))
		}
	}
	return out, moves
}

// saveProduct writes the draft and its movements in one stock transaction.
// With replace set, the stored product is locked first and its variants
// are reconciled against the draft; otherwise the draft is inserted.
func (s *CatalogService) saveProduct(ctx context.Context, userID string, draft *model.Product, in []VariantInput, replace bool) (*model.Product, error) {
	var out model.Product
	err := s.stock.InTx(ctx, func(tx repository.StockTx) error {
		p := *draft
		now := s.now().UTC()
		p.UpdatedAt = now

		var current []model.Variant
		if replace {
			locked, err := tx.LockProduct(ctx, userID, draft.ID)
			if err != nil {
				return storeError(err, "product")
			}
			current, p.CreatedAt = locked.Variants, locked.CreatedAt
		} else {
			p.CreatedAt = now
		}

		var moves []model.InventoryMovement
		p.Variants, moves = reconcileVariants(userID, p.ID, current, in, draft.Variants, now)

		save := tx.InsertProduct
		if replace {
			save = tx.ReplaceProduct
		}
		if err := save(ctx, &p); err != nil {
			return storeError(err, "product")
		}
		for i := range moves {
			if err := tx.InsertMovement(ctx, &moves[i]); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, userID string, in ProductInput) (*model.Product, error) {
	draft, err := s.buildProduct(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	draft.ID = uuid.NewString()
	p, err := s.saveProduct(ctx, userID, draft, in.Variants, false)
	if err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("user_id", userID), zap.String("product_id", p.ID))
	return p, nil
}

// UpdateProduct rewrites the product and replaces its variant list under
// the product's row lock, so it cannot race a sale.
func (s *CatalogService) UpdateProduct(ctx context.Context, userID, id string, in ProductInput) (*model.Product, error) {
	draft, err := s.buildProduct(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	draft.ID = id
	return s.saveProduct(ctx, userID, draft, in.Variants, true)
}

func (s *CatalogService) GetProduct(ctx context.Context, userID, id string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "product")
	}
	return p, nil
}

// ListProducts returns one page and the total number of matches.
func (s *CatalogService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	if f.Page < 0 || f.PageSize < 0 {
		return nil, 0, newError(ErrInvalidInput, "page and page_size must not be negative")
	}
	f.Query = strings.TrimSpace(f.Query)
	return s.products.List(ctx, f)
}

// DeleteProduct removes the product and its variants.  Recorded sales keep
// their snapshot of it.
func (s *CatalogService) DeleteProduct(ctx context.Context, userID, id string) error {
	if err := s.products.Delete(ctx, userID, id); err != nil {
		return storeError(err, "product")
	}
	return nil
}
