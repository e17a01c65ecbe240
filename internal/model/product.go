package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Units a variant can be sold in.
const (
	SoldAsPiece = "Piece"
	SoldAsPack  = "Pack"
	SoldAsKg    = "Kg"
	SoldAsUnit  = "Unit"
)

// DefaultImage is shown for products without an image.
const DefaultImage = "/images/image.png"

// Product owns an ordered list of variants.  The variant at position 0 is
// the one sold when a sale does not name a variant.
type Product struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"-"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Image        string    `db:"image" json:"image"`
	CategoryID   *string   `db:"category_id" json:"categoryId"`
	CategoryName *string   `db:"category_name" json:"categoryName,omitempty"`
	Variants     []Variant `db:"-" json:"attributes"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Variant is one priced, stocked configuration of a product.
// Inventory is nil when the variant does not track stock; Tax is invalid
// when the variant has no own rate.
type Variant struct {
	ID            string              `db:"id" json:"id"`
	ProductID     string              `db:"product_id" json:"-"`
	Position      int                 `db:"position" json:"-"`
	AttributeName string              `db:"attribute_name" json:"attribute"`
	Value         string              `db:"value" json:"value"`
	SoldAs        string              `db:"sold_as" json:"soldAs"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	BuyingPrice   decimal.Decimal     `db:"buying_price" json:"buyingPrice"`
	Inventory     *int                `db:"inventory" json:"inventory"`
	Tax           decimal.NullDecimal `db:"tax" json:"tax"`
}

// Variant returns the variant with the given id, or the first one when id
// is empty.
func (p *Product) Variant(id string) (*Variant, bool) {
	if len(p.Variants) == 0 {
		return nil, false
	}
	if id == "" {
		return &p.Variants[0], true
	}
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// InventoryRow is the flattened stock view of a product.
type InventoryRow struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	VariantID string          `db:"variant_id" json:"variantId"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Inventory int             `db:"inventory" json:"inventory"`
	Image     string          `db:"image" json:"image"`
}
