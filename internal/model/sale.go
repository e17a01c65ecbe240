package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an immutable record of one sold line.  Name, price, unit, tax and
// buying price are copied from the product at the time of sale.
type Sale struct {
	ID          string              `db:"id" json:"id"`
	UserID      string              `db:"user_id" json:"-"`
	SaleID      int64               `db:"sale_id" json:"saleId"`
	ProductID   string              `db:"product_id" json:"productId"`
	VariantID   string              `db:"variant_id" json:"variantId,omitempty"`
	ProductName string              `db:"product_name" json:"productName"`
	Price       decimal.Decimal     `db:"price" json:"price"`
	BuyingPrice decimal.NullDecimal `db:"buying_price" json:"-"`
	SoldAs      string              `db:"sold_as" json:"soldAs"`
	Quantity    int                 `db:"quantity" json:"quantity"`
	Tax         decimal.Decimal     `db:"tax" json:"tax"`
	TotalPrice  decimal.Decimal     `db:"total_price" json:"totalPrice"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
	Image       string              `db:"image" json:"image,omitempty"`
}

// Movement types.
const (
	MovementSale   = "SALE"
	MovementSet    = "SET"
	MovementAdjust = "ADJUST"
)

// InventoryMovement is one append-only stock change.
type InventoryMovement struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"-"`
	ProductID      string    `db:"product_id" json:"productId"`
	VariantID      string    `db:"variant_id" json:"variantId"`
	MovementType   string    `db:"movement_type" json:"type"`
	QuantityChange int       `db:"quantity_change" json:"change"`
	QuantityBefore int       `db:"quantity_before" json:"before"`
	QuantityAfter  int       `db:"quantity_after" json:"after"`
	ReferenceID    *string   `db:"reference_id" json:"referenceId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
