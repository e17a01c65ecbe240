package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

// StockKeeper is implemented by *service.InventoryService.
type StockKeeper interface {
	List(ctx context.Context, userID string) ([]model.InventoryRow, error)
	Movements(ctx context.Context, userID, productID string) ([]model.InventoryMovement, error)
	Set(ctx context.Context, userID, productID, variantID string, qty int) (*model.Variant, error)
	Adjust(ctx context.Context, userID, productID, variantID string, delta int) (*model.Variant, error)
}

type InventoryHandler struct {
	Stock StockKeeper
	Log   *zap.Logger
}

func NewInventoryHandler(s StockKeeper, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{Stock: s, Log: log}
}

type setInventoryReq struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Inventory *int   `json:"inventory"`
}

type adjustInventoryReq struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Delta     int    `json:"delta"`
}

func (h *InventoryHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Stock.List(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Set handles PATCH /api/dashboard/inventory.
func (h *InventoryHandler) Set(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req setInventoryReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.Inventory == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id or inventory"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Stock.Set(ctx, uid, req.ProductID, req.VariantID, *req.Inventory)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Inventory updated", "variant": v})
}

// Adjust handles POST /api/dashboard/inventory.
func (h *InventoryHandler) Adjust(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req adjustInventoryReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Stock.Adjust(ctx, uid, req.ProductID, req.VariantID, req.Delta)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Inventory adjusted", "variant": v})
}

func (h *InventoryHandler) Movements(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Stock.Movements(ctx, uid, c.Param("productId"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}
