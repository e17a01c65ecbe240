package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
	"github.com/iliyamo/smart-zaiko/internal/service"
)

// SaleRecorder is implemented by *service.SaleService.
type SaleRecorder interface {
	RecordSale(ctx context.Context, userID string, in service.SaleInput) (*model.Sale, error)
	RecordSales(ctx context.Context, userID string, items []service.SaleInput) ([]model.Sale, error)
	ListSales(ctx context.Context, userID string) ([]model.Sale, error)
	GetSale(ctx context.Context, userID, id string) (*model.Sale, error)
	DeleteSale(ctx context.Context, userID, id string) error
}

type SaleHandler struct {
	Sales SaleRecorder
	Log   *zap.Logger
}

func NewSaleHandler(s SaleRecorder, log *zap.Logger) *SaleHandler {
	return &SaleHandler{Sales: s, Log: log}
}

// saleReq is either a single line or a batch under "items".
type saleReq struct {
	service.SaleInput
	Items *[]service.SaleInput `json:"items"`
}

// Create handles POST /api/dashboard/sales.
func (h *SaleHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req saleReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if req.Items != nil {
		sales, err := h.Sales.RecordSales(ctx, uid, *req.Items)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"message": "Sales added", "sales": sales})
	}

	sale, err := h.Sales.RecordSale(ctx, uid, req.SaleInput)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Sale added", "sale": sale})
}

func (h *SaleHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sales, err := h.Sales.ListSales(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sales)
}

func (h *SaleHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sale, err := h.Sales.GetSale(ctx, uid, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sale)
}

func (h *SaleHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Sales.DeleteSale(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Sale deleted"})
}
