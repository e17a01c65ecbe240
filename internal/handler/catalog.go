package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
	"github.com/iliyamo/smart-zaiko/internal/repository"
	"github.com/iliyamo/smart-zaiko/internal/service"
)

// Catalog is implemented by *service.CatalogService.
type Catalog interface {
	CreateCategory(ctx context.Context, userID, name string) (*model.Category, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*model.Category, error)
	RenameCategory(ctx context.Context, userID, id, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	CreateAttribute(ctx context.Context, userID, name string, metrics []string) (*model.Attribute, error)
	ListAttributes(ctx context.Context, userID string) ([]model.Attribute, error)
	GetAttribute(ctx context.Context, userID, id string) (*model.Attribute, error)
	UpdateAttribute(ctx context.Context, userID, id, name string, metrics []string) (*model.Attribute, error)
	DeleteAttribute(ctx context.Context, userID, id string) error

	CreateProduct(ctx context.Context, userID string, in service.ProductInput) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error)
	GetProduct(ctx context.Context, userID, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, userID, id string, in service.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, userID, id string) error
}

// CatalogHandler serves categories, attributes and products.
type CatalogHandler struct {
	Catalog Catalog
	Log     *zap.Logger
}

func NewCatalogHandler(cat Catalog, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Log: log}
}

type categoryReq struct {
	Name string `json:"name"`
}

// attributeReq accepts metrics as a JSON array or a comma-separated string.
type attributeReq struct {
	Name    string          `json:"name"`
	Metrics json.RawMessage `json:"metrics"`
}

func (r attributeReq) metrics() ([]string, bool) {
	raw := strings.TrimSpace(string(r.Metrics))
	if raw == "" || raw == "null" {
		return nil, true
	}
	var list []string
	if err := json.Unmarshal(r.Metrics, &list); err == nil {
		return list, true
	}
	var s string
	if err := json.Unmarshal(r.Metrics, &s); err == nil {
		return strings.Split(s, ","), true
	}
	return nil, false
}

// ---- categories ----

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Catalog.CreateCategory(ctx, uid, req.Name)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Catalog.ListCategories(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) GetCategory(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Catalog.GetCategory(ctx, uid, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) RenameCategory(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Catalog.RenameCategory(ctx, uid, c.Param("id"), req.Name)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.DeleteCategory(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted"})
}

// ---- attributes ----

func (h *CatalogHandler) CreateAttribute(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req attributeReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	metrics, ok := req.metrics()
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "metrics must be a list or a comma-separated string"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Catalog.CreateAttribute(ctx, uid, req.Name, metrics)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *CatalogHandler) ListAttributes(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Catalog.ListAttributes(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) GetAttribute(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Catalog.GetAttribute(ctx, uid, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) UpdateAttribute(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req attributeReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	metrics, ok := req.metrics()
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "metrics must be a list or a comma-separated string"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Catalog.UpdateAttribute(ctx, uid, c.Param("id"), req.Name, metrics)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) DeleteAttribute(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.DeleteAttribute(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Attribute deleted"})
}

// ---- products ----

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, uid, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListProducts supports ?q= name search and ?page=&page_size= paging.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	f := repository.ProductFilter{UserID: uid, Query: c.QueryParam("q")}
	if f.Page, err = queryInt(c, "page"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
	}
	if f.PageSize, err = queryInt(c, "page_size"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page_size"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, total, err := h.Catalog.ListProducts(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "page": f.Page, "pageSize": f.PageSize})
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, uid, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.UpdateProduct(ctx, uid, c.Param("id"), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.DeleteProduct(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted"})
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c echo.Context, name string) (int, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
