package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/config"
	"github.com/iliyamo/smart-zaiko/internal/handler"
)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestServer() *echo.Echo {
	e := echo.New()
	log := zap.NewNop()
	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "x"}, nil, log), "x", passThrough)
	RegisterDashboard(e, Dashboard{
		Sales:     handler.NewSaleHandler(nil, log),
		Reports:   handler.NewReportHandler(nil, log),
		Inventory: handler.NewInventoryHandler(nil, log),
		Catalog:   handler.NewCatalogHandler(nil, log),
	}, "x", passThrough)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newTestServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /api/auth/signup",
		"POST /api/auth/signin",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"GET /api/dashboard/sales",
		"POST /api/dashboard/sales",
		"GET /api/dashboard/sales/:id",
		"DELETE /api/dashboard/sales/:id",
		"GET /api/dashboard/reports/today-sales",
		"GET /api/dashboard/reports/daily-sales",
		"GET /api/dashboard/inventory",
		"PATCH /api/dashboard/inventory",
		"POST /api/dashboard/inventory",
		"GET /api/dashboard/inventory/:productId/movements",
		"PUT /api/dashboard/categories/:id",
		"PUT /api/dashboard/attributes/:id",
		"DELETE /api/dashboard/products/:id",
	} {
		assert.True(t, have[want], want)
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	e := newTestServer()
	for _, target := range []string{"/api/dashboard/sales", "/api/dashboard/inventory", "/api/auth/me"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
