package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-zaiko/internal/handler"
	"github.com/iliyamo/smart-zaiko/internal/middleware"
)

// Dashboard bundles the handlers mounted under /api/dashboard.
type Dashboard struct {
	Sales     *handler.SaleHandler
	Reports   *handler.ReportHandler
	Inventory *handler.InventoryHandler
	Catalog   *handler.CatalogHandler
}

// RegisterDashboard registers the user-scoped endpoints.  Every route
// requires a session; cache runs after authentication so entries are keyed
// by user.
func RegisterDashboard(e *echo.Echo, d Dashboard, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/api/dashboard", middleware.SessionAuth(jwtSecret), cache)

	// ---- Sales ----
	g.GET("/sales", d.Sales.List)
	g.POST("/sales", d.Sales.Create)
	g.GET("/sales/:id", d.Sales.Get)
	g.DELETE("/sales/:id", d.Sales.Delete)

	// ---- Reports ----
	g.GET("/reports/today-sales", d.Reports.TodaySales)
	g.GET("/reports/daily-sales", d.Reports.DailySales)

	// ---- Inventory ----
	g.GET("/inventory", d.Inventory.List)
	g.PATCH("/inventory", d.Inventory.Set)
	g.POST("/inventory", d.Inventory.Adjust)
	g.GET("/inventory/:productId/movements", d.Inventory.Movements)

	// ---- Categories ----
	g.GET("/categories", d.Catalog.ListCategories)
	g.POST("/categories", d.Catalog.CreateCategory)
	g.GET("/categories/:id", d.Catalog.GetCategory)
	g.PUT("/categories/:id", d.Catalog.RenameCategory)
	g.DELETE("/categories/:id", d.Catalog.DeleteCategory)

	// ---- Attributes ----
	g.GET("/attributes", d.Catalog.ListAttributes)
	g.POST("/attributes", d.Catalog.CreateAttribute)
	g.GET("/attributes/:id", d.Catalog.GetAttribute)
	g.PUT("/attributes/:id", d.Catalog.UpdateAttribute)
	g.DELETE("/attributes/:id", d.Catalog.DeleteAttribute)

	// ---- Products ----
	g.GET("/products", d.Catalog.ListProducts)
	g.POST("/products", d.Catalog.CreateProduct)
	g.GET("/products/:id", d.Catalog.GetProduct)
	g.PUT("/products/:id", d.Catalog.UpdateProduct)
	g.DELETE("/products/:id", d.Catalog.DeleteProduct)
}
