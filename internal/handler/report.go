package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

// Reporter is implemented by *service.ReportService.
type Reporter interface {
	Today(ctx context.Context, userID string) (*model.DailyReport, error)
	ParseDay(s string) (time.Time, error)
	Daily(ctx context.Context, userID string, day time.Time) (*model.DailyReport, error)
}

type ReportHandler struct {
	Reports Reporter
	Log     *zap.Logger
}

func NewReportHandler(r Reporter, log *zap.Logger) *ReportHandler {
	return &ReportHandler{Reports: r, Log: log}
}

// TodaySales handles GET /api/dashboard/reports/today-sales.
func (h *ReportHandler) TodaySales(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rep, err := h.Reports.Today(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// DailySales handles GET /api/dashboard/reports/daily-sales?date=YYYY-MM-DD.
// Without a date it reports on today.
func (h *ReportHandler) DailySales(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return h.TodaySales(c)
	}
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	day, err := h.Reports.ParseDay(date)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rep, err := h.Reports.Daily(ctx, uid, day)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}
