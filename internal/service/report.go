package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/smart-zaiko/internal/model"
)

// SaleRangeReader loads a user's sales created inside [from, to].
type SaleRangeReader interface {
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Sale, error)
}

// VariantReader bulk-loads variants keyed by product id.
type VariantReader interface {
	VariantsByProduct(ctx context.Context, userID string, productIDs []string) (map[string][]model.Variant, error)
}

const dayLayout = "2006-01-02"

// ReportService builds daily sales and profit reports.  Day boundaries are
// wall-clock midnight in loc.
type ReportService struct {
	sales    SaleRangeReader
	variants VariantReader
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(sales SaleRangeReader, variants VariantReader, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{sales: sales, variants: variants, loc: loc, now: time.Now}
}

// Today reports on the current day.
func (r *ReportService) Today(ctx context.Context, userID string) (*model.DailyReport, error) {
	return r.Daily(ctx, userID, r.now())
}

// ParseDay reads a YYYY-MM-DD date in the report location.
func (r *ReportService) ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, strings.TrimSpace(s), r.loc)
	if err != nil {
		return time.Time{}, newError(ErrInvalidInput, "date must be YYYY-MM-DD")
	}
	return d, nil
}

// DayWindow returns [00:00:00.000, 23:59:59.999] of day in the report location.
func (r *ReportService) DayWindow(day time.Time) (time.Time, time.Time) {
	d := day.In(r.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// Daily loads the day's sales, recovers each line's buying price and sums
// orders, quantity, sales and profit.  Store failures return no partial data.
func (r *ReportService) Daily(ctx context.Context, userID string, day time.Time) (*model.DailyReport, error) {
	start, end := r.DayWindow(day)

	sales, err := r.sales.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}

	var legacy []string
	seen := map[string]bool{}
	for _, s := range sales {
		if !s.BuyingPrice.Valid && !seen[s.ProductID] {
			seen[s.ProductID] = true
			legacy = append(legacy, s.ProductID)
		}
	}
	variants := map[string][]model.Variant{}
	if len(legacy) > 0 {
		variants, err = r.variants.VariantsByProduct(ctx, userID, legacy)
		if err != nil {
			return nil, fmt.Errorf("failed to load daily sales: %w", err)
		}
	}

	report := &model.DailyReport{
		Date:  start.Format(dayLayout),
		Sales: make([]model.ReportLine, 0, len(sales)),
		Summary: model.ReportSummary{
			TotalSales:  decimal.Zero,
			TotalProfit: decimal.Zero,
		},
	}
	for _, s := range sales {
		buying := buyingPriceFor(s, variants[s.ProductID])
		profit := s.Price.Sub(buying).Mul(decimal.NewFromInt(int64(s.Quantity)))

		report.Sales = append(report.Sales, model.ReportLine{Sale: s, BuyingPrice: buying, Profit: profit})
		report.Summary.TotalOrders++
		report.Summary.TotalQty += s.Quantity
		report.Summary.TotalSales = report.Summary.TotalSales.Add(s.TotalPrice)
		report.Summary.TotalProfit = report.Summary.TotalProfit.Add(profit)
	}
	return report, nil
}

// buyingPriceFor prefers the price captured on the sale.  Older sales fall
// back to the product variant sold in the same unit, or zero.
func buyingPriceFor(s model.Sale, variants []model.Variant) decimal.Decimal {
	if s.BuyingPrice.Valid {
		return s.BuyingPrice.Decimal
	}
	want := normalizeUnit(s.SoldAs)
	for _, v := range variants {
		if normalizeUnit(v.SoldAs) == want {
			return v.BuyingPrice
		}
	}
	return decimal.Zero
}

func normalizeUnit(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
