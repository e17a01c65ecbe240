package model

import "github.com/shopspring/decimal"

// ReportLine is a sale enriched with its buying price and profit.
type ReportLine struct {
	Sale
	BuyingPrice decimal.Decimal `json:"buyingPrice"`
	Profit      decimal.Decimal `json:"profit"`
}

type ReportSummary struct {
	TotalOrders int             `json:"totalOrders"`
	TotalQty    int             `json:"totalQty"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
}

// DailyReport covers one calendar day in the report location.
type DailyReport struct {
	Date    string        `json:"date"`
	Sales   []ReportLine  `json:"sales"`
	Summary ReportSummary `json:"summary"`
}
