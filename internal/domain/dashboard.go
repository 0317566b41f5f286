package domain

import "github.com/shopspring/decimal"

// MonthlyPoint is one month of the dashboard series
type MonthlyPoint struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	Deductions decimal.Decimal `json:"deductions"`
	Social     decimal.Decimal `json:"social"`
	Income     decimal.Decimal `json:"income"`
}

// YearTotals sums a year's statements
type YearTotals struct {
	Year           int             `json:"year"`
	StatementCount int             `json:"statementCount"`
	Gross          decimal.Decimal `json:"gross"`
	Net            decimal.Decimal `json:"net"`
	Deductions     decimal.Decimal `json:"deductions"`
	Social         decimal.Decimal `json:"social"`
	AverageNet     decimal.Decimal `json:"averageNet"`
}

// TrendCard compares the latest statement with the one before it
type TrendCard struct {
	Key           string           `json:"key"`
	Label         string           `json:"label"`
	Current       decimal.Decimal  `json:"current"`
	Previous      decimal.Decimal  `json:"previous"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent *decimal.Decimal `json:"changePercent,omitempty"`
}

// DashboardSummary is the aggregated view of a user's year
type DashboardSummary struct {
	Year   int            `json:"year"`
	Series []MonthlyPoint `json:"series"`
	Totals YearTotals     `json:"totals"`
	Trends []TrendCard    `json:"trends"`
}
