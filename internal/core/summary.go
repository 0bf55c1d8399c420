package core

import "time"

// CategoryAmount represents an expense total attributed to one category.
type CategoryAmount struct {
	CategoryID string  `json:"categoryId"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Value      Money   `json:"value"`
	Share      float64 `json:"share"` // Value / total expense, 0 when there is no expense
}

// DayFlow is one bucket of the daily income/expense trend.
type DayFlow struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Label   string `json:"label"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// DayBalance is one snapshot of the running balance trend.
type DayBalance struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Balance Money  `json:"balance"`
}

// Stats holds the headline ratios of the reports view.
type Stats struct {
	NetSavings       Money   `json:"netSavings"`
	ExpenseRatio     float64 `json:"expenseRatio"` // percent of income spent
	SavingsRate      float64 `json:"savingsRate"`  // percent of income kept
	AverageDaily     Money   `json:"averageDaily"` // expense spread over 30 days
	ProjectedBalance Money   `json:"projectedBalance"`
}

// Report bundles every derived figure for one point in time.
type Report struct {
	GeneratedAt  time.Time        `json:"generatedAt"`
	Totals       Totals           `json:"totals"`
	Breakdown    []CategoryAmount `json:"breakdown"`
	DailyFlow    []DayFlow        `json:"dailyFlow"`
	BalanceTrend []DayBalance     `json:"balanceTrend"`
	Stats        Stats            `json:"stats"`
}
