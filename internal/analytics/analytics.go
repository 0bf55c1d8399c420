// Package analytics derives display figures from a ledger document.
//
// Every function here is pure and recomputes from the full transaction set.
// Day bucketing uses the calendar date of each transaction in the supplied
// location; time of day is ignored.
package analytics

import (
	"time"

	"balansim/internal/core"
)

const (
	// DailyFlowDays is the size of the income/expense window, today included.
	DailyFlowDays = 7
	// BalanceTrendDays is how many days before today the running balance walks back.
	BalanceTrendDays = 15
	// averageDays spreads total expense into a daily figure.
	averageDays = 30

	dateLayout = "2006-01-02"
)

// CategoryBreakdown sums EXPENSE amounts per category in registry order.
// Categories without expense are omitted. Expenses pointing at a removed
// category are not attributed to any entry.
func CategoryBreakdown(categories []core.Category, transactions []core.Transaction) []core.CategoryAmount {
	byCategory := make(map[string]int64, len(categories))
	var total int64
	for _, t := range transactions {
		if t.Type != core.Expense {
			continue
		}
		byCategory[t.CategoryID] += t.Amount.Cents
		total += t.Amount.Cents
	}

	out := make([]core.CategoryAmount, 0, len(categories))
	for _, c := range categories {
		sum := byCategory[c.ID]
		if sum <= 0 {
			continue
		}
		share := 0.0
		if total > 0 {
			share = float64(sum) / float64(total)
		}
		out = append(out, core.CategoryAmount{
			CategoryID: c.ID,
			Name:       c.Name,
			Color:      c.Color,
			Value:      core.Money{Cents: sum},
			Share:      share,
		})
	}
	return out
}

// DailyFlow buckets income and expense for the last DailyFlowDays calendar
// days, oldest first, today last.
func DailyFlow(transactions []core.Transaction, now time.Time, loc *time.Location) []core.DayFlow {
	days := window(now, loc, DailyFlowDays-1)
	index := make(map[string]int, len(days))
	out := make([]core.DayFlow, len(days))
	for i, d := range days {
		key := d.Format(dateLayout)
		index[key] = i
		out[i] = core.DayFlow{Date: key, Label: d.Format("Mon")}
	}

	for _, t := range transactions {
		i, ok := index[dayKey(t.Date, loc)]
		if !ok {
			continue
		}
		switch t.Type {
		case core.Income:
			out[i].Income = out[i].Income.Add(t.Amount)
		case core.Expense:
			out[i].Expense = out[i].Expense.Add(t.Amount)
		}
	}
	return out
}

// BalanceTrend walks forward from startingBalance over the last
// BalanceTrendDays days plus today, applying only the transactions dated in
// that window. It yields BalanceTrendDays+1 snapshots, oldest first.
func BalanceTrend(startingBalance core.Money, transactions []core.Transaction, now time.Time, loc *time.Location) []core.DayBalance {
	days := window(now, loc, BalanceTrendDays)

	net := make(map[string]int64, len(days))
	for _, t := range transactions {
		net[dayKey(t.Date, loc)] += t.Signed().Cents
	}

	out := make([]core.DayBalance, len(days))
	running := startingBalance
	for i, d := range days {
		key := d.Format(dateLayout)
		running = running.Add(core.Money{Cents: net[key]})
		out[i] = core.DayBalance{Date: key, Label: d.Format("2 Jan"), Balance: running}
	}
	return out
}

// ComputeStats derives the headline ratios shown next to the trends.
func ComputeStats(startingBalance core.Money, transactions []core.Transaction) core.Stats {
	totals := core.ComputeTotals(startingBalance, transactions)
	net := totals.Income.Sub(totals.Expense)

	s := core.Stats{
		NetSavings:       net,
		AverageDaily:     core.Money{Cents: roundDiv(totals.Expense.Cents, averageDays)},
		ProjectedBalance: startingBalance.Add(net),
	}
	if totals.Income.Cents > 0 {
		s.ExpenseRatio = float64(totals.Expense.Cents) / float64(totals.Income.Cents) * 100
		s.SavingsRate = float64(net.Cents) / float64(totals.Income.Cents) * 100
	}
	return s
}

// BuildReport bundles every derived figure for the dashboard and reports views.
func BuildReport(l core.Ledger, now time.Time, loc *time.Location) core.Report {
	return core.Report{
		GeneratedAt:  now.In(location(loc)),
		Totals:       l.Totals(),
		Breakdown:    CategoryBreakdown(l.Categories, l.Transactions),
		DailyFlow:    DailyFlow(l.Transactions, now, loc),
		BalanceTrend: BalanceTrend(l.StartingBalance, l.Transactions, now, loc),
		Stats:        ComputeStats(l.StartingBalance, l.Transactions),
	}
}

// window returns midnight of each day from back days ago up to today.
func window(now time.Time, loc *time.Location, back int) []time.Time {
	loc = location(loc)
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	days := make([]time.Time, 0, back+1)
	for i := back; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i))
	}
	return days
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(dateLayout)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func roundDiv(a, b int64) int64 {
	if a >= 0 {
		return (a + b/2) / b
	}
	return (a - b/2) / b
}
