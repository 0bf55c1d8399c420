package analytics

import (
	"sort"
	"strings"

	"balansim/internal/core"
)

// HistoryFilter narrows the transaction history. An empty Type means all.
type HistoryFilter struct {
	Query string
	Type  core.TransactionType
}

// HistoryEntry is a transaction with its soft category reference resolved.
type HistoryEntry struct {
	core.Transaction
	CategoryName  string `json:"categoryName"`
	CategoryColor string `json:"categoryColor,omitempty"`
	CategoryIcon  string `json:"categoryIcon,omitempty"`
	KnownCategory bool   `json:"knownCategory"`
}

// History returns matching transactions newest first. The query matches the
// note or the category name, case-insensitively.
func History(l core.Ledger, f HistoryFilter) []HistoryEntry {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]HistoryEntry, 0, len(l.Transactions))
	for _, t := range l.Transactions {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		e := resolve(l, t)
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Note), q) &&
			!(e.KnownCategory && strings.Contains(strings.ToLower(e.CategoryName), q)) {
			continue
		}
		out = append(out, e)
	}
	sortNewestFirst(out)
	return out
}

// Recent returns at most n transactions, newest first.
func Recent(l core.Ledger, n int) []HistoryEntry {
	all := History(l, HistoryFilter{})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func resolve(l core.Ledger, t core.Transaction) HistoryEntry {
	e := HistoryEntry{Transaction: t, CategoryName: core.UnknownCategoryName}
	if c, ok := l.Category(t.CategoryID); ok {
		e.CategoryName = c.Name
		e.CategoryColor = c.Color
		e.CategoryIcon = c.Icon
		e.KnownCategory = true
	}
	return e
}

func sortNewestFirst(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}
