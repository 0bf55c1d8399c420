package analytics

import (
	"testing"

	"balansim/internal/core"
)

func historyLedger(t *testing.T) core.Ledger {
	t.Helper()
	l := core.NewLedger(core.Money{})
	entries := []core.Transaction{
		mk("old", core.Expense, "cat-1", 10, daysAgo(3)),
		mk("new", core.Income, "cat-4", 20, daysAgo(0)),
		mk("mid", core.Expense, "cat-gone", 30, daysAgo(1)),
	}
	entries[0].Note = "Pizza night"
	entries[2].Note = "gift card"
	for _, e := range entries {
		var err error
		if l, err = l.WithTransaction(e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return l
}

func TestHistoryOrderingAndResolution(t *testing.T) {
	got := History(historyLedger(t), HistoryFilter{})
	if len(got) != 3 || got[0].ID != "new" || got[1].ID != "mid" || got[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].KnownCategory || got[1].CategoryName != core.UnknownCategoryName {
		t.Fatalf("dangling reference should resolve to unknown: %+v", got[1])
	}
	if !got[0].KnownCategory || got[0].CategoryName != "Bills" {
		t.Fatalf("unexpected resolution: %+v", got[0])
	}
}

func TestHistoryFilters(t *testing.T) {
	l := historyLedger(t)
	cases := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{"type expense", HistoryFilter{Type: core.Expense}, []string{"mid", "old"}},
		{"type income", HistoryFilter{Type: core.Income}, []string{"new"}},
		{"note search", HistoryFilter{Query: "PIZZA"}, []string{"old"}},
		{"category search", HistoryFilter{Query: "bill"}, []string{"new"}},
		{"unknown category not searchable", HistoryFilter{Query: "unknown"}, []string{}},
		{"combined", HistoryFilter{Query: "card", Type: core.Income}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := History(l, tc.filter)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d entries, want %v", len(got), tc.want)
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("entry %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestRecent(t *testing.T) {
	got := Recent(historyLedger(t), 2)
	if len(got) != 2 || got[0].ID != "new" {
		t.Fatalf("unexpected recent list: %+v", got)
	}
}
