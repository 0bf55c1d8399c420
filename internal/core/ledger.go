package core

import (
	"fmt"
	"time"
)

// Ledger is the persisted document. Values are treated as immutable: every
// With/Without method returns a new Ledger and leaves the receiver untouched.
type Ledger struct {
	StartingBalance Money         `json:"startingBalance"`
	Transactions    []Transaction `json:"transactions"`
	Categories      []Category    `json:"categories"`
}

// NewLedger returns the first-run document.
func NewLedger(startingBalance Money) Ledger {
	return Ledger{
		StartingBalance: startingBalance,
		Transactions:    []Transaction{},
		Categories:      BuiltinCategories(),
	}
}

// SeedExample returns the sample expense added on first run when enabled.
func SeedExample(now time.Time) Transaction {
	return Transaction{
		ID:         "init-1",
		Type:       Expense,
		CategoryID: "cat-1",
		Amount:     FromMajor(1500),
		Note:       "Lunch at a restaurant",
		Date:       now,
	}
}

// Clone deep-copies the slices so the copy can be modified freely.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		StartingBalance: l.StartingBalance,
		Transactions:    make([]Transaction, len(l.Transactions)),
		Categories:      make([]Category, len(l.Categories)),
	}
	copy(out.Transactions, l.Transactions)
	copy(out.Categories, l.Categories)
	return out
}

// Category resolves a soft reference. A miss is a normal outcome, not an error.
func (l Ledger) Category(id string) (Category, bool) {
	for _, c := range l.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryName resolves id to a display name, falling back to UnknownCategoryName.
func (l Ledger) CategoryName(id string) string {
	if c, ok := l.Category(id); ok {
		return c.Name
	}
	return UnknownCategoryName
}

func (l Ledger) Transaction(id string) (Transaction, bool) {
	for _, t := range l.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

func (l Ledger) Totals() Totals {
	return ComputeTotals(l.StartingBalance, l.Transactions)
}

// WithTransaction appends t. The category id is intentionally not checked.
func (l Ledger) WithTransaction(t Transaction) (Ledger, error) {
	if err := t.Validate(); err != nil {
		return l, err
	}
	if _, exists := l.Transaction(t.ID); exists {
		return l, fmt.Errorf("%w: duplicate transaction id %q", ErrValidation, t.ID)
	}
	out := l.Clone()
	out.Transactions = append(out.Transactions, t)
	if err := CheckTotals(out.StartingBalance, out.Transactions); err != nil {
		return l, err
	}
	return out, nil
}

// WithoutTransaction drops the transaction with the given id. The boolean is
// false when nothing matched, in which case the receiver is returned as is.
func (l Ledger) WithoutTransaction(id string) (Ledger, bool) {
	idx := -1
	for i, t := range l.Transactions {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return l, false
	}
	out := Ledger{
		StartingBalance: l.StartingBalance,
		Transactions:    make([]Transaction, 0, len(l.Transactions)-1),
		Categories:      append([]Category(nil), l.Categories...),
	}
	out.Transactions = append(out.Transactions, l.Transactions[:idx]...)
	out.Transactions = append(out.Transactions, l.Transactions[idx+1:]...)
	return out, true
}

// WithCategory appends c at the end of the registry.
func (l Ledger) WithCategory(c Category) (Ledger, error) {
	if err := c.Validate(); err != nil {
		return l, err
	}
	if _, exists := l.Category(c.ID); exists {
		return l, fmt.Errorf("%w: duplicate category id %q", ErrValidation, c.ID)
	}
	out := l.Clone()
	out.Categories = append(out.Categories, c)
	return out, nil
}

// WithoutCategory removes a custom category. Built-ins are rejected with
// ErrBuiltinCategory; unknown ids report false. Transactions are never touched.
func (l Ledger) WithoutCategory(id string) (Ledger, bool, error) {
	if IsBuiltin(id) {
		return l, false, ErrBuiltinCategory
	}
	idx := -1
	for i, c := range l.Categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return l, false, nil
	}
	if !l.Categories[idx].IsCustom {
		return l, false, ErrBuiltinCategory
	}
	out := Ledger{
		StartingBalance: l.StartingBalance,
		Transactions:    append([]Transaction(nil), l.Transactions...),
		Categories:      make([]Category, 0, len(l.Categories)-1),
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	out.Categories = append(out.Categories, l.Categories[:idx]...)
	out.Categories = append(out.Categories, l.Categories[idx+1:]...)
	return out, true, nil
}

// WithStartingBalance replaces the starting balance. Negative values are
// allowed; the result must still pass CheckTotals.
func (l Ledger) WithStartingBalance(m Money) (Ledger, error) {
	if err := CheckTotals(m, l.Transactions); err != nil {
		return l, err
	}
	out := l.Clone()
	out.StartingBalance = m
	return out, nil
}

// Validate checks a loaded document: well-formed entries and unique ids.
func (l Ledger) Validate() error {
	seenCats := make(map[string]struct{}, len(l.Categories))
	for _, c := range l.Categories {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", c.ID, err)
		}
		if _, dup := seenCats[c.ID]; dup {
			return fmt.Errorf("%w: duplicate category id %q", ErrValidation, c.ID)
		}
		seenCats[c.ID] = struct{}{}
	}
	seenTx := make(map[string]struct{}, len(l.Transactions))
	for _, t := range l.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.ID, err)
		}
		if _, dup := seenTx[t.ID]; dup {
			return fmt.Errorf("%w: duplicate transaction id %q", ErrValidation, t.ID)
		}
		seenTx[t.ID] = struct{}{}
	}
	return CheckTotals(l.StartingBalance, l.Transactions)
}

// Normalize replaces nil slices so the document always encodes as arrays.
func (l Ledger) Normalize() Ledger {
	if l.Transactions == nil {
		l.Transactions = []Transaction{}
	}
	if l.Categories == nil {
		l.Categories = []Category{}
	}
	return l
}
