package core

import "math"

// Totals is the output of the balance calculator.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// ComputeTotals applies balance = startingBalance + Σincome − Σexpense.
// The balance may be negative.
func ComputeTotals(startingBalance Money, transactions []Transaction) Totals {
	var t Totals
	for _, tx := range transactions {
		switch tx.Type {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = startingBalance.Add(t.Income).Sub(t.Expense)
	return t
}

// CheckTotals rejects a starting balance and transaction set whose combined
// magnitude could overflow int64. A ledger that passes keeps every running
// sum in ComputeTotals and the analytics package in range.
func CheckTotals(startingBalance Money, transactions []Transaction) error {
	if err := startingBalance.InRange(); err != nil {
		return err
	}
	sum := startingBalance.Cents
	if sum < 0 {
		sum = -sum
	}
	for _, tx := range transactions {
		if err := tx.Amount.InRange(); err != nil {
			return err
		}
		a := tx.Amount.Cents
		if a < 0 {
			a = -a
		}
		if sum > math.MaxInt64-a {
			return ErrTotalsOverflow
		}
		sum += a
	}
	return nil
}
