// Package advice produces a short natural-language comment on the current
// totals. The remote call is strictly best effort: every failure turns into
// a fixed fallback text and never reaches the ledger.
package advice

import (
	"context"
	"fmt"

	"balansim/internal/core"
)

// Fixed texts shown instead of generated advice.
const (
	MissingKeyAdvice  = "An API key is required for AI analysis."
	UnavailableAdvice = "Advice is not available right now."
	DefaultAdvice     = "Your finances are in great shape."
	PendingAdvice     = "Analyzing your data..."
)

// Summary is everything the advice service is told about the ledger.
type Summary struct {
	Income           core.Money `json:"income"`
	Expense          core.Money `json:"expense"`
	TransactionCount int        `json:"transactionCount"`
	Balance          core.Money `json:"balance"`
}

// Summarize reduces a ledger to the figures sent for advice.
func Summarize(l core.Ledger) Summary {
	t := l.Totals()
	return Summary{
		Income:           t.Income,
		Expense:          t.Expense,
		TransactionCount: len(l.Transactions),
		Balance:          t.Balance,
	}
}

// Key identifies a summary for caching and supersession.
func (s Summary) Key() string {
	return fmt.Sprintf("%d/%d/%d/%d", s.Income.Cents, s.Expense.Cents, s.Balance.Cents, s.TransactionCount)
}

// Advisor turns a summary into advice text. Implementations return an error
// wrapping core.ErrExternalService when the remote side fails.
type Advisor interface {
	Advise(ctx context.Context, s Summary) (string, error)
}

// AdvisorFunc adapts a function to Advisor.
type AdvisorFunc func(ctx context.Context, s Summary) (string, error)

func (f AdvisorFunc) Advise(ctx context.Context, s Summary) (string, error) { return f(ctx, s) }

// Static always answers with the same text. It stands in when no API key is configured.
type Static string

func (s Static) Advise(context.Context, Summary) (string, error) { return string(s), nil }
