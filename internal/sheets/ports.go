// Package sheets defines the outbound port used to mirror the transaction
// log into a spreadsheet.
package sheets

import (
	"context"
	"time"

	"balansim/internal/core"
)

// Row is one exported transaction. Column order in the sheet follows the
// field order here.
type Row struct {
	ID       string
	Date     time.Time
	Type     core.TransactionType
	Category string
	Amount   core.Money
	Note     string
}

func NewRow(t core.Transaction, categoryName string) Row {
	return Row{
		ID:       t.ID,
		Date:     t.Date,
		Type:     t.Type,
		Category: categoryName,
		Amount:   t.Amount,
		Note:     t.Note,
	}
}

// Values renders the row as spreadsheet cells.
func (r Row) Values() []any {
	return []any{r.ID, r.Date.UTC().Format(time.RFC3339), string(r.Type), r.Category, r.Amount.Float(), r.Note}
}

type (
	// RowWriter appends exported transactions.
	RowWriter interface {
		AppendRow(ctx context.Context, r Row) error
	}

	// RowDeleter clears the row of a deleted transaction. Missing rows report
	// false without an error.
	RowDeleter interface {
		DeleteRow(ctx context.Context, id string) (bool, error)
	}

	Exporter interface {
		RowWriter
		RowDeleter
	}
)
