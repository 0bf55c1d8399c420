// Package memory is an in-process exporter used for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"balansim/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendRow records r at the end of the sheet.
func (e *Exporter) AppendRow(_ context.Context, r sheets.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, r)
	return nil
}

// DeleteRow drops the first row with the given id.
func (e *Exporter) DeleteRow(_ context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rows {
		if r.ID == id {
			e.rows = append(e.rows[:i], e.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the exported rows in sheet order.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.Row(nil), e.rows...)
}
