package storage

import (
	"context"

	"balansim/internal/core"
)

// DocumentStore persists the whole ledger document. Load returns
// core.ErrDocumentNotFound when nothing has been saved yet.
type DocumentStore interface {
	Load(ctx context.Context) (core.Ledger, error)
	Save(ctx context.Context, l core.Ledger) error
}
