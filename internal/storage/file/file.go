// Package file stores the ledger as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"balansim/internal/core"
)

// Store writes the document atomically: a temp file in the same directory is
// renamed over the target, so readers never see a partial document.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("document path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Load implements storage.DocumentStore.
func (s *Store) Load(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Ledger{}, core.ErrDocumentNotFound
	}
	if err != nil {
		return core.Ledger{}, fmt.Errorf("read document: %w", err)
	}

	var l core.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return core.Ledger{}, fmt.Errorf("decode document %s: %w", s.path, err)
	}
	if err := l.Validate(); err != nil {
		return core.Ledger{}, fmt.Errorf("invalid document %s: %w", s.path, err)
	}

	slog.DebugContext(ctx, "Ledger loaded from file", "path", s.path, "transactions", len(l.Transactions))
	return l.Normalize(), nil
}

// Save implements storage.DocumentStore.
func (s *Store) Save(ctx context.Context, l core.Ledger) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	data, err := json.MarshalIndent(l.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".balansim-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to file", "path", s.path, "bytes", len(data))
	return nil
}
