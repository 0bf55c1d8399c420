// Package memory keeps the ledger document in process memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"balansim/internal/core"
)

type Store struct {
	mu    sync.Mutex
	doc   core.Ledger
	saved bool
	saves int
}

func New() *Store {
	return &Store{}
}

// NewFromFile seeds the store from a JSON document when the file exists.
// A missing or unreadable seed leaves the store empty.
func NewFromFile(path string) *Store {
	s := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var l core.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return s
	}
	if err := l.Validate(); err != nil {
		return s
	}
	s.doc = l.Normalize().Clone()
	s.saved = true
	return s
}

// Load implements storage.DocumentStore.
func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return core.Ledger{}, core.ErrDocumentNotFound
	}
	return s.doc.Clone(), nil
}

// Save implements storage.DocumentStore.
func (s *Store) Save(ctx context.Context, l core.Ledger) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = l.Normalize().Clone()
	s.saved = true
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
