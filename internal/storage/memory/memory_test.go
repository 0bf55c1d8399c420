package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"balansim/internal/core"
)

func TestStoreLoadSave(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Load(ctx); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	l := core.NewLedger(core.FromMajor(10))
	l, _ = l.WithTransaction(core.Transaction{ID: "a", Type: core.Income, CategoryID: "cat-1", Amount: core.FromMajor(1), Date: time.Now()})
	if err := s.Save(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got.Transactions[0].Note = "mutated"
	again, _ := s.Load(ctx)
	if again.Transactions[0].Note != "" {
		t.Fatalf("loaded document aliases stored state")
	}
	if s.Saves() != 1 {
		t.Fatalf("saves = %d", s.Saves())
	}
}

func TestStoreSaveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Save(ctx, core.NewLedger(core.Money{})); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFromFile(filepath.Join(dir, "missing.json")).Load(context.Background()); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Fatalf("missing seed should leave store empty, got %v", err)
	}

	seed := filepath.Join(dir, "seed.json")
	doc := `{"startingBalance":42,"transactions":[],"categories":[{"id":"cat-1","name":"Food","icon":"Utensils","color":"#ef4444"}]}`
	if err := os.WriteFile(seed, []byte(doc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	got, err := NewFromFile(seed).Load(context.Background())
	if err != nil {
		t.Fatalf("load seeded: %v", err)
	}
	if got.StartingBalance != core.FromMajor(42) || len(got.Categories) != 1 {
		t.Fatalf("unexpected seeded document: %+v", got)
	}
}
