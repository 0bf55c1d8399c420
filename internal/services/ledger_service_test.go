package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"balansim/internal/amqp"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/metrics"
	"balansim/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type flakyStore struct {
	*memory.Store
	loadErr error
	saveErr error
}

func (f *flakyStore) Load(ctx context.Context) (core.Ledger, error) {
	if f.loadErr != nil {
		return core.Ledger{}, f.loadErr
	}
	return f.Store.Load(ctx)
}

func (f *flakyStore) Save(ctx context.Context, l core.Ledger) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, l)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T, store *flakyStore, pub Publisher, seed bool) *LedgerService {
	t.Helper()
	n := 0
	svc := NewLedgerService(store, pub, Options{
		StartingBalance: core.FromMajor(10000),
		SeedExample:     seed,
		Now:             func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	if err := svc.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return svc
}

func TestOpen(t *testing.T) {
	t.Run("missing document is created and saved", func(t *testing.T) {
		store := &flakyStore{Store: memory.New()}
		svc := newTestService(t, store, nil, true)
		defer svc.Close()

		l := svc.Snapshot()
		if l.StartingBalance != core.FromMajor(10000) || len(l.Transactions) != 1 || l.Transactions[0].ID != "init-1" {
			t.Fatalf("unexpected default document %+v", l)
		}
		if len(l.Categories) != len(core.BuiltinCategories()) {
			t.Fatalf("expected built-in categories, got %d", len(l.Categories))
		}
		if store.Saves() != 1 {
			t.Fatalf("default document saved %d times", store.Saves())
		}
		if got := l.Totals().Balance; got != core.FromMajor(8500) {
			t.Fatalf("balance = %s, want 8500", got)
		}
	})

	t.Run("existing document is used", func(t *testing.T) {
		mem := memory.New()
		mem.Save(context.Background(), core.NewLedger(core.FromMajor(42)))
		store := &flakyStore{Store: mem}
		svc := newTestService(t, store, nil, true)
		defer svc.Close()

		if l := svc.Snapshot(); l.StartingBalance != core.FromMajor(42) || len(l.Transactions) != 0 {
			t.Fatalf("loaded document not used: %+v", l)
		}
	})

	t.Run("load failure falls back without saving", func(t *testing.T) {
		store := &flakyStore{Store: memory.New(), loadErr: errors.New("corrupt")}
		svc := newTestService(t, store, nil, false)
		defer svc.Close()

		if l := svc.Snapshot(); l.StartingBalance != core.FromMajor(10000) || len(l.Transactions) != 0 {
			t.Fatalf("unexpected fallback document %+v", l)
		}
		if store.Saves() != 0 {
			t.Fatal("broken store must not be overwritten on open")
		}
	})
}

func TestAddTransaction(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	pub := &recordingPublisher{}
	svc := newTestService(t, store, pub, false)

	got, err := svc.AddTransaction(context.Background(), NewTransaction{
		Type:       core.Income,
		CategoryID: "cat-5",
		Amount:     core.FromMajor(5000),
		Note:       "  salary ",
	})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if got.ID != "id-1" || !got.Date.Equal(fixedNow) || got.Note != "salary" {
		t.Fatalf("unexpected transaction %+v", got)
	}

	l := svc.Snapshot()
	if len(l.Transactions) != 1 || l.Totals().Balance != core.FromMajor(15000) {
		t.Fatalf("unexpected state %+v", l)
	}
	persisted, _ := store.Load(context.Background())
	if len(persisted.Transactions) != 1 {
		t.Fatal("mutation was not saved")
	}

	// unknown categories are accepted
	if _, err := svc.AddTransaction(context.Background(), NewTransaction{Type: core.Expense, CategoryID: "cat-missing", Amount: core.Money{Cents: 1}}); err != nil {
		t.Fatalf("soft category reference rejected: %v", err)
	}

	svc.Close()
	if types := pub.types(); len(types) != 2 || types[0] != amqp.TransactionAdded {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestAddTransactionRejected(t *testing.T) {
	tests := []struct {
		name string
		in   NewTransaction
	}{
		{"zero amount", NewTransaction{Type: core.Expense, CategoryID: "cat-1"}},
		{"negative amount", NewTransaction{Type: core.Expense, CategoryID: "cat-1", Amount: core.Money{Cents: -100}}},
		{"bad type", NewTransaction{Type: "TRANSFER", CategoryID: "cat-1", Amount: core.FromMajor(1)}},
		{"amount out of range", NewTransaction{Type: core.Income, CategoryID: "cat-6", Amount: core.Money{Cents: 9_000_000_000_000_000_000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &flakyStore{Store: memory.New()}
			svc := newTestService(t, store, nil, false)
			defer svc.Close()
			saves := store.Saves()

			_, err := svc.AddTransaction(context.Background(), tt.in)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(svc.Snapshot().Transactions) != 0 || store.Saves() != saves {
				t.Fatal("rejected input changed state")
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, nil, true)
	defer svc.Close()

	saves := store.Saves()
	removed, err := svc.DeleteTransaction(context.Background(), "nope")
	if err != nil || removed {
		t.Fatalf("DeleteTransaction(unknown) = %v, %v", removed, err)
	}
	if store.Saves() != saves {
		t.Fatal("no-op delete should not save")
	}

	removed, err = svc.DeleteTransaction(context.Background(), "init-1")
	if err != nil || !removed {
		t.Fatalf("DeleteTransaction(init-1) = %v, %v", removed, err)
	}
	if l := svc.Snapshot(); len(l.Transactions) != 0 || l.Totals().Balance != core.FromMajor(10000) {
		t.Fatalf("unexpected state after delete %+v", l)
	}
}

func TestCategories(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, nil, true)
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.AddCategory(ctx, NewCategory{Name: "   "}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}

	c, err := svc.AddCategory(ctx, NewCategory{Name: "Pets"})
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	if !strings.HasPrefix(c.ID, "cat-id-") || !c.IsCustom || c.Icon == "" || c.Color == "" {
		t.Fatalf("unexpected category %+v", c)
	}
	cats := svc.Snapshot().Categories
	if cats[len(cats)-1].ID != c.ID {
		t.Fatal("custom category not appended at the end")
	}

	if _, err := svc.RemoveCategory(ctx, "cat-1"); !errors.Is(err, core.ErrNotRemovable) {
		t.Fatalf("expected ErrNotRemovable, got %v", err)
	}
	if removed, err := svc.RemoveCategory(ctx, "cat-unknown"); err != nil || removed {
		t.Fatalf("RemoveCategory(unknown) = %v, %v", removed, err)
	}

	if _, err := svc.AddTransaction(ctx, NewTransaction{Type: core.Expense, CategoryID: c.ID, Amount: core.FromMajor(10)}); err != nil {
		t.Fatal(err)
	}
	removed, err := svc.RemoveCategory(ctx, c.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveCategory(custom) = %v, %v", removed, err)
	}

	l := svc.Snapshot()
	if _, ok := l.Category(c.ID); ok {
		t.Fatal("category still present")
	}
	if len(l.Transactions) != 2 || l.CategoryName(c.ID) != core.UnknownCategoryName {
		t.Fatal("transactions must survive category removal and resolve to the unknown name")
	}
}

func TestSetStartingBalance(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, nil, true)
	defer svc.Close()

	if err := svc.SetStartingBalance(context.Background(), core.FromMajor(-200)); err != nil {
		t.Fatalf("SetStartingBalance() error = %v", err)
	}
	if got := svc.Snapshot().Totals().Balance; got != core.FromMajor(-1700) {
		t.Fatalf("balance = %s, want -1700", got)
	}

	saves := store.Saves()
	err := svc.SetStartingBalance(context.Background(), core.Money{Cents: -9_000_000_000_000_000_000})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := svc.Snapshot().StartingBalance; got != core.FromMajor(-200) || store.Saves() != saves {
		t.Fatalf("rejected balance changed state: %s", got)
	}
}

func TestLargeIncomesKeepBalancePositive(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, nil, false)
	defer svc.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.AddTransaction(ctx, NewTransaction{Type: core.Income, CategoryID: "cat-6", Amount: core.Money{Cents: core.MaxCents}})
		if err != nil {
			t.Fatalf("income %d: %v", i, err)
		}
	}
	want := core.FromMajor(10000).Cents + 2*core.MaxCents
	if got := svc.Snapshot().Totals().Balance.Cents; got != want {
		t.Fatalf("balance = %d, want %d", got, want)
	}
}

func TestSaveFailureKeepsState(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	pub := &recordingPublisher{}
	svc := newTestService(t, store, pub, false)

	var notified []int
	svc.Subscribe(func(l core.Ledger) { notified = append(notified, len(l.Transactions)) })

	saveFailed := metrics.LedgerMutations.WithLabelValues(log.OpAddTransaction, metrics.OutcomeSaveFail)
	before := testutil.ToFloat64(saveFailed)

	store.saveErr = errors.New("disk full")
	_, err := svc.AddTransaction(context.Background(), NewTransaction{Type: core.Expense, CategoryID: "cat-1", Amount: core.FromMajor(5)})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(svc.Snapshot().Transactions) != 1 {
		t.Fatal("in-memory state should keep the mutation")
	}
	if len(notified) != 1 || notified[0] != 1 {
		t.Fatalf("listeners not notified: %v", notified)
	}
	if got := testutil.ToFloat64(saveFailed) - before; got != 1 {
		t.Fatalf("save_failed counter moved by %v, want 1", got)
	}

	svc.Close()
	if len(pub.types()) != 0 {
		t.Fatal("events must not be published for unsaved documents")
	}
}

func TestSubscribeOrder(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, nil, false)
	defer svc.Close()

	var balances []core.Money
	svc.Subscribe(func(l core.Ledger) { balances = append(balances, l.Totals().Balance) })

	ctx := context.Background()
	svc.AddTransaction(ctx, NewTransaction{Type: core.Income, CategoryID: "cat-5", Amount: core.FromMajor(100)})
	svc.AddTransaction(ctx, NewTransaction{Type: core.Expense, CategoryID: "cat-1", Amount: core.FromMajor(30)})
	svc.SetStartingBalance(ctx, core.FromMajor(0))

	want := []core.Money{core.FromMajor(10100), core.FromMajor(10070), core.FromMajor(70)}
	if len(balances) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(balances), len(want))
	}
	for i := range want {
		if balances[i] != want[i] {
			t.Errorf("notification %d: balance %s, want %s", i, balances[i], want[i])
		}
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc := newTestService(t, store, pub, false)
	defer svc.Close()

	if _, err := svc.AddTransaction(context.Background(), NewTransaction{Type: core.Income, CategoryID: "cat-5", Amount: core.FromMajor(1)}); err != nil {
		t.Fatalf("publish failure leaked into mutation: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	svc := newTestService(t, &flakyStore{Store: memory.New()}, &recordingPublisher{}, false)
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMutationsAfterClose(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	svc := newTestService(t, store, &recordingPublisher{}, false)
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	saves := store.Saves()

	ctx := context.Background()
	if _, err := svc.AddTransaction(ctx, NewTransaction{Type: core.Income, CategoryID: "cat-6", Amount: core.FromMajor(1)}); !errors.Is(err, ErrClosed) {
		t.Fatalf("AddTransaction after Close: %v", err)
	}
	if _, err := svc.DeleteTransaction(ctx, "id-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("DeleteTransaction after Close: %v", err)
	}
	if _, err := svc.AddCategory(ctx, NewCategory{Name: "Pets"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("AddCategory after Close: %v", err)
	}
	if _, err := svc.RemoveCategory(ctx, "cat-x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("RemoveCategory after Close: %v", err)
	}
	if err := svc.SetStartingBalance(ctx, core.FromMajor(1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetStartingBalance after Close: %v", err)
	}
	if err := svc.Open(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open after Close: %v", err)
	}
	if store.Saves() != saves {
		t.Fatal("closed service saved a document")
	}
}
