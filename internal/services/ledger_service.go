package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"balansim/internal/amqp"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/metrics"
	"balansim/internal/storage"
)

// Publisher sends committed ledger events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, e *amqp.LedgerEvent) error
}

// Listener is told about every new document, in mutation order.
type Listener func(core.Ledger)

type Options struct {
	StartingBalance core.Money
	SeedExample     bool
	Logger          *log.Logger
	Now             func() time.Time
	NewID           func() string
	// EventBuffer bounds the queue of events waiting to be published.
	EventBuffer int
}

// NewTransaction is the input of AddTransaction. Id and date are assigned by the service.
type NewTransaction struct {
	Type       core.TransactionType
	CategoryID string
	Amount     core.Money
	Note       string
}

// NewCategory is the input of AddCategory. Empty icon and color get defaults.
type NewCategory struct {
	Name  string
	Icon  string
	Color string
}

// LedgerService owns the current document. Mutations are serialized, fully
// validated before anything changes, and followed by a save of the whole
// document. A failed save keeps the new in-memory state and is reported as
// core.ErrPersistence.
type LedgerService struct {
	store     storage.DocumentStore
	publisher Publisher
	opts      Options
	logger    *log.Logger

	mu        sync.Mutex // one logical writer
	docMu     sync.RWMutex
	doc       core.Ledger
	listeners []Listener

	events    chan *amqp.LedgerEvent
	pubDone   chan struct{}
	closeOnce sync.Once
	closed    bool // guarded by mu
}

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("ledger service closed")

func NewLedgerService(store storage.DocumentStore, publisher Publisher, opts Options) *LedgerService {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}

	s := &LedgerService{
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    opts.Logger.WithComponent(log.ComponentLedger),
		doc:       core.NewLedger(opts.StartingBalance),
	}
	if publisher != nil {
		s.events = make(chan *amqp.LedgerEvent, opts.EventBuffer)
		s.pubDone = make(chan struct{})
		go s.publishLoop()
	}
	return s
}

// Open loads the persisted document. A missing document is replaced by the
// default one, which is saved right away. Any other load failure falls back
// to the default document without saving, so a broken store is not
// overwritten.
func (s *LedgerService) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	l, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.set(l.Normalize())
		s.logger.InfoContext(ctx, "Ledger loaded",
			"transactions", len(l.Transactions),
			"categories", len(l.Categories))
		return nil

	case errors.Is(err, core.ErrDocumentNotFound):
		def := s.defaultDocument()
		s.set(def)
		s.logger.InfoContext(ctx, "No saved ledger, starting fresh",
			"starting_balance", def.StartingBalance.String(),
			"seeded", s.opts.SeedExample)
		return s.save(ctx, log.OpStartup, def)

	default:
		metrics.PersistenceFailures.Inc()
		s.set(s.defaultDocument())
		s.logger.ErrorContext(ctx, "Failed to load ledger, using defaults", log.NewFields().
			WithOperation(log.OpLoad).
			WithError(err).
			ToSlice()...)
		return nil
	}
}

func (s *LedgerService) defaultDocument() core.Ledger {
	l := core.NewLedger(s.opts.StartingBalance)
	if s.opts.SeedExample {
		if seeded, err := l.WithTransaction(core.SeedExample(s.opts.Now())); err == nil {
			l = seeded
		}
	}
	return l
}

// Snapshot returns the current document. The caller owns the copy.
func (s *LedgerService) Snapshot() core.Ledger {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc.Clone()
}

// Subscribe registers fn for every subsequent document change.
func (s *LedgerService) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddTransaction validates in, assigns an id and the current time, and appends it.
// The category id is not checked against the registry.
func (s *LedgerService) AddTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Transaction{}, ErrClosed
	}

	t := core.Transaction{
		ID:         s.opts.NewID(),
		Type:       in.Type,
		CategoryID: strings.TrimSpace(in.CategoryID),
		Amount:     in.Amount,
		Note:       strings.TrimSpace(in.Note),
		Date:       s.opts.Now(),
	}
	fields := log.NewFields().
		WithOperation(log.OpAddTransaction).
		WithTransaction(t.ID, string(t.Type), t.CategoryID, t.Amount.Cents)

	next, err := s.current().WithTransaction(t)
	if err != nil {
		s.reject(ctx, log.OpAddTransaction, err, fields)
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added", fields.ToSlice()...)
	return t, s.commit(ctx, log.OpAddTransaction, next, amqp.NewTransactionAdded(t, next.CategoryName(t.CategoryID)))
}

// DeleteTransaction removes id. An unknown id is a no-op: nothing is saved
// and removed is false.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	cur := s.current()
	t, ok := cur.Transaction(id)
	if !ok {
		metrics.LedgerMutations.WithLabelValues(log.OpDeleteTransaction, metrics.OutcomeNoop).Inc()
		s.logger.DebugContext(ctx, "Delete of unknown transaction ignored", log.FieldTransactionID, id)
		return false, nil
	}
	next, _ := cur.WithoutTransaction(id)

	s.logger.InfoContext(ctx, "Transaction deleted", log.NewFields().
		WithOperation(log.OpDeleteTransaction).
		WithTransaction(t.ID, string(t.Type), t.CategoryID, t.Amount.Cents).
		ToSlice()...)
	return true, s.commit(ctx, log.OpDeleteTransaction, next, amqp.NewTransactionDeleted(t))
}

// AddCategory appends a custom category with a fresh id.
func (s *LedgerService) AddCategory(ctx context.Context, in NewCategory) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Category{}, ErrClosed
	}

	fields := log.NewFields().WithOperation(log.OpAddCategory)
	c, err := core.NewCustomCategory("cat-"+s.opts.NewID(), in.Name, in.Icon, in.Color)
	if err != nil {
		s.reject(ctx, log.OpAddCategory, err, fields)
		return core.Category{}, err
	}
	fields.WithCategory(c.ID)

	next, err := s.current().WithCategory(c)
	if err != nil {
		s.reject(ctx, log.OpAddCategory, err, fields)
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category added", append(fields.ToSlice(), "name", c.Name)...)
	return c, s.commit(ctx, log.OpAddCategory, next, amqp.NewCategoryAdded(c))
}

// RemoveCategory removes a custom category. Built-ins are rejected with
// core.ErrNotRemovable; an unknown id is a no-op. Transactions referencing
// the category are left untouched.
func (s *LedgerService) RemoveCategory(ctx context.Context, id string) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	fields := log.NewFields().WithOperation(log.OpRemoveCategory).WithCategory(id)
	cur := s.current()
	c, _ := cur.Category(id)

	next, removed, err := cur.WithoutCategory(id)
	if err != nil {
		s.reject(ctx, log.OpRemoveCategory, err, fields)
		return false, err
	}
	if !removed {
		metrics.LedgerMutations.WithLabelValues(log.OpRemoveCategory, metrics.OutcomeNoop).Inc()
		return false, nil
	}

	s.logger.InfoContext(ctx, "Category removed", fields.ToSlice()...)
	return true, s.commit(ctx, log.OpRemoveCategory, next, amqp.NewCategoryRemoved(c))
}

// SetStartingBalance replaces the starting balance. Negative values are
// accepted; magnitudes that would push the ledger totals out of range are
// rejected with core.ErrValidation.
func (s *LedgerService) SetStartingBalance(ctx context.Context, m core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	fields := log.NewFields().
		WithOperation(log.OpSetStartingBalance).
		WithBalance(m.Cents)
	next, err := s.current().WithStartingBalance(m)
	if err != nil {
		s.reject(ctx, log.OpSetStartingBalance, err, fields)
		return err
	}
	s.logger.InfoContext(ctx, "Starting balance set", fields.ToSlice()...)
	return s.commit(ctx, log.OpSetStartingBalance, next, amqp.NewBalanceSet(m))
}

func (s *LedgerService) current() core.Ledger {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc
}

func (s *LedgerService) set(l core.Ledger) {
	s.docMu.Lock()
	s.doc = l
	s.docMu.Unlock()

	totals := l.Totals()
	metrics.Balance.Set(totals.Balance.Float())
	metrics.Transactions.Set(float64(len(l.Transactions)))
}

func (s *LedgerService) reject(ctx context.Context, op string, err error, fields log.LogFields) {
	metrics.LedgerMutations.WithLabelValues(op, metrics.OutcomeRejected).Inc()
	s.logger.WarnContext(ctx, "Ledger mutation rejected", fields.WithError(err).ToSlice()...)
}

// commit swaps in next, saves it, tells listeners and queues the event.
// Events are only published for documents that reached the store.
func (s *LedgerService) commit(ctx context.Context, op string, next core.Ledger, event *amqp.LedgerEvent) error {
	s.set(next)
	err := s.save(ctx, op, next)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeSaveFail
	}
	metrics.LedgerMutations.WithLabelValues(op, outcome).Inc()

	for _, fn := range s.listeners {
		fn(next.Clone())
	}
	if err == nil {
		s.enqueue(ctx, event)
	}
	return err
}

func (s *LedgerService) save(ctx context.Context, op string, l core.Ledger) error {
	if err := s.store.Save(ctx, l); err != nil {
		metrics.PersistenceFailures.Inc()
		s.logger.ErrorContext(ctx, "Failed to save ledger", log.NewFields().
			WithOperation(op).
			WithError(err).
			ToSlice()...)
		return fmt.Errorf("%w: save ledger: %w", core.ErrPersistence, err)
	}
	return nil
}

func (s *LedgerService) enqueue(ctx context.Context, e *amqp.LedgerEvent) {
	if s.events == nil || e == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		metrics.EventsPublished.WithLabelValues(string(e.Type), metrics.OutcomeDropped).Inc()
		s.logger.WarnContext(ctx, "Event queue full, dropping ledger event",
			log.FieldEventType, e.Type)
	}
}

// publishLoop sends events one at a time so consumers see mutation order.
func (s *LedgerService) publishLoop() {
	defer close(s.pubDone)
	for e := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.publisher.Publish(ctx, e)
		cancel()
		if err != nil {
			metrics.EventsPublished.WithLabelValues(string(e.Type), "failed").Inc()
			s.logger.Error("Failed to publish ledger event", log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err).
				ToSlice()...)
			continue
		}
		metrics.EventsPublished.WithLabelValues(string(e.Type), metrics.OutcomeOK).Inc()
	}
}

// Close drains queued events and releases the store and publisher when they
// hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.events != nil {
			close(s.events)
		}
		s.mu.Unlock()
		if s.pubDone != nil {
			<-s.pubDone
		}

		if c, ok := s.store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		if c, ok := s.publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
