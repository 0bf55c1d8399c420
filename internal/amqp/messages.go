package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"balansim/internal/core"
)

type EventType string

const (
	TransactionAdded   EventType = "transaction.added"
	TransactionDeleted EventType = "transaction.deleted"
	CategoryAdded      EventType = "category.added"
	CategoryRemoved    EventType = "category.removed"
	BalanceSet         EventType = "balance.set"
)

func (t EventType) IsValid() bool {
	switch t {
	case TransactionAdded, TransactionDeleted, CategoryAdded, CategoryRemoved, BalanceSet:
		return true
	}
	return false
}

// LedgerEvent describes one committed ledger mutation. Only the fields
// relevant to Type are set.
type LedgerEvent struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"type"`
	Transaction     *core.Transaction `json:"transaction,omitempty"`
	CategoryID      string            `json:"categoryId,omitempty"`
	CategoryName    string            `json:"categoryName,omitempty"`
	StartingBalance *core.Money       `json:"startingBalance,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

func newEvent(t EventType) *LedgerEvent {
	return &LedgerEvent{ID: uuid.NewString(), Type: t, Timestamp: time.Now().UTC()}
}

// NewTransactionAdded carries the category name too, so consumers can render
// the entry without reading the ledger.
func NewTransactionAdded(t core.Transaction, categoryName string) *LedgerEvent {
	e := newEvent(TransactionAdded)
	e.Transaction = &t
	e.CategoryID = t.CategoryID
	e.CategoryName = categoryName
	return e
}

func NewTransactionDeleted(t core.Transaction) *LedgerEvent {
	e := newEvent(TransactionDeleted)
	e.Transaction = &t
	e.CategoryID = t.CategoryID
	return e
}

func NewCategoryAdded(c core.Category) *LedgerEvent {
	e := newEvent(CategoryAdded)
	e.CategoryID = c.ID
	e.CategoryName = c.Name
	return e
}

func NewCategoryRemoved(c core.Category) *LedgerEvent {
	e := newEvent(CategoryRemoved)
	e.CategoryID = c.ID
	e.CategoryName = c.Name
	return e
}

func NewBalanceSet(m core.Money) *LedgerEvent {
	e := newEvent(BalanceSet)
	e.StartingBalance = &m
	return e
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if (e.Type == TransactionAdded || e.Type == TransactionDeleted) && e.Transaction == nil {
		return nil, fmt.Errorf("%s event without transaction", e.Type)
	}
	return &e, nil
}
