package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	TransactionType string

	Category struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Icon     string `json:"icon"`  // Rendering hint, opaque to the engine
		Color    string `json:"color"` // Rendering hint, opaque to the engine
		IsCustom bool   `json:"isCustom,omitempty"`
	}

	Transaction struct {
		ID         string          `json:"id"`
		Type       TransactionType `json:"type"`
		CategoryID string          `json:"categoryId"` // Soft reference, may dangle
		Amount     Money           `json:"amount"`
		Note       string          `json:"note"`
		Date       time.Time       `json:"date"`
	}
)

// Error taxonomy. Specific errors wrap one of these so callers can use errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotRemovable     = errors.New("category not removable")
	ErrExternalService  = errors.New("external service error")
	ErrPersistence      = errors.New("persistence error")
	ErrDocumentNotFound = errors.New("ledger document not found")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountOutOfRange = fmt.Errorf("%w: amount exceeds 10000000000000", ErrValidation)
	ErrTotalsOverflow   = fmt.Errorf("%w: ledger totals out of range", ErrValidation)
	ErrInvalidType      = fmt.Errorf("%w: type must be INCOME or EXPENSE", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: category name cannot be empty", ErrValidation)
	ErrMissingID        = fmt.Errorf("%w: id cannot be empty", ErrValidation)
	ErrBuiltinCategory  = fmt.Errorf("%w: built-in categories cannot be removed", ErrNotRemovable)
)

// ParseTransactionType accepts the canonical upper-case names, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Signed returns the amount as it contributes to the balance.
func (t Transaction) Signed() Money {
	if t.Type == Income {
		return t.Amount
	}
	return Money{Cents: -t.Amount.Cents}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrMissingID
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrValidation)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
