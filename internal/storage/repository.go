package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"balansim/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository stores the ledger document in SQLite. Every Save replaces
// the full document inside one SQL transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// A single writer keeps SQLite from returning SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements DocumentStore.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	var startCents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT starting_balance_cents FROM ledger_meta WHERE id = 1`).Scan(&startCents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Ledger{}, core.ErrDocumentNotFound
	}
	if err != nil {
		return core.Ledger{}, fmt.Errorf("read ledger meta: %w", err)
	}

	categories, err := r.loadCategories(ctx)
	if err != nil {
		return core.Ledger{}, err
	}
	transactions, err := r.loadTransactions(ctx)
	if err != nil {
		return core.Ledger{}, err
	}

	l := core.Ledger{
		StartingBalance: core.Money{Cents: startCents},
		Categories:      categories,
		Transactions:    transactions,
	}.Normalize()
	if err := l.Validate(); err != nil {
		return core.Ledger{}, fmt.Errorf("invalid ledger rows: %w", err)
	}

	slog.DebugContext(ctx, "Ledger loaded from SQLite",
		"transactions", len(l.Transactions),
		"categories", len(l.Categories))
	return l, nil
}

func (r *SQLiteRepository) loadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, color, is_custom FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var custom int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &custom); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.IsCustom = custom != 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, category_id, amount_cents, note, occurred_at FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t          core.Transaction
			typ        string
			occurredAt string
		)
		if err := rows.Scan(&t.ID, &typ, &t.CategoryID, &t.Amount.Cents, &t.Note, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Date, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("parse date of transaction %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save implements DocumentStore.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (id, starting_balance_cents, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET starting_balance_cents = excluded.starting_balance_cents, updated_at = excluded.updated_at`,
		l.StartingBalance.Cents, now); err != nil {
		return fmt.Errorf("write ledger meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for i, c := range l.Categories {
		custom := 0
		if c.IsCustom {
			custom = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, position, name, icon, color, is_custom) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Name, c.Icon, c.Color, custom); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for i, t := range l.Transactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, position, type, category_id, amount_cents, note, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, string(t.Type), t.CategoryID, t.Amount.Cents, t.Note, t.Date.Format(timeLayout)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		"transactions", len(l.Transactions),
		"categories", len(l.Categories),
		"starting_balance_cents", l.StartingBalance.Cents)
	return nil
}
