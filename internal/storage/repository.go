package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pocketpilot/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRepository persists transactions, keyword rules, and budgets.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTransaction inserts one transaction and returns its row ID. The
// category column caches the derivation current at ingest time.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, amount, merchant, note, category) VALUES (?, ?, ?, ?, ?)`,
		tx.Date, tx.Amount.String(), tx.Merchant, tx.Note, tx.Category)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"merchant", tx.Merchant,
		"amount", tx.Amount.String(),
		"category", tx.Category)

	return id, nil
}

// SaveTransactions inserts a batch inside one database transaction and
// returns the number of rows written.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT INTO transactions (date, amount, merchant, note, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, tx.Date, tx.Amount.String(), tx.Merchant, tx.Note, tx.Category); err != nil {
			return 0, fmt.Errorf("insert transaction %q: %w", tx.Merchant, err)
		}
		count++
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return count, nil
}

// ListTransactions returns up to limit transactions, newest first. An empty
// category returns all categories.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, category string, limit int) ([]core.Transaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, date, amount, merchant, note, category FROM transactions
			 WHERE category = ? ORDER BY date DESC, id DESC LIMIT ?`, category, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, date, amount, merchant, note, category FROM transactions
			 ORDER BY date DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// AllTransactions returns every transaction in chronological order.
func (r *SQLiteRepository) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount, merchant, note, category FROM transactions ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var (
			tx     core.Transaction
			amount string
		)
		if err := rows.Scan(&tx.ID, &tx.Date, &amount, &tx.Merchant, &tx.Note, &tx.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("decode amount %q: %w", amount, err)
		}
		tx.Amount = dec
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// KeywordRules returns the keyword configuration in its fixed configuration
// order, ready to build a core.KeywordIndex.
func (r *SQLiteRepository) KeywordRules(ctx context.Context) ([]core.CategoryRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, keywords, is_fallback FROM keywords ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryRule
	for rows.Next() {
		var (
			rule     core.CategoryRule
			raw      string
			fallback int64
		)
		if err := rows.Scan(&rule.Name, &raw, &fallback); err != nil {
			return nil, fmt.Errorf("scan keyword rule: %w", err)
		}
		rule.Keywords = SplitKeywords(raw)
		rule.Fallback = fallback != 0
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rules: %w", err)
	}
	return out, nil
}

// UpsertKeywords replaces a category's keyword list wholesale. New
// categories are appended after the existing configuration order; the
// fallback flag of an existing category is preserved.
func (r *SQLiteRepository) UpsertKeywords(ctx context.Context, category, keywords string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.ErrEmptyCategory
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO keywords (category, keywords, is_fallback, position)
		 VALUES (?, ?, 0, (SELECT COALESCE(MAX(position), 0) + 1 FROM keywords))
		 ON CONFLICT(category) DO UPDATE SET keywords = excluded.keywords`,
		category, keywords)
	if err != nil {
		return fmt.Errorf("upsert keywords for %q: %w", category, err)
	}

	slog.InfoContext(ctx, "Keyword list replaced", "category", category)
	return nil
}

// Budgets returns the budget ceiling per category.
func (r *SQLiteRepository) Budgets(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, amount FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			category string
			raw      string
		)
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode budget %q: %w", raw, err)
		}
		out[category] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// UpsertBudget replaces a category's budget ceiling; latest write wins.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, category string, amount decimal.Decimal) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.ErrEmptyCategory
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category, amount) VALUES (?, ?)
		 ON CONFLICT(category) DO UPDATE SET amount = excluded.amount`,
		category, amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget for %q: %w", category, err)
	}

	slog.InfoContext(ctx, "Budget replaced", "category", category, "amount", amount.String())
	return nil
}

// SplitKeywords splits a stored comma-delimited keyword string, dropping
// blanks. The empty string yields no keywords.
func SplitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
