package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Period is a calendar-month bucket. Two timestamps in the same UTC
	// month map to the same Period; ordering is chronological.
	Period struct {
		Year  int
		Month time.Month
	}

	// Transaction is a single ingested movement. The stored Category is a
	// cache of the derivation; reporting paths re-derive it from the
	// current keyword index.
	Transaction struct {
		ID       int64
		Date     string
		Amount   decimal.Decimal
		Merchant string
		Note     string
		Category string
	}

	// SeriesPoint is one month's total for a category.
	SeriesPoint struct {
		Period Period
		Amount decimal.Decimal
	}

	// CategorySeries is an ascending-by-period sequence of monthly totals.
	// Months with no transactions are absent, not zero-filled.
	CategorySeries []SeriesPoint

	// Alert is a computed budget breach. Alerts are never stored; they are
	// recomputed on every evaluation.
	Alert struct {
		Category  string
		Predicted decimal.Decimal
		Budget    decimal.Decimal
	}
)

var (
	ErrNoFallback       = errors.New("keyword index needs exactly one fallback category")
	ErrMultipleFallback = errors.New("keyword index allows only one fallback category")
	ErrEmptyCategory    = errors.New("empty category name")
)

// PeriodOf returns the calendar-month bucket of t in UTC.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// Before reports whether p is chronologically earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// String renders the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MatchText joins merchant and note into the lowercased text the keyword
// index matches against. Empty fields collapse cleanly.
func (t Transaction) MatchText() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(t.Merchant); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(t.Note); s != "" {
		parts = append(parts, s)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Total sums the amounts of all transactions.
func Total(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
