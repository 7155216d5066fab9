package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pocketpilot/internal/core"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface the report service needs. The SQLite
// repository implements it; tests substitute an in-memory fake.
type Store interface {
	SaveTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	ListTransactions(ctx context.Context, category string, limit int) ([]core.Transaction, error)
	AllTransactions(ctx context.Context) ([]core.Transaction, error)
	KeywordRules(ctx context.Context) ([]core.CategoryRule, error)
	UpsertKeywords(ctx context.Context, category, keywords string) error
	Budgets(ctx context.Context) (map[string]decimal.Decimal, error)
	UpsertBudget(ctx context.Context, category string, amount decimal.Decimal) error
}

// AlertPublisher fans computed budget breaches out to interested consumers.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, alert core.Alert) error
}

// CategoryTotal is one category's all-time total.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary is the full report: everything is derived from the current
// transactions, keyword rules, and budgets at call time. Nothing here is
// cached between calls.
type Summary struct {
	TotalsByCategory []CategoryTotal
	Recent           []core.Transaction
	MonthSeries      core.CategorySeries
	PerCategory      map[string]core.CategorySeries
	Budgets          map[string]decimal.Decimal
	Keywords         []core.CategoryRule
	Alerts           []core.Alert
}

// ReportService wires the categorizer, aggregator, forecaster, and alert
// evaluator over one consistent snapshot per call.
type ReportService struct {
	store     Store
	publisher AlertPublisher
	clock     func() time.Time
}

func NewReportService(store Store, publisher AlertPublisher) *ReportService {
	return &ReportService{
		store:     store,
		publisher: publisher,
		clock:     time.Now,
	}
}

func (s *ReportService) keywordIndex(ctx context.Context) (*core.KeywordIndex, error) {
	rules, err := s.store.KeywordRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load keyword rules: %w", err)
	}
	ix, err := core.NewKeywordIndex(rules)
	if err != nil {
		return nil, fmt.Errorf("build keyword index: %w", err)
	}
	return ix, nil
}

// AddTransaction categorizes and persists a single transaction. A missing
// date defaults to the current instant so the transaction still lands in a
// month bucket.
func (s *ReportService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	ix, err := s.keywordIndex(ctx)
	if err != nil {
		return core.Transaction{}, err
	}

	if tx.Date == "" {
		tx.Date = s.clock().UTC().Format(time.RFC3339)
	}
	tx.Category = ix.Categorize(tx)

	id, err := s.store.SaveTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id
	return tx, nil
}

// Import categorizes and persists a batch of parsed transactions, returning
// the number saved.
func (s *ReportService) Import(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	ix, err := s.keywordIndex(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock().UTC().Format(time.RFC3339)
	for i := range txs {
		if txs[i].Date == "" {
			txs[i].Date = now
		}
		txs[i].Category = ix.Categorize(txs[i])
	}

	count, err := s.store.SaveTransactions(ctx, txs)
	if err != nil {
		return 0, fmt.Errorf("save imported transactions: %w", err)
	}

	slog.InfoContext(ctx, "Imported transactions", "count", count)
	return count, nil
}

// List returns recent transactions, optionally filtered by stored category.
func (s *ReportService) List(ctx context.Context, category string, limit int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, category, limit)
}

// Keywords returns the current keyword rules in configuration order.
func (s *ReportService) Keywords(ctx context.Context) ([]core.CategoryRule, error) {
	return s.store.KeywordRules(ctx)
}

// ReplaceKeywords overwrites a category's keyword list wholesale.
func (s *ReportService) ReplaceKeywords(ctx context.Context, category, keywords string) error {
	return s.store.UpsertKeywords(ctx, category, keywords)
}

// ReplaceBudget overwrites a category's budget ceiling.
func (s *ReportService) ReplaceBudget(ctx context.Context, category string, amount decimal.Decimal) error {
	return s.store.UpsertBudget(ctx, category, amount)
}

// Budgets returns the current budget ceilings.
func (s *ReportService) Budgets(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.store.Budgets(ctx)
}

// Predict forecasts the next horizon months of spend per category,
// re-deriving categories from the current keyword rules.
func (s *ReportService) Predict(ctx context.Context, horizon int) (map[string][]decimal.Decimal, error) {
	ix, err := s.keywordIndex(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.AllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	perCategory := core.Aggregate(txs, ix, s.clock)
	out := make(map[string][]decimal.Decimal, len(perCategory))
	for cat, series := range perCategory {
		out[cat] = core.Forecast(series, horizon)
	}
	return out, nil
}

// MonthlyTrend returns the combined monthly series across all categories
// together with its next-horizon forecast.
func (s *ReportService) MonthlyTrend(ctx context.Context, horizon int) (core.CategorySeries, []decimal.Decimal, error) {
	ix, err := s.keywordIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.store.AllTransactions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load transactions: %w", err)
	}

	series := core.Combined(core.Aggregate(txs, ix, s.clock))
	return series, core.Forecast(series, horizon), nil
}

// Summarize assembles the full report from one snapshot of transactions,
// keyword rules, and budgets. Budget breaches found along the way are
// published best effort; a publish failure never fails the summary.
func (s *ReportService) Summarize(ctx context.Context, recentLimit int) (Summary, error) {
	rules, err := s.store.KeywordRules(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load keyword rules: %w", err)
	}
	ix, err := core.NewKeywordIndex(rules)
	if err != nil {
		return Summary{}, fmt.Errorf("build keyword index: %w", err)
	}
	txs, err := s.store.AllTransactions(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load budgets: %w", err)
	}
	recent, err := s.store.ListTransactions(ctx, "", recentLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("load recent transactions: %w", err)
	}

	perCategory := core.Aggregate(txs, ix, s.clock)

	totals := make([]CategoryTotal, 0, len(perCategory))
	for cat, total := range core.Totals(perCategory) {
		totals = append(totals, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Category < totals[j].Category
	})

	alerts := core.EvaluateBudgets(perCategory, budgets)
	s.publishAlerts(ctx, alerts)

	return Summary{
		TotalsByCategory: totals,
		Recent:           recent,
		MonthSeries:      core.Combined(perCategory),
		PerCategory:      perCategory,
		Budgets:          budgets,
		Keywords:         rules,
		Alerts:           alerts,
	}, nil
}

func (s *ReportService) publishAlerts(ctx context.Context, alerts []core.Alert) {
	if s.publisher == nil || len(alerts) == 0 {
		return
	}
	for _, alert := range alerts {
		if err := s.publisher.PublishBudgetAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				"error", err,
				"category", alert.Category)
		}
	}
}
