package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pocketpilot/internal/core"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu      sync.Mutex
	txs     []core.Transaction
	rules   []core.CategoryRule
	budgets map[string]decimal.Decimal
	nextID  int64
}

func newFakeStore(rules []core.CategoryRule) *fakeStore {
	return &fakeStore{
		rules:   rules,
		budgets: make(map[string]decimal.Decimal),
		nextID:  1,
	}
}

func (f *fakeStore) SaveTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, tx)
	return tx.ID, nil
}

func (f *fakeStore) SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	for _, tx := range txs {
		if _, err := f.SaveTransaction(ctx, tx); err != nil {
			return 0, err
		}
	}
	return len(txs), nil
}

func (f *fakeStore) ListTransactions(_ context.Context, category string, limit int) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for i := len(f.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if category == "" || f.txs[i].Category == category {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

func (f *fakeStore) AllTransactions(_ context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Transaction, len(f.txs))
	copy(out, f.txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeStore) KeywordRules(_ context.Context) ([]core.CategoryRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.CategoryRule, len(f.rules))
	copy(out, f.rules)
	return out, nil
}

func (f *fakeStore) UpsertKeywords(_ context.Context, category, keywords string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kws := splitCSV(keywords)
	for i, r := range f.rules {
		if r.Name == category {
			f.rules[i].Keywords = kws
			return nil
		}
	}
	f.rules = append(f.rules, core.CategoryRule{Name: category, Keywords: kws})
	return nil
}

func (f *fakeStore) Budgets(_ context.Context) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(f.budgets))
	for k, v := range f.budgets {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) UpsertBudget(_ context.Context, category string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgets[category] = amount
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fakePublisher records published alerts.
type fakePublisher struct {
	mu     sync.Mutex
	alerts []core.Alert
	err    error
}

func (f *fakePublisher) PublishBudgetAlert(_ context.Context, alert core.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}
