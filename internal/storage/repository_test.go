package storage

import (
	"context"
	"path/filepath"
	"testing"

	"pocketpilot/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "pilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_Transactions(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, err := repo.SaveTransaction(ctx, core.Transaction{
		Date:     "2026-01-10",
		Amount:   decimal.RequireFromString("12.34"),
		Merchant: "Starbucks",
		Note:     "latte",
		Category: "Food",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	n, err := repo.SaveTransactions(ctx, []core.Transaction{
		{Date: "2026-02-01", Amount: decimal.RequireFromString("100"), Merchant: "Uber", Category: "Transport"},
		{Date: "2026-03-01", Amount: decimal.RequireFromString("55.55"), Merchant: "Rent Co", Category: "Rent"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := repo.AllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Chronological order.
	assert.Equal(t, "Starbucks", all[0].Merchant)
	assert.True(t, all[0].Amount.Equal(decimal.RequireFromString("12.34")))

	recent, err := repo.ListTransactions(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Rent Co", recent[0].Merchant)

	food, err := repo.ListTransactions(ctx, "Food", 10)
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, "Starbucks", food[0].Merchant)
}

func TestSQLiteRepository_SeededKeywords(t *testing.T) {
	repo := testRepo(t)

	rules, err := repo.KeywordRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 8)

	// Seed order is the configuration order.
	assert.Equal(t, "Food", rules[0].Name)
	assert.Contains(t, rules[0].Keywords, "starbucks")
	last := rules[len(rules)-1]
	assert.Equal(t, "Others", last.Name)
	assert.True(t, last.Fallback)
	assert.Empty(t, last.Keywords)

	// Seeded rules build a valid index.
	ix, err := core.NewKeywordIndex(rules)
	require.NoError(t, err)
	assert.Equal(t, "Others", ix.Fallback())
	assert.Equal(t, "Food", ix.CategoryFor("starbucks coffee"))
}

func TestSQLiteRepository_UpsertKeywords(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	// Whole-category replacement of an existing list.
	require.NoError(t, repo.UpsertKeywords(ctx, "Food", "pizza,sushi"))
	// New category appended at the end of the order.
	require.NoError(t, repo.UpsertKeywords(ctx, "Travel", "airbnb,flight"))

	rules, err := repo.KeywordRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 9)

	assert.Equal(t, "Food", rules[0].Name)
	assert.Equal(t, []string{"pizza", "sushi"}, rules[0].Keywords)
	assert.Equal(t, "Travel", rules[8].Name)
	assert.False(t, rules[8].Fallback)

	assert.ErrorIs(t, repo.UpsertKeywords(ctx, "  ", "x"), core.ErrEmptyCategory)
}

func TestSQLiteRepository_Budgets(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	budgets, err := repo.Budgets(ctx)
	require.NoError(t, err)
	assert.Empty(t, budgets)

	require.NoError(t, repo.UpsertBudget(ctx, "Food", decimal.RequireFromString("100")))
	require.NoError(t, repo.UpsertBudget(ctx, "Food", decimal.RequireFromString("150.50")))

	budgets, err = repo.Budgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.True(t, budgets["Food"].Equal(decimal.RequireFromString("150.50")))
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, SplitKeywords("a, b c ,,d,"))
	assert.Nil(t, SplitKeywords(""))
	assert.Nil(t, SplitKeywords(" , ,"))
}
