package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pocketpilot/internal/core"
	"pocketpilot/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory services.Store for handler tests.
type memStore struct {
	mu      sync.Mutex
	txs     []core.Transaction
	rules   []core.CategoryRule
	budgets map[string]decimal.Decimal
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{
		rules: []core.CategoryRule{
			{Name: "Food", Keywords: []string{"starbucks", "cafe"}},
			{Name: "Transport", Keywords: []string{"uber", "taxi"}},
			{Name: "Others", Fallback: true},
		},
		budgets: make(map[string]decimal.Decimal),
		nextID:  1,
	}
}

func (m *memStore) SaveTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = m.nextID
	m.nextID++
	m.txs = append(m.txs, tx)
	return tx.ID, nil
}

func (m *memStore) SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	for _, tx := range txs {
		if _, err := m.SaveTransaction(ctx, tx); err != nil {
			return 0, err
		}
	}
	return len(txs), nil
}

func (m *memStore) ListTransactions(_ context.Context, category string, limit int) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if category == "" || m.txs[i].Category == category {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memStore) AllTransactions(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, len(m.txs))
	copy(out, m.txs)
	return out, nil
}

func (m *memStore) KeywordRules(_ context.Context) ([]core.CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.CategoryRule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *memStore) UpsertKeywords(_ context.Context, category, keywords string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kws []string
	for _, kw := range strings.Split(keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	for i, r := range m.rules {
		if r.Name == category {
			m.rules[i].Keywords = kws
			return nil
		}
	}
	m.rules = append(m.rules, core.CategoryRule{Name: category, Keywords: kws})
	return nil
}

func (m *memStore) Budgets(_ context.Context) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(m.budgets))
	for k, v := range m.budgets {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) UpsertBudget(_ context.Context, category string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[category] = amount
	return nil
}

func testServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := services.NewReportService(store, nil)
	srv := NewServer(":0", svc, 3, 50)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	srv, store := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/expenses", map[string]any{
		"date":     "2026-01-10",
		"amount":   12.5,
		"merchant": "Starbucks Reserve",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "Food", resp["category"])

	txs, err := store.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Food", txs[0].Category)
}

func TestCreateExpense_BadBody(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListExpenses(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()

	_, err := store.SaveTransaction(ctx, core.Transaction{
		Date: "2026-01-10", Amount: decimal.NewFromInt(10), Merchant: "Starbucks", Category: "Food",
	})
	require.NoError(t, err)
	_, err = store.SaveTransaction(ctx, core.Transaction{
		Date: "2026-01-11", Amount: decimal.NewFromInt(20), Merchant: "Uber", Category: "Transport",
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []transactionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = doJSON(t, srv, http.MethodGet, "/expenses?category=Food", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var food []transactionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &food))
	require.Len(t, food, 1)
	assert.Equal(t, "Starbucks", food[0].Merchant)
}

func TestSummary(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{Date: "2026-01-10", Amount: decimal.NewFromInt(120), Merchant: "Starbucks"},
		{Date: "2026-02-10", Amount: decimal.NewFromInt(120), Merchant: "Cafe Blue"},
	}
	for _, tx := range seed {
		_, err := store.SaveTransaction(ctx, tx)
		require.NoError(t, err)
	}
	require.NoError(t, store.UpsertBudget(ctx, "Food", decimal.NewFromInt(100)))

	rec := doJSON(t, srv, http.MethodGet, "/expenses/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view summaryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	require.Len(t, view.TotalsByCategory, 1)
	assert.Equal(t, "Food", view.TotalsByCategory[0].Category)
	assert.InDelta(t, 240, view.TotalsByCategory[0].Value, 0.001)

	require.Len(t, view.MonthSeries, 2)
	assert.Equal(t, "2026-01", view.MonthSeries[0].Month)

	require.Len(t, view.Alerts, 1)
	assert.Equal(t, "Food", view.Alerts[0].Category)
	assert.InDelta(t, 120, view.Alerts[0].Predicted, 0.001)
	assert.InDelta(t, 100, view.Alerts[0].Budget, 0.001)

	assert.Contains(t, view.Keywords, "Others")
	assert.InDelta(t, 100, view.Budgets["Food"], 0.001)
}

func TestImportCSV(t *testing.T) {
	srv, store := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("date,amount,description\n2026-01-10,42.42,Uber trip\n2026-01-11,7,corner cafe\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["imported"])

	txs, err := store.AllTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Transport", txs[0].Category)
	assert.Equal(t, "Food", txs[1].Category)
}

func TestImport_MissingFile(t *testing.T) {
	srv, _ := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgets(t *testing.T) {
	srv, store := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/budgets", map[string]any{
		"category": "Food",
		"amount":   150.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	budgets, err := store.Budgets(context.Background())
	require.NoError(t, err)
	assert.True(t, budgets["Food"].Equal(decimal.RequireFromString("150.5")))

	rec = doJSON(t, srv, http.MethodPost, "/budgets", map[string]any{
		"category": "Food",
		"amount":   -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/budgets", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPredict(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{Date: "2026-01-15", Amount: decimal.NewFromInt(100), Merchant: "cafe one"},
		{Date: "2026-02-15", Amount: decimal.NewFromInt(200), Merchant: "cafe two"},
	}
	for _, tx := range seed {
		_, err := store.SaveTransaction(ctx, tx)
		require.NoError(t, err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/predict?months=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var preds map[string][]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preds))
	require.Contains(t, preds, "Food")
	require.Len(t, preds["Food"], 2)
	assert.InDelta(t, 300, preds["Food"][0], 0.001)
	assert.InDelta(t, 400, preds["Food"][1], 0.001)
}

func TestKeywords(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/keywords", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Contains(t, view, "Food")
	assert.Equal(t, []string{}, view["Others"])

	rec = doJSON(t, srv, http.MethodPost, "/keywords", map[string]string{
		"category": "Food",
		"keywords": "pizza,sushi",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/keywords", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, []string{"pizza", "sushi"}, view["Food"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodDelete, "/expenses", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))

	rec = doJSON(t, srv, http.MethodPost, "/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
