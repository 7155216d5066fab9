package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"pocketpilot/internal/charts"
	"pocketpilot/internal/core"
	"pocketpilot/internal/importer"

	"github.com/shopspring/decimal"
)

const defaultListLimit = 200

// maxImportSize caps uploaded CSV files at 10MB.
const maxImportSize = 10 << 20

type transactionBody struct {
	Date     string      `json:"date"`
	Amount   json.Number `json:"amount"`
	Merchant string      `json:"merchant"`
	Note     string      `json:"note"`
}

type transactionView struct {
	ID       int64   `json:"id"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Merchant string  `json:"merchant"`
	Note     string  `json:"note"`
	Category string  `json:"category"`
}

func viewTransactions(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = transactionView{
			ID:       tx.ID,
			Date:     tx.Date,
			Amount:   tx.Amount.InexactFloat64(),
			Merchant: tx.Merchant,
			Note:     tx.Note,
			Category: tx.Category,
		}
	}
	return out
}

func parseAmount(raw json.Number) decimal.Decimal {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return decimal.Zero
	}
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return dec
}

// handleExpenses dispatches POST (add one transaction) and GET (list).
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createExpense(w, r)
	case http.MethodGet:
		s.listExpenses(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var body transactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.svc.AddTransaction(r.Context(), core.Transaction{
		Date:     strings.TrimSpace(body.Date),
		Amount:   parseAmount(body.Amount),
		Merchant: strings.TrimSpace(body.Merchant),
		Note:     strings.TrimSpace(body.Note),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to add transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"ok":       true,
		"id":       tx.ID,
		"category": tx.Category,
	})
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	limit := defaultListLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	txs, err := s.svc.List(r.Context(), category, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, viewTransactions(txs))
}

type categoryTotalView struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type monthPointView struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type alertView struct {
	Category  string  `json:"category"`
	Predicted float64 `json:"predicted"`
	Budget    float64 `json:"budget"`
}

type summaryView struct {
	TotalsByCategory []categoryTotalView `json:"totalsByCategory"`
	Recent           []transactionView   `json:"recent"`
	MonthSeries      []monthPointView    `json:"monthSeries"`
	Budgets          map[string]float64  `json:"budgets"`
	Keywords         map[string][]string `json:"keywords"`
	Alerts           []alertView         `json:"alerts"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	summary, err := s.svc.Summarize(r.Context(), s.recentLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build summary", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	view := summaryView{
		TotalsByCategory: make([]categoryTotalView, 0, len(summary.TotalsByCategory)),
		Recent:           viewTransactions(summary.Recent),
		MonthSeries:      make([]monthPointView, 0, len(summary.MonthSeries)),
		Budgets:          make(map[string]float64, len(summary.Budgets)),
		Keywords:         make(map[string][]string, len(summary.Keywords)),
		Alerts:           make([]alertView, 0, len(summary.Alerts)),
	}
	for _, t := range summary.TotalsByCategory {
		view.TotalsByCategory = append(view.TotalsByCategory, categoryTotalView{
			Category: t.Category,
			Value:    t.Total.Round(2).InexactFloat64(),
		})
	}
	for _, pt := range summary.MonthSeries {
		view.MonthSeries = append(view.MonthSeries, monthPointView{
			Month: pt.Period.String(),
			Total: pt.Amount.Round(2).InexactFloat64(),
		})
	}
	for cat, amount := range summary.Budgets {
		view.Budgets[cat] = amount.Round(2).InexactFloat64()
	}
	for _, rule := range summary.Keywords {
		kws := rule.Keywords
		if kws == nil {
			kws = []string{}
		}
		view.Keywords[rule.Name] = kws
	}
	for _, alert := range summary.Alerts {
		view.Alerts = append(view.Alerts, alertView{
			Category:  alert.Category,
			Predicted: alert.Predicted.InexactFloat64(),
			Budget:    alert.Budget.Round(2).InexactFloat64(),
		})
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	series, forecast, err := s.svc.MonthlyTrend(r.Context(), s.predictHorizon)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build monthly trend", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to build chart")
		return
	}

	png, err := charts.MonthlyTrend(series, forecast)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to render chart", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	if png == nil {
		respondError(w, http.StatusNotFound, "not enough data to draw a trend")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	txs, err := importer.Parse(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid CSV: "+err.Error())
		return
	}

	count, err := s.svc.Import(r.Context(), txs)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to import transactions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to import transactions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"imported": count})
}

type budgetBody struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var body budgetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category := strings.TrimSpace(body.Category)
	if category == "" {
		respondError(w, http.StatusUnprocessableEntity, "category is required")
		return
	}
	amount := parseAmount(body.Amount)
	if amount.IsNegative() {
		respondError(w, http.StatusUnprocessableEntity, "budget amount cannot be negative")
		return
	}

	if err := s.svc.ReplaceBudget(r.Context(), category, amount); err != nil {
		slog.ErrorContext(r.Context(), "Failed to set budget", "error", err, "category", category)
		respondError(w, http.StatusInternalServerError, "failed to set budget")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"category": category,
		"amount":   amount.Round(2).InexactFloat64(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	horizon := s.predictHorizon
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24 {
			horizon = n
		}
	}

	preds, err := s.svc.Predict(r.Context(), horizon)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to predict", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to predict")
		return
	}

	view := make(map[string][]float64, len(preds))
	for cat, values := range preds {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = v.InexactFloat64()
		}
		view[cat] = out
	}
	respondJSON(w, http.StatusOK, view)
}

type keywordsBody struct {
	Category string `json:"category"`
	Keywords string `json:"keywords"`
}

// handleKeywords dispatches GET (current keyword map) and POST
// (whole-category replacement of one keyword list).
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.svc.Keywords(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to load keywords", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to load keywords")
			return
		}
		view := make(map[string][]string, len(rules))
		for _, rule := range rules {
			kws := rule.Keywords
			if kws == nil {
				kws = []string{}
			}
			view[rule.Name] = kws
		}
		respondJSON(w, http.StatusOK, view)

	case http.MethodPost:
		var body keywordsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		category := strings.TrimSpace(body.Category)
		if category == "" {
			respondError(w, http.StatusUnprocessableEntity, "category is required")
			return
		}
		if err := s.svc.ReplaceKeywords(r.Context(), category, body.Keywords); err != nil {
			slog.ErrorContext(r.Context(), "Failed to update keywords", "error", err, "category", category)
			respondError(w, http.StatusInternalServerError, "failed to update keywords")
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}
