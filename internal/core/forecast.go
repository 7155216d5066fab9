package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// Forecast predicts the next horizon monthly totals for a series using
// ordinary least squares over the point index (x = 1..n). Gaps between
// months carry no weight; only the position in the series matters.
//
// An empty series forecasts zeros. A degenerate regression (denominator
// exactly zero, e.g. a single observation) forecasts the flat mean. Every
// prediction is clamped to zero when negative or non-finite and rounded to
// two decimal places, so the result is deterministic for a given series.
func Forecast(series CategorySeries, horizon int) []decimal.Decimal {
	if horizon <= 0 {
		return nil
	}
	out := make([]decimal.Decimal, 0, horizon)
	n := len(series)
	if n == 0 {
		for k := 0; k < horizon; k++ {
			out = append(out, decimal.Zero)
		}
		return out
	}

	var sumX, sumY, sumXX, sumXY float64
	for i, pt := range series {
		x := float64(i + 1)
		y := pt.Amount.InexactFloat64()
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		mean := clamp(sumY / fn)
		for k := 0; k < horizon; k++ {
			out = append(out, round2(mean))
		}
		return out
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	for k := 1; k <= horizon; k++ {
		x := fn + float64(k)
		out = append(out, round2(clamp(intercept+slope*x)))
	}
	return out
}

// clamp floors predictions at zero; spending forecasts are never negative.
func clamp(y float64) float64 {
	if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
		return 0
	}
	return y
}

func round2(y float64) decimal.Decimal {
	return decimal.NewFromFloat(y).Round(2)
}

// EvaluateBudgets forecasts the next period for every category with a
// series and emits an alert when the prediction exceeds that category's
// budget. Categories without a series never alert even when budgeted;
// categories without a budget never alert regardless of predicted spend.
// The order of returned alerts is unspecified.
func EvaluateBudgets(perCategory map[string]CategorySeries, budgets map[string]decimal.Decimal) []Alert {
	var alerts []Alert
	for cat, series := range perCategory {
		budget, budgeted := budgets[cat]
		if !budgeted {
			continue
		}
		preds := Forecast(series, 1)
		if len(preds) == 0 {
			continue
		}
		if preds[0].GreaterThan(budget) {
			alerts = append(alerts, Alert{Category: cat, Predicted: preds[0], Budget: budget})
		}
	}
	return alerts
}
