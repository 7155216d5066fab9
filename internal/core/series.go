package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ParseWhen parses an ISO-8601-like timestamp. A missing or malformed value
// substitutes now() and reports ok=false so callers can observe the fallback.
func ParseWhen(raw string, now func() time.Time) (t time.Time, ok bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return now(), false
}

// Aggregate buckets transactions into per-category monthly series.
//
// Each transaction's category is re-derived from the current index and its
// period from its date (malformed dates bucket under now()). Every
// transaction lands in exactly one bucket, so the sum over all series equals
// the sum of all transaction amounts.
func Aggregate(txs []Transaction, ix *KeywordIndex, now func() time.Time) map[string]CategorySeries {
	buckets := make(map[string]map[Period]decimal.Decimal)
	for _, tx := range txs {
		cat := ix.Categorize(tx)
		when, _ := ParseWhen(tx.Date, now)
		p := PeriodOf(when)
		if buckets[cat] == nil {
			buckets[cat] = make(map[Period]decimal.Decimal)
		}
		buckets[cat][p] = buckets[cat][p].Add(tx.Amount)
	}

	out := make(map[string]CategorySeries, len(buckets))
	for cat, months := range buckets {
		series := make(CategorySeries, 0, len(months))
		for p, amount := range months {
			series = append(series, SeriesPoint{Period: p, Amount: amount})
		}
		sort.Slice(series, func(i, j int) bool {
			return series[i].Period.Before(series[j].Period)
		})
		out[cat] = series
	}
	return out
}

// Combined collapses per-category series into a single chronological
// monthly series across all categories.
func Combined(perCategory map[string]CategorySeries) CategorySeries {
	months := make(map[Period]decimal.Decimal)
	for _, series := range perCategory {
		for _, pt := range series {
			months[pt.Period] = months[pt.Period].Add(pt.Amount)
		}
	}
	out := make(CategorySeries, 0, len(months))
	for p, amount := range months {
		out = append(out, SeriesPoint{Period: p, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Before(out[j].Period)
	})
	return out
}

// Totals sums each category's series into a single amount.
func Totals(perCategory map[string]CategorySeries) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(perCategory))
	for cat, series := range perCategory {
		total := decimal.Zero
		for _, pt := range series {
			total = total.Add(pt.Amount)
		}
		out[cat] = total
	}
	return out
}
