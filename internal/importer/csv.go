// Package importer decodes uploaded CSV statements into transactions.
//
// Column headers are matched case-insensitively and common bank-export
// aliases are accepted: date/transaction_date, amount/value, and
// merchant/description. Unknown columns are ignored.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"pocketpilot/internal/core"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var ErrEmptyFile = errors.New("empty CSV file")

// headerAliases maps accepted column names to the canonical ones the row
// struct decodes.
var headerAliases = map[string]string{
	"date":             "date",
	"transaction_date": "date",
	"amount":           "amount",
	"value":            "amount",
	"merchant":         "merchant",
	"description":      "merchant",
	"note":             "note",
}

type row struct {
	Date     string `csv:"date"`
	Amount   string `csv:"amount"`
	Merchant string `csv:"merchant"`
	Note     string `csv:"note"`
}

// Parse decodes a CSV stream into transactions. A row with a missing or
// non-numeric amount is taken as zero; dates are passed through raw and
// resolved by the aggregation layer.
func Parse(r io.Reader) ([]core.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	normalized, err := normalizeHeader(data)
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := gocsv.UnmarshalBytes(normalized, &rows); err != nil {
		return nil, fmt.Errorf("decode CSV: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, rec := range rows {
		amount := decimal.Zero
		if raw := strings.TrimSpace(rec.Amount); raw != "" {
			if dec, err := decimal.NewFromString(raw); err == nil {
				amount = dec
			}
		}
		out = append(out, core.Transaction{
			Date:     strings.TrimSpace(rec.Date),
			Amount:   amount,
			Merchant: strings.TrimSpace(rec.Merchant),
			Note:     strings.TrimSpace(rec.Note),
		})
	}
	return out, nil
}

// normalizeHeader rewrites the header record to canonical column names so
// gocsv can bind aliased exports to one row struct.
func normalizeHeader(data []byte) ([]byte, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			header[i] = canonical
		} else {
			header[i] = key
		}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("rewrite CSV header: %w", err)
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV record: %w", err)
		}
		// Pad short rows so every record binds against the full header.
		for len(record) < len(header) {
			record = append(record, "")
		}
		if len(record) > len(header) {
			record = record[:len(header)]
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("rewrite CSV record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
