package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want int
	}{
		{
			name: "canonical headers",
			csv:  "date,amount,merchant,note\n2026-01-10,12.34,Starbucks,latte\n",
			want: 1,
		},
		{
			name: "aliased headers",
			csv:  "transaction_date,value,description\n2026-01-10,99.99,UBER TRIP\n",
			want: 1,
		},
		{
			name: "mixed case headers",
			csv:  "Date,Amount,Merchant\n2026-02-01,5,Cafe\n",
			want: 1,
		},
		{
			name: "unknown columns ignored",
			csv:  "date,amount,merchant,balance\n2026-02-01,5,Cafe,1000\n",
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := Parse(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assert.Len(t, txs, tt.want)
		})
	}
}

func TestParse_Values(t *testing.T) {
	csvData := "transaction_date,value,description\n" +
		"2026-01-10,150.75,BigBasket Order\n" +
		"2026-01-11,,Missing Amount\n" +
		"2026-01-12,not-a-number,Bad Amount\n"

	txs, err := Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, "2026-01-10", txs[0].Date)
	assert.Equal(t, "BigBasket Order", txs[0].Merchant)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("150.75")))

	// Missing and malformed amounts decode as zero.
	assert.True(t, txs[1].Amount.IsZero())
	assert.True(t, txs[2].Amount.IsZero())
}

func TestParse_ShortRows(t *testing.T) {
	csvData := "date,amount,merchant,note\n2026-01-10,10\n"

	txs, err := Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Merchant)
	assert.Empty(t, txs[0].Note)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	txs, err := Parse(strings.NewReader("date,amount,merchant\n"))
	require.NoError(t, err)
	assert.Empty(t, txs)
}
