package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/plantool/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want domain.MonetaryAmount
	}{
		{"eok and cheonman", "3억 5천만", 350_000_000},
		{"lone cheon reads thousand-won units", "5천", 5_000_000},
		{"one cheon reads thousand-won units", "1천", 1_000_000},
		{"bare cheon reads thousand-won units", "천", 1_000_000},
		{"decimal cheon reads thousand-won units", "1.5천", 1_500_000},
		{"explicit won keeps cheon literal", "5천원", 5_000},
		{"bare cheon with won", "천원", 1_000},
		{"cheon with won and spaces", "5 천 원", 5_000},
		{"plain int", 120000, 120_000},
		{"int64", int64(42), 42},
		{"float truncated", 1234.9, 1234},
		{"json number", json.Number("700000000"), 700_000_000},
		{"digits with separators and suffix", "120,000원", 120_000},
		{"eok only", "7억", 700_000_000},
		{"cheonman only", "3천만", 30_000_000},
		{"man with digit prefix", "2000만", 20_000_000},
		{"composed man prefix", "3천5백만", 35_000_000},
		{"eok with composed man prefix", "1억 3천5백만", 135_000_000},
		{"man then cheon", "12만5천", 125_000},
		{"trailing digits", "1억 45", 100_000_045},
		{"empty prefix defaults to one", "억", 100_000_000},
		{"decimal prefix", "1.5억", 150_000_000},
		{"won sign", "₩5000", 5000},
		{"spaces everywhere", " 2 억 ", 200_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind domain.Kind
	}{
		{"nil", nil, domain.KindParse},
		{"empty", "", domain.KindParse},
		{"garbage", "많이", domain.KindParse},
		{"garbage remainder", "3억 정도", domain.KindParse},
		{"bad prefix", "삼억", domain.KindParse},
		{"negative int", -5, domain.KindRange},
		{"negative text", "-3억", domain.KindRange},
		{"nan", math.NaN(), domain.KindParse},
		{"bool", true, domain.KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAmount(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestParseAmount_NumericIsIdempotent(t *testing.T) {
	first, err := ParseAmount("3억 5천만")
	require.NoError(t, err)
	second, err := ParseAmount(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFormatAmount_RoundTrip(t *testing.T) {
	values := []domain.MonetaryAmount{
		0, 7, 999, 1000, 5000, 9999, 10_000, 15_000, 15_045, 120_000, 1_000_000, 5_000_000,
		10_000_000, 35_000_000, 100_000_000, 100_000_045, 135_001_000, 350_000_000, 1_234_567_891,
	}
	for step := domain.MonetaryAmount(1); step < 10_000_000_000; step *= 7 {
		values = append(values, step, step+1_000, step*3+10_000)
	}
	for _, n := range values {
		text := FormatAmount(n)
		got, err := ParseAmount(text)
		require.NoError(t, err, "rendering %q of %d", text, n)
		assert.Equal(t, n, got, "rendering %q", text)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "3억 5000만", FormatAmount(350_000_000))
	assert.Equal(t, "1만 5천", FormatAmount(15_000))
	assert.Equal(t, "4500", FormatAmount(4500))
}
