package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"thousands with decimals", "1,234.56", "1234.56"},
		{"comma as decimal point", "1234,56", "1234.56"},
		{"plain integer", "5000", "5000"},
		{"plain decimal", "123.45", "123.45"},
		{"large thousands", "1,234,567.89", "1234567.89"},
		{"negative", "-1,500.00", "-1500"},
		{"currency prefix stripped", "$ 2,500.00", "2500"},
		{"trailing whitespace", " 750.25 ", "750.25"},
		{"empty string", "", "0"},
		{"letters only", "abc", "0"},
		{"lone dash", "-", "0"},
		{"comma thousands no decimals", "1,234", "1234"},
		{"three digits after comma", "1,234", "1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tc.want)
			assert.NoError(t, err)
			got := ParseAmount(tc.in)
			assert.True(t, got.Equal(want), "ParseAmount(%q) = %s, want %s", tc.in, got, want)
		})
	}
}

func TestParseAmountZeroIsZero(t *testing.T) {
	assert.True(t, ParseAmount("0.00").IsZero())
	assert.True(t, ParseAmount("garbage").IsZero())
}

func TestConvertSpanishDate(t *testing.T) {
	cases := []struct {
		in   string
		year int
		want string
	}{
		{"15/ENE", 2025, "01/15/2025"},
		{"01/DIC", 2024, "12/01/2024"},
		{"5/MAR", 2025, "03/05/2025"},
		{"31/AGO", 2025, "08/31/2025"},
		{"10/sep", 2025, "09/10/2025"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ConvertSpanishDate(tc.in, tc.year))
	}
}

func TestConvertSpanishDatePassthrough(t *testing.T) {
	// Unrecognized shapes come back unchanged.
	assert.Equal(t, "15/XXX", ConvertSpanishDate("15/XXX", 2025))
	assert.Equal(t, "not a date", ConvertSpanishDate("not a date", 2025))
	assert.Equal(t, "", ConvertSpanishDate("", 2025))
}

func TestDateSortKey(t *testing.T) {
	assert.Equal(t, "20250115", DateSortKey("01/15/2025"))
	assert.Equal(t, "20241201", DateSortKey("12/01/2024"))
	assert.Equal(t, "20250305", DateSortKey("3/5/2025"))
	assert.Equal(t, "raw", DateSortKey("raw"))
}

func TestDateSortKeyOrdersAcrossYears(t *testing.T) {
	assert.Less(t, DateSortKey("12/31/2024"), DateSortKey("01/01/2025"))
}
