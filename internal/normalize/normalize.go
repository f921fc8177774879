// Package normalize converts the locale-specific amount and date strings
// printed on statements into canonical decimal and date forms. Both
// conversions fail soft: unparseable input yields a zero amount or the
// original string, never an error, because the extractor also runs them over
// non-monetary footer text.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^\d,.\-]`)

// ParseAmount parses a statement amount string such as "1,234.56".
//
// Comma handling is heuristic: a comma with no period and exactly two
// trailing digits is read as a decimal point ("1234,56" → 1234.56);
// otherwise commas are thousands separators and are stripped. The heuristic
// misreads the rare "12,34" that genuinely means 1234 — a known trade-off
// carried over from the observed statement layouts, kept rather than fixed.
//
// Empty or unparseable input returns zero.
func ParseAmount(raw string) decimal.Decimal {
	cleaned := nonAmountChars.ReplaceAllString(raw, "")
	if cleaned == "" || cleaned == "-" || cleaned == "." || cleaned == "," {
		return decimal.Zero
	}

	hasComma := strings.Contains(cleaned, ",")
	hasPeriod := strings.Contains(cleaned, ".")
	switch {
	case hasComma && !hasPeriod:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma && hasPeriod:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// spanishMonths maps the month abbreviations BBVA prints to month numbers.
var spanishMonths = map[string]string{
	"ENE": "01", "FEB": "02", "MAR": "03", "ABR": "04",
	"MAY": "05", "JUN": "06", "JUL": "07", "AGO": "08",
	"SEP": "09", "OCT": "10", "NOV": "11", "DIC": "12",
}

// ConvertSpanishDate converts a DD/MMM statement date (e.g. "15/ENE") into
// MM/DD/YYYY using the given statement year. Unrecognized input is returned
// unchanged so downstream code must tolerate unconverted dates.
func ConvertSpanishDate(dateStr string, year int) string {
	day, monthAbbr, ok := strings.Cut(dateStr, "/")
	if !ok {
		return dateStr
	}
	month, ok := spanishMonths[strings.ToUpper(monthAbbr)]
	if !ok {
		return dateStr
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s/%s/%d", month, day, year)
}

// DateSortKey builds a sortable YYYYMMDD key from an MM/DD/YYYY date.
// Dates in any other shape sort by their literal text, which keeps
// unconverted dates deterministic without special-casing them.
func DateSortKey(date string) string {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return date
	}
	month, day, year := parts[0], parts[1], parts[2]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + month + day
}
