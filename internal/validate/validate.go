// Package validate cross-checks extracted transactions against the totals
// the bank prints in the statement footer. Validation is advisory: a
// mismatch is surfaced for operators to triage, never used to block
// persisting the extracted data, because a missed footer pattern must not
// throw away an otherwise good parse.
package validate

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-sync/internal/statement"
)

// Discrepancy types.
const (
	TypeDebitAmount  = "debit_amount"
	TypeDebitCount   = "debit_count"
	TypeCreditAmount = "credit_amount"
	TypeCreditCount  = "credit_count"
)

// Discrepancy is one mismatch between the statement footer and the parse.
type Discrepancy struct {
	Type       string          `json:"type"`
	Statement  decimal.Decimal `json:"statement_value"`
	Parsed     decimal.Decimal `json:"parsed_value"`
	Difference decimal.Decimal `json:"difference"`
}

// Result reports each of the four footer checks independently so a partial
// mismatch still tells operators which side drifted.
type Result struct {
	TotalsFound       bool
	DebitAmountMatch  bool
	DebitCountMatch   bool
	CreditAmountMatch bool
	CreditCountMatch  bool
	OverallValid      bool
	Discrepancies     []Discrepancy
	StatementTotals   statement.SummaryTotals
	ParsedTotals      statement.SummaryTotals
}

// Status returns "unknown", "valid" or "invalid" for display.
func (r Result) Status() string {
	if !r.TotalsFound {
		return "unknown"
	}
	if r.OverallValid {
		return "valid"
	}
	return "invalid"
}

// Validate compares the parsed transactions with the statement's footer
// totals. Amounts match within the given absolute tolerance; counts must
// match exactly. A nil totals (footer not found) yields TotalsFound=false
// with every match flag false.
func Validate(transactions []statement.Transaction, totals *statement.SummaryTotals, tolerance decimal.Decimal) Result {
	result := Result{ParsedTotals: parsedTotals(transactions)}
	if totals == nil {
		return result
	}
	result.TotalsFound = true
	result.StatementTotals = *totals

	parsed := result.ParsedTotals

	debitDiff := parsed.DebitAmount.Sub(totals.DebitAmount).Abs()
	result.DebitAmountMatch = debitDiff.LessThanOrEqual(tolerance)
	if !result.DebitAmountMatch {
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Type:       TypeDebitAmount,
			Statement:  totals.DebitAmount,
			Parsed:     parsed.DebitAmount,
			Difference: debitDiff,
		})
	}
	if result.DebitCountMatch = parsed.DebitCount == totals.DebitCount; !result.DebitCountMatch {
		result.Discrepancies = append(result.Discrepancies, countDiscrepancy(TypeDebitCount, totals.DebitCount, parsed.DebitCount))
	}

	creditDiff := parsed.CreditAmount.Sub(totals.CreditAmount).Abs()
	result.CreditAmountMatch = creditDiff.LessThanOrEqual(tolerance)
	if !result.CreditAmountMatch {
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Type:       TypeCreditAmount,
			Statement:  totals.CreditAmount,
			Parsed:     parsed.CreditAmount,
			Difference: creditDiff,
		})
	}
	if result.CreditCountMatch = parsed.CreditCount == totals.CreditCount; !result.CreditCountMatch {
		result.Discrepancies = append(result.Discrepancies, countDiscrepancy(TypeCreditCount, totals.CreditCount, parsed.CreditCount))
	}

	result.OverallValid = result.DebitAmountMatch && result.DebitCountMatch &&
		result.CreditAmountMatch && result.CreditCountMatch
	return result
}

func parsedTotals(transactions []statement.Transaction) statement.SummaryTotals {
	totals := statement.SummaryTotals{
		DebitAmount:  decimal.Zero,
		CreditAmount: decimal.Zero,
	}
	for _, t := range transactions {
		totals.DebitAmount = totals.DebitAmount.Add(t.Debit)
		totals.CreditAmount = totals.CreditAmount.Add(t.Credit)
		if t.Debit.IsPositive() {
			totals.DebitCount++
		}
		if t.Credit.IsPositive() {
			totals.CreditCount++
		}
	}
	return totals
}

func countDiscrepancy(kind string, fromStatement, parsed int) Discrepancy {
	s := decimal.NewFromInt(int64(fromStatement))
	p := decimal.NewFromInt(int64(parsed))
	return Discrepancy{Type: kind, Statement: s, Parsed: p, Difference: p.Sub(s).Abs()}
}
