// Package classify decides whether a statement transaction is a debit or a
// credit. BBVA prints cargo and abono amounts in overlapping columns, so the
// direction has to be recovered from the operation code and, when the code is
// ambiguous or unknown, from keywords in the description.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the side of the account a transaction moves money on.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// AmbiguousRule resolves codes that BBVA uses for both directions. Outgoing
// keywords are checked before incoming ones so that descriptions mentioning
// both ("TRANSFERENCIA A ... SPEI RECIBIDO") resolve as outgoing.
type AmbiguousRule struct {
	OutgoingKeywords []string
	IncomingKeywords []string
	Default          Direction
}

// Rules is the classification table for one bank. All lookups are
// case-sensitive on codes and case-insensitive on description keywords.
type Rules struct {
	Ambiguous map[string]AmbiguousRule
	Credit    map[string]struct{}
	Debit     map[string]struct{}

	// Description keywords, tried only when the code is unknown.
	CreditKeywords []string
	DebitKeywords  []string

	// Fallback when nothing matches.
	Default Direction
}

// DefaultRules returns the classification table for BBVA Mexico statements.
func DefaultRules() Rules {
	return Rules{
		Ambiguous: map[string]AmbiguousRule{
			// W42 covers SPEI in both directions.
			"W42": {
				OutgoingKeywords: []string{
					"ENVIADO", "SALIDA", "PAGO A", "TRANSFERENCIA A",
					"TRASPASO A TERCEROS", "DEBITO", "CARGO",
				},
				IncomingKeywords: []string{
					"RECIBIDO", "INGRESO", "CAPITAL", "SAMX", "BMRCASH",
					"CREDITO", "ABONO", "ENTRADA",
				},
				Default: Credit,
			},
		},
		Credit: codeSet(
			"T20", "W42", "E57",
			"D01", "D02", "D03", "D04", "D05",
			"T21", "T22", "W40", "W41", "W43",
		),
		Debit: codeSet(
			"C49", "C50", "W83", "W84", "W85", "W86", "T17", "E62",
		),
		CreditKeywords: []string{
			"ABONO", "DEPOSITO", "RECIBIDO", "INGRESO", "ENTRADA",
			"DEVOLUCION", "INTERES", "RENDIMIENTO",
		},
		DebitKeywords: []string{
			"CARGO", "RETIRO", "ENVIADO", "PAGO", "COMISION",
			"COMPRA", "TRASPASO", "IVA", "IMPUESTO",
		},
		Default: Debit,
	}
}

// Classify returns the direction for a transaction given its operation code
// and description. Ambiguous codes win over the plain code tables, the code
// tables win over description keywords, and unmatched transactions fall back
// to the table default.
func (r Rules) Classify(code, description string) Direction {
	desc := strings.ToUpper(description)

	if rule, ok := r.Ambiguous[code]; ok {
		for _, kw := range rule.OutgoingKeywords {
			if strings.Contains(desc, kw) {
				return Debit
			}
		}
		for _, kw := range rule.IncomingKeywords {
			if strings.Contains(desc, kw) {
				return Credit
			}
		}
		return rule.Default
	}
	if _, ok := r.Credit[code]; ok {
		return Credit
	}
	if _, ok := r.Debit[code]; ok {
		return Debit
	}

	for _, kw := range r.CreditKeywords {
		if strings.Contains(desc, kw) {
			return Credit
		}
	}
	for _, kw := range r.DebitKeywords {
		if strings.Contains(desc, kw) {
			return Debit
		}
	}
	return r.Default
}

// Split assigns an amount to the debit or credit side per Classify. A zero
// amount lands on neither side.
func (r Rules) Split(code, description string, amount decimal.Decimal) (debit, credit decimal.Decimal) {
	if amount.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	if r.Classify(code, description) == Debit {
		return amount, decimal.Zero
	}
	return decimal.Zero, amount
}

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
