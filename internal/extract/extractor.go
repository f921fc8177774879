// Package extract turns statement PDF bytes into transactions. The heavy
// lifting is a per-page line scanner that walks the transaction table,
// carrying at most one in-progress transaction across page breaks.
//
// An Extractor holds per-file state (period year, footer totals), so each
// file gets its own instance; reusing one across files would leak one
// statement's totals into another's validation.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-sync/internal/classify"
	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/normalize"
	"github.com/dvloznov/statement-sync/internal/statement"
)

var (
	// ErrNoCLABE means page one carried no CLABE-shaped number at all.
	ErrNoCLABE = errors.New("no CLABE number found in statement")
	// ErrNoPeriod means the statement period line could not be located.
	ErrNoPeriod = errors.New("could not determine statement period")
)

// UnknownCLABEError reports a statement whose CLABE numbers are all absent
// from the account registry.
type UnknownCLABEError struct {
	Candidates []string
}

func (e *UnknownCLABEError) Error() string {
	return fmt.Sprintf("unknown CLABE number: %s", strings.Join(e.Candidates, ", "))
}

// Result is the outcome of parsing one statement file.
type Result struct {
	Filename     string
	CLABE        string
	AccountKey   string
	AccountType  string
	PeriodText   string
	PeriodYear   int
	PageCount    int
	Transactions []statement.Transaction
	// Totals holds the footer totals when the summary section was found,
	// nil otherwise. Consumed by the validator.
	Totals *statement.SummaryTotals
	Stats  Stats
}

// Stats summarizes a parse for status display.
type Stats struct {
	TotalTransactions int
	TotalDebits       decimal.Decimal
	TotalCredits      decimal.Decimal
	NetMovement       decimal.Decimal
	DateStart         string
	DateEnd           string
}

var (
	txnProbe    = regexp.MustCompile(`^(\d{1,2}/[A-Z]{3})\s+(\d{1,2}/[A-Z]{3})\s+([A-Z]+\d+)`)
	txnStart    = regexp.MustCompile(`^(\d{1,2}/[A-Z]{3})\s+(\d{1,2}/[A-Z]{3})\s+([A-Z]+\d+)\s+(.*)`)
	amountToken = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)
	clabeToken  = regexp.MustCompile(`\d{18}`)
	whitespace  = regexp.MustCompile(`\s+`)
	yearToken   = regexp.MustCompile(`\b(20\d{2})\b`)

	// The period line on page one, from strictest to loosest.
	periodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Periodo\s+DEL\s+(\d{1,2}/\d{1,2}/\d{4})\s+AL\s+(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)DEL\s+(\d{1,2}/\d{1,2}/\d{4})\s+AL\s+(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)Periodo.*?(\d{1,2}/\d{1,2}/\d{4}).*?(\d{1,2}/\d{1,2}/\d{4})`),
	}

	footerKeywords = []string{
		"Estimado Cliente", "Su Estado de Cuenta ha sido modificado",
		"También le informamos", "Con BBVA adelante", "La GAT Real",
		"BBVA MEXICO, S.A.", "Av. Paseo de la Reforma", "R.F.C.",
	}
	summaryKeywords = []string{
		"Total de Movimientos", "TOTAL IMPORTE CARGOS", "TOTAL IMPORTE ABONOS",
		"SALDO INICIAL", "SALDO FINAL", "TOTAL DE CARGOS", "TOTAL DE ABONOS",
	}
	skipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+/\d+$`),
		regexp.MustCompile(`(?i)^PAGINA\s+\d+`),
		regexp.MustCompile(`^[A-Z]{3}\s+\d{4}$`),
		regexp.MustCompile(`(?i)^Estado de Cuenta`),
		regexp.MustCompile(`(?i)^MAESTRA PYME BBVA`),
	}

	summaryDebits  = regexp.MustCompile(`TOTAL\s+IMPORTE\s+CARGOS\s+([\d,]+\.?\d*)\s+TOTAL\s+MOVIMIENTOS\s+CARGOS\s+(\d+)`)
	summaryCredits = regexp.MustCompile(`TOTAL\s+IMPORTE\s+ABONOS\s+([\d,]+\.?\d*)\s+TOTAL\s+MOVIMIENTOS\s+ABONOS\s+(\d+)`)
)

// Extractor parses one statement file. Create a fresh one per file.
type Extractor struct {
	rules classify.Rules

	periodYear int
	filename   string
	totals     *statement.SummaryTotals
}

// New returns an Extractor using the given classification rules.
func New(rules classify.Rules) *Extractor {
	return &Extractor{rules: rules}
}

// Parse extracts all transactions from statement PDF bytes.
func (e *Extractor) Parse(data []byte, filename string) (*Result, error) {
	pages, err := ExtractPages(data)
	if err != nil {
		return nil, err
	}
	return e.ParsePages(pages, filename)
}

// ParsePages runs the extraction over already-decoded page texts. Split out
// from Parse so the scanner can be driven with synthetic pages.
func (e *Extractor) ParsePages(pages []string, filename string) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	e.filename = filename
	e.totals = nil

	result := &Result{
		Filename:  filename,
		PageCount: len(pages),
	}
	if err := e.readHeader(pages[0], result); err != nil {
		return nil, err
	}
	e.periodYear = result.PeriodYear

	var (
		transactions []statement.Transaction
		pending      *statement.Transaction
	)
	for pageNum, page := range pages {
		var done bool
		transactions, pending, done = e.scanPage(page, pageNum+1, transactions, pending)
		if done {
			pending = nil
			break
		}
	}
	if pending != nil {
		transactions = append(transactions, *pending)
	}

	sortByOperationDate(transactions)
	result.Transactions = transactions
	result.Totals = e.totals
	result.Stats = buildStats(transactions)
	return result, nil
}

// readHeader pulls the CLABE and statement period off page one. Both are
// required: without them the file cannot be routed to an account or its
// dates given a year.
func (e *Extractor) readHeader(firstPage string, result *Result) error {
	candidates := clabeToken.FindAllString(firstPage, -1)
	if len(candidates) == 0 {
		return ErrNoCLABE
	}
	for _, candidate := range candidates {
		if account, ok := config.AccountByCLABE(candidate); ok {
			result.CLABE = candidate
			result.AccountKey = account.Key
			result.AccountType = account.AccountType
			break
		}
	}
	if result.CLABE == "" {
		return &UnknownCLABEError{Candidates: candidates}
	}

	for _, pattern := range periodPatterns {
		if m := pattern.FindStringSubmatch(firstPage); m != nil {
			result.PeriodText = fmt.Sprintf("DEL %s AL %s", m[1], m[2])
			break
		}
	}
	if result.PeriodText == "" {
		return ErrNoPeriod
	}
	ym := yearToken.FindStringSubmatch(result.PeriodText)
	if ym == nil {
		return ErrNoPeriod
	}
	result.PeriodYear, _ = strconv.Atoi(ym[1])
	return nil
}

// scanPage walks one page's lines. It returns the updated transaction list,
// the transaction still open at the end of the page, and whether a footer or
// summary marker ended the whole file.
func (e *Extractor) scanPage(page string, pageNum int, transactions []statement.Transaction, pending *statement.Transaction) ([]statement.Transaction, *statement.Transaction, bool) {
	lines := strings.Split(page, "\n")

	// A transaction open from the previous page keeps the scanner in the
	// table body, so its description continues before this page's header.
	inBody := pending != nil

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isTableHeader(line) {
			inBody = true
			continue
		}
		if isFooterLine(line) {
			// Footers only appear on the last page group; nothing after
			// them is transaction data.
			if pending != nil {
				transactions = append(transactions, *pending)
			}
			return transactions, nil, true
		}
		if isSummaryLine(line) {
			if pending != nil {
				transactions = append(transactions, *pending)
			}
			e.totals = scrapeSummaryTotals(lines[i:])
			return transactions, nil, true
		}

		if !inBody {
			continue
		}
		if txnProbe.MatchString(line) {
			if pending != nil {
				transactions = append(transactions, *pending)
			}
			pending = e.parseTransactionLine(line, pageNum)
			continue
		}
		if pending != nil && !shouldSkipLine(line) {
			pending.Description += "\n" + line
		}
	}
	return transactions, pending, false
}

func (e *Extractor) parseTransactionLine(line string, pageNum int) *statement.Transaction {
	m := txnStart.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	operDate, settleDate, code, rest := m[1], m[2], m[3], m[4]

	amounts := amountToken.FindAllString(rest, -1)

	// The description is the remainder with the rightmost occurrence of each
	// amount removed; removing leftmost would eat numbers that belong to the
	// description text (reference codes, invoice numbers).
	description := rest
	for j := len(amounts) - 1; j >= 0; j-- {
		if pos := strings.LastIndex(description, amounts[j]); pos != -1 {
			description = description[:pos] + description[pos+len(amounts[j]):]
		}
	}
	description = strings.TrimSpace(whitespace.ReplaceAllString(description, " "))

	var debit, credit decimal.Decimal
	if len(amounts) > 0 {
		debit, credit = e.rules.Split(code, description, normalize.ParseAmount(amounts[0]))
	}

	var balance, balanceSettlement decimal.Decimal
	if len(amounts) >= 3 {
		balance = normalize.ParseAmount(amounts[len(amounts)-2])
		balanceSettlement = normalize.ParseAmount(amounts[len(amounts)-1])
	} else if len(amounts) == 2 {
		balance = normalize.ParseAmount(amounts[1])
		balanceSettlement = balance
	}

	return &statement.Transaction{
		OperationDate:     normalize.ConvertSpanishDate(operDate, e.periodYear),
		SettlementDate:    normalize.ConvertSpanishDate(settleDate, e.periodYear),
		Code:              code,
		Description:       description,
		Debit:             debit,
		Credit:            credit,
		Balance:           balance,
		BalanceSettlement: balanceSettlement,
		SourceFile:        e.filename,
		SourcePage:        pageNum,
		RawLine:           line,
	}
}

func isTableHeader(line string) bool {
	upper := strings.ToUpper(line)
	return strings.Contains(upper, "OPER") && strings.Contains(upper, "LIQ") &&
		strings.Contains(upper, "COD") && strings.Contains(upper, "DESCRIPCIÓN")
}

func isFooterLine(line string) bool {
	for _, kw := range footerKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func isSummaryLine(line string) bool {
	for _, kw := range summaryKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func shouldSkipLine(line string) bool {
	for _, p := range skipPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// scrapeSummaryTotals reads the footer totals from the summary section. The
// two totals lines sit within a few lines of the summary marker; scanning
// further risks matching boilerplate on later statement variants.
func scrapeSummaryTotals(lines []string) *statement.SummaryTotals {
	var totals statement.SummaryTotals
	foundDebits, foundCredits := false, false

	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if m := summaryDebits.FindStringSubmatch(line); m != nil {
			totals.DebitAmount = normalize.ParseAmount(m[1])
			totals.DebitCount, _ = strconv.Atoi(m[2])
			foundDebits = true
		}
		if m := summaryCredits.FindStringSubmatch(line); m != nil {
			totals.CreditAmount = normalize.ParseAmount(m[1])
			totals.CreditCount, _ = strconv.Atoi(m[2])
			foundCredits = true
		}
		if foundDebits && foundCredits {
			break
		}
	}
	if !foundDebits && !foundCredits {
		return nil
	}
	return &totals
}

func sortByOperationDate(transactions []statement.Transaction) {
	// Stable so same-day transactions keep statement order.
	sort.SliceStable(transactions, func(i, j int) bool {
		return normalize.DateSortKey(transactions[i].OperationDate) < normalize.DateSortKey(transactions[j].OperationDate)
	})
}

func buildStats(transactions []statement.Transaction) Stats {
	stats := Stats{
		TotalTransactions: len(transactions),
		TotalDebits:       decimal.Zero,
		TotalCredits:      decimal.Zero,
		NetMovement:       decimal.Zero,
	}
	for _, t := range transactions {
		stats.TotalDebits = stats.TotalDebits.Add(t.Debit)
		stats.TotalCredits = stats.TotalCredits.Add(t.Credit)
		if t.OperationDate == "" {
			continue
		}
		if stats.DateStart == "" || t.OperationDate < stats.DateStart {
			stats.DateStart = t.OperationDate
		}
		if stats.DateEnd == "" || t.OperationDate > stats.DateEnd {
			stats.DateEnd = t.OperationDate
		}
	}
	stats.NetMovement = stats.TotalCredits.Sub(stats.TotalDebits)
	return stats
}
