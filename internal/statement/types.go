// Package statement defines the records shared by the parsing and
// synchronization components: extracted transactions, the per-account
// persisted database, and the parse tracking map.
package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one extracted statement movement. Amounts are kept as
// decimals; exactly one of Debit/Credit is expected to be nonzero, but a
// degenerate both-zero transaction stays representable.
type Transaction struct {
	// OperationDate and SettlementDate are MM/DD/YYYY strings in the
	// statement's local calendar. Dates the normalizer could not convert
	// are carried through unchanged.
	OperationDate  string `json:"date"`
	SettlementDate string `json:"date_liq"`

	// Code is the transaction-type code printed on the statement (e.g. T20).
	// Empty when the statement did not print one.
	Code string `json:"code"`

	// Description is free text; continuation lines from the source are
	// joined with newlines.
	Description string `json:"description"`

	Debit  decimal.Decimal `json:"cargo"`
	Credit decimal.Decimal `json:"abono"`

	// Balance and BalanceSettlement duplicate each other when the source
	// prints a single balance column.
	Balance           decimal.Decimal `json:"saldo"`
	BalanceSettlement decimal.Decimal `json:"saldo_liq"`

	// SourceFile is the current filename the transaction came from. It is
	// the join key the synchronizer matches on and must always reflect the
	// real filename, never a path captured at parse time.
	SourceFile string `json:"file_source"`

	// SourcePage is the 1-based page within the source file, kept for audit.
	SourcePage int `json:"page_number"`

	// RawLine is the unparsed transaction-start line, kept for audit.
	RawLine string `json:"raw_line"`
}

// Metadata describes one account database. The derived counters are
// recomputed on every save, never trusted from disk.
type Metadata struct {
	AccountCLABE      string    `json:"account_clabe"`
	AccountType       string    `json:"account_type"`
	LastUpdated       time.Time `json:"last_updated"`
	TotalTransactions int       `json:"total_transactions"`
	FilesParsed       int       `json:"files_parsed"`
}

// AccountDatabase is the whole-document persisted store for one account.
// It is always read whole, mutated in memory, and written back whole.
type AccountDatabase struct {
	Metadata     Metadata      `json:"metadata"`
	Transactions []Transaction `json:"transactions"`
}

// NewAccountDatabase returns an empty but valid database for an account.
func NewAccountDatabase(clabe, accountType string) *AccountDatabase {
	return &AccountDatabase{
		Metadata: Metadata{
			AccountCLABE: clabe,
			AccountType:  accountType,
			LastUpdated:  time.Now(),
		},
		Transactions: []Transaction{},
	}
}

// ParseStatus records the outcome of the most recent parse of a file.
type ParseStatus string

const (
	ParseStatusSuccess ParseStatus = "success"
	ParseStatusFailed  ParseStatus = "failed"
)

// FileRecord tracks when a statement file was last parsed and what came of
// it. Timestamps are stored as RFC 3339 strings: the tracker must tolerate
// malformed values from older writers instead of failing to decode.
type FileRecord struct {
	LastParsed       string      `json:"last_parsed"`
	FileLastModified string      `json:"file_last_modified"`
	TransactionCount int         `json:"transaction_count"`
	ParseStatus      ParseStatus `json:"parse_status"`
	Error            string      `json:"error,omitempty"`
}

// TrackingMap is the persisted parse-status store: account key → filename →
// record. Like the account database it is read and written wholesale.
type TrackingMap map[string]map[string]FileRecord

// Account returns the per-file records for an account, creating the inner
// map when missing.
func (m TrackingMap) Account(accountKey string) map[string]FileRecord {
	if m[accountKey] == nil {
		m[accountKey] = make(map[string]FileRecord)
	}
	return m[accountKey]
}

// FileInfo is one entry of a cloud-store listing for an account folder.
type FileInfo struct {
	Filename string `json:"filename"`

	// LastModified is the store's modification timestamp formatted as
	// RFC 3339. Kept as a string so the tracker can apply its malformed-
	// timestamp policy rather than erroring during decode.
	LastModified string `json:"last_modified"`

	Size int64 `json:"size"`

	// Handle is the opaque identifier the downloader accepts.
	Handle string `json:"handle"`

	// Year and Month come from the YYMM filename prefix; zero when the
	// filename did not carry them.
	Year  int `json:"year"`
	Month int `json:"month"`
}

// SummaryTotals are the debit/credit totals printed in a statement's
// summary section. They live only for the duration of one file's parse and
// feed the validator.
type SummaryTotals struct {
	DebitAmount  decimal.Decimal `json:"cargo_amount"`
	DebitCount   int             `json:"cargo_count"`
	CreditAmount decimal.Decimal `json:"abono_amount"`
	CreditCount  int             `json:"abono_count"`
}
