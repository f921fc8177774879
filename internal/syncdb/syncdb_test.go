package syncdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-sync/internal/statement"
)

func txnFrom(file, date string) statement.Transaction {
	return statement.Transaction{SourceFile: file, OperationDate: date, RawLine: file + " " + date}
}

func testDB(transactions ...statement.Transaction) *statement.AccountDatabase {
	db := statement.NewAccountDatabase("012180001198203451", "BBVA_MX_mxn")
	db.Transactions = transactions
	return db
}

func TestSynchronizeRemovesOrphans(t *testing.T) {
	db := testDB(
		txnFrom("a.pdf", "01/05/2025"),
		txnFrom("b.pdf", "01/06/2025"),
		txnFrom("c.pdf", "01/07/2025"),
		txnFrom("c.pdf", "01/08/2025"),
	)

	removed := Synchronize(db, []string{"a.pdf", "c.pdf"})
	assert.Equal(t, 1, removed)
	require.Len(t, db.Transactions, 3)
	for _, txn := range db.Transactions {
		assert.NotEqual(t, "b.pdf", txn.SourceFile)
	}
}

func TestSynchronizeIdempotent(t *testing.T) {
	db := testDB(
		txnFrom("a.pdf", "01/05/2025"),
		txnFrom("b.pdf", "01/06/2025"),
	)
	current := []string{"a.pdf"}

	assert.Equal(t, 1, Synchronize(db, current))
	assert.Equal(t, 0, Synchronize(db, current))
	assert.Len(t, db.Transactions, 1)
}

func TestRemoveFileTransactions(t *testing.T) {
	db := testDB(
		txnFrom("a.pdf", "01/05/2025"),
		txnFrom("b.pdf", "01/06/2025"),
		txnFrom("a.pdf", "01/07/2025"),
	)

	assert.Equal(t, 2, RemoveFileTransactions(db, "a.pdf"))
	require.Len(t, db.Transactions, 1)
	assert.Equal(t, "b.pdf", db.Transactions[0].SourceFile)

	// No matches is a no-op.
	assert.Equal(t, 0, RemoveFileTransactions(db, "a.pdf"))
	assert.Len(t, db.Transactions, 1)
}

func TestSourceFileMatchIsCaseSensitive(t *testing.T) {
	db := testDB(txnFrom("A.pdf", "01/05/2025"))

	assert.Equal(t, 0, RemoveFileTransactions(db, "a.pdf"))
	assert.Equal(t, 1, Synchronize(db, []string{"a.pdf"}))
}

func TestCleanupTracking(t *testing.T) {
	tracking := statement.TrackingMap{
		"bbva_mx_mxn": {
			"a.pdf": {ParseStatus: statement.ParseStatusSuccess},
			"b.pdf": {ParseStatus: statement.ParseStatusSuccess},
		},
	}

	removed := CleanupTracking(tracking, "bbva_mx_mxn", []string{"a.pdf"})
	assert.Equal(t, 1, removed)
	assert.Contains(t, tracking["bbva_mx_mxn"], "a.pdf")
	assert.NotContains(t, tracking["bbva_mx_mxn"], "b.pdf")

	// Idempotent, and safe for unknown accounts.
	assert.Equal(t, 0, CleanupTracking(tracking, "bbva_mx_mxn", []string{"a.pdf"}))
	assert.Equal(t, 0, CleanupTracking(tracking, "no_such_account", []string{"a.pdf"}))
}

func TestSortTransactionsNewestFirst(t *testing.T) {
	transactions := []statement.Transaction{
		txnFrom("a.pdf", "01/05/2025"),
		txnFrom("a.pdf", "12/30/2024"),
		txnFrom("b.pdf", "01/20/2025"),
	}

	SortTransactions(transactions)
	assert.Equal(t, "01/20/2025", transactions[0].OperationDate)
	assert.Equal(t, "01/05/2025", transactions[1].OperationDate)
	assert.Equal(t, "12/30/2024", transactions[2].OperationDate)
}

func TestSortTransactionsDeterministicTieBreak(t *testing.T) {
	a := statement.Transaction{SourceFile: "a.pdf", OperationDate: "01/05/2025", RawLine: "line 2"}
	b := statement.Transaction{SourceFile: "a.pdf", OperationDate: "01/05/2025", RawLine: "line 1"}
	c := statement.Transaction{SourceFile: "b.pdf", OperationDate: "01/05/2025", RawLine: "line 0"}

	transactions := []statement.Transaction{a, b, c}
	SortTransactions(transactions)
	assert.Equal(t, "line 1", transactions[0].RawLine)
	assert.Equal(t, "line 2", transactions[1].RawLine)
	assert.Equal(t, "b.pdf", transactions[2].SourceFile)
}

func TestRecomputeMetadata(t *testing.T) {
	db := testDB(
		txnFrom("a.pdf", "01/05/2025"),
		txnFrom("a.pdf", "01/06/2025"),
		txnFrom("b.pdf", "01/07/2025"),
	)
	tracking := statement.TrackingMap{
		"bbva_mx_mxn": {
			"a.pdf": {TransactionCount: 2, ParseStatus: statement.ParseStatusSuccess},
			"b.pdf": {TransactionCount: 1, ParseStatus: statement.ParseStatusSuccess},
			"c.pdf": {TransactionCount: 0, ParseStatus: statement.ParseStatusSuccess},
			"d.pdf": {ParseStatus: statement.ParseStatusFailed},
		},
	}

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	RecomputeMetadata(db, tracking, "bbva_mx_mxn", now)

	assert.Equal(t, now, db.Metadata.LastUpdated)
	assert.Equal(t, 3, db.Metadata.TotalTransactions)
	// Only files that actually yielded transactions count as parsed.
	assert.Equal(t, 2, db.Metadata.FilesParsed)
}
