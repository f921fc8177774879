// Package syncdb keeps the persisted account database and tracking map
// consistent with the cloud folder's current file listing. Every operation
// here is idempotent: applying one twice with the same inputs changes
// nothing the second time.
package syncdb

import (
	"sort"
	"time"

	"github.com/dvloznov/statement-sync/internal/normalize"
	"github.com/dvloznov/statement-sync/internal/statement"
)

// Synchronize removes every transaction whose source file is no longer in
// the current listing and returns how many were removed. Matching is exact,
// case-sensitive string equality on the source filename.
func Synchronize(db *statement.AccountDatabase, currentFiles []string) int {
	current := fileSet(currentFiles)
	kept := db.Transactions[:0]
	removed := 0
	for _, t := range db.Transactions {
		if _, ok := current[t.SourceFile]; ok {
			kept = append(kept, t)
		} else {
			removed++
		}
	}
	db.Transactions = kept
	return removed
}

// RemoveFileTransactions drops all transactions from exactly one file,
// returning the count removed. Run before re-parsing that file so the
// re-parse replaces rather than duplicates.
func RemoveFileTransactions(db *statement.AccountDatabase, filename string) int {
	kept := db.Transactions[:0]
	removed := 0
	for _, t := range db.Transactions {
		if t.SourceFile == filename {
			removed++
		} else {
			kept = append(kept, t)
		}
	}
	db.Transactions = kept
	return removed
}

// CleanupTracking mirrors Synchronize for the tracking map, removing records
// of files no longer present so the two stores stay consistent.
func CleanupTracking(tracking statement.TrackingMap, accountKey string, currentFiles []string) int {
	records := tracking[accountKey]
	if records == nil {
		return 0
	}
	current := fileSet(currentFiles)
	removed := 0
	for filename := range records {
		if _, ok := current[filename]; !ok {
			delete(records, filename)
			removed++
		}
	}
	return removed
}

// SortTransactions orders the database newest-first for display. Ties on
// date break on source file and then raw line, so repeated syncs of the
// same data always serialize identically.
func SortTransactions(transactions []statement.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		a, b := transactions[i], transactions[j]
		ka, kb := normalize.DateSortKey(a.OperationDate), normalize.DateSortKey(b.OperationDate)
		if ka != kb {
			return ka > kb
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.RawLine < b.RawLine
	})
}

// RecomputeMetadata refreshes the database's derived counters from its
// actual contents. FilesParsed counts tracked files that yielded at least
// one transaction.
func RecomputeMetadata(db *statement.AccountDatabase, tracking statement.TrackingMap, accountKey string, now time.Time) {
	db.Metadata.LastUpdated = now
	db.Metadata.TotalTransactions = len(db.Transactions)

	filesParsed := 0
	for _, record := range tracking[accountKey] {
		if record.TransactionCount > 0 {
			filesParsed++
		}
	}
	db.Metadata.FilesParsed = filesParsed
}

func fileSet(filenames []string) map[string]struct{} {
	set := make(map[string]struct{}, len(filenames))
	for _, f := range filenames {
		set[f] = struct{}{}
	}
	return set
}
