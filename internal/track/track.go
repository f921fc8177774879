// Package track decides which statement files actually need parsing, based
// on the persisted tracking map. The decision function is pure apart from
// logging; callers persist tracking updates only after a parse happens.
package track

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-sync/internal/statement"
)

// Filter applies the needs-parsing rules for one bank family.
type Filter struct {
	// Tolerance absorbs source-system timestamp jitter: a file counts as
	// modified only when its timestamp exceeds last-parsed by more than
	// this window. Without it, stores that touch timestamps during
	// automated reprocessing cause infinite re-parse loops.
	Tolerance time.Duration
	Log       zerolog.Logger
}

// NeedsParsing returns the subset of files that should be parsed, in input
// order. Rules, first match wins: non-PDF files are never considered; a
// file with no tracking record is new; a failed record is retried; a file
// modified more than Tolerance after its last parse is re-parsed; a record
// with a malformed timestamp is logged and NOT re-parsed, so bad timestamp
// data cannot cause runaway reprocessing.
func (f Filter) NeedsParsing(files []statement.FileInfo, tracking statement.TrackingMap, accountKey string) []statement.FileInfo {
	records := tracking[accountKey]

	var needed []statement.FileInfo
	for _, file := range files {
		if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
			continue
		}

		record, tracked := records[file.Filename]
		if !tracked {
			f.Log.Debug().Str("file", file.Filename).Msg("new file, needs parsing")
			needed = append(needed, file)
			continue
		}
		if record.ParseStatus == statement.ParseStatusFailed {
			f.Log.Debug().Str("file", file.Filename).Msg("previous parse failed, retrying")
			needed = append(needed, file)
			continue
		}

		lastParsed, err := time.Parse(time.RFC3339, record.LastParsed)
		if err != nil {
			f.Log.Warn().Str("file", file.Filename).Str("last_parsed", record.LastParsed).
				Msg("malformed last-parsed timestamp, skipping re-parse")
			continue
		}
		modified, err := time.Parse(time.RFC3339, file.LastModified)
		if err != nil {
			f.Log.Warn().Str("file", file.Filename).Str("last_modified", file.LastModified).
				Msg("malformed modification timestamp, skipping re-parse")
			continue
		}

		if modified.After(lastParsed.Add(f.Tolerance)) {
			f.Log.Debug().Str("file", file.Filename).
				Time("modified", modified).Time("last_parsed", lastParsed).
				Msg("modified since last parse, needs parsing")
			needed = append(needed, file)
		}
	}
	return needed
}

// RecordSuccess stores a successful parse in the tracking map.
func RecordSuccess(tracking statement.TrackingMap, accountKey string, file statement.FileInfo, transactionCount int, now time.Time) {
	tracking.Account(accountKey)[file.Filename] = statement.FileRecord{
		LastParsed:       now.Format(time.RFC3339),
		FileLastModified: file.LastModified,
		TransactionCount: transactionCount,
		ParseStatus:      statement.ParseStatusSuccess,
	}
}

// RecordFailure stores a failed parse so the file is retried next run.
func RecordFailure(tracking statement.TrackingMap, accountKey string, file statement.FileInfo, parseErr error, now time.Time) {
	tracking.Account(accountKey)[file.Filename] = statement.FileRecord{
		LastParsed:       now.Format(time.RFC3339),
		FileLastModified: file.LastModified,
		ParseStatus:      statement.ParseStatusFailed,
		Error:            parseErr.Error(),
	}
}
