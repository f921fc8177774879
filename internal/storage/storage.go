// Package storage is the persistence boundary: statement PDFs, account
// databases and the tracking map all live in a cloud bucket. The core
// pipeline only sees the Store interface; the GCS implementation lives in
// gcs.go.
package storage

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/statement"
)

// Store is everything the batch pipeline needs from persistence. Documents
// are read and written whole; there is no partial update.
type Store interface {
	// ListFiles returns the statement files in the account's folder that
	// match its filename pattern, newest statement period first.
	ListFiles(ctx context.Context, account config.Account) ([]statement.FileInfo, error)

	// DownloadBytes fetches one file's content by its listing handle.
	// Failures are reported as *DownloadError.
	DownloadBytes(ctx context.Context, handle string) ([]byte, error)

	// LoadDatabase returns the account's transaction database, or an empty
	// valid database when none has been saved yet.
	LoadDatabase(ctx context.Context, account config.Account) (*statement.AccountDatabase, error)
	SaveDatabase(ctx context.Context, account config.Account, db *statement.AccountDatabase) error

	// LoadTracking returns the shared parse-tracking map, empty when absent.
	LoadTracking(ctx context.Context) (statement.TrackingMap, error)
	SaveTracking(ctx context.Context, tracking statement.TrackingMap) error
}

// DownloadError wraps a failure to fetch a statement file. The orchestrator
// records the file as failed and moves on; it never aborts the batch.
type DownloadError struct {
	Handle string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Handle, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
