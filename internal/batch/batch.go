// Package batch runs the full sync pipeline for one account: list the
// account's statement files, drop orphaned data, parse what changed, and
// write the updated database and tracking map back.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-sync/internal/classify"
	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/extract"
	"github.com/dvloznov/statement-sync/internal/statement"
	"github.com/dvloznov/statement-sync/internal/storage"
	"github.com/dvloznov/statement-sync/internal/syncdb"
	"github.com/dvloznov/statement-sync/internal/track"
	"github.com/dvloznov/statement-sync/internal/validate"
)

// Parser extracts transactions from one statement file's bytes.
type Parser interface {
	Parse(data []byte, filename string) (*extract.Result, error)
}

// Orchestrator wires the pipeline stages together. Zero-value fields get
// working defaults from New.
type Orchestrator struct {
	Store           storage.Store
	Filter          track.Filter
	AmountTolerance decimal.Decimal
	Log             zerolog.Logger

	// NewParser builds the parser for one file. Each file gets a fresh
	// parser because an extractor carries per-file state (period year,
	// footer totals) that must not leak between files.
	NewParser func() Parser

	Now func() time.Time
}

// New returns an orchestrator using the given store and settings.
func New(store storage.Store, settings config.Settings, log zerolog.Logger) *Orchestrator {
	rules := classify.DefaultRules()
	return &Orchestrator{
		Store:           store,
		Filter:          track.Filter{Tolerance: settings.ReparseTolerance, Log: log},
		AmountTolerance: settings.AmountTolerance,
		Log:             log,
		NewParser:       func() Parser { return extract.New(rules) },
		Now:             time.Now,
	}
}

// ProcessAccount syncs one account end to end. Individual file failures are
// collected in the result; only listing, loading or saving failures abort
// the run. Files are processed strictly sequentially: each file's
// remove-then-insert must complete before the next file starts.
func (o *Orchestrator) ProcessAccount(ctx context.Context, account config.Account, sink statement.ProgressSink) statement.BatchResult {
	log := o.Log.With().Str("account", account.Key).Logger()
	result := statement.BatchResult{
		AccountKey:  account.Key,
		AccountType: account.AccountType,
	}

	sink.Emit(statement.Progress{Status: "listing", Details: "listing statement files"})
	files, err := o.Store.ListFiles(ctx, account)
	if err != nil {
		return o.fail(result, sink, fmt.Sprintf("listing files: %v", err))
	}
	result.FilesChecked = len(files)

	db, err := o.Store.LoadDatabase(ctx, account)
	if err != nil {
		return o.fail(result, sink, fmt.Sprintf("loading database: %v", err))
	}
	tracking, err := o.Store.LoadTracking(ctx)
	if err != nil {
		return o.fail(result, sink, fmt.Sprintf("loading tracking: %v", err))
	}

	filenames := make([]string, len(files))
	for i, f := range files {
		filenames[i] = f.Filename
	}

	sink.Emit(statement.Progress{Status: "synchronizing", Details: "removing orphaned data"})
	result.OrphansRemoved = syncdb.Synchronize(db, filenames)
	syncdb.CleanupTracking(tracking, account.Key, filenames)
	if result.OrphansRemoved > 0 {
		log.Info().Int("removed", result.OrphansRemoved).Msg("removed orphaned transactions")
	}

	needed := o.Filter.NeedsParsing(files, tracking, account.Key)
	result.FilesSkipped = result.FilesChecked - len(needed)

	for i, file := range needed {
		// A batch can only stop between files; mid-file would leave a
		// half-merged parse in the database.
		if err := ctx.Err(); err != nil {
			return o.fail(result, sink, fmt.Sprintf("canceled after %d of %d files: %v", i, len(needed), err))
		}

		sink.Emit(statement.Progress{
			Status:         "parsing",
			Details:        fmt.Sprintf("parsing %d of %d", i+1, len(needed)),
			CurrentFile:    file.Filename,
			FilesProcessed: result.FilesProcessed,
			Percent:        i * 100 / len(needed),
		})

		if err := o.processFile(ctx, log, account, file, db, tracking, &result); err != nil {
			log.Error().Err(err).Str("file", file.Filename).Msg("file failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Filename, err))
			track.RecordFailure(tracking, account.Key, file, err, o.Now())
			continue
		}
		result.FilesProcessed++
	}

	sink.Emit(statement.Progress{Status: "saving", Details: "saving database and tracking"})
	syncdb.SortTransactions(db.Transactions)
	syncdb.RecomputeMetadata(db, tracking, account.Key, o.Now())
	result.TotalTransactions = len(db.Transactions)

	// A failed save drops the in-memory changes; the next run recomputes
	// from the last state that did persist.
	if err := o.Store.SaveDatabase(ctx, account, db); err != nil {
		return o.fail(result, sink, fmt.Sprintf("saving database: %v", err))
	}
	if err := o.Store.SaveTracking(ctx, tracking); err != nil {
		return o.fail(result, sink, fmt.Sprintf("saving tracking: %v", err))
	}

	result.Success = true
	result.Message = fmt.Sprintf("processed %d files, %d transactions added, %d orphans removed",
		result.FilesProcessed, result.TransactionsAdded, result.OrphansRemoved)
	sink.Emit(statement.Progress{
		Status:         "done",
		Details:        result.Message,
		FilesProcessed: result.FilesProcessed,
		Percent:        100,
		Errors:         result.Errors,
	})
	return result
}

// processFile downloads, parses and merges one statement file. On any error
// the database is left exactly as it was: prior transactions from the file
// are only removed after a successful parse.
func (o *Orchestrator) processFile(ctx context.Context, log zerolog.Logger, account config.Account, file statement.FileInfo, db *statement.AccountDatabase, tracking statement.TrackingMap, result *statement.BatchResult) error {
	// The store lists only this account's folder, but a misfiled statement
	// named for another account must not be merged into this database.
	if owner, ok := config.AccountByFilename(file.Filename); ok && owner.Key != account.Key {
		return fmt.Errorf("file %s is named for account %s, not %s", file.Filename, owner.Key, account.Key)
	}

	data, err := o.Store.DownloadBytes(ctx, file.Handle)
	if err != nil {
		return err
	}

	parsed, err := o.NewParser().Parse(data, file.Filename)
	if err != nil {
		return err
	}
	if parsed.CLABE != account.CLABE {
		return fmt.Errorf("statement CLABE %s does not belong to account %s", parsed.CLABE, account.Key)
	}

	validation := validate.Validate(parsed.Transactions, parsed.Totals, o.AmountTolerance)
	switch validation.Status() {
	case "invalid":
		// Advisory only: the parse is still persisted.
		log.Warn().Str("file", file.Filename).
			Int("discrepancies", len(validation.Discrepancies)).
			Msg("statement totals do not match parsed transactions")
	case "unknown":
		log.Warn().Str("file", file.Filename).Msg("statement totals not found, skipping validation")
	}

	syncdb.RemoveFileTransactions(db, file.Filename)
	db.Transactions = append(db.Transactions, parsed.Transactions...)
	result.TransactionsAdded += len(parsed.Transactions)

	track.RecordSuccess(tracking, account.Key, file, len(parsed.Transactions), o.Now())
	log.Info().Str("file", file.Filename).
		Int("transactions", len(parsed.Transactions)).
		Str("validation", validation.Status()).
		Msg("file parsed")
	return nil
}

func (o *Orchestrator) fail(result statement.BatchResult, sink statement.ProgressSink, message string) statement.BatchResult {
	result.Success = false
	result.Message = message
	result.Errors = append(result.Errors, message)
	sink.Emit(statement.Progress{Status: "failed", Details: message, Errors: result.Errors})
	return result
}
