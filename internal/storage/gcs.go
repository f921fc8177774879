package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/statement"
)

// GCS implements Store on a Google Cloud Storage bucket. Statement PDFs sit
// under each account's folder; databases and the tracking map are JSON
// objects under the database prefix. Application Default Credentials are
// assumed.
type GCS struct {
	client         *gcs.Client
	bucket         string
	dbPrefix       string
	trackingObject string
	log            zerolog.Logger
}

var _ Store = (*GCS)(nil)

// NewGCS opens a storage client against the configured bucket.
func NewGCS(ctx context.Context, settings config.Settings, log zerolog.Logger) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client:         client,
		bucket:         settings.Bucket,
		dbPrefix:       settings.DatabasePrefix,
		trackingObject: settings.DatabasePrefix + settings.TrackingObject,
		log:            log,
	}, nil
}

// Close releases the underlying client.
func (s *GCS) Close() error { return s.client.Close() }

// ListFiles lists the account folder and keeps objects matching the
// account's statement pattern, newest statement period first.
func (s *GCS) ListFiles(ctx context.Context, account config.Account) ([]statement.FileInfo, error) {
	var files []statement.FileInfo

	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: account.Directory + "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", account.Directory, err)
		}

		filename := path.Base(attrs.Name)
		if !account.FilePattern.MatchString(filename) {
			continue
		}
		info := statement.FileInfo{
			Filename:     filename,
			LastModified: attrs.Updated.Format(time.RFC3339),
			Size:         attrs.Size,
			Handle:       attrs.Name,
		}
		info.Year, info.Month, _ = config.ParseFilenamePeriod(filename)
		files = append(files, info)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Year != files[j].Year {
			return files[i].Year > files[j].Year
		}
		if files[i].Month != files[j].Month {
			return files[i].Month > files[j].Month
		}
		return files[i].Filename < files[j].Filename
	})
	return files, nil
}

func (s *GCS) DownloadBytes(ctx context.Context, handle string) ([]byte, error) {
	data, err := s.readObject(ctx, handle)
	if err != nil {
		return nil, &DownloadError{Handle: handle, Err: err}
	}
	return data, nil
}

// LoadDatabase reads the account's JSON database. A missing object yields a
// fresh empty database; a corrupt one is replaced by an empty database with
// a warning, so one bad write cannot wedge the account forever.
func (s *GCS) LoadDatabase(ctx context.Context, account config.Account) (*statement.AccountDatabase, error) {
	object := s.dbPrefix + account.Database

	data, err := s.readObject(ctx, object)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		s.log.Info().Str("object", object).Msg("no database yet, starting empty")
		return statement.NewAccountDatabase(account.CLABE, account.AccountType), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load database %s: %w", object, err)
	}

	var db statement.AccountDatabase
	if err := json.Unmarshal(data, &db); err != nil {
		s.log.Warn().Str("object", object).Err(err).
			Msg("database JSON is corrupt, recreating empty")
		return statement.NewAccountDatabase(account.CLABE, account.AccountType), nil
	}
	if db.Transactions == nil {
		db.Transactions = []statement.Transaction{}
	}
	return &db, nil
}

func (s *GCS) SaveDatabase(ctx context.Context, account config.Account, db *statement.AccountDatabase) error {
	object := s.dbPrefix + account.Database
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("encode database %s: %w", object, err)
	}
	return s.writeObject(ctx, object, data)
}

func (s *GCS) LoadTracking(ctx context.Context) (statement.TrackingMap, error) {
	data, err := s.readObject(ctx, s.trackingObject)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return statement.TrackingMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tracking %s: %w", s.trackingObject, err)
	}

	return decodeTracking(s.log, s.trackingObject, data), nil
}

// decodeTracking recovers from a corrupt tracking document by starting over
// with an empty map. A JSON `null` decodes without error into a nil map that
// record writes would blow up on, so it gets the same treatment.
func decodeTracking(log zerolog.Logger, object string, data []byte) statement.TrackingMap {
	var tracking statement.TrackingMap
	if err := json.Unmarshal(data, &tracking); err != nil {
		log.Warn().Str("object", object).Err(err).
			Msg("tracking JSON is corrupt, recreating empty")
		return statement.TrackingMap{}
	}
	if tracking == nil {
		return statement.TrackingMap{}
	}
	return tracking
}

func (s *GCS) SaveTracking(ctx context.Context, tracking statement.TrackingMap) error {
	data, err := json.MarshalIndent(tracking, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracking: %w", err)
	}
	return s.writeObject(ctx, s.trackingObject, data)
}

func (s *GCS) readObject(ctx context.Context, object string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCS) writeObject(ctx context.Context, object string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", object, err)
	}
	return nil
}
