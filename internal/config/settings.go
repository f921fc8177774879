package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Settings are the runtime knobs shared by the CLI and the worker. Values
// come from an optional config file with environment overrides; everything
// has a working default so both binaries run with no config at all.
type Settings struct {
	// Bucket is the cloud storage bucket holding statements and databases.
	Bucket string
	// DatabasePrefix is the object prefix for databases and tracking JSON.
	DatabasePrefix string
	// TrackingObject is the object name (under DatabasePrefix) of the
	// per-file parse tracking document.
	TrackingObject string
	// ReparseTolerance is how much newer a file's modification time must be
	// than its last parse before it is parsed again. Guards against storage
	// backends that touch timestamps on their own.
	ReparseTolerance time.Duration
	// AmountTolerance is the largest footer-vs-computed difference treated
	// as rounding noise during statement validation.
	AmountTolerance decimal.Decimal
	LogLevel        string
}

const (
	defaultDatabasePrefix   = "db/"
	defaultTrackingObject   = "parse_tracking.json"
	defaultReparseTolerance = 2 * time.Hour
	defaultAmountTolerance  = "0.01"
)

// Load reads settings from the given config file (optional, "" to skip) and
// the STATEMENT_SYNC_* environment, layered over defaults.
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetDefault("bucket", "")
	v.SetDefault("database_prefix", defaultDatabasePrefix)
	v.SetDefault("tracking_object", defaultTrackingObject)
	v.SetDefault("reparse_tolerance", defaultReparseTolerance.String())
	v.SetDefault("amount_tolerance", defaultAmountTolerance)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("STATEMENT_SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	tolerance, err := time.ParseDuration(v.GetString("reparse_tolerance"))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid reparse_tolerance: %w", err)
	}
	amountTol, err := decimal.NewFromString(v.GetString("amount_tolerance"))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid amount_tolerance: %w", err)
	}

	return Settings{
		Bucket:           v.GetString("bucket"),
		DatabasePrefix:   v.GetString("database_prefix"),
		TrackingObject:   v.GetString("tracking_object"),
		ReparseTolerance: tolerance,
		AmountTolerance:  amountTol,
		LogLevel:         v.GetString("log_level"),
	}, nil
}
