package storage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-sync/internal/statement"
	"github.com/dvloznov/statement-sync/internal/track"
)

func TestDecodeTrackingValidDocument(t *testing.T) {
	data := []byte(`{"bbva_mx_mxn": {"0125 A.pdf": {"last_parsed": "2025-02-01T10:00:00Z", "file_last_modified": "2025-02-01T09:00:00Z", "transaction_count": 3, "parse_status": "success"}}}`)

	tracking := decodeTracking(zerolog.Nop(), "db/parse_tracking.json", data)

	require.Contains(t, tracking, "bbva_mx_mxn")
	record := tracking["bbva_mx_mxn"]["0125 A.pdf"]
	assert.Equal(t, statement.ParseStatusSuccess, record.ParseStatus)
	assert.Equal(t, 3, record.TransactionCount)
}

func TestDecodeTrackingCorruptDocument(t *testing.T) {
	tracking := decodeTracking(zerolog.Nop(), "db/parse_tracking.json", []byte("{not json"))

	require.NotNil(t, tracking)
	assert.Empty(t, tracking)
}

// A stored `null` decodes without error into a nil map, which would panic on
// the first record write. The decoder must hand back a writable empty map.
func TestDecodeTrackingNullDocument(t *testing.T) {
	tracking := decodeTracking(zerolog.Nop(), "db/parse_tracking.json", []byte("null"))

	require.NotNil(t, tracking)
	require.NotPanics(t, func() {
		track.RecordSuccess(tracking, "bbva_mx_mxn", statement.FileInfo{
			Filename:     "0125 FMX BBVA MXN.pdf",
			LastModified: "2025-02-01T09:00:00Z",
		}, 5, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))
	})
	assert.Equal(t, 5, tracking["bbva_mx_mxn"]["0125 FMX BBVA MXN.pdf"].TransactionCount)
}
