package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeAcceptsBothLayouts(t *testing.T) {
	fromSqlite, err := parseTime("2026-03-15 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, 2026, fromSqlite.Year())

	fromRFC, err := parseTime("2026-03-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, fromSqlite.Format(sqliteTimeFormat), fromRFC.UTC().Format(sqliteTimeFormat))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestFormatTimeRendersUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 3, 15, 5, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-15 10:30:00", formatTime(local))
}

func TestNormalizeClientTime(t *testing.T) {
	serverNow := "2026-03-15 12:00:00"

	assert.Equal(t, "2026-03-15 10:30:00", normalizeClientTime("2026-03-15T10:30:00Z", serverNow))
	// Offsets collapse to UTC.
	assert.Equal(t, "2026-03-15 15:30:00", normalizeClientTime("2026-03-15T10:30:00-05:00", serverNow))
	assert.Equal(t, serverNow, normalizeClientTime("", serverNow))
	assert.Equal(t, serverNow, normalizeClientTime("garbage", serverNow))
}
