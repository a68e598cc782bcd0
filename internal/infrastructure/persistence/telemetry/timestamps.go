// Package telemetry provides the concrete SQL-based implementations of
// the telemetry domain repositories (Visitor, Session, Event, Subscriber,
// FormSubmission).
package telemetry

import "time"

// sqliteTimeFormat is the layout SQLite's datetime('now') produces.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// formatTime renders a timestamp the way the schema stores it.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

// parseTime parses a stored timestamp, accepting RFC3339 first and the
// SQLite layout as fallback.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(sqliteTimeFormat, s)
}
