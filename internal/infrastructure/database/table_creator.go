// Package database provides telemetry schema bootstrap
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the telemetry database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the telemetry tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS visitors (visitor_id TEXT PRIMARY KEY, email TEXT UNIQUE, first_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS sessions (session_id TEXT PRIMARY KEY, visitor_id TEXT NOT NULL REFERENCES visitors(visitor_id), started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, last_active_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, user_agent TEXT, geo_country TEXT, geo_city TEXT, geo_region TEXT)`,
	`CREATE TABLE IF NOT EXISTS events (id TEXT PRIMARY KEY, visitor_id TEXT NOT NULL REFERENCES visitors(visitor_id), session_id TEXT NOT NULL REFERENCES sessions(session_id), event_type TEXT NOT NULL, page TEXT, element TEXT, metadata TEXT, created_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS subscribers (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE, visitor_id TEXT NOT NULL, subscribed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS form_submissions (id TEXT PRIMARY KEY, name TEXT NOT NULL, dob TEXT, place TEXT, phone TEXT NOT NULL, email TEXT, service TEXT, geo_country TEXT, geo_city TEXT, geo_region TEXT, geo_latitude TEXT, geo_longitude TEXT, geo_timezone TEXT, browser_latitude REAL, browser_longitude REAL, user_agent TEXT, submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_visitors_email ON visitors(email)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_last_seen ON visitors(last_seen_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_visitor_id ON sessions(visitor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_visitor_id ON events(visitor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_subscribers_visitor_id ON subscribers(visitor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_form_submissions_submitted ON form_submissions(submitted_at)`,
}
