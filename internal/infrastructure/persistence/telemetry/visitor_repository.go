package telemetry

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLVisitorRepository is the SQL-based implementation of the VisitorRepository.
type SQLVisitorRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLVisitorRepository creates a new instance of the repository.
func NewSQLVisitorRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLVisitorRepository {
	return &SQLVisitorRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a visitor or advances last_seen_at when it already exists.
// first_seen_at is written once and never touched on conflict.
func (r *SQLVisitorRepository) Upsert(visitorID string) error {
	const query = `
		INSERT INTO visitors (visitor_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(visitor_id) DO UPDATE SET last_seen_at = excluded.last_seen_at`

	start := time.Now()
	now := formatTime(time.Now())

	_, err := r.db.Exec(query, visitorID, now, now)
	if err != nil {
		r.logger.Database().Error("Visitor upsert failed", "error", err.Error(), "visitorId", logging.SanitizeVisitorID(visitorID))
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// UpsertWithEmail inserts a visitor bound to an email, or updates email and
// last_seen_at on an existing row.
func (r *SQLVisitorRepository) UpsertWithEmail(visitorID, email string) error {
	const query = `
		INSERT INTO visitors (visitor_id, email, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(visitor_id) DO UPDATE SET email = excluded.email, last_seen_at = excluded.last_seen_at`

	start := time.Now()
	now := formatTime(time.Now())

	_, err := r.db.Exec(query, visitorID, email, now, now)
	if err != nil {
		r.logger.Database().Error("Visitor email upsert failed", "error", err.Error(), "visitorId", logging.SanitizeVisitorID(visitorID))
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// FindByID retrieves a Visitor by its unique identifier.
func (r *SQLVisitorRepository) FindByID(visitorID string) (*telemetry.Visitor, error) {
	const query = `
		SELECT visitor_id, email, first_seen_at, last_seen_at
		FROM visitors
		WHERE visitor_id = ?`

	row := r.db.QueryRow(query, visitorID)
	return r.scanVisitor(row)
}

// FindByEmailExcluding retrieves the Visitor holding this email under a
// different visitor id, or nil when there is none. This is the conflict
// lookup that decides whether an identify call triggers a merge.
func (r *SQLVisitorRepository) FindByEmailExcluding(email, visitorID string) (*telemetry.Visitor, error) {
	const query = `
		SELECT visitor_id, email, first_seen_at, last_seen_at
		FROM visitors
		WHERE email = ? AND visitor_id != ?`

	row := r.db.QueryRow(query, email, visitorID)
	return r.scanVisitor(row)
}

// List retrieves visitors ordered by most recent activity, with totals.
func (r *SQLVisitorRepository) List(limit, offset int) ([]*telemetry.VisitorSummary, error) {
	const query = `
		SELECT
			v.visitor_id,
			v.email,
			v.first_seen_at,
			v.last_seen_at,
			(SELECT COUNT(*) FROM events WHERE visitor_id = v.visitor_id) as total_events,
			(SELECT COUNT(*) FROM sessions WHERE visitor_id = v.visitor_id) as total_sessions
		FROM visitors v
		ORDER BY v.last_seen_at DESC
		LIMIT ? OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*telemetry.VisitorSummary
	for rows.Next() {
		var summary telemetry.VisitorSummary
		var email sql.NullString
		var firstSeenStr, lastSeenStr string

		err := rows.Scan(
			&summary.VisitorID,
			&email,
			&firstSeenStr,
			&lastSeenStr,
			&summary.TotalEvents,
			&summary.TotalSessions,
		)
		if err != nil {
			return nil, err
		}

		if email.Valid {
			summary.Email = &email.String
		}
		if summary.FirstSeenAt, err = parseTime(firstSeenStr); err != nil {
			return nil, err
		}
		if summary.LastSeenAt, err = parseTime(lastSeenStr); err != nil {
			return nil, err
		}

		summaries = append(summaries, &summary)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return summaries, rows.Err()
}

// Count returns the total number of visitors.
func (r *SQLVisitorRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM visitors`).Scan(&count)
	return count, err
}

// scanVisitor is a helper function to scan a sql.Row into a Visitor struct.
func (r *SQLVisitorRepository) scanVisitor(row *sql.Row) (*telemetry.Visitor, error) {
	var visitor telemetry.Visitor
	var email sql.NullString
	var firstSeenStr, lastSeenStr string

	err := row.Scan(
		&visitor.VisitorID,
		&email,
		&firstSeenStr,
		&lastSeenStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	if email.Valid {
		visitor.Email = &email.String
	}

	visitor.FirstSeenAt, err = parseTime(firstSeenStr)
	if err != nil {
		return nil, err
	}
	visitor.LastSeenAt, err = parseTime(lastSeenStr)
	if err != nil {
		return nil, err
	}

	return &visitor, nil
}
