package telemetry

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLSessionRepository is the SQL-based implementation of the SessionRepository.
type SQLSessionRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLSessionRepository creates a new instance of the repository.
func NewSQLSessionRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLSessionRepository {
	return &SQLSessionRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a session with its client context snapshot, or advances
// last_active_at only. The user agent and geo columns are written on first
// insert and frozen afterwards.
func (r *SQLSessionRepository) Upsert(sessionID, visitorID string, ctx telemetry.ClientContext) error {
	const query = `
		INSERT INTO sessions (session_id, visitor_id, started_at, last_active_at, user_agent, geo_country, geo_city, geo_region)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_active_at = excluded.last_active_at`

	start := time.Now()
	now := formatTime(time.Now())

	_, err := r.db.Exec(query, sessionID, visitorID, now, now, ctx.UserAgent, ctx.Country, ctx.City, ctx.Region)
	if err != nil {
		r.logger.Database().Error("Session upsert failed", "error", err.Error(), "sessionId", sessionID)
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// FindByID retrieves a Session by its unique identifier.
func (r *SQLSessionRepository) FindByID(sessionID string) (*telemetry.Session, error) {
	const query = `
		SELECT session_id, visitor_id, started_at, last_active_at, user_agent, geo_country, geo_city, geo_region
		FROM sessions
		WHERE session_id = ?`

	var session telemetry.Session
	var startedStr, lastActiveStr string
	var userAgent, country, city, region sql.NullString

	err := r.db.QueryRow(query, sessionID).Scan(
		&session.SessionID,
		&session.VisitorID,
		&startedStr,
		&lastActiveStr,
		&userAgent,
		&country,
		&city,
		&region,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	if session.StartedAt, err = parseTime(startedStr); err != nil {
		return nil, err
	}
	if session.LastActiveAt, err = parseTime(lastActiveStr); err != nil {
		return nil, err
	}
	if userAgent.Valid {
		session.Context.UserAgent = &userAgent.String
	}
	if country.Valid {
		session.Context.Country = &country.String
	}
	if city.Valid {
		session.Context.City = &city.String
	}
	if region.Valid {
		session.Context.Region = &region.String
	}

	return &session, nil
}

// List retrieves sessions ordered by most recent start, joined with visitor
// email and per-session event counts.
func (r *SQLSessionRepository) List(limit, offset int) ([]*telemetry.SessionSummary, error) {
	const query = `
		SELECT
			s.session_id,
			s.visitor_id,
			v.email,
			s.started_at,
			s.last_active_at,
			s.user_agent,
			s.geo_country,
			s.geo_city,
			s.geo_region,
			(SELECT COUNT(*) FROM events WHERE session_id = s.session_id) as event_count
		FROM sessions s
		LEFT JOIN visitors v ON s.visitor_id = v.visitor_id
		ORDER BY s.started_at DESC
		LIMIT ? OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*telemetry.SessionSummary
	for rows.Next() {
		var summary telemetry.SessionSummary
		var email, userAgent, country, city, region sql.NullString
		var startedStr, lastActiveStr string

		err := rows.Scan(
			&summary.SessionID,
			&summary.VisitorID,
			&email,
			&startedStr,
			&lastActiveStr,
			&userAgent,
			&country,
			&city,
			&region,
			&summary.EventCount,
		)
		if err != nil {
			return nil, err
		}

		if email.Valid {
			summary.Email = &email.String
		}
		if summary.StartedAt, err = parseTime(startedStr); err != nil {
			return nil, err
		}
		if summary.LastActiveAt, err = parseTime(lastActiveStr); err != nil {
			return nil, err
		}
		if userAgent.Valid {
			summary.Context.UserAgent = &userAgent.String
		}
		if country.Valid {
			summary.Context.Country = &country.String
		}
		if city.Valid {
			summary.Context.City = &city.String
		}
		if region.Valid {
			summary.Context.Region = &region.String
		}

		summaries = append(summaries, &summary)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return summaries, rows.Err()
}

// Count returns the total number of sessions.
func (r *SQLSessionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
