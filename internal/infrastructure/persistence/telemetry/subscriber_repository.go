package telemetry

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLSubscriberRepository is the SQL-based implementation of the SubscriberRepository.
type SQLSubscriberRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLSubscriberRepository creates a new instance of the repository.
func NewSQLSubscriberRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLSubscriberRepository {
	return &SQLSubscriberRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a subscriber keyed by email, or repoints an existing row at
// the given visitor id.
func (r *SQLSubscriberRepository) Upsert(email, visitorID string) error {
	const query = `
		INSERT INTO subscribers (email, visitor_id, subscribed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET visitor_id = excluded.visitor_id`

	start := time.Now()

	_, err := r.db.Exec(query, email, visitorID, formatTime(time.Now()))
	if err != nil {
		r.logger.Database().Error("Subscriber upsert failed", "error", err.Error(), "visitorId", logging.SanitizeVisitorID(visitorID))
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// FindByEmail retrieves a Subscriber by its normalized email.
func (r *SQLSubscriberRepository) FindByEmail(email string) (*telemetry.Subscriber, error) {
	const query = `
		SELECT id, email, visitor_id, subscribed_at
		FROM subscribers
		WHERE email = ?`

	var subscriber telemetry.Subscriber
	var subscribedStr string

	err := r.db.QueryRow(query, email).Scan(
		&subscriber.ID,
		&subscriber.Email,
		&subscriber.VisitorID,
		&subscribedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	subscriber.SubscribedAt, err = parseTime(subscribedStr)
	if err != nil {
		return nil, err
	}

	return &subscriber, nil
}

// List retrieves subscribers ordered by most recent subscription, joined with
// visitor activity totals.
func (r *SQLSubscriberRepository) List(limit, offset int) ([]*telemetry.SubscriberSummary, error) {
	const query = `
		SELECT
			sub.id,
			sub.email,
			sub.visitor_id,
			sub.subscribed_at,
			v.first_seen_at,
			v.last_seen_at,
			(SELECT COUNT(*) FROM events WHERE visitor_id = sub.visitor_id) as total_events,
			(SELECT COUNT(*) FROM sessions WHERE visitor_id = sub.visitor_id) as total_sessions
		FROM subscribers sub
		LEFT JOIN visitors v ON sub.visitor_id = v.visitor_id
		ORDER BY sub.subscribed_at DESC
		LIMIT ? OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*telemetry.SubscriberSummary
	for rows.Next() {
		var summary telemetry.SubscriberSummary
		var subscribedStr string
		var firstSeen, lastSeen sql.NullString

		err := rows.Scan(
			&summary.ID,
			&summary.Email,
			&summary.VisitorID,
			&subscribedStr,
			&firstSeen,
			&lastSeen,
			&summary.TotalEvents,
			&summary.TotalSessions,
		)
		if err != nil {
			return nil, err
		}

		if summary.SubscribedAt, err = parseTime(subscribedStr); err != nil {
			return nil, err
		}
		if firstSeen.Valid {
			summary.FirstSeenAt = &firstSeen.String
		}
		if lastSeen.Valid {
			summary.LastSeenAt = &lastSeen.String
		}

		summaries = append(summaries, &summary)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return summaries, rows.Err()
}

// Count returns the total number of subscribers.
func (r *SQLSubscriberRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM subscribers`).Scan(&count)
	return count, err
}
