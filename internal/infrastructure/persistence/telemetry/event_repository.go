package telemetry

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLEventRepository provides the read-side queries over event rows. Writes
// happen exclusively through the batch repository so a flush is applied as
// one unit.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// ListRecent retrieves events ordered by most recent first.
func (r *SQLEventRepository) ListRecent(limit, offset int) ([]*telemetry.Event, error) {
	const query = `
		SELECT id, visitor_id, session_id, event_type, page, element, metadata, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*telemetry.Event
	for rows.Next() {
		var event telemetry.Event
		var page, element, metadata sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.VisitorID,
			&event.SessionID,
			&event.EventType,
			&page,
			&element,
			&metadata,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if page.Valid {
			event.Page = &page.String
		}
		if element.Valid {
			event.Element = &element.String
		}
		if metadata.Valid {
			event.Metadata = &metadata.String
		}

		events = append(events, &event)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return events, rows.Err()
}

// CountBySession returns the number of events recorded for a session.
func (r *SQLEventRepository) CountBySession(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// CountByTypeSince aggregates events by type since the given instant.
func (r *SQLEventRepository) CountByTypeSince(since time.Time) ([]telemetry.EventTypeCount, error) {
	const query = `
		SELECT event_type, COUNT(*) as count
		FROM events
		WHERE created_at > ?
		GROUP BY event_type
		ORDER BY count DESC
		LIMIT 10`

	rows, err := r.db.Query(query, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []telemetry.EventTypeCount
	for rows.Next() {
		var c telemetry.EventTypeCount
		if err := rows.Scan(&c.EventType, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// Count returns the total number of events.
func (r *SQLEventRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}
