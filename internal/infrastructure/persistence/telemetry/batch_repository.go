package telemetry

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
)

// SQLBatchRepository persists one ingestion batch as a single transaction:
// visitor upsert, session upsert, then every event insert. Readers never see
// a partially applied batch.
type SQLBatchRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLBatchRepository creates a new instance of the repository.
func NewSQLBatchRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLBatchRepository {
	return &SQLBatchRepository{
		db:     db,
		logger: logger,
	}
}

const (
	upsertVisitorQuery = `
		INSERT INTO visitors (visitor_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(visitor_id) DO UPDATE SET last_seen_at = excluded.last_seen_at`

	upsertSessionQuery = `
		INSERT INTO sessions (session_id, visitor_id, started_at, last_active_at, user_agent, geo_country, geo_city, geo_region)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_active_at = excluded.last_active_at`

	insertEventQuery = `
		INSERT INTO events (id, visitor_id, session_id, event_type, page, element, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// StoreBatch applies the whole batch and returns the number of events written.
func (r *SQLBatchRepository) StoreBatch(visitorID, sessionID string, ctx telemetry.ClientContext, events []telemetry.Event) (int, error) {
	start := time.Now()
	now := formatTime(time.Now())

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(upsertVisitorQuery, visitorID, now, now); err != nil {
		r.logger.Database().Error("Batch visitor upsert failed", "error", err.Error(), "visitorId", logging.SanitizeVisitorID(visitorID))
		return 0, fmt.Errorf("failed to upsert visitor: %w", err)
	}

	if _, err := tx.Exec(upsertSessionQuery, sessionID, visitorID, now, now, ctx.UserAgent, ctx.Country, ctx.City, ctx.Region); err != nil {
		r.logger.Database().Error("Batch session upsert failed", "error", err.Error(), "sessionId", sessionID)
		return 0, fmt.Errorf("failed to upsert session: %w", err)
	}

	stmt, err := tx.Prepare(insertEventQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		eventType := event.EventType
		if eventType == "" {
			eventType = "unknown"
		}

		createdAt := normalizeClientTime(event.CreatedAt, now)

		_, err := stmt.Exec(
			security.GenerateULID(),
			visitorID,
			sessionID,
			eventType,
			event.Page,
			event.Element,
			event.Metadata,
			createdAt,
		)
		if err != nil {
			r.logger.Database().Error("Batch event insert failed", "error", err.Error(), "eventType", eventType, "sessionId", sessionID)
			return 0, fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Event batch stored",
		"visitorId", logging.SanitizeVisitorID(visitorID),
		"sessionId", sessionID,
		"eventCount", len(events),
		"duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "BATCH_STORE_EVENTS", duration)

	return len(events), nil
}

// normalizeClientTime renders a client-supplied ISO-8601 timestamp in the
// schema's layout. The client's clock is trusted as-is; server time is only
// a fallback for a missing or unparseable value.
func normalizeClientTime(clientTime, serverNow string) string {
	if clientTime == "" {
		return serverNow
	}
	t, err := time.Parse(time.RFC3339, clientTime)
	if err != nil {
		return serverNow
	}
	return formatTime(t)
}
