package telemetry

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLMergeRepository re-parents all of a superseded visitor's rows onto a new
// visitor id inside one transaction. Children (events, sessions, subscribers)
// are repointed first and the visitor row deleted last, so a crash mid-merge
// can never leave rows referencing a missing visitor.
type SQLMergeRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLMergeRepository creates a new instance of the repository.
func NewSQLMergeRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLMergeRepository {
	return &SQLMergeRepository{
		db:     db,
		logger: logger,
	}
}

// Merge moves events, sessions, and subscriber rows from oldVisitorID to
// newVisitorID and deletes the old visitor row.
func (r *SQLMergeRepository) Merge(oldVisitorID, newVisitorID string) error {
	start := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE events SET visitor_id = ? WHERE visitor_id = ?`, newVisitorID, oldVisitorID); err != nil {
		return fmt.Errorf("failed to reparent events: %w", err)
	}

	if _, err := tx.Exec(`UPDATE sessions SET visitor_id = ? WHERE visitor_id = ?`, newVisitorID, oldVisitorID); err != nil {
		return fmt.Errorf("failed to reparent sessions: %w", err)
	}

	if _, err := tx.Exec(`UPDATE subscribers SET visitor_id = ? WHERE visitor_id = ?`, newVisitorID, oldVisitorID); err != nil {
		return fmt.Errorf("failed to reparent subscribers: %w", err)
	}

	// Delete last, after every foreign reference is repointed.
	if _, err := tx.Exec(`DELETE FROM visitors WHERE visitor_id = ?`, oldVisitorID); err != nil {
		return fmt.Errorf("failed to delete superseded visitor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}

	r.logger.Database().Info("Visitor identity merged",
		"oldVisitorId", logging.SanitizeVisitorID(oldVisitorID),
		"newVisitorId", logging.SanitizeVisitorID(newVisitorID),
		"duration", time.Since(start))

	return nil
}
