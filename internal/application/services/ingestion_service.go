// Package services contains the application layer orchestrating repositories.
package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// EventPayload is one event record inside a tracking batch.
type EventPayload struct {
	EventType string          `json:"event_type"`
	Page      *string         `json:"page,omitempty"`
	Element   *string         `json:"element,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// TrackRequest is the wire format posted by the collector on each flush.
type TrackRequest struct {
	VisitorID string         `json:"visitor_id"`
	SessionID string         `json:"session_id"`
	Events    []EventPayload `json:"events"`
}

// ErrMissingIdentifiers is returned when a batch omits visitor or session ids.
var ErrMissingIdentifiers = errors.New("visitor_id and session_id are required")

// IngestionService turns collector batches into stored rows and live activity.
type IngestionService struct {
	batchWriter telemetry.BatchWriter
	publisher   messaging.ActivityPublisher
	logger      *logging.ChanneledLogger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(batchWriter telemetry.BatchWriter, publisher messaging.ActivityPublisher, logger *logging.ChanneledLogger) *IngestionService {
	return &IngestionService{
		batchWriter: batchWriter,
		publisher:   publisher,
		logger:      logger,
	}
}

// ProcessBatch validates and persists one tracking batch, then publishes the
// events to any connected dashboard clients. Returns the stored event count.
func (s *IngestionService) ProcessBatch(req TrackRequest, clientCtx telemetry.ClientContext) (int, error) {
	if req.VisitorID == "" || req.SessionID == "" {
		return 0, ErrMissingIdentifiers
	}
	// An empty events array is a valid batch; acknowledge without touching
	// the store.
	if len(req.Events) == 0 {
		return 0, nil
	}

	events := make([]telemetry.Event, 0, len(req.Events))
	for _, payload := range req.Events {
		events = append(events, telemetry.Event{
			EventType: payload.EventType,
			Page:      payload.Page,
			Element:   payload.Element,
			Metadata:  metadataString(payload.Metadata),
			CreatedAt: payload.Timestamp,
		})
	}

	stored, err := s.batchWriter.StoreBatch(req.VisitorID, req.SessionID, clientCtx, events)
	if err != nil {
		return 0, err
	}

	s.logger.Telemetry().Info("Batch ingested",
		"visitorId", logging.SanitizeVisitorID(req.VisitorID),
		"sessionId", req.SessionID,
		"eventCount", stored)

	if s.publisher != nil {
		now := time.Now().UTC().Format(time.RFC3339)
		for _, event := range events {
			eventType := event.EventType
			if eventType == "" {
				eventType = "unknown"
			}
			occurredAt := event.CreatedAt
			if occurredAt == "" {
				occurredAt = now
			}
			s.publisher.PublishEvent(messaging.ActivityEvent{
				VisitorID:  req.VisitorID,
				SessionID:  req.SessionID,
				EventType:  eventType,
				Page:       event.Page,
				Element:    event.Element,
				OccurredAt: occurredAt,
			})
		}
	}

	return stored, nil
}

// metadataString renders arbitrary metadata JSON to its stored string form.
// A JSON string value is stored as-is without the surrounding quotes.
func metadataString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &str
	}
	value := string(raw)
	return &value
}
