package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// OverviewSnapshot aggregates headline counts for the admin dashboard.
type OverviewSnapshot struct {
	TotalVisitors    int                        `json:"totalVisitors"`
	TotalSessions    int                        `json:"totalSessions"`
	TotalEvents      int                        `json:"totalEvents"`
	TotalSubscribers int                        `json:"totalSubscribers"`
	EventsLast24h    []telemetry.EventTypeCount `json:"eventsLast24h"`
}

// Page wraps a listing with its total row count for offset pagination.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// ActivityService serves the read-side queries behind the admin dashboard.
type ActivityService struct {
	visitors    telemetry.VisitorRepository
	sessions    telemetry.SessionRepository
	events      telemetry.EventRepository
	subscribers telemetry.SubscriberRepository
	logger      *logging.ChanneledLogger
}

// NewActivityService creates a new activity service.
func NewActivityService(
	visitors telemetry.VisitorRepository,
	sessions telemetry.SessionRepository,
	events telemetry.EventRepository,
	subscribers telemetry.SubscriberRepository,
	logger *logging.ChanneledLogger,
) *ActivityService {
	return &ActivityService{
		visitors:    visitors,
		sessions:    sessions,
		events:      events,
		subscribers: subscribers,
		logger:      logger,
	}
}

// ClampLimit normalizes a requested page size into the configured bounds.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultQueryLimit
	}
	if limit > config.MaxQueryLimit {
		return config.MaxQueryLimit
	}
	return limit
}

// Overview returns the headline dashboard counts plus a 24-hour event type
// breakdown.
func (s *ActivityService) Overview() (*OverviewSnapshot, error) {
	visitorCount, err := s.visitors.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}
	sessionCount, err := s.sessions.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	eventCount, err := s.events.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	subscriberCount, err := s.subscribers.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count subscribers: %w", err)
	}
	recentByType, err := s.events.CountByTypeSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate recent events: %w", err)
	}

	return &OverviewSnapshot{
		TotalVisitors:    visitorCount,
		TotalSessions:    sessionCount,
		TotalEvents:      eventCount,
		TotalSubscribers: subscriberCount,
		EventsLast24h:    recentByType,
	}, nil
}

// Visitors lists visitor summaries with activity totals.
func (s *ActivityService) Visitors(limit, offset int) (*Page[*telemetry.VisitorSummary], error) {
	items, err := s.visitors.List(ClampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	total, err := s.visitors.Count()
	if err != nil {
		return nil, err
	}
	return &Page[*telemetry.VisitorSummary]{Items: items, Total: total}, nil
}

// Sessions lists session summaries with their visitor and event counts.
func (s *ActivityService) Sessions(limit, offset int) (*Page[*telemetry.SessionSummary], error) {
	items, err := s.sessions.List(ClampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	total, err := s.sessions.Count()
	if err != nil {
		return nil, err
	}
	return &Page[*telemetry.SessionSummary]{Items: items, Total: total}, nil
}

// Events lists the most recent raw events.
func (s *ActivityService) Events(limit, offset int) (*Page[*telemetry.Event], error) {
	items, err := s.events.ListRecent(ClampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	total, err := s.events.Count()
	if err != nil {
		return nil, err
	}
	return &Page[*telemetry.Event]{Items: items, Total: total}, nil
}

// Subscribers lists subscriber summaries joined with visitor activity.
func (s *ActivityService) Subscribers(limit, offset int) (*Page[*telemetry.SubscriberSummary], error) {
	items, err := s.subscribers.List(ClampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	total, err := s.subscribers.Count()
	if err != nil {
		return nil, err
	}
	return &Page[*telemetry.SubscriberSummary]{Items: items, Total: total}, nil
}
