package telemetry

import "time"

// VisitorSummary is a listing row for the admin activity surface, a Visitor
// plus activity totals.
type VisitorSummary struct {
	Visitor
	TotalEvents   int `json:"totalEvents"`
	TotalSessions int `json:"totalSessions"`
}

// SessionSummary is a listing row joining session, visitor email, and event count.
type SessionSummary struct {
	Session
	Email      *string `json:"email,omitempty"`
	EventCount int     `json:"eventCount"`
}

// SubscriberSummary is a listing row joining subscriber and visitor activity.
type SubscriberSummary struct {
	Subscriber
	FirstSeenAt   *string `json:"firstSeenAt,omitempty"`
	LastSeenAt    *string `json:"lastSeenAt,omitempty"`
	TotalEvents   int     `json:"totalEvents"`
	TotalSessions int     `json:"totalSessions"`
}

// EventTypeCount is an aggregate of events by type.
type EventTypeCount struct {
	EventType string `json:"eventType"`
	Count     int    `json:"count"`
}

// VisitorRepository defines the operations for persisting Visitor entities.
type VisitorRepository interface {
	// Upsert inserts a visitor with first_seen_at = last_seen_at = now, or
	// advances last_seen_at only when the visitor already exists.
	Upsert(visitorID string) error
	// UpsertWithEmail behaves like Upsert and additionally binds the
	// (already normalized) email to the visitor.
	UpsertWithEmail(visitorID, email string) error
	FindByID(visitorID string) (*Visitor, error)
	// FindByEmailExcluding returns the visitor holding the given email under a
	// different visitor id, or nil when no such visitor exists.
	FindByEmailExcluding(email, visitorID string) (*Visitor, error)
	List(limit, offset int) ([]*VisitorSummary, error)
	Count() (int, error)
}

// BatchWriter persists one ingestion batch (visitor upsert, session upsert,
// event inserts) as a single transactional unit, so a partially applied batch
// is never visible to readers. Returns the number of events written.
type BatchWriter interface {
	StoreBatch(visitorID, sessionID string, ctx ClientContext, events []Event) (int, error)
}

// SessionRepository defines the operations for persisting Session entities.
type SessionRepository interface {
	// Upsert inserts a session with its client context snapshot, or advances
	// last_active_at only when the session already exists. The snapshot is
	// never refreshed after first insert.
	Upsert(sessionID, visitorID string, ctx ClientContext) error
	FindByID(sessionID string) (*Session, error)
	List(limit, offset int) ([]*SessionSummary, error)
	Count() (int, error)
}

// EventRepository defines the read-side operations over Event rows. Events
// are only ever written through the BatchWriter.
type EventRepository interface {
	ListRecent(limit, offset int) ([]*Event, error)
	CountBySession(sessionID string) (int, error)
	CountByTypeSince(since time.Time) ([]EventTypeCount, error)
	Count() (int, error)
}

// SubscriberRepository defines the operations for persisting Subscriber entities.
type SubscriberRepository interface {
	// Upsert inserts a subscriber keyed by email, or repoints an existing one
	// at the given visitor id.
	Upsert(email, visitorID string) error
	FindByEmail(email string) (*Subscriber, error)
	List(limit, offset int) ([]*SubscriberSummary, error)
	Count() (int, error)
}

// SubmissionRepository defines the operations for persisting FormSubmission entities.
type SubmissionRepository interface {
	Insert(submission *FormSubmission) error
	List(limit, offset int) ([]*FormSubmission, error)
	Count() (int, error)
}

// IdentityMerger re-parents all of a superseded visitor's rows onto a new
// visitor id and removes the superseded visitor, as one atomic unit. Children
// are repointed before the visitor row is deleted so a partial failure can
// never leave rows referencing a missing visitor.
type IdentityMerger interface {
	Merge(oldVisitorID, newVisitorID string) error
}
