// Package telemetry defines the visitor, session, event, subscriber, and
// submission entities plus the repository interfaces that persist them. The
// interfaces abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
package telemetry

import "time"

// Visitor represents a long-lived browser identity, keyed by the cookie-held
// visitor id. The email is set only after an identify call and is unique
// across visitors.
type Visitor struct {
	VisitorID   string    `json:"visitorId"`
	Email       *string   `json:"email,omitempty"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// ClientContext is the request-time snapshot captured when a session row is
// first inserted. It is frozen at session creation and never refreshed.
type ClientContext struct {
	UserAgent *string `json:"userAgent,omitempty"`
	Country   *string `json:"country,omitempty"`
	City      *string `json:"city,omitempty"`
	Region    *string `json:"region,omitempty"`
}

// Session represents a per-tab browsing session owned by a visitor.
type Session struct {
	SessionID    string        `json:"sessionId"`
	VisitorID    string        `json:"visitorId"`
	StartedAt    time.Time     `json:"startedAt"`
	LastActiveAt time.Time     `json:"lastActiveAt"`
	Context      ClientContext `json:"context"`
}

// Event is an immutable behavioral event attributed to a visitor and session.
// VisitorID and SessionID are both stored on the row so queries never have to
// join through sessions.
type Event struct {
	ID        string  `json:"id"`
	VisitorID string  `json:"visitorId"`
	SessionID string  `json:"sessionId"`
	EventType string  `json:"eventType"`
	Page      *string `json:"page,omitempty"`
	Element   *string `json:"element,omitempty"`
	Metadata  *string `json:"metadata,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// Subscriber links a captured email to its current visitor id.
type Subscriber struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	VisitorID    string    `json:"visitorId"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// FormSubmission is a captured lead contact form, stored with the edge
// metadata available at submission time.
type FormSubmission struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DOB              *string   `json:"dob,omitempty"`
	Place            *string   `json:"place,omitempty"`
	Phone            string    `json:"phone"`
	Email            *string   `json:"email,omitempty"`
	Service          *string   `json:"service,omitempty"`
	Country          *string   `json:"country,omitempty"`
	City             *string   `json:"city,omitempty"`
	Region           *string   `json:"region,omitempty"`
	Latitude         *string   `json:"latitude,omitempty"`
	Longitude        *string   `json:"longitude,omitempty"`
	Timezone         *string   `json:"timezone,omitempty"`
	BrowserLatitude  *float64  `json:"browserLatitude,omitempty"`
	BrowserLongitude *float64  `json:"browserLongitude,omitempty"`
	UserAgent        *string   `json:"userAgent,omitempty"`
	SubmittedAt      time.Time `json:"submittedAt"`
}
