package collector

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
	"github.com/google/uuid"
)

// Event is one behavioral observation queued for delivery.
type Event struct {
	Type     string
	Page     string
	Element  string
	Metadata any
}

// Options configures a Collector. Zero values fall back to the package
// configuration defaults.
type Options struct {
	Endpoint          string
	CookieName        string
	SessionKey        string
	CookieTTL         time.Duration
	FlushInterval     time.Duration
	MaxBufferedEvents int

	Jar       CookieJar
	Sessions  SessionStore
	Transport Transport
	Clock     Clock
}

type eventRecord struct {
	EventType string  `json:"event_type"`
	Page      *string `json:"page,omitempty"`
	Element   *string `json:"element,omitempty"`
	Metadata  *string `json:"metadata,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type trackPayload struct {
	VisitorID string        `json:"visitor_id"`
	SessionID string        `json:"session_id"`
	Events    []eventRecord `json:"events"`
}

type identifyPayload struct {
	VisitorID string `json:"visitor_id"`
	Email     string `json:"email"`
}

// Collector buffers events and flushes them to the collection endpoint on a
// fixed interval. All methods are safe for concurrent use.
type Collector struct {
	opts      Options
	visitorID string
	sessionID string

	mu     sync.Mutex
	buffer []eventRecord

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a collector and bootstraps visitor and session identity. The
// visitor id persists across sessions via the cookie jar; the session id
// lives only as long as the session store. Bootstrap is idempotent: reusing
// the same jar and store yields the same ids.
func New(opts Options) *Collector {
	if opts.Endpoint == "" {
		opts.Endpoint = "http://localhost:" + config.Port
	}
	if opts.CookieName == "" {
		opts.CookieName = config.VisitorCookieName
	}
	if opts.SessionKey == "" {
		opts.SessionKey = config.SessionStorageKey
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = config.VisitorCookieExpiry
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = config.FlushInterval
	}
	if opts.MaxBufferedEvents <= 0 {
		opts.MaxBufferedEvents = config.MaxBufferedEvents
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Jar == nil {
		opts.Jar = NewMemoryCookieJar(opts.Clock)
	}
	if opts.Sessions == nil {
		opts.Sessions = NewMemorySessionStore()
	}
	if opts.Transport == nil {
		opts.Transport = NewBeaconTransport(nil)
	}

	c := &Collector{
		opts: opts,
		done: make(chan struct{}),
	}

	visitorID, ok := opts.Jar.Get(opts.CookieName)
	if !ok {
		visitorID = uuid.NewString()
	}
	// Refresh the cookie lifetime on every bootstrap.
	opts.Jar.Set(opts.CookieName, visitorID, opts.CookieTTL)
	c.visitorID = visitorID

	sessionID, ok := opts.Sessions.Get(opts.SessionKey)
	if !ok {
		sessionID = uuid.NewString()
		opts.Sessions.Set(opts.SessionKey, sessionID)
	}
	c.sessionID = sessionID

	return c
}

// Init records the initial page view and launches the periodic flush loop.
// Calling Init more than once has no effect. Hosts should also call Flush
// when the page is hidden or about to unload.
func (c *Collector) Init(page string) {
	c.startOnce.Do(func() {
		c.TrackPageView(page)
		go c.flushLoop()
	})
}

func (c *Collector) flushLoop() {
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Flush(context.Background())
		case <-c.done:
			return
		}
	}
}

// VisitorID returns the durable visitor identifier.
func (c *Collector) VisitorID() string { return c.visitorID }

// SessionID returns the per-session identifier.
func (c *Collector) SessionID() string { return c.sessionID }

// Track queues one event. When the buffer is at capacity the oldest queued
// event is dropped to make room, so a stalled endpoint cannot grow memory
// without bound.
func (c *Collector) Track(event Event) {
	record := eventRecord{
		EventType: event.Type,
		Timestamp: c.opts.Clock.Now().UTC().Format(time.RFC3339),
	}
	if event.Page != "" {
		record.Page = &event.Page
	}
	if event.Element != "" {
		record.Element = &event.Element
	}
	// Metadata travels as a JSON-encoded string, never a nested object.
	if event.Metadata != nil {
		if encoded, err := json.Marshal(event.Metadata); err == nil {
			text := string(encoded)
			record.Metadata = &text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) >= c.opts.MaxBufferedEvents {
		c.buffer = c.buffer[1:]
	}
	c.buffer = append(c.buffer, record)
}

// TrackPageView queues a page view event. An empty page records the home
// sentinel route.
func (c *Collector) TrackPageView(page string) {
	if page == "" {
		page = HomePage
	}
	c.Track(Event{Type: EventPageView, Page: page})
}

// TrackClick queues a generic UI click on a tagged element.
func (c *Collector) TrackClick(page, element string) {
	c.Track(Event{Type: EventUIClick, Page: page, Element: element})
}

// TrackLink classifies a clicked link href and queues the matching contact or
// social event. Returns false when the link carries no tracked intent.
func (c *Collector) TrackLink(page, href string) bool {
	eventType, platform, ok := ClassifyLink(href)
	if !ok {
		return false
	}
	event := Event{Type: eventType, Page: page, Element: href}
	if platform != "" {
		event.Metadata = map[string]string{"platform": platform}
	}
	c.Track(event)
	return true
}

// TrackCopy queues an email-copy event when the copied selection is an email
// address. Returns false otherwise.
func (c *Collector) TrackCopy(page, text string) bool {
	address := strings.TrimSpace(text)
	if !IsEmailAddress(address) {
		return false
	}
	c.Track(Event{Type: EventEmailCopy, Page: page, Metadata: map[string]string{"email": address}})
	return true
}

// Flush sends all buffered events as one batch. The buffer is cleared before
// delivery is attempted, so events are never sent twice even if the transport
// retries or fails.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	body, err := json.Marshal(trackPayload{
		VisitorID: c.visitorID,
		SessionID: c.sessionID,
		Events:    batch,
	})
	if err != nil {
		return err
	}

	return c.opts.Transport.Post(ctx, c.opts.Endpoint+"/api/v1/track", body)
}

// Identify submits the visitor's email exactly as entered; the server owns
// normalization and any identity merge. A user.identify event rides the
// normal buffer, while the resolution request itself is sent immediately.
// Blank input is a no-op.
func (c *Collector) Identify(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	c.Track(Event{Type: EventIdentify})

	body, err := json.Marshal(identifyPayload{
		VisitorID: c.visitorID,
		Email:     email,
	})
	if err != nil {
		return err
	}
	return c.opts.Transport.Post(ctx, c.opts.Endpoint+"/api/v1/identify", body)
}

// Close stops the flush loop and delivers any remaining events.
func (c *Collector) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = c.Flush(ctx)
	})
	return err
}
