// Package messaging provides the websocket broadcaster for live activity.
package messaging

import (
	"encoding/json"
	"sync"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

// ActivityClient represents a single connected dashboard client.
type ActivityClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// ActivityEvent is the message pushed to dashboard clients as batches arrive.
type ActivityEvent struct {
	VisitorID  string  `json:"visitorId"`
	SessionID  string  `json:"sessionId"`
	EventType  string  `json:"eventType"`
	Page       *string `json:"page,omitempty"`
	Element    *string `json:"element,omitempty"`
	OccurredAt string  `json:"occurredAt"`
}

// ActivityBroadcaster fans ingested events out to all connected dashboard
// clients. Slow clients drop messages rather than stall ingestion.
type ActivityBroadcaster struct {
	clients    map[*ActivityClient]bool
	register   chan *ActivityClient
	unregister chan *ActivityClient
	publish    chan ActivityEvent
	done       chan struct{}
	stopOnce   sync.Once
	logger     *logging.ChanneledLogger
	mu         sync.RWMutex
}

// NewActivityBroadcaster creates a new broadcaster instance.
func NewActivityBroadcaster(logger *logging.ChanneledLogger) *ActivityBroadcaster {
	return &ActivityBroadcaster{
		clients:    make(map[*ActivityClient]bool),
		register:   make(chan *ActivityClient),
		unregister: make(chan *ActivityClient),
		publish:    make(chan ActivityEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the broadcaster's main loop and returns after Stop is called.
// This should be run as a goroutine.
func (b *ActivityBroadcaster) Run() {
	for {
		select {
		case <-b.done:
			b.mu.Lock()
			for client := range b.clients {
				close(client.Send)
				delete(b.clients, client)
			}
			b.mu.Unlock()
			b.logger.Stream().Info("Activity broadcaster stopped")
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.Stream().Debug("Activity client registered", "clientCount", b.ClientCount())

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.Stream().Debug("Activity client unregistered", "clientCount", b.ClientCount())

		case event := <-b.publish:
			b.broadcast(event)
		}
	}
}

// Stop terminates the Run loop and disconnects all clients. Safe to call
// more than once.
func (b *ActivityBroadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
}

// Register queues a client for registration. No-op once stopped.
func (b *ActivityBroadcaster) Register(client *ActivityClient) {
	select {
	case b.register <- client:
	case <-b.done:
	}
}

// Unregister queues a client for unregistration. No-op once stopped.
func (b *ActivityBroadcaster) Unregister(client *ActivityClient) {
	select {
	case b.unregister <- client:
	case <-b.done:
	}
}

// PublishEvent queues an event for broadcast. Never blocks the caller; when
// the queue is full the event is dropped.
func (b *ActivityBroadcaster) PublishEvent(event ActivityEvent) {
	select {
	case b.publish <- event:
	default:
		b.logger.Stream().Warn("Activity publish queue full, event dropped", "eventType", event.EventType)
	}
}

// ClientCount returns the number of connected dashboard clients.
func (b *ActivityBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *ActivityBroadcaster) broadcast(event ActivityEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		b.logger.Stream().Error("Failed to marshal activity event", "error", err.Error())
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Send <- message:
		default:
			b.logger.Stream().Warn("Activity client send buffer full, message dropped")
		}
	}
}
