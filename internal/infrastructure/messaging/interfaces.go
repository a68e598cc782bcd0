// Package messaging defines interfaces for real-time communication.
package messaging

// ActivityPublisher is implemented by the websocket broadcaster and accepted
// by services that emit live activity, so tests can substitute a recorder.
type ActivityPublisher interface {
	PublishEvent(event ActivityEvent)
}
