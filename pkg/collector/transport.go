package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// Transport delivers serialized payloads to the collection endpoint.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) error
}

// HTTPTransport posts payloads over a shared keep-alive HTTP client.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport creates a transport with a short-timeout client suited to
// background delivery.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Post sends one JSON payload and treats any non-2xx status as an error.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collection endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// BeaconTransport mimics navigator.sendBeacon semantics: delivery is queued
// fire-and-forget and failures are silently dropped, so tracking can never
// disturb the host application.
type BeaconTransport struct {
	inner Transport
}

// NewBeaconTransport wraps a transport with fire-and-forget delivery.
func NewBeaconTransport(inner Transport) *BeaconTransport {
	if inner == nil {
		inner = NewHTTPTransport()
	}
	return &BeaconTransport{inner: inner}
}

// Post queues the payload for asynchronous delivery and always succeeds.
func (t *BeaconTransport) Post(_ context.Context, url string, body []byte) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = t.inner.Post(ctx, url, body)
	}()
	return nil
}
