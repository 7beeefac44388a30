// Package workers runs the asynchronous click analytics pipeline: a pool of
// goroutines draining the click events channel and forwarding each event to
// an optional external analytics endpoint. Forwarding is best-effort by
// contract: failures are logged and absorbed, never surfaced to a redirect.
package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"shorturl/internal/models"
)

// Forwarder posts click events to the configured analytics endpoint.
// An empty endpoint disables forwarding; events are still drained.
type Forwarder struct {
	endpoint string
	client   *http.Client
}

// NewForwarder creates a forwarder with a per-request timeout.
func NewForwarder(endpoint string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Forward sends one click event. Returns an error for the worker to log;
// nothing retries, a lost event is an accepted loss.
func (f *Forwarder) Forward(event models.ClickEvent) error {
	if f.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode click event: %w", err)
	}

	resp, err := f.client.Post(f.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post click event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// StartClickWorkers launches workerCount goroutines reading from the same
// channel. Workers exit when the channel is closed.
func StartClickWorkers(workerCount int, events <-chan models.ClickEvent, forwarder *Forwarder) {
	log.Printf("Starting %d click worker(s)...", workerCount)
	for i := 0; i < workerCount; i++ {
		go clickWorker(events, forwarder)
	}
}

// clickWorker drains the channel, forwarding each event.
func clickWorker(events <-chan models.ClickEvent, forwarder *Forwarder) {
	for event := range events {
		if err := forwarder.Forward(event); err != nil {
			log.Printf("ERROR: failed to forward click for %s (IP: %s): %v",
				event.ShortCode, event.Click.IPAddress, err)
		}
	}
}
