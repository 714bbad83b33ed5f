// Package eventbus relays matched subscription events to the downstream
// runtime over HTTP.
package eventbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Bus posts matched events to {runtimeURL}/app/events. Only HTTP 200 counts
// as a successful forward; anything else fails the attempt. Attempts are
// retried a bounded number of times with a fixed delay because the forward
// is the one externally visible notification the bridge makes.
type Bus struct {
	runtimeURL string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	logger     *log.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithRetry overrides the retry budget for each forward.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(b *Bus) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if delay >= 0 {
			b.retryDelay = delay
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New constructs a Bus. timeout bounds each individual POST.
func New(runtimeURL string, timeout time.Duration, opts ...Option) *Bus {
	bus := &Bus{
		runtimeURL: runtimeURL,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
		retryDelay: 500 * time.Millisecond,
		logger:     log.New(os.Stdout, "eventbus ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

type submission struct {
	SubscriptionID string `json:"subscriptionID"`
	EventID        string `json:"eventID"`
	EventPayload   any    `json:"eventPayload"`
}

// Submit forwards a matched (subscription, event) pair to the runtime.
func (b *Bus) Submit(ctx context.Context, subscriptionID, eventID string, payload any) error {
	body, err := json.Marshal(submission{
		SubscriptionID: subscriptionID,
		EventID:        eventID,
		EventPayload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event submission: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}

		lastErr = b.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		b.logger.Printf("event=forward subscription=%s event_id=%s attempt=%d status=error err=%v", subscriptionID, eventID, attempt, lastErr)
	}
	return fmt.Errorf("forward event %s after %d attempts: %w", eventID, b.attempts, lastErr)
}

func (b *Bus) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.runtimeURL+"/app/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status code to be 200 but was %d", resp.StatusCode)
	}
	return nil
}
