// Package metrics tracks bridge activity: inbound events, listener matches,
// forwards to the runtime, and API operation failures. Counts are kept in
// process (atomics) and mirrored to OpenTelemetry instruments so inner
// success/failure stays observable even though the HTTP surface always
// answers 200.
package metrics

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counters holds the in-process totals.
type Counters struct {
	EventsReceived   atomic.Int64
	Matches          atomic.Int64
	Forwards         atomic.Int64
	ForwardFailures  atomic.Int64
	OperationErrors  atomic.Int64
	ForwardLatencyNs atomic.Int64
}

var global Counters

// Snapshot returns the current totals.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"events_received":  global.EventsReceived.Load(),
		"matches":          global.Matches.Load(),
		"forwards":         global.Forwards.Load(),
		"forward_failures": global.ForwardFailures.Load(),
		"operation_errors": global.OperationErrors.Load(),
	}
}

var (
	initOnce         sync.Once
	eventCounter     metric.Int64Counter
	matchCounter     metric.Int64Counter
	forwardCounter   metric.Int64Counter
	errorCounter     metric.Int64Counter
	forwardHistogram metric.Float64Histogram
)

func initInstruments() {
	initOnce.Do(func() {
		meter := otel.Meter("slackbridge")

		var err error
		eventCounter, err = meter.Int64Counter(
			"slackbridge.events.received",
			metric.WithDescription("Inbound webhook events dispatched to the matcher"),
		)
		if err != nil {
			log.Printf("metrics: failed to create event counter: %v", err)
		}

		matchCounter, err = meter.Int64Counter(
			"slackbridge.events.matched",
			metric.WithDescription("Events matched to a listener"),
		)
		if err != nil {
			log.Printf("metrics: failed to create match counter: %v", err)
		}

		forwardCounter, err = meter.Int64Counter(
			"slackbridge.forwards.total",
			metric.WithDescription("Forward attempts to the runtime event bus"),
		)
		if err != nil {
			log.Printf("metrics: failed to create forward counter: %v", err)
		}

		errorCounter, err = meter.Int64Counter(
			"slackbridge.operations.errors",
			metric.WithDescription("Bridge operations that failed internally"),
		)
		if err != nil {
			log.Printf("metrics: failed to create error counter: %v", err)
		}

		forwardHistogram, err = meter.Float64Histogram(
			"slackbridge.forward.duration",
			metric.WithDescription("Event-bus forward duration (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("metrics: failed to create forward histogram: %v", err)
		}
	})
}

// RecordEventReceived counts an inbound webhook event of the given type.
func RecordEventReceived(ctx context.Context, eventType string) {
	initInstruments()
	global.EventsReceived.Add(1)
	if eventCounter != nil {
		eventCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	}
}

// RecordMatch counts a listener match.
func RecordMatch(ctx context.Context, subscriptionID string) {
	initInstruments()
	global.Matches.Add(1)
	if matchCounter != nil {
		matchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("subscription.id", subscriptionID)))
	}
}

// RecordForward counts a completed forward attempt.
func RecordForward(ctx context.Context, duration time.Duration, err error) {
	initInstruments()
	global.Forwards.Add(1)
	global.ForwardLatencyNs.Add(duration.Nanoseconds())

	status := "ok"
	if err != nil {
		status = "error"
		global.ForwardFailures.Add(1)
	}
	attrs := metric.WithAttributes(attribute.String("forward.status", status))
	if forwardCounter != nil {
		forwardCounter.Add(ctx, 1, attrs)
	}
	if forwardHistogram != nil {
		forwardHistogram.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordOperationError counts an API operation that failed internally while
// the HTTP surface still answered 200.
func RecordOperationError(ctx context.Context, operation string) {
	initInstruments()
	global.OperationErrors.Add(1)
	if errorCounter != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}
