// Package observe provides observability primitives for the relay:
// OpenTelemetry metric instruments and the Prometheus exporter bridge so
// metrics can be scraped via the standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all relay metrics.
const meterName = "github.com/umarrg/chatbot"

// Metrics holds all OpenTelemetry metric instruments for the relay.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	meter metric.Meter

	// CompletionDuration tracks upstream completion latency.
	CompletionDuration metric.Float64Histogram

	// Completions counts upstream completion calls. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Completions metric.Int64Counter

	// CompletionErrors counts classified completion failures. Use with
	// attribute: attribute.String("kind", ...)
	CompletionErrors metric.Int64Counter

	// MessagesHandled counts inbound messages by routed command. Use with
	// attribute: attribute.String("command", ...)
	MessagesHandled metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// chat-completion latencies.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.CompletionDuration, err = m.Float64Histogram("chatbot.completion.duration",
		metric.WithDescription("Latency of upstream completion calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Completions, err = m.Int64Counter("chatbot.completions",
		metric.WithDescription("Total upstream completion calls by status."),
	); err != nil {
		return nil, err
	}
	if met.CompletionErrors, err = m.Int64Counter("chatbot.completion.errors",
		metric.WithDescription("Total classified completion failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.MessagesHandled, err = m.Int64Counter("chatbot.messages.handled",
		metric.WithDescription("Total inbound messages by routed command."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ObserveActiveSessions registers an observable gauge that reports the
// current active session count via the given callback on every scrape.
func (m *Metrics) ObserveActiveSessions(count func() int64) error {
	gauge, err := m.meter.Int64ObservableGauge("chatbot.active_sessions",
		metric.WithDescription("Number of active conversation sessions."),
	)
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, count())
		return nil
	}, gauge)
	return err
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCompletion records one completion call: its latency and a status
// counter increment, plus an error-kind increment when kind is non-empty.
func (m *Metrics) RecordCompletion(ctx context.Context, seconds float64, kind string) {
	status := "ok"
	if kind != "" {
		status = "error"
		m.CompletionErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", kind)),
		)
	}
	m.CompletionDuration.Record(ctx, seconds)
	m.Completions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordMessage records an inbound message counter increment for the
// routed command ("ask", "clear", "freeform", ...).
func (m *Metrics) RecordMessage(ctx context.Context, command string) {
	m.MessagesHandled.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command", command)),
	)
}
