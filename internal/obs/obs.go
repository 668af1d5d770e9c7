// Package obs provides the operation-level metrics and tracing spec.md
// §10 supplements: a prometheus counter/histogram pair per verb and one
// otel span per facade call, grounded on the teacher's
// observability.Collector (internal/infrastructure/observability/metrics.go)
// and observability.TracerProvider (tracing.go), wired directly into
// store.DocumentStore instead of through the teacher's DI container.
package obs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider bundles the metrics and tracer a DocumentStore reports through.
type Provider struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec

	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New builds a Provider under namespace (conventionally "docstore"),
// registering its metrics with a fresh prometheus.Registry so repeated
// calls in tests don't collide with a package-level default registry.
func New(namespace string) *Provider {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of store operations, by verb and outcome.",
	}, []string{"verb", "collection", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Store operation duration in seconds, by verb.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"verb", "collection"})

	registry.MustRegister(operations, duration)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)

	return &Provider{
		registry:       registry,
		operations:     operations,
		duration:       duration,
		tracerProvider: tp,
		tracer:         tp.Tracer("github.com/brain2labs/docstore/store"),
	}
}

// Registry exposes the Provider's prometheus registry so a caller can serve
// it over /metrics.
func (p *Provider) Registry() *prometheus.Registry { return p.registry }

// Observe wraps one Execute/ExecuteStatement call: it opens a span named
// after verb, times the call, and records the operation counter/histogram
// once fn returns.
func (p *Provider) Observe(ctx context.Context, verb, collection string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "docstore."+verb)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.duration.WithLabelValues(verb, collection).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.operations.WithLabelValues(verb, collection, status).Inc()
	return err
}

// Shutdown flushes and releases the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tracerProvider.Shutdown(ctx)
}
