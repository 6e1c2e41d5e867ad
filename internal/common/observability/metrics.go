package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability holds the otel instruments recorded around submissions.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
	unitCounter        otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submissionCounter, _ := meter.Int64Counter(
		"inspection.submissions",
		otelmetric.WithDescription("Number of session submissions"),
	)

	submissionDuration, _ := meter.Float64Histogram(
		"inspection.submission.duration",
		otelmetric.WithDescription("Session submission duration"),
		otelmetric.WithUnit("ms"),
	)

	unitCounter, _ := meter.Int64Counter(
		"inspection.unit.posts",
		otelmetric.WithDescription("Number of per-unit create-record calls"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		submissionCounter:  submissionCounter,
		submissionDuration: submissionDuration,
		unitCounter:        unitCounter,
	}
}

// NewNoop returns an Observability whose recorders do nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordSubmission(ctx context.Context, inspection, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("inspection", inspection),
		attribute.String("outcome", outcome),
	)
	if o.submissionCounter != nil {
		o.submissionCounter.Add(ctx, 1, attrs)
	}
	if o.submissionDuration != nil {
		o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordUnitPost(ctx context.Context, inspection, result string) {
	if o.unitCounter != nil {
		o.unitCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("inspection", inspection),
			attribute.String("result", result),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
