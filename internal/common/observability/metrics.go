package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"cashflow-loans/internal/common/logger"
)

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracing        *Tracing
	meter          otelmetric.Meter
	submitCounter  otelmetric.Int64Counter
	submitDuration otelmetric.Float64Histogram
}

// New sets up the Prometheus-backed meter provider and, when jaegerEndpoint is
// set, a Jaeger tracer provider. Failures degrade to no-op instruments.
func New(serviceName, jaegerEndpoint string, sampleRatio float64, log logger.Logger) *Observability {
	o := &Observability{}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(serviceName)

		o.submitCounter, _ = o.meter.Int64Counter(
			"loan.submissions",
			otelmetric.WithDescription("Number of application submissions"),
		)
		o.submitDuration, _ = o.meter.Float64Histogram(
			"loan.submission.duration",
			otelmetric.WithDescription("Application submission duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		tr, err := NewTracing(serviceName, jaegerEndpoint, sampleRatio)
		if err != nil {
			log.Warn("Tracing disabled", map[string]interface{}{"error": err})
		} else {
			o.tracing = tr
		}
	}
	return o
}

func (o *Observability) RecordSubmission(ctx context.Context, channel string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("channel", channel))
	if o.submitCounter != nil {
		o.submitCounter.Add(ctx, 1, attrs)
	}
	if o.submitDuration != nil {
		o.submitDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracing != nil {
		_ = o.tracing.Shutdown(ctx)
	}
}
