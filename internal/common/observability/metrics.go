package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"workshop-onboarding/internal/common/logger"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	opCounter      otelmetric.Int64Counter
	opDuration     otelmetric.Float64Histogram
	logger         logger.Logger
}

type Options struct {
	ServiceName    string
	JaegerEndpoint string
}

// New wires the OpenTelemetry meter (prometheus exporter) and, when a jaeger endpoint is
// configured, a batching tracer. Exporter failures degrade to no-op instruments.
func New(opts Options, log logger.Logger) *Observability {
	o := &Observability{
		tracer: noop.NewTracerProvider().Tracer(opts.ServiceName),
		logger: logger.ForComponent(log, "observability"),
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	exporter, err := prometheus.New()
	if err != nil {
		o.logger.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(opts.ServiceName)

		o.opCounter, _ = o.meter.Int64Counter(
			"onboarding.operations",
			otelmetric.WithDescription("Onboarding operations processed"),
		)
		o.opDuration, _ = o.meter.Float64Histogram(
			"onboarding.operation.duration",
			otelmetric.WithDescription("Onboarding operation duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if opts.JaegerEndpoint != "" {
		jexp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			o.logger.Warn("failed to create jaeger exporter", map[string]interface{}{"error": err})
		} else {
			o.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(jexp),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(o.tracerProvider)
			o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
		}
	}

	return o
}

// NewNoop returns instruments that record nothing.
func NewNoop() *Observability {
	return &Observability{
		tracer: noop.NewTracerProvider().Tracer("noop"),
		logger: logger.NewNoOpLogger(),
	}
}

// StartSpan opens a span named after the operation.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("noop").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if o.opCounter != nil {
		o.opCounter.Add(ctx, 1, attrs)
	}
	if o.opDuration != nil {
		o.opDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("tracer shutdown failed", map[string]interface{}{"error": err})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("meter shutdown failed", map[string]interface{}{"error": err})
		}
	}
}
