// Package telemetry sets up OpenTelemetry tracing, the OpenTelemetry to
// Prometheus metrics bridge and context propagation.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by agent spans and instruments.
const TracerName = "github.com/chromara/hq"

// Config selects what Init installs.
type Config struct {
	ServiceName    string
	TracingEnabled bool
	// ProjectID enables export to Google Cloud Trace when tracing is on.
	ProjectID string
}

var (
	meterOnce sync.Once
	meterProv *sdkmetric.MeterProvider
	meterErr  error

	instrumentsOnce sync.Once
	scrapeDuration  otelmetric.Float64Histogram
)

// Init installs the global propagator, a meter provider that feeds the
// default Prometheus registry and, when enabled, a tracer provider. The
// returned function flushes and stops what was started.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// The Prometheus registry is process-wide, so the bridge is registered once.
	meterOnce.Do(func() {
		exporter, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
		if err != nil {
			meterErr = fmt.Errorf("failed to create prometheus exporter: %w", err)
			return
		}
		meterProv = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(meterProv)
	})
	if meterErr != nil {
		return nil, meterErr
	}

	if !cfg.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.ProjectID != "" {
		exporter, err := texporter.New(texporter.WithProjectID(cfg.ProjectID))
		if err != nil {
			return nil, fmt.Errorf("failed to create google trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

// StartSpan starts a span on the agent tracer.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name)
}

// ObserveScrape records how long one page scrape took, by page source.
func ObserveScrape(ctx context.Context, source string, d time.Duration) {
	instrumentsOnce.Do(func() {
		h, err := otel.Meter(TracerName).Float64Histogram("hq.scrape.duration",
			otelmetric.WithUnit("s"),
			otelmetric.WithDescription("Time spent fetching and converting one page."),
		)
		if err == nil {
			scrapeDuration = h
		}
	})
	if scrapeDuration == nil {
		return
	}
	scrapeDuration.Record(ctx, d.Seconds(), otelmetric.WithAttributes(attribute.String("source", source)))
}
