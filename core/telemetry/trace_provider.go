package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// CollectorEndpoint describes where spans are exported.
type CollectorEndpoint struct {
	Endpoint string `json:"endpoint"`
	// CACertsBase64 is a base64 PEM bundle; empty means plain http.
	CACertsBase64 string `json:"caCertsBase64,omitempty"`
}

// InstallTraceProvider sets the global tracer provider. Without an endpoint
// a no-op provider is installed.
func InstallTraceProvider(settings *CollectorEndpoint, serviceName string) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if settings == nil || settings.Endpoint == "" {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(settings.Endpoint)}
	if settings.CACertsBase64 == "" {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		tlsConfig, err := getTLSConfig(settings.CACertsBase64)
		if err != nil {
			otel.SetTracerProvider(trace.NewNoopTracerProvider())
			return err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsConfig))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName)))
	if err != nil {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return fmt.Errorf("creating resource: %w", err)
	}

	otel.SetTracerProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r)))

	return nil
}
