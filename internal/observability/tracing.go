// Package observability provides OpenTelemetry trace export for the API.
//
// Traces are sent to an OTLP HTTP collector (a local OTel Collector or a
// vendor agent). The collector handles authentication, buffering, and
// forwarding, so the application only needs an endpoint.
//
// Genkit owns the TracerProvider and already instruments model and embedder
// calls; SetupTracing attaches an exporter to that provider instead of
// installing a second one.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the collector's OTLP HTTP endpoint, host:port.
	Endpoint string
	// Environment tags spans with the deployment environment (dev, prod).
	Environment string
	// ServiceName is the service name shown in the APM backend.
	ServiceName string
}

// SetupTracing registers an OTLP exporter with Genkit's TracerProvider.
// Returns a shutdown function that flushes pending spans.
//
// Exporter creation failure disables tracing with a warning rather than
// failing startup; the API must come up even when the collector is down.
func SetupTracing(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	// Genkit's TracerProvider reads these at span creation time.
	// SAFETY: os.Setenv is not concurrent-safe, but SetupTracing runs once
	// during startup before any goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(), // collector runs on localhost or inside the pod network
	)
	if err != nil {
		slog.Warn("creating OTLP exporter failed, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("OTLP tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
