package tracing

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	instrumentationName = "github.com/Lllllllleong/documentdeletion"
	tracesPath          = "/v1/traces"
	flushTimeout        = 5 * time.Second
)

var provider atomic.Pointer[sdktrace.TracerProvider]

// Tracer returns the tracer used for deletion workflow spans. It is a no-op
// until Init installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Init installs an OTLP HTTP tracer provider when OTEL_ENABLED=true.
// Spans are batched; call Flush before a function invocation returns.
func Init(ctx context.Context, serviceName string) {
	if os.Getenv("OTEL_ENABLED") != "true" {
		zap.L().Debug("OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)")
		return
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	opts, err := exporterOptions(endpoint, os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true")
	if err != nil {
		zap.L().Warn("Invalid OTLP endpoint, tracing disabled.", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		zap.L().Warn("Failed to create OTLP exporter, tracing disabled.", zap.Error(err))
		return
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	if old := provider.Swap(tp); old != nil {
		_ = old.Shutdown(ctx)
	}
	zap.L().Info("OpenTelemetry tracer initialized.", zap.String("endpoint", endpoint))
}

// exporterOptions accepts the endpoint either as a base URL, the usual form of
// OTEL_EXPORTER_OTLP_ENDPOINT, or as a bare host:port.
func exporterOptions(endpoint string, insecure bool) ([]otlptracehttp.Option, error) {
	if !strings.Contains(endpoint, "://") {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return opts, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", endpoint)
	}
	// The scheme decides TLS; the traces path is appended to the base URL.
	u.Path = strings.TrimSuffix(u.Path, "/") + tracesPath
	return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(u.String())}, nil
}

// Flush exports buffered spans. Function instances may be frozen as soon as a
// request returns, so every handler flushes before it does.
func Flush(ctx context.Context) {
	tp := provider.Load()
	if tp == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := tp.ForceFlush(ctx); err != nil {
		zap.L().Warn("Failed to flush spans.", zap.Error(err))
	}
}

// Shutdown flushes and removes the installed provider.
func Shutdown(ctx context.Context) error {
	tp := provider.Swap(nil)
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
