package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rrosmaninho/ICG-ISS/internal/logging"
)

const (
	defaultServiceName  = "solarsim"
	defaultFrameRatio   = 0.01
	defaultOTLPEndpoint = "localhost:4317"
)

// TracingConfig controls span export for a scene run. Focus requests are
// rare and always sampled; per-frame spans run at the tick rate and are
// sampled at FrameSampleRatio.
type TracingConfig struct {
	Enabled          bool
	ServiceName      string
	Exporter         string // stdout | otlp
	Endpoint         string // otlp only
	FrameSampleRatio float64

	// Scene describes the run on the trace resource (ISS source, speed).
	Scene []attribute.KeyValue
}

// TracingConfigFromEnv reads SOLARSIM_TRACING_ENABLED, _EXPORTER,
// _SERVICE_NAME and _FRAME_RATIO. The OTLP endpoint comes from
// SOLARSIM_OTLP_ENDPOINT, then OTEL_EXPORTER_OTLP_ENDPOINT.
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		Enabled:          strings.EqualFold(os.Getenv("SOLARSIM_TRACING_ENABLED"), "true"),
		ServiceName:      envOr("SOLARSIM_TRACING_SERVICE_NAME", defaultServiceName),
		Exporter:         strings.ToLower(envOr("SOLARSIM_TRACING_EXPORTER", "stdout")),
		Endpoint:         envOr("SOLARSIM_OTLP_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		FrameSampleRatio: defaultFrameRatio,
	}
	if raw := os.Getenv("SOLARSIM_TRACING_FRAME_RATIO"); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r >= 0 && r <= 1 {
			cfg.FrameSampleRatio = r
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitTracing installs the global tracer provider and propagators. When
// tracing is disabled a noop provider is installed so Tracer stays cheap
// inside the tick loop. The returned function flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(append([]attribute.KeyValue{
		attribute.String("service.name", service),
		attribute.String("service.namespace", defaultServiceName),
	}, cfg.Scene...)...))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	sampler := NewSceneSampler(cfg.FrameSampleRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", service),
		logging.String("sampler", sampler.Description()),
	)
	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "", "stdout":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.Exporter)
	}
}

// ShutdownWithTimeout flushes spans with a five second budget. Failures
// are logged; tracing never blocks exit.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
