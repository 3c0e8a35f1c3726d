package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceName     = "duet"
	shutdownTimeout = 10 * time.Second
)

// Config holds the configuration for telemetry
type Config struct {
	Enabled  bool
	Endpoint string // host:port of an OTLP/HTTP collector
	Version  string
	RunID    string
}

// Provider owns the tracer provider installed for the process. When telemetry is disabled it holds nothing and the
// global no-op tracer stays in place
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger zerolog.Logger
}

// NewProvider creates a telemetry provider and, when enabled, installs it as the global tracer provider
func NewProvider(ctx context.Context, config Config, logger zerolog.Logger) (*Provider, error) {
	logger = logger.With().Str("component", "telemetry").Logger()
	if !config.Enabled {
		logger.Debug().Msg("Telemetry disabled")
		return &Provider{logger: logger}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(config.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(config)),
	)
	otel.SetTracerProvider(tp)

	logger.Info().Str("endpoint", config.Endpoint).Msg("Telemetry enabled")
	return &Provider{tp: tp, logger: logger}, nil
}

func newResource(config Config) *resource.Resource {
	version := config.Version
	if version == "" {
		version = "dev"
	}
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
		attribute.String("duet.run_id", config.RunID),
	)
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// Shutdown flushes pending spans and shuts down the provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	p.logger.Debug().Msg("Shutting down telemetry provider")
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}

// NewRunID generates an identifier for one run of the relay
func NewRunID() string {
	return uuid.New().String()
}
