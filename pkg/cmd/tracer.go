package cmd

import (
	"context"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer exports spans over OTLP when enabled, otherwise returns the global tracer.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, error) {
	if !enabled {
		return otel.Tracer(serviceName), nil
	}

	tracer, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	return tracer, nil
}
