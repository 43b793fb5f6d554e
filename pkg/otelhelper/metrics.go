package otelhelper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hirepath/hirepath"

// Metrics holds the instruments recorded by the pipeline services.
type Metrics struct {
	cascadeDegraded metric.Int64Counter
	stageChanges    metric.Int64Counter
}

// NewMetrics creates the instruments on the given meter provider. A nil provider uses the
// global one, which is a no-op until an SDK provider is installed.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(meterName)

	cascadeDegraded, err := meter.Int64Counter(
		"hirepath.cascade.degraded",
		metric.WithDescription("Phase cascades that found no active workflow or initial stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cascade counter: %w", err)
	}

	stageChanges, err := meter.Int64Counter(
		"hirepath.stage.changes",
		metric.WithDescription("Applications moved into a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage change counter: %w", err)
	}

	return &Metrics{cascadeDegraded: cascadeDegraded, stageChanges: stageChanges}, nil
}

// CascadeDegraded records a phase cascade that only advanced the phase pointer.
func (m *Metrics) CascadeDegraded(ctx context.Context, nextPhaseID string) {
	if m == nil {
		return
	}

	m.cascadeDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String(NextPhaseIDKey, nextPhaseID)))
}

// StageChanged records an application entering a stage.
func (m *Metrics) StageChanged(ctx context.Context, stageID string) {
	if m == nil {
		return
	}

	m.stageChanges.Add(ctx, 1, metric.WithAttributes(attribute.String(StageIDKey, stageID)))
}
