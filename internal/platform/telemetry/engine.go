package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds revision engine counters.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	revisionsCreated metric.Int64Counter
	activations      metric.Int64Counter
	conflictRetries  metric.Int64Counter
	auditFailures    metric.Int64Counter
}

// NewEngineMetrics creates the revision engine counters on the global meter provider.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter(instrumentationName)

	revisionsCreated, err := meter.Int64Counter(
		"quote.revisions.created",
		metric.WithDescription("Quote revisions inserted, by kind"),
	)
	if err != nil {
		return nil, err
	}

	activations, err := meter.Int64Counter(
		"quote.activations",
		metric.WithDescription("Quote revisions activated"),
	)
	if err != nil {
		return nil, err
	}

	conflictRetries, err := meter.Int64Counter(
		"quote.conflict.retries",
		metric.WithDescription("Transactions re-run after a conflict"),
	)
	if err != nil {
		return nil, err
	}

	auditFailures, err := meter.Int64Counter(
		"quote.audit.failures",
		metric.WithDescription("Audit events that could not be published"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		revisionsCreated: revisionsCreated,
		activations:      activations,
		conflictRetries:  conflictRetries,
		auditFailures:    auditFailures,
	}, nil
}

// RevisionCreated counts an inserted revision. kind is "root", "version" or "bundle".
func (m *EngineMetrics) RevisionCreated(ctx context.Context, kind string) {
	if m == nil {
		return
	}

	m.revisionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Activated counts a committed activation.
func (m *EngineMetrics) Activated(ctx context.Context, demoted int) {
	if m == nil {
		return
	}

	m.activations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("demoted_other", demoted > 0)))
}

// ConflictRetry counts a retried transaction.
func (m *EngineMetrics) ConflictRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}

	m.conflictRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// AuditFailure counts an audit event that was dropped.
func (m *EngineMetrics) AuditFailure(ctx context.Context, eventType string) {
	if m == nil {
		return
	}

	m.auditFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
