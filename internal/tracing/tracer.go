package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer.
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider creates an OTLP/gRPC tracer provider and installs it as
// the global provider.
func NewTracerProvider(serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("grcplane-core"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// EngineTracer provides distributed tracing for the alerting engine's hot
// paths: rule evaluation, escalation transitions, and workflow triggers.
type EngineTracer struct {
	tracer trace.Tracer
}

func NewEngineTracer(serviceName string) *EngineTracer {
	return &EngineTracer{tracer: otel.Tracer(serviceName)}
}

// StartEvaluationSpan starts a span for one entity's rule evaluation pass.
func (et *EngineTracer) StartEvaluationSpan(ctx context.Context, entityType, entityID string, ruleCount int) (context.Context, trace.Span) {
	return et.tracer.Start(ctx, "rule_evaluation",
		trace.WithAttributes(
			attribute.String("entity.type", entityType),
			attribute.String("entity.id", entityID),
			attribute.Int("rules.count", ruleCount),
			attribute.String("component", "rule-engine"),
		),
	)
}

// StartEscalationSpan starts a span for a single escalation level transition.
func (et *EngineTracer) StartEscalationSpan(ctx context.Context, chainID string, level int) (context.Context, trace.Span) {
	return et.tracer.Start(ctx, "escalation_transition",
		trace.WithAttributes(
			attribute.String("chain.id", chainID),
			attribute.Int("chain.level", level),
			attribute.String("component", "escalation-service"),
		),
	)
}

// StartWorkflowSpan starts a span for an external workflow trigger call.
func (et *EngineTracer) StartWorkflowSpan(ctx context.Context, workflowID, chainID string) (context.Context, trace.Span) {
	return et.tracer.Start(ctx, "workflow_trigger",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("chain.id", chainID),
			attribute.String("component", "workflow-trigger"),
		),
	)
}

// RecordError marks the span failed and records the error.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
