package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wbbcli/internal/infrastructure"
	"wbbcli/pkg/contracts/domain"
)

const (
	TracerName = "wbbcli.pipeline"
)

// PipelineTracer provides OpenTelemetry instrumentation for pipeline runs.
// A nil *PipelineTracer is valid and records nothing.
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewPipelineTracer creates a tracer backed by the given providers. Metrics
// are only recorded when the providers carry a meter.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	pt := &PipelineTracer{tracer: otel.Tracer(TracerName)}
	if providers == nil {
		return pt, nil
	}
	if providers.Tracer != nil {
		pt.tracer = providers.Tracer
	}
	if providers.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
		pt.metrics = metrics
	}
	return pt, nil
}

// Metrics returns the business metrics, or nil when metrics are disabled
func (pt *PipelineTracer) Metrics() *infrastructure.BusinessMetrics {
	if pt == nil {
		return nil
	}
	return pt.metrics
}

// StartRun opens the span covering a whole run. The returned func ends it and
// records the summary.
func (pt *PipelineTracer) StartRun(ctx context.Context, inputDir, outputDir string) (context.Context, func(*domain.RunSummary, error)) {
	if pt == nil {
		return ctx, func(*domain.RunSummary, error) {}
	}

	ctx, span := pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.input_dir", inputDir),
			attribute.String("run.output_dir", outputDir),
		),
	)
	finish := pt.metrics.RecordRun(ctx)

	return ctx, func(summary *domain.RunSummary, err error) {
		defer span.End()
		defer finish()

		if summary != nil {
			span.SetAttributes(
				attribute.Int("run.files_written", summary.Count(domain.OutcomeWritten)),
				attribute.Int("run.files_skipped", summary.Count(domain.OutcomeSkipped)),
				attribute.Int("run.files_failed", summary.Count(domain.OutcomeFailed)),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// StartFile opens a span for one input file. The returned func ends it and
// records the outcome.
func (pt *PipelineTracer) StartFile(ctx context.Context, logPath string) (context.Context, func(domain.Outcome)) {
	if pt == nil {
		return ctx, func(domain.Outcome) {}
	}

	start := time.Now()
	ctx, span := pt.tracer.Start(ctx, "pipeline.file",
		trace.WithAttributes(attribute.String("file.path", logPath)),
	)

	return ctx, func(o domain.Outcome) {
		defer span.End()

		span.SetAttributes(
			attribute.String("file.status", string(o.Status)),
			attribute.Int("file.points", o.Points),
			attribute.Int("file.empty_windows", o.EmptyWindows),
		)
		if o.Status == domain.OutcomeFailed {
			span.SetStatus(codes.Error, o.Message)
		}
		pt.metrics.RecordOutcome(ctx, o, time.Since(start))
	}
}
