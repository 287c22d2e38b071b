package resolve

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter. They are no-ops unless the host process
// installs global providers.
var (
	tracer = otel.Tracer("fspatch.resolve")
	meter  = otel.Meter("fspatch.resolve")
)

var (
	resolveLatency metric.Float64Histogram
	resolveTotal   metric.Int64Counter
	candidateCount metric.Int64Histogram
	variantStatus  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		resolveLatency, err = meter.Float64Histogram(
			"resolve_duration_seconds",
			metric.WithDescription("Duration of a full resolution over one image"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveTotal, err = meter.Int64Counter(
			"resolve_total",
			metric.WithDescription("Total number of resolutions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		candidateCount, err = meter.Int64Histogram(
			"resolve_scan_candidates",
			metric.WithDescription("Candidates left by each variant's initial scan"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		variantStatus, err = meter.Int64Counter(
			"resolve_variant_status_total",
			metric.WithDescription("Final state of each variant"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startResolveSpan(ctx context.Context, imageSize, variants int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Resolver.Resolve",
		trace.WithAttributes(
			attribute.Int("resolve.image_size", imageSize),
			attribute.Int("resolve.variants", variants),
		),
	)
}

func setResolveSpanResult(span trace.Span, resolved, passes int, success bool) {
	span.SetAttributes(
		attribute.Int("resolve.resolved", resolved),
		attribute.Int("resolve.passes", passes),
		attribute.Bool("resolve.success", success),
	)
}

func recordScan(ctx context.Context, variant string, candidates int) {
	if err := initMetrics(); err != nil {
		return
	}
	candidateCount.Record(ctx, int64(candidates), metric.WithAttributes(
		attribute.String("variant", variant),
	))
}

func recordResolve(ctx context.Context, duration time.Duration, outcomes []Outcome, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	resolveLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("success", success),
	))
	resolveTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
	for _, o := range outcomes {
		variantStatus.Add(ctx, 1, metric.WithAttributes(
			attribute.String("variant", o.Name),
			attribute.String("status", o.Status()),
		))
	}
}
