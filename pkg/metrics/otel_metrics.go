package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OnboardingMetrics 引导向导相关指标
type OnboardingMetrics struct {
	SessionsStarted    metric.Int64Counter
	StepTransitions    metric.Int64Counter
	BlockedNext        metric.Int64Counter
	Submissions        metric.Int64Counter
	SubmissionDuration metric.Float64Histogram
	SessionsAbandoned  metric.Int64Counter
	EventsConsumed     metric.Int64Counter
}

var (
	metrics *OnboardingMetrics
	once    sync.Once
	initErr error
)

// InitMetrics 从全局 MeterProvider 创建指标；未初始化 OTel 时得到 noop 实现
func InitMetrics() error {
	once.Do(func() {
		metrics, initErr = newOnboardingMetrics(otel.Meter("kvisit/onboarding"))
	})
	return initErr
}

func newOnboardingMetrics(meter metric.Meter) (*OnboardingMetrics, error) {
	m := &OnboardingMetrics{}
	var err error

	if m.SessionsStarted, err = meter.Int64Counter(
		"onboarding_sessions_started_total",
		metric.WithDescription("Total number of onboarding wizards entered"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, err
	}

	if m.StepTransitions, err = meter.Int64Counter(
		"onboarding_step_transitions_total",
		metric.WithDescription("Total number of wizard step transitions by outcome"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	if m.BlockedNext, err = meter.Int64Counter(
		"onboarding_blocked_next_total",
		metric.WithDescription("Next requests rejected by step validation"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.Submissions, err = meter.Int64Counter(
		"onboarding_submissions_total",
		metric.WithDescription("Total number of onboarding submissions by result"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return nil, err
	}

	if m.SubmissionDuration, err = meter.Float64Histogram(
		"onboarding_submission_duration_seconds",
		metric.WithDescription("Time spent saving the canonical onboarding record"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	); err != nil {
		return nil, err
	}

	if m.SessionsAbandoned, err = meter.Int64Counter(
		"onboarding_sessions_abandoned_total",
		metric.WithDescription("Wizards left through exit or discard"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, err
	}

	if m.EventsConsumed, err = meter.Int64Counter(
		"onboarding_events_consumed_total",
		metric.WithDescription("Completion events handled by the worker"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil
func GetMetrics() *OnboardingMetrics {
	return metrics
}

func (m *OnboardingMetrics) RecordSessionStarted(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

func (m *OnboardingMetrics) RecordTransition(ctx context.Context, purpose, outcome string, step int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("outcome", outcome),
		attribute.Int("step", step),
	)
	m.StepTransitions.Add(ctx, 1, attrs)
	if outcome == "blocked" {
		m.BlockedNext.Add(ctx, 1, metric.WithAttributes(
			attribute.String("purpose", purpose),
			attribute.Int("step", step),
		))
	}
}

// RecordSubmission 保存失败也会计数，status 为 failed
func (m *OnboardingMetrics) RecordSubmission(ctx context.Context, purpose string, saved bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !saved {
		status = "failed"
	}
	m.Submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("status", status),
	))
	m.SubmissionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("purpose", purpose),
	))
}

func (m *OnboardingMetrics) RecordAbandoned(ctx context.Context, purpose, reason string) {
	if m == nil {
		return
	}
	m.SessionsAbandoned.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("reason", reason),
	))
}

func (m *OnboardingMetrics) RecordEventConsumed(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.EventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
