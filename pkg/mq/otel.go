package mq

import (
	"context"
	"sort"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "kvisit.rabbitmq"

var (
	instrumentsOnce sync.Once
	messagesTotal   metric.Int64Counter
	messageDuration metric.Float64Histogram
)

func instruments() {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		messagesTotal, _ = meter.Int64Counter(
			"mq.messages.total",
			metric.WithDescription("Total number of RabbitMQ messages"),
			metric.WithUnit("{message}"),
		)
		messageDuration, _ = meter.Float64Histogram(
			"mq.message.duration",
			metric.WithDescription("RabbitMQ publish or handle duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
		)
	})
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier 接口
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InjectHeaders 把追踪上下文写入消息头，返回新的 Table
func InjectHeaders(ctx context.Context, headers amqp.Table) amqp.Table {
	out := make(amqp.Table, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, &MessageHeaderCarrier{Headers: out})
	return out
}

// ExtractContext 从消息头恢复追踪上下文
func ExtractContext(ctx context.Context, headers amqp.Table) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, &MessageHeaderCarrier{Headers: headers})
}

// StartPublishSpan 发布前开启 span，返回的 finish 记录结果和指标
func StartPublishSpan(ctx context.Context, exchange, routingKey string) (context.Context, func(error)) {
	instruments()
	start := time.Now()
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "rabbitmq.publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
		),
	)

	return ctx, func(err error) {
		finish(ctx, span, "publish", routingKey, start, err)
	}
}

// StartConsumeSpan 处理消息前开启 span，父 span 来自消息头
func StartConsumeSpan(ctx context.Context, msg amqp.Delivery) (context.Context, func(error)) {
	instruments()
	start := time.Now()
	ctx = ExtractContext(ctx, msg.Headers)
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "rabbitmq.process "+msg.RoutingKey,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(msg.Exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(msg.RoutingKey),
			semconv.MessagingMessageID(msg.MessageId),
		),
	)

	return ctx, func(err error) {
		finish(ctx, span, "process", msg.RoutingKey, start, err)
	}
}

func finish(ctx context.Context, span trace.Span, operation, routingKey string, start time.Time, err error) {
	defer span.End()

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	labels := metric.WithAttributes(
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("messaging.status", status),
	)
	messagesTotal.Add(ctx, 1, labels)
	messageDuration.Record(ctx, time.Since(start).Seconds(), labels)
}
