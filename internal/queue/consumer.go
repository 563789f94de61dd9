package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"KVisit/internal/cache"
	"KVisit/internal/model"
	"KVisit/pkg/logger"
	"KVisit/pkg/metrics"
	"KVisit/storage/mq"
)

// CompletionProjector 消费引导完成事件，把记录写入读缓存，GET /profile 直接命中
type CompletionProjector struct {
	Profiles cache.ProfileCache
	Marker   cache.MessageMarker
	Metrics  *metrics.OnboardingMetrics
	Logger   *zap.Logger
}

func (p *CompletionProjector) log() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logger.Logger
}

// Handle 单条消息。格式错误的消息直接进死信，不再重投
func (p *CompletionProjector) Handle(ctx context.Context, delivery amqp.Delivery) error {
	var msg model.OnboardingCompletedMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		p.Metrics.RecordEventConsumed(ctx, "malformed")
		return &mq.PermanentError{Err: fmt.Errorf("failed to unmarshal onboarding completed message: %w", err)}
	}
	if msg.MessageID == "" {
		msg.MessageID = delivery.MessageId
	}
	if msg.UserID == "" {
		p.Metrics.RecordEventConsumed(ctx, "malformed")
		return &mq.PermanentError{Err: fmt.Errorf("onboarding completed message %s has no user_id", msg.MessageID)}
	}

	marked := false
	if msg.MessageID != "" {
		ok, err := p.Marker.TryMarkMessageProcessing(ctx, msg.MessageID)
		if err != nil {
			// 标记失败时继续处理，写缓存本身是幂等的
			p.log().Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !ok {
			p.log().Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
			)
			p.Metrics.RecordEventConsumed(ctx, "duplicate")
			return nil
		} else {
			marked = true
		}
	}

	completedAt, err := time.Parse(time.RFC3339, msg.OccurredAt)
	if err != nil {
		completedAt = time.Now().UTC()
	}

	profile := &cache.CachedProfile{UserID: msg.UserID, Record: msg.Record, CompletedAt: completedAt}
	if err := p.Profiles.SetProfile(ctx, msg.UserID, profile); err != nil {
		if marked {
			if uerr := p.Marker.UnmarkMessageProcessing(ctx, msg.MessageID); uerr != nil {
				p.log().Warn("Failed to unmark message", zap.String("message_id", msg.MessageID), zap.Error(uerr))
			}
		}
		p.Metrics.RecordEventConsumed(ctx, "failed")
		return fmt.Errorf("failed to warm profile cache: %w", err)
	}

	if marked {
		if err := p.Marker.MarkMessageProcessed(ctx, msg.MessageID); err != nil {
			p.log().Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
	}

	p.Metrics.RecordEventConsumed(ctx, "processed")
	p.log().Info("Onboarding profile projected",
		zap.String("message_id", msg.MessageID),
		zap.String("user_id", msg.UserID),
		zap.String("purpose", msg.Purpose),
	)
	return nil
}

// StartOnboardingCompletedConsumer 阻塞消费直到 ctx 结束
func StartOnboardingCompletedConsumer(ctx context.Context, projector *CompletionProjector, prefetch int) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.OnboardingCompletedQ,
		ConsumerTag:   "onboarding_completed_projector",
		PrefetchCount: prefetch,
		Handler:       projector.Handle,
	})
}
