package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"KVisit/internal/model"
	"KVisit/pkg/logger"
	"KVisit/pkg/snowflake"
	"KVisit/storage/mq"
)

// Producer 发布引导相关事件
type Producer struct{}

// PublishOnboardingCompleted 发布引导完成事件，MessageID 为空时生成
func (Producer) PublishOnboardingCompleted(ctx context.Context, msg model.OnboardingCompletedMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.String("session_id", msg.SessionID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ob_done_%d", id)
	}

	err := mq.PublishMessage(ctx,
		mq.OnboardingExchange,
		mq.OnboardingCompletedKey,
		msg.MessageID,
		msg,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish onboarding completed message",
			zap.String("message_id", msg.MessageID),
			zap.String("session_id", msg.SessionID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published onboarding completed message",
		zap.String("message_id", msg.MessageID),
		zap.String("session_id", msg.SessionID),
		zap.String("purpose", msg.Purpose),
	)
	return nil
}
