package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"KVisit/internal/model"
	"KVisit/internal/repository"
	"KVisit/internal/wizard"
)

// RecordSaver 按用户保存规范化记录
type RecordSaver interface {
	SaveRecord(ctx context.Context, userID string, record wizard.Record) error
}

// DBRecordSaver 写入 onboarding_profiles
type DBRecordSaver struct {
	Repository repository.ProfileRepository
	Now        func() time.Time
}

func (d DBRecordSaver) SaveRecord(ctx context.Context, userID string, record wizard.Record) error {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return d.Repository.Upsert(ctx, model.NewOnboardingProfile(userID, record, now()))
}

// RemoteRecordSaver 交给外部后端，用户身份由转发的令牌携带
type RemoteRecordSaver struct {
	Saver wizard.Saver
}

func (r RemoteRecordSaver) SaveRecord(ctx context.Context, _ string, record wizard.Record) error {
	return r.Saver.Save(ctx, record)
}

// saverFor 绑定本次提交的用户和会话。保存成功后使缓存失效并发布完成事件，
// 这两步失败只记日志，不影响保存结果。整个过程受 SaveTimeout 限制。
func (s *OnboardingService) saverFor(userID, sessionID string, purpose wizard.Purpose) wizard.Saver {
	return wizard.SaverFunc(func(ctx context.Context, record wizard.Record) error {
		// 会话锁不续期，提交必须在锁过期前结束
		ctx, cancel := context.WithTimeout(ctx, s.deps.SaveTimeout)
		defer cancel()

		if err := s.deps.Records.SaveRecord(ctx, userID, record); err != nil {
			return err
		}

		if s.deps.Profiles != nil {
			if err := s.deps.Profiles.DeleteProfile(ctx, userID); err != nil {
				s.log.Warn("Failed to invalidate profile cache", zap.String("user_id", userID), zap.Error(err))
			}
		}

		if s.deps.Publisher != nil {
			msg := model.OnboardingCompletedMessage{
				SessionID:  sessionID,
				UserID:     userID,
				Purpose:    string(purpose),
				Record:     record,
				OccurredAt: s.deps.Now().UTC().Format(time.RFC3339),
			}
			if err := s.deps.Publisher.PublishOnboardingCompleted(ctx, msg); err != nil {
				s.log.Error("Failed to publish onboarding completed event",
					zap.String("session_id", sessionID),
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
		}
		return nil
	})
}
