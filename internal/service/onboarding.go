package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"KVisit/config"
	"KVisit/internal/cache"
	"KVisit/internal/model"
	"KVisit/internal/model/dto"
	"KVisit/internal/queue"
	"KVisit/internal/repository"
	"KVisit/internal/wizard"
	"KVisit/pkg/backend"
	pkgerrors "KVisit/pkg/errors"
	"KVisit/pkg/logger"
	"KVisit/pkg/metrics"
	"KVisit/pkg/snowflake"
	"KVisit/storage/database"
)

const (
	sessionLockPrefix = "onboarding:session"
	defaultLockTTL    = 30 * time.Second
)

var (
	onboardingService *OnboardingService
	onboardingOnce    sync.Once
	onboardingErr     error
)

// InitOnboarding 按配置装配服务，依赖的存储需先初始化
func InitOnboarding() error {
	onboardingOnce.Do(func() {
		onboardingService, onboardingErr = newOnboardingFromConfig(&config.Cfg)
	})
	return onboardingErr
}

// SetOnboarding 替换全局服务实例
func SetOnboarding(s *OnboardingService) {
	onboardingOnce.Do(func() {})
	onboardingService = s
}

func Onboarding() *OnboardingService {
	if onboardingService == nil {
		panic("onboarding service not init")
	}
	return onboardingService
}

// Publisher 完成事件发布
type Publisher interface {
	PublishOnboardingCompleted(ctx context.Context, msg model.OnboardingCompletedMessage) error
}

// OnboardingDeps 服务依赖。Profiles 和 Publisher 可为空
type OnboardingDeps struct {
	Engine     *wizard.Engine
	Sessions   cache.WizardStore
	Locker     cache.Locker
	Profiles   cache.ProfileCache
	Records    RecordSaver
	Repository repository.ProfileRepository
	Publisher  Publisher
	Translator wizard.Translator
	Metrics    *metrics.OnboardingMetrics
	Logger     *zap.Logger

	ExitPath string
	HomePath string
	NewID    func() (string, error)
	Now      func() time.Time

	LockTTL time.Duration
	// SaveTimeout 提交（保存、缓存失效、发布事件）的总时限，必须短于 LockTTL
	SaveTimeout time.Duration
}

// OnboardingService 把向导控制器放到 HTTP 请求之间：每个请求从会话存储恢复控制器，
// 执行一次操作后写回。同一会话的修改由分布式锁串行化。
type OnboardingService struct {
	deps OnboardingDeps
	log  *zap.Logger
}

func NewOnboardingService(deps OnboardingDeps) *OnboardingService {
	if deps.Engine == nil {
		deps.Engine = wizard.NewEngine(nil)
	}
	if deps.Translator == nil {
		deps.Translator = wizard.KeyTranslator{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = defaultLockTTL
	}
	if deps.SaveTimeout <= 0 || deps.SaveTimeout >= deps.LockTTL {
		deps.SaveTimeout = deps.LockTTL / 2
	}
	if deps.NewID == nil {
		deps.NewID = snowflake.NextToken
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &OnboardingService{deps: deps, log: deps.Logger}
}

func newOnboardingFromConfig(cfg *config.Config) (*OnboardingService, error) {
	system := cfg.DefaultLanguage
	if system == "" {
		system = wizard.SystemLocale()
	}
	languages := wizard.NewLanguageResolver(cfg.SupportedLanguages, system)
	log := logger.Named("onboarding")

	deps := OnboardingDeps{
		Engine:     wizard.NewEngine(wizard.NewNormalizer(cfg.DefaultNation, languages)),
		Sessions:   cache.NewRedisWizardStore(time.Duration(cfg.WizardSessionTTLMinutes) * time.Minute),
		Locker:     cache.RedisLocker{},
		Profiles:   cache.NewRedisProfileCache(time.Duration(cfg.OnboardingProfileTTLSecs) * time.Second),
		Translator: wizard.KeyTranslator{},
		Metrics:    metrics.GetMetrics(),
		Logger:     log,
		ExitPath:   cfg.PurposeSelectionPath,
		HomePath:   cfg.PostOnboardingPath,

		LockTTL:     time.Duration(cfg.SessionLockTTLSecs) * time.Second,
		SaveTimeout: time.Duration(cfg.SaveTimeoutSeconds) * time.Second,
	}

	if cfg.IsRemoteSave() {
		remote, err := backend.NewRemoteSaver(cfg.SaveEndpoint, time.Duration(cfg.SaveTimeoutSeconds)*time.Second, log)
		if err != nil {
			return nil, err
		}
		deps.Records = RemoteRecordSaver{Saver: remote}
	} else {
		db := database.DB()
		if db == nil {
			return nil, pkgerrors.ErrDatabaseNotInitialized
		}
		deps.Repository = repository.NewProfileRepository(db)
		deps.Records = DBRecordSaver{Repository: deps.Repository}
	}

	if cfg.PublishCompletionMsg {
		deps.Publisher = queue.Producer{}
	}

	return NewOnboardingService(deps), nil
}

// Purposes 所有目的及其步骤表
func (s *OnboardingService) Purposes() []dto.PurposeData {
	registry := s.deps.Engine.Registry
	out := make([]dto.PurposeData, 0, len(wizard.Purposes()))
	for _, purpose := range wizard.Purposes() {
		steps := registry.Steps(purpose)
		views := make([]dto.StepView, 0, len(steps))
		for _, step := range steps {
			views = append(views, s.stepView(step))
		}
		out = append(out, dto.PurposeData{
			Purpose:    purpose,
			Title:      s.deps.Translator.T("onboarding.purpose." + string(purpose) + ".title"),
			Period:     wizard.PeriodFor(purpose),
			TotalSteps: len(steps),
			Steps:      views,
		})
	}
	return out
}

// StartSession 进入向导，返回第 1 步
func (s *OnboardingService) StartSession(ctx context.Context, userID, rawPurpose string) (*dto.SessionData, error) {
	purpose, ok := wizard.ParsePurpose(rawPurpose)
	if !ok {
		return nil, pkgerrors.OnboardingPurposeInvalid
	}

	ctrl, err := s.deps.Engine.Start(purpose, wizard.Collaborators{})
	if err != nil {
		return nil, mapWizardError(err)
	}

	id, err := s.deps.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.deps.Now()
	session := &cache.WizardSession{
		ID:        id,
		UserID:    userID,
		Snapshot:  ctrl.Snapshot(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save wizard session: %w", err)
	}

	s.deps.Metrics.RecordSessionStarted(ctx, string(purpose))
	s.log.Info("Onboarding session started",
		zap.String("session_id", id),
		zap.String("user_id", userID),
		zap.String("purpose", string(purpose)),
	)

	return s.sessionView(id, ctrl), nil
}

// GetSession 当前状态
func (s *OnboardingService) GetSession(ctx context.Context, userID, sessionID string) (*dto.SessionData, error) {
	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.restore(session, wizard.Collaborators{})
	if err != nil {
		return nil, err
	}
	return s.sessionView(session.ID, ctrl), nil
}

// UpdateData 把部分数据合并进 target 命名空间
func (s *OnboardingService) UpdateData(ctx context.Context, userID, sessionID string, req *dto.UpdateStepDataRequest) (*dto.SessionData, error) {
	target, ok := wizard.ParseTarget(req.Target)
	if !ok {
		return nil, pkgerrors.OnboardingTargetInvalid
	}

	var view *dto.SessionData
	err := s.withSession(ctx, userID, sessionID, func(session *cache.WizardSession) error {
		ctrl, err := s.restore(session, wizard.Collaborators{})
		if err != nil {
			return err
		}
		if err := ctrl.UpdateStepData(target, req.Data); err != nil {
			return mapWizardError(err)
		}
		if err := s.persist(ctx, session, ctrl); err != nil {
			return err
		}
		view = s.sessionView(session.ID, ctrl)
		return nil
	})
	return view, err
}

// Next 前进一步；最后一步时提交。提交后会话删除，重复提交会找不到会话
func (s *OnboardingService) Next(ctx context.Context, userID, sessionID string) (*dto.TransitionData, error) {
	var out *dto.TransitionData
	err := s.withSession(ctx, userID, sessionID, func(session *cache.WizardSession) error {
		purpose := session.Snapshot.Purpose
		gateway := wizard.NewGateway(
			s.saverFor(userID, session.ID, purpose),
			nil,
			s.deps.HomePath,
			wizard.WithGatewayLogger(s.log),
			wizard.WithSubmissionObserver(s.observeSubmission),
		)

		ctrl, err := s.restore(session, wizard.Collaborators{Gateway: gateway})
		if err != nil {
			return err
		}

		tr, err := ctrl.Next(ctx)
		if err != nil {
			return mapWizardError(err)
		}
		s.deps.Metrics.RecordTransition(ctx, string(purpose), string(tr.Outcome), tr.Step)

		out = &dto.TransitionData{Outcome: tr.Outcome, Step: tr.Step, NavigateTo: tr.NavigateTo}

		if tr.Outcome == wizard.OutcomeSubmitted {
			s.discardFinished(ctx, session, ctrl)
			out.Submission = &dto.SubmissionData{Saved: tr.Submission.Saved, Record: tr.Submission.Record}
			return nil
		}

		if err := s.persist(ctx, session, ctrl); err != nil {
			return err
		}
		out.Session = s.sessionView(session.ID, ctrl)
		return nil
	})
	return out, err
}

// Back 后退一步；第 1 步时退出向导并丢弃会话
func (s *OnboardingService) Back(ctx context.Context, userID, sessionID string) (*dto.TransitionData, error) {
	var out *dto.TransitionData
	err := s.withSession(ctx, userID, sessionID, func(session *cache.WizardSession) error {
		ctrl, err := s.restore(session, wizard.Collaborators{ExitPath: s.deps.ExitPath})
		if err != nil {
			return err
		}

		tr, err := ctrl.Back()
		if err != nil {
			return mapWizardError(err)
		}
		s.deps.Metrics.RecordTransition(ctx, string(ctrl.Purpose()), string(tr.Outcome), tr.Step)

		out = &dto.TransitionData{Outcome: tr.Outcome, Step: tr.Step, NavigateTo: tr.NavigateTo}

		if tr.Outcome == wizard.OutcomeExited {
			s.deps.Metrics.RecordAbandoned(ctx, string(ctrl.Purpose()), "exited")
			return s.deps.Sessions.DeleteSession(ctx, session.ID)
		}

		if err := s.persist(ctx, session, ctrl); err != nil {
			return err
		}
		out.Session = s.sessionView(session.ID, ctrl)
		return nil
	})
	return out, err
}

// Abandon 离开向导，立即丢弃会话，不等待进行中的操作
func (s *OnboardingService) Abandon(ctx context.Context, userID, sessionID string) error {
	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.deps.Sessions.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete wizard session: %w", err)
	}
	s.deps.Metrics.RecordAbandoned(ctx, string(session.Snapshot.Purpose), "discarded")
	return nil
}

// GetProfile 最近一次完成的记录：先查缓存，未命中回源数据库
func (s *OnboardingService) GetProfile(ctx context.Context, userID string) (*dto.ProfileData, error) {
	if s.deps.Profiles != nil {
		cached, lookup, err := s.deps.Profiles.GetProfile(ctx, userID)
		switch {
		case err != nil:
			s.log.Warn("Failed to read profile cache", zap.String("user_id", userID), zap.Error(err))
		case lookup == cache.Hit:
			return profileData(cached), nil
		case lookup == cache.Empty:
			return nil, pkgerrors.OnboardingProfileNotFound
		}
	}

	if s.deps.Repository == nil {
		return nil, pkgerrors.OnboardingProfileNotFound
	}

	profile, err := s.deps.Repository.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			s.cacheProfile(ctx, userID, nil)
			return nil, pkgerrors.OnboardingProfileNotFound
		}
		return nil, err
	}

	cached := &cache.CachedProfile{UserID: userID, Record: profile.Record(), CompletedAt: profile.CompletedAt}
	s.cacheProfile(ctx, userID, cached)
	return profileData(cached), nil
}

func (s *OnboardingService) cacheProfile(ctx context.Context, userID string, profile *cache.CachedProfile) {
	if s.deps.Profiles == nil {
		return
	}
	if err := s.deps.Profiles.SetProfile(ctx, userID, profile); err != nil {
		s.log.Warn("Failed to write profile cache", zap.String("user_id", userID), zap.Error(err))
	}
}

// withSession 加锁、读取并校验归属后执行 fn
func (s *OnboardingService) withSession(ctx context.Context, userID, sessionID string, fn func(*cache.WizardSession) error) error {
	unlock, ok, err := s.deps.Locker.TryLock(ctx, sessionLockPrefix+":"+sessionID, s.deps.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock wizard session: %w", err)
	}
	if !ok {
		return pkgerrors.OnboardingSubmissionInFlight
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("Failed to release wizard session lock",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	return fn(session)
}

func (s *OnboardingService) loadOwned(ctx context.Context, userID, sessionID string) (*cache.WizardSession, error) {
	session, err := s.deps.Sessions.LoadSession(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrWizardSessionNotFound):
			return nil, pkgerrors.OnboardingSessionNotFound
		case errors.Is(err, cache.ErrWizardSessionCorrupt):
			s.log.Error("Wizard session corrupt", zap.String("session_id", sessionID), zap.Error(err))
			return nil, pkgerrors.OnboardingSessionStateCorrupt
		default:
			return nil, err
		}
	}
	if session.UserID != userID {
		return nil, pkgerrors.OnboardingSessionForbidden
	}
	return session, nil
}

func (s *OnboardingService) restore(session *cache.WizardSession, collab wizard.Collaborators) (*wizard.Controller, error) {
	ctrl, err := s.deps.Engine.Restore(session.Snapshot, collab)
	if err != nil {
		s.log.Error("Failed to restore wizard session",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, pkgerrors.OnboardingSessionStateCorrupt
	}
	return ctrl, nil
}

func (s *OnboardingService) persist(ctx context.Context, session *cache.WizardSession, ctrl *wizard.Controller) error {
	session.Snapshot = ctrl.Snapshot()
	session.UpdatedAt = s.deps.Now()
	if err := s.deps.Sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save wizard session: %w", err)
	}
	return nil
}

// discardFinished 删除已提交的会话。删除失败时写回 finished 快照，
// 之后的 Next 恢复出已结束的控制器，不会再次保存
func (s *OnboardingService) discardFinished(ctx context.Context, session *cache.WizardSession, ctrl *wizard.Controller) {
	err := s.deps.Sessions.DeleteSession(ctx, session.ID)
	if err == nil {
		return
	}
	s.log.Error("Failed to delete finished wizard session",
		zap.String("session_id", session.ID),
		zap.Error(err),
	)
	if err := s.persist(ctx, session, ctrl); err != nil {
		s.log.Error("Failed to mark wizard session finished",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (s *OnboardingService) observeSubmission(ctx context.Context, purpose wizard.Purpose, saved bool, elapsed time.Duration) {
	s.deps.Metrics.RecordSubmission(ctx, string(purpose), saved, elapsed)
}

func (s *OnboardingService) sessionView(id string, ctrl *wizard.Controller) *dto.SessionData {
	view := &dto.SessionData{
		SessionID:   id,
		Purpose:     ctrl.Purpose(),
		Step:        ctrl.Step(),
		TotalSteps:  ctrl.TotalSteps(),
		Current:     s.stepView(ctrl.Current()),
		NextEnabled: ctrl.CanProceed(),
		IsLastStep:  ctrl.Step() == ctrl.TotalSteps(),
		Data:        ctrl.Data(),
	}
	if shared, ok := ctrl.SharedView(); ok {
		view.Shared = &shared
	}
	return view
}

func (s *OnboardingService) stepView(step wizard.StepDescriptor) dto.StepView {
	return dto.StepView{
		Index:      step.Index,
		Kind:       step.Kind,
		ID:         step.ID,
		SharedType: step.SharedType,
		TitleKey:   step.TitleKey(),
		Title:      s.deps.Translator.T(step.TitleKey()),
	}
}

func profileData(p *cache.CachedProfile) *dto.ProfileData {
	return &dto.ProfileData{
		UserID:      p.UserID,
		Record:      p.Record,
		CompletedAt: p.CompletedAt.UTC().Format(time.RFC3339),
	}
}

func mapWizardError(err error) error {
	switch {
	case errors.Is(err, wizard.ErrUnknownPurpose):
		return pkgerrors.OnboardingPurposeInvalid
	case errors.Is(err, wizard.ErrUnknownTarget):
		return pkgerrors.OnboardingTargetInvalid
	case errors.Is(err, wizard.ErrInvalidStepData):
		return pkgerrors.OnboardingDataInvalid.WithMessage(err.Error())
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return pkgerrors.OnboardingSubmissionInFlight
	case errors.Is(err, wizard.ErrWizardFinished):
		return pkgerrors.OnboardingSessionNotFound
	case errors.Is(err, wizard.ErrStepOutOfRange), errors.Is(err, wizard.ErrPurposeMismatch):
		return pkgerrors.OnboardingSessionStateCorrupt
	default:
		return err
	}
}
