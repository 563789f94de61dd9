package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"KVisit/internal/cache"
	"KVisit/internal/cache/cachetest"
	"KVisit/internal/model"
	"KVisit/internal/model/dto"
	"KVisit/internal/repository"
	"KVisit/internal/wizard"
)

const (
	exitPath = "/onboarding/purpose"
	homePath = "/home"
	owner    = "1001"
)

type fakeRecords struct {
	mu    sync.Mutex
	saved []wizard.Record
	err   error
}

func (f *fakeRecords) SaveRecord(_ context.Context, _ string, record wizard.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, record)
	return f.err
}

func (f *fakeRecords) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []model.OnboardingCompletedMessage
}

func (f *fakePublisher) PublishOnboardingCompleted(_ context.Context, msg model.OnboardingCompletedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeRepository struct {
	profiles map[string]*model.OnboardingProfile
	reads    int
}

func (f *fakeRepository) Upsert(_ context.Context, p *model.OnboardingProfile) error {
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeRepository) GetByUserID(_ context.Context, userID string) (*model.OnboardingProfile, error) {
	f.reads++
	p, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

type fixture struct {
	svc       *OnboardingService
	sessions  *cachetest.WizardStore
	locker    *cachetest.Locker
	profiles  *cachetest.ProfileCache
	records   *fakeRecords
	publisher *fakePublisher
	repo      *fakeRepository
}

func newFixture(t *testing.T, opts ...func(*OnboardingDeps)) *fixture {
	t.Helper()
	f := &fixture{
		sessions:  cachetest.NewWizardStore(),
		locker:    cachetest.NewLocker(),
		profiles:  cachetest.NewProfileCache(),
		records:   &fakeRecords{},
		publisher: &fakePublisher{},
		repo:      &fakeRepository{profiles: map[string]*model.OnboardingProfile{}},
	}

	var (
		seq   int
		seqMu sync.Mutex
	)
	normalizer := wizard.NewNormalizer("Korea", wizard.NewLanguageResolver(wizard.DefaultSupportedLanguages, "en_US.UTF-8"))
	deps := OnboardingDeps{
		Engine:     wizard.NewEngine(normalizer),
		Sessions:   f.sessions,
		Locker:     f.locker,
		Profiles:   f.profiles,
		Records:    f.records,
		Repository: f.repo,
		Publisher:  f.publisher,
		ExitPath:   exitPath,
		HomePath:   homePath,
		NewID: func() (string, error) {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("sess-%d", seq), nil
		},
		Now: func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = NewOnboardingService(deps)
	return f
}

// stickyStore 删除总是失败的会话存储
type stickyStore struct {
	*cachetest.WizardStore
}

func (stickyStore) DeleteSession(context.Context, string) error {
	return errors.New("redis: connection reset")
}

// expiringLocker 锁到期自动失效，不续期，行为同 SET NX PX
type expiringLocker struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func newExpiringLocker() *expiringLocker {
	return &expiringLocker{expires: map[string]time.Time{}}
}

func (l *expiringLocker) TryLock(_ context.Context, key string, ttl time.Duration) (cache.UnlockFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if until, ok := l.expires[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.expires[key] = until
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.expires[key].Equal(until) {
			delete(l.expires, key)
		}
		return nil
	}, true, nil
}

// slowRecords 保存耗时 delay，期间尊重 ctx
type slowRecords struct {
	delay time.Duration

	mu       sync.Mutex
	calls    int
	deadline time.Duration
	errs     []error
}

func (r *slowRecords) SaveRecord(ctx context.Context, _ string, _ wizard.Record) error {
	r.mu.Lock()
	r.calls++
	if dl, ok := ctx.Deadline(); ok {
		r.deadline = time.Until(dl)
	}
	r.mu.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(r.delay):
	}

	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	return err
}

func (r *slowRecords) snapshot() (int, time.Duration, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.deadline, append([]error(nil), r.errs...)
}

func update(t *testing.T, f *fixture, sessionID, target string, fields map[string]any) *dto.SessionData {
	t.Helper()
	data := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		data[k] = b
	}
	view, err := f.svc.UpdateData(context.Background(), owner, sessionID, &dto.UpdateStepDataRequest{Target: target, Data: data})
	require.NoError(t, err)
	return view
}

// startFilledTravel 开始一个 travel 会话并填满所有必填项
func startFilledTravel(t *testing.T, f *fixture) string {
	t.Helper()
	view, err := f.svc.StartSession(context.Background(), owner, "travel")
	require.NoError(t, err)

	update(t, f, view.SessionID, "profile", map[string]any{"name": "Mina", "gender": "female", "country": "France", "uiLanguage": "JA"})
	update(t, f, view.SessionID, "domain", map[string]any{"startDate": "2026-11-01", "endDate": "2026-11-10", "interestedCities": []string{"Seoul"}})
	update(t, f, view.SessionID, "emergency", map[string]any{"contact": "+33 6 12 34 56 78"})
	return view.SessionID
}

// nextUntil 连续 Next 直到离开 advanced 状态
func nextUntil(t *testing.T, f *fixture, sessionID string) *dto.TransitionData {
	t.Helper()
	for i := 0; i < 10; i++ {
		tr, err := f.svc.Next(context.Background(), owner, sessionID)
		require.NoError(t, err)
		if tr.Outcome != wizard.OutcomeAdvanced {
			return tr
		}
	}
	t.Fatal("wizard never left the advanced state")
	return nil
}
