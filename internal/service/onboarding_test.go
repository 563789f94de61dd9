package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KVisit/internal/cache"
	"KVisit/internal/cache/cachetest"
	"KVisit/internal/model"
	"KVisit/internal/model/dto"
	"KVisit/internal/wizard"
	pkgerrors "KVisit/pkg/errors"
)

func TestStartSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartSession(ctx, owner, "holiday")
	assert.ErrorIs(t, err, pkgerrors.OnboardingPurposeInvalid)

	view, err := f.svc.StartSession(ctx, owner, " Living ")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", view.SessionID)
	assert.Equal(t, wizard.PurposeLiving, view.Purpose)
	assert.Equal(t, 1, view.Step)
	assert.Equal(t, 8, view.TotalSteps)
	assert.False(t, view.NextEnabled)
	assert.Equal(t, "onboarding.step.basic-info.title", view.Current.TitleKey)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestNextBlockedKeepsStep(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.StartSession(context.Background(), owner, "job")
	require.NoError(t, err)

	tr, err := f.svc.Next(context.Background(), owner, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeBlocked, tr.Outcome)
	assert.Equal(t, 1, tr.Step)
	require.NotNil(t, tr.Session)
	assert.Equal(t, 1, tr.Session.Step)
}

func TestFullTravelSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := startFilledTravel(t, f)

	tr := nextUntil(t, f, id)
	require.Equal(t, wizard.OutcomeSubmitted, tr.Outcome)
	assert.Equal(t, homePath, tr.NavigateTo)
	require.NotNil(t, tr.Submission)
	assert.True(t, tr.Submission.Saved)
	assert.Nil(t, tr.Session)

	record := tr.Submission.Record
	assert.Equal(t, "France", record.Nation)
	assert.Equal(t, "ja", record.Language)
	assert.Equal(t, "Travel", record.VisitPurpose)
	assert.Equal(t, wizard.PeriodShort, record.Period)
	assert.True(t, record.IsOnBoardDone)

	assert.Equal(t, 1, f.records.calls())
	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, id, f.publisher.msgs[0].SessionID)
	assert.Equal(t, owner, f.publisher.msgs[0].UserID)
	assert.Equal(t, 0, f.sessions.Len(), "finished session is discarded")

	_, err := f.svc.Next(ctx, owner, id)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionNotFound)
	assert.Equal(t, 1, f.records.calls(), "a second finish never re-submits")
}

func TestSubmissionFailureStillNavigates(t *testing.T) {
	f := newFixture(t)
	f.records.err = errors.New("connection refused")
	id := startFilledTravel(t, f)

	tr := nextUntil(t, f, id)
	require.Equal(t, wizard.OutcomeSubmitted, tr.Outcome)
	assert.Equal(t, homePath, tr.NavigateTo)
	assert.False(t, tr.Submission.Saved)
	assert.True(t, tr.Submission.Record.IsOnBoardDone)
	assert.Empty(t, f.publisher.msgs, "no completion event without a successful save")
	assert.Equal(t, 1, f.records.calls())
}

func TestSubmissionInvalidatesEmptyProfileMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetProfile(ctx, owner)
	require.ErrorIs(t, err, pkgerrors.OnboardingProfileNotFound)
	_, lookup, _ := f.profiles.GetProfile(ctx, owner)
	require.Equal(t, cache.Empty, lookup)

	nextUntil(t, f, startFilledTravel(t, f))

	_, lookup, _ = f.profiles.GetProfile(ctx, owner)
	assert.Equal(t, cache.Miss, lookup)
}

func TestSessionOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.svc.StartSession(ctx, owner, "study")
	require.NoError(t, err)

	_, err = f.svc.GetSession(ctx, "2002", view.SessionID)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionForbidden)

	_, err = f.svc.Next(ctx, "2002", view.SessionID)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionForbidden)

	assert.ErrorIs(t, f.svc.Abandon(ctx, "2002", view.SessionID), pkgerrors.OnboardingSessionForbidden)

	_, err = f.svc.GetSession(ctx, owner, "missing")
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionNotFound)
}

func TestBackExitsAtFirstStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := startFilledTravel(t, f)

	tr, err := f.svc.Next(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, 2, tr.Step)

	tr, err = f.svc.Back(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeMovedBack, tr.Outcome)
	assert.Equal(t, 1, tr.Session.Step)

	tr, err = f.svc.Back(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeExited, tr.Outcome)
	assert.Equal(t, exitPath, tr.NavigateTo)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestConcurrentMutationIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := startFilledTravel(t, f)

	unlock, ok, err := f.locker.TryLock(ctx, sessionLockPrefix+":"+id, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Next(ctx, owner, id)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSubmissionInFlight)

	require.NoError(t, unlock(ctx))
	_, err = f.svc.Next(ctx, owner, id)
	assert.NoError(t, err)
}

func TestAbandonIsUnconditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := startFilledTravel(t, f)

	_, _, err := f.locker.TryLock(ctx, sessionLockPrefix+":"+id, time.Second)
	require.NoError(t, err)

	require.NoError(t, f.svc.Abandon(ctx, owner, id))
	assert.Equal(t, 0, f.sessions.Len())
}

func TestUpdateDataErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.svc.StartSession(ctx, owner, "living")
	require.NoError(t, err)

	_, err = f.svc.UpdateData(ctx, owner, view.SessionID, &dto.UpdateStepDataRequest{Target: "theme"})
	assert.ErrorIs(t, err, pkgerrors.OnboardingTargetInvalid)

	_, err = f.svc.UpdateData(ctx, owner, view.SessionID, &dto.UpdateStepDataRequest{
		Target: "domain",
		Data:   map[string]json.RawMessage{"company": json.RawMessage(`"Acme"`)},
	})
	assert.ErrorIs(t, err, pkgerrors.OnboardingDataInvalid)

	updated := update(t, f, view.SessionID, "domain", map[string]any{"familyMembers": 3})
	assert.Equal(t, 3, updated.Data.Living().FamilyMembers)
}

func TestSharedStepView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := startFilledTravel(t, f)

	var last *dto.TransitionData
	for i := 0; i < 4; i++ {
		tr, err := f.svc.Next(ctx, owner, id)
		require.NoError(t, err)
		last = tr
	}
	require.Equal(t, 5, last.Step)
	require.NotNil(t, last.Session.Shared)
	assert.Equal(t, wizard.SharedLanguage, last.Session.Shared.Type)
	assert.Equal(t, wizard.SharedLanguage, last.Session.Current.SharedType)
}

func TestGetProfileReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	completedAt := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	f.repo.profiles[owner] = model.NewOnboardingProfile(owner, wizard.Record{Nation: "Vietnam", IsOnBoardDone: true}, completedAt)

	profile, err := f.svc.GetProfile(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "Vietnam", profile.Record.Nation)
	assert.Equal(t, "2026-09-30T12:00:00Z", profile.CompletedAt)

	_, err = f.svc.GetProfile(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.reads, "second read is served from cache")
}

func TestPurposes(t *testing.T) {
	f := newFixture(t)

	purposes := f.svc.Purposes()
	require.Len(t, purposes, 4)

	totals := map[wizard.Purpose]int{}
	for _, p := range purposes {
		totals[p.Purpose] = p.TotalSteps
		assert.Len(t, p.Steps, p.TotalSteps)
		assert.Equal(t, wizard.PeriodFor(p.Purpose), p.Period)
	}
	assert.Equal(t, 8, totals[wizard.PurposeLiving])
	assert.Equal(t, 7, totals[wizard.PurposeTravel])
}

func TestFinishedSessionNeverResubmitsWhenDeleteFails(t *testing.T) {
	f := newFixture(t, func(d *OnboardingDeps) {
		d.Sessions = stickyStore{d.Sessions.(*cachetest.WizardStore)}
	})
	ctx := context.Background()
	id := startFilledTravel(t, f)

	tr := nextUntil(t, f, id)
	require.Equal(t, wizard.OutcomeSubmitted, tr.Outcome)
	require.Equal(t, 1, f.sessions.Len(), "delete failed, session is still stored")

	stored, err := f.sessions.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Snapshot.Finished)

	_, err = f.svc.Next(ctx, owner, id)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionNotFound)
	assert.Equal(t, 1, f.records.calls())
	assert.Len(t, f.publisher.msgs, 1)
}

func TestSaveTimeoutStaysInsideLockTTL(t *testing.T) {
	svc := NewOnboardingService(OnboardingDeps{LockTTL: 10 * time.Second, SaveTimeout: 20 * time.Second})
	assert.Equal(t, 5*time.Second, svc.deps.SaveTimeout)

	svc = NewOnboardingService(OnboardingDeps{LockTTL: 10 * time.Second, SaveTimeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, svc.deps.SaveTimeout)

	svc = NewOnboardingService(OnboardingDeps{})
	assert.Equal(t, defaultLockTTL/2, svc.deps.SaveTimeout)
}

func TestSlowSaveCannotOutliveSessionLock(t *testing.T) {
	const lockTTL = 50 * time.Millisecond
	slow := &slowRecords{}
	f := newFixture(t, func(d *OnboardingDeps) {
		d.Locker = newExpiringLocker()
		d.Records = slow
		d.LockTTL = lockTTL
	})
	ctx := context.Background()
	id := startFilledTravel(t, f)

	for i := 0; i < 6; i++ {
		tr, err := f.svc.Next(ctx, owner, id)
		require.NoError(t, err)
		require.Equal(t, wizard.OutcomeAdvanced, tr.Outcome)
	}

	slow.delay = 150 * time.Millisecond
	type result struct {
		tr  *dto.TransitionData
		err error
	}
	first := make(chan result, 1)
	go func() {
		tr, err := f.svc.Next(ctx, owner, id)
		first <- result{tr, err}
	}()

	time.Sleep(80 * time.Millisecond)
	_, err := f.svc.Next(ctx, owner, id)
	assert.ErrorIs(t, err, pkgerrors.OnboardingSessionNotFound)

	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, wizard.OutcomeSubmitted, res.tr.Outcome)
	assert.False(t, res.tr.Submission.Saved)

	calls, deadline, errs := slow.snapshot()
	assert.Equal(t, 1, calls)
	assert.LessOrEqual(t, deadline, lockTTL)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}
