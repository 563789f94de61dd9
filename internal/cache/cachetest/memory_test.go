package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KVisit/internal/cache"
	"KVisit/internal/wizard"
)

func newSession(t *testing.T, id string) *cache.WizardSession {
	t.Helper()
	data, err := wizard.NewFormData(wizard.PurposeTravel)
	require.NoError(t, err)
	return &cache.WizardSession{
		ID:       id,
		UserID:   "1001",
		Snapshot: wizard.Snapshot{Purpose: wizard.PurposeTravel, Step: 2, Data: data},
	}
}

func TestWizardStoreCopiesOnSave(t *testing.T) {
	ctx := context.Background()
	store := NewWizardStore()

	session := newSession(t, "s1")
	require.NoError(t, store.SaveSession(ctx, session))

	session.Snapshot.Data.Profile.Name = "changed after save"

	loaded, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Snapshot.Data.Profile.Name)
	assert.Equal(t, 2, loaded.Snapshot.Step)
	assert.NotNil(t, loaded.Snapshot.Data.Travel())

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.LoadSession(ctx, "s1")
	assert.ErrorIs(t, err, cache.ErrWizardSessionNotFound)
}

func TestLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	locker := NewLocker()

	unlock, ok, err := locker.TryLock(ctx, "session:s1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "session:s1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = locker.TryLock(ctx, "session:s2", time.Second)
	assert.True(t, ok, "other keys are independent")

	require.NoError(t, unlock(ctx))
	_, ok, _ = locker.TryLock(ctx, "session:s1", time.Second)
	assert.True(t, ok)
}

func TestProfileCacheEmptyMarker(t *testing.T) {
	ctx := context.Background()
	c := NewProfileCache()

	_, lookup, err := c.GetProfile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)

	require.NoError(t, c.SetProfile(ctx, "1", nil))
	_, lookup, _ = c.GetProfile(ctx, "1")
	assert.Equal(t, cache.Empty, lookup)

	require.NoError(t, c.SetProfile(ctx, "1", &cache.CachedProfile{UserID: "1", Record: wizard.Record{Nation: "France"}}))
	profile, lookup, _ := c.GetProfile(ctx, "1")
	assert.Equal(t, cache.Hit, lookup)
	assert.Equal(t, "France", profile.Record.Nation)
}

func TestMessageMarker(t *testing.T) {
	ctx := context.Background()
	m := NewMessageMarker()

	ok, err := m.TryMarkMessageProcessing(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.TryMarkMessageProcessing(ctx, "m1")
	assert.False(t, ok)

	require.NoError(t, m.UnmarkMessageProcessing(ctx, "m1"))
	ok, _ = m.TryMarkMessageProcessing(ctx, "m1")
	assert.True(t, ok)

	require.NoError(t, m.MarkMessageProcessed(ctx, "m1"))
	assert.Equal(t, "completed", m.State("m1"))
}
