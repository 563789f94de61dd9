package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KVisit/internal/cache"
	"KVisit/internal/cache/cachetest"
	"KVisit/internal/model"
	"KVisit/internal/wizard"
	"KVisit/storage/mq"
)

func delivery(t *testing.T, msg model.OnboardingCompletedMessage) amqp.Delivery {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Body: b, MessageId: msg.MessageID}
}

func completed() model.OnboardingCompletedMessage {
	return model.OnboardingCompletedMessage{
		MessageID:  "ob_done_1",
		SessionID:  "s1",
		UserID:     "1001",
		Purpose:    "travel",
		Record:     wizard.Record{Nation: "France", Language: "ja", VisitPurpose: "travel", Period: wizard.PeriodShort, IsOnBoardDone: true},
		OccurredAt: "2026-10-01T09:00:00Z",
	}
}

func TestProjectorWarmsProfileCache(t *testing.T) {
	ctx := context.Background()
	profiles := cachetest.NewProfileCache()
	marker := cachetest.NewMessageMarker()
	p := &CompletionProjector{Profiles: profiles, Marker: marker}

	require.NoError(t, p.Handle(ctx, delivery(t, completed())))

	got, lookup, err := profiles.GetProfile(ctx, "1001")
	require.NoError(t, err)
	require.Equal(t, cache.Hit, lookup)
	assert.Equal(t, "France", got.Record.Nation)
	assert.Equal(t, 2026, got.CompletedAt.Year())
	assert.Equal(t, "completed", marker.State("ob_done_1"))
}

func TestProjectorSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	profiles := cachetest.NewProfileCache()
	p := &CompletionProjector{Profiles: profiles, Marker: cachetest.NewMessageMarker()}

	require.NoError(t, p.Handle(ctx, delivery(t, completed())))
	require.NoError(t, profiles.DeleteProfile(ctx, "1001"))

	require.NoError(t, p.Handle(ctx, delivery(t, completed())))
	_, lookup, _ := profiles.GetProfile(ctx, "1001")
	assert.Equal(t, cache.Miss, lookup, "duplicate delivery must not be applied again")
}

func TestProjectorMalformedIsPermanent(t *testing.T) {
	p := &CompletionProjector{Profiles: cachetest.NewProfileCache(), Marker: cachetest.NewMessageMarker()}

	err := p.Handle(context.Background(), amqp.Delivery{Body: []byte("{oops")})
	var perm *mq.PermanentError
	assert.True(t, errors.As(err, &perm))

	msg := completed()
	msg.UserID = ""
	err = p.Handle(context.Background(), delivery(t, msg))
	assert.True(t, errors.As(err, &perm))
}

type failingProfiles struct{ cache.ProfileCache }

func (failingProfiles) SetProfile(context.Context, string, *cache.CachedProfile) error {
	return errors.New("redis down")
}

func TestProjectorFailureUnmarksForRetry(t *testing.T) {
	marker := cachetest.NewMessageMarker()
	p := &CompletionProjector{Profiles: failingProfiles{}, Marker: marker}

	err := p.Handle(context.Background(), delivery(t, completed()))
	require.Error(t, err)

	var perm *mq.PermanentError
	assert.False(t, errors.As(err, &perm), "transient failures are requeued")
	assert.Empty(t, marker.State("ob_done_1"))
}
