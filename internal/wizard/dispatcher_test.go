package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherWritesOnlyItsNamespace(t *testing.T) {
	d := NewDispatcher()
	data, err := NewFormData(PurposeTravel)
	require.NoError(t, err)
	data.Travel().InterestedCities = []string{"Seoul"}
	data.Profile.Name = "Mina"

	require.NoError(t, d.OnChange(SharedLanguage, data, patch(t, map[string]any{"koreanLevel": "fluent"})))
	require.NoError(t, d.OnChange(SharedInterests, data, patch(t, map[string]any{"interests": []string{"food", "art"}})))
	require.NoError(t, d.OnChange(SharedEmergency, data, patch(t, map[string]any{"receiveEmergencyAlerts": false})))

	assert.Equal(t, KoreanFluent, data.Language.KoreanLevel)
	assert.Equal(t, []string{"art", "food"}, data.Interests.Sorted())
	assert.False(t, data.Emergency.ReceiveEmergencyAlerts)
	assert.Equal(t, []string{"Seoul"}, data.Travel().InterestedCities)
	assert.Equal(t, "Mina", data.Profile.Name)
}

func TestDispatcherInterestsReplaceWholeSet(t *testing.T) {
	d := NewDispatcher()
	data, err := NewFormData(PurposeJob)
	require.NoError(t, err)

	require.NoError(t, d.OnChange(SharedInterests, data, patch(t, map[string]any{"interests": []string{"food", "art"}})))
	require.NoError(t, d.OnChange(SharedInterests, data, patch(t, map[string]any{"interests": []string{"sports"}})))

	assert.Equal(t, []string{"sports"}, data.Interests.Sorted())
}

func TestDispatcherRejectsInvalidLanguageLevel(t *testing.T) {
	d := NewDispatcher()
	data, err := NewFormData(PurposeStudy)
	require.NoError(t, err)

	err = d.OnChange(SharedLanguage, data, patch(t, map[string]any{"koreanLevel": "native-ish"}))
	assert.ErrorIs(t, err, ErrInvalidStepData)
	assert.Equal(t, KoreanNone, data.Language.KoreanLevel)
}

func TestDispatcherUnknownType(t *testing.T) {
	d := NewDispatcher()
	data, err := NewFormData(PurposeStudy)
	require.NoError(t, err)

	_, err = d.View(SharedType("hobbies"), data)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.ErrorIs(t, d.OnChange(SharedType("hobbies"), data, nil), ErrUnknownTarget)
}

func TestDispatcherView(t *testing.T) {
	d := NewDispatcher()
	data, err := NewFormData(PurposeLiving)
	require.NoError(t, err)

	view, err := d.View(SharedEmergency, data)
	require.NoError(t, err)
	assert.Equal(t, SharedEmergency, view.Type)
	assert.Equal(t, data.Emergency, view.Value)
}
