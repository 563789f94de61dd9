package wizard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormDataDefaults(t *testing.T) {
	data, err := NewFormData(PurposeLiving)
	require.NoError(t, err)

	assert.Equal(t, PurposeLiving, data.Purpose)
	assert.IsType(t, &LivingData{}, data.Domain)
	assert.Equal(t, KoreanNone, data.Language.KoreanLevel)
	assert.True(t, data.Emergency.ReceiveEmergencyAlerts)
	assert.Zero(t, data.Interests.Len())

	_, err = NewFormData(Purpose("holiday"))
	assert.ErrorIs(t, err, ErrUnknownPurpose)
}

func TestUpdateStepDataMergeIsolation(t *testing.T) {
	engine := NewEngine(pinnedNormalizer())

	targets := []struct {
		target Target
		fields map[string]any
	}{
		{TargetProfile, map[string]any{"name": "Sora"}},
		{TargetDomain, map[string]any{"travelStyle": "backpacking"}},
		{TargetLanguage, map[string]any{"koreanLevel": "basic"}},
		{TargetInterests, map[string]any{"interests": []string{"food"}}},
		{TargetEmergency, map[string]any{"foodAllergies": "peanuts"}},
	}

	for _, tc := range targets {
		t.Run(string(tc.target), func(t *testing.T) {
			c, err := engine.Start(PurposeTravel, Collaborators{})
			require.NoError(t, err)
			fillTravel(t, c)

			before, err := c.Data().Clone()
			require.NoError(t, err)

			require.NoError(t, c.UpdateStepData(tc.target, patch(t, tc.fields)))
			after := c.Data()

			if tc.target != TargetProfile {
				assert.Equal(t, before.Profile, after.Profile)
			}
			if tc.target != TargetDomain {
				assert.Equal(t, before.Domain, after.Domain)
			}
			if tc.target != TargetLanguage {
				assert.Equal(t, before.Language, after.Language)
			}
			if tc.target != TargetInterests {
				assert.Equal(t, before.Interests, after.Interests)
			}
			if tc.target != TargetEmergency {
				assert.Equal(t, before.Emergency, after.Emergency)
			}
		})
	}
}

func TestUpdateStepDataKeepsEarlierKeys(t *testing.T) {
	c, err := NewEngine(pinnedNormalizer()).Start(PurposeTravel, Collaborators{})
	require.NoError(t, err)

	require.NoError(t, c.UpdateStepData(TargetProfile, patch(t, map[string]any{"name": "Sora", "age": 31})))
	require.NoError(t, c.UpdateStepData(TargetProfile, patch(t, map[string]any{"gender": "female"})))

	assert.Equal(t, Profile{Name: "Sora", Age: 31, Gender: "female"}, c.Data().Profile)
}

func TestUpdateStepDataRejectsUnknownKeysWithoutMutating(t *testing.T) {
	c, err := NewEngine(pinnedNormalizer()).Start(PurposeJob, Collaborators{})
	require.NoError(t, err)
	require.NoError(t, c.UpdateStepData(TargetDomain, patch(t, map[string]any{"company": "Acme"})))

	err = c.UpdateStepData(TargetDomain, patch(t, map[string]any{"company": "Other", "familyMembers": 3}))
	assert.ErrorIs(t, err, ErrInvalidStepData)
	assert.Equal(t, "Acme", c.Data().Job().Company)

	err = c.UpdateStepData(TargetProfile, patch(t, map[string]any{"age": "thirty"}))
	assert.ErrorIs(t, err, ErrInvalidStepData)

	err = c.UpdateStepData(Target("theme"), patch(t, map[string]any{"season": "winter"}))
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestUpdateStepDataKeysAreCaseSensitive(t *testing.T) {
	c, err := NewEngine(pinnedNormalizer()).Start(PurposeTravel, Collaborators{})
	require.NoError(t, err)
	require.NoError(t, c.UpdateStepData(TargetProfile, patch(t, map[string]any{"country": "Japan"})))

	err = c.UpdateStepData(TargetProfile, patch(t, map[string]any{"Country": "France"}))
	assert.ErrorIs(t, err, ErrInvalidStepData)
	assert.Equal(t, "Japan", c.Data().Profile.Country)

	err = c.UpdateStepData(TargetDomain, patch(t, map[string]any{"StartDate": "2026-11-01"}))
	assert.ErrorIs(t, err, ErrInvalidStepData)
	assert.Empty(t, c.Data().Travel().StartDate)

	err = c.UpdateStepData(TargetEmergency, patch(t, map[string]any{"CONTACT": "a@b.co"}))
	assert.ErrorIs(t, err, ErrInvalidStepData)
	assert.Empty(t, c.Data().Emergency.Contact)
}

func TestFormDataJSONKeepsDomainVariant(t *testing.T) {
	data, err := NewFormData(PurposeStudy)
	require.NoError(t, err)
	data.Study().SchoolName = "Yonsei"
	data.Interests = NewInterestSet("kpop", "hiking", "kpop")

	b, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded FormData
	require.NoError(t, json.Unmarshal(b, &decoded))

	require.NotNil(t, decoded.Study())
	assert.Nil(t, decoded.Travel())
	assert.Equal(t, "Yonsei", decoded.Study().SchoolName)
	assert.Equal(t, []string{"hiking", "kpop"}, decoded.Interests.Sorted())
}

func TestInterestSetMarshalsSorted(t *testing.T) {
	set := NewInterestSet("food", " ", "art", "food")

	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["art","food"]`, string(b))
	assert.True(t, set.Has(" art "))
}
