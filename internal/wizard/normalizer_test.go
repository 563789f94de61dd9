package wizard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTravelUsesCountryWhenNationalityMissing(t *testing.T) {
	data, err := NewFormData(PurposeTravel)
	require.NoError(t, err)
	data.Profile = Profile{Name: "Mina", Gender: "female", Nationality: "", Country: "France", UILanguage: "JA"}

	record, err := pinnedNormalizer().Normalize(PurposeTravel, data)
	require.NoError(t, err)

	assert.Equal(t, "France", record.Nation)
	assert.Equal(t, "ja", record.Language)
	assert.Equal(t, "Travel", record.VisitPurpose)
	assert.Equal(t, PeriodShort, record.Period)
	assert.True(t, record.IsOnBoardDone)
}

func TestNormalizeJobFallsBackToPreferredLanguage(t *testing.T) {
	data, err := NewFormData(PurposeJob)
	require.NoError(t, err)
	data.Profile = Profile{Name: "Lee", UILanguage: "xx"}

	record, err := pinnedNormalizer().Normalize(PurposeJob, data)
	require.NoError(t, err)

	assert.Equal(t, "en", record.Language)
	assert.Equal(t, "Job", record.VisitPurpose)
	assert.Equal(t, PeriodMedium, record.Period)
}

func TestNormalizeDefaults(t *testing.T) {
	data, err := NewFormData(PurposeLiving)
	require.NoError(t, err)

	record, err := pinnedNormalizer().Normalize(PurposeLiving, data)
	require.NoError(t, err)

	assert.Equal(t, "Korea", record.Nation)
	assert.Equal(t, GenderUnknown, record.Gender)
	assert.Equal(t, PeriodLong, record.Period)

	custom, err := NewNormalizer("Japan", nil).Normalize(PurposeLiving, data)
	require.NoError(t, err)
	assert.Equal(t, "Japan", custom.Nation)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	data, err := NewFormData(PurposeStudy)
	require.NoError(t, err)
	data.Profile = Profile{Name: "Ana", Age: 22, Gender: "female", Nationality: "Brazil"}
	data.Study().SchoolName = "KAIST"
	data.Interests = NewInterestSet("robotics", "cafe", "hiking", "film")

	n := pinnedNormalizer()
	first, err := n.Normalize(PurposeStudy, data)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := n.Normalize(PurposeStudy, data)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}
}

func TestNormalizePreferenceCarriesOnlyMatchingDomain(t *testing.T) {
	data, err := NewFormData(PurposeTravel)
	require.NoError(t, err)
	data.Profile = Profile{Name: "Mina", Age: 29}
	data.Travel().InterestedCities = []string{"Seoul"}

	record, err := pinnedNormalizer().Normalize(PurposeTravel, data)
	require.NoError(t, err)

	var blob map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(record.OnBoardingPreference), &blob))

	assert.Contains(t, blob, "travelData")
	assert.NotContains(t, blob, "studyData")
	assert.NotContains(t, blob, "jobData")
	assert.NotContains(t, blob, "livingData")
	assert.Contains(t, blob, "emergencyInfo")
	assert.JSONEq(t, `"Mina"`, string(blob["name"]))
	assert.JSONEq(t, `[]`, string(blob["interests"]))
}

func TestNormalizeRejectsNilData(t *testing.T) {
	_, err := pinnedNormalizer().Normalize(PurposeTravel, nil)
	assert.ErrorIs(t, err, ErrInvalidStepData)
}

func TestPeriodFor(t *testing.T) {
	assert.Equal(t, PeriodShort, PeriodFor(PurposeTravel))
	assert.Equal(t, PeriodMedium, PeriodFor(PurposeStudy))
	assert.Equal(t, PeriodMedium, PeriodFor(PurposeJob))
	assert.Equal(t, PeriodLong, PeriodFor(PurposeLiving))
	assert.Equal(t, PeriodShort, PeriodFor(Purpose("holiday")))
}
