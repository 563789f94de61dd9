package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorUnregisteredStepAllowsProgress(t *testing.T) {
	v := NewValidator()
	data, err := NewFormData(PurposeTravel)
	require.NoError(t, err)

	assert.True(t, v.CanProceed(PurposeTravel, 1, data))
	assert.True(t, v.CanProceed(PurposeLiving, 8, data))
}

func TestValidatorIsPure(t *testing.T) {
	registry := DefaultRegistry()
	v := DefaultValidator(registry)

	for _, purpose := range Purposes() {
		data, err := NewFormData(purpose)
		require.NoError(t, err)
		data.Profile = Profile{Name: "Jun", Gender: "male", Nationality: "Vietnam"}

		before, err := data.Clone()
		require.NoError(t, err)

		for i := 1; i <= registry.TotalSteps(purpose); i++ {
			first := v.CanProceed(purpose, i, data)
			for n := 0; n < 3; n++ {
				assert.Equal(t, first, v.CanProceed(purpose, i, data), "%s step %d", purpose, i)
			}
		}
		assert.Equal(t, before, data, "validation must not mutate data")
	}
}

func TestValidatorBasicInfo(t *testing.T) {
	v := DefaultValidator(DefaultRegistry())
	data, err := NewFormData(PurposeStudy)
	require.NoError(t, err)

	assert.False(t, v.CanProceed(PurposeStudy, 1, data))

	data.Profile = Profile{Name: "Ana", Gender: "female"}
	assert.False(t, v.CanProceed(PurposeStudy, 1, data), "nation is required")

	data.Profile.Nationality = "Brazil"
	assert.True(t, v.CanProceed(PurposeStudy, 1, data))

	data.Profile.Name = "   "
	assert.False(t, v.CanProceed(PurposeStudy, 1, data))
}

func TestValidatorRegionAppliedToEveryPurposeWithRegionStep(t *testing.T) {
	registry := DefaultRegistry()
	v := DefaultValidator(registry)

	for _, purpose := range []Purpose{PurposeStudy, PurposeJob, PurposeLiving} {
		index := registry.IndexOf(purpose, StepRegion)
		require.NotZero(t, index, purpose)
		assert.True(t, v.Has(purpose, index), "%s region step must be validated", purpose)

		data, err := NewFormData(purpose)
		require.NoError(t, err)
		assert.False(t, v.CanProceed(purpose, index, data), purpose)
	}
	assert.Zero(t, registry.IndexOf(PurposeTravel, StepRegion))
}

func TestValidatorTravelSteps(t *testing.T) {
	v := DefaultValidator(DefaultRegistry())
	data, err := NewFormData(PurposeTravel)
	require.NoError(t, err)
	trip := data.Travel()

	trip.StartDate, trip.EndDate = "2026-11-10", "2026-11-01"
	assert.False(t, v.CanProceed(PurposeTravel, 2, data), "end before start")

	trip.StartDate, trip.EndDate = "2026-11-01", "2026-11-01"
	assert.True(t, v.CanProceed(PurposeTravel, 2, data))

	trip.InterestedCities = []string{" "}
	assert.False(t, v.CanProceed(PurposeTravel, 3, data))

	trip.InterestedCities = []string{"Jeju"}
	assert.True(t, v.CanProceed(PurposeTravel, 3, data))

	assert.False(t, v.Has(PurposeTravel, 4), "travel style is optional")
	assert.False(t, v.Has(PurposeTravel, 6), "interests are optional")
}

func TestValidatorLivingFamilyInfo(t *testing.T) {
	v := DefaultValidator(DefaultRegistry())
	data, err := NewFormData(PurposeLiving)
	require.NoError(t, err)

	assert.False(t, v.CanProceed(PurposeLiving, 3, data))
	data.Living().FamilyMembers = 2
	assert.True(t, v.CanProceed(PurposeLiving, 3, data))
}

func TestValidatorEmergencyContact(t *testing.T) {
	v := DefaultValidator(DefaultRegistry())
	data, err := NewFormData(PurposeJob)
	require.NoError(t, err)

	assert.False(t, v.CanProceed(PurposeJob, 6, data))

	data.Emergency.Contact = "not a contact"
	assert.False(t, v.CanProceed(PurposeJob, 6, data))

	data.Emergency.Contact = "family@example.com"
	assert.True(t, v.CanProceed(PurposeJob, 6, data))

	data.Emergency.Contact = "+82 10-1234-5678"
	assert.True(t, v.CanProceed(PurposeJob, 6, data))
}

func TestValidatorFirstInvalid(t *testing.T) {
	v := DefaultValidator(DefaultRegistry())
	data, err := NewFormData(PurposeJob)
	require.NoError(t, err)
	data.Profile = Profile{Name: "Lee", Gender: "male", Country: "Canada"}
	data.Job().Company = "Acme"

	assert.Equal(t, 3, v.FirstInvalid(PurposeJob, 7, data))
	assert.Equal(t, 0, v.FirstInvalid(PurposeJob, 2, data))
}
