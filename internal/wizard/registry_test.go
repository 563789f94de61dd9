package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTotals(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, 7, r.TotalSteps(PurposeTravel))
	assert.Equal(t, 7, r.TotalSteps(PurposeStudy))
	assert.Equal(t, 7, r.TotalSteps(PurposeJob))
	assert.Equal(t, 8, r.TotalSteps(PurposeLiving))
	assert.Equal(t, 0, r.TotalSteps(Purpose("holiday")))
}

func TestRegistrySameIndexDiffersByPurpose(t *testing.T) {
	r := DefaultRegistry()

	living, err := r.Resolve(PurposeLiving, 6)
	require.NoError(t, err)
	assert.Equal(t, StepKindShared, living.Kind)
	assert.Equal(t, SharedLanguage, living.SharedType)

	travel, err := r.Resolve(PurposeTravel, 5)
	require.NoError(t, err)
	assert.Equal(t, StepKindShared, travel.Kind)
	assert.Equal(t, SharedLanguage, travel.SharedType)

	living5, err := r.Resolve(PurposeLiving, 5)
	require.NoError(t, err)
	assert.Equal(t, StepKindDomain, living5.Kind)
	assert.Equal(t, StepRegion, living5.ID)
}

func TestRegistryEveryPurposeHasEachSharedStepOnce(t *testing.T) {
	r := DefaultRegistry()

	for _, purpose := range Purposes() {
		seen := map[SharedType]int{}
		for i, step := range r.Steps(purpose) {
			assert.Equal(t, i+1, step.Index, "%s indexes must be contiguous", purpose)
			if step.IsShared() {
				seen[step.SharedType]++
			}
		}
		assert.Equal(t, map[SharedType]int{SharedLanguage: 1, SharedInterests: 1, SharedEmergency: 1}, seen, purpose)
	}
}

func TestRegistryResolveOutOfRange(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Resolve(PurposeTravel, 0)
	assert.ErrorIs(t, err, ErrStepOutOfRange)

	_, err = r.Resolve(PurposeTravel, 8)
	assert.ErrorIs(t, err, ErrStepOutOfRange)

	_, err = r.Resolve(Purpose("holiday"), 1)
	assert.ErrorIs(t, err, ErrUnknownPurpose)
}

func TestRegistryStepsReturnsCopy(t *testing.T) {
	r := DefaultRegistry()

	steps := r.Steps(PurposeJob)
	steps[0].ID = "mutated"

	first, err := r.Resolve(PurposeJob, 1)
	require.NoError(t, err)
	assert.Equal(t, StepBasicInfo, first.ID)
}

func TestParsePurpose(t *testing.T) {
	p, ok := ParsePurpose("  Travel ")
	assert.True(t, ok)
	assert.Equal(t, PurposeTravel, p)

	_, ok = ParsePurpose("holiday")
	assert.False(t, ok)
}
