package staffing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCandidate(t *testing.T) {
	raw := map[string]any{
		"id":          "c-1",
		"helper_type": "domestic_helper",
		"age":         "31",
		"nationality": "Filipino",
		"experience": map[string]any{
			"cooking": map[string]any{
				"has_experience": true,
				"years":          "4.5",
				"level":          "advanced",
				"specialties":    "chinese,western",
			},
		},
		"languages": []any{
			map[string]any{"name": "English", "proficiency": "advanced", "can_teach": "true"},
		},
		"reliability": map[string]any{
			"verified":       true,
			"last_active_at": "2026-10-01T10:00:00Z",
		},
	}

	candidate, defaulted, err := DecodeCandidate(raw)
	require.NoError(t, err)
	assert.Empty(t, defaulted)
	assert.Equal(t, 31, candidate.Age)

	cooking := candidate.Skill(CategoryCooking)
	require.NotNil(t, cooking)
	assert.Equal(t, 4.5, cooking.Years)
	assert.Equal(t, CompetencyAdvanced, cooking.Level)
	assert.Equal(t, []string{"chinese", "western"}, cooking.Specialties)

	require.Len(t, candidate.Languages, 1)
	assert.True(t, candidate.Languages[0].CanTeach)
	assert.Equal(t, time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC), candidate.Reliability.LastActiveAt)
}

func TestDecodeCandidateMalformedFieldDefaults(t *testing.T) {
	raw := map[string]any{
		"id":          "c-57",
		"helper_type": "domestic_helper",
		"experience":  "lots of it",
		"age":         29,
		"reliability": map[string]any{"last_active_at": "yesterday"},
	}

	candidate, defaulted, err := DecodeCandidate(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, defaulted)
	assert.Nil(t, candidate.Experience)
	assert.Equal(t, 29, candidate.Age)
	assert.True(t, candidate.Reliability.LastActiveAt.IsZero())
}

func TestDecodeCandidateRequiresID(t *testing.T) {
	_, _, err := DecodeCandidate(map[string]any{"age": 30})
	assert.Error(t, err)

	_, _, err = DecodeCandidate(nil)
	assert.Error(t, err)
}

func TestDecodeJob(t *testing.T) {
	raw := map[string]any{
		"id":          "j-1",
		"employer_id": "e-1",
		"helper_type": "domestic_helper",
		"requirements": map[string]any{
			"cooking": map[string]any{"required": true, "importance": "medium", "needs": []any{"Chinese"}},
		},
		"preferences": map[string]any{"age_min": 25, "age_max": "40"},
		"compensation": []any{
			map[string]any{"reason": "x", "condition": map[string]any{"kind": "verified"}},
		},
	}

	job, defaulted, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Empty(t, defaulted)
	assert.Equal(t, []Category{CategoryCooking}, job.RequiredCategories())
	assert.Equal(t, 40, job.Preferences.AgeMax)
	assert.Len(t, job.Compensation, 1)
}

func TestExperienceYearsFallsBackToLongestSkill(t *testing.T) {
	c := &Candidate{Experience: map[Category]*SkillExperience{
		CategoryCooking:  {HasExperience: true, Years: 3},
		CategoryCleaning: {HasExperience: true, Years: 6},
		CategoryPetcare:  {HasExperience: false, Years: 9},
	}}
	assert.Equal(t, 6.0, c.ExperienceYears())

	c.TotalYears = 2
	assert.Equal(t, 2.0, c.ExperienceYears())
}

func TestPreferencesAgeDistance(t *testing.T) {
	p := Preferences{AgeMin: 25, AgeMax: 40}
	assert.Equal(t, 0, p.AgeDistance(30))
	assert.Equal(t, 5, p.AgeDistance(20))
	assert.Equal(t, 3, p.AgeDistance(43))
	assert.False(t, Preferences{}.HasAgeRange())
}
