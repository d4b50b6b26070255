package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/storage/memory"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type env struct {
	service *Service
	stores  Stores
	models  *memory.Models
}

func newEnv(t *testing.T, candidates int) *env {
	t.Helper()

	var items []*staffing.Candidate
	for i := 0; i < candidates; i++ {
		items = append(items, &staffing.Candidate{
			ID:          fmt.Sprintf("c-%02d", i),
			HelperType:  "domestic",
			Age:         24 + i%25,
			Nationality: []string{"Filipino", "Indonesian", "Myanmar"}[i%3],
			TotalYears:  float64(i % 10),
			Experience: map[staffing.Category]*staffing.SkillExperience{
				staffing.CategoryCooking: {HasExperience: i%4 != 0, Years: float64(i % 6), Level: staffing.CompetencyAdvanced},
			},
			Reliability: staffing.Reliability{Verified: i%2 == 0, ReviewScore: 4, LastActiveAt: now.AddDate(0, 0, -i)},
		})
	}
	job := &staffing.Job{
		ID:         "j-1",
		EmployerID: "e-1",
		HelperType: "domestic",
		Requirements: map[staffing.Category]*staffing.Requirement{
			staffing.CategoryCooking: {Required: true, Importance: staffing.ImportanceHigh},
		},
		Preferences: staffing.Preferences{AgeMin: 25, AgeMax: 35, Nationalities: []string{"filipino"}},
	}

	models := memory.NewModels()
	stores := Stores{
		Candidates: memory.NewCandidates(items...),
		Jobs:       memory.NewJobs(job),
		Decisions:  memory.NewDecisions(),
		Models:     models,
		Cache:      cache.NewMemory(),
	}
	return &env{
		service: New(stores, DefaultConfig, nil, WithClock(func() time.Time { return now })),
		stores:  stores,
		models:  models,
	}
}

func TestGetTopCandidates(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 30)
	res, err := e.service.GetTopCandidates(context.Background(), "j-1", 5, "")
	require.NoError(t, err)

	assert.Len(t, res.Matches, 5)
	assert.Equal(t, 30, res.TotalMatches)
	assert.True(t, res.HasMore)
	assert.False(t, res.ScoringInfo.Personalized)
	assert.Equal(t, "no employer", res.ScoringInfo.PersonalizationSkipped)

	named, err := e.service.GetTopCandidates(context.Background(), "j-1", 5, "e-1")
	require.NoError(t, err)
	assert.Equal(t, "no model", named.ScoringInfo.PersonalizationSkipped)
}

func TestRecordDecisionInvalidatesRankings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, 10)

	_, err := e.service.GetTopCandidates(ctx, "j-1", 3, "e-1")
	require.NoError(t, err)
	cached, err := e.service.GetTopCandidates(ctx, "j-1", 3, "e-1")
	require.NoError(t, err)
	require.True(t, cached.ScoringInfo.Cached)

	record, err := e.service.RecordDecision(ctx, "e-1", "c-01", "j-1", "hired")
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, now, record.Timestamp)

	fresh, err := e.service.GetTopCandidates(ctx, "j-1", 3, "e-1")
	require.NoError(t, err)
	assert.False(t, fresh.ScoringInfo.Cached)

	history, err := e.service.History(ctx, "e-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, decisions.ActionHired, history[0].Action)
}

func TestRecordDecisionRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	_, err := newEnv(t, 2).service.RecordDecision(context.Background(), "e-1", "c-01", "j-1", "ghosted")
	assert.ErrorIs(t, err, decisions.ErrInvalidAction)
}

func TestTrainingPersonalizesRankings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, 20)

	for i := 0; i < 9; i++ {
		action := "rejected"
		if i%2 == 0 {
			action = "hired"
		}
		_, err := e.service.RecordDecision(ctx, "e-1", fmt.Sprintf("c-%02d", i), "j-1", action)
		require.NoError(t, err)
	}

	_, err := e.service.TrainPersonalizationModel(ctx, "e-1")
	require.ErrorIs(t, err, personalization.ErrInsufficientTrainingData)
	assert.Zero(t, e.models.Versions("e-1"))

	_, err = e.service.RecordDecision(ctx, "e-1", "c-09", "j-1", "contacted")
	require.NoError(t, err)

	before, err := e.service.GetTopCandidates(ctx, "j-1", 5, "e-1")
	require.NoError(t, err)
	require.False(t, before.ScoringInfo.Personalized)

	outcome, err := e.service.TrainPersonalizationModel(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, 10, outcome.SampleCount)
	assert.Equal(t, 1, e.models.Versions("e-1"))

	after, err := e.service.GetTopCandidates(ctx, "j-1", 5, "e-1")
	require.NoError(t, err)
	assert.False(t, after.ScoringInfo.Cached)
	assert.True(t, after.ScoringInfo.Personalized)
	for _, m := range after.Matches {
		assert.True(t, m.Result.Personalized)
	}

	single, err := e.service.ScoreCandidate(ctx, "j-1", "c-03", "e-1")
	require.NoError(t, err)
	assert.True(t, single.Personalized)

	anonymous, err := e.service.ScoreCandidate(ctx, "j-1", "c-03", "")
	require.NoError(t, err)
	assert.False(t, anonymous.Personalized)

	unnamed, err := e.service.GetTopCandidates(ctx, "j-1", 5, "")
	require.NoError(t, err)
	assert.False(t, unnamed.ScoringInfo.Personalized)
	assert.Equal(t, "no employer", unnamed.ScoringInfo.PersonalizationSkipped)
}

func TestRetrainerSweepsEmployers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, 12)
	for i := 0; i < 12; i++ {
		_, err := e.service.RecordDecision(ctx, "e-1", fmt.Sprintf("c-%02d", i), "j-1", "viewed")
		require.NoError(t, err)
	}
	_, err := e.service.RecordDecision(ctx, "e-2", "c-00", "j-1", "hired")
	require.NoError(t, err)

	summary := e.service.Retrainer().RetrainAll(ctx)
	assert.Equal(t, personalization.RetrainSummary{Employers: 2, Trained: 1, Skipped: 1}, summary)
}

func TestScoreCandidateMissing(t *testing.T) {
	t.Parallel()

	_, err := newEnv(t, 1).service.ScoreCandidate(context.Background(), "j-1", "nobody", "")
	assert.ErrorIs(t, err, staffing.ErrNotFound)
}
