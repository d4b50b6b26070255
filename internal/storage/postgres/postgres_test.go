package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/staffing"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("HM_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("HM_TEST_POSTGRES_URL is not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, Config{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool, nil)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestProfiles(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	helperType := "type-" + uuid.NewString()
	first := &staffing.Candidate{ID: uuid.NewString(), HelperType: helperType, Age: 31,
		Reliability: staffing.Reliability{LastActiveAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}
	second := &staffing.Candidate{ID: uuid.NewString(), HelperType: helperType}
	require.NoError(t, store.Candidates().Put(ctx, first))
	require.NoError(t, store.Candidates().Put(ctx, second))

	listed, err := store.Candidates().ListByType(ctx, helperType, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, 31, listed[0].Age)
	assert.True(t, first.Reliability.LastActiveAt.Equal(listed[0].Reliability.LastActiveAt))

	limited, err := store.Candidates().ListByType(ctx, helperType, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = store.Candidates().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, staffing.ErrNotFound)

	job := &staffing.Job{ID: uuid.NewString(), EmployerID: "e-1", HelperType: helperType,
		Requirements: map[staffing.Category]*staffing.Requirement{
			staffing.CategoryCooking: {Required: true, Importance: staffing.ImportanceHigh},
		}}
	require.NoError(t, store.Jobs().Put(ctx, job))
	got, err := store.Jobs().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []staffing.Category{staffing.CategoryCooking}, got.RequiredCategories())
}

func TestDecisionLog(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	employer := "e-" + uuid.NewString()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, decisions.Record{
			ID:          uuid.NewString(),
			EmployerID:  employer,
			CandidateID: "c-1",
			JobID:       "j-1",
			Action:      decisions.ActionHired,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Candidate:   decisions.CandidateSnapshot{Features: []float64{0.5}, LayoutVersion: 1, Age: 30 + i},
			Job:         decisions.JobSnapshot{AgeMin: 25, AgeMax: 35},
		}))
	}

	all, err := store.QueryByEmployer(ctx, employer, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 30, all[0].Candidate.Age)
	assert.Equal(t, base, all[0].Timestamp)

	recent, err := store.QueryByEmployer(ctx, employer, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 31, recent[0].Candidate.Age)

	employers, err := store.Employers(ctx)
	require.NoError(t, err)
	assert.Contains(t, employers, employer)
}

func TestModelSwap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	employer := "e-" + uuid.NewString()
	missing, err := store.Load(ctx, employer)
	require.NoError(t, err)
	assert.Nil(t, missing)

	for i := 0; i < 2; i++ {
		model := &personalization.Model{EmployerID: employer, LayoutVersion: 1, FeatureNames: []string{"a"},
			TrainedAt: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
		require.NoError(t, store.Save(ctx, model))
		assert.Equal(t, int64(i+1), model.Version)
	}

	current, err := store.Load(ctx, employer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Version)
	assert.Equal(t, []string{"a"}, current.FeatureNames)
}
