package decisions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/staffing"
)

type stubLog struct {
	records []Record
	err     error
}

func (s *stubLog) Append(_ context.Context, r Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r.Clone())
	return nil
}

func (s *stubLog) QueryByEmployer(_ context.Context, employerID string, _ int) ([]Record, error) {
	var out []Record
	for _, r := range s.records {
		if r.EmployerID == employerID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *stubLog) Employers(context.Context) ([]string, error) { return nil, nil }

type stubCandidates map[string]*staffing.Candidate

func (s stubCandidates) GetByID(_ context.Context, id string) (*staffing.Candidate, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, staffing.ErrNotFound
}

type stubJobs map[string]*staffing.Job

func (s stubJobs) GetByID(_ context.Context, id string) (*staffing.Job, error) {
	if j, ok := s[id]; ok {
		return j, nil
	}
	return nil, staffing.ErrNotFound
}

func newTracker(log *stubLog, now time.Time) *Tracker {
	candidates := stubCandidates{"c-1": {ID: "c-1", Age: 45, Nationality: "Indonesian", TotalYears: 7}}
	jobs := stubJobs{"j-1": {
		ID: "j-1",
		Preferences: staffing.Preferences{
			AgeMin: 25, AgeMax: 40, Nationalities: []string{"Filipino"}, MinExperienceYears: 3,
		},
		Requirements: map[staffing.Category]*staffing.Requirement{
			staffing.CategoryCooking: {Required: true},
		},
	}}
	return NewTracker(log, candidates, jobs, nil, nil, WithClock(func() time.Time { return now }))
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Action
		wantErr bool
	}{
		{input: "hired", want: ActionHired},
		{input: "  Contacted ", want: ActionContacted},
		{input: "bookmarked", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAction, tt.input)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestActionLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, ActionHired.Label())
	assert.Equal(t, 0.8, ActionContacted.Label())
	assert.Equal(t, 0.6, ActionClicked.Label())
	assert.Equal(t, 0.6, ActionViewed.Label())
	assert.Equal(t, 0.0, ActionRejected.Label())
	assert.Equal(t, UnknownLabel, Action("shortlisted").Label())
}

func TestTrackerRecordSnapshotsBothSides(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	log := &stubLog{}

	record, err := newTracker(log, now).Record(context.Background(), "e-1", "c-1", "j-1", "hired")
	require.NoError(t, err)

	_, err = uuid.Parse(record.ID)
	require.NoError(t, err)
	assert.Equal(t, now, record.Timestamp)
	assert.Equal(t, ActionHired, record.Action)
	assert.Len(t, record.Candidate.Features, features.TrainingDimension)
	assert.Equal(t, features.LayoutVersion, record.Candidate.LayoutVersion)
	assert.Equal(t, 45, record.Candidate.Age)
	assert.Equal(t, 7.0, record.Candidate.ExperienceYears)
	assert.Equal(t, 40, record.Job.AgeMax)
	assert.Equal(t, []string{"Filipino"}, record.Job.Nationalities)
	assert.Equal(t, 1, record.Job.RequiredCategories)
	require.Len(t, log.records, 1)
}

func TestTrackerRecordErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := newTracker(&stubLog{}, time.Now())

	_, err := tracker.Record(ctx, "e-1", "c-1", "j-1", "liked")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = tracker.Record(ctx, "e-1", "missing", "j-1", "hired")
	assert.ErrorIs(t, err, staffing.ErrNotFound)

	_, err = tracker.Record(ctx, "", "c-1", "j-1", "hired")
	assert.Error(t, err)

	failing := newTracker(&stubLog{err: errors.New("disk full")}, time.Now())
	_, err = failing.Record(ctx, "e-1", "c-1", "j-1", "hired")
	assert.ErrorContains(t, err, "disk full")
}

func TestHistoryIsNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	log := &stubLog{records: []Record{
		{ID: "a", EmployerID: "e-1", Timestamp: base},
		{ID: "b", EmployerID: "e-1", Timestamp: base.Add(2 * time.Hour)},
		{ID: "c", EmployerID: "e-2", Timestamp: base.Add(3 * time.Hour)},
		{ID: "d", EmployerID: "e-1", Timestamp: base.Add(time.Hour)},
		{ID: "e", EmployerID: "e-1", Timestamp: base.Add(time.Hour)},
	}}

	history, err := newTracker(log, base).History(context.Background(), "e-1", 0)
	require.NoError(t, err)

	var ids []string
	for _, r := range history {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "d", "e", "a"}, ids)
}

func TestRecordCloneIsIndependent(t *testing.T) {
	t.Parallel()

	r := Record{Candidate: CandidateSnapshot{Features: []float64{1, 2}}, Job: JobSnapshot{Nationalities: []string{"x"}}}
	c := r.Clone()
	c.Candidate.Features[0] = 9
	c.Job.Nationalities[0] = "y"

	assert.Equal(t, 1.0, r.Candidate.Features[0])
	assert.Equal(t, "x", r.Job.Nationalities[0])
}
