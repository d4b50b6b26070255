package decisions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/staffing"
)

// Log is the append-only decision store.
type Log interface {
	Append(ctx context.Context, record Record) error
	// QueryByEmployer returns up to limit records of the employer; limit <= 0
	// means all of them. Order is store defined.
	QueryByEmployer(ctx context.Context, employerID string, limit int) ([]Record, error)
	// Employers lists every employer with at least one record.
	Employers(ctx context.Context) ([]string, error)
}

type CandidateLookup interface {
	GetByID(ctx context.Context, id string) (*staffing.Candidate, error)
}

type JobLookup interface {
	GetByID(ctx context.Context, id string) (*staffing.Job, error)
}

type Tracker struct {
	log        Log
	candidates CandidateLookup
	jobs       JobLookup
	extractor  *features.Extractor
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(log Log, candidates CandidateLookup, jobs JobLookup, extractor *features.Extractor, lg *zap.Logger, opts ...Option) *Tracker {
	if extractor == nil {
		extractor = features.NewExtractor()
	}
	t := &Tracker{
		log:        log,
		candidates: candidates,
		jobs:       jobs,
		extractor:  extractor,
		logger:     logger.WithFields(lg),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record validates the action, snapshots both sides and appends the record.
func (t *Tracker) Record(ctx context.Context, employerID, candidateID, jobID, action string) (Record, error) {
	parsed, err := ParseAction(action)
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(employerID) == "" {
		return Record{}, errors.New("employer id is required")
	}

	candidate, err := t.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return Record{}, fmt.Errorf("load candidate %s: %w", candidateID, err)
	}
	job, err := t.jobs.GetByID(ctx, jobID)
	if err != nil {
		return Record{}, fmt.Errorf("load job %s: %w", jobID, err)
	}

	record := Record{
		ID:          uuid.NewString(),
		EmployerID:  employerID,
		CandidateID: candidate.ID,
		JobID:       job.ID,
		Action:      parsed,
		Timestamp:   t.now().UTC(),
		Candidate:   SnapshotCandidate(t.extractor, candidate),
		Job:         SnapshotJob(job),
	}

	if err := t.log.Append(ctx, record); err != nil {
		return Record{}, fmt.Errorf("append decision: %w", err)
	}

	t.logger.Debug("Decision recorded",
		append(logger.MatchFields(employerID, jobID),
			logger.Candidate(candidateID),
			zap.String("action", string(parsed)),
		)...,
	)

	return record, nil
}

// History returns the employer's records newest first.
func (t *Tracker) History(ctx context.Context, employerID string, limit int) ([]Record, error) {
	records, err := t.log.QueryByEmployer(ctx, employerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions of %s: %w", employerID, err)
	}
	SortNewestFirst(records)
	return records, nil
}

// Employers lists every employer with recorded decisions.
func (t *Tracker) Employers(ctx context.Context) ([]string, error) {
	return t.log.Employers(ctx)
}

// SortNewestFirst orders records by timestamp descending; equal timestamps
// keep their relative order.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

func SnapshotCandidate(extractor *features.Extractor, c *staffing.Candidate) CandidateSnapshot {
	return CandidateSnapshot{
		Features:        extractor.Extract(c).TrainingVector(),
		LayoutVersion:   features.LayoutVersion,
		Age:             c.Age,
		Nationality:     c.Nationality,
		ExperienceYears: c.ExperienceYears(),
	}
}

func SnapshotJob(j *staffing.Job) JobSnapshot {
	return JobSnapshot{
		AgeMin:             j.Preferences.AgeMin,
		AgeMax:             j.Preferences.AgeMax,
		Nationalities:      append([]string(nil), j.Preferences.Nationalities...),
		MinExperienceYears: j.Preferences.MinExperienceYears,
		RequiredCategories: len(j.RequiredCategories()),
	}
}
