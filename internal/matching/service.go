// Package matching exposes the operations of the matcher: ranking the
// candidates of a job, recording employer decisions and training the
// employer's personalization model.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/criteria"
	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/locks"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/recommend"
	"github.com/spigell/helper-matcher/internal/rules"
	"github.com/spigell/helper-matcher/internal/scoring"
)

// Stores are the persistence ports the service runs on. Cache and Locker are
// optional.
type Stores struct {
	Candidates recommend.CandidateStore
	Jobs       recommend.JobStore
	Decisions  decisions.Log
	Models     personalization.Store
	Cache      cache.Cache
	Locker     locks.Locker
}

type Config struct {
	Pipeline        recommend.Config       `mapstructure:"pipeline"`
	Personalization personalization.Config `mapstructure:"personalization"`
	Flexibility     rules.Thresholds       `mapstructure:"flexibility"`
	// Personalize turns on blending with learned employer models.
	Personalize bool `mapstructure:"personalize"`
}

var DefaultConfig = Config{
	Pipeline:        recommend.DefaultConfig,
	Personalization: personalization.DefaultConfig,
	Flexibility:     rules.DefaultThresholds,
	Personalize:     true,
}

type Service struct {
	stores          Stores
	features        *features.Extractor
	criteria        *criteria.Extractor
	scorer          *scoring.Scorer
	tracker         *decisions.Tracker
	personalization *personalization.Service
	pipeline        *recommend.Pipeline
	personalize     bool
	logger          *zap.Logger
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock fixes the time used for recency features and decision stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(stores Stores, cfg Config, lg *zap.Logger, opts ...Option) *Service {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{stores: stores, personalize: cfg.Personalize, logger: logger.WithFields(lg)}

	s.features = features.NewExtractor(features.WithClock(o.now))
	s.criteria = criteria.NewExtractor(stores.Decisions, lg,
		criteria.WithThresholds(cfg.Flexibility),
		criteria.WithHistoryLimit(cfg.Personalization.HistoryLimit),
	)
	s.scorer = scoring.NewScorer(s.features, rules.NewEngine(lg))
	s.tracker = decisions.NewTracker(stores.Decisions, stores.Candidates, stores.Jobs, s.features, lg,
		decisions.WithClock(o.now))

	personalizationOpts := []personalization.Option{
		personalization.WithClock(o.now),
		personalization.OnTrained(s.invalidate),
	}
	if stores.Cache != nil {
		personalizationOpts = append(personalizationOpts, personalization.WithCache(stores.Cache))
	}
	if stores.Locker != nil {
		personalizationOpts = append(personalizationOpts, personalization.WithLocker(stores.Locker))
	}
	s.personalization = personalization.NewService(stores.Decisions, stores.Models, cfg.Personalization, lg, personalizationOpts...)

	pipelineOpts := []recommend.Option{recommend.WithClock(o.now)}
	if cfg.Personalize {
		pipelineOpts = append(pipelineOpts, recommend.WithPersonalizer(s.personalization))
	}
	if stores.Cache != nil {
		pipelineOpts = append(pipelineOpts, recommend.WithCache(stores.Cache))
	}
	s.pipeline = recommend.New(stores.Candidates, stores.Jobs, s.criteria, s.scorer, cfg.Pipeline, lg, pipelineOpts...)

	return s
}

// GetTopCandidates returns the best ranked candidates of a job. employerID
// may be empty, in which case the job's employer is used.
func (s *Service) GetTopCandidates(ctx context.Context, jobID string, limit int, employerID string) (*recommend.RankedResult, error) {
	return s.pipeline.GetTopCandidates(ctx, jobID, limit, employerID)
}

// RecordDecision appends an employer decision. Cached rankings of the
// employer are dropped so the next request sees the new history.
func (s *Service) RecordDecision(ctx context.Context, employerID, candidateID, jobID, action string) (decisions.Record, error) {
	record, err := s.tracker.Record(ctx, employerID, candidateID, jobID, action)
	if err != nil {
		return decisions.Record{}, err
	}
	s.invalidate(ctx, employerID)
	return record, nil
}

// TrainPersonalizationModel retrains the employer's model from its decisions.
func (s *Service) TrainPersonalizationModel(ctx context.Context, employerID string) (*personalization.TrainingOutcome, error) {
	return s.personalization.Train(ctx, employerID)
}

// History returns the employer's decisions, newest first.
func (s *Service) History(ctx context.Context, employerID string, limit int) ([]decisions.Record, error) {
	return s.tracker.History(ctx, employerID, limit)
}

// ScoreCandidate scores a single candidate against a job, personalized when
// the employer has a model.
func (s *Service) ScoreCandidate(ctx context.Context, jobID, candidateID, employerID string) (*scoring.Result, error) {
	job, err := s.stores.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	candidate, err := s.stores.Candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate %s: %w", candidateID, err)
	}
	crit, err := s.criteria.Extract(ctx, job, employerID)
	if err != nil {
		return nil, fmt.Errorf("extract criteria: %w", err)
	}
	res, err := s.scorer.Score(candidate, crit)
	if err != nil {
		return nil, err
	}

	if !s.personalize || employerID == "" {
		return res, nil
	}
	p, err := s.personalization.Predict(ctx, employerID, res.Features.TrainingVector())
	switch {
	case err == nil:
		res.Blend(p, s.personalization.RuleWeight())
	case !errors.Is(err, personalization.ErrModelUnavailable):
		logger.WithMatchFields(s.logger, employerID, jobID).Warn("Personalization skipped", zap.Error(err))
	}
	return res, nil
}

// Retrainer returns the sweep that retrains every employer, for scheduling.
func (s *Service) Retrainer() *personalization.Retrainer {
	return personalization.NewRetrainer(s.personalization, s.logger)
}

func (s *Service) invalidate(ctx context.Context, employerID string) {
	if err := s.pipeline.Invalidate(ctx, employerID); err != nil {
		logger.WithMatchFields(s.logger, employerID, "").Warn("Failed to invalidate cached rankings", zap.Error(err))
	}
}
