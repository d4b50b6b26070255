package personalization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/locks"
	"github.com/spigell/helper-matcher/internal/logger"
)

type Config struct {
	// MinSamples is the number of usable decisions training requires.
	MinSamples int `mapstructure:"min-samples"`
	// RuleWeight is the share of the blended score kept by the rule-based score.
	RuleWeight    float64        `mapstructure:"rule-weight"`
	HistoryLimit  int            `mapstructure:"history-limit"`
	ModelCacheTTL time.Duration  `mapstructure:"model-cache-ttl"`
	LockTTL       time.Duration  `mapstructure:"lock-ttl"`
	Schedule      string         `mapstructure:"schedule"`
	Training      TrainingConfig `mapstructure:"training"`
}

var DefaultConfig = Config{
	MinSamples:    10,
	RuleWeight:    0.6,
	HistoryLimit:  1000,
	ModelCacheTTL: 10 * time.Minute,
	LockTTL:       15 * time.Minute,
	Schedule:      "@weekly",
	Training:      DefaultTrainingConfig,
}

// History is the part of the decision log training reads.
type History interface {
	QueryByEmployer(ctx context.Context, employerID string, limit int) ([]decisions.Record, error)
	Employers(ctx context.Context) ([]string, error)
}

type Service struct {
	history History
	store   Store
	locker  locks.Locker
	cache   cache.Cache
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	trained []func(ctx context.Context, employerID string)
}

type Option func(*Service)

// WithCache caches loaded models. Without it every prediction loads from the store.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLocker(l locks.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// OnTrained registers fn to run after every successful Train, including
// scheduled ones.
func OnTrained(fn func(ctx context.Context, employerID string)) Option {
	return func(s *Service) {
		s.trained = append(s.trained, fn)
	}
}

func NewService(history History, store Store, cfg Config, lg *zap.Logger, opts ...Option) *Service {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig.MinSamples
	}
	if cfg.RuleWeight <= 0 || cfg.RuleWeight > 1 {
		cfg.RuleWeight = DefaultConfig.RuleWeight
	}
	s := &Service{
		history: history,
		store:   store,
		locker:  locks.NewLocal(),
		cfg:     cfg,
		logger:  logger.WithFields(lg),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RuleWeight is the share of the blended score kept by the rule-based score.
func (s *Service) RuleWeight() float64 {
	return s.cfg.RuleWeight
}

// Train fits a new model from the employer's decisions and replaces the
// stored one. On any failure the stored model is left untouched.
func (s *Service) Train(ctx context.Context, employerID string) (*TrainingOutcome, error) {
	started := s.now()
	log := logger.WithMatchFields(s.logger, employerID, "")

	lease, err := s.locker.Acquire(ctx, "train:"+employerID, s.cfg.LockTTL)
	if errors.Is(err, locks.ErrLocked) {
		return nil, fmt.Errorf("%w: employer %s", ErrTrainingInProgress, employerID)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire training lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release training lock", zap.Error(err))
		}
	}()

	records, err := s.history.QueryByEmployer(ctx, employerID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}

	samples := Samples(records)
	if len(samples) < s.cfg.MinSamples {
		return nil, &InsufficientDataError{EmployerID: employerID, Have: len(samples), Need: s.cfg.MinSamples}
	}

	log.Info("Training personalization model",
		zap.Int("records", len(records)),
		zap.Int("samples", len(samples)),
	)

	net, metrics, err := Fit(samples, s.cfg.Training)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	model := &Model{
		EmployerID:    employerID,
		LayoutVersion: features.LayoutVersion,
		FeatureNames:  features.TrainingNames(),
		Network:       net,
		Metrics:       metrics,
		TrainedAt:     s.now().UTC(),
	}
	if err := s.store.Save(ctx, model); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	if s.cache != nil {
		if _, err := s.cache.Incr(ctx, modelGenKey(employerID)); err != nil {
			log.Warn("Failed to invalidate cached model", zap.Error(err))
		}
	}
	for _, fn := range s.trained {
		fn(ctx, employerID)
	}

	outcome := &TrainingOutcome{
		EmployerID:    employerID,
		SampleCount:   metrics.SampleCount,
		FinalLoss:     metrics.FinalLoss,
		FinalAccuracy: metrics.FinalAccuracy,
		Version:       model.Version,
		Duration:      s.now().Sub(started),
	}
	log.Info("Personalization model trained",
		zap.Int64("version", outcome.Version),
		zap.Float64("loss", outcome.FinalLoss),
		zap.Float64("accuracy", outcome.FinalAccuracy),
	)
	return outcome, nil
}

// Predict returns the employer's learned preference for a training vector.
func (s *Service) Predict(ctx context.Context, employerID string, vector []float64) (float64, error) {
	model, err := s.Model(ctx, employerID)
	if err != nil {
		return 0, err
	}
	p, err := model.Predict(vector)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return p, nil
}

// Model returns the employer's current model. A missing model, or one built
// for another feature layout, is ErrModelUnavailable.
func (s *Service) Model(ctx context.Context, employerID string) (*Model, error) {
	if employerID == "" {
		return nil, ErrModelUnavailable
	}
	log := logger.WithMatchFields(s.logger, employerID, "")

	// The generation is read before the store, so a load that races a
	// training run writes back under a key no later reader uses.
	var model *Model
	key := ""
	if s.cache != nil {
		gen, err := cache.Generation(ctx, s.cache, modelGenKey(employerID))
		if err != nil {
			log.Warn("Model cache generation read failed", zap.Error(err))
		} else {
			key = modelKey(employerID, gen)
		}
	}
	if key != "" {
		var cached Model
		ok, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			log.Warn("Model cache read failed", zap.Error(err))
		}
		if ok {
			model = &cached
		}
	}

	if model == nil {
		loaded, err := s.store.Load(ctx, employerID)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		if loaded == nil {
			return nil, ErrModelUnavailable
		}
		model = loaded
		if key != "" {
			if err := cache.SetJSON(ctx, s.cache, key, model, s.cfg.ModelCacheTTL); err != nil {
				log.Warn("Model cache write failed", zap.Error(err))
			}
		}
	}

	if model.LayoutVersion != features.LayoutVersion {
		return nil, fmt.Errorf("%w: model layout %d, current %d", ErrModelUnavailable, model.LayoutVersion, features.LayoutVersion)
	}
	return model, nil
}

// Samples converts decisions into training samples, dropping records whose
// snapshot was taken with another feature layout.
func Samples(records []decisions.Record) []Sample {
	samples := make([]Sample, 0, len(records))
	for _, r := range records {
		snap := r.Candidate
		if snap.LayoutVersion != features.LayoutVersion || len(snap.Features) != features.TrainingDimension {
			continue
		}
		samples = append(samples, Sample{
			Features: append([]float64(nil), snap.Features...),
			Label:    r.Action.Label(),
		})
	}
	return samples
}

func modelKey(employerID string, gen int64) string {
	return fmt.Sprintf("model:%s:%d", employerID, gen)
}

// modelGenKey holds a counter bumped by every saved model.
func modelGenKey(employerID string) string {
	return "model-gen:" + employerID
}
