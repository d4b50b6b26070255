// Package recommend ranks the candidate pool of a job: criteria extraction,
// concurrent scoring, optional personalization and truncation.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/criteria"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/scoring"
	"github.com/spigell/helper-matcher/internal/staffing"
)

type CandidateStore interface {
	// ListByType returns up to limit candidates of a helper type; limit <= 0
	// means no limit.
	ListByType(ctx context.Context, helperType string, limit int) ([]*staffing.Candidate, error)
	GetByID(ctx context.Context, id string) (*staffing.Candidate, error)
}

type JobStore interface {
	GetByID(ctx context.Context, id string) (*staffing.Job, error)
}

type CriteriaExtractor interface {
	Extract(ctx context.Context, job *staffing.Job, employerID string) (*criteria.Criteria, error)
}

type Scorer interface {
	Score(c *staffing.Candidate, crit *criteria.Criteria) (*scoring.Result, error)
}

type Personalizer interface {
	Model(ctx context.Context, employerID string) (*personalization.Model, error)
	RuleWeight() float64
}

type Config struct {
	Workers      int           `mapstructure:"workers"`
	PoolLimit    int           `mapstructure:"pool-limit"`
	DefaultLimit int           `mapstructure:"default-limit"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache-ttl"`
}

var DefaultConfig = Config{
	Workers:      8,
	PoolLimit:    500,
	DefaultLimit: 10,
	Timeout:      30 * time.Second,
	CacheTTL:     5 * time.Minute,
}

// Step describes one pipeline stage in the same terms the stage logs.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

type ScoringInfo struct {
	PoolSize     int  `json:"pool_size"`
	Scored       int  `json:"scored"`
	Failed       int  `json:"failed"`
	Personalized bool `json:"personalized"`
	// PersonalizationSkipped explains why no model was blended.
	PersonalizationSkipped string        `json:"personalization_skipped,omitempty"`
	Steps                  []Step        `json:"steps"`
	Duration               time.Duration `json:"duration"`
	Cached                 bool          `json:"cached"`
}

type JobInfo struct {
	ID                 string              `json:"id"`
	EmployerID         string              `json:"employer_id,omitempty"`
	Title              string              `json:"title,omitempty"`
	HelperType         string              `json:"helper_type"`
	RequiredCategories []staffing.Category `json:"required_categories,omitempty"`
	RuleSource         string              `json:"rule_source"`
}

type Match struct {
	Rank      int                 `json:"rank"`
	Candidate *staffing.Candidate `json:"candidate"`
	Result    *scoring.Result     `json:"result"`
}

type RankedResult struct {
	JobID        string      `json:"job_id"`
	Matches      []Match     `json:"matches"`
	TotalMatches int         `json:"total_matches"`
	HasMore      bool        `json:"has_more"`
	JobInfo      JobInfo     `json:"job_info"`
	ScoringInfo  ScoringInfo `json:"scoring_info"`
}

type Pipeline struct {
	candidates   CandidateStore
	jobs         JobStore
	criteria     CriteriaExtractor
	scorer       Scorer
	personalizer Personalizer
	cache        cache.Cache
	cfg          Config
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Pipeline)

// WithPersonalizer enables blending with the employer's learned model.
func WithPersonalizer(p Personalizer) Option {
	return func(pl *Pipeline) {
		pl.personalizer = p
	}
}

// WithCache caches full rankings per job and employer.
func WithCache(c cache.Cache) Option {
	return func(pl *Pipeline) {
		pl.cache = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) {
		pl.now = now
	}
}

func New(candidates CandidateStore, jobs JobStore, extractor CriteriaExtractor, scorer Scorer, cfg Config, lg *zap.Logger, opts ...Option) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig.DefaultLimit
	}
	p := &Pipeline{
		candidates: candidates,
		jobs:       jobs,
		criteria:   extractor,
		scorer:     scorer,
		cfg:        cfg,
		logger:     logger.WithFields(lg),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetTopCandidates ranks the pool of a job and returns the best limit
// matches. Candidates that fail to score are logged, counted and omitted.
// An empty employerID ranks on the static rule set without personalization.
func (p *Pipeline) GetTopCandidates(ctx context.Context, jobID string, limit int, employerID string) (*RankedResult, error) {
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	started := p.now()

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	log := logger.WithMatchFields(p.logger, employerID, jobID)

	key := p.cacheKey(ctx, log, jobID, employerID)
	if key != "" {
		var cached RankedResult
		ok, err := cache.GetJSON(ctx, p.cache, key, &cached)
		if err != nil {
			log.Warn("Ranking cache read failed", zap.Error(err))
		}
		if ok {
			log.Debug("Ranking served from cache")
			cached.ScoringInfo.Cached = true
			return truncate(&cached, limit), nil
		}
	}

	full, err := p.rank(ctx, log, job, employerID)
	if err != nil {
		return nil, err
	}
	full.ScoringInfo.Duration = p.now().Sub(started)

	if key != "" {
		if err := cache.SetJSON(ctx, p.cache, key, full, p.cfg.CacheTTL); err != nil {
			log.Warn("Ranking cache write failed", zap.Error(err))
		}
	}

	result := truncate(full, limit)
	p.logStep(log, Step{Name: "limit", Initial: full.TotalMatches, Dropped: full.TotalMatches - len(result.Matches), Left: len(result.Matches)})
	return result, nil
}

// Invalidate drops every cached ranking of the employer.
func (p *Pipeline) Invalidate(ctx context.Context, employerID string) error {
	if p.cache == nil {
		return nil
	}
	if _, err := p.cache.Incr(ctx, generationKey(employerID)); err != nil {
		return fmt.Errorf("bump ranking generation: %w", err)
	}
	return nil
}

func (p *Pipeline) rank(ctx context.Context, log *zap.Logger, job *staffing.Job, employerID string) (*RankedResult, error) {
	pool, err := p.candidates.ListByType(ctx, job.HelperType, p.cfg.PoolLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	crit, err := p.criteria.Extract(ctx, job, employerID)
	if err != nil {
		return nil, fmt.Errorf("extract criteria: %w", err)
	}

	info := ScoringInfo{PoolSize: len(pool)}
	info.Steps = append(info.Steps, p.logStep(log, Step{Name: "load_pool", Initial: len(pool), Left: len(pool)}))

	results := make([]*scoring.Result, len(pool))
	errs, err := runPool(ctx, p.cfg.Workers, len(pool), func(idx int) error {
		res, err := p.scorer.Score(pool[idx], crit)
		if err != nil {
			return err
		}
		results[idx] = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	matches := make([]Match, 0, len(pool))
	for i, res := range results {
		if errs[i] != nil || res == nil {
			info.Failed++
			log.Warn("Candidate scoring failed", logger.Candidate(candidateID(pool[i])), zap.Error(errs[i]))
			continue
		}
		matches = append(matches, Match{Candidate: pool[i], Result: res})
	}
	info.Scored = len(matches)
	info.Steps = append(info.Steps, p.logStep(log, Step{Name: "score", Initial: len(pool), Dropped: info.Failed, Left: info.Scored}))

	sortMatches(matches)

	info.Personalized, info.PersonalizationSkipped = p.personalize(ctx, log, employerID, matches)
	if info.Personalized {
		sortMatches(matches)
	}
	info.Steps = append(info.Steps, p.logStep(log, Step{Name: "personalize", Initial: len(matches), Left: len(matches)}))

	for i := range matches {
		matches[i].Rank = i + 1
	}

	return &RankedResult{
		JobID:        job.ID,
		Matches:      matches,
		TotalMatches: len(matches),
		JobInfo: JobInfo{
			ID:                 job.ID,
			EmployerID:         job.EmployerID,
			Title:              job.Title,
			HelperType:         job.HelperType,
			RequiredCategories: job.RequiredCategories(),
			RuleSource:         crit.RuleSource,
		},
		ScoringInfo: info,
	}, nil
}

// personalize blends the employer model into every match. It reports
// whether it did, or why not.
func (p *Pipeline) personalize(ctx context.Context, log *zap.Logger, employerID string, matches []Match) (bool, string) {
	switch {
	case p.personalizer == nil:
		return false, "personalization disabled"
	case employerID == "":
		return false, "no employer"
	case len(matches) == 0:
		return false, "no matches"
	}

	model, err := p.personalizer.Model(ctx, employerID)
	if errors.Is(err, personalization.ErrModelUnavailable) {
		return false, "no model"
	}
	if err != nil {
		log.Warn("Personalization model failed to load", zap.Error(err))
		return false, "model load failed"
	}

	weight := p.personalizer.RuleWeight()
	blended := 0
	for i := range matches {
		res := matches[i].Result
		if res.Features == nil {
			continue
		}
		pref, err := model.Predict(res.Features.TrainingVector())
		if err != nil {
			log.Debug("Prediction failed, keeping rule-based score", logger.Candidate(res.CandidateID), zap.Error(err))
			continue
		}
		res.Blend(pref, weight)
		blended++
	}
	if blended == 0 {
		return false, "prediction failed"
	}
	return true, ""
}

func (p *Pipeline) cacheKey(ctx context.Context, log *zap.Logger, jobID, employerID string) string {
	if p.cache == nil {
		return ""
	}
	// Anonymous rankings use static rules only, so decisions never stale them.
	if employerID == "" {
		return fmt.Sprintf("ranking:%s:", jobID)
	}
	gen, err := cache.Generation(ctx, p.cache, generationKey(employerID))
	if err != nil {
		log.Warn("Ranking generation unavailable, bypassing cache", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("ranking:%s:%s:%d", jobID, employerID, gen)
}

func (p *Pipeline) logStep(log *zap.Logger, s Step) Step {
	log.Info("pipeline step",
		zap.String("name", s.Name),
		zap.Int("initial", s.Initial),
		zap.Int("dropped", s.Dropped),
		zap.Int("left", s.Left),
	)
	return s
}

// sortMatches orders by final score, highest first; ties keep their order.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Result.FinalScore > matches[j].Result.FinalScore
	})
}

func truncate(full *RankedResult, limit int) *RankedResult {
	out := *full
	if len(full.Matches) > limit {
		out.Matches = full.Matches[:limit]
		out.HasMore = true
	}
	return &out
}

func generationKey(employerID string) string {
	return "ranking-gen:" + employerID
}

func candidateID(c *staffing.Candidate) string {
	if c == nil {
		return ""
	}
	return c.ID
}
