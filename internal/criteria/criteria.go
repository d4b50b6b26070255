// Package criteria converts a job posting into the weighted structure the
// scorer consumes, resolving the compensation rule set along the way.
package criteria

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/rules"
	"github.com/spigell/helper-matcher/internal/staffing"
)

var ErrNilJob = errors.New("job is nil")

var importanceWeights = map[staffing.Importance]float64{
	staffing.ImportanceCritical: 1.0,
	staffing.ImportanceHigh:     1.0,
	staffing.ImportanceMedium:   0.7,
	staffing.ImportanceLow:      0.4,
}

// ImportanceWeight maps an importance to a weight. A required category that
// states no importance counts as medium; anything unrecognised weighs 0.
func ImportanceWeight(imp staffing.Importance, required bool) float64 {
	imp = staffing.Importance(strings.ToLower(strings.TrimSpace(string(imp))))
	if imp == staffing.ImportanceNone && required {
		return importanceWeights[staffing.ImportanceMedium]
	}
	return importanceWeights[imp]
}

// Preference weights, applied only when the job states the preference.
const (
	AgePreferenceWeight         = 0.35
	NationalityPreferenceWeight = 0.25
	LanguagePreferenceWeight    = 0.25
	ReligionPreferenceWeight    = 0.15
)

type Category struct {
	Required   bool                `json:"required"`
	Weight     float64             `json:"weight"`
	Importance staffing.Importance `json:"importance,omitempty"`
	Needs      []string            `json:"needs,omitempty"`
	MinYears   float64             `json:"min_years,omitempty"`
	Count      int                 `json:"count,omitempty"`
	Ages       []int               `json:"ages,omitempty"`
}

type PreferenceWeights struct {
	Age         float64 `json:"age"`
	Nationality float64 `json:"nationality"`
	Language    float64 `json:"language"`
	Religion    float64 `json:"religion"`
}

// Total is the sum of the active weights.
func (p PreferenceWeights) Total() float64 {
	return p.Age + p.Nationality + p.Language + p.Religion
}

// Criteria is derived per scoring call and never persisted.
type Criteria struct {
	JobID       string                         `json:"job_id"`
	EmployerID  string                         `json:"employer_id,omitempty"`
	Job         *staffing.Job                  `json:"-"`
	Categories  map[staffing.Category]Category `json:"categories"`
	Preferences PreferenceWeights              `json:"preferences"`
	Rules       []rules.Rule                   `json:"-"`
	// RuleSource is rules.SourceEmployer when the rules were personalized.
	RuleSource  string             `json:"rule_source"`
	Flexibility *rules.Flexibility `json:"flexibility,omitempty"`
}

// Required returns the required categories in staffing.Categories order.
func (c *Criteria) Required() []staffing.Category {
	var out []staffing.Category
	for _, cat := range staffing.Categories {
		if c.Categories[cat].Required {
			out = append(out, cat)
		}
	}
	return out
}

// History reads an employer's decision log.
type History interface {
	QueryByEmployer(ctx context.Context, employerID string, limit int) ([]decisions.Record, error)
}

type Extractor struct {
	history      History
	thresholds   rules.Thresholds
	historyLimit int
	logger       *zap.Logger
}

type Option func(*Extractor)

func WithThresholds(th rules.Thresholds) Option {
	return func(e *Extractor) {
		e.thresholds = th
	}
}

// WithHistoryLimit caps how many decisions feed the flexibility analysis.
func WithHistoryLimit(n int) Option {
	return func(e *Extractor) {
		e.historyLimit = n
	}
}

// NewExtractor builds an extractor. history may be nil, in which case only
// the static default rules are used.
func NewExtractor(history History, lg *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		history:    history,
		thresholds: rules.DefaultThresholds,
		logger:     logger.WithFields(lg),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds the criteria of a job. Missing optional fields never fail;
// only a nil job does.
func (e *Extractor) Extract(ctx context.Context, job *staffing.Job, employerID string) (*Criteria, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	// Without an employer the static rule set applies; the owner only tags logs.
	logEmployer := employerID
	if logEmployer == "" {
		logEmployer = job.EmployerID
	}
	log := logger.WithMatchFields(e.logger, logEmployer, job.ID)

	c := &Criteria{
		JobID:      job.ID,
		EmployerID: employerID,
		Job:        job,
		Categories: make(map[staffing.Category]Category, len(staffing.Categories)),
	}

	for _, cat := range staffing.Categories {
		req := job.Requirement(cat)
		if req == nil {
			c.Categories[cat] = Category{}
			continue
		}
		c.Categories[cat] = Category{
			Required:   req.Required,
			Weight:     ImportanceWeight(req.Importance, req.Required),
			Importance: req.Importance,
			Needs:      req.Needs,
			MinYears:   req.MinYears,
			Count:      req.Count,
			Ages:       req.Ages,
		}
	}
	for cat := range job.Requirements {
		if !staffing.IsKnownCategory(cat) {
			log.Debug("Unknown requirement category ignored", zap.String("category", string(cat)))
		}
	}

	prefs := job.Preferences
	if prefs.HasAgeRange() {
		c.Preferences.Age = AgePreferenceWeight
	}
	if len(prefs.Nationalities) > 0 {
		c.Preferences.Nationality = NationalityPreferenceWeight
	}
	if len(prefs.Languages) > 0 {
		c.Preferences.Language = LanguagePreferenceWeight
	}
	if strings.TrimSpace(prefs.Religion) != "" {
		c.Preferences.Religion = ReligionPreferenceWeight
	}

	jobRules, errs := rules.DecodeSpecs(job.Compensation, rules.SourceJob)
	for _, err := range errs {
		log.Warn("Job compensation rule rejected", zap.Error(err))
	}
	c.Rules = append(c.Rules, jobRules...)

	resolved, flex := e.resolveRules(ctx, log, employerID)
	c.Rules = append(c.Rules, resolved...)
	c.Flexibility = flex
	c.RuleSource = rules.SourceDefault
	if flex != nil {
		c.RuleSource = rules.SourceEmployer
	}

	return c, nil
}

func (e *Extractor) resolveRules(ctx context.Context, log *zap.Logger, employerID string) ([]rules.Rule, *rules.Flexibility) {
	if employerID == "" || e.history == nil {
		return rules.DefaultRules(), nil
	}

	records, err := e.history.QueryByEmployer(ctx, employerID, e.historyLimit)
	if err != nil {
		log.Warn("Decision history unavailable, using default rules", zap.Error(err))
		return rules.DefaultRules(), nil
	}

	flex := rules.AnalyzeFlexibility(records, e.thresholds.MinSamples)
	log.Debug("Flexibility analysed",
		zap.Float64("age", flex.Age),
		zap.Float64("nationality", flex.Nationality),
		zap.Float64("experience", flex.Experience),
		zap.Int("records", len(records)),
	)

	// Employer leniency replaces the static age rule but keeps the others.
	generated := rules.GenerateRules(flex, e.thresholds)
	for _, r := range rules.DefaultRules() {
		if r.Name != rules.ExperienceOverAge {
			generated = append(generated, r)
		}
	}
	return generated, &flex
}
