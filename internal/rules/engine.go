package rules

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/textmatch"
)

// ErrRuleEvaluation marks a rule that could not be evaluated. Such rules are
// skipped and contribute nothing.
var ErrRuleEvaluation = errors.New("rule evaluation failed")

// Context is what a rule sees about one candidate/job pair.
type Context struct {
	Candidate *staffing.Candidate
	Job       *staffing.Job
	BaseScore float64
	// AgeLoss is the share of the base score lost to the age preference.
	AgeLoss float64
	// ExperienceLoss is the share of the base score lost to experience.
	ExperienceLoss float64
}

type Applied struct {
	Rule   string  `json:"rule"`
	Reason string  `json:"reason"`
	Delta  float64 `json:"delta"`
}

type Skipped struct {
	Rule string `json:"rule"`
	Err  error  `json:"-"`
}

type Outcome struct {
	// Adjustment is the uncapped sum of applied deltas.
	Adjustment float64
	Applied    []Applied
	Skipped    []Skipped
}

// Final returns base+Adjustment clamped to [0,1].
func (o Outcome) Final(base float64) float64 {
	v := base + o.Adjustment
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type Engine struct {
	logger *zap.Logger
}

func NewEngine(lg *zap.Logger) *Engine {
	return &Engine{logger: logger.WithFields(lg)}
}

// Apply evaluates every rule in order. Rules that match add their delta;
// rules that fail to evaluate are reported in Skipped.
func (e *Engine) Apply(rules []Rule, ctx Context) Outcome {
	var out Outcome

	for _, rule := range rules {
		matched, err := evaluate(rule.When, ctx, 1)
		var delta float64
		if err == nil && matched {
			delta, err = actionDelta(rule.Then, ctx)
		}

		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrRuleEvaluation, rule.Name, err)
			out.Skipped = append(out.Skipped, Skipped{Rule: rule.Name, Err: err})
			e.logger.Warn("Rule skipped",
				logger.Rule(rule.Name),
				logger.Candidate(candidateID(ctx)),
				zap.Error(err),
			)
			continue
		}
		if !matched {
			continue
		}

		out.Adjustment += delta
		out.Applied = append(out.Applied, Applied{Rule: rule.Name, Reason: rule.Reason, Delta: delta})
	}

	return out
}

func actionDelta(a Action, ctx Context) (float64, error) {
	switch a.Kind {
	case ActionAddWeight:
		return a.Magnitude, nil
	case ActionPenalty:
		return -a.Magnitude, nil
	case ActionAddAgeWeight:
		return a.Magnitude * ctx.AgeLoss, nil
	case ActionAddExperienceWeight:
		return a.Magnitude * ctx.ExperienceLoss, nil
	default:
		return 0, fmt.Errorf("unknown action %q", a.Kind)
	}
}

func evaluate(c Condition, ctx Context, depth int) (bool, error) {
	if depth > MaxDepth {
		return false, fmt.Errorf("condition nesting deeper than %d", MaxDepth)
	}
	shape, ok := conditionShapes[c.Kind]
	if !ok {
		return false, fmt.Errorf("unknown condition %q", c.Kind)
	}
	if shape.value && c.Value == nil {
		return false, fmt.Errorf("condition %q needs a value", c.Kind)
	}
	if shape.category && !staffing.IsKnownCategory(c.Category) {
		return false, fmt.Errorf("condition %q: unknown category %q", c.Kind, c.Category)
	}

	cand := ctx.Candidate
	if cand == nil {
		cand = &staffing.Candidate{}
	}
	job := ctx.Job
	if job == nil {
		job = &staffing.Job{}
	}
	prefs := job.Preferences

	switch c.Kind {
	case KindAgeAbove:
		return cand.Age > 0 && float64(cand.Age) > *c.Value, nil
	case KindAgeBelow:
		return cand.Age > 0 && float64(cand.Age) < *c.Value, nil
	case KindMeetsAgeRequirement:
		if !prefs.HasAgeRange() {
			return true, nil
		}
		return cand.Age > 0 && prefs.AgeDistance(cand.Age) == 0, nil
	case KindPreferredNationality:
		if len(prefs.Nationalities) == 0 {
			return true, nil
		}
		return textmatch.Contains(prefs.Nationalities, cand.Nationality), nil
	case KindHasSkill:
		return cand.HasSkill(c.Category), nil
	case KindLacksSkill:
		return !cand.HasSkill(c.Category), nil
	case KindLacksCriticalSkill:
		for _, cat := range job.RequiredCategories() {
			if job.Requirement(cat).Importance == staffing.ImportanceCritical && !cand.HasSkill(cat) {
				return true, nil
			}
		}
		return false, nil
	case KindExperienceAtLeast:
		return cand.ExperienceYears() >= *c.Value, nil
	case KindExperienceBelow:
		return cand.ExperienceYears() < *c.Value, nil
	case KindMeetsExperienceRequirement:
		return cand.ExperienceYears() >= prefs.MinExperienceYears, nil
	case KindBaseScoreBelow:
		return ctx.BaseScore < *c.Value, nil
	case KindVerified:
		return cand.Reliability.Verified, nil
	case KindReviewScoreAtLeast:
		return cand.Reliability.ReviewScore >= *c.Value, nil
	case KindTeachesPreferredLanguage:
		for _, lang := range cand.Languages {
			if lang.CanTeach && textmatch.Contains(prefs.Languages, lang.Name) {
				return true, nil
			}
		}
		return false, nil
	case KindAll:
		for _, child := range c.Conditions {
			ok, err := evaluate(child, ctx, depth+1)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case KindAny:
		for _, child := range c.Conditions {
			ok, err := evaluate(child, ctx, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		if len(c.Conditions) != 1 {
			return false, fmt.Errorf("not takes exactly one condition, got %d", len(c.Conditions))
		}
		ok, err := evaluate(c.Conditions[0], ctx, depth+1)
		return !ok, err
	}

	return false, fmt.Errorf("unhandled condition %q", c.Kind)
}

func candidateID(ctx Context) string {
	if ctx.Candidate == nil {
		return ""
	}
	return ctx.Candidate.ID
}
