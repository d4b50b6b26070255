// Package rules implements the compensation rule engine: a closed catalog of
// typed conditions and actions that adjust a base match score.
package rules

import "github.com/spigell/helper-matcher/internal/staffing"

type ConditionKind string

const (
	KindAgeAbove                   ConditionKind = "age_above"
	KindAgeBelow                   ConditionKind = "age_below"
	KindMeetsAgeRequirement        ConditionKind = "meets_age_requirement"
	KindPreferredNationality       ConditionKind = "is_preferred_nationality"
	KindHasSkill                   ConditionKind = "has_skill"
	KindLacksSkill                 ConditionKind = "lacks_skill"
	KindLacksCriticalSkill         ConditionKind = "lacks_critical_skill"
	KindExperienceAtLeast          ConditionKind = "experience_at_least"
	KindExperienceBelow            ConditionKind = "experience_below"
	KindMeetsExperienceRequirement ConditionKind = "meets_experience_requirement"
	KindBaseScoreBelow             ConditionKind = "base_score_below"
	KindVerified                   ConditionKind = "verified"
	KindReviewScoreAtLeast         ConditionKind = "review_score_at_least"
	KindTeachesPreferredLanguage   ConditionKind = "teaches_preferred_language"
	KindAll                        ConditionKind = "all"
	KindAny                        ConditionKind = "any"
	KindNot                        ConditionKind = "not"
)

type conditionShape struct {
	value    bool
	category bool
	children bool
}

var conditionShapes = map[ConditionKind]conditionShape{
	KindAgeAbove:                   {value: true},
	KindAgeBelow:                   {value: true},
	KindMeetsAgeRequirement:        {},
	KindPreferredNationality:       {},
	KindHasSkill:                   {category: true},
	KindLacksSkill:                 {category: true},
	KindLacksCriticalSkill:         {},
	KindExperienceAtLeast:          {value: true},
	KindExperienceBelow:            {value: true},
	KindMeetsExperienceRequirement: {},
	KindBaseScoreBelow:             {value: true},
	KindVerified:                   {},
	KindReviewScoreAtLeast:         {value: true},
	KindTeachesPreferredLanguage:   {},
	KindAll:                        {children: true},
	KindAny:                        {children: true},
	KindNot:                        {children: true},
}

type ActionKind string

const (
	ActionAddWeight           ActionKind = "add_weight"
	ActionAddAgeWeight        ActionKind = "add_age_weight"
	ActionAddExperienceWeight ActionKind = "add_experience_weight"
	ActionPenalty             ActionKind = "penalty"
)

// MaxDepth bounds condition nesting; a leaf condition has depth 1.
const MaxDepth = 4

// Condition is one node of a rule predicate. Value is nil when the kind takes
// no numeric parameter.
type Condition struct {
	Kind       ConditionKind
	Value      *float64
	Category   staffing.Category
	Conditions []Condition
}

type Action struct {
	Kind      ActionKind
	Magnitude float64
}

type Rule struct {
	Name   string
	Reason string
	When   Condition
	Then   Action
	// Source tells where the rule came from: job, employer or default.
	Source string
}

const (
	SourceJob      = "job"
	SourceEmployer = "employer"
	SourceDefault  = "default"
)

func param(v float64) *float64 { return &v }

func AgeAbove(years int) Condition {
	return Condition{Kind: KindAgeAbove, Value: param(float64(years))}
}

func AgeBelow(years int) Condition {
	return Condition{Kind: KindAgeBelow, Value: param(float64(years))}
}

func MeetsAgeRequirement() Condition { return Condition{Kind: KindMeetsAgeRequirement} }

func IsPreferredNationality() Condition { return Condition{Kind: KindPreferredNationality} }

func HasSkill(cat staffing.Category) Condition {
	return Condition{Kind: KindHasSkill, Category: cat}
}

func LacksSkill(cat staffing.Category) Condition {
	return Condition{Kind: KindLacksSkill, Category: cat}
}

func LacksCriticalSkill() Condition { return Condition{Kind: KindLacksCriticalSkill} }

func ExperienceAtLeast(years float64) Condition {
	return Condition{Kind: KindExperienceAtLeast, Value: param(years)}
}

func ExperienceBelow(years float64) Condition {
	return Condition{Kind: KindExperienceBelow, Value: param(years)}
}

func MeetsExperienceRequirement() Condition {
	return Condition{Kind: KindMeetsExperienceRequirement}
}

func BaseScoreBelow(score float64) Condition {
	return Condition{Kind: KindBaseScoreBelow, Value: param(score)}
}

func IsVerified() Condition { return Condition{Kind: KindVerified} }

func ReviewScoreAtLeast(score float64) Condition {
	return Condition{Kind: KindReviewScoreAtLeast, Value: param(score)}
}

func TeachesPreferredLanguage() Condition { return Condition{Kind: KindTeachesPreferredLanguage} }

func All(conds ...Condition) Condition { return Condition{Kind: KindAll, Conditions: conds} }

func Any(conds ...Condition) Condition { return Condition{Kind: KindAny, Conditions: conds} }

func Not(cond Condition) Condition {
	return Condition{Kind: KindNot, Conditions: []Condition{cond}}
}

func AddWeight(x float64) Action { return Action{Kind: ActionAddWeight, Magnitude: x} }

// AddAgeWeight restores fraction x of the base points lost to the age preference.
func AddAgeWeight(x float64) Action { return Action{Kind: ActionAddAgeWeight, Magnitude: x} }

// AddExperienceWeight restores fraction x of the base points lost to experience.
func AddExperienceWeight(x float64) Action {
	return Action{Kind: ActionAddExperienceWeight, Magnitude: x}
}

func Penalty(x float64) Action { return Action{Kind: ActionPenalty, Magnitude: x} }

// ExperienceOverAge names the default age leniency rule. Employer
// flexibility rules replace it.
const ExperienceOverAge = "experience_over_age"

// DefaultRules is the static set used when no employer history is available.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   ExperienceOverAge,
			Reason: "Strong experience offsets the age preference",
			When:   All(Not(MeetsAgeRequirement()), ExperienceAtLeast(5)),
			Then:   AddAgeWeight(0.5),
			Source: SourceDefault,
		},
		{
			Name:   "trusted_profile",
			Reason: "Verified profile with excellent reviews",
			When:   All(IsVerified(), ReviewScoreAtLeast(4.5)),
			Then:   AddWeight(0.03),
			Source: SourceDefault,
		},
		{
			Name:   "language_teacher",
			Reason: "Can teach a preferred language",
			When:   TeachesPreferredLanguage(),
			Then:   AddWeight(0.02),
			Source: SourceDefault,
		},
		{
			Name:   "missing_critical_skill",
			Reason: "Lacks a skill the job marks as critical",
			When:   LacksCriticalSkill(),
			Then:   Penalty(0.05),
			Source: SourceDefault,
		},
	}
}
