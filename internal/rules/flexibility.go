package rules

import (
	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/textmatch"
)

// NeutralFlexibility is assumed for every dimension with too little history.
const NeutralFlexibility = 0.5

// Thresholds configure flexibility analysis and rule generation.
type Thresholds struct {
	// MinSamples is the number of relevant hires a dimension needs before its
	// ratio is trusted.
	MinSamples int     `mapstructure:"min-samples"`
	Generous   float64 `mapstructure:"generous"`
	Moderate   float64 `mapstructure:"moderate"`
}

var DefaultThresholds = Thresholds{MinSamples: 5, Generous: 0.6, Moderate: 0.3}

// Flexibility holds, per preference dimension, the fraction of past hires
// that fell outside the stated preference.
type Flexibility struct {
	Age         float64 `json:"age"`
	Nationality float64 `json:"nationality"`
	Experience  float64 `json:"experience"`
	// Samples counts the relevant hires behind each ratio.
	AgeSamples         int `json:"age_samples"`
	NationalitySamples int `json:"nationality_samples"`
	ExperienceSamples  int `json:"experience_samples"`
}

// AnalyzeFlexibility computes flexibility ratios from hired records only. A
// hire is relevant to a dimension when the job stated that preference and
// the candidate snapshot carries the fact.
func AnalyzeFlexibility(records []decisions.Record, minSamples int) Flexibility {
	var age, nat, exp ratio

	for _, r := range records {
		if !r.Hired() {
			continue
		}
		job, cand := r.Job, r.Candidate

		if (job.AgeMin > 0 || job.AgeMax > 0) && cand.Age > 0 {
			outside := (job.AgeMin > 0 && cand.Age < job.AgeMin) || (job.AgeMax > 0 && cand.Age > job.AgeMax)
			age.add(outside)
		}
		if len(job.Nationalities) > 0 && textmatch.Fold(cand.Nationality) != "" {
			nat.add(!textmatch.Contains(job.Nationalities, cand.Nationality))
		}
		if job.MinExperienceYears > 0 {
			exp.add(cand.ExperienceYears < job.MinExperienceYears)
		}
	}

	return Flexibility{
		Age:                age.value(minSamples),
		Nationality:        nat.value(minSamples),
		Experience:         exp.value(minSamples),
		AgeSamples:         age.total,
		NationalitySamples: nat.total,
		ExperienceSamples:  exp.total,
	}
}

type ratio struct {
	outside int
	total   int
}

func (r *ratio) add(outside bool) {
	r.total++
	if outside {
		r.outside++
	}
}

func (r ratio) value(minSamples int) float64 {
	if r.total == 0 || r.total < minSamples {
		return NeutralFlexibility
	}
	return float64(r.outside) / float64(r.total)
}

type leniency struct {
	name     string
	reason   string
	when     Condition
	generous Action
	moderate Action
}

var leniencies = []leniency{
	{
		name:     "age_flexibility",
		reason:   "Employer has hired outside the stated age range",
		when:     Not(MeetsAgeRequirement()),
		generous: AddAgeWeight(0.8),
		moderate: AddAgeWeight(0.4),
	},
	{
		name:     "nationality_flexibility",
		reason:   "Employer has hired outside the preferred nationalities",
		when:     Not(IsPreferredNationality()),
		generous: AddWeight(0.04),
		moderate: AddWeight(0.02),
	},
	{
		name:     "experience_flexibility",
		reason:   "Employer has hired below the stated experience",
		when:     Not(MeetsExperienceRequirement()),
		generous: AddExperienceWeight(0.8),
		moderate: AddExperienceWeight(0.4),
	},
}

// GenerateRules turns flexibility ratios into graduated leniency rules.
func GenerateRules(flex Flexibility, th Thresholds) []Rule {
	ratios := []float64{flex.Age, flex.Nationality, flex.Experience}

	var out []Rule
	for i, l := range leniencies {
		var (
			action Action
			grade  string
		)
		switch r := ratios[i]; {
		case r >= th.Generous:
			action, grade = l.generous, "generous"
		case r >= th.Moderate:
			action, grade = l.moderate, "moderate"
		default:
			continue
		}
		out = append(out, Rule{
			Name:   l.name + "_" + grade,
			Reason: l.reason,
			When:   l.when,
			Then:   action,
			Source: SourceEmployer,
		})
	}
	return out
}
