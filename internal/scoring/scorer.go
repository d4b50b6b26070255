// Package scoring computes the weighted base score of a candidate against job
// criteria and runs the compensation rules over it.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spigell/helper-matcher/internal/criteria"
	"github.com/spigell/helper-matcher/internal/defaults"
	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/rules"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/textmatch"
)

var ErrInvalidInput = errors.New("invalid scoring input")

type Component string

const (
	ComponentSkills      Component = "skills"
	ComponentExperience  Component = "experience"
	ComponentPreferences Component = "preferences"
	ComponentWork        Component = "work"
	ComponentQuality     Component = "quality"
)

// Weights of the five components. They sum to 1.
var Weights = map[Component]float64{
	ComponentSkills:      0.30,
	ComponentExperience:  0.25,
	ComponentPreferences: 0.20,
	ComponentWork:        0.15,
	ComponentQuality:     0.10,
}

// Components lists the components in breakdown order.
var Components = []Component{
	ComponentSkills, ComponentExperience, ComponentPreferences, ComponentWork, ComponentQuality,
}

const (
	// needsShare is the part of a skill match decided by the overlap with
	// the listed needs.
	needsShare = 0.4
	// ageFalloff is the number of years outside the range at which the age
	// preference reaches 0.
	ageFalloff = 10
	// offDaysFalloff is the number of extra off days at which off-day
	// compatibility reaches 0.
	offDaysFalloff = 4
)

type Scorer struct {
	extractor *features.Extractor
	engine    *rules.Engine
	defaults  defaults.Table
}

// NewScorer builds a scorer. The defaults table is taken from the extractor
// so features and scoring agree on neutral values.
func NewScorer(extractor *features.Extractor, engine *rules.Engine) *Scorer {
	if extractor == nil {
		extractor = features.NewExtractor()
	}
	if engine == nil {
		engine = rules.NewEngine(nil)
	}
	return &Scorer{extractor: extractor, engine: engine, defaults: extractor.Defaults()}
}

// Score computes the result for one candidate. It fails only when the input
// cannot identify a candidate or carries no criteria; missing fields fall
// back to neutral defaults.
func (s *Scorer) Score(c *staffing.Candidate, crit *criteria.Criteria) (*Result, error) {
	switch {
	case c == nil:
		return nil, fmt.Errorf("%w: candidate is nil", ErrInvalidInput)
	case strings.TrimSpace(c.ID) == "":
		return nil, fmt.Errorf("%w: candidate has no id", ErrInvalidInput)
	case crit == nil:
		return nil, fmt.Errorf("%w: criteria are nil", ErrInvalidInput)
	}

	job := crit.Job
	if job == nil {
		job = &staffing.Job{ID: crit.JobID}
	}

	set := s.extractor.Extract(c)
	res := &Result{CandidateID: c.ID, JobID: crit.JobID, Features: set}

	skills := s.skills(c, crit, set)
	experience := s.experience(c, crit, job)
	prefs, ageScore := s.preferences(c, crit, job)
	work := s.work(c, job)
	quality := s.quality(set)

	for _, b := range []Breakdown{skills, experience, prefs, work, quality} {
		b.Weight = Weights[b.Component]
		b.Contribution = b.Weight * b.Score
		res.BaseScore += b.Contribution
		res.Breakdown = append(res.Breakdown, b)
	}
	res.BaseScore = defaults.Clamp01(res.BaseScore)

	ageLoss := 0.0
	if total := crit.Preferences.Total(); total > 0 {
		ageLoss = Weights[ComponentPreferences] * (crit.Preferences.Age / total) * (1 - ageScore)
	}

	outcome := s.engine.Apply(crit.Rules, rules.Context{
		Candidate:      c,
		Job:            job,
		BaseScore:      res.BaseScore,
		AgeLoss:        ageLoss,
		ExperienceLoss: Weights[ComponentExperience] * (1 - experience.Score),
	})

	res.CompensationScore = outcome.Adjustment
	res.FinalScore = outcome.Final(res.BaseScore)
	res.AppliedRules = outcome.Applied
	for _, sk := range outcome.Skipped {
		res.SkippedRules = append(res.SkippedRules, sk.Rule)
	}

	res.summarize(c, crit)
	return res, nil
}

func (s *Scorer) skills(c *staffing.Candidate, crit *criteria.Criteria, set *features.Set) Breakdown {
	b := Breakdown{Component: ComponentSkills}

	var weighted, total float64
	for _, cat := range crit.Required() {
		req := crit.Categories[cat]
		if req.Weight <= 0 {
			continue
		}

		match := set.Competency(cat)
		detail := fmt.Sprintf("%s competency %s", cat, pct(match))
		if len(req.Needs) > 0 {
			overlap, _, missing := textmatch.Overlap(req.Needs, offered(c.Skill(cat)))
			match = (1-needsShare)*match + needsShare*overlap
			detail += fmt.Sprintf(", needs covered %s", pct(overlap))
			if len(missing) > 0 {
				detail += " (missing " + strings.Join(missing, ", ") + ")"
			}
		}

		weighted += req.Weight * match
		total += req.Weight
		b.Details = append(b.Details, detail)
	}

	if total == 0 {
		b.Score = 1
		b.Details = append(b.Details, "no required skills")
		return b
	}
	b.Score = defaults.Clamp01(weighted / total)
	return b
}

func (s *Scorer) experience(c *staffing.Candidate, crit *criteria.Criteria, job *staffing.Job) Breakdown {
	b := Breakdown{Component: ComponentExperience}

	years := c.ExperienceYears()
	overall := yearsRatio(years, job.Preferences.MinExperienceYears)
	if job.Preferences.MinExperienceYears > 0 {
		b.Details = append(b.Details, fmt.Sprintf("%.1f of %.1f required years", years, job.Preferences.MinExperienceYears))
	} else {
		b.Details = append(b.Details, fmt.Sprintf("%.1f years, no minimum", years))
	}

	var perCat []float64
	for _, cat := range crit.Required() {
		req := crit.Categories[cat]
		if req.MinYears <= 0 {
			continue
		}
		have := 0.0
		if skill := c.Skill(cat); skill != nil && skill.HasExperience {
			have = skill.Years
		}
		perCat = append(perCat, yearsRatio(have, req.MinYears))
		b.Details = append(b.Details, fmt.Sprintf("%s %.1f of %.1f years", cat, have, req.MinYears))
	}

	b.Score = overall
	if len(perCat) > 0 {
		b.Score = (overall + mean(perCat)) / 2
	}
	return b
}

// preferences returns the breakdown and the raw age score, which the age
// leniency rules need.
func (s *Scorer) preferences(c *staffing.Candidate, crit *criteria.Criteria, job *staffing.Job) (Breakdown, float64) {
	b := Breakdown{Component: ComponentPreferences}
	w := crit.Preferences
	prefs := job.Preferences

	total := w.Total()
	if total == 0 {
		b.Score = 1
		b.Details = append(b.Details, "no preferences stated")
		return b, 1
	}

	age := 1.0
	var sum float64
	if w.Age > 0 {
		age = s.ageScore(c.Age, prefs)
		sum += w.Age * age
		b.Details = append(b.Details, "age "+pct(age))
	}
	if w.Nationality > 0 {
		nat := s.defaults.UnknownNationality
		if textmatch.Fold(c.Nationality) != "" {
			nat = boolScore(textmatch.Contains(prefs.Nationalities, c.Nationality))
		}
		sum += w.Nationality * nat
		b.Details = append(b.Details, "nationality "+pct(nat))
	}
	if w.Language > 0 {
		lang := s.languageScore(c, prefs.Languages)
		sum += w.Language * lang
		b.Details = append(b.Details, "languages "+pct(lang))
	}
	if w.Religion > 0 {
		rel := s.defaults.UnknownReligion
		if textmatch.Fold(c.Religion) != "" {
			rel = boolScore(textmatch.Equal(c.Religion, prefs.Religion))
		}
		sum += w.Religion * rel
		b.Details = append(b.Details, "religion "+pct(rel))
	}

	b.Score = defaults.Clamp01(sum / total)
	return b, age
}

func (s *Scorer) ageScore(age int, prefs staffing.Preferences) float64 {
	if age <= 0 {
		return s.defaults.UnknownAgeScore
	}
	return defaults.Clamp01(1 - float64(prefs.AgeDistance(age))/ageFalloff)
}

// languageScore is the proficiency-weighted fraction of preferred languages
// the candidate speaks.
func (s *Scorer) languageScore(c *staffing.Candidate, preferred []string) float64 {
	var sum float64
	var n int
	for _, want := range preferred {
		if textmatch.Fold(want) == "" {
			continue
		}
		n++
		best := 0.0
		for _, lang := range c.Languages {
			if textmatch.Equal(lang.Name, want) {
				best = math.Max(best, features.ProficiencyScore(lang.Proficiency, s.defaults))
			}
		}
		sum += best
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

func (s *Scorer) work(c *staffing.Candidate, job *staffing.Job) Breakdown {
	b := Breakdown{Component: ComponentWork}

	var accommodation float64
	want := features.NormalizeAccommodation(c.Preferences.Accommodation)
	offer := features.NormalizeAccommodation(job.Work.Accommodation)
	switch {
	case want == "" || offer == "":
		accommodation = s.defaults.UnknownAccommodation
	case want == staffing.AccommodationEither || offer == staffing.AccommodationEither || want == offer:
		accommodation = 1
	}

	pets := 1.0
	if job.Work.HasPets && !c.Preferences.PetFriendly && !c.HasSkill(staffing.CategoryPetcare) {
		pets = 0
	}

	offDays := 1.0
	switch {
	case c.Preferences.OffDays <= 0:
		offDays = s.defaults.UnknownOffDays
	case job.Work.OffDays > 0 && c.Preferences.OffDays > job.Work.OffDays:
		offDays = defaults.Clamp01(1 - float64(c.Preferences.OffDays-job.Work.OffDays)/offDaysFalloff)
	}

	b.Score = (accommodation + pets + offDays) / 3
	b.Details = append(b.Details,
		"accommodation "+pct(accommodation),
		"pets "+pct(pets),
		"off days "+pct(offDays),
	)
	return b
}

func (s *Scorer) quality(set *features.Set) Breakdown {
	verified := set.Get(features.GroupReliability, features.Verified)
	review := set.Get(features.GroupReliability, features.ReviewScore)
	completeness := set.Get(features.GroupReliability, features.ProfileCompleteness)
	recency := set.Get(features.GroupReliability, features.ActivityRecency)

	return Breakdown{
		Component: ComponentQuality,
		Score:     defaults.Clamp01(0.3*verified + 0.3*review + 0.2*completeness + 0.2*recency),
		Details: []string{
			"verified " + pct(verified),
			"reviews " + pct(review),
			"profile " + pct(completeness),
			"activity " + pct(recency),
		},
	}
}

func offered(skill *staffing.SkillExperience) []string {
	if skill == nil || !skill.HasExperience {
		return nil
	}
	out := make([]string, 0, len(skill.Tasks)+len(skill.Specialties))
	out = append(out, skill.Tasks...)
	return append(out, skill.Specialties...)
}

func yearsRatio(have, required float64) float64 {
	if required <= 0 {
		return 1
	}
	return defaults.Ratio(have, required)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
