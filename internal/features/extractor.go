// Package features turns a candidate profile into a fixed layout of named
// scalars in [0,1]. Missing or malformed inputs fall back to the values in a
// defaults.Table, so every candidate yields a vector of the same length.
package features

import (
	"math"
	"strings"
	"time"

	"github.com/spigell/helper-matcher/internal/defaults"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/textmatch"
)

var yearCaps = map[staffing.Category]float64{
	staffing.CategoryInfantcare: 10,
	staffing.CategoryChildcare:  10,
	staffing.CategoryEldercare:  10,
	staffing.CategoryCooking:    15,
	staffing.CategoryCleaning:   15,
	staffing.CategoryPetcare:    5,
}

const (
	totalYearsCap    = 20
	competencyYears  = 5
	taskBreadthCap   = 5
	offDaysCap       = 8
	reviewCountCap   = 20
	languageCountCap = 4
)

// Set holds extracted features keyed by group and name.
type Set struct {
	values map[Group]map[string]float64
}

// Get returns a feature value, or 0 when the name is not part of the layout.
func (s *Set) Get(g Group, name string) float64 {
	if s == nil {
		return 0
	}
	return s.values[g][name]
}

// Group returns a copy of one feature group.
func (s *Set) Group(g Group) map[string]float64 {
	out := make(map[string]float64, len(s.values[g]))
	for k, v := range s.values[g] {
		out[k] = v
	}
	return out
}

// Competency is the specialization score for a category.
func (s *Set) Competency(cat staffing.Category) float64 {
	return s.Get(GroupSpecialization, CompetencyName(cat))
}

// Vector flattens the set in layout order.
func (s *Set) Vector() []float64 {
	return s.collect(layout)
}

// TrainingVector returns the personalization model input.
func (s *Set) TrainingVector() []float64 {
	return s.collect(trainingSubset)
}

func (s *Set) collect(slots []slot) []float64 {
	out := make([]float64, len(slots))
	for i, sl := range slots {
		out[i] = s.Get(sl.group, sl.name)
	}
	return out
}

func (s *Set) set(g Group, name string, v float64) {
	group, ok := s.values[g]
	if !ok {
		group = make(map[string]float64)
		s.values[g] = group
	}
	group[name] = defaults.Clamp01(v)
}

type Extractor struct {
	defaults defaults.Table
	now      func() time.Time
}

type Option func(*Extractor)

// WithClock fixes the time used for recency features.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

func WithDefaults(t defaults.Table) Option {
	return func(e *Extractor) {
		e.defaults = t
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{defaults: defaults.Neutral, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults returns the table the extractor substitutes missing values from.
func (e *Extractor) Defaults() defaults.Table {
	return e.defaults
}

// Extract computes every feature in the layout. A nil candidate yields the
// all-default set.
func (e *Extractor) Extract(c *staffing.Candidate) *Set {
	if c == nil {
		c = &staffing.Candidate{}
	}

	s := &Set{values: make(map[Group]map[string]float64, 7)}
	for _, sl := range layout {
		s.set(sl.group, sl.name, 0)
	}

	e.demographics(s, c)
	e.experience(s, c)
	e.languages(s, c)
	e.workPreferences(s, c)
	e.reliability(s, c)
	e.composite(s, c)

	return s
}

func (e *Extractor) demographics(s *Set, c *staffing.Candidate) {
	s.set(GroupDemographics, AgeScore, AgeCurve(c.Age, e.defaults))
	if c.Age > 0 {
		s.set(GroupDemographics, "age_normalized", float64(c.Age-18)/(65-18))
		s.set(GroupDemographics, "age_young", boolScore(c.Age < 25))
		s.set(GroupDemographics, "age_prime", boolScore(c.Age >= 25 && c.Age <= 40))
		s.set(GroupDemographics, "age_mature", boolScore(c.Age > 40))
	} else {
		s.set(GroupDemographics, "age_normalized", e.defaults.UnknownAgeScore)
	}

	s.set(GroupDemographics, Education, EducationScore(c.Education, e.defaults))
	s.set(GroupDemographics, "married", boolScore(textmatch.Fold(c.MaritalStatus) == "married"))
	s.set(GroupDemographics, "has_children", boolScore(c.Children > 0))
	s.set(GroupDemographics, "children_count", defaults.Ratio(float64(c.Children), 4))
	s.set(GroupDemographics, "nationality_known", boolScore(textmatch.Fold(c.Nationality) != ""))
}

func (e *Extractor) experience(s *Set, c *staffing.Candidate) {
	var (
		count    int
		maxYears float64
		levelSum float64
	)

	for _, cat := range staffing.Categories {
		skill := c.Skill(cat)
		if skill == nil || !skill.HasExperience {
			continue
		}

		count++
		maxYears = math.Max(maxYears, skill.Years)
		level := LevelScore(skill.Level, e.defaults)
		levelSum += level

		s.set(GroupExperience, hasExperienceName(cat), 1)
		s.set(GroupExperience, yearsName(cat), defaults.Ratio(skill.Years, yearCaps[cat]))
		s.set(GroupExperience, taskBreadthName(cat), taskBreadth(skill))
		s.set(GroupSpecialization, CompetencyName(cat), Competency(skill, e.defaults))
		s.set(GroupSpecialization, levelName(cat), level)
	}

	s.set(GroupExperience, TotalYears, defaults.Ratio(c.ExperienceYears(), totalYearsCap))
	s.set(GroupExperience, "category_count", float64(count)/float64(len(staffing.Categories)))
	s.set(GroupExperience, "max_years", defaults.Ratio(maxYears, totalYearsCap))
	if count > 0 {
		s.set(GroupExperience, "avg_level", levelSum/float64(count))
	}
}

func (e *Extractor) languages(s *Set, c *staffing.Candidate) {
	var (
		known      int
		maxScore   float64
		sum        float64
		canTeach   bool
		teachesEng bool
	)

	for _, lang := range c.Languages {
		name := textmatch.Fold(lang.Name)
		if name == "" {
			continue
		}
		score := ProficiencyScore(lang.Proficiency, e.defaults)
		known++
		sum += score
		maxScore = math.Max(maxScore, score)
		if lang.CanTeach {
			canTeach = true
			if name == "english" {
				teachesEng = true
			}
		}

		if tracked := trackedName(name); tracked != "" && score > s.Get(GroupLanguages, tracked) {
			s.set(GroupLanguages, tracked, score)
		}
	}

	s.set(GroupLanguages, "language_count", defaults.Ratio(float64(known), languageCountCap))
	s.set(GroupLanguages, "max_proficiency", maxScore)
	if known > 0 {
		s.set(GroupLanguages, "avg_proficiency", sum/float64(known))
	}
	s.set(GroupLanguages, "can_teach_any", boolScore(canTeach))
	s.set(GroupLanguages, "can_teach_english", boolScore(teachesEng))
}

func (e *Extractor) workPreferences(s *Set, c *staffing.Candidate) {
	switch NormalizeAccommodation(c.Preferences.Accommodation) {
	case staffing.AccommodationLiveIn:
		s.set(GroupWorkPreferences, LiveIn, 1)
	case staffing.AccommodationLiveOut:
		s.set(GroupWorkPreferences, "live_out", 1)
	case staffing.AccommodationEither:
		s.set(GroupWorkPreferences, "live_either", 1)
	}
	s.set(GroupWorkPreferences, PetFriendly, boolScore(c.Preferences.PetFriendly))

	offDays := defaults.Ratio(float64(c.Preferences.OffDays), offDaysCap)
	s.set(GroupWorkPreferences, "off_days", offDays)
	s.set(GroupWorkPreferences, "off_days_flexibility", 1-offDays)
}

func (e *Extractor) reliability(s *Set, c *staffing.Candidate) {
	r := c.Reliability

	review := e.defaults.NoReviews
	if r.ReviewCount > 0 || r.ReviewScore > 0 {
		review = defaults.Ratio(r.ReviewScore, 5)
	}
	count := defaults.Ratio(float64(r.ReviewCount), reviewCountCap)

	completeness := e.defaults.UnknownCompleteness
	if r.ProfileCompleteness > 0 {
		completeness = defaults.Ratio(float64(r.ProfileCompleteness), 100)
	}

	recency, recent := e.defaults.UnknownActivity, false
	if !r.LastActiveAt.IsZero() {
		days := e.now().Sub(r.LastActiveAt).Hours() / 24
		recency, recent = recencyScore(days), days <= 7
	}

	s.set(GroupReliability, Verified, boolScore(r.Verified))
	s.set(GroupReliability, ReviewScore, review)
	s.set(GroupReliability, "review_count", count)
	s.set(GroupReliability, "review_confidence", review*count)
	s.set(GroupReliability, ProfileCompleteness, completeness)
	s.set(GroupReliability, ActivityRecency, recency)
	s.set(GroupReliability, "recently_active", boolScore(recent))
	s.set(GroupReliability, "has_reviews", boolScore(r.ReviewCount > 0))
	s.set(GroupReliability, "trust_score", 0.4*boolScore(r.Verified)+0.3*review+0.3*completeness)
}

func (e *Extractor) composite(s *Set, c *staffing.Candidate) {
	comp := s.Competency
	english := s.Get(GroupLanguages, English)
	trust := s.Get(GroupReliability, "trust_score")
	cooking := comp(staffing.CategoryCooking)

	maturity := e.defaults.UnknownAgeScore
	if c.Age > 0 {
		maturity = boolScore(c.Age >= 30)
	}

	var all float64
	for _, cat := range staffing.Categories {
		all += comp(cat)
	}

	liveIn := math.Max(s.Get(GroupWorkPreferences, LiveIn), s.Get(GroupWorkPreferences, "live_either"))

	s.set(GroupComposite, InfantCareFit, 0.6*comp(staffing.CategoryInfantcare)+0.2*english+0.2*s.Get(GroupReliability, ProfileCompleteness))
	s.set(GroupComposite, ChildCareFit, 0.5*comp(staffing.CategoryChildcare)+0.3*english+0.2*s.Get(GroupDemographics, Education))
	s.set(GroupComposite, "elder_care_fit", 0.6*comp(staffing.CategoryEldercare)+0.2*maturity+0.2*s.Get(GroupReliability, ReviewScore))
	s.set(GroupComposite, "cooking_fit", 0.7*cooking+0.3*s.Get(GroupExperience, taskBreadthName(staffing.CategoryCooking)))
	s.set(GroupComposite, "cleaning_fit", 0.7*comp(staffing.CategoryCleaning)+0.3*s.Get(GroupExperience, taskBreadthName(staffing.CategoryCleaning)))
	s.set(GroupComposite, "pet_care_fit", 0.6*comp(staffing.CategoryPetcare)+0.4*s.Get(GroupWorkPreferences, PetFriendly))
	s.set(GroupComposite, AllRounder, all/float64(len(staffing.Categories)))
	s.set(GroupComposite, "live_in_household_fit", 0.5*liveIn+0.3*s.Get(GroupWorkPreferences, "off_days_flexibility")+0.2*trust)
	s.set(GroupComposite, "chinese_household_fit",
		0.5*math.Max(s.Get(GroupLanguages, "mandarin"), s.Get(GroupLanguages, "cantonese"))+0.3*cooking+0.2*trust)
	s.set(GroupComposite, "western_household_fit", 0.6*english+0.2*cooking+0.2*trust)
	s.set(GroupComposite, "malay_household_fit",
		0.6*math.Max(s.Get(GroupLanguages, "malay"), s.Get(GroupLanguages, "indonesian"))+0.2*cooking+0.2*trust)
	s.set(GroupComposite, "multilingual_fit", 0.5*s.Get(GroupLanguages, "language_count")+0.5*s.Get(GroupLanguages, "avg_proficiency"))
}

// AgeCurve scores an age against the 25-40 peak band. Unknown ages (<= 0)
// get the neutral value.
func AgeCurve(age int, t defaults.Table) float64 {
	switch {
	case age <= 0:
		return t.UnknownAgeScore
	case age < 25:
		return defaults.Clamp01(1 - float64(25-age)/7)
	case age > 40:
		return defaults.Clamp01(1 - float64(age-40)/25)
	default:
		return 1
	}
}

// LevelScore maps a competency level to [0,1].
func LevelScore(level staffing.Competency, t defaults.Table) float64 {
	switch staffing.Competency(textmatch.Fold(string(level))) {
	case staffing.CompetencyBeginner:
		return 0.25
	case staffing.CompetencyIntermediate:
		return 0.5
	case staffing.CompetencyAdvanced:
		return 0.75
	case staffing.CompetencyExpert:
		return 1
	default:
		return t.MissingLevel
	}
}

// Competency combines level and years for one skill; a skill without
// experience scores 0.
func Competency(skill *staffing.SkillExperience, t defaults.Table) float64 {
	if skill == nil || !skill.HasExperience {
		return 0
	}
	return defaults.Clamp01(0.6*LevelScore(skill.Level, t) + 0.4*defaults.Ratio(skill.Years, competencyYears))
}

// ProficiencyScore maps a language proficiency to [0,1].
func ProficiencyScore(p staffing.Proficiency, t defaults.Table) float64 {
	switch staffing.Proficiency(textmatch.Fold(string(p))) {
	case staffing.ProficiencyBasic:
		return 0.4
	case staffing.ProficiencyIntermediate:
		return 0.7
	case staffing.ProficiencyAdvanced:
		return 0.9
	case staffing.ProficiencyNative:
		return 1
	default:
		return t.UnknownProficiency
	}
}

// EducationScore maps a free-form education level to [0,1].
func EducationScore(education string, t defaults.Table) float64 {
	e := textmatch.Fold(education)
	switch {
	case e == "none":
		return 0
	case strings.Contains(e, "university"), strings.Contains(e, "degree"),
		strings.Contains(e, "college"), strings.Contains(e, "bachelor"):
		return 1
	case strings.Contains(e, "diploma"), strings.Contains(e, "vocational"), strings.Contains(e, "tertiary"):
		return 0.75
	case strings.Contains(e, "secondary"), strings.Contains(e, "high school"):
		return 0.5
	case strings.Contains(e, "primary"):
		return 0.25
	default:
		return t.UnknownEducation
	}
}

// NormalizeAccommodation folds the spellings profiles use ("Live-in",
// "live in") onto the staffing constants. Unrecognised values return "".
func NormalizeAccommodation(v string) string {
	v = strings.NewReplacer("-", "_", " ", "_").Replace(textmatch.Fold(v))
	switch v {
	case staffing.AccommodationLiveIn, staffing.AccommodationLiveOut, staffing.AccommodationEither:
		return v
	case "any", "both", "flexible":
		return staffing.AccommodationEither
	default:
		return ""
	}
}

func taskBreadth(skill *staffing.SkillExperience) float64 {
	return defaults.Ratio(float64(len(skill.Tasks)+len(skill.Specialties)), taskBreadthCap)
}

func recencyScore(days float64) float64 {
	switch {
	case days <= 7:
		return 1
	case days <= 30:
		return 0.7
	case days <= 90:
		return 0.4
	default:
		return 0.1
	}
}

func trackedName(folded string) string {
	for _, lang := range trackedLanguages {
		if folded == lang.name {
			return lang.name
		}
		for _, alias := range lang.aliases {
			if folded == alias {
				return lang.name
			}
		}
	}
	return ""
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
