package staffing

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a job or candidate does not exist.
var ErrNotFound = errors.New("not found")

type Category string

const (
	CategoryCooking    Category = "cooking"
	CategoryCleaning   Category = "cleaning"
	CategoryChildcare  Category = "childcare"
	CategoryInfantcare Category = "infantcare"
	CategoryEldercare  Category = "eldercare"
	CategoryPetcare    Category = "petcare"
)

// Categories lists every skill category in a fixed order. Feature layouts and
// score breakdowns iterate it, so the order must not change.
var Categories = []Category{
	CategoryCooking,
	CategoryCleaning,
	CategoryChildcare,
	CategoryInfantcare,
	CategoryEldercare,
	CategoryPetcare,
}

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c Category) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

type Competency string

const (
	CompetencyBeginner     Competency = "beginner"
	CompetencyIntermediate Competency = "intermediate"
	CompetencyAdvanced     Competency = "advanced"
	CompetencyExpert       Competency = "expert"
)

type Proficiency string

const (
	ProficiencyBasic        Proficiency = "basic"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyNative       Proficiency = "native"
)

const (
	AccommodationLiveIn  = "live_in"
	AccommodationLiveOut = "live_out"
	AccommodationEither  = "either"
)

type Candidate struct {
	ID            string                        `json:"id"`
	HelperType    string                        `json:"helper_type"`
	Name          string                        `json:"name,omitempty"`
	Age           int                           `json:"age,omitempty"`
	Nationality   string                        `json:"nationality,omitempty"`
	Education     string                        `json:"education,omitempty"`
	MaritalStatus string                        `json:"marital_status,omitempty"`
	Children      int                           `json:"children,omitempty"`
	Religion      string                        `json:"religion,omitempty"`
	Experience    map[Category]*SkillExperience `json:"experience,omitempty"`
	TotalYears    float64                       `json:"total_years,omitempty"`
	Languages     []Language                    `json:"languages,omitempty"`
	Preferences   WorkPreferences               `json:"preferences"`
	Reliability   Reliability                   `json:"reliability"`
}

type SkillExperience struct {
	HasExperience bool       `json:"has_experience"`
	Years         float64    `json:"years,omitempty"`
	Level         Competency `json:"level,omitempty"`
	Tasks         []string   `json:"tasks,omitempty"`
	// Specialties holds offered sub-skills such as cuisines for cooking.
	Specialties []string `json:"specialties,omitempty"`
}

type Language struct {
	Name        string      `json:"name"`
	Proficiency Proficiency `json:"proficiency,omitempty"`
	CanTeach    bool        `json:"can_teach,omitempty"`
}

type WorkPreferences struct {
	Accommodation string `json:"accommodation,omitempty"`
	PetFriendly   bool   `json:"pet_friendly,omitempty"`
	OffDays       int    `json:"off_days,omitempty"`
}

type Reliability struct {
	Verified            bool      `json:"verified,omitempty"`
	ReviewScore         float64   `json:"review_score,omitempty"`
	ReviewCount         int       `json:"review_count,omitempty"`
	LastActiveAt        time.Time `json:"last_active_at"`
	ProfileCompleteness int       `json:"profile_completeness,omitempty"`
}

// Skill returns the experience block for a category, or nil.
func (c *Candidate) Skill(cat Category) *SkillExperience {
	if c == nil || c.Experience == nil {
		return nil
	}
	return c.Experience[cat]
}

// HasSkill reports whether the candidate claims experience in the category.
func (c *Candidate) HasSkill(cat Category) bool {
	s := c.Skill(cat)
	return s != nil && s.HasExperience
}

// ExperienceYears returns the declared total years, falling back to the
// longest per-category experience when the total is missing.
func (c *Candidate) ExperienceYears() float64 {
	if c == nil {
		return 0
	}
	if c.TotalYears > 0 {
		return c.TotalYears
	}
	longest := 0.0
	for _, s := range c.Experience {
		if s != nil && s.HasExperience && s.Years > longest {
			longest = s.Years
		}
	}
	return longest
}
