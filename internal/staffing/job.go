package staffing

type Importance string

const (
	ImportanceNone     Importance = ""
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

type Job struct {
	ID           string                    `json:"id"`
	EmployerID   string                    `json:"employer_id,omitempty"`
	HelperType   string                    `json:"helper_type"`
	Title        string                    `json:"title,omitempty"`
	Requirements map[Category]*Requirement `json:"requirements,omitempty"`
	Preferences  Preferences               `json:"preferences"`
	// Compensation holds rule documents as posted. They are untrusted and are
	// decoded and validated by the rules package.
	Compensation []map[string]any `json:"compensation,omitempty"`
	Work         WorkConditions   `json:"work"`
}

type Requirement struct {
	Required   bool       `json:"required"`
	Importance Importance `json:"importance,omitempty"`
	Count      int        `json:"count,omitempty"`
	Ages       []int      `json:"ages,omitempty"`
	Needs      []string   `json:"needs,omitempty"`
	MinYears   float64    `json:"min_years,omitempty"`
}

type Preferences struct {
	AgeMin             int      `json:"age_min,omitempty"`
	AgeMax             int      `json:"age_max,omitempty"`
	Nationalities      []string `json:"nationalities,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	Religion           string   `json:"religion,omitempty"`
	MinExperienceYears float64  `json:"min_experience_years,omitempty"`
}

type WorkConditions struct {
	Accommodation string  `json:"accommodation,omitempty"`
	HasPets       bool    `json:"has_pets,omitempty"`
	OffDays       int     `json:"off_days,omitempty"`
	SalaryMin     float64 `json:"salary_min,omitempty"`
	SalaryMax     float64 `json:"salary_max,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// Requirement returns the requirement for a category, or nil.
func (j *Job) Requirement(cat Category) *Requirement {
	if j == nil || j.Requirements == nil {
		return nil
	}
	return j.Requirements[cat]
}

// RequiredCategories returns the categories flagged as required, in Categories order.
func (j *Job) RequiredCategories() []Category {
	var required []Category
	for _, cat := range Categories {
		if r := j.Requirement(cat); r != nil && r.Required {
			required = append(required, cat)
		}
	}
	return required
}

// HasAgeRange reports whether the job states any age bound.
func (p Preferences) HasAgeRange() bool {
	return p.AgeMin > 0 || p.AgeMax > 0
}

// AgeDistance returns how many years age lies outside the preferred range.
func (p Preferences) AgeDistance(age int) int {
	if p.AgeMin > 0 && age < p.AgeMin {
		return p.AgeMin - age
	}
	if p.AgeMax > 0 && age > p.AgeMax {
		return age - p.AgeMax
	}
	return 0
}
