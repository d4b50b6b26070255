package features

import "github.com/spigell/helper-matcher/internal/staffing"

// LayoutVersion identifies the vector layout below. Bump it whenever a name is
// added, removed or reordered: stored models and decision snapshots carry the
// version they were produced with.
const LayoutVersion = 1

type Group string

const (
	GroupDemographics    Group = "demographics"
	GroupExperience      Group = "experience"
	GroupLanguages       Group = "languages"
	GroupWorkPreferences Group = "work_preferences"
	GroupReliability     Group = "reliability"
	GroupSpecialization  Group = "specialization"
	GroupComposite       Group = "composite"
)

// Feature names referenced outside the extractor.
const (
	AgeScore            = "age_score"
	Education           = "education_level"
	TotalYears          = "total_years"
	English             = "english"
	LiveIn              = "live_in"
	PetFriendly         = "pet_friendly"
	Verified            = "verified"
	ReviewScore         = "review_score"
	ProfileCompleteness = "profile_completeness"
	ActivityRecency     = "activity_recency"
	AllRounder          = "all_rounder"
	InfantCareFit       = "infant_care_fit"
	ChildCareFit        = "child_care_fit"
)

// trackedLanguages are the languages with a dedicated proficiency slot, with
// the aliases profiles commonly use for them.
var trackedLanguages = []struct {
	name    string
	aliases []string
}{
	{name: "english"},
	{name: "mandarin", aliases: []string{"chinese", "putonghua"}},
	{name: "cantonese"},
	{name: "malay", aliases: []string{"bahasa melayu"}},
	{name: "tagalog", aliases: []string{"filipino"}},
	{name: "indonesian", aliases: []string{"bahasa indonesia", "bahasa"}},
	{name: "tamil"},
}

type slot struct {
	group Group
	name  string
}

var layout = buildLayout()

func buildLayout() []slot {
	var slots []slot
	add := func(g Group, names ...string) {
		for _, n := range names {
			slots = append(slots, slot{group: g, name: n})
		}
	}

	add(GroupDemographics,
		AgeScore, "age_normalized", "age_young", "age_prime", "age_mature",
		Education, "married", "has_children", "children_count", "nationality_known",
	)

	for _, cat := range staffing.Categories {
		add(GroupExperience, hasExperienceName(cat), yearsName(cat), taskBreadthName(cat))
	}
	add(GroupExperience, TotalYears, "category_count", "max_years", "avg_level")

	for _, lang := range trackedLanguages {
		add(GroupLanguages, lang.name)
	}
	add(GroupLanguages, "language_count", "max_proficiency", "avg_proficiency", "can_teach_any", "can_teach_english")

	add(GroupWorkPreferences, LiveIn, "live_out", "live_either", PetFriendly, "off_days", "off_days_flexibility")

	add(GroupReliability,
		Verified, ReviewScore, "review_count", "review_confidence", ProfileCompleteness,
		ActivityRecency, "recently_active", "has_reviews", "trust_score",
	)

	for _, cat := range staffing.Categories {
		add(GroupSpecialization, CompetencyName(cat), levelName(cat))
	}

	add(GroupComposite,
		InfantCareFit, ChildCareFit, "elder_care_fit", "cooking_fit", "cleaning_fit", "pet_care_fit",
		AllRounder, "live_in_household_fit", "chinese_household_fit", "western_household_fit",
		"malay_household_fit", "multilingual_fit",
	)

	return slots
}

// trainingSubset is the curated input of the personalization model.
var trainingSubset = []slot{
	{GroupDemographics, AgeScore},
	{GroupExperience, TotalYears},
	{GroupLanguages, English},
	{GroupComposite, AllRounder},
	{GroupReliability, ReviewScore},
	{GroupReliability, ProfileCompleteness},
	{GroupReliability, Verified},
	{GroupComposite, InfantCareFit},
	{GroupComposite, ChildCareFit},
	{GroupWorkPreferences, LiveIn},
}

// Dimension is the length of Set.Vector.
var Dimension = len(layout)

// TrainingDimension is the length of Set.TrainingVector.
var TrainingDimension = len(trainingSubset)

// Names returns the qualified feature names in vector order.
func Names() []string {
	return qualified(layout)
}

// TrainingNames returns the qualified names of the training subset in order.
func TrainingNames() []string {
	return qualified(trainingSubset)
}

func qualified(slots []slot) []string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, string(s.group)+"."+s.name)
	}
	return names
}

func hasExperienceName(cat staffing.Category) string { return string(cat) + "_has_experience" }
func yearsName(cat staffing.Category) string         { return string(cat) + "_years" }
func taskBreadthName(cat staffing.Category) string   { return string(cat) + "_task_breadth" }
func levelName(cat staffing.Category) string         { return string(cat) + "_level" }

// CompetencyName is the specialization feature holding a category competency.
func CompetencyName(cat staffing.Category) string { return string(cat) + "_competency" }
