// Package defaults holds the neutral values used whenever a candidate or job
// field is missing or malformed. Feature extraction and scoring both read from
// the same Table so the policies can be audited in one place.
package defaults

// Table lists the value substituted for each kind of missing input.
type Table struct {
	// UnknownAgeScore is used for the age curve and the age preference when the
	// candidate did not state an age.
	UnknownAgeScore float64
	// UnknownEducation is the education score for unrecognised education levels.
	UnknownEducation float64
	// MissingLevel is the competency level score when a candidate claims
	// experience without naming a level.
	MissingLevel float64
	// UnknownProficiency is the proficiency score for unrecognised values.
	UnknownProficiency float64
	// UnknownAccommodation is the compatibility when either side did not state
	// a live-in preference.
	UnknownAccommodation float64
	// UnknownActivity is the recency score when last activity is unknown.
	UnknownActivity float64
	// NoReviews is the normalised review score of a candidate without reviews.
	NoReviews float64
	// UnknownCompleteness is the profile completeness (0-1) when not reported.
	UnknownCompleteness float64
	// UnknownNationality is the nationality preference score when the
	// candidate did not state a nationality.
	UnknownNationality float64
	// UnknownReligion is the religion preference score when the candidate did
	// not state a religion.
	UnknownReligion float64
	// UnknownOffDays is the off-day compatibility when the candidate did not
	// state a preference.
	UnknownOffDays float64
}

// Neutral is the table used unless a caller injects another one.
var Neutral = Table{
	UnknownAgeScore:      0.5,
	UnknownEducation:     0.25,
	MissingLevel:         0.25,
	UnknownProficiency:   0.4,
	UnknownAccommodation: 0.7,
	UnknownActivity:      0.3,
	NoReviews:            0.5,
	UnknownCompleteness:  0.5,
	UnknownNationality:   0.5,
	UnknownReligion:      0.5,
	UnknownOffDays:       1,
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ratio returns min(v/ceiling, 1) bounded to [0,1]; a non-positive ceiling yields 0.
func Ratio(v, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return Clamp01(v / ceiling)
}
