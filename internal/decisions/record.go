// Package decisions records employer actions on candidates and keeps the
// snapshots later used for flexibility analysis and model training.
package decisions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidAction = errors.New("invalid decision action")

type Action string

const (
	ActionViewed    Action = "viewed"
	ActionClicked   Action = "clicked"
	ActionContacted Action = "contacted"
	ActionHired     Action = "hired"
	ActionRejected  Action = "rejected"
)

// Actions lists every valid action in funnel order.
var Actions = []Action{ActionViewed, ActionClicked, ActionContacted, ActionHired, ActionRejected}

// ParseAction validates a free-form action name.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Actions {
		if action == known {
			return action, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, value)
}

// UnknownLabel is the training label of an action outside Actions.
const UnknownLabel = 0.3

// Label returns the soft training label of an action.
func (a Action) Label() float64 {
	switch a {
	case ActionHired:
		return 1
	case ActionContacted:
		return 0.8
	case ActionClicked, ActionViewed:
		return 0.6
	case ActionRejected:
		return 0
	default:
		return UnknownLabel
	}
}

// Record is one employer action. Records are values: stores hand out copies.
type Record struct {
	ID          string            `json:"id"`
	EmployerID  string            `json:"employer_id"`
	CandidateID string            `json:"candidate_id"`
	JobID       string            `json:"job_id"`
	Action      Action            `json:"action"`
	Timestamp   time.Time         `json:"timestamp"`
	Candidate   CandidateSnapshot `json:"candidate"`
	Job         JobSnapshot       `json:"job"`
}

// CandidateSnapshot freezes what the model and the flexibility analysis need
// from the candidate at decision time.
type CandidateSnapshot struct {
	// Features is the training vector in the layout named by LayoutVersion.
	Features        []float64 `json:"features"`
	LayoutVersion   int       `json:"layout_version"`
	Age             int       `json:"age,omitempty"`
	Nationality     string    `json:"nationality,omitempty"`
	ExperienceYears float64   `json:"experience_years,omitempty"`
}

// JobSnapshot freezes the stated preferences of the job at decision time.
type JobSnapshot struct {
	AgeMin             int      `json:"age_min,omitempty"`
	AgeMax             int      `json:"age_max,omitempty"`
	Nationalities      []string `json:"nationalities,omitempty"`
	MinExperienceYears float64  `json:"min_experience_years,omitempty"`
	RequiredCategories int      `json:"required_categories,omitempty"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Candidate.Features = append([]float64(nil), r.Candidate.Features...)
	r.Job.Nationalities = append([]string(nil), r.Job.Nationalities...)
	return r
}

// Hired reports whether the record is a hire.
func (r Record) Hired() bool {
	return r.Action == ActionHired
}
