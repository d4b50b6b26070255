package scoring

import (
	"fmt"
	"strings"

	"github.com/spigell/helper-matcher/internal/criteria"
	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/rules"
	"github.com/spigell/helper-matcher/internal/staffing"
)

const (
	strengthThreshold = 0.8
	concernThreshold  = 0.5
)

type Breakdown struct {
	Component    Component `json:"component"`
	Score        float64   `json:"score"`
	Weight       float64   `json:"weight"`
	Contribution float64   `json:"contribution"`
	Details      []string  `json:"details,omitempty"`
}

// Result is computed per candidate/job pair and discarded after the request
// unless the caller keeps it.
type Result struct {
	CandidateID       string          `json:"candidate_id"`
	JobID             string          `json:"job_id"`
	BaseScore         float64         `json:"base_score"`
	CompensationScore float64         `json:"compensation_score"`
	FinalScore        float64         `json:"final_score"`
	Breakdown         []Breakdown     `json:"breakdown"`
	AppliedRules      []rules.Applied `json:"applied_rules,omitempty"`
	SkippedRules      []string        `json:"skipped_rules,omitempty"`
	Strengths         []string        `json:"strengths,omitempty"`
	Concerns          []string        `json:"concerns,omitempty"`
	Explanation       string          `json:"explanation"`

	// Set by the pipeline when a personalization model took part.
	Personalized    bool     `json:"personalized"`
	PreferenceScore *float64 `json:"preference_score,omitempty"`
	RuleScore       float64  `json:"rule_score,omitempty"`

	Features *features.Set `json:"-"`
}

// Component returns the breakdown entry of one component.
func (r *Result) Component(c Component) Breakdown {
	for _, b := range r.Breakdown {
		if b.Component == c {
			return b
		}
	}
	return Breakdown{Component: c}
}

// Blend mixes a learned preference score into the final score. ruleWeight is
// the share kept by the rule-based score.
func (r *Result) Blend(preference, ruleWeight float64) {
	r.RuleScore = r.FinalScore
	r.PreferenceScore = &preference
	r.Personalized = true
	r.FinalScore = ruleWeight*r.RuleScore + (1-ruleWeight)*preference
	r.Explanation += fmt.Sprintf("Personalized: %s rule-based blended with %s employer preference\n",
		pct(r.RuleScore), pct(preference))
}

func (r *Result) summarize(c *staffing.Candidate, crit *criteria.Criteria) {
	for _, cat := range crit.Required() {
		switch competency := r.Features.Competency(cat); {
		case !c.HasSkill(cat):
			r.Concerns = append(r.Concerns, fmt.Sprintf("No %s experience", cat))
		case competency >= 0.75:
			r.Strengths = append(r.Strengths, fmt.Sprintf("Highly competent in %s", cat))
		}
	}

	for _, b := range r.Breakdown {
		switch {
		case b.Score >= strengthThreshold:
			r.Strengths = append(r.Strengths, fmt.Sprintf("Strong %s match", b.Component))
		case b.Score < concernThreshold:
			r.Concerns = append(r.Concerns, fmt.Sprintf("Weak %s match", b.Component))
		}
	}

	for _, a := range r.AppliedRules {
		if a.Delta < 0 {
			r.Concerns = append(r.Concerns, a.Reason)
		}
	}

	r.Explanation = r.explain()
}

func (r *Result) explain() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Match score %s (base %s, adjustments %+.1f%%)\n",
		pct(r.FinalScore), pct(r.BaseScore), r.CompensationScore*100)

	for _, b := range r.Breakdown {
		fmt.Fprintf(&sb, "- %s %s x %.2f = %.3f", b.Component, pct(b.Score), b.Weight, b.Contribution)
		if len(b.Details) > 0 {
			sb.WriteString(": " + strings.Join(b.Details, "; "))
		}
		sb.WriteString("\n")
	}

	for _, a := range r.AppliedRules {
		fmt.Fprintf(&sb, "Adjustment: %s (%+.1f%%)\n", a.Reason, a.Delta*100)
	}
	if len(r.Strengths) > 0 {
		sb.WriteString("Strengths: " + strings.Join(r.Strengths, ", ") + "\n")
	}
	if len(r.Concerns) > 0 {
		sb.WriteString("Concerns: " + strings.Join(r.Concerns, ", ") + "\n")
	}

	return sb.String()
}
