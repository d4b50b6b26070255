package rules

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/helper-matcher/internal/staffing"
)

// ErrInvalidSpec marks a rule document that failed validation.
var ErrInvalidSpec = errors.New("invalid rule spec")

// Spec is a rule document as posted with a job or stored in configuration:
//
//	name: older_but_experienced
//	reason: Experience offsets age
//	condition:
//	  kind: all
//	  conditions:
//	    - {kind: age_above, value: 40}
//	    - {kind: experience_at_least, value: 8}
//	action: {kind: add_age_weight, value: 0.5}
//
// Specs are untrusted input: unknown keys, unknown kinds, missing parameters
// and oversized magnitudes are all rejected.
type Spec = map[string]any

type specDoc struct {
	Name      string       `mapstructure:"name"`
	Reason    string       `mapstructure:"reason"`
	Condition conditionDoc `mapstructure:"condition"`
	Action    actionDoc    `mapstructure:"action"`
}

type conditionDoc struct {
	Kind       string         `mapstructure:"kind"`
	Value      *float64       `mapstructure:"value"`
	Category   string         `mapstructure:"category"`
	Conditions []conditionDoc `mapstructure:"conditions"`
}

type actionDoc struct {
	Kind  string   `mapstructure:"kind"`
	Value *float64 `mapstructure:"value"`
}

// DecodeSpec validates a rule document and converts it into a Rule.
func DecodeSpec(spec Spec, source string) (Rule, error) {
	var doc specDoc
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Rule{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(spec); err != nil {
		return Rule{}, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return Rule{}, fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}

	cond, err := doc.Condition.toCondition(1)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %w", ErrInvalidSpec, name, err)
	}
	action, err := doc.Action.toAction()
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %w", ErrInvalidSpec, name, err)
	}

	reason := strings.TrimSpace(doc.Reason)
	if reason == "" {
		reason = name
	}

	return Rule{Name: name, Reason: reason, When: cond, Then: action, Source: source}, nil
}

// DecodeSpecs decodes every spec, returning the valid rules and one error per
// rejected document.
func DecodeSpecs(specs []Spec, source string) ([]Rule, []error) {
	var (
		rules []Rule
		errs  []error
	)
	for i, spec := range specs {
		rule, err := DecodeSpec(spec, source)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule #%d: %w", i, err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}

func (d conditionDoc) toCondition(depth int) (Condition, error) {
	if depth > MaxDepth {
		return Condition{}, fmt.Errorf("condition nesting deeper than %d", MaxDepth)
	}

	kind := ConditionKind(strings.ToLower(strings.TrimSpace(d.Kind)))
	shape, ok := conditionShapes[kind]
	if !ok {
		return Condition{}, fmt.Errorf("unknown condition %q", d.Kind)
	}

	cond := Condition{Kind: kind}

	switch {
	case shape.value:
		if d.Value == nil || math.IsNaN(*d.Value) || math.IsInf(*d.Value, 0) {
			return Condition{}, fmt.Errorf("condition %q needs a finite value", kind)
		}
		cond.Value = param(*d.Value)
	case d.Value != nil:
		return Condition{}, fmt.Errorf("condition %q takes no value", kind)
	}

	switch {
	case shape.category:
		cat := staffing.Category(strings.ToLower(strings.TrimSpace(d.Category)))
		if !staffing.IsKnownCategory(cat) {
			return Condition{}, fmt.Errorf("condition %q: unknown category %q", kind, d.Category)
		}
		cond.Category = cat
	case d.Category != "":
		return Condition{}, fmt.Errorf("condition %q takes no category", kind)
	}

	switch {
	case shape.children:
		if kind == KindNot && len(d.Conditions) != 1 {
			return Condition{}, fmt.Errorf("not takes exactly one condition, got %d", len(d.Conditions))
		}
		for _, child := range d.Conditions {
			c, err := child.toCondition(depth + 1)
			if err != nil {
				return Condition{}, err
			}
			cond.Conditions = append(cond.Conditions, c)
		}
	case len(d.Conditions) > 0:
		return Condition{}, fmt.Errorf("condition %q takes no nested conditions", kind)
	}

	return cond, nil
}

func (d actionDoc) toAction() (Action, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(d.Kind)))
	switch kind {
	case ActionAddWeight, ActionAddAgeWeight, ActionAddExperienceWeight, ActionPenalty:
	default:
		return Action{}, fmt.Errorf("unknown action %q", d.Kind)
	}

	if d.Value == nil {
		return Action{}, fmt.Errorf("action %q needs a value", kind)
	}
	v := *d.Value
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Action{}, fmt.Errorf("action %q magnitude %v outside [0,1]", kind, v)
	}

	return Action{Kind: kind, Magnitude: v}, nil
}
